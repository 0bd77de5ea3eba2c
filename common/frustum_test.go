package common

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func TestIdentityFrustumAcceptsBoxInside(t *testing.T) {
	f := ExtractFrustumFromMatrix(mgl32.Ident4())

	assert.True(t, f.TestBox(mgl32.Vec3{0, 0, 0.5}, mgl32.Vec3{0.2, 0.2, 0.2}))
}

func TestIdentityFrustumRejectsBoxBeyondFar(t *testing.T) {
	f := ExtractFrustumFromMatrix(mgl32.Ident4())

	assert.False(t, f.TestBox(mgl32.Vec3{0, 0, 10}, mgl32.Vec3{0.5, 0.5, 0.5}))
}

var frustumPlaneCases = []struct {
	Name    string
	Center  mgl32.Vec3
	Extents mgl32.Vec3
	Visible bool
}{
	{"left of volume", mgl32.Vec3{-3, 0, 0.5}, mgl32.Vec3{1, 1, 0.1}, false},
	{"straddles left plane", mgl32.Vec3{-1.5, 0, 0.5}, mgl32.Vec3{1, 0.1, 0.1}, true},
	{"above volume", mgl32.Vec3{0, 5, 0.5}, mgl32.Vec3{1, 1, 0.1}, false},
	{"behind near plane", mgl32.Vec3{0, 0, -2}, mgl32.Vec3{0.5, 0.5, 0.5}, false},
	{"touches near plane", mgl32.Vec3{0, 0, -0.4}, mgl32.Vec3{0.5, 0.5, 0.5}, true},
}

func TestFrustumPlaneCases(t *testing.T) {
	f := ExtractFrustumFromMatrix(mgl32.Ident4())
	for _, tc := range frustumPlaneCases {
		t.Run(tc.Name, func(t *testing.T) {
			assert.Equal(t, tc.Visible, f.TestBox(tc.Center, tc.Extents))
		})
	}
}

func TestPerspectiveFrustumCullsBehindCamera(t *testing.T) {
	view := LookAt(mgl32.Vec3{0, 0, 5}, mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 1, 0})
	proj := Perspective(mgl32.DegToRad(60), 1, 0.1, 100)
	f := ExtractFrustumFromMatrix(proj.Mul4(view))

	assert.True(t, f.TestBox(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0.5, 0.5, 0.5}))
	assert.False(t, f.TestBox(mgl32.Vec3{0, 0, 10}, mgl32.Vec3{0.5, 0.5, 0.5}))
	assert.False(t, f.TestBox(mgl32.Vec3{0, 0, -200}, mgl32.Vec3{0.5, 0.5, 0.5}))
}

func TestFrustumPlanesAreNormalized(t *testing.T) {
	proj := Perspective(mgl32.DegToRad(45), 16.0/9.0, 0.1, 1000)
	f := ExtractFrustumFromMatrix(proj)
	for i, p := range f.Planes {
		assert.InDelta(t, 1.0, p.Normal.Len(), 1e-4, "plane %d", i)
	}
}
