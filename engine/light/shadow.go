package light

import (
	"math"

	"github.com/Carmen-Shannon/oxy-forward/common"
	"github.com/go-gl/mathgl/mgl32"
)

// ShadowMapResolution is the default width and height in texels of the shadow
// depth texture. Renderers use this as their initial value but can override it
// via the WithResolution builder option or ShadowMap.Resize.
const ShadowMapResolution = 2048

// ShadowDepthBias is the constant depth bias, in depth-buffer units, rasterized into
// the shadow map by the shadow pipeline.
const ShadowDepthBias int32 = 100

// ShadowSlopeScale is the slope-scaled depth bias applied by the shadow pipeline.
const ShadowSlopeScale float32 = 1.0

// DefaultShadowBias is the depth comparison bias applied in the forward shader
// to reduce shadow acne on surfaces facing the light.
const DefaultShadowBias float32 = 0.001

// ShadowPadding is the margin, in world units, added on every axis of the light-space
// bounds so casters on the edge of the scene are not clipped.
const ShadowPadding float32 = 2.0

// MinShadowDistance is the minimum distance between the light eye and the scene center.
const MinShadowDistance float32 = 50.0

// ComputeLightViewProjection builds an orthographic view-projection matrix for a
// directional light's shadow pass that tightly encloses the given world-space bounds.
//
// The eye is placed behind the bounds center, opposite the light direction, at
// max(MinShadowDistance, 2*radius). The orthographic box is fitted to the eight
// bound corners in light space and padded by ShadowPadding on every axis. Depth
// maps to [0, 1].
//
// Parameters:
//   - dir: direction the light travels (from light toward scene); zero falls back to straight down
//   - bounds: the world-space bounds of all shadow casters and receivers
//
// Returns:
//   - mgl32.Mat4: the light view-projection matrix (column-major)
func ComputeLightViewProjection(dir mgl32.Vec3, bounds common.AABB) mgl32.Mat4 {
	d, ok := normalize(dir)
	if !ok {
		d = mgl32.Vec3{0, -1, 0}
	}

	center := bounds.Center()
	radius := bounds.Extents().Len()
	distance := max(MinShadowDistance, 2*radius)
	eye := center.Sub(d.Mul(distance))

	// a light pointing nearly straight up or down needs another up axis
	up := mgl32.Vec3{0, 1, 0}
	if abs32(d[1]) > 0.99 {
		up = mgl32.Vec3{1, 0, 0}
	}
	view := common.LookAt(eye, center, up)

	lsMin := mgl32.Vec3{math.MaxFloat32, math.MaxFloat32, math.MaxFloat32}
	lsMax := mgl32.Vec3{-math.MaxFloat32, -math.MaxFloat32, -math.MaxFloat32}
	for _, corner := range bounds.Corners() {
		p := common.TransformPoint(view, corner)
		for i := range 3 {
			lsMin[i] = min(lsMin[i], p[i])
			lsMax[i] = max(lsMax[i], p[i])
		}
	}

	// view space looks down -Z, so the nearest point has the largest z
	near := -lsMax[2] - ShadowPadding
	far := -lsMin[2] + ShadowPadding
	proj := common.OrthoOffCenter(
		lsMin[0]-ShadowPadding, lsMax[0]+ShadowPadding,
		lsMin[1]-ShadowPadding, lsMax[1]+ShadowPadding,
		near, far,
	)
	return proj.Mul4(view)
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
