// package common contains common types that are used throughout this engine. They are not interface-wrapped structs, just plain structs that express
// commonly used data-types.
package common

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// AABB is an axis-aligned bounding box described by its minimum and maximum corners.
type AABB struct {
	// Min is the corner with the smallest coordinate on every axis.
	Min mgl32.Vec3
	// Max is the corner with the largest coordinate on every axis.
	Max mgl32.Vec3
}

// EmptyAABB returns an inverted box that any Extend call will replace.
//
// Returns:
//   - AABB: a box with Min at +MaxFloat32 and Max at -MaxFloat32
func EmptyAABB() AABB {
	const f = math.MaxFloat32
	return AABB{
		Min: mgl32.Vec3{f, f, f},
		Max: mgl32.Vec3{-f, -f, -f},
	}
}

// IsEmpty reports whether the box has not been extended by any point.
//
// Returns:
//   - bool: true if Min exceeds Max on any axis
func (b AABB) IsEmpty() bool {
	return b.Min[0] > b.Max[0] || b.Min[1] > b.Max[1] || b.Min[2] > b.Max[2]
}

// Center returns the midpoint of the box.
//
// Returns:
//   - mgl32.Vec3: (Min + Max) / 2
func (b AABB) Center() mgl32.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// Extents returns the half size of the box along each axis.
//
// Returns:
//   - mgl32.Vec3: (Max - Min) / 2
func (b AABB) Extents() mgl32.Vec3 {
	return b.Max.Sub(b.Min).Mul(0.5)
}

// Corners returns the eight corners of the box.
//
// Returns:
//   - [8]mgl32.Vec3: the corners, ordered by bit pattern (x = bit 0, y = bit 1, z = bit 2)
func (b AABB) Corners() [8]mgl32.Vec3 {
	var out [8]mgl32.Vec3
	for i := range out {
		out[i] = b.Min
		if i&1 != 0 {
			out[i][0] = b.Max[0]
		}
		if i&2 != 0 {
			out[i][1] = b.Max[1]
		}
		if i&4 != 0 {
			out[i][2] = b.Max[2]
		}
	}
	return out
}

// Extend grows the box to contain a point.
//
// Parameters:
//   - p: the point to include
//
// Returns:
//   - AABB: the grown box
func (b AABB) Extend(p mgl32.Vec3) AABB {
	for i := 0; i < 3; i++ {
		b.Min[i] = min(b.Min[i], p[i])
		b.Max[i] = max(b.Max[i], p[i])
	}
	return b
}

// Union grows the box to contain another box.
//
// Parameters:
//   - o: the box to include
//
// Returns:
//   - AABB: the combined box
func (b AABB) Union(o AABB) AABB {
	if o.IsEmpty() {
		return b
	}
	return b.Extend(o.Min).Extend(o.Max)
}

// Color is a linear RGBA color.
type Color = mgl32.Vec4

// ColorWhite is opaque white.
var ColorWhite = Color{1, 1, 1, 1}
