package bvh

import (
	"github.com/achilleasa/polaris-bvh/types"
	"github.com/x448/float16"
)

// Material index used by triangles that do not reference a material.
const NoMaterial int32 = -1

// A world-space triangle. Triangles are treated as immutable values once
// created with NewTriangle.
type Triangle struct {
	A, B, C types.Vec3

	// Per-vertex texture coordinates for A, B and C. Each coordinate pair is
	// packed as two half floats with u in the low 16 bits.
	UV [3]uint32

	Material int32

	// Tight bounds of the three vertices.
	Bounds AABB
}

// Create a triangle and calculate its bounding box.
func NewTriangle(a, b, c types.Vec3, uv [3]types.Vec2, material int32) Triangle {
	return Triangle{
		A:        a,
		B:        b,
		C:        c,
		UV:       [3]uint32{packHalf2x16(uv[0]), packHalf2x16(uv[1]), packHalf2x16(uv[2])},
		Material: material,
		Bounds: AABB{
			Min: types.MinVec3(a, types.MinVec3(b, c)),
			Max: types.MaxVec3(a, types.MaxVec3(b, c)),
		},
	}
}

// Returns the unpacked texture coordinates for A, B and C.
func (t *Triangle) UVs() [3]types.Vec2 {
	return [3]types.Vec2{unpackHalf2x16(t.UV[0]), unpackHalf2x16(t.UV[1]), unpackHalf2x16(t.UV[2])}
}

// Returns the center of the triangle bounding box.
func (t *Triangle) Centroid() types.Vec3 {
	return t.Bounds.Centroid()
}

// Calculate the union of the bounding boxes of a triangle list.
func boundsOf(triangles []Triangle) AABB {
	bbox := EmptyAABB()
	for i := range triangles {
		bbox = bbox.Union(triangles[i].Bounds)
	}
	return bbox
}

func packHalf2x16(v types.Vec2) uint32 {
	return uint32(float16.Fromfloat32(v[0]).Bits()) | uint32(float16.Fromfloat32(v[1]).Bits())<<16
}

func unpackHalf2x16(packed uint32) types.Vec2 {
	return types.Vec2{
		float16.Frombits(uint16(packed)).Float32(),
		float16.Frombits(uint16(packed >> 16)).Float32(),
	}
}
