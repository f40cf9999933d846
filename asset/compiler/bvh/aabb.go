package bvh

import (
	"math"

	"github.com/achilleasa/polaris-bvh/types"
)

type Axis uint8

const (
	XAxis Axis = iota
	YAxis
	ZAxis
)

func (a Axis) String() string {
	switch a {
	case XAxis:
		return "X"
	case YAxis:
		return "Y"
	case ZAxis:
		return "Z"
	}
	return "?"
}

// An axis-aligned bounding box defined by its min and max corners.
type AABB struct {
	Min types.Vec3
	Max types.Vec3
}

// Create an empty (inverted) bounding box. Extending an empty box by any point
// or box yields that point or box.
func EmptyAABB() AABB {
	return AABB{
		Min: types.Splat3(math.MaxFloat32),
		Max: types.Splat3(-math.MaxFloat32),
	}
}

// Returns true if the box has not been extended by any point.
func (b AABB) IsEmpty() bool {
	return b.Min[0] > b.Max[0] || b.Min[1] > b.Max[1] || b.Min[2] > b.Max[2]
}

// Grow the box so it includes point p.
func (b AABB) ExtendPoint(p types.Vec3) AABB {
	return AABB{
		Min: types.MinVec3(b.Min, p),
		Max: types.MaxVec3(b.Max, p),
	}
}

// Grow the box so it includes box o.
func (b AABB) Union(o AABB) AABB {
	return AABB{
		Min: types.MinVec3(b.Min, o.Min),
		Max: types.MaxVec3(b.Max, o.Max),
	}
}

// Returns the box side lengths.
func (b AABB) Extent() types.Vec3 {
	return b.Max.Sub(b.Min)
}

// Returns the box center. This is the partitioning key used when splitting.
func (b AABB) Centroid() types.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// Returns twice the sum of the three face-pair areas. Empty boxes have no area.
func (b AABB) SurfaceArea() float32 {
	if b.IsEmpty() {
		return 0
	}
	side := b.Extent()
	return 2 * (side[0]*side[1] + side[1]*side[2] + side[0]*side[2])
}

// Returns true if o lies entirely inside b. Empty boxes are contained in
// every box.
func (b AABB) Contains(o AABB) bool {
	if o.IsEmpty() {
		return true
	}
	for axis := 0; axis < 3; axis++ {
		if o.Min[axis] < b.Min[axis] || o.Max[axis] > b.Max[axis] {
			return false
		}
	}
	return true
}
