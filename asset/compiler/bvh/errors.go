package bvh

import "errors"

var (
	// Returned when the input contains more triangles than Options.MaxTriangles.
	ErrTriangleCapacity = errors.New("bvh: triangle capacity exceeded")

	// Returned when the built tree contains more nodes than Options.MaxNodes.
	ErrNodeCapacity = errors.New("bvh: node capacity exceeded")

	// Returned when traversing the tree needs a deeper stack than
	// Options.MaxStackDepth allows; the tree is too unbalanced.
	ErrStackDepth = errors.New("bvh: traversal stack depth exceeded")

	ErrInvalidOptions = errors.New("bvh: invalid options")
)
