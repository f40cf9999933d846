package bvh

import "fmt"

// Build and flatten a BVH for the given triangles.
//
// Generate fails if the input exceeds the triangle ceiling, if the tree exceeds
// the node ceiling or if traversing the tree would need a deeper stack than
// allowed. It never drops geometry to satisfy a limit.
func Generate(triangles []Triangle, opts Options) (*Index, BuildStats, error) {
	if err := opts.Validate(); err != nil {
		return nil, BuildStats{}, err
	}

	if len(triangles) > opts.MaxTriangles {
		return nil, BuildStats{}, fmt.Errorf("%w: %d triangles; limit is %d", ErrTriangleCapacity, len(triangles), opts.MaxTriangles)
	}

	root, stats, err := Build(triangles, opts)
	if err != nil {
		return nil, stats, err
	}

	if stats.Nodes > opts.MaxNodes {
		return nil, stats, fmt.Errorf("%w: %d nodes; limit is %d", ErrNodeCapacity, stats.Nodes, opts.MaxNodes)
	}

	index := Flatten(root, opts)

	// Make sure that consumers can traverse the index with a bounded stack
	if err = index.Walk(func(int, FlatNode, int) bool { return true }); err != nil {
		return nil, stats, err
	}

	return index, stats, nil
}
