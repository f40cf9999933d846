package bvh

import "fmt"

const (
	DefaultMaxLeafTriangles = 1
	DefaultSplitChildren    = 2
	DefaultSplitCandidates  = 9

	// The last child boundary is placed slightly past the node extent so that
	// the triangle with the maximum centroid is always assigned.
	DefaultSplitBoundaryPad float32 = 1.001

	DefaultMaxTriangles  = 4 << 20
	DefaultMaxNodes      = 8 << 20
	DefaultMaxStackDepth = 32
)

// Options control how the BVH is built.
type Options struct {
	// Leafs with more triangles than this value are split further.
	MaxLeafTriangles int

	// Number of children generated by each split.
	SplitChildren int

	// Number of evenly spaced split fractions tested along each axis.
	SplitCandidates int

	// Position of the last child boundary as a multiple of the axis extent.
	SplitBoundaryPad float32

	// Capacity ceilings. Exceeding them fails the build instead of
	// silently dropping geometry.
	MaxTriangles int
	MaxNodes     int

	// The maximum explicit stack size allowed for traversing the index.
	MaxStackDepth int

	// Number of goroutines used for splitting independent subtrees. A value
	// of 1 selects the sequential build. The output does not depend on it.
	Workers int

	// Replace the evenly spaced split candidates with SplitChildren-1 sorted
	// random boundaries per candidate, drawn from a source seeded with Seed.
	// Random builds are reproducible for a given seed and always run
	// sequentially.
	RandomSplits bool
	Seed         int64
}

// Get the default build options.
func DefaultOptions() Options {
	return Options{
		MaxLeafTriangles: DefaultMaxLeafTriangles,
		SplitChildren:    DefaultSplitChildren,
		SplitCandidates:  DefaultSplitCandidates,
		SplitBoundaryPad: DefaultSplitBoundaryPad,
		MaxTriangles:     DefaultMaxTriangles,
		MaxNodes:         DefaultMaxNodes,
		MaxStackDepth:    DefaultMaxStackDepth,
		Workers:          1,
	}
}

// Validate options.
func (o Options) Validate() error {
	switch {
	case o.MaxLeafTriangles < 1:
		return fmt.Errorf("%w: max leaf triangles must be >= 1; got %d", ErrInvalidOptions, o.MaxLeafTriangles)
	case o.SplitChildren < 2:
		return fmt.Errorf("%w: split children must be >= 2; got %d", ErrInvalidOptions, o.SplitChildren)
	case o.SplitCandidates < 1:
		return fmt.Errorf("%w: split candidates must be >= 1; got %d", ErrInvalidOptions, o.SplitCandidates)
	case o.SplitBoundaryPad < 1:
		return fmt.Errorf("%w: split boundary pad must be >= 1; got %v", ErrInvalidOptions, o.SplitBoundaryPad)
	case o.MaxTriangles < 1:
		return fmt.Errorf("%w: max triangles must be >= 1; got %d", ErrInvalidOptions, o.MaxTriangles)
	case o.MaxNodes < 1:
		return fmt.Errorf("%w: max nodes must be >= 1; got %d", ErrInvalidOptions, o.MaxNodes)
	case o.MaxStackDepth < 1:
		return fmt.Errorf("%w: max stack depth must be >= 1; got %d", ErrInvalidOptions, o.MaxStackDepth)
	case o.Workers < 1:
		return fmt.Errorf("%w: workers must be >= 1; got %d", ErrInvalidOptions, o.Workers)
	}
	return nil
}
