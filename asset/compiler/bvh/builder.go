package bvh

import (
	"fmt"
	"math/rand"
	"sort"
	"sync/atomic"
	"time"

	"github.com/achilleasa/polaris-bvh/log"
	"golang.org/x/sync/errgroup"
)

const (
	// Subtrees with fewer triangles than this are always split on the
	// calling goroutine.
	parallelSplitThreshold = 512

	// Nodes with at least this many triangles score the three axes
	// concurrently when the builder runs with more than one worker.
	parallelScoreThreshold = 4096
)

// A node of the tree generated by the builder. A node is either a leaf that
// owns a list of triangles or an internal node that owns its children.
type BuildNode struct {
	// Tight bounds of everything contained in this node.
	Bounds AABB

	// Surface area of Bounds multiplied by the contained triangle count.
	Cost float32

	content nodeContent
}

// nodeContent is implemented by exactly two types, leafContent and
// innerContent.
type nodeContent interface {
	isNodeContent()
}

type leafContent []Triangle

type innerContent []*BuildNode

func (leafContent) isNodeContent()  {}
func (innerContent) isNodeContent() {}

// Create a leaf containing the given triangles.
func newLeaf(triangles []Triangle) *BuildNode {
	bbox := boundsOf(triangles)
	return &BuildNode{
		Bounds:  bbox,
		Cost:    nodeCost(bbox, len(triangles)),
		content: leafContent(triangles),
	}
}

// Returns true if this node stores triangles.
func (n *BuildNode) IsLeaf() bool {
	_, isLeaf := n.content.(leafContent)
	return isLeaf
}

// Get the triangles stored in a leaf. Returns nil for internal nodes.
func (n *BuildNode) Triangles() []Triangle {
	if tris, isLeaf := n.content.(leafContent); isLeaf {
		return tris
	}
	return nil
}

// Get the children of an internal node. Returns nil for leafs.
func (n *BuildNode) Children() []*BuildNode {
	if children, isInner := n.content.(innerContent); isInner {
		return children
	}
	return nil
}

// Count the nodes in the subtree rooted at n, including n.
func (n *BuildNode) NodeCount() int {
	count := 1
	for _, child := range n.Children() {
		count += child.NodeCount()
	}
	return count
}

// The split cost model: surface area * triangle count.
func nodeCost(bbox AABB, triangleCount int) float32 {
	if triangleCount == 0 {
		return 0
	}
	return bbox.SurfaceArea() * float32(triangleCount)
}

// Statistics collected while building a tree.
type BuildStats struct {
	Triangles int
	Nodes     int
	Leafs     int
	MaxDepth  int

	// Number of splits that used a candidate from the cost search and
	// number of splits that fell back to the equal-count partition.
	CandidateSplits int
	FallbackSplits  int

	BuildTime time.Duration
}

// A Builder partitions triangle lists into BVH trees. A Builder may be reused
// and used concurrently; each call to Build runs an independent session.
type Builder struct {
	opts   Options
	logger log.Logger
}

// Create a new builder.
func NewBuilder(opts Options) (*Builder, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	return &Builder{
		opts:   opts,
		logger: log.New("bvh builder"),
	}, nil
}

// The state of a single Build call.
type buildSession struct {
	opts   Options
	splits *errgroup.Group

	// Source for random split boundaries; nil unless Options.RandomSplits
	// is set.
	rng *rand.Rand

	candidateSplits atomic.Int64
	fallbackSplits  atomic.Int64
}

// Build a tree from a list of triangles. The input slice is not modified.
//
// An empty list yields a root leaf with an empty (inverted) bounding box.
func (b *Builder) Build(triangles []Triangle) (*BuildNode, BuildStats) {
	start := time.Now()

	workList := make([]Triangle, len(triangles))
	copy(workList, triangles)

	session := &buildSession{opts: b.opts}
	if b.opts.RandomSplits {
		// Draws must happen in a fixed order for a given seed so random
		// builds always run on the calling goroutine.
		session.rng = rand.New(rand.NewSource(b.opts.Seed))
	} else if b.opts.Workers > 1 {
		session.splits = new(errgroup.Group)
		session.splits.SetLimit(b.opts.Workers - 1)
	}

	root := newLeaf(workList)
	session.split(root)
	if session.splits != nil {
		// split never returns an error; Wait only joins the workers.
		_ = session.splits.Wait()
	}

	stats := BuildStats{
		Triangles:       len(triangles),
		CandidateSplits: int(session.candidateSplits.Load()),
		FallbackSplits:  int(session.fallbackSplits.Load()),
		BuildTime:       time.Since(start),
	}
	collectStats(root, 0, &stats)

	b.logger.Debugf(
		"BVH tree build time: %d ms, maxDepth: %d, nodes: %d, leafs: %d, splits: %d candidate / %d fallback",
		stats.BuildTime.Nanoseconds()/1e6,
		stats.MaxDepth, stats.Nodes, stats.Leafs,
		stats.CandidateSplits, stats.FallbackSplits,
	)
	return root, stats
}

// Build a tree using a new builder configured with opts.
func Build(triangles []Triangle, opts Options) (*BuildNode, BuildStats, error) {
	b, err := NewBuilder(opts)
	if err != nil {
		return nil, BuildStats{}, err
	}
	root, stats := b.Build(triangles)
	return root, stats, nil
}

func collectStats(node *BuildNode, depth int, stats *BuildStats) {
	stats.Nodes++
	if depth > stats.MaxDepth {
		stats.MaxDepth = depth
	}

	if node.IsLeaf() {
		stats.Leafs++
		return
	}

	for _, child := range node.Children() {
		collectStats(child, depth+1, stats)
	}
}

// Split a leaf into children and recurse into any child that still holds more
// triangles than the leaf cap.
func (s *buildSession) split(node *BuildNode) {
	workList := node.Triangles()
	if len(workList) <= s.opts.MaxLeafTriangles {
		return
	}

	children := s.partitionByCost(node, workList)
	if children == nil {
		children = s.partitionByCount(workList)
		s.fallbackSplits.Add(1)
	} else {
		s.candidateSplits.Add(1)
	}

	// The node releases its triangle list and becomes internal
	node.content = innerContent(children)

	for _, child := range children {
		if len(child.Triangles()) <= s.opts.MaxLeafTriangles {
			continue
		}

		if s.splits != nil && len(child.Triangles()) >= parallelSplitThreshold {
			child := child
			if s.splits.TryGo(func() error {
				s.split(child)
				return nil
			}) {
				continue
			}
		}
		s.split(child)
	}
}

// A scored split candidate. fractions holds the upper boundary of each child
// slab as a multiple of the node extent along axis.
type splitCandidate struct {
	axis      Axis
	fractions []float32
	cost      float32
	valid     bool
}

// Evaluate all split candidates and partition the work list using the one
// with the lowest cost. Returns nil if no candidate has a cost strictly lower
// than the node's own cost; ties are rejected.
func (s *buildSession) partitionByCost(node *BuildNode, workList []Triangle) []*BuildNode {
	var axisBest [3]splitCandidate

	scoreAxis := func(axis Axis) {
		axisBest[axis] = s.bestCandidateForAxis(node.Bounds, workList, axis)
	}

	if s.splits != nil && len(workList) >= parallelScoreThreshold {
		var g errgroup.Group
		for axis := XAxis; axis <= ZAxis; axis++ {
			axis := axis
			g.Go(func() error {
				scoreAxis(axis)
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for axis := XAxis; axis <= ZAxis; axis++ {
			scoreAxis(axis)
		}
	}

	// Select in axis order so results do not depend on scheduling
	var best *splitCandidate
	for axis := range axisBest {
		candidate := &axisBest[axis]
		if !candidate.valid {
			continue
		}
		if best == nil || candidate.cost < best.cost {
			best = candidate
		}
	}

	if best == nil || !(best.cost < node.Cost) {
		return nil
	}

	children := s.assign(node.Bounds, workList, best.axis, best.fractions)
	if len(children) < 2 {
		return nil
	}
	return children
}

// Score every split candidate along axis and return the cheapest one.
func (s *buildSession) bestCandidateForAxis(bbox AABB, workList []Triangle, axis Axis) splitCandidate {
	best := splitCandidate{axis: axis}

	if bbox.Extent()[axis] <= 0 {
		return best
	}

	fractions := make([]float32, s.opts.SplitChildren)
	bounds := make([]float32, s.opts.SplitChildren+1)
	childBoxes := make([]AABB, s.opts.SplitChildren)
	childCounts := make([]int, s.opts.SplitChildren)

	for step := 1; step <= s.opts.SplitCandidates; step++ {
		if s.rng != nil {
			s.randomFractions(fractions)
		} else {
			s.evenFractions(float32(step)/float32(s.opts.SplitCandidates+1), fractions)
		}
		childBoundaries(bbox, axis, fractions, bounds)

		for child := range childBoxes {
			childBoxes[child] = EmptyAABB()
			childCounts[child] = 0
		}

		for i := range workList {
			child := childIndex(bounds, workList[i].Centroid()[axis])
			childBoxes[child] = childBoxes[child].Union(workList[i].Bounds)
			childCounts[child]++
		}

		var cost float32
		holdsAll := false
		for child := range childBoxes {
			cost += nodeCost(childBoxes[child], childCounts[child])
			if childCounts[child] == len(workList) {
				holdsAll = true
			}
		}

		// A split that keeps every triangle in one child makes no progress
		if holdsAll {
			continue
		}

		if !best.valid || cost < best.cost {
			best.fractions = append(best.fractions[:0], fractions...)
			best.cost = cost
			best.valid = true
		}
	}

	return best
}

// Fill out with the child slab fractions for a split at fraction. The first
// child spans [0, fraction] of the node extent; the remaining children evenly
// divide [fraction, SplitBoundaryPad].
func (s *buildSession) evenFractions(fraction float32, out []float32) {
	pad := s.opts.SplitBoundaryPad
	tail := len(out) - 1

	out[0] = fraction
	for i := 1; i < len(out)-1; i++ {
		out[i] = fraction + (pad-fraction)*float32(i)/float32(tail)
	}
	out[len(out)-1] = pad
}

// Fill out with SplitChildren-1 sorted random fractions in [0, 0.99) followed
// by SplitBoundaryPad.
func (s *buildSession) randomFractions(out []float32) {
	last := len(out) - 1
	for i := 0; i < last; i++ {
		out[i] = s.rng.Float32() * 0.99
	}
	sort.Slice(out[:last], func(i, j int) bool { return out[i] < out[j] })
	out[last] = s.opts.SplitBoundaryPad
}

// Convert child slab fractions into the len(fractions)+1 absolute slab
// boundaries along axis.
func childBoundaries(bbox AABB, axis Axis, fractions []float32, bounds []float32) {
	lo := bbox.Min[axis]
	side := bbox.Max[axis] - lo

	bounds[0] = lo
	for i, fraction := range fractions {
		bounds[i+1] = lo + fraction*side
	}
}

// Find the child slab [bounds[child], bounds[child+1]) that contains value.
// A value on a shared boundary belongs to the upper slab. Values outside all
// slabs are clamped to the nearest end.
func childIndex(bounds []float32, value float32) int {
	last := len(bounds) - 2
	for child := 0; child <= last; child++ {
		if value >= bounds[child] && value < bounds[child+1] {
			return child
		}
	}
	if value < bounds[0] {
		return 0
	}
	return last
}

// Partition the work list according to a split candidate and create a leaf for
// every child that received triangles. Empty children are dropped.
func (s *buildSession) assign(bbox AABB, workList []Triangle, axis Axis, fractions []float32) []*BuildNode {
	bounds := make([]float32, len(fractions)+1)
	childBoundaries(bbox, axis, fractions, bounds)

	buckets := make([][]Triangle, len(fractions))
	for i := range workList {
		child := childIndex(bounds, workList[i].Centroid()[axis])
		buckets[child] = append(buckets[child], workList[i])
	}
	return leafsFromBuckets(buckets)
}

// Partition the work list into SplitChildren contiguous runs of
// ceil(count/SplitChildren) triangles, preserving the input order.
func (s *buildSession) partitionByCount(workList []Triangle) []*BuildNode {
	k := s.opts.SplitChildren
	chunk := (len(workList) + k - 1) / k

	buckets := make([][]Triangle, k)
	for child := range buckets {
		start := child * chunk
		if start >= len(workList) {
			break
		}
		end := start + chunk
		if end > len(workList) {
			end = len(workList)
		}
		buckets[child] = workList[start:end:end]
	}
	return leafsFromBuckets(buckets)
}

func leafsFromBuckets(buckets [][]Triangle) []*BuildNode {
	children := make([]*BuildNode, 0, len(buckets))
	for _, bucket := range buckets {
		if len(bucket) == 0 {
			continue
		}
		children = append(children, newLeaf(bucket))
	}
	return children
}

func (s BuildStats) String() string {
	return fmt.Sprintf(
		"triangles: %d, nodes: %d, leafs: %d, max depth: %d, candidate splits: %d, fallback splits: %d",
		s.Triangles, s.Nodes, s.Leafs, s.MaxDepth, s.CandidateSplits, s.FallbackSplits,
	)
}
