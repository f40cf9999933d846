package bvh

import (
	"fmt"
	"time"

	"github.com/achilleasa/polaris-bvh/log"
)

// A node of the flattened BVH.
//
// A node with ChildCount > 0 is an internal node whose children occupy
// the contiguous range [ChildStart, ChildStart+ChildCount) of the index node
// list. A node with TriangleCount > 0 is a leaf whose triangles occupy the
// range [TriangleStart, TriangleStart+TriangleCount) of the index triangle list.
type FlatNode struct {
	Bounds AABB

	ChildStart uint32
	ChildCount uint32

	TriangleStart uint32
	TriangleCount uint32
}

// Returns true if the node has no children.
func (n FlatNode) IsLeaf() bool {
	return n.ChildCount == 0
}

// An Index is the flattened, immutable representation of a BVH tree. Node 0 is
// always the root. An Index is never modified after Flatten returns, so it can
// be shared between any number of concurrent readers.
type Index struct {
	nodes     []FlatNode
	triangles []Triangle

	leafCount     int
	maxDepth      int
	maxStackDepth int
}

// Flatten a tree into an Index.
//
// Nodes are laid out depth-first: when a node is visited, slots for all of its
// children are reserved as one contiguous run at the end of the node list and
// then each child is visited in creation order. Hence the children of a node
// are contiguous, and all descendants of a node occupy one contiguous block
// that starts at its ChildStart. Leaf triangles are appended in the same
// depth-first order.
func Flatten(root *BuildNode, opts Options) *Index {
	start := time.Now()

	if opts.MaxStackDepth < 1 {
		opts.MaxStackDepth = DefaultMaxStackDepth
	}

	f := &flattener{
		index: &Index{
			nodes:         make([]FlatNode, 1, root.NodeCount()),
			triangles:     make([]Triangle, 0),
			maxStackDepth: opts.MaxStackDepth,
		},
	}
	f.emit(0, root, 0)

	log.New("bvh flattener").Debugf(
		"flattened %d nodes and %d triangles in %d ms",
		len(f.index.nodes), len(f.index.triangles), time.Since(start).Nanoseconds()/1e6,
	)
	return f.index
}

type flattener struct {
	index *Index
}

// Fill the reserved node slot with node and recurse into its children.
func (f *flattener) emit(slot int, node *BuildNode, depth int) {
	if depth > f.index.maxDepth {
		f.index.maxDepth = depth
	}

	flat := FlatNode{Bounds: node.Bounds}

	if node.IsLeaf() {
		tris := node.Triangles()
		flat.TriangleStart = uint32(len(f.index.triangles))
		flat.TriangleCount = uint32(len(tris))
		f.index.triangles = append(f.index.triangles, tris...)
		f.index.nodes[slot] = flat
		f.index.leafCount++
		return
	}

	children := node.Children()
	flat.ChildStart = uint32(len(f.index.nodes))
	flat.ChildCount = uint32(len(children))
	f.index.nodes[slot] = flat
	f.index.nodes = append(f.index.nodes, make([]FlatNode, len(children))...)

	for index, child := range children {
		f.emit(int(flat.ChildStart)+index, child, depth+1)
	}
}

// Get the number of nodes.
func (idx *Index) NodeCount() int {
	return len(idx.nodes)
}

// Get the number of triangles.
func (idx *Index) TriangleCount() int {
	return len(idx.triangles)
}

// Get the number of leaf nodes.
func (idx *Index) LeafCount() int {
	return idx.leafCount
}

// Get the depth of the deepest node; the root has depth 0.
func (idx *Index) MaxDepth() int {
	return idx.maxDepth
}

// Get the bounds of the whole index.
func (idx *Index) Bounds() AABB {
	return idx.nodes[0].Bounds
}

// Get the node at the given index.
func (idx *Index) Node(index int) FlatNode {
	return idx.nodes[index]
}

// Get a copy of the children of the node at the given index.
func (idx *Index) Children(index int) []FlatNode {
	node := idx.nodes[index]
	out := make([]FlatNode, node.ChildCount)
	copy(out, idx.nodes[node.ChildStart:node.ChildStart+node.ChildCount])
	return out
}

// Get a copy of the triangles stored in the node at the given index.
func (idx *Index) LeafTriangles(index int) []Triangle {
	node := idx.nodes[index]
	out := make([]Triangle, node.TriangleCount)
	copy(out, idx.triangles[node.TriangleStart:node.TriangleStart+node.TriangleCount])
	return out
}

// Get the triangle at the given index.
func (idx *Index) Triangle(index int) Triangle {
	return idx.triangles[index]
}

// A Visitor is invoked by Walk for every visited node. Returning false skips
// the node's children.
type Visitor func(nodeIndex int, node FlatNode, depth int) bool

type walkEntry struct {
	nodeIndex uint32
	depth     int
}

// Visit the index nodes in pre-order using an explicit stack whose size is
// bounded by the MaxStackDepth option used to build the index. If the bound
// would be exceeded Walk stops and returns ErrStackDepth; nodes are never
// silently skipped.
func (idx *Index) Walk(visit Visitor) error {
	stack := make([]walkEntry, 1, idx.maxStackDepth)
	stack[0] = walkEntry{nodeIndex: 0}

	for len(stack) > 0 {
		entry := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		node := idx.nodes[entry.nodeIndex]
		if !visit(int(entry.nodeIndex), node, entry.depth) || node.ChildCount == 0 {
			continue
		}

		if len(stack)+int(node.ChildCount) > idx.maxStackDepth {
			return fmt.Errorf(
				"%w: node %d at depth %d needs %d stack entries; limit is %d",
				ErrStackDepth, entry.nodeIndex, entry.depth, len(stack)+int(node.ChildCount), idx.maxStackDepth,
			)
		}

		// Push in reverse so the first child is visited first
		for child := int(node.ChildCount) - 1; child >= 0; child-- {
			stack = append(stack, walkEntry{
				nodeIndex: node.ChildStart + uint32(child),
				depth:     entry.depth + 1,
			})
		}
	}

	return nil
}
