package scene

import (
	"fmt"

	"github.com/achilleasa/polaris-bvh/asset/compiler/bvh"
	"github.com/achilleasa/polaris-bvh/types"
)

// A Group selects a contiguous index range of a mesh that uses one material.
type Group struct {
	// Index into the scene material list or bvh.NoMaterial.
	MaterialID int32

	FirstIndex uint32
	IndexCount uint32
}

// An indexed triangle mesh.
type Mesh struct {
	Name string

	Positions []types.Vec3
	UVs       []types.Vec2
	Indices   []uint32
	Groups    []Group
}

// Create a new empty mesh.
func NewMesh(name string) *Mesh {
	return &Mesh{
		Name:      name,
		Positions: make([]types.Vec3, 0),
		UVs:       make([]types.Vec2, 0),
		Indices:   make([]uint32, 0),
		Groups:    make([]Group, 0),
	}
}

// Get the number of triangles in all mesh groups.
func (m *Mesh) TriangleCount() int {
	count := 0
	for _, g := range m.Groups {
		count += int(g.IndexCount / 3)
	}
	return count
}

// Check that all group ranges and indices are within bounds.
func (m *Mesh) Validate() error {
	for groupIndex, g := range m.Groups {
		if uint64(g.FirstIndex)+uint64(g.IndexCount) > uint64(len(m.Indices)) {
			return fmt.Errorf("mesh %q: group %d index range [%d, %d) exceeds index count %d", m.Name, groupIndex, g.FirstIndex, g.FirstIndex+g.IndexCount, len(m.Indices))
		}
	}
	for offset, vIndex := range m.Indices {
		if int(vIndex) >= len(m.Positions) {
			return fmt.Errorf("mesh %q: index %d at offset %d exceeds vertex count %d", m.Name, vIndex, offset, len(m.Positions))
		}
	}
	return nil
}

// A node in the scene graph. Each node owns its children and optionally
// references a mesh; several nodes may instance the same mesh.
type Node struct {
	Name string

	// Transformation relative to the parent node.
	Local types.Mat4

	mesh     *Mesh
	parent   *Node
	children []*Node
}

// Create a new node with an identity transformation.
func NewNode(name string, mesh *Mesh) *Node {
	return &Node{
		Name:     name,
		Local:    types.Ident4(),
		mesh:     mesh,
		children: make([]*Node, 0),
	}
}

// Attach child to this node. The child is detached from its previous parent.
func (n *Node) AddChild(child *Node) {
	if child.parent != nil {
		child.parent.removeChild(child)
	}
	child.parent = n
	n.children = append(n.children, child)
}

func (n *Node) removeChild(child *Node) {
	for index, c := range n.children {
		if c == child {
			n.children = append(n.children[:index], n.children[index+1:]...)
			return
		}
	}
}

// Get the parent node or nil for the root.
func (n *Node) Parent() *Node {
	return n.parent
}

// Get the transformation from node space to world space.
func (n *Node) WorldTransform() types.Mat4 {
	if n.parent == nil {
		return n.Local
	}
	return n.parent.WorldTransform().Mul4(n.Local)
}

// Get the mesh attached to this node. A node without a mesh returns an untyped
// nil so callers can compare the result against nil.
func (n *Node) Mesh() bvh.Mesh {
	if n.mesh == nil {
		return nil
	}
	return meshView{n.mesh}
}

func (n *Node) ChildCount() int {
	return len(n.children)
}

func (n *Node) Child(index int) bvh.SceneNode {
	return n.children[index]
}

// Invoke fn for each node in the subtree rooted at n in depth-first order.
func (n *Node) Visit(fn func(*Node)) {
	fn(n)
	for _, child := range n.children {
		child.Visit(fn)
	}
}

// meshView exposes a Mesh through the read-only bvh.Mesh interface.
type meshView struct {
	mesh *Mesh
}

func (v meshView) Positions() []types.Vec3 { return v.mesh.Positions }
func (v meshView) UVs() []types.Vec2       { return v.mesh.UVs }
func (v meshView) Indices() []uint32       { return v.mesh.Indices }
func (v meshView) GroupCount() int         { return len(v.mesh.Groups) }

func (v meshView) Group(index int) (int32, uint32, uint32) {
	g := v.mesh.Groups[index]
	return g.MaterialID, g.FirstIndex, g.IndexCount
}

// A Scene bundles the scene graph with the material names referenced by mesh
// groups.
type Scene struct {
	Root      *Node
	Meshes    []*Mesh
	Materials []string
}

// Create a new scene with an empty root node.
func NewScene() *Scene {
	return &Scene{
		Root:      NewNode("root", nil),
		Meshes:    make([]*Mesh, 0),
		Materials: make([]string, 0),
	}
}

// Get the name of a material id.
func (sc *Scene) MaterialName(id int32) string {
	if id < 0 || int(id) >= len(sc.Materials) {
		return ""
	}
	return sc.Materials[id]
}

// Count the triangles of all mesh instances in the scene graph.
func (sc *Scene) TriangleCount() int {
	count := 0
	sc.Root.Visit(func(n *Node) {
		if n.mesh != nil {
			count += n.mesh.TriangleCount()
		}
	})
	return count
}
