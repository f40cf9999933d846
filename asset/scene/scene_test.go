package scene

import (
	"strings"
	"testing"

	"github.com/achilleasa/polaris-bvh/asset/compiler/bvh"
	"github.com/achilleasa/polaris-bvh/types"
)

func TestWorldTransformComposition(t *testing.T) {
	root := NewNode("root", nil)
	root.Local = types.Translate4(types.Vec3{1, 0, 0})

	child := NewNode("child", nil)
	child.Local = types.Scale4(types.Vec3{3, 3, 3})
	root.AddChild(child)

	leaf := NewNode("leaf", nil)
	leaf.Local = types.Translate4(types.Vec3{0, 1, 0})
	child.AddChild(leaf)

	type spec struct {
		node *Node
		in   types.Vec3
		out  types.Vec3
	}
	specs := []spec{
		{root, types.Vec3{0, 0, 0}, types.Vec3{1, 0, 0}},
		{child, types.Vec3{1, 1, 1}, types.Vec3{4, 3, 3}},
		{leaf, types.Vec3{0, 0, 0}, types.Vec3{1, 3, 0}},
	}

	for index, s := range specs {
		out := s.node.WorldTransform().TransformPoint(s.in)
		if out.Sub(s.out).Len() > 1e-5 {
			t.Fatalf("[spec %d] expected %v; got %v", index, s.out, out)
		}
	}
}

func TestAddChildReparents(t *testing.T) {
	a := NewNode("a", nil)
	b := NewNode("b", nil)
	child := NewNode("child", nil)

	a.AddChild(child)
	b.AddChild(child)

	if a.ChildCount() != 0 {
		t.Fatalf("expected old parent to have no children; got %d", a.ChildCount())
	}
	if b.ChildCount() != 1 || child.Parent() != b {
		t.Fatal("expected child to be attached to the new parent")
	}
}

func TestNodeMesh(t *testing.T) {
	empty := NewNode("empty", nil)
	if empty.Mesh() != nil {
		t.Fatal("expected a node without a mesh to return a nil bvh.Mesh")
	}

	mesh := NewMesh("m")
	mesh.Positions = []types.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}
	mesh.Indices = []uint32{0, 1, 2}
	mesh.Groups = []Group{{MaterialID: 2, FirstIndex: 0, IndexCount: 3}}

	var view bvh.Mesh = NewNode("n", mesh).Mesh()
	if view == nil {
		t.Fatal("expected a mesh view")
	}
	if view.GroupCount() != 1 || len(view.Positions()) != 3 || len(view.Indices()) != 3 {
		t.Fatalf("expected view to expose mesh data")
	}
	if matID, first, count := view.Group(0); matID != 2 || first != 0 || count != 3 {
		t.Fatalf("expected group (2, 0, 3); got (%d, %d, %d)", matID, first, count)
	}
}

func TestMeshValidate(t *testing.T) {
	type spec struct {
		indices  []uint32
		groups   []Group
		expError string
	}
	specs := []spec{
		{[]uint32{0, 1, 2}, []Group{{0, 0, 3}}, ""},
		{[]uint32{0, 1, 2}, []Group{{0, 0, 6}}, "exceeds index count"},
		{[]uint32{0, 1, 5}, []Group{{0, 0, 3}}, "exceeds vertex count"},
	}

	for index, s := range specs {
		mesh := NewMesh("m")
		mesh.Positions = []types.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}
		mesh.Indices = s.indices
		mesh.Groups = s.groups

		err := mesh.Validate()
		if s.expError == "" {
			if err != nil {
				t.Fatalf("[spec %d] unexpected error: %v", index, err)
			}
			continue
		}
		if err == nil || !strings.Contains(err.Error(), s.expError) {
			t.Fatalf("[spec %d] expected error containing %q; got %v", index, s.expError, err)
		}
	}
}

func TestSceneTriangleCount(t *testing.T) {
	sc := NewScene()
	sc.Materials = []string{"a", "b"}

	mesh := NewMesh("m")
	mesh.Positions = []types.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}
	mesh.Indices = []uint32{0, 1, 2, 2, 1, 0}
	mesh.Groups = []Group{{0, 0, 3}, {1, 3, 3}}
	sc.Meshes = append(sc.Meshes, mesh)

	sc.Root.AddChild(NewNode("i0", mesh))
	sc.Root.AddChild(NewNode("i1", mesh))

	if got := sc.TriangleCount(); got != 4 {
		t.Fatalf("expected 4 triangles; got %d", got)
	}

	if sc.MaterialName(1) != "b" || sc.MaterialName(bvh.NoMaterial) != "" || sc.MaterialName(5) != "" {
		t.Fatal("unexpected material name lookup result")
	}
}
