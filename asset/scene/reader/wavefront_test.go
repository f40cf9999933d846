package reader

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/achilleasa/polaris-bvh/asset"
	"github.com/achilleasa/polaris-bvh/asset/compiler/bvh"
	"github.com/achilleasa/polaris-bvh/types"
)

func TestVec2Parser(t *testing.T) {
	expError := `unsupported syntax for "vt"; expected 2 arguments; got 0`
	_, err := parseVec2([]string{"vt"})
	if err == nil || err.Error() != expError {
		t.Fatalf("expected to get %s; got %v", expError, err)
	}

	_, err = parseVec2([]string{"vt", "not-a-float", "2"})
	if err == nil {
		t.Fatal("expected to get a parse error")
	}

	v, err := parseVec2([]string{"vt", "3.14", "0"})
	if err != nil {
		t.Fatal(err)
	}

	expVal := types.Vec2{3.14, 0}
	if !reflect.DeepEqual(v, expVal) {
		t.Fatalf("expected parsed value to be %v; got %v", expVal, v)
	}
}

func TestVec3Parser(t *testing.T) {
	expError := `unsupported syntax for "v"; expected 3 arguments; got 0`
	_, err := parseVec3([]string{"v"})
	if err == nil || err.Error() != expError {
		t.Fatalf("expected to get %s; got %v", expError, err)
	}

	_, err = parseVec3([]string{"v", "not-a-float", "2", "3"})
	if err == nil {
		t.Fatal("expected to get a parse error")
	}

	v, err := parseVec3([]string{"v", "3.14", "0", "0.4"})
	if err != nil {
		t.Fatal(err)
	}

	expVal := types.Vec3{3.14, 0, 0.4}
	if !reflect.DeepEqual(v, expVal) {
		t.Fatalf("expected parsed value to be %v; got %v", expVal, v)
	}
}

func TestSelectFaceCoordinate(t *testing.T) {
	expError := "index out of bounds"
	type spec struct {
		in        string
		listLen   int
		relOffset int
		out       int
		expError  string
	}
	specs := []spec{
		{"2", 1, 0, -1, expError},
		{"-2", 1, 0, -1, expError},
		{"1", 10, 0, 0, ""}, // indices are 1-based
		{"-1", 10, 0, 9, ""},
		{"1", 10, 4, 4, ""},
		{"-1", 10, 4, 9, ""},
		{"7", 10, 4, -1, expError},
	}

	for idx, s := range specs {
		v, err := selectFaceCoordIndex(s.in, s.listLen, s.relOffset)
		if s.expError != "" && (err == nil || err.Error() != s.expError) {
			t.Fatalf("[spec %d] expected error %s; got %v", idx, s.expError, err)
		} else if v != s.out {
			t.Fatalf("[spec %d] expected index to be %d; got %d", idx, s.out, v)
		}
	}
}

func TestDefaultMeshInstanceGeneration(t *testing.T) {
	payload := `
o testObj
v 0 0 0
v 1 0 0
v 0 1 0
vn 1 0 0
vt 0 0
vn 0 1 0
vt 0 1
vn 0 1 0
vt 1 0
vn 0 0 1
# Comment
f 1/1/1 2/2/2 -1/-1/-1
`

	sc, err := newWavefrontReader().Read(mockResource(payload))
	if err != nil {
		t.Fatal(err)
	}

	expInstances := 1
	if sc.Root.ChildCount() != expInstances {
		t.Fatalf("expected %d mesh instances to be generated; got %d", expInstances, sc.Root.ChildCount())
	}

	inst0 := sc.Root.Child(0)
	if !inst0.WorldTransform().ApproxEqual(types.Ident4()) {
		t.Fatalf("expected mesh instance transform to be equal to a 4x4 identity matrix; got %v", inst0.WorldTransform())
	}

	mesh := inst0.Mesh()
	if mesh == nil {
		t.Fatal("expected mesh instance to reference a mesh")
	}
	if len(mesh.Positions()) != 3 || len(mesh.Indices()) != 3 {
		t.Fatalf("expected mesh to contain 3 vertices and 3 indices; got %d and %d", len(mesh.Positions()), len(mesh.Indices()))
	}

	expUV := types.Vec2{1, 0}
	if uv := mesh.UVs()[2]; uv != expUV {
		t.Fatalf("expected uv of vertex 2 to be %v; got %v", expUV, uv)
	}

	matID, first, count := mesh.Group(0)
	if matID != bvh.NoMaterial || first != 0 || count != 3 {
		t.Fatalf("expected a single group without material covering 3 indices; got material %d, range [%d, %d)", matID, first, first+count)
	}
}

func TestMeshInstancing(t *testing.T) {
	payload := `
o testObj
v 0 0 0
v 1 0 0
v 0 1 0
f 1 2 3

instance testObj 10 0 0 0 0 0 1 1 1
instance testObj 0 0 0 0 0 0 2 2 2
`

	sc, err := newWavefrontReader().Read(mockResource(payload))
	if err != nil {
		t.Fatal(err)
	}

	if len(sc.Meshes) != 1 {
		t.Fatalf("expected 1 mesh; got %d", len(sc.Meshes))
	}
	if sc.Root.ChildCount() != 2 {
		t.Fatalf("expected 2 mesh instances; got %d", sc.Root.ChildCount())
	}

	type spec struct {
		in  types.Vec3
		out types.Vec3
	}
	specs := [][]spec{
		{{types.Vec3{1, 0, 0}, types.Vec3{11, 0, 0}}},
		{{types.Vec3{1, 0, 0}, types.Vec3{2, 0, 0}}},
	}

	for index, instSpecs := range specs {
		world := sc.Root.Child(index).WorldTransform()
		for _, s := range instSpecs {
			out := world.TransformPoint(s.in)
			if out.Sub(s.out).Len() > 1e-5 {
				t.Fatalf("[spec %d] expected point %v to transform to %v; got %v", index, s.in, s.out, out)
			}
		}
	}

	if sc.TriangleCount() != 2 {
		t.Fatalf("expected scene to contain 2 triangles; got %d", sc.TriangleCount())
	}
}

func TestMeshInstanceErrors(t *testing.T) {
	type spec struct {
		payload  string
		expError string
	}
	specs := []spec{
		{"instance missing 0 0 0 0 0 0 1 1 1", `unknown mesh with name "missing"`},
		{"o a\nv 0 0 0\nf 1 1 1\ninstance a 0 0 0", `expected 10 arguments`},
		{"f 1 2", `expected at least 3 arguments`},
		{"v 0 0 0\nf 1 2 3", `index out of bounds`},
		{"v 0 0 0\nvt 0 0\nf 1/1 1 1", `expected each face argument to contain 2 indices`},
		{"usemtl foo", `undefined material with name "foo"`},
		{"o", `expected 1 argument for object name`},
	}

	for index, s := range specs {
		_, err := newWavefrontReader().Read(mockResource(s.payload))
		if err == nil || !strings.Contains(err.Error(), s.expError) {
			t.Fatalf("[spec %d] expected error containing %q; got %v", index, s.expError, err)
		}
	}
}

func TestParseQuadAndPolygonFaces(t *testing.T) {
	payload := `
v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0
v -1 1 0
f 1 2 3 4
f 1 2 3 4 5
`

	sc, err := newWavefrontReader().Read(mockResource(payload))
	if err != nil {
		t.Fatal(err)
	}

	if len(sc.Meshes) != 1 {
		t.Fatalf("expected a default mesh to be created; got %d meshes", len(sc.Meshes))
	}

	mesh := sc.Meshes[0]
	if mesh.Name != "embedded" {
		t.Fatalf("expected default mesh to be named after the resource; got %q", mesh.Name)
	}
	if mesh.TriangleCount() != 5 {
		t.Fatalf("expected 5 triangles; got %d", mesh.TriangleCount())
	}

	// Vertices are shared between faces
	if len(mesh.Positions) != 5 {
		t.Fatalf("expected 5 unique vertices; got %d", len(mesh.Positions))
	}

	expIndices := []uint32{0, 1, 2, 0, 2, 3, 0, 1, 2, 0, 2, 3, 0, 3, 4}
	if !reflect.DeepEqual(mesh.Indices, expIndices) {
		t.Fatalf("expected indices %v; got %v", expIndices, mesh.Indices)
	}

	if err := mesh.Validate(); err != nil {
		t.Fatal(err)
	}
}

func TestEmptyMeshesAreDropped(t *testing.T) {
	payload := `
o empty
o full
v 0 0 0
v 1 0 0
v 0 1 0
f 1 2 3
o trailing
`

	sc, err := newWavefrontReader().Read(mockResource(payload))
	if err != nil {
		t.Fatal(err)
	}

	if len(sc.Meshes) != 1 || sc.Meshes[0].Name != "full" {
		t.Fatalf("expected only mesh \"full\" to be kept; got %d meshes", len(sc.Meshes))
	}
}

func TestReusedEmptyGroupKeepsEarlierMesh(t *testing.T) {
	payload := `
g body
v 0 0 0
v 1 0 0
v 0 1 0
f 1 2 3
g body
g other
v 0 0 1
f 1 2 4
instance body 5 0 0 0 0 0 1 1 1
`

	sc, err := newWavefrontReader().Read(mockResource(payload))
	if err != nil {
		t.Fatal(err)
	}

	if len(sc.Meshes) != 2 {
		t.Fatalf("expected 2 meshes; got %d", len(sc.Meshes))
	}
	if sc.Root.ChildCount() != 1 {
		t.Fatalf("expected 1 mesh instance; got %d", sc.Root.ChildCount())
	}

	mesh := sc.Root.Child(0).Mesh()
	if mesh == nil || len(mesh.Positions()) != 3 || mesh.Positions()[1] != (types.Vec3{1, 0, 0}) {
		t.Fatal("expected the instance to reference the first \"body\" mesh")
	}
}

func TestIncludesAndMaterialGroups(t *testing.T) {
	dir := t.TempDir()

	files := map[string]string{
		"scene.obj": `
mtllib materials.mtl
call model.obj
instance tri 0 0 5 0 0 0 1 1 1
`,
		"model.obj": `
o tri
v 0 0 0
v 1 0 0
v 0 1 0
v 1 1 0
usemtl red
f 1 2 3
f 2 4 3
usemtl blue
f 1 2 4
`,
		"materials.mtl": `
newmtl red
Kd 1 0 0
newmtl blue
Kd 0 0 1
`,
	}
	for name, payload := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(payload), 0644); err != nil {
			t.Fatal(err)
		}
	}

	sc, err := ReadScene(filepath.Join(dir, "scene.obj"))
	if err != nil {
		t.Fatal(err)
	}

	expMaterials := []string{"red", "blue"}
	if !reflect.DeepEqual(sc.Materials, expMaterials) {
		t.Fatalf("expected materials %v; got %v", expMaterials, sc.Materials)
	}

	if len(sc.Meshes) != 1 {
		t.Fatalf("expected 1 mesh; got %d", len(sc.Meshes))
	}

	expGroups := []struct {
		matID int32
		first uint32
		count uint32
	}{
		{0, 0, 6},
		{1, 6, 3},
	}
	mesh := sc.Meshes[0]
	if len(mesh.Groups) != len(expGroups) {
		t.Fatalf("expected %d groups; got %d", len(expGroups), len(mesh.Groups))
	}
	for index, exp := range expGroups {
		g := mesh.Groups[index]
		if g.MaterialID != exp.matID || g.FirstIndex != exp.first || g.IndexCount != exp.count {
			t.Fatalf("[spec %d] expected group {%d %d %d}; got %+v", index, exp.matID, exp.first, exp.count, g)
		}
	}

	// The included mesh is instanced with a translation
	triangles := bvh.CollectTriangles(sc.Root)
	if len(triangles) != 3 {
		t.Fatalf("expected 3 triangles; got %d", len(triangles))
	}
	for index, tri := range triangles {
		if tri.A[2] != 5 || tri.B[2] != 5 || tri.C[2] != 5 {
			t.Fatalf("[tri %d] expected translated z coordinate 5; got %v %v %v", index, tri.A, tri.B, tri.C)
		}
	}
	if triangles[2].Material != 1 {
		t.Fatalf("expected last triangle to use material 1; got %d", triangles[2].Material)
	}
}

func TestIncludeErrorsReportReferencingFile(t *testing.T) {
	dir := t.TempDir()
	sceneFile := filepath.Join(dir, "scene.obj")
	if err := os.WriteFile(sceneFile, []byte("call missing.obj\n"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := ReadScene(sceneFile)
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.Contains(err.Error(), "referenced from") || !strings.Contains(err.Error(), "scene.obj:1") {
		t.Fatalf("expected error to include the referencing location; got %v", err)
	}
}

func TestDuplicateMaterial(t *testing.T) {
	r := newWavefrontReader()
	err := r.parseMaterials(mockResource("newmtl a\nnewmtl a\n"))
	if err == nil || !strings.Contains(err.Error(), `material "a" already defined`) {
		t.Fatalf("expected a duplicate material error; got %v", err)
	}
}

func TestUnsupportedSceneFormat(t *testing.T) {
	_, err := ReadScene("scene.zip")
	if err == nil || err.Error() != "readScene: unsupported file format" {
		t.Fatalf("expected unsupported format error; got %v", err)
	}
}

func mockResource(payload string) *asset.Resource {
	return asset.NewResourceFromStream("embedded", strings.NewReader(payload))
}
