package reader

import (
	"bufio"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/achilleasa/polaris-bvh/asset"
	"github.com/achilleasa/polaris-bvh/asset/compiler/bvh"
	"github.com/achilleasa/polaris-bvh/asset/scene"
	"github.com/achilleasa/polaris-bvh/log"
	"github.com/achilleasa/polaris-bvh/types"
)

// A mesh vertex is identified by its position and uv coordinate indices.
type vertexKey struct {
	position int
	uv       int
}

// Accumulates the vertices, indices and groups of a mesh while parsing.
type meshBuilder struct {
	mesh        *scene.Mesh
	vertexCache map[vertexKey]uint32

	// An earlier mesh with the same name; it becomes visible to instance
	// directives again if this mesh is dropped.
	shadowed *meshBuilder
}

type wavefrontSceneReader struct {
	logger log.Logger

	// The parsed scene.
	scene *scene.Scene

	// A map of material names to material ids.
	matNameToIndex map[string]int32

	// Currently selected material id.
	curMaterial int32

	// Meshes in declaration order and a name lookup for instance directives.
	meshes      []*meshBuilder
	meshByName  map[string]*meshBuilder
	curMesh     *meshBuilder
	instances   []*scene.Node
	defaultName string

	// List of vertices and uv coords shared by all meshes.
	vertexList []types.Vec3
	uvList     []types.Vec2

	// An error stack that provides additional error information when
	// scene files include other files (models, mat libs e.t.c)
	errStack []string
}

// Create a new wavefront scene reader.
func newWavefrontReader() *wavefrontSceneReader {
	return &wavefrontSceneReader{
		logger:         log.New("wavefront scene reader"),
		scene:          scene.NewScene(),
		matNameToIndex: make(map[string]int32),
		curMaterial:    bvh.NoMaterial,
		meshes:         make([]*meshBuilder, 0),
		meshByName:     make(map[string]*meshBuilder),
		instances:      make([]*scene.Node, 0),
		vertexList:     make([]types.Vec3, 0),
		uvList:         make([]types.Vec2, 0),
		errStack:       make([]string, 0),
	}
}

// Read scene definition.
func (r *wavefrontSceneReader) Read(sceneRes *asset.Resource) (*scene.Scene, error) {
	r.logger.Noticef(`parsing scene from "%s"`, sceneRes.Path())
	start := time.Now()

	r.defaultName = sceneRes.Name()
	err := r.parse(sceneRes)
	if err != nil {
		return nil, err
	}
	r.verifyLastParsedMesh()

	for _, mb := range r.meshes {
		r.scene.Meshes = append(r.scene.Meshes, mb.mesh)
	}

	// If no mesh instances are defined, create instances for each defined mesh
	if len(r.instances) == 0 {
		r.createDefaultMeshInstances()
	}
	for _, inst := range r.instances {
		r.scene.Root.AddChild(inst)
	}

	r.logger.Noticef(
		"parsed scene in %d ms (%d meshes, %d instances, %d materials)",
		time.Since(start).Nanoseconds()/1e6, len(r.scene.Meshes), len(r.instances), len(r.scene.Materials),
	)
	return r.scene, nil
}

// Generate a mesh instance with an identity transformation for each defined mesh.
func (r *wavefrontSceneReader) createDefaultMeshInstances() {
	for _, mb := range r.meshes {
		r.instances = append(r.instances, scene.NewNode(mb.mesh.Name, mb.mesh))
	}
}

// Generate an error message that also includes any data in the error stack.
func (r *wavefrontSceneReader) emitError(file string, line int, msgFormat string, args ...interface{}) error {
	msg := fmt.Sprintf(msgFormat, args...)

	var errMsg string
	if file != "" {
		errMsg = fmt.Sprintf("[%s: %d] error: %s\n%s", file, line, msg, strings.Join(r.errStack, "\n"))
	} else {
		errMsg = fmt.Sprintf("error: %s\n%s", msg, strings.Join(r.errStack, "\n"))
	}

	return fmt.Errorf("%s", strings.Trim(errMsg, "\n"))
}

// Push a frame to the error stack.
func (r *wavefrontSceneReader) pushFrame(msg string) {
	r.errStack = append([]string{msg}, r.errStack...)
}

// Pop a frame from the error stack.
func (r *wavefrontSceneReader) popFrame() {
	r.errStack = r.errStack[1:]
}

// Start a new mesh and make it the current one.
func (r *wavefrontSceneReader) beginMesh(name string) {
	r.verifyLastParsedMesh()

	mb := &meshBuilder{
		mesh:        scene.NewMesh(name),
		vertexCache: make(map[vertexKey]uint32),
		shadowed:    r.meshByName[name],
	}
	r.meshes = append(r.meshes, mb)
	r.meshByName[name] = mb
	r.curMesh = mb
}

// Drop the last parsed mesh if it contains no polygons.
func (r *wavefrontSceneReader) verifyLastParsedMesh() {
	lastMeshIndex := len(r.meshes) - 1
	if lastMeshIndex < 0 || len(r.meshes[lastMeshIndex].mesh.Indices) != 0 {
		return
	}

	dropped := r.meshes[lastMeshIndex]
	r.logger.Warningf(`dropping mesh "%s" as it contains no polygons`, dropped.mesh.Name)
	r.meshes = r.meshes[:lastMeshIndex]
	if r.meshByName[dropped.mesh.Name] == dropped {
		if dropped.shadowed != nil {
			r.meshByName[dropped.mesh.Name] = dropped.shadowed
		} else {
			delete(r.meshByName, dropped.mesh.Name)
		}
	}
	if r.curMesh == dropped {
		r.curMesh = nil
	}
}

// Parse wavefront object scene format.
func (r *wavefrontSceneReader) parse(res *asset.Resource) error {
	var lineNum int = 0

	// The main obj file may include (call) several other object files. Each
	// object file contains 1-based indices (when they are positive). By
	// tracking the current vertex/uv offsets we can apply them while
	// parsing faces to select the correct coordinates.
	relVertexOffset := len(r.vertexList)
	relUvOffset := len(r.uvList)

	scanner := bufio.NewScanner(res)
	for scanner.Scan() {
		lineNum++
		lineTokens := strings.Fields(scanner.Text())
		if len(lineTokens) == 0 || strings.HasPrefix(lineTokens[0], "#") {
			continue
		}

		switch lineTokens[0] {
		case "call", "mtllib":
			if len(lineTokens) != 2 {
				return r.emitError(res.Path(), lineNum, `unsupported syntax for "%s"; expected 1 argument; got %d`, lineTokens[0], len(lineTokens)-1)
			}

			r.pushFrame(fmt.Sprintf("referenced from %s:%d [%s]", res.Path(), lineNum, lineTokens[0]))

			incRes, err := asset.NewResource(lineTokens[1], res)
			if err != nil {
				return r.emitError(res.Path(), lineNum, "%s", err.Error())
			}

			switch lineTokens[0] {
			case "call":
				err = r.parse(incRes)
			case "mtllib":
				err = r.parseMaterials(incRes)
			}
			incRes.Close()

			if err != nil {
				return err
			}
			r.popFrame()
		case "usemtl":
			if len(lineTokens) != 2 {
				return r.emitError(res.Path(), lineNum, `unsupported syntax for "usemtl"; expected 1 argument; got %d`, len(lineTokens)-1)
			}

			matIndex, exists := r.matNameToIndex[lineTokens[1]]
			if !exists {
				return r.emitError(res.Path(), lineNum, `undefined material with name "%s"`, lineTokens[1])
			}
			r.curMaterial = matIndex
		case "v":
			v, err := parseVec3(lineTokens)
			if err != nil {
				return r.emitError(res.Path(), lineNum, "%s", err.Error())
			}
			r.vertexList = append(r.vertexList, v)
		case "vt":
			v, err := parseVec2(lineTokens)
			if err != nil {
				return r.emitError(res.Path(), lineNum, "%s", err.Error())
			}
			r.uvList = append(r.uvList, v)
		case "g", "o":
			if len(lineTokens) < 2 {
				return r.emitError(res.Path(), lineNum, `unsupported syntax for "%s"; expected 1 argument for object name; got %d`, lineTokens[0], len(lineTokens)-1)
			}
			r.beginMesh(lineTokens[1])
		case "f":
			// If no object has been defined create a default one
			if r.curMesh == nil {
				r.beginMesh(r.defaultName)
			}

			err := r.parseFace(lineTokens, relVertexOffset, relUvOffset)
			if err != nil {
				return r.emitError(res.Path(), lineNum, "%s", err.Error())
			}
		case "instance":
			// Instances may reference meshes that were just parsed
			r.verifyLastParsedMesh()

			instance, err := r.parseMeshInstance(lineTokens)
			if err != nil {
				return r.emitError(res.Path(), lineNum, "%s", err.Error())
			}
			r.instances = append(r.instances, instance)
		}
	}

	return scanner.Err()
}

// Parse mesh instance definition. Definitions use the following format:
// instance mesh_name tX tY tZ yaw pitch roll sX sY sZ
// where:
// - tX, tY, tZ       : translation vector
// - yaw, pitch, roll : rotation angles in degrees
// - sX, sY, sZ	      : scale
func (r *wavefrontSceneReader) parseMeshInstance(lineTokens []string) (*scene.Node, error) {
	if len(lineTokens) != 11 {
		return nil, fmt.Errorf(`unsupported syntax for "instance"; expected 10 arguments: mesh_name tX tY tZ yaw pitch roll sX sY sZ; got %d`, len(lineTokens)-1)
	}

	meshName := lineTokens[1]
	mb, exists := r.meshByName[meshName]
	if !exists {
		return nil, fmt.Errorf(`unknown mesh with name "%s"`, meshName)
	}

	var params [9]float32
	for index := range params {
		v, err := strconv.ParseFloat(lineTokens[index+2], 32)
		if err != nil {
			return nil, err
		}
		params[index] = float32(v)
	}

	translation := types.Vec3{params[0], params[1], params[2]}
	degToRad := float32(math.Pi / 180.0)
	scale := types.Vec3{params[6], params[7], params[8]}

	// M = T * R * S
	inst := scene.NewNode(fmt.Sprintf("%s#%d", meshName, len(r.instances)), mb.mesh)
	inst.Local = types.Translate4(translation).Mul4(
		types.Rotate4(params[3]*degToRad, params[4]*degToRad, params[5]*degToRad).Mul4(
			types.Scale4(scale),
		),
	)
	return inst, nil
}

// Parse face definition. Each face definitions consists of 3 or more
// arguments, one for each vertex. Each one of the vertex arguments is
// comprised of 1, 2 or 3 args separated by a slash character. The following
// formats are supported:
// - vertexIndex
// - vertexIndex/uvIndex
// - vertexIndex//normalIndex
// - vertexIndex/uvIndex/normalIndex
//
// Indices start from 1 and may be negative to indicate an offset off the end
// of the vertex/uv list. Normals are ignored. Polygons with more than 3
// vertices are triangulated as a fan around the first vertex.
func (r *wavefrontSceneReader) parseFace(lineTokens []string, relVertexOffset, relUvOffset int) error {
	if len(lineTokens) < 4 {
		return fmt.Errorf(`unsupported syntax for "f"; expected at least 3 arguments; got %d`, len(lineTokens)-1)
	}

	faceIndices := make([]uint32, len(lineTokens)-1)
	expIndices := 0
	for arg := 0; arg < len(lineTokens)-1; arg++ {
		vTokens := strings.Split(lineTokens[arg+1], "/")

		// The first arg defines the format for the following args
		if arg == 0 {
			expIndices = len(vTokens)
		} else if len(vTokens) != expIndices {
			return fmt.Errorf("expected each face argument to contain %d indices; arg %d contains %d indices", expIndices, arg, len(vTokens))
		}

		// Faces must at least define a vertex coord
		if vTokens[0] == "" {
			return fmt.Errorf("face argument %d does not include a vertex index", arg)
		}

		key := vertexKey{uv: -1}
		var err error
		key.position, err = selectFaceCoordIndex(vTokens[0], len(r.vertexList), relVertexOffset)
		if err != nil {
			return fmt.Errorf("could not parse vertex coord for face argument %d: %s", arg, err.Error())
		}

		if expIndices > 1 && vTokens[1] != "" {
			key.uv, err = selectFaceCoordIndex(vTokens[1], len(r.uvList), relUvOffset)
			if err != nil {
				return fmt.Errorf("could not parse tex coord for face argument %d: %s", arg, err.Error())
			}
		}

		faceIndices[arg] = r.meshVertex(key)
	}

	mesh := r.curMesh.mesh
	r.selectGroup(mesh)
	for tri := 1; tri+1 < len(faceIndices); tri++ {
		mesh.Indices = append(mesh.Indices, faceIndices[0], faceIndices[tri], faceIndices[tri+1])
		mesh.Groups[len(mesh.Groups)-1].IndexCount += 3
	}

	return nil
}

// Get the index of a vertex inside the current mesh, adding it if needed.
func (r *wavefrontSceneReader) meshVertex(key vertexKey) uint32 {
	mb := r.curMesh
	if index, exists := mb.vertexCache[key]; exists {
		return index
	}

	var uv types.Vec2
	if key.uv >= 0 {
		uv = r.uvList[key.uv]
	}

	index := uint32(len(mb.mesh.Positions))
	mb.mesh.Positions = append(mb.mesh.Positions, r.vertexList[key.position])
	mb.mesh.UVs = append(mb.mesh.UVs, uv)
	mb.vertexCache[key] = index
	return index
}

// Make sure that the last group of the mesh uses the current material.
func (r *wavefrontSceneReader) selectGroup(mesh *scene.Mesh) {
	if groupCount := len(mesh.Groups); groupCount > 0 && mesh.Groups[groupCount-1].MaterialID == r.curMaterial {
		return
	}

	mesh.Groups = append(mesh.Groups, scene.Group{
		MaterialID: r.curMaterial,
		FirstIndex: uint32(len(mesh.Indices)),
	})
}

// Parse a wavefront material library. Only material names are loaded;
// surface properties are ignored.
func (r *wavefrontSceneReader) parseMaterials(res *asset.Resource) error {
	var lineNum int = 0

	r.logger.Infof(`parsing material library "%s"`, res.Path())

	scanner := bufio.NewScanner(res)
	for scanner.Scan() {
		lineNum++
		lineTokens := strings.Fields(scanner.Text())
		if len(lineTokens) == 0 || lineTokens[0] != "newmtl" {
			continue
		}

		if len(lineTokens) != 2 {
			return r.emitError(res.Path(), lineNum, `unsupported syntax for "newmtl"; expected 1 argument; got %d`, len(lineTokens)-1)
		}

		matName := lineTokens[1]
		if _, exists := r.matNameToIndex[matName]; exists {
			return r.emitError(res.Path(), lineNum, `material "%s" already defined`, matName)
		}

		r.scene.Materials = append(r.scene.Materials, matName)
		r.matNameToIndex[matName] = int32(len(r.scene.Materials) - 1)
	}

	return scanner.Err()
}

// Given an index for a face coord type (vertex, tex) calculate the
// proper offset into the coord list. Wavefront format can also use negative
// indices to reference elements from the end of the coord list.
func selectFaceCoordIndex(indexToken string, coordListLen int, relOffset int) (int, error) {
	index, err := strconv.ParseInt(indexToken, 10, 32)
	if err != nil {
		return -1, err
	}

	var vOffset int = 0
	if index < 0 {
		vOffset = coordListLen + int(index)
	} else {
		vOffset = relOffset + int(index-1)
	}
	if vOffset < 0 || vOffset >= coordListLen {
		return -1, fmt.Errorf("index out of bounds")
	}
	return vOffset, nil
}

// Parse a Vec3 row.
func parseVec3(lineTokens []string) (types.Vec3, error) {
	if len(lineTokens) < 4 {
		return types.Vec3{}, fmt.Errorf(`unsupported syntax for "%s"; expected 3 arguments; got %d`, lineTokens[0], len(lineTokens)-1)
	}

	v := types.Vec3{}
	for tokIdx := 1; tokIdx <= 3; tokIdx++ {
		coord, err := strconv.ParseFloat(lineTokens[tokIdx], 32)
		if err != nil {
			return v, err
		}
		v[tokIdx-1] = float32(coord)
	}
	return v, nil
}

// Parse a Vec2 row.
func parseVec2(lineTokens []string) (types.Vec2, error) {
	if len(lineTokens) < 3 {
		return types.Vec2{}, fmt.Errorf(`unsupported syntax for "%s"; expected 2 arguments; got %d`, lineTokens[0], len(lineTokens)-1)
	}

	v := types.Vec2{}
	for tokIdx := 1; tokIdx <= 2; tokIdx++ {
		coord, err := strconv.ParseFloat(lineTokens[tokIdx], 32)
		if err != nil {
			return v, err
		}
		v[tokIdx-1] = float32(coord)
	}
	return v, nil
}
