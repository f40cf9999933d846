package bvh

import (
	"github.com/achilleasa/polaris-bvh/log"
	"github.com/achilleasa/polaris-bvh/types"
)

// The SceneNode interface is implemented by scene graph nodes that can be
// scanned for triangles.
type SceneNode interface {
	// The node transformation from local to world space.
	WorldTransform() types.Mat4

	// The mesh attached to this node or nil.
	Mesh() Mesh

	ChildCount() int
	Child(index int) SceneNode
}

// The Mesh interface is implemented by indexed triangle meshes.
type Mesh interface {
	// Vertex positions in mesh space.
	Positions() []types.Vec3

	// Texture coordinates indexed like Positions. May be shorter than
	// Positions (or nil) if the mesh is not textured.
	UVs() []types.Vec2

	// Triangle list indices.
	Indices() []uint32

	GroupCount() int

	// Get the material id and index range [first, first+count) of a group.
	Group(index int) (materialID int32, first, count uint32)
}

type triangleCollector struct {
	logger    log.Logger
	triangles []Triangle
	skipped   int
}

// Scan the scene graph rooted at root and generate a list of world-space
// triangles. Each consecutive index triple inside a mesh group becomes one
// triangle tagged with the group material. Degenerate triangles are included.
func CollectTriangles(root SceneNode) []Triangle {
	c := &triangleCollector{
		logger:    log.New("triangle collector"),
		triangles: make([]Triangle, 0),
	}

	if root != nil {
		c.visit(root)
	}

	if c.skipped > 0 {
		c.logger.Warningf("skipped %d triangles with out of range vertex indices", c.skipped)
	}
	c.logger.Debugf("collected %d triangles", len(c.triangles))
	return c.triangles
}

func (c *triangleCollector) visit(node SceneNode) {
	if mesh := node.Mesh(); mesh != nil {
		c.collectMesh(node.WorldTransform(), mesh)
	}

	for index := 0; index < node.ChildCount(); index++ {
		c.visit(node.Child(index))
	}
}

func (c *triangleCollector) collectMesh(world types.Mat4, mesh Mesh) {
	positions := mesh.Positions()
	uvs := mesh.UVs()
	indices := mesh.Indices()

	// Transform each referenced vertex once
	worldPositions := make([]types.Vec3, len(positions))
	for index, p := range positions {
		worldPositions[index] = world.TransformPoint(p)
	}

	for group := 0; group < mesh.GroupCount(); group++ {
		materialID, first, count := mesh.Group(group)
		end := uint64(first) + uint64(count)
		if end > uint64(len(indices)) {
			end = uint64(len(indices))
		}

		for offset := uint64(first); offset+2 < end; offset += 3 {
			i0, i1, i2 := indices[offset], indices[offset+1], indices[offset+2]
			if int(i0) >= len(positions) || int(i1) >= len(positions) || int(i2) >= len(positions) {
				c.skipped++
				continue
			}

			var uv [3]types.Vec2
			for vertex, vIndex := range [3]uint32{i0, i1, i2} {
				if int(vIndex) < len(uvs) {
					uv[vertex] = uvs[vIndex]
				}
			}

			c.triangles = append(
				c.triangles,
				NewTriangle(worldPositions[i0], worldPositions[i1], worldPositions[i2], uv, materialID),
			)
		}
	}
}
