package compiler

import (
	"time"

	"github.com/achilleasa/polaris-bvh/asset/compiler/bvh"
	"github.com/achilleasa/polaris-bvh/log"
)

type bvhCompiler struct {
	opts   bvh.Options
	logger log.Logger
}

// Scan the scene graph rooted at root for triangles and compile them into a
// flattened BVH index.
func GenerateBVH(root bvh.SceneNode, opts bvh.Options) (*bvh.Index, error) {
	compiler := &bvhCompiler{
		opts:   opts,
		logger: log.New("bvh compiler"),
	}

	start := time.Now()
	compiler.logger.Noticef("compiling BVH")

	triangles := compiler.collectTriangles(root)

	index, err := compiler.partitionGeometry(triangles)
	if err != nil {
		return nil, err
	}

	compiler.logger.Noticef("compiled BVH in %d ms", time.Since(start).Nanoseconds()/1e6)
	return index, nil
}

func (bc *bvhCompiler) collectTriangles(root bvh.SceneNode) []bvh.Triangle {
	start := time.Now()
	bc.logger.Notice("collecting triangles")

	triangles := bvh.CollectTriangles(root)
	if len(triangles) == 0 {
		bc.logger.Warning("scene does not contain any triangles")
	}

	bc.logger.Noticef("collected %d triangles in %d ms", len(triangles), time.Since(start).Nanoseconds()/1e6)
	return triangles
}

func (bc *bvhCompiler) partitionGeometry(triangles []bvh.Triangle) (*bvh.Index, error) {
	start := time.Now()
	bc.logger.Notice("partitioning geometry")

	index, stats, err := bvh.Generate(triangles, bc.opts)
	if err != nil {
		return nil, err
	}

	bc.logger.Debugf("build stats: %s", stats)
	bc.logger.Noticef(
		"partitioned geometry in %d ms (%d nodes, %d leafs, depth %d)",
		time.Since(start).Nanoseconds()/1e6, index.NodeCount(), index.LeafCount(), index.MaxDepth(),
	)
	return index, nil
}
