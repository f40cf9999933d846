package cmd

import (
	"github.com/achilleasa/polaris-bvh/asset/compiler/bvh"
	"github.com/urfave/cli"
)

// Flags that control BVH generation.
var BuildFlags = []cli.Flag{
	cli.IntFlag{
		Name:  "leaf-size",
		Value: bvh.DefaultMaxLeafTriangles,
		Usage: "max number of triangles per leaf",
	},
	cli.IntFlag{
		Name:  "children",
		Value: bvh.DefaultSplitChildren,
		Usage: "number of children generated by each split",
	},
	cli.IntFlag{
		Name:  "candidates",
		Value: bvh.DefaultSplitCandidates,
		Usage: "number of split positions evaluated along each axis",
	},
	cli.IntFlag{
		Name:  "max-triangles",
		Value: bvh.DefaultMaxTriangles,
		Usage: "fail if the scene contains more triangles",
	},
	cli.IntFlag{
		Name:  "max-nodes",
		Value: bvh.DefaultMaxNodes,
		Usage: "fail if the generated tree contains more nodes",
	},
	cli.IntFlag{
		Name:  "max-stack",
		Value: bvh.DefaultMaxStackDepth,
		Usage: "max traversal stack depth",
	},
	cli.IntFlag{
		Name:  "workers",
		Value: 1,
		Usage: "number of goroutines used for splitting",
	},
	cli.BoolFlag{
		Name:  "random-splits",
		Usage: "use random split boundaries instead of evenly spaced ones",
	},
	cli.Int64Flag{
		Name:  "seed",
		Value: 0,
		Usage: "seed for random split boundaries",
	},
}

func optionsFromContext(ctx *cli.Context) (bvh.Options, error) {
	opts := bvh.DefaultOptions()
	opts.MaxLeafTriangles = ctx.Int("leaf-size")
	opts.SplitChildren = ctx.Int("children")
	opts.SplitCandidates = ctx.Int("candidates")
	opts.MaxTriangles = ctx.Int("max-triangles")
	opts.MaxNodes = ctx.Int("max-nodes")
	opts.MaxStackDepth = ctx.Int("max-stack")
	opts.Workers = ctx.Int("workers")
	opts.RandomSplits = ctx.Bool("random-splits")
	opts.Seed = ctx.Int64("seed")

	return opts, opts.Validate()
}
