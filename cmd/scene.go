package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/achilleasa/polaris-bvh/asset/compiler"
	"github.com/achilleasa/polaris-bvh/asset/compiler/bvh"
	"github.com/achilleasa/polaris-bvh/asset/scene/reader"
	"github.com/achilleasa/polaris-bvh/types"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"
)

// Build a BVH for each scene file and display its statistics.
func BuildBVH(ctx *cli.Context) error {
	if err := setupLogging(ctx); err != nil {
		return err
	}

	opts, err := optionsFromContext(ctx)
	if err != nil {
		return err
	}

	if ctx.NArg() == 0 {
		return errors.New("missing scene file")
	}

	for idx := 0; idx < ctx.NArg(); idx++ {
		sceneFile := ctx.Args().Get(idx)
		if !strings.HasSuffix(sceneFile, ".obj") {
			logger.Warningf("skipping unsupported file %s", sceneFile)
			continue
		}

		index, err := generateIndex(sceneFile, opts)
		if err != nil {
			return err
		}

		// Display index info
		logger.Noticef("BVH information for %s:\n%s", sceneFile, index.Stats())
	}

	return nil
}

// Display the flattened node list of a scene BVH.
func DumpBVH(ctx *cli.Context) error {
	if err := setupLogging(ctx); err != nil {
		return err
	}

	opts, err := optionsFromContext(ctx)
	if err != nil {
		return err
	}

	if ctx.NArg() != 1 {
		return errors.New("expected a single scene file argument")
	}

	index, err := generateIndex(ctx.Args().First(), opts)
	if err != nil {
		return err
	}

	table, err := nodeTable(index, ctx.Int("depth"))
	if err != nil {
		return err
	}

	logger.Noticef("BVH nodes:\n%s", table)
	return nil
}

func generateIndex(sceneFile string, opts bvh.Options) (*bvh.Index, error) {
	logger.Noticef("parsing scene: %s", sceneFile)
	sc, err := reader.ReadScene(sceneFile)
	if err != nil {
		return nil, err
	}

	return compiler.GenerateBVH(sc.Root, opts)
}

// Render the index nodes up to maxDepth as a table. A negative maxDepth
// renders all nodes.
func nodeTable(index *bvh.Index, maxDepth int) (string, error) {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Node", "Depth", "Type", "Range", "Min", "Max"})

	err := index.Walk(func(nodeIndex int, node bvh.FlatNode, depth int) bool {
		nodeType := "inner"
		first, count := node.ChildStart, node.ChildCount
		if node.IsLeaf() {
			nodeType = "leaf"
			first, count = node.TriangleStart, node.TriangleCount
		}

		table.Append([]string{
			strconv.Itoa(nodeIndex),
			strconv.Itoa(depth),
			nodeType,
			fmt.Sprintf("[%d, %d)", first, first+count),
			fmtVec(node.Bounds.Min),
			fmtVec(node.Bounds.Max),
		})
		return maxDepth < 0 || depth < maxDepth
	})
	if err != nil {
		return "", err
	}

	table.Render()
	return buf.String(), nil
}

func fmtVec(v types.Vec3) string {
	return fmt.Sprintf("(%.3f, %.3f, %.3f)", v[0], v[1], v[2])
}
