package main

import (
	"fmt"
	"os"

	"github.com/achilleasa/polaris-bvh/cmd"
	"github.com/urfave/cli"
)

func main() {
	cli.VersionFlag = cli.BoolFlag{
		Name:  "version",
		Usage: "print only the version",
	}

	app := cli.NewApp()
	app.Name = "polaris-bvh"
	app.Usage = "build bounding volume hierarchies for triangle scenes"
	app.Version = "0.0.1"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable verbose logging",
		},
		cli.BoolFlag{
			Name:  "vv",
			Usage: "enable even more verbose logging",
		},
		cli.StringFlag{
			Name:  "log-level",
			Value: "notice",
			Usage: "log level (debug, info, notice, warning, error)",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:  "build",
			Usage: "build a BVH for one or more scenes",
			Description: `
Parse a scene definition from a wavefront obj file, collect the world-space
triangles of all mesh instances and partition them into a BVH tree using the
surface area cost model. The tree is flattened into a node and triangle list
and its statistics are displayed.`,
			ArgsUsage: "scene_file1.obj scene_file2.obj ...",
			Flags:     cmd.BuildFlags,
			Action:    cmd.BuildBVH,
		},
		{
			Name:  "dump",
			Usage: "display the flattened BVH nodes of a scene",
			Description: `
Build the BVH for a wavefront obj scene and display the flattened nodes in
depth-first order together with their bounds and child or triangle ranges.`,
			ArgsUsage: "scene_file.obj",
			Flags: append([]cli.Flag{
				cli.IntFlag{
					Name:  "depth",
					Value: -1,
					Usage: "only display nodes up to this depth; -1 displays all nodes",
				},
			}, cmd.BuildFlags...),
			Action: cmd.DumpBVH,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err.Error())
		os.Exit(1)
	}
}
