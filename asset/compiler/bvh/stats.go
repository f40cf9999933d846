package bvh

import (
	"bytes"
	"fmt"
	"reflect"
	"strconv"

	"github.com/olekukonko/tablewriter"
)

// Build a tabular representation of the index statistics.
func (idx *Index) Stats() string {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Section", "Item", "Value"})

	internal := len(idx.nodes) - idx.leafCount
	avgLeafTris := 0.0
	if idx.leafCount > 0 {
		avgLeafTris = float64(len(idx.triangles)) / float64(idx.leafCount)
	}

	bbox := idx.Bounds()
	bounds := "empty"
	if !bbox.IsEmpty() {
		bounds = fmt.Sprintf("%v - %v", bbox.Min, bbox.Max)
	}

	table.Append([]string{"Tree", "---", " "})
	table.Append([]string{"", "Nodes", strconv.Itoa(len(idx.nodes))})
	table.Append([]string{"", "Internal nodes", strconv.Itoa(internal)})
	table.Append([]string{"", "Leafs", strconv.Itoa(idx.leafCount)})
	table.Append([]string{"", "Max depth", strconv.Itoa(idx.maxDepth)})
	table.Append([]string{"", "Bounds", bounds})
	table.Append([]string{" ", " ", " "})
	table.Append([]string{"Geometry", "---", " "})
	table.Append([]string{"", "Triangles", strconv.Itoa(len(idx.triangles))})
	table.Append([]string{"", "Avg. triangles/leaf", fmt.Sprintf("%.2f", avgLeafTris)})
	table.Append([]string{" ", " ", " "})
	table.Append([]string{"Memory", "---", fmtSize(idx.nodes, idx.triangles)})
	table.Append([]string{"", "Nodes", fmtSize(idx.nodes)})
	table.Append([]string{"", "Triangles", fmtSize(idx.triangles)})

	table.Render()
	return buf.String()
}

// Sum the total space used by a set of slices and return back a formatted
// value with the appropriate byte/kb/mb unit.
func fmtSize(items ...interface{}) string {
	var totalBytes float32 = 0.0
	for _, item := range items {
		t := reflect.TypeOf(item)
		v := reflect.ValueOf(item)
		if v.Len() == 0 {
			continue
		}

		totalBytes += float32(int(t.Elem().Size()) * v.Len())
	}

	if totalBytes < 1e3 {
		return fmt.Sprintf("%3d bytes", int(totalBytes))
	} else if totalBytes < 1e6 {
		return fmt.Sprintf("%3.1f kb", totalBytes/1e3)
	}
	return fmt.Sprintf("%5.1f mb", totalBytes/1e6)
}
