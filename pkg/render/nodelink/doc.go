// Package nodelink renders material node graphs as node-link diagrams.
//
// # Overview
//
// [FromDocument] collects the nodes upstream of a renderable element into a
// [dag.DAG]. [ToDOT] turns that graph into Graphviz DOT source, where nodes
// appear as boxes and nodegraphs as dashed clusters.
//
// # Usage
//
//	g, err := nodelink.FromDocument(doc, "M_wood")
//	dot := nodelink.ToDOT(g, nodelink.Options{Detailed: true})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//
// The DOT source can also be saved and processed with external Graphviz
// tools.
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz] for in-process SVG and
// PNG rendering, so no Graphviz installation is needed.
package nodelink
