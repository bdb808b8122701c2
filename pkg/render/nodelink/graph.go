package nodelink

import (
	"fmt"

	"github.com/matzehuels/mtlxgen/pkg/dag"
	"github.com/matzehuels/mtlxgen/pkg/mtlx"
)

// Metadata keys set on the nodes returned by FromDocument.
const (
	MetaCategory = "category" // node category, e.g. "image"
	MetaType     = "type"     // output type
	MetaGraph    = "graph"    // name path of the enclosing nodegraph, if any
)

// FromDocument returns the graph of nodes upstream of element. Node IDs are
// element name paths and edges point from a consumer to the node it reads,
// carrying the input name under "input". Rows are assigned so that element
// sits in row 0.
func FromDocument(doc *mtlx.Document, element string) (*dag.DAG, error) {
	root := doc.Descendant(element)
	if root == nil {
		return nil, fmt.Errorf("element %q not found", element)
	}
	b := &builder{g: dag.New(dag.Metadata{"element": root.NamePath()})}
	b.visit(doc, root)
	if err := b.g.AssignRows(); err != nil {
		return b.g, err
	}
	return b.g, nil
}

type builder struct {
	g *dag.DAG
}

// visit adds e and everything it reads and returns e's node ID.
func (b *builder) visit(doc *mtlx.Document, e *mtlx.Element) string {
	id := e.NamePath()
	if _, ok := b.g.Node(id); ok {
		return id
	}
	meta := dag.Metadata{MetaCategory: e.Category, MetaType: e.Type()}
	if p := e.Parent(); p != nil && p.Category == mtlx.CategoryNodeGraph {
		meta[MetaGraph] = p.NamePath()
	}
	_ = b.g.AddNode(dag.Node{ID: id, Meta: meta})

	// An output reads its node directly; nodes read through their inputs.
	ports := e.Inputs()
	if e.Category == mtlx.CategoryOutput {
		ports = []*mtlx.Element{e}
	}
	for _, in := range ports {
		src := upstream(doc, in)
		if src == nil {
			continue
		}
		srcID := b.visit(doc, src)
		_ = b.g.AddEdge(dag.Edge{From: id, To: srcID, Meta: dag.Metadata{"input": in.Name()}})
	}
	return id
}

// upstream returns the node or nodegraph output a port is connected to.
func upstream(doc *mtlx.Document, port *mtlx.Element) *mtlx.Element {
	if name := port.Attr(mtlx.AttrNodeGraph); name != "" {
		g := doc.NodeGraph(name)
		if g == nil {
			return nil
		}
		outName := port.Attr(mtlx.AttrOutput)
		if outName == "" {
			if outs := g.Outputs(); len(outs) > 0 {
				return outs[0]
			}
			return nil
		}
		return g.ChildOf(mtlx.CategoryOutput, outName)
	}
	name := port.Attr(mtlx.AttrNodeName)
	if name == "" {
		return nil
	}
	scope := port.Parent()
	if port.Category != mtlx.CategoryOutput && scope != nil {
		scope = scope.Parent()
	}
	if scope == nil {
		return nil
	}
	if src := scope.Child(name); src != nil && mtlx.IsNode(src) {
		return src
	}
	return nil
}
