package mtlx

import (
	"errors"
	"fmt"
	"strings"

	"github.com/matzehuels/mtlxgen/pkg/dag"
)

// Validate checks the document's own elements and returns false with a
// message holding one line per problem. Elements imported from libraries
// are trusted and not checked. Validation never modifies the document.
func (d *Document) Validate() (bool, string) {
	v := &validator{doc: d}
	v.checkNames(d.root, true)
	for _, e := range d.LocalElements() {
		e.Walk(func(el *Element) bool {
			v.checkElement(el)
			return true
		})
	}
	v.checkCycles(d.root)
	for _, g := range d.NodeGraphs() {
		if !d.IsLibraryElement(g) {
			v.checkCycles(g)
		}
	}
	if len(v.issues) == 0 {
		return true, ""
	}
	return false, strings.Join(v.issues, "\n") + "\n"
}

type validator struct {
	doc    *Document
	issues []string
}

func (v *validator) addf(e *Element, format string, args ...any) {
	where := e.NamePath()
	if where == "" {
		where = "document"
	}
	v.issues = append(v.issues, where+": "+fmt.Sprintf(format, args...))
}

// checkNames reports duplicate sibling names below e. Only local children
// of the root are considered when root is true.
func (v *validator) checkNames(e *Element, root bool) {
	seen := make(map[string]bool)
	for _, c := range e.children {
		if root && v.doc.IsLibraryElement(c) {
			continue
		}
		if c.name == "" {
			continue
		}
		if seen[c.name] {
			v.addf(c, "duplicate name %q", c.name)
		}
		seen[c.name] = true
	}
}

func (v *validator) checkElement(e *Element) {
	if e.name == "" && e.Category != CategoryDocument {
		v.addf(e, "<%s> element has no name", e.Category)
	}
	v.checkNames(e, false)

	switch {
	case IsNode(e):
		v.checkNode(e)
	case e.Category == CategoryInput || e.Category == CategoryParameter || e.Category == CategoryOutput:
		v.checkPort(e)
	}
}

func (v *validator) checkNode(n *Element) {
	nd := v.doc.NodeDefFor(n)
	if nd == nil {
		if name := n.Attr(AttrNodeDef); name != "" {
			v.addf(n, "nodedef %q not found", name)
		} else {
			v.addf(n, "no matching nodedef for node <%s> of type %q", n.Category, n.Type())
		}
		return
	}
	for _, in := range n.Inputs() {
		decl := nd.Input(in.name)
		if decl == nil {
			v.addf(in, "input is not declared by %s", nd.name)
			continue
		}
		if t := in.Type(); t != "" && t != decl.Type() {
			v.addf(in, "type %s does not match %s declared by %s", t, decl.Type(), nd.name)
		}
	}
}

// checkPort validates values and connections of inputs and outputs.
func (v *validator) checkPort(p *Element) {
	if p.HasAttr(AttrValue) && !p.IsConnected() {
		if _, err := ParseValue(p.Type(), p.ValueString()); err != nil && !errors.Is(err, ErrUnknownType) {
			v.addf(p, "%v", err)
		}
	}

	scope := portScope(p)
	if nodeName := p.Attr(AttrNodeName); nodeName != "" {
		src := scope.Child(nodeName)
		switch {
		case src == nil || !IsNode(src):
			v.addf(p, "connected node %q not found", nodeName)
		case !typesCompatible(p.Type(), src.Type()):
			v.addf(p, "type %s does not match %s of connected node %q", p.Type(), src.Type(), nodeName)
		}
	}
	if graphName := p.Attr(AttrNodeGraph); graphName != "" {
		g := v.doc.NodeGraph(graphName)
		if g == nil {
			v.addf(p, "connected nodegraph %q not found", graphName)
		} else if out := p.Attr(AttrOutput); out != "" && g.ChildOf(CategoryOutput, out) == nil {
			v.addf(p, "nodegraph %q has no output %q", graphName, out)
		}
	}
	if iface := p.Attr(AttrInterfaceName); iface != "" {
		if scope.Category != CategoryNodeGraph || scope.Input(iface) == nil {
			v.addf(p, "interface input %q not found", iface)
		}
	}
}

// portScope returns the element whose children a port's nodename refers
// to: the node's parent for node inputs, or the port's parent for graph and
// document outputs.
func portScope(p *Element) *Element {
	owner := p.parent
	if owner == nil {
		return p
	}
	if IsNode(owner) && owner.parent != nil {
		return owner.parent
	}
	return owner
}

func typesCompatible(port, src string) bool {
	return port == "" || src == "" || port == src || src == TypeMultiOutput
}

// checkCycles reports a feedback loop among the nodes of scope.
func (v *validator) checkCycles(scope *Element) {
	g := ConnectionGraph(scope)
	if cycle := g.FindCycle(); cycle != nil {
		v.addf(scope, "cycle detected: %s", strings.Join(cycle, " -> "))
	}
}

// ConnectionGraph returns the graph of nodename connections between the
// nodes directly under scope. Edges point from a node to the nodes it reads.
func ConnectionGraph(scope *Element) *dag.DAG {
	g := dag.New(dag.Metadata{"scope": scope.NamePath()})
	nodes := Nodes(scope)
	for _, n := range nodes {
		_ = g.AddNode(dag.Node{ID: n.name, Meta: dag.Metadata{"category": n.Category, "type": n.Type()}})
	}
	for _, n := range nodes {
		for _, in := range n.Inputs() {
			if src := in.Attr(AttrNodeName); src != "" {
				_ = g.AddEdge(dag.Edge{From: n.name, To: src, Meta: dag.Metadata{"input": in.name}})
			}
		}
	}
	return g
}
