package mtlx

// OutputType returns the output type of a node definition: the type of its
// single output, TypeMultiOutput when it has several, or its legacy type
// attribute.
func OutputType(nodedef *Element) string {
	outs := nodedef.Outputs()
	switch {
	case len(outs) == 1:
		return outs[0].Type()
	case len(outs) > 1:
		return TypeMultiOutput
	}
	return nodedef.Type()
}

// NodeDefFor returns the node definition that describes n, or nil.
//
// An explicit nodedef attribute wins. Otherwise the first definition whose
// node category and output type match, and that declares every input of n
// with the same type, is chosen.
func (d *Document) NodeDefFor(n *Element) *Element {
	if name := n.Attr(AttrNodeDef); name != "" {
		return d.NodeDef(name)
	}
	for _, nd := range d.NodeDefs() {
		if nd.Attr(AttrNode) != n.Category {
			continue
		}
		if t := n.Type(); t != "" && OutputType(nd) != t {
			continue
		}
		if inputsDeclared(n, nd) {
			return nd
		}
	}
	return nil
}

func inputsDeclared(n, nd *Element) bool {
	for _, in := range n.Inputs() {
		decl := nd.Input(in.name)
		if decl == nil {
			return false
		}
		if t := in.Type(); t != "" && t != decl.Type() {
			return false
		}
	}
	return true
}

// ImplementationFor returns the implementation of nodedef for target, or nil.
// Node graphs that implement a definition are not considered.
func (d *Document) ImplementationFor(nodedef *Element, target string) *Element {
	for _, impl := range d.Implementations() {
		if impl.Attr(AttrNodeDef) == nodedef.name && impl.Attr(AttrTarget) == target {
			return impl
		}
	}
	return nil
}

// ImplementingGraph returns the node graph that implements nodedef, or nil.
func (d *Document) ImplementingGraph(nodedef *Element) *Element {
	for _, g := range d.NodeGraphs() {
		if g.Attr(AttrNodeDef) == nodedef.name {
			return g
		}
	}
	return nil
}
