package mtlx

import (
	"strings"
)

// DefaultVersion is the document version written into new documents.
const DefaultVersion = "1.38"

// nonNodeCategories are top-level or graph-level categories that are not
// shading nodes.
var nonNodeCategories = map[string]bool{
	CategoryNodeDef:        true,
	CategoryNodeGraph:      true,
	CategoryImplementation: true,
	CategoryInput:          true,
	CategoryOutput:         true,
	CategoryParameter:      true,
	CategoryToken:          true,
	CategoryTypeDef:        true,
	CategoryGeomInfo:       true,
	CategoryUnitTypeDef:    true,
	CategoryUnitDef:        true,
	CategoryLook:           true,
	CategoryCollection:     true,
	"materialassign":       true,
	"variantset":           true,
	"propertyset":          true,
	"backdrop":             true,
	"geompropdef":          true,
	"attributedef":         true,
	"targetdef":            true,
	"comment":              true,
}

// IsNode reports whether e is a shading node (as opposed to a definition,
// graph, port or other structural element). Nodes live directly under the
// document or a node graph.
func IsNode(e *Element) bool {
	if e == nil || e.Category == CategoryDocument || nonNodeCategories[e.Category] {
		return false
	}
	p := e.parent
	return p == nil || p.Category == CategoryDocument || p.Category == CategoryNodeGraph
}

// Document is a parsed material document: the root element plus the set of
// top-level elements that were imported from libraries.
//
// Document is not safe for concurrent mutation. Concurrent reads are safe.
type Document struct {
	root     *Element
	imported map[*Element]struct{}
}

// CreateDocument returns an empty document with a version attribute.
func CreateDocument() *Document {
	root := NewElement(CategoryDocument, "")
	root.SetAttr(AttrVersion, DefaultVersion)
	return newDocument(root)
}

func newDocument(root *Element) *Document {
	return &Document{root: root, imported: make(map[*Element]struct{})}
}

// Root returns the document root element.
func (d *Document) Root() *Element { return d.root }

// Version returns the document version attribute.
func (d *Document) Version() string { return d.root.Attr(AttrVersion) }

// ColorSpace returns the document-level working color space, if declared.
func (d *Document) ColorSpace() string { return d.root.Attr(AttrColorSpace) }

// SetColorSpace sets the document-level color space.
func (d *Document) SetColorSpace(cs string) { d.root.SetAttr(AttrColorSpace, cs) }

// Element returns the top-level element with the given name, or nil.
func (d *Document) Element(name string) *Element { return d.root.Child(name) }

// Descendant resolves a slash-separated name path such as
// "NG_marble/noise1". It returns nil if any step is missing.
func (d *Document) Descendant(path string) *Element {
	cur := d.root
	for _, part := range strings.Split(path, "/") {
		if cur = cur.Child(part); cur == nil {
			return nil
		}
	}
	return cur
}

// Copy returns a deep copy of the document. Library membership is preserved.
func (d *Document) Copy() *Document {
	root := d.root.Copy()
	out := newDocument(root)
	for i, c := range d.root.children {
		if _, ok := d.imported[c]; ok {
			out.imported[root.children[i]] = struct{}{}
		}
	}
	return out
}

// ImportLibrary copies every top-level element of lib into d and marks the
// copies as library content. Elements whose names already exist in d are
// skipped, so the document's own definitions take precedence.
func (d *Document) ImportLibrary(lib *Document) {
	if lib == nil {
		return
	}
	for _, c := range lib.root.children {
		if c.name != "" && d.root.Child(c.name) != nil {
			continue
		}
		cp := c.Copy()
		d.root.AppendChild(cp)
		d.imported[cp] = struct{}{}
	}
}

// IsLibraryElement reports whether e belongs to content imported through
// ImportLibrary.
func (d *Document) IsLibraryElement(e *Element) bool {
	top := e
	for top != nil && top.parent != d.root {
		top = top.parent
	}
	if top == nil {
		return false
	}
	_, ok := d.imported[top]
	return ok
}

// LocalElements returns the top-level elements that were not imported from
// a library, in document order.
func (d *Document) LocalElements() []*Element {
	var out []*Element
	for _, c := range d.root.children {
		if _, ok := d.imported[c]; !ok {
			out = append(out, c)
		}
	}
	return out
}

// NodeDefs returns all node definitions in document order.
func (d *Document) NodeDefs() []*Element { return d.root.ChildrenOf(CategoryNodeDef) }

// NodeDef returns the node definition with the given name, or nil.
func (d *Document) NodeDef(name string) *Element { return d.root.ChildOf(CategoryNodeDef, name) }

// Implementations returns all implementation elements in document order.
func (d *Document) Implementations() []*Element {
	return d.root.ChildrenOf(CategoryImplementation)
}

// NodeGraphs returns the top-level node graphs.
func (d *Document) NodeGraphs() []*Element { return d.root.ChildrenOf(CategoryNodeGraph) }

// NodeGraph returns the named top-level node graph, or nil.
func (d *Document) NodeGraph(name string) *Element {
	return d.root.ChildOf(CategoryNodeGraph, name)
}

// Outputs returns the top-level outputs.
func (d *Document) Outputs() []*Element { return d.root.Outputs() }

// Nodes returns the shading nodes that are direct children of the root.
func (d *Document) Nodes() []*Element { return Nodes(d.root) }

// Nodes returns the shading nodes that are direct children of scope, which
// is either a document root or a node graph.
func Nodes(scope *Element) []*Element {
	var out []*Element
	for _, c := range scope.children {
		if IsNode(c) {
			out = append(out, c)
		}
	}
	return out
}

// Materials returns the top-level material nodes.
func (d *Document) Materials() []*Element {
	var out []*Element
	for _, n := range d.Nodes() {
		if n.Type() == TypeMaterial {
			out = append(out, n)
		}
	}
	return out
}

// GeomProp returns the value of the named geomprop declared under any
// geominfo element, or "" if none is declared.
func (d *Document) GeomProp(name string) string {
	for _, gi := range d.root.ChildrenOf(CategoryGeomInfo) {
		for _, gp := range gi.ChildrenOf(CategoryGeomProp) {
			if gp.name == name {
				return gp.ValueString()
			}
		}
	}
	return ""
}

// ActiveColorSpace returns the color space that applies to e: its own
// colorspace attribute or the nearest ancestor's.
func ActiveColorSpace(e *Element) string {
	for cur := e; cur != nil; cur = cur.parent {
		if cs := cur.Attr(AttrColorSpace); cs != "" {
			return cs
		}
	}
	return ""
}

// ActiveFilePrefix concatenates the fileprefix attributes from the document
// root down to e.
func ActiveFilePrefix(e *Element) string {
	var prefixes []string
	for cur := e; cur != nil; cur = cur.parent {
		if p := cur.Attr(AttrFilePrefix); p != "" {
			prefixes = append(prefixes, p)
		}
	}
	var b strings.Builder
	for i := len(prefixes) - 1; i >= 0; i-- {
		b.WriteString(prefixes[i])
	}
	return b.String()
}
