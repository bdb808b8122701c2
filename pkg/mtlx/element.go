package mtlx

import (
	"slices"
	"strings"
)

// Element categories and attribute names used across the package.
const (
	CategoryDocument       = "materialx"
	CategoryNodeDef        = "nodedef"
	CategoryNodeGraph      = "nodegraph"
	CategoryImplementation = "implementation"
	CategoryInput          = "input"
	CategoryOutput         = "output"
	CategoryParameter      = "parameter"
	CategoryToken          = "token"
	CategoryTypeDef        = "typedef"
	CategoryGeomInfo       = "geominfo"
	CategoryGeomProp       = "geomprop"
	CategoryUnitTypeDef    = "unittypedef"
	CategoryUnitDef        = "unitdef"
	CategoryUnit           = "unit"
	CategoryLook           = "look"
	CategoryCollection     = "collection"

	AttrName          = "name"
	AttrType          = "type"
	AttrValue         = "value"
	AttrNodeName      = "nodename"
	AttrNodeGraph     = "nodegraph"
	AttrOutput        = "output"
	AttrInterfaceName = "interfacename"
	AttrNodeDef       = "nodedef"
	AttrNode          = "node"
	AttrColorSpace    = "colorspace"
	AttrUnit          = "unit"
	AttrUnitType      = "unittype"
	AttrTarget        = "target"
	AttrSourceCode    = "sourcecode"
	AttrFunction      = "function"
	AttrFile          = "file"
	AttrDefaultGeom   = "defaultgeomprop"
	AttrUniform       = "uniform"
	AttrVersion       = "version"
	AttrScale         = "scale"
	AttrFilePrefix    = "fileprefix"
	AttrUDIMSet       = "udimset"
	AttrDoc           = "doc"
)

// Attribute is a single name/value pair on an element. Attribute order is
// preserved so documents round-trip without reshuffling.
type Attribute struct {
	Name  string
	Value string
}

// Element is a node in a material document tree: the document root, a node,
// a node definition, an input, and so on. The element name is kept apart
// from the other attributes because it identifies the element within its
// parent.
type Element struct {
	Category string

	// SourceURI is the file the element was read from, relative to the file
	// system it was loaded through. Empty for elements built in memory.
	SourceURI string

	name     string
	attrs    []Attribute
	children []*Element
	parent   *Element
}

// NewElement creates a detached element.
func NewElement(category, name string) *Element {
	return &Element{Category: category, name: name}
}

// Name returns the element name.
func (e *Element) Name() string { return e.name }

// SetName renames the element.
func (e *Element) SetName(name string) { e.name = name }

// Parent returns the containing element, or nil for a root or detached element.
func (e *Element) Parent() *Element { return e.parent }

// Root returns the outermost ancestor of e (e itself if detached).
func (e *Element) Root() *Element {
	r := e
	for r.parent != nil {
		r = r.parent
	}
	return r
}

// Attr returns the value of the named attribute, or "" if absent.
func (e *Element) Attr(name string) string {
	for _, a := range e.attrs {
		if a.Name == name {
			return a.Value
		}
	}
	return ""
}

// HasAttr reports whether the named attribute is present.
func (e *Element) HasAttr(name string) bool {
	for _, a := range e.attrs {
		if a.Name == name {
			return true
		}
	}
	return false
}

// SetAttr sets an attribute, replacing any existing value.
func (e *Element) SetAttr(name, value string) {
	for i, a := range e.attrs {
		if a.Name == name {
			e.attrs[i].Value = value
			return
		}
	}
	e.attrs = append(e.attrs, Attribute{Name: name, Value: value})
}

// RemoveAttr deletes an attribute if present.
func (e *Element) RemoveAttr(name string) {
	e.attrs = slices.DeleteFunc(e.attrs, func(a Attribute) bool { return a.Name == name })
}

// Attrs returns a copy of the element's attributes in document order.
func (e *Element) Attrs() []Attribute { return slices.Clone(e.attrs) }

// Type returns the "type" attribute.
func (e *Element) Type() string { return e.Attr(AttrType) }

// Children returns the child elements in document order.
// The returned slice should not be modified.
func (e *Element) Children() []*Element { return e.children }

// Child returns the first child with the given name, or nil.
func (e *Element) Child(name string) *Element {
	for _, c := range e.children {
		if c.name == name {
			return c
		}
	}
	return nil
}

// ChildOf returns the first child with the given category and name, or nil.
func (e *Element) ChildOf(category, name string) *Element {
	for _, c := range e.children {
		if c.Category == category && c.name == name {
			return c
		}
	}
	return nil
}

// ChildrenOf returns the children whose category is one of categories.
func (e *Element) ChildrenOf(categories ...string) []*Element {
	var out []*Element
	for _, c := range e.children {
		if slices.Contains(categories, c.Category) {
			out = append(out, c)
		}
	}
	return out
}

// Inputs returns the input children, including legacy parameter elements.
func (e *Element) Inputs() []*Element {
	return e.ChildrenOf(CategoryInput, CategoryParameter)
}

// Input returns the named input (or legacy parameter), or nil.
func (e *Element) Input(name string) *Element {
	for _, c := range e.children {
		if c.name == name && (c.Category == CategoryInput || c.Category == CategoryParameter) {
			return c
		}
	}
	return nil
}

// Outputs returns the output children.
func (e *Element) Outputs() []*Element { return e.ChildrenOf(CategoryOutput) }

// AddChild creates a child element and appends it.
func (e *Element) AddChild(category, name string) *Element {
	c := NewElement(category, name)
	e.AppendChild(c)
	return c
}

// AppendChild attaches c as the last child of e, detaching it from any
// previous parent.
func (e *Element) AppendChild(c *Element) {
	if c.parent != nil {
		c.parent.RemoveChild(c)
	}
	c.parent = e
	e.children = append(e.children, c)
}

// RemoveChild detaches c from e. It is a no-op if c is not a child of e.
func (e *Element) RemoveChild(c *Element) {
	i := slices.Index(e.children, c)
	if i < 0 {
		return
	}
	e.children = slices.Delete(e.children, i, i+1)
	c.parent = nil
}

// NamePath returns the slash-separated path of names from the document root
// (exclusive) to e, e.g. "NG_marble/noise1/amplitude".
func (e *Element) NamePath() string {
	var parts []string
	for cur := e; cur != nil && cur.Category != CategoryDocument; cur = cur.parent {
		parts = append(parts, cur.name)
	}
	slices.Reverse(parts)
	return strings.Join(parts, "/")
}

// Copy returns a deep copy of e. The copy is detached.
func (e *Element) Copy() *Element {
	c := &Element{
		Category:  e.Category,
		SourceURI: e.SourceURI,
		name:      e.name,
		attrs:     slices.Clone(e.attrs),
	}
	for _, child := range e.children {
		cc := child.Copy()
		cc.parent = c
		c.children = append(c.children, cc)
	}
	return c
}

// Walk calls fn for e and every descendant in pre-order. Returning false
// from fn skips the element's children.
func (e *Element) Walk(fn func(*Element) bool) {
	if !fn(e) {
		return
	}
	for _, c := range e.children {
		c.Walk(fn)
	}
}

// ValueString returns the "value" attribute.
func (e *Element) ValueString() string { return e.Attr(AttrValue) }

// IsConnected reports whether an input or output reads from another element
// rather than holding a literal value.
func (e *Element) IsConnected() bool {
	return e.Attr(AttrNodeName) != "" || e.Attr(AttrNodeGraph) != "" || e.Attr(AttrInterfaceName) != ""
}
