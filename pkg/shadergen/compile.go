package shadergen

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"regexp"

	"github.com/iancoleman/strcase"

	"github.com/matzehuels/mtlxgen/pkg/dag"
	"github.com/matzehuels/mtlxgen/pkg/mtlx"
)

// Syntax describes how a shading language spells types and values.
type Syntax interface {
	// TypeName returns the language type for a document type, or "" if the
	// language cannot represent it.
	TypeName(typ string) string
	// DefaultValue returns the zero value expression for typ.
	DefaultValue(typ string) string
	// Literal formats a parsed value.
	Literal(v mtlx.Value) string
	// GeomProp returns the expression reading a default geometric property
	// such as "UV0" or "Nworld".
	GeomProp(name string) (string, bool)
	// Keywords lists reserved identifiers.
	Keywords() []string
}

// ImplKind tells how a node's code is produced.
type ImplKind int

const (
	// ImplInline substitutes inputs into a sourcecode expression.
	ImplInline ImplKind = iota
	// ImplFunction calls a function loaded from an implementation file.
	ImplFunction
	// ImplBuiltin is emitted directly by the generator (constant, dot).
	ImplBuiltin
)

// Arg is one resolved node input.
type Arg struct {
	Name string
	Type string
	Expr string
	// Omit is set for inputs the target language cannot represent; they are
	// left out of function calls.
	Omit bool
}

// NodeInstance is a node scheduled for emission.
type NodeInstance struct {
	Element  *mtlx.Element
	NodeDef  *mtlx.Element
	Impl     *mtlx.Element
	Kind     ImplKind
	Var      string
	Type     string
	Args     []Arg
	Source   string // inline template or function name
	PostCall string // color transform applied to the result, if any
}

// Param is a published shader parameter.
type Param struct {
	Name    string
	Type    string
	Value   string
	Uniform bool
	// Path is the document location the parameter was published from.
	Path string
	// Raw holds the unformatted value for filenames, which some languages
	// bind as samplers.
	Raw string
}

// Function is helper source emitted ahead of the shader body.
type Function struct {
	Name   string
	Source string
}

// Graph is an element compiled for one target: the nodes to emit in order,
// the published parameters and the helper functions they need.
type Graph struct {
	Name       string
	Element    *mtlx.Element
	Nodes      []*NodeInstance
	Params     []*Param
	OutputVar  string
	OutputType string
	Functions  []Function
	Transforms []Function
	Warnings   []string
}

// HasFunctionFiles reports whether any implementation file was included.
func (g *Graph) HasFunctionFiles() bool { return len(g.Functions) > 0 }

var placeholder = regexp.MustCompile(`\{\{(\w+)\}\}`)

// Compile resolves the upstream graph of e for target and assigns
// identifiers with syntax. The reserved names are taken before any node
// or parameter is named.
func Compile(name string, e *mtlx.Element, target, language string, syntax Syntax, ctx *Context, reserved ...string) (*Graph, error) {
	c := &compiler{
		ctx:      ctx,
		target:   target,
		language: language,
		syntax:   syntax,
		namer:    NewNamer(syntax.Keywords()),
		nodes:    make(map[*mtlx.Element]*NodeInstance),
		files:    make(map[string]bool),
		xforms:   make(map[string]bool),
		graph:    &Graph{Name: name, Element: e},
	}
	for _, r := range reserved {
		c.namer.Reserve(r)
	}
	if err := c.compile(e); err != nil {
		return nil, err
	}
	return c.graph, nil
}

type compiler struct {
	ctx      *Context
	target   string
	language string
	syntax   Syntax
	namer    *Namer
	graph    *Graph
	root     *mtlx.Element
	surface  *mtlx.Element
	nodes    map[*mtlx.Element]*NodeInstance
	files    map[string]bool
	xforms   map[string]bool
}

func (c *compiler) warnf(format string, args ...any) {
	c.graph.Warnings = append(c.graph.Warnings, fmt.Sprintf(format, args...))
}

func (c *compiler) compile(e *mtlx.Element) error {
	root, err := c.resolveRoot(e)
	if err != nil {
		return err
	}
	c.root = root
	if root.Type() == mtlx.TypeMaterial {
		if in := root.Input("surfaceshader"); in != nil {
			if c.surface, err = c.upstream(in); err != nil {
				return err
			}
		}
	}

	order, err := c.schedule(root)
	if err != nil {
		return err
	}
	for _, n := range order {
		if err := c.emitNode(n); err != nil {
			return err
		}
	}
	out := c.nodes[root]
	c.graph.OutputVar = out.Var
	c.graph.OutputType = out.Type
	if e.Category == mtlx.CategoryOutput && e.Type() != "" {
		c.graph.OutputType = e.Type()
	}
	return nil
}

// resolveRoot maps a renderable element to the node whose value the shader
// outputs.
func (c *compiler) resolveRoot(e *mtlx.Element) (*mtlx.Element, error) {
	if mtlx.IsNode(e) {
		return e, nil
	}
	if e.Category != mtlx.CategoryOutput {
		return nil, fmt.Errorf("%w: <%s> %s is not a node or output", ErrUnsupported, e.Category, e.NamePath())
	}
	src, err := c.upstream(e)
	if err != nil {
		return nil, err
	}
	if src == nil {
		return nil, fmt.Errorf("%w: output %s is not connected", ErrUnsupported, e.NamePath())
	}
	return src, nil
}

// upstream returns the node a port reads from, following nodegraph outputs.
// It returns nil for unconnected ports.
func (c *compiler) upstream(p *mtlx.Element) (*mtlx.Element, error) {
	if graphName := p.Attr(mtlx.AttrNodeGraph); graphName != "" {
		g := c.ctx.Document.NodeGraph(graphName)
		if g == nil {
			return nil, fmt.Errorf("%w: %s: nodegraph %q not found", ErrBrokenReference, p.NamePath(), graphName)
		}
		outName := p.Attr(mtlx.AttrOutput)
		var out *mtlx.Element
		if outName == "" {
			if outs := g.Outputs(); len(outs) > 0 {
				out = outs[0]
			}
		} else {
			out = g.ChildOf(mtlx.CategoryOutput, outName)
		}
		if out == nil {
			return nil, fmt.Errorf("%w: %s: nodegraph %q has no output %q", ErrBrokenReference, p.NamePath(), graphName, outName)
		}
		return c.upstream(out)
	}

	nodeName := p.Attr(mtlx.AttrNodeName)
	if nodeName == "" {
		return nil, nil
	}
	scope := p.Parent()
	if mtlx.IsNode(scope) && scope.Parent() != nil {
		scope = scope.Parent()
	}
	src := scope.Child(nodeName)
	if src == nil || !mtlx.IsNode(src) {
		return nil, fmt.Errorf("%w: %s: connected node %q not found", ErrBrokenReference, p.NamePath(), nodeName)
	}
	if p.Category == mtlx.CategoryInput && p.Attr(mtlx.AttrOutput) != "" && c.outputType(src) == mtlx.TypeMultiOutput {
		return nil, fmt.Errorf("%w: multi-output node %s", ErrUnsupported, src.NamePath())
	}
	return src, nil
}

func (c *compiler) outputType(n *mtlx.Element) string {
	if t := n.Type(); t != "" {
		return t
	}
	if nd := c.ctx.Document.NodeDefFor(n); nd != nil {
		return mtlx.OutputType(nd)
	}
	return ""
}

// schedule collects every node upstream of root into a graph and returns
// them with dependencies first.
func (c *compiler) schedule(root *mtlx.Element) ([]*mtlx.Element, error) {
	g := dag.New(nil)
	byID := make(map[string]*mtlx.Element)
	queue := []*mtlx.Element{root}
	byID[root.NamePath()] = root
	_ = g.AddNode(dag.Node{ID: root.NamePath()})

	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		for _, in := range n.Inputs() {
			if in.Attr(mtlx.AttrInterfaceName) != "" {
				continue
			}
			src, err := c.upstream(in)
			if err != nil {
				return nil, err
			}
			if src == nil {
				continue
			}
			id := src.NamePath()
			if _, seen := byID[id]; !seen {
				byID[id] = src
				_ = g.AddNode(dag.Node{ID: id})
				queue = append(queue, src)
			}
			_ = g.AddEdge(dag.Edge{From: n.NamePath(), To: id})
		}
	}

	ids, err := g.TopologicalOrder()
	if err != nil {
		if errors.Is(err, dag.ErrGraphHasCycle) {
			return nil, fmt.Errorf("%w upstream of %s", ErrCycle, root.NamePath())
		}
		return nil, err
	}
	order := make([]*mtlx.Element, len(ids))
	for i, id := range ids {
		order[i] = byID[id]
	}
	return order, nil
}

func (c *compiler) emitNode(n *mtlx.Element) error {
	doc := c.ctx.Document
	nd := doc.NodeDefFor(n)
	if nd == nil {
		return fmt.Errorf("%w for %s (<%s> of type %q)", ErrNoNodeDef, n.NamePath(), n.Category, n.Type())
	}
	outType := mtlx.OutputType(nd)
	if outType == mtlx.TypeMultiOutput {
		return fmt.Errorf("%w: multi-output node %s", ErrUnsupported, n.NamePath())
	}

	inst := &NodeInstance{
		Element: n,
		NodeDef: nd,
		Type:    outType,
		Var:     c.namer.VarName(n.Name(), "out"),
	}
	if err := c.bindImplementation(inst); err != nil {
		return err
	}
	for _, decl := range nd.Inputs() {
		arg, err := c.resolveInput(inst, decl)
		if err != nil {
			return err
		}
		inst.Args = append(inst.Args, arg)
	}
	c.nodes[n] = inst
	c.graph.Nodes = append(c.graph.Nodes, inst)
	return nil
}

func (c *compiler) bindImplementation(inst *NodeInstance) error {
	doc := c.ctx.Document
	impl := doc.ImplementationFor(inst.NodeDef, c.target)
	if impl == nil {
		if builtinEmitters[inst.Element.Category] {
			inst.Kind = ImplBuiltin
			return nil
		}
		if doc.ImplementingGraph(inst.NodeDef) != nil {
			return fmt.Errorf("%w: %s is implemented by a node graph", ErrUnsupported, inst.NodeDef.Name())
		}
		return fmt.Errorf("%w for %s on target %s", ErrNoImplementation, inst.NodeDef.Name(), c.target)
	}
	inst.Impl = impl
	switch {
	case impl.Attr(mtlx.AttrSourceCode) != "":
		inst.Kind = ImplInline
		inst.Source = impl.Attr(mtlx.AttrSourceCode)
	case impl.Attr(mtlx.AttrFunction) != "":
		inst.Kind = ImplFunction
		inst.Source = impl.Attr(mtlx.AttrFunction)
		return c.includeFile(impl)
	case builtinEmitters[inst.Element.Category]:
		inst.Kind = ImplBuiltin
	default:
		return fmt.Errorf("%w for %s on target %s", ErrNoImplementation, inst.NodeDef.Name(), c.target)
	}
	return nil
}

// builtinEmitters are node categories whose code the generators write
// without library source.
var builtinEmitters = map[string]bool{
	"constant": true,
	"dot":      true,
}

// includeFile loads the source file of a function implementation once.
func (c *compiler) includeFile(impl *mtlx.Element) error {
	if impl.Attr(mtlx.AttrFile) == "" {
		return fmt.Errorf("%w: %s has a function but no file", ErrNoImplementation, impl.Name())
	}
	if c.ctx.Library == nil {
		return fmt.Errorf("%w: no library file system to read %s", ErrNoImplementation, impl.Attr(mtlx.AttrFile))
	}
	name, data, err := ReadSource(c.ctx.Library, impl)
	if err != nil {
		return err
	}
	if c.files[name] {
		return nil
	}
	c.files[name] = true
	c.graph.Functions = append(c.graph.Functions, Function{
		Name:   impl.Attr(mtlx.AttrFunction),
		Source: string(data),
	})
	return nil
}

// ReadSource reads the file named by an implementation from fsys. The file
// is looked up next to the implementation document and then in each of its
// parent directories. The returned name is the path the file was found at.
func ReadSource(fsys fs.FS, impl *mtlx.Element) (string, []byte, error) {
	file := impl.Attr(mtlx.AttrFile)
	for dir := path.Dir(impl.SourceURI); ; dir = path.Dir(dir) {
		candidate := path.Join(dir, file)
		data, err := fs.ReadFile(fsys, candidate)
		if err == nil {
			return candidate, data, nil
		}
		if dir == "." || dir == "/" {
			break
		}
	}
	return "", nil, fmt.Errorf("%w: source file %s of %s not found", ErrNoImplementation, file, impl.Name())
}

// resolveInput produces the expression for one declared input of a node.
func (c *compiler) resolveInput(inst *NodeInstance, decl *mtlx.Element) (Arg, error) {
	n := inst.Element
	typ := decl.Type()
	arg := Arg{Name: decl.Name(), Type: typ, Omit: c.syntax.TypeName(typ) == ""}
	in := n.Input(decl.Name())

	if in != nil {
		if iface := in.Attr(mtlx.AttrInterfaceName); iface != "" {
			return c.interfaceInput(inst, arg, in, iface)
		}
		src, err := c.upstream(in)
		if err != nil {
			return arg, err
		}
		if src != nil {
			arg.Expr = c.nodes[src].Var
			return arg, nil
		}
	}

	// Unconnected: the node's own value, else the definition's default or
	// default geometric property.
	valueElem := decl
	if in != nil && in.HasAttr(mtlx.AttrValue) {
		valueElem = in
	} else if gp := decl.Attr(mtlx.AttrDefaultGeom); gp != "" {
		expr, ok := c.syntax.GeomProp(gp)
		if !ok {
			return arg, fmt.Errorf("%w: geometric property %s on %s", ErrUnsupported, gp, n.NamePath())
		}
		arg.Expr = expr
		return arg, nil
	}

	raw, value, err := c.literal(inst, decl, valueElem)
	if err != nil {
		return arg, err
	}
	top := n == c.root || n == c.surface
	publish := !arg.Omit && (top || typ == mtlx.TypeFilename)
	if publish && !mtlx.IsShaderType(typ) {
		name := decl.Name()
		if !top {
			name = strcase.ToSnake(n.Name()) + "_" + decl.Name()
		}
		p := &Param{
			Name:    c.namer.Name(name),
			Type:    typ,
			Value:   value,
			Uniform: decl.Attr(mtlx.AttrUniform) == "true",
			Path:    valueElem.NamePath(),
			Raw:     raw,
		}
		c.graph.Params = append(c.graph.Params, p)
		arg.Expr = p.Name
		return arg, nil
	}
	arg.Expr = value
	return arg, nil
}

// interfaceInput publishes a node graph interface input as a parameter
// named after the graph input.
func (c *compiler) interfaceInput(inst *NodeInstance, arg Arg, in *mtlx.Element, iface string) (Arg, error) {
	graph := in.Parent().Parent()
	gi := graph.Input(iface)
	if gi == nil {
		return arg, fmt.Errorf("%w: %s: interface input %q not found on %s", ErrBrokenReference, in.NamePath(), iface, graph.Name())
	}
	for _, p := range c.graph.Params {
		if p.Path == gi.NamePath() {
			if p.Type == mtlx.TypeFilename {
				c.fileColorTransform(inst, gi)
			}
			arg.Expr = p.Name
			return arg, nil
		}
	}
	raw, value, err := c.literal(inst, gi, gi)
	if err != nil {
		return arg, err
	}
	if arg.Omit {
		arg.Expr = value
		return arg, nil
	}
	p := &Param{
		Name:    c.namer.Name(iface),
		Type:    gi.Type(),
		Value:   value,
		Uniform: gi.Attr(mtlx.AttrUniform) == "true",
		Path:    gi.NamePath(),
		Raw:     raw,
	}
	c.graph.Params = append(c.graph.Params, p)
	arg.Expr = p.Name
	return arg, nil
}

// literal parses the value held by src (typed by decl) and applies file
// prefixes, unit conversion and color conversion. It returns the raw string
// for filenames and the formatted literal.
func (c *compiler) literal(inst *NodeInstance, decl, src *mtlx.Element) (string, string, error) {
	typ := decl.Type()
	if mtlx.IsShaderType(typ) {
		return "", c.syntax.DefaultValue(typ), nil
	}
	raw := src.ValueString()
	if typ == mtlx.TypeFilename {
		if raw != "" {
			raw = mtlx.ActiveFilePrefix(src) + raw
		}
		if inst != nil {
			c.fileColorTransform(inst, src)
		}
		return raw, c.syntax.Literal(mtlx.Value{Type: typ, Str: raw}), nil
	}
	if !src.HasAttr(mtlx.AttrValue) {
		return "", c.syntax.DefaultValue(typ), nil
	}
	v, err := mtlx.ParseValue(typ, raw)
	if err != nil {
		return "", "", fmt.Errorf("%s: %w", src.NamePath(), err)
	}
	v = c.convertUnits(v, decl, src)
	v = c.convertColor(v, src)
	return raw, c.syntax.Literal(v), nil
}

func (c *compiler) convertUnits(v mtlx.Value, decl, src *mtlx.Element) mtlx.Value {
	unit := src.Attr(mtlx.AttrUnit)
	if unit == "" || c.ctx.Units == nil {
		return v
	}
	unitType := src.Attr(mtlx.AttrUnitType)
	if unitType == "" {
		unitType = decl.Attr(mtlx.AttrUnitType)
	}
	if unitType == "" {
		unitType = c.ctx.Units.UnitTypeOf(unit)
	}
	if unitType != mtlx.UnitTypeDistance || c.ctx.Options.TargetDistanceUnit == "" {
		return v
	}
	out, err := c.ctx.Units.ConvertValue(v, unitType, unit, c.ctx.Options.TargetDistanceUnit)
	if err != nil {
		c.warnf("%s: %v", src.NamePath(), err)
		return v
	}
	return out
}

func (c *compiler) convertColor(v mtlx.Value, src *mtlx.Element) mtlx.Value {
	if !mtlx.IsColorType(v.Type) || c.ctx.Color == nil {
		return v
	}
	from, to := mtlx.ActiveColorSpace(src), c.ctx.Options.TargetColorSpace
	if from == "" || to == "" || from == to {
		return v
	}
	if !c.ctx.Color.Supports(from, to) {
		c.warnf("%s: no transform from %s to %s, value left unchanged", src.NamePath(), from, to)
		return v
	}
	rgb, err := c.ctx.Color.TransformValue(from, to, [3]float64{v.Data[0], v.Data[1], v.Data[2]})
	if err != nil {
		c.warnf("%s: %v", src.NamePath(), err)
		return v
	}
	out := mtlx.Value{Type: v.Type, Data: append(rgb[:], v.Data[3:]...)}
	return out
}

// fileColorTransform arranges for the color result of a texture lookup to be
// converted from the file's color space.
func (c *compiler) fileColorTransform(inst *NodeInstance, file *mtlx.Element) {
	if inst.Type != mtlx.TypeColor3 || c.ctx.Color == nil {
		return
	}
	from, to := mtlx.ActiveColorSpace(file), c.ctx.Options.TargetColorSpace
	if from == "" || to == "" || from == to {
		return
	}
	if !c.ctx.Color.Supports(from, to) {
		c.warnf("%s: no transform from %s to %s, texture left unchanged", file.NamePath(), from, to)
		return
	}
	fn := c.ctx.Color.FunctionName(from, to)
	if !c.xforms[fn] {
		src, err := c.ctx.Color.FunctionSource(c.language, from, to)
		if err != nil {
			c.warnf("%s: %v", file.NamePath(), err)
			return
		}
		c.xforms[fn] = true
		c.graph.Transforms = append(c.graph.Transforms, Function{Name: fn, Source: src})
	}
	inst.PostCall = fn
}

// Expand substitutes {{input}} placeholders of an inline implementation.
func Expand(inst *NodeInstance) (string, error) {
	exprs := make(map[string]string, len(inst.Args))
	for _, a := range inst.Args {
		exprs[a.Name] = a.Expr
	}
	var missing string
	out := placeholder.ReplaceAllStringFunc(inst.Source, func(m string) string {
		name := placeholder.FindStringSubmatch(m)[1]
		expr, ok := exprs[name]
		if !ok {
			missing = name
			return m
		}
		return expr
	})
	if missing != "" {
		return "", fmt.Errorf("%w: %s references unknown input %q", ErrNoImplementation, inst.Impl.Name(), missing)
	}
	return out, nil
}
