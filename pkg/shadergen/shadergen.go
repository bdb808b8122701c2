package shadergen

import (
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"slices"
	"sync"

	"github.com/matzehuels/mtlxgen/pkg/color"
	"github.com/matzehuels/mtlxgen/pkg/mtlx"
)

// PixelStage is the name of the only stage the generators produce.
const PixelStage = "pixel"

var (
	// ErrNoImplementation is returned when a node has no implementation for
	// the requested target.
	ErrNoImplementation = errors.New("no implementation")

	// ErrNoNodeDef is returned when a node cannot be matched to a definition.
	ErrNoNodeDef = errors.New("no matching nodedef")

	// ErrUnsupported is returned for constructs the generators do not handle,
	// such as multi-output nodes or definitions implemented by node graphs.
	ErrUnsupported = errors.New("unsupported")

	// ErrUnknownTarget is returned by [Registry.Lookup].
	ErrUnknownTarget = errors.New("unknown target")

	// ErrCycle is returned when the upstream graph of an element loops.
	ErrCycle = errors.New("node graph contains a cycle")

	// ErrBrokenReference is returned when a connection names a node, node
	// graph, output or interface input that does not exist.
	ErrBrokenReference = errors.New("broken reference")
)

// Options control code generation.
type Options struct {
	// TargetColorSpace is the working space colors are converted into.
	TargetColorSpace string

	// TargetDistanceUnit is the unit distance inputs are converted into.
	TargetDistanceUnit string

	// FileTextureVerticalFlip flips the V coordinate of texture lookups.
	FileTextureVerticalFlip bool
}

// DefaultOptions returns linear Rec.709, meters, and flipped texture lookups.
func DefaultOptions() Options {
	return Options{
		TargetColorSpace:        color.LinRec709,
		TargetDistanceUnit:      "meter",
		FileTextureVerticalFlip: true,
	}
}

// Context carries everything a generator needs besides the element: the
// document with its libraries imported, the file system implementation
// sources are read from, and the color and unit systems.
type Context struct {
	Document *mtlx.Document
	Library  fs.FS
	Options  Options
	Color    color.ManagementSystem
	Units    *mtlx.UnitConverterRegistry
}

// NewContext returns a context using the default color management system and
// the unit definitions found in doc.
func NewContext(doc *mtlx.Document, library fs.FS, opts Options) *Context {
	return &Context{
		Document: doc,
		Library:  library,
		Options:  opts,
		Color:    color.NewDefaultSystem(),
		Units:    mtlx.LoadUnitConverters(doc),
	}
}

// Stage is the source code of one shader stage.
type Stage struct {
	Name   string
	Source string
}

// Shader is the result of generating code for one element.
type Shader struct {
	Name     string
	Target   string
	Stages   map[string]*Stage
	Warnings []string
}

// SourceCode returns the source of the named stage, or "".
func (s *Shader) SourceCode(stage string) string {
	if st, ok := s.Stages[stage]; ok {
		return st.Source
	}
	return ""
}

// Generator produces shader source for one target.
type Generator interface {
	// Target is the implementation target name, e.g. "genosl".
	Target() string
	// Language is the shading language name, e.g. "osl".
	Language() string
	Generate(name string, e *mtlx.Element, ctx *Context) (*Shader, error)
}

// Registry maps target names to generators. It is safe for concurrent use.
type Registry struct {
	mu   sync.RWMutex
	gens map[string]Generator
}

// NewRegistry returns a registry holding gens.
func NewRegistry(gens ...Generator) *Registry {
	r := &Registry{gens: make(map[string]Generator)}
	for _, g := range gens {
		r.Register(g)
	}
	return r
}

// Register adds g, replacing any generator for the same target.
func (r *Registry) Register(g Generator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gens[g.Target()] = g
}

// Lookup returns the generator for target.
func (r *Registry) Lookup(target string) (Generator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.gens[target]
	if !ok {
		return nil, fmt.Errorf("%w %q (available: %v)", ErrUnknownTarget, target, slices.Sorted(maps.Keys(r.gens)))
	}
	return g, nil
}

// Targets returns the registered target names, sorted.
func (r *Registry) Targets() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.gens))
}
