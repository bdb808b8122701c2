package pipeline

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"github.com/matzehuels/mtlxgen/pkg/errors"
	"github.com/matzehuels/mtlxgen/pkg/mtlx"
	"github.com/matzehuels/mtlxgen/pkg/observability"
	"github.com/matzehuels/mtlxgen/pkg/shadergen"
	"github.com/matzehuels/mtlxgen/pkg/udim"
)

// Renderables returns the elements a run with opts generates shaders for:
// the element named by opts.Element, else every renderable element when
// opts.AllElements is set, else the first one.
func Renderables(doc *mtlx.Document, opts Options) ([]*mtlx.Element, error) {
	if opts.Element != "" {
		e := doc.Descendant(opts.Element)
		if e == nil || doc.IsLibraryElement(e) {
			return nil, errors.New(errors.ErrCodeInvalidElement, "element not found: %s", opts.Element)
		}
		return []*mtlx.Element{e}, nil
	}
	found := mtlx.FindRenderableElements(doc)
	if len(found) == 0 {
		return nil, errors.New(errors.ErrCodeNoRenderable, "no renderable elements found")
	}
	if !opts.AllElements {
		return found[:1], nil
	}
	return found, nil
}

// job is one shader to generate.
type job struct {
	doc  *mtlx.Document
	tile string
}

func (r *Runner) generate(ctx context.Context, loaded *Loaded, opts Options) ([]Artifact, error) {
	gen, err := r.Generators.Lookup(opts.Target)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidTarget, err, "lookup generator")
	}

	jobs := []job{{doc: loaded.Document}}
	if opts.ExpandUDIM {
		tiles, err := udim.Expand(loaded.Document)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidDocument, err, "expand udims")
		}
		jobs = jobs[:0]
		for _, t := range tiles {
			jobs = append(jobs, job{doc: t.Document, tile: t.UDIM})
		}
		opts.Logger.Debug("expanded udims", "tiles", len(tiles))
	}

	var out []Artifact
	for _, j := range jobs {
		elems, err := Renderables(j.doc, opts)
		if err != nil {
			return nil, err
		}
		sctx := shadergen.NewContext(j.doc, loaded.Library, opts.ShaderOptions())
		for _, e := range elems {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			a, err := generateOne(ctx, gen, sctx, e, j.tile)
			if err != nil {
				return nil, err
			}
			for _, w := range a.Warnings {
				opts.Logger.Warn(w, "element", a.Element)
			}
			out = append(out, a)
		}
	}
	return out, nil
}

func generateOne(ctx context.Context, gen shadergen.Generator, sctx *shadergen.Context, e *mtlx.Element, tile string) (a Artifact, err error) {
	path := e.NamePath()
	start := time.Now()
	observability.Pipeline().OnGenerateStart(ctx, gen.Target(), path)
	defer func() {
		observability.Pipeline().OnGenerateComplete(ctx, gen.Target(), path, time.Since(start), err)
	}()

	name := e.Name()
	if tile != "" {
		name = udim.ShaderName(name, tile)
	}
	shader, err := gen.Generate(name, e, sctx)
	if err != nil {
		return Artifact{}, generationError(err, path)
	}

	base := strings.ReplaceAll(path, "/", "_")
	if tile != "" {
		base = udim.ShaderName(base, tile)
	}
	return Artifact{
		Element:  path,
		Tile:     tile,
		Name:     shader.Name,
		FileName: base + FileExtension(gen.Target()),
		Source:   shader.SourceCode(shadergen.PixelStage),
		Warnings: shader.Warnings,
	}, nil
}

// generationError attaches a code to a generator failure.
func generationError(err error, element string) error {
	switch {
	case stderrors.Is(err, shadergen.ErrUnknownTarget):
		return errors.Wrap(errors.ErrCodeInvalidTarget, err, "generate %s", element)
	case stderrors.Is(err, shadergen.ErrCycle),
		stderrors.Is(err, shadergen.ErrBrokenReference),
		stderrors.Is(err, shadergen.ErrNoNodeDef),
		stderrors.Is(err, mtlx.ErrInvalidValue),
		stderrors.Is(err, mtlx.ErrUnknownType):
		return errors.Wrap(errors.ErrCodeInvalidDocument, err, "generate %s", element)
	default:
		return errors.Wrap(errors.ErrCodeUnsupported, err, "generate %s", element)
	}
}
