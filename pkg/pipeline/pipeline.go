// Package pipeline provides the shader generation pipeline for mtlxgen.
//
// The pipeline is shared by the CLI and the HTTP server so that both load,
// validate and generate in exactly the same way.
//
// # Architecture
//
// The pipeline consists of three stages:
//
//  1. Load: Load the node libraries, read the document and import the
//     libraries into it
//  2. Validate: Check the document; problems are reported, never fatal
//  3. Generate: Pick the renderable elements and generate one shader each
//
// # Usage
//
// Create a Runner and execute the pipeline:
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	result, err := runner.Execute(ctx, pipeline.Options{
//	    Input:             "wood.mtlx",
//	    LibrarySearchPath: "builtin",
//	    Target:            "genosl",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	src := result.Shaders[0].Source
//
// Run individual stages:
//
//	loaded, err := runner.Load(ctx, opts)
//	valid, msg, _ := runner.Validate(ctx, loaded)
//	shaders, _, err := runner.Generate(ctx, loaded, opts)
package pipeline

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/mtlxgen/pkg/cache"
	"github.com/matzehuels/mtlxgen/pkg/color"
	"github.com/matzehuels/mtlxgen/pkg/errors"
	"github.com/matzehuels/mtlxgen/pkg/mtlx"
	"github.com/matzehuels/mtlxgen/pkg/shadergen"
	"github.com/matzehuels/mtlxgen/pkg/shadergen/glsl"
	"github.com/matzehuels/mtlxgen/pkg/shadergen/osl"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and API
// =============================================================================

const (
	// DefaultTarget is the implementation target generated when none is
	// requested.
	DefaultTarget = osl.Target

	// DefaultColorSpace is the working color space of generated shaders.
	DefaultColorSpace = color.LinRec709

	// DefaultDistanceUnit is the unit distance inputs are converted into.
	DefaultDistanceUnit = "meter"
)

// ValidTargets is the set of supported implementation targets.
var ValidTargets = map[string]bool{
	osl.Target:  true,
	glsl.Target: true,
}

// fileExtensions maps targets to the extension of written shader files.
var fileExtensions = map[string]string{
	osl.Target:  ".osl",
	glsl.Target: ".glsl",
}

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for the generation pipeline.
// This struct supports JSON serialization for API requests.
type Options struct {
	// Input is the path of the document on disk. Ignored when Document is
	// set.
	Input string `json:"-"`

	// Document holds the document source for in-memory runs (the API).
	Document []byte `json:"-"`

	// DocumentName names an in-memory document in messages.
	DocumentName string `json:"document_name,omitempty"`

	// LibrarySearchPath lists library roots separated by the OS path list
	// separator; "builtin" is the embedded library.
	LibrarySearchPath string `json:"-"`

	// LibraryFolders are searched for *.mtlx files below every root.
	LibraryFolders []string `json:"library_folders,omitempty"`

	// Generation options
	Target             string `json:"target,omitempty"`
	Element            string `json:"element,omitempty"`
	AllElements        bool   `json:"all,omitempty"`
	ExpandUDIM         bool   `json:"udim,omitempty"`
	TargetColorSpace   string `json:"color_space,omitempty"`
	TargetDistanceUnit string `json:"distance_unit,omitempty"`
	NoVerticalFlip     bool   `json:"no_vertical_flip,omitempty"`
	Refresh            bool   `json:"refresh,omitempty"`

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool `json:"-"`
}

// Artifact is one generated shader.
type Artifact struct {
	// Element is the name path of the renderable element.
	Element string `json:"element"`

	// Tile is the UDIM tile the shader was generated for, if any.
	Tile string `json:"tile,omitempty"`

	// Name is the shader name.
	Name string `json:"name"`

	// FileName is the suggested output file name.
	FileName string `json:"file_name"`

	// Source is the pixel stage source.
	Source string `json:"source"`

	// Warnings lists non-fatal generation problems, such as unsupported
	// color spaces.
	Warnings []string `json:"warnings,omitempty"`
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// Document is the base name of the processed document.
	Document string

	// Valid reports whether validation passed.
	Valid bool

	// Warnings is the validation message; empty when Valid.
	Warnings string

	// Shaders are the generated shaders in renderable order.
	Shaders []Artifact

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	ElementCount int
	ShaderCount  int
	LoadTime     time.Duration
	ValidateTime time.Duration
	GenerateTime time.Duration
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	ValidateHit bool // Whether the validation report came from cache
	GenerateHit bool // Whether the shaders came from cache
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateTarget checks that a target is supported.
func ValidateTarget(target string) error {
	if !ValidTargets[target] {
		return errors.New(errors.ErrCodeInvalidTarget,
			"invalid target: %q (must be one of: %s)", target, strings.Join(Targets(), ", "))
	}
	return nil
}

// Targets returns the supported targets, sorted.
func Targets() []string {
	out := make([]string, 0, len(ValidTargets))
	for t := range ValidTargets {
		out = append(out, t)
	}
	slices.Sort(out)
	return out
}

// FileExtension returns the extension of shader files for target.
func FileExtension(target string) string {
	if ext, ok := fileExtensions[target]; ok {
		return ext
	}
	return ".txt"
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks required fields and applies defaults.
// This method is idempotent - calling it multiple times has the same effect as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.Input == "" && o.Document == nil {
		return errors.New(errors.ErrCodeInvalidInput, "input file or document is required")
	}
	if o.Target == "" {
		o.Target = DefaultTarget
	}
	if err := ValidateTarget(o.Target); err != nil {
		return err
	}
	if o.Element != "" {
		for _, part := range strings.Split(o.Element, "/") {
			if err := errors.ValidateElementName(part); err != nil {
				return err
			}
		}
	}
	if o.LibrarySearchPath == "" {
		o.LibrarySearchPath = mtlx.BuiltinSearchPath
	}
	if len(o.LibraryFolders) == 0 {
		o.LibraryFolders = slices.Clone(mtlx.DefaultLibraryFolders)
	}
	if o.TargetColorSpace == "" {
		o.TargetColorSpace = DefaultColorSpace
	}
	if o.TargetDistanceUnit == "" {
		o.TargetDistanceUnit = DefaultDistanceUnit
	}
	if o.DocumentName == "" {
		o.DocumentName = "document.mtlx"
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	o.validated = true
	return nil
}

// ShaderOptions returns the code generation options.
func (o *Options) ShaderOptions() shadergen.Options {
	return shadergen.Options{
		TargetColorSpace:        o.TargetColorSpace,
		TargetDistanceUnit:      o.TargetDistanceUnit,
		FileTextureVerticalFlip: !o.NoVerticalFlip,
	}
}

// ShaderKeyOpts returns cache key options for generated shaders.
func (o *Options) ShaderKeyOpts() cache.ShaderKeyOpts {
	return cache.ShaderKeyOpts{
		Target:         o.Target,
		Element:        o.Element,
		All:            o.AllElements,
		UDIM:           o.ExpandUDIM,
		ColorSpace:     o.TargetColorSpace,
		DistanceUnit:   o.TargetDistanceUnit,
		NoVerticalFlip: o.NoVerticalFlip,
	}
}

// String summarises the options for log lines.
func (o *Options) String() string {
	return fmt.Sprintf("target=%s element=%q all=%t udim=%t", o.Target, o.Element, o.AllElements, o.ExpandUDIM)
}
