// Package osl generates Open Shading Language shaders from MaterialX
// elements.
package osl

import (
	"fmt"

	"github.com/matzehuels/mtlxgen/pkg/mtlx"
	"github.com/matzehuels/mtlxgen/pkg/shadergen"
)

const (
	// Target is the implementation target the generator reads.
	Target = "genosl"
	// Language is the shading language name.
	Language = "osl"
)

// Generator writes a single OSL shader whose output parameter is named "out".
type Generator struct{}

// New returns an OSL generator.
func New() *Generator { return &Generator{} }

func (*Generator) Target() string   { return Target }
func (*Generator) Language() string { return Language }

// Generate compiles e and writes the shader source into the pixel stage.
func (g *Generator) Generate(name string, e *mtlx.Element, ctx *shadergen.Context) (*shadergen.Shader, error) {
	syn := syntax{}
	namer := shadergen.NewNamer(syn.Keywords())
	namer.Reserve("out")
	shaderName := namer.Name(name)
	graph, err := shadergen.Compile(shaderName, e, Target, Language, syn, ctx, shaderName, "out")
	if err != nil {
		return nil, err
	}

	w := &shadergen.Writer{}
	w.Line("// Generated by mtlxgen from %s", e.NamePath())
	w.Line("// Target: %s, color space: %s, distance unit: %s",
		Target, ctx.Options.TargetColorSpace, ctx.Options.TargetDistanceUnit)
	w.Line("")
	writePreamble(w, graph, ctx.Options)

	w.Line("shader %s(", shaderName)
	w.Push()
	for _, p := range graph.Params {
		decl := fmt.Sprintf("%s %s = %s", syn.TypeName(p.Type), p.Name, p.Value)
		if p.Type == mtlx.TypeFilename {
			decl += ` [[ string widget = "filename" ]]`
		}
		w.Line("%s,", decl)
	}
	w.Line("output %s out = %s", syn.TypeName(graph.OutputType), syn.DefaultValue(graph.OutputType))
	w.Pop()
	w.Line(")")
	w.Line("{")
	w.Push()
	for _, inst := range graph.Nodes {
		if err := shadergen.WriteNode(w, syn, inst); err != nil {
			return nil, err
		}
	}
	w.Line("out = %s;", graph.OutputVar)
	w.Pop()
	w.Line("}")

	return &shadergen.Shader{
		Name:   shaderName,
		Target: Target,
		Stages: map[string]*shadergen.Stage{
			shadergen.PixelStage: {Name: shadergen.PixelStage, Source: w.String()},
		},
		Warnings: graph.Warnings,
	}, nil
}

// writePreamble declares the struct types OSL lacks, the texture coordinate
// helper and every helper function the graph needs.
func writePreamble(w *shadergen.Writer, graph *shadergen.Graph, opts shadergen.Options) {
	used := usedTypes(graph)
	if used[mtlx.TypeVector2] || graph.HasFunctionFiles() {
		w.Block("struct vector2\n{\n    float x;\n    float y;\n};")
	}
	if used[mtlx.TypeVector4] {
		w.Block("struct vector4\n{\n    float x;\n    float y;\n    float z;\n    float w;\n};")
	}
	if used[mtlx.TypeColor4] {
		w.Block("struct color4\n{\n    color rgb;\n    float a;\n};")
	}
	if graph.HasFunctionFiles() {
		body := "    return texcoord;"
		if opts.FileTextureVerticalFlip {
			body = "    return vector2(texcoord.x, 1.0 - texcoord.y);"
		}
		w.Block("vector2 mx_transform_uv(vector2 texcoord)\n{\n" + body + "\n}")
	}
	for _, fn := range graph.Transforms {
		w.Block(fn.Source)
	}
	for _, fn := range graph.Functions {
		w.Block(fn.Source)
	}
}

func usedTypes(graph *shadergen.Graph) map[string]bool {
	used := make(map[string]bool)
	for _, p := range graph.Params {
		used[p.Type] = true
	}
	for _, inst := range graph.Nodes {
		used[inst.Type] = true
		for _, a := range inst.Args {
			used[a.Type] = true
		}
	}
	return used
}
