// Package glsl generates GLSL 4.00 fragment shaders from MaterialX elements.
//
// The generated stage reads texcoord_0, position_object and normal_world
// from the vertex stage and writes a single vec4 named out1. Filename inputs
// become sampler2D uniforms; string inputs have no GLSL representation and
// are left out.
package glsl

import (
	"fmt"

	"github.com/matzehuels/mtlxgen/pkg/mtlx"
	"github.com/matzehuels/mtlxgen/pkg/shadergen"
)

const (
	// Target is the implementation target the generator reads.
	Target = "genglsl"
	// Language is the shading language name.
	Language = "glsl"
	// Version is the #version directive of generated shaders.
	Version = "400"
)

// Generator writes a GLSL pixel stage.
type Generator struct{}

// New returns a GLSL generator.
func New() *Generator { return &Generator{} }

func (*Generator) Target() string   { return Target }
func (*Generator) Language() string { return Language }

// Generate compiles e and writes the fragment source into the pixel stage.
func (g *Generator) Generate(name string, e *mtlx.Element, ctx *shadergen.Context) (*shadergen.Shader, error) {
	syn := syntax{}
	shaderName := shadergen.NewNamer(syn.Keywords()).Name(name)
	graph, err := shadergen.Compile(shaderName, e, Target, Language, syn, ctx, shaderName)
	if err != nil {
		return nil, err
	}
	result, err := outputExpr(graph)
	if err != nil {
		return nil, err
	}

	w := &shadergen.Writer{}
	w.Line("#version %s", Version)
	w.Line("")
	w.Line("// Generated by mtlxgen from %s", e.NamePath())
	w.Line("// Target: %s, color space: %s, distance unit: %s",
		Target, ctx.Options.TargetColorSpace, ctx.Options.TargetDistanceUnit)
	w.Line("")
	w.Block("struct surfaceshader\n{\n    vec3 color;\n    vec3 transparency;\n};")

	w.Line("in vec2 %s;", inTexcoord)
	w.Line("in vec3 %s;", inPosition)
	w.Line("in vec3 %s;", inNormal)
	w.Line("")
	for _, p := range graph.Params {
		if p.Type == mtlx.TypeFilename {
			w.Line("uniform sampler2D %s; // %s", p.Name, p.Raw)
			continue
		}
		w.Line("uniform %s %s = %s;", syn.TypeName(p.Type), p.Name, p.Value)
	}
	if len(graph.Params) > 0 {
		w.Line("")
	}
	w.Line("out vec4 %s;", outColor)
	w.Line("")

	if graph.HasFunctionFiles() {
		body := "    return texcoord;"
		if ctx.Options.FileTextureVerticalFlip {
			body = "    return vec2(texcoord.x, 1.0 - texcoord.y);"
		}
		w.Block("vec2 mx_transform_uv(vec2 texcoord)\n{\n" + body + "\n}")
	}
	for _, fn := range graph.Transforms {
		w.Block(fn.Source)
	}
	for _, fn := range graph.Functions {
		w.Block(fn.Source)
	}

	w.Line("void main()")
	w.Line("{")
	w.Push()
	for _, inst := range graph.Nodes {
		if err := shadergen.WriteNode(w, syn, inst); err != nil {
			return nil, err
		}
	}
	w.Line("%s = %s;", outColor, result)
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

// outputExpr widens the graph output to the vec4 written by the stage.
func outputExpr(graph *shadergen.Graph) (string, error) {
	v := graph.OutputVar
	switch graph.OutputType {
	case mtlx.TypeSurfaceShader, mtlx.TypeMaterial:
		return fmt.Sprintf("vec4(%s.color, 1.0 - dot(%s.transparency, vec3(1.0 / 3.0)))", v, v), nil
	case mtlx.TypeColor3, mtlx.TypeVector3:
		return fmt.Sprintf("vec4(%s, 1.0)", v), nil
	case mtlx.TypeColor4, mtlx.TypeVector4:
		return v, nil
	case mtlx.TypeVector2:
		return fmt.Sprintf("vec4(%s, 0.0, 1.0)", v), nil
	case mtlx.TypeFloat:
		return fmt.Sprintf("vec4(vec3(%s), 1.0)", v), nil
	case mtlx.TypeInteger, mtlx.TypeBoolean:
		return fmt.Sprintf("vec4(vec3(float(%s)), 1.0)", v), nil
	}
	return "", fmt.Errorf("%w: output type %s in %s", shadergen.ErrUnsupported, graph.OutputType, Language)
}
