package glsl

import (
	"fmt"
	"strconv"

	"github.com/matzehuels/mtlxgen/pkg/mtlx"
	"github.com/matzehuels/mtlxgen/pkg/shadergen"
)

// Vertex data the pixel stage reads.
const (
	inTexcoord = "texcoord_0"
	inPosition = "position_object"
	inNormal   = "normal_world"
	outColor   = "out1"
)

// glslKeywords covers the reserved words a node or parameter name is likely
// to hit, plus the names the generated stage declares itself.
var glslKeywords = []string{
	"void", "bool", "int", "uint", "float", "double",
	"vec2", "vec3", "vec4", "ivec2", "ivec3", "ivec4", "bvec2", "bvec3", "bvec4",
	"mat2", "mat3", "mat4", "sampler2D", "samplerCube",
	"attribute", "const", "uniform", "varying", "buffer", "shared", "layout",
	"centroid", "flat", "smooth", "noperspective", "patch", "sample",
	"break", "continue", "do", "for", "while", "switch", "case", "default",
	"if", "else", "subroutine", "in", "out", "inout", "true", "false",
	"invariant", "precise", "discard", "return", "struct", "precision",
	"highp", "mediump", "lowp", "input", "output", "texture", "main",
	"surfaceshader", inTexcoord, inPosition, inNormal, outColor,
}

type syntax struct{}

func (syntax) Keywords() []string { return glslKeywords }

// TypeName returns "" for strings: GLSL has no string type, so string inputs
// are dropped from function calls.
func (syntax) TypeName(typ string) string {
	switch typ {
	case mtlx.TypeFloat:
		return "float"
	case mtlx.TypeInteger:
		return "int"
	case mtlx.TypeBoolean:
		return "bool"
	case mtlx.TypeColor3, mtlx.TypeVector3:
		return "vec3"
	case mtlx.TypeColor4, mtlx.TypeVector4:
		return "vec4"
	case mtlx.TypeVector2:
		return "vec2"
	case mtlx.TypeMatrix33:
		return "mat3"
	case mtlx.TypeMatrix44:
		return "mat4"
	case mtlx.TypeFilename:
		return "sampler2D"
	case mtlx.TypeSurfaceShader, mtlx.TypeMaterial:
		return "surfaceshader"
	}
	return ""
}

func (syntax) DefaultValue(typ string) string {
	switch typ {
	case mtlx.TypeFloat:
		return "0.0"
	case mtlx.TypeInteger:
		return "0"
	case mtlx.TypeBoolean:
		return "false"
	case mtlx.TypeColor3, mtlx.TypeVector3:
		return "vec3(0.0)"
	case mtlx.TypeColor4, mtlx.TypeVector4:
		return "vec4(0.0)"
	case mtlx.TypeVector2:
		return "vec2(0.0)"
	case mtlx.TypeMatrix33:
		return "mat3(1.0)"
	case mtlx.TypeMatrix44:
		return "mat4(1.0)"
	case mtlx.TypeSurfaceShader, mtlx.TypeMaterial:
		return "surfaceshader(vec3(0.0), vec3(0.0))"
	}
	return `""`
}

func (s syntax) Literal(v mtlx.Value) string {
	d := v.Data
	switch v.Type {
	case mtlx.TypeFloat:
		return shadergen.FormatFloat(d[0])
	case mtlx.TypeInteger:
		return strconv.Itoa(int(d[0]))
	case mtlx.TypeBoolean:
		return strconv.FormatBool(d[0] != 0)
	case mtlx.TypeColor3, mtlx.TypeVector3:
		return fmt.Sprintf("vec3(%s)", shadergen.FormatFloats(d))
	case mtlx.TypeColor4, mtlx.TypeVector4:
		return fmt.Sprintf("vec4(%s)", shadergen.FormatFloats(d))
	case mtlx.TypeVector2:
		return fmt.Sprintf("vec2(%s)", shadergen.FormatFloats(d))
	case mtlx.TypeMatrix33:
		return fmt.Sprintf("mat3(%s)", shadergen.FormatFloats(d))
	case mtlx.TypeMatrix44:
		return fmt.Sprintf("mat4(%s)", shadergen.FormatFloats(d))
	case mtlx.TypeString, mtlx.TypeFilename:
		return strconv.Quote(v.Str)
	}
	return s.DefaultValue(v.Type)
}

func (syntax) GeomProp(name string) (string, bool) {
	switch name {
	case "UV0":
		return inTexcoord, true
	case "Nworld":
		return "normalize(" + inNormal + ")", true
	case "Pobject":
		return inPosition, true
	}
	return "", false
}
