package osl

import (
	"fmt"
	"strconv"

	"github.com/matzehuels/mtlxgen/pkg/mtlx"
	"github.com/matzehuels/mtlxgen/pkg/shadergen"
)

// oslKeywords are reserved words, type names and shader globals.
var oslKeywords = []string{
	"and", "break", "closure", "color", "continue", "do", "else", "emit",
	"float", "for", "if", "illuminance", "illuminate", "int", "matrix",
	"normal", "not", "or", "output", "point", "public", "return", "string",
	"struct", "vector", "void", "while", "shader", "surface", "displacement",
	"volume", "true", "false",
	"P", "N", "Ng", "I", "u", "v", "s", "t", "dPdu", "dPdv", "Ci", "Ps",
	"time", "dtime", "dPdtime",
	"vector2", "vector4", "color4",
}

type syntax struct{}

func (syntax) Keywords() []string { return oslKeywords }

func (syntax) TypeName(typ string) string {
	switch typ {
	case mtlx.TypeFloat:
		return "float"
	case mtlx.TypeInteger, mtlx.TypeBoolean:
		return "int"
	case mtlx.TypeColor3:
		return "color"
	case mtlx.TypeColor4:
		return "color4"
	case mtlx.TypeVector2:
		return "vector2"
	case mtlx.TypeVector3:
		return "vector"
	case mtlx.TypeVector4:
		return "vector4"
	case mtlx.TypeMatrix44:
		return "matrix"
	case mtlx.TypeString, mtlx.TypeFilename:
		return "string"
	}
	if mtlx.IsShaderType(typ) {
		return "closure color"
	}
	return ""
}

func (syntax) DefaultValue(typ string) string {
	switch typ {
	case mtlx.TypeFloat:
		return "0.0"
	case mtlx.TypeInteger, mtlx.TypeBoolean:
		return "0"
	case mtlx.TypeColor3:
		return "color(0.0)"
	case mtlx.TypeColor4:
		return "color4(color(0.0), 0.0)"
	case mtlx.TypeVector2:
		return "vector2(0.0, 0.0)"
	case mtlx.TypeVector3:
		return "vector(0.0)"
	case mtlx.TypeVector4:
		return "vector4(0.0, 0.0, 0.0, 0.0)"
	case mtlx.TypeMatrix44:
		return "matrix(1.0)"
	case mtlx.TypeString, mtlx.TypeFilename:
		return `""`
	}
	return "0"
}

func (s syntax) Literal(v mtlx.Value) string {
	d := v.Data
	switch v.Type {
	case mtlx.TypeFloat:
		return shadergen.FormatFloat(d[0])
	case mtlx.TypeInteger, mtlx.TypeBoolean:
		return strconv.Itoa(int(d[0]))
	case mtlx.TypeColor3:
		return fmt.Sprintf("color(%s)", shadergen.FormatFloats(d))
	case mtlx.TypeColor4:
		return fmt.Sprintf("color4(color(%s), %s)", shadergen.FormatFloats(d[:3]), shadergen.FormatFloat(d[3]))
	case mtlx.TypeVector2:
		return fmt.Sprintf("vector2(%s)", shadergen.FormatFloats(d))
	case mtlx.TypeVector3:
		return fmt.Sprintf("vector(%s)", shadergen.FormatFloats(d))
	case mtlx.TypeVector4:
		return fmt.Sprintf("vector4(%s)", shadergen.FormatFloats(d))
	case mtlx.TypeMatrix44:
		return fmt.Sprintf("matrix(%s)", shadergen.FormatFloats(d))
	case mtlx.TypeString, mtlx.TypeFilename:
		return strconv.Quote(v.Str)
	}
	return s.DefaultValue(v.Type)
}

func (syntax) GeomProp(name string) (string, bool) {
	switch name {
	case "UV0":
		return "vector2(u, v)", true
	case "Nworld":
		return `transform("world", N)`, true
	case "Pobject":
		return `transform("object", P)`, true
	}
	return "", false
}
