package mtlx

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Data types understood by the document model.
const (
	TypeFloat         = "float"
	TypeInteger       = "integer"
	TypeBoolean       = "boolean"
	TypeColor3        = "color3"
	TypeColor4        = "color4"
	TypeVector2       = "vector2"
	TypeVector3       = "vector3"
	TypeVector4       = "vector4"
	TypeMatrix33      = "matrix33"
	TypeMatrix44      = "matrix44"
	TypeString        = "string"
	TypeFilename      = "filename"
	TypeStringArray   = "stringarray"
	TypeSurfaceShader = "surfaceshader"
	TypeDisplacement  = "displacementshader"
	TypeVolumeShader  = "volumeshader"
	TypeLightShader   = "lightshader"
	TypeMaterial      = "material"
	TypeMultiOutput   = "multioutput"
)

var (
	// ErrInvalidValue is returned by ParseValue when a value string does not
	// match its declared type.
	ErrInvalidValue = errors.New("invalid value")

	// ErrUnknownType is returned by ParseValue for types without a value syntax.
	ErrUnknownType = errors.New("unknown type")
)

// componentCounts lists the number of numeric components for each numeric type.
var componentCounts = map[string]int{
	TypeFloat:    1,
	TypeInteger:  1,
	TypeBoolean:  1,
	TypeColor3:   3,
	TypeColor4:   4,
	TypeVector2:  2,
	TypeVector3:  3,
	TypeVector4:  4,
	TypeMatrix33: 9,
	TypeMatrix44: 16,
}

// shaderTypes have no literal values; they only flow through connections.
var shaderTypes = map[string]bool{
	TypeSurfaceShader: true,
	TypeDisplacement:  true,
	TypeVolumeShader:  true,
	TypeLightShader:   true,
	TypeMaterial:      true,
}

// Value is a parsed literal. Numeric types keep their components in Data
// (booleans as 0 or 1); string-like types keep the raw text in Str.
type Value struct {
	Type string
	Data []float64
	Str  string
}

// IsNumeric reports whether t is a numeric type with a fixed component count.
func IsNumeric(t string) bool {
	_, ok := componentCounts[t]
	return ok
}

// IsShaderType reports whether t is a closure-like shader or material type.
func IsShaderType(t string) bool { return shaderTypes[t] }

// IsColorType reports whether t is color3 or color4.
func IsColorType(t string) bool { return t == TypeColor3 || t == TypeColor4 }

// ComponentCount returns the number of numeric components of t, or 0 for
// non-numeric types.
func ComponentCount(t string) int { return componentCounts[t] }

// ParseValue parses a value string of the given type. Components of
// aggregate types are comma separated ("0.8, 0.8, 0.8").
func ParseValue(typ, s string) (Value, error) {
	switch typ {
	case TypeString, TypeFilename:
		return Value{Type: typ, Str: s}, nil
	case TypeStringArray:
		return Value{Type: typ, Str: strings.Join(SplitList(s), ",")}, nil
	case TypeBoolean:
		switch strings.TrimSpace(s) {
		case "true":
			return Value{Type: typ, Data: []float64{1}}, nil
		case "false":
			return Value{Type: typ, Data: []float64{0}}, nil
		}
		return Value{}, fmt.Errorf("%w: %q is not a boolean", ErrInvalidValue, s)
	case TypeInteger:
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return Value{}, fmt.Errorf("%w: %q is not an integer", ErrInvalidValue, s)
		}
		return Value{Type: typ, Data: []float64{float64(n)}}, nil
	}

	count, ok := componentCounts[typ]
	if !ok {
		return Value{}, fmt.Errorf("%w: %q", ErrUnknownType, typ)
	}
	parts := SplitList(s)
	if len(parts) != count {
		return Value{}, fmt.Errorf("%w: %s expects %d components, got %d in %q", ErrInvalidValue, typ, count, len(parts), s)
	}
	data := make([]float64, count)
	for i, p := range parts {
		f, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return Value{}, fmt.Errorf("%w: %q is not a number", ErrInvalidValue, p)
		}
		if math.IsInf(f, 0) || math.IsNaN(f) {
			return Value{}, fmt.Errorf("%w: %q is not finite", ErrInvalidValue, p)
		}
		data[i] = f
	}
	return Value{Type: typ, Data: data}, nil
}

// String formats v in document syntax.
func (v Value) String() string {
	switch v.Type {
	case TypeString, TypeFilename, TypeStringArray:
		return v.Str
	case TypeBoolean:
		if len(v.Data) == 1 && v.Data[0] != 0 {
			return "true"
		}
		return "false"
	}
	parts := make([]string, len(v.Data))
	for i, f := range v.Data {
		parts[i] = strconv.FormatFloat(f, 'g', -1, 64)
	}
	return strings.Join(parts, ", ")
}

// Scale returns a copy of v with every numeric component multiplied by f.
// Non-numeric values are returned unchanged.
func (v Value) Scale(f float64) Value {
	if len(v.Data) == 0 {
		return v
	}
	out := Value{Type: v.Type, Data: make([]float64, len(v.Data))}
	for i, d := range v.Data {
		out.Data[i] = d * f
	}
	return out
}

// SplitList splits a comma separated attribute value, trimming spaces and
// dropping empty entries.
func SplitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
