// Package color implements the color-management step of shader generation:
// converting literal colors between color spaces and emitting the transform
// functions generated shaders call on texture lookups.
package color

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
)

// Color space names.
const (
	SRGBTexture = "srgb_texture"
	LinRec709   = "lin_rec709"
	G22Rec709   = "g22_rec709"
	G18Rec709   = "g18_rec709"
	ACEScg      = "acescg"
	LinAP1      = "lin_ap1"
	AdobeRGB    = "adobergb"
	LinAdobeRGB = "lin_adobergb"
)

// Shading languages FunctionSource can emit.
const (
	LangOSL  = "osl"
	LangGLSL = "glsl"
)

// ErrUnsupported is returned for transforms the system cannot perform.
var ErrUnsupported = errors.New("unsupported color transform")

// ManagementSystem converts between color spaces.
type ManagementSystem interface {
	Name() string
	Supports(src, dst string) bool
	TransformValue(src, dst string, rgb [3]float64) ([3]float64, error)
	FunctionName(src, dst string) string
	FunctionSource(lang, src, dst string) (string, error)
}

type curve int

const (
	curveLinear curve = iota
	curveSRGB
	curveGamma
)

type space struct {
	curve curve
	gamma float64
	// toRec709 maps linear values in the space's primaries to Rec.709
	// primaries. Nil means the space already uses Rec.709 primaries.
	toRec709 *[3][3]float64
}

var ap1ToRec709 = [3][3]float64{
	{1.705079555511475, -0.6242345571517944, -0.0808449387550354},
	{-0.1297005265951157, 1.138468623161316, -0.008768278360366821},
	{-0.02416634373366833, -0.1246141716837883, 1.148780584335327},
}

var adobeToRec709 = [3][3]float64{
	{1.39835574, -0.39835574, 0},
	{0, 1, 0},
	{0, -0.0429206, 1.0429206},
}

var spaces = map[string]space{
	SRGBTexture: {curve: curveSRGB},
	LinRec709:   {curve: curveLinear},
	G22Rec709:   {curve: curveGamma, gamma: 2.2},
	G18Rec709:   {curve: curveGamma, gamma: 1.8},
	ACEScg:      {curve: curveLinear, toRec709: &ap1ToRec709},
	LinAP1:      {curve: curveLinear, toRec709: &ap1ToRec709},
	AdobeRGB:    {curve: curveGamma, gamma: 563.0 / 256.0, toRec709: &adobeToRec709},
	LinAdobeRGB: {curve: curveLinear, toRec709: &adobeToRec709},
}

// DefaultSystem transforms the common texture and working spaces into
// linear Rec.709.
type DefaultSystem struct{}

// NewDefaultSystem returns the default color management system.
func NewDefaultSystem() *DefaultSystem { return &DefaultSystem{} }

// Name identifies the system in generated code.
func (*DefaultSystem) Name() string { return "default_cms" }

// SourceSpaces lists the spaces the system converts from, sorted.
func (*DefaultSystem) SourceSpaces() []string {
	out := make([]string, 0, len(spaces))
	for name := range spaces {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

// Supports reports whether src can be converted to dst. A space always
// converts to itself.
func (*DefaultSystem) Supports(src, dst string) bool {
	if src == dst {
		return true
	}
	_, ok := spaces[src]
	return ok && dst == LinRec709
}

// TransformValue converts one RGB triple.
func (s *DefaultSystem) TransformValue(src, dst string, rgb [3]float64) ([3]float64, error) {
	if src == dst {
		return rgb, nil
	}
	if !s.Supports(src, dst) {
		return rgb, fmt.Errorf("%w: %s to %s", ErrUnsupported, src, dst)
	}
	sp := spaces[src]
	var lin [3]float64
	for i, c := range rgb {
		lin[i] = sp.decode(c)
	}
	if sp.toRec709 == nil {
		return lin, nil
	}
	m := sp.toRec709
	var out [3]float64
	for r := range 3 {
		out[r] = m[r][0]*lin[0] + m[r][1]*lin[1] + m[r][2]*lin[2]
	}
	return out, nil
}

func (sp space) decode(c float64) float64 {
	switch sp.curve {
	case curveSRGB:
		if c <= 0.04045 {
			return c / 12.92
		}
		return math.Pow((c+0.055)/1.055, 2.4)
	case curveGamma:
		return math.Pow(math.Max(c, 0), sp.gamma)
	}
	return c
}

// FunctionName returns the name of the shader function that converts src to
// dst, or "" when no conversion is needed.
func (*DefaultSystem) FunctionName(src, dst string) string {
	if src == dst {
		return ""
	}
	return "mx_" + src + "_to_" + dst
}

// FunctionSource returns the shader source of the transform function in the
// given language.
func (s *DefaultSystem) FunctionSource(lang, src, dst string) (string, error) {
	if src == dst {
		return "", nil
	}
	if !s.Supports(src, dst) {
		return "", fmt.Errorf("%w: %s to %s", ErrUnsupported, src, dst)
	}
	var typ string
	switch lang {
	case LangOSL:
		typ = "color"
	case LangGLSL:
		typ = "vec3"
	default:
		return "", fmt.Errorf("%w: language %q", ErrUnsupported, lang)
	}

	sp := spaces[src]
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s(%s c)\n{\n", typ, s.FunctionName(src, dst), typ)
	expr := "c"
	switch sp.curve {
	case curveSRGB:
		fmt.Fprintf(&b, "    %s linearSeg = c / 12.92;\n", typ)
		fmt.Fprintf(&b, "    %s powerSeg = pow(max(c + 0.055, %s(0.0)) / 1.055, %s(2.4));\n", typ, typ, typ)
		if lang == LangOSL {
			b.WriteString("    color lin = color(c[0] <= 0.04045 ? linearSeg[0] : powerSeg[0],\n")
			b.WriteString("                      c[1] <= 0.04045 ? linearSeg[1] : powerSeg[1],\n")
			b.WriteString("                      c[2] <= 0.04045 ? linearSeg[2] : powerSeg[2]);\n")
		} else {
			b.WriteString("    vec3 lin = mix(powerSeg, linearSeg, step(c, vec3(0.04045)));\n")
		}
		expr = "lin"
	case curveGamma:
		fmt.Fprintf(&b, "    %s lin = pow(max(c, %s(0.0)), %s(%s));\n", typ, typ, typ, formatFloat(sp.gamma))
		expr = "lin"
	}
	if m := sp.toRec709; m != nil {
		fmt.Fprintf(&b, "    return %s(\n", typ)
		for r := range 3 {
			sep := ","
			if r == 2 {
				sep = ");"
			}
			fmt.Fprintf(&b, "        %s * %s[0] + %s * %s[1] + %s * %s[2]%s\n",
				formatFloat(m[r][0]), expr, formatFloat(m[r][1]), expr, formatFloat(m[r][2]), expr, sep)
		}
	} else {
		fmt.Fprintf(&b, "    return %s;\n", expr)
	}
	b.WriteString("}\n")
	return b.String(), nil
}

// formatFloat prints f so that it always reads as a floating-point literal.
func formatFloat(f float64) string {
	s := fmt.Sprintf("%g", f)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}
