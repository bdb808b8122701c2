package shadergen

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/mtlxgen/pkg/mtlx"
	"github.com/matzehuels/mtlxgen/pkg/stdlib"
)

// testSyntax spells every type by its document name and formats numbers
// with four decimals.
type testSyntax struct{}

func (testSyntax) TypeName(typ string) string {
	if typ == mtlx.TypeString {
		return ""
	}
	return typ
}

func (testSyntax) DefaultValue(typ string) string { return typ + "()" }

func (testSyntax) Literal(v mtlx.Value) string {
	if v.Type == mtlx.TypeFilename || v.Type == mtlx.TypeString {
		return fmt.Sprintf("%q", v.Str)
	}
	parts := make([]string, len(v.Data))
	for i, f := range v.Data {
		parts[i] = fmt.Sprintf("%.4f", f)
	}
	return v.Type + "(" + strings.Join(parts, ", ") + ")"
}

func (testSyntax) GeomProp(name string) (string, bool) {
	if name == "UV0" || name == "Nworld" {
		return "geom_" + name, true
	}
	return "", false
}

func (testSyntax) Keywords() []string { return []string{"float", "in"} }

func loadDoc(t *testing.T, src string) *mtlx.Document {
	t.Helper()
	doc, err := mtlx.ReadBytes([]byte(src), "test.mtlx")
	if err != nil {
		t.Fatalf("ReadBytes: %v", err)
	}
	return withLibrary(t, doc)
}

func withLibrary(t *testing.T, doc *mtlx.Document) *mtlx.Document {
	t.Helper()
	lib, err := mtlx.LoadLibraries(stdlib.FS(), mtlx.DefaultLibraryFolders)
	if err != nil {
		t.Fatalf("LoadLibraries: %v", err)
	}
	doc.ImportLibrary(lib)
	return doc
}

func compileElement(t *testing.T, doc *mtlx.Document, name, target string) (*Graph, error) {
	t.Helper()
	e := doc.Descendant(name)
	if e == nil {
		t.Fatalf("element %s not found", name)
	}
	ctx := NewContext(doc, stdlib.FS(), DefaultOptions())
	return Compile("test", e, target, "osl", testSyntax{}, ctx)
}

func TestCompileWood(t *testing.T) {
	doc, err := mtlx.ReadFile("testdata/wood.mtlx")
	if err != nil {
		t.Fatal(err)
	}
	doc = withLibrary(t, doc)

	g, err := compileElement(t, doc, "M_wood", "genosl")
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	var order []string
	for _, n := range g.Nodes {
		order = append(order, n.Element.Name())
	}
	if diff := cmp.Diff([]string{"wood_tex", "tinted", "SR_wood", "M_wood"}, order); diff != "" {
		t.Errorf("node order (-want +got):\n%s", diff)
	}

	params := make(map[string]*Param)
	for _, p := range g.Params {
		params[p.Name] = p
	}
	if p := params["wood_tex_file"]; p == nil || p.Raw != "wood.png" || p.Value != `"wood.png"` {
		t.Errorf("wood_tex_file param = %+v", p)
	}
	if p := params["tint"]; p == nil || p.Value != "color3(1.0000, 0.9000, 0.8000)" || p.Path != "NG_wood/tint" {
		t.Errorf("tint param = %+v", p)
	}
	if p := params["specular_roughness"]; p == nil || p.Value != "float(0.5000)" || p.Path != "SR_wood/specular_roughness" {
		t.Errorf("specular_roughness param = %+v", p)
	}
	if p := params["base"]; p == nil {
		t.Error("unset surface input base is not published")
	}
	if _, ok := params["base_color"]; ok {
		t.Error("connected input base_color should not be published")
	}
	if _, ok := params["sr_wood_specular_roughness"]; ok {
		t.Error("surface inputs should keep their own names")
	}

	img := g.Nodes[0]
	if img.Kind != ImplFunction || img.Source != "mx_image_color3" {
		t.Errorf("image bound to %v %q", img.Kind, img.Source)
	}
	if img.PostCall != "mx_srgb_texture_to_lin_rec709" {
		t.Errorf("image PostCall = %q", img.PostCall)
	}
	if len(g.Transforms) != 1 || g.Transforms[0].Name != img.PostCall {
		t.Errorf("Transforms = %v", g.Transforms)
	}

	var files []string
	for _, fn := range g.Functions {
		files = append(files, fn.Name)
	}
	if diff := cmp.Diff([]string{"mx_image_color3", "mx_standard_surface"}, files); diff != "" {
		t.Errorf("functions (-want +got):\n%s", diff)
	}

	var texcoord, layer Arg
	for _, a := range img.Args {
		switch a.Name {
		case "texcoord":
			texcoord = a
		case "layer":
			layer = a
		}
	}
	if texcoord.Expr != "geom_UV0" {
		t.Errorf("texcoord expr = %q", texcoord.Expr)
	}
	if !layer.Omit {
		t.Error("string input should be omitted by a syntax without strings")
	}

	tinted := g.Nodes[1]
	got, err := Expand(tinted)
	if err != nil {
		t.Fatal(err)
	}
	if want := img.Var + " * tint"; got != want {
		t.Errorf("Expand(tinted) = %q, want %q", got, want)
	}
	if g.OutputType != mtlx.TypeMaterial || g.OutputVar != g.Nodes[3].Var {
		t.Errorf("output = %s %s", g.OutputType, g.OutputVar)
	}
}

func TestCompilePublishesRootInputs(t *testing.T) {
	doc := loadDoc(t, `<materialx version="1.38">
  <constant name="c" type="float"><input name="value" type="float" value="0.25" /></constant>
  <standard_surface name="srf" type="surfaceshader">
    <input name="base" type="float" nodename="c" />
    <input name="metalness" type="float" value="1.0" />
  </standard_surface>
</materialx>`)
	g, err := compileElement(t, doc, "srf", "genosl")
	if err != nil {
		t.Fatal(err)
	}
	names := make(map[string]string)
	for _, p := range g.Params {
		names[p.Name] = p.Value
	}
	if _, ok := names["base"]; ok {
		t.Error("connected input base should not be published")
	}
	if _, ok := names["normal"]; ok {
		t.Error("normal reads a geometric property and should not be published")
	}
	if got := names["metalness"]; got != "float(1.0000)" {
		t.Errorf("metalness = %q", got)
	}
	if got := names["specular_IOR"]; got == "" {
		t.Error("unset inputs should be published with their default")
	}
	c := g.Nodes[0]
	if c.Kind != ImplBuiltin {
		t.Errorf("constant kind = %v, want builtin", c.Kind)
	}
}

func TestCompileConversions(t *testing.T) {
	tests := []struct {
		name, doc, want string
	}{
		{
			name: "distance unit",
			doc: `<materialx version="1.38">
  <constant name="c" type="float"><input name="value" type="float" value="100" unit="centimeter" unittype="distance" /></constant>
</materialx>`,
			want: "float(1.0000)",
		},
		{
			name: "angle unit untouched",
			doc: `<materialx version="1.38">
  <constant name="c" type="float"><input name="value" type="float" value="90" unit="degree" unittype="angle" /></constant>
</materialx>`,
			want: "float(90.0000)",
		},
		{
			name: "color space",
			doc: `<materialx version="1.38" colorspace="srgb_texture">
  <constant name="c" type="color3"><input name="value" type="color3" value="0.5, 0.5, 0.5" /></constant>
</materialx>`,
			want: "color3(0.2140, 0.2140, 0.2140)",
		},
		{
			name: "input color space wins",
			doc: `<materialx version="1.38" colorspace="srgb_texture">
  <constant name="c" type="color3"><input name="value" type="color3" value="0.5, 0.5, 0.5" colorspace="lin_rec709" /></constant>
</materialx>`,
			want: "color3(0.5000, 0.5000, 0.5000)",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := compileElement(t, loadDoc(t, tt.doc), "c", "genosl")
			if err != nil {
				t.Fatal(err)
			}
			if len(g.Params) != 1 || g.Params[0].Value != tt.want {
				t.Errorf("params = %+v, want value %s", g.Params, tt.want)
			}
		})
	}
}

func TestCompileUnsupportedColorSpaceWarns(t *testing.T) {
	doc := loadDoc(t, `<materialx version="1.38" colorspace="cie_xyz">
  <constant name="c" type="color3"><input name="value" type="color3" value="0.5, 0.5, 0.5" /></constant>
</materialx>`)
	g, err := compileElement(t, doc, "c", "genosl")
	if err != nil {
		t.Fatal(err)
	}
	if len(g.Warnings) != 1 || !strings.Contains(g.Warnings[0], "cie_xyz") {
		t.Errorf("Warnings = %v", g.Warnings)
	}
	if g.Params[0].Value != "color3(0.5000, 0.5000, 0.5000)" {
		t.Errorf("value = %s", g.Params[0].Value)
	}
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name, doc, elem string
		want            error
	}{
		{
			name: "cycle",
			doc: `<materialx version="1.38">
  <add name="a" type="float"><input name="in1" type="float" nodename="b" /></add>
  <add name="b" type="float"><input name="in1" type="float" nodename="a" /></add>
</materialx>`,
			elem: "a",
			want: ErrCycle,
		},
		{
			name: "no nodedef",
			doc:  `<materialx version="1.38"><mystery name="m" type="float" /></materialx>`,
			elem: "m",
			want: ErrNoNodeDef,
		},
		{
			name: "multi output",
			doc: `<materialx version="1.38">
  <nodedef name="ND_split" node="split"><output name="a" type="float" /><output name="b" type="float" /></nodedef>
  <split name="s" />
</materialx>`,
			elem: "s",
			want: ErrUnsupported,
		},
		{
			name: "no implementation",
			doc: `<materialx version="1.38">
  <nodedef name="ND_noimpl" node="noimpl"><output name="out" type="float" /></nodedef>
  <noimpl name="n" type="float" />
</materialx>`,
			elem: "n",
			want: ErrNoImplementation,
		},
		{
			name: "missing connected node",
			doc: `<materialx version="1.38">
  <add name="a" type="float"><input name="in1" type="float" nodename="missing" /></add>
</materialx>`,
			elem: "a",
			want: ErrBrokenReference,
		},
		{
			name: "missing node graph",
			doc: `<materialx version="1.38">
  <add name="a" type="float"><input name="in1" type="float" nodegraph="NG_missing" output="out" /></add>
</materialx>`,
			elem: "a",
			want: ErrBrokenReference,
		},
		{
			name: "missing interface input",
			doc: `<materialx version="1.38">
  <nodegraph name="NG">
    <add name="a" type="float"><input name="in1" type="float" interfacename="gone" /></add>
    <output name="out" type="float" nodename="a" />
  </nodegraph>
</materialx>`,
			elem: "NG/out",
			want: ErrBrokenReference,
		},
		{
			name: "non-finite value",
			doc: `<materialx version="1.38">
  <add name="a" type="float"><input name="in1" type="float" value="inf" /></add>
</materialx>`,
			elem: "a",
			want: mtlx.ErrInvalidValue,
		},
		{
			name: "unconnected output",
			doc:  `<materialx version="1.38"><output name="o" type="float" /></materialx>`,
			elem: "o",
			want: ErrUnsupported,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := compileElement(t, loadDoc(t, tt.doc), tt.elem, "genosl")
			if !errors.Is(err, tt.want) {
				t.Errorf("Compile error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestExpandUnknownInput(t *testing.T) {
	inst := &NodeInstance{
		Impl:   mtlx.NewElement(mtlx.CategoryImplementation, "IM_bad"),
		Source: "{{in1}} + {{missing}}",
		Args:   []Arg{{Name: "in1", Expr: "x"}},
	}
	if _, err := Expand(inst); !errors.Is(err, ErrNoImplementation) {
		t.Errorf("Expand error = %v", err)
	}
}

func TestNamer(t *testing.T) {
	n := NewNamer([]string{"float", "in"})
	n.Reserve("out")
	tests := []struct{ in, want string }{
		{"base", "base"},
		{"base", "base_1"},
		{"float", "_float"},
		{"out", "out_2"},
		{"gl_Position", "_gl_Position"},
		{"2d", "_2d"},
		{"a-b c", "a_b_c"},
		{"", "_unnamed"},
	}
	for _, tt := range tests {
		if got := n.Name(tt.in); got != tt.want {
			t.Errorf("Name(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
	if got := n.VarName("tinted", "out"); got != "tinted_out" {
		t.Errorf("VarName = %q", got)
	}
}

func TestWriter(t *testing.T) {
	w := &Writer{}
	w.Line("void main()")
	w.Line("{")
	w.Push()
	w.Line("float x = %s;", FormatFloat(2))
	w.Pop()
	w.Pop()
	w.Line("}")
	want := "void main()\n{\n    float x = 2.0;\n}\n"
	if got := w.String(); got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestFormatFloat(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0.0"},
		{1, "1.0"},
		{0.35, "0.35"},
		{-2.5, "-2.5"},
		{1e-7, "1e-07"},
	}
	for _, tt := range tests {
		if got := FormatFloat(tt.in); got != tt.want {
			t.Errorf("FormatFloat(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Lookup("genmsl"); !errors.Is(err, ErrUnknownTarget) {
		t.Errorf("Lookup error = %v", err)
	}
	if len(r.Targets()) != 0 {
		t.Errorf("Targets = %v", r.Targets())
	}
}
