package osl

import (
	"strings"
	"testing"

	"github.com/matzehuels/mtlxgen/pkg/mtlx"
	"github.com/matzehuels/mtlxgen/pkg/shadergen"
	"github.com/matzehuels/mtlxgen/pkg/stdlib"
)

func generate(t *testing.T, file, elem string, opts shadergen.Options) *shadergen.Shader {
	t.Helper()
	doc, err := mtlx.ReadFile(file)
	if err != nil {
		t.Fatal(err)
	}
	lib, err := mtlx.LoadLibraries(stdlib.FS(), mtlx.DefaultLibraryFolders)
	if err != nil {
		t.Fatal(err)
	}
	doc.ImportLibrary(lib)
	e := doc.Descendant(elem)
	if e == nil {
		t.Fatalf("element %s not found", elem)
	}
	sh, err := New().Generate(e.Name(), e, shadergen.NewContext(doc, stdlib.FS(), opts))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	return sh
}

func TestGenerateMaterial(t *testing.T) {
	sh := generate(t, "../testdata/wood.mtlx", "M_wood", shadergen.DefaultOptions())
	if sh.Name != "M_wood" || sh.Target != Target {
		t.Errorf("shader = %s %s", sh.Name, sh.Target)
	}
	src := sh.SourceCode(shadergen.PixelStage)
	for _, want := range []string{
		"// Generated by mtlxgen from M_wood",
		"struct vector2\n{\n    float x;\n    float y;\n};",
		"vector2 mx_transform_uv(vector2 texcoord)",
		"return vector2(texcoord.x, 1.0 - texcoord.y);",
		"color mx_srgb_texture_to_lin_rec709(color c)",
		"void mx_image_color3(",
		"void mx_standard_surface(",
		"shader M_wood(\n",
		`    string wood_tex_file = "wood.png" [[ string widget = "filename" ]],`,
		"    color tint = color(1.0, 0.9, 0.8),",
		"    float specular_roughness = 0.5,",
		"    output closure color out = 0\n)",
		"    color wood_tex_out = color(0.0);",
		"    mx_image_color3(wood_tex_file, \"\", color(0.0, 0.0, 0.0), vector2(u, v), ",
		"    wood_tex_out = mx_srgb_texture_to_lin_rec709(wood_tex_out);",
		"    color tinted_out = wood_tex_out * tint;",
		`transform("world", N)`,
	} {
		if !strings.Contains(src, want) {
			t.Errorf("source missing %q:\n%s", want, src)
		}
	}
	if !strings.HasSuffix(src, ";\n}\n") {
		t.Errorf("source should end with the shader body:\n%s", src)
	}
	if i, j := strings.Index(src, "mx_transform_uv(vector2"), strings.Index(src, "void mx_image_color3("); i > j {
		t.Error("mx_transform_uv must precede the functions using it")
	}
}

func TestGenerateNoFlip(t *testing.T) {
	opts := shadergen.DefaultOptions()
	opts.FileTextureVerticalFlip = false
	src := generate(t, "../testdata/wood.mtlx", "M_wood", opts).SourceCode(shadergen.PixelStage)
	if !strings.Contains(src, "    return texcoord;") {
		t.Errorf("unflipped transform missing:\n%s", src)
	}
}

func TestGenerateGraphOutput(t *testing.T) {
	src := generate(t, "../testdata/wood.mtlx", "NG_wood/out", shadergen.DefaultOptions()).SourceCode(shadergen.PixelStage)
	for _, want := range []string{
		"shader out_1(",
		"    output color out = color(0.0)\n)",
		"    out = tinted_out;",
	} {
		if !strings.Contains(src, want) {
			t.Errorf("source missing %q:\n%s", want, src)
		}
	}
	if strings.Contains(src, "mx_standard_surface") {
		t.Error("graph output should not pull in the surface shader")
	}
}

func TestSyntaxLiteral(t *testing.T) {
	tests := []struct {
		typ, value, want string
	}{
		{mtlx.TypeFloat, "0.5", "0.5"},
		{mtlx.TypeInteger, "3", "3"},
		{mtlx.TypeBoolean, "true", "1"},
		{mtlx.TypeColor3, "1, 0, 0", "color(1.0, 0.0, 0.0)"},
		{mtlx.TypeColor4, "1, 0, 0, 0.5", "color4(color(1.0, 0.0, 0.0), 0.5)"},
		{mtlx.TypeVector2, "0.5, 1", "vector2(0.5, 1.0)"},
		{mtlx.TypeVector3, "0, 1, 0", "vector(0.0, 1.0, 0.0)"},
		{mtlx.TypeString, "periodic", `"periodic"`},
	}
	for _, tt := range tests {
		v, err := mtlx.ParseValue(tt.typ, tt.value)
		if err != nil {
			t.Fatal(err)
		}
		if got := (syntax{}).Literal(v); got != tt.want {
			t.Errorf("Literal(%s %q) = %q, want %q", tt.typ, tt.value, got, tt.want)
		}
	}
	if got := (syntax{}).TypeName(mtlx.TypeMaterial); got != "closure color" {
		t.Errorf("TypeName(material) = %q", got)
	}
}
