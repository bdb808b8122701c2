package pipeline

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/mtlxgen/pkg/cache"
	"github.com/matzehuels/mtlxgen/pkg/errors"
	"github.com/matzehuels/mtlxgen/pkg/stdlib"
)

const twoMaterials = `<?xml version="1.0"?>
<materialx version="1.38">
  <standard_surface name="SR_a" type="surfaceshader">
    <input name="base" type="float" value="0.5" />
  </standard_surface>
  <surfacematerial name="M_a" type="material">
    <input name="surfaceshader" type="surfaceshader" nodename="SR_a" />
  </surfacematerial>
  <surfacematerial name="M_b" type="material">
    <input name="surfaceshader" type="surfaceshader" nodename="SR_a" />
  </surfacematerial>
</materialx>
`

const brokenDoc = `<?xml version="1.0"?>
<materialx version="1.38">
  <standard_surface name="SR_a" type="surfaceshader">
    <input name="base_color" type="color3" nodename="missing" />
  </standard_surface>
  <surfacematerial name="M_a" type="material">
    <input name="surfaceshader" type="surfaceshader" nodename="SR_a" />
  </surfacematerial>
</materialx>
`

const udimDoc = `<?xml version="1.0"?>
<materialx version="1.38" udimset="1001, 1002">
  <image name="tex" type="color3">
    <input name="file" type="filename" value="wood.&lt;UDIM&gt;.png" />
  </image>
  <standard_surface name="SR_u" type="surfaceshader">
    <input name="base_color" type="color3" nodename="tex" />
  </standard_surface>
  <surfacematerial name="M_u" type="material">
    <input name="surfaceshader" type="surfaceshader" nodename="SR_u" />
  </surfacematerial>
</materialx>
`

func TestValidateTarget(t *testing.T) {
	tests := []struct {
		target  string
		wantErr bool
	}{
		{"genosl", false},
		{"genglsl", false},
		{"genmsl", true},
		{"GENOSL", true}, // case-sensitive
		{"", true},
	}

	for _, tt := range tests {
		err := ValidateTarget(tt.target)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateTarget(%q) error = %v, wantErr %v", tt.target, err, tt.wantErr)
		}
		if err != nil && !errors.Is(err, errors.ErrCodeInvalidTarget) {
			t.Errorf("ValidateTarget(%q) code = %s", tt.target, errors.GetCode(err))
		}
	}
}

func TestTargets(t *testing.T) {
	if diff := cmp.Diff([]string{"genglsl", "genosl"}, Targets()); diff != "" {
		t.Errorf("Targets() mismatch (-want +got):\n%s", diff)
	}
	if FileExtension("genosl") != ".osl" || FileExtension("genglsl") != ".glsl" {
		t.Error("unexpected file extensions")
	}
}

func TestValidateAndSetDefaults(t *testing.T) {
	opts := Options{Input: "wood.mtlx"}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatal(err)
	}
	if opts.Target != DefaultTarget {
		t.Errorf("Target = %q, want %q", opts.Target, DefaultTarget)
	}
	if opts.TargetColorSpace != "lin_rec709" || opts.TargetDistanceUnit != "meter" {
		t.Errorf("color space/unit = %q/%q", opts.TargetColorSpace, opts.TargetDistanceUnit)
	}
	if diff := cmp.Diff([]string{"libraries"}, opts.LibraryFolders); diff != "" {
		t.Errorf("LibraryFolders mismatch (-want +got):\n%s", diff)
	}
	if opts.LibrarySearchPath != "builtin" {
		t.Errorf("LibrarySearchPath = %q", opts.LibrarySearchPath)
	}

	// Idempotent
	opts.Target = "genglsl"
	if err := opts.ValidateAndSetDefaults(); err != nil || opts.Target != "genglsl" {
		t.Errorf("second call changed options: %v %q", err, opts.Target)
	}
}

func TestValidateAndSetDefaultsErrors(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		code errors.Code
	}{
		{"no input", Options{}, errors.ErrCodeInvalidInput},
		{"bad target", Options{Input: "a.mtlx", Target: "genmdl"}, errors.ErrCodeInvalidTarget},
		{"bad element", Options{Input: "a.mtlx", Element: "NG/../x"}, errors.ErrCodeInvalidElement},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.ValidateAndSetDefaults()
			if !errors.Is(err, tt.code) {
				t.Errorf("error = %v, want code %s", err, tt.code)
			}
		})
	}
}

func TestShaderOptions(t *testing.T) {
	opts := Options{Input: "a.mtlx", NoVerticalFlip: true, TargetColorSpace: "acescg"}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatal(err)
	}
	so := opts.ShaderOptions()
	if so.FileTextureVerticalFlip || so.TargetColorSpace != "acescg" || so.TargetDistanceUnit != "meter" {
		t.Errorf("ShaderOptions() = %+v", so)
	}
	key := opts.ShaderKeyOpts()
	if !key.NoVerticalFlip || key.Target != "genosl" || key.ColorSpace != "acescg" {
		t.Errorf("ShaderKeyOpts() = %+v", key)
	}
}

func TestExecuteFile(t *testing.T) {
	r := NewRunner(nil, nil, nil)
	res, err := r.Execute(context.Background(), Options{Input: "testdata/wood.mtlx"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Document != "wood.mtlx" {
		t.Errorf("Document = %q", res.Document)
	}
	if len(res.Shaders) != 1 {
		t.Fatalf("got %d shaders, want 1", len(res.Shaders))
	}
	sh := res.Shaders[0]
	if sh.Element != "M_wood" || sh.Name != "M_wood" || sh.FileName != "M_wood.osl" || sh.Tile != "" {
		t.Errorf("artifact = %+v", sh)
	}
	if !strings.Contains(sh.Source, "shader M_wood(") {
		t.Errorf("source is not an OSL shader:\n%s", sh.Source)
	}
	if res.Stats.ElementCount != 3 || res.Stats.ShaderCount != 1 {
		t.Errorf("stats = %+v", res.Stats)
	}
}

func TestExecuteGLSL(t *testing.T) {
	r := NewRunner(nil, nil, nil)
	res, err := r.Execute(context.Background(), Options{
		Input:  "testdata/wood.mtlx",
		Target: "genglsl",
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	sh := res.Shaders[0]
	if sh.FileName != "M_wood.glsl" || !strings.HasPrefix(sh.Source, "#version 400") {
		t.Errorf("artifact = %s\n%s", sh.FileName, sh.Source)
	}
}

func TestExecuteSelection(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		want []string
	}{
		{"first only", Options{}, []string{"M_a"}},
		{"all", Options{AllElements: true}, []string{"M_a", "M_b"}},
		{"element", Options{Element: "M_b"}, []string{"M_b"}},
	}
	r := NewRunner(nil, nil, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := tt.opts
			opts.Document = []byte(twoMaterials)
			opts.DocumentName = "two.mtlx"
			res, err := r.Execute(context.Background(), opts)
			if err != nil {
				t.Fatalf("Execute: %v", err)
			}
			var got []string
			for _, s := range res.Shaders {
				got = append(got, s.Element)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("elements mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestExecuteErrors(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		code errors.Code
	}{
		{
			name: "missing file",
			opts: Options{Input: "testdata/missing.mtlx"},
			code: errors.ErrCodeFileNotFound,
		},
		{
			name: "malformed",
			opts: Options{Document: []byte("<materialx")},
			code: errors.ErrCodeInvalidDocument,
		},
		{
			name: "no renderable",
			opts: Options{Document: []byte(`<materialx version="1.38"/>`)},
			code: errors.ErrCodeNoRenderable,
		},
		{
			name: "unknown element",
			opts: Options{Document: []byte(twoMaterials), Element: "M_c"},
			code: errors.ErrCodeInvalidElement,
		},
		{
			name: "no udims",
			opts: Options{Document: []byte(twoMaterials), ExpandUDIM: true},
			code: errors.ErrCodeInvalidDocument,
		},
		{
			name: "no libraries",
			opts: Options{Input: "testdata/wood.mtlx", LibrarySearchPath: t.TempDir()},
			code: errors.ErrCodeLibraryNotFound,
		},
		{
			name: "broken connection",
			opts: Options{Document: []byte(brokenDoc)},
			code: errors.ErrCodeInvalidDocument,
		},
		{
			name: "no nodedef",
			opts: Options{Document: []byte(`<materialx version="1.38">
  <mystery name="m" type="float" />
  <output name="o" type="float" nodename="m" />
</materialx>`), Element: "o"},
			code: errors.ErrCodeInvalidDocument,
		},
		{
			name: "no implementation",
			opts: Options{Document: []byte(`<materialx version="1.38">
  <nodedef name="ND_noimpl" node="noimpl"><output name="out" type="float" /></nodedef>
  <noimpl name="n" type="float" />
  <output name="o" type="float" nodename="n" />
</materialx>`), Element: "o"},
			code: errors.ErrCodeUnsupported,
		},
	}
	r := NewRunner(nil, nil, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Execute(context.Background(), tt.opts)
			if !errors.Is(err, tt.code) {
				t.Errorf("error = %v, want code %s", err, tt.code)
			}
		})
	}
}

func TestExecuteValidationWarningsDoNotBlock(t *testing.T) {
	doc := strings.Replace(twoMaterials, "</materialx>",
		`<output name="dangling" type="color3" nodename="missing" />`+"\n</materialx>", 1)
	r := NewRunner(nil, nil, nil)
	res, err := r.Execute(context.Background(), Options{Document: []byte(doc), DocumentName: "bad.mtlx"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Valid || res.Warnings == "" {
		t.Errorf("Valid = %t, Warnings = %q; want warnings", res.Valid, res.Warnings)
	}
	if len(res.Shaders) != 1 {
		t.Errorf("got %d shaders, want 1", len(res.Shaders))
	}
}

func TestExecuteKeepsValidationOnGenerationFailure(t *testing.T) {
	r := NewRunner(nil, nil, nil)
	res, err := r.Execute(context.Background(), Options{Document: []byte(brokenDoc), DocumentName: "broken.mtlx"})
	if !errors.Is(err, errors.ErrCodeInvalidDocument) {
		t.Fatalf("error = %v, want code %s", err, errors.ErrCodeInvalidDocument)
	}
	if res == nil {
		t.Fatal("result is nil")
	}
	if res.Valid || !strings.Contains(res.Warnings, "missing") {
		t.Errorf("Valid = %t, Warnings = %q; want the broken connection reported", res.Valid, res.Warnings)
	}
	if len(res.Shaders) != 0 {
		t.Errorf("got %d shaders, want none", len(res.Shaders))
	}
}

func TestExecuteUDIM(t *testing.T) {
	r := NewRunner(nil, nil, nil)
	res, err := r.Execute(context.Background(), Options{
		Document:   []byte(udimDoc),
		ExpandUDIM: true,
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(res.Shaders) != 2 {
		t.Fatalf("got %d shaders, want 2", len(res.Shaders))
	}
	for i, tile := range []string{"1001", "1002"} {
		sh := res.Shaders[i]
		if sh.Tile != tile || sh.Name != "M_u_"+tile || sh.FileName != "M_u_"+tile+".osl" {
			t.Errorf("shader %d = %+v", i, sh)
		}
		if !strings.Contains(sh.Source, "wood."+tile+".png") {
			t.Errorf("shader %d does not reference its tile", i)
		}
	}
}

func TestExecuteCaching(t *testing.T) {
	c, err := cache.NewFileCache(filepath.Join(t.TempDir(), "cache"))
	if err != nil {
		t.Fatal(err)
	}
	r := NewRunner(c, nil, nil)
	defer r.Close()
	ctx := context.Background()

	first, err := r.Execute(ctx, Options{Input: "testdata/wood.mtlx"})
	if err != nil {
		t.Fatal(err)
	}
	if first.CacheInfo.GenerateHit || first.CacheInfo.ValidateHit {
		t.Errorf("first run hit the cache: %+v", first.CacheInfo)
	}

	second, err := r.Execute(ctx, Options{Input: "testdata/wood.mtlx"})
	if err != nil {
		t.Fatal(err)
	}
	if !second.CacheInfo.GenerateHit || !second.CacheInfo.ValidateHit {
		t.Errorf("second run missed the cache: %+v", second.CacheInfo)
	}
	if diff := cmp.Diff(first.Shaders, second.Shaders); diff != "" {
		t.Errorf("cached shaders differ (-first +second):\n%s", diff)
	}

	// A different target must not reuse the cached shaders.
	glsl, err := r.Execute(ctx, Options{Input: "testdata/wood.mtlx", Target: "genglsl"})
	if err != nil {
		t.Fatal(err)
	}
	if glsl.CacheInfo.GenerateHit {
		t.Error("genglsl run reused genosl shaders")
	}

	refreshed, err := r.Execute(ctx, Options{Input: "testdata/wood.mtlx", Refresh: true})
	if err != nil {
		t.Fatal(err)
	}
	if refreshed.CacheInfo.GenerateHit {
		t.Error("refresh should bypass the shader cache")
	}
}

func TestExecuteCachingTracksLibrarySources(t *testing.T) {
	root := t.TempDir()
	if err := os.CopyFS(root, stdlib.FS()); err != nil {
		t.Fatal(err)
	}
	c, err := cache.NewFileCache(filepath.Join(t.TempDir(), "cache"))
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	opts := Options{Document: []byte(udimDoc), LibrarySearchPath: root}

	first, err := NewRunner(c, nil, nil).Execute(ctx, opts)
	if err != nil {
		t.Fatal(err)
	}
	if first.CacheInfo.GenerateHit {
		t.Fatal("first run hit the cache")
	}

	src := filepath.Join(root, "libraries", "stdlib", "genosl", "mx_image_color3.osl")
	data, err := os.ReadFile(src)
	if err != nil {
		t.Fatal(err)
	}
	edited := append([]byte("// edited\n"), data...)
	if err := os.WriteFile(src, edited, 0o644); err != nil {
		t.Fatal(err)
	}

	second, err := NewRunner(c, nil, nil).Execute(ctx, opts)
	if err != nil {
		t.Fatal(err)
	}
	if second.CacheInfo.GenerateHit {
		t.Error("edited implementation source reused the cached shader")
	}
	if !strings.Contains(second.Shaders[0].Source, "// edited") {
		t.Error("shader does not contain the edited implementation source")
	}

	third, err := NewRunner(c, nil, nil).Execute(ctx, opts)
	if err != nil {
		t.Fatal(err)
	}
	if !third.CacheInfo.GenerateHit {
		t.Error("unchanged library missed the cache")
	}
}

func TestLoadMemoisesLibraries(t *testing.T) {
	r := NewRunner(nil, nil, nil)
	ctx := context.Background()
	a, err := r.Load(ctx, Options{Input: "testdata/wood.mtlx"})
	if err != nil {
		t.Fatal(err)
	}
	b, err := r.Load(ctx, Options{Document: []byte(twoMaterials)})
	if err != nil {
		t.Fatal(err)
	}
	if a.LibraryHash != b.LibraryHash {
		t.Error("library hash differs between loads of the same search path")
	}
	if a.DocumentHash == b.DocumentHash {
		t.Error("different documents share a hash")
	}
	if len(r.libraries) != 1 {
		t.Errorf("loaded libraries %d times, want 1", len(r.libraries))
	}
}

func TestExecuteCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := NewRunner(nil, nil, nil)
	_, err := r.Execute(ctx, Options{Input: "testdata/wood.mtlx"})
	if !stderrors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}
