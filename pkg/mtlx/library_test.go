package mtlx

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/mtlxgen/pkg/stdlib"
)

func loadBuiltin(t *testing.T) *Document {
	t.Helper()
	lib, err := LoadLibraries(stdlib.FS(), DefaultLibraryFolders)
	if err != nil {
		t.Fatalf("LoadLibraries: %v", err)
	}
	return lib
}

func TestLoadLibrariesBuiltin(t *testing.T) {
	lib := loadBuiltin(t)

	for _, name := range []string{"ND_standard_surface_surfaceshader", "ND_surfacematerial", "ND_image_color3"} {
		if lib.NodeDef(name) == nil {
			t.Errorf("NodeDef(%q) = nil", name)
		}
	}
	nd := lib.NodeDef("ND_image_color3")
	impl := lib.ImplementationFor(nd, "genosl")
	if impl == nil {
		t.Fatal("no genosl implementation for ND_image_color3")
	}
	if got := impl.SourceURI; got != "libraries/stdlib/genosl/stdlib_genosl_impl.mtlx" {
		t.Errorf("SourceURI = %q", got)
	}
	if lib.ImplementationFor(nd, "genmdl") != nil {
		t.Error("unexpected implementation for unknown target")
	}
}

func TestLoadLibrariesMissing(t *testing.T) {
	_, err := LoadLibraries(fstest.MapFS{}, []string{"libraries"})
	if !errors.Is(err, ErrLibraryNotFound) {
		t.Errorf("LoadLibraries() error = %v, want ErrLibraryNotFound", err)
	}
}

func TestLoadLibrariesFirstDefinitionWins(t *testing.T) {
	fsys := fstest.MapFS{
		"libs/a.mtlx":    {Data: []byte(`<materialx><nodedef name="ND_x" node="x" doc="first"/></materialx>`)},
		"libs/b.mtlx":    {Data: []byte(`<materialx><nodedef name="ND_x" node="x" doc="second"/><nodedef name="ND_y" node="y"/></materialx>`)},
		"libs/notes.txt": {Data: []byte("ignored")},
	}
	lib, err := LoadLibraries(fsys, []string{"libs", "missing"})
	if err != nil {
		t.Fatalf("LoadLibraries: %v", err)
	}
	if got := lib.NodeDef("ND_x").Attr(AttrDoc); got != "first" {
		t.Errorf("ND_x doc = %q, want first", got)
	}
	if lib.NodeDef("ND_y") == nil {
		t.Error("ND_y missing")
	}
}

func TestParseSearchPath(t *testing.T) {
	sep := string(os.PathListSeparator)
	got := ParseSearchPath("/opt/mtlx" + sep + sep + " builtin " + sep + "./local")
	want := SearchPath{"/opt/mtlx", "builtin", "./local"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ParseSearchPath mismatch (-want +got):\n%s", diff)
	}
	if got.String() != strings.Join(want, sep) {
		t.Errorf("String() = %q", got.String())
	}
}

func TestSearchPathFind(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "lib.mtlx"), []byte("<materialx/>"), 0o644); err != nil {
		t.Fatal(err)
	}
	sp := SearchPath{filepath.Join(dir, "missing"), BuiltinSearchPath, dir}
	got, ok := sp.Find("lib.mtlx")
	if !ok || got != filepath.Join(dir, "lib.mtlx") {
		t.Errorf("Find = %q, %v", got, ok)
	}
	if _, ok := sp.Find("nope.mtlx"); ok {
		t.Error("Find(nope.mtlx) should fail")
	}
}

func TestSearchPathFSAndLoad(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "libraries", "custom"), 0o755); err != nil {
		t.Fatal(err)
	}
	custom := `<materialx><nodedef name="ND_custom" node="custom"><output name="out" type="float"/></nodedef></materialx>`
	if err := os.WriteFile(filepath.Join(dir, "libraries", "custom", "custom_defs.mtlx"), []byte(custom), 0o644); err != nil {
		t.Fatal(err)
	}

	sp := SearchPath{dir, BuiltinSearchPath}
	lib, err := LoadSearchPathLibraries(sp, stdlib.FS(), nil)
	if err != nil {
		t.Fatalf("LoadSearchPathLibraries: %v", err)
	}
	if lib.NodeDef("ND_custom") == nil || lib.NodeDef("ND_standard_surface_surfaceshader") == nil {
		t.Error("libraries from both roots should be loaded")
	}

	data, err := fs.ReadFile(sp.FS(stdlib.FS()), "libraries/pbrlib/genosl/mx_standard_surface.osl")
	if err != nil {
		t.Fatalf("open through union FS: %v", err)
	}
	if !strings.Contains(string(data), "mx_standard_surface") {
		t.Error("unexpected file content")
	}

	if _, err := LoadSearchPathLibraries(SearchPath{BuiltinSearchPath}, nil, nil); !errors.Is(err, ErrLibraryNotFound) {
		t.Errorf("builtin without embedded FS: err = %v, want ErrLibraryNotFound", err)
	}
}

func TestNodeDefFor(t *testing.T) {
	doc, err := ReadBytes([]byte(`<materialx>
  <multiply name="m1" type="color3">
    <input name="in1" type="color3" value="1, 1, 1" />
    <input name="in2" type="float" value="0.5" />
  </multiply>
  <multiply name="m2" type="color3">
    <input name="in2" type="color3" value="1, 0, 0" />
  </multiply>
  <multiply name="m3" type="color3" nodedef="ND_multiply_float" />
  <unknown name="u1" type="float" />
</materialx>`), "")
	if err != nil {
		t.Fatal(err)
	}
	doc.ImportLibrary(loadBuiltin(t))

	tests := []struct {
		node string
		want string
	}{
		{"m1", "ND_multiply_color3FA"},
		{"m2", "ND_multiply_color3"},
		{"m3", "ND_multiply_float"},
		{"u1", ""},
	}
	for _, tt := range tests {
		nd := doc.NodeDefFor(doc.Element(tt.node))
		got := ""
		if nd != nil {
			got = nd.Name()
		}
		if got != tt.want {
			t.Errorf("NodeDefFor(%s) = %q, want %q", tt.node, got, tt.want)
		}
	}
}

func TestOutputType(t *testing.T) {
	nd := NewElement(CategoryNodeDef, "ND_split")
	nd.AddChild(CategoryOutput, "outr").SetAttr(AttrType, TypeFloat)
	nd.AddChild(CategoryOutput, "outg").SetAttr(AttrType, TypeFloat)
	if got := OutputType(nd); got != TypeMultiOutput {
		t.Errorf("OutputType = %q, want multioutput", got)
	}
	legacy := NewElement(CategoryNodeDef, "ND_legacy")
	legacy.SetAttr(AttrType, TypeColor3)
	if got := OutputType(legacy); got != TypeColor3 {
		t.Errorf("OutputType(legacy) = %q", got)
	}
}
