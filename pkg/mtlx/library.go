package mtlx

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// BuiltinSearchPath is the search-path entry that refers to the library
// file system compiled into the binary.
const BuiltinSearchPath = "builtin"

// DefaultLibraryFolders are loaded when the caller names none.
var DefaultLibraryFolders = []string{"libraries"}

// ErrLibraryNotFound is returned when no library file could be loaded from
// any of the requested folders.
var ErrLibraryNotFound = errors.New("no library documents found")

// LoadLibraries reads every .mtlx file below each folder of fsys, in lexical
// order, into a single library document. Folders that do not exist are
// skipped; it is an error only if nothing was loaded at all.
func LoadLibraries(fsys fs.FS, folders []string) (*Document, error) {
	lib := CreateDocument()
	n, err := loadInto(lib, fsys, folders)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, fmt.Errorf("%w in %s", ErrLibraryNotFound, strings.Join(folders, ", "))
	}
	return lib, nil
}

// LoadSearchPathLibraries loads the library folders from every root of sp.
// The builtin entry is served by builtin, which may be nil when the caller
// has no embedded library.
func LoadSearchPathLibraries(sp SearchPath, builtin fs.FS, folders []string) (*Document, error) {
	if len(folders) == 0 {
		folders = DefaultLibraryFolders
	}
	lib := CreateDocument()
	total := 0
	for _, root := range sp.roots(builtin) {
		n, err := loadInto(lib, root, folders)
		if err != nil {
			return nil, err
		}
		total += n
	}
	if total == 0 {
		return nil, fmt.Errorf("%w: folders %s under %s",
			ErrLibraryNotFound, strings.Join(folders, ", "), sp)
	}
	return lib, nil
}

func loadInto(lib *Document, fsys fs.FS, folders []string) (int, error) {
	loaded := 0
	for _, folder := range folders {
		folder = path.Clean(filepath.ToSlash(folder))
		if info, err := fs.Stat(fsys, folder); err != nil || !info.IsDir() {
			continue
		}
		var files []string
		err := fs.WalkDir(fsys, folder, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && strings.EqualFold(path.Ext(p), ".mtlx") {
				files = append(files, p)
			}
			return nil
		})
		if err != nil {
			return loaded, fmt.Errorf("scan library folder %s: %w", folder, err)
		}
		for _, f := range files {
			doc, err := ReadFS(fsys, f)
			if err != nil {
				return loaded, fmt.Errorf("load library %s: %w", f, err)
			}
			mergeLibrary(lib, doc)
			loaded++
		}
	}
	return loaded, nil
}

// mergeLibrary moves the top-level elements of src into lib. The first
// definition of a name wins.
func mergeLibrary(lib, src *Document) {
	for _, c := range append([]*Element(nil), src.root.children...) {
		if c.name != "" && lib.root.Child(c.name) != nil {
			continue
		}
		lib.root.AppendChild(c)
	}
}

// SearchPath is an ordered list of root directories that library folders
// and implementation source files are resolved against.
type SearchPath []string

// ParseSearchPath splits s on the OS path list separator, dropping empty
// entries.
func ParseSearchPath(s string) SearchPath {
	var sp SearchPath
	for _, p := range filepath.SplitList(s) {
		if p = strings.TrimSpace(p); p != "" {
			sp = append(sp, p)
		}
	}
	return sp
}

// String joins the entries with the OS path list separator.
func (sp SearchPath) String() string {
	return strings.Join(sp, string(os.PathListSeparator))
}

// Find returns the first existing file called name below an entry of sp.
// Absolute names are returned unchanged if they exist.
func (sp SearchPath) Find(name string) (string, bool) {
	if filepath.IsAbs(name) {
		_, err := os.Stat(name)
		return name, err == nil
	}
	for _, dir := range sp {
		if dir == BuiltinSearchPath {
			continue
		}
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true
		}
	}
	return "", false
}

// FS returns a file system that opens each name from the first root of sp
// that has it. Directories are not merged across roots.
func (sp SearchPath) FS(builtin fs.FS) fs.FS {
	return unionFS(sp.roots(builtin))
}

func (sp SearchPath) roots(builtin fs.FS) []fs.FS {
	var roots []fs.FS
	for _, dir := range sp {
		if dir == BuiltinSearchPath {
			if builtin != nil {
				roots = append(roots, builtin)
			}
			continue
		}
		roots = append(roots, os.DirFS(dir))
	}
	return roots
}

type unionFS []fs.FS

func (u unionFS) Open(name string) (fs.File, error) {
	for _, f := range u {
		file, err := f.Open(name)
		if err == nil {
			return file, nil
		}
	}
	return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
}
