package pipeline

import (
	"context"
	stderrors "errors"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/matzehuels/mtlxgen/pkg/cache"
	"github.com/matzehuels/mtlxgen/pkg/errors"
	"github.com/matzehuels/mtlxgen/pkg/mtlx"
	"github.com/matzehuels/mtlxgen/pkg/observability"
	"github.com/matzehuels/mtlxgen/pkg/shadergen"
	"github.com/matzehuels/mtlxgen/pkg/stdlib"
)

// Loaded is a document with its libraries imported.
type Loaded struct {
	// Name is the base name of the document, used in messages.
	Name string

	// Document holds the document's own elements plus the imported library.
	Document *mtlx.Document

	// Library is the file system implementation sources are read from.
	Library fs.FS

	// DocumentHash identifies the document content before the import.
	DocumentHash string

	// LibraryHash identifies the imported library.
	LibraryHash string
}

// Load loads the libraries named by opts, reads the document and imports the
// libraries into it.
func (r *Runner) Load(ctx context.Context, opts Options) (_ *Loaded, err error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	r.applyLogger(&opts)

	name := opts.DocumentName
	if opts.Document == nil {
		name = filepath.Base(opts.Input)
	}

	start := time.Now()
	elements := 0
	observability.Pipeline().OnLoadStart(ctx, name)
	defer func() {
		observability.Pipeline().OnLoadComplete(ctx, name, elements, time.Since(start), err)
	}()

	lib, err := r.loadLibrary(opts.LibrarySearchPath, opts.LibraryFolders)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	doc, err := readDocument(opts)
	if err != nil {
		return nil, err
	}
	src, err := mtlx.WriteString(doc)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "serialize %s", name)
	}
	doc.ImportLibrary(lib.doc)
	elements = len(doc.LocalElements())

	opts.Logger.Debug("imported libraries",
		"document", name,
		"search_path", opts.LibrarySearchPath,
		"definitions", len(lib.doc.NodeDefs()))

	return &Loaded{
		Name:         name,
		Document:     doc,
		Library:      lib.fsys,
		DocumentHash: cache.HashParts([]byte(name), []byte(src)),
		LibraryHash:  lib.hash,
	}, nil
}

func readDocument(opts Options) (*mtlx.Document, error) {
	if opts.Document != nil {
		doc, err := mtlx.ReadBytes(opts.Document, opts.DocumentName)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidDocument, err, "read %s", opts.DocumentName)
		}
		return doc, nil
	}
	doc, err := mtlx.ReadFile(opts.Input)
	if stderrors.Is(err, fs.ErrNotExist) {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "document not found: %s", opts.Input)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidDocument, err, "read %s", opts.Input)
	}
	return doc, nil
}

// libraryHash identifies the library definitions together with every
// implementation source file they reference.
func libraryHash(doc *mtlx.Document, fsys fs.FS) (string, error) {
	src, err := mtlx.WriteString(doc)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInternal, err, "serialize libraries")
	}
	parts := [][]byte{[]byte(src)}
	seen := make(map[string]bool)
	for _, impl := range doc.Implementations() {
		if impl.Attr(mtlx.AttrFile) == "" {
			continue
		}
		name, data, err := shadergen.ReadSource(fsys, impl)
		if err != nil || seen[name] {
			continue
		}
		seen[name] = true
		parts = append(parts, []byte(name), data)
	}
	return cache.HashParts(parts...), nil
}

// loadLibrary returns the library for a search path, loading it on first use.
func (r *Runner) loadLibrary(searchPath string, folders []string) (*library, error) {
	key := libraryKey(searchPath, folders)

	r.mu.Lock()
	defer r.mu.Unlock()
	if lib, ok := r.libraries[key]; ok {
		return lib, nil
	}

	sp := mtlx.ParseSearchPath(searchPath)
	if len(sp) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "library search path is empty")
	}
	doc, err := mtlx.LoadSearchPathLibraries(sp, stdlib.FS(), folders)
	if stderrors.Is(err, mtlx.ErrLibraryNotFound) {
		return nil, errors.Wrap(errors.ErrCodeLibraryNotFound, err, "load libraries")
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidDocument, err, "load libraries")
	}

	fsys := sp.FS(stdlib.FS())
	hash, err := libraryHash(doc, fsys)
	if err != nil {
		return nil, err
	}
	lib := &library{doc: doc, fsys: fsys, hash: hash}
	r.libraries[key] = lib
	r.Logger.Debug("loaded libraries", "search_path", sp.String(), "definitions", len(doc.NodeDefs()))
	return lib, nil
}
