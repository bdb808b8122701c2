// Package mtlx implements the material document model: reading and writing
// .mtlx files, loading standard node libraries, matching nodes to their
// definitions, validating documents and finding renderable elements.
//
// # Reading
//
// [ReadFile] and [ReadFS] parse a document and resolve xi:include
// directives relative to the including file. [Read] parses from memory and
// rejects includes.
//
//	doc, err := mtlx.ReadFile("marble.mtlx")
//	lib, err := mtlx.LoadLibraries(os.DirFS("/opt/materialx"), []string{"libraries"})
//	doc.ImportLibrary(lib)
//
// # Libraries
//
// Library content imported with [Document.ImportLibrary] is marked so that
// validation, renderable discovery and writing only look at the document's
// own elements. A document's definitions take precedence over library ones
// with the same name.
//
// # Validation
//
// [Document.Validate] returns a boolean and a message with one line per
// problem. Problems are warnings: callers decide whether to stop.
package mtlx
