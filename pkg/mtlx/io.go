package mtlx

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"

	"github.com/beevik/etree"
)

var (
	// ErrInvalidXML is returned when a file is not well-formed XML.
	ErrInvalidXML = errors.New("invalid XML")

	// ErrNotMaterialX is returned when the root element is not <materialx>.
	ErrNotMaterialX = errors.New("root element is not <materialx>")

	// ErrIncludeCycle is returned when xi:include directives form a loop.
	ErrIncludeCycle = errors.New("include cycle")

	// ErrIncludeUnresolved is returned by Read, which has no location to
	// resolve xi:include hrefs against.
	ErrIncludeUnresolved = errors.New("cannot resolve include")
)

const indentSpaces = 2

// source abstracts the location documents are read from so includes can be
// resolved both on the OS file system and inside an fs.FS.
type source interface {
	read(name string) ([]byte, error)
	resolve(from, href string) string
}

type osSource struct{}

func (osSource) read(name string) ([]byte, error) { return os.ReadFile(name) }

func (osSource) resolve(from, href string) string {
	if filepath.IsAbs(href) {
		return filepath.Clean(href)
	}
	return filepath.Join(filepath.Dir(from), filepath.FromSlash(href))
}

type fsSource struct{ fsys fs.FS }

func (s fsSource) read(name string) ([]byte, error) { return fs.ReadFile(s.fsys, name) }

func (fsSource) resolve(from, href string) string {
	return path.Join(path.Dir(from), href)
}

// Read parses a document from r. Documents read this way cannot contain
// xi:include directives.
func Read(r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return ReadBytes(data, "")
}

// ReadBytes parses a document from memory. uri is recorded as the SourceURI
// of every element and used in error messages.
func ReadBytes(data []byte, uri string) (*Document, error) {
	rd := &reader{}
	return rd.document(data, uri)
}

// ReadFile parses the document at name on the local file system, resolving
// xi:include hrefs relative to the including file.
func ReadFile(name string) (*Document, error) {
	rd := &reader{src: osSource{}}
	return rd.file(name)
}

// ReadFS parses the document at name inside fsys, resolving xi:include
// hrefs relative to the including file.
func ReadFS(fsys fs.FS, name string) (*Document, error) {
	rd := &reader{src: fsSource{fsys: fsys}}
	return rd.file(name)
}

type reader struct {
	src   source
	stack []string
	seen  map[string]bool
}

func (r *reader) file(name string) (*Document, error) {
	data, err := r.src.read(name)
	if err != nil {
		return nil, err
	}
	return r.document(data, name)
}

func (r *reader) document(data []byte, uri string) (*Document, error) {
	xroot, err := parseXML(data, uri)
	if err != nil {
		return nil, err
	}
	root := NewElement(CategoryDocument, "")
	root.SourceURI = uri
	copyAttrs(root, xroot)

	r.stack = append(r.stack, uri)
	if r.seen == nil {
		r.seen = map[string]bool{}
	}
	r.seen[uri] = true
	if err := r.children(root, xroot, uri); err != nil {
		return nil, err
	}
	r.stack = r.stack[:len(r.stack)-1]
	return newDocument(root), nil
}

func (r *reader) children(dst *Element, src *etree.Element, uri string) error {
	for _, xc := range src.ChildElements() {
		if xc.Space == "xi" && xc.Tag == "include" {
			if err := r.include(dst, xc.SelectAttrValue("href", ""), uri); err != nil {
				return err
			}
			continue
		}
		e := NewElement(xc.Tag, "")
		e.SourceURI = uri
		copyAttrs(e, xc)
		if err := r.children(e, xc, uri); err != nil {
			return err
		}
		dst.AppendChild(e)
	}
	return nil
}

// include merges the top-level elements of href into dst. Names already
// present in dst win over included ones.
func (r *reader) include(dst *Element, href, from string) error {
	if r.src == nil || href == "" {
		return fmt.Errorf("%w %q in %s", ErrIncludeUnresolved, href, from)
	}
	name := r.src.resolve(from, href)
	if slices.Contains(r.stack, name) {
		return fmt.Errorf("%w: %s includes %s", ErrIncludeCycle, from, name)
	}
	if r.seen[name] {
		return nil
	}
	inc, err := r.file(name)
	if err != nil {
		return fmt.Errorf("include %s: %w", href, err)
	}
	for _, c := range slices.Clone(inc.root.children) {
		if c.name != "" && dst.Child(c.name) != nil {
			continue
		}
		dst.AppendChild(c)
	}
	return nil
}

// filenameTokens may appear unescaped in attribute values of hand-written
// documents.
var filenameTokens = [][]byte{[]byte("<UDIM>"), []byte("<UVTILE>")}

// escapeAttrTokens rewrites filename tokens inside quoted attribute values
// as character references so the XML parser accepts them. Comments and
// character data are copied unchanged.
func escapeAttrTokens(data []byte) []byte {
	if !bytes.Contains(data, []byte("<UDIM>")) && !bytes.Contains(data, []byte("<UVTILE>")) {
		return data
	}
	out := make([]byte, 0, len(data)+16)
	var inTag bool
	var quote byte
	for i := 0; i < len(data); i++ {
		ch := data[i]
		switch {
		case quote != 0:
			if ch == quote {
				quote = 0
			} else if ch == '<' {
				if tok := tokenAt(data[i:]); tok != nil {
					out = append(out, "&lt;"...)
					out = append(out, tok[1:len(tok)-1]...)
					out = append(out, "&gt;"...)
					i += len(tok) - 1
					continue
				}
			}
		case inTag:
			if ch == '"' || ch == '\'' {
				quote = ch
			} else if ch == '>' {
				inTag = false
			}
		case ch == '<':
			if bytes.HasPrefix(data[i:], []byte("<!--")) {
				end := bytes.Index(data[i+4:], []byte("-->"))
				if end < 0 {
					return append(out, data[i:]...)
				}
				out = append(out, data[i:i+4+end+3]...)
				i += 4 + end + 2
				continue
			}
			inTag = true
		}
		out = append(out, ch)
	}
	return out
}

func tokenAt(b []byte) []byte {
	for _, tok := range filenameTokens {
		if bytes.HasPrefix(b, tok) {
			return tok
		}
	}
	return nil
}

func parseXML(data []byte, uri string) (*etree.Element, error) {
	xdoc := etree.NewDocument()
	if err := xdoc.ReadFromBytes(escapeAttrTokens(data)); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidXML, displayURI(uri), err)
	}
	xroot := xdoc.Root()
	if xroot == nil {
		return nil, fmt.Errorf("%w: %s: empty document", ErrInvalidXML, displayURI(uri))
	}
	if xroot.Tag != CategoryDocument {
		return nil, fmt.Errorf("%w: %s has <%s>", ErrNotMaterialX, displayURI(uri), xroot.FullTag())
	}
	return xroot, nil
}

func copyAttrs(dst *Element, src *etree.Element) {
	for _, a := range src.Attr {
		if a.Space == "xmlns" || (a.Space == "" && a.Key == "xmlns") {
			continue
		}
		key := a.Key
		if a.Space != "" {
			key = a.Space + ":" + a.Key
		}
		if key == AttrName {
			dst.name = a.Value
			continue
		}
		dst.SetAttr(key, a.Value)
	}
}

func displayURI(uri string) string {
	if uri == "" {
		return "<memory>"
	}
	return uri
}

// Write serialises the document with two-space indentation. Elements that
// were imported from libraries are not written.
func Write(w io.Writer, d *Document) error {
	xdoc := etree.NewDocument()
	xdoc.CreateProcInst("xml", `version="1.0"`)
	xroot := xdoc.CreateElement(CategoryDocument)
	for _, a := range d.root.attrs {
		xroot.CreateAttr(a.Name, a.Value)
	}
	for _, c := range d.LocalElements() {
		writeElement(xroot, c)
	}
	xdoc.Indent(indentSpaces)
	_, err := xdoc.WriteTo(w)
	return err
}

// WriteString is Write into a string.
func WriteString(d *Document) (string, error) {
	var buf bytes.Buffer
	if err := Write(&buf, d); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// WriteFile writes the document to name.
func WriteFile(name string, d *Document) error {
	var buf bytes.Buffer
	if err := Write(&buf, d); err != nil {
		return err
	}
	return os.WriteFile(name, buf.Bytes(), 0o644)
}

func writeElement(parent *etree.Element, e *Element) {
	x := parent.CreateElement(e.Category)
	if e.name != "" {
		x.CreateAttr(AttrName, e.name)
	}
	for _, a := range e.attrs {
		x.CreateAttr(a.Name, a.Value)
	}
	for _, c := range e.children {
		writeElement(x, c)
	}
}
