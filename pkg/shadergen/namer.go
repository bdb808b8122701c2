package shadergen

import (
	"fmt"
	"strings"

	"github.com/iancoleman/strcase"
)

// Namer hands out unique identifiers for generated code.
type Namer struct {
	reserved  map[string]struct{}
	usedNames map[string]struct{}
	counter   int
}

// NewNamer returns a namer that never returns one of the reserved words
// verbatim.
func NewNamer(reserved []string) *Namer {
	n := &Namer{
		reserved:  make(map[string]struct{}, len(reserved)),
		usedNames: make(map[string]struct{}),
	}
	for _, w := range reserved {
		n.reserved[w] = struct{}{}
	}
	return n
}

// Reserve marks name as used without returning it.
func (n *Namer) Reserve(name string) {
	n.usedNames[name] = struct{}{}
}

// Name returns a unique identifier derived from base. Invalid characters are
// replaced, reserved words are prefixed with an underscore and collisions get
// a numeric suffix.
func (n *Namer) Name(base string) string {
	escaped := n.escape(sanitize(base))
	if _, used := n.usedNames[escaped]; !used {
		n.usedNames[escaped] = struct{}{}
		return escaped
	}
	for {
		n.counter++
		candidate := fmt.Sprintf("%s_%d", escaped, n.counter)
		if _, used := n.usedNames[candidate]; !used {
			n.usedNames[candidate] = struct{}{}
			return candidate
		}
	}
}

// VarName returns a unique snake_case identifier for an element name, such
// as "sr_marble_out" for the output of node "SR_marble".
func (n *Namer) VarName(elementName, suffix string) string {
	base := strcase.ToSnake(elementName)
	if suffix != "" {
		base += "_" + suffix
	}
	return n.Name(base)
}

func (n *Namer) escape(name string) string {
	if _, ok := n.reserved[name]; ok {
		return "_" + name
	}
	if strings.HasPrefix(name, "gl_") {
		return "_" + name
	}
	return name
}

func sanitize(s string) string {
	if s == "" {
		return "_unnamed"
	}
	var b strings.Builder
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			if i == 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
