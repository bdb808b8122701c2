package shadergen

import (
	"fmt"
	"strconv"
	"strings"
)

// Writer accumulates indented source lines.
type Writer struct {
	out    strings.Builder
	indent int
}

// Line writes one indented line. Format verbs are only interpreted when args
// are given.
func (w *Writer) Line(format string, args ...any) {
	if format == "" && len(args) == 0 {
		w.out.WriteByte('\n')
		return
	}
	w.writeIndent()
	if len(args) == 0 {
		w.out.WriteString(format)
	} else {
		fmt.Fprintf(&w.out, format, args...)
	}
	w.out.WriteByte('\n')
}

// Block writes multi-line source verbatim, followed by a blank line.
func (w *Writer) Block(src string) {
	src = strings.TrimRight(src, "\n")
	if src == "" {
		return
	}
	w.out.WriteString(src)
	w.out.WriteString("\n\n")
}

// Push increases indentation.
func (w *Writer) Push() { w.indent++ }

// Pop decreases indentation.
func (w *Writer) Pop() {
	if w.indent > 0 {
		w.indent--
	}
}

func (w *Writer) writeIndent() {
	for i := 0; i < w.indent; i++ {
		w.out.WriteString("    ")
	}
}

// String returns the accumulated source.
func (w *Writer) String() string { return w.out.String() }

// WriteNode writes the statements that compute inst.
func WriteNode(w *Writer, syntax Syntax, inst *NodeInstance) error {
	typ := syntax.TypeName(inst.Type)
	if typ == "" {
		return fmt.Errorf("%w: type %s of %s", ErrUnsupported, inst.Type, inst.Element.NamePath())
	}
	switch inst.Kind {
	case ImplBuiltin:
		in := "in"
		if inst.Element.Category == "constant" {
			in = "value"
		}
		expr, ok := argExpr(inst, in)
		if !ok {
			return fmt.Errorf("%w: %s has no input %q", ErrNoImplementation, inst.NodeDef.Name(), in)
		}
		w.Line("%s %s = %s;", typ, inst.Var, expr)
	case ImplInline:
		expr, err := Expand(inst)
		if err != nil {
			return err
		}
		w.Line("%s %s = %s;", typ, inst.Var, expr)
	case ImplFunction:
		w.Line("%s %s = %s;", typ, inst.Var, syntax.DefaultValue(inst.Type))
		args := make([]string, 0, len(inst.Args)+1)
		for _, a := range inst.Args {
			if !a.Omit {
				args = append(args, a.Expr)
			}
		}
		args = append(args, inst.Var)
		w.Line("%s(%s);", inst.Source, strings.Join(args, ", "))
	}
	if inst.PostCall != "" {
		w.Line("%s = %s(%s);", inst.Var, inst.PostCall, inst.Var)
	}
	return nil
}

func argExpr(inst *NodeInstance, name string) (string, bool) {
	for _, a := range inst.Args {
		if a.Name == name {
			return a.Expr, true
		}
	}
	return "", false
}

// FormatFloat prints f so that it always reads as a floating-point literal.
func FormatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eEn") {
		s += ".0"
	}
	return s
}

// FormatFloats formats each value with FormatFloat and joins them with ", ".
func FormatFloats(fs []float64) string {
	parts := make([]string, len(fs))
	for i, f := range fs {
		parts[i] = FormatFloat(f)
	}
	return strings.Join(parts, ", ")
}
