package ast

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Print writes an indented dump of the tree rooted at t.Root to w, one node
// per line, depth indicated by ". " repeated per level, walking a flat
// index tree instead of a Visitor over pointer nodes.
func Print(w io.Writer, t *Tree) error {
	return printNode(w, t, t.Root, 0)
}

func printNode(w io.Writer, t *Tree, i, depth int) error {
	n := t.Nodes[i]
	label := n.Kind.String()
	switch n.Kind {
	case Ident, LitString, Field, UsePath, TypeAnnot:
		label += " " + strconv.Quote(t.Text(i))
	case LitInt:
		label += fmt.Sprintf(" %d", t.Int(i))
	case LitFloat:
		label += fmt.Sprintf(" %g", t.Float(i))
	case LitChar:
		label += fmt.Sprintf(" %q", t.Char(i))
	case LitByte:
		label += fmt.Sprintf(" 0x%02x", t.Byte(i))
	case LitBool:
		label += fmt.Sprintf(" %t", t.Bool(i))
	}
	if _, err := fmt.Fprintf(w, "%s%s [%d:%d]\n", strings.Repeat(". ", depth), label, n.Span.Start, n.Span.End); err != nil {
		return err
	}
	for _, c := range t.ChildIndices(i) {
		if err := printNode(w, t, int(c), depth+1); err != nil {
			return err
		}
	}
	return nil
}

