package ast

import (
	"fmt"
	"io"
	"strings"
)

// Fprint writes an indented textual dump of the tree rooted at n.
func Fprint(w io.Writer, n *Node) {
	fprintNode(w, n, 0)
}

func fprintNode(w io.Writer, n *Node, nesting int) {
	fmt.Fprint(w, strings.Repeat(" ", nesting))

	if n == nil {
		fmt.Fprintln(w, "(NULL)")
		return
	}

	fmt.Fprint(w, n.Kind.String())

	// For nodes with extra data, include it in the printout
	switch n.Kind {
	case Operator:
		fmt.Fprintf(w, " (%s)", n.OpName())
	case Ident:
		fmt.Fprintf(w, " (%s)", n.Ident)
	case Number:
		fmt.Fprintf(w, " (%d)", n.Num)
	case String:
		fmt.Fprintf(w, " (%q)", n.Str)
	case StringRef:
		fmt.Fprintf(w, " (%d)", n.StrIndex)
	}

	fmt.Fprintln(w)

	for _, child := range n.Children {
		fprintNode(w, child, nesting+1)
	}
}

// FprintGraphviz writes the tree as a GraphViz digraph in dot format.
func FprintGraphviz(w io.Writer, root *Node) {
	fmt.Fprintln(w, "digraph {")
	fmt.Fprintln(w, "\tnode [shape=box];")
	nextID := 0
	var emit func(n *Node) int
	emit = func(n *Node) int {
		id := nextID
		nextID++
		fmt.Fprintf(w, "\tn%d [label=%q];\n", id, graphvizLabel(n))
		if n == nil {
			return id
		}
		for _, child := range n.Children {
			childID := emit(child)
			fmt.Fprintf(w, "\tn%d -> n%d;\n", id, childID)
		}
		return id
	}
	emit(root)
	fmt.Fprintln(w, "}")
}

func graphvizLabel(n *Node) string {
	if n == nil {
		return "NULL"
	}
	switch n.Kind {
	case Operator:
		return fmt.Sprintf("%s\n%s", n.Kind, n.OpName())
	case Ident:
		return fmt.Sprintf("%s\n%s", n.Kind, n.Ident)
	case Number:
		return fmt.Sprintf("%s\n%d", n.Kind, n.Num)
	case String:
		return fmt.Sprintf("%s\n%s", n.Kind, n.Str)
	case StringRef:
		return fmt.Sprintf("%s\n%d", n.Kind, n.StrIndex)
	}
	return n.Kind.String()
}
