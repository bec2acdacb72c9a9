// Package ast defines the types used to represent the Abstract Syntax Tree (AST)
package ast

import (
	"vslc/pkg/token"
)

// Kind defines the kind of a node in the AST
type Kind int

// Node kinds enum
const (
	List Kind = iota
	Function
	GlobalDecl
	Block
	Assign
	Print
	Return
	Break
	If
	While
	Operator
	Ident
	Number
	String
	StringRef
	Subscript
	Call
	KindCount
)

var kindNames = [KindCount]string{
	"LIST", "FUNCTION", "GLOBAL_DECLARATION", "BLOCK", "ASSIGNMENT_STATEMENT",
	"PRINT_STATEMENT", "RETURN_STATEMENT", "BREAK_STATEMENT", "IF_STATEMENT",
	"WHILE_STATEMENT", "OPERATOR", "IDENTIFIER", "NUMBER_LITERAL",
	"STRING_LITERAL", "STRING_LIST_REFERENCE", "ARRAY_INDEXING", "FUNCTION_CALL",
}

func (k Kind) String() string {
	if k < 0 || k >= KindCount {
		return "UNKNOWN"
	}
	return kindNames[k]
}

// Node represents a node in the Abstract Syntax Tree. Which children are
// meaningful is determined jointly by Kind and the child count: a binary
// Operator has exactly 2 children, a unary one has 1, an If has 2 children
// (no else branch) or 3, a Block has its statement list last with an
// optional declaration list before it.
type Node struct {
	Kind     Kind
	Tok      token.Token
	Children []*Node

	// Variant payloads
	Op       token.Type // Operator nodes, decided at parse time
	Ident    string     // Ident nodes
	Num      int64      // Number nodes
	Str      string     // String nodes, consumed once pooled
	StrIndex int        // StringRef nodes

	// Sym is attached to Ident nodes by the symbol binder. It is declared
	// untyped to keep this package free of a dependency on pkg/symbols;
	// consumers assert *symbols.Symbol.
	Sym any
}

// NewNode creates a node of the given kind with the given children.
// Nil children are kept in place: the optimizer uses nil as the
// placeholder for a statement that folded away entirely.
func NewNode(kind Kind, tok token.Token, children ...*Node) *Node {
	return &Node{Kind: kind, Tok: tok, Children: children}
}

func NewList(tok token.Token, children ...*Node) *Node {
	return NewNode(List, tok, children...)
}

func NewNumber(tok token.Token, value int64) *Node {
	return &Node{Kind: Number, Tok: tok, Num: value}
}

func NewString(tok token.Token, value string) *Node {
	return &Node{Kind: String, Tok: tok, Str: value}
}

func NewIdent(tok token.Token, name string) *Node {
	return &Node{Kind: Ident, Tok: tok, Ident: name}
}

func NewOperator(tok token.Token, op token.Type, operands ...*Node) *Node {
	return &Node{Kind: Operator, Tok: tok, Op: op, Children: operands}
}

// Append adds an element to the node's child list, growing it as needed.
func (n *Node) Append(child *Node) *Node {
	n.Children = append(n.Children, child)
	return n
}

// OpName returns the source spelling of an Operator node's operator.
func (n *Node) OpName() string { return token.TypeStrings[n.Op] }

// Walk calls visitor on n and every node below it, in depth-first
// pre-order. Nil placeholders are skipped.
func Walk(n *Node, visitor func(*Node)) {
	if n == nil {
		return
	}
	visitor(n)
	for _, child := range n.Children {
		Walk(child, visitor)
	}
}
