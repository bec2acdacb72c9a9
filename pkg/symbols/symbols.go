// Package symbols implements the name resolution pass: it collects
// globals and function-local names into symbol tables, attaches the
// matching symbol to every identifier node, and pools string literals.
package symbols

import (
	"fmt"

	"vslc/pkg/ast"
	"vslc/pkg/util"
)

type Kind int

const (
	GlobalVar Kind = iota
	GlobalArray
	Function
	Parameter
	LocalVar
	KindCount
)

var kindNames = [KindCount]string{
	"GLOBAL_VAR", "GLOBAL_ARRAY", "FUNCTION", "PARAMETER", "LOCAL_VAR",
}

func (k Kind) String() string {
	if k < 0 || k >= KindCount {
		return "UNKNOWN"
	}
	return kindNames[k]
}

// Symbol is one named entity. Seq is the symbol's insertion index in its
// table and is never reused, so two locals in sibling blocks of the same
// function always occupy distinct stack slots.
type Symbol struct {
	Kind Kind
	Name string
	Node *ast.Node
	Seq  int

	// Locals is the function-scoped table, set on Function symbols only.
	Locals *Table
}

// Table owns an ordered list of symbols and a stack of lexical scopes.
// Lookup searches the scope stack innermost-first, then falls back to the
// parent table (functions fall back to the global table).
type Table struct {
	Symbols []*Symbol
	scopes  []map[string]*Symbol
	parent  *Table
}

func NewTable(parent *Table) *Table {
	t := &Table{parent: parent}
	t.PushScope()
	return t
}

func (t *Table) PushScope() {
	t.scopes = append(t.scopes, make(map[string]*Symbol))
}

func (t *Table) PopScope() {
	t.scopes = t.scopes[:len(t.scopes)-1]
}

// Insert adds a symbol to the innermost scope, assigning its Seq. A name
// already present in that scope is an error; shadowing an outer scope is
// allowed.
func (t *Table) Insert(sym *Symbol) error {
	scope := t.scopes[len(t.scopes)-1]
	if existing, ok := scope[sym.Name]; ok {
		return fmt.Errorf("'%s' is already declared in this scope as a %s", sym.Name, existing.Kind)
	}
	sym.Seq = len(t.Symbols)
	t.Symbols = append(t.Symbols, sym)
	scope[sym.Name] = sym
	return nil
}

func (t *Table) Lookup(name string) *Symbol {
	for i := len(t.scopes) - 1; i >= 0; i-- {
		if sym, ok := t.scopes[i][name]; ok {
			return sym
		}
	}
	if t.parent != nil {
		return t.parent.Lookup(name)
	}
	return nil
}

// StringPool collects string literals in order of appearance. Identical
// literals are stored once per appearance; the code generator emits one
// labelled constant per entry.
type StringPool struct {
	Strings []string
}

func (sp *StringPool) Add(s string) int {
	sp.Strings = append(sp.Strings, s)
	return len(sp.Strings) - 1
}

// Bindings is the result of the binding pass.
type Bindings struct {
	Globals *Table
	Strings *StringPool
}

type binder struct {
	globals *Table
	strings *StringPool
	diags   util.Diagnostics
}

// Bind resolves every name in the program and pools every string
// literal, mutating the tree in place: identifier nodes get their Sym
// attached and string literal nodes become pool references. The pass
// accumulates all resolution errors before returning them as one joined
// error, and must run exactly once per tree.
func Bind(root *ast.Node) (*Bindings, error) {
	b := &binder{globals: NewTable(nil), strings: &StringPool{}}
	b.findGlobals(root)
	for _, child := range root.Children {
		if child != nil && child.Kind == ast.Function {
			b.bindFunction(child)
		}
	}
	if err := b.diags.Err(); err != nil {
		return nil, err
	}
	return &Bindings{Globals: b.globals, Strings: b.strings}, nil
}

// findGlobals is the first pass: it registers every global variable,
// array and function before any function body is visited, so a function
// may call another defined further down the file.
func (b *binder) findGlobals(root *ast.Node) {
	for _, child := range root.Children {
		if child == nil {
			continue
		}
		switch child.Kind {
		case ast.GlobalDecl:
			for _, decl := range child.Children {
				name := decl
				kind := GlobalVar
				if decl.Kind == ast.Subscript {
					name = decl.Children[0]
					kind = GlobalArray
				}
				b.insert(b.globals, &Symbol{Kind: kind, Name: name.Ident, Node: decl}, name)
			}
		case ast.Function:
			name := child.Children[0]
			sym := &Symbol{
				Kind:   Function,
				Name:   name.Ident,
				Node:   child,
				Locals: NewTable(b.globals),
			}
			b.insert(b.globals, sym, name)
		}
	}
}

func (b *binder) bindFunction(fn *ast.Node) {
	name := fn.Children[0]
	sym, ok := name.Sym.(*Symbol)
	if !ok {
		// The function failed to register, a duplicate. Its body is
		// still bound against a throwaway table so errors inside it
		// are reported too.
		sym = &Symbol{Kind: Function, Name: name.Ident, Node: fn, Locals: NewTable(b.globals)}
	}

	for _, param := range fn.Children[1].Children {
		b.insert(sym.Locals, &Symbol{Kind: Parameter, Name: param.Ident, Node: param}, param)
	}
	b.bindSubtree(fn.Children[2], sym.Locals)
}

// bindSubtree resolves names in statements and expressions. Blocks push
// a scope; a block with two children carries a declaration list ahead of
// its statement list.
func (b *binder) bindSubtree(n *ast.Node, table *Table) {
	if n == nil {
		return
	}
	switch n.Kind {
	case ast.Block:
		table.PushScope()
		if len(n.Children) == 2 {
			for _, decl := range n.Children[0].Children {
				b.insert(table, &Symbol{Kind: LocalVar, Name: decl.Ident, Node: decl}, decl)
			}
		}
		b.bindSubtree(n.Children[len(n.Children)-1], table)
		table.PopScope()
	case ast.Ident:
		sym := table.Lookup(n.Ident)
		if sym == nil {
			b.diags.Errorf(n.Tok, "'%s' has not been declared.", n.Ident)
			return
		}
		n.Sym = sym
	case ast.String:
		n.StrIndex = b.strings.Add(n.Str)
		n.Kind = ast.StringRef
		n.Str = ""
	default:
		for _, child := range n.Children {
			b.bindSubtree(child, table)
		}
	}
}

func (b *binder) insert(table *Table, sym *Symbol, ident *ast.Node) {
	if err := table.Insert(sym); err != nil {
		b.diags.Errorf(ident.Tok, "%s.", err)
		return
	}
	ident.Sym = sym
}
