package symbols

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vslc/pkg/ast"
	"vslc/pkg/lexer"
	"vslc/pkg/parser"
)

func bindSource(t *testing.T, src string) (*Bindings, error) {
	t.Helper()
	return Bind(parser.Parse(lexer.Tokenize([]rune(src), 0)))
}

func TestGlobalsAndFunctionsRegistered(t *testing.T) {
	binds, err := bindSource(t, `
var x, table[50]
func main(n) return n
`)
	require.NoError(t, err)

	x := binds.Globals.Lookup("x")
	require.NotNil(t, x)
	assert.Equal(t, GlobalVar, x.Kind)

	table := binds.Globals.Lookup("table")
	require.NotNil(t, table)
	assert.Equal(t, GlobalArray, table.Kind)
	assert.Equal(t, int64(50), table.Node.Children[1].Num)

	main := binds.Globals.Lookup("main")
	require.NotNil(t, main)
	assert.Equal(t, Function, main.Kind)
	require.NotNil(t, main.Locals)
	require.Len(t, main.Locals.Symbols, 1)
	assert.Equal(t, Parameter, main.Locals.Symbols[0].Kind)
}

func TestIdentifiersGetSymbolsAttached(t *testing.T) {
	root := parser.Parse(lexer.Tokenize([]rune(`
var g
func f(a)
begin
	var b
	b := a + g
	return b
end`), 0))
	_, err := Bind(root)
	require.NoError(t, err)

	body := root.Children[1].Children[2]
	assign := body.Children[1].Children[0]

	target := assign.Children[0]
	require.IsType(t, &Symbol{}, target.Sym)
	assert.Equal(t, LocalVar, target.Sym.(*Symbol).Kind)

	sum := assign.Children[1]
	assert.Equal(t, Parameter, sum.Children[0].Sym.(*Symbol).Kind)
	assert.Equal(t, GlobalVar, sum.Children[1].Sym.(*Symbol).Kind)
}

func TestCallBindsToLaterFunction(t *testing.T) {
	root := parser.Parse(lexer.Tokenize([]rune(`
func f(n) return g(n)
func g(n) return n
`), 0))
	_, err := Bind(root)
	require.NoError(t, err)

	call := root.Children[0].Children[2].Children[0]
	require.Equal(t, ast.Call, call.Kind)
	sym := call.Children[0].Sym.(*Symbol)
	assert.Equal(t, Function, sym.Kind)
	assert.Equal(t, "g", sym.Name)
}

func TestUndeclaredIdentifiersAccumulate(t *testing.T) {
	_, err := bindSource(t, `
func f()
begin
	a := 1
	b := 2
	return 0
end`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "'a' has not been declared")
	assert.Contains(t, err.Error(), "'b' has not been declared")
}

func TestDuplicateDeclarationInOneScope(t *testing.T) {
	_, err := bindSource(t, `
func f()
begin
	var a, a
	return 0
end`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "'a' is already declared")
}

func TestDuplicateParameter(t *testing.T) {
	_, err := bindSource(t, "func f(a, a) return a")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already declared")
}

func TestShadowingResolvesInnermost(t *testing.T) {
	root := parser.Parse(lexer.Tokenize([]rune(`
func f(a)
begin
	var b
	b := a
	begin
		var a
		a := 2
	end
	return b
end`), 0))
	_, err := Bind(root)
	require.NoError(t, err)

	outer := root.Children[0].Children[2].Children[1]
	outerAssign := outer.Children[0]
	assert.Equal(t, Parameter, outerAssign.Children[1].Sym.(*Symbol).Kind)

	innerBlock := outer.Children[1]
	innerAssign := innerBlock.Children[1].Children[0]
	assert.Equal(t, LocalVar, innerAssign.Children[0].Sym.(*Symbol).Kind)
}

func TestSequenceNumbersNeverReused(t *testing.T) {
	binds, err := bindSource(t, `
func f(p)
begin
	var a
	begin
		var b
		b := 1
	end
	begin
		var c
		c := 2
	end
	return a
end`)
	require.NoError(t, err)

	locals := binds.Globals.Lookup("f").Locals.Symbols
	require.Len(t, locals, 4)
	for i, sym := range locals {
		assert.Equal(t, i, sym.Seq, sym.Name)
	}
	// b and c sit in sibling scopes but still get distinct slots
	assert.Equal(t, "b", locals[2].Name)
	assert.Equal(t, "c", locals[3].Name)
}

func TestStringPoolNeverDeduplicates(t *testing.T) {
	root := parser.Parse(lexer.Tokenize([]rune(`
func f()
begin
	print "x", "y"
	print "x"
	return 0
end`), 0))
	binds, err := Bind(root)
	require.NoError(t, err)

	require.Equal(t, []string{"x", "y", "x"}, binds.Strings.Strings)

	stmts := root.Children[0].Children[2].Children[0]
	first := stmts.Children[0]
	assert.Equal(t, ast.StringRef, first.Children[0].Kind)
	assert.Equal(t, 0, first.Children[0].StrIndex)
	assert.Equal(t, 1, first.Children[1].StrIndex)
	assert.Equal(t, 2, stmts.Children[1].Children[0].StrIndex)
}

func TestScopeStackSearchOrder(t *testing.T) {
	global := NewTable(nil)
	require.NoError(t, global.Insert(&Symbol{Kind: GlobalVar, Name: "v"}))

	local := NewTable(global)
	require.NoError(t, local.Insert(&Symbol{Kind: Parameter, Name: "p"}))

	local.PushScope()
	require.NoError(t, local.Insert(&Symbol{Kind: LocalVar, Name: "v"}))

	assert.Equal(t, LocalVar, local.Lookup("v").Kind)
	assert.Equal(t, Parameter, local.Lookup("p").Kind)

	local.PopScope()
	assert.Equal(t, GlobalVar, local.Lookup("v").Kind)
	assert.Nil(t, local.Lookup("missing"))
}
