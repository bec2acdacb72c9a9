package optimizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vslc/pkg/ast"
	"vslc/pkg/config"
	"vslc/pkg/lexer"
	"vslc/pkg/parser"
)

func parseSource(t *testing.T, src string) *ast.Node {
	t.Helper()
	return parser.Parse(lexer.Tokenize([]rune(src), 0))
}

// foldReturn folds a program of the shape "func f(...) return <expr>"
// and returns the folded expression.
func foldReturn(t *testing.T, src string) *ast.Node {
	t.Helper()
	root := Fold(parseSource(t, src), config.NewConfig())
	return root.Children[0].Children[2].Children[0]
}

func TestFoldArithmetic(t *testing.T) {
	expr := foldReturn(t, "func f() return 2 + 3 * 4")
	require.Equal(t, ast.Number, expr.Kind)
	assert.Equal(t, int64(14), expr.Num)
}

func TestFoldDivisionTruncates(t *testing.T) {
	expr := foldReturn(t, "func f() return 7 / 2")
	assert.Equal(t, int64(3), expr.Num)

	expr = foldReturn(t, "func f() return 0 - 7 / 2")
	assert.Equal(t, int64(-3), expr.Num)
}

func TestFoldRelations(t *testing.T) {
	cases := map[string]int64{
		"1 < 2":  1,
		"2 < 1":  0,
		"2 == 2": 1,
		"2 != 2": 0,
		"3 >= 3": 1,
		"3 > 3":  0,
		"1 <= 0": 0,
	}
	for src, want := range cases {
		expr := foldReturn(t, "func f() return "+src)
		require.Equal(t, ast.Number, expr.Kind, src)
		assert.Equal(t, want, expr.Num, src)
	}
}

func TestFoldUnary(t *testing.T) {
	assert.Equal(t, int64(-5), foldReturn(t, "func f() return -5").Num)
	assert.Equal(t, int64(1), foldReturn(t, "func f() return !0").Num)
	assert.Equal(t, int64(0), foldReturn(t, "func f() return !7").Num)
}

func TestFoldDivisionByZeroLeftAlone(t *testing.T) {
	expr := foldReturn(t, "func f() return 1 / 0")
	assert.Equal(t, ast.Operator, expr.Kind)
}

func TestFoldLeavesIdentifiersAlone(t *testing.T) {
	expr := foldReturn(t, "func f(n) return n + 1")
	require.Equal(t, ast.Operator, expr.Kind)
	// but a constant subtree inside still folds
	expr = foldReturn(t, "func f(n) return n + 2 * 3")
	assert.Equal(t, int64(6), expr.Children[1].Num)
}

func TestFoldIfTakenBranch(t *testing.T) {
	cfg := config.NewConfig()

	root := Fold(parseSource(t, "func f() if 1 then return 10 else return 20"), cfg)
	body := root.Children[0].Children[2]
	require.Equal(t, ast.Return, body.Kind)
	assert.Equal(t, int64(10), body.Children[0].Num)

	root = Fold(parseSource(t, "func f() if 0 then return 10 else return 20"), cfg)
	body = root.Children[0].Children[2]
	assert.Equal(t, int64(20), body.Children[0].Num)
}

func TestFoldIfWithoutElseVanishes(t *testing.T) {
	root := Fold(parseSource(t, `
func f()
begin
	if 0 then print 1
	return 2
end`), config.NewConfig())
	stmts := root.Children[0].Children[2].Children[0]
	require.Len(t, stmts.Children, 2)
	assert.Nil(t, stmts.Children[0])
	assert.Equal(t, ast.Return, stmts.Children[1].Kind)
}

func TestFoldWhileZeroVanishes(t *testing.T) {
	root := Fold(parseSource(t, `
func f()
begin
	while 0 do print 1
	return 2
end`), config.NewConfig())
	stmts := root.Children[0].Children[2].Children[0]
	assert.Nil(t, stmts.Children[0])
}

func TestFoldWhileNonzeroKept(t *testing.T) {
	root := Fold(parseSource(t, "func f() while 1 do break"), config.NewConfig())
	body := root.Children[0].Children[2]
	require.Equal(t, ast.While, body.Kind)
	assert.Equal(t, ast.Break, body.Children[1].Kind)
}

func TestUnreachableStatementsRemoved(t *testing.T) {
	root := parseSource(t, `
func f()
begin
	return 1
	print 2
	print 3
end`)
	RemoveUnreachable(root, config.NewConfig())
	stmts := root.Children[0].Children[2].Children[0]
	require.Len(t, stmts.Children, 1)
	assert.Equal(t, ast.Return, stmts.Children[0].Kind)
}

func TestIfWithBothBranchesDivertingTruncates(t *testing.T) {
	root := parseSource(t, `
func f(n)
begin
	if n then return 1 else return 2
	print 3
end`)
	RemoveUnreachable(root, config.NewConfig())
	stmts := root.Children[0].Children[2].Children[0]
	require.Len(t, stmts.Children, 1)
	assert.Equal(t, ast.If, stmts.Children[0].Kind)
}

func TestIfWithoutElseDoesNotDivert(t *testing.T) {
	root := parseSource(t, `
func f(n)
begin
	if n then return 1
	print 2
end`)
	RemoveUnreachable(root, config.NewConfig())

	// The non-diverting body is wrapped in a block that appends return 0.
	body := root.Children[0].Children[2]
	require.Equal(t, ast.Block, body.Kind)
	wrapper := body.Children[0]
	require.Len(t, wrapper.Children, 2)
	last := wrapper.Children[1]
	require.Equal(t, ast.Return, last.Kind)
	assert.Equal(t, int64(0), last.Children[0].Num)

	// The print statement inside the original block survives.
	inner := wrapper.Children[0]
	require.Equal(t, ast.Block, inner.Kind)
	require.Len(t, inner.Children[0].Children, 2)
	assert.Equal(t, ast.Print, inner.Children[0].Children[1].Kind)
}

func TestDivertingBodyNotWrapped(t *testing.T) {
	root := parseSource(t, "func f(n) return n")
	RemoveUnreachable(root, config.NewConfig())
	assert.Equal(t, ast.Return, root.Children[0].Children[2].Kind)
}

func TestWhileBodyDoesNotDivertFunction(t *testing.T) {
	root := parseSource(t, "func f(n) while n do return 1")
	RemoveUnreachable(root, config.NewConfig())
	body := root.Children[0].Children[2]
	require.Equal(t, ast.Block, body.Kind)
	last := body.Children[0].Children[len(body.Children[0].Children)-1]
	assert.Equal(t, ast.Return, last.Kind)
}
