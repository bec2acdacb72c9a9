package codegen

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vslc/pkg/config"
	"vslc/pkg/lexer"
	"vslc/pkg/optimizer"
	"vslc/pkg/parser"
	"vslc/pkg/symbols"
)

func compile(t *testing.T, src string) string {
	t.Helper()
	cfg := config.NewConfig()
	require.NoError(t, cfg.SetTarget("linux", "amd64", "amd64_sysv"))

	root := parser.Parse(lexer.Tokenize([]rune(src), 0))
	root = optimizer.Fold(root, cfg)
	optimizer.RemoveUnreachable(root, cfg)
	binds, err := symbols.Bind(root)
	require.NoError(t, err)

	var asm strings.Builder
	require.NoError(t, Generate(&asm, root, binds, cfg))
	return asm.String()
}

func TestFunctionFrame(t *testing.T) {
	asm := compile(t, `
func f(a, b)
begin
	var c
	c := a + b
	return c
end`)
	assert.Contains(t, asm, ".f:\n")
	assert.Contains(t, asm, "\tpushq %rbp\n\tmovq %rsp, %rbp\n\tpushq %rdi\n\tpushq %rsi\n\tpushq $0\n")
	assert.Contains(t, asm, ".f.epilogue:\n\tmovq %rbp, %rsp\n\tpopq %rbp\n\tret\n")

	// a and b live where the prologue pushed them, c in the slot after
	assert.Contains(t, asm, "movq -8(%rbp), %rax")
	assert.Contains(t, asm, "movq -16(%rbp), %rax")
	assert.Contains(t, asm, "movq %rax, -24(%rbp)")
}

func TestSeventhParameterComesFromCallerFrame(t *testing.T) {
	asm := compile(t, "func f(p0, p1, p2, p3, p4, p5, p6) return p6")
	// six register pushes only
	assert.NotContains(t, asm, "pushq %r10")
	assert.Contains(t, asm, "movq 16(%rbp), %rax")
}

func TestDivisionOperandOrder(t *testing.T) {
	asm := compile(t, "func f(a, b) return a / b")
	want := "\tmovq %rax, %r8\n\tmovq %rcx, %rax\n\tcqo\n\tidivq %r8\n"
	assert.Contains(t, asm, want)
}

func TestComparisonSetsBooleanResult(t *testing.T) {
	asm := compile(t, "func f(a, b) return a < b")
	assert.Contains(t, asm, "\tcmpq %rax, %rcx\n\tsetl %al\n\tmovzbq %al, %rax\n")

	asm = compile(t, "func f(a, b) return a != b")
	assert.Contains(t, asm, "setne %al")
}

func TestUnaryOperators(t *testing.T) {
	asm := compile(t, "func f(a) return -a")
	assert.Contains(t, asm, "negq %rax")

	asm = compile(t, "func f(a) return !a")
	assert.Contains(t, asm, "\ttestq %rax, %rax\n\tsete %al\n\tmovzbq %al, %rax\n")
}

func TestGlobalStorageAndAccess(t *testing.T) {
	asm := compile(t, `
var counter, grid[30]
func f()
begin
	counter := counter + 1
	grid[2] := counter
	return grid[2]
end`)
	assert.Contains(t, asm, ".section .bss")
	assert.Contains(t, asm, ".align 8")
	assert.Contains(t, asm, ".counter:\t.zero 8\n")
	assert.Contains(t, asm, ".grid:\t.zero 240\n")

	assert.Contains(t, asm, "movq .counter(%rip), %rax")
	assert.Contains(t, asm, "movq %rax, .counter(%rip)")
	assert.Contains(t, asm, "leaq .grid(%rip), %rcx")
	assert.Contains(t, asm, "movq (%rcx,%rax,8), %rax")
	assert.Contains(t, asm, "movq %r8, (%rcx,%rax,8)")
}

func TestPrintStatement(t *testing.T) {
	asm := compile(t, `func f(n) print "n is", n`)
	assert.Contains(t, asm, "string0:\t.asciz \"n is\"\n")
	assert.Contains(t, asm, "\tleaq strout(%rip), %rdi\n\tleaq string0(%rip), %rsi\n\tcall safe_printf\n")
	assert.Contains(t, asm, "\tleaq intout(%rip), %rdi\n\tmovq %rax, %rsi\n\tcall safe_printf\n")
	assert.Contains(t, asm, "\tmovq $10, %rdi\n\tcall putchar\n")
}

func TestStringEscapingInStringTable(t *testing.T) {
	asm := compile(t, `func f() print "a\tb\"c\\d"`)
	assert.Contains(t, asm, `string0:	.asciz "a\tb\"c\\d"`)
}

func TestIfElseLabels(t *testing.T) {
	asm := compile(t, "func f(n) if n then return 1 else return 2")
	assert.Contains(t, asm, "je .IF0.ELSE")
	assert.Contains(t, asm, "jmp .IF0.END")
	assert.Contains(t, asm, ".IF0.ELSE:\n")
	assert.Contains(t, asm, ".IF0.END:\n")

	asm = compile(t, "func f(n) begin if n then n := 1 return n end")
	assert.Contains(t, asm, "je .IF0.END")
	assert.NotContains(t, asm, ".IF0.ELSE")
}

func TestWhileAndBreak(t *testing.T) {
	asm := compile(t, `
func f(n)
begin
	while n > 0 do
	begin
		if n == 3 then break
		n := n - 1
	end
	return n
end`)
	assert.Contains(t, asm, ".WHILE0.START:\n")
	assert.Contains(t, asm, "je .WHILE0.END")
	assert.Contains(t, asm, "jmp .WHILE0.START")
	// break targets the loop end, not the function epilogue
	assert.Contains(t, asm, "\tjmp .WHILE0.END\n")
	assert.Contains(t, asm, ".WHILE0.END:\n")
}

func TestCallSequence(t *testing.T) {
	asm := compile(t, `
func f(n) return g(n, 7)
func g(a, b) return a + b`)
	assert.Contains(t, asm, "\tpopq %rdi\n\tpopq %rsi\n\tcall .g\n")
}

func TestMainWrapper(t *testing.T) {
	asm := compile(t, "func f(a, b) return a + b")
	assert.Contains(t, asm, ".global main")
	assert.Contains(t, asm, "\tcmpq $3, %rdi\n\tjne .main.error\n")
	assert.Contains(t, asm, "call strtol")
	assert.Contains(t, asm, "loop .main.parse")
	assert.Contains(t, asm, "\tcall .f\n\tmovq %rax, %rdi\n\tcall exit\n")
	assert.Contains(t, asm, "\tleaq errout(%rip), %rdi\n\tcall puts\n\tmovq $1, %rdi\n\tcall exit\n")
}

func TestSafePrintfAlignsStack(t *testing.T) {
	asm := compile(t, "func f() return 0")
	assert.Contains(t, asm, "safe_printf:\n")
	assert.Contains(t, asm, "andq $-16, %rsp")
}

func TestBreakOutsideLoopRejected(t *testing.T) {
	cfg := config.NewConfig()
	require.NoError(t, cfg.SetTarget("linux", "amd64", "amd64_sysv"))

	root := parser.Parse(lexer.Tokenize([]rune("func f() begin break end"), 0))
	optimizer.RemoveUnreachable(root, cfg)
	binds, err := symbols.Bind(root)
	require.NoError(t, err)

	var asm strings.Builder
	err = Generate(&asm, root, binds, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "'break' outside of a loop")
}

func TestProgramWithoutFunctionsRejected(t *testing.T) {
	cfg := config.NewConfig()
	require.NoError(t, cfg.SetTarget("linux", "amd64", "amd64_sysv"))

	root := parser.Parse(lexer.Tokenize([]rune("var x"), 0))
	binds, err := symbols.Bind(root)
	require.NoError(t, err)

	var asm strings.Builder
	err = Generate(&asm, root, binds, cfg)
	require.Error(t, err)
}

// TestCompiledProgramRuns assembles and executes a generated program.
func TestCompiledProgramRuns(t *testing.T) {
	if runtime.GOOS != "linux" || runtime.GOARCH != "amd64" {
		t.Skip("generated assembly targets linux/amd64")
	}
	if _, err := exec.LookPath("cc"); err != nil {
		t.Skip("cc not available")
	}

	asm := compile(t, "func f(n) return n * 2")
	dir := t.TempDir()
	asmPath := filepath.Join(dir, "f.s")
	binPath := filepath.Join(dir, "f")
	require.NoError(t, os.WriteFile(asmPath, []byte(asm), 0644))

	out, err := exec.Command("cc", "-no-pie", "-o", binPath, asmPath).CombinedOutput()
	require.NoError(t, err, string(out))

	err = exec.Command(binPath, "21").Run()
	exitErr, ok := err.(*exec.ExitError)
	require.True(t, ok, "expected nonzero exit status")
	assert.Equal(t, 42, exitErr.ExitCode())

	// wrong argument count aborts with status 1
	err = exec.Command(binPath).Run()
	exitErr, ok = err.(*exec.ExitError)
	require.True(t, ok)
	assert.Equal(t, 1, exitErr.ExitCode())
}
