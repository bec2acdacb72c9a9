// Package codegen translates a bound syntax tree into textual x86-64
// assembly for the System V ABI. Expressions evaluate into %rax with a
// spill-everything discipline: operands live on the stack, never in
// allocated registers.
package codegen

import (
	"errors"
	"fmt"
	"io"

	"vslc/pkg/ast"
	"vslc/pkg/config"
	"vslc/pkg/symbols"
	"vslc/pkg/token"
	"vslc/pkg/util"
)

type generator struct {
	emitter
	binds *symbols.Bindings
	cfg   *config.Config
	diags util.Diagnostics

	// Per-function state
	fn        *symbols.Symbol
	numParams int

	labelCount  int
	breakLabels []string
}

// Generate writes the complete assembly translation of the program to w:
// the string table, global variable storage, every function, the main
// wrapper that parses command line arguments, and the printf alignment
// shim. Semantic errors found on the way (break outside a loop, calling
// a variable) are accumulated and returned joined.
func Generate(w io.Writer, root *ast.Node, binds *symbols.Bindings, cfg *config.Config) error {
	first := firstFunction(binds)
	if first == nil {
		return errors.New("program defines no function")
	}

	g := &generator{emitter: emitter{w: w}, binds: binds, cfg: cfg}
	g.genStringTable()
	g.genGlobalStorage()

	g.instr(".section .text")
	for _, sym := range binds.Globals.Symbols {
		if sym.Kind == symbols.Function {
			g.genFunction(sym)
		}
	}
	g.genMain(first)
	g.genSafePrintf()

	for _, name := range []string{"printf", "putchar", "puts", "strtol", "exit"} {
		g.instr(".extern %s", name)
	}

	if err := g.diags.Err(); err != nil {
		return err
	}
	return g.err
}

// firstFunction returns the textually first function of the program,
// which the main wrapper invokes with the command line arguments.
func firstFunction(binds *symbols.Bindings) *symbols.Symbol {
	for _, sym := range binds.Globals.Symbols {
		if sym.Kind == symbols.Function {
			return sym
		}
	}
	return nil
}

func (g *generator) genStringTable() {
	g.instr(".section %s", g.cfg.RodataSection)
	g.printf("intout:\t.asciz \"%%ld \"\n")
	g.printf("strout:\t.asciz \"%%s \"\n")
	g.printf("errout:\t.asciz \"Wrong number of arguments\"\n")
	for i, s := range g.binds.Strings.Strings {
		g.printf("string%d:\t.asciz \"%s\"\n", i, ascizEscape(s))
	}
	g.blank()
}

// genGlobalStorage reserves one zeroed quadword per global variable and
// one per element of each global array.
func (g *generator) genGlobalStorage() {
	var globals []*symbols.Symbol
	for _, sym := range g.binds.Globals.Symbols {
		if sym.Kind == symbols.GlobalVar || sym.Kind == symbols.GlobalArray {
			globals = append(globals, sym)
		}
	}
	if len(globals) == 0 {
		return
	}

	g.instr(".section %s", g.cfg.BssSection)
	g.instr(".align %d", g.cfg.WordSize)
	for _, sym := range globals {
		size := int64(g.cfg.WordSize)
		if sym.Kind == symbols.GlobalArray {
			size *= sym.Node.Children[1].Num
		}
		g.printf(".%s:\t.zero %d\n", sym.Name, size)
	}
	g.blank()
}

// genFunction emits the label, stack frame setup, body and epilogue of
// one function. The frame pushes the register-passed arguments so every
// parameter and local has a %rbp-relative home.
func (g *generator) genFunction(fn *symbols.Symbol) {
	g.fn = fn
	g.numParams = len(fn.Node.Children[1].Children)

	g.label(".%s", fn.Name)
	g.instr("pushq %%rbp")
	g.instr("movq %%rsp, %%rbp")
	for i := 0; i < min(g.numParams, len(argRegisters)); i++ {
		g.instr("pushq %s", argRegisters[i])
	}
	for _, sym := range fn.Locals.Symbols {
		if sym.Kind == symbols.LocalVar {
			g.instr("pushq $0")
		}
	}

	g.genStatement(fn.Node.Children[2])

	g.label(".%s.epilogue", fn.Name)
	g.instr("movq %%rbp, %%rsp")
	g.instr("popq %%rbp")
	g.instr("ret")
	g.blank()
}

// varAccess returns the addressing operand for a scalar variable: a
// %rip-relative label for globals, a %rbp-relative slot otherwise.
//
// Register-passed parameters sit below the saved %rbp in push order;
// stack-passed parameters (the seventh onward) sit above the return
// address where the caller left them. Locals follow the pushed
// parameters, so their offsets continue from however many parameter
// pushes the prologue made.
func (g *generator) varAccess(sym *symbols.Symbol) string {
	switch sym.Kind {
	case symbols.GlobalVar:
		return "." + sym.Name + "(%rip)"
	case symbols.Parameter:
		if sym.Seq < len(argRegisters) {
			return offset(-8 * int64(sym.Seq+1))
		}
		return offset(8*int64(sym.Seq-5) + 8)
	case symbols.LocalVar:
		slot := min(g.numParams, len(argRegisters)) + (sym.Seq - g.numParams) + 1
		return offset(-8 * int64(slot))
	}
	return ""
}

func (g *generator) genStatement(n *ast.Node) {
	if n == nil {
		return
	}
	switch n.Kind {
	case ast.Block:
		g.genStatement(n.Children[len(n.Children)-1])
	case ast.List:
		for _, stmt := range n.Children {
			g.genStatement(stmt)
		}
	case ast.Assign:
		g.genAssignment(n)
	case ast.Print:
		g.genPrint(n)
	case ast.Return:
		g.genExpression(n.Children[0])
		g.instr("jmp .%s.epilogue", g.fn.Name)
	case ast.Break:
		if len(g.breakLabels) == 0 {
			g.diags.Errorf(n.Tok, "'break' outside of a loop.")
			return
		}
		g.instr("jmp %s", g.breakLabels[len(g.breakLabels)-1])
	case ast.If:
		g.genIf(n)
	case ast.While:
		g.genWhile(n)
	case ast.Call:
		g.genCall(n)
	}
}

func (g *generator) genAssignment(n *ast.Node) {
	target, value := n.Children[0], n.Children[1]
	if target.Kind == ast.Ident {
		sym, ok := g.scalar(target)
		if !ok {
			return
		}
		g.genExpression(value)
		g.instr("movq %s, %s", regAccum, g.varAccess(sym))
		return
	}

	// Array element store: the value is kept on the stack while the
	// index expression runs.
	sym, ok := g.array(target.Children[0])
	if !ok {
		return
	}
	g.genExpression(value)
	g.instr("pushq %s", regAccum)
	g.genExpression(target.Children[1])
	g.instr("leaq .%s(%%rip), %s", sym.Name, regScratch)
	g.instr("popq %%r8")
	g.instr("movq %%r8, (%s,%s,8)", regScratch, regAccum)
}

func (g *generator) genPrint(n *ast.Node) {
	for _, item := range n.Children {
		if item.Kind == ast.StringRef {
			g.instr("leaq strout(%%rip), %%rdi")
			g.instr("leaq string%d(%%rip), %%rsi", item.StrIndex)
		} else {
			g.genExpression(item)
			g.instr("leaq intout(%%rip), %%rdi")
			g.instr("movq %s, %%rsi", regAccum)
		}
		g.instr("call safe_printf")
	}
	g.instr("movq $10, %%rdi")
	g.instr("call putchar")
}

func (g *generator) genIf(n *ast.Node) {
	id := g.labelCount
	g.labelCount++

	g.genExpression(n.Children[0])
	g.instr("cmpq $0, %s", regAccum)
	if len(n.Children) == 3 {
		g.instr("je .IF%d.ELSE", id)
		g.genStatement(n.Children[1])
		g.instr("jmp .IF%d.END", id)
		g.label(".IF%d.ELSE", id)
		g.genStatement(n.Children[2])
	} else {
		g.instr("je .IF%d.END", id)
		g.genStatement(n.Children[1])
	}
	g.label(".IF%d.END", id)
}

func (g *generator) genWhile(n *ast.Node) {
	id := g.labelCount
	g.labelCount++
	endLabel := fmt.Sprintf(".WHILE%d.END", id)

	g.label(".WHILE%d.START", id)
	g.genExpression(n.Children[0])
	g.instr("cmpq $0, %s", regAccum)
	g.instr("je %s", endLabel)

	g.breakLabels = append(g.breakLabels, endLabel)
	g.genStatement(n.Children[1])
	g.breakLabels = g.breakLabels[:len(g.breakLabels)-1]

	g.instr("jmp .WHILE%d.START", id)
	g.label("%s", endLabel)
}

func (g *generator) genExpression(n *ast.Node) {
	switch n.Kind {
	case ast.Number:
		g.instr("movq $%d, %s", n.Num, regAccum)
	case ast.Ident:
		sym, ok := g.scalar(n)
		if !ok {
			return
		}
		g.instr("movq %s, %s", g.varAccess(sym), regAccum)
	case ast.Subscript:
		sym, ok := g.array(n.Children[0])
		if !ok {
			return
		}
		g.genExpression(n.Children[1])
		g.instr("leaq .%s(%%rip), %s", sym.Name, regScratch)
		g.instr("movq (%s,%s,8), %s", regScratch, regAccum, regAccum)
	case ast.Operator:
		g.genOperator(n)
	case ast.Call:
		g.genCall(n)
	default:
		g.diags.Errorf(n.Tok, "Node %s cannot be evaluated as an expression.", n.Kind)
	}
}

// genOperator evaluates the left operand first and parks it on the stack
// while the right operand runs, then reunites them with the left in
// %rcx and the right in %rax.
func (g *generator) genOperator(n *ast.Node) {
	if len(n.Children) == 1 {
		g.genExpression(n.Children[0])
		switch n.Op {
		case token.Minus:
			g.instr("negq %s", regAccum)
		case token.Not:
			g.instr("testq %s, %s", regAccum, regAccum)
			g.instr("sete %%al")
			g.instr("movzbq %%al, %s", regAccum)
		}
		return
	}

	g.genExpression(n.Children[0])
	g.instr("pushq %s", regAccum)
	g.genExpression(n.Children[1])
	g.instr("popq %s", regScratch)

	switch n.Op {
	case token.Plus:
		g.instr("addq %s, %s", regScratch, regAccum)
	case token.Minus:
		g.instr("subq %s, %s", regAccum, regScratch)
		g.instr("movq %s, %s", regScratch, regAccum)
	case token.Star:
		g.instr("imulq %s, %s", regScratch, regAccum)
	case token.Slash:
		// The dividend must reach %rax before cqo sign-extends it
		// into %rdx.
		g.instr("movq %s, %%r8", regAccum)
		g.instr("movq %s, %s", regScratch, regAccum)
		g.instr("cqo")
		g.instr("idivq %%r8")
	case token.EqEq, token.Neq, token.Lt, token.Gt, token.Lte, token.Gte:
		g.instr("cmpq %s, %s", regAccum, regScratch)
		g.instr("%s %%al", setInstruction[n.Op])
		g.instr("movzbq %%al, %s", regAccum)
	}
}

var setInstruction = map[token.Type]string{
	token.EqEq: "sete",
	token.Neq:  "setne",
	token.Lt:   "setl",
	token.Gt:   "setg",
	token.Lte:  "setle",
	token.Gte:  "setge",
}

// genCall pushes the arguments right to left, pops the first six into
// the argument registers and leaves the rest on the stack where the
// callee expects them.
func (g *generator) genCall(n *ast.Node) {
	name, args := n.Children[0], n.Children[1].Children

	sym, _ := name.Sym.(*symbols.Symbol)
	if sym == nil {
		return
	}
	if sym.Kind != symbols.Function {
		g.diags.Errorf(name.Tok, "'%s' is a %s, not a function.", name.Ident, sym.Kind)
		return
	}
	if want := len(sym.Node.Children[1].Children); len(args) != want {
		g.diags.Errorf(n.Tok, "'%s' takes %d argument(s), but %d were given.", name.Ident, want, len(args))
		return
	}

	for i := len(args) - 1; i >= 0; i-- {
		g.genExpression(args[i])
		g.instr("pushq %s", regAccum)
	}
	for i := 0; i < min(len(args), len(argRegisters)); i++ {
		g.instr("popq %s", argRegisters[i])
	}
	g.instr("call .%s", name.Ident)
	if extra := len(args) - len(argRegisters); extra > 0 {
		g.instr("addq $%d, %%rsp", 8*extra)
	}
}

// genMain emits the entry point: it checks the argument count against
// the first function's parameter count, parses each argument with
// strtol from the last to the first so the results pop off in calling
// convention order, and exits with the function's return value.
func (g *generator) genMain(first *symbols.Symbol) {
	numParams := len(first.Node.Children[1].Children)

	g.instr(".global main")
	g.label("main")
	g.instr("pushq %%rbp")
	g.instr("movq %%rsp, %%rbp")
	g.instr("cmpq $%d, %%rdi", numParams+1)
	g.instr("jne .main.error")

	if numParams > 0 {
		g.instr("movq $%d, %%rcx", numParams)
		g.instr("leaq %d(%%rsi), %%rsi", 8*numParams)
		g.label(".main.parse")
		g.instr("pushq %%rcx")
		g.instr("pushq %%rsi")
		g.instr("movq (%%rsi), %%rdi")
		g.instr("movq $0, %%rsi")
		g.instr("movq $10, %%rdx")
		g.instr("call strtol")
		g.instr("popq %%rsi")
		g.instr("popq %%rcx")
		g.instr("pushq %%rax")
		g.instr("subq $8, %%rsi")
		g.instr("loop .main.parse")
		for i := 0; i < min(numParams, len(argRegisters)); i++ {
			g.instr("popq %s", argRegisters[i])
		}
	}

	g.instr("call .%s", first.Name)
	g.instr("movq %s, %%rdi", regAccum)
	g.instr("call exit")

	g.label(".main.error")
	g.instr("leaq errout(%%rip), %%rdi")
	g.instr("call puts")
	g.instr("movq $1, %%rdi")
	g.instr("call exit")
	g.blank()
}

// genSafePrintf emits a printf wrapper that forces the stack alignment
// the ABI requires at call sites, which the spill-everything expression
// scheme does not maintain.
func (g *generator) genSafePrintf() {
	g.label("safe_printf")
	g.instr("pushq %%rbp")
	g.instr("movq %%rsp, %%rbp")
	g.instr("andq $-%d, %%rsp", g.cfg.StackAlignment)
	g.instr("call printf")
	g.instr("movq %%rbp, %%rsp")
	g.instr("popq %%rbp")
	g.instr("ret")
	g.blank()
}

// scalar asserts that an identifier names a value a single quadword can
// hold.
func (g *generator) scalar(n *ast.Node) (*symbols.Symbol, bool) {
	sym, _ := n.Sym.(*symbols.Symbol)
	if sym == nil {
		return nil, false
	}
	switch sym.Kind {
	case symbols.GlobalVar, symbols.Parameter, symbols.LocalVar:
		return sym, true
	case symbols.GlobalArray:
		g.diags.Errorf(n.Tok, "Array '%s' must be indexed.", n.Ident)
	case symbols.Function:
		g.diags.Errorf(n.Tok, "Function '%s' cannot be used as a value.", n.Ident)
	}
	return nil, false
}

func (g *generator) array(n *ast.Node) (*symbols.Symbol, bool) {
	sym, _ := n.Sym.(*symbols.Symbol)
	if sym == nil {
		return nil, false
	}
	if sym.Kind != symbols.GlobalArray {
		g.diags.Errorf(n.Tok, "'%s' is a %s and cannot be indexed.", n.Ident, sym.Kind)
		return nil, false
	}
	return sym, true
}
