// Package optimizer implements the syntax tree rewrites that run between
// parsing and symbol binding: compile-time constant folding and removal
// of code that can never execute.
package optimizer

import (
	"vslc/pkg/ast"
	"vslc/pkg/config"
	"vslc/pkg/token"
	"vslc/pkg/util"
)

// Fold rewrites the tree rooted at n bottom-up, evaluating every operator
// whose operands are all number literals and resolving branches whose
// condition is a literal. It returns the replacement for n, which is nil
// when the node folded away entirely (a while loop that never runs, or an
// untaken if branch with no else). Identifiers are still unresolved at
// this point; any expression mentioning one is left alone.
func Fold(n *ast.Node, cfg *config.Config) *ast.Node {
	if n == nil {
		return nil
	}
	for i, child := range n.Children {
		n.Children[i] = Fold(child, cfg)
	}

	switch n.Kind {
	case ast.Operator:
		return foldOperator(n, cfg)
	case ast.If:
		cond := n.Children[0]
		if cond == nil || cond.Kind != ast.Number {
			return n
		}
		if cond.Num != 0 {
			return n.Children[1]
		}
		if len(n.Children) == 3 {
			return n.Children[2]
		}
		return nil
	case ast.While:
		cond := n.Children[0]
		if cond != nil && cond.Kind == ast.Number && cond.Num == 0 {
			return nil
		}
	}
	return n
}

func foldOperator(n *ast.Node, cfg *config.Config) *ast.Node {
	for _, operand := range n.Children {
		if operand == nil || operand.Kind != ast.Number {
			return n
		}
	}

	switch len(n.Children) {
	case 1:
		value := n.Children[0].Num
		switch n.Op {
		case token.Minus:
			return ast.NewNumber(n.Tok, -value)
		case token.Not:
			return ast.NewNumber(n.Tok, boolToInt(value == 0))
		}
	case 2:
		left, right := n.Children[0].Num, n.Children[1].Num
		switch n.Op {
		case token.Plus:
			return ast.NewNumber(n.Tok, left+right)
		case token.Minus:
			return ast.NewNumber(n.Tok, left-right)
		case token.Star:
			return ast.NewNumber(n.Tok, left*right)
		case token.Slash:
			if right == 0 {
				util.Warn(cfg, config.WarnFoldDivZero, n.Tok, "Division by zero in constant expression.")
				return n
			}
			return ast.NewNumber(n.Tok, left/right)
		case token.EqEq:
			return ast.NewNumber(n.Tok, boolToInt(left == right))
		case token.Neq:
			return ast.NewNumber(n.Tok, boolToInt(left != right))
		case token.Lt:
			return ast.NewNumber(n.Tok, boolToInt(left < right))
		case token.Gt:
			return ast.NewNumber(n.Tok, boolToInt(left > right))
		case token.Lte:
			return ast.NewNumber(n.Tok, boolToInt(left <= right))
		case token.Gte:
			return ast.NewNumber(n.Tok, boolToInt(left >= right))
		}
	}
	return n
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// RemoveUnreachable trims statements that can never run from every
// function in the program, then guarantees each function body ends by
// diverting: a body that can fall off the end is wrapped in a block whose
// last statement returns 0.
func RemoveUnreachable(root *ast.Node, cfg *config.Config) {
	if root == nil {
		return
	}
	for i, child := range root.Children {
		if child == nil || child.Kind != ast.Function {
			continue
		}
		body := child.Children[2]
		if !pruneDiverted(body, cfg) {
			root.Children[i].Children[2] = wrapWithReturnZero(child, body)
		}
	}
}

// pruneDiverted reports whether control cannot flow past the statement n.
// Return and break divert unconditionally. An if diverts only when it has
// an else branch and both branches divert. A while never diverts: its
// condition may be false on first entry, and a break inside targets this
// loop rather than the enclosing function. Blocks truncate their
// statement list at the first diverting statement.
func pruneDiverted(n *ast.Node, cfg *config.Config) bool {
	if n == nil {
		return false
	}
	switch n.Kind {
	case ast.Return, ast.Break:
		return true
	case ast.If:
		thenDiverts := pruneDiverted(n.Children[1], cfg)
		if len(n.Children) == 3 {
			return pruneDiverted(n.Children[2], cfg) && thenDiverts
		}
		return false
	case ast.While:
		pruneDiverted(n.Children[1], cfg)
		return false
	case ast.Block:
		stmts := n.Children[len(n.Children)-1]
		for i, stmt := range stmts.Children {
			if pruneDiverted(stmt, cfg) {
				if i+1 < len(stmts.Children) {
					if next := stmts.Children[i+1]; next != nil {
						util.Warn(cfg, config.WarnUnreachableCode, next.Tok, "This statement will never be executed.")
					}
					stmts.Children = stmts.Children[:i+1]
				}
				return true
			}
		}
		return false
	}
	return false
}

func wrapWithReturnZero(fn, body *ast.Node) *ast.Node {
	stmts := ast.NewList(fn.Tok)
	if body != nil {
		stmts.Append(body)
	}
	stmts.Append(ast.NewNode(ast.Return, fn.Tok, ast.NewNumber(fn.Tok, 0)))
	return ast.NewNode(ast.Block, fn.Tok, stmts)
}
