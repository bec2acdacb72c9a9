// Package parser implements a recursive descent parser producing the
// syntax tree consumed by the optimizer, binder and code generator.
package parser

import (
	"strconv"

	"vslc/pkg/ast"
	"vslc/pkg/token"
	"vslc/pkg/util"
)

type Parser struct {
	tokens []token.Token
	pos    int
}

func NewParser(tokens []token.Token) *Parser {
	return &Parser{tokens: tokens}
}

// Parse consumes the whole token stream and returns the program root: a
// list of global declarations and function definitions.
func Parse(tokens []token.Token) *ast.Node {
	return NewParser(tokens).parseProgram()
}

func (p *Parser) parseProgram() *ast.Node {
	root := ast.NewList(p.current())
	for !p.isAtEnd() {
		switch p.current().Type {
		case token.Var:
			root.Append(p.parseGlobalDeclaration())
		case token.Func:
			root.Append(p.parseFunction())
		default:
			util.Error(p.current(), "Expected 'func' or 'var' at top level, got '%s'.", p.describe(p.current()))
		}
	}
	return root
}

// parseGlobalDeclaration parses a 'var' line at file scope. Each entry is
// a plain identifier or an array declaration with a fixed length.
func (p *Parser) parseGlobalDeclaration() *ast.Node {
	varTok := p.expect(token.Var)
	decl := ast.NewNode(ast.GlobalDecl, varTok)
	for {
		nameTok := p.expect(token.Ident)
		name := ast.NewIdent(nameTok, nameTok.Value)
		if p.match(token.LBracket) {
			lenTok := p.expect(token.Number)
			length := ast.NewNumber(lenTok, p.parseInt(lenTok))
			if length.Num <= 0 {
				util.Error(lenTok, "Array length must be positive.")
			}
			p.expect(token.RBracket)
			decl.Append(ast.NewNode(ast.Subscript, nameTok, name, length))
		} else {
			decl.Append(name)
		}
		if !p.match(token.Comma) {
			return decl
		}
	}
}

func (p *Parser) parseFunction() *ast.Node {
	funcTok := p.expect(token.Func)
	nameTok := p.expect(token.Ident)
	name := ast.NewIdent(nameTok, nameTok.Value)

	p.expect(token.LParen)
	params := ast.NewList(p.current())
	if !p.check(token.RParen) {
		for {
			paramTok := p.expect(token.Ident)
			params.Append(ast.NewIdent(paramTok, paramTok.Value))
			if !p.match(token.Comma) {
				break
			}
		}
	}
	p.expect(token.RParen)

	body := p.parseStatement()
	return ast.NewNode(ast.Function, funcTok, name, params, body)
}

func (p *Parser) parseStatement() *ast.Node {
	switch p.current().Type {
	case token.Begin:
		return p.parseBlock()
	case token.Print:
		return p.parsePrint()
	case token.Return:
		retTok := p.advance()
		return ast.NewNode(ast.Return, retTok, p.parseExpression())
	case token.Break:
		return ast.NewNode(ast.Break, p.advance())
	case token.If:
		return p.parseIf()
	case token.While:
		return p.parseWhile()
	case token.Ident:
		return p.parseAssignOrCall()
	}
	util.Error(p.current(), "Expected a statement, got '%s'.", p.describe(p.current()))
	return nil
}

// parseBlock parses 'begin' ... 'end'. All 'var' lines must come before
// the first statement; their entries are merged into a single declaration
// list placed ahead of the statement list.
func (p *Parser) parseBlock() *ast.Node {
	beginTok := p.expect(token.Begin)
	block := ast.NewNode(ast.Block, beginTok)

	var decls *ast.Node
	for p.check(token.Var) {
		varTok := p.advance()
		if decls == nil {
			decls = ast.NewList(varTok)
		}
		for {
			nameTok := p.expect(token.Ident)
			decls.Append(ast.NewIdent(nameTok, nameTok.Value))
			if !p.match(token.Comma) {
				break
			}
		}
	}
	if decls != nil {
		block.Append(decls)
	}

	stmts := ast.NewList(p.current())
	for !p.check(token.End) {
		if p.isAtEnd() {
			util.Error(beginTok, "Unterminated block: missing 'end'.")
		}
		if p.check(token.Var) {
			util.Error(p.current(), "Variable declarations must precede the statements of a block.")
		}
		stmts.Append(p.parseStatement())
	}
	p.expect(token.End)
	return block.Append(stmts)
}

func (p *Parser) parsePrint() *ast.Node {
	printTok := p.expect(token.Print)
	stmt := ast.NewNode(ast.Print, printTok)
	for {
		if p.check(token.String) {
			strTok := p.advance()
			stmt.Append(ast.NewString(strTok, strTok.Value))
		} else {
			stmt.Append(p.parseExpression())
		}
		if !p.match(token.Comma) {
			return stmt
		}
	}
}

func (p *Parser) parseIf() *ast.Node {
	ifTok := p.expect(token.If)
	cond := p.parseExpression()
	p.expect(token.Then)
	thenStmt := p.parseStatement()
	if p.match(token.Else) {
		return ast.NewNode(ast.If, ifTok, cond, thenStmt, p.parseStatement())
	}
	return ast.NewNode(ast.If, ifTok, cond, thenStmt)
}

func (p *Parser) parseWhile() *ast.Node {
	whileTok := p.expect(token.While)
	cond := p.parseExpression()
	p.expect(token.Do)
	return ast.NewNode(ast.While, whileTok, cond, p.parseStatement())
}

// parseAssignOrCall disambiguates the two statements that begin with an
// identifier: a call if '(' follows, an assignment otherwise.
func (p *Parser) parseAssignOrCall() *ast.Node {
	nameTok := p.expect(token.Ident)
	name := ast.NewIdent(nameTok, nameTok.Value)

	if p.check(token.LParen) {
		return p.parseCall(name)
	}

	target := name
	if p.match(token.LBracket) {
		index := p.parseExpression()
		p.expect(token.RBracket)
		target = ast.NewNode(ast.Subscript, nameTok, name, index)
	}
	assignTok := p.expect(token.Assign)
	return ast.NewNode(ast.Assign, assignTok, target, p.parseExpression())
}

func (p *Parser) parseCall(name *ast.Node) *ast.Node {
	lparen := p.expect(token.LParen)
	args := ast.NewList(lparen)
	if !p.check(token.RParen) {
		for {
			args.Append(p.parseExpression())
			if !p.match(token.Comma) {
				break
			}
		}
	}
	p.expect(token.RParen)
	return ast.NewNode(ast.Call, name.Tok, name, args)
}

// Expression precedence, loosest first: relational, additive,
// multiplicative, unary, primary. All binary operators are
// left-associative.

func (p *Parser) parseExpression() *ast.Node {
	return p.parseRelational()
}

func (p *Parser) parseRelational() *ast.Node {
	left := p.parseAdditive()
	for p.checkAny(token.EqEq, token.Neq, token.Lt, token.Gt, token.Lte, token.Gte) {
		opTok := p.advance()
		left = ast.NewOperator(opTok, opTok.Type, left, p.parseAdditive())
	}
	return left
}

func (p *Parser) parseAdditive() *ast.Node {
	left := p.parseMultiplicative()
	for p.checkAny(token.Plus, token.Minus) {
		opTok := p.advance()
		left = ast.NewOperator(opTok, opTok.Type, left, p.parseMultiplicative())
	}
	return left
}

func (p *Parser) parseMultiplicative() *ast.Node {
	left := p.parseUnary()
	for p.checkAny(token.Star, token.Slash) {
		opTok := p.advance()
		left = ast.NewOperator(opTok, opTok.Type, left, p.parseUnary())
	}
	return left
}

func (p *Parser) parseUnary() *ast.Node {
	if p.checkAny(token.Minus, token.Not) {
		opTok := p.advance()
		return ast.NewOperator(opTok, opTok.Type, p.parseUnary())
	}
	return p.parsePrimary()
}

func (p *Parser) parsePrimary() *ast.Node {
	switch p.current().Type {
	case token.Number:
		numTok := p.advance()
		return ast.NewNumber(numTok, p.parseInt(numTok))
	case token.LParen:
		p.advance()
		expr := p.parseExpression()
		p.expect(token.RParen)
		return expr
	case token.Ident:
		nameTok := p.advance()
		name := ast.NewIdent(nameTok, nameTok.Value)
		if p.check(token.LParen) {
			return p.parseCall(name)
		}
		if p.match(token.LBracket) {
			index := p.parseExpression()
			p.expect(token.RBracket)
			return ast.NewNode(ast.Subscript, nameTok, name, index)
		}
		return name
	}
	util.Error(p.current(), "Expected an expression, got '%s'.", p.describe(p.current()))
	return nil
}

func (p *Parser) parseInt(tok token.Token) int64 {
	value, err := strconv.ParseInt(tok.Value, 10, 64)
	if err != nil {
		util.Error(tok, "Number literal out of range: %s.", tok.Value)
	}
	return value
}

func (p *Parser) current() token.Token {
	if p.pos >= len(p.tokens) {
		var last token.Token
		if len(p.tokens) > 0 {
			last = p.tokens[len(p.tokens)-1]
		}
		last.Type = token.EOF
		return last
	}
	return p.tokens[p.pos]
}

func (p *Parser) advance() token.Token {
	tok := p.current()
	p.pos++
	return tok
}

func (p *Parser) check(tokType token.Type) bool { return p.current().Type == tokType }

func (p *Parser) checkAny(types ...token.Type) bool {
	for _, t := range types {
		if p.check(t) {
			return true
		}
	}
	return false
}

func (p *Parser) match(tokType token.Type) bool {
	if p.check(tokType) {
		p.pos++
		return true
	}
	return false
}

func (p *Parser) expect(tokType token.Type) token.Token {
	if !p.check(tokType) {
		util.Error(p.current(), "Expected '%s', got '%s'.", typeName(tokType), p.describe(p.current()))
	}
	return p.advance()
}

func (p *Parser) isAtEnd() bool { return p.pos >= len(p.tokens) }

func (p *Parser) describe(tok token.Token) string {
	if tok.Type == token.EOF {
		return "end of file"
	}
	return typeName(tok.Type)
}

func typeName(tokType token.Type) string {
	if str, ok := token.TypeStrings[tokType]; ok {
		return str
	}
	switch tokType {
	case token.Ident:
		return "identifier"
	case token.Number:
		return "number"
	case token.String:
		return "string"
	case token.LParen:
		return "("
	case token.RParen:
		return ")"
	case token.LBracket:
		return "["
	case token.RBracket:
		return "]"
	case token.Comma:
		return ","
	}
	return "?"
}
