package lexer

import (
	"strings"
	"unicode"

	"vslc/pkg/token"
	"vslc/pkg/util"
)

type Lexer struct {
	source    []rune
	fileIndex int
	pos       int
	line      int
	column    int
}

func NewLexer(source []rune, fileIndex int) *Lexer {
	return &Lexer{source: source, fileIndex: fileIndex, line: 1, column: 1}
}

// Tokenize drains the lexer, returning every token up to but excluding EOF.
func Tokenize(source []rune, fileIndex int) []token.Token {
	l := NewLexer(source, fileIndex)
	var tokens []token.Token
	for {
		tok := l.Next()
		if tok.Type == token.EOF {
			return tokens
		}
		tokens = append(tokens, tok)
	}
}

func (l *Lexer) Next() token.Token {
	l.skipWhitespaceAndComments()
	startPos, startCol, startLine := l.pos, l.column, l.line

	if l.isAtEnd() {
		return l.makeToken(token.EOF, "", startPos, startCol, startLine)
	}

	ch := l.peek()
	if unicode.IsLetter(ch) || ch == '_' {
		l.advance()
		return l.identifierOrKeyword(startPos, startCol, startLine)
	}
	if unicode.IsDigit(ch) {
		return l.numberLiteral(startPos, startCol, startLine)
	}

	l.advance()
	switch ch {
	case '(':
		return l.makeToken(token.LParen, "", startPos, startCol, startLine)
	case ')':
		return l.makeToken(token.RParen, "", startPos, startCol, startLine)
	case '[':
		return l.makeToken(token.LBracket, "", startPos, startCol, startLine)
	case ']':
		return l.makeToken(token.RBracket, "", startPos, startCol, startLine)
	case ',':
		return l.makeToken(token.Comma, "", startPos, startCol, startLine)
	case '+':
		return l.makeToken(token.Plus, "", startPos, startCol, startLine)
	case '-':
		return l.makeToken(token.Minus, "", startPos, startCol, startLine)
	case '*':
		return l.makeToken(token.Star, "", startPos, startCol, startLine)
	case '/':
		return l.makeToken(token.Slash, "", startPos, startCol, startLine)
	case ':':
		if l.match('=') {
			return l.makeToken(token.Assign, "", startPos, startCol, startLine)
		}
	case '!':
		return l.matchThen('=', token.Neq, token.Not, startPos, startCol, startLine)
	case '<':
		return l.matchThen('=', token.Lte, token.Lt, startPos, startCol, startLine)
	case '>':
		return l.matchThen('=', token.Gte, token.Gt, startPos, startCol, startLine)
	case '=':
		if l.match('=') {
			return l.makeToken(token.EqEq, "", startPos, startCol, startLine)
		}
	case '"':
		return l.stringLiteral(startPos, startCol, startLine)
	}

	tok := l.makeToken(token.EOF, "", startPos, startCol, startLine)
	util.Error(tok, "Unexpected character: '%c'", ch)
	return tok
}

func (l *Lexer) skipWhitespaceAndComments() {
	for !l.isAtEnd() {
		ch := l.peek()
		if ch == ' ' || ch == '\t' || ch == '\r' || ch == '\n' {
			l.advance()
			continue
		}
		if ch == '/' && l.peekNext() == '/' {
			for !l.isAtEnd() && l.peek() != '\n' {
				l.advance()
			}
			continue
		}
		return
	}
}

func (l *Lexer) identifierOrKeyword(startPos, startCol, startLine int) token.Token {
	for !l.isAtEnd() && (unicode.IsLetter(l.peek()) || unicode.IsDigit(l.peek()) || l.peek() == '_') {
		l.advance()
	}
	text := string(l.source[startPos:l.pos])
	if keyword, ok := token.KeywordMap[text]; ok {
		return l.makeToken(keyword, "", startPos, startCol, startLine)
	}
	return l.makeToken(token.Ident, text, startPos, startCol, startLine)
}

func (l *Lexer) numberLiteral(startPos, startCol, startLine int) token.Token {
	for !l.isAtEnd() && unicode.IsDigit(l.peek()) {
		l.advance()
	}
	return l.makeToken(token.Number, string(l.source[startPos:l.pos]), startPos, startCol, startLine)
}

func (l *Lexer) stringLiteral(startPos, startCol, startLine int) token.Token {
	var sb strings.Builder
	for !l.isAtEnd() && l.peek() != '"' {
		ch := l.advance()
		if ch == '\n' {
			tok := l.makeToken(token.String, "", startPos, startCol, startLine)
			util.Error(tok, "Unterminated string literal.")
		}
		if ch == '\\' && !l.isAtEnd() {
			switch l.advance() {
			case 'n':
				ch = '\n'
			case 't':
				ch = '\t'
			case '\\':
				ch = '\\'
			case '"':
				ch = '"'
			case '0':
				ch = 0
			default:
				ch = l.source[l.pos-1]
			}
		}
		sb.WriteRune(ch)
	}
	if l.isAtEnd() {
		tok := l.makeToken(token.String, "", startPos, startCol, startLine)
		util.Error(tok, "Unterminated string literal.")
	}
	l.advance() // closing quote
	return l.makeToken(token.String, sb.String(), startPos, startCol, startLine)
}

func (l *Lexer) peek() rune {
	if l.isAtEnd() {
		return 0
	}
	return l.source[l.pos]
}

func (l *Lexer) peekNext() rune {
	if l.pos+1 >= len(l.source) {
		return 0
	}
	return l.source[l.pos+1]
}

func (l *Lexer) advance() rune {
	if l.isAtEnd() {
		return 0
	}
	ch := l.source[l.pos]
	if ch == '\n' {
		l.line++
		l.column = 1
	} else {
		l.column++
	}
	l.pos++
	return ch
}

func (l *Lexer) match(expected rune) bool {
	if l.isAtEnd() || l.source[l.pos] != expected {
		return false
	}
	l.advance()
	return true
}

func (l *Lexer) matchThen(expected rune, ifMatch, ifNot token.Type, startPos, startCol, startLine int) token.Token {
	if l.match(expected) {
		return l.makeToken(ifMatch, "", startPos, startCol, startLine)
	}
	return l.makeToken(ifNot, "", startPos, startCol, startLine)
}

func (l *Lexer) isAtEnd() bool { return l.pos >= len(l.source) }

func (l *Lexer) makeToken(tokType token.Type, value string, startPos, startCol, startLine int) token.Token {
	return token.Token{
		Type:      tokType,
		Value:     value,
		FileIndex: l.fileIndex,
		Line:      startLine,
		Column:    startCol,
		Len:       l.pos - startPos,
	}
}
