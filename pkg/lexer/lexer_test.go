package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vslc/pkg/token"
)

func types(tokens []token.Token) []token.Type {
	result := make([]token.Type, len(tokens))
	for i, tok := range tokens {
		result[i] = tok.Type
	}
	return result
}

func TestKeywordsAndIdentifiers(t *testing.T) {
	tokens := Tokenize([]rune("func main begin end var if then else while do return print break count_2"), 0)
	assert.Equal(t, []token.Type{
		token.Func, token.Ident, token.Begin, token.End, token.Var,
		token.If, token.Then, token.Else, token.While, token.Do,
		token.Return, token.Print, token.Break, token.Ident,
	}, types(tokens))
	assert.Equal(t, "main", tokens[1].Value)
	assert.Equal(t, "count_2", tokens[13].Value)
}

func TestOperators(t *testing.T) {
	tokens := Tokenize([]rune(":= + - * / == != < > <= >= ! ( ) [ ] ,"), 0)
	assert.Equal(t, []token.Type{
		token.Assign, token.Plus, token.Minus, token.Star, token.Slash,
		token.EqEq, token.Neq, token.Lt, token.Gt, token.Lte, token.Gte,
		token.Not, token.LParen, token.RParen, token.LBracket, token.RBracket,
		token.Comma,
	}, types(tokens))
}

func TestNumbers(t *testing.T) {
	tokens := Tokenize([]rune("0 42 1234567890"), 0)
	require.Len(t, tokens, 3)
	assert.Equal(t, "42", tokens[1].Value)
	assert.Equal(t, "1234567890", tokens[2].Value)
	for _, tok := range tokens {
		assert.Equal(t, token.Number, tok.Type)
	}
}

func TestStringEscapes(t *testing.T) {
	tokens := Tokenize([]rune(`"plain" "tab\there" "quote\"inside" "newline\n"`), 0)
	require.Len(t, tokens, 4)
	assert.Equal(t, "plain", tokens[0].Value)
	assert.Equal(t, "tab\there", tokens[1].Value)
	assert.Equal(t, `quote"inside`, tokens[2].Value)
	assert.Equal(t, "newline\n", tokens[3].Value)
}

func TestCommentsAreSkipped(t *testing.T) {
	src := `
// leading comment
var x // trailing comment
// only comments below
`
	tokens := Tokenize([]rune(src), 0)
	assert.Equal(t, []token.Type{token.Var, token.Ident}, types(tokens))
}

func TestPositions(t *testing.T) {
	tokens := Tokenize([]rune("func f\n  return 1"), 0)
	require.Len(t, tokens, 4)

	assert.Equal(t, 1, tokens[0].Line)
	assert.Equal(t, 1, tokens[0].Column)
	assert.Equal(t, 4, tokens[0].Len)

	assert.Equal(t, 1, tokens[1].Line)
	assert.Equal(t, 6, tokens[1].Column)

	assert.Equal(t, 2, tokens[2].Line)
	assert.Equal(t, 3, tokens[2].Column)

	assert.Equal(t, 2, tokens[3].Line)
	assert.Equal(t, 10, tokens[3].Column)
}

func TestAssignRequiresColon(t *testing.T) {
	tokens := Tokenize([]rune("a := b == c"), 0)
	assert.Equal(t, []token.Type{
		token.Ident, token.Assign, token.Ident, token.EqEq, token.Ident,
	}, types(tokens))
}
