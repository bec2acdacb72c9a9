package token

type Type int

const (
	EOF Type = iota
	Ident
	Number
	String

	// Keywords
	Func
	Begin
	End
	Var
	If
	Then
	Else
	While
	Do
	Return
	Print
	Break

	// Punctuation
	LParen
	RParen
	LBracket
	RBracket
	Comma

	// Operators
	Assign
	Plus
	Minus
	Star
	Slash
	EqEq
	Neq
	Lt
	Gt
	Lte
	Gte
	Not
)

var KeywordMap = map[string]Type{
	"func":   Func,
	"begin":  Begin,
	"end":    End,
	"var":    Var,
	"if":     If,
	"then":   Then,
	"else":   Else,
	"while":  While,
	"do":     Do,
	"return": Return,
	"print":  Print,
	"break":  Break,
}

var opStrings = map[Type]string{
	Assign: ":=",
	Plus:   "+",
	Minus:  "-",
	Star:   "*",
	Slash:  "/",
	EqEq:   "==",
	Neq:    "!=",
	Lt:     "<",
	Gt:     ">",
	Lte:    "<=",
	Gte:    ">=",
	Not:    "!",
}

// Reverse mapping from Type to the keyword or operator spelling
var TypeStrings = make(map[Type]string)

func init() {
	for str, typ := range KeywordMap {
		TypeStrings[typ] = str
	}
	for typ, str := range opStrings {
		TypeStrings[typ] = str
	}
}

type Token struct {
	Type      Type
	Value     string
	FileIndex int
	Line      int
	Column    int
	Len       int
}
