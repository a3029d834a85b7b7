package parser

import "strings"

// TokenType represents the type of a lexical token.
type TokenType uint8

const (
	// Special tokens
	TokenEOF TokenType = iota
	TokenError

	// Literals
	TokenString  // "hello" or 'hello'
	TokenNumber  // 123, 3.14, 1e-10
	TokenBoolean // true, false
	TokenNull    // null
	TokenName    // fieldName

	// Grouping symbols
	TokenBracketOpen  // [
	TokenBracketClose // ]
	TokenBraceOpen    // {
	TokenBraceClose   // }
	TokenParenOpen    // (
	TokenParenClose   // )

	// Basic symbols
	TokenDot       // .
	TokenComma     // ,
	TokenColon     // :
	TokenSemicolon // ;

	// Arithmetic operators
	TokenPlus  // +
	TokenMinus // -
	TokenMult  // *
	TokenDiv   // /
	TokenMod   // %

	// Comparison operators
	TokenEqual        // ==
	TokenNotEqual     // !=
	TokenLess         // <
	TokenLessEqual    // <=
	TokenGreater      // >
	TokenGreaterEqual // >=

	// Logical operators
	TokenAnd // && or and
	TokenOr  // || or or
	TokenNot // !

	// Assignment
	TokenAssign      // =
	TokenPlusAssign  // +=
	TokenMinusAssign // -=
	TokenMultAssign  // *=
	TokenDivAssign   // /=
	TokenModAssign   // %=

	// Keywords
	TokenReturn // return
)

var tokenNames = [...]string{
	TokenEOF:          "(eof)",
	TokenError:        "(error)",
	TokenString:       "(string)",
	TokenNumber:       "(number)",
	TokenBoolean:      "(boolean)",
	TokenNull:         "(null)",
	TokenName:         "(name)",
	TokenBracketOpen:  "[",
	TokenBracketClose: "]",
	TokenBraceOpen:    "{",
	TokenBraceClose:   "}",
	TokenParenOpen:    "(",
	TokenParenClose:   ")",
	TokenDot:          ".",
	TokenComma:        ",",
	TokenColon:        ":",
	TokenSemicolon:    ";",
	TokenPlus:         "+",
	TokenMinus:        "-",
	TokenMult:         "*",
	TokenDiv:          "/",
	TokenMod:          "%",
	TokenEqual:        "==",
	TokenNotEqual:     "!=",
	TokenLess:         "<",
	TokenLessEqual:    "<=",
	TokenGreater:      ">",
	TokenGreaterEqual: ">=",
	TokenAnd:          "&&",
	TokenOr:           "||",
	TokenNot:          "!",
	TokenAssign:       "=",
	TokenPlusAssign:   "+=",
	TokenMinusAssign:  "-=",
	TokenMultAssign:   "*=",
	TokenDivAssign:    "/=",
	TokenModAssign:    "%=",
	TokenReturn:       "return",
}

// String returns the token's symbol, or a parenthesized class name for
// literals and control tokens.
func (tt TokenType) String() string {
	if int(tt) < len(tokenNames) {
		return tokenNames[tt]
	}
	return "(unknown)"
}

// Token is one lexeme of an expression.
type Token struct {
	Type     TokenType
	Value    string // source text, quotes included for strings
	Position int    // byte offset of Value in the input
}

// operators is scanned in order, so two-character forms precede their
// one-character prefixes.
var operators = []struct {
	text string
	tt   TokenType
}{
	{"==", TokenEqual},
	{"!=", TokenNotEqual},
	{"<=", TokenLessEqual},
	{">=", TokenGreaterEqual},
	{"&&", TokenAnd},
	{"||", TokenOr},
	{"+=", TokenPlusAssign},
	{"-=", TokenMinusAssign},
	{"*=", TokenMultAssign},
	{"/=", TokenDivAssign},
	{"%=", TokenModAssign},
	{"[", TokenBracketOpen},
	{"]", TokenBracketClose},
	{"{", TokenBraceOpen},
	{"}", TokenBraceClose},
	{"(", TokenParenOpen},
	{")", TokenParenClose},
	{".", TokenDot},
	{",", TokenComma},
	{":", TokenColon},
	{";", TokenSemicolon},
	{"+", TokenPlus},
	{"-", TokenMinus},
	{"*", TokenMult},
	{"/", TokenDiv},
	{"%", TokenMod},
	{"=", TokenAssign},
	{"<", TokenLess},
	{">", TokenGreater},
	{"!", TokenNot},
}

// matchOperator returns the operator at the start of s and its length.
func matchOperator(s string) (TokenType, int) {
	for _, op := range operators {
		if strings.HasPrefix(s, op.text) {
			return op.tt, len(op.text)
		}
	}
	return 0, 0
}

var keywords = map[string]TokenType{
	"and":    TokenAnd,
	"or":     TokenOr,
	"return": TokenReturn,
	"true":   TokenBoolean,
	"false":  TokenBoolean,
	"null":   TokenNull,
	"nil":    TokenNull,
}
