package parser

import (
	"strings"
	"unicode/utf8"

	"github.com/sandrolain/govel/pkg/types"
)

// Lexer splits an expression into tokens on demand. It never backtracks on
// its own; the parser repositions it with Seek after capturing raw text.
type Lexer struct {
	input string
	pos   int
	err   error
}

// NewLexer returns a lexer positioned at the start of input.
func NewLexer(input string) *Lexer {
	return &Lexer{input: input}
}

// Next returns the token at the current position. At the end of the input
// it keeps returning TokenEOF. After an error it keeps returning TokenError;
// the error itself is available from Error.
func (l *Lexer) Next() Token {
	if l.err != nil {
		return Token{Type: TokenError, Position: l.pos}
	}
	if !l.skipTrivia() {
		return Token{Type: TokenError, Position: l.pos}
	}
	if l.pos >= len(l.input) {
		return Token{Type: TokenEOF, Position: l.pos}
	}

	start := l.pos
	switch c := l.input[start]; {
	case c == '"' || c == '\'':
		return l.scanString(start)
	case c >= '0' && c <= '9':
		return l.scanNumber(start)
	case isIdentifierStart(l.input, start):
		l.pos = scanIdentifier(l.input, start)
		tok := l.token(TokenName, start)
		if kw, ok := keywords[tok.Value]; ok {
			tok.Type = kw
		}
		return tok
	}

	if tt, n := matchOperator(l.input[start:]); n > 0 {
		l.pos += n
		return l.token(tt, start)
	}
	_, w := utf8.DecodeRuneInString(l.input[start:])
	l.pos += w
	return l.fail(types.ErrSyntaxError, "Unexpected character", start)
}

// Seek moves the lexer to pos. The parser uses it to skip text it captured
// without tokenizing, such as call arguments and collection bodies.
func (l *Lexer) Seek(pos int) {
	l.pos = pos
}

// Input returns the text being scanned.
func (l *Lexer) Input() string {
	return l.input
}

// Error returns the first error encountered, if any.
func (l *Lexer) Error() error {
	return l.err
}

// scanString consumes a quoted literal. The token keeps both quotes and
// the escapes as written; property.Unquote decodes them.
func (l *Lexer) scanString(start int) Token {
	quote := l.input[start]
	for i := start + 1; i < len(l.input); i++ {
		switch l.input[i] {
		case '\\':
			i++
		case quote:
			l.pos = i + 1
			return l.token(TokenString, start)
		}
	}
	l.pos = len(l.input)
	return l.fail(types.ErrStringNotClosed, "Unterminated string literal", start)
}

// scanNumber consumes a decimal literal with optional fraction and
// exponent, or a 0x-prefixed hexadecimal integer. A dot not followed by a
// digit is left for member access, as in 1.toString().
func (l *Lexer) scanNumber(start int) Token {
	s := l.input
	i := start
	if i+2 < len(s) && s[i] == '0' && (s[i+1] == 'x' || s[i+1] == 'X') && isHexDigit(s[i+2]) {
		i += 2
		for i < len(s) && isHexDigit(s[i]) {
			i++
		}
		l.pos = i
		return l.token(TokenNumber, start)
	}

	i = skipDigits(s, i)
	if i+1 < len(s) && s[i] == '.' && isDigit(rune(s[i+1])) {
		i = skipDigits(s, i+1)
	}
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			j++
		}
		if j < len(s) && isDigit(rune(s[j])) {
			i = skipDigits(s, j)
		}
	}
	l.pos = i
	return l.token(TokenNumber, start)
}

// skipTrivia moves past whitespace, // line comments and /* block */
// comments. It reports false on an unclosed block comment.
func (l *Lexer) skipTrivia() bool {
	s := l.input
	for l.pos < len(s) {
		switch {
		case isWhitespace(rune(s[l.pos])):
			l.pos++
		case strings.HasPrefix(s[l.pos:], "//"):
			for l.pos < len(s) && s[l.pos] != '\n' {
				l.pos++
			}
		case strings.HasPrefix(s[l.pos:], "/*"):
			open := l.pos
			end := strings.Index(s[l.pos+2:], "*/")
			if end < 0 {
				l.pos = len(s)
				l.err = &types.Error{
					Code:     types.ErrCommentNotClosed,
					Message:  "Unclosed comment",
					Position: open,
				}
				return false
			}
			l.pos += 2 + end + 2
		default:
			return true
		}
	}
	return true
}

func (l *Lexer) token(tt TokenType, start int) Token {
	return Token{Type: tt, Value: l.input[start:l.pos], Position: start}
}

func (l *Lexer) fail(code types.ErrorCode, message string, start int) Token {
	tok := l.token(TokenError, start)
	l.err = &types.Error{
		Code:     code,
		Message:  message,
		Position: start,
		Token:    tok.Value,
	}
	return tok
}

func skipDigits(s string, i int) int {
	for i < len(s) && isDigit(rune(s[i])) {
		i++
	}
	return i
}

func isWhitespace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r', '\v':
		return true
	default:
		return false
	}
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isHexDigit(b byte) bool {
	return isDigit(rune(b)) || b >= 'a' && b <= 'f' || b >= 'A' && b <= 'F'
}
