package parser

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/sandrolain/govel/pkg/ast"
	"github.com/sandrolain/govel/pkg/property"
	"github.com/sandrolain/govel/pkg/types"
)

// Parser turns one expression into an AST. Operators are handled by
// binding power (Pratt); property paths and collection literals are captured
// as raw spans and handed to their own compilers.
type Parser struct {
	compiler *Compiler
	rt       *ast.Runtime
	pctx     *Context
	lexer    *Lexer
	current  Token
	prev     Token
	depth    int
}

func newParser(c *Compiler, input string, pctx *Context) *Parser {
	p := &Parser{
		compiler: c,
		rt:       c.rt,
		pctx:     pctx,
		lexer:    NewLexer(input),
	}

	p.advance()

	return p
}

// Parse parses the whole input into a single node. Several statements
// produce a block.
func (p *Parser) Parse() (ast.Node, error) {
	if p.current.Type == TokenError {
		return nil, p.lexer.Error()
	}

	var stmts []ast.Node
	for p.current.Type != TokenEOF {
		if p.current.Type == TokenSemicolon {
			p.advance()
			continue
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)

		switch p.current.Type {
		case TokenEOF, TokenSemicolon:
		case TokenError:
			return nil, p.lexer.Error()
		default:
			return nil, p.error(types.ErrSyntaxError, fmt.Sprintf("Unexpected token: %s", p.current.Value))
		}
	}

	switch len(stmts) {
	case 0:
		return nil, p.error(types.ErrSyntaxError, "Empty expression")
	case 1:
		return stmts[0], nil
	}
	return ast.NewBlockNode(stmts...), nil
}

func (p *Parser) parseStatement() (ast.Node, error) {
	if p.current.Type != TokenReturn {
		return p.parseExpression(0)
	}
	p.advance()
	if p.current.Type == TokenEOF || p.current.Type == TokenSemicolon {
		return nil, p.error(types.ErrUnexpectedEnd, "Expected expression after return")
	}
	expr, err := p.parseExpression(0)
	if err != nil {
		return nil, err
	}
	return ast.NewReturnNode(expr), nil
}

// precedence is the left binding power of infix tokens. Assignment binds
// loosest and associates to the right.
var precedence = map[TokenType]int{
	TokenAssign:       10, // =
	TokenPlusAssign:   10, // +=
	TokenMinusAssign:  10, // -=
	TokenMultAssign:   10, // *=
	TokenDivAssign:    10, // /=
	TokenModAssign:    10, // %=
	TokenOr:           20, // ||
	TokenAnd:          30, // &&
	TokenEqual:        40, // ==
	TokenNotEqual:     40, // !=
	TokenLess:         45, // <
	TokenLessEqual:    45, // <=
	TokenGreater:      45, // >
	TokenGreaterEqual: 45, // >=
	TokenPlus:         50, // +
	TokenMinus:        50, // -
	TokenMult:         60, // *
	TokenDiv:          60, // /
	TokenMod:          60, // %
}

// unaryPrecedence binds ! and unary - tighter than any binary operator.
const unaryPrecedence = 70

var binaryOperators = map[TokenType]types.Operator{
	TokenOr:           types.OpOr,
	TokenAnd:          types.OpAnd,
	TokenEqual:        types.OpEq,
	TokenNotEqual:     types.OpNe,
	TokenLess:         types.OpLt,
	TokenLessEqual:    types.OpLe,
	TokenGreater:      types.OpGt,
	TokenGreaterEqual: types.OpGe,
	TokenPlus:         types.OpAdd,
	TokenMinus:        types.OpSub,
	TokenMult:         types.OpMul,
	TokenDiv:          types.OpDiv,
	TokenMod:          types.OpMod,
}

var assignOperators = map[TokenType]types.Operator{
	TokenAssign:      types.OpNone,
	TokenPlusAssign:  types.OpAdd,
	TokenMinusAssign: types.OpSub,
	TokenMultAssign:  types.OpMul,
	TokenDivAssign:   types.OpDiv,
	TokenModAssign:   types.OpMod,
}

func (p *Parser) getPrecedence(tt TokenType) int {
	return precedence[tt]
}

func (p *Parser) advance() {
	p.prev = p.current
	p.current = p.lexer.Next()
}

// seek restarts tokenizing at pos.
func (p *Parser) seek(pos int) {
	p.lexer.Seek(pos)
	p.advance()
}

// expect consumes a token of type tt or fails.
func (p *Parser) expect(tt TokenType) error {
	if p.current.Type != tt {
		if p.current.Type == TokenEOF {
			return p.error(types.ErrUnexpectedEnd, fmt.Sprintf("Expected %s but reached the end of the expression", tt))
		}
		return p.error(types.ErrExpectedToken, fmt.Sprintf("Expected %s but got %s", tt.String(), p.current.Type.String()))
	}
	p.advance()
	return nil
}

// error reports code at the current token.
func (p *Parser) error(code types.ErrorCode, message string) error {
	return &types.Error{
		Code:     code,
		Message:  message,
		Position: p.current.Position,
		Token:    p.current.Value,
	}
}

// parseExpression parses operands and operators binding tighter than rbp.
func (p *Parser) parseExpression(rbp int) (ast.Node, error) {
	p.depth++
	defer func() { p.depth-- }()
	if p.depth > p.compiler.opts.MaxDepth {
		return nil, p.error(types.ErrSyntaxError, "Expression nesting exceeds maximum depth")
	}

	left, err := p.parsePrefix()
	if err != nil {
		return nil, err
	}

	for rbp < p.getPrecedence(p.current.Type) {
		left, err = p.parseInfix(left)
		if err != nil {
			return nil, err
		}
	}

	return left, nil
}

// parsePrefix parses a literal, path, group, collection or unary operator.
func (p *Parser) parsePrefix() (ast.Node, error) {
	token := p.current

	var (
		node ast.Node
		err  error
	)
	switch token.Type {
	case TokenString:
		node, err = p.parseString()
	case TokenNumber:
		node, err = p.parseNumber()
	case TokenBoolean:
		node = ast.NewLiteralNode(token.Value == "true", token.Value)
		p.advance()
	case TokenNull:
		node = ast.NewLiteralNode(nil, token.Value)
		p.advance()
	case TokenName:
		// A path is complete as captured; postfix access only applies to
		// other primaries.
		return p.parsePath()
	case TokenNot, TokenMinus:
		return p.parseUnary()
	case TokenParenOpen:
		node, err = p.parseGroup()
	case TokenBracketOpen, TokenBraceOpen:
		node, err = p.parseCollection()
	case TokenEOF:
		return nil, p.error(types.ErrUnexpectedEnd, "Unexpected end of expression")
	case TokenError:
		return nil, p.lexer.Error()
	default:
		return nil, p.error(types.ErrSyntaxError, fmt.Sprintf("Unexpected token: %s", token.Value))
	}
	if err != nil {
		return nil, err
	}
	return p.parsePostfix(node)
}

// parseInfix parses the operator at the current token with left as its
// first operand.
func (p *Parser) parseInfix(left ast.Node) (ast.Node, error) {
	token := p.current
	prec := p.getPrecedence(token.Type)

	if op, ok := assignOperators[token.Type]; ok {
		p.advance()
		// Assignment is right associative.
		right, err := p.parseExpression(prec - 1)
		if err != nil {
			return nil, err
		}
		return p.assignment(token, left, op, right)
	}

	op, ok := binaryOperators[token.Type]
	if !ok {
		return nil, p.error(types.ErrSyntaxError, fmt.Sprintf("Unexpected token: %s", token.Value))
	}
	p.advance()
	right, err := p.parseExpression(prec)
	if err != nil {
		return nil, err
	}
	if p.pctx.StrongTyping {
		lt, rt := left.EgressType(), right.EgressType()
		if !p.rt.Ops.Supports(types.KindOf(lt), op, types.KindOf(rt)) {
			return nil, types.Errorf(types.ErrCompileTypeMismatch, "operator %s is not defined for %s and %s", op, lt, rt).
				WithPosition(token.Position)
		}
	}
	return ast.NewBinaryNode(p.rt, op, left, right), nil
}

// assignment builds path = expr or name op= expr.
func (p *Parser) assignment(token Token, left ast.Node, op types.Operator, right ast.Node) (ast.Node, error) {
	target, ok := left.(*ast.PropertyNode)
	if !ok {
		return nil, types.Errorf(types.ErrSyntaxError, "cannot assign to %s", left.Source()).
			WithPosition(token.Position).
			WithToken(token.Value)
	}
	name := target.Source()
	simple := isIdentifier(name)

	if op == types.OpNone {
		if !simple {
			return ast.NewPropertyAssignNode(p.rt, target, right), nil
		}
		if err := p.checkAssignable(token, name, right); err != nil {
			return nil, err
		}
		p.pctx.AddInput(name, right.EgressType())
		return ast.NewVariableAssignNode(p.rt, name, right), nil
	}

	if !simple {
		return nil, types.Errorf(types.ErrSyntaxError, "compound assignment needs a variable, got %s", name).
			WithPosition(token.Position).
			WithToken(token.Value)
	}

	egress := right.EgressType()
	known := types.KindUnknown
	if p.pctx.StrongTyping {
		known = types.KindOf(egress)
		if vt, ok := p.pctx.TypeOf(name); ok && vt != nil && egress != nil {
			if !p.rt.Ops.Supports(types.KindOf(vt), op, known) {
				return nil, types.Errorf(types.ErrCompileTypeMismatch, "operator %s= is not defined for %s and %s", op, vt, egress).
					WithPosition(token.Position).
					WithToken(name)
			}
		}
	}
	p.pctx.AddInput(name, egress)
	return ast.NewOperativeAssignNode(p.rt, name, op, right, known), nil
}

// checkAssignable rejects, under strong typing, a value whose static type
// cannot be stored in a declared variable.
func (p *Parser) checkAssignable(token Token, name string, value ast.Node) error {
	if !p.pctx.StrongTyping {
		return nil
	}
	vt, ok := p.pctx.Variables[name]
	if !ok || vt == nil {
		return nil
	}
	if err := checkElement(p.rt, true, vt, value.EgressType()); err != nil {
		return err.WithPosition(token.Position).WithToken(name)
	}
	return nil
}

func (p *Parser) parseString() (ast.Node, error) {
	token := p.current
	s, err := property.Unquote(token.Value)
	if err != nil {
		return nil, err
	}
	p.advance()
	return ast.NewLiteralNode(s, token.Value), nil
}

func (p *Parser) parseNumber() (ast.Node, error) {
	token := p.current
	v, err := parseNumber(token.Value)
	if err != nil {
		return nil, p.error(types.ErrSyntaxError, fmt.Sprintf("Invalid number: %s", token.Value))
	}
	p.advance()
	return ast.NewLiteralNode(v, token.Value), nil
}

// parseNumber returns an int for integral literals and a float64 otherwise.
func parseNumber(text string) (any, error) {
	if hex, ok := strings.CutPrefix(strings.ToLower(text), "0x"); ok {
		n, err := strconv.ParseInt(hex, 16, 0)
		return int(n), err
	}
	if !strings.ContainsAny(text, ".eE") {
		if n, err := strconv.Atoi(text); err == nil {
			return n, nil
		}
	}
	return strconv.ParseFloat(text, 64)
}

func (p *Parser) parseUnary() (ast.Node, error) {
	token := p.current
	p.advance()
	operand, err := p.parseExpression(unaryPrecedence)
	if err != nil {
		return nil, err
	}

	if token.Type == TokenNot {
		return ast.NewUnaryNode(p.rt, ast.UnaryNot, operand), nil
	}
	// Fold negative number literals.
	if lit, ok := operand.(*ast.LiteralNode); ok {
		switch v := lit.Value().(type) {
		case int:
			return ast.NewLiteralNode(-v, "-"+lit.Source()), nil
		case float64:
			return ast.NewLiteralNode(-v, "-"+lit.Source()), nil
		}
	}
	return ast.NewUnaryNode(p.rt, ast.UnaryMinus, operand), nil
}

func (p *Parser) parseGroup() (ast.Node, error) {
	p.advance()
	node, err := p.parseExpression(0)
	if err != nil {
		return nil, err
	}
	if err := p.expect(TokenParenClose); err != nil {
		return nil, err
	}
	return node, nil
}

// parseCollection parses an inline [...] or {...} literal.
func (p *Parser) parseCollection() (ast.Node, error) {
	token := p.current
	input := p.lexer.Input()
	end := property.BalancedCapture(input, token.Position)
	if end < 0 {
		return nil, types.Errorf(types.ErrUnterminatedBracket, "unterminated '%s'", token.Value).
			WithPosition(token.Position)
	}

	kind := ast.CollectionList
	if token.Type == TokenBraceOpen {
		kind = ast.CollectionArray
	}
	cp := &CollectionParser{compiler: p.compiler, pctx: p.pctx, src: input}
	node, err := cp.parse(token.Position+1, end, kind, nil)
	if err != nil {
		return nil, err
	}
	p.seek(end + 1)
	return node, nil
}

// parsePostfix applies member access and indexing written directly after a
// literal, a group or a collection.
func (p *Parser) parsePostfix(base ast.Node) (ast.Node, error) {
	var start int
	switch p.current.Type {
	case TokenDot:
		p.advance()
		if p.current.Type != TokenName && p.current.Type != TokenBoolean && p.current.Type != TokenNull {
			return nil, p.error(types.ErrExpectedToken, fmt.Sprintf("Expected %s but got %s", TokenName, p.current.Type))
		}
		start = p.current.Position
	case TokenBracketOpen:
		start = p.current.Position
	default:
		return base, nil
	}
	end, err := p.capturePath(start)
	if err != nil {
		return nil, err
	}
	path := types.NewSpan(p.lexer.Input(), start, end)
	p.seek(end)
	return ast.NewMemberNode(p.rt, base, path), nil
}

// parsePath captures a property path starting at the current name.
func (p *Parser) parsePath() (ast.Node, error) {
	start := p.current.Position
	end, err := p.capturePath(start)
	if err != nil {
		return nil, err
	}
	input := p.lexer.Input()
	path := types.NewSpan(input, start, end)
	p.seek(end)

	var egress reflect.Type
	text := path.String()
	if isIdentifier(text) && text != property.SelfToken {
		egress, _ = p.pctx.TypeOf(text)
	}
	if root := rootIdentifier(text); root != "" && root != property.SelfToken {
		if _, known := p.pctx.TypeOf(root); !known {
			p.pctx.AddInput(root, nil)
		}
	}
	return ast.NewPropertyNode(p.rt, path, egress), nil
}

// capturePath returns the end of the path starting at start: identifiers
// joined by dots, each optionally followed by [index] or (args) groups.
func (p *Parser) capturePath(start int) (int, error) {
	input := p.lexer.Input()
	pos := start
	end := start
	expectName := input[pos] != '['
	for {
		if expectName {
			n := scanIdentifier(input, pos)
			if n == pos {
				return 0, types.Errorf(types.ErrSyntaxError, "expected a name in property path").WithPosition(pos)
			}
			pos, end, expectName = n, n, false
		}

		next := skipSpaces(input, pos)
		if next >= len(input) {
			return end, nil
		}
		switch input[next] {
		case '[', '(':
			closing := property.BalancedCapture(input, next)
			if closing < 0 {
				return 0, types.Errorf(types.ErrUnterminatedBracket, "unterminated '%c'", input[next]).
					WithPosition(next)
			}
			pos, end = closing+1, closing+1
		case '.':
			after := skipSpaces(input, next+1)
			if after >= len(input) || !isIdentifierStart(input, after) {
				return end, nil
			}
			pos, expectName = after, true
		default:
			return end, nil
		}
	}
}

func skipSpaces(s string, pos int) int {
	for pos < len(s) && isWhitespace(rune(s[pos])) {
		pos++
	}
	return pos
}

func isIdentifierStart(s string, pos int) bool {
	r, _ := utf8.DecodeRuneInString(s[pos:])
	return r == '_' || r == '$' || unicode.IsLetter(r)
}

func scanIdentifier(s string, pos int) int {
	if pos >= len(s) || !isIdentifierStart(s, pos) {
		return pos
	}
	for pos < len(s) {
		r, w := utf8.DecodeRuneInString(s[pos:])
		if r != '_' && r != '$' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			break
		}
		pos += w
	}
	return pos
}

func isIdentifier(s string) bool {
	return s != "" && scanIdentifier(s, 0) == len(s)
}

// rootIdentifier returns the leading identifier of a path.
func rootIdentifier(path string) string {
	return path[:scanIdentifier(path, 0)]
}
