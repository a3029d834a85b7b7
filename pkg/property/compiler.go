package property

import (
	"reflect"
	"strconv"
	"strings"

	"github.com/sandrolain/govel/pkg/types"
)

// pathCompiler is the fallback sub-expression compiler used when no full
// parser is wired in. It understands literals and property paths.
type pathCompiler struct {
	engine *Engine
}

func (p *pathCompiler) Compile(text string) (types.Executable, error) {
	text = strings.TrimSpace(text)
	if v, ok, err := ParseLiteral(text); err != nil {
		return nil, err
	} else if ok {
		return &simpleExpr{source: text, value: v, egress: reflect.TypeOf(v)}, nil
	}
	chain, err := p.engine.Compile(types.SpanOf(text))
	if err != nil {
		return nil, err
	}
	return &simpleExpr{source: text, chain: chain}, nil
}

// simpleExpr is a literal or a property path.
type simpleExpr struct {
	source string
	value  any
	chain  *Chain
	egress reflect.Type
}

func (x *simpleExpr) GetValue(ctx, this any, vars types.VariableScope) (any, error) {
	if x.chain == nil {
		return x.value, nil
	}
	return x.chain.Get(ctx, this, vars)
}

func (x *simpleExpr) KnownEgressType() reflect.Type { return x.egress }

func (x *simpleExpr) Source() string { return x.source }

// ParseLiteral parses a number, quoted string, boolean or null literal.
// ok is false when text is not a literal.
func ParseLiteral(text string) (value any, ok bool, err error) {
	switch text {
	case "":
		return nil, false, nil
	case "true":
		return true, true, nil
	case "false":
		return false, true, nil
	case "null", "nil":
		return nil, true, nil
	}
	switch c := text[0]; {
	case c == '"' || c == '\'':
		s, err := Unquote(text)
		if err != nil {
			return nil, false, err
		}
		return s, true, nil
	case c >= '0' && c <= '9', c == '-' && len(text) > 1 && text[1] >= '0' && text[1] <= '9':
		if n, err := strconv.Atoi(text); err == nil {
			return n, true, nil
		}
		if f, err := strconv.ParseFloat(text, 64); err == nil {
			return f, true, nil
		}
		return nil, false, types.Errorf(types.ErrSyntaxError, "invalid number literal %q", text)
	}
	return nil, false, nil
}

// Unquote decodes a single- or double-quoted string literal.
func Unquote(text string) (string, error) {
	if len(text) < 2 || text[len(text)-1] != text[0] || SkipQuoted(text, 0) != len(text)-1 {
		return "", types.Errorf(types.ErrStringNotClosed, "unterminated string literal %s", text)
	}
	body := text[1 : len(text)-1]
	if !strings.ContainsRune(body, '\\') {
		return body, nil
	}
	var sb strings.Builder
	sb.Grow(len(body))
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c != '\\' || i+1 == len(body) {
			sb.WriteByte(c)
			continue
		}
		i++
		switch body[i] {
		case 'n':
			sb.WriteByte('\n')
		case 't':
			sb.WriteByte('\t')
		case 'r':
			sb.WriteByte('\r')
		case '0':
			sb.WriteByte(0)
		default:
			sb.WriteByte(body[i])
		}
	}
	return sb.String(), nil
}
