package parser

import (
	"reflect"
	"strings"

	"github.com/sandrolain/govel/pkg/ast"
	"github.com/sandrolain/govel/pkg/property"
	"github.com/sandrolain/govel/pkg/types"
)

// CollectionParser parses the body of an inline collection literal.
//
// Elements are separated by top-level commas; a top-level colon turns the
// literal into a map and ends its key. Nested [..] and {..} literals that
// make up a whole element are parsed recursively, everything else is handed
// to the expression parser as text. Quoted strings and (..) groups are
// skipped as opaque.
type CollectionParser struct {
	compiler *Compiler
	pctx     *Context
	src      string
}

// NewCollectionParser returns a parser for text bound to compiler c.
func NewCollectionParser(c *Compiler, text string, pctx *Context) *CollectionParser {
	if pctx == nil {
		pctx = NewContext(c.opts.StrongTyping)
	}
	return &CollectionParser{compiler: c, pctx: pctx, src: text}
}

// Parse parses the whole text as a collection of kind. Elements and map
// values whose static type cannot be stored in elemType fail with
// ErrCompileTypeMismatch.
func (cp *CollectionParser) Parse(kind ast.CollectionKind, elemType reflect.Type) (*ast.CollectionNode, error) {
	return cp.parse(0, len(cp.src), kind, elemType)
}

// collectionScan is the state of one literal being scanned.
type collectionScan struct {
	cp       *CollectionParser
	node     *ast.CollectionNode
	elemType reflect.Type
	key      ast.Node
}

func (cp *CollectionParser) parse(start, end int, kind ast.CollectionKind, elemType reflect.Type) (*ast.CollectionNode, error) {
	src := cp.src
	rt := cp.compiler.rt

	if strings.TrimSpace(src[start:end]) == "" {
		if kind == ast.CollectionMap {
			kind = ast.CollectionArray
		}
		return ast.NewCollectionNode(rt, kind, elemType, ""), nil
	}

	sc := &collectionScan{
		cp:       cp,
		node:     ast.NewCollectionNode(rt, kind, elemType, ""),
		elemType: elemType,
	}
	if kind == ast.CollectionMap {
		sc.node.ToMap()
	}

	seg := start
	for i := start; i < end; i++ {
		switch ch := src[i]; ch {
		case '[', '{':
			closing := property.BalancedCapture(src, i)
			if closing < 0 || closing >= end {
				return nil, types.Errorf(types.ErrUnterminatedBracket, "unterminated '%c'", ch).WithPosition(i)
			}
			// Indexing such as a[0], or a literal inside a larger element,
			// stays part of the element text.
			if (i > start && isIdentifierByte(src[i-1])) || strings.TrimSpace(src[seg:i]) != "" {
				i = closing
				continue
			}
			next := skipSpaces(src, closing+1)
			if next < end && src[next] != ',' {
				i = closing
				continue
			}
			// A nested list inside a collection of slices is built as a
			// typed slice.
			nested := ast.CollectionList
			if ch == '{' || (elemType != nil && elemType.Kind() == reflect.Slice) {
				nested = ast.CollectionArray
			}
			child, err := cp.parse(i+1, closing, nested, nestedElemType(elemType))
			if err != nil {
				return nil, err
			}
			if err := sc.add(child, i); err != nil {
				return nil, err
			}
			seg, i = next+1, next

		case '(':
			closing := property.BalancedCapture(src, i)
			if closing < 0 || closing >= end {
				return nil, types.NewError(types.ErrUnterminatedBracket, "unterminated '('").WithPosition(i)
			}
			i = closing

		case '"', '\'':
			closing := property.SkipQuoted(src, i)
			if closing < 0 || closing >= end {
				return nil, types.NewError(types.ErrStringNotClosed, "unterminated string literal").WithPosition(i)
			}
			i = closing

		case ',':
			if err := sc.flush(seg, i); err != nil {
				return nil, err
			}
			seg = i + 1

		case ':':
			if err := sc.beginValue(seg, i); err != nil {
				return nil, err
			}
			seg = i + 1

		case '.':
			// A .{ } continuation belongs to the element.
			next := skipSpaces(src, i+1)
			if next < end && src[next] == '{' {
				closing := property.BalancedCapture(src, next)
				if closing < 0 || closing >= end {
					return nil, types.NewError(types.ErrUnterminatedBracket, "unterminated '{'").WithPosition(next)
				}
				i = closing
			}
		}
	}

	if seg < end && strings.TrimSpace(src[seg:end]) != "" {
		if err := sc.flush(seg, end); err != nil {
			return nil, err
		}
	} else if sc.key != nil {
		return nil, types.Errorf(types.ErrSyntaxError, "missing value for key %s", sc.key.Source()).WithPosition(end)
	}
	return sc.node, nil
}

// beginValue ends the key text src[start:colon].
func (sc *collectionScan) beginValue(start, colon int) error {
	if sc.node.Kind() != ast.CollectionMap {
		if sc.node.Len() > 0 {
			return types.NewError(types.ErrSyntaxError, "unexpected ':' in a list literal").WithPosition(colon)
		}
		sc.node.ToMap()
	}
	if sc.key != nil {
		return types.NewError(types.ErrSyntaxError, "missing ',' between map entries").WithPosition(colon)
	}
	text := strings.TrimSpace(sc.cp.src[start:colon])
	if text == "" {
		return types.NewError(types.ErrSyntaxError, "empty map key").WithPosition(colon)
	}
	key, err := sc.cp.element(text, start)
	if err != nil {
		return err
	}
	sc.key = key
	return nil
}

// flush compiles the pending element src[start:stop].
func (sc *collectionScan) flush(start, stop int) error {
	text := strings.TrimSpace(sc.cp.src[start:stop])
	if text == "" {
		if sc.key != nil {
			return types.Errorf(types.ErrSyntaxError, "missing value for key %s", sc.key.Source()).WithPosition(stop)
		}
		return types.NewError(types.ErrSyntaxError, "empty collection element").WithPosition(stop)
	}
	value, err := sc.cp.element(text, start)
	if err != nil {
		return err
	}
	return sc.add(value, start)
}

// add appends value as the next element or as the value of the pending key.
func (sc *collectionScan) add(value ast.Node, pos int) error {
	if err := checkElement(sc.cp.compiler.rt, sc.cp.pctx.StrongTyping, sc.elemType, value.EgressType()); err != nil {
		return err.WithPosition(pos)
	}
	if sc.node.Kind() != ast.CollectionMap {
		sc.node.Add(value)
		return nil
	}
	if sc.key == nil {
		return types.Errorf(types.ErrSyntaxError, "missing key for map value %s", value.Source()).WithPosition(pos)
	}
	sc.node.AddEntry(sc.key, value)
	sc.key = nil
	return nil
}

// element compiles one element expression sharing the parser context.
func (cp *CollectionParser) element(text string, offset int) (ast.Node, error) {
	node, err := cp.compiler.parse(text, cp.pctx)
	if err != nil {
		if te, ok := err.(*types.Error); ok && te.Position >= 0 {
			te.Position += offset
		}
		return nil, err
	}
	return node, nil
}

// checkElement reports a static mismatch between an element type and the
// declared element type. Unknown types always pass. Without strong typing a
// possible conversion is enough; with it the value must be assignable, or
// numeric on both sides.
func checkElement(rt *ast.Runtime, strong bool, want, got reflect.Type) *types.Error {
	if want == nil || got == nil || got.AssignableTo(want) {
		return nil
	}
	if strong {
		if types.KindOf(want).IsNumeric() && types.KindOf(got).IsNumeric() {
			return nil
		}
		if want.Kind() == reflect.Interface && got.Implements(want) {
			return nil
		}
	} else if rt.Converter.CanConvert(got, want) {
		return nil
	}
	return types.Errorf(types.ErrCompileTypeMismatch, "expected type: %s; but found: %s", want, got)
}

// nestedElemType is the element type of a nested literal inside a
// collection of elemType.
func nestedElemType(elemType reflect.Type) reflect.Type {
	if elemType == nil {
		return nil
	}
	switch elemType.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return elemType.Elem()
	}
	return nil
}

func isIdentifierByte(b byte) bool {
	return b == '_' || b == '$' || b >= '0' && b <= '9' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z'
}
