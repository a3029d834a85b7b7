package property

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/sandrolain/govel/pkg/types"
)

type segmentKind uint8

const (
	segField segmentKind = iota
	segCall
	segIndex
)

// segment is one step of a property path.
type segment struct {
	kind segmentKind
	name string
	// text is the raw argument list of a call or the index expression.
	text string
	// end is the offset just past the segment, used to quote the path walked so far.
	end int

	// exprs and site are only set on compiled chains.
	exprs []types.Executable
	site  *site
}

// scanner produces the segments of a path one at a time.
type scanner struct {
	src    string
	cursor int
}

func (s *scanner) skipSpace() {
	for s.cursor < len(s.src) {
		r, size := utf8.DecodeRuneInString(s.src[s.cursor:])
		if !unicode.IsSpace(r) {
			return
		}
		s.cursor += size
	}
}

// next returns the next segment, or ok == false at the end of the path.
func (s *scanner) next() (seg *segment, ok bool, err error) {
	for {
		s.skipSpace()
		if s.cursor >= len(s.src) {
			return nil, false, nil
		}
		if s.src[s.cursor] != '.' {
			break
		}
		s.cursor++
	}

	start := s.cursor
	switch c := s.src[s.cursor]; {
	case c == '[':
		end := BalancedCapture(s.src, s.cursor)
		if end < 0 {
			return nil, false, types.NewError(types.ErrUnterminatedBracket, "unterminated '['").WithPosition(start)
		}
		s.cursor = end + 1
		return &segment{kind: segIndex, text: strings.TrimSpace(s.src[start+1 : end]), end: s.cursor}, true, nil
	case isIdentStart(c):
		for s.cursor < len(s.src) && isIdentPart(s.src[s.cursor]) {
			s.cursor++
		}
		name := s.src[start:s.cursor]
		nameEnd := s.cursor
		s.skipSpace()
		if s.cursor < len(s.src) && s.src[s.cursor] == '(' {
			open := s.cursor
			end := BalancedCapture(s.src, open)
			if end < 0 {
				return nil, false, types.NewError(types.ErrUnterminatedBracket, "unterminated '('").WithPosition(open)
			}
			s.cursor = end + 1
			return &segment{kind: segCall, name: name, text: strings.TrimSpace(s.src[open+1 : end]), end: s.cursor}, true, nil
		}
		s.cursor = nameEnd
		return &segment{kind: segField, name: name, end: s.cursor}, true, nil
	default:
		return nil, false, types.Errorf(types.ErrSyntaxError, "unexpected character %q in property path", c).WithPosition(start)
	}
}

// segments scans the whole path.
func segments(src string) ([]*segment, error) {
	sc := &scanner{src: src}
	var out []*segment
	for {
		seg, ok, err := sc.next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, seg)
	}
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c >= utf8.RuneSelf
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

// closerOf returns the bracket closing open.
func closerOf(open byte) byte {
	switch open {
	case '(':
		return ')'
	case '[':
		return ']'
	case '{':
		return '}'
	}
	return 0
}

// BalancedCapture returns the offset of the bracket closing the one at
// src[start], or -1 when it is never closed. Quoted strings are skipped.
func BalancedCapture(src string, start int) int {
	open := src[start]
	closer := closerOf(open)
	if closer == 0 {
		return -1
	}
	depth := 0
	for i := start; i < len(src); i++ {
		switch c := src[i]; c {
		case '"', '\'':
			end := SkipQuoted(src, i)
			if end < 0 {
				return -1
			}
			i = end
		case open:
			depth++
		case closer:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// SkipQuoted returns the offset of the quote closing the string literal that
// starts at src[start], honouring backslash escapes, or -1.
func SkipQuoted(src string, start int) int {
	quote := src[start]
	for i := start + 1; i < len(src); i++ {
		switch src[i] {
		case '\\':
			i++
		case quote:
			return i
		}
	}
	return -1
}

// ParseParameterList splits a raw argument list at top-level commas. Commas
// nested in brackets or quotes do not split. Blank text yields no arguments.
func ParseParameterList(text string) ([]string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	var (
		out   []string
		start int
	)
	for i := 0; i < len(text); i++ {
		switch c := text[i]; c {
		case '"', '\'':
			end := SkipQuoted(text, i)
			if end < 0 {
				return nil, types.NewError(types.ErrStringNotClosed, "unterminated string literal").WithPosition(i)
			}
			i = end
		case '(', '[', '{':
			end := BalancedCapture(text, i)
			if end < 0 {
				return nil, types.Errorf(types.ErrUnterminatedBracket, "unterminated '%c'", c).WithPosition(i)
			}
			i = end
		case ',':
			out = append(out, strings.TrimSpace(text[start:i]))
			start = i + 1
		}
	}
	return append(out, strings.TrimSpace(text[start:])), nil
}
