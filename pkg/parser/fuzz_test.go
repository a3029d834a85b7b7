package parser

import (
	"testing"

	"github.com/sandrolain/govel/pkg/ast"
)

func FuzzCompile(f *testing.F) {
	seeds := []string{
		`name`,
		`items[0].price * items[0].qty`,
		`total += price; return total`,
		`x = [1, 2, [3, 4]]`,
		`{'a': 1, 'b': {'c': 2}}`,
		`greet('x').length()`,
		`-1 + 2 * 3`,
		``,
		`(`,
		`a[`,
		`'unterminated`,
		`{'a' 1}`,
	}
	for _, s := range seeds {
		f.Add(s)
	}
	c := New()
	f.Fuzz(func(t *testing.T, input string) {
		_, _ = c.CompileExpression(input, nil)
	})
}

func FuzzParseCollection(f *testing.F) {
	seeds := []string{
		`1, 2, 3`,
		`'a': 1, 'b': [2, 3]`,
		`{}, [], {'x': {}}`,
		`1,`,
		`'a': `,
		`[1, 2`,
	}
	for _, s := range seeds {
		f.Add(s)
	}
	c := New()
	f.Fuzz(func(t *testing.T, input string) {
		_, _ = c.ParseCollection(input, ast.CollectionList, nil, nil)
		_, _ = c.ParseCollection(input, ast.CollectionMap, nil, nil)
	})
}
