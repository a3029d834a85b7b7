package property

import (
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandrolain/govel/pkg/resolve"
	"github.com/sandrolain/govel/pkg/scope"
	"github.com/sandrolain/govel/pkg/types"
)

type address struct {
	City string
	Zip  int
}

type person struct {
	Name      string
	Age       int
	Tags      [3]string
	Addresses []address
	Home      *address
	Meta      map[string]any
	nickname  string
}

func (p *person) Greet(greeting string) string { return greeting + ", " + p.Name }
func (p person) Initial() string               { return p.Name[:1] }

func newPerson() *person {
	return &person{
		Name:      "Bob",
		Age:       40,
		Tags:      [3]string{"x", "y", "z"},
		Addresses: []address{{City: "Rome", Zip: 100}, {City: "Oslo", Zip: 200}},
		Meta:      map[string]any{"score": 7},
		nickname:  "bobby",
	}
}

func span(s string) types.Span { return types.SpanOf(s) }

func TestGetScenario(t *testing.T) {
	e := New()
	root := map[string]any{"name": "Bob", "tags": []any{"a", "b", "c"}}

	got, err := e.Get(span("tags[1]"), root, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "b", got)

	got, err = e.Get(span("tags.size()"), root, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, got)

	got, err = e.Get(span("tags.size()"), newPerson(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, got)
}

func TestGetPaths(t *testing.T) {
	e := New()
	p := newPerson()

	tests := []struct {
		name string
		path string
		want any
	}{
		{"field", "name", "Bob"},
		{"nested index", "addresses[1].city", "Oslo"},
		{"index expression", "addresses[0].zip", 100},
		{"map entry", "meta.score", 7},
		{"map by index", "meta['score']", 7},
		{"method with arg", "greet('Hi')", "Hi, Bob"},
		{"chained extension", "name.toUpperCase()", "BOB"},
		{"value receiver", "initial()", "B"},
		{"unexported field", "nickname", "bobby"},
		{"string index", "name[1]", 'o'},
		{"missing map key", "meta.none", nil},
		{"whitespace", " addresses [ 1 ] . city ", "Oslo"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.Get(span(tt.path), p, nil, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGetSpanOfLargerBuffer(t *testing.T) {
	e := New()
	buf := "x = addresses[0].city + 1"
	got, err := e.Get(types.NewSpan(buf, 4, 21), newPerson(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "Rome", got)
}

func TestGetErrors(t *testing.T) {
	e := New()
	p := newPerson()

	tests := []struct {
		name string
		path string
		code types.ErrorCode
	}{
		{"out of bounds", "addresses[2]", types.ErrIndexOutOfBounds},
		{"negative index", "addresses[-1]", types.ErrIndexOutOfBounds},
		{"unterminated bracket", "addresses[0", types.ErrUnterminatedBracket},
		{"unterminated call", "greet('x'", types.ErrUnterminatedBracket},
		{"null dereference", "home.city", types.ErrNullDereference},
		{"unresolved", "salary", types.ErrUnresolvedMember},
		{"unsupported indexing", "age[0]", types.ErrUnsupportedContainerOp},
		{"no overload", "greet(1, 2)", types.ErrMissingOverload},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Get(span(tt.path), p, nil, nil)
			require.Error(t, err)
			assert.Equal(t, tt.code, types.CodeOf(err), err.Error())

			var te *types.Error
			require.True(t, errors.As(err, &te))
			assert.Equal(t, tt.path, te.Property)
		})
	}
}

func TestIndexConversion(t *testing.T) {
	e := New()
	tests := []struct {
		name    string
		index   any
		want    any
		code    types.ErrorCode
		message string
	}{
		{"int", 1, "b", "", ""},
		{"integral float", 2.0, "c", "", ""},
		{"uint", uint8(0), "a", "", ""},
		{"fractional float", 1.7, nil, types.ErrConversionFailure, "index 1.7 is not an integer"},
		{"huge float", 1e30, nil, types.ErrIndexOutOfBounds, "index 1e+30 out of bounds for length 3"},
		{"huge uint", uint64(1 << 63), nil, types.ErrIndexOutOfBounds, "index 9223372036854775808 out of bounds"},
		{"negative", -1, nil, types.ErrIndexOutOfBounds, "index -1 out of bounds"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vars := scope.New(map[string]any{"i": tt.index, "tags": []string{"a", "b", "c"}})
			got, err := e.Get(span("tags[i]"), nil, nil, vars)
			if tt.code == "" {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.code, types.CodeOf(err))
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

var errCounterClosed = types.NewError(types.ErrInvocationFailed, "counter closed")

type counter struct{}

func (counter) Next() (int, error) { return 0, errCounterClosed }

func TestHostErrorNotModified(t *testing.T) {
	e := New()
	root := map[string]any{"c": counter{}}

	_, err := e.Get(span("c.next()"), root, nil, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.Code(types.ErrInvocationFailed)))

	var te *types.Error
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "c.next()", te.Property)
	assert.Equal(t, reflect.TypeOf(counter{}), te.Owner)

	assert.Empty(t, errCounterClosed.Property)
	assert.Nil(t, errCounterClosed.Owner)
}

// textExpr evaluates to its own source text.
type textExpr string

func (x textExpr) GetValue(any, any, types.VariableScope) (any, error) { return string(x), nil }
func (x textExpr) KnownEgressType() reflect.Type                       { return reflect.TypeOf("") }
func (x textExpr) Source() string                                      { return string(x) }

func TestIndexAndArgumentListWithSameText(t *testing.T) {
	compiler := types.CompilerFunc(func(text string) (types.Executable, error) {
		return textExpr(text), nil
	})
	identity := func(v any) any { return v }
	tests := []struct {
		name  string
		order []string
	}{
		{"index first", []string{"list[0]", "f([0])"}},
		{"call first", []string{"f([0])", "list[0]"}},
	}
	want := map[string]any{"list[0]": "a", "f([0])": "[0]"}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := New(WithCompiler(compiler))
			vars := scope.New(map[string]any{"list": []string{"a", "b"}, "f": identity})
			for _, path := range tt.order {
				got, err := e.Get(span(path), nil, nil, vars)
				require.NoError(t, err, path)
				assert.Equal(t, want[path], got, path)
			}
			assert.Equal(t, 2, e.SubexpressionCache().Len())
		})
	}
}

type dial struct{}

func (dial) Turn(n int) string      { return "int" }
func (dial) TurnF(f float64) string { return "float" }

func TestChainOverloadPerArgumentTypes(t *testing.T) {
	r := resolve.New()
	require.NoError(t, r.RegisterExtension(reflect.TypeOf(dial{}), "turn", dial.TurnF))
	e := New(WithResolver(r))
	chain, err := e.Compile(span("turn(x)"))
	require.NoError(t, err)

	tests := []struct {
		name string
		x    any
		want string
	}{
		{"int", 1, "int"},
		{"float", 1.5, "float"},
		{"int again", 2, "int"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vars := scope.New(map[string]any{"x": tt.x})
			got, err := chain.Get(dial{}, nil, vars)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			got, err = e.Get(span("turn(x)"), dial{}, nil, vars)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIndexBoundsAlwaysOutOfBounds(t *testing.T) {
	e := New()
	list := []int{1, 2, 3}
	for i := 3; i < 10; i++ {
		vars := scope.New(map[string]any{"i": i, "list": list})
		_, err := e.Get(span("list[i]"), nil, nil, vars)
		assert.True(t, errors.Is(err, types.Code(types.ErrIndexOutOfBounds)), "i=%d: %v", i, err)
	}
}

func TestSetRoundTrip(t *testing.T) {
	e := New()
	p := newPerson()

	tests := []struct {
		path  string
		value any
		want  any
	}{
		{"name", "Alice", "Alice"},
		{"name", 42, "42"},
		{"age", "41", 41},
		{"addresses[0].city", "Paris", "Paris"},
		{"addresses[1]", map[string]any{"City": "Bern"}, nil},
		{"tags[2]", 5, "5"},
		{"meta.score", 9, 9},
		{"meta['new']", true, true},
		{"nickname", "bb", "bb"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			err := e.Set(span(tt.path), p, nil, nil, tt.value)
			if tt.want == nil {
				assert.Equal(t, types.ErrConversionFailure, types.CodeOf(err))
				return
			}
			require.NoError(t, err)
			got, err := e.Get(span(tt.path), p, nil, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSetErrors(t *testing.T) {
	e := New()
	p := newPerson()

	err := e.Set(span("age"), p, nil, nil, "forty")
	assert.Equal(t, types.ErrConversionFailure, types.CodeOf(err))

	err = e.Set(span("name[0]"), p, nil, nil, "x")
	assert.Equal(t, types.ErrUnsupportedContainerOp, types.CodeOf(err))

	err = e.Set(span("home.city"), p, nil, nil, "x")
	assert.Equal(t, types.ErrNullDereference, types.CodeOf(err))

	err = e.Set(span("addresses[5].city"), p, nil, nil, "x")
	assert.Equal(t, types.ErrIndexOutOfBounds, types.CodeOf(err))
}

func TestVariableShadowing(t *testing.T) {
	e := New()
	p := newPerson()
	vars := scope.New(map[string]any{"name": "Local", "double": func(n int) int { return n * 2 }})

	got, err := e.Get(span("name"), p, nil, vars)
	require.NoError(t, err)
	assert.Equal(t, "Local", got)

	got, err = e.Get(span("double(age)"), p, nil, vars)
	require.NoError(t, err)
	assert.Equal(t, 80, got)

	require.NoError(t, e.Set(span("name"), p, nil, vars, "Changed"))
	v, _ := vars.Get("name")
	assert.Equal(t, "Changed", v)
	assert.Equal(t, "Bob", p.Name)
}

func TestThisToken(t *testing.T) {
	e := New()
	self := newPerson()

	got, err := e.Get(span("this.name"), map[string]any{}, self, nil)
	require.NoError(t, err)
	assert.Equal(t, "Bob", got)

	got, err = e.Get(span("this"), nil, self, nil)
	require.NoError(t, err)
	assert.Same(t, self, got)
}

func TestTypeValueOwner(t *testing.T) {
	e := New()
	typ := reflect.TypeOf(person{})

	got, err := e.Get(span("name()"), typ, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "person", got)

	got, err = e.Get(span("initial(p)"), typ, nil, scope.New(map[string]any{"p": person{Name: "Zed"}}))
	require.NoError(t, err)
	assert.Equal(t, "Z", got)
}

func TestCompiledChainMatchesInterpreted(t *testing.T) {
	e := New()
	paths := []string{"name", "addresses[1].city", "greet('Yo')", "meta.score", "tags.size()"}
	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			chain, err := e.Compile(span(path))
			require.NoError(t, err)
			for i := 0; i < 3; i++ {
				p := newPerson()
				want, err := e.Get(span(path), p, nil, nil)
				require.NoError(t, err)
				got, err := chain.Get(p, nil, nil)
				require.NoError(t, err)
				assert.Equal(t, want, got)
			}
		})
	}
}

func TestChainPolymorphicOwner(t *testing.T) {
	e := New()
	chain, err := e.Compile(span("city"))
	require.NoError(t, err)

	got, err := chain.Get(&address{City: "Rome"}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "Rome", got)

	got, err = chain.Get(map[string]string{"city": "Oslo"}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "Oslo", got)

	require.NoError(t, chain.Set(map[string]string{}, nil, nil, "x"))
}

func TestCacheTransparency(t *testing.T) {
	r := resolve.New()
	e := New(WithResolver(r))
	p := newPerson()
	before, err := e.Get(span("addresses[0].city.toLowerCase()"), p, nil, nil)
	require.NoError(t, err)
	r.Clear()
	e.SubexpressionCache().Clear()
	after, err := e.Get(span("addresses[0].city.toLowerCase()"), p, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestConcurrentChain(t *testing.T) {
	e := New()
	chain, err := e.Compile(span("addresses[1].city.toUpperCase()"))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := chain.Get(newPerson(), nil, nil)
			assert.NoError(t, err)
			assert.Equal(t, "OSLO", got)
		}()
	}
	wg.Wait()
}

func TestParseParameterList(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"  ", nil},
		{"a", []string{"a"}},
		{"a, b", []string{"a", "b"}},
		{"f(1, 2), [3, 4], 'x,y'", []string{"f(1, 2)", "[3, 4]", "'x,y'"}},
		{`"a\",b", c`, []string{`"a\",b"`, "c"}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseParameterList(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseParameterList("f(1, 2")
	assert.Equal(t, types.ErrUnterminatedBracket, types.CodeOf(err))
}

func TestBalancedCapture(t *testing.T) {
	src := "[a[1], ']', {b}]"
	assert.Equal(t, len(src)-1, BalancedCapture(src, 0))
	assert.Equal(t, -1, BalancedCapture("(a(b)", 0))
	assert.Equal(t, strings.Index(src, "}"), BalancedCapture(src, strings.Index(src, "{")))
}

func TestParseLiteral(t *testing.T) {
	tests := []struct {
		in   string
		want any
		ok   bool
	}{
		{"42", 42, true},
		{"-3", -3, true},
		{"2.5", 2.5, true},
		{"'it\\'s'", "it's", true},
		{`"a\nb"`, "a\nb", true},
		{"true", true, true},
		{"null", nil, true},
		{"name", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok, err := ParseLiteral(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
