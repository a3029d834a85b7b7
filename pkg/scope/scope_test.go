package scope

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	s := New(map[string]any{"a": 1, "b": "x"})

	v, ok := s.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)
	assert.True(t, s.IsResolvable("b"))
	assert.False(t, s.IsResolvable("c"))
	assert.Nil(t, s.Parent())

	empty := New(nil)
	assert.Empty(t, empty.Names())
}

func TestChildLookup(t *testing.T) {
	root := New(map[string]any{"a": 1, "shadow": "outer"})
	child := root.NewChild()
	child.Declare("shadow", "inner")
	child.Declare("local", true)

	assert.Same(t, root, child.Parent())

	v, ok := child.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	v, _ = child.Get("shadow")
	assert.Equal(t, "inner", v)
	v, _ = root.Get("shadow")
	assert.Equal(t, "outer", v)

	assert.False(t, root.IsResolvable("local"))
	assert.Equal(t, []string{"a", "local", "shadow"}, child.Names())
	assert.Equal(t, map[string]any{"a": 1, "local": true, "shadow": "inner"}, child.Snapshot())
}

func TestResolveWritesThrough(t *testing.T) {
	root := New(map[string]any{"total": 10})
	child := root.NewChild()

	b := child.Resolve("total")
	b.Set(15)
	v, _ := root.Get("total")
	assert.Equal(t, 15, v)
	assert.Nil(t, b.Type())

	fresh := child.Resolve("created")
	assert.Nil(t, fresh.Get())
	assert.True(t, child.IsResolvable("created"))
	assert.False(t, root.IsResolvable("created"))
}

func TestDeclareTyped(t *testing.T) {
	s := New(nil)
	v := s.DeclareTyped("n", reflect.TypeOf(0), 3)
	assert.Equal(t, "n", v.Name())
	assert.Equal(t, reflect.TypeOf(0), v.Type())

	b := s.Resolve("n")
	assert.Equal(t, reflect.TypeOf(0), b.Type())
	assert.Equal(t, 3, b.Get())
}

func TestString(t *testing.T) {
	s := New(map[string]any{"a": 1}).NewChild()
	s.Declare("b", 2)
	s.Declare("c", 3)
	assert.Equal(t, "Scope{depth=1, vars=2}", s.String())
}
