package cache

import (
	"reflect"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandrolain/govel/pkg/types"
)

type widget struct {
	Name string
}

var (
	widgetType = reflect.TypeOf(widget{})
	stringType = reflect.TypeOf("")
)

func accessorCaches() map[string]func() AccessorCache {
	return map[string]func() AccessorCache{
		"sync":  func() AccessorCache { return NewSyncAccessorCache() },
		"local": func() AccessorCache { return NewLocalAccessorCache() },
	}
}

func TestAccessorCacheTables(t *testing.T) {
	for name, newCache := range accessorCaches() {
		t.Run(name, func(t *testing.T) {
			c := newCache()
			sig := NewSignature("Name", "")
			field := types.Member{Kind: types.MemberField, Name: "Name", Index: []int{0}, Type: stringType}

			_, ok := c.Get(TableRead, widgetType, sig)
			assert.False(t, ok)

			c.Put(TableRead, widgetType, sig, field)
			got, ok := c.Get(TableRead, widgetType, sig)
			require.True(t, ok)
			assert.Equal(t, field, got)

			// Tables are independent.
			_, ok = c.Get(TableWrite, widgetType, sig)
			assert.False(t, ok)

			// Unresolved results are cached too.
			missing := NewSignature("Nope", "")
			c.Put(TableWrite, widgetType, missing, types.Unresolved)
			got, ok = c.Get(TableWrite, widgetType, missing)
			require.True(t, ok)
			assert.False(t, got.Resolved())
		})
	}
}

func TestAccessorCacheMethodSignatures(t *testing.T) {
	for name, newCache := range accessorCaches() {
		t.Run(name, func(t *testing.T) {
			c := newCache()
			one := &types.Method{Name: "get", Params: []reflect.Type{reflect.TypeOf(0)}}
			two := &types.Method{Name: "get", Params: []reflect.Type{stringType}}

			c.PutMethod(widgetType, NewSignature("get", "0"), one)
			c.PutMethod(widgetType, NewSignature("get", "'k'"), two)

			got, ok := c.GetMethod(widgetType, NewSignature("get", "0"))
			require.True(t, ok)
			assert.Same(t, one, got)
			got, ok = c.GetMethod(widgetType, NewSignature("get", "'k'"))
			require.True(t, ok)
			assert.Same(t, two, got)

			_, ok = c.GetMethod(widgetType, Signature{Name: "get", Args: "0", Static: true})
			assert.False(t, ok)
		})
	}
}

func TestAccessorCacheReportAndClear(t *testing.T) {
	for name, newCache := range accessorCaches() {
		t.Run(name, func(t *testing.T) {
			c := newCache()
			c.Put(TableRead, widgetType, NewSignature("Name", ""), types.Unresolved)
			c.Put(TableRead, widgetType, NewSignature("Size", ""), types.Unresolved)
			c.Put(TableRead, stringType, NewSignature("length", ""), types.Unresolved)
			c.PutMethod(stringType, NewSignature("trim", ""), &types.Method{Name: "trim"})

			assert.Equal(t, []Occupancy{
				{Table: TableRead, Owner: widgetType, Entries: 2},
				{Table: TableRead, Owner: stringType, Entries: 1},
				{Table: TableMethod, Owner: stringType, Entries: 1},
			}, c.Report())

			c.Clear()
			assert.Empty(t, c.Report())
		})
	}
}

type countingObserver struct {
	mu     sync.Mutex
	hits   map[Table]int
	misses map[Table]int
}

func (o *countingObserver) Hit(t Table) {
	o.mu.Lock()
	o.hits[t]++
	o.mu.Unlock()
}

func (o *countingObserver) Miss(t Table) {
	o.mu.Lock()
	o.misses[t]++
	o.mu.Unlock()
}

func TestObservedCache(t *testing.T) {
	obs := &countingObserver{hits: map[Table]int{}, misses: map[Table]int{}}
	c := Observed(NewLocalAccessorCache(), obs)
	sig := NewSignature("Name", "")

	c.Get(TableRead, widgetType, sig)
	c.Put(TableRead, widgetType, sig, types.Unresolved)
	c.Get(TableRead, widgetType, sig)
	c.GetMethod(widgetType, sig)

	assert.Equal(t, map[Table]int{TableRead: 1}, obs.hits)
	assert.Equal(t, map[Table]int{TableRead: 1, TableMethod: 1}, obs.misses)

	plain := NewLocalAccessorCache()
	assert.Same(t, plain, Observed(plain, nil))
}

func TestSyncAccessorCacheConcurrent(t *testing.T) {
	c := NewSyncAccessorCache()
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				sig := NewSignature("Name", "")
				if _, ok := c.Get(TableRead, widgetType, sig); !ok {
					c.Put(TableRead, widgetType, sig, types.Member{Kind: types.MemberField, Name: "Name"})
				}
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, []Occupancy{{Table: TableRead, Owner: widgetType, Entries: 1}}, c.Report())
}

func TestTableString(t *testing.T) {
	assert.Equal(t, "read", TableRead.String())
	assert.Equal(t, "write", TableWrite.String())
	assert.Equal(t, "method", TableMethod.String())
	assert.Equal(t, "unknown", Table(9).String())
}
