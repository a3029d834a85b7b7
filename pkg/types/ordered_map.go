package types

import (
	"bytes"
	"fmt"
	"strconv"

	jsoniter "github.com/json-iterator/go"
)

// Mapping is a keyed container the walker can index and write into.
// Go maps are handled through reflection; Mapping covers host types that
// keep their own storage, such as OrderedMap.
type Mapping interface {
	Get(key any) (any, bool)
	Put(key, value any)
	Len() int
	Keys() []any
}

// OrderedMap is a map that remembers insertion order. Map literals
// evaluate to a fresh OrderedMap.
type OrderedMap struct {
	keys   []any
	values map[any]any
}

// NewOrderedMap creates an empty map with room for n entries.
func NewOrderedMap(n int) *OrderedMap {
	return &OrderedMap{
		keys:   make([]any, 0, n),
		values: make(map[any]any, n),
	}
}

// Get retrieves a value by key.
func (o *OrderedMap) Get(key any) (any, bool) {
	v, ok := o.values[key]
	return v, ok
}

// Put inserts or replaces a value. Replacing keeps the original position.
func (o *OrderedMap) Put(key, value any) {
	if _, ok := o.values[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.values[key] = value
}

// Len returns the number of entries.
func (o *OrderedMap) Len() int {
	return len(o.keys)
}

// Keys returns the keys in insertion order.
func (o *OrderedMap) Keys() []any {
	out := make([]any, len(o.keys))
	copy(out, o.keys)
	return out
}

// ToMap copies the entries into a plain map keyed by the string form of each key.
func (o *OrderedMap) ToMap() map[string]any {
	out := make(map[string]any, len(o.keys))
	for _, k := range o.keys {
		out[keyString(k)] = o.values[k]
	}
	return out
}

// MarshalJSON preserves key order during marshaling.
func (o *OrderedMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(strconv.Quote(keyString(key)))
		buf.WriteByte(':')
		valueBytes, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(o.values[key])
		if err != nil {
			return nil, err
		}
		buf.Write(valueBytes)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func keyString(k any) string {
	if s, ok := k.(string); ok {
		return s
	}
	return fmt.Sprint(k)
}
