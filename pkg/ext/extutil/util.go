// Package extutil provides shared helpers for the ext sub-packages.
package extutil

import (
	"fmt"
	"reflect"
)

// Registrar accepts extension methods keyed by receiver kind.
// *resolve.Resolver and *govel.Engine implement it.
type Registrar interface {
	RegisterKindExtension(kind reflect.Kind, name string, fn any) error
}

// Def describes one extension method installed on every kind in Kinds.
type Def struct {
	Name  string
	Kinds []reflect.Kind
	Fn    any
}

// Kind sets used by the definitions.
var (
	StringKinds = []reflect.Kind{reflect.String}
	SeqKinds    = []reflect.Kind{reflect.Slice, reflect.Array}
	NumberKinds = []reflect.Kind{
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64,
	}
)

// Register installs defs on r, stopping at the first failure.
func Register(r Registrar, defs []Def) error {
	for _, d := range defs {
		for _, k := range d.Kinds {
			if err := r.RegisterKindExtension(k, d.Name, d.Fn); err != nil {
				return fmt.Errorf("registering %s on %s: %w", d.Name, k, err)
			}
		}
	}
	return nil
}

// Names returns the method names in defs, in order.
func Names(defs []Def) []string {
	out := make([]string, len(defs))
	for i, d := range defs {
		out[i] = d.Name
	}
	return out
}

// AsSlice copies a slice or array receiver into []any. Other values yield nil.
func AsSlice(recv any) []any {
	v := reflect.ValueOf(recv)
	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		return nil
	}
	out := make([]any, v.Len())
	for i := range out {
		out[i] = v.Index(i).Interface()
	}
	return out
}

// ToFloat reports the numeric value of v.
func ToFloat(v any) (float64, error) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(rv.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	}
	return 0, fmt.Errorf("expected a number, got %T", v)
}
