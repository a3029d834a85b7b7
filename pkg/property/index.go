package property

import (
	"math"
	"reflect"

	"github.com/sandrolain/govel/pkg/types"
)

var intType = reflect.TypeOf(0)

// container strips pointers to sequences and returns Mapping implementations
// as they are.
func container(cur reflect.Value) (reflect.Value, types.Mapping, error) {
	if cur.CanInterface() {
		if m, ok := cur.Interface().(types.Mapping); ok {
			return cur, m, nil
		}
	}
	for cur.Kind() == reflect.Ptr {
		if cur.IsNil() {
			return reflect.Value{}, nil, types.NewError(types.ErrNullDereference, "null pointer dereference")
		}
		cur = norm(cur.Elem())
	}
	return cur, nil, nil
}

// index converts idx to a position inside a sequence of the given length.
// Fractional numbers are rejected instead of truncated.
func (e *Engine) index(idx any, length int) (int, error) {
	outOfBounds := func() error {
		return types.Errorf(types.ErrIndexOutOfBounds, "index %v out of bounds for length %d", idx, length)
	}
	switch v := reflect.ValueOf(idx); v.Kind() {
	case reflect.Float32, reflect.Float64:
		f := v.Float()
		if f != math.Trunc(f) {
			return 0, types.Errorf(types.ErrConversionFailure, "index %v is not an integer", idx)
		}
		if f < 0 || f >= float64(length) {
			return 0, outOfBounds()
		}
		return int(f), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		if v.Uint() >= uint64(length) {
			return 0, outOfBounds()
		}
		return int(v.Uint()), nil
	}

	v, err := e.resolver.Coerce(idx, intType)
	if err != nil {
		return 0, err
	}
	i := v.Int()
	if i < 0 || i >= int64(length) {
		return 0, outOfBounds()
	}
	return int(i), nil
}

// getIndexed reads cur[idx].
func (e *Engine) getIndexed(cur reflect.Value, idx any) (reflect.Value, error) {
	cur, mapping, err := container(cur)
	if err != nil {
		return reflect.Value{}, err
	}
	if mapping != nil {
		v, _ := mapping.Get(idx)
		return reflect.ValueOf(v), nil
	}

	switch cur.Kind() {
	case reflect.Map:
		key, err := e.resolver.Coerce(idx, cur.Type().Key())
		if err != nil {
			return reflect.Value{}, err
		}
		return cur.MapIndex(key), nil
	case reflect.Slice, reflect.Array:
		i, err := e.index(idx, cur.Len())
		if err != nil {
			return reflect.Value{}, err
		}
		return cur.Index(i), nil
	case reflect.String:
		runes := []rune(cur.String())
		i, err := e.index(idx, len(runes))
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(runes[i]), nil
	}
	return reflect.Value{}, types.Errorf(types.ErrUnsupportedContainerOp, "unsupported indexing on %s", cur.Type())
}

// setIndexed writes cur[idx] = value, converting value to the element type.
func (e *Engine) setIndexed(cur reflect.Value, idx any, value any) error {
	cur, mapping, err := container(cur)
	if err != nil {
		return err
	}
	if mapping != nil {
		mapping.Put(idx, value)
		return nil
	}

	switch cur.Kind() {
	case reflect.Map:
		if cur.IsNil() {
			return types.NewError(types.ErrNullDereference, "assignment to entry in nil map")
		}
		key, err := e.resolver.Coerce(idx, cur.Type().Key())
		if err != nil {
			return err
		}
		v, err := e.resolver.Coerce(value, cur.Type().Elem())
		if err != nil {
			return err
		}
		cur.SetMapIndex(key, v)
		return nil
	case reflect.Array:
		if !cur.CanAddr() {
			return types.Errorf(types.ErrUnsupportedContainerOp, "cannot assign into a non-addressable %s", cur.Type())
		}
		fallthrough
	case reflect.Slice:
		i, err := e.index(idx, cur.Len())
		if err != nil {
			return err
		}
		elem := cur.Index(i)
		if !elem.CanSet() {
			return types.Errorf(types.ErrUnsupportedContainerOp, "cannot assign into %s", cur.Type())
		}
		v, err := e.resolver.Coerce(value, elem.Type())
		if err != nil {
			return err
		}
		elem.Set(v)
		return nil
	}
	return types.Errorf(types.ErrUnsupportedContainerOp, "unsupported indexed assignment on %s", cur.Type())
}

// mapEntry reads the entry name of a mapping value.
func (e *Engine) mapEntry(cur reflect.Value, name string) (reflect.Value, bool, error) {
	cur, mapping, err := container(cur)
	if err != nil {
		return reflect.Value{}, false, err
	}
	if mapping != nil {
		v, ok := mapping.Get(name)
		return reflect.ValueOf(v), ok, nil
	}
	if cur.Kind() != reflect.Map {
		return reflect.Value{}, false, types.Errorf(types.ErrUnsupportedContainerOp, "%s is not a mapping", cur.Type())
	}
	key, err := e.resolver.Coerce(name, cur.Type().Key())
	if err != nil {
		return reflect.Value{}, false, err
	}
	v := cur.MapIndex(key)
	return v, v.IsValid(), nil
}

func (e *Engine) setMapEntry(cur reflect.Value, name string, value any) error {
	return e.setIndexed(cur, name, value)
}
