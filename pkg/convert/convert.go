// Package convert implements the type conversion registry used to coerce
// values into declared field, parameter and element types.
//
// Scalar conversions are delegated to spf13/cast; containers and pointers are
// converted element by element with reflection.
package convert

import (
	"fmt"
	"reflect"

	"github.com/spf13/cast"

	"github.com/sandrolain/govel/pkg/types"
)

var (
	stringerType = reflect.TypeOf((*fmt.Stringer)(nil)).Elem()
	mappingType  = reflect.TypeOf((*types.Mapping)(nil)).Elem()
	anyType      = reflect.TypeOf((*any)(nil)).Elem()
)

// Converter is the default TypeConverter. The zero value is ready to use.
type Converter struct{}

// New returns a Converter.
func New() *Converter {
	return &Converter{}
}

// Default is the process-wide converter.
var Default types.TypeConverter = New()

// CanConvert reports whether values of type from can be coerced to type to.
// A nil from stands for an untyped nil and converts to the zero value.
// Conversions that depend on content, such as parsing a string as a number,
// are reported as possible and may still fail in Convert.
func (c *Converter) CanConvert(from, to reflect.Type) bool {
	if to == nil {
		return false
	}
	if from == nil || from.AssignableTo(to) {
		return true
	}
	if to.Kind() == reflect.Interface {
		return from.Implements(to)
	}
	if from.Kind() == reflect.Interface {
		// The dynamic type is only known at conversion time.
		return true
	}
	if to.Kind() == reflect.Map && from.Implements(mappingType) {
		return c.CanConvert(anyType, to.Key()) && c.CanConvert(anyType, to.Elem())
	}
	if from.Kind() == reflect.Ptr && to.Kind() != reflect.Ptr {
		if to.Kind() == reflect.String && from.Implements(stringerType) {
			return true
		}
		return c.CanConvert(from.Elem(), to)
	}
	if isScalar(to.Kind()) {
		if isScalar(from.Kind()) {
			return true
		}
		return to.Kind() == reflect.String && from.Implements(stringerType)
	}
	switch to.Kind() {
	case reflect.Slice, reflect.Array:
		switch from.Kind() {
		case reflect.Slice, reflect.Array:
			return c.CanConvert(from.Elem(), to.Elem())
		}
	case reflect.Map:
		if from.Kind() == reflect.Map {
			return c.CanConvert(from.Key(), to.Key()) && c.CanConvert(from.Elem(), to.Elem())
		}
	case reflect.Ptr:
		if from.Kind() == reflect.Ptr {
			return c.CanConvert(from.Elem(), to.Elem())
		}
		return c.CanConvert(from, to.Elem())
	}
	return from.ConvertibleTo(to)
}

// Convert coerces value to type to, failing with ErrConversionFailure.
func (c *Converter) Convert(value any, to reflect.Type) (any, error) {
	if to == nil {
		return value, nil
	}
	if value == nil {
		return reflect.Zero(to).Interface(), nil
	}
	rv := reflect.ValueOf(value)
	out, err := c.convertValue(rv, to)
	if err != nil {
		return nil, types.Errorf(types.ErrConversionFailure, "cannot convert %T to %s", value, to).WithCause(err)
	}
	return out.Interface(), nil
}

func (c *Converter) convertValue(rv reflect.Value, to reflect.Type) (reflect.Value, error) {
	if !rv.IsValid() {
		return reflect.Zero(to), nil
	}
	if rv.Type().AssignableTo(to) {
		if to.Kind() == reflect.Interface {
			out := reflect.New(to).Elem()
			out.Set(rv)
			return out, nil
		}
		return rv, nil
	}
	if rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return reflect.Zero(to), nil
		}
		return c.convertValue(rv.Elem(), to)
	}

	switch to.Kind() {
	case reflect.String:
		s, err := cast.ToStringE(rv.Interface())
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(s).Convert(to), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := cast.ToInt64E(rv.Interface())
		if err != nil {
			return reflect.Value{}, err
		}
		out := reflect.New(to).Elem()
		if out.OverflowInt(n) {
			return reflect.Value{}, fmt.Errorf("%d overflows %s", n, to)
		}
		out.SetInt(n)
		return out, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		n, err := cast.ToUint64E(rv.Interface())
		if err != nil {
			return reflect.Value{}, err
		}
		out := reflect.New(to).Elem()
		if out.OverflowUint(n) {
			return reflect.Value{}, fmt.Errorf("%d overflows %s", n, to)
		}
		out.SetUint(n)
		return out, nil
	case reflect.Float32, reflect.Float64:
		f, err := cast.ToFloat64E(rv.Interface())
		if err != nil {
			return reflect.Value{}, err
		}
		out := reflect.New(to).Elem()
		out.SetFloat(f)
		return out, nil
	case reflect.Bool:
		b, err := cast.ToBoolE(rv.Interface())
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(b).Convert(to), nil
	case reflect.Slice:
		return c.convertSequence(rv, to)
	case reflect.Array:
		return c.convertSequence(rv, to)
	case reflect.Map:
		return c.convertMap(rv, to)
	case reflect.Ptr:
		if rv.Kind() == reflect.Ptr {
			if rv.IsNil() {
				return reflect.Zero(to), nil
			}
			rv = rv.Elem()
		}
		elem, err := c.convertValue(rv, to.Elem())
		if err != nil {
			return reflect.Value{}, err
		}
		p := reflect.New(to.Elem())
		p.Elem().Set(elem)
		return p, nil
	case reflect.Interface:
		if rv.Type().Implements(to) {
			out := reflect.New(to).Elem()
			out.Set(rv)
			return out, nil
		}
	}

	if rv.Kind() == reflect.Ptr && !rv.IsNil() {
		return c.convertValue(rv.Elem(), to)
	}
	if rv.Type().ConvertibleTo(to) {
		return rv.Convert(to), nil
	}
	return reflect.Value{}, fmt.Errorf("no conversion from %s to %s", rv.Type(), to)
}

func (c *Converter) convertSequence(rv reflect.Value, to reflect.Type) (reflect.Value, error) {
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return reflect.Value{}, fmt.Errorf("%s is not a sequence", rv.Type())
	}
	n := rv.Len()
	var out reflect.Value
	if to.Kind() == reflect.Array {
		if n > to.Len() {
			return reflect.Value{}, fmt.Errorf("%d elements do not fit in %s", n, to)
		}
		out = reflect.New(to).Elem()
	} else {
		out = reflect.MakeSlice(to, n, n)
	}
	for i := 0; i < n; i++ {
		elem, err := c.convertValue(rv.Index(i), to.Elem())
		if err != nil {
			return reflect.Value{}, fmt.Errorf("element %d: %w", i, err)
		}
		out.Index(i).Set(elem)
	}
	return out, nil
}

func (c *Converter) convertMap(rv reflect.Value, to reflect.Type) (reflect.Value, error) {
	out := reflect.MakeMap(to)
	put := func(k, v reflect.Value) error {
		ck, err := c.convertValue(k, to.Key())
		if err != nil {
			return fmt.Errorf("key: %w", err)
		}
		cv, err := c.convertValue(v, to.Elem())
		if err != nil {
			return fmt.Errorf("value for key %v: %w", k, err)
		}
		out.SetMapIndex(ck, cv)
		return nil
	}
	if m, ok := rv.Interface().(types.Mapping); ok {
		for _, k := range m.Keys() {
			v, _ := m.Get(k)
			if err := put(reflect.ValueOf(k), reflect.ValueOf(v)); err != nil {
				return reflect.Value{}, err
			}
		}
		return out, nil
	}
	if rv.Kind() != reflect.Map {
		return reflect.Value{}, fmt.Errorf("%s is not a map", rv.Type())
	}
	iter := rv.MapRange()
	for iter.Next() {
		if err := put(iter.Key(), iter.Value()); err != nil {
			return reflect.Value{}, err
		}
	}
	return out, nil
}

func isScalar(k reflect.Kind) bool {
	switch k {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}
