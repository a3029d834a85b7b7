package resolve

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/sandrolain/govel/pkg/mathops"
	"github.com/sandrolain/govel/pkg/types"
)

// registerBuiltins installs the extension methods every introspector knows:
// collection helpers on slices, arrays and maps and the usual string helpers.
func registerBuiltins(ri *ReflectIntrospector) {
	for _, k := range []reflect.Kind{reflect.Slice, reflect.Array} {
		must(ri.RegisterKindExtension(k, "size", seqLen))
		must(ri.RegisterKindExtension(k, "length", seqLen))
		must(ri.RegisterKindExtension(k, "isEmpty", seqIsEmpty))
		must(ri.RegisterKindExtension(k, "get", seqGet))
		must(ri.RegisterKindExtension(k, "contains", seqContains))
		must(ri.RegisterKindExtension(k, "indexOf", seqIndexOf))
	}

	must(ri.RegisterKindExtension(reflect.Map, "size", seqLen))
	must(ri.RegisterKindExtension(reflect.Map, "isEmpty", seqIsEmpty))
	must(ri.RegisterKindExtension(reflect.Map, "get", mapGet))
	must(ri.RegisterKindExtension(reflect.Map, "containsKey", mapContainsKey))
	must(ri.RegisterKindExtension(reflect.Map, "keys", mapKeys))

	str := reflect.String
	must(ri.RegisterKindExtension(str, "size", strLen))
	must(ri.RegisterKindExtension(str, "length", strLen))
	must(ri.RegisterKindExtension(str, "isEmpty", func(s string) bool { return s == "" }))
	must(ri.RegisterKindExtension(str, "contains", strings.Contains))
	must(ri.RegisterKindExtension(str, "substring", substringFrom))
	must(ri.RegisterKindExtension(str, "substring", substring))
	must(ri.RegisterKindExtension(str, "toUpperCase", strings.ToUpper))
	must(ri.RegisterKindExtension(str, "toLowerCase", strings.ToLower))
	must(ri.RegisterKindExtension(str, "trim", strings.TrimSpace))
	must(ri.RegisterKindExtension(str, "startsWith", strings.HasPrefix))
	must(ri.RegisterKindExtension(str, "endsWith", strings.HasSuffix))
	must(ri.RegisterKindExtension(str, "indexOf", strIndexOf))
	must(ri.RegisterKindExtension(str, "charAt", charAt))
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

func seqLen(recv any) int {
	return reflect.ValueOf(recv).Len()
}

func seqIsEmpty(recv any) bool {
	return reflect.ValueOf(recv).Len() == 0
}

func seqGet(recv any, i int) (any, error) {
	v := reflect.ValueOf(recv)
	if i < 0 || i >= v.Len() {
		return nil, types.Errorf(types.ErrIndexOutOfBounds, "index %d out of bounds for length %d", i, v.Len())
	}
	return v.Index(i).Interface(), nil
}

func seqContains(recv any, x any) bool {
	return seqIndexOf(recv, x) >= 0
}

func seqIndexOf(recv any, x any) int {
	v := reflect.ValueOf(recv)
	for i := 0; i < v.Len(); i++ {
		if mathops.Equal(v.Index(i).Interface(), x) {
			return i
		}
	}
	return -1
}

// mapKey converts k to the key type of m, reporting false when it cannot.
func mapKey(m reflect.Value, k any) (reflect.Value, bool) {
	kt := m.Type().Key()
	if k == nil {
		return reflect.Value{}, false
	}
	kv := reflect.ValueOf(k)
	if kv.Type().AssignableTo(kt) {
		return kv, true
	}
	if kv.Type().ConvertibleTo(kt) && kv.Kind() == kt.Kind() {
		return kv.Convert(kt), true
	}
	return reflect.Value{}, false
}

func mapGet(recv any, k any) any {
	m := reflect.ValueOf(recv)
	kv, ok := mapKey(m, k)
	if !ok {
		return nil
	}
	v := m.MapIndex(kv)
	if !v.IsValid() {
		return nil
	}
	return v.Interface()
}

func mapContainsKey(recv any, k any) bool {
	m := reflect.ValueOf(recv)
	kv, ok := mapKey(m, k)
	return ok && m.MapIndex(kv).IsValid()
}

// mapKeys returns the keys sorted by their string form so results are stable.
func mapKeys(recv any) []any {
	m := reflect.ValueOf(recv)
	keys := make([]any, 0, m.Len())
	for _, k := range m.MapKeys() {
		keys = append(keys, k.Interface())
	}
	sort.SliceStable(keys, func(i, j int) bool {
		return keyString(keys[i]) < keyString(keys[j])
	})
	return keys
}

func keyString(k any) string {
	if s, ok := k.(string); ok {
		return s
	}
	return fmt.Sprint(k)
}

func strLen(s string) int {
	return utf8.RuneCountInString(s)
}

func strIndexOf(s, sub string) int {
	i := strings.Index(s, sub)
	if i < 0 {
		return -1
	}
	return utf8.RuneCountInString(s[:i])
}

// substring and charAt index by rune, not byte.
func substringFrom(s string, start int) (string, error) {
	return substring(s, start, utf8.RuneCountInString(s))
}

func substring(s string, start, end int) (string, error) {
	r := []rune(s)
	if start < 0 || end > len(r) || start > end {
		return "", types.Errorf(types.ErrIndexOutOfBounds, "substring [%d:%d] out of bounds for length %d", start, end, len(r))
	}
	return string(r[start:end]), nil
}

func charAt(s string, i int) (rune, error) {
	r := []rune(s)
	if i < 0 || i >= len(r) {
		return 0, types.Errorf(types.ErrIndexOutOfBounds, "index %d out of bounds for length %d", i, len(r))
	}
	return r[i], nil
}
