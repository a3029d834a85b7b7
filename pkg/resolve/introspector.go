package resolve

import (
	"reflect"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/sandrolain/govel/pkg/types"
)

// TypeIntrospector finds members on host types.
type TypeIntrospector interface {
	// FindField returns the data field matching name.
	FindField(t reflect.Type, name string) (types.Member, bool)
	// FindAccessor returns a zero-arg getter or, when forWrite is set, a
	// one-arg setter matching name or its conventional Get/Is/Set forms.
	FindAccessor(t reflect.Type, name string, forWrite bool) (types.Member, bool)
	// FindMethods returns every callable named name that accepts arity
	// arguments, in a deterministic order.
	FindMethods(t reflect.Type, name string, arity int) []*types.Method
	// FindTypeMethod returns the method expression of name on t.
	FindTypeMethod(t reflect.Type, name string) (types.Member, bool)
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// ReflectIntrospector is the reflection-based TypeIntrospector. Besides the
// native fields and methods of a type it knows extension methods registered
// per type or per kind.
type ReflectIntrospector struct {
	mu        sync.RWMutex
	byType    map[reflect.Type]map[string][]*types.Method
	byKind    map[reflect.Kind]map[string][]*types.Method
	tagLookup []string
}

// NewReflectIntrospector creates an introspector with the built-in
// extension methods registered.
func NewReflectIntrospector() *ReflectIntrospector {
	ri := &ReflectIntrospector{
		byType:    make(map[reflect.Type]map[string][]*types.Method),
		byKind:    make(map[reflect.Kind]map[string][]*types.Method),
		tagLookup: []string{"govel", "json"},
	}
	registerBuiltins(ri)
	return ri
}

// RegisterExtension adds fn as a method named name on owner.
// fn takes the receiver as its first parameter and returns one value,
// optionally followed by an error.
func (ri *ReflectIntrospector) RegisterExtension(owner reflect.Type, name string, fn any) error {
	m, err := newExtension(name, fn)
	if err != nil {
		return err
	}
	ri.mu.Lock()
	defer ri.mu.Unlock()
	if ri.byType[owner] == nil {
		ri.byType[owner] = make(map[string][]*types.Method)
	}
	ri.byType[owner][name] = append(ri.byType[owner][name], m)
	return nil
}

// RegisterKindExtension adds fn as a method on every type of the given kind.
func (ri *ReflectIntrospector) RegisterKindExtension(kind reflect.Kind, name string, fn any) error {
	m, err := newExtension(name, fn)
	if err != nil {
		return err
	}
	ri.mu.Lock()
	defer ri.mu.Unlock()
	if ri.byKind[kind] == nil {
		ri.byKind[kind] = make(map[string][]*types.Method)
	}
	ri.byKind[kind][name] = append(ri.byKind[kind][name], m)
	return nil
}

func newExtension(name string, fn any) (*types.Method, error) {
	fv := reflect.ValueOf(fn)
	if fv.Kind() != reflect.Func {
		return nil, types.Errorf(types.ErrInvalidOperation, "extension %s: %T is not a function", name, fn)
	}
	ft := fv.Type()
	if ft.NumIn() < 1 {
		return nil, types.Errorf(types.ErrInvalidOperation, "extension %s: missing receiver parameter", name)
	}
	if !validResults(ft) {
		return nil, types.Errorf(types.ErrInvalidOperation, "extension %s: must return a value and an optional error", name)
	}
	params := make([]reflect.Type, ft.NumIn()-1)
	for i := range params {
		params[i] = ft.In(i + 1)
	}
	return &types.Method{
		Name:      name,
		Func:      fv,
		Params:    params,
		Variadic:  ft.IsVariadic(),
		Receiver:  ft.In(0),
		Extension: true,
	}, nil
}

func validResults(ft reflect.Type) bool {
	switch ft.NumOut() {
	case 0, 1:
		return true
	case 2:
		return ft.Out(1) == errorType
	default:
		return false
	}
}

// structOf returns the struct type behind t, following one pointer.
func structOf(t reflect.Type) (reflect.Type, bool) {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t, t.Kind() == reflect.Struct
}

// FindField implements TypeIntrospector.
func (ri *ReflectIntrospector) FindField(t reflect.Type, name string) (types.Member, bool) {
	st, ok := structOf(t)
	if !ok || name == "" {
		return types.Unresolved, false
	}
	for _, candidate := range []string{name, capitalize(name)} {
		if f, ok := st.FieldByName(candidate); ok && f.IsExported() {
			return fieldMember(name, f, false), true
		}
	}
	for _, tag := range ri.tagLookup {
		if f, ok := fieldByTag(st, tag, name); ok {
			return fieldMember(name, f, false), true
		}
	}
	if f, ok := st.FieldByName(name); ok && !f.IsExported() {
		return fieldMember(name, f, true), true
	}
	return types.Unresolved, false
}

func fieldMember(name string, f reflect.StructField, unexported bool) types.Member {
	return types.Member{
		Kind:       types.MemberField,
		Name:       name,
		Index:      f.Index,
		Type:       f.Type,
		Unexported: unexported,
	}
}

func fieldByTag(st reflect.Type, tag, name string) (reflect.StructField, bool) {
	for i := 0; i < st.NumField(); i++ {
		f := st.Field(i)
		if !f.IsExported() {
			continue
		}
		v := f.Tag.Get(tag)
		if v == "" || v == "-" {
			continue
		}
		if idx := strings.IndexByte(v, ','); idx != -1 {
			v = v[:idx]
		}
		if v == name {
			return f, true
		}
	}
	return reflect.StructField{}, false
}

// methodByName looks name up in t's method set and, for non-pointer types,
// in the pointer method set.
func methodByName(t reflect.Type, name string) (reflect.Method, bool, bool) {
	if m, ok := t.MethodByName(name); ok {
		return m, false, true
	}
	if t.Kind() != reflect.Ptr && t.Kind() != reflect.Interface {
		if m, ok := reflect.PointerTo(t).MethodByName(name); ok {
			return m, true, true
		}
	}
	return reflect.Method{}, false, false
}

// FindAccessor implements TypeIntrospector.
func (ri *ReflectIntrospector) FindAccessor(t reflect.Type, name string, forWrite bool) (types.Member, bool) {
	if name == "" {
		return types.Unresolved, false
	}
	upper := capitalize(name)
	if forWrite {
		m, ptr, ok := methodByName(t, "Set"+upper)
		// Func includes the receiver, so a setter has two inputs.
		if ok && m.Type.NumIn() == 2 && validResults(m.Type) {
			return types.Member{
				Kind:        types.MemberWriteAccessor,
				Name:        name,
				Method:      m,
				PtrReceiver: ptr,
				Type:        m.Type.In(1),
			}, true
		}
		return types.Unresolved, false
	}
	for _, candidate := range []string{name, upper, "Get" + upper, "Is" + upper} {
		m, ptr, ok := methodByName(t, candidate)
		if !ok || m.Type.NumIn() != 1 || m.Type.NumOut() == 0 || !validResults(m.Type) {
			continue
		}
		return types.Member{
			Kind:        types.MemberReadAccessor,
			Name:        name,
			Method:      m,
			PtrReceiver: ptr,
			Type:        m.Type.Out(0),
		}, true
	}
	return types.Unresolved, false
}

// FindTypeMethod implements TypeIntrospector.
func (ri *ReflectIntrospector) FindTypeMethod(t reflect.Type, name string) (types.Member, bool) {
	for _, candidate := range []string{name, capitalize(name)} {
		if m, ok := t.MethodByName(candidate); ok {
			return types.Member{
				Kind:   types.MemberTypeMethod,
				Name:   name,
				Method: m,
				Type:   m.Type,
			}, true
		}
	}
	return types.Unresolved, false
}

// FindMethods implements TypeIntrospector. Native methods come first, then
// extensions registered for the exact type, then extensions for its kind.
func (ri *ReflectIntrospector) FindMethods(t reflect.Type, name string, arity int) []*types.Method {
	var out []*types.Method
	for _, candidate := range uniqueNames(name, capitalize(name)) {
		m, ptr, ok := methodByName(t, candidate)
		if !ok || !validResults(m.Type) {
			continue
		}
		params := make([]reflect.Type, m.Type.NumIn()-1)
		for i := range params {
			params[i] = m.Type.In(i + 1)
		}
		nm := &types.Method{
			Name:     m.Name,
			Func:     m.Func,
			Params:   params,
			Variadic: m.Type.IsVariadic(),
			Receiver: m.Type.In(0),
		}
		if ptr {
			nm.Receiver = reflect.PointerTo(t)
		}
		if acceptsArity(nm, arity) {
			out = append(out, nm)
		}
		break
	}

	ri.mu.RLock()
	defer ri.mu.RUnlock()
	for _, m := range ri.byType[t][name] {
		if acceptsArity(m, arity) {
			out = append(out, m)
		}
	}
	for _, m := range ri.byKind[t.Kind()][name] {
		if acceptsArity(m, arity) {
			out = append(out, m)
		}
	}
	return out
}

func acceptsArity(m *types.Method, arity int) bool {
	if m.Variadic {
		return arity >= len(m.Params)-1
	}
	return arity == len(m.Params)
}

func uniqueNames(a, b string) []string {
	if a == b {
		return []string{a}
	}
	return []string{a, b}
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError || unicode.IsUpper(r) {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
