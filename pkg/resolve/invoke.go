package resolve

import (
	"errors"
	"reflect"
	"unsafe"

	"github.com/sandrolain/govel/pkg/types"
)

// Read returns the value of member m on owner.
func (r *Resolver) Read(owner reflect.Value, m types.Member) (any, error) {
	switch m.Kind {
	case types.MemberField:
		f, err := r.field(owner, m, false)
		if err != nil {
			return nil, err
		}
		return f.Interface(), nil
	case types.MemberReadAccessor:
		recv, err := receiver(owner, m.Method.Type.In(0), false)
		if err != nil {
			return nil, err
		}
		return call(m.Method.Func, []reflect.Value{recv}, m.Name)
	case types.MemberTypeMethod:
		return m.Method.Func.Interface(), nil
	}
	return nil, types.Errorf(types.ErrUnresolvedMember, "could not access property %s", describe(typeOf(owner), m.Name))
}

// Write stores value through member m on owner.
func (r *Resolver) Write(owner reflect.Value, m types.Member, value any) error {
	switch m.Kind {
	case types.MemberField:
		f, err := r.field(owner, m, true)
		if err != nil {
			return err
		}
		v, err := r.Coerce(value, f.Type())
		if err != nil {
			return err
		}
		f.Set(v)
		return nil
	case types.MemberWriteAccessor:
		recv, err := receiver(owner, m.Method.Type.In(0), true)
		if err != nil {
			return err
		}
		v, err := r.Coerce(value, m.Type)
		if err != nil {
			return err
		}
		_, err = call(m.Method.Func, []reflect.Value{recv, v}, m.Name)
		return err
	}
	return types.Errorf(types.ErrUnresolvedMember, "could not access property %s", describe(typeOf(owner), m.Name))
}

// Call invokes m on recv with args, coercing each argument to its declared
// parameter type. recv is ignored for static methods.
func (r *Resolver) Call(recv reflect.Value, m *types.Method, args []any) (any, error) {
	return r.CallDirect(recv, m, args, nil)
}

// CallDirect is Call for a call site that knows the egress types of its
// argument expressions. A non-nil egress[i] was found assignable to the
// parameter of argument i, so an argument of exactly that type is passed
// through without coercion.
func (r *Resolver) CallDirect(recv reflect.Value, m *types.Method, args []any, egress []reflect.Type) (any, error) {
	in := make([]reflect.Value, 0, len(args)+1)
	if !m.Static {
		rv, err := receiver(recv, m.Receiver, false)
		if err != nil {
			return nil, err
		}
		in = append(in, rv)
	}
	for i, a := range args {
		if i < len(egress) && egress[i] != nil && a != nil && reflect.TypeOf(a) == egress[i] {
			in = append(in, reflect.ValueOf(a))
			continue
		}
		v, err := r.Coerce(a, m.ParamFor(i))
		if err != nil {
			return nil, types.Errorf(types.ErrConversionFailure, "argument %d of %s", i, m.Name).WithCause(err)
		}
		in = append(in, v)
	}
	return call(m.Func, in, m.Name)
}

// Coerce converts value to a reflect.Value assignable to t.
func (r *Resolver) Coerce(value any, t reflect.Type) (reflect.Value, error) {
	if value == nil {
		return reflect.Zero(t), nil
	}
	v := reflect.ValueOf(value)
	if v.Type().AssignableTo(t) {
		return v, nil
	}
	out, err := r.converter.Convert(value, t)
	if err != nil {
		return reflect.Value{}, err
	}
	if out == nil {
		return reflect.Zero(t), nil
	}
	return reflect.ValueOf(out), nil
}

// field locates the struct field of m inside owner. Unexported fields get one
// retry through an aliased pointer when the resolver allows it.
func (r *Resolver) field(owner reflect.Value, m types.Member, forWrite bool) (reflect.Value, error) {
	v, err := indirect(owner)
	if err != nil {
		return reflect.Value{}, err
	}
	if v.Kind() != reflect.Struct {
		return reflect.Value{}, types.Errorf(types.ErrUnresolvedMember, "could not access property %s", describe(v.Type(), m.Name))
	}
	if !v.CanAddr() {
		if forWrite {
			return reflect.Value{}, types.Errorf(types.ErrUnsupportedContainerOp,
				"cannot assign %s on a non-addressable %s", m.Name, v.Type())
		}
		if m.Unexported {
			cp := reflect.New(v.Type()).Elem()
			cp.Set(v)
			v = cp
		}
	}
	f, err := v.FieldByIndexErr(m.Index)
	if err != nil {
		return reflect.Value{}, types.NewError(types.ErrNullDereference, "nil embedded struct").WithCause(err)
	}
	if f.CanInterface() && (!forWrite || f.CanSet()) {
		return f, nil
	}
	if !m.Unexported || !r.allowUnexported {
		return reflect.Value{}, types.Errorf(types.ErrUnresolvedMember,
			"could not access property %s: field is not exported", describe(v.Type(), m.Name))
	}
	return reflect.NewAt(f.Type(), unsafe.Pointer(f.UnsafeAddr())).Elem(), nil
}

// indirect follows pointers and interfaces down to a concrete value.
func indirect(v reflect.Value) (reflect.Value, error) {
	for v.IsValid() && (v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			return reflect.Value{}, types.NewError(types.ErrNullDereference, "null pointer dereference")
		}
		v = v.Elem()
	}
	if !v.IsValid() {
		return reflect.Value{}, types.NewError(types.ErrNullDereference, "null value")
	}
	return v, nil
}

// receiver adapts v to the receiver type want. Pointer receivers on
// non-addressable values get a copy unless the call mutates.
func receiver(v reflect.Value, want reflect.Type, mutating bool) (reflect.Value, error) {
	if !v.IsValid() {
		return reflect.Value{}, types.NewError(types.ErrNullDereference, "null receiver")
	}
	if v.Kind() == reflect.Interface && !v.IsNil() {
		v = v.Elem()
	}
	t := v.Type()
	switch {
	case t == want:
		return v, nil
	case want.Kind() == reflect.Ptr && t == want.Elem():
		if v.CanAddr() {
			return v.Addr(), nil
		}
		if mutating {
			return reflect.Value{}, types.Errorf(types.ErrUnsupportedContainerOp,
				"cannot call a pointer method on a non-addressable %s", t)
		}
		p := reflect.New(t)
		p.Elem().Set(v)
		return p, nil
	case t.Kind() == reflect.Ptr && t.Elem() == want:
		if v.IsNil() {
			return reflect.Value{}, types.NewError(types.ErrNullDereference, "null pointer receiver")
		}
		return v.Elem(), nil
	case t.AssignableTo(want):
		return v, nil
	case t.ConvertibleTo(want):
		return v.Convert(want), nil
	}
	return reflect.Value{}, types.Errorf(types.ErrInvocationFailed, "%s is not a valid receiver for %s", t, want)
}

// call invokes fn and unpacks a (value, error) result. Panics raised by host
// code are turned into errors.
func call(fn reflect.Value, in []reflect.Value, name string) (result any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = types.Errorf(types.ErrInvocationFailed, "%s panicked: %v", name, rec)
		}
	}()
	out := fn.Call(in)
	switch len(out) {
	case 0:
		return nil, nil
	case 1:
		if out[0].Type() == errorType {
			return nil, invocationError(name, out[0])
		}
		return out[0].Interface(), nil
	default:
		if e := invocationError(name, out[1]); e != nil {
			return nil, e
		}
		return out[0].Interface(), nil
	}
}

func invocationError(name string, v reflect.Value) error {
	if v.IsNil() {
		return nil
	}
	err := v.Interface().(error)
	var te *types.Error
	if errors.As(err, &te) {
		return err
	}
	return types.Errorf(types.ErrInvocationFailed, "%s failed", name).WithCause(err)
}

func typeOf(v reflect.Value) reflect.Type {
	if !v.IsValid() {
		return nil
	}
	return v.Type()
}

// FieldValue returns the struct field of m inside owner, keeping it
// addressable when owner is.
func (r *Resolver) FieldValue(owner reflect.Value, m types.Member) (reflect.Value, error) {
	return r.field(owner, m, false)
}
