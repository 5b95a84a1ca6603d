package chain

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// AttrGetter is implemented by host objects that expose named attributes to
// chains ("ticker.name").
type AttrGetter interface {
	GetAttr(name string) (any, error)
}

// MethodCaller is implemented by host objects that expose callable methods
// to chains ("ticker.get_price('fiat')"). Arguments are always literals.
type MethodCaller interface {
	CallMethod(name string, args []any) (any, error)
}

// Func is a callable value. A Func stored in a mapping can be invoked as a
// method of that mapping.
type Func func(args []any) (any, error)

// ErrKeyNotFound is returned when the leading key is absent or nil.
type ErrKeyNotFound struct{ Key string }

func (e ErrKeyNotFound) Error() string { return "key not found: " + e.Key }

// ErrNoAttribute is returned when an attribute cannot be read.
type ErrNoAttribute struct {
	Name string
	On   string
}

func (e ErrNoAttribute) Error() string {
	return fmt.Sprintf("%s has no attribute %q", e.On, e.Name)
}

// ErrNoMethod is returned when a method does not exist on the target.
type ErrNoMethod struct {
	Name string
	On   string
}

func (e ErrNoMethod) Error() string {
	return fmt.Sprintf("%s has no method %q", e.On, e.Name)
}

var errNotUsable = errors.New("not usable")

// Resolve replays ops against ctx. The leading key is looked up in ctx; a
// missing or nil key stops the chain with ErrKeyNotFound. Attribute and
// method failures are returned as errors; panics raised by host methods are
// recovered and reported as errors too.
func Resolve(ops []Op, ctx map[string]any) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("chain %s: panic: %v", String(ops), r)
		}
	}()

	var cur any
	for _, op := range ops {
		switch op.Kind {
		case KindKey:
			v, ok := ctx[op.Name]
			if !ok || v == nil {
				return nil, ErrKeyNotFound{Key: op.Name}
			}
			cur = v
		case KindAttr:
			cur, err = GetAttr(cur, op.Name)
			if err != nil {
				return nil, err
			}
		case KindMethod:
			cur, err = CallMethod(cur, op.Name, op.Args)
			if err != nil {
				return nil, err
			}
		}
	}
	return cur, nil
}

// ResolveString parses and resolves key in one step.
func ResolveString(key string, ctx map[string]any) (any, error) {
	return Resolve(Parse(key), ctx)
}

// GetAttr reads attribute name from v. Host capabilities win, then string
// keyed maps, then exported struct fields matched case-insensitively with
// underscores ignored (so "last_price" finds LastPrice).
func GetAttr(v any, name string) (any, error) {
	if v == nil {
		return nil, ErrNoAttribute{Name: name, On: "none"}
	}
	if g, ok := v.(AttrGetter); ok {
		return g.GetAttr(name)
	}
	if m, ok := v.(map[string]any); ok {
		if val, ok := m[name]; ok {
			return val, nil
		}
		return nil, ErrNoAttribute{Name: name, On: "map"}
	}

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, ErrNoAttribute{Name: name, On: "none"}
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() == reflect.String {
			mv := rv.MapIndex(reflect.ValueOf(name).Convert(rv.Type().Key()))
			if mv.IsValid() {
				return mv.Interface(), nil
			}
		}
	case reflect.Struct:
		want := goName(name)
		f := rv.FieldByNameFunc(func(n string) bool { return strings.EqualFold(n, want) })
		if f.IsValid() && f.CanInterface() {
			return f.Interface(), nil
		}
	}
	return nil, ErrNoAttribute{Name: name, On: typeName(v)}
}

// CallMethod invokes method name on v with literal args. Resolution order:
// the MethodCaller capability, a Func stored under name in a map, the
// built-in methods for strings, maps and lists, and finally exported Go
// methods (get_price maps to GetPrice).
func CallMethod(v any, name string, args []any) (any, error) {
	if v == nil {
		return nil, ErrNoMethod{Name: name, On: "none"}
	}
	if c, ok := v.(MethodCaller); ok {
		return c.CallMethod(name, args)
	}
	if m, ok := v.(map[string]any); ok {
		if fn, ok := m[name].(Func); ok {
			return fn(args)
		}
		if fn, ok := m[name].(func([]any) (any, error)); ok {
			return fn(args)
		}
	}
	if out, err := callBuiltin(v, name, args); !errors.Is(err, errNotUsable) {
		return out, err
	}
	return callReflect(v, name, args)
}

func callReflect(v any, name string, args []any) (any, error) {
	rv := reflect.ValueOf(v)
	want := goName(name)
	var method reflect.Value
	t := rv.Type()
	for i := 0; i < t.NumMethod(); i++ {
		if strings.EqualFold(t.Method(i).Name, want) {
			method = rv.Method(i)
			break
		}
	}
	if !method.IsValid() {
		return nil, ErrNoMethod{Name: name, On: typeName(v)}
	}

	mt := method.Type()
	if mt.IsVariadic() {
		if len(args) < mt.NumIn()-1 {
			return nil, fmt.Errorf("%s: want at least %d arguments, got %d", name, mt.NumIn()-1, len(args))
		}
	} else if len(args) != mt.NumIn() {
		return nil, fmt.Errorf("%s: want %d arguments, got %d", name, mt.NumIn(), len(args))
	}

	in := make([]reflect.Value, len(args))
	for i, a := range args {
		var pt reflect.Type
		if mt.IsVariadic() && i >= mt.NumIn()-1 {
			pt = mt.In(mt.NumIn() - 1).Elem()
		} else {
			pt = mt.In(i)
		}
		av, err := convertArg(a, pt)
		if err != nil {
			return nil, fmt.Errorf("%s: argument %d: %w", name, i, err)
		}
		in[i] = av
	}

	out := method.Call(in)
	if len(out) == 0 {
		return nil, nil
	}
	last := out[len(out)-1]
	if last.Type().Implements(reflect.TypeOf((*error)(nil)).Elem()) {
		if !last.IsNil() {
			return nil, last.Interface().(error)
		}
		if len(out) == 1 {
			return nil, nil
		}
	}
	return out[0].Interface(), nil
}

func convertArg(a any, pt reflect.Type) (reflect.Value, error) {
	if a == nil {
		switch pt.Kind() {
		case reflect.Interface, reflect.Pointer, reflect.Map, reflect.Slice:
			return reflect.Zero(pt), nil
		}
		return reflect.Value{}, fmt.Errorf("cannot use none as %s", pt)
	}
	av := reflect.ValueOf(a)
	if av.Type().AssignableTo(pt) {
		return av, nil
	}
	if av.Type().ConvertibleTo(pt) {
		// Avoid int -> string rune conversions.
		if pt.Kind() == reflect.String && av.Kind() != reflect.String {
			return reflect.Value{}, fmt.Errorf("cannot use %T as %s", a, pt)
		}
		return av.Convert(pt), nil
	}
	return reflect.Value{}, fmt.Errorf("cannot use %T as %s", a, pt)
}

// goName turns snake_case into the CamelCase spelling used by Go methods.
// Matching is case-insensitive so only underscores need removing.
func goName(name string) string {
	return strings.ReplaceAll(name, "_", "")
}

func typeName(v any) string {
	return fmt.Sprintf("%T", v)
}
