package starlark

import (
	"fmt"
	"reflect"
	"sort"
	"time"

	"go.starlark.net/starlark"

	"github.com/neurodesk/viewtext/pkg/value"
)

// ToStarlark converts a context value to a Starlark value. Maps and slices
// convert recursively; values with no Starlark counterpart become their
// display string.
func ToStarlark(v any) starlark.Value {
	switch t := v.(type) {
	case nil:
		return starlark.None
	case starlark.Value:
		return t
	case string:
		return starlark.String(t)
	case bool:
		return starlark.Bool(t)
	case int:
		return starlark.MakeInt(t)
	case int64:
		return starlark.MakeInt64(t)
	case uint64:
		return starlark.MakeUint64(t)
	case float64:
		return starlark.Float(t)
	case float32:
		return starlark.Float(float64(t))
	case time.Time:
		return starlark.Float(float64(t.UnixNano()) / 1e9)
	case []any:
		items := make([]starlark.Value, len(t))
		for i, item := range t {
			items[i] = ToStarlark(item)
		}
		return starlark.NewList(items)
	case map[string]any:
		return dictOf(t)
	}
	if f, ok := value.AsFloat(v); ok {
		if i, err := value.ToInt(v); err == nil && float64(i) == f {
			return starlark.MakeInt64(i)
		}
		return starlark.Float(f)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		items := make([]starlark.Value, rv.Len())
		for i := range items {
			items[i] = ToStarlark(rv.Index(i).Interface())
		}
		return starlark.NewList(items)
	case reflect.Map:
		if rv.Type().Key().Kind() == reflect.String {
			m := make(map[string]any, rv.Len())
			iter := rv.MapRange()
			for iter.Next() {
				m[iter.Key().String()] = iter.Value().Interface()
			}
			return dictOf(m)
		}
	}
	return starlark.String(value.String(v))
}

func dictOf(m map[string]any) *starlark.Dict {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	dict := starlark.NewDict(len(m))
	for _, k := range keys {
		// SetKey only fails on unhashable keys or frozen dicts.
		_ = dict.SetKey(starlark.String(k), ToStarlark(m[k]))
	}
	return dict
}

// FromStarlark converts a Starlark value back to a plain Go value:
// None to nil, ints to int64, floats to float64, lists, tuples and sets to
// []any and dicts to map[string]any.
func FromStarlark(v starlark.Value) any {
	if v == nil || v == starlark.None {
		return nil
	}
	switch t := v.(type) {
	case starlark.String:
		return string(t)
	case starlark.Bool:
		return bool(t)
	case starlark.Int:
		if i, ok := t.Int64(); ok {
			return i
		}
		return t.String()
	case starlark.Float:
		return float64(t)
	case *starlark.List:
		out := make([]any, t.Len())
		for i := range out {
			out[i] = FromStarlark(t.Index(i))
		}
		return out
	case starlark.Tuple:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = FromStarlark(item)
		}
		return out
	case *starlark.Set:
		out := make([]any, 0, t.Len())
		iter := t.Iterate()
		defer iter.Done()
		var item starlark.Value
		for iter.Next(&item) {
			out = append(out, FromStarlark(item))
		}
		return out
	case *starlark.Dict:
		out := make(map[string]any, t.Len())
		for _, kv := range t.Items() {
			key := kv[0].String()
			if s, ok := kv[0].(starlark.String); ok {
				key = string(s)
			}
			out[key] = FromStarlark(kv[1])
		}
		return out
	}
	return v.String()
}

// ContextFromStarlark converts a Starlark dict to a context mapping.
func ContextFromStarlark(v starlark.Value) (map[string]any, error) {
	d, ok := v.(*starlark.Dict)
	if !ok {
		return nil, fmt.Errorf("expected a dict, got %s", v.Type())
	}
	return FromStarlark(d).(map[string]any), nil
}
