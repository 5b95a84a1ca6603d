// Package value holds the conversion and truthiness rules shared by the chain
// resolver, the operation catalog and the formatters. Context values are plain
// Go values (maps, slices, scalars, host objects); this package decides how
// they stringify, when they count as numbers and when they are truthy.
package value

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// Context is the caller-supplied data a layout is rendered against.
type Context map[string]any

// Clone returns a shallow copy of c. Rendering never mutates a caller's
// context; accumulation works on clones.
func (c Context) Clone() Context {
	out := make(Context, len(c)+8)
	for k, v := range c {
		out[k] = v
	}
	return out
}

// FromMap converts a map[string]any into a Context, normalizing nested values.
func FromMap(m map[string]any) Context {
	ctx := make(Context, len(m))
	for k, v := range m {
		ctx[k] = Normalize(v)
	}
	return ctx
}

// Normalize converts decoded configuration or JSON values into the canonical
// shapes used by the resolver: int64 for integers, float64 for floats,
// map[string]any for string-keyed maps and []any for slices. Host objects
// (structs, pointers, anything implementing the chain capabilities) are left
// untouched.
func Normalize(v any) any {
	switch t := v.(type) {
	case nil, string, bool, int64, float64:
		return v
	case int:
		return int64(t)
	case int8:
		return int64(t)
	case int16:
		return int64(t)
	case int32:
		return int64(t)
	case uint:
		return int64(t)
	case uint8:
		return int64(t)
	case uint16:
		return int64(t)
	case uint32:
		return int64(t)
	case uint64:
		return int64(t)
	case float32:
		return float64(t)
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			out[k] = Normalize(vv)
		}
		return out
	case Context:
		return FromMap(t)
	case []any:
		out := make([]any, len(t))
		for i, vv := range t {
			out[i] = Normalize(vv)
		}
		return out
	case []string:
		out := make([]any, len(t))
		for i, vv := range t {
			out[i] = vv
		}
		return out
	case []map[string]any:
		out := make([]any, len(t))
		for i, vv := range t {
			out[i] = Normalize(vv)
		}
		return out
	}
	return v
}

// IsNumber reports whether v is an integer or float. Booleans and numeric
// strings are not numbers.
func IsNumber(v any) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return true
	}
	return false
}

// AsFloat returns v as a float64 when v is a number.
func AsFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int8:
		return float64(t), true
	case int16:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case uint:
		return float64(t), true
	case uint8:
		return float64(t), true
	case uint16:
		return float64(t), true
	case uint32:
		return float64(t), true
	case uint64:
		return float64(t), true
	}
	return 0, false
}

// ToFloat coerces v to a float64 the way a lenient float() would: numbers,
// booleans and numeric strings convert; anything else fails.
func ToFloat(v any) (float64, error) {
	if f, ok := AsFloat(v); ok {
		return f, nil
	}
	switch t := v.(type) {
	case bool:
		if t {
			return 1, nil
		}
		return 0, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, fmt.Errorf("cannot convert %q to float", t)
		}
		return f, nil
	case json.Number:
		return t.Float64()
	case nil:
		return 0, fmt.Errorf("cannot convert none to float")
	}
	return 0, fmt.Errorf("cannot convert %T to float", v)
}

// ToInt coerces v to an int64. Floats truncate toward zero; strings must be
// integer literals.
func ToInt(v any) (int64, error) {
	switch t := v.(type) {
	case int64:
		return t, nil
	case bool:
		if t {
			return 1, nil
		}
		return 0, nil
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("cannot convert %q to int", t)
		}
		return i, nil
	}
	f, ok := AsFloat(v)
	if !ok {
		return 0, fmt.Errorf("cannot convert %T to int", v)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("cannot convert %v to int", f)
	}
	return int64(f), nil
}

// Truthy reports the truthiness of v: nil, false, zero numbers and empty
// strings or collections are false.
func Truthy(v any) bool {
	if v == nil {
		return false
	}
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return t != ""
	}
	if f, ok := AsFloat(v); ok {
		return f != 0
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len() > 0
	case reflect.Pointer, reflect.Interface:
		return !rv.IsNil()
	}
	return true
}

// String renders v as display text: bools as True/False, nil inside
// collections as None, integral floats with a trailing ".0". A
// top-level nil renders as the empty string. Strings inside collections are
// double-quoted.
func String(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		if t {
			return "True"
		}
		return "False"
	case float64:
		return FormatFloat(t)
	case float32:
		return FormatFloat(float64(t))
	case fmt.Stringer:
		return t.String()
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, strconv.Quote(k)+": "+Repr(t[k]))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case []any:
		parts := make([]string, 0, len(t))
		for _, it := range t {
			parts = append(parts, Repr(it))
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}
	return fmt.Sprintf("%v", v)
}

// Repr is String with strings quoted, used inside collections and by the
// CLI when showing raw values.
func Repr(v any) string {
	switch t := v.(type) {
	case nil:
		return "None"
	case string:
		return strconv.Quote(t)
	}
	return String(v)
}

// FormatFloat prints f with the shortest representation that round-trips,
// switching to exponent form for very large or very small magnitudes.
func FormatFloat(f float64) string {
	if math.IsInf(f, 1) {
		return "inf"
	}
	if math.IsInf(f, -1) {
		return "-inf"
	}
	if math.IsNaN(f) {
		return "nan"
	}
	abs := math.Abs(f)
	if abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		return strconv.FormatFloat(f, 'e', -1, 64)
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".") {
		s += ".0"
	}
	return s
}

// Equal compares two values loosely: numbers compare numerically, everything
// else by display text.
func Equal(a, b any) bool {
	fa, oka := AsFloat(a)
	fb, okb := AsFloat(b)
	if oka && okb {
		return fa == fb
	}
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return String(a) == String(b)
}
