package inputs

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/neurodesk/viewtext/pkg/config"
	"github.com/neurodesk/viewtext/pkg/value"
)

// errSkipped marks a value dropped by the skip strategy.
var errSkipped = errors.New("value skipped")

// ValidationError reports a resolved value that broke a constraint of its
// input.
type ValidationError struct {
	Input      string
	Constraint string
	Value      any
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("input %s: value %s violates %s", e.Input, value.Repr(e.Value), e.Constraint)
}

func hasConstraints(m *config.InputMapping) bool {
	return (m.Type != "" && m.Type != "any") ||
		m.MinValue != nil || m.MaxValue != nil ||
		m.MinLength != nil || m.MaxLength != nil ||
		m.Pattern != "" || len(m.AllowedValues) > 0 ||
		m.MinItems != nil || m.MaxItems != nil
}

// validate applies the input's constraints and its on_validation_error
// strategy. A nil value is never validated.
func (r *Registry) validate(f *field, v any) (any, error) {
	m := &f.mapping
	if v == nil || !hasConstraints(m) {
		return v, nil
	}
	constraint := check(f, v)
	if constraint == "" {
		return v, nil
	}

	switch m.OnValidationError {
	case "raise":
		return nil, &ValidationError{Input: f.name, Constraint: constraint, Value: v}
	case "skip":
		r.logger.Debug("validation failed, value dropped", "input", f.name, "constraint", constraint)
		return nil, errSkipped
	case "coerce":
		if c, ok := coerce(f, v); ok {
			return c, nil
		}
		r.logger.Debug("coercion failed, using default", "input", f.name, "constraint", constraint)
		return m.Default, nil
	}
	r.logger.Debug("validation failed, using default", "input", f.name, "constraint", constraint)
	return m.Default, nil
}

// check returns the first violated constraint, or "".
func check(f *field, v any) string {
	m := &f.mapping
	if m.Type != "" && !hasType(v, m.Type) {
		return "type " + m.Type
	}
	if m.MinValue != nil || m.MaxValue != nil {
		n, ok := value.AsFloat(v)
		if !ok {
			return "numeric range"
		}
		if m.MinValue != nil && n < *m.MinValue {
			return "min_value " + value.FormatFloat(*m.MinValue)
		}
		if m.MaxValue != nil && n > *m.MaxValue {
			return "max_value " + value.FormatFloat(*m.MaxValue)
		}
	}
	if s, ok := v.(string); ok {
		n := utf8.RuneCountInString(s)
		if m.MinLength != nil && n < *m.MinLength {
			return "min_length " + strconv.Itoa(*m.MinLength)
		}
		if m.MaxLength != nil && n > *m.MaxLength {
			return "max_length " + strconv.Itoa(*m.MaxLength)
		}
		if f.pattern != nil && !f.pattern.MatchString(s) {
			return "pattern " + m.Pattern
		}
	} else if f.pattern != nil {
		return "pattern " + m.Pattern
	}
	if len(m.AllowedValues) > 0 && !allowed(v, m.AllowedValues) {
		return "allowed_values"
	}
	if m.MinItems != nil || m.MaxItems != nil {
		n, ok := length(v)
		if !ok {
			return "items"
		}
		if m.MinItems != nil && n < *m.MinItems {
			return "min_items " + strconv.Itoa(*m.MinItems)
		}
		if m.MaxItems != nil && n > *m.MaxItems {
			return "max_items " + strconv.Itoa(*m.MaxItems)
		}
	}
	return ""
}

func hasType(v any, typ string) bool {
	switch typ {
	case "str":
		_, ok := v.(string)
		return ok
	case "int":
		if !value.IsNumber(v) {
			return false
		}
		_, isFloat := v.(float64)
		_, isFloat32 := v.(float32)
		return !isFloat && !isFloat32
	case "float":
		return value.IsNumber(v)
	case "bool":
		_, ok := v.(bool)
		return ok
	case "list":
		k := reflect.TypeOf(v).Kind()
		return k == reflect.Slice || k == reflect.Array
	case "dict":
		return reflect.TypeOf(v).Kind() == reflect.Map
	}
	return true
}

func allowed(v any, values []any) bool {
	for _, a := range values {
		if value.Equal(v, a) {
			return true
		}
	}
	return false
}

func length(v any) (int, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len(), true
	}
	return 0, false
}

// coerce converts v to the declared type, clamps numbers into range and
// truncates long strings. It fails when the result still breaks a
// constraint.
func coerce(f *field, v any) (any, bool) {
	m := &f.mapping
	var err error
	switch m.Type {
	case "str":
		v = value.String(v)
	case "int":
		v, err = value.ToInt(v)
	case "float":
		v, err = value.ToFloat(v)
	case "bool":
		v, err = parseBool(v)
	case "list":
		if !hasType(v, "list") {
			v = []any{v}
		}
	}
	if err != nil {
		return nil, false
	}

	if n, ok := value.AsFloat(v); ok {
		clamped := n
		if m.MinValue != nil && n < *m.MinValue {
			clamped = *m.MinValue
		}
		if m.MaxValue != nil && n > *m.MaxValue {
			clamped = *m.MaxValue
		}
		if clamped != n {
			if _, isInt := v.(int64); isInt {
				v = int64(clamped)
			} else {
				v = clamped
			}
		}
	}
	if s, ok := v.(string); ok && m.MaxLength != nil && *m.MaxLength >= 0 && utf8.RuneCountInString(s) > *m.MaxLength {
		v = string([]rune(s)[:*m.MaxLength])
	}
	if items, ok := v.([]any); ok && m.MaxItems != nil && *m.MaxItems >= 0 && len(items) > *m.MaxItems {
		v = items[:*m.MaxItems]
	}

	if check(f, v) != "" {
		return nil, false
	}
	return v, true
}

func parseBool(v any) (bool, error) {
	if s, ok := v.(string); ok {
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "true", "yes", "on", "1":
			return true, nil
		case "false", "no", "off", "0", "":
			return false, nil
		}
		return false, fmt.Errorf("cannot convert %q to bool", s)
	}
	return value.Truthy(v), nil
}
