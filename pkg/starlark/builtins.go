package starlark

import (
	"fmt"
	"time"

	"go.starlark.net/starlark"

	"github.com/neurodesk/viewtext/pkg/operations"
	"github.com/neurodesk/viewtext/pkg/value"
)

// CreateBuiltins returns the helpers available to hooks and provider
// scripts in addition to the Starlark universe.
func CreateBuiltins() starlark.StringDict {
	return starlark.StringDict{
		"round": starlark.NewBuiltin("round", func(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			var x starlark.Value
			decimals := 0
			if err := starlark.UnpackArgs(fn.Name(), args, kwargs, "x", &x, "decimals?", &decimals); err != nil {
				return nil, err
			}
			f, ok := starlark.AsFloat(x)
			if !ok {
				return nil, fmtErr(fn, "expected a number, got %s", x.Type())
			}
			return starlark.Float(operations.Round(f, decimals)), nil
		}),

		"format_number": starlark.NewBuiltin("format_number", func(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			var x starlark.Value
			decimals := 0
			thousands, decimal := ",", "."
			if err := starlark.UnpackArgs(fn.Name(), args, kwargs,
				"x", &x, "decimals?", &decimals, "thousands_sep?", &thousands, "decimal_sep?", &decimal); err != nil {
				return nil, err
			}
			f, ok := starlark.AsFloat(x)
			if !ok {
				return nil, fmtErr(fn, "expected a number, got %s", x.Type())
			}
			return starlark.String(value.FormatNumber(f, decimals, thousands, decimal)), nil
		}),

		"now": starlark.NewBuiltin("now", func(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			if err := starlark.UnpackArgs(fn.Name(), args, kwargs); err != nil {
				return nil, err
			}
			return starlark.Float(float64(time.Now().UnixNano()) / 1e9), nil
		}),

		"title": starlark.NewBuiltin("title", func(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			var s string
			if err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 1, &s); err != nil {
				return nil, err
			}
			return starlark.String(value.Title(s)), nil
		}),
	}
}

func fmtErr(fn *starlark.Builtin, format string, args ...any) error {
	return fmt.Errorf("%s: %s", fn.Name(), fmt.Sprintf(format, args...))
}
