package starlark

import (
	"fmt"
	"log/slog"

	"go.starlark.net/starlark"
)

// Hook evaluates input expressions against a context. Each call runs on a
// fresh evaluator, so a Hook may be shared between goroutines.
type Hook struct {
	logger *slog.Logger
}

// NewHook returns a hook logging script output to logger.
func NewHook(logger *slog.Logger) *Hook {
	return &Hook{logger: logger}
}

// Eval evaluates expr with ctx loaded as globals.
func (h *Hook) Eval(expr string, ctx map[string]any) (any, error) {
	e := NewEvaluator(h.logger)
	e.LoadContext(ctx)
	return e.Eval(expr)
}

// ContextScript runs a provider script and returns the context it builds.
// The script either defines a function context() returning a dict, or
// assigns a dict to the global context. src follows ExecFile.
func ContextScript(filename string, src any, logger *slog.Logger) (map[string]any, error) {
	e := NewEvaluator(logger)
	globals, err := e.ExecFile(filename, src)
	if err != nil {
		return nil, err
	}
	v, ok := globals["context"]
	if !ok {
		return nil, fmt.Errorf("%s: script defines no context", filename)
	}
	if _, ok := v.(starlark.Callable); ok {
		v, err = e.Call("context")
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filename, err)
		}
	}
	ctx, err := ContextFromStarlark(v)
	if err != nil {
		return nil, fmt.Errorf("%s: context: %w", filename, err)
	}
	return ctx, nil
}
