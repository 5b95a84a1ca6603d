// Package starlark embeds Starlark for input hooks and scripted context
// providers.
package starlark

import (
	"fmt"
	"log/slog"
	"maps"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// Evaluator holds a Starlark thread plus the builtins and globals visible to
// evaluated code. An Evaluator is not safe for concurrent use.
type Evaluator struct {
	thread   *starlark.Thread
	builtins starlark.StringDict
	globals  starlark.StringDict
}

// NewEvaluator creates an evaluator whose print output goes to logger.
func NewEvaluator(logger *slog.Logger) *Evaluator {
	if logger == nil {
		logger = slog.Default()
	}
	thread := &starlark.Thread{
		Name: "viewtext",
		Print: func(_ *starlark.Thread, msg string) {
			logger.Info("starlark", "message", msg)
		},
	}
	return &Evaluator{
		thread:   thread,
		builtins: CreateBuiltins(),
		globals:  make(starlark.StringDict),
	}
}

// SetGlobal sets a global from a Go value.
func (e *Evaluator) SetGlobal(name string, v any) {
	e.globals[name] = ToStarlark(v)
}

// LoadContext exposes ctx as the dict global "ctx" and every key that is a
// valid identifier as a global of its own.
func (e *Evaluator) LoadContext(ctx map[string]any) {
	e.globals["ctx"] = dictOf(ctx)
	for k, v := range ctx {
		if isIdent(k) {
			e.globals[k] = ToStarlark(v)
		}
	}
}

func (e *Evaluator) predeclared() starlark.StringDict {
	out := make(starlark.StringDict, len(e.builtins)+len(e.globals))
	maps.Copy(out, e.builtins)
	maps.Copy(out, e.globals)
	return out
}

// Eval evaluates a single expression and converts the result to Go.
func (e *Evaluator) Eval(expr string) (any, error) {
	val, err := starlark.EvalOptions(syntax.LegacyFileOptions(), e.thread, "<expr>", expr, e.predeclared())
	if err != nil {
		return nil, fmt.Errorf("starlark evaluation error: %w", err)
	}
	return FromStarlark(val), nil
}

// ExecFile executes a script and merges its globals into the evaluator.
// src may be nil (read filename), a string or a []byte.
func (e *Evaluator) ExecFile(filename string, src any) (starlark.StringDict, error) {
	globals, err := starlark.ExecFileOptions(syntax.LegacyFileOptions(), e.thread, filename, src, e.predeclared())
	if err != nil {
		return nil, fmt.Errorf("starlark execution error: %w", err)
	}
	maps.Copy(e.globals, globals)
	return globals, nil
}

// Global returns a global converted to Go.
func (e *Evaluator) Global(name string) (any, bool) {
	v, ok := e.globals[name]
	if !ok {
		return nil, false
	}
	return FromStarlark(v), true
}

// Call calls the global function name with Go arguments.
func (e *Evaluator) Call(name string, args ...any) (starlark.Value, error) {
	fn, ok := e.globals[name]
	if !ok {
		return nil, fmt.Errorf("starlark: %s is not defined", name)
	}
	if _, ok := fn.(starlark.Callable); !ok {
		return nil, fmt.Errorf("starlark: %s is a %s, not a function", name, fn.Type())
	}
	sargs := make(starlark.Tuple, len(args))
	for i, a := range args {
		sargs[i] = ToStarlark(a)
	}
	v, err := starlark.Call(e.thread, fn, sargs, nil)
	if err != nil {
		return nil, fmt.Errorf("calling %s: %w", name, err)
	}
	return v, nil
}

// Export returns every global that is plain data, skipping functions and
// names starting with an underscore.
func (e *Evaluator) Export() map[string]any {
	out := make(map[string]any)
	for k, v := range e.globals {
		if k == "" || k[0] == '_' || k == "ctx" {
			continue
		}
		if _, ok := v.(starlark.Callable); ok {
			continue
		}
		out[k] = FromStarlark(v)
	}
	return out
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	_, builtin := starlark.Universe[s]
	return !builtin
}
