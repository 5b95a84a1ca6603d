// Package engine renders layouts: for every slot it resolves the input,
// applies the presenter and formatter, and places the text by line index
// or dict key.
package engine

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/neurodesk/viewtext/pkg/config"
	"github.com/neurodesk/viewtext/pkg/formatters"
	"github.com/neurodesk/viewtext/pkg/inputs"
	"github.com/neurodesk/viewtext/pkg/value"
)

// Presets supplies presenters and formatter presets; *config.Config
// implements it.
type Presets interface {
	Presenter(name string) (*config.PresenterConfig, bool)
	FormatterPreset(name string) (*config.FormatterPreset, bool)
}

// Engine renders layouts. It holds only immutable state and is safe for
// concurrent use.
type Engine struct {
	inputs     *inputs.Registry
	formatters *formatters.Registry
	presets    Presets
	logger     *slog.Logger
	accumulate bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithInputs sets the input registry. Without one, inputs are read from
// the context by name.
func WithInputs(r *inputs.Registry) Option {
	return func(e *Engine) { e.inputs = r }
}

// WithFormatters replaces the built-in formatter registry.
func WithFormatters(r *formatters.Registry) Option {
	return func(e *Engine) { e.formatters = r }
}

// WithPresets sets where presenters and formatter presets come from.
func WithPresets(p Presets) Option {
	return func(e *Engine) { e.presets = p }
}

// WithLogger sets the logger for degraded slots.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithAccumulation makes every render evaluate all inputs in order into a
// copy of the context first, so operations can use other inputs as
// sources.
func WithAccumulation(on bool) Option {
	return func(e *Engine) { e.accumulate = on }
}

// New returns an engine.
func New(opts ...Option) *Engine {
	e := &Engine{}
	for _, opt := range opts {
		opt(e)
	}
	if e.formatters == nil {
		e.formatters = formatters.Default()
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

// FromConfig builds the input registry for cfg and an engine using cfg's
// presenters and presets.
func FromConfig(cfg *config.Config, opts ...Option) (*Engine, error) {
	e := New(append([]Option{WithPresets(cfg)}, opts...)...)
	if e.inputs == nil {
		reg, err := inputs.FromConfig(cfg, inputs.WithLogger(e.logger))
		if err != nil {
			return nil, fmt.Errorf("building inputs: %w", err)
		}
		e.inputs = reg
	}
	return e, nil
}

// Inputs returns the engine's input registry, which may be nil.
func (e *Engine) Inputs() *inputs.Registry { return e.inputs }

// Formatters returns the engine's formatter registry.
func (e *Engine) Formatters() *formatters.Registry { return e.formatters }

// SlotError records the failure of a single slot.
type SlotError struct {
	Slot string
	Err  error
}

func (e *SlotError) Error() string { return e.Slot + ": " + e.Err.Error() }

func (e *SlotError) Unwrap() error { return e.Err }

// renderer carries the per-render state.
type renderer struct {
	e    *Engine
	ctx  map[string]any
	errs []error
}

func (e *Engine) newRenderer(ctx map[string]any) *renderer {
	r := &renderer{e: e, ctx: ctx}
	if e.accumulate && e.inputs != nil {
		evaluated, err := e.inputs.Evaluate(ctx, nil)
		if err != nil {
			r.errs = append(r.errs, &SlotError{Slot: "inputs", Err: err})
		}
		r.ctx = evaluated
	}
	return r
}

func (r *renderer) err() error { return errors.Join(r.errs...) }

// slot renders one slot. ok is false when the slot has nothing to render.
func (r *renderer) slot(s config.Slot) (string, bool) {
	input, formatter, params := s.Input, s.Formatter, s.FormatterParams
	if s.Presenter != "" && r.e.presets != nil {
		if p, found := r.e.presets.Presenter(s.Presenter); found {
			if input == "" {
				input = p.Input
			}
			formatter, params = p.Formatter, p.FormatterParams
		} else {
			r.e.logger.Debug("unknown presenter", "slot", s.Label, "presenter", s.Presenter)
		}
	}
	if input == "" {
		return "", false
	}

	v, err := r.value(input)
	if err != nil {
		r.errs = append(r.errs, &SlotError{Slot: s.Label, Err: err})
		return "", true
	}
	if formatter == "" {
		return value.String(v), true
	}
	out, err := r.e.format(v, formatter, params, r.ctx)
	if err != nil {
		r.errs = append(r.errs, &SlotError{Slot: s.Label, Err: err})
		return "", true
	}
	return out, true
}

// value resolves input through the registry, then the raw context.
func (r *renderer) value(input string) (any, error) {
	if r.e.accumulate {
		if v, ok := r.ctx[input]; ok {
			return v, nil
		}
	}
	if r.e.inputs != nil {
		return r.e.inputs.Resolve(input, r.ctx)
	}
	return r.ctx[input], nil
}

// FormatValue formats v the way a slot would. A formatter name with no
// inline parameters that matches a preset uses the preset's type and
// parameters; otherwise the type is params["type"] or the name itself.
// Unknown types fall back to text.
func (e *Engine) FormatValue(v any, formatter string, params map[string]any, ctx map[string]any) (string, error) {
	return e.format(v, formatter, params, ctx)
}

func (e *Engine) format(v any, name string, params map[string]any, ctx map[string]any) (string, error) {
	typ := name
	if len(params) == 0 && e.presets != nil {
		if preset, ok := e.presets.FormatterPreset(name); ok {
			if preset.Type != "" {
				typ = preset.Type
			}
			params = preset.Params()
		}
	} else if t, ok := params["type"].(string); ok && t != "" {
		typ = t
	}
	env := &formatters.Env{Context: ctx, Logger: e.logger}
	if e.inputs != nil {
		env.Resolver = e.inputs
	}
	return e.formatters.Format(typ, v, params, env)
}
