// Package inputs resolves named inputs from a data context.
//
// A Registry is built once from the configured input mappings. Each input
// becomes a resolver that replays a context-key chain, runs a catalog
// operation, evaluates a Starlark hook or returns a constant, then applies
// the optional transform and validation. Resolution never fails: problems
// fall back to the input's default. The one exception is validation with
// the raise strategy, which surfaces a *ValidationError.
package inputs

import (
	"fmt"
	"log/slog"
	"regexp"

	"github.com/neurodesk/viewtext/pkg/chain"
	"github.com/neurodesk/viewtext/pkg/config"
	"github.com/neurodesk/viewtext/pkg/operations"
	"github.com/neurodesk/viewtext/pkg/starlark"
)

// Hook evaluates a python_function expression against a context.
type Hook interface {
	Eval(expr string, ctx map[string]any) (any, error)
}

type field struct {
	name    string
	mapping config.InputMapping
	ops     []chain.Op
	op      *operations.Operation
	params  *operations.Params
	pattern *regexp.Regexp
}

// Registry maps input names to resolvers. It is immutable after Build and
// safe for concurrent use.
type Registry struct {
	fields map[string]*field
	order  []string
	hook   Hook
	logger *slog.Logger
}

// Option configures Build.
type Option func(*buildOptions)

type buildOptions struct {
	logger  *slog.Logger
	hook    Hook
	catalog *operations.Catalog
	order   []string
}

// WithLogger sets the logger used for degraded resolution.
func WithLogger(l *slog.Logger) Option {
	return func(o *buildOptions) { o.logger = l }
}

// WithHook replaces the Starlark hook used for python_function inputs.
func WithHook(h Hook) Option {
	return func(o *buildOptions) { o.hook = h }
}

// WithCatalog replaces the operation catalog.
func WithCatalog(c *operations.Catalog) Option {
	return func(o *buildOptions) { o.catalog = c }
}

// WithOrder sets the declaration order of the inputs. Names missing from
// order are appended alphabetically.
func WithOrder(order []string) Option {
	return func(o *buildOptions) { o.order = order }
}

// Build compiles mappings into a Registry. It fails on unknown operations,
// invalid patterns and cyclic sources.
func Build(mappings map[string]config.InputMapping, opts ...Option) (*Registry, error) {
	o := buildOptions{catalog: operations.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	r := &Registry{
		fields: make(map[string]*field, len(mappings)),
		hook:   o.hook,
		logger: o.logger,
	}
	needsHook := false
	for name, m := range mappings {
		f := &field{name: name, mapping: m}
		switch {
		case m.Operation != "":
			op, err := o.catalog.Lookup(m.Operation)
			if err != nil {
				return nil, fmt.Errorf("input %s: %w", name, err)
			}
			f.op = op
			f.params = m.OperationParams()
		case m.PythonFunction != "":
			needsHook = true
		default:
			key := m.ContextKey
			if key == "" {
				key = name
			}
			f.ops = chain.Parse(key)
		}
		if err := checkBounds(&m); err != nil {
			return nil, fmt.Errorf("input %s: %w", name, err)
		}
		if m.Pattern != "" {
			re, err := regexp.Compile(m.Pattern)
			if err != nil {
				return nil, fmt.Errorf("input %s: invalid pattern: %w", name, err)
			}
			f.pattern = re
		}
		r.fields[name] = f
	}
	if needsHook && r.hook == nil {
		r.hook = starlark.NewHook(o.logger)
	}

	order, err := sortInputs(declared(o.order, mappings), mappings)
	if err != nil {
		return nil, err
	}
	r.order = order
	return r, nil
}

// checkBounds rejects negative length and item limits.
func checkBounds(m *config.InputMapping) error {
	for _, b := range []struct {
		name string
		v    *int
	}{{"min_length", m.MinLength}, {"max_length", m.MaxLength}, {"min_items", m.MinItems}, {"max_items", m.MaxItems}} {
		if b.v != nil && *b.v < 0 {
			return fmt.Errorf("%s must not be negative, got %d", b.name, *b.v)
		}
	}
	return nil
}

// FromConfig builds a Registry from every input declared in cfg, keeping
// the file declaration order.
func FromConfig(cfg *config.Config, opts ...Option) (*Registry, error) {
	opts = append([]Option{WithOrder(cfg.InputOrder)}, opts...)
	return Build(cfg.InputMappings(), opts...)
}

// Has reports whether name is a registered input.
func (r *Registry) Has(name string) bool {
	_, ok := r.fields[name]
	return ok
}

// Names lists the inputs in evaluation order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Mapping returns the configuration behind an input.
func (r *Registry) Mapping(name string) (config.InputMapping, bool) {
	f, ok := r.fields[name]
	if !ok {
		return config.InputMapping{}, false
	}
	return f.mapping, true
}
