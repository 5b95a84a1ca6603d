// Package formatters turns resolved input values into display strings.
package formatters

import (
	"log/slog"
	"sort"
	"sync"
)

// Resolver resolves input names; *inputs.Registry implements it.
type Resolver interface {
	Has(name string) bool
	Resolve(name string, ctx map[string]any) (any, error)
}

// Env is what a formatter may consult besides its value and parameters.
// All fields are optional.
type Env struct {
	Context  map[string]any
	Resolver Resolver
	Logger   *slog.Logger
}

func (e *Env) logger() *slog.Logger {
	if e == nil || e.Logger == nil {
		return slog.Default()
	}
	return e.Logger
}

// Func formats v. Formatters do not fail on bad input: values that cannot
// be coerced are rendered as text. The error is reserved for failures
// surfaced by input resolution inside templates.
type Func func(v any, params map[string]any, env *Env) (string, error)

// Formatter is a registry entry.
type Formatter struct {
	Name        string
	Description string
	Format      Func
}

// Registry maps formatter names to formatters. Register everything before
// sharing a Registry; lookups are then safe for concurrent use.
type Registry struct {
	formatters map[string]*Formatter
}

// NewRegistry returns a registry holding the built-in formatters.
func NewRegistry() *Registry {
	r := &Registry{formatters: map[string]*Formatter{}}
	r.Register("text", "plain text with optional prefix and suffix", formatText)
	r.Register("text_uppercase", "upper-cased text", formatTextUppercase)
	r.Register("price", "number with currency symbol, decimals and thousands separator", formatPrice)
	r.Register("number", "number with decimals, separators, prefix and suffix", formatNumber)
	r.Register("datetime", "timestamp or time rendered with a strftime pattern", formatDatetime)
	r.Register("relative_time", "elapsed seconds as 5s ago, 3m ago, 2h ago or 1d ago", formatRelativeTime)
	r.Register("template", "combines several fields using a {{field}} template", formatTemplate)
	return r
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Default returns a shared registry of the built-in formatters.
func Default() *Registry {
	defaultOnce.Do(func() { defaultRegistry = NewRegistry() })
	return defaultRegistry
}

// Register adds or replaces a formatter.
func (r *Registry) Register(name, description string, fn Func) {
	r.formatters[name] = &Formatter{Name: name, Description: description, Format: fn}
}

// Lookup returns the named formatter.
func (r *Registry) Lookup(name string) (*Formatter, bool) {
	f, ok := r.formatters[name]
	return f, ok
}

// Get returns the named formatter, falling back to text for unknown names.
func (r *Registry) Get(name string) *Formatter {
	if f, ok := r.formatters[name]; ok {
		return f
	}
	return r.formatters["text"]
}

// Names lists registered formatters alphabetically.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.formatters))
	for n := range r.formatters {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Format runs the named formatter, falling back to text.
func (r *Registry) Format(name string, v any, params map[string]any, env *Env) (string, error) {
	f := r.Get(name)
	if f.Name != name {
		env.logger().Debug("unknown formatter, using text", "formatter", name)
	}
	return f.Format(v, params, env)
}
