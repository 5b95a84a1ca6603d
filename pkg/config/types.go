// Package config holds the declarative layout configuration: layouts,
// inputs, presenters and formatter presets, plus the loaders that read them
// from TOML or YAML files.
package config

import (
	"fmt"
	"sort"

	"github.com/neurodesk/viewtext/pkg/operations"
)

// InputMapping declares how a named input is resolved from the context.
type InputMapping struct {
	ContextKey string `toml:"context_key" yaml:"context_key,omitempty" json:"context_key,omitempty"`
	Constant   any    `toml:"constant" yaml:"constant,omitempty" json:"constant,omitempty"`
	Default    any    `toml:"default" yaml:"default,omitempty" json:"default,omitempty"`
	Transform  string `toml:"transform" yaml:"transform,omitempty" json:"transform,omitempty"`

	Operation string   `toml:"operation" yaml:"operation,omitempty" json:"operation,omitempty"`
	Sources   []string `toml:"sources" yaml:"sources,omitempty" json:"sources,omitempty"`

	Multiply *float64 `toml:"multiply" yaml:"multiply,omitempty" json:"multiply,omitempty"`
	Add      *float64 `toml:"add" yaml:"add,omitempty" json:"add,omitempty"`
	Divide   *float64 `toml:"divide" yaml:"divide,omitempty" json:"divide,omitempty"`

	Start     *int    `toml:"start" yaml:"start,omitempty" json:"start,omitempty"`
	End       *int    `toml:"end" yaml:"end,omitempty" json:"end,omitempty"`
	Separator *string `toml:"separator" yaml:"separator,omitempty" json:"separator,omitempty"`
	Prefix    string  `toml:"prefix" yaml:"prefix,omitempty" json:"prefix,omitempty"`
	Suffix    string  `toml:"suffix" yaml:"suffix,omitempty" json:"suffix,omitempty"`
	SkipEmpty bool    `toml:"skip_empty" yaml:"skip_empty,omitempty" json:"skip_empty,omitempty"`
	Index     *int    `toml:"index" yaml:"index,omitempty" json:"index,omitempty"`

	Condition *operations.Condition `toml:"condition" yaml:"condition,omitempty" json:"condition,omitempty"`
	IfTrue    any                   `toml:"if_true" yaml:"if_true,omitempty" json:"if_true,omitempty"`
	IfFalse   any                   `toml:"if_false" yaml:"if_false,omitempty" json:"if_false,omitempty"`

	DecimalsParam *int    `toml:"decimals_param" yaml:"decimals_param,omitempty" json:"decimals_param,omitempty"`
	ThousandsSep  *string `toml:"thousands_sep" yaml:"thousands_sep,omitempty" json:"thousands_sep,omitempty"`
	DecimalSep    *string `toml:"decimal_sep" yaml:"decimal_sep,omitempty" json:"decimal_sep,omitempty"`

	Type              string   `toml:"type" yaml:"type,omitempty" json:"type,omitempty"`
	OnValidationError string   `toml:"on_validation_error" yaml:"on_validation_error,omitempty" json:"on_validation_error,omitempty"`
	MinValue          *float64 `toml:"min_value" yaml:"min_value,omitempty" json:"min_value,omitempty"`
	MaxValue          *float64 `toml:"max_value" yaml:"max_value,omitempty" json:"max_value,omitempty"`
	MinLength         *int     `toml:"min_length" yaml:"min_length,omitempty" json:"min_length,omitempty"`
	MaxLength         *int     `toml:"max_length" yaml:"max_length,omitempty" json:"max_length,omitempty"`
	Pattern           string   `toml:"pattern" yaml:"pattern,omitempty" json:"pattern,omitempty"`
	AllowedValues     []any    `toml:"allowed_values" yaml:"allowed_values,omitempty" json:"allowed_values,omitempty"`
	MinItems          *int     `toml:"min_items" yaml:"min_items,omitempty" json:"min_items,omitempty"`
	MaxItems          *int     `toml:"max_items" yaml:"max_items,omitempty" json:"max_items,omitempty"`

	// PythonFunction is a Starlark expression evaluated against the context.
	PythonFunction string `toml:"python_function" yaml:"python_function,omitempty" json:"python_function,omitempty"`
}

// OperationParams converts the operation-related fields of m.
func (m *InputMapping) OperationParams() *operations.Params {
	return &operations.Params{
		Sources:      m.Sources,
		ContextKey:   m.ContextKey,
		Multiply:     m.Multiply,
		Add:          m.Add,
		Divide:       m.Divide,
		Start:        m.Start,
		End:          m.End,
		Separator:    m.Separator,
		Prefix:       m.Prefix,
		Suffix:       m.Suffix,
		SkipEmpty:    m.SkipEmpty,
		Index:        m.Index,
		Condition:    m.Condition,
		IfTrue:       m.IfTrue,
		IfFalse:      m.IfFalse,
		Decimals:     m.DecimalsParam,
		ThousandsSep: m.ThousandsSep,
		DecimalSep:   m.DecimalSep,
	}
}

// PresenterConfig is a reusable (input, formatter, params) bundle.
type PresenterConfig struct {
	Input           string         `toml:"input" yaml:"input,omitempty" json:"input,omitempty"`
	Formatter       string         `toml:"formatter" yaml:"formatter,omitempty" json:"formatter,omitempty"`
	FormatterParams map[string]any `toml:"formatter_params" yaml:"formatter_params,omitempty" json:"formatter_params,omitempty"`
}

// LineConfig is one slot of a lines layout.
type LineConfig struct {
	Input           string         `toml:"input" yaml:"input,omitempty" json:"input,omitempty"`
	Index           *int           `toml:"index" yaml:"index,omitempty" json:"index,omitempty"`
	Presenter       string         `toml:"presenter" yaml:"presenter,omitempty" json:"presenter,omitempty"`
	Formatter       string         `toml:"formatter" yaml:"formatter,omitempty" json:"formatter,omitempty"`
	FormatterParams map[string]any `toml:"formatter_params" yaml:"formatter_params,omitempty" json:"formatter_params,omitempty"`
}

// DictItemConfig is one slot of a dict layout.
type DictItemConfig struct {
	Input           string         `toml:"input" yaml:"input,omitempty" json:"input,omitempty"`
	Key             string         `toml:"key" yaml:"key,omitempty" json:"key,omitempty"`
	Presenter       string         `toml:"presenter" yaml:"presenter,omitempty" json:"presenter,omitempty"`
	Formatter       string         `toml:"formatter" yaml:"formatter,omitempty" json:"formatter,omitempty"`
	FormatterParams map[string]any `toml:"formatter_params" yaml:"formatter_params,omitempty" json:"formatter_params,omitempty"`
}

// Slot is the common view of a line or dict item.
type Slot struct {
	Label           string
	Input           string
	Presenter       string
	Formatter       string
	FormatterParams map[string]any
}

// LayoutConfig is a named collection of lines or items.
type LayoutConfig struct {
	Name  string           `toml:"name" yaml:"name" json:"name"`
	Lines []LineConfig     `toml:"lines" yaml:"lines,omitempty" json:"lines,omitempty"`
	Items []DictItemConfig `toml:"items" yaml:"items,omitempty" json:"items,omitempty"`
}

// IsDict reports whether the layout renders to a keyed dict.
func (l *LayoutConfig) IsDict() bool {
	return len(l.Items) > 0 && len(l.Lines) == 0
}

// Slots lists the lines and items of l in declaration order.
func (l *LayoutConfig) Slots() []Slot {
	out := make([]Slot, 0, len(l.Lines)+len(l.Items))
	for i, ln := range l.Lines {
		label := fmt.Sprintf("line %d", i)
		if ln.Index != nil {
			label = fmt.Sprintf("line %d", *ln.Index)
		}
		out = append(out, Slot{Label: label, Input: ln.Input, Presenter: ln.Presenter, Formatter: ln.Formatter, FormatterParams: ln.FormatterParams})
	}
	for _, it := range l.Items {
		out = append(out, Slot{Label: fmt.Sprintf("item %q", it.Key), Input: it.Input, Presenter: it.Presenter, Formatter: it.Formatter, FormatterParams: it.FormatterParams})
	}
	return out
}

// FormatterPreset is a named formatter configuration: a formatter type plus
// fixed parameters.
type FormatterPreset struct {
	Type           string   `toml:"type" yaml:"type" json:"type"`
	Symbol         *string  `toml:"symbol" yaml:"symbol,omitempty" json:"symbol,omitempty"`
	Decimals       *int     `toml:"decimals" yaml:"decimals,omitempty" json:"decimals,omitempty"`
	ThousandsSep   *string  `toml:"thousands_sep" yaml:"thousands_sep,omitempty" json:"thousands_sep,omitempty"`
	DecimalSep     *string  `toml:"decimal_sep" yaml:"decimal_sep,omitempty" json:"decimal_sep,omitempty"`
	Prefix         *string  `toml:"prefix" yaml:"prefix,omitempty" json:"prefix,omitempty"`
	Suffix         *string  `toml:"suffix" yaml:"suffix,omitempty" json:"suffix,omitempty"`
	Format         *string  `toml:"format" yaml:"format,omitempty" json:"format,omitempty"`
	SymbolPosition *string  `toml:"symbol_position" yaml:"symbol_position,omitempty" json:"symbol_position,omitempty"`
	Template       *string  `toml:"template" yaml:"template,omitempty" json:"template,omitempty"`
	Fields         []string `toml:"fields" yaml:"fields,omitempty" json:"fields,omitempty"`
}

// Params returns the preset's parameters without its type. Unset
// parameters are omitted.
func (p *FormatterPreset) Params() map[string]any {
	out := map[string]any{}
	put := func(k string, v *string) {
		if v != nil {
			out[k] = *v
		}
	}
	put("symbol", p.Symbol)
	put("thousands_sep", p.ThousandsSep)
	put("decimal_sep", p.DecimalSep)
	put("prefix", p.Prefix)
	put("suffix", p.Suffix)
	put("format", p.Format)
	put("symbol_position", p.SymbolPosition)
	put("template", p.Template)
	if p.Decimals != nil {
		out["decimals"] = int64(*p.Decimals)
	}
	if p.Fields != nil {
		fields := make([]any, len(p.Fields))
		for i, f := range p.Fields {
			fields[i] = f
		}
		out["fields"] = fields
	}
	return out
}

// Config is a fully loaded configuration. It is immutable once returned by
// a Loader and safe to share.
type Config struct {
	Layouts         map[string]LayoutConfig    `toml:"layouts" yaml:"layouts" json:"layouts"`
	Formatters      map[string]FormatterPreset `toml:"formatters" yaml:"formatters,omitempty" json:"formatters,omitempty"`
	Inputs          map[string]InputMapping    `toml:"inputs" yaml:"inputs,omitempty" json:"inputs,omitempty"`
	Presenters      map[string]PresenterConfig `toml:"presenters" yaml:"presenters,omitempty" json:"presenters,omitempty"`
	ContextProvider string                     `toml:"context_provider" yaml:"context_provider,omitempty" json:"context_provider,omitempty"`

	// InputOrder lists input names in declaration order.
	InputOrder []string `toml:"-" yaml:"-" json:"-"`
}

// ErrLayoutNotFound is returned for unknown layout names.
type ErrLayoutNotFound struct{ Name string }

func (e ErrLayoutNotFound) Error() string { return "unknown layout: " + e.Name }

// Layout returns the named layout.
func (c *Config) Layout(name string) (*LayoutConfig, error) {
	l, ok := c.Layouts[name]
	if !ok {
		return nil, ErrLayoutNotFound{Name: name}
	}
	return &l, nil
}

// LayoutNames lists layouts alphabetically.
func (c *Config) LayoutNames() []string {
	return SortedNames(c.Layouts)
}

// InputMappings returns every declared input.
func (c *Config) InputMappings() map[string]InputMapping {
	if c.Inputs == nil {
		return map[string]InputMapping{}
	}
	return c.Inputs
}

// Presenter returns the named presenter.
func (c *Config) Presenter(name string) (*PresenterConfig, bool) {
	p, ok := c.Presenters[name]
	if !ok {
		return nil, false
	}
	return &p, true
}

// FormatterPreset returns the named formatter preset.
func (c *Config) FormatterPreset(name string) (*FormatterPreset, bool) {
	p, ok := c.Formatters[name]
	if !ok {
		return nil, false
	}
	return &p, true
}

// ContextProviderName returns the configured context provider, if any.
func (c *Config) ContextProviderName() string {
	return c.ContextProvider
}

// SortedNames returns the keys of m alphabetically.
func SortedNames[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
