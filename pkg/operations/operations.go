// Package operations is the closed catalog of computed-input operations:
// unit conversions, arithmetic, aggregation, string slicing and joining, a
// single conditional and numeric formatting.
//
// Operations never see the input registry. Their operands are read from the
// flat evaluation context, where earlier inputs have already been written.
package operations

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/neurodesk/viewtext/pkg/chain"
	"github.com/neurodesk/viewtext/pkg/value"
)

// ErrNoValue means the operation could not produce a value and the caller
// should fall back to the input's default.
var ErrNoValue = errors.New("operation produced no value")

// ErrUnknownOperation is returned by Lookup for names outside the catalog.
type ErrUnknownOperation struct{ Name string }

func (e ErrUnknownOperation) Error() string { return "unknown operation: " + e.Name }

// Condition selects between IfTrue and IfFalse in the conditional
// operation. Field is a context key chain. Exactly one comparison is
// normally set; with none, the truthiness of the field decides.
type Condition struct {
	Field       string   `toml:"field" yaml:"field" json:"field"`
	Equals      any      `toml:"equals" yaml:"equals" json:"equals,omitempty"`
	NotEquals   any      `toml:"not_equals" yaml:"not_equals" json:"not_equals,omitempty"`
	GreaterThan *float64 `toml:"greater_than" yaml:"greater_than" json:"greater_than,omitempty"`
	LessThan    *float64 `toml:"less_than" yaml:"less_than" json:"less_than,omitempty"`
	Exists      *bool    `toml:"exists" yaml:"exists" json:"exists,omitempty"`
}

// Params carries every operation parameter of an input mapping. Unused
// parameters are ignored by operations that do not read them.
type Params struct {
	Sources    []string
	ContextKey string

	Multiply *float64
	Add      *float64
	Divide   *float64

	Start     *int
	End       *int
	Separator *string
	Prefix    string
	Suffix    string
	SkipEmpty bool
	Index     *int

	Condition *Condition
	IfTrue    any
	IfFalse   any

	Decimals     *int
	ThousandsSep *string
	DecimalSep   *string
}

// Operation is one catalog entry.
type Operation struct {
	Name        string
	Description string
	apply       func(p *Params, ctx map[string]any) (any, error)
}

// Apply runs the operation. Any failure, including a panic inside the
// operation, is reported as an error wrapping ErrNoValue or the cause.
func (o *Operation) Apply(p *Params, ctx map[string]any) (out any, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = fmt.Errorf("%s: %v: %w", o.Name, r, ErrNoValue)
		}
	}()
	return o.apply(p, ctx)
}

// Catalog maps operation names to operations. A Catalog is immutable after
// construction and safe for concurrent use.
type Catalog struct {
	ops map[string]*Operation
}

var defaultCatalog = newCatalog()

// Default returns the built-in catalog.
func Default() *Catalog { return defaultCatalog }

// Lookup returns the named operation.
func (c *Catalog) Lookup(name string) (*Operation, error) {
	op, ok := c.ops[name]
	if !ok {
		return nil, ErrUnknownOperation{Name: name}
	}
	return op, nil
}

// Has reports whether name is in the catalog.
func (c *Catalog) Has(name string) bool {
	_, ok := c.ops[name]
	return ok
}

// Names lists the catalog in alphabetical order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.ops))
	for n := range c.ops {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Operations lists the catalog entries in alphabetical order.
func (c *Catalog) Operations() []*Operation {
	out := make([]*Operation, 0, len(c.ops))
	for _, n := range c.Names() {
		out = append(out, c.ops[n])
	}
	return out
}

func newCatalog() *Catalog {
	c := &Catalog{ops: map[string]*Operation{}}
	add := func(name, desc string, fn func(p *Params, ctx map[string]any) (any, error)) {
		c.ops[name] = &Operation{Name: name, Description: desc, apply: fn}
	}

	for name, n := range numericOps {
		add(name, n.desc, numericOperation(name, n.fn))
	}
	add("linear_transform", "value * multiply / divide + add", linearTransform)
	add("concat", "join sources with separator, prefix and suffix", concat)
	add("split", "split a string source and pick one element", split)
	add("substring", "slice a string source from start to end", substring)
	add("conditional", "choose if_true or if_false from a condition", conditional)
	add("format_number", "format a number with decimals and separators", formatNumber)
	return c
}

// numericSource reads key from ctx. Plain keys are read directly; keys that
// look like chains are resolved. Only ints and floats count.
func numericSource(ctx map[string]any, key string) (float64, bool) {
	v, ok := ctx[key]
	if !ok && strings.ContainsAny(key, ".(") {
		var err error
		v, err = chain.ResolveString(key, ctx)
		ok = err == nil
	}
	if !ok {
		return 0, false
	}
	return value.AsFloat(v)
}

func rawSource(ctx map[string]any, key string) (any, bool) {
	if v, ok := ctx[key]; ok {
		return v, v != nil
	}
	if strings.ContainsAny(key, ".(") {
		v, err := chain.ResolveString(key, ctx)
		return v, err == nil && v != nil
	}
	return nil, false
}
