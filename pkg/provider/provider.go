// Package provider supplies the context a layout is rendered against: JSON
// on stdin, a configured provider (registered function, Starlark script or
// HTTP URL) or built-in demo data.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/neurodesk/viewtext/pkg/value"
)

// Func produces a context.
type Func func(ctx context.Context) (map[string]any, error)

var (
	// ErrEmpty is returned by ReadJSON for blank input.
	ErrEmpty = errors.New("empty input")
	// ErrNotObject is returned when a context is not a JSON object.
	ErrNotObject = errors.New("context data must be a JSON object")
)

// Registry maps provider names to functions. It is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	funcs map[string]Func
}

// NewRegistry returns a registry holding the built-in providers mock and
// env.
func NewRegistry() *Registry {
	r := &Registry{funcs: map[string]Func{}}
	r.Register("mock", func(context.Context) (map[string]any, error) { return Mock(), nil })
	r.Register("env", Env)
	return r
}

// Register adds or replaces a provider.
func (r *Registry) Register(name string, f Func) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.funcs[name] = f
}

// Lookup returns the named provider.
func (r *Registry) Lookup(name string) (Func, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.funcs[name]
	return f, ok
}

// Names lists registered providers alphabetically.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Mock returns the demo context used when nothing else is configured.
func Mock() map[string]any {
	return map[string]any{
		"demo1":        "Hello",
		"demo2":        "World",
		"demo3":        "Viewtext",
		"demo4":        "Demo",
		"text_value":   "Sample Text",
		"number_value": 12345.67,
		"price_value":  99.99,
		"timestamp":    int64(1729012345),
	}
}

// Env returns the process environment as a context of strings.
func Env(context.Context) (map[string]any, error) {
	out := map[string]any{}
	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if ok && k != "" {
			out[k] = v
		}
	}
	return out, nil
}

// ReadJSON decodes a JSON object from r. Integers decode as int64.
func ReadJSON(r io.Reader) (map[string]any, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return DecodeJSON(data)
}

// DecodeJSON decodes a JSON object. Blank input yields ErrEmpty and any
// other JSON value yields ErrNotObject.
func DecodeJSON(data []byte) (map[string]any, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmpty
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("decoding JSON: %w", err)
	}
	m, ok := value.Normalize(v).(map[string]any)
	if !ok {
		return nil, ErrNotObject
	}
	return m, nil
}
