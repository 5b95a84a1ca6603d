package formatters

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func format(t *testing.T, name string, v any, params map[string]any) string {
	t.Helper()
	s, err := Default().Format(name, v, params, nil)
	require.NoError(t, err)
	return s
}

func TestBuiltinFormatters(t *testing.T) {
	tests := []struct {
		name      string
		formatter string
		value     any
		params    map[string]any
		want      string
	}{
		{"text", "text", "abc", nil, "abc"},
		{"text prefix suffix", "text", int64(5), map[string]any{"prefix": "[", "suffix": "]"}, "[5]"},
		{"text float", "text", 32.0, nil, "32.0"},
		{"text nil", "text", nil, nil, ""},
		{"uppercase", "text_uppercase", "btc", nil, "BTC"},
		{"price", "price", 1234.5, map[string]any{"symbol": "$", "decimals": int64(2), "thousands_sep": ","}, "$1,234.50"},
		{"price default decimals", "price", int64(3), nil, "3.00"},
		{"price suffix", "price", 9.5, map[string]any{"symbol": " EUR", "symbol_position": "suffix", "decimals": int64(1)}, "9.5 EUR"},
		{"price numeric string", "price", "12", map[string]any{"symbol": "$"}, "$12.00"},
		{"price not a number", "price", "n/a", map[string]any{"symbol": "$"}, "n/a"},
		{"price nil", "price", nil, map[string]any{"symbol": "$"}, ""},
		{"number", "number", 1234567.891, map[string]any{"decimals": int64(2), "thousands_sep": ","}, "1,234,567.89"},
		{"number default", "number", 2.5, nil, "2"},
		{"number prefix suffix", "number", int64(72), map[string]any{"prefix": "~", "suffix": "F"}, "~72F"},
		{"number european", "number", 1234.5, map[string]any{"decimals": int64(1), "thousands_sep": ".", "decimal_sep": ","}, "1.234,5"},
		{"number nil", "number", nil, nil, ""},
		{"number bool", "number", true, nil, "1"},
		{"datetime nil", "datetime", nil, nil, ""},
		{"datetime string", "datetime", "yesterday", nil, "yesterday"},
		{"datetime utc", "datetime", int64(1729012345), map[string]any{"utc": true}, "2024-10-15 17:12:25"},
		{"datetime pattern", "datetime", time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), map[string]any{"format": "%d/%m/%Y %H:%M"}, "02/01/2024 03:04"},
		{"relative seconds", "relative_time", int64(42), nil, "42s ago"},
		{"relative minutes", "relative_time", int64(75), nil, "1m ago"},
		{"relative minutes long", "relative_time", int64(75), map[string]any{"format": "long"}, "1 minutes ago"},
		{"relative hours", "relative_time", 7200.0, nil, "2h ago"},
		{"relative days long", "relative_time", int64(3 * 86400), map[string]any{"format": "long"}, "3 days ago"},
		{"relative string", "relative_time", "soon", nil, "soon"},
		{"relative nil", "relative_time", nil, nil, ""},
		{"unknown falls back to text", "sparkle", "x", map[string]any{"prefix": ">"}, ">x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, format(t, tt.formatter, tt.value, tt.params))
		})
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, []string{"datetime", "number", "price", "relative_time", "template", "text", "text_uppercase"}, r.Names())

	_, ok := r.Lookup("sparkle")
	assert.False(t, ok)
	assert.Equal(t, "text", r.Get("sparkle").Name)

	r.Register("stars", "wraps in stars", func(v any, _ map[string]any, _ *Env) (string, error) {
		return "*" + v.(string) + "*", nil
	})
	s, err := r.Format("stars", "hi", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "*hi*", s)
	_, ok = Default().Lookup("stars")
	assert.False(t, ok)
}

type fakeResolver map[string]any

func (f fakeResolver) Has(name string) bool {
	_, ok := f[name]
	return ok
}

func (f fakeResolver) Resolve(name string, _ map[string]any) (any, error) {
	if err, ok := f[name].(error); ok {
		return nil, err
	}
	return f[name], nil
}

func TestTemplate(t *testing.T) {
	s := format(t, "template", map[string]any{"a": int64(1), "b": int64(2)}, map[string]any{
		"template": "{{a}} and {{b}}",
		"fields":   []any{"a", "b"},
	})
	assert.Equal(t, "1 and 2", s)

	env := &Env{
		Context: map[string]any{
			"city":   "Oslo",
			"ticker": map[string]any{"base": "BTC", "quote": "USD"},
		},
		Resolver: fakeResolver{"temp": 21.5, "coin": map[string]any{"name": "bitcoin"}},
	}
	s, err := Default().Format("template", nil, map[string]any{
		"template": "{{ city }}: {{temp}}C {{ticker.base}}/{{ticker.quote}} {{coin.name}} [{{missing}}]",
	}, env)
	require.NoError(t, err)
	assert.Equal(t, "Oslo: 21.5C BTC/USD bitcoin []", s)
}

func TestTemplatePrefixWrap(t *testing.T) {
	params := map[string]any{
		"template": "{{ticker.base}}-{{ticker.quote}}",
		"fields":   []any{"ticker.base", "ticker.quote"},
	}
	flat := map[string]any{"base": "ETH", "quote": "EUR"}
	assert.Equal(t, "ETH-EUR", format(t, "template", flat, params))

	nested := map[string]any{"ticker": map[string]any{"base": "SOL", "quote": "USD"}}
	assert.Equal(t, "SOL-USD", format(t, "template", nested, params))

	assert.Equal(t, map[string]any{"x": int64(1)}, WrapPrefix(map[string]any{"x": int64(1)}, []string{"a", "b"}))
	assert.Equal(t, "plain", WrapPrefix("plain", []string{"a.b"}))

	p, ok := CommonPrefix([]string{"t.a", "t.b"})
	assert.True(t, ok)
	assert.Equal(t, "t", p)
	_, ok = CommonPrefix([]string{"t.a", "u.b"})
	assert.False(t, ok)
}

func TestTemplateSurfacesResolverErrors(t *testing.T) {
	boom := errors.New("rejected")
	env := &Env{Resolver: fakeResolver{"bad": boom}}
	s, err := Default().Format("template", nil, map[string]any{"template": "<{{bad}}>"}, env)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "<>", s)
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, []string{"a", "b.c"}, Placeholders("{{a}} {{ b.c }} {{a}}"))
	assert.Empty(t, Placeholders("no fields"))
}
