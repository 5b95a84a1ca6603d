package inputs

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neurodesk/viewtext/pkg/config"
	"github.com/neurodesk/viewtext/pkg/operations"
)

func fptr(f float64) *float64 { return &f }
func iptr(i int) *int         { return &i }

type ticker struct {
	Symbol    string
	LastPrice float64
}

func (t ticker) GetPrice(currency string) (float64, error) {
	if currency != "usd" {
		return 0, errors.New("unsupported currency")
	}
	return t.LastPrice, nil
}

func build(t *testing.T, mappings map[string]config.InputMapping, opts ...Option) *Registry {
	t.Helper()
	r, err := Build(mappings, opts...)
	require.NoError(t, err)
	return r
}

func TestResolveContextKeys(t *testing.T) {
	r := build(t, map[string]config.InputMapping{
		"symbol":   {ContextKey: "ticker.symbol"},
		"price":    {ContextKey: "ticker.get_price('usd')", Default: "n/a"},
		"eur":      {ContextKey: "ticker.get_price('eur')", Default: "n/a"},
		"missing":  {ContextKey: "nope.deeper", Default: int64(7)},
		"bad_attr": {ContextKey: "name.nothing", Default: "d"},
		"name":     {Transform: "upper"},
		"title":    {ContextKey: "name", Transform: "title"},
		"count":    {ContextKey: "count_str", Transform: "int", Default: int64(-1)},
		"junk":     {ContextKey: "name", Transform: "int", Default: int64(-1)},
		"flag":     {ContextKey: "count_str", Transform: "bool"},
		"greeting": {Constant: "hi there", Transform: "upper"},
		"nothing":  {ContextKey: "absent"},
	})
	ctx := map[string]any{
		"ticker":    ticker{Symbol: "BTC", LastPrice: 100.5},
		"name":      "satoshi nakamoto",
		"count_str": "42",
	}

	cases := map[string]any{
		"symbol":   "BTC",
		"price":    100.5,
		"eur":      "n/a",
		"missing":  int64(7),
		"bad_attr": "d",
		"name":     "SATOSHI NAKAMOTO",
		"title":    "Satoshi Nakamoto",
		"count":    int64(42),
		"junk":     int64(-1),
		"flag":     true,
		"greeting": "HI THERE",
		"nothing":  nil,
	}
	for name, want := range cases {
		t.Run(name, func(t *testing.T) {
			got, err := r.Resolve(name, ctx)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestResolveUnregisteredPassesThrough(t *testing.T) {
	r := build(t, nil)
	got, err := r.Resolve("raw", map[string]any{"raw": int64(3)})
	require.NoError(t, err)
	assert.Equal(t, int64(3), got)
	assert.False(t, r.Has("raw"))
}

func TestResolveOperations(t *testing.T) {
	r := build(t, map[string]config.InputMapping{
		"temp_f":  {Operation: "celsius_to_fahrenheit", ContextKey: "temp_c"},
		"avg":     {Operation: "average", Sources: []string{"a", "b", "c"}},
		"ratio":   {Operation: "divide", Sources: []string{"a", "zero"}, Default: "--"},
		"scaled":  {Operation: "linear_transform", ContextKey: "a", Divide: fptr(0), Default: int64(0)},
		"none":    {Operation: "average", Default: "empty"},
		"percent": {Operation: "linear_transform", ContextKey: "a", Multiply: fptr(100), Transform: "str"},
	})
	ctx := map[string]any{"temp_c": int64(0), "a": int64(1), "b": int64(2), "c": int64(3), "zero": int64(0)}

	assert.Equal(t, 32.0, r.Value("temp_f", ctx))
	assert.Equal(t, 2.0, r.Value("avg", ctx))
	assert.Equal(t, "--", r.Value("ratio", ctx))
	assert.Equal(t, int64(0), r.Value("scaled", ctx))
	assert.Equal(t, "empty", r.Value("none", ctx))
	assert.Equal(t, "100.0", r.Value("percent", ctx))
}

func TestBuildRejectsUnknownOperation(t *testing.T) {
	_, err := Build(map[string]config.InputMapping{"x": {Operation: "sqrt"}})
	var unknown operations.ErrUnknownOperation
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "sqrt", unknown.Name)

	_, err = Build(map[string]config.InputMapping{"x": {Pattern: "("}})
	assert.ErrorContains(t, err, "invalid pattern")
}

func TestEvaluateAccumulates(t *testing.T) {
	mappings := map[string]config.InputMapping{
		"total":    {Operation: "add", Sources: []string{"subtotal", "tax"}},
		"subtotal": {Operation: "multiply", Sources: []string{"price", "qty"}},
		"tax":      {Operation: "linear_transform", ContextKey: "subtotal", Multiply: fptr(0.5)},
		"label":    {ContextKey: "name", Transform: "upper"},
	}
	r := build(t, mappings, WithOrder([]string{"label", "total", "tax", "subtotal"}))
	assert.Equal(t, []string{"label", "subtotal", "tax", "total"}, r.Names())

	ctx := map[string]any{"price": 2.0, "qty": int64(3), "name": "widget"}
	out, err := r.Evaluate(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 6.0, out["subtotal"])
	assert.Equal(t, 3.0, out["tax"])
	assert.Equal(t, 9.0, out["total"])
	assert.Equal(t, "WIDGET", out["label"])
	assert.NotContains(t, ctx, "total")

	// Without accumulation the operation cannot see other inputs.
	assert.Nil(t, r.Value("total", ctx))
}

func TestBuildRejectsCycles(t *testing.T) {
	_, err := Build(map[string]config.InputMapping{
		"a": {Operation: "add", Sources: []string{"b"}},
		"b": {Operation: "add", Sources: []string{"a"}},
	})
	assert.ErrorContains(t, err, "cyclic sources")
}

func TestPythonFunctionHook(t *testing.T) {
	r := build(t, map[string]config.InputMapping{
		"volume":  {PythonFunction: "price * qty"},
		"failing": {PythonFunction: "undefined_name + 1", Default: "fallback"},
		"upper":   {PythonFunction: "ctx['name']", Transform: "upper"},
	})
	ctx := map[string]any{"price": 2.5, "qty": int64(4), "name": "btc"}
	assert.Equal(t, 10.0, r.Value("volume", ctx))
	assert.Equal(t, "fallback", r.Value("failing", ctx))
	assert.Equal(t, "BTC", r.Value("upper", ctx))
}

type stubHook map[string]any

func (h stubHook) Eval(expr string, _ map[string]any) (any, error) {
	v, ok := h[expr]
	if !ok {
		return nil, errors.New("no such expression")
	}
	return v, nil
}

func TestCustomHook(t *testing.T) {
	r := build(t, map[string]config.InputMapping{"x": {PythonFunction: "answer"}}, WithHook(stubHook{"answer": int64(42)}))
	assert.Equal(t, int64(42), r.Value("x", nil))
}

func TestValidationStrategies(t *testing.T) {
	r := build(t, map[string]config.InputMapping{
		"level":   {ContextKey: "level", Type: "int", MinValue: fptr(0), MaxValue: fptr(10), Default: int64(5)},
		"clamped": {ContextKey: "level", Type: "int", MaxValue: fptr(10), OnValidationError: "coerce", Default: int64(0)},
		"parsed":  {ContextKey: "count", Type: "int", OnValidationError: "coerce"},
		"badnum":  {ContextKey: "word", Type: "float", OnValidationError: "coerce", Default: 1.5},
		"strict":  {ContextKey: "level", MaxValue: fptr(10), OnValidationError: "raise"},
		"dropped": {ContextKey: "word", Pattern: "^[0-9]+$", OnValidationError: "skip", Default: "d"},
		"code":    {ContextKey: "word", MaxLength: iptr(3), OnValidationError: "coerce"},
		"choice":  {ContextKey: "word", AllowedValues: []any{"alpha", "beta"}, Default: "alpha"},
		"tags":    {ContextKey: "tags", Type: "list", MinItems: iptr(1), MaxItems: iptr(2), OnValidationError: "coerce"},
		"enabled": {ContextKey: "on", Type: "bool", OnValidationError: "coerce"},
	})
	ctx := map[string]any{
		"level": int64(12),
		"count": "17",
		"word":  "gamma",
		"tags":  []any{"a", "b", "c"},
		"on":    "yes",
	}

	assert.Equal(t, int64(5), r.Value("level", ctx))
	assert.Equal(t, int64(10), r.Value("clamped", ctx))
	assert.Equal(t, int64(17), r.Value("parsed", ctx))
	assert.Equal(t, 1.5, r.Value("badnum", ctx))
	assert.Nil(t, r.Value("dropped", ctx))
	assert.Equal(t, "gam", r.Value("code", ctx))
	assert.Equal(t, "alpha", r.Value("choice", ctx))
	assert.Equal(t, []any{"a", "b"}, r.Value("tags", ctx))
	assert.Equal(t, true, r.Value("enabled", ctx))

	_, err := r.Resolve("strict", ctx)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "strict", verr.Input)
	assert.Equal(t, "max_value 10.0", verr.Constraint)
	assert.Equal(t, int64(12), verr.Value)

	_, err = r.Evaluate(ctx, []string{"level", "strict", "code"})
	require.ErrorAs(t, err, &verr)

	evaluated, err := r.Evaluate(ctx, []string{"dropped", "code"})
	require.NoError(t, err)
	assert.NotContains(t, evaluated, "dropped")
	assert.Equal(t, "gam", evaluated["code"])

	ok, err := r.Resolve("level", map[string]any{"level": int64(3)})
	require.NoError(t, err)
	assert.Equal(t, int64(3), ok)
}

func TestBuildRejectsNegativeLimits(t *testing.T) {
	tests := map[string]config.InputMapping{
		"max_length": {ContextKey: "s", Type: "str", MaxLength: iptr(-2), OnValidationError: "coerce"},
		"min_length": {ContextKey: "s", MinLength: iptr(-1)},
		"max_items":  {ContextKey: "s", Type: "list", MaxItems: iptr(-1), OnValidationError: "coerce"},
		"min_items":  {ContextKey: "s", Type: "list", MinItems: iptr(-3)},
	}
	for limit, m := range tests {
		t.Run(limit, func(t *testing.T) {
			_, err := Build(map[string]config.InputMapping{
				"good": {ContextKey: "s"},
				"bad":  m,
			})
			require.Error(t, err)
			assert.Contains(t, err.Error(), "input bad: "+limit+" must not be negative")
		})
	}
}

func TestCoerceIgnoresNegativeLimits(t *testing.T) {
	f := &field{name: "bad", mapping: config.InputMapping{MaxLength: iptr(-2), MaxItems: iptr(-1)}}
	assert.NotPanics(t, func() {
		_, ok := coerce(f, "abc")
		assert.False(t, ok)
		_, ok = coerce(f, []any{"a", "b"})
		assert.False(t, ok)
	})
}

func TestFromConfig(t *testing.T) {
	cfg, err := config.Parse([]byte(`
[inputs.second]
operation = "add"
sources = ["first", "first"]

[inputs.first]
context_key = "n"
`), config.FormatTOML)
	require.NoError(t, err)

	r, err := FromConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, r.Names())
	m, ok := r.Mapping("second")
	require.True(t, ok)
	assert.Equal(t, "add", m.Operation)

	out, err := r.Evaluate(map[string]any{"n": int64(2)}, nil)
	require.NoError(t, err)
	assert.Equal(t, 4.0, out["second"])
}
