package engine

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neurodesk/viewtext/pkg/config"
	"github.com/neurodesk/viewtext/pkg/inputs"
)

const layoutsTOML = `
[inputs.temp_f]
operation = "celsius_to_fahrenheit"
context_key = "temp_c"

[inputs.symbol]
context_key = "ticker.symbol"
transform = "upper"

[inputs.level]
context_key = "level"
max_value = 10.0
on_validation_error = "raise"

[inputs.subtotal]
operation = "multiply"
sources = ["price", "qty"]

[inputs.total]
operation = "add"
sources = ["subtotal", "shipping"]

[formatters.usd]
type = "price"
symbol = "$"
decimals = 2
thousands_sep = ","

[formatters.pair]
type = "template"
template = "{{ticker.symbol}}/{{ticker.quote}}"
fields = ["ticker.symbol", "ticker.quote"]

[presenters.money]
input = "price"
formatter = "usd"

[presenters.plain_money]
input = "qty"
formatter = "number"
formatter_params = { suffix = " pcs" }

[layouts.ticker]
name = "Ticker"

[[layouts.ticker.lines]]
index = 0
input = "symbol"

[[layouts.ticker.lines]]
index = 2
input = "temp_f"
formatter = "number"
formatter_params = { decimals = 1, suffix = "F" }

[[layouts.ticker.lines]]
index = 3
presenter = "money"

[[layouts.ticker.lines]]
index = 4
input = "qty"
presenter = "plain_money"
formatter = "price"

[[layouts.ticker.lines]]
index = 5
input = "ticker"
formatter = "pair"

[[layouts.ticker.lines]]
input = "symbol"

[layouts.card]
name = "Card"

[[layouts.card.items]]
key = "price"
input = "price"
formatter = "usd"

[[layouts.card.items]]
key = "missing"
input = "nothing"

[[layouts.card.items]]
key = "level"
input = "level"

[[layouts.card.items]]
input = "symbol"

[layouts.totals]
name = "Totals"

[[layouts.totals.lines]]
index = 0
input = "total"
`

func newEngine(t *testing.T, opts ...Option) (*Engine, *config.Config) {
	t.Helper()
	cfg, err := config.Parse([]byte(layoutsTOML), config.FormatTOML)
	require.NoError(t, err)
	e, err := FromConfig(cfg, opts...)
	require.NoError(t, err)
	return e, cfg
}

func sampleContext() map[string]any {
	return map[string]any{
		"temp_c":   int64(0),
		"ticker":   map[string]any{"symbol": "btc", "quote": "USD"},
		"price":    1234.5,
		"qty":      int64(3),
		"shipping": 5.0,
		"level":    int64(3),
	}
}

func TestBuildLines(t *testing.T) {
	e, cfg := newEngine(t)
	layout, err := cfg.Layout("ticker")
	require.NoError(t, err)

	lines := e.BuildLines(layout, sampleContext())
	assert.Equal(t, []string{"BTC", "", "32.0F", "$1,234.50", "3 pcs", "btc/USD"}, lines)
}

func TestSparseIndexes(t *testing.T) {
	e := New()
	idx := func(i int) *int { return &i }
	layout := &config.LayoutConfig{Lines: []config.LineConfig{
		{Index: idx(0), Input: "a"},
		{Index: idx(2), Input: "b"},
		{Index: idx(-1), Input: "a"},
	}}
	lines := e.BuildLines(layout, map[string]any{"a": "x", "b": int64(2)})
	require.Len(t, lines, 3)
	assert.Equal(t, "x", lines[0])
	assert.Equal(t, "", lines[1])
	assert.Equal(t, "2", lines[2])

	assert.Equal(t, []string{""}, e.BuildLines(&config.LayoutConfig{}, nil))
}

func TestBuildDict(t *testing.T) {
	e, cfg := newEngine(t)
	layout, err := cfg.Layout("card")
	require.NoError(t, err)

	out := e.BuildDict(layout, sampleContext())
	assert.Equal(t, map[string]string{"price": "$1,234.50", "missing": "", "level": "3"}, out)
}

func TestRaiseSurfacesThroughRender(t *testing.T) {
	e, cfg := newEngine(t)
	layout, err := cfg.Layout("card")
	require.NoError(t, err)

	ctx := sampleContext()
	ctx["level"] = int64(99)

	out, err := e.RenderDict(layout, ctx)
	var verr *inputs.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "level", verr.Input)
	var slotErr *SlotError
	require.ErrorAs(t, err, &slotErr)
	assert.Equal(t, `item "level"`, slotErr.Slot)

	assert.Equal(t, "", out["level"])
	assert.Equal(t, "$1,234.50", out["price"])

	assert.Equal(t, out, e.BuildDict(layout, ctx))
}

func TestAccumulation(t *testing.T) {
	ctx := sampleContext()

	plain, cfg := newEngine(t)
	layout, err := cfg.Layout("totals")
	require.NoError(t, err)
	assert.Equal(t, []string{""}, plain.BuildLines(layout, ctx))

	acc, _ := newEngine(t, WithAccumulation(true))
	assert.Equal(t, []string{"3708.5"}, acc.BuildLines(layout, ctx))
	assert.NotContains(t, ctx, "subtotal")
}

func TestFormatValuePresets(t *testing.T) {
	e, _ := newEngine(t)

	s, err := e.FormatValue(1234.5, "usd", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "$1,234.50", s)

	// Inline parameters bypass the preset.
	s, err = e.FormatValue(1234.5, "usd", map[string]any{"decimals": int64(1)}, nil)
	require.NoError(t, err)
	assert.Equal(t, "1234.5", s)

	s, err = e.FormatValue(12.0, "anything", map[string]any{"type": "price", "symbol": "€"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "€12.00", s)

	s, err = e.FormatValue("x", "nonexistent", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "x", s)
}

func TestRenderPicksShape(t *testing.T) {
	e, cfg := newEngine(t)
	card, err := cfg.Layout("card")
	require.NoError(t, err)
	res, err := e.Render(card, sampleContext())
	require.NoError(t, err)
	assert.Nil(t, res.Lines)
	assert.Equal(t, "Card", res.Layout)
	assert.Len(t, res.Dict, 3)
}

func TestConcurrentRenders(t *testing.T) {
	e, cfg := newEngine(t)
	layout, err := cfg.Layout("ticker")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			lines := e.BuildLines(layout, sampleContext())
			assert.Equal(t, "BTC", lines[0])
		}()
	}
	wg.Wait()
}
