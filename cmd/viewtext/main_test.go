package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/neurodesk/viewtext/pkg/config"
)

const testConfig = `
[inputs.symbol]
context_key = "ticker.symbol"
transform = "upper"

[inputs.total]
operation = "multiply"
sources = ["price", "qty"]

[formatters.usd]
type = "price"
symbol = "$"
decimals = 2

[formatters.pair]
type = "template"
template = "{{ticker.symbol}}/{{ticker.quote}}"
fields = ["ticker.symbol", "ticker.quote"]

[presenters.cost]
input = "total"
formatter = "usd"

[layouts.ticker]
name = "Ticker"

[[layouts.ticker.lines]]
index = 0
input = "symbol"

[[layouts.ticker.lines]]
index = 1
presenter = "cost"

[layouts.card]
name = "Card"

[[layouts.card.items]]
key = "greeting"
input = "demo1"

[[layouts.card.items]]
key = "pair"
input = "ticker"
formatter = "pair"
`

const tickerJSON = `{"ticker": {"symbol": "btc", "quote": "USD"}, "price": 2.5, "qty": 4}`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "layouts.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

// run executes the CLI with stdin as piped input and returns stdout.
func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	err := cmd.Execute()
	return out.String(), err
}

func TestRenderLinesJSON(t *testing.T) {
	cfg := writeConfig(t, testConfig)
	out, err := run(t, tickerJSON, "-c", cfg, "render", "ticker", "--json")
	require.NoError(t, err)
	assert.JSONEq(t, `["BTC", "$10.00"]`, out)
}

func TestRenderDictFallsBackToMockContext(t *testing.T) {
	cfg := writeConfig(t, testConfig)
	out, err := run(t, "", "-c", cfg, "render", "card", "--yaml")
	require.NoError(t, err)
	var got map[string]string
	require.NoError(t, yaml.Unmarshal([]byte(out), &got))
	assert.Equal(t, "Hello", got["greeting"])
	assert.Contains(t, got, "pair")
}

func TestRenderText(t *testing.T) {
	cfg := writeConfig(t, testConfig)
	out, err := run(t, tickerJSON, "-c", cfg, "render", "ticker")
	require.NoError(t, err)
	assert.Contains(t, out, "Rendered Output: ticker")
	assert.Contains(t, out, "0: BTC\n")
	assert.Contains(t, out, "1: $10.00\n")
}

func TestRenderErrors(t *testing.T) {
	cfg := writeConfig(t, testConfig)
	_, err := run(t, "", "-c", cfg, "render", "nope")
	assert.ErrorContains(t, err, "unknown layout: nope")

	_, err = run(t, `[1, 2]`, "-c", cfg, "render", "card")
	assert.ErrorContains(t, err, "JSON object")

	_, err = run(t, "", "-c", filepath.Join(t.TempDir(), "missing.toml"), "render", "card")
	assert.ErrorContains(t, err, "could not find config file")
}

func TestRenderWithScriptProvider(t *testing.T) {
	cfg := writeConfig(t, "context_provider = \"ctx.star\"\n"+testConfig)
	require.NoError(t, os.WriteFile(filepath.Join(filepath.Dir(cfg), "ctx.star"), []byte(`
def context():
    return {"demo1": "from script", "ticker": {"symbol": "eth", "quote": "EUR"}}
`), 0o644))

	out, err := run(t, "", "-c", cfg, "render", "card", "--json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"greeting": "from script", "pair": "eth/EUR"}`, out)
}

func TestRenderInputs(t *testing.T) {
	cfg := writeConfig(t, testConfig)
	out, err := run(t, tickerJSON, "-c", cfg, "render-inputs", "--json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"symbol": "BTC", "total": 10}`, out)

	out, err = run(t, tickerJSON, "-c", cfg, "render-inputs", "--layout", "card")
	require.NoError(t, err)
	assert.Contains(t, out, "No inputs to render")

	out, err = run(t, tickerJSON, "-c", cfg, "render-inputs")
	require.NoError(t, err)
	assert.Contains(t, out, "Rendered Inputs")
	assert.Contains(t, out, `"BTC"`)
	assert.Contains(t, out, "Total inputs rendered: 2")
}

func TestRenderPresenters(t *testing.T) {
	cfg := writeConfig(t, testConfig)
	out, err := run(t, tickerJSON, "-c", cfg, "render-presenters", "--json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"cost": {"input": "total", "raw": 10, "rendered": "$10.00", "formatter": "usd", "params": null}}`, out)
}

func TestTestCommand(t *testing.T) {
	cfg := writeConfig(t, testConfig)
	out, err := run(t, "", "-c", cfg, "test", "total", "price=2.5", "qty=4", "--formatter", "usd")
	require.NoError(t, err)
	assert.Contains(t, out, "Testing Input: total")
	assert.Contains(t, out, "price = 2.5")
	assert.Contains(t, out, "Result: 10.0")
	assert.Contains(t, out, `Formatted: "$10.00"`)

	out, err = run(t, "", "-c", cfg, "test", "symbol", `ticker={"symbol": "sol", "quote": "USD"}`, "--formatter", "pair")
	require.NoError(t, err)
	assert.Contains(t, out, `Result: "SOL"`)

	_, err = run(t, "", "-c", cfg, "test", "missing")
	assert.ErrorContains(t, err, "available: symbol, total")

	_, err = run(t, "", "-c", cfg, "test", "total", "novalue")
	assert.ErrorContains(t, err, "expected key=value")
}

func TestParseContextValues(t *testing.T) {
	ctx, err := parseContextValues([]string{"n=3", "f=1.5", "s='x'", "plain=premium", "list=[1, 2]", "flag=True", "eq=a=b"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"n":     int64(3),
		"f":     1.5,
		"s":     "x",
		"plain": "premium",
		"list":  []any{int64(1), int64(2)},
		"flag":  true,
		"eq":    "a=b",
	}, ctx)
}

func TestCheck(t *testing.T) {
	cfg := writeConfig(t, testConfig)
	out, err := run(t, "", "-c", cfg, "check")
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration is valid")

	bad := writeConfig(t, `
[inputs.x]
operation = "explode"
sources = ["a"]

[inputs.loop_a]
operation = "add"
sources = ["loop_b"]

[layouts.l]
name = "L"

[[layouts.l.lines]]
index = 0
presenter = "ghost"
`)
	out, err = run(t, "", "-c", bad, "check")
	assert.ErrorContains(t, err, "error(s)")
	assert.Contains(t, out, "error:")
	assert.Contains(t, out, "explode")
	assert.Contains(t, out, "ghost")
}

func TestCheckReportsCycles(t *testing.T) {
	cfg := writeConfig(t, `
[inputs.a]
operation = "add"
sources = ["b"]

[inputs.b]
operation = "add"
sources = ["a"]
`)
	out, err := run(t, "", "-c", cfg, "check")
	assert.Error(t, err)
	assert.Contains(t, out, "cyclic")
}

func TestGenerateInputs(t *testing.T) {
	out, err := run(t, `{"name": "John", "geo": {"lat": 1.5}}`, "generate-inputs", "--prefix", "u_")
	require.NoError(t, err)
	cfg, err := config.Parse([]byte(out), config.FormatTOML)
	require.NoError(t, err)
	assert.Equal(t, "name", cfg.Inputs["u_name"].ContextKey)
	assert.Equal(t, "geo.lat", cfg.Inputs["u_geo_lat"].ContextKey)
	assert.Equal(t, "float", cfg.Inputs["u_geo_lat"].Type)

	dest := filepath.Join(t.TempDir(), "inputs.toml")
	_, err = run(t, `{"a": 1}`, "generate-inputs", "-o", dest)
	require.NoError(t, err)
	written, err := config.ParseFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "int", written.Inputs["a"].Type)

	_, err = run(t, `nope`, "generate-inputs")
	assert.Error(t, err)
}

func TestInspectionCommands(t *testing.T) {
	cfg := writeConfig(t, testConfig)
	tests := []struct {
		args []string
		want []string
	}{
		{[]string{"list"}, []string{"Available Layouts", "ticker", "Ticker", "dict", "Total layouts: 2"}},
		{[]string{"show", "ticker"}, []string{"Layout: ticker - Ticker", "symbol", "cost", "Total lines: 2"}},
		{[]string{"show", "card"}, []string{"greeting", "demo1", "Total items: 2"}},
		{[]string{"inputs"}, []string{"Input Mappings", "ticker.symbol", "multiply", `sources=["price", "qty"]`, "upper"}},
		{[]string{"presenters"}, []string{"Presenter Definitions", "cost", "usd"}},
		{[]string{"formatters"}, []string{"Available Formatters", "relative_time", "template", "Total formatters: 7"}},
		{[]string{"templates"}, []string{"Template Formatters", "card (Card)", "{{ticker.symbol}}/{{ticker.quote}}", "ticker.symbol, ticker.quote"}},
		{[]string{"info"}, []string{"Layouts: 2 found", "Inputs: 2 defined", "Global Formatters: 2 defined", "symbol=\"$\""}},
	}
	for _, tt := range tests {
		t.Run(tt.args[0], func(t *testing.T) {
			out, err := run(t, "", append([]string{"-c", cfg}, tt.args...)...)
			require.NoError(t, err)
			for _, w := range tt.want {
				assert.Contains(t, out, w)
			}
		})
	}
}
