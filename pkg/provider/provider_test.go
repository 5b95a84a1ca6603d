package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neurodesk/viewtext/pkg/netcache"
)

func TestDecodeJSON(t *testing.T) {
	m, err := DecodeJSON([]byte(`{"n": 3, "f": 1.5, "nested": {"list": [1, "a"]}}`))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"n":      int64(3),
		"f":      1.5,
		"nested": map[string]any{"list": []any{int64(1), "a"}},
	}, m)

	_, err = DecodeJSON([]byte("  \n"))
	assert.ErrorIs(t, err, ErrEmpty)
	_, err = DecodeJSON([]byte(`[1, 2]`))
	assert.ErrorIs(t, err, ErrNotObject)
	_, err = DecodeJSON([]byte(`{"a":`))
	assert.Error(t, err)
}

func TestResolvePrefersStdin(t *testing.T) {
	ctx := context.Background()

	r := NewResolver(WithStdin(strings.NewReader(`{"symbol": "BTC"}`)))
	m, src, err := r.Resolve(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, SourceStdin, src)
	assert.Equal(t, "BTC", m["symbol"])

	for _, in := range []string{"", "not json"} {
		r = NewResolver(WithStdin(strings.NewReader(in)))
		m, src, err = r.Resolve(ctx, "")
		require.NoError(t, err)
		assert.Equal(t, SourceMock, src)
		assert.Equal(t, Mock(), m)
	}

	r = NewResolver(WithStdin(strings.NewReader(`"text"`)))
	_, _, err = r.Resolve(ctx, "")
	assert.ErrorIs(t, err, ErrNotObject)
}

func TestRegisteredProviders(t *testing.T) {
	reg := NewRegistry()
	reg.Register("ticker", func(context.Context) (map[string]any, error) {
		return map[string]any{"price": 10, "tags": []string{"x"}}, nil
	})
	reg.Register("broken", func(context.Context) (map[string]any, error) {
		return nil, errors.New("offline")
	})
	assert.Equal(t, []string{"broken", "env", "mock", "ticker"}, reg.Names())

	r := NewResolver(WithRegistry(reg))
	m, src, err := r.Resolve(context.Background(), "ticker")
	require.NoError(t, err)
	assert.Equal(t, SourceProvider, src)
	assert.Equal(t, map[string]any{"price": int64(10), "tags": []any{"x"}}, m)

	_, _, err = r.Resolve(context.Background(), "broken")
	assert.ErrorContains(t, err, `context provider "broken": offline`)

	_, _, err = r.Resolve(context.Background(), "nope")
	assert.ErrorContains(t, err, "known providers: broken, env, mock, ticker")

	t.Setenv("VIEWTEXT_TEST_VALUE", "42")
	m, _, err = r.Load(context.Background(), "env")
	require.NoError(t, err)
	assert.Equal(t, "42", m["VIEWTEXT_TEST_VALUE"])
}

func TestScriptAndFileProviders(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ctx.star"), []byte(`
def context():
    return {"temp_c": 21, "city": "Oslo"}
`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ctx.json"), []byte(`{"city": "Bergen"}`), 0o644))

	r := NewResolver(WithBaseDir(dir))
	m, _, err := r.Load(context.Background(), "starlark:ctx.star")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"temp_c": int64(21), "city": "Oslo"}, m)

	m, _, err = r.Load(context.Background(), "ctx.star")
	require.NoError(t, err)
	assert.Equal(t, "Oslo", m["city"])

	m, _, err = r.Load(context.Background(), "ctx.json")
	require.NoError(t, err)
	assert.Equal(t, "Bergen", m["city"])

	m, _, err = r.Load(context.Background(), "file:"+filepath.Join(dir, "ctx.json"))
	require.NoError(t, err)
	assert.Equal(t, "Bergen", m["city"])

	_, _, err = r.Load(context.Background(), "missing.star")
	assert.Error(t, err)
}

func TestURLProvider(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"price": 99.5}`))
	}))
	defer srv.Close()

	cache := netcache.New(t.TempDir())
	cache.Retries = 1
	r := NewResolver(WithCache(cache))
	m, src, err := r.Load(context.Background(), srv.URL+"/ctx")
	require.NoError(t, err)
	assert.Equal(t, SourceProvider, src)
	assert.Equal(t, 99.5, m["price"])
}
