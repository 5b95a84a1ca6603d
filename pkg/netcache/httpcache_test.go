package netcache

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *Cache {
	c := New(t.TempDir())
	c.Retries = 1
	c.Backoff = 0
	return c
}

func TestFetchRevalidates(t *testing.T) {
	var hits, notModified atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.Header.Get("If-None-Match") == `"v1"` {
			notModified.Add(1)
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		_, _ = w.Write([]byte(`{"price": 1}`))
	}))
	defer srv.Close()

	c := newTestCache(t)
	body, fromCache, err := c.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.False(t, fromCache)
	assert.JSONEq(t, `{"price": 1}`, string(body))

	body, fromCache, err = c.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.True(t, fromCache)
	assert.JSONEq(t, `{"price": 1}`, string(body))
	assert.Equal(t, int32(2), hits.Load())
	assert.Equal(t, int32(1), notModified.Load())
}

func TestFetchFallsBackToStaleCopy(t *testing.T) {
	var down atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if down.Load() {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"ok": true}`))
	}))
	defer srv.Close()

	c := newTestCache(t)
	_, _, err := c.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)

	down.Store(true)
	body, fromCache, err := c.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.True(t, fromCache)
	assert.JSONEq(t, `{"ok": true}`, string(body))
}

func TestFetchErrorWithoutCache(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, _, err := newTestCache(t).Fetch(context.Background(), srv.URL)
	assert.ErrorContains(t, err, "HTTP 404")
}
