// Package netcache fetches HTTP documents through a small on-disk cache
// that revalidates with ETag and Last-Modified.
package netcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// Cache is a persistent HTTP cache. The zero value is not usable; use New.
type Cache struct {
	Dir     string
	Client  *http.Client
	Logger  *slog.Logger
	Retries int
	Backoff time.Duration
}

// New returns a cache storing documents under dir.
func New(dir string) *Cache {
	return &Cache{
		Dir:     dir,
		Client:  &http.Client{Timeout: 30 * time.Second},
		Logger:  slog.Default(),
		Retries: 3,
		Backoff: 500 * time.Millisecond,
	}
}

// DefaultDir is the per-user cache directory.
func DefaultDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "viewtext", "http")
	}
	return filepath.Join(os.TempDir(), "viewtext-http")
}

type meta struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	DataFile     string    `json:"data_file"`
	FetchedAt    time.Time `json:"fetched_at"`
}

// Fetch returns the body of url. A cached copy is revalidated with a
// conditional request; when the server cannot be reached the cached copy is
// returned as is. fromCache reports whether the body came from disk.
func (c *Cache) Fetch(ctx context.Context, url string) (body []byte, fromCache bool, err error) {
	key := hash(url)
	mpath := filepath.Join(c.Dir, key+".json")
	dpath := filepath.Join(c.Dir, key+".data")

	var m meta
	cached := false
	if b, err := os.ReadFile(mpath); err == nil && json.Unmarshal(b, &m) == nil && m.URL == url && fileExists(dpath) {
		cached = true
	}

	var lastErr error
	for attempt := 0; attempt < max(c.Retries, 1); attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return c.stale(cached, dpath, ctx.Err())
			case <-time.After(c.Backoff << (attempt - 1)):
			}
		}
		body, notModified, retry, err := c.get(ctx, url, cached, m)
		if err == nil {
			if notModified {
				data, err := os.ReadFile(dpath)
				return data, true, err
			}
			if err := c.store(mpath, dpath, url, body); err != nil {
				c.logger().Warn("could not cache response", "url", url, "error", err)
			}
			return body.data, false, nil
		}
		lastErr = err
		if !retry {
			break
		}
		c.logger().Debug("fetch failed, retrying", "url", url, "attempt", attempt+1, "error", err)
	}
	return c.stale(cached, dpath, lastErr)
}

type response struct {
	data         []byte
	etag         string
	lastModified string
}

// get performs one request. retry reports whether the failure is worth
// another attempt: network errors and 5xx are, other statuses are not.
func (c *Cache) get(ctx context.Context, url string, conditional bool, m meta) (*response, bool, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, false, err
	}
	req.Header.Set("Accept", "application/json")
	if conditional {
		if m.ETag != "" {
			req.Header.Set("If-None-Match", m.ETag)
		}
		if m.LastModified != "" {
			req.Header.Set("If-Modified-Since", m.LastModified)
		}
	}
	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, false, true, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotModified && conditional:
		return nil, true, false, nil
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, false, true, err
		}
		return &response{
			data:         data,
			etag:         resp.Header.Get("ETag"),
			lastModified: resp.Header.Get("Last-Modified"),
		}, false, false, nil
	}
	return nil, false, resp.StatusCode >= 500, fmt.Errorf("GET %s: HTTP %d", url, resp.StatusCode)
}

func (c *Cache) stale(cached bool, dpath string, cause error) ([]byte, bool, error) {
	if cached {
		if data, err := os.ReadFile(dpath); err == nil {
			c.logger().Warn("using cached copy", "path", dpath, "error", cause)
			return data, true, nil
		}
	}
	return nil, false, cause
}

func (c *Cache) store(mpath, dpath, url string, r *response) error {
	if err := os.MkdirAll(c.Dir, 0o755); err != nil {
		return err
	}
	if err := writeAtomic(dpath, r.data); err != nil {
		return err
	}
	b, err := json.MarshalIndent(meta{
		URL:          url,
		ETag:         r.etag,
		LastModified: r.lastModified,
		DataFile:     filepath.Base(dpath),
		FetchedAt:    time.Now().UTC(),
	}, "", "  ")
	if err != nil {
		return err
	}
	return writeAtomic(mpath, b)
}

func (c *Cache) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}

func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func hash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func fileExists(p string) bool {
	st, err := os.Stat(p)
	return err == nil && !st.IsDir()
}
