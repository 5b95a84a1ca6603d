package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/neurodesk/viewtext/pkg/netcache"
	vstar "github.com/neurodesk/viewtext/pkg/starlark"
	"github.com/neurodesk/viewtext/pkg/value"
)

// Source says where a resolved context came from.
type Source string

const (
	SourceStdin    Source = "stdin"
	SourceProvider Source = "provider"
	SourceMock     Source = "mock"
)

// Resolver picks the context for a render.
type Resolver struct {
	registry *Registry
	baseDir  string
	stdin    io.Reader
	cache    *netcache.Cache
	logger   *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithRegistry sets the registry named providers are looked up in.
func WithRegistry(reg *Registry) Option {
	return func(r *Resolver) { r.registry = reg }
}

// WithBaseDir sets the directory relative script and file paths are
// resolved against, usually the directory of the first config file.
func WithBaseDir(dir string) Option {
	return func(r *Resolver) { r.baseDir = dir }
}

// WithStdin makes Resolve try JSON from in before the provider. Pass nil
// when stdin is a terminal.
func WithStdin(in io.Reader) Option {
	return func(r *Resolver) { r.stdin = in }
}

// WithCache sets the HTTP cache used for URL providers.
func WithCache(c *netcache.Cache) Option {
	return func(r *Resolver) { r.cache = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

// NewResolver returns a resolver.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	if r.registry == nil {
		r.registry = NewRegistry()
	}
	if r.cache == nil {
		r.cache = netcache.New(netcache.DefaultDir())
		r.cache.Logger = r.logger
	}
	return r
}

// Resolve returns the context for a render. JSON on stdin wins when
// present; blank or malformed stdin falls back to the provider named by
// ref, and an empty ref yields Mock data. Valid JSON that is not an object
// is an error.
func (r *Resolver) Resolve(ctx context.Context, ref string) (map[string]any, Source, error) {
	if r.stdin != nil {
		m, err := ReadJSON(r.stdin)
		switch {
		case err == nil:
			return m, SourceStdin, nil
		case errors.Is(err, ErrNotObject):
			return nil, SourceStdin, err
		default:
			r.logger.Debug("ignoring stdin", "error", err)
		}
	}
	return r.Load(ctx, ref)
}

// Load runs the provider named by ref without looking at stdin. ref is
// one of:
//
//	""                      demo data
//	starlark:path, *.star   a Starlark script defining context
//	http://..., https://... a JSON document fetched through the cache
//	file:path, *.json       a JSON file
//	name                    a registered provider
func (r *Resolver) Load(ctx context.Context, ref string) (map[string]any, Source, error) {
	if ref == "" {
		return Mock(), SourceMock, nil
	}
	m, err := r.load(ctx, ref)
	if err != nil {
		return nil, SourceProvider, fmt.Errorf("context provider %q: %w", ref, err)
	}
	return m, SourceProvider, nil
}

func (r *Resolver) load(ctx context.Context, ref string) (map[string]any, error) {
	switch {
	case strings.HasPrefix(ref, "starlark:"):
		return r.script(strings.TrimPrefix(ref, "starlark:"))
	case strings.HasSuffix(ref, ".star"):
		return r.script(ref)
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		return r.fetch(ctx, ref)
	case strings.HasPrefix(ref, "file:"):
		return r.file(strings.TrimPrefix(ref, "file:"))
	case strings.HasSuffix(ref, ".json"):
		return r.file(ref)
	}
	f, ok := r.registry.Lookup(ref)
	if !ok {
		return nil, fmt.Errorf("not registered; known providers: %s", strings.Join(r.registry.Names(), ", "))
	}
	m, err := f(ctx)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, ErrNotObject
	}
	return value.FromMap(m), nil
}

func (r *Resolver) path(p string) string {
	if filepath.IsAbs(p) || r.baseDir == "" {
		return p
	}
	return filepath.Join(r.baseDir, p)
}

func (r *Resolver) script(p string) (map[string]any, error) {
	path := r.path(p)
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	m, err := vstar.ContextScript(path, src, r.logger)
	if err != nil {
		return nil, err
	}
	return value.FromMap(m), nil
}

func (r *Resolver) file(p string) (map[string]any, error) {
	data, err := os.ReadFile(r.path(p))
	if err != nil {
		return nil, err
	}
	return DecodeJSON(data)
}

func (r *Resolver) fetch(ctx context.Context, url string) (map[string]any, error) {
	data, fromCache, err := r.cache.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("fetched context", "url", url, "from_cache", fromCache)
	return DecodeJSON(data)
}
