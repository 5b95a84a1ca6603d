package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/neurodesk/viewtext/pkg/value"
)

// DefaultFile is the configuration file looked up when none is given.
const DefaultFile = "layouts.toml"

// Format is a configuration file syntax.
type Format int

const (
	FormatTOML Format = iota
	FormatYAML
)

// FormatFor picks the syntax from a file extension; anything that is not
// YAML is read as TOML.
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	}
	return FormatTOML
}

// Parse decodes one configuration document.
func Parse(data []byte, format Format) (*Config, error) {
	var cfg Config
	switch format {
	case FormatYAML:
		var doc yaml.Node
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parsing yaml: %w", err)
		}
		if len(doc.Content) == 0 {
			break
		}
		dec := doc.Content[0]
		if err := dec.Decode(&cfg); err != nil {
			return nil, fmt.Errorf("decoding yaml: %w", err)
		}
		cfg.InputOrder = yamlInputOrder(dec)
	default:
		md, err := toml.NewDecoder(bytes.NewReader(data)).Decode(&cfg)
		if err != nil {
			return nil, fmt.Errorf("parsing toml: %w", err)
		}
		cfg.InputOrder = tomlInputOrder(md)
	}
	normalize(&cfg)
	return &cfg, nil
}

// ParseFile reads and decodes a single configuration file.
func ParseFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	cfg, err := Parse(data, FormatFor(path))
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadFiles reads every path and merges them left to right: entries in
// later files replace same-named entries from earlier ones.
func LoadFiles(paths ...string) (*Config, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("no configuration files given")
	}
	var merged *Config
	for _, p := range paths {
		cfg, err := ParseFile(p)
		if err != nil {
			return nil, err
		}
		if merged == nil {
			merged = cfg
			continue
		}
		Merge(merged, cfg)
	}
	return merged, nil
}

// Merge copies every entry of src into dst, replacing same-named entries.
func Merge(dst, src *Config) {
	dst.Layouts = mergeMap(dst.Layouts, src.Layouts)
	dst.Formatters = mergeMap(dst.Formatters, src.Formatters)
	dst.Presenters = mergeMap(dst.Presenters, src.Presenters)

	seen := make(map[string]bool, len(dst.InputOrder))
	for _, n := range dst.InputOrder {
		seen[n] = true
	}
	for _, n := range src.InputOrder {
		if !seen[n] {
			dst.InputOrder = append(dst.InputOrder, n)
			seen[n] = true
		}
	}
	dst.Inputs = mergeMap(dst.Inputs, src.Inputs)

	if src.ContextProvider != "" {
		dst.ContextProvider = src.ContextProvider
	}
}

func mergeMap[T any](dst, src map[string]T) map[string]T {
	if len(src) == 0 {
		return dst
	}
	if dst == nil {
		dst = make(map[string]T, len(src))
	}
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func tomlInputOrder(md toml.MetaData) []string {
	var order []string
	seen := map[string]bool{}
	for _, k := range md.Keys() {
		if len(k) >= 2 && k[0] == "inputs" && !seen[k[1]] {
			seen[k[1]] = true
			order = append(order, k[1])
		}
	}
	return order
}

func yamlInputOrder(root *yaml.Node) []string {
	if root.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(root.Content); i += 2 {
		if root.Content[i].Value != "inputs" {
			continue
		}
		inputs := root.Content[i+1]
		if inputs.Kind != yaml.MappingNode {
			return nil
		}
		order := make([]string, 0, len(inputs.Content)/2)
		for j := 0; j+1 < len(inputs.Content); j += 2 {
			order = append(order, inputs.Content[j].Value)
		}
		return order
	}
	return nil
}

// normalize brings decoder-specific value shapes (int vs int64, nested maps)
// to the canonical forms used during resolution, and makes sure every
// declared input appears in InputOrder.
func normalize(cfg *Config) {
	for name, m := range cfg.Inputs {
		m.Constant = value.Normalize(m.Constant)
		m.Default = value.Normalize(m.Default)
		m.IfTrue = value.Normalize(m.IfTrue)
		m.IfFalse = value.Normalize(m.IfFalse)
		for i, v := range m.AllowedValues {
			m.AllowedValues[i] = value.Normalize(v)
		}
		if m.Condition != nil {
			m.Condition.Equals = value.Normalize(m.Condition.Equals)
			m.Condition.NotEquals = value.Normalize(m.Condition.NotEquals)
		}
		cfg.Inputs[name] = m
	}
	for name, l := range cfg.Layouts {
		for i := range l.Lines {
			l.Lines[i].FormatterParams = normalizeParams(l.Lines[i].FormatterParams)
		}
		for i := range l.Items {
			l.Items[i].FormatterParams = normalizeParams(l.Items[i].FormatterParams)
		}
		cfg.Layouts[name] = l
	}
	for name, p := range cfg.Presenters {
		p.FormatterParams = normalizeParams(p.FormatterParams)
		cfg.Presenters[name] = p
	}

	seen := make(map[string]bool, len(cfg.InputOrder))
	for _, n := range cfg.InputOrder {
		seen[n] = true
	}
	for _, n := range SortedNames(cfg.Inputs) {
		if !seen[n] {
			cfg.InputOrder = append(cfg.InputOrder, n)
		}
	}
}

func normalizeParams(p map[string]any) map[string]any {
	if p == nil {
		return nil
	}
	return value.Normalize(p).(map[string]any)
}

// Loader loads configuration files once and caches the result. A Loader
// may be shared between goroutines; the first Load call parses and every
// later call returns the same immutable Config.
type Loader struct {
	paths []string

	once sync.Once
	cfg  *Config
	err  error
}

// NewLoader returns a loader for the given files. With no files it uses
// DefaultFile in the working directory.
func NewLoader(paths ...string) *Loader {
	if len(paths) == 0 {
		paths = []string{DefaultFile}
	}
	return &Loader{paths: paths}
}

// NewStaticLoader wraps an already built Config.
func NewStaticLoader(cfg *Config) *Loader {
	l := &Loader{}
	l.once.Do(func() { l.cfg = cfg })
	return l
}

// Paths returns the files this loader reads.
func (l *Loader) Paths() []string { return l.paths }

// Load parses the configuration on first use.
func (l *Loader) Load() (*Config, error) {
	l.once.Do(func() {
		l.cfg, l.err = LoadFiles(l.paths...)
	})
	return l.cfg, l.err
}

// Layout loads the configuration and returns the named layout.
func (l *Loader) Layout(name string) (*LayoutConfig, error) {
	cfg, err := l.Load()
	if err != nil {
		return nil, err
	}
	return cfg.Layout(name)
}

// InputMappings loads the configuration and returns every input mapping.
func (l *Loader) InputMappings() (map[string]InputMapping, error) {
	cfg, err := l.Load()
	if err != nil {
		return nil, err
	}
	return cfg.InputMappings(), nil
}

// Presenter returns the named presenter. A load failure reads as not found.
func (l *Loader) Presenter(name string) (*PresenterConfig, bool) {
	cfg, err := l.Load()
	if err != nil {
		return nil, false
	}
	return cfg.Presenter(name)
}

// FormatterPreset returns the named formatter preset. A load failure reads
// as not found.
func (l *Loader) FormatterPreset(name string) (*FormatterPreset, bool) {
	cfg, err := l.Load()
	if err != nil {
		return nil, false
	}
	return cfg.FormatterPreset(name)
}

// ContextProvider returns the configured context provider name.
func (l *Loader) ContextProvider() (string, error) {
	cfg, err := l.Load()
	if err != nil {
		return "", err
	}
	return cfg.ContextProviderName(), nil
}
