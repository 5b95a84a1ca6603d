package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/neurodesk/viewtext/pkg/operations"
	"github.com/neurodesk/viewtext/pkg/validator"
)

var (
	// InputTypes are the accepted values of an input's type.
	InputTypes = []string{"str", "int", "float", "bool", "list", "dict", "any"}
	// ValidationStrategies are the accepted values of on_validation_error.
	ValidationStrategies = []string{"use_default", "coerce", "skip", "raise"}
	// Transforms are the accepted values of an input's transform.
	Transforms = []string{"upper", "lower", "title", "strip", "int", "float", "str", "bool"}
)

// Check validates cfg statically. formatters lists the formatter types
// known to the renderer. Problems that make a layout render wrongly are
// errors; references that merely fall back to the raw context are warnings.
func Check(cfg *Config, formatters []string) *validator.Report {
	r := &validator.Report{}
	catalog := operations.Default()

	knownFormatter := func(name string) bool {
		if slices.Contains(formatters, name) {
			return true
		}
		_, ok := cfg.Formatters[name]
		return ok
	}

	for _, name := range SortedNames(cfg.Formatters) {
		p := cfg.Formatters[name]
		subject := fmt.Sprintf("formatter %q", name)
		if p.Type == "" {
			r.Errorf(subject, "missing type")
			continue
		}
		if !slices.Contains(formatters, p.Type) {
			r.Errorf(subject, "unknown formatter type %q", p.Type)
		}
		if p.Type == "template" {
			if p.Template == nil || *p.Template == "" {
				r.Errorf(subject, "template formatter needs a template")
			}
			if len(p.Fields) == 0 {
				r.Errorf(subject, "template formatter needs fields")
			}
			for _, f := range p.Fields {
				base, _, _ := strings.Cut(f, ".")
				if _, ok := cfg.Inputs[base]; !ok {
					r.Warnf(subject, "field %q does not name a declared input; it resolves from the raw context", f)
				}
			}
		}
		r.Error(subject, validator.MatchesAllowed(deref(p.SymbolPosition), []string{"prefix", "suffix"}, "symbol_position"))
	}

	for _, name := range cfg.InputOrder {
		m, ok := cfg.Inputs[name]
		if !ok {
			continue
		}
		subject := fmt.Sprintf("input %q", name)
		if m.Operation != "" && !catalog.Has(m.Operation) {
			r.Error(subject, operations.ErrUnknownOperation{Name: m.Operation})
		}
		if m.Operation != "" && len(m.Sources) == 0 && m.ContextKey == "" && m.Operation != "conditional" {
			r.Warnf(subject, "operation %q has neither sources nor context_key and always yields the default", m.Operation)
		}
		for _, src := range m.Sources {
			if src == name {
				r.Errorf(subject, "source %q refers to itself", src)
			}
		}
		r.Error(subject, validator.All(
			validator.MatchesAllowed(m.Type, InputTypes, "type"),
			validator.MatchesAllowed(m.OnValidationError, ValidationStrategies, "on_validation_error"),
			validator.MatchesAllowed(m.Transform, Transforms, "transform"),
			validator.Pattern(m.Pattern, "pattern"),
			validator.Range(m.MinValue, m.MaxValue, "value"),
			validator.Range(m.MinLength, m.MaxLength, "length"),
			validator.Range(m.MinItems, m.MaxItems, "items"),
			validator.NonNegative(m.MinLength, "min_length"),
			validator.NonNegative(m.MaxLength, "max_length"),
			validator.NonNegative(m.MinItems, "min_items"),
			validator.NonNegative(m.MaxItems, "max_items"),
			validator.NoDuplicates(m.Sources, "sources"),
		))
	}

	for _, name := range SortedNames(cfg.Presenters) {
		p := cfg.Presenters[name]
		subject := fmt.Sprintf("presenter %q", name)
		if p.Formatter != "" && !knownFormatter(p.Formatter) {
			r.Errorf(subject, "unknown formatter %q", p.Formatter)
		}
		checkInputRef(r, cfg, subject, p.Input)
	}

	for _, name := range cfg.LayoutNames() {
		l := cfg.Layouts[name]
		subject := fmt.Sprintf("layout %q", name)
		if len(l.Lines) > 0 && len(l.Items) > 0 {
			r.Errorf(subject, "declares both lines and items")
		}
		var keys []string
		var indexes []int
		for _, it := range l.Items {
			r.Error(subject, validator.NotEmpty(it.Key, "item key"))
			keys = append(keys, it.Key)
		}
		for _, ln := range l.Lines {
			if ln.Index == nil {
				r.Errorf(subject, "line for input %q has no index", ln.Input)
				continue
			}
			if *ln.Index < 0 {
				r.Errorf(subject, "line index %d is negative", *ln.Index)
			}
			indexes = append(indexes, *ln.Index)
		}
		r.Error(subject, validator.NoDuplicates(keys, "item keys"))
		if err := validator.NoDuplicates(indexes, "line indexes"); err != nil {
			r.Warnf(subject, "%v; the last slot wins", err)
		}
		for _, s := range l.Slots() {
			slot := subject + " " + s.Label
			if s.Presenter != "" {
				if _, ok := cfg.Presenters[s.Presenter]; !ok {
					r.Errorf(slot, "unknown presenter %q", s.Presenter)
				}
			} else if s.Input == "" {
				r.Warnf(slot, "has neither input nor presenter and is skipped")
			}
			if s.Formatter != "" && !knownFormatter(s.Formatter) {
				r.Errorf(slot, "unknown formatter %q", s.Formatter)
			}
			checkInputRef(r, cfg, slot, s.Input)
		}
	}
	return r
}

func checkInputRef(r *validator.Report, cfg *Config, subject, input string) {
	if input == "" {
		return
	}
	if _, ok := cfg.Inputs[input]; !ok {
		r.Warnf(subject, "input %q is not declared; it resolves from the raw context", input)
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
