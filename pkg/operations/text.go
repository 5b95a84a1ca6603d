package operations

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/neurodesk/viewtext/pkg/value"
)

func stringSource(p *Params, ctx map[string]any) (string, string, error) {
	key := p.ContextKey
	if len(p.Sources) > 0 {
		key = p.Sources[0]
	}
	if key == "" {
		return "", "", ErrNoValue
	}
	v, ok := rawSource(ctx, key)
	if !ok {
		return key, "", fmt.Errorf("%q is missing: %w", key, ErrNoValue)
	}
	return key, value.String(v), nil
}

func concat(p *Params, ctx map[string]any) (any, error) {
	if len(p.Sources) == 0 {
		return nil, fmt.Errorf("concat: no sources: %w", ErrNoValue)
	}
	sep := " "
	if p.Separator != nil {
		sep = *p.Separator
	}
	parts := make([]string, 0, len(p.Sources))
	for _, src := range p.Sources {
		v, ok := rawSource(ctx, src)
		if !ok {
			if p.SkipEmpty {
				continue
			}
			return nil, fmt.Errorf("concat: source %q is missing: %w", src, ErrNoValue)
		}
		s := value.String(v)
		if s == "" && p.SkipEmpty {
			continue
		}
		parts = append(parts, s)
	}
	return p.Prefix + strings.Join(parts, sep) + p.Suffix, nil
}

func split(p *Params, ctx map[string]any) (any, error) {
	_, s, err := stringSource(p, ctx)
	if err != nil {
		return nil, fmt.Errorf("split: %w", err)
	}
	var parts []string
	if p.Separator == nil || *p.Separator == "" {
		parts = strings.Fields(s)
	} else {
		parts = strings.Split(s, *p.Separator)
	}
	idx := 0
	if p.Index != nil {
		idx = *p.Index
	}
	if idx < 0 {
		idx += len(parts)
	}
	if idx < 0 || idx >= len(parts) {
		return nil, fmt.Errorf("split: index %d out of range for %d parts: %w", idx, len(parts), ErrNoValue)
	}
	return parts[idx], nil
}

func substring(p *Params, ctx map[string]any) (any, error) {
	_, s, err := stringSource(p, ctx)
	if err != nil {
		return nil, fmt.Errorf("substring: %w", err)
	}
	runes := []rune(s)
	n := len(runes)
	start, end := 0, n
	if p.Start != nil {
		start = *p.Start
	}
	if p.End != nil {
		end = *p.End
	}
	start, end = clampSlice(start, n), clampSlice(end, n)
	if start >= end {
		return "", nil
	}
	return string(runes[start:end]), nil
}

// clampSlice applies slice-index rules: negative indexes count from the
// end and everything clamps into [0, n].
func clampSlice(i, n int) int {
	if i < 0 {
		i += n
	}
	if i < 0 {
		return 0
	}
	if i > n {
		return n
	}
	return i
}

func conditional(p *Params, ctx map[string]any) (any, error) {
	if p.Condition == nil || p.Condition.Field == "" {
		return nil, fmt.Errorf("conditional: no condition: %w", ErrNoValue)
	}
	out := p.IfFalse
	if Evaluate(p.Condition, ctx) {
		out = p.IfTrue
	}
	if out == nil {
		return nil, fmt.Errorf("conditional: selected branch is empty: %w", ErrNoValue)
	}
	if s, ok := out.(string); ok && strings.Contains(s, "{{") {
		return expandReferences(s, ctx), nil
	}
	return out, nil
}

// Evaluate reports whether cond holds against ctx.
func Evaluate(cond *Condition, ctx map[string]any) bool {
	v, ok := rawSource(ctx, cond.Field)
	switch {
	case cond.Exists != nil:
		return ok == *cond.Exists
	case cond.Equals != nil:
		return ok && value.Equal(v, value.Normalize(cond.Equals))
	case cond.NotEquals != nil:
		return !ok || !value.Equal(v, value.Normalize(cond.NotEquals))
	case cond.GreaterThan != nil:
		f, isNum := value.AsFloat(v)
		return ok && isNum && f > *cond.GreaterThan
	case cond.LessThan != nil:
		f, isNum := value.AsFloat(v)
		return ok && isNum && f < *cond.LessThan
	}
	return ok && value.Truthy(v)
}

var referenceRe = regexp.MustCompile(`\{\{\s*([\w.()'", -]+?)\s*\}\}`)

// expandReferences substitutes {{name}} references in s with context
// values. Missing references become empty strings.
func expandReferences(s string, ctx map[string]any) string {
	return referenceRe.ReplaceAllStringFunc(s, func(m string) string {
		name := referenceRe.FindStringSubmatch(m)[1]
		v, ok := rawSource(ctx, name)
		if !ok {
			return ""
		}
		return value.String(v)
	})
}

func formatNumber(p *Params, ctx map[string]any) (any, error) {
	key := p.ContextKey
	if len(p.Sources) > 0 {
		key = p.Sources[0]
	}
	v, ok := numericSource(ctx, key)
	if !ok {
		return nil, fmt.Errorf("format_number: %q is missing or not numeric: %w", key, ErrNoValue)
	}
	decimals := 0
	if p.Decimals != nil {
		decimals = *p.Decimals
	}
	thousands, decimal := ",", "."
	if p.ThousandsSep != nil {
		thousands = *p.ThousandsSep
	}
	if p.DecimalSep != nil {
		decimal = *p.DecimalSep
	}
	return value.FormatNumber(v, decimals, thousands, decimal), nil
}
