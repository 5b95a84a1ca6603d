package formatters

import (
	"regexp"
	"strings"

	"github.com/neurodesk/viewtext/pkg/chain"
	"github.com/neurodesk/viewtext/pkg/value"
)

var placeholderRe = regexp.MustCompile(`\{\{\s*([^{}]+?)\s*\}\}`)

// Placeholders lists the field names referenced by tmpl in order of
// appearance, without duplicates.
func Placeholders(tmpl string) []string {
	var out []string
	seen := map[string]bool{}
	for _, m := range placeholderRe.FindAllStringSubmatch(tmpl, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			out = append(out, m[1])
		}
	}
	return out
}

// CommonPrefix returns p when every field has the form "p.rest".
func CommonPrefix(fields []string) (string, bool) {
	if len(fields) == 0 {
		return "", false
	}
	p, _, ok := strings.Cut(fields[0], ".")
	if !ok || p == "" {
		return "", false
	}
	for _, f := range fields[1:] {
		if !strings.HasPrefix(f, p+".") {
			return "", false
		}
	}
	return p, true
}

// WrapPrefix applies the common-prefix rule: a mapping value whose fields
// all start with "p." but which has no mapping under p is taken to be the
// p object itself and is wrapped as {p: v}.
func WrapPrefix(v any, fields []string) any {
	m, ok := v.(map[string]any)
	if !ok {
		return v
	}
	p, ok := CommonPrefix(fields)
	if !ok {
		return v
	}
	if _, nested := m[p].(map[string]any); nested {
		return v
	}
	return map[string]any{p: v}
}

// formatTemplate substitutes {{field}} placeholders. A mapping value is
// searched first; then a field is resolved as an input, then read from the
// context, and finally its first segment is resolved and the rest indexed
// as attributes. Missing fields render empty.
func formatTemplate(v any, params map[string]any, env *Env) (string, error) {
	tmpl := stringParam(params, "template", "")
	if tmpl == "" {
		return value.String(v), nil
	}
	fields := stringsParam(params, "fields")
	if len(fields) == 0 {
		fields = Placeholders(tmpl)
	}
	v = WrapPrefix(v, fields)

	var firstErr error
	out := placeholderRe.ReplaceAllStringFunc(tmpl, func(match string) string {
		name := placeholderRe.FindStringSubmatch(match)[1]
		fv, err := lookupField(name, v, env)
		if err != nil && firstErr == nil {
			firstErr = err
		}
		return value.String(fv)
	})
	return out, firstErr
}

func lookupField(name string, v any, env *Env) (any, error) {
	if m, ok := v.(map[string]any); ok {
		if fv, ok := index(m, name); ok {
			return fv, nil
		}
	}
	if env == nil {
		return nil, nil
	}

	if env.Resolver != nil && env.Resolver.Has(name) {
		return env.Resolver.Resolve(name, env.Context)
	}
	if fv, ok := env.Context[name]; ok {
		return fv, nil
	}

	base, rest, dotted := strings.Cut(name, ".")
	if !dotted {
		return nil, nil
	}
	var root any
	if env.Resolver != nil && env.Resolver.Has(base) {
		r, err := env.Resolver.Resolve(base, env.Context)
		if err != nil {
			return nil, err
		}
		root = r
	} else {
		root = env.Context[base]
	}
	if root == nil {
		return nil, nil
	}
	fv, err := chain.Resolve(chain.Parse("v."+rest), map[string]any{"v": root})
	if err != nil {
		env.logger().Debug("template field not found", "field", name, "error", err)
		return nil, nil
	}
	return fv, nil
}

// index walks a dotted path through nested string-keyed maps.
func index(m map[string]any, path string) (any, bool) {
	var cur any = m
	for _, seg := range strings.Split(path, ".") {
		mm, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = mm[seg]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}
