package formatters

import (
	"github.com/neurodesk/viewtext/pkg/value"
)

func stringParam(params map[string]any, key, def string) string {
	v, ok := params[key]
	if !ok || v == nil {
		return def
	}
	return value.String(v)
}

func intParam(params map[string]any, key string, def int) int {
	v, ok := params[key]
	if !ok || v == nil {
		return def
	}
	i, err := value.ToInt(v)
	if err != nil {
		return def
	}
	return int(i)
}

func boolParam(params map[string]any, key string, def bool) bool {
	v, ok := params[key]
	if !ok || v == nil {
		return def
	}
	return value.Truthy(v)
}

func stringsParam(params map[string]any, key string) []string {
	switch t := params[key].(type) {
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, it := range t {
			out = append(out, value.String(it))
		}
		return out
	case string:
		if t != "" {
			return []string{t}
		}
	}
	return nil
}
