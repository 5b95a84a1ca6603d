package chain

import (
	"fmt"
	"sort"
	"strings"

	"github.com/neurodesk/viewtext/pkg/value"
)

type builtin func(recv any, args []any) (any, error)

var stringMethods = map[string]builtin{
	"upper": func(recv any, args []any) (any, error) {
		return strings.ToUpper(recv.(string)), arity("upper", args, 0, 0)
	},
	"lower": func(recv any, args []any) (any, error) {
		return strings.ToLower(recv.(string)), arity("lower", args, 0, 0)
	},
	"title": func(recv any, args []any) (any, error) {
		return value.Title(recv.(string)), arity("title", args, 0, 0)
	},
	"strip": func(recv any, args []any) (any, error) {
		if err := arity("strip", args, 0, 1); err != nil {
			return nil, err
		}
		if len(args) == 1 && args[0] != nil {
			return strings.Trim(recv.(string), value.String(args[0])), nil
		}
		return strings.TrimSpace(recv.(string)), nil
	},
	"lstrip": func(recv any, args []any) (any, error) {
		return strings.TrimLeft(recv.(string), " \t\n\r"), arity("lstrip", args, 0, 0)
	},
	"rstrip": func(recv any, args []any) (any, error) {
		return strings.TrimRight(recv.(string), " \t\n\r"), arity("rstrip", args, 0, 0)
	},
	"split": func(recv any, args []any) (any, error) {
		if err := arity("split", args, 0, 1); err != nil {
			return nil, err
		}
		s := recv.(string)
		var parts []string
		if len(args) == 0 || args[0] == nil {
			parts = strings.Fields(s)
		} else {
			parts = strings.Split(s, value.String(args[0]))
		}
		out := make([]any, len(parts))
		for i, p := range parts {
			out[i] = p
		}
		return out, nil
	},
	"replace": func(recv any, args []any) (any, error) {
		if err := arity("replace", args, 2, 2); err != nil {
			return nil, err
		}
		return strings.ReplaceAll(recv.(string), value.String(args[0]), value.String(args[1])), nil
	},
	"startswith": func(recv any, args []any) (any, error) {
		if err := arity("startswith", args, 1, 1); err != nil {
			return nil, err
		}
		return strings.HasPrefix(recv.(string), value.String(args[0])), nil
	},
	"endswith": func(recv any, args []any) (any, error) {
		if err := arity("endswith", args, 1, 1); err != nil {
			return nil, err
		}
		return strings.HasSuffix(recv.(string), value.String(args[0])), nil
	},
	"zfill": func(recv any, args []any) (any, error) {
		if err := arity("zfill", args, 1, 1); err != nil {
			return nil, err
		}
		width, err := value.ToInt(args[0])
		if err != nil {
			return nil, err
		}
		s := recv.(string)
		if int64(len(s)) >= width {
			return s, nil
		}
		return strings.Repeat("0", int(width)-len(s)) + s, nil
	},
}

var mapMethods = map[string]builtin{
	"get": func(recv any, args []any) (any, error) {
		if err := arity("get", args, 1, 2); err != nil {
			return nil, err
		}
		m := recv.(map[string]any)
		if v, ok := m[value.String(args[0])]; ok {
			return v, nil
		}
		if len(args) == 2 {
			return args[1], nil
		}
		return nil, nil
	},
	"keys": func(recv any, args []any) (any, error) {
		m := recv.(map[string]any)
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make([]any, len(keys))
		for i, k := range keys {
			out[i] = k
		}
		return out, arity("keys", args, 0, 0)
	},
	"values": func(recv any, args []any) (any, error) {
		m := recv.(map[string]any)
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make([]any, len(keys))
		for i, k := range keys {
			out[i] = m[k]
		}
		return out, arity("values", args, 0, 0)
	},
}

var listMethods = map[string]builtin{
	"index": func(recv any, args []any) (any, error) {
		if err := arity("index", args, 1, 1); err != nil {
			return nil, err
		}
		for i, v := range recv.([]any) {
			if value.Equal(v, args[0]) {
				return int64(i), nil
			}
		}
		return nil, fmt.Errorf("%s is not in list", value.Repr(args[0]))
	},
	"count": func(recv any, args []any) (any, error) {
		if err := arity("count", args, 1, 1); err != nil {
			return nil, err
		}
		var n int64
		for _, v := range recv.([]any) {
			if value.Equal(v, args[0]) {
				n++
			}
		}
		return n, nil
	},
}

func callBuiltin(recv any, name string, args []any) (any, error) {
	var table map[string]builtin
	switch recv.(type) {
	case string:
		table = stringMethods
	case map[string]any:
		table = mapMethods
	case []any:
		table = listMethods
	default:
		return nil, errNotUsable
	}
	fn, ok := table[name]
	if !ok {
		return nil, errNotUsable
	}
	return fn(recv, args)
}

func arity(name string, args []any, lo, hi int) error {
	if len(args) < lo || len(args) > hi {
		if lo == hi {
			return fmt.Errorf("%s() takes %d arguments (%d given)", name, lo, len(args))
		}
		return fmt.Errorf("%s() takes %d to %d arguments (%d given)", name, lo, hi, len(args))
	}
	return nil
}
