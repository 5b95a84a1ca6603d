package formatters

import (
	"fmt"
	"strings"
	"time"

	"github.com/lestrrat-go/strftime"

	"github.com/neurodesk/viewtext/pkg/value"
)

// DefaultDatetimeFormat is the strftime pattern used when none is given.
const DefaultDatetimeFormat = "%Y-%m-%d %H:%M:%S"

func formatText(v any, params map[string]any, _ *Env) (string, error) {
	return stringParam(params, "prefix", "") + value.String(v) + stringParam(params, "suffix", ""), nil
}

func formatTextUppercase(v any, _ map[string]any, _ *Env) (string, error) {
	return strings.ToUpper(value.String(v)), nil
}

// numberText renders f with the decimals and separator parameters. A
// thousands separator is only inserted when one is configured.
func numberText(f float64, params map[string]any, decimals int) string {
	return value.FormatNumber(f, intParam(params, "decimals", decimals),
		stringParam(params, "thousands_sep", ""), stringParam(params, "decimal_sep", "."))
}

func formatPrice(v any, params map[string]any, _ *Env) (string, error) {
	if v == nil {
		return "", nil
	}
	f, err := value.ToFloat(v)
	if err != nil {
		return value.String(v), nil
	}
	s := numberText(f, params, 2)
	symbol := stringParam(params, "symbol", "")
	if symbol == "" {
		return s, nil
	}
	if stringParam(params, "symbol_position", "prefix") == "suffix" {
		return s + symbol, nil
	}
	return symbol + s, nil
}

func formatNumber(v any, params map[string]any, _ *Env) (string, error) {
	if v == nil {
		return "", nil
	}
	f, err := value.ToFloat(v)
	if err != nil {
		return value.String(v), nil
	}
	return stringParam(params, "prefix", "") + numberText(f, params, 0) + stringParam(params, "suffix", ""), nil
}

// formatDatetime accepts time.Time values and Unix timestamps in seconds.
// Strings pass through unchanged. Timestamps render in local time unless
// the utc parameter is set.
func formatDatetime(v any, params map[string]any, env *Env) (string, error) {
	var t time.Time
	switch tv := v.(type) {
	case nil:
		return "", nil
	case string:
		return tv, nil
	case time.Time:
		t = tv
	case *time.Time:
		if tv == nil {
			return "", nil
		}
		t = *tv
	default:
		f, ok := value.AsFloat(v)
		if !ok {
			return value.String(v), nil
		}
		sec := int64(f)
		t = time.Unix(sec, int64((f-float64(sec))*1e9))
	}
	if boolParam(params, "utc", false) {
		t = t.UTC()
	}
	pattern := stringParam(params, "format", DefaultDatetimeFormat)
	s, err := strftime.Format(pattern, t)
	if err != nil {
		env.logger().Debug("bad datetime pattern", "format", pattern, "error", err)
		return t.Format(time.DateTime), nil
	}
	return s, nil
}

func formatRelativeTime(v any, params map[string]any, _ *Env) (string, error) {
	if v == nil {
		return "", nil
	}
	seconds, err := value.ToInt(v)
	if err != nil {
		return value.String(v), nil
	}
	long := stringParam(params, "format", "short") != "short"

	n, short, word := seconds, "s", "seconds"
	switch {
	case seconds < 60:
	case seconds < 3600:
		n, short, word = seconds/60, "m", "minutes"
	case seconds < 86400:
		n, short, word = seconds/3600, "h", "hours"
	default:
		n, short, word = seconds/86400, "d", "days"
	}
	if long {
		return fmt.Sprintf("%d %s ago", n, word), nil
	}
	return fmt.Sprintf("%d%s ago", n, short), nil
}
