package inputs

import (
	"strings"

	"github.com/neurodesk/viewtext/pkg/value"
)

// applyTransform converts v. Unknown transforms leave v unchanged.
func applyTransform(v any, transform string) (any, error) {
	switch transform {
	case "upper":
		return strings.ToUpper(value.String(v)), nil
	case "lower":
		return strings.ToLower(value.String(v)), nil
	case "title":
		return value.Title(value.String(v)), nil
	case "strip":
		return strings.TrimSpace(value.String(v)), nil
	case "int":
		return value.ToInt(v)
	case "float":
		return value.ToFloat(v)
	case "str":
		return value.String(v), nil
	case "bool":
		return value.Truthy(v), nil
	}
	return v, nil
}
