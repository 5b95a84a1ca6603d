package config

import (
	"io"

	"github.com/BurntSushi/toml"
)

// GeneratedInput is a passthrough input derived from a sample context.
type GeneratedInput struct {
	ContextKey string `toml:"context_key"`
	Type       string `toml:"type,omitempty"`
}

// GenerateInputs derives a passthrough input for every leaf of data. Nested
// objects are flattened: key b under a becomes input prefix+"a_b" reading
// context key "a.b".
func GenerateInputs(data map[string]any, prefix string) map[string]GeneratedInput {
	out := map[string]GeneratedInput{}
	generateInputs(out, data, prefix, "")
	return out
}

func generateInputs(out map[string]GeneratedInput, data map[string]any, prefix, path string) {
	for key, v := range data {
		name := prefix + key
		ctxKey := key
		if path != "" {
			ctxKey = path + "." + key
		}
		if nested, ok := v.(map[string]any); ok {
			generateInputs(out, nested, name+"_", ctxKey)
			continue
		}
		out[name] = GeneratedInput{ContextKey: ctxKey, Type: inputType(v)}
	}
}

func inputType(v any) string {
	switch v.(type) {
	case nil:
		return "any"
	case bool:
		return "bool"
	case int, int64:
		return "int"
	case float64:
		return "float"
	case string:
		return "str"
	case []any:
		return "list"
	}
	return ""
}

// EncodeInputs writes inputs as TOML [inputs.<name>] tables, sorted by
// name.
func EncodeInputs(w io.Writer, inputs map[string]GeneratedInput) error {
	return toml.NewEncoder(w).Encode(struct {
		Inputs map[string]GeneratedInput `toml:"inputs"`
	}{inputs})
}
