// Package chain parses dotted context keys such as
// "portfolio.get_ticker('BTC').price" into a sequence of lookups and replays
// that sequence against a context.
//
// The grammar is lexical on purpose: the first segment is a key lookup, every
// further segment is either an attribute name or a method call with literal
// arguments. Arguments cannot contain nested calls or parentheses.
package chain

import (
	"regexp"
	"strconv"
	"strings"
)

// Kind is the kind of a single chain operation.
type Kind int

const (
	KindKey Kind = iota
	KindAttr
	KindMethod
)

func (k Kind) String() string {
	switch k {
	case KindKey:
		return "key"
	case KindAttr:
		return "attr"
	case KindMethod:
		return "method"
	}
	return "unknown"
}

// Op is one step of a parsed chain.
type Op struct {
	Kind Kind
	Name string
	// Args holds literal method arguments: string, int64, float64, bool or nil.
	Args []any
}

var (
	methodRe = regexp.MustCompile(`^(\w+)\((.*?)\)(\.(.+))?$`)
	attrRe   = regexp.MustCompile(`^(\w+)(\.(.+))?$`)
)

// Parse splits a context key into operations. Parsing never fails; a
// segment that is neither an identifier nor a call ends the chain.
func Parse(key string) []Op {
	var ops []Op
	remaining := key
	if remaining == "" {
		return ops
	}

	head, rest, found := strings.Cut(remaining, ".")
	ops = append(ops, Op{Kind: KindKey, Name: head})
	if !found {
		return ops
	}
	remaining = rest

	for remaining != "" {
		if m := methodRe.FindStringSubmatch(remaining); m != nil {
			ops = append(ops, Op{Kind: KindMethod, Name: m[1], Args: ParseArgs(m[2])})
			remaining = m[4]
			continue
		}
		if m := attrRe.FindStringSubmatch(remaining); m != nil {
			ops = append(ops, Op{Kind: KindAttr, Name: m[1]})
			remaining = m[3]
			continue
		}
		break
	}
	return ops
}

// ParseArgs parses a comma separated list of literal arguments. Commas inside
// quoted strings do not split.
func ParseArgs(s string) []any {
	if strings.TrimSpace(s) == "" {
		return []any{}
	}
	parts := splitArgs(s)
	args := make([]any, 0, len(parts))
	for _, p := range parts {
		args = append(args, parseLiteral(strings.TrimSpace(p)))
	}
	return args
}

func parseLiteral(arg string) any {
	if len(arg) >= 2 {
		if (arg[0] == '\'' && arg[len(arg)-1] == '\'') || (arg[0] == '"' && arg[len(arg)-1] == '"') {
			return arg[1 : len(arg)-1]
		}
	}
	if isNumeric(arg) {
		if strings.Contains(arg, ".") {
			if f, err := strconv.ParseFloat(arg, 64); err == nil {
				return f
			}
		} else if i, err := strconv.ParseInt(arg, 10, 64); err == nil {
			return i
		}
		return arg
	}
	switch strings.ToLower(arg) {
	case "true":
		return true
	case "false":
		return false
	case "none":
		return nil
	}
	return arg
}

// isNumeric reports whether arg is made of digits once signs and decimal
// points are removed.
func isNumeric(arg string) bool {
	digits := 0
	for _, r := range arg {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '-' || r == '.':
		default:
			return false
		}
	}
	return digits > 0
}

func splitArgs(s string) []string {
	var parts []string
	var b strings.Builder
	inStr := byte(0)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inStr != 0 {
			b.WriteByte(c)
			if c == inStr {
				inStr = 0
			}
			continue
		}
		switch c {
		case '\'', '"':
			inStr = c
			b.WriteByte(c)
		case ',':
			parts = append(parts, b.String())
			b.Reset()
		default:
			b.WriteByte(c)
		}
	}
	parts = append(parts, b.String())
	return parts
}

// String renders ops back into a dotted key, mostly for diagnostics.
func String(ops []Op) string {
	var b strings.Builder
	for i, op := range ops {
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(op.Name)
		if op.Kind == KindMethod {
			b.WriteByte('(')
			for j, a := range op.Args {
				if j > 0 {
					b.WriteString(", ")
				}
				b.WriteString(literal(a))
			}
			b.WriteByte(')')
		}
	}
	return b.String()
}

func literal(a any) string {
	switch t := a.(type) {
	case nil:
		return "None"
	case string:
		return "'" + t + "'"
	case bool:
		if t {
			return "True"
		}
		return "False"
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	return ""
}
