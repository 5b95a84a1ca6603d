package value

import (
	"strconv"
	"strings"
)

// FormatNumber formats f with a fixed number of decimals, grouping the
// integer part in thousands with thousandsSep (no grouping when empty) and
// using decimalSep as the decimal point.
func FormatNumber(f float64, decimals int, thousandsSep, decimalSep string) string {
	if decimals < 0 {
		decimals = 0
	}
	s := strconv.FormatFloat(f, 'f', decimals, 64)

	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, frac, hasFrac := strings.Cut(s, ".")

	if thousandsSep != "" && len(intPart) > 3 {
		var b strings.Builder
		lead := len(intPart) % 3
		if lead > 0 {
			b.WriteString(intPart[:lead])
		}
		for i := lead; i < len(intPart); i += 3 {
			if b.Len() > 0 {
				b.WriteString(thousandsSep)
			}
			b.WriteString(intPart[i : i+3])
		}
		intPart = b.String()
	}

	if !hasFrac {
		return sign + intPart
	}
	if decimalSep == "" {
		decimalSep = "."
	}
	return sign + intPart + decimalSep + frac
}
