// Package currency parses the free-form amount strings the operator types
// into quote forms ("R$ 1.234,56", "150", "10,00").
//
// Grammar: an optional "R$" prefix, optional thousands dots, an optional
// decimal comma. Everything that is not a digit, comma, dot or minus sign
// is stripped, the first comma becomes a dot, and the result is parsed as
// a float. A single decimal separator is assumed; this is not a general
// currency parser.
package currency

import (
	"strconv"
	"strings"
)

// ParseAmount converts a locale-formatted currency string into a numeric
// amount. Absent or unparseable values are treated as 0.
func ParseAmount(s string) float64 {
	if s == "" {
		return 0
	}

	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r == ',', r == '.', r == '-':
			b.WriteRune(r)
		}
	}

	cleaned := b.String()
	if i := strings.Index(cleaned, ","); i >= 0 {
		// "1.234,56" -> "1234.56": dots before the decimal comma are
		// thousands separators.
		cleaned = strings.ReplaceAll(cleaned[:i], ".", "") + "." + strings.Replace(cleaned[i+1:], ",", "", -1)
	}

	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return v
}
