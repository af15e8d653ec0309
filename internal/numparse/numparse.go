// Package numparse converts locale-formatted numeric strings into floats.
//
// Chilean listings mix thousands-dot and decimal-comma conventions:
// "6.900" is six thousand nine hundred, "6,5" is six and a half, and
// "$2.300.000" is a peso amount. Every price, rent or payment string in
// the pipeline goes through this package; callers must not reimplement
// these rules.
package numparse

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// ErrNotNumeric is returned when the cleaned string is not purely numeric.
var ErrNotNumeric = eris.New("numparse: not a numeric string")

// currency and unit markers stripped before parsing, longest first.
var prefixes = []string{"CLP$", "CLP", "U.F.", "UF$", "UF", "CL$", "$"}

// Parse converts a locale-formatted numeric string into a float64.
//
// Rules, in order:
//   - both "." and "," present: "." is the thousands separator, "," the
//     decimal point ("1.234.567,89" → 1234567.89)
//   - only "," present: decimal point ("6,5" → 6.5)
//   - only "." present: a single dot followed by exactly three digits is a
//     thousands separator ("6.900" → 6900); one or two trailing digits make
//     it a decimal point ("6.5" → 6.5, "6.50" → 6.5)
func Parse(s string) (float64, error) {
	cleaned := stripMarkers(s)
	if cleaned == "" {
		return 0, ErrNotNumeric
	}

	neg := false
	if strings.HasPrefix(cleaned, "-") {
		neg = true
		cleaned = cleaned[1:]
	}

	hasDot := strings.Contains(cleaned, ".")
	hasComma := strings.Contains(cleaned, ",")

	switch {
	case hasDot && hasComma:
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		cleaned = strings.Replace(cleaned, ",", ".", 1)
	case hasComma:
		cleaned = strings.Replace(cleaned, ",", ".", 1)
	case hasDot:
		cleaned = normalizeDots(cleaned)
	}

	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, eris.Wrapf(ErrNotNumeric, "%q", s)
	}
	if neg {
		v = -v
	}
	return v, nil
}

// ParseOr parses s and returns def on failure. For call sites where a
// missing value degrades gracefully instead of propagating an error.
func ParseOr(s string, def float64) float64 {
	v, err := Parse(s)
	if err != nil {
		return def
	}
	return v
}

// normalizeDots resolves dot-only strings: dots followed by exactly three
// digits are thousands separators, a final group of one or two digits is a
// decimal part.
func normalizeDots(s string) string {
	groups := strings.Split(s, ".")
	last := groups[len(groups)-1]

	// All separator groups must be exactly three digits for the thousands
	// reading; "1.23.4" falls through to ParseFloat and fails there.
	thousands := len(last) == 3
	for _, g := range groups[1 : len(groups)-1] {
		if len(g) != 3 {
			thousands = false
		}
	}

	if thousands {
		return strings.Join(groups, "")
	}
	if len(groups) == 2 && len(last) >= 1 && len(last) <= 2 {
		return groups[0] + "." + last
	}
	// Multi-dot strings with a short tail: leading dots are thousands and
	// the final short group is decimal ("1.234.5" → 1234.5), but only when
	// every interior group is a valid three-digit thousands group.
	if len(groups) > 2 && len(last) < 3 {
		for _, g := range groups[1 : len(groups)-1] {
			if len(g) != 3 {
				return s
			}
		}
		return strings.Join(groups[:len(groups)-1], "") + "." + last
	}
	return s
}

// stripMarkers removes currency/unit prefixes, spaces and grouping
// artifacts, keeping only digits, separators and an optional sign.
func stripMarkers(s string) string {
	s = strings.TrimSpace(s)
	upper := strings.ToUpper(s)
	for _, p := range prefixes {
		if strings.HasPrefix(upper, p) {
			s = strings.TrimSpace(s[len(p):])
			break
		}
	}

	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r == '.', r == ',', r == '-':
			b.WriteRune(r)
		case r == ' ', r == ' ', r == ' ':
			// Grouping spaces are dropped.
		default:
			// Any other rune makes the string non-numeric.
			return ""
		}
	}
	return b.String()
}
