// Package location checks that a derived search location actually points
// at the property's neighborhood. Listing URLs and low-quality inputs
// routinely yield a wrong comuna; comparables searched there would price
// the wrong market.
package location

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Confidence grades the agreement between ground truth and derived
// location.
type Confidence int

const (
	ConfidenceLow Confidence = iota
	ConfidenceMedium
	ConfidenceHigh
)

func (c Confidence) String() string {
	switch c {
	case ConfidenceHigh:
		return "high"
	case ConfidenceMedium:
		return "medium"
	default:
		return "low"
	}
}

// knownLocalities is the curated list of locality names used for the
// shared-keyword check and for re-derivation. Neighborhood-level names
// come before their comuna so the most specific pattern wins.
var knownLocalities = []string{
	"montemar", "reñaca", "concón", "viña del mar", "valparaíso",
	"quilpué", "villa alemana",
	"las condes", "vitacura", "lo barnechea", "providencia", "ñuñoa",
	"la reina", "peñalolén", "la florida", "maipú", "santiago centro",
	"santiago", "huechuraba", "independencia", "recoleta", "macul",
	"san miguel", "estación central",
	"la serena", "coquimbo", "antofagasta", "iquique", "rancagua",
	"talca", "concepción", "temuco", "valdivia", "puerto varas",
	"puerto montt", "punta arenas",
}

// diacritic folder: NFD decompose, drop combining marks, recompose.
var folder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize lowercases and strips diacritics so "Concón" and "concon"
// compare equal.
func Normalize(s string) string {
	folded, _, err := transform.String(folder, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(strings.TrimSpace(folded))
}

// Check compares a ground-truth address against a derived search location.
//
//	exact (normalized) match            → high
//	mutual substring containment        → medium
//	shared known locality name          → medium
//	otherwise                           → low
//
// On low confidence the caller should re-derive the search location from
// the address (Derive) before running the comparable search.
func Check(groundTruth, derived string) Confidence {
	gt := Normalize(groundTruth)
	dv := Normalize(derived)
	if gt == "" || dv == "" {
		return ConfidenceLow
	}

	if gt == dv {
		return ConfidenceHigh
	}
	if strings.Contains(gt, dv) || strings.Contains(dv, gt) {
		return ConfidenceMedium
	}

	gtLocs := localitiesIn(gt)
	for loc := range localitiesIn(dv) {
		if gtLocs[loc] {
			return ConfidenceMedium
		}
	}
	return ConfidenceLow
}

// localitiesIn returns the set of known locality names present in a
// normalized string.
func localitiesIn(normalized string) map[string]bool {
	found := make(map[string]bool)
	for _, loc := range knownLocalities {
		if strings.Contains(normalized, Normalize(loc)) {
			found[loc] = true
		}
	}
	return found
}
