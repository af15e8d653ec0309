package location

import (
	"net/url"
	"strings"

	"go.uber.org/zap"
)

// localityRegion pairs a specific locality with its search region. These
// are checked before the generic comma-split parse so that a
// neighborhood-level hit ("Montemar") resolves to its comuna and region
// rather than whatever trails the address string.
var localityRegions = []struct {
	Locality string
	Search   string
}{
	{"montemar", "Concón, Valparaíso"},
	{"reñaca", "Viña del Mar, Valparaíso"},
	{"concón", "Concón, Valparaíso"},
	{"viña del mar", "Viña del Mar, Valparaíso"},
	{"quilpué", "Quilpué, Valparaíso"},
	{"villa alemana", "Villa Alemana, Valparaíso"},
	{"valparaíso", "Valparaíso, Valparaíso"},
	{"las condes", "Las Condes, Santiago"},
	{"vitacura", "Vitacura, Santiago"},
	{"lo barnechea", "Lo Barnechea, Santiago"},
	{"providencia", "Providencia, Santiago"},
	{"ñuñoa", "Ñuñoa, Santiago"},
	{"la reina", "La Reina, Santiago"},
	{"peñalolén", "Peñalolén, Santiago"},
	{"la florida", "La Florida, Santiago"},
	{"maipú", "Maipú, Santiago"},
	{"la serena", "La Serena, Coquimbo"},
	{"coquimbo", "Coquimbo, Coquimbo"},
	{"concepción", "Concepción, Biobío"},
	{"temuco", "Temuco, Araucanía"},
	{"puerto varas", "Puerto Varas, Los Lagos"},
	{"puerto montt", "Puerto Montt, Los Lagos"},
}

// Derive builds a comparable-search location from the ground-truth
// address. Specific locality patterns are checked first; when none match,
// the address is parsed structurally: the last two comma-separated
// components are read as "comuna, region".
func Derive(address string) string {
	normalized := Normalize(address)

	for _, lr := range localityRegions {
		if strings.Contains(normalized, Normalize(lr.Locality)) {
			return lr.Search
		}
	}

	parts := strings.Split(address, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	var kept []string
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}

	switch {
	case len(kept) >= 2:
		return kept[len(kept)-2] + ", " + kept[len(kept)-1]
	case len(kept) == 1:
		return kept[0]
	default:
		zap.L().Warn("location: could not derive search location", zap.String("address", address))
		return ""
	}
}

// FromURL derives a candidate search location from a listing URL slug.
// Slugs are low-quality input; callers must consistency-check the result
// against the extracted address before trusting it.
func FromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	slug := strings.NewReplacer("-", " ", "_", " ", "/", " ", ".", " ").Replace(u.Path)
	normalized := Normalize(slug)
	for _, lr := range localityRegions {
		if strings.Contains(normalized, Normalize(lr.Locality)) {
			return lr.Search
		}
	}
	return ""
}

// Resolve returns a search location that is consistent with the
// ground-truth address: the derived candidate when it checks out, or a
// fresh derivation (logged) when it does not.
func Resolve(groundTruth, candidate string) (string, Confidence) {
	conf := Check(groundTruth, candidate)
	if conf != ConfidenceLow {
		return candidate, conf
	}

	corrected := Derive(groundTruth)
	zap.L().Info("location: low consistency, re-derived search location",
		zap.String("ground_truth", groundTruth),
		zap.String("candidate", candidate),
		zap.String("corrected", corrected),
	)
	if corrected == "" {
		return candidate, ConfidenceLow
	}
	return corrected, Check(groundTruth, corrected)
}
