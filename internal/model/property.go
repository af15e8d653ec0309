// Package model defines the data types shared across the report pipeline.
package model

// PropertySnapshot is the extractor's view of a single listing. It is
// produced once per report request and never mutated afterwards.
type PropertySnapshot struct {
	Title       string            `json:"title"`
	PriceUF     float64           `json:"price_uf"`
	PriceCLP    float64           `json:"price_clp"`
	Address     string            `json:"address"`
	Bedrooms    int               `json:"bedrooms"`
	Bathrooms   int               `json:"bathrooms"`
	AreaM2      float64           `json:"area_m2"`
	Description string            `json:"description"`
	Features    map[string]string `json:"features,omitempty"`
	SourceURL   string            `json:"source_url"`
}

// HasPrice reports whether the snapshot carries a usable price in either
// currency representation.
func (p *PropertySnapshot) HasPrice() bool {
	return p != nil && (p.PriceUF > 0 || p.PriceCLP > 0)
}

// ComparableListing is a market comparable returned by the search
// collaborator. Only the subset of snapshot fields needed for rent and
// price comparison is kept.
type ComparableListing struct {
	Title     string  `json:"title"`
	PriceCLP  float64 `json:"price_clp"`
	Address   string  `json:"address"`
	Bedrooms  int     `json:"bedrooms"`
	Bathrooms int     `json:"bathrooms"`
	AreaM2    float64 `json:"area_m2"`
	URL       string  `json:"url,omitempty"`
}

// MaxComparables caps the comparable set size.
const MaxComparables = 25

// LoanScenario is the resolved best offer for one (principal, term) pair.
type LoanScenario struct {
	PrincipalUF float64 `json:"principal_uf"`
	TermYears   int     `json:"term_years"`
	Lender      string  `json:"lender"`
	MonthlyCLP  float64 `json:"monthly_clp"`
	RatePct     float64 `json:"rate_pct"`
	// RawDetail is the simulator's free-text offer breakdown; one-time cost
	// items are extracted from it best-effort (finance.ExtractLoanField).
	RawDetail string `json:"raw_detail,omitempty"`
}

// LoanComparison holds the per-term scenarios for one principal. Results
// for each term are independent and order-insensitive.
type LoanComparison struct {
	PrincipalUF float64        `json:"principal_uf"`
	Scenarios   []LoanScenario `json:"scenarios"`
}

// ScenarioForTerm returns the scenario matching the given term, or nil.
func (lc *LoanComparison) ScenarioForTerm(years int) *LoanScenario {
	if lc == nil {
		return nil
	}
	for i := range lc.Scenarios {
		if lc.Scenarios[i].TermYears == years {
			return &lc.Scenarios[i]
		}
	}
	return nil
}
