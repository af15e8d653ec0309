package sources

import (
	"net/url"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/andes-group/invest-cli/internal/model"
)

// Input bounds enforced before any external call is made. Violations are
// the only error category surfaced directly to the caller.
const (
	MinPrincipalUF = 100.0
	MaxPrincipalUF = 20_000.0
	MinTermYears   = 5
	MaxTermYears   = 40
)

// StandardTerms are the three fixed terms every simulation requests.
var StandardTerms = []int{15, 20, 30}

// ValidateRequest checks a report request against the input bounds.
func ValidateRequest(req model.ReportRequest) error {
	if err := ValidateListingURL(req.ListingURL); err != nil {
		return err
	}
	return ValidatePrincipal(req.PrincipalUF)
}

// ValidateListingURL rejects anything that is not an absolute http(s) URL.
func ValidateListingURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return eris.New("sources: listing URL is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return eris.Wrap(err, "sources: invalid listing URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return eris.Errorf("sources: listing URL must be http(s), got %q", u.Scheme)
	}
	if u.Host == "" {
		return eris.New("sources: listing URL has no host")
	}
	return nil
}

// ValidatePrincipal checks the UF principal bounds.
func ValidatePrincipal(principalUF float64) error {
	if principalUF < MinPrincipalUF || principalUF > MaxPrincipalUF {
		return eris.Errorf("sources: principal %.1f UF out of range [%.0f, %.0f]",
			principalUF, MinPrincipalUF, MaxPrincipalUF)
	}
	return nil
}

// ValidateTerms checks every term's bounds and requires exactly three.
func ValidateTerms(terms []int) error {
	if len(terms) != 3 {
		return eris.Errorf("sources: exactly 3 terms required, got %d", len(terms))
	}
	for _, t := range terms {
		if t < MinTermYears || t > MaxTermYears {
			return eris.Errorf("sources: term %d years out of range [%d, %d]",
				t, MinTermYears, MaxTermYears)
		}
	}
	return nil
}
