package sources

import (
	"testing"

	"github.com/andes-group/invest-cli/internal/model"
)

func TestValidateListingURL(t *testing.T) {
	valid := []string{
		"https://www.portalinmobiliario.com/venta/departamento/concon",
		"http://example.com/listing/123",
	}
	for _, u := range valid {
		if err := ValidateListingURL(u); err != nil {
			t.Errorf("ValidateListingURL(%q): unexpected error: %v", u, err)
		}
	}

	invalid := []string{"", "   ", "ftp://example.com/x", "not a url", "/relative/path"}
	for _, u := range invalid {
		if err := ValidateListingURL(u); err == nil {
			t.Errorf("ValidateListingURL(%q): expected error", u)
		}
	}
}

func TestValidatePrincipal(t *testing.T) {
	for _, p := range []float64{100, 9200, 20000} {
		if err := ValidatePrincipal(p); err != nil {
			t.Errorf("ValidatePrincipal(%v): unexpected error: %v", p, err)
		}
	}
	for _, p := range []float64{0, 99.9, 20001, -500} {
		if err := ValidatePrincipal(p); err == nil {
			t.Errorf("ValidatePrincipal(%v): expected error", p)
		}
	}
}

func TestValidateTerms(t *testing.T) {
	if err := ValidateTerms(StandardTerms); err != nil {
		t.Fatalf("standard terms must validate: %v", err)
	}
	if err := ValidateTerms([]int{15, 20}); err == nil {
		t.Error("two terms must be rejected")
	}
	if err := ValidateTerms([]int{15, 20, 45}); err == nil {
		t.Error("term over 40 years must be rejected")
	}
	if err := ValidateTerms([]int{4, 20, 30}); err == nil {
		t.Error("term under 5 years must be rejected")
	}
}

func TestValidateRequest(t *testing.T) {
	ok := model.ReportRequest{ListingURL: "https://example.com/p/1", PrincipalUF: 9200}
	if err := ValidateRequest(ok); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	bad := model.ReportRequest{ListingURL: "https://example.com/p/1", PrincipalUF: 50}
	if err := ValidateRequest(bad); err == nil {
		t.Error("out-of-range principal must be rejected before any call")
	}
}
