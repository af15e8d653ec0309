// Package sources defines the contracts for the three external data
// collaborators. The pipeline treats all of them as unreliable: a failure
// is recorded and tolerated, never retried here and never fatal.
package sources

import (
	"context"

	"github.com/andes-group/invest-cli/internal/model"
)

// Extractor produces a PropertySnapshot from a listing URL.
type Extractor interface {
	Extract(ctx context.Context, listingURL string) (*model.PropertySnapshot, error)
}

// SearchQuery parameterizes a comparable-listings search.
type SearchQuery struct {
	PropertyType    string
	TransactionType string
	Location        string
	MaxPages        int
	Filter          *SearchFilter
}

// SearchFilter holds optional minimums applied to comparables.
type SearchFilter struct {
	MinBedrooms  int
	MinBathrooms int
	MinAreaM2    float64
	MinParking   int
}

// ComparableSearcher returns a bounded ordered comparable set.
type ComparableSearcher interface {
	Search(ctx context.Context, q SearchQuery) ([]model.ComparableListing, error)
}

// LoanSimulator resolves best offers for (principal, term) pairs sharing
// one principal.
type LoanSimulator interface {
	Simulate(ctx context.Context, principalUF float64, termsYears []int) (*model.LoanComparison, error)
}
