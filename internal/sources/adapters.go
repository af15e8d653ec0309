package sources

import (
	"context"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/andes-group/invest-cli/internal/finance"
	"github.com/andes-group/invest-cli/internal/model"
	"github.com/andes-group/invest-cli/internal/numparse"
	"github.com/andes-group/invest-cli/pkg/goplaceit"
	"github.com/andes-group/invest-cli/pkg/mesimulator"
	"github.com/andes-group/invest-cli/pkg/portal"
)

// ufThreshold disambiguates unlabeled prices: Chilean sale prices in UF
// sit in the thousands, CLP prices in the millions.
const ufThreshold = 100_000

// listingFetcher is the portal surface the adapter needs.
type listingFetcher interface {
	Fetch(ctx context.Context, listingURL string) (*portal.RawListing, error)
}

// PortalExtractor adapts the portal client to the Extractor contract,
// parsing display strings into typed fields.
type PortalExtractor struct {
	fetcher    listingFetcher
	ufValueCLP float64
}

// NewPortalExtractor wires a portal-backed extractor.
func NewPortalExtractor(fetcher listingFetcher, ufValueCLP float64) *PortalExtractor {
	return &PortalExtractor{fetcher: fetcher, ufValueCLP: ufValueCLP}
}

func (p *PortalExtractor) Extract(ctx context.Context, listingURL string) (*model.PropertySnapshot, error) {
	raw, err := p.fetcher.Fetch(ctx, listingURL)
	if err != nil {
		return nil, err
	}

	snap := &model.PropertySnapshot{
		Title:       raw.Title,
		Address:     raw.Address,
		Description: raw.Description,
		Features:    raw.Features,
		SourceURL:   raw.URL,
	}

	priceUF, priceCLP := parsePrice(raw.Price, p.ufValueCLP)
	snap.PriceUF = priceUF
	snap.PriceCLP = priceCLP
	if !snap.HasPrice() {
		zap.L().Warn("portal: listing price unparseable",
			zap.String("raw", raw.Price),
			zap.String("url", listingURL))
	}

	snap.Bedrooms = int(numparse.ParseOr(raw.Bedrooms, 0))
	snap.Bathrooms = int(numparse.ParseOr(raw.Bathrooms, 0))
	snap.AreaM2 = numparse.ParseOr(strings.TrimSuffix(strings.TrimSpace(raw.AreaM2), "m2"), 0)

	return snap, nil
}

// parsePrice reads a display price into (UF, CLP). Labeled prices follow
// their label; unlabeled values fall back to the magnitude heuristic.
func parsePrice(raw string, ufValueCLP float64) (priceUF, priceCLP float64) {
	v, err := numparse.Parse(raw)
	if err != nil {
		return 0, 0
	}

	upper := strings.ToUpper(raw)
	isUF := strings.Contains(upper, "UF") || strings.Contains(upper, "U.F.")
	isCLP := !isUF && (strings.Contains(upper, "CLP") || strings.Contains(raw, "$"))

	switch {
	case isUF, !isCLP && v < ufThreshold:
		priceUF = v
		if ufValueCLP > 0 {
			priceCLP = v * ufValueCLP
		}
	default:
		priceCLP = v
	}
	return priceUF, priceCLP
}

// SearchAdapter adapts the goplaceit client to the ComparableSearcher
// contract.
type SearchAdapter struct {
	client     goplaceit.Client
	ufValueCLP float64
}

// NewSearchAdapter wires a goplaceit-backed comparable searcher.
func NewSearchAdapter(client goplaceit.Client, ufValueCLP float64) *SearchAdapter {
	return &SearchAdapter{client: client, ufValueCLP: ufValueCLP}
}

func (s *SearchAdapter) Search(ctx context.Context, q SearchQuery) ([]model.ComparableListing, error) {
	params := goplaceit.SearchParams{
		PropertyType:    q.PropertyType,
		TransactionType: q.TransactionType,
		Location:        q.Location,
		MaxPages:        q.MaxPages,
	}
	if q.Filter != nil {
		params.MinBedrooms = q.Filter.MinBedrooms
		params.MinBathrooms = q.Filter.MinBathrooms
		params.MinAreaM2 = q.Filter.MinAreaM2
		params.MinParking = q.Filter.MinParking
	}

	props, err := s.client.SearchProperties(ctx, params)
	if err != nil {
		return nil, err
	}

	comps := make([]model.ComparableListing, 0, len(props))
	for _, p := range props {
		c := model.ComparableListing{
			Title:     p.Title,
			Address:   p.Address,
			Bedrooms:  p.Bedrooms,
			Bathrooms: p.Bathrooms,
			AreaM2:    numparse.ParseOr(p.AreaM2, 0),
			URL:       p.URL,
		}
		c.PriceCLP = s.priceCLP(p)
		comps = append(comps, c)
		if len(comps) >= model.MaxComparables {
			break
		}
	}
	return comps, nil
}

func (s *SearchAdapter) priceCLP(p goplaceit.Property) float64 {
	v, err := numparse.Parse(p.Price)
	if err != nil {
		zap.L().Debug("search: comparable price unparseable",
			zap.String("raw", p.Price),
			zap.String("title", p.Title))
		return 0
	}
	if strings.EqualFold(p.Currency, "UF") || (p.Currency == "" && v < ufThreshold) {
		return v * s.ufValueCLP
	}
	return v
}

// SimulatorAdapter adapts the mesimulator client to the LoanSimulator
// contract, fanning out one request per term.
type SimulatorAdapter struct {
	client mesimulator.Client
}

// NewSimulatorAdapter wires a mesimulator-backed loan simulator.
func NewSimulatorAdapter(client mesimulator.Client) *SimulatorAdapter {
	return &SimulatorAdapter{client: client}
}

// Simulate resolves the best offer for each term. Terms fail
// independently; the comparison carries whatever succeeded and errors
// only when every term failed.
func (s *SimulatorAdapter) Simulate(ctx context.Context, principalUF float64, termsYears []int) (*model.LoanComparison, error) {
	if err := ValidatePrincipal(principalUF); err != nil {
		return nil, err
	}
	if err := ValidateTerms(termsYears); err != nil {
		return nil, err
	}

	cmp := &model.LoanComparison{PrincipalUF: principalUF}
	var mu sync.Mutex
	var lastErr error

	g, gctx := errgroup.WithContext(ctx)
	for _, term := range termsYears {
		g.Go(func() error {
			offers, err := s.client.Simulate(gctx, principalUF, term)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				lastErr = err
				zap.L().Warn("simulator: term failed",
					zap.Int("term_years", term),
					zap.Error(err))
				return nil
			}
			cmp.Scenarios = append(cmp.Scenarios, toScenario(principalUF, term, offers[0]))
			return nil
		})
	}
	_ = g.Wait()

	if len(cmp.Scenarios) == 0 {
		return nil, eris.Wrap(lastErr, "simulator: all terms failed")
	}
	return cmp, nil
}

// toScenario parses an offer's display fields; when a field is absent it
// falls back to extracting the labeled value from the free-text detail.
func toScenario(principalUF float64, term int, offer mesimulator.Offer) model.LoanScenario {
	monthly := numparse.ParseOr(offer.MonthlyCLP, 0)
	if monthly == 0 {
		monthly, _ = finance.ExtractLoanField(offer.Detail, finance.FieldMonthlyPayment)
	}
	rate := numparse.ParseOr(offer.AnnualRate, 0)
	if rate == 0 {
		rate, _ = finance.ExtractLoanField(offer.Detail, finance.FieldRate)
	}
	return model.LoanScenario{
		PrincipalUF: principalUF,
		TermYears:   term,
		Lender:      offer.Lender,
		MonthlyCLP:  monthly,
		RatePct:     rate,
		RawDetail:   offer.Detail,
	}
}
