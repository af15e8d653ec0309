// Package finance computes the deterministic metric set for a report.
//
// The engine is a pure function of its inputs and is recomputed per
// request. One-time acquisition costs are computed separately and must
// never leak into the monthly cash-flow figure; that mix-up shipped once
// and is now guarded by tests.
package finance

import (
	"go.uber.org/zap"

	"github.com/andes-group/invest-cli/internal/model"
)

// Inputs is everything the metrics engine needs, all in CLP monthly
// terms except the price and the one-time acquisition total.
type Inputs struct {
	PriceCLP       float64
	RentCLP        float64
	LoanPaymentCLP float64
	OperatingCLP   float64
	AcquisitionCLP float64
	// AppreciationPct is the expected annual appreciation, carried through
	// to the report unchanged.
	AppreciationPct float64
}

// conservative placeholder values used when required inputs are missing.
const (
	fallbackGrossYieldPct = 4.5
	fallbackNetYieldPct   = 3.2
	fallbackAppreciation  = 2.0
)

// Compute derives the metric set from the inputs. When the price or rent
// is missing it returns a labeled fallback set instead of failing: the
// pipeline always needs numbers to report.
func Compute(in Inputs) model.FinancialMetrics {
	if in.PriceCLP <= 0 || in.RentCLP <= 0 {
		zap.L().Warn("finance: missing required inputs, using fallback metrics",
			zap.Float64("price_clp", in.PriceCLP),
			zap.Float64("rent_clp", in.RentCLP),
		)
		return FallbackMetrics(in)
	}

	annualRent := in.RentCLP * 12
	annualNet := (in.RentCLP - in.OperatingCLP) * 12
	netYield := annualNet / in.PriceCLP * 100

	appreciation := in.AppreciationPct
	if appreciation == 0 {
		appreciation = fallbackAppreciation
	}

	return model.FinancialMetrics{
		// Cash flow is strictly monthly: rent minus recurring costs minus
		// the loan payment. AcquisitionCLP is intentionally absent here.
		MonthlyCashFlowCLP: in.RentCLP - in.OperatingCLP - in.LoanPaymentCLP,
		Breakdown: model.CashFlowBreakdown{
			RentCLP:      in.RentCLP,
			OperatingCLP: in.OperatingCLP,
			LoanCLP:      in.LoanPaymentCLP,
		},
		GrossYieldPct:   annualRent / in.PriceCLP * 100,
		NetYieldPct:     netYield,
		CapRatePct:      netYield,
		BreakEvenCLP:    in.OperatingCLP + in.LoanPaymentCLP,
		AppreciationPct: appreciation,
	}
}

// FallbackMetrics returns the labeled conservative metric set used when
// required inputs are missing. Cash flow components that are known are
// still reflected so the breakdown stays honest.
func FallbackMetrics(in Inputs) model.FinancialMetrics {
	return model.FinancialMetrics{
		MonthlyCashFlowCLP: in.RentCLP - in.OperatingCLP - in.LoanPaymentCLP,
		Breakdown: model.CashFlowBreakdown{
			RentCLP:      in.RentCLP,
			OperatingCLP: in.OperatingCLP,
			LoanCLP:      in.LoanPaymentCLP,
		},
		GrossYieldPct:   fallbackGrossYieldPct,
		NetYieldPct:     fallbackNetYieldPct,
		CapRatePct:      fallbackNetYieldPct,
		BreakEvenCLP:    in.OperatingCLP + in.LoanPaymentCLP,
		AppreciationPct: fallbackAppreciation,
		Fallback:        true,
	}
}

// EstimateRent derives a monthly rent estimate from the comparable set:
// the median comparable price is read as an asking rent when the search
// targeted rental listings. Returns 0 when no comparables are usable.
func EstimateRent(comparables []model.ComparableListing) float64 {
	var prices []float64
	for _, c := range comparables {
		if c.PriceCLP > 0 {
			prices = append(prices, c.PriceCLP)
		}
	}
	if len(prices) == 0 {
		return 0
	}

	// Insertion sort; the set is capped at 25.
	for i := 1; i < len(prices); i++ {
		for j := i; j > 0 && prices[j] < prices[j-1]; j-- {
			prices[j], prices[j-1] = prices[j-1], prices[j]
		}
	}
	mid := len(prices) / 2
	if len(prices)%2 == 0 {
		return (prices[mid-1] + prices[mid]) / 2
	}
	return prices[mid]
}
