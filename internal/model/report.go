package model

import "time"

// SourceName identifies one of the three upstream data sources.
type SourceName string

const (
	SourceExtractor SourceName = "extractor"
	SourceSearch    SourceName = "search"
	SourceSimulator SourceName = "simulator"
)

// OrchestrationResult collects whatever the fan-out produced. Any of the
// three payloads may be nil; Succeeded records which sources delivered.
type OrchestrationResult struct {
	Property    *PropertySnapshot     `json:"property,omitempty"`
	Comparables []ComparableListing   `json:"comparables,omitempty"`
	Loans       *LoanComparison       `json:"loans,omitempty"`
	Succeeded   map[SourceName]bool   `json:"succeeded"`
	Failures    map[SourceName]string `json:"failures,omitempty"`
}

// QualityPct returns the fraction of sources that succeeded as a
// percentage.
func (o *OrchestrationResult) QualityPct() float64 {
	n := 0
	for _, ok := range o.Succeeded {
		if ok {
			n++
		}
	}
	return float64(n) / 3.0 * 100.0
}

// CashFlowBreakdown is the three-way composition of monthly cash flow.
type CashFlowBreakdown struct {
	RentCLP      float64 `json:"rent_clp"`
	OperatingCLP float64 `json:"operating_clp"`
	LoanCLP      float64 `json:"loan_clp"`
}

// FinancialMetrics is the deterministic metric set. It is a pure function
// of snapshot + loan + comparables and is recomputed per request.
type FinancialMetrics struct {
	MonthlyCashFlowCLP float64           `json:"monthly_cash_flow_clp"`
	Breakdown          CashFlowBreakdown `json:"breakdown"`
	GrossYieldPct      float64           `json:"gross_yield_pct"`
	NetYieldPct        float64           `json:"net_yield_pct"`
	CapRatePct         float64           `json:"cap_rate_pct"`
	BreakEvenCLP       float64           `json:"break_even_clp"`
	AppreciationPct    float64           `json:"appreciation_pct"`
	// Fallback marks a conservative placeholder set emitted when required
	// inputs were missing.
	Fallback bool `json:"fallback,omitempty"`
}

// Viable reports whether the scenario clears the minimal bar for
// consideration: non-negative cash flow or a net yield above 4%.
func (m FinancialMetrics) Viable() bool {
	return m.MonthlyCashFlowCLP >= 0 || m.NetYieldPct >= 4.0
}

// AnalysisOrigin tags how the narrative analysis was produced.
type AnalysisOrigin string

const (
	OriginModel     AnalysisOrigin = "model"
	OriginFallback  AnalysisOrigin = "fallback"
	OriginEmergency AnalysisOrigin = "emergency"
)

// ExecutiveSummary is the decision block of an analysis.
type ExecutiveSummary struct {
	Decision      string `json:"decision"`
	Justification string `json:"justification"`
	RiskLevel     string `json:"risk_level"`
}

// AnalysisResult is the narrative analysis, model- or fallback-derived.
// Invariant: all four sections are non-nil regardless of origin; the
// repairer backfills anything the model omitted.
type AnalysisResult struct {
	Origin    AnalysisOrigin    `json:"origin"`
	Financial map[string]any    `json:"financial_indicators"`
	Location  map[string]any    `json:"location_analysis"`
	Security  map[string]any    `json:"security_analysis"`
	Summary   *ExecutiveSummary `json:"executive_summary"`
	Metrics   *FinancialMetrics `json:"metrics,omitempty"`
}

// Complete reports whether every required section is present.
func (a *AnalysisResult) Complete() bool {
	return a != nil &&
		a.Financial != nil &&
		a.Location != nil &&
		a.Security != nil &&
		a.Summary != nil
}

// ReportMeta records how the report was produced.
type ReportMeta struct {
	ReportID         string              `json:"report_id"`
	SourcesSucceeded map[SourceName]bool `json:"sources_succeeded"`
	AnalysisOrigin   AnalysisOrigin      `json:"analysis_origin"`
	ConfidencePct    float64             `json:"confidence_pct"`
	TokenUsage       TokenUsage          `json:"token_usage"`
	GeneratedAt      time.Time           `json:"generated_at"`
	DurationMS       int64               `json:"duration_ms"`
}

// FinalReport is the only externally visible artifact of the pipeline.
type FinalReport struct {
	Property    *PropertySnapshot   `json:"property,omitempty"`
	Comparables []ComparableListing `json:"comparables,omitempty"`
	Loans       *LoanComparison     `json:"loans,omitempty"`
	Analysis    *AnalysisResult     `json:"analysis"`
	Meta        ReportMeta          `json:"meta"`
}
