// Package report orchestrates one report request end to end: fan out to
// the data sources, compute metrics, run the model analysis, and always
// return a report. Partial data degrades the result; it never aborts it.
package report

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/andes-group/invest-cli/internal/analysis"
	"github.com/andes-group/invest-cli/internal/finance"
	"github.com/andes-group/invest-cli/internal/llm"
	"github.com/andes-group/invest-cli/internal/location"
	"github.com/andes-group/invest-cli/internal/model"
	"github.com/andes-group/invest-cli/internal/sources"
)

// Analyzer is the model-call surface the orchestrator depends on.
type Analyzer interface {
	Analyze(ctx context.Context, system, user string) llm.Result
}

// Config carries the per-deployment knobs of the pipeline.
type Config struct {
	// UFValueCLP converts UF amounts to CLP. Updated daily in deployment;
	// a stale value skews metrics but never blocks a report.
	UFValueCLP float64 `mapstructure:"uf_value_clp"`
	// PreferredTermYears selects the loan scenario used for cash flow.
	PreferredTermYears int `mapstructure:"preferred_term_years"`
	// DefaultLocation is the comparable-search location used when no
	// address could be extracted.
	DefaultLocation string `mapstructure:"default_location"`
	// SearchMaxPages bounds the comparable search.
	SearchMaxPages int `mapstructure:"search_max_pages"`
	// SourceTimeout bounds each individual source call.
	SourceTimeout time.Duration `mapstructure:"source_timeout"`

	Costs finance.CostParams `mapstructure:"costs"`
}

func (c Config) withDefaults() Config {
	if c.UFValueCLP <= 0 {
		c.UFValueCLP = 38_000
	}
	if c.PreferredTermYears <= 0 {
		c.PreferredTermYears = 20
	}
	if c.DefaultLocation == "" {
		c.DefaultLocation = "Santiago, Metropolitana"
	}
	if c.SearchMaxPages <= 0 {
		c.SearchMaxPages = 3
	}
	if c.SourceTimeout <= 0 {
		c.SourceTimeout = 90 * time.Second
	}
	return c
}

// Orchestrator runs report requests against the three sources and the
// analyzer.
type Orchestrator struct {
	extractor sources.Extractor
	searcher  sources.ComparableSearcher
	simulator sources.LoanSimulator
	analyzer  Analyzer
	cfg       Config
}

// NewOrchestrator wires the pipeline. Any collaborator may be nil; a nil
// source is recorded as failed, a nil analyzer forces fallback analysis.
func NewOrchestrator(ext sources.Extractor, search sources.ComparableSearcher, sim sources.LoanSimulator, an Analyzer, cfg Config) *Orchestrator {
	return &Orchestrator{
		extractor: ext,
		searcher:  search,
		simulator: sim,
		analyzer:  an,
		cfg:       cfg.withDefaults(),
	}
}

// Generate produces the report for one request. It returns an error only
// for invalid input; once past validation it always returns a report,
// degrading through fallback analysis down to an emergency report if the
// pipeline itself panics.
func (o *Orchestrator) Generate(ctx context.Context, req model.ReportRequest) (rep *model.FinalReport, err error) {
	if verr := sources.ValidateRequest(req); verr != nil {
		return nil, verr
	}

	start := time.Now()
	reportID := uuid.NewString()
	logger := zap.L().With(zap.String("report_id", reportID))

	defer func() {
		if r := recover(); r != nil {
			logger.Error("pipeline panicked, emitting emergency report",
				zap.Any("panic", r))
			rep = o.emergencyReport(reportID, start, fmt.Sprint(r))
			err = nil
		}
	}()

	orch := o.collect(ctx, req, logger)

	metrics := o.computeMetrics(req, orch, logger)
	an, usage := o.analyze(ctx, orch, &metrics, logger)
	an.Metrics = &metrics
	an.Financial["costos_adquisicion_clp"] = o.acquisitionTotal(req, orch)

	rep = &model.FinalReport{
		Property:    orch.Property,
		Comparables: orch.Comparables,
		Loans:       orch.Loans,
		Analysis:    an,
		Meta: model.ReportMeta{
			ReportID:         reportID,
			SourcesSucceeded: orch.Succeeded,
			AnalysisOrigin:   an.Origin,
			ConfidencePct:    Score(orch, an),
			TokenUsage:       usage,
			GeneratedAt:      time.Now().UTC(),
			DurationMS:       time.Since(start).Milliseconds(),
		},
	}

	logger.Info("report generated",
		zap.String("origin", string(an.Origin)),
		zap.Float64("confidence_pct", rep.Meta.ConfidencePct),
		zap.Float64("quality_pct", orch.QualityPct()),
		zap.Int64("duration_ms", rep.Meta.DurationMS))
	return rep, nil
}

// collect fans out to all three sources concurrently: launch all, await
// all, discard none. The search starts from a candidate location derived
// from the listing URL slug; once the extractor has produced the real
// address the candidate is consistency-checked against it and the search
// re-run on disagreement. Every failure is absorbed into the result,
// never propagated.
func (o *Orchestrator) collect(ctx context.Context, req model.ReportRequest, logger *zap.Logger) *model.OrchestrationResult {
	res := &model.OrchestrationResult{
		Succeeded: make(map[model.SourceName]bool),
		Failures:  make(map[model.SourceName]string),
	}
	var mu sync.Mutex

	record := func(name model.SourceName, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			res.Succeeded[name] = false
			res.Failures[name] = err.Error()
			logger.Warn("source failed", zap.String("source", string(name)), zap.Error(err))
			return
		}
		res.Succeeded[name] = true
	}

	// Panics inside source goroutines would escape Generate's recover;
	// they degrade to a recorded failure instead.
	guard := func(name model.SourceName) {
		if r := recover(); r != nil {
			record(name, fmt.Errorf("panic: %v", r))
		}
	}

	candidate := location.FromURL(req.ListingURL)
	if candidate == "" {
		candidate = o.cfg.DefaultLocation
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer guard(model.SourceExtractor)
		if o.extractor == nil {
			record(model.SourceExtractor, fmt.Errorf("extractor not configured"))
			return nil
		}
		cctx, cancel := context.WithTimeout(gctx, o.cfg.SourceTimeout)
		defer cancel()
		prop, err := o.extractor.Extract(cctx, req.ListingURL)
		if err == nil {
			mu.Lock()
			res.Property = prop
			mu.Unlock()
		}
		record(model.SourceExtractor, err)
		return nil
	})

	g.Go(func() error {
		defer guard(model.SourceSimulator)
		if o.simulator == nil {
			record(model.SourceSimulator, fmt.Errorf("simulator not configured"))
			return nil
		}
		cctx, cancel := context.WithTimeout(gctx, o.cfg.SourceTimeout)
		defer cancel()
		loans, err := o.simulator.Simulate(cctx, req.PrincipalUF, sources.StandardTerms)
		if err == nil {
			mu.Lock()
			res.Loans = loans
			mu.Unlock()
		}
		record(model.SourceSimulator, err)
		return nil
	})

	g.Go(func() error {
		defer guard(model.SourceSearch)
		if o.searcher == nil {
			record(model.SourceSearch, fmt.Errorf("searcher not configured"))
			return nil
		}
		comps, err := o.runSearch(gctx, candidate)
		if err == nil {
			mu.Lock()
			res.Comparables = comps
			mu.Unlock()
		}
		record(model.SourceSearch, err)
		return nil
	})

	_ = g.Wait()

	o.reconcileSearch(ctx, res, candidate, logger, record)
	return res
}

func (o *Orchestrator) runSearch(ctx context.Context, loc string) ([]model.ComparableListing, error) {
	cctx, cancel := context.WithTimeout(ctx, o.cfg.SourceTimeout)
	defer cancel()

	comps, err := o.searcher.Search(cctx, sources.SearchQuery{
		PropertyType:    "departamento",
		TransactionType: "arriendo",
		Location:        loc,
		MaxPages:        o.cfg.SearchMaxPages,
	})
	if err != nil {
		return nil, err
	}
	if len(comps) > model.MaxComparables {
		comps = comps[:model.MaxComparables]
	}
	return comps, nil
}

// reconcileSearch checks the slug-derived candidate against the
// extracted address and re-runs the comparable search when they
// disagree. Comparables from the wrong comuna price the wrong market.
func (o *Orchestrator) reconcileSearch(ctx context.Context, res *model.OrchestrationResult, candidate string, logger *zap.Logger, record func(model.SourceName, error)) {
	defer func() {
		if r := recover(); r != nil {
			record(model.SourceSearch, fmt.Errorf("panic: %v", r))
		}
	}()
	if o.searcher == nil || res.Property == nil || res.Property.Address == "" {
		return
	}

	resolved, conf := location.Resolve(res.Property.Address, candidate)
	logger.Info("search location checked",
		zap.String("candidate", candidate),
		zap.String("resolved", resolved),
		zap.String("confidence", conf.String()))
	if resolved == candidate || resolved == "" {
		return
	}

	comps, err := o.runSearch(ctx, resolved)
	if err != nil {
		logger.Warn("corrected comparable search failed, keeping initial results",
			zap.String("location", resolved),
			zap.Error(err))
		return
	}
	res.Comparables = comps
	record(model.SourceSearch, nil)
}

// computeMetrics derives the deterministic metric set from whatever was
// collected. Missing inputs surface as a labeled fallback set.
func (o *Orchestrator) computeMetrics(req model.ReportRequest, orch *model.OrchestrationResult, logger *zap.Logger) model.FinancialMetrics {
	priceCLP := o.priceCLP(orch.Property)

	rentCLP := req.RentCLP
	if rentCLP <= 0 {
		rentCLP = finance.EstimateRent(orch.Comparables)
		if rentCLP > 0 {
			logger.Info("rent estimated from comparables", zap.Float64("rent_clp", rentCLP))
		}
	}

	var loanPayment float64
	if sc := o.scenario(orch.Loans); sc != nil {
		loanPayment = sc.MonthlyCLP
	}

	operating := finance.OperatingCosts(o.cfg.Costs, priceCLP, rentCLP)

	return finance.Compute(finance.Inputs{
		PriceCLP:       priceCLP,
		RentCLP:        rentCLP,
		LoanPaymentCLP: loanPayment,
		OperatingCLP:   operating,
		AcquisitionCLP: o.acquisitionTotal(req, orch),
	})
}

func (o *Orchestrator) acquisitionTotal(req model.ReportRequest, orch *model.OrchestrationResult) float64 {
	return finance.AcquisitionCosts(
		o.cfg.Costs,
		o.priceCLP(orch.Property),
		req.PrincipalUF*o.cfg.UFValueCLP,
		o.scenario(orch.Loans),
	)
}

func (o *Orchestrator) priceCLP(p *model.PropertySnapshot) float64 {
	if p == nil {
		return 0
	}
	if p.PriceCLP > 0 {
		return p.PriceCLP
	}
	return p.PriceUF * o.cfg.UFValueCLP
}

func (o *Orchestrator) scenario(loans *model.LoanComparison) *model.LoanScenario {
	sc := loans.ScenarioForTerm(o.cfg.PreferredTermYears)
	if sc == nil && loans != nil && len(loans.Scenarios) > 0 {
		sc = &loans.Scenarios[0]
	}
	return sc
}

// analyze runs the model call and falls back to synthesis on any
// non-OK outcome.
func (o *Orchestrator) analyze(ctx context.Context, orch *model.OrchestrationResult, metrics *model.FinancialMetrics, logger *zap.Logger) (*model.AnalysisResult, model.TokenUsage) {
	if o.analyzer == nil {
		return analysis.Fallback(orch, metrics), model.TokenUsage{}
	}

	system, user, err := llm.BuildPrompt(orch, metrics)
	if err != nil {
		logger.Error("prompt build failed, using fallback analysis", zap.Error(err))
		return analysis.Fallback(orch, metrics), model.TokenUsage{}
	}

	res := o.analyzer.Analyze(ctx, system, user)
	if res.Outcome != llm.OutcomeOK {
		logger.Warn("model analysis unavailable, using fallback",
			zap.String("outcome", res.Outcome.String()),
			zap.Error(res.Err))
		return analysis.Fallback(orch, metrics), res.Usage
	}
	return analysis.Repair(res.Text, metrics), res.Usage
}

func (o *Orchestrator) emergencyReport(reportID string, start time.Time, reason string) *model.FinalReport {
	an := analysis.Emergency(reason)
	return &model.FinalReport{
		Analysis: an,
		Meta: model.ReportMeta{
			ReportID:         reportID,
			SourcesSucceeded: map[model.SourceName]bool{},
			AnalysisOrigin:   model.OriginEmergency,
			ConfidencePct:    0,
			GeneratedAt:      time.Now().UTC(),
			DurationMS:       time.Since(start).Milliseconds(),
		},
	}
}
