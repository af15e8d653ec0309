package report

import (
	"context"
	"errors"
	"testing"

	"github.com/andes-group/invest-cli/internal/llm"
	"github.com/andes-group/invest-cli/internal/model"
	"github.com/andes-group/invest-cli/internal/sources"
)

type fakeExtractor struct {
	prop *model.PropertySnapshot
	err  error
}

func (f *fakeExtractor) Extract(context.Context, string) (*model.PropertySnapshot, error) {
	return f.prop, f.err
}

type fakeSearcher struct {
	comps   []model.ComparableListing
	err     error
	queries []sources.SearchQuery
}

func (f *fakeSearcher) Search(_ context.Context, q sources.SearchQuery) ([]model.ComparableListing, error) {
	f.queries = append(f.queries, q)
	return f.comps, f.err
}

func (f *fakeSearcher) lastQuery() sources.SearchQuery {
	if len(f.queries) == 0 {
		return sources.SearchQuery{}
	}
	return f.queries[len(f.queries)-1]
}

type fakeSimulator struct {
	loans *model.LoanComparison
	err   error
}

func (f *fakeSimulator) Simulate(context.Context, float64, []int) (*model.LoanComparison, error) {
	return f.loans, f.err
}

type fakeAnalyzer struct {
	result llm.Result
}

func (f *fakeAnalyzer) Analyze(context.Context, string, string) llm.Result {
	return f.result
}

func testRequest() model.ReportRequest {
	return model.ReportRequest{
		ListingURL:  "https://example.com/depto/1",
		PrincipalUF: 9200,
		RentCLP:     2_300_000,
	}
}

func happySources() (*fakeExtractor, *fakeSearcher, *fakeSimulator) {
	ext := &fakeExtractor{prop: &model.PropertySnapshot{
		Title:    "Depto Montemar",
		PriceUF:  6900,
		PriceCLP: 262_200_000,
		Address:  "Los Castaños 855, Montemar, Concón, Valparaíso",
	}}
	search := &fakeSearcher{comps: []model.ComparableListing{
		{Title: "comp A", PriceCLP: 2_200_000},
		{Title: "comp B", PriceCLP: 2_400_000},
	}}
	sim := &fakeSimulator{loans: &model.LoanComparison{
		PrincipalUF: 9200,
		Scenarios: []model.LoanScenario{
			{TermYears: 15, MonthlyCLP: 2_150_000},
			{TermYears: 20, MonthlyCLP: 1_960_000},
			{TermYears: 30, MonthlyCLP: 1_841_539},
		},
	}}
	return ext, search, sim
}

const modelResponse = `{
  "indicadores_financieros": {"rentabilidad_bruta_pct": 10.5},
  "analisis_ubicacion": {"comuna": "Concón"},
  "analisis_seguridad": {"nivel_riesgo": "bajo"},
  "resumen_ejecutivo": {"decision": "recomendada", "justificacion": "ok", "nivel_riesgo": "bajo"}
}`

func TestGenerate_AllSourcesAndModel(t *testing.T) {
	ext, search, sim := happySources()
	an := &fakeAnalyzer{result: llm.Result{
		Outcome: llm.OutcomeOK,
		Text:    modelResponse,
		Usage:   model.TokenUsage{InputTokens: 900, OutputTokens: 400},
	}}

	o := NewOrchestrator(ext, search, sim, an, Config{PreferredTermYears: 30})
	rep, err := o.Generate(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if rep.Meta.AnalysisOrigin != model.OriginModel {
		t.Errorf("origin = %q, want model", rep.Meta.AnalysisOrigin)
	}
	if !rep.Analysis.Complete() {
		t.Error("analysis must be complete")
	}
	for _, s := range []model.SourceName{model.SourceExtractor, model.SourceSearch, model.SourceSimulator} {
		if !rep.Meta.SourcesSucceeded[s] {
			t.Errorf("source %s must be marked succeeded", s)
		}
	}
	if rep.Meta.ConfidencePct != 100 {
		t.Errorf("confidence = %v, want 100", rep.Meta.ConfidencePct)
	}
	if rep.Meta.TokenUsage.Total() != 1300 {
		t.Errorf("usage = %d, want 1300", rep.Meta.TokenUsage.Total())
	}

	// The preferred 30-year scenario's payment drives the cash flow.
	m := rep.Analysis.Metrics
	wantCashFlow := 2_300_000.0 - m.Breakdown.OperatingCLP - 1_841_539.0
	if m.MonthlyCashFlowCLP != wantCashFlow {
		t.Errorf("cash flow = %v, want %v", m.MonthlyCashFlowCLP, wantCashFlow)
	}
}

func TestGenerate_WrongSlugLocationCorrected(t *testing.T) {
	ext, search, sim := happySources()
	o := NewOrchestrator(ext, search, sim, nil, Config{})

	// The slug names the wrong comuna; the extracted address is the
	// ground truth, so the concurrent search must be re-run there.
	req := testRequest()
	req.ListingURL = "https://portal.cl/depto-las-condes-2d2b"
	if _, err := o.Generate(context.Background(), req); err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if len(search.queries) != 2 {
		t.Fatalf("searches = %d, want initial plus corrected", len(search.queries))
	}
	if search.queries[0].Location != "Las Condes, Santiago" {
		t.Errorf("initial search = %q, want slug-derived location", search.queries[0].Location)
	}
	if search.queries[1].Location != "Concón, Valparaíso" {
		t.Errorf("corrected search = %q, want address-derived comuna", search.queries[1].Location)
	}
}

func TestGenerate_ConsistentSlugSearchesOnce(t *testing.T) {
	ext, search, sim := happySources()
	o := NewOrchestrator(ext, search, sim, nil, Config{})

	req := testRequest()
	req.ListingURL = "https://portal.cl/depto-montemar-concon"
	if _, err := o.Generate(context.Background(), req); err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if len(search.queries) != 1 {
		t.Fatalf("searches = %d, want exactly one for a consistent slug", len(search.queries))
	}
	if search.queries[0].Location != "Concón, Valparaíso" {
		t.Errorf("search location = %q", search.queries[0].Location)
	}
}

func TestGenerate_ExtractorFailureDegrades(t *testing.T) {
	_, search, sim := happySources()
	ext := &fakeExtractor{err: errors.New("timeout")}
	an := &fakeAnalyzer{result: llm.Result{Outcome: llm.OutcomeOK, Text: modelResponse}}

	o := NewOrchestrator(ext, search, sim, an, Config{DefaultLocation: "Providencia, Santiago"})
	rep, err := o.Generate(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if rep.Meta.SourcesSucceeded[model.SourceExtractor] {
		t.Error("extractor must be marked failed")
	}
	if search.lastQuery().Location != "Providencia, Santiago" {
		t.Errorf("search must fall back to default location, got %q", search.lastQuery().Location)
	}
	// No price: metrics degrade to the labeled fallback set.
	if !rep.Analysis.Metrics.Fallback {
		t.Error("metrics must be the fallback set without a price")
	}
	if rep.Meta.ConfidencePct >= 100 {
		t.Errorf("confidence = %v, must drop below 100", rep.Meta.ConfidencePct)
	}
}

func TestGenerate_AllSourcesFailStillReports(t *testing.T) {
	ext := &fakeExtractor{err: errors.New("down")}
	search := &fakeSearcher{err: errors.New("down")}
	sim := &fakeSimulator{err: errors.New("down")}
	an := &fakeAnalyzer{result: llm.Result{Outcome: llm.OutcomeRetriesExhausted, Err: errors.New("503")}}

	o := NewOrchestrator(ext, search, sim, an, Config{})
	rep, err := o.Generate(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Generate must not fail on source errors: %v", err)
	}

	if rep.Meta.AnalysisOrigin != model.OriginFallback {
		t.Errorf("origin = %q, want fallback", rep.Meta.AnalysisOrigin)
	}
	if !rep.Analysis.Complete() {
		t.Error("fallback analysis must be complete")
	}
	if rep.Meta.ConfidencePct >= 50 {
		t.Errorf("confidence = %v, want well below 50", rep.Meta.ConfidencePct)
	}
}

func TestGenerate_CircuitOpenUsesFallback(t *testing.T) {
	ext, search, sim := happySources()
	an := &fakeAnalyzer{result: llm.Result{Outcome: llm.OutcomeCircuitOpen}}

	o := NewOrchestrator(ext, search, sim, an, Config{})
	rep, err := o.Generate(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if rep.Meta.AnalysisOrigin != model.OriginFallback {
		t.Errorf("origin = %q, want fallback", rep.Meta.AnalysisOrigin)
	}
	// Deterministic metrics still come from real data.
	if rep.Analysis.Metrics.Fallback {
		t.Error("metrics must be real when sources delivered")
	}
}

func TestGenerate_SourcePanicDegrades(t *testing.T) {
	_, search, sim := happySources()
	ext := &panicExtractor{}

	o := NewOrchestrator(ext, search, sim, nil, Config{})
	rep, err := o.Generate(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if rep.Meta.SourcesSucceeded[model.SourceExtractor] {
		t.Error("panicking source must be marked failed")
	}
	if !rep.Analysis.Complete() {
		t.Error("report must still be complete")
	}
}

type panicExtractor struct{}

func (p *panicExtractor) Extract(context.Context, string) (*model.PropertySnapshot, error) {
	panic("nil dereference in parser")
}

func TestGenerate_InvalidRequestRejected(t *testing.T) {
	o := NewOrchestrator(nil, nil, nil, nil, Config{})
	if _, err := o.Generate(context.Background(), model.ReportRequest{ListingURL: "nope", PrincipalUF: 9200}); err == nil {
		t.Error("invalid URL must be rejected before orchestration")
	}
	if _, err := o.Generate(context.Background(), model.ReportRequest{ListingURL: "https://x.cl/1", PrincipalUF: 1}); err == nil {
		t.Error("out-of-range principal must be rejected")
	}
}

func TestGenerate_ComparablesCapped(t *testing.T) {
	ext, search, sim := happySources()
	comps := make([]model.ComparableListing, 40)
	for i := range comps {
		comps[i] = model.ComparableListing{PriceCLP: 2_000_000}
	}
	search.comps = comps

	o := NewOrchestrator(ext, search, sim, nil, Config{})
	rep, err := o.Generate(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(rep.Comparables) != model.MaxComparables {
		t.Errorf("comparables = %d, want cap %d", len(rep.Comparables), model.MaxComparables)
	}
}

func TestScore(t *testing.T) {
	full := &model.OrchestrationResult{Succeeded: map[model.SourceName]bool{
		model.SourceExtractor: true, model.SourceSearch: true, model.SourceSimulator: true,
	}}
	none := &model.OrchestrationResult{Succeeded: map[model.SourceName]bool{
		model.SourceExtractor: false, model.SourceSearch: false, model.SourceSimulator: false,
	}}

	modelAnalysis := &model.AnalysisResult{
		Origin:    model.OriginModel,
		Financial: map[string]any{"x": 1},
		Location:  map[string]any{"x": 1},
		Security:  map[string]any{"x": 1},
		Summary:   &model.ExecutiveSummary{Decision: "recomendada"},
	}

	if got := Score(full, modelAnalysis); got != 100 {
		t.Errorf("full score = %v, want 100", got)
	}

	fallbackAnalysis := &model.AnalysisResult{
		Origin:    model.OriginFallback,
		Financial: map[string]any{"x": 1},
		Location:  map[string]any{"x": 1},
		Security:  map[string]any{"x": 1},
		Summary:   &model.ExecutiveSummary{Decision: "neutral"},
	}
	// 0 sources + fallback origin (15) + full sections (10).
	if got := Score(none, fallbackAnalysis); got != 25 {
		t.Errorf("degraded score = %v, want 25", got)
	}

	if got := Score(nil, nil); got != 0 {
		t.Errorf("nil score = %v, want 0", got)
	}
}
