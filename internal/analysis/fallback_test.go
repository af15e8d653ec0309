package analysis

import (
	"testing"

	"github.com/andes-group/invest-cli/internal/model"
)

func TestFallback_Recommended(t *testing.T) {
	metrics := &model.FinancialMetrics{MonthlyCashFlowCLP: 158461, NetYieldPct: 6.4}
	res := Fallback(nil, metrics)

	if !res.Complete() {
		t.Fatal("fallback must always be complete")
	}
	if res.Origin != model.OriginFallback {
		t.Errorf("origin = %q, want fallback", res.Origin)
	}
	if res.Summary.Decision != "recomendada" {
		t.Errorf("decision = %q, want recomendada", res.Summary.Decision)
	}
	if res.Summary.RiskLevel != "bajo" {
		t.Errorf("risk = %q, want bajo", res.Summary.RiskLevel)
	}
}

func TestFallback_NeutralOnWeakYield(t *testing.T) {
	metrics := &model.FinancialMetrics{MonthlyCashFlowCLP: 40000, NetYieldPct: 4.2}
	res := Fallback(nil, metrics)
	if res.Summary.Decision != "neutral" {
		t.Errorf("decision = %q, want neutral", res.Summary.Decision)
	}
}

func TestFallback_NotRecommendedOnNegativeCashFlow(t *testing.T) {
	metrics := &model.FinancialMetrics{MonthlyCashFlowCLP: -250000, NetYieldPct: 7.0}
	res := Fallback(nil, metrics)
	if res.Summary.Decision != "no recomendada" {
		t.Errorf("decision = %q, want no recomendada", res.Summary.Decision)
	}
	if res.Summary.RiskLevel != "alto" {
		t.Errorf("risk = %q, want alto", res.Summary.RiskLevel)
	}
}

func TestFallback_InconclusiveOnEstimatedMetrics(t *testing.T) {
	metrics := &model.FinancialMetrics{Fallback: true, MonthlyCashFlowCLP: 10000, NetYieldPct: 8.0}
	res := Fallback(nil, metrics)
	if res.Summary.Decision != "no concluyente" {
		t.Errorf("decision = %q, want no concluyente", res.Summary.Decision)
	}
	if res.Financial["estimado"] != true {
		t.Error("estimated indicators must be marked")
	}
}

func TestFallback_NilMetrics(t *testing.T) {
	res := Fallback(&model.OrchestrationResult{}, nil)
	if !res.Complete() {
		t.Fatal("nil metrics must still yield a complete result")
	}
	if res.Summary.Decision != "no concluyente" {
		t.Errorf("decision = %q", res.Summary.Decision)
	}
}

func TestFallback_UsesPropertyAddress(t *testing.T) {
	orch := &model.OrchestrationResult{
		Property: &model.PropertySnapshot{Address: "Los Castaños 855, Montemar, Concón"},
	}
	res := Fallback(orch, &model.FinancialMetrics{})
	if res.Location["direccion"] != "Los Castaños 855, Montemar, Concón" {
		t.Errorf("direccion = %v", res.Location["direccion"])
	}
}

func TestEmergency(t *testing.T) {
	res := Emergency("panic en orquestación")
	if !res.Complete() {
		t.Fatal("emergency must be complete")
	}
	if res.Origin != model.OriginEmergency {
		t.Errorf("origin = %q, want emergency", res.Origin)
	}
	if res.Financial["emergencia"] != true {
		t.Error("emergency sections must be marked")
	}
	if res.Summary.RiskLevel != "alto" {
		t.Errorf("risk = %q, want alto", res.Summary.RiskLevel)
	}
}
