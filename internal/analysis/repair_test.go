package analysis

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/andes-group/invest-cli/internal/model"
)

const fullResponse = `{
  "indicadores_financieros": {"rentabilidad_bruta_pct": 5.4, "rentabilidad_neta_pct": 4.3, "flujo_caja_mensual_clp": 120000},
  "analisis_ubicacion": {"comuna": "Concón", "comentario": "buena conectividad"},
  "analisis_seguridad": {"nivel_riesgo": "bajo"},
  "resumen_ejecutivo": {"decision": "recomendada", "justificacion": "flujo positivo", "nivel_riesgo": "bajo"}
}`

func TestRepair_CleanResponse(t *testing.T) {
	res := Repair(fullResponse, nil)
	if !res.Complete() {
		t.Fatal("complete response must yield a complete result")
	}
	if res.Origin != model.OriginModel {
		t.Errorf("origin = %q, want model", res.Origin)
	}
	if res.Summary.Decision != "recomendada" {
		t.Errorf("decision = %q", res.Summary.Decision)
	}
	if res.Location["comuna"] != "Concón" {
		t.Errorf("comuna = %v", res.Location["comuna"])
	}
}

func TestRepair_MarkdownFencesAndProse(t *testing.T) {
	wrapped := "Aquí está el análisis solicitado:\n\n```json\n" + fullResponse + "\n```\n\nEspero que sea útil."
	res := Repair(wrapped, nil)
	if !res.Complete() {
		t.Fatal("fenced response must repair to a complete result")
	}
	if res.Summary.Decision != "recomendada" {
		t.Errorf("decision = %q", res.Summary.Decision)
	}
}

func TestRepair_TruncatedResponse(t *testing.T) {
	// Cut mid-string inside the second section.
	cut := strings.Index(fullResponse, "buena conect")
	res := Repair(fullResponse[:cut+5], nil)
	if !res.Complete() {
		t.Fatal("truncated response must still yield all four sections")
	}
	// Parsed sections survive, lost ones are placeholders.
	if _, ok := res.Financial["rentabilidad_bruta_pct"]; !ok {
		t.Error("section before the cut must survive repair")
	}
	if res.Security["reparado"] != true {
		t.Error("section after the cut must be a marked placeholder")
	}
	if res.Summary.Decision != "neutral" {
		t.Errorf("placeholder decision = %q, want neutral", res.Summary.Decision)
	}
}

func TestRepair_GarbageNeverErrors(t *testing.T) {
	for _, raw := range []string{"", "no soy json", "{{{{", `{"a": `, "```\n```"} {
		res := Repair(raw, nil)
		if !res.Complete() {
			t.Errorf("Repair(%q) must yield all four sections", raw)
		}
	}
}

func TestRepair_CrossInfersNetYield(t *testing.T) {
	raw := `{"indicadores_financieros": {"rentabilidad_bruta_pct": 6.0}}`
	res := Repair(raw, nil)
	if got := res.Financial["rentabilidad_neta_pct"]; got != 4.8 {
		t.Errorf("inferred net yield = %v, want 4.8 (80%% of gross)", got)
	}
	if res.Financial["rentabilidad_neta_inferida"] != true {
		t.Error("inferred value must be marked")
	}
}

func TestRepair_BackfillsIndicatorsFromMetrics(t *testing.T) {
	metrics := &model.FinancialMetrics{
		MonthlyCashFlowCLP: 158461,
		GrossYieldPct:      5.2,
		NetYieldPct:        4.1,
		BreakEvenCLP:       2141539,
	}
	res := Repair(`{"indicadores_financieros": {"comentario": "sin cifras"}}`, metrics)
	if got := res.Financial["flujo_caja_mensual_clp"]; got != 158461.0 {
		t.Errorf("cash flow backfill = %v", got)
	}
	if got := res.Financial["punto_equilibrio_clp"]; got != 2141539.0 {
		t.Errorf("break-even backfill = %v", got)
	}
}

func TestRepairTruncatedJSON(t *testing.T) {
	tests := []string{
		`{"a": [1, 2`,
		`{"a": {"b": "texto cortad`,
		`{"a": 1,`,
		`{"lista": ["x", "y",`,
	}
	for _, in := range tests {
		repaired := repairTruncatedJSON(in)
		var v any
		if err := json.Unmarshal([]byte(repaired), &v); err != nil {
			t.Errorf("repairTruncatedJSON(%q) = %q, still invalid: %v", in, repaired, err)
		}
	}
}

func TestCleanJSON_ExtractsObject(t *testing.T) {
	got := cleanJSON("texto antes {\"a\": 1} texto después")
	if got != `{"a": 1}` {
		t.Errorf("cleanJSON = %q", got)
	}
}
