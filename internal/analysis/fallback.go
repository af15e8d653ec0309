package analysis

import (
	"fmt"

	"github.com/andes-group/invest-cli/internal/model"
)

// Decision thresholds for the synthesized summary. Net yield at or above
// 6% with positive cash flow clears the bar for a recommendation.
const recommendNetYieldPct = 6.0

// Fallback synthesizes a complete analysis from deterministic metrics and
// whatever sources delivered. It is used when the model produced no
// usable output; the result is explicitly tagged so a reader can tell it
// apart from model judgment.
func Fallback(res *model.OrchestrationResult, metrics *model.FinancialMetrics) *model.AnalysisResult {
	if metrics == nil {
		m := model.FinancialMetrics{Fallback: true}
		metrics = &m
	}

	out := &model.AnalysisResult{
		Origin:    model.OriginFallback,
		Financial: financialSection(metrics),
		Location:  locationSection(res),
		Security:  securitySection(res),
		Summary:   summarize(metrics),
	}
	return out
}

// Emergency builds the minimal last-resort report body used when the
// pipeline itself failed unexpectedly. Every section is a placeholder.
func Emergency(reason string) *model.AnalysisResult {
	note := "Informe de emergencia: el análisis no pudo completarse."
	if reason != "" {
		note = fmt.Sprintf("%s Causa: %s", note, reason)
	}
	section := func() map[string]any {
		return map[string]any{"comentario": note, "emergencia": true}
	}
	return &model.AnalysisResult{
		Origin:    model.OriginEmergency,
		Financial: section(),
		Location:  section(),
		Security:  section(),
		Summary: &model.ExecutiveSummary{
			Decision:      "no concluyente",
			Justification: note,
			RiskLevel:     "alto",
		},
	}
}

func financialSection(m *model.FinancialMetrics) map[string]any {
	section := map[string]any{
		"flujo_caja_mensual_clp": round2(m.MonthlyCashFlowCLP),
		"rentabilidad_bruta_pct": round2(m.GrossYieldPct),
		"rentabilidad_neta_pct":  round2(m.NetYieldPct),
		"cap_rate_pct":           round2(m.CapRatePct),
		"punto_equilibrio_clp":   round2(m.BreakEvenCLP),
		"plusvalia_anual_pct":    round2(m.AppreciationPct),
		"comentario":             "Indicadores calculados directamente de los datos recolectados.",
	}
	if m.Fallback {
		section["comentario"] = "Indicadores conservadores estimados: faltaron datos de precio o arriendo."
		section["estimado"] = true
	}
	return section
}

func locationSection(res *model.OrchestrationResult) map[string]any {
	section := map[string]any{
		"comentario": "Análisis de ubicación no disponible sin el modelo.",
	}
	if res != nil && res.Property != nil && res.Property.Address != "" {
		section["direccion"] = res.Property.Address
		section["comentario"] = "Ubicación tomada de la ficha de la propiedad; sin evaluación cualitativa."
	}
	return section
}

func securitySection(res *model.OrchestrationResult) map[string]any {
	n := 0
	if res != nil {
		for _, ok := range res.Succeeded {
			if ok {
				n++
			}
		}
	}
	return map[string]any{
		"nivel_riesgo":     "no evaluado",
		"fuentes_exitosas": n,
		"comentario":       "Evaluación de seguridad no disponible sin el modelo.",
	}
}

// summarize applies the deterministic decision rule: positive cash flow
// plus strong net yield recommends, positive cash flow alone is neutral,
// anything else is not recommended.
func summarize(m *model.FinancialMetrics) *model.ExecutiveSummary {
	switch {
	case m.Fallback:
		return &model.ExecutiveSummary{
			Decision:      "no concluyente",
			Justification: "Datos insuficientes para calcular indicadores reales.",
			RiskLevel:     "alto",
		}
	case m.MonthlyCashFlowCLP > 0 && m.NetYieldPct >= recommendNetYieldPct:
		return &model.ExecutiveSummary{
			Decision: "recomendada",
			Justification: fmt.Sprintf(
				"Flujo de caja mensual positivo (%.0f CLP) y rentabilidad neta de %.1f%%.",
				m.MonthlyCashFlowCLP, m.NetYieldPct),
			RiskLevel: "bajo",
		}
	case m.MonthlyCashFlowCLP > 0:
		return &model.ExecutiveSummary{
			Decision: "neutral",
			Justification: fmt.Sprintf(
				"Flujo de caja positivo pero rentabilidad neta de %.1f%% bajo el umbral de %.0f%%.",
				m.NetYieldPct, recommendNetYieldPct),
			RiskLevel: "medio",
		}
	default:
		return &model.ExecutiveSummary{
			Decision: "no recomendada",
			Justification: fmt.Sprintf(
				"Flujo de caja mensual negativo (%.0f CLP).", m.MonthlyCashFlowCLP),
			RiskLevel: "alto",
		}
	}
}
