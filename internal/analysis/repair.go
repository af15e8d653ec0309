// Package analysis turns raw model output into a structurally complete
// AnalysisResult, or synthesizes one from deterministic metrics when no
// usable model output exists. Repair never fails: whatever comes in, a
// result with all four sections comes out.
package analysis

import (
	"encoding/json"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/andes-group/invest-cli/internal/model"
)

// Section keys expected in the model response.
const (
	keyFinancial = "indicadores_financieros"
	keyLocation  = "analisis_ubicacion"
	keySecurity  = "analisis_seguridad"
	keySummary   = "resumen_ejecutivo"
)

const missingSectionNote = "Sección no disponible: el modelo no la incluyó en la respuesta."

// Repair parses model output into an AnalysisResult, cleaning markdown
// fences, surrounding prose and truncation on the way. Missing sections
// are backfilled with marked placeholders; missing numeric indicators are
// cross-inferred where a stable relation exists.
func Repair(raw string, metrics *model.FinancialMetrics) *model.AnalysisResult {
	cleaned := cleanJSON(raw)

	var payload map[string]json.RawMessage
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		zap.L().Warn("model output unparseable after repair",
			zap.Int("raw_len", len(raw)),
			zap.Error(err))
		payload = nil
	}

	res := &model.AnalysisResult{
		Origin:    model.OriginModel,
		Financial: decodeSection(payload, keyFinancial),
		Location:  decodeSection(payload, keyLocation),
		Security:  decodeSection(payload, keySecurity),
	}
	res.Summary = decodeSummary(payload)

	backfill(res)
	crossInfer(res.Financial, metrics)
	return res
}

// cleanJSON strips markdown fences, extracts the outermost JSON object,
// and closes unterminated strings and delimiters left by truncation.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	} else if start >= 0 {
		// Truncated before the first closing brace.
		text = text[start:]
	}

	return repairTruncatedJSON(strings.TrimSpace(text))
}

// repairTruncatedJSON closes any unclosed string, bracket or brace.
func repairTruncatedJSON(text string) string {
	if len(text) == 0 {
		return text
	}

	var stack []byte
	inString := false
	escape := false

	for i := 0; i < len(text); i++ {
		c := text[i]

		if escape {
			escape = false
			continue
		}
		if c == '\\' && inString {
			escape = true
			continue
		}
		if c == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}

		switch c {
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) > 0 && stack[len(stack)-1] == c {
				stack = stack[:len(stack)-1]
			}
		}
	}

	if inString {
		text += `"`
	}
	for i := len(stack) - 1; i >= 0; i-- {
		text = strings.TrimRight(text, " \t\n\r,")
		text += string(stack[i])
	}
	return text
}

func decodeSection(payload map[string]json.RawMessage, key string) map[string]any {
	raw, ok := payload[key]
	if !ok {
		return nil
	}
	var section map[string]any
	if err := json.Unmarshal(raw, &section); err != nil {
		return nil
	}
	return section
}

func decodeSummary(payload map[string]json.RawMessage) *model.ExecutiveSummary {
	raw, ok := payload[keySummary]
	if !ok {
		return nil
	}
	var s struct {
		Decision      string `json:"decision"`
		Justification string `json:"justificacion"`
		RiskLevel     string `json:"nivel_riesgo"`
	}
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil
	}
	if s.Decision == "" && s.Justification == "" {
		return nil
	}
	return &model.ExecutiveSummary{
		Decision:      s.Decision,
		Justification: s.Justification,
		RiskLevel:     s.RiskLevel,
	}
}

// backfill substitutes marked placeholders for any absent section so the
// structural invariant holds regardless of what the model returned.
func backfill(res *model.AnalysisResult) {
	placeholder := func() map[string]any {
		return map[string]any{"comentario": missingSectionNote, "reparado": true}
	}
	if res.Financial == nil {
		res.Financial = placeholder()
	}
	if res.Location == nil {
		res.Location = placeholder()
	}
	if res.Security == nil {
		res.Security = placeholder()
	}
	if res.Summary == nil {
		res.Summary = &model.ExecutiveSummary{
			Decision:      "neutral",
			Justification: missingSectionNote,
			RiskLevel:     "medio",
		}
	}
}

// crossInfer fills missing financial indicators from known relations:
// net yield runs near 80% of gross under typical operating loads, and
// deterministic metrics cover anything the model dropped entirely.
func crossInfer(financial map[string]any, metrics *model.FinancialMetrics) {
	gross, hasGross := numericField(financial, "rentabilidad_bruta_pct")
	if _, hasNet := numericField(financial, "rentabilidad_neta_pct"); !hasNet && hasGross {
		financial["rentabilidad_neta_pct"] = round2(gross * 0.8)
		financial["rentabilidad_neta_inferida"] = true
	}

	if metrics == nil {
		return
	}
	defaults := map[string]float64{
		"flujo_caja_mensual_clp": metrics.MonthlyCashFlowCLP,
		"rentabilidad_bruta_pct": metrics.GrossYieldPct,
		"rentabilidad_neta_pct":  metrics.NetYieldPct,
		"cap_rate_pct":           metrics.CapRatePct,
		"punto_equilibrio_clp":   metrics.BreakEvenCLP,
		"plusvalia_anual_pct":    metrics.AppreciationPct,
	}
	for key, val := range defaults {
		if _, ok := numericField(financial, key); !ok {
			financial[key] = round2(val)
		}
	}
}

func numericField(m map[string]any, key string) (float64, bool) {
	v, ok := m[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
