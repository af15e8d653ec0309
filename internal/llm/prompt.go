package llm

import (
	"encoding/json"
	"fmt"

	"github.com/andes-group/invest-cli/internal/model"
)

const systemPrompt = `Eres un analista de inversiones inmobiliarias en Chile.
Recibes datos recolectados de una propiedad: ficha del portal, propiedades
comparables y simulaciones de crédito hipotecario. Algunos datos pueden
faltar; trabaja con lo disponible y declara los supuestos.

Responde ÚNICAMENTE con un objeto JSON válido, sin texto adicional, sin
markdown y sin bloques de código.`

const responseSchema = `{
  "indicadores_financieros": {
    "flujo_caja_mensual_clp": 0,
    "rentabilidad_bruta_pct": 0,
    "rentabilidad_neta_pct": 0,
    "cap_rate_pct": 0,
    "punto_equilibrio_clp": 0,
    "plusvalia_anual_pct": 0,
    "comentario": ""
  },
  "analisis_ubicacion": {
    "comuna": "",
    "conectividad": "",
    "servicios": "",
    "demanda_arriendo": "",
    "comentario": ""
  },
  "analisis_seguridad": {
    "nivel_riesgo": "",
    "tendencia": "",
    "comentario": ""
  },
  "resumen_ejecutivo": {
    "decision": "",
    "justificacion": "",
    "nivel_riesgo": ""
  }
}`

// promptData is the JSON bundle embedded in the user message. Only data
// that was actually collected is included.
type promptData struct {
	Property    *model.PropertySnapshot   `json:"propiedad,omitempty"`
	Comparables []model.ComparableListing `json:"comparables,omitempty"`
	Loans       *model.LoanComparison     `json:"creditos,omitempty"`
	Metrics     *model.FinancialMetrics   `json:"metricas_calculadas,omitempty"`
	Failed      []string                  `json:"fuentes_fallidas,omitempty"`
}

// BuildPrompt assembles the system instruction and user message for one
// analysis call from whatever the orchestration phase collected.
func BuildPrompt(res *model.OrchestrationResult, metrics *model.FinancialMetrics) (system, user string, err error) {
	data := promptData{
		Property:    res.Property,
		Comparables: res.Comparables,
		Loans:       res.Loans,
		Metrics:     metrics,
	}
	for name := range res.Failures {
		data.Failed = append(data.Failed, string(name))
	}

	payload, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", "", err
	}

	user = fmt.Sprintf(`Datos recolectados:

%s

Genera el análisis de inversión con exactamente esta estructura JSON:

%s`, payload, responseSchema)

	return systemPrompt, user, nil
}
