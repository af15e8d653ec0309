package llm

import (
	"go.uber.org/zap"

	"github.com/andes-group/invest-cli/internal/model"
)

var modelPricing = map[string][2]float64{
	// model → {input $/MTok, output $/MTok}
	"claude-haiku-4-5":  {0.80, 4.00},
	"claude-sonnet-4-5": {3.00, 15.00},
	"claude-opus-4-6":   {15.00, 75.00},
}

// EstimateCost computes an estimated cost in USD from a TokenUsage and
// model ID. Returns 0 for unknown models.
func EstimateCost(u model.TokenUsage, modelID string) float64 {
	pricing, ok := modelPricing[modelID]
	if !ok {
		return 0
	}
	inCost := (float64(u.InputTokens) / 1e6) * pricing[0]
	outCost := (float64(u.OutputTokens) / 1e6) * pricing[1]
	return inCost + outCost
}

// LogCost logs token usage and estimated cost with structured fields.
func LogCost(u model.TokenUsage, modelID string) {
	zap.L().Info("cost attribution",
		zap.String("model", modelID),
		zap.Int("input_tokens", u.InputTokens),
		zap.Int("output_tokens", u.OutputTokens),
		zap.Float64("estimated_cost_usd", EstimateCost(u, modelID)),
	)
}
