package report

import "github.com/andes-group/invest-cli/internal/model"

// Confidence weights. Source success dominates; the analysis origin and
// the structural completeness of the sections make up the rest.
const (
	weightSources      = 0.6
	weightOrigin       = 0.3
	weightCompleteness = 0.1

	originModelPct    = 100.0
	originFallbackPct = 50.0
)

// Score computes the report confidence on a 0-100 scale:
// 60% source success ratio, 30% analysis origin (full for model output,
// half for fallback synthesis, none for emergency), 10% fraction of
// sections carrying real content rather than repair placeholders.
func Score(orch *model.OrchestrationResult, an *model.AnalysisResult) float64 {
	var sourcePct float64
	if orch != nil {
		sourcePct = orch.QualityPct()
	}

	var originPct float64
	if an != nil {
		switch an.Origin {
		case model.OriginModel:
			originPct = originModelPct
		case model.OriginFallback:
			originPct = originFallbackPct
		}
	}

	score := weightSources*sourcePct +
		weightOrigin*originPct +
		weightCompleteness*completenessPct(an)

	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// completenessPct is the fraction of the four sections that carry real
// content. Repair and emergency placeholders do not count.
func completenessPct(an *model.AnalysisResult) float64 {
	if an == nil {
		return 0
	}
	n := 0
	for _, section := range []map[string]any{an.Financial, an.Location, an.Security} {
		if section != nil && !placeholder(section) {
			n++
		}
	}
	if an.Summary != nil && an.Summary.Decision != "" && an.Origin != model.OriginEmergency {
		n++
	}
	return float64(n) / 4.0 * 100.0
}

func placeholder(section map[string]any) bool {
	return section["reparado"] == true || section["emergencia"] == true
}
