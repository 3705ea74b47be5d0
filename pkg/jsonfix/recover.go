package jsonfix

import (
	"encoding/json"

	"github.com/amirasaad/tradelens/pkg/domain/analysis"
)

// Recover extracts a typed result from raw model output. It tries, in
// order: direct parse of the widest brace span, parse of the repaired span,
// and finally the mode's default. The trade is fidelity for availability: a
// broken upstream model must never break the response contract.
func Recover(raw string, mode analysis.Mode) analysis.Result {
	res := analysis.Result{Mode: mode, RawText: raw}

	span, ok := ExtractObject(raw)
	if ok {
		if fillFromJSON(&res, span, mode) {
			return res
		}
		if fillFromJSON(&res, Repair(span), mode) {
			return res
		}
	}

	switch mode {
	case analysis.ModeGuidance:
		g := DefaultGuidance()
		res.Guidance = &g
	default:
		s := DefaultScore()
		res.Score = &s
	}
	return res
}

func fillFromJSON(res *analysis.Result, span string, mode analysis.Mode) bool {
	switch mode {
	case analysis.ModeGuidance:
		var g analysis.TradeGuidance
		if err := json.Unmarshal([]byte(span), &g); err != nil {
			return false
		}
		normalizeGuidance(&g)
		res.Guidance = &g
	default:
		var s analysis.TradeScore
		if err := json.Unmarshal([]byte(span), &s); err != nil {
			return false
		}
		res.Score = &s
	}
	return true
}

// normalizeGuidance backfills enum fields the model left empty or invented,
// so a parse success still yields a validly-shaped result.
func normalizeGuidance(g *analysis.TradeGuidance) {
	switch g.CurrentPosition.Status {
	case analysis.StatusProfit, analysis.StatusLoss, analysis.StatusBreakeven:
	default:
		g.CurrentPosition.Status = analysis.StatusBreakeven
	}
	switch g.CurrentPosition.RiskLevel {
	case analysis.RiskLow, analysis.RiskMedium, analysis.RiskHigh:
	default:
		g.CurrentPosition.RiskLevel = analysis.RiskMedium
	}
	switch g.CurrentPosition.SuggestedAction {
	case analysis.ActionHold, analysis.ActionExit, analysis.ActionPartialExit, analysis.ActionAdd:
	default:
		g.CurrentPosition.SuggestedAction = analysis.ActionHold
	}
	if g.PsychologyCheck.BiasWarnings == nil {
		g.PsychologyCheck.BiasWarnings = []string{}
	}
	if g.PsychologyCheck.Recommendations == nil {
		g.PsychologyCheck.Recommendations = []string{}
	}
}

// DefaultScore is the OPPORTUNITY fallback: zero scores, zero confidence,
// an explanation telling the user the analysis failed, and no timeframe
// recommendation.
func DefaultScore() analysis.TradeScore {
	return analysis.TradeScore{
		Explanation: "Analysis failed: the model response could not be interpreted. " +
			"Please try again with a clearer chart image.",
		Timeframe: analysis.Timeframe{
			Recommended: false,
			Reason:      "analysis failed",
		},
	}
}

// DefaultGuidance is the GUIDANCE fallback: a neutral position read and a
// psychology block asking the user to retry.
func DefaultGuidance() analysis.TradeGuidance {
	return analysis.TradeGuidance{
		CurrentPosition: analysis.Position{
			Status:          analysis.StatusBreakeven,
			RiskLevel:       analysis.RiskMedium,
			SuggestedAction: analysis.ActionHold,
		},
		PsychologyCheck: analysis.PsychologyCheck{
			EmotionalState: "Unable to assess: the analysis could not be completed.",
			BiasWarnings:   []string{"No analysis available for this position"},
			Recommendations: []string{
				"Please retry the analysis",
				"Manage the position manually until a new analysis succeeds",
			},
		},
	}
}
