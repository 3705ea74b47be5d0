package jsonfix

import (
	"testing"

	"github.com/amirasaad/tradelens/pkg/domain/analysis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecover_OpportunityEmbeddedInProse(t *testing.T) {
	raw := `Here is the result: {
		"technicalScore": 85,
		"marketContextScore": 70,
		"riskScore": 90,
		"overallScore": 83,
		"confidence": 75,
		"explanation": "Strong setup.",
		"timeframe": {"recommended": true, "duration": "2-4 days"}
	} Thanks!`

	res := Recover(raw, analysis.ModeOpportunity)
	require.NotNil(t, res.Score)
	assert.Nil(t, res.Guidance)
	assert.Equal(t, 85.0, res.Score.TechnicalScore)
	assert.Equal(t, 70.0, res.Score.MarketContextScore)
	assert.Equal(t, 90.0, res.Score.RiskScore)
	assert.Equal(t, 83.0, res.Score.OverallScore)
	assert.Equal(t, 75.0, res.Score.Confidence)
	assert.Equal(t, "Strong setup.", res.Score.Explanation)
	assert.True(t, res.Score.Timeframe.Recommended)
	assert.Equal(t, "2-4 days", res.Score.Timeframe.Duration)
	assert.Equal(t, raw, res.RawText)
}

func TestRecover_RepairsRawNewlineInString(t *testing.T) {
	raw := "{\"technicalScore\": 60, \"explanation\": \"first line\nsecond line\"}"

	res := Recover(raw, analysis.ModeOpportunity)
	require.NotNil(t, res.Score)
	assert.Equal(t, 60.0, res.Score.TechnicalScore)
	assert.Equal(t, "first line\nsecond line", res.Score.Explanation)
}

func TestRecover_GuidanceHappyPath(t *testing.T) {
	raw := `{
		"currentPosition": {"status": "PROFIT", "riskLevel": "LOW", "suggestedAction": "HOLD"},
		"psychologyCheck": {
			"emotionalState": "calm",
			"biasWarnings": ["anchoring"],
			"recommendations": ["trail your stop"]
		}
	}`

	res := Recover(raw, analysis.ModeGuidance)
	require.NotNil(t, res.Guidance)
	assert.Nil(t, res.Score)
	assert.Equal(t, analysis.StatusProfit, res.Guidance.CurrentPosition.Status)
	assert.Equal(t, analysis.RiskLow, res.Guidance.CurrentPosition.RiskLevel)
	assert.Equal(t, analysis.ActionHold, res.Guidance.CurrentPosition.SuggestedAction)
	assert.Equal(t, []string{"anchoring"}, res.Guidance.PsychologyCheck.BiasWarnings)
}

func TestRecover_GuidanceNormalizesInvalidEnums(t *testing.T) {
	raw := `{"currentPosition": {"status": "MOON", "riskLevel": "", "suggestedAction": "YOLO"}}`

	res := Recover(raw, analysis.ModeGuidance)
	require.NotNil(t, res.Guidance)
	assert.Equal(t, analysis.StatusBreakeven, res.Guidance.CurrentPosition.Status)
	assert.Equal(t, analysis.RiskMedium, res.Guidance.CurrentPosition.RiskLevel)
	assert.Equal(t, analysis.ActionHold, res.Guidance.CurrentPosition.SuggestedAction)
	assert.NotNil(t, res.Guidance.PsychologyCheck.BiasWarnings)
	assert.NotNil(t, res.Guidance.PsychologyCheck.Recommendations)
}

func TestRecover_DefaultOnGarbage(t *testing.T) {
	for _, raw := range []string{
		"",
		"no json at all",
		"{ definitely not json ]",
		`{"technicalScore": "eighty five"}`,
	} {
		res := Recover(raw, analysis.ModeOpportunity)
		require.NotNil(t, res.Score, "input: %q", raw)
		assert.Zero(t, res.Score.TechnicalScore)
		assert.Zero(t, res.Score.Confidence)
		assert.NotEmpty(t, res.Score.Explanation)
		assert.False(t, res.Score.Timeframe.Recommended)
	}
}

func TestRecover_DefaultGuidanceOnGarbage(t *testing.T) {
	res := Recover("the model timed out mid-sentence {", analysis.ModeGuidance)
	require.NotNil(t, res.Guidance)
	assert.Equal(t, analysis.StatusBreakeven, res.Guidance.CurrentPosition.Status)
	assert.Equal(t, analysis.RiskMedium, res.Guidance.CurrentPosition.RiskLevel)
	assert.Equal(t, analysis.ActionHold, res.Guidance.CurrentPosition.SuggestedAction)
	assert.NotEmpty(t, res.Guidance.PsychologyCheck.Recommendations)
}

func TestRecover_NeverPanics(t *testing.T) {
	inputs := []string{
		"{", "}", "{{{{", `{"a":`, "\x00\x01\x02", `{"a": "unterminated`,
		`prose { "x": [1,2,3 } prose`, "{}",
	}
	for _, raw := range inputs {
		for _, mode := range []analysis.Mode{analysis.ModeOpportunity, analysis.ModeGuidance} {
			res := Recover(raw, mode)
			assert.Equal(t, mode, res.Mode)
			assert.True(t, (res.Score != nil) != (res.Guidance != nil),
				"exactly one of score/guidance set for %q", raw)
		}
	}
}
