// Package prompt builds vision-model requests for the two analysis modes.
// It is pure data transformation: no I/O, deterministic for a given input,
// and unit-testable without a model.
package prompt

import (
	"fmt"
	"strings"

	"github.com/amirasaad/tradelens/pkg/domain/analysis"
	"github.com/amirasaad/tradelens/pkg/domain/knowledge"
)

// Request is a fully assembled model request: one image plus one
// instruction block.
type Request struct {
	Image       []byte
	MIMEType    string
	Instruction string
}

// FormatKnowledge renders retrieved knowledge for context injection, one
// "category: content" paragraph per match.
func FormatKnowledge(matches []knowledge.Match) string {
	parts := make([]string, 0, len(matches))
	for _, m := range matches {
		parts = append(parts, fmt.Sprintf("%s: %s", m.Category, m.Content))
	}
	return strings.Join(parts, "\n\n")
}

// Build assembles the model request for the given mode. The user's prompt is
// embedded verbatim; the knowledge context may be empty.
func Build(mode analysis.Mode, userPrompt string, image []byte, mimeType string, knowledgeContext string) Request {
	var task string
	if mode == analysis.ModeGuidance {
		task = fmt.Sprintf(guidanceInstructions, userPrompt)
	} else {
		task = fmt.Sprintf(opportunityInstructions, userPrompt)
	}
	return Request{
		Image:    image,
		MIMEType: mimeType,
		Instruction: fmt.Sprintf(
			"Using the following trading knowledge as context:\n\n%s\n\n%s\n%s",
			knowledgeContext, task, closingConsiderations,
		),
	}
}

const opportunityInstructions = `Analyze this trading chart for potential opportunities. %s

First, identify if there are any specific questions in the user's prompt and make sure to address them directly in your explanation.

Score this opportunity using these strict criteria:

TECHNICAL SCORE (0-100):
- 90-100: Perfect technical setup (multiple confirming indicators, clear patterns, strong momentum)
- 80-89: Strong technical setup (clear pattern, good indicators)
- 70-79: Good technical setup (some confirming signals)
- 60-69: Mixed technical signals
- Below 60: Weak or conflicting signals

MARKET CONTEXT SCORE (0-100):
- 90-100: Perfect market alignment (strong trend, clear market structure)
- 80-89: Strong market conditions (good trend alignment)
- 70-79: Decent market conditions (neutral trend)
- 60-69: Mixed market conditions
- Below 60: Poor market conditions

RISK SCORE (0-100):
- 90-100: Excellent R:R ratio (>3:1) with clear invalidation
- 80-89: Strong R:R ratio (2.5-3:1)
- 70-79: Good R:R ratio (2:1)
- 60-69: Marginal R:R ratio (1.5:1)
- Below 60: Poor R:R or unclear invalidation

OVERALL SCORE calculation:
1. Weight each component:
   - Technical Score: 40%%
   - Risk Score: 35%%
   - Market Context Score: 25%%
2. Calculate weighted average
3. Round to nearest whole number

Provide the analysis in the following JSON format:
{
  "technicalScore": <score based on above criteria>,
  "marketContextScore": <score based on above criteria>,
  "riskScore": <score based on above criteria>,
  "overallScore": <weighted average as described above>,
  "confidence": <0-100 based on analysis certainty>,
  "explanation": "<Start with a direct response to any user questions. Then explain the scoring:
    - If overall score >= 80: Strongly recommend the opportunity
    - If overall score 70-79: Highlight both positives and cautions
    - If overall score < 70: Explain why it's not recommended

    Use a conversational tone and address the user directly.>",
  "timeframe": {
    "recommended": <true if the setup suits a definable holding period>,
    "duration": "<e.g. 2-4 days, 1-2 weeks>",
    "reason": "<why this timeframe fits the setup>"
  }
}
`

const guidanceInstructions = `Analyze this trading chart for active trade guidance. %s

First, identify any specific questions or concerns in the user's prompt. Make sure to address these directly in your response.

Then extract the following information from the prompt and chart:
1. Entry price level (look for numbers or price levels mentioned)
2. Current price level (analyze the chart's current price)
3. Stop loss level (look for mentions of stop loss or risk level)
4. Trade direction (long/buy or short/sell)

Calculate the following:
1. Current P/L %%: ((Current Price - Entry Price) / Entry Price) * 100 for longs, or ((Entry Price - Current Price) / Entry Price) * 100 for shorts
2. Risk Level: Based on proximity to stop loss and market volatility
3. Suggested Action: Based on technical analysis, risk level, and market conditions

Provide guidance in the following JSON format:
{
  "currentPosition": {
    "status": "<PROFIT if P/L > 0.5%% | LOSS if P/L < -0.5%% | BREAKEVEN if -0.5%% <= P/L <= 0.5%%>",
    "riskLevel": "<LOW if far from stop and low volatility | MEDIUM if moderate risk | HIGH if near stop or high volatility>",
    "suggestedAction": "<HOLD|EXIT|PARTIAL_EXIT|ADD based on technical analysis and risk>"
  },
  "psychologyCheck": {
    "emotionalState": "<analyze potential emotional state based on position performance and user's tone>",
    "biasWarnings": [
      "<identify potential trading biases based on market conditions, position, and user's concerns>"
    ],
    "recommendations": [
      "<provide personalized, actionable steps addressing user's specific questions and concerns>",
      "<add general position management advice if needed>"
    ]
  }
}

Start your response by directly addressing the user's questions or concerns. Then provide the technical analysis and recommendations in a conversational tone.
`

const closingConsiderations = `
Additional considerations:
1. Pattern identification
2. Key support and resistance levels
3. Trend analysis
4. Risk considerations
5. Direct answers to user questions`
