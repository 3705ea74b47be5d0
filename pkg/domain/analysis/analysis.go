// Package analysis defines the chart-analysis domain: modes, structured model
// results, and the session/record aggregate that groups analysis calls.
package analysis

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidMode is returned when a request carries an unknown analysis mode.
var ErrInvalidMode = errors.New("invalid analysis mode")

// Mode selects the kind of analysis performed on a chart.
type Mode string

const (
	// ModeOpportunity scores a potential trade setup.
	ModeOpportunity Mode = "OPPORTUNITY"
	// ModeGuidance advises on an open position.
	ModeGuidance Mode = "GUIDANCE"
)

// ParseMode validates a wire-level mode string. An empty string defaults to
// ModeOpportunity, matching the public API contract.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeOpportunity, ModeGuidance:
		return Mode(s), nil
	case "":
		return ModeOpportunity, nil
	default:
		return "", ErrInvalidMode
	}
}

// PositionStatus classifies an open position by unrealized P/L.
type PositionStatus string

const (
	StatusProfit    PositionStatus = "PROFIT"
	StatusLoss      PositionStatus = "LOSS"
	StatusBreakeven PositionStatus = "BREAKEVEN"
)

// RiskLevel classifies position risk.
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// Action is the suggested next step for an open position.
type Action string

const (
	ActionHold        Action = "HOLD"
	ActionExit        Action = "EXIT"
	ActionPartialExit Action = "PARTIAL_EXIT"
	ActionAdd         Action = "ADD"
)

// Timeframe is the holding-period recommendation attached to an
// opportunity score.
type Timeframe struct {
	Recommended bool   `json:"recommended"`
	Duration    string `json:"duration"`
	Reason      string `json:"reason,omitempty"`
}

// TradeScore is the structured result of an OPPORTUNITY analysis. Scores are
// 0-100; OverallScore is the 40/35/25 weighted average of technical, risk and
// market-context scores, rounded to the nearest whole number by the model.
// Fields are float64 because the model is free to return decimals.
type TradeScore struct {
	TechnicalScore     float64   `json:"technicalScore"`
	MarketContextScore float64   `json:"marketContextScore"`
	RiskScore          float64   `json:"riskScore"`
	OverallScore       float64   `json:"overallScore"`
	Confidence         float64   `json:"confidence"`
	Explanation        string    `json:"explanation"`
	Timeframe          Timeframe `json:"timeframe"`
}

// Position is the position block of a GUIDANCE result.
type Position struct {
	Status          PositionStatus `json:"status"`
	RiskLevel       RiskLevel      `json:"riskLevel"`
	SuggestedAction Action         `json:"suggestedAction"`
}

// PsychologyCheck surfaces trading-psychology observations alongside
// position guidance.
type PsychologyCheck struct {
	EmotionalState  string   `json:"emotionalState"`
	BiasWarnings    []string `json:"biasWarnings"`
	Recommendations []string `json:"recommendations"`
}

// TradeGuidance is the structured result of a GUIDANCE analysis.
type TradeGuidance struct {
	CurrentPosition Position        `json:"currentPosition"`
	PsychologyCheck PsychologyCheck `json:"psychologyCheck"`
}

// Result is the typed outcome of one analysis call. Exactly one of Score and
// Guidance is set, matching Mode. RawText preserves the model's full reply
// for display alongside the structured block.
type Result struct {
	Mode     Mode           `json:"mode"`
	Score    *TradeScore    `json:"score,omitempty"`
	Guidance *TradeGuidance `json:"guidance,omitempty"`
	RawText  string         `json:"analysis"`
}

// Session groups related analysis calls for one user conversation.
type Session struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Record is one persisted analysis call. Immutable once created; owned
// exclusively by its session.
type Record struct {
	ID        uuid.UUID
	SessionID uuid.UUID
	Mode      Mode
	Prompt    string
	ImageRef  string
	Result    Result
	CreatedAt time.Time
}
