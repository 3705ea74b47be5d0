package analysis

import (
	"time"

	domainanalysis "github.com/amirasaad/tradelens/pkg/domain/analysis"
	domainknowledge "github.com/amirasaad/tradelens/pkg/domain/knowledge"
)

// AnalyzeInput is the analyze request body. Image is base64; SessionID
// continues an existing conversation when set.
type AnalyzeInput struct {
	Image     string `json:"image" validate:"required"`
	MIMEType  string `json:"mimeType"`
	Prompt    string `json:"prompt" validate:"required,max=2000"`
	Mode      string `json:"mode"`
	SessionID string `json:"sessionId"`
}

// AnalyzeResponse is the analyze response body.
type AnalyzeResponse struct {
	SessionID string                  `json:"sessionId"`
	RecordID  string                  `json:"recordId"`
	Mode      string                  `json:"mode"`
	Result    domainanalysis.Result   `json:"result"`
	Context   []domainknowledge.Match `json:"context,omitempty"`
	Timestamp time.Time               `json:"timestamp"`
}

// RecordDTO is one persisted analysis in a session listing.
type RecordDTO struct {
	ID        string                `json:"id"`
	Mode      string                `json:"mode"`
	Prompt    string                `json:"prompt"`
	Result    domainanalysis.Result `json:"result"`
	CreatedAt time.Time             `json:"createdAt"`
}
