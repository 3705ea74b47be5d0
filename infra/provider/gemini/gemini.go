// Package gemini implements the vision model and embedder contracts on
// the Google Generative AI API.
package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/amirasaad/tradelens/pkg/config"
	"github.com/amirasaad/tradelens/pkg/provider"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Provider serves both vision generation and text embedding from one
// Gemini client.
type Provider struct {
	client *genai.Client
	cfg    *config.Gemini
	logger *slog.Logger
}

var (
	_ provider.VisionModel = (*Provider)(nil)
	_ provider.Embedder    = (*Provider)(nil)
)

// New connects to the Gemini API.
func New(ctx context.Context, cfg *config.Gemini, logger *slog.Logger) (*Provider, error) {
	if cfg.ApiKey == "" {
		return nil, fmt.Errorf("gemini: GEMINI_API_KEY is not set")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.ApiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini: client init: %w", err)
	}
	return &Provider{
		client: client,
		cfg:    cfg,
		logger: logger.With("provider", "gemini"),
	}, nil
}

// Generate sends the chart image and instruction to the vision model and
// returns the raw text reply.
func (p *Provider) Generate(ctx context.Context, image []byte, mimeType, instruction string) (string, error) {
	model := p.client.GenerativeModel(p.cfg.Model)
	resp, err := model.GenerateContent(ctx,
		genai.ImageData(imageFormat(mimeType), image),
		genai.Text(instruction),
	)
	if err != nil {
		return "", fmt.Errorf("gemini: generate content: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("gemini: empty response")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	p.logger.Debug("model reply received", "model", p.cfg.Model, "chars", sb.Len())
	return sb.String(), nil
}

// Embed returns the embedding vector for the text.
func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	model := p.client.EmbeddingModel(p.cfg.EmbeddingModel)
	res, err := model.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("gemini: embed content: %w", err)
	}
	if res.Embedding == nil || len(res.Embedding.Values) == 0 {
		return nil, fmt.Errorf("gemini: empty embedding")
	}
	return res.Embedding.Values, nil
}

// Close releases the underlying API client.
func (p *Provider) Close() error {
	return p.client.Close()
}

// imageFormat maps a MIME type to the bare format string genai expects.
func imageFormat(mimeType string) string {
	if format, ok := strings.CutPrefix(mimeType, "image/"); ok {
		return format
	}
	return "png"
}
