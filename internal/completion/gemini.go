package completion

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	genai "google.golang.org/genai"

	"github.com/ayush/docmind/backend/internal/prompt"
)

const DefaultGeminiModel = "gemini-2.5-flash"

// Gemini completes requests with the Gemini API. The request's model
// parameter is ignored in favour of the configured Gemini model.
type Gemini struct {
	client *genai.Client
	model  string
	logger *zap.Logger
}

func NewGemini(ctx context.Context, apiKey, model string, logger *zap.Logger) (*Gemini, error) {
	if apiKey == "" {
		return nil, errors.New("missing gemini api key")
	}
	return newGemini(ctx, &genai.ClientConfig{APIKey: apiKey, Backend: genai.BackendGeminiAPI}, model, logger)
}

func newGemini(ctx context.Context, cc *genai.ClientConfig, model string, logger *zap.Logger) (*Gemini, error) {
	if model == "" {
		model = DefaultGeminiModel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &Gemini{client: c, model: model, logger: logger}, nil
}

func (g *Gemini) Complete(ctx context.Context, req prompt.Request) (Result, error) {
	var contents []*genai.Content
	for _, m := range req.Messages() {
		switch m.Role {
		case "system":
			continue
		case "assistant":
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}

	temperature := float32(req.Params.Temperature)
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(req.SystemInstruction, genai.RoleUser),
		Temperature:       &temperature,
	}
	if req.ResponseFormat == prompt.StructuredJSON {
		cfg.ResponseMIMEType = "application/json"
	}

	res, err := g.client.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		g.logger.Warn("gemini completion failed", zap.String("tool", string(req.Kind)), zap.Error(err))
		return Result{}, geminiError(err)
	}
	return checkContent(res.Text(), req.ResponseFormat)
}

// geminiError maps a Gemini client error into the completion error types.
func geminiError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &ServiceError{StatusCode: apiErr.Code, Message: apiErr.Message}
	}
	return &TransportError{Err: err}
}
