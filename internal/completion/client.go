// Package completion talks to the remote text-completion service.
package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ayush/docmind/backend/internal/models"
	"github.com/ayush/docmind/backend/internal/prompt"
)

const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultTimeout = 60 * time.Second
)

// Result is the text payload of a successful completion. Structured
// results have already been checked to be well-formed JSON.
type Result struct {
	Content    string
	Structured bool
}

// Completer performs one completion round trip.
type Completer interface {
	Complete(ctx context.Context, req prompt.Request) (Result, error)
}

// Client calls an OpenAI-compatible chat completion endpoint. Each call is
// a single request with no retry and no streaming.
type Client struct {
	baseURL    string
	apiKey     string
	userAgent  string
	httpClient *http.Client
	logger     *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		apiKey:     apiKey,
		userAgent:  "docmind/1.0",
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(baseURL, "/") }
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

// WithTimeout bounds the whole round trip.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = timeout }
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

func WithUserAgent(userAgent string) Option {
	return func(c *Client) { c.userAgent = userAgent }
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string               `json:"model"`
	Messages       []models.ChatMessage `json:"messages"`
	Temperature    float64              `json:"temperature"`
	ResponseFormat *responseFormat      `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Complete sends req and returns the reply content.
func (c *Client) Complete(ctx context.Context, req prompt.Request) (Result, error) {
	body := chatRequest{
		Model:       req.Params.Model,
		Messages:    req.Messages(),
		Temperature: req.Params.Temperature,
	}
	if req.ResponseFormat == prompt.StructuredJSON {
		body.ResponseFormat = &responseFormat{Type: string(prompt.StructuredJSON)}
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return Result{}, fmt.Errorf("marshal completion request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return Result{}, fmt.Errorf("create completion request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("User-Agent", c.userAgent)

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Warn("completion transport error", zap.String("tool", string(req.Kind)), zap.Error(err))
		return Result{}, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	c.logger.Debug("completion response",
		zap.String("tool", string(req.Kind)),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Result{}, parseError(resp)
	}

	var decoded chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return Result{}, &MalformedResponseError{Reason: "decode envelope", Err: err}
	}
	if len(decoded.Choices) == 0 {
		return Result{}, &MalformedResponseError{Reason: "no choices in response"}
	}
	return checkContent(decoded.Choices[0].Message.Content, req.ResponseFormat)
}

func checkContent(content string, format prompt.Format) (Result, error) {
	if format != prompt.StructuredJSON {
		return Result{Content: content}, nil
	}
	if !json.Valid([]byte(content)) {
		return Result{}, &MalformedResponseError{Reason: "content is not valid JSON"}
	}
	return Result{Content: content, Structured: true}, nil
}

func parseError(resp *http.Response) error {
	serr := &ServiceError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return serr
	}
	var body errorResponse
	if json.Unmarshal(raw, &body) == nil && body.Error.Message != "" {
		serr.Message = body.Error.Message
	}
	return serr
}
