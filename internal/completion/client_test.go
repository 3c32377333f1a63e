package completion

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayush/docmind/backend/internal/prompt"
)

func reply(w http.ResponseWriter, content string) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"choices": []map[string]any{{"message": map[string]any{"role": "assistant", "content": content}}},
	})
}

func mustBuild(t *testing.T, kind prompt.Kind) prompt.Request {
	t.Helper()
	req, err := prompt.Build("Lecture on thermodynamics.", kind, prompt.Options{NumberOfQuestions: 2, Query: "entropy", Message: "hi"})
	require.NoError(t, err)
	return req
}

func TestCompleteSendsRequest(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, prompt.DefaultModel, body.Model)
		assert.Equal(t, 0.3, body.Temperature)
		require.NotNil(t, body.ResponseFormat)
		assert.Equal(t, "json_object", body.ResponseFormat.Type)
		require.Len(t, body.Messages, 2)
		assert.Equal(t, "system", body.Messages[0].Role)
		assert.Contains(t, body.Messages[1].Content, "thermodynamics")

		reply(w, `{"summary":"s","keyPoints":["a"]}`)
	}))
	defer server.Close()

	c := NewClient("sk-test", WithBaseURL(server.URL+"/v1/"))
	res, err := c.Complete(context.Background(), mustBuild(t, prompt.Summary))
	require.NoError(t, err)
	assert.True(t, res.Structured)
	assert.Equal(t, `{"summary":"s","keyPoints":["a"]}`, res.Content)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestCompleteChatOmitsResponseFormat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var raw map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		_, has := raw["response_format"]
		assert.False(t, has)
		assert.Equal(t, 0.7, raw["temperature"])
		reply(w, "Plain answer, not JSON.")
	}))
	defer server.Close()

	res, err := NewClient("k", WithBaseURL(server.URL)).Complete(context.Background(), mustBuild(t, prompt.Chat))
	require.NoError(t, err)
	assert.False(t, res.Structured)
	assert.Equal(t, "Plain answer, not JSON.", res.Content)
}

func TestCompleteServiceError(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{"service message", http.StatusTooManyRequests, `{"error":{"message":"Rate limit reached","type":"requests"}}`, "Rate limit reached"},
		{"no body", http.StatusBadGateway, ``, "Bad Gateway"},
		{"non json body", http.StatusInternalServerError, `oops`, "Internal Server Error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := NewClient("k", WithBaseURL(server.URL)).Complete(context.Background(), mustBuild(t, prompt.Quiz))
			var serr *ServiceError
			require.ErrorAs(t, err, &serr)
			assert.Equal(t, tt.status, serr.StatusCode)
			assert.Equal(t, tt.message, serr.Message)
			assert.ErrorIs(t, err, ErrCompletion)
		})
	}
}

func TestCompleteMalformed(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"content not json", func(w http.ResponseWriter, r *http.Request) { reply(w, "Sure! Here is your summary:") }},
		{"no choices", func(w http.ResponseWriter, r *http.Request) { w.Write([]byte(`{"choices":[]}`)) }},
		{"bad envelope", func(w http.ResponseWriter, r *http.Request) { w.Write([]byte(`<html>`)) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			_, err := NewClient("k", WithBaseURL(server.URL)).Complete(context.Background(), mustBuild(t, prompt.Summary))
			var merr *MalformedResponseError
			require.ErrorAs(t, err, &merr)
			assert.ErrorIs(t, err, ErrCompletion)
		})
	}
}

func TestCompleteTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	c := NewClient("k", WithBaseURL(server.URL), WithTimeout(50*time.Millisecond))
	_, err := c.Complete(context.Background(), mustBuild(t, prompt.Summary))
	var terr *TransportError
	require.ErrorAs(t, err, &terr)
}

func TestUserMessage(t *testing.T) {
	msg, ok := UserMessage(&ServiceError{StatusCode: 400, Message: "context length exceeded"})
	assert.True(t, ok)
	assert.Equal(t, "context length exceeded", msg)

	_, ok = UserMessage(&MalformedResponseError{Reason: "x"})
	assert.False(t, ok)
}
