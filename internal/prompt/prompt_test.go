package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayush/docmind/backend/internal/models"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		n    int
		want string
	}{
		{"shorter", "abc", 10, "abc"},
		{"exact", "abcde", 5, "abcde"},
		{"cut", "abcdef", 4, "abcd"},
		{"runes", "héllo wörld", 7, "héllo w"},
		{"zero", "abc", 0, ""},
		{"empty", "", 3, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Truncate(tt.in, tt.n))
		})
	}
}

func TestBuildTruncatesToBudget(t *testing.T) {
	text := strings.Repeat("0123456789", 700)

	for _, kind := range Kinds {
		t.Run(string(kind), func(t *testing.T) {
			req, err := Build(text, kind, Options{
				NumberOfQuestions: 3,
				Query:             "enzymes",
				Message:           "what is this about?",
			})
			require.NoError(t, err)
			assert.Equal(t, text[:6000], req.UserContent)
			assert.Len(t, req.UserContent, DefaultExcerptChars)
			assert.NotContains(t, req.SystemInstruction+req.Instruction, text[:6001])
		})
	}
}

func TestBuildCustomBudget(t *testing.T) {
	req, err := Build("abcdefghij", Summary, Options{ExcerptChars: 4})
	require.NoError(t, err)
	assert.Equal(t, "abcd", req.UserContent)
	assert.Contains(t, req.Instruction, "Content: abcd\n")
}

func TestBuildResponseFormat(t *testing.T) {
	tests := []struct {
		kind   Kind
		format Format
		temp   float64
		fields []string
	}{
		{Summary, StructuredJSON, 0.3, []string{`"summary"`, `"keyPoints"`}},
		{Quiz, StructuredJSON, 0.3, []string{`"questions"`, `"question"`, `"options"`, `"correctAnswer"`, `"explanation"`}},
		{Search, StructuredJSON, 0.3, []string{`"results"`, `"excerpt"`, `"explanation"`, `"confidence"`}},
		{Concepts, StructuredJSON, 0.3, []string{`"mainConcepts"`, `"terms"`, `"relationships"`, `"concept1"`, `"concept2"`}},
		{Chat, FreeText, 0.7, nil},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			req, err := Build("doc", tt.kind, Options{NumberOfQuestions: 2, Query: "q", Message: "m"})
			require.NoError(t, err)
			assert.Equal(t, tt.format, req.ResponseFormat)
			assert.Equal(t, tt.temp, req.Params.Temperature)
			assert.Equal(t, DefaultModel, req.Params.Model)
			for _, f := range tt.fields {
				assert.Contains(t, req.Instruction, f)
			}
		})
	}
}

func TestBuildQuizOptions(t *testing.T) {
	req, err := Build("cells", Quiz, Options{NumberOfQuestions: 2, QuestionType: models.TrueFalse})
	require.NoError(t, err)
	assert.Contains(t, req.Instruction, "Create 2 true-false questions")
	assert.Contains(t, req.Instruction, `["True", "False"]`)
	assert.Equal(t, models.TrueFalse, req.QuestionType)

	req, err = Build("cells", Quiz, Options{NumberOfQuestions: 1})
	require.NoError(t, err)
	assert.Equal(t, models.MultipleChoice, req.QuestionType)
	assert.Contains(t, req.Instruction, "exactly four options")
}

func TestBuildQuizRejectsBadOptions(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{"zero questions", Options{NumberOfQuestions: 0}},
		{"over limit", Options{NumberOfQuestions: 3, MaxQuestions: 2}},
		{"over default limit", Options{NumberOfQuestions: DefaultMaxQuestions + 1}},
		{"bad type", Options{NumberOfQuestions: 1, QuestionType: "essay"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build("x", Quiz, tt.opts)
			assert.ErrorIs(t, err, ErrInvalidOptions)
		})
	}
}

func TestBuildRejectsEmptyInputs(t *testing.T) {
	_, err := Build("x", Search, Options{Query: "   "})
	assert.ErrorIs(t, err, ErrInvalidOptions)

	_, err = Build("x", Chat, Options{Message: ""})
	assert.ErrorIs(t, err, ErrInvalidOptions)

	_, err = Build("x", Kind("poem"), Options{})
	assert.ErrorIs(t, err, ErrUnknownTool)
}

func TestChatMessages(t *testing.T) {
	history := []models.ChatMessage{
		{Role: "system", Content: "Hello! I'm here to help."},
		{Role: "user", Content: "first"},
		{Role: "assistant", Content: "answer"},
	}
	req, err := Build("the document", Chat, Options{Message: "  second  ", History: history})
	require.NoError(t, err)

	msgs := req.Messages()
	require.Len(t, msgs, 4)
	assert.Equal(t, "system", msgs[0].Role)
	assert.Contains(t, msgs[0].Content, "the document")
	assert.Equal(t, "first", msgs[1].Content)
	assert.Equal(t, "answer", msgs[2].Content)
	assert.Equal(t, models.ChatMessage{Role: "user", Content: "second"}, msgs[3])
}

func TestSearchMessages(t *testing.T) {
	req, err := Build("body text", Search, Options{Query: "osmosis"})
	require.NoError(t, err)
	msgs := req.Messages()
	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[0].Content, "body text")
	assert.Contains(t, msgs[1].Content, "Find information about: osmosis.")
}
