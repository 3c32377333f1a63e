// Package prompt builds bounded completion requests for each analysis tool.
package prompt

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ayush/docmind/backend/internal/models"
)

const (
	DefaultExcerptChars = 6000
	DefaultModel        = "gpt-3.5-turbo-0125"
	DefaultMaxQuestions = 10
)

// Kind names an analysis tool.
type Kind string

const (
	Summary  Kind = "summary"
	Quiz     Kind = "quiz"
	Chat     Kind = "chat"
	Search   Kind = "search"
	Concepts Kind = "concepts"
)

// Kinds lists every tool in catalogue order.
var Kinds = []Kind{Summary, Quiz, Chat, Search, Concepts}

func (k Kind) Valid() bool {
	_, ok := templates[k]
	return ok
}

// Structured reports whether the tool expects a JSON reply.
func (k Kind) Structured() bool { return k.Valid() && k != Chat }

// Format is the response format hint sent with a request.
type Format string

const (
	FreeText       Format = "text"
	StructuredJSON Format = "json_object"
)

// Params are the model parameters of a request.
type Params struct {
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
}

// Options carries the per-call inputs a tool needs beyond the document.
type Options struct {
	ExcerptChars int
	Model        string

	NumberOfQuestions int
	QuestionType      models.QuestionType
	MaxQuestions      int

	Query string

	Message string
	History []models.ChatMessage
}

// Request is a fully built completion request. UserContent is the
// truncated document excerpt embedded in the instructions.
type Request struct {
	Kind              Kind
	SystemInstruction string
	UserContent       string
	Instruction       string
	History           []models.ChatMessage
	ResponseFormat    Format
	Params            Params
	QuestionType      models.QuestionType
}

// Messages renders the conversation sent to the completion service.
func (r Request) Messages() []models.ChatMessage {
	msgs := make([]models.ChatMessage, 0, len(r.History)+2)
	msgs = append(msgs, models.ChatMessage{Role: "system", Content: r.SystemInstruction})
	for _, m := range r.History {
		if m.Role == "system" {
			continue
		}
		msgs = append(msgs, m)
	}
	return append(msgs, models.ChatMessage{Role: "user", Content: r.Instruction})
}

var (
	ErrUnknownTool    = errors.New("unknown tool")
	ErrInvalidOptions = errors.New("invalid options")
)

// Build assembles the request for kind from the extracted text.
func Build(text string, kind Kind, opts Options) (Request, error) {
	tpl, ok := templates[kind]
	if !ok {
		return Request{}, fmt.Errorf("%w: %q", ErrUnknownTool, kind)
	}
	if err := tpl.check(&opts); err != nil {
		return Request{}, err
	}

	budget := opts.ExcerptChars
	if budget <= 0 {
		budget = DefaultExcerptChars
	}
	model := opts.Model
	if model == "" {
		model = DefaultModel
	}

	excerpt := Truncate(text, budget)
	req := Request{
		Kind:              kind,
		SystemInstruction: tpl.system(excerpt, opts),
		UserContent:       excerpt,
		Instruction:       tpl.user(excerpt, opts),
		ResponseFormat:    FreeText,
		Params:            Params{Model: model, Temperature: tpl.temperature},
		QuestionType:      opts.QuestionType,
	}
	if kind.Structured() {
		req.ResponseFormat = StructuredJSON
	}
	if kind == Chat {
		req.History = append([]models.ChatMessage(nil), opts.History...)
	}
	return req, nil
}

// Truncate returns the first n characters of text. It is a hard prefix
// cut counted in runes.
func Truncate(text string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range text {
		if count == n {
			return text[:i]
		}
		count++
	}
	return text
}

func trimmed(s string) string { return strings.TrimSpace(s) }
