package analysis

import (
	"github.com/ayush/docmind/backend/internal/completion"
	"github.com/ayush/docmind/backend/internal/models"
	"github.com/ayush/docmind/backend/internal/prompt"
)

// Info describes a tool in the catalogue.
type Info struct {
	ID          prompt.Kind `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
}

var Catalogue = []Info{
	{prompt.Summary, "Lecture Summary", "Get a concise overview of key points"},
	{prompt.Quiz, "Quiz Generator", "Create practice questions from content"},
	{prompt.Chat, "Ask Questions", "Chat with your document"},
	{prompt.Search, "Smart Search", "Find specific information quickly"},
	{prompt.Concepts, "Key Concepts", "Extract main ideas and terms"},
}

// Concept view tabs.
const (
	TabConcepts      = "concepts"
	TabTerms         = "terms"
	TabRelationships = "relationships"
)

var ConceptTabs = []string{TabConcepts, TabTerms, TabRelationships}

var summaryTool = Tool[models.SummaryResult]{
	Kind: prompt.Summary,
	Decode: func(res completion.Result, _ prompt.Request) (models.SummaryResult, error) {
		return completion.DecodeSummary(res)
	},
	Failure:        "Failed to generate summary",
	ServiceMessage: true,
}

var quizTool = Tool[models.QuizResult]{
	Kind: prompt.Quiz,
	Decode: func(res completion.Result, req prompt.Request) (models.QuizResult, error) {
		return completion.DecodeQuiz(res, req.QuestionType)
	},
	Failure:        "Failed to generate quiz",
	ServiceMessage: true,
}

var chatTool = Tool[string]{
	Kind: prompt.Chat,
	Decode: func(res completion.Result, _ prompt.Request) (string, error) {
		return res.Content, nil
	},
	Failure: "Failed to get response. Please try again",
}

var searchTool = Tool[models.SearchResults]{
	Kind: prompt.Search,
	Decode: func(res completion.Result, _ prompt.Request) (models.SearchResults, error) {
		return completion.DecodeSearch(res)
	},
	Failure: "Failed to search. Please try again.",
}

var conceptsTool = Tool[models.ConceptGraph]{
	Kind: prompt.Concepts,
	Decode: func(res completion.Result, _ prompt.Request) (models.ConceptGraph, error) {
		return completion.DecodeConcepts(res)
	},
	Failure: "Failed to analyze the document",
	AutoRun: true,
}
