package prompt

import (
	"fmt"

	"github.com/ayush/docmind/backend/internal/models"
)

type template struct {
	temperature float64
	check       func(*Options) error
	system      func(excerpt string, opts Options) string
	user        func(excerpt string, opts Options) string
}

func noCheck(*Options) error { return nil }

func fixed(s string) func(string, Options) string {
	return func(string, Options) string { return s }
}

var templates = map[Kind]template{
	Summary: {
		temperature: 0.3,
		check:       noCheck,
		system:      fixed("You are a helpful assistant that creates concise lecture summaries. Return only valid JSON without any additional text."),
		user: func(excerpt string, _ Options) string {
			return `Create a summary of this lecture content and extract key points. Content: ` + excerpt + `
Return a JSON object with:
{
  "summary": "A concise 2-3 paragraph summary",
  "keyPoints": ["Array of 5-7 key points from the lecture"]
}`
		},
	},
	Quiz: {
		temperature: 0.3,
		check:       checkQuiz,
		system:      fixed("You are a quiz generator. Generate questions based on the provided content. Return only valid JSON without any additional text or explanation."),
		user:        quizInstruction,
	},
	Chat: {
		temperature: 0.7,
		check: func(o *Options) error {
			if trimmed(o.Message) == "" {
				return fmt.Errorf("%w: message is empty", ErrInvalidOptions)
			}
			o.Message = trimmed(o.Message)
			return nil
		},
		system: func(excerpt string, _ Options) string {
			return "You are a helpful assistant that answers questions about a document. Here's the document content: " + excerpt
		},
		user: func(_ string, opts Options) string { return opts.Message },
	},
	Search: {
		temperature: 0.3,
		check: func(o *Options) error {
			if trimmed(o.Query) == "" {
				return fmt.Errorf("%w: query is empty", ErrInvalidOptions)
			}
			o.Query = trimmed(o.Query)
			return nil
		},
		system: func(excerpt string, _ Options) string {
			return "You are a search assistant. Search through this document and return relevant excerpts with explanations. Document content: " + excerpt
		},
		user: func(_ string, opts Options) string {
			return `Find information about: ` + opts.Query + `. Return response as JSON in this format:
{
  "results": [
    {
      "excerpt": "The relevant text from the document",
      "explanation": "Why this is relevant",
      "confidence": 0.8
    }
  ]
}
confidence is a number between 0 and 1.`
		},
	},
	Concepts: {
		temperature: 0.3,
		check:       noCheck,
		system:      fixed("You are an expert at analyzing documents and extracting key concepts and terms. Return only valid JSON."),
		user: func(excerpt string, _ Options) string {
			return `Analyze this document and extract key concepts, important terms, and their relationships. Document content: ` + excerpt + `
Return as JSON in this format:
{
  "mainConcepts": [
    {"concept": "Name of the concept", "description": "Brief explanation", "importance": "Why this concept is key to understanding the document"}
  ],
  "terms": [
    {"term": "Technical or important term", "definition": "Clear definition", "context": "How it's used in the document"}
  ],
  "relationships": [
    {"concept1": "First concept", "concept2": "Related concept", "relationship": "Description of how they are related"}
  ]
}`
		},
	},
}

func checkQuiz(o *Options) error {
	if o.QuestionType == "" {
		o.QuestionType = models.MultipleChoice
	}
	if !o.QuestionType.Valid() {
		return fmt.Errorf("%w: question type %q", ErrInvalidOptions, o.QuestionType)
	}
	limit := o.MaxQuestions
	if limit <= 0 {
		limit = DefaultMaxQuestions
	}
	if o.NumberOfQuestions < 1 || o.NumberOfQuestions > limit {
		return fmt.Errorf("%w: number of questions must be between 1 and %d", ErrInvalidOptions, limit)
	}
	return nil
}

func quizInstruction(excerpt string, opts Options) string {
	var shape string
	switch opts.QuestionType {
	case models.TrueFalse:
		shape = `For true/false questions, provide exactly two options: ["True", "False"].`
	case models.ShortAnswer:
		shape = `For short-answer questions, provide exactly one option holding the model answer, and set "correctAnswer" to 0.`
	default:
		shape = `For multiple choice questions, provide exactly four options.`
	}
	return fmt.Sprintf(`Create %d %s questions based on this content:

%s

Return a JSON object with a "questions" array. Each question object should have:
{
  "question": "The question text",
  "options": ["option1", "option2", "option3", "option4"],
  "correctAnswer": 0,
  "explanation": "Brief explanation of why this answer is correct"
}
"correctAnswer" is the 0-based index of the correct option.
%s
Focus on key concepts and important details from the content.
Make questions clear and unambiguous.
Ensure all options are plausible but only one is correct.`, opts.NumberOfQuestions, opts.QuestionType, excerpt, shape)
}
