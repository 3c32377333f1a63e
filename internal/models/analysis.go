package models

import (
	"encoding/json"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// QuestionType selects the shape of generated quiz questions.
type QuestionType string

const (
	MultipleChoice QuestionType = "multiple-choice"
	TrueFalse      QuestionType = "true-false"
	ShortAnswer    QuestionType = "short-answer"
)

func (t QuestionType) Valid() bool {
	switch t {
	case MultipleChoice, TrueFalse, ShortAnswer:
		return true
	}
	return false
}

// SummaryResult is the summary tool's structured reply.
type SummaryResult struct {
	Summary   string   `json:"summary"   bson:"summary"    validate:"required"`
	KeyPoints []string `json:"keyPoints" bson:"key_points" validate:"required,dive,required"`
}

// QuizQuestion is one generated question. ID is assigned locally, 1-based.
type QuizQuestion struct {
	ID            int      `json:"id"                    bson:"id"`
	Question      string   `json:"question"              bson:"question"       validate:"required"`
	Options       []string `json:"options"               bson:"options"        validate:"required,dive,required"`
	CorrectAnswer *int     `json:"correctAnswer"         bson:"correct_answer" validate:"required,gte=0"`
	Explanation   string   `json:"explanation,omitempty" bson:"explanation,omitempty"`
}

// QuizResult is the quiz tool's structured reply.
type QuizResult struct {
	Questions []QuizQuestion `json:"questions" bson:"questions" validate:"required,min=1,dive"`
}

// SearchResult is one excerpt returned by smart search.
type SearchResult struct {
	Excerpt     string  `json:"excerpt"     bson:"excerpt"     validate:"required"`
	Explanation string  `json:"explanation" bson:"explanation"`
	Confidence  float64 `json:"confidence"  bson:"confidence"  validate:"gte=0,lte=1"`
}

// Band buckets the confidence the way results are coloured in the UI.
func (r SearchResult) Band() string {
	switch {
	case r.Confidence >= 0.7:
		return "high"
	case r.Confidence >= 0.4:
		return "medium"
	default:
		return "low"
	}
}

// MarshalJSON adds the confidence band to the encoded result.
func (r SearchResult) MarshalJSON() ([]byte, error) {
	type plain SearchResult
	return json.Marshal(struct {
		plain
		Band string `json:"band"`
	}{plain(r), r.Band()})
}

// SearchResults is the search tool's structured reply.
type SearchResults struct {
	Results []SearchResult `json:"results" bson:"results" validate:"required,dive"`
}

type Concept struct {
	Concept     string `json:"concept"     bson:"concept"     validate:"required"`
	Description string `json:"description" bson:"description"`
	Importance  string `json:"importance"  bson:"importance"`
}

type Term struct {
	Term       string `json:"term"       bson:"term"       validate:"required"`
	Definition string `json:"definition" bson:"definition"`
	Context    string `json:"context"    bson:"context"`
}

type Relationship struct {
	Concept1     string `json:"concept1"     bson:"concept1"     validate:"required"`
	Concept2     string `json:"concept2"     bson:"concept2"     validate:"required"`
	Relationship string `json:"relationship" bson:"relationship"`
}

// ConceptGraph is the key-concepts tool's structured reply.
type ConceptGraph struct {
	MainConcepts  []Concept      `json:"mainConcepts"  bson:"main_concepts" validate:"required,dive"`
	Terms         []Term         `json:"terms"         bson:"terms"         validate:"required,dive"`
	Relationships []Relationship `json:"relationships" bson:"relationships" validate:"required,dive"`
}

// ChatMessage is one turn of a document conversation.
type ChatMessage struct {
	Role    string `json:"role"    bson:"role"`
	Content string `json:"content" bson:"content"`
}

// Analysis is a completed tool run stored in MongoDB.
type Analysis struct {
	ID           primitive.ObjectID `json:"id"            bson:"_id,omitempty"`
	UserID       string             `json:"user_id"       bson:"user_id"`
	Tool         string             `json:"tool"          bson:"tool"`
	DocumentName string             `json:"document_name" bson:"document_name"`
	DocumentKey  string             `json:"document_key"  bson:"document_key"`
	Model        string             `json:"model"         bson:"model"`
	Result       json.RawMessage    `json:"result"        bson:"-"`
	ResultJSON   string             `json:"-"             bson:"result_json"`
	CreatedAt    time.Time          `json:"created_at"    bson:"created_at"`
}
