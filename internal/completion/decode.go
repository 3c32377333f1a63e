package completion

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ayush/docmind/backend/internal/models"
)

var validate = validator.New()

// Decode parses a structured result into T and validates it against the
// struct's validate tags. Any mismatch is a MalformedResponseError.
func Decode[T any](res Result) (T, error) {
	var out T
	if err := json.Unmarshal([]byte(res.Content), &out); err != nil {
		return out, &MalformedResponseError{Reason: "content does not match expected shape", Err: err}
	}
	if err := validate.Struct(&out); err != nil {
		return out, &MalformedResponseError{Reason: "content failed validation", Err: err}
	}
	return out, nil
}

func DecodeSummary(res Result) (models.SummaryResult, error) {
	return Decode[models.SummaryResult](res)
}

func DecodeSearch(res Result) (models.SearchResults, error) {
	return Decode[models.SearchResults](res)
}

func DecodeConcepts(res Result) (models.ConceptGraph, error) {
	return Decode[models.ConceptGraph](res)
}

// DecodeQuiz validates the generated questions against the requested
// question type and numbers them from 1.
func DecodeQuiz(res Result, qt models.QuestionType) (models.QuizResult, error) {
	quiz, err := Decode[models.QuizResult](res)
	if err != nil {
		return quiz, err
	}
	for i := range quiz.Questions {
		q := &quiz.Questions[i]
		if err := checkQuestion(q, qt); err != nil {
			return models.QuizResult{}, &MalformedResponseError{Reason: fmt.Sprintf("question %d: %s", i+1, err)}
		}
		q.ID = i + 1
	}
	return quiz, nil
}

func checkQuestion(q *models.QuizQuestion, qt models.QuestionType) error {
	n := len(q.Options)
	switch qt {
	case models.TrueFalse:
		if n != 2 {
			return fmt.Errorf("true-false question has %d options", n)
		}
		a, b := strings.ToLower(q.Options[0]), strings.ToLower(q.Options[1])
		if !(a == "true" && b == "false") && !(a == "false" && b == "true") {
			return fmt.Errorf("true-false options are %q", q.Options)
		}
	case models.ShortAnswer:
		if n < 1 {
			return fmt.Errorf("short-answer question has no model answer")
		}
	default:
		if n != 4 {
			return fmt.Errorf("multiple-choice question has %d options", n)
		}
	}
	if *q.CorrectAnswer >= n {
		return fmt.Errorf("correct answer %d out of range", *q.CorrectAnswer)
	}
	return nil
}
