package analysis

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ayush/docmind/backend/internal/models"
	"github.com/ayush/docmind/backend/internal/prompt"
)

// QuizPhase is the step the quiz screen is on.
type QuizPhase string

const (
	PhaseSettings   QuizPhase = "settings"
	PhaseGenerating QuizPhase = "generating"
	PhaseQuiz       QuizPhase = "quiz"
	PhaseResults    QuizPhase = "results"
)

var (
	ErrWrongPhase      = errors.New("action not available in this quiz phase")
	ErrUnknownQuestion = errors.New("unknown question")
	ErrInvalidOption   = errors.New("option out of range")
)

// QuizSettings are the user's choices before generating.
type QuizSettings struct {
	NumberOfQuestions int                 `json:"number_of_questions"`
	QuestionType      models.QuestionType `json:"question_type"`
}

// DefaultQuizSettings are shown before the first quiz.
var DefaultQuizSettings = QuizSettings{NumberOfQuestions: 2, QuestionType: models.MultipleChoice}

// QuestionReview reports how one question was answered.
type QuestionReview struct {
	ID       int  `json:"id"`
	Selected *int `json:"selected,omitempty"`
	Correct  bool `json:"correct"`
}

// QuizView is the observable quiz state.
type QuizView struct {
	Snapshot[models.QuizResult]
	Phase        QuizPhase             `json:"phase"`
	Settings     QuizSettings          `json:"settings"`
	Questions    []models.QuizQuestion `json:"questions,omitempty"`
	Answers      map[int]int           `json:"answers,omitempty"`
	CurrentIndex int                   `json:"current_index"`
	Score        *float64              `json:"score,omitempty"`
	Review       []QuestionReview      `json:"review,omitempty"`
}

// Quiz walks generated questions through settings, generating, quiz and
// results.
type Quiz struct {
	*Orchestrator[models.QuizResult]

	mu        sync.Mutex
	phase     QuizPhase
	settings  QuizSettings
	questions []models.QuizQuestion
	answers   map[int]int
	current   int
}

func NewQuiz(deps Deps) *Quiz {
	return &Quiz{
		Orchestrator: NewOrchestrator(quizTool, deps),
		phase:        PhaseSettings,
		settings:     DefaultQuizSettings,
		answers:      map[int]int{},
	}
}

// Generate requests a new set of questions. A zero question count keeps
// the current setting. On failure the quiz goes back to settings with the
// error shown.
func (q *Quiz) Generate(ctx context.Context, settings QuizSettings) error {
	if settings.QuestionType == "" {
		settings.QuestionType = models.MultipleChoice
	}
	if settings.NumberOfQuestions == 0 {
		q.mu.Lock()
		settings.NumberOfQuestions = q.settings.NumberOfQuestions
		q.mu.Unlock()
	}
	c, err := q.start(prompt.Options{
		NumberOfQuestions: settings.NumberOfQuestions,
		QuestionType:      settings.QuestionType,
	})
	if err != nil {
		return err
	}
	q.mu.Lock()
	q.settings = settings
	q.mu.Unlock()
	q.apply(q.finish(ctx, c))
	return nil
}

// Retry regenerates with the settings of the failed attempt.
func (q *Quiz) Retry(ctx context.Context) error {
	c, err := q.startRetry()
	if err != nil {
		return err
	}
	q.apply(q.finish(ctx, c))
	return nil
}

func (q *Quiz) apply(res models.QuizResult, out outcome) {
	q.mu.Lock()
	defer q.mu.Unlock()
	switch out {
	case outcomeDone:
		q.questions = res.Questions
		q.answers = map[int]int{}
		q.current = 0
		q.phase = PhaseQuiz
	case outcomeFailed:
		q.phase = PhaseSettings
	}
}

// Answer records option as the answer to question id. Answers can be
// changed until the quiz is finished.
func (q *Quiz) Answer(id, option int) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.phase != PhaseQuiz {
		return ErrWrongPhase
	}
	for _, question := range q.questions {
		if question.ID != id {
			continue
		}
		if option < 0 || option >= len(question.Options) {
			return fmt.Errorf("%w: %d", ErrInvalidOption, option)
		}
		q.answers[id] = option
		return nil
	}
	return fmt.Errorf("%w: %d", ErrUnknownQuestion, id)
}

// Next moves to the following question, or to results from the last one.
func (q *Quiz) Next() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.phase != PhaseQuiz {
		return ErrWrongPhase
	}
	if q.current < len(q.questions)-1 {
		q.current++
		return nil
	}
	q.phase = PhaseResults
	return nil
}

func (q *Quiz) Previous() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.phase != PhaseQuiz {
		return ErrWrongPhase
	}
	if q.current > 0 {
		q.current--
	}
	return nil
}

// TryAgain clears the answers and starts over at question one.
func (q *Quiz) TryAgain() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.phase != PhaseResults && q.phase != PhaseQuiz {
		return ErrWrongPhase
	}
	q.answers = map[int]int{}
	q.current = 0
	q.phase = PhaseQuiz
	return nil
}

// BackToSettings drops the questions so a new quiz can be configured.
func (q *Quiz) BackToSettings() error {
	if err := q.Orchestrator.Reset(); err != nil {
		return err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.resetLocked()
	return nil
}

func (q *Quiz) Discard() {
	q.Orchestrator.Discard()
	q.mu.Lock()
	defer q.mu.Unlock()
	q.resetLocked()
}

func (q *Quiz) resetLocked() {
	q.phase = PhaseSettings
	q.questions = nil
	q.answers = map[int]int{}
	q.current = 0
}

func (q *Quiz) View() any { return q.QuizView() }

func (q *Quiz) QuizView() QuizView {
	snap := q.Snapshot()
	q.mu.Lock()
	defer q.mu.Unlock()

	v := QuizView{
		Snapshot:     snap,
		Phase:        q.phase,
		Settings:     q.settings,
		Questions:    q.questions,
		CurrentIndex: q.current,
	}
	if snap.State == StateRequesting {
		v.Phase = PhaseGenerating
	}
	if len(q.answers) > 0 {
		v.Answers = make(map[int]int, len(q.answers))
		for k, a := range q.answers {
			v.Answers[k] = a
		}
	}
	if q.phase == PhaseResults {
		score := Score(q.questions, q.answers)
		v.Score = &score
		v.Review = Review(q.questions, q.answers)
	}
	return v
}

// Score is the percentage of questions whose answer equals the correct
// option. Unanswered questions count as incorrect.
func Score(questions []models.QuizQuestion, answers map[int]int) float64 {
	if len(questions) == 0 {
		return 0
	}
	correct := 0
	for _, r := range Review(questions, answers) {
		if r.Correct {
			correct++
		}
	}
	return float64(correct*100) / float64(len(questions))
}

func Review(questions []models.QuizQuestion, answers map[int]int) []QuestionReview {
	out := make([]QuestionReview, 0, len(questions))
	for _, question := range questions {
		r := QuestionReview{ID: question.ID}
		if a, ok := answers[question.ID]; ok {
			r.Selected = &a
			r.Correct = question.CorrectAnswer != nil && a == *question.CorrectAnswer
		}
		out = append(out, r)
	}
	return out
}
