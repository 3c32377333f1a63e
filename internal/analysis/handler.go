package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/ayush/docmind/backend/internal/auth"
	"github.com/ayush/docmind/backend/internal/models"
	"github.com/ayush/docmind/backend/internal/prompt"
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// DocumentSource returns the owner's current document, or nil.
type DocumentSource interface {
	Current(ctx context.Context, owner string) (*models.Document, error)
}

// HistoryLister lists recorded runs.
type HistoryLister interface {
	List(ctx context.Context, owner string, limit int64) ([]models.Analysis, error)
}

// Handler exposes the tools of the caller's workspace over HTTP.
type Handler struct {
	registry  *Registry
	documents DocumentSource
	history   HistoryLister
	validate  *validator.Validate
	logger    *zap.Logger
}

func NewHandler(registry *Registry, documents DocumentSource, history HistoryLister, logger *zap.Logger) *Handler {
	return &Handler{
		registry:  registry,
		documents: documents,
		history:   history,
		validate:  validator.New(),
		logger:    logger,
	}
}

type runRequest struct {
	NumberOfQuestions int                 `json:"number_of_questions" validate:"omitempty,gte=1"`
	QuestionType      models.QuestionType `json:"question_type"       validate:"omitempty,oneof=multiple-choice true-false short-answer"`
	Message           string              `json:"message"`
	Query             string              `json:"query"`
}

type answerRequest struct {
	QuestionID int  `json:"question_id" validate:"required,gte=1"`
	Option     *int `json:"option"      validate:"required,gte=0"`
}

// Tools lists the catalogue.
func (h *Handler) Tools(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Catalogue)
}

// Get returns the tool's current view.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	runner, ok := h.runner(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, runner.View())
}

// Open loads the current document into the tool.
func (h *Handler) Open(w http.ResponseWriter, r *http.Request) {
	runner, ok := h.runner(w, r)
	if !ok {
		return
	}
	if err := h.load(r, runner); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, runner.View())
}

// Run starts the tool's request and returns the resulting view.
func (h *Handler) Run(w http.ResponseWriter, r *http.Request) {
	runner, ok := h.runner(w, r)
	if !ok {
		return
	}
	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	autoRan := false
	if runner.State() == StateIdle {
		if err := h.load(r, runner); err != nil {
			h.writeError(w, err)
			return
		}
		// Extraction failures are shown like any other pipeline failure.
		if runner.State() == StateError {
			writeJSON(w, http.StatusOK, runner.View())
			return
		}
		autoRan = runner.Kind() == prompt.Concepts
	}

	ctx := r.Context()
	ws := h.workspace(r)
	var err error
	switch runner.Kind() {
	case prompt.Quiz:
		err = ws.Quiz.Generate(ctx, QuizSettings{NumberOfQuestions: req.NumberOfQuestions, QuestionType: req.QuestionType})
	case prompt.Chat:
		err = ws.Chat.Send(ctx, req.Message)
	case prompt.Search:
		err = ws.Search.Query(ctx, req.Query)
	case prompt.Summary:
		err = ws.Summary.Run(ctx, prompt.Options{})
	case prompt.Concepts:
		if !autoRan {
			err = ws.Concepts.Run(ctx, prompt.Options{})
		}
	}
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, runner.View())
}

// Retry repeats the tool's failed request.
func (h *Handler) Retry(w http.ResponseWriter, r *http.Request) {
	runner, ok := h.runner(w, r)
	if !ok {
		return
	}
	if err := runner.Retry(r.Context()); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, runner.View())
}

// Discard resets the tool, as when the user navigates away.
func (h *Handler) Discard(w http.ResponseWriter, r *http.Request) {
	runner, ok := h.runner(w, r)
	if !ok {
		return
	}
	runner.Discard()
	w.WriteHeader(http.StatusNoContent)
}

// ResetSummary clears the displayed summary.
func (h *Handler) ResetSummary(w http.ResponseWriter, r *http.Request) {
	ws := h.workspace(r)
	if err := ws.Summary.Reset(); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ws.Summary.View())
}

// ConceptsTab returns one tab of the concept analysis.
func (h *Handler) ConceptsTab(w http.ResponseWriter, r *http.Request) {
	snap := h.workspace(r).Concepts.Snapshot()
	if snap.Result == nil {
		http.Error(w, `{"error":"no analysis yet"}`, http.StatusNotFound)
		return
	}
	tab := chi.URLParam(r, "tab")
	var items any
	switch tab {
	case TabConcepts:
		items = snap.Result.MainConcepts
	case TabTerms:
		items = snap.Result.Terms
	case TabRelationships:
		items = snap.Result.Relationships
	default:
		http.Error(w, `{"error":"unknown tab"}`, http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tab": tab, "tabs": ConceptTabs, "items": items})
}

// Answer records an answer to the current quiz.
func (h *Handler) Answer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	quiz := h.workspace(r).Quiz
	if err := quiz.Answer(req.QuestionID, *req.Option); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quiz.QuizView())
}

// QuizStep applies a navigation action named by the route.
func (h *Handler) QuizStep(action func(*Quiz) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		quiz := h.workspace(r).Quiz
		if err := action(quiz); err != nil {
			h.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, quiz.QuizView())
	}
}

// History lists the caller's recorded runs.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		writeJSON(w, http.StatusOK, []models.Analysis{})
		return
	}
	limit := int64(20)
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			http.Error(w, `{"error":"invalid limit"}`, http.StatusBadRequest)
			return
		}
		limit = n
	}
	owner, _ := auth.UserID(r.Context())
	items, err := h.history.List(r.Context(), owner, limit)
	if err != nil {
		h.logger.Error("list history", zap.String("user_id", owner), zap.Error(err))
		http.Error(w, `{"error":"failed to load history"}`, http.StatusInternalServerError)
		return
	}
	if items == nil {
		items = []models.Analysis{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) workspace(r *http.Request) *Workspace {
	owner, _ := auth.UserID(r.Context())
	return h.registry.Get(owner)
}

func (h *Handler) runner(w http.ResponseWriter, r *http.Request) (Runner, bool) {
	runner, err := h.workspace(r).Tool(prompt.Kind(chi.URLParam(r, "tool")))
	if err != nil {
		http.Error(w, `{"error":"unknown tool"}`, http.StatusNotFound)
		return nil, false
	}
	return runner, true
}

func (h *Handler) load(r *http.Request, runner Runner) error {
	owner, _ := auth.UserID(r.Context())
	doc, err := h.documents.Current(r.Context(), owner)
	if err != nil {
		return err
	}
	return runner.Load(r.Context(), doc)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNoDocument):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error(), "redirect": UploadPath})
	case errors.Is(err, ErrBusy), errors.Is(err, ErrNotReady),
		errors.Is(err, ErrNothingToRetry), errors.Is(err, ErrWrongPhase):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, prompt.ErrInvalidOptions), errors.Is(err, ErrUnknownQuestion),
		errors.Is(err, ErrInvalidOption):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		h.logger.Error("analysis request", zap.Error(err))
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
	}
}
