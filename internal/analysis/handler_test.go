package analysis

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ayush/docmind/backend/internal/auth"
	"github.com/ayush/docmind/backend/internal/models"
)

type staticDocuments map[string]*models.Document

func (s staticDocuments) Current(_ context.Context, owner string) (*models.Document, error) {
	return s[owner], nil
}

// withUser stands in for the session middleware.
func withUser(id string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(auth.WithUserID(r.Context(), id)))
		})
	}
}

func newTestRouter(fc *fakeCompleter, docs staticDocuments) (http.Handler, *Registry) {
	reg := NewRegistry(time.Minute, func(owner string) Deps {
		d := testDeps(fc)
		d.Owner = owner
		return d
	})
	h := NewHandler(reg, docs, NewHistory(&memAnalyses{}), zap.NewNop())

	r := chi.NewRouter()
	r.Use(withUser("u1"))
	r.Get("/tools", h.Tools)
	r.Get("/history", h.History)
	r.Post("/summary/reset", h.ResetSummary)
	r.Get("/concepts/tabs/{tab}", h.ConceptsTab)
	r.Post("/quiz/answer", h.Answer)
	r.Post("/quiz/next", h.QuizStep((*Quiz).Next))
	r.Get("/{tool}", h.Get)
	r.Delete("/{tool}", h.Discard)
	r.Post("/{tool}/open", h.Open)
	r.Post("/{tool}/run", h.Run)
	r.Post("/{tool}/retry", h.Retry)
	return r, reg
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandlerWithoutDocument(t *testing.T) {
	fc := &fakeCompleter{replies: []reply{{content: summaryJSON}}}
	router, _ := newTestRouter(fc, staticDocuments{})

	rec := do(t, router, http.MethodPost, "/summary/run", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `"redirect":"/upload"`)
	assert.Empty(t, fc.Calls())

	rec = do(t, router, http.MethodGet, "/poem", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerTools(t *testing.T) {
	router, _ := newTestRouter(&fakeCompleter{}, staticDocuments{})
	rec := do(t, router, http.MethodGet, "/tools", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var tools []Info
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&tools))
	require.Len(t, tools, 5)
	assert.Equal(t, "summary", string(tools[0].ID))
}

func TestHandlerSummaryRun(t *testing.T) {
	fc := &fakeCompleter{replies: []reply{{content: summaryJSON}}}
	router, _ := newTestRouter(fc, staticDocuments{"u1": textDoc("photo.docx", "Photosynthesis.")})

	rec := do(t, router, http.MethodPost, "/summary/run", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var snap Snapshot[models.SummaryResult]
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&snap))
	assert.Equal(t, StateDisplaying, snap.State)
	require.NotNil(t, snap.Result)
	assert.Len(t, snap.Result.KeyPoints, 2)
	assert.Equal(t, "photo.docx", snap.Document.Name)

	rec = do(t, router, http.MethodPost, "/summary/retry", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, router, http.MethodPost, "/summary/reset", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"state":"ready"`)
}

func TestHandlerBusy(t *testing.T) {
	fc := &fakeCompleter{
		replies: []reply{{content: summaryJSON}},
		gate:    make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	router, _ := newTestRouter(fc, staticDocuments{"u1": textDoc("a.doc", "x")})

	done := make(chan int, 1)
	go func() { done <- do(t, router, http.MethodPost, "/summary/run", "").Code }()
	<-fc.started

	rec := do(t, router, http.MethodPost, "/summary/run", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	fc.gate <- struct{}{}
	assert.Equal(t, http.StatusOK, <-done)
	assert.Len(t, fc.Calls(), 1)
}

func TestHandlerRunValidation(t *testing.T) {
	fc := &fakeCompleter{replies: []reply{{content: quizJSON(1)}}}
	router, _ := newTestRouter(fc, staticDocuments{"u1": textDoc("a.doc", "x")})

	rec := do(t, router, http.MethodPost, "/quiz/run", `{"question_type":"essay"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(t, router, http.MethodPost, "/quiz/run", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, fc.Calls())
}

func TestHandlerRunExtractionFailure(t *testing.T) {
	unreadable := textDoc("a.doc", "")
	unreadable.RawBytes = []byte{0xff, 0xfe}
	unreadable.SizeBytes = 2

	for _, tool := range []string{"summary", "quiz", "search", "concepts"} {
		t.Run(tool, func(t *testing.T) {
			fc := &fakeCompleter{}
			router, _ := newTestRouter(fc, staticDocuments{"u1": unreadable})

			rec := do(t, router, http.MethodPost, "/"+tool+"/run", `{"query":"entropy"}`)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			var snap Snapshot[struct{}]
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&snap))
			assert.Equal(t, StateError, snap.State)
			assert.Equal(t, "Failed to read the file", snap.Error)
			assert.Empty(t, fc.Calls())
		})
	}
}

func TestHandlerQuizDefaultCount(t *testing.T) {
	fc := &fakeCompleter{replies: []reply{{content: quizJSON(DefaultQuizSettings.NumberOfQuestions)}}}
	router, _ := newTestRouter(fc, staticDocuments{"u1": textDoc("a.doc", "x")})

	rec := do(t, router, http.MethodPost, "/quiz/run", `{"question_type":"multiple-choice"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var v QuizView
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	assert.Equal(t, PhaseQuiz, v.Phase)
	assert.Equal(t, DefaultQuizSettings.NumberOfQuestions, v.Settings.NumberOfQuestions)
	assert.Len(t, v.Questions, DefaultQuizSettings.NumberOfQuestions)
	require.Len(t, fc.Calls(), 1)
}

func TestHandlerQuiz(t *testing.T) {
	fc := &fakeCompleter{replies: []reply{{content: quizJSON(1)}}}
	router, _ := newTestRouter(fc, staticDocuments{"u1": textDoc("a.doc", "x")})

	rec := do(t, router, http.MethodPost, "/quiz/run", `{"number_of_questions":1}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"phase":"quiz"`)

	rec = do(t, router, http.MethodPost, "/quiz/answer", `{"question_id":1,"option":7}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(t, router, http.MethodPost, "/quiz/answer", `{"question_id":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodPost, "/quiz/answer", `{"question_id":1,"option":0}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, router, http.MethodPost, "/quiz/next", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var v QuizView
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	assert.Equal(t, PhaseResults, v.Phase)
	require.NotNil(t, v.Score)
	assert.Equal(t, 100.0, *v.Score)

	rec = do(t, router, http.MethodPost, "/quiz/next", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandlerConcepts(t *testing.T) {
	graph := `{"mainConcepts":[{"concept":"Cell","description":"unit","importance":"high"}],"terms":[],"relationships":[{"concept1":"Cell","concept2":"Nucleus","relationship":"contains"}]}`
	fc := &fakeCompleter{replies: []reply{{content: graph}}}
	router, _ := newTestRouter(fc, staticDocuments{"u1": textDoc("a.doc", "x")})

	rec := do(t, router, http.MethodGet, "/concepts/tabs/concepts", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, router, http.MethodPost, "/concepts/run", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Len(t, fc.Calls(), 1)

	rec = do(t, router, http.MethodGet, "/concepts/tabs/relationships", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"Nucleus"`)

	rec = do(t, router, http.MethodGet, "/concepts/tabs/graph", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerDiscard(t *testing.T) {
	fc := &fakeCompleter{replies: []reply{{content: "Sure."}}}
	router, reg := newTestRouter(fc, staticDocuments{"u1": textDoc("a.doc", "x")})

	rec := do(t, router, http.MethodPost, "/chat/run", `{"message":"hello"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, reg.Get("u1").Chat.Messages(), 3)

	rec = do(t, router, http.MethodDelete, "/chat", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Len(t, reg.Get("u1").Chat.Messages(), 1)
	assert.Equal(t, StateIdle, reg.Get("u1").Chat.State())
}
