package analysis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ayush/docmind/backend/internal/models"
	"github.com/ayush/docmind/backend/internal/prompt"
)

// Entry is one completed tool run.
type Entry struct {
	Owner    string
	Tool     prompt.Kind
	Document *models.Document
	Model    string
	Result   any
}

// Recorder keeps completed runs.
type Recorder interface {
	Record(ctx context.Context, e Entry) error
}

// AnalysisStore persists analysis history.
type AnalysisStore interface {
	InsertAnalysis(ctx context.Context, a *models.Analysis) (string, error)
	ListAnalyses(ctx context.Context, userID string, limit int64) ([]models.Analysis, error)
}

// History records completed runs in an AnalysisStore, linked to the
// archived copy of the document.
type History struct {
	store AnalysisStore
}

func NewHistory(store AnalysisStore) *History {
	return &History{store: store}
}

func (h *History) Record(ctx context.Context, e Entry) error {
	raw, err := json.Marshal(e.Result)
	if err != nil {
		return fmt.Errorf("marshal %s result: %w", e.Tool, err)
	}
	a := &models.Analysis{
		UserID: e.Owner,
		Tool:   string(e.Tool),
		Model:  e.Model,
		Result: raw,
	}
	if e.Document != nil {
		a.DocumentName = e.Document.Name
		a.DocumentKey = models.ArchiveKey(e.Owner, e.Document)
	}
	_, err = h.store.InsertAnalysis(ctx, a)
	return err
}

// List returns the owner's most recent runs, newest first.
func (h *History) List(ctx context.Context, owner string, limit int64) ([]models.Analysis, error) {
	return h.store.ListAnalyses(ctx, owner, limit)
}
