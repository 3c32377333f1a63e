// Package analysis runs the extract, prompt and complete pipeline for each
// document tool and tracks what the user currently sees.
package analysis

import (
	"errors"

	"github.com/ayush/docmind/backend/internal/extract"
	"github.com/ayush/docmind/backend/internal/models"
	"github.com/ayush/docmind/backend/internal/prompt"
)

// State is a step in a tool's lifecycle.
type State string

const (
	StateIdle       State = "idle"
	StateExtracting State = "extracting"
	StateReady      State = "ready"
	StateRequesting State = "requesting"
	StateDisplaying State = "displaying"
	StateError      State = "error"
)

// UploadPath is where clients are sent when no document is available.
const UploadPath = "/upload"

var (
	ErrNoDocument     = errors.New("no document available")
	ErrBusy           = errors.New("a request is already in progress")
	ErrNotReady       = errors.New("document text is not ready")
	ErrNothingToRetry = errors.New("nothing to retry")
)

// Snapshot is the observable state of one tool.
type Snapshot[R any] struct {
	Tool      prompt.Kind          `json:"tool"`
	State     State                `json:"state"`
	Document  *models.DocumentInfo `json:"document,omitempty"`
	TextChars int                  `json:"text_chars"`
	Result    *R                   `json:"result,omitempty"`
	Error     string               `json:"error,omitempty"`
}

// Loading reports whether user actions should be disabled.
func (s Snapshot[R]) Loading() bool {
	return s.State == StateExtracting || s.State == StateRequesting
}

// Extractor turns a document into plain text.
type Extractor interface {
	Extract(doc *models.Document) (string, error)
}

func extractionMessage(err error) string {
	var perr *extract.PdfParseError
	var ferr *extract.FileReadError
	switch {
	case errors.As(err, &perr):
		return "Failed to read PDF content"
	case errors.As(err, &ferr):
		return "Failed to read the file"
	default:
		return "An error occurred while reading the file"
	}
}
