package extract

import (
	"errors"
	"fmt"
)

// ErrExtraction matches every extraction failure through errors.Is.
var ErrExtraction = errors.New("extraction failed")

// FileReadError means the document bytes could not be read as text.
type FileReadError struct {
	Name string
	Err  error
}

func (e *FileReadError) Error() string {
	return fmt.Sprintf("read %s: %v", e.Name, e.Err)
}

func (e *FileReadError) Unwrap() error { return e.Err }

func (e *FileReadError) Is(target error) bool { return target == ErrExtraction }

// PdfParseError means the document claimed to be a PDF but could not be
// decoded. Page is 0 when the failure happened before any page was read.
type PdfParseError struct {
	Name string
	Page int
	Err  error
}

func (e *PdfParseError) Error() string {
	if e.Page > 0 {
		return fmt.Sprintf("parse pdf %s page %d: %v", e.Name, e.Page, e.Err)
	}
	return fmt.Sprintf("parse pdf %s: %v", e.Name, e.Err)
}

func (e *PdfParseError) Unwrap() error { return e.Err }

func (e *PdfParseError) Is(target error) bool { return target == ErrExtraction }
