// Package document accepts uploaded files and manages each owner's
// current document.
package document

import (
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/ayush/docmind/backend/internal/models"
)

var (
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrTooLarge        = errors.New("file too large")
	ErrEmptyName       = errors.New("file name is required")
)

// Limits bound what can be uploaded.
type Limits struct {
	MaxBytes          int64
	AllowedExtensions []string
}

// Allows reports whether name has an accepted extension.
func (l Limits) Allows(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext != "" && slices.Contains(l.AllowedExtensions, ext)
}

// New checks an incoming file against limits and builds the Document.
// declaredType may be empty; generic or missing types are replaced by the
// type sniffed from data.
func New(name string, data []byte, declaredType string, modified time.Time, limits Limits) (*models.Document, error) {
	name = filepath.Base(strings.TrimSpace(name))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return nil, ErrEmptyName
	}
	if !limits.Allows(name) {
		return nil, fmt.Errorf("%w: %s (allowed: %s)", ErrUnsupportedType, filepath.Ext(name), strings.Join(limits.AllowedExtensions, ","))
	}
	if limits.MaxBytes > 0 && int64(len(data)) > limits.MaxBytes {
		return nil, fmt.Errorf("%w: %d bytes exceeds %d", ErrTooLarge, len(data), limits.MaxBytes)
	}
	if modified.IsZero() {
		modified = time.Now()
	}
	// The persisted record keeps milliseconds.
	modified = time.UnixMilli(modified.UnixMilli())
	return &models.Document{
		Name:         name,
		MimeType:     contentType(declaredType, data),
		SizeBytes:    int64(len(data)),
		LastModified: modified,
		RawBytes:     data,
	}, nil
}

// FromFile reads path into a Document.
func FromFile(path string, limits Limits) (*models.Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if limits.MaxBytes > 0 && info.Size() > limits.MaxBytes {
		return nil, fmt.Errorf("%w: %d bytes exceeds %d", ErrTooLarge, info.Size(), limits.MaxBytes)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return New(info.Name(), data, "", info.ModTime(), limits)
}

func contentType(declared string, data []byte) string {
	if mt, _, err := mime.ParseMediaType(declared); err == nil && mt != "application/octet-stream" {
		return mt
	}
	detected := mimetype.Detect(data)
	if detected.Is(models.MimePDF) {
		return models.MimePDF
	}
	mt, _, err := mime.ParseMediaType(detected.String())
	if err != nil {
		return "application/octet-stream"
	}
	return mt
}
