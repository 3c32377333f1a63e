// Package session holds each owner's current document and persists it so
// it survives a restart of the process that serves it.
package session

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ayush/docmind/backend/internal/models"
)

// RecordKey is the fixed name of the persisted record. Each owner has
// exactly one.
const RecordKey = "currentFile"

// ErrNotFound is returned by a Store when the key has no value.
var ErrNotFound = errors.New("session: not found")

// Store is a key/value store for serialised records.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// record is the persisted layout of a Document.
type record struct {
	Name         string `json:"name"`
	Type         string `json:"type"`
	LastModified int64  `json:"lastModified"`
	Data         string `json:"data"`
}

// Holder keeps the current document of each owner. Setting a document
// replaces the previous one.
type Holder struct {
	store  Store
	logger *zap.Logger
}

func NewHolder(store Store, logger *zap.Logger) *Holder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Holder{store: store, logger: logger}
}

func key(owner string) string { return RecordKey + ":" + owner }

// SetCurrent persists doc as owner's current document.
func (h *Holder) SetCurrent(ctx context.Context, owner string, doc *models.Document) error {
	if doc == nil {
		return h.Clear(ctx, owner)
	}
	raw, err := json.Marshal(record{
		Name:         doc.Name,
		Type:         doc.MimeType,
		LastModified: doc.LastModified.UnixMilli(),
		Data:         base64.StdEncoding.EncodeToString(doc.RawBytes),
	})
	if err != nil {
		return fmt.Errorf("encode document record: %w", err)
	}
	if err := h.store.Set(ctx, key(owner), raw); err != nil {
		return fmt.Errorf("store document record: %w", err)
	}
	return nil
}

// Current restores owner's current document. It returns nil when there is
// none. A record that cannot be decoded is removed and treated as absent.
func (h *Holder) Current(ctx context.Context, owner string) (*models.Document, error) {
	raw, err := h.store.Get(ctx, key(owner))
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load document record: %w", err)
	}

	doc, err := decode(raw)
	if err != nil {
		h.logger.Warn("discarding corrupt document record", zap.String("owner", owner), zap.Error(err))
		if err := h.store.Delete(ctx, key(owner)); err != nil {
			h.logger.Warn("delete corrupt document record", zap.String("owner", owner), zap.Error(err))
		}
		return nil, nil
	}
	return doc, nil
}

// Clear removes owner's current document and its persisted record.
func (h *Holder) Clear(ctx context.Context, owner string) error {
	if err := h.store.Delete(ctx, key(owner)); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("delete document record: %w", err)
	}
	return nil
}

func decode(raw []byte) (*models.Document, error) {
	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, err
	}
	if rec.Name == "" {
		return nil, errors.New("record has no name")
	}
	data, err := base64.StdEncoding.DecodeString(rec.Data)
	if err != nil {
		return nil, fmt.Errorf("decode data: %w", err)
	}
	return &models.Document{
		Name:         rec.Name,
		MimeType:     rec.Type,
		SizeBytes:    int64(len(data)),
		LastModified: time.UnixMilli(rec.LastModified),
		RawBytes:     data,
	}, nil
}
