package document

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ayush/docmind/backend/internal/auth"
	"github.com/ayush/docmind/backend/internal/models"
	"github.com/ayush/docmind/backend/internal/store"
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// Holder keeps each owner's current document.
type Holder interface {
	SetCurrent(ctx context.Context, owner string, doc *models.Document) error
	Current(ctx context.Context, owner string) (*models.Document, error)
	Clear(ctx context.Context, owner string) error
}

// Archive stores raw uploads.
type Archive interface {
	Upload(ctx context.Context, key string, data []byte, contentType, name string) error
	Download(ctx context.Context, key string) ([]byte, string, error)
	Remove(ctx context.Context, key string) error
}

// UploadLog records uploads per owner.
type UploadLog interface {
	RecordUpload(ctx context.Context, userID string, doc *models.Document, archiveKey string) error
	ListUploads(ctx context.Context, userID string, limit int) ([]models.Upload, error)
	GetUpload(ctx context.Context, userID string, id int64) (*models.Upload, error)
	DeleteUploads(ctx context.Context, userID, archiveKey string) (int64, error)
}

// HistoryPurger deletes the analyses recorded for an archived document.
type HistoryPurger interface {
	DeleteByDocument(ctx context.Context, userID, documentKey string) (int64, error)
}

// Workspaces drops an owner's tool state when the document changes.
type Workspaces interface {
	Drop(owner string)
}

// Handler holds document HTTP handlers.
type Handler struct {
	holder     Holder
	archive    Archive
	uploads    UploadLog
	workspaces Workspaces
	history    HistoryPurger
	limits     Limits
	logger     *zap.Logger
}

func NewHandler(holder Holder, archive Archive, uploads UploadLog, workspaces Workspaces, history HistoryPurger, limits Limits, logger *zap.Logger) *Handler {
	return &Handler{
		holder:     holder,
		archive:    archive,
		uploads:    uploads,
		workspaces: workspaces,
		history:    history,
		limits:     limits,
		logger:     logger,
	}
}

type uploadResponse struct {
	models.DocumentInfo
	ArchiveKey string `json:"archive_key"`
}

// Upload accepts a multipart "file" field and makes it the current
// document. An optional "last_modified" field carries the client's file
// time in milliseconds.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	owner, _ := auth.UserID(r.Context())

	// Leave room for the multipart framing around the file itself.
	r.Body = http.MaxBytesReader(w, r.Body, h.limits.MaxBytes+1<<20)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			h.writeError(w, ErrTooLarge)
			return
		}
		http.Error(w, `{"error":"invalid multipart form"}`, http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, `{"error":"file is required"}`, http.StatusBadRequest)
		return
	}
	defer file.Close()

	if !h.limits.Allows(header.Filename) {
		h.writeError(w, ErrUnsupportedType)
		return
	}
	if h.limits.MaxBytes > 0 && header.Size > h.limits.MaxBytes {
		h.writeError(w, ErrTooLarge)
		return
	}
	data, err := io.ReadAll(io.LimitReader(file, h.limits.MaxBytes+1))
	if err != nil {
		http.Error(w, `{"error":"failed to read upload"}`, http.StatusBadRequest)
		return
	}

	modified := time.Time{}
	if v := r.FormValue("last_modified"); v != "" {
		ms, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			http.Error(w, `{"error":"last_modified must be milliseconds since epoch"}`, http.StatusBadRequest)
			return
		}
		modified = time.UnixMilli(ms)
	}

	doc, err := New(header.Filename, data, header.Header.Get("Content-Type"), modified, h.limits)
	if err != nil {
		h.writeError(w, err)
		return
	}

	key := models.ArchiveKey(owner, doc)
	if h.archive != nil {
		if err := h.archive.Upload(r.Context(), key, doc.RawBytes, doc.MimeType, doc.Name); err != nil {
			h.logger.Error("archive upload", zap.String("key", key), zap.Error(err))
			http.Error(w, `{"error":"failed to store document"}`, http.StatusInternalServerError)
			return
		}
	}
	if !h.makeCurrent(w, r, owner, doc) {
		return
	}
	if h.uploads != nil {
		if err := h.uploads.RecordUpload(r.Context(), owner, doc, key); err != nil {
			h.logger.Warn("record upload", zap.String("user_id", owner), zap.Error(err))
		}
	}

	h.logger.Info("document uploaded",
		zap.String("user_id", owner),
		zap.String("name", doc.Name),
		zap.String("type", doc.MimeType),
		zap.Int64("size", doc.SizeBytes),
	)
	writeJSON(w, http.StatusCreated, uploadResponse{DocumentInfo: doc.Info(), ArchiveKey: key})
}

// Current describes the current document.
func (h *Handler) Current(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.current(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, doc.Info())
}

// Raw streams the current document's bytes.
func (h *Handler) Raw(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.current(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", doc.MimeType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Name))
	w.Header().Set("Content-Length", strconv.FormatInt(int64(len(doc.RawBytes)), 10))
	w.Write(doc.RawBytes)
}

// Clear removes the current document and resets every tool.
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	owner, _ := auth.UserID(r.Context())
	if err := h.holder.Clear(r.Context(), owner); err != nil {
		h.logger.Error("clear current document", zap.String("user_id", owner), zap.Error(err))
		http.Error(w, `{"error":"failed to clear document"}`, http.StatusInternalServerError)
		return
	}
	if h.workspaces != nil {
		h.workspaces.Drop(owner)
	}
	w.WriteHeader(http.StatusNoContent)
}

// Uploads lists the caller's previous uploads.
func (h *Handler) Uploads(w http.ResponseWriter, r *http.Request) {
	if h.uploads == nil {
		writeJSON(w, http.StatusOK, []models.Upload{})
		return
	}
	owner, _ := auth.UserID(r.Context())
	items, err := h.uploads.ListUploads(r.Context(), owner, 50)
	if err != nil {
		h.logger.Error("list uploads", zap.String("user_id", owner), zap.Error(err))
		http.Error(w, `{"error":"failed to list uploads"}`, http.StatusInternalServerError)
		return
	}
	if items == nil {
		items = []models.Upload{}
	}
	writeJSON(w, http.StatusOK, items)
}

// Reopen makes a previous upload current again, reading it back from the
// archive.
func (h *Handler) Reopen(w http.ResponseWriter, r *http.Request) {
	upload, ok := h.upload(w, r)
	if !ok {
		return
	}
	data, contentType, err := h.archive.Download(r.Context(), upload.ArchiveKey)
	if err != nil {
		h.writeError(w, err)
		return
	}
	// Prefer the type recorded at upload time.
	if upload.MimeType != "" {
		contentType = upload.MimeType
	}
	doc, err := New(upload.Name, data, contentType, upload.LastModified, h.limits)
	if err != nil {
		h.writeError(w, err)
		return
	}
	owner, _ := auth.UserID(r.Context())
	if !h.makeCurrent(w, r, owner, doc) {
		return
	}
	writeJSON(w, http.StatusOK, doc.Info())
}

// Forget deletes a previous upload: its archived bytes, its log rows and
// the analyses recorded for it.
func (h *Handler) Forget(w http.ResponseWriter, r *http.Request) {
	upload, ok := h.upload(w, r)
	if !ok {
		return
	}
	owner, _ := auth.UserID(r.Context())
	key := upload.ArchiveKey

	if _, err := h.uploads.DeleteUploads(r.Context(), owner, key); err != nil {
		h.writeError(w, err)
		return
	}
	if err := h.archive.Remove(r.Context(), key); err != nil {
		h.logger.Warn("remove archived document", zap.String("key", key), zap.Error(err))
	}
	var purged int64
	if h.history != nil {
		n, err := h.history.DeleteByDocument(r.Context(), owner, key)
		if err != nil {
			h.logger.Warn("delete analyses", zap.String("key", key), zap.Error(err))
		}
		purged = n
	}
	h.logger.Info("upload forgotten", zap.String("user_id", owner), zap.String("key", key), zap.Int64("analyses", purged))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) upload(w http.ResponseWriter, r *http.Request) (*models.Upload, bool) {
	if h.uploads == nil || h.archive == nil {
		http.Error(w, `{"error":"upload history is not available"}`, http.StatusNotFound)
		return nil, false
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, `{"error":"invalid upload id"}`, http.StatusBadRequest)
		return nil, false
	}
	owner, _ := auth.UserID(r.Context())
	upload, err := h.uploads.GetUpload(r.Context(), owner, id)
	if err != nil {
		h.writeError(w, err)
		return nil, false
	}
	return upload, true
}

// makeCurrent stores doc as owner's current document and resets the
// owner's tools.
func (h *Handler) makeCurrent(w http.ResponseWriter, r *http.Request, owner string, doc *models.Document) bool {
	if err := h.holder.SetCurrent(r.Context(), owner, doc); err != nil {
		h.logger.Error("set current document", zap.String("user_id", owner), zap.Error(err))
		http.Error(w, `{"error":"failed to store document"}`, http.StatusInternalServerError)
		return false
	}
	if h.workspaces != nil {
		h.workspaces.Drop(owner)
	}
	return true
}

func (h *Handler) current(w http.ResponseWriter, r *http.Request) (*models.Document, bool) {
	owner, _ := auth.UserID(r.Context())
	doc, err := h.holder.Current(r.Context(), owner)
	if err != nil {
		h.logger.Error("load current document", zap.String("user_id", owner), zap.Error(err))
		http.Error(w, `{"error":"failed to load document"}`, http.StatusInternalServerError)
		return nil, false
	}
	if doc == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no document uploaded", "redirect": "/upload"})
		return nil, false
	}
	return doc, true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrTooLarge):
		writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{
			"error": fmt.Sprintf("file exceeds the %d MB limit", h.limits.MaxBytes>>20),
		})
	case errors.Is(err, ErrUnsupportedType):
		writeJSON(w, http.StatusUnsupportedMediaType, map[string]string{"error": err.Error()})
	case errors.Is(err, ErrEmptyName):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, store.ErrUploadNotFound), errors.Is(err, store.ErrObjectNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	default:
		h.logger.Error("document request", zap.Error(err))
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
	}
}
