package models

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

const MimePDF = "application/pdf"

// Document is the uploaded file a user is currently working on.
type Document struct {
	Name         string
	MimeType     string
	SizeBytes    int64
	LastModified time.Time
	RawBytes     []byte
}

// DocumentInfo is the JSON view of a Document without its payload.
type DocumentInfo struct {
	Name         string    `json:"name"`
	MimeType     string    `json:"type"`
	SizeBytes    int64     `json:"size"`
	SizeMB       string    `json:"size_mb"`
	LastModified time.Time `json:"last_modified"`
}

func (d *Document) Info() DocumentInfo {
	return DocumentInfo{
		Name:         d.Name,
		MimeType:     d.MimeType,
		SizeBytes:    d.SizeBytes,
		SizeMB:       fmt.Sprintf("%.2f MB", float64(d.SizeBytes)/(1024*1024)),
		LastModified: d.LastModified,
	}
}

// ArchiveKey is the object key of the owner's archived copy of doc. The
// same document always maps to the same key; documents whose content
// differs never share one.
func ArchiveKey(owner string, doc *Document) string {
	name := append([]byte(doc.Fingerprint()+"|"), doc.RawBytes...)
	id := uuid.NewSHA1(uuid.NameSpaceOID, name)
	return fmt.Sprintf("documents/%s/%s%s", owner, id, strings.ToLower(filepath.Ext(doc.Name)))
}

// Fingerprint identifies a document well enough to notice that the current
// one was replaced.
func (d *Document) Fingerprint() string {
	return fmt.Sprintf("%s|%s|%d|%d", d.Name, d.MimeType, d.SizeBytes, d.LastModified.UnixMilli())
}

// Upload is a row of the uploads log.
type Upload struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	MimeType     string    `json:"type"`
	SizeBytes    int64     `json:"size"`
	ArchiveKey   string    `json:"archive_key"`
	LastModified time.Time `json:"last_modified"`
	UploadedAt   time.Time `json:"uploaded_at"`
}
