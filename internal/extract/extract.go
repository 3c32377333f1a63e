// Package extract turns an uploaded document into plain text.
package extract

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"

	"github.com/ayush/docmind/backend/internal/models"
)

var (
	errNoDocument = errors.New("no document")
	errNotUTF8    = errors.New("content is not valid UTF-8 text")
	utf8BOM       = []byte{0xEF, 0xBB, 0xBF}
)

// PageReader returns the text of every page of a PDF, in page order.
type PageReader func(raw []byte) ([]string, error)

// Extractor converts documents to text. PDFs are read page by page; any
// other type is decoded as UTF-8.
type Extractor struct {
	logger *zap.Logger
	pages  PageReader
}

func New(logger *zap.Logger) *Extractor {
	return &Extractor{logger: logger, pages: ReadPDFPages}
}

// WithPageReader swaps the PDF backend.
func (e *Extractor) WithPageReader(r PageReader) *Extractor {
	e.pages = r
	return e
}

// Extract returns the document text. An empty document yields "" without
// error. The document is never modified.
func (e *Extractor) Extract(doc *models.Document) (string, error) {
	if doc == nil {
		return "", &FileReadError{Err: errNoDocument}
	}
	if len(doc.RawBytes) == 0 {
		return "", nil
	}

	if doc.MimeType == models.MimePDF {
		pages, err := e.pages(doc.RawBytes)
		if err != nil {
			e.logger.Warn("pdf extraction failed", zap.String("document", doc.Name), zap.Error(err))
			var perr *PdfParseError
			if errors.As(err, &perr) {
				perr.Name = doc.Name
				return "", perr
			}
			return "", &PdfParseError{Name: doc.Name, Err: err}
		}
		e.logger.Debug("pdf extracted", zap.String("document", doc.Name), zap.Int("pages", len(pages)))
		return JoinPages(pages), nil
	}

	raw := bytes.TrimPrefix(doc.RawBytes, utf8BOM)
	if !utf8.Valid(raw) {
		e.logger.Warn("text extraction failed", zap.String("document", doc.Name), zap.String("type", doc.MimeType))
		return "", &FileReadError{Name: doc.Name, Err: errNotUTF8}
	}
	return string(raw), nil
}

// JoinPages concatenates page texts in order, each followed by a newline.
func JoinPages(pages []string) string {
	var b strings.Builder
	for _, p := range pages {
		b.WriteString(p)
		b.WriteByte('\n')
	}
	return b.String()
}

// ReadPDFPages reads page texts with ledongthuc/pdf. The library panics on
// some malformed inputs, so panics are turned into a PdfParseError.
func ReadPDFPages(raw []byte) (pages []string, err error) {
	page := 0
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = &PdfParseError{Page: page, Err: fmt.Errorf("%v", r)}
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, &PdfParseError{Err: err}
	}

	n := r.NumPage()
	pages = make([]string, 0, n)
	for page = 1; page <= n; page++ {
		p := r.Page(page)
		if p.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			return nil, &PdfParseError{Page: page, Err: err}
		}
		pages = append(pages, text)
	}
	return pages, nil
}
