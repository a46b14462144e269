package pdfx

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/kirillkom/drive-filing-bot/internal/core/ports"
)

// Extractor reads the embedded text layer of a PDF. Scanned documents
// without a text layer come back empty, which the inference layer treats
// as a miss.
type Extractor struct {
	storage ports.StagingStorage
}

func NewExtractor(storage ports.StagingStorage) *Extractor {
	return &Extractor{storage: storage}
}

func (e *Extractor) Extract(ctx context.Context, storageKey, originalName string) (string, error) {
	reader, err := e.storage.Open(ctx, storageKey)
	if err != nil {
		return "", fmt.Errorf("open staged file: %w", err)
	}
	defer reader.Close()

	raw, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("read staged file: %w", err)
	}

	doc, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", fmt.Errorf("parse pdf %s: %w", originalName, err)
	}

	var b strings.Builder
	for pageNum := 1; pageNum <= doc.NumPage(); pageNum++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		page := doc.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// Keep what the readable pages gave us.
			continue
		}
		b.WriteString(text)
		b.WriteByte('\n')
	}
	return strings.TrimSpace(b.String()), nil
}
