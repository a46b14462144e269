package spreadsheet

import (
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/drive-filing-bot/internal/core/ports"
)

// Extractor flattens workbook cells into newline-separated text so the
// inference heuristics can scan labelled fields in xlsx documents.
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

	workbook, err := excelize.OpenReader(reader)
	if err != nil {
		return "", fmt.Errorf("parse workbook %s: %w", originalName, err)
	}
	defer workbook.Close()

	var b strings.Builder
	for _, sheet := range workbook.GetSheetList() {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		rows, err := workbook.GetRows(sheet)
		if err != nil {
			return "", fmt.Errorf("read sheet %q: %w", sheet, err)
		}
		for _, row := range rows {
			line := strings.TrimSpace(strings.Join(row, " "))
			if line != "" {
				b.WriteString(line)
				b.WriteByte('\n')
			}
		}
	}
	return strings.TrimSpace(b.String()), nil
}
