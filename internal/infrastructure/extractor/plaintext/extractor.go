package plaintext

import (
	"context"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/kirillkom/drive-filing-bot/internal/core/ports"
)

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

	if !utf8.Valid(raw) {
		return "", fmt.Errorf("not a text file: %s", originalName)
	}

	return strings.TrimSpace(string(raw)), nil
}
