package composite

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/kirillkom/drive-filing-bot/internal/core/ports"
)

// Extractor routes by extension to a format-specific extractor. Formats
// with no registered extractor (scanned images among them) fail, which
// downstream inference treats as "no text available".
type Extractor struct {
	byExt map[string]ports.TextExtractor
}

func New() *Extractor {
	return &Extractor{byExt: make(map[string]ports.TextExtractor)}
}

func (e *Extractor) Register(extractor ports.TextExtractor, exts ...string) *Extractor {
	for _, ext := range exts {
		e.byExt[strings.ToLower(ext)] = extractor
	}
	return e
}

func (e *Extractor) Extract(ctx context.Context, storageKey, originalName string) (string, error) {
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(originalName)), ".")
	extractor, ok := e.byExt[ext]
	if !ok {
		return "", fmt.Errorf("no text extractor for %q files", ext)
	}
	return extractor.Extract(ctx, storageKey, originalName)
}
