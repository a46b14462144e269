package usecase

import (
	"context"
	"log/slog"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/kirillkom/drive-filing-bot/internal/core/domain"
	"github.com/kirillkom/drive-filing-bot/internal/core/ports"
)

const inferTimeout = 30 * time.Second

// Field heuristics over extracted document text. Labels cover the
// bilingual document bodies the bot receives.
var (
	principalRe = regexp.MustCompile(`(?i)(?:принципал|principal)[^\n:]*[:\-\s]\s*([^\n_]+)`)
	numberRe    = regexp.MustCompile(`(?i)(?:номер поручения|assignment number|договор|contract)\D{0,5}(\d+)`)
	docDateRe   = regexp.MustCompile(`(\d{2})[./-](\d{2})[./-](\d{4})`)
)

// InferIdentityUseCase is the pure fallback behind the filename grammar:
// extract text, scan for the four required fields, return an identity only
// when all of them were found. Extraction failures are inference misses,
// never errors; the caller still offers manual correction.
type InferIdentityUseCase struct {
	extractor ports.TextExtractor
}

func NewInferIdentityUseCase(extractor ports.TextExtractor) *InferIdentityUseCase {
	return &InferIdentityUseCase{extractor: extractor}
}

func (uc *InferIdentityUseCase) Infer(ctx context.Context, storageKey, originalName string) *domain.DocumentIdentity {
	extractCtx, cancel := context.WithTimeout(ctx, inferTimeout)
	defer cancel()

	text, err := uc.extractor.Extract(extractCtx, storageKey, originalName)
	if err != nil {
		slog.Debug("inference_extraction_failed", "name", originalName, "error", err)
		return nil
	}

	principal := firstGroup(principalRe, text)
	doctype := scanDoctype(text)
	number := firstGroup(numberRe, text)
	date := scanDate(text)
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(originalName)), ".")

	if principal == "" || doctype == "" || number == "" || date == "" {
		// Partial matches would produce a misleading canonical name.
		return nil
	}

	identity, err := domain.NewDocumentIdentity(principal, "", doctype, number, date, ext)
	if err != nil {
		slog.Debug("inference_identity_invalid", "name", originalName, "error", err)
		return nil
	}
	return identity
}

func firstGroup(re *regexp.Regexp, text string) string {
	match := re.FindStringSubmatch(text)
	if match == nil {
		return ""
	}
	return strings.TrimSpace(match[1])
}

func scanDoctype(text string) string {
	lower := strings.ToLower(text)
	for _, dt := range domain.DocTypes {
		needle := strings.ReplaceAll(dt, "_", " ")
		if strings.Contains(lower, needle) {
			return dt
		}
	}
	return ""
}

// scanDate finds a dd.mm.yyyy-style date and folds it to the 8-digit
// form the filename grammar uses.
func scanDate(text string) string {
	match := docDateRe.FindStringSubmatch(text)
	if match == nil {
		return ""
	}
	return match[1] + match[2] + match[3]
}
