package filename

import (
	"strings"
	"testing"

	"github.com/kirillkom/drive-filing-bot/internal/core/domain"
)

func TestSanitizeReplacesForbiddenCharacters(t *testing.T) {
	got, err := Sanitize(`file<with>bad:chars.pdf`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "file_with_bad_chars.pdf" {
		t.Fatalf("unexpected result: %q", got)
	}
}

func TestSanitizeDropsControlCharacters(t *testing.T) {
	got, err := Sanitize("re\x00port\x1f.pdf")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "report.pdf" {
		t.Fatalf("unexpected result: %q", got)
	}
}

func TestSanitizeTrimsDots(t *testing.T) {
	got, err := Sanitize("..report.pdf.")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "report.pdf" {
		t.Fatalf("unexpected result: %q", got)
	}
}

func TestSanitizeReservedName(t *testing.T) {
	got, err := Sanitize("CON.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "file_CON.txt" {
		t.Fatalf("unexpected result: %q", got)
	}
}

func TestSanitizeCapsLengthPreservingExtension(t *testing.T) {
	got, err := Sanitize(strings.Repeat("a", 300) + ".pdf")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) > 255 {
		t.Fatalf("expected at most 255 bytes, got %d", len(got))
	}
	if !strings.HasSuffix(got, ".pdf") {
		t.Fatalf("extension must survive truncation: %q", got)
	}
}

func TestSanitizeEmptyInput(t *testing.T) {
	for _, input := range []string{"", "   ", "..."} {
		if _, err := Sanitize(input); !domain.IsKind(err, domain.ErrEmptyName) {
			t.Fatalf("input %q: expected ErrEmptyName, got %v", input, err)
		}
	}
}

func TestSanitizeIdempotent(t *testing.T) {
	inputs := []string{
		`file<with>bad:chars.pdf`,
		"Альфатрекс_поручение_54_280525.pdf",
		"CON.txt",
	}
	for _, input := range inputs {
		once, err := Sanitize(input)
		if err != nil {
			t.Fatalf("first pass failed for %q: %v", input, err)
		}
		twice, err := Sanitize(once)
		if err != nil {
			t.Fatalf("second pass failed for %q: %v", once, err)
		}
		if once != twice {
			t.Fatalf("not idempotent: %q -> %q -> %q", input, once, twice)
		}
	}
}

func TestSanitizeCapsOversizedExtension(t *testing.T) {
	name := "a." + strings.Repeat("b", 300)
	got, err := Sanitize(name)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) > 255 {
		t.Fatalf("result exceeds 255 bytes: %d", len(got))
	}
	if strings.HasPrefix(got, ".") {
		t.Fatalf("result starts with a dot: %q", got)
	}

	again, err := Sanitize(got)
	if err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if again != got {
		t.Fatalf("not idempotent: %q then %q", got, again)
	}
}

func TestSanitizeCapsMultibyteStemWithLongExtension(t *testing.T) {
	name := "я." + strings.Repeat("b", 253)
	got, err := Sanitize(name)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) > 255 {
		t.Fatalf("result exceeds 255 bytes: %d", len(got))
	}
	if strings.HasPrefix(got, ".") {
		t.Fatalf("result starts with a dot: %q", got)
	}

	again, err := Sanitize(got)
	if err != nil || again != got {
		t.Fatalf("not idempotent: %q then %q (%v)", got, again, err)
	}
}
