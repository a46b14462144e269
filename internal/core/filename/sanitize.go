package filename

import (
	"errors"
	"path"
	"strings"

	"github.com/kirillkom/drive-filing-bot/internal/core/domain"
)

const maxNameLen = 255

// Reserved Windows device names, compared against the stem case-insensitively.
var reservedNames = map[string]struct{}{
	"con": {}, "prn": {}, "aux": {}, "nul": {},
	"com1": {}, "com2": {}, "com3": {}, "com4": {}, "com5": {},
	"com6": {}, "com7": {}, "com8": {}, "com9": {},
	"lpt1": {}, "lpt2": {}, "lpt3": {}, "lpt4": {}, "lpt5": {},
	"lpt6": {}, "lpt7": {}, "lpt8": {}, "lpt9": {},
}

// Sanitize normalizes a user-supplied filename so it is safe for staging
// and remote storage: control characters stripped, forbidden characters
// replaced with '_', leading/trailing dots trimmed, reserved device names
// prefixed, total length capped preserving the extension. Sanitize is
// idempotent. Only an empty or all-whitespace input fails.
func Sanitize(name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", domain.WrapError(domain.ErrEmptyName, "sanitize filename", errors.New("blank input"))
	}

	var b strings.Builder
	for _, r := range strings.TrimSpace(name) {
		switch {
		case r < 0x20 || r == 0x7f:
			// control range: drop
		case strings.ContainsRune(`<>:"/\|?*`, r):
			b.WriteByte('_')
		default:
			b.WriteRune(r)
		}
	}

	out := strings.Trim(b.String(), ".")
	out = strings.TrimSpace(out)
	if out == "" {
		return "", domain.WrapError(domain.ErrEmptyName, "sanitize filename", errors.New("nothing left after sanitization"))
	}

	ext := path.Ext(out)
	stem := strings.TrimSuffix(out, ext)

	if _, reserved := reservedNames[strings.ToLower(stem)]; reserved {
		stem = "file_" + stem
	}

	if len(stem)+len(ext) > maxNameLen {
		trimmed := truncateRunes(stem, maxNameLen-len(ext))
		if trimmed == "" {
			// The extension alone exhausts the budget; preserving it
			// would blow the cap or leave a leading dot. Cap the whole
			// name instead.
			return strings.TrimRight(truncateRunes(out, maxNameLen), "."), nil
		}
		stem = trimmed
	}
	return stem + ext, nil
}

// truncateRunes cuts at a rune boundary so multi-byte names stay valid UTF-8.
func truncateRunes(s string, maxBytes int) string {
	if maxBytes <= 0 {
		return ""
	}
	for len(s) > maxBytes {
		runes := []rune(s)
		s = string(runes[:len(runes)-1])
	}
	return s
}
