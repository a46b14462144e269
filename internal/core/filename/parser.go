package filename

import (
	"log/slog"
	"path"
	"regexp"
	"strings"

	"github.com/kirillkom/drive-filing-bot/internal/core/domain"
)

// duplicateSuffixRe strips " (1)"-style copies that download managers append.
var duplicateSuffixRe = regexp.MustCompile(`\s*\(\d+\)$`)

// The grammar is principal[_agent]_doctype_number_date[.ext]. The no-agent
// form is tried first so multi-word doctypes like "агентский_договор" are
// not split into an agent plus a shorter doctype.
var (
	plainGrammarRe = buildGrammar(domain.DocTypes, false)
	agentGrammarRe = buildGrammar(domain.DocTypes, true)
)

// buildGrammar compiles the filename grammar. Doctypes match with either
// underscores or dashes between words.
func buildGrammar(doctypes []string, withAgent bool) *regexp.Regexp {
	alternatives := make([]string, 0, len(doctypes))
	for _, dt := range doctypes {
		alternatives = append(alternatives, strings.ReplaceAll(regexp.QuoteMeta(dt), "_", "[_-]"))
	}
	agent := ""
	if withAgent {
		agent = `_([\p{L}\p{N}\- ]+?)`
	}
	pattern := `^([\p{L}\p{N}\- ]+?)` + agent + `_(` +
		strings.Join(alternatives, "|") +
		`)_(\d+)_(\d{6}|\d{8})(?:\.(\w+))?$`
	return regexp.MustCompile(`(?i)` + pattern)
}

// Parse matches a filename against the canonical grammar and returns the
// identity, or nil when the name does not conform. A miss is an expected
// outcome, not an error; callers fall back to content inference.
func Parse(name string) *domain.DocumentIdentity {
	sanitized, err := Sanitize(name)
	if err != nil {
		return nil
	}

	ext := strings.TrimPrefix(strings.ToLower(path.Ext(sanitized)), ".")
	stem := strings.TrimSuffix(sanitized, path.Ext(sanitized))
	stem = duplicateSuffixRe.ReplaceAllString(stem, "")

	var principal, agent, doctype, number, date, extFound string
	if match := plainGrammarRe.FindStringSubmatch(stem + "." + ext); match != nil {
		principal, doctype, number, date, extFound = match[1], match[2], match[3], match[4], match[5]
	} else if match := agentGrammarRe.FindStringSubmatch(stem + "." + ext); match != nil {
		principal, agent, doctype, number, date, extFound = match[1], match[2], match[3], match[4], match[5], match[6]
	} else {
		slog.Debug("filename_grammar_miss", "name", name)
		return nil
	}
	if extFound != "" {
		ext = strings.ToLower(extFound)
	}

	identity, err := domain.NewDocumentIdentity(principal, agent, doctype, number, date, ext)
	if err != nil {
		// Invariant failures after a grammar match are treated as a miss.
		slog.Debug("filename_identity_invalid", "name", name, "error", err)
		return nil
	}
	return identity
}
