package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

const MaxPrincipalLen = 100

// SupportedExtensions is the allow-list for inbound files. Keys are
// lowercase without the leading dot.
var SupportedExtensions = map[string]struct{}{
	"pdf":  {},
	"docx": {},
	"doc":  {},
	"xlsx": {},
	"xls":  {},
	"txt":  {},
	"png":  {},
	"jpeg": {},
	"jpg":  {},
	"tiff": {},
}

// DocTypes is the controlled doctype vocabulary. Stored in canonical
// form (lowercase, underscores); matching is case/dash-insensitive.
var DocTypes = []string{
	"договор",
	"агентский_договор",
	"поручение",
	"акт",
}

var dateRe = regexp.MustCompile(`^(\d{6}|\d{8})$`)

// DocumentIdentity is the canonical description of a filed document.
// Construct through NewDocumentIdentity; a value that exists is valid.
type DocumentIdentity struct {
	Principal string `json:"principal"`
	Agent     string `json:"agent,omitempty"`
	Doctype   string `json:"doctype"`
	Number    string `json:"number"`
	Date      string `json:"date"`
	Ext       string `json:"ext"`
}

func NewDocumentIdentity(principal, agent, doctype, number, date, ext string) (*DocumentIdentity, error) {
	principal = strings.TrimSpace(principal)
	agent = strings.TrimSpace(agent)
	doctype = NormalizeDoctype(doctype)
	number = strings.TrimSpace(number)
	date = strings.TrimSpace(date)
	ext = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(ext)), ".")

	if principal == "" {
		return nil, WrapError(ErrInvalidIdentity, "validate identity", errors.New("principal is empty"))
	}
	if len([]rune(principal)) > MaxPrincipalLen {
		return nil, WrapError(ErrInvalidIdentity, "validate identity", fmt.Errorf("principal exceeds %d chars", MaxPrincipalLen))
	}
	if !IsKnownDoctype(doctype) {
		return nil, WrapError(ErrInvalidIdentity, "validate identity", fmt.Errorf("unknown doctype %q", doctype))
	}
	if number == "" {
		return nil, WrapError(ErrInvalidIdentity, "validate identity", errors.New("number is empty"))
	}
	if !dateRe.MatchString(date) {
		return nil, WrapError(ErrInvalidIdentity, "validate identity", fmt.Errorf("date %q is not 6 or 8 digits", date))
	}
	if _, ok := SupportedExtensions[ext]; !ok {
		return nil, WrapError(ErrInvalidIdentity, "validate identity", fmt.Errorf("unsupported extension %q", ext))
	}

	return &DocumentIdentity{
		Principal: principal,
		Agent:     agent,
		Doctype:   doctype,
		Number:    number,
		Date:      date,
		Ext:       ext,
	}, nil
}

// CanonicalPath is the single source of truth for the destination
// folder hierarchy: principal / agent? / doctype.
func (d *DocumentIdentity) CanonicalPath() []string {
	segments := []string{d.Principal}
	if d.Agent != "" {
		segments = append(segments, d.Agent)
	}
	return append(segments, d.Doctype)
}

func (d *DocumentIdentity) CanonicalFilename() string {
	parts := []string{d.Principal}
	if d.Agent != "" {
		parts = append(parts, d.Agent)
	}
	parts = append(parts, d.Doctype, d.Number, d.Date)
	return strings.Join(parts, "_") + "." + d.Ext
}

// NormalizeDoctype folds dashes and spaces into underscores and lowercases.
func NormalizeDoctype(doctype string) string {
	doctype = strings.ToLower(strings.TrimSpace(doctype))
	doctype = strings.ReplaceAll(doctype, "-", "_")
	return strings.ReplaceAll(doctype, " ", "_")
}

func IsKnownDoctype(doctype string) bool {
	normalized := NormalizeDoctype(doctype)
	for _, dt := range DocTypes {
		if dt == normalized {
			return true
		}
	}
	return false
}

func IsSupportedExtension(ext string) bool {
	ext = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(ext)), ".")
	_, ok := SupportedExtensions[ext]
	return ok
}
