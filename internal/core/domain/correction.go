package domain

// CorrectionState is the closed set of wizard states. Each state consumes
// exactly one free-text reply for the item currently in focus.
type CorrectionState string

const (
	AwaitingPrincipal CorrectionState = "awaiting_principal"
	AwaitingAgent     CorrectionState = "awaiting_agent"
	AwaitingDoctype   CorrectionState = "awaiting_doctype"
	AwaitingNumber    CorrectionState = "awaiting_number"
	AwaitingDate      CorrectionState = "awaiting_date"
	CorrectionDone    CorrectionState = "done"
)

// CorrectionPrompt tells the front end what to ask next. When State is
// CorrectionDone, Summary carries the finalized batch overview instead.
type CorrectionPrompt struct {
	State        CorrectionState `json:"state"`
	OriginalName string          `json:"original_name,omitempty"`
	Question     string          `json:"question,omitempty"`
	Retry        bool            `json:"retry,omitempty"`
	Summary      *BatchSummary   `json:"summary,omitempty"`
}
