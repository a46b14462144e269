package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/kirillkom/drive-filing-bot/internal/core/domain"
)

// draftIdentity accumulates the five answered fields for the item
// currently in focus. Validated as a whole once the date arrives.
type draftIdentity struct {
	principal string
	agent     string
	doctype   string
	number    string
	date      string
}

type correctionSession struct {
	items    []domain.PendingItem
	focusIdx int
	state    domain.CorrectionState
	draft    draftIdentity
}

// CorrectionWorkflow repairs unresolved items one field at a time.
// Exactly one item per owner is in focus; each state consumes one
// free-text reply. Completing the date reconstructs the identity through
// the same invariant checks as the initial parse: an answer that breaks
// an invariant re-prompts instead of being silently accepted.
type CorrectionWorkflow struct {
	mu       sync.Mutex
	sessions map[string]*correctionSession
}

func NewCorrectionWorkflow() *CorrectionWorkflow {
	return &CorrectionWorkflow{sessions: make(map[string]*correctionSession)}
}

// Start opens a session over the batch. Returns the first prompt, or a
// Done prompt immediately when nothing needs correction.
func (w *CorrectionWorkflow) Start(_ context.Context, ownerID string, items []domain.PendingItem) (domain.CorrectionPrompt, error) {
	if len(items) == 0 {
		return domain.CorrectionPrompt{}, domain.WrapError(domain.ErrInvalidInput, "start correction", errors.New("batch is empty"))
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	session := &correctionSession{items: items, focusIdx: -1}
	if !session.focusNext() {
		summary := domain.SummarizeBatch(ownerID, items)
		return domain.CorrectionPrompt{State: domain.CorrectionDone, Summary: &summary}, nil
	}
	w.sessions[ownerID] = session
	return session.prompt(false), nil
}

// Reply feeds one submitter answer into the session and returns the next
// prompt. A reply with no open session is a contract violation: the
// session (if any) is discarded and the submitter must restart.
func (w *CorrectionWorkflow) Reply(_ context.Context, ownerID, text string) (domain.CorrectionPrompt, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	session, ok := w.sessions[ownerID]
	if !ok {
		return domain.CorrectionPrompt{}, domain.WrapError(domain.ErrWorkflowViolation, "correction reply", errors.New("no item in focus"))
	}

	answer := strings.TrimSpace(text)
	if answer == "" && session.state != domain.AwaitingAgent {
		return session.prompt(true), nil
	}

	switch session.state {
	case domain.AwaitingPrincipal:
		if len([]rune(answer)) > domain.MaxPrincipalLen {
			return session.prompt(true), nil
		}
		session.draft.principal = answer
		session.state = domain.AwaitingAgent
	case domain.AwaitingAgent:
		// Blank is a valid answer here: the agent is optional.
		session.draft.agent = answer
		session.state = domain.AwaitingDoctype
	case domain.AwaitingDoctype:
		if !domain.IsKnownDoctype(answer) {
			return session.prompt(true), nil
		}
		session.draft.doctype = answer
		session.state = domain.AwaitingNumber
	case domain.AwaitingNumber:
		session.draft.number = answer
		session.state = domain.AwaitingDate
	case domain.AwaitingDate:
		session.draft.date = answer
		return w.finishItemLocked(ownerID, session)
	default:
		delete(w.sessions, ownerID)
		return domain.CorrectionPrompt{}, domain.WrapError(domain.ErrWorkflowViolation, "correction reply", fmt.Errorf("unexpected state %q", session.state))
	}
	return session.prompt(false), nil
}

// Finalized returns the repaired items once the workflow reported Done.
func (w *CorrectionWorkflow) Finalized(ownerID string) ([]domain.PendingItem, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	session, ok := w.sessions[ownerID]
	if !ok || session.state != domain.CorrectionDone {
		return nil, false
	}
	delete(w.sessions, ownerID)
	return session.items, true
}

// Cancel clears all in-progress state for the owner.
func (w *CorrectionWorkflow) Cancel(_ context.Context, ownerID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.sessions, ownerID)
}

// finishItemLocked validates the completed draft through the same
// invariant checks as the parse path. Principal, doctype and number are
// already checked at their own prompts, so the date is the only reply
// that can still fail here; a failure re-prompts it.
func (w *CorrectionWorkflow) finishItemLocked(ownerID string, session *correctionSession) (domain.CorrectionPrompt, error) {
	item := &session.items[session.focusIdx]
	ext := extOf(item.OriginalName)

	identity, err := domain.NewDocumentIdentity(
		session.draft.principal,
		session.draft.agent,
		session.draft.doctype,
		session.draft.number,
		session.draft.date,
		ext,
	)
	if err != nil {
		session.state = domain.AwaitingDate
		return session.prompt(true), nil
	}

	item.Identity = identity
	item.Status = domain.ItemResolved

	if session.focusNext() {
		return session.prompt(false), nil
	}

	session.state = domain.CorrectionDone
	summary := domain.SummarizeBatch(ownerID, session.items)
	return domain.CorrectionPrompt{State: domain.CorrectionDone, Summary: &summary}, nil
}

// focusNext moves focus to the next unresolved item, resetting the state
// to AwaitingPrincipal. Returns false when none remain.
func (s *correctionSession) focusNext() bool {
	for idx := s.focusIdx + 1; idx < len(s.items); idx++ {
		if s.items[idx].Status == domain.ItemNeedsCorrection {
			s.focusIdx = idx
			s.state = domain.AwaitingPrincipal
			s.draft = draftIdentity{}
			return true
		}
	}
	return false
}

func (s *correctionSession) prompt(retry bool) domain.CorrectionPrompt {
	item := s.items[s.focusIdx]
	questions := map[domain.CorrectionState]string{
		domain.AwaitingPrincipal: "Введите принципала:",
		domain.AwaitingAgent:     "Введите агента (пустой ответ — без агента):",
		domain.AwaitingDoctype:   "Введите тип документа:",
		domain.AwaitingNumber:    "Введите номер:",
		domain.AwaitingDate:      "Введите дату (ДДММГГ или ДДММГГГГ):",
	}
	return domain.CorrectionPrompt{
		State:        s.state,
		OriginalName: item.OriginalName,
		Question:     questions[s.state],
		Retry:        retry,
	}
}

func extOf(name string) string {
	idx := strings.LastIndexByte(name, '.')
	if idx < 0 {
		return ""
	}
	return strings.ToLower(name[idx+1:])
}
