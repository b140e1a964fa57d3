// Package workflow enforces the maker-checker lifecycle of templates. All
// status transitions go through the Engine: authorization first, then the
// transition table, then field stamping, with exactly one audit entry per
// successful transition. Templates are treated as immutable snapshots; the
// engine returns a new copy and the store performs the version-checked write.
package workflow

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/regexflow/regexflow/pkg/types"
)

// TransitionError reports an authorization or state-machine violation.
type TransitionError struct {
	From   types.TemplateStatus
	To     types.TemplateStatus
	Reason string
}

func (e *TransitionError) Error() string {
	if e.Reason != "" {
		return e.Reason
	}
	return fmt.Sprintf("cannot transition from %s to %s", e.From, e.To)
}

// ErrBlankReason is returned when a rejection carries no reason. It is a
// validation failure, checked before any state mutation.
var ErrBlankReason = fmt.Errorf("rejection reason is required")

// actionLabels derive the human-readable audit action from the target state.
var actionLabels = map[types.TemplateStatus]string{
	types.StatusDraft:           "Created",
	types.StatusPendingApproval: "Submitted for Approval",
	types.StatusActive:          "Approved",
	types.StatusRejected:        "Rejected",
	types.StatusDeprecated:      "Deprecated",
}

// sideEffect stamps transition-specific fields onto the new snapshot.
type sideEffect func(t *types.Template, actor types.Actor, comment string, now time.Time)

// transitionTable maps (from, to) pairs to their side effects. Pairs absent
// from the table are invalid; the table is data so it can be tested
// exhaustively over all state pairs.
var transitionTable = map[types.TemplateStatus]map[types.TemplateStatus]sideEffect{
	types.StatusDraft: {
		types.StatusDraft:           nil, // no-op edit
		types.StatusPendingApproval: nil,
	},
	types.StatusPendingApproval: {
		types.StatusActive: func(t *types.Template, actor types.Actor, _ string, now time.Time) {
			t.CheckerID = actor.ID
			t.ApprovedAt = &now
		},
		types.StatusRejected: func(t *types.Template, actor types.Actor, comment string, _ time.Time) {
			t.CheckerID = actor.ID
			t.RejectionReason = comment
		},
	},
	types.StatusActive: {
		types.StatusDeprecated: func(t *types.Template, actor types.Actor, _ string, now time.Time) {
			t.CheckerID = actor.ID
			t.DeprecatedAt = &now
		},
	},
	types.StatusRejected: {
		types.StatusDraft: nil,
	},
	// DEPRECATED is terminal.
}

// Engine applies lifecycle transitions.
type Engine struct {
	now func() time.Time
	log *logrus.Logger
}

// New returns an engine on the system clock.
func New(log *logrus.Logger) *Engine {
	return NewWithClock(log, time.Now)
}

// NewWithClock returns an engine with a fixed clock, for tests.
func NewWithClock(log *logrus.Logger, now func() time.Time) *Engine {
	if log == nil {
		log = logrus.New()
	}
	return &Engine{now: now, log: log}
}

// Transition validates and applies a state change, returning the updated
// snapshot and its audit entry. The input template is not mutated.
func (e *Engine) Transition(tpl types.Template, next types.TemplateStatus, actor types.Actor, comment string) (types.Template, types.AuditEntry, error) {
	targets, ok := transitionTable[tpl.Status]
	if !ok {
		return tpl, types.AuditEntry{}, &TransitionError{From: tpl.Status, To: next}
	}
	effect, ok := targets[next]
	if !ok {
		return tpl, types.AuditEntry{}, &TransitionError{From: tpl.Status, To: next}
	}

	now := e.now()
	prev := tpl.Status
	updated := tpl
	updated.Status = next
	updated.UpdatedAt = now
	if effect != nil {
		effect(&updated, actor, comment, now)
	}

	entry := types.AuditEntry{
		ID:             uuid.NewString(),
		TemplateID:     tpl.ID,
		PreviousStatus: prev,
		NewStatus:      next,
		Action:         actionLabels[next],
		Comment:        comment,
		ActorID:        actor.ID,
		CreatedAt:      now,
	}

	e.log.WithFields(logrus.Fields{
		"template": tpl.ID,
		"from":     prev,
		"to":       next,
		"actor":    actor.Username,
	}).Info("template transitioned")

	return updated, entry, nil
}

// Submit moves DRAFT to PENDING_APPROVAL. Only the owning maker may submit.
func (e *Engine) Submit(tpl types.Template, maker types.Actor) (types.Template, types.AuditEntry, error) {
	if err := e.requireMaker(tpl, maker); err != nil {
		return tpl, types.AuditEntry{}, err
	}
	return e.Transition(tpl, types.StatusPendingApproval, maker, "Submitted for approval")
}

// Approve moves PENDING_APPROVAL to ACTIVE. The checker must not be the maker.
func (e *Engine) Approve(tpl types.Template, checker types.Actor, comment string) (types.Template, types.AuditEntry, error) {
	if err := e.requireChecker(tpl, checker); err != nil {
		return tpl, types.AuditEntry{}, err
	}
	return e.Transition(tpl, types.StatusActive, checker, comment)
}

// Reject moves PENDING_APPROVAL to REJECTED. A non-blank reason is required
// and is validated before any state change.
func (e *Engine) Reject(tpl types.Template, checker types.Actor, reason string) (types.Template, types.AuditEntry, error) {
	if err := e.requireChecker(tpl, checker); err != nil {
		return tpl, types.AuditEntry{}, err
	}
	if strings.TrimSpace(reason) == "" {
		return tpl, types.AuditEntry{}, ErrBlankReason
	}
	return e.Transition(tpl, types.StatusRejected, checker, reason)
}

// Deprecate moves ACTIVE to DEPRECATED, the terminal state.
func (e *Engine) Deprecate(tpl types.Template, checker types.Actor, comment string) (types.Template, types.AuditEntry, error) {
	if err := e.requireChecker(tpl, checker); err != nil {
		return tpl, types.AuditEntry{}, err
	}
	return e.Transition(tpl, types.StatusDeprecated, checker, comment)
}

// Reopen moves REJECTED back to DRAFT so the maker can rework the pattern.
func (e *Engine) Reopen(tpl types.Template, maker types.Actor) (types.Template, types.AuditEntry, error) {
	if err := e.requireMaker(tpl, maker); err != nil {
		return tpl, types.AuditEntry{}, err
	}
	return e.Transition(tpl, types.StatusDraft, maker, "Reopened after rejection")
}

// CanEdit reports whether actor may mutate the template's pattern fields.
func (e *Engine) CanEdit(tpl types.Template, actor types.Actor) bool {
	return tpl.Status == types.StatusDraft && tpl.MakerID == actor.ID
}

func (e *Engine) requireMaker(tpl types.Template, actor types.Actor) error {
	if tpl.MakerID != actor.ID {
		return &TransitionError{
			From:   tpl.Status,
			Reason: "only the template creator can perform this action",
		}
	}
	return nil
}

func (e *Engine) requireChecker(tpl types.Template, actor types.Actor) error {
	if tpl.MakerID == actor.ID {
		return &TransitionError{
			From:   tpl.Status,
			Reason: "checker cannot be the same as maker",
		}
	}
	return nil
}
