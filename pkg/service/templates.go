// Package service ties the extraction core to persistence: template
// authoring and lifecycle on one side, message parsing on the other.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/regexflow/regexflow/pkg/matcher"
	"github.com/regexflow/regexflow/pkg/pattern"
	"github.com/regexflow/regexflow/pkg/store"
	"github.com/regexflow/regexflow/pkg/types"
	"github.com/regexflow/regexflow/pkg/workflow"
)

// ErrNotEditable is returned when an update targets a template the actor
// cannot edit (not the maker, or not in DRAFT).
var ErrNotEditable = errors.New("template can only be edited by its maker while in DRAFT")

// DuplicateError reports that an identical pattern is already live.
type DuplicateError struct {
	TemplateID string
	Status     types.TemplateStatus
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("an identical pattern already exists in status %s", e.Status)
}

// CreateTemplateRequest carries the maker-supplied fields for a new template.
type CreateTemplateRequest struct {
	BankName    string `validate:"required"`
	Pattern     string `validate:"required"`
	Kind        string `validate:"required,oneof=DEBIT CREDIT BILL"`
	SampleText  string
	Description string
}

// TestPatternRequest runs a pattern against a sample without persisting.
type TestPatternRequest struct {
	Pattern string `validate:"required"`
	Sample  string `validate:"required"`
	Timeout time.Duration
}

// DuplicateReport is the outcome of an explicit duplicate-pattern check.
type DuplicateReport struct {
	Exists     bool
	TemplateID string
	Status     types.TemplateStatus
	Message    string
}

// TemplateService owns template authoring, lifecycle, and queries.
type TemplateService struct {
	store    store.Store
	matcher  *matcher.BoundedMatcher
	patterns *pattern.Validator
	engine   *workflow.Engine
	validate *validator.Validate
	log      *logrus.Logger
	now      func() time.Time
	newID    func() string
}

// NewTemplateService wires a template service over the given store and
// matcher. The matcher is shared with the parsing service; it owns the
// worker pool.
func NewTemplateService(st store.Store, m *matcher.BoundedMatcher, log *logrus.Logger) *TemplateService {
	return &TemplateService{
		store:    st,
		matcher:  m,
		patterns: pattern.NewValidator(),
		engine:   workflow.New(log),
		validate: validator.New(),
		log:      log,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// Create validates and stores a new DRAFT template owned by the actor.
func (s *TemplateService) Create(ctx context.Context, actor types.Actor, req CreateTemplateRequest) (types.Template, error) {
	if err := s.validate.Struct(req); err != nil {
		return types.Template{}, fmt.Errorf("invalid request: %w", err)
	}
	if err := s.patterns.Validate(req.Pattern); err != nil {
		return types.Template{}, err
	}
	if err := s.checkDuplicate(ctx, req.Pattern, ""); err != nil {
		return types.Template{}, err
	}

	now := s.now()
	tpl := types.Template{
		ID:          s.newID(),
		BankName:    req.BankName,
		Pattern:     req.Pattern,
		Kind:        types.MessageKind(req.Kind),
		Status:      types.StatusDraft,
		SampleText:  req.SampleText,
		Description: req.Description,
		MakerID:     actor.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	created, err := s.store.CreateTemplate(ctx, tpl)
	if err != nil {
		return types.Template{}, fmt.Errorf("storing template: %w", err)
	}

	entry := types.AuditEntry{
		ID:             s.newID(),
		TemplateID:     created.ID,
		PreviousStatus: types.StatusDraft,
		NewStatus:      types.StatusDraft,
		Action:         "Created",
		ActorID:        actor.ID,
		CreatedAt:      now,
	}
	if err := s.store.AppendAudit(ctx, entry); err != nil {
		return types.Template{}, fmt.Errorf("recording audit entry: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"template": created.ID,
		"bank":     created.BankName,
		"maker":    actor.ID,
	}).Info("template created")

	return created, nil
}

// Update edits a DRAFT template. Only the owning maker may edit, and the
// new pattern goes through the same validation and duplicate checks as
// creation.
func (s *TemplateService) Update(ctx context.Context, actor types.Actor, id string, req CreateTemplateRequest) (types.Template, error) {
	if err := s.validate.Struct(req); err != nil {
		return types.Template{}, fmt.Errorf("invalid request: %w", err)
	}

	tpl, err := s.store.GetTemplate(ctx, id)
	if err != nil {
		return types.Template{}, err
	}
	if !s.engine.CanEdit(tpl, actor) {
		return types.Template{}, ErrNotEditable
	}
	if err := s.patterns.Validate(req.Pattern); err != nil {
		return types.Template{}, err
	}
	if err := s.checkDuplicate(ctx, req.Pattern, id); err != nil {
		return types.Template{}, err
	}

	tpl.BankName = req.BankName
	tpl.Pattern = req.Pattern
	tpl.Kind = types.MessageKind(req.Kind)
	tpl.SampleText = req.SampleText
	tpl.Description = req.Description
	tpl.UpdatedAt = s.now()

	updated, err := s.store.UpdateTemplate(ctx, tpl)
	if err != nil {
		return types.Template{}, fmt.Errorf("storing template: %w", err)
	}
	return updated, nil
}

// Submit moves a DRAFT template to PENDING_APPROVAL.
func (s *TemplateService) Submit(ctx context.Context, actor types.Actor, id string) (types.Template, error) {
	return s.applyTransition(ctx, id, func(tpl types.Template) (types.Template, types.AuditEntry, error) {
		return s.engine.Submit(tpl, actor)
	})
}

// Approve activates a pending template. The checker must not be the maker.
func (s *TemplateService) Approve(ctx context.Context, actor types.Actor, id, comment string) (types.Template, error) {
	return s.applyTransition(ctx, id, func(tpl types.Template) (types.Template, types.AuditEntry, error) {
		return s.engine.Approve(tpl, actor, comment)
	})
}

// Reject returns a pending template to its maker with a mandatory reason.
func (s *TemplateService) Reject(ctx context.Context, actor types.Actor, id, reason string) (types.Template, error) {
	return s.applyTransition(ctx, id, func(tpl types.Template) (types.Template, types.AuditEntry, error) {
		return s.engine.Reject(tpl, actor, reason)
	})
}

// Deprecate retires an active template.
func (s *TemplateService) Deprecate(ctx context.Context, actor types.Actor, id, comment string) (types.Template, error) {
	return s.applyTransition(ctx, id, func(tpl types.Template) (types.Template, types.AuditEntry, error) {
		return s.engine.Deprecate(tpl, actor, comment)
	})
}

// Reopen moves a REJECTED template back to DRAFT for rework.
func (s *TemplateService) Reopen(ctx context.Context, actor types.Actor, id string) (types.Template, error) {
	return s.applyTransition(ctx, id, func(tpl types.Template) (types.Template, types.AuditEntry, error) {
		return s.engine.Reopen(tpl, actor)
	})
}

func (s *TemplateService) applyTransition(ctx context.Context, id string, apply func(types.Template) (types.Template, types.AuditEntry, error)) (types.Template, error) {
	tpl, err := s.store.GetTemplate(ctx, id)
	if err != nil {
		return types.Template{}, err
	}

	next, entry, err := apply(tpl)
	if err != nil {
		return types.Template{}, err
	}

	updated, err := s.store.UpdateTemplate(ctx, next)
	if err != nil {
		return types.Template{}, fmt.Errorf("storing template: %w", err)
	}
	if err := s.store.AppendAudit(ctx, entry); err != nil {
		return types.Template{}, fmt.Errorf("recording audit entry: %w", err)
	}
	return updated, nil
}

// TestPattern runs a pattern against a sample text without persisting
// anything. A zero Timeout uses the matcher's default deadline.
func (s *TemplateService) TestPattern(ctx context.Context, req TestPatternRequest) (types.ExtractionResult, error) {
	if err := s.validate.Struct(req); err != nil {
		return types.ExtractionResult{}, fmt.Errorf("invalid request: %w", err)
	}
	if req.Timeout > 0 {
		return s.matcher.RunWithTimeout(ctx, req.Pattern, req.Sample, req.Timeout), nil
	}
	return s.matcher.Run(ctx, req.Pattern, req.Sample), nil
}

// CheckDuplicate reports whether an identical pattern is already pending or
// active, optionally ignoring one template id.
func (s *TemplateService) CheckDuplicate(ctx context.Context, patternSrc, excludeID string) (DuplicateReport, error) {
	dup, found, err := s.store.FindDuplicatePattern(ctx, patternSrc, excludeID)
	if err != nil {
		return DuplicateReport{}, fmt.Errorf("checking duplicates: %w", err)
	}
	if !found {
		return DuplicateReport{Message: "no duplicate found"}, nil
	}
	return DuplicateReport{
		Exists:     true,
		TemplateID: dup.ID,
		Status:     dup.Status,
		Message:    fmt.Sprintf("an identical pattern already exists in status %s", dup.Status),
	}, nil
}

func (s *TemplateService) checkDuplicate(ctx context.Context, patternSrc, excludeID string) error {
	dup, found, err := s.store.FindDuplicatePattern(ctx, patternSrc, excludeID)
	if err != nil {
		return fmt.Errorf("checking duplicates: %w", err)
	}
	if found {
		return &DuplicateError{TemplateID: dup.ID, Status: dup.Status}
	}
	return nil
}

// Get retrieves one template by id.
func (s *TemplateService) Get(ctx context.Context, id string) (types.Template, error) {
	return s.store.GetTemplate(ctx, id)
}

// ListByStatus returns templates in the given lifecycle state.
func (s *TemplateService) ListByStatus(ctx context.Context, status types.TemplateStatus) ([]types.Template, error) {
	return s.store.ListTemplatesByStatus(ctx, status)
}

// ListByMaker returns a maker's templates across all states.
func (s *TemplateService) ListByMaker(ctx context.Context, makerID string) ([]types.Template, error) {
	return s.store.ListTemplatesByMaker(ctx, makerID)
}

// ListPending returns the checker work queue.
func (s *TemplateService) ListPending(ctx context.Context) ([]types.Template, error) {
	return s.store.ListTemplatesByStatus(ctx, types.StatusPendingApproval)
}

// ListReviewed returns templates that have been through review.
func (s *TemplateService) ListReviewed(ctx context.Context) ([]types.Template, error) {
	return s.store.ListReviewedTemplates(ctx)
}

// AuditTrail returns a template's audit history, newest first.
func (s *TemplateService) AuditTrail(ctx context.Context, templateID string) ([]types.AuditEntry, error) {
	return s.store.ListAuditByTemplate(ctx, templateID)
}
