package types

import "time"

// TemplateStatus is the lifecycle state of a template.
type TemplateStatus string

const (
	StatusDraft           TemplateStatus = "DRAFT"
	StatusPendingApproval TemplateStatus = "PENDING_APPROVAL"
	StatusActive          TemplateStatus = "ACTIVE"
	StatusRejected        TemplateStatus = "REJECTED"
	StatusDeprecated      TemplateStatus = "DEPRECATED"
)

// CanTransitionTo reports whether the lifecycle allows moving to next.
// DEPRECATED is terminal.
func (s TemplateStatus) CanTransitionTo(next TemplateStatus) bool {
	switch s {
	case StatusDraft:
		return next == StatusPendingApproval || next == StatusDraft
	case StatusPendingApproval:
		return next == StatusActive || next == StatusRejected
	case StatusActive:
		return next == StatusDeprecated
	case StatusRejected:
		return next == StatusDraft
	default:
		return false
	}
}

// MessageKind classifies the bank message a template targets.
type MessageKind string

const (
	KindDebit  MessageKind = "DEBIT"
	KindCredit MessageKind = "CREDIT"
	KindBill   MessageKind = "BILL"
)

// Role of an actor in the maker-checker workflow.
type Role string

const (
	RoleMaker   Role = "MAKER"
	RoleChecker Role = "CHECKER"
	RoleUser    Role = "USER"
)

// Actor is the identity performing an operation.
type Actor struct {
	ID       string
	Username string
	Role     Role
}

// Template is an extraction pattern plus lifecycle metadata.
// Inside the engine templates are value snapshots: transitions produce a new
// copy and the store performs the version-checked write.
type Template struct {
	ID              string
	BankName        string
	Pattern         string
	Kind            MessageKind
	Status          TemplateStatus
	SampleText      string
	Description     string
	MakerID         string
	CheckerID       string // set when approved/rejected/deprecated
	ApprovedAt      *time.Time
	DeprecatedAt    *time.Time
	RejectionReason string
	Version         int64 // optimistic lock counter, maintained by the store
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
