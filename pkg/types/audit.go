package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// AuditEntry records one lifecycle transition. Append-only: the workflow
// engine emits exactly one entry per successful transition and hands it to
// the store together with the updated template snapshot.
type AuditEntry struct {
	ID             string
	TemplateID     string
	PreviousStatus TemplateStatus
	NewStatus      TemplateStatus
	Action         string
	Comment        string
	ActorID        string
	CreatedAt      time.Time
}

// MessageLog records one raw inbound message and how its parse attempt went.
type MessageLog struct {
	ID         string
	Text       string
	Sender     string
	Status     ParseStatus
	TemplateID string
	UploaderID string
	ErrMessage string
	CreatedAt  time.Time
}

// ParsedTransaction is the persisted result of a successful or partial parse.
type ParsedTransaction struct {
	ID           string
	MessageLogID string
	UserID       string
	TemplateID   string
	BankName     string
	Amount       *decimal.Decimal
	Balance      *decimal.Decimal
	Kind         TransactionKind
	AccountID    string
	Merchant     string
	Mode         string
	Date         time.Time
	Reference    string
	Extracted    map[string]string
	CreatedAt    time.Time
}
