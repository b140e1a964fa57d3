// Package store persists templates, audit history, raw message logs, and
// parsed transactions. The engine treats it as a collaborator: it hands over
// value snapshots and expects optimistic-version conflicts to be surfaced,
// never silently overwritten.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/regexflow/regexflow/pkg/types"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrVersionConflict is returned when a template write loses an optimistic
// lock race. The caller surfaces it as a conflict; retry policy belongs to
// the boundary layer.
var ErrVersionConflict = errors.New("template was modified concurrently")

// Store provides persistence for the template lifecycle and parsing flows.
// Implementations: in-memory, SQLite, PostgreSQL.
type Store interface {
	// CreateTemplate stores a new template at version 1.
	CreateTemplate(ctx context.Context, t types.Template) (types.Template, error)

	// UpdateTemplate writes a template snapshot. The snapshot's version must
	// equal the stored version; on success the stored version increments.
	// Returns ErrVersionConflict on a lost update, ErrNotFound if absent.
	UpdateTemplate(ctx context.Context, t types.Template) (types.Template, error)

	// GetTemplate retrieves a template by id.
	GetTemplate(ctx context.Context, id string) (types.Template, error)

	// ListTemplatesByStatus returns templates with the given status in
	// creation order.
	ListTemplatesByStatus(ctx context.Context, status types.TemplateStatus) ([]types.Template, error)

	// ListTemplatesByMaker returns templates created by the given maker.
	ListTemplatesByMaker(ctx context.Context, makerID string) ([]types.Template, error)

	// ListReviewedTemplates returns templates that have been through review
	// (ACTIVE, REJECTED, or DEPRECATED).
	ListReviewedTemplates(ctx context.Context) ([]types.Template, error)

	// FindDuplicatePattern looks for an identical pattern among
	// PENDING_APPROVAL and ACTIVE templates, optionally excluding one id.
	FindDuplicatePattern(ctx context.Context, pattern, excludeID string) (types.Template, bool, error)

	// AppendAudit stores one audit entry. The audit table is append-only.
	AppendAudit(ctx context.Context, e types.AuditEntry) error

	// ListAuditByTemplate returns a template's audit trail, newest first.
	ListAuditByTemplate(ctx context.Context, templateID string) ([]types.AuditEntry, error)

	// SaveMessageLog records a raw inbound message and its parse outcome.
	SaveMessageLog(ctx context.Context, m types.MessageLog) (types.MessageLog, error)

	// GetMessageLog retrieves a message log by id.
	GetMessageLog(ctx context.Context, id string) (types.MessageLog, error)

	// FindMessageLog locates a previously logged message by uploader and
	// exact text, for duplicate-upload short-circuiting.
	FindMessageLog(ctx context.Context, uploaderID, text string) (types.MessageLog, bool, error)

	// ListUnparsedMessages returns all NO_MATCH logs across uploaders.
	ListUnparsedMessages(ctx context.Context) ([]types.MessageLog, error)

	// DeleteMessageLog removes a message log by id.
	DeleteMessageLog(ctx context.Context, id string) error

	// SaveTransaction stores a parsed transaction.
	SaveTransaction(ctx context.Context, txn types.ParsedTransaction) (types.ParsedTransaction, error)

	// FindTransactionByMessage returns the transaction derived from a
	// message log, if any.
	FindTransactionByMessage(ctx context.Context, messageLogID string) (types.ParsedTransaction, bool, error)

	// ListTransactionsByUser returns a user's transactions, newest first.
	ListTransactionsByUser(ctx context.Context, userID string) ([]types.ParsedTransaction, error)

	// Close releases the underlying connection.
	Close() error
}

// Config selects and configures a backend.
type Config struct {
	// Path is ":memory:", a SQLite file path, or a postgres:// URL.
	Path string
}

// New creates a Store for the configured backend.
func New(cfg Config) (Store, error) {
	switch {
	case cfg.Path == "":
		return nil, fmt.Errorf("path is required")
	case cfg.Path == ":memory:":
		return NewMemory(), nil
	case strings.HasPrefix(cfg.Path, "postgres://"), strings.HasPrefix(cfg.Path, "postgresql://"):
		return NewPostgres(context.Background(), cfg.Path)
	default:
		return NewSQLite(cfg.Path)
	}
}

// reviewedStatuses are the post-review lifecycle states.
var reviewedStatuses = []types.TemplateStatus{
	types.StatusActive, types.StatusRejected, types.StatusDeprecated,
}

// duplicateStatuses are the states considered for duplicate-pattern checks.
var duplicateStatuses = []types.TemplateStatus{
	types.StatusPendingApproval, types.StatusActive,
}
