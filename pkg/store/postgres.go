package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/regexflow/regexflow/pkg/types"
)

const pgTemplateColumns = `id, bank_name, pattern, kind, status, sample_text, description,
	maker_id, checker_id, approved_at, deprecated_at, rejection_reason,
	version, created_at, updated_at`

// PostgresStore implements Store using PostgreSQL via pgx.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a PostgreSQL-based store and runs schema migration.
func NewPostgres(ctx context.Context, url string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}

	// Schema DDL is shared with the SQLite backend, which speaks
	// database/sql, so run it through the stdlib adapter.
	db := stdlib.OpenDBFromPool(pool)
	if err := CreateSchema(db); err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	if err := db.Close(); err != nil {
		pool.Close()
		return nil, fmt.Errorf("closing migration connection: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) CreateTemplate(ctx context.Context, t types.Template) (types.Template, error) {
	t.Version = 1
	_, err := s.pool.Exec(ctx, `
		INSERT INTO templates (`+pgTemplateColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`,
		t.ID, t.BankName, t.Pattern, string(t.Kind), string(t.Status),
		t.SampleText, t.Description, t.MakerID, t.CheckerID,
		encodeTimePtr(t.ApprovedAt), encodeTimePtr(t.DeprecatedAt),
		t.RejectionReason, t.Version, encodeTime(t.CreatedAt), encodeTime(t.UpdatedAt),
	)
	if err != nil {
		return types.Template{}, fmt.Errorf("inserting template: %w", err)
	}
	return t, nil
}

func (s *PostgresStore) UpdateTemplate(ctx context.Context, t types.Template) (types.Template, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE templates
		SET bank_name = $1, pattern = $2, kind = $3, status = $4, sample_text = $5,
			description = $6, checker_id = $7, approved_at = $8, deprecated_at = $9,
			rejection_reason = $10, version = version + 1, updated_at = $11
		WHERE id = $12 AND version = $13
	`,
		t.BankName, t.Pattern, string(t.Kind), string(t.Status), t.SampleText,
		t.Description, t.CheckerID, encodeTimePtr(t.ApprovedAt), encodeTimePtr(t.DeprecatedAt),
		t.RejectionReason, encodeTime(t.UpdatedAt),
		t.ID, t.Version,
	)
	if err != nil {
		return types.Template{}, fmt.Errorf("updating template: %w", err)
	}

	if tag.RowsAffected() == 0 {
		if _, err := s.GetTemplate(ctx, t.ID); errors.Is(err, ErrNotFound) {
			return types.Template{}, ErrNotFound
		}
		return types.Template{}, ErrVersionConflict
	}

	t.Version++
	return t, nil
}

func (s *PostgresStore) GetTemplate(ctx context.Context, id string) (types.Template, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+pgTemplateColumns+` FROM templates WHERE id = $1
	`, id)
	t, err := scanTemplate(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return types.Template{}, ErrNotFound
	}
	return t, err
}

func (s *PostgresStore) ListTemplatesByStatus(ctx context.Context, status types.TemplateStatus) ([]types.Template, error) {
	return s.queryTemplates(ctx, `
		SELECT `+pgTemplateColumns+` FROM templates WHERE status = $1 ORDER BY created_at, id
	`, string(status))
}

func (s *PostgresStore) ListTemplatesByMaker(ctx context.Context, makerID string) ([]types.Template, error) {
	return s.queryTemplates(ctx, `
		SELECT `+pgTemplateColumns+` FROM templates WHERE maker_id = $1 ORDER BY created_at, id
	`, makerID)
}

func (s *PostgresStore) ListReviewedTemplates(ctx context.Context) ([]types.Template, error) {
	return s.queryTemplates(ctx, `
		SELECT `+pgTemplateColumns+` FROM templates
		WHERE status IN ($1, $2, $3) ORDER BY created_at, id
	`, string(types.StatusActive), string(types.StatusRejected), string(types.StatusDeprecated))
}

func (s *PostgresStore) FindDuplicatePattern(ctx context.Context, pattern, excludeID string) (types.Template, bool, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+pgTemplateColumns+` FROM templates
		WHERE pattern = $1 AND id != $2 AND status IN ($3, $4)
		ORDER BY created_at, id LIMIT 1
	`, pattern, excludeID, string(types.StatusPendingApproval), string(types.StatusActive))
	t, err := scanTemplate(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return types.Template{}, false, nil
	}
	if err != nil {
		return types.Template{}, false, err
	}
	return t, true, nil
}

func (s *PostgresStore) AppendAudit(ctx context.Context, e types.AuditEntry) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO audit_log (id, template_id, previous_status, new_status, action, comment, actor_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		e.ID, e.TemplateID, string(e.PreviousStatus), string(e.NewStatus),
		e.Action, e.Comment, e.ActorID, encodeTime(e.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting audit entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListAuditByTemplate(ctx context.Context, templateID string) ([]types.AuditEntry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, template_id, previous_status, new_status, action, comment, actor_id, created_at
		FROM audit_log WHERE template_id = $1 ORDER BY created_at DESC, id DESC
	`, templateID)
	if err != nil {
		return nil, fmt.Errorf("querying audit entries: %w", err)
	}
	defer rows.Close()

	var entries []types.AuditEntry
	for rows.Next() {
		var e types.AuditEntry
		var prev, next, createdAt string
		if err := rows.Scan(&e.ID, &e.TemplateID, &prev, &next, &e.Action, &e.Comment, &e.ActorID, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning audit entry: %w", err)
		}
		e.PreviousStatus = types.TemplateStatus(prev)
		e.NewStatus = types.TemplateStatus(next)
		if e.CreatedAt, err = decodeTime(createdAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *PostgresStore) SaveMessageLog(ctx context.Context, m types.MessageLog) (types.MessageLog, error) {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO message_logs (id, text, sender, status, template_id, uploader_id, err_message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			status = excluded.status, template_id = excluded.template_id, err_message = excluded.err_message
	`,
		m.ID, m.Text, m.Sender, string(m.Status), m.TemplateID, m.UploaderID,
		m.ErrMessage, encodeTime(m.CreatedAt),
	)
	if err != nil {
		return types.MessageLog{}, fmt.Errorf("inserting message log: %w", err)
	}
	return m, nil
}

func (s *PostgresStore) GetMessageLog(ctx context.Context, id string) (types.MessageLog, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, text, sender, status, template_id, uploader_id, err_message, created_at
		FROM message_logs WHERE id = $1
	`, id)
	m, err := scanMessageLog(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return types.MessageLog{}, ErrNotFound
	}
	return m, err
}

func (s *PostgresStore) FindMessageLog(ctx context.Context, uploaderID, text string) (types.MessageLog, bool, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, text, sender, status, template_id, uploader_id, err_message, created_at
		FROM message_logs WHERE uploader_id = $1 AND text = $2
		ORDER BY created_at, id LIMIT 1
	`, uploaderID, text)
	m, err := scanMessageLog(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return types.MessageLog{}, false, nil
	}
	if err != nil {
		return types.MessageLog{}, false, err
	}
	return m, true, nil
}

func (s *PostgresStore) ListUnparsedMessages(ctx context.Context) ([]types.MessageLog, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, text, sender, status, template_id, uploader_id, err_message, created_at
		FROM message_logs WHERE status = $1 ORDER BY created_at, id
	`, string(types.ParseNoMatch))
	if err != nil {
		return nil, fmt.Errorf("querying message logs: %w", err)
	}
	defer rows.Close()

	var out []types.MessageLog
	for rows.Next() {
		m, err := scanMessageLog(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *PostgresStore) DeleteMessageLog(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, "DELETE FROM message_logs WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("deleting message log: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) SaveTransaction(ctx context.Context, txn types.ParsedTransaction) (types.ParsedTransaction, error) {
	extractedJSON, err := json.Marshal(txn.Extracted)
	if err != nil {
		return types.ParsedTransaction{}, fmt.Errorf("marshaling extracted fields: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO transactions (id, message_log_id, user_id, template_id, bank_name,
			amount, balance, kind, account_id, merchant, mode, txn_date, reference,
			extracted_json, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`,
		txn.ID, txn.MessageLogID, txn.UserID, txn.TemplateID, txn.BankName,
		encodeDecimal(txn.Amount), encodeDecimal(txn.Balance), string(txn.Kind),
		txn.AccountID, txn.Merchant, txn.Mode, encodeTime(txn.Date), txn.Reference,
		string(extractedJSON), encodeTime(txn.CreatedAt),
	)
	if err != nil {
		return types.ParsedTransaction{}, fmt.Errorf("inserting transaction: %w", err)
	}
	return txn, nil
}

func (s *PostgresStore) FindTransactionByMessage(ctx context.Context, messageLogID string) (types.ParsedTransaction, bool, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, message_log_id, user_id, template_id, bank_name, amount, balance,
			kind, account_id, merchant, mode, txn_date, reference, extracted_json, created_at
		FROM transactions WHERE message_log_id = $1 LIMIT 1
	`, messageLogID)
	txn, err := scanTransaction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return types.ParsedTransaction{}, false, nil
	}
	if err != nil {
		return types.ParsedTransaction{}, false, err
	}
	return txn, true, nil
}

func (s *PostgresStore) ListTransactionsByUser(ctx context.Context, userID string) ([]types.ParsedTransaction, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, message_log_id, user_id, template_id, bank_name, amount, balance,
			kind, account_id, merchant, mode, txn_date, reference, extracted_json, created_at
		FROM transactions WHERE user_id = $1 ORDER BY created_at DESC, id DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying transactions: %w", err)
	}
	defer rows.Close()

	var out []types.ParsedTransaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, txn)
	}
	return out, rows.Err()
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) queryTemplates(ctx context.Context, query string, args ...any) ([]types.Template, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying templates: %w", err)
	}
	defer rows.Close()

	var out []types.Template
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
