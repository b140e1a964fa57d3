package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/regexflow/regexflow/pkg/types"
	_ "modernc.org/sqlite"
)

const templateColumns = `id, bank_name, pattern, kind, status, sample_text, description,
	maker_id, checker_id, approved_at, deprecated_at, rejection_reason,
	version, created_at, updated_at`

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a SQLite-based store.
// Use ":memory:" for an in-memory database (useful for testing).
func NewSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// The modernc driver is not safe for concurrent writers on one file.
	db.SetMaxOpenConns(1)

	if err := CreateSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) CreateTemplate(ctx context.Context, t types.Template) (types.Template, error) {
	t.Version = 1
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO templates (`+templateColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
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

func (s *SQLiteStore) UpdateTemplate(ctx context.Context, t types.Template) (types.Template, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE templates
		SET bank_name = ?, pattern = ?, kind = ?, status = ?, sample_text = ?,
			description = ?, checker_id = ?, approved_at = ?, deprecated_at = ?,
			rejection_reason = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?
	`,
		t.BankName, t.Pattern, string(t.Kind), string(t.Status), t.SampleText,
		t.Description, t.CheckerID, encodeTimePtr(t.ApprovedAt), encodeTimePtr(t.DeprecatedAt),
		t.RejectionReason, encodeTime(t.UpdatedAt),
		t.ID, t.Version,
	)
	if err != nil {
		return types.Template{}, fmt.Errorf("updating template: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return types.Template{}, fmt.Errorf("checking update result: %w", err)
	}
	if n == 0 {
		// Distinguish a stale version from a missing row.
		if _, err := s.GetTemplate(ctx, t.ID); errors.Is(err, ErrNotFound) {
			return types.Template{}, ErrNotFound
		}
		return types.Template{}, ErrVersionConflict
	}

	t.Version++
	return t, nil
}

func (s *SQLiteStore) GetTemplate(ctx context.Context, id string) (types.Template, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+templateColumns+` FROM templates WHERE id = ?
	`, id)
	t, err := scanTemplate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Template{}, ErrNotFound
	}
	return t, err
}

func (s *SQLiteStore) ListTemplatesByStatus(ctx context.Context, status types.TemplateStatus) ([]types.Template, error) {
	return s.queryTemplates(ctx, `
		SELECT `+templateColumns+` FROM templates WHERE status = ? ORDER BY created_at, id
	`, string(status))
}

func (s *SQLiteStore) ListTemplatesByMaker(ctx context.Context, makerID string) ([]types.Template, error) {
	return s.queryTemplates(ctx, `
		SELECT `+templateColumns+` FROM templates WHERE maker_id = ? ORDER BY created_at, id
	`, makerID)
}

func (s *SQLiteStore) ListReviewedTemplates(ctx context.Context) ([]types.Template, error) {
	return s.queryTemplates(ctx, `
		SELECT `+templateColumns+` FROM templates
		WHERE status IN (?, ?, ?) ORDER BY created_at, id
	`, string(types.StatusActive), string(types.StatusRejected), string(types.StatusDeprecated))
}

func (s *SQLiteStore) FindDuplicatePattern(ctx context.Context, pattern, excludeID string) (types.Template, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+templateColumns+` FROM templates
		WHERE pattern = ? AND id != ? AND status IN (?, ?)
		ORDER BY created_at, id LIMIT 1
	`, pattern, excludeID, string(types.StatusPendingApproval), string(types.StatusActive))
	t, err := scanTemplate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Template{}, false, nil
	}
	if err != nil {
		return types.Template{}, false, err
	}
	return t, true, nil
}

func (s *SQLiteStore) AppendAudit(ctx context.Context, e types.AuditEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_log (id, template_id, previous_status, new_status, action, comment, actor_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		e.ID, e.TemplateID, string(e.PreviousStatus), string(e.NewStatus),
		e.Action, e.Comment, e.ActorID, encodeTime(e.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting audit entry: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListAuditByTemplate(ctx context.Context, templateID string) ([]types.AuditEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, template_id, previous_status, new_status, action, comment, actor_id, created_at
		FROM audit_log WHERE template_id = ? ORDER BY created_at DESC, id DESC
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

func (s *SQLiteStore) SaveMessageLog(ctx context.Context, m types.MessageLog) (types.MessageLog, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO message_logs (id, text, sender, status, template_id, uploader_id, err_message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
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

func (s *SQLiteStore) GetMessageLog(ctx context.Context, id string) (types.MessageLog, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, text, sender, status, template_id, uploader_id, err_message, created_at
		FROM message_logs WHERE id = ?
	`, id)
	m, err := scanMessageLog(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.MessageLog{}, ErrNotFound
	}
	return m, err
}

func (s *SQLiteStore) FindMessageLog(ctx context.Context, uploaderID, text string) (types.MessageLog, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, text, sender, status, template_id, uploader_id, err_message, created_at
		FROM message_logs WHERE uploader_id = ? AND text = ?
		ORDER BY created_at, id LIMIT 1
	`, uploaderID, text)
	m, err := scanMessageLog(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.MessageLog{}, false, nil
	}
	if err != nil {
		return types.MessageLog{}, false, err
	}
	return m, true, nil
}

func (s *SQLiteStore) ListUnparsedMessages(ctx context.Context) ([]types.MessageLog, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, text, sender, status, template_id, uploader_id, err_message, created_at
		FROM message_logs WHERE status = ? ORDER BY created_at, id
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

func (s *SQLiteStore) DeleteMessageLog(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM message_logs WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting message log: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking delete result: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) SaveTransaction(ctx context.Context, txn types.ParsedTransaction) (types.ParsedTransaction, error) {
	extractedJSON, err := json.Marshal(txn.Extracted)
	if err != nil {
		return types.ParsedTransaction{}, fmt.Errorf("marshaling extracted fields: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO transactions (id, message_log_id, user_id, template_id, bank_name,
			amount, balance, kind, account_id, merchant, mode, txn_date, reference,
			extracted_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
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

func (s *SQLiteStore) FindTransactionByMessage(ctx context.Context, messageLogID string) (types.ParsedTransaction, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, message_log_id, user_id, template_id, bank_name, amount, balance,
			kind, account_id, merchant, mode, txn_date, reference, extracted_json, created_at
		FROM transactions WHERE message_log_id = ? LIMIT 1
	`, messageLogID)
	txn, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.ParsedTransaction{}, false, nil
	}
	if err != nil {
		return types.ParsedTransaction{}, false, err
	}
	return txn, true, nil
}

func (s *SQLiteStore) ListTransactionsByUser(ctx context.Context, userID string) ([]types.ParsedTransaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, message_log_id, user_id, template_id, bank_name, amount, balance,
			kind, account_id, merchant, mode, txn_date, reference, extracted_json, created_at
		FROM transactions WHERE user_id = ? ORDER BY created_at DESC, id DESC
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

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) queryTemplates(ctx context.Context, query string, args ...any) ([]types.Template, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
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

// scanner is satisfied by *sql.Row, *sql.Rows, and pgx rows alike.
type scanner interface {
	Scan(dest ...any) error
}

func scanTemplate(row scanner) (types.Template, error) {
	var t types.Template
	var kind, status, createdAt, updatedAt string
	var approvedAt, deprecatedAt *string

	err := row.Scan(
		&t.ID, &t.BankName, &t.Pattern, &kind, &status, &t.SampleText, &t.Description,
		&t.MakerID, &t.CheckerID, &approvedAt, &deprecatedAt, &t.RejectionReason,
		&t.Version, &createdAt, &updatedAt,
	)
	if err != nil {
		return types.Template{}, err
	}

	t.Kind = types.MessageKind(kind)
	t.Status = types.TemplateStatus(status)
	if t.ApprovedAt, err = decodeTimePtr(approvedAt); err != nil {
		return types.Template{}, err
	}
	if t.DeprecatedAt, err = decodeTimePtr(deprecatedAt); err != nil {
		return types.Template{}, err
	}
	if t.CreatedAt, err = decodeTime(createdAt); err != nil {
		return types.Template{}, err
	}
	if t.UpdatedAt, err = decodeTime(updatedAt); err != nil {
		return types.Template{}, err
	}
	return t, nil
}

func scanMessageLog(row scanner) (types.MessageLog, error) {
	var m types.MessageLog
	var status, createdAt string

	err := row.Scan(&m.ID, &m.Text, &m.Sender, &status, &m.TemplateID, &m.UploaderID, &m.ErrMessage, &createdAt)
	if err != nil {
		return types.MessageLog{}, err
	}

	m.Status = types.ParseStatus(status)
	if m.CreatedAt, err = decodeTime(createdAt); err != nil {
		return types.MessageLog{}, err
	}
	return m, nil
}

func scanTransaction(row scanner) (types.ParsedTransaction, error) {
	var txn types.ParsedTransaction
	var kind, txnDate, createdAt, extractedJSON string
	var amount, balance *string

	err := row.Scan(
		&txn.ID, &txn.MessageLogID, &txn.UserID, &txn.TemplateID, &txn.BankName,
		&amount, &balance, &kind, &txn.AccountID, &txn.Merchant, &txn.Mode,
		&txnDate, &txn.Reference, &extractedJSON, &createdAt,
	)
	if err != nil {
		return types.ParsedTransaction{}, err
	}

	txn.Kind = types.TransactionKind(kind)
	if txn.Amount, err = decodeDecimal(amount); err != nil {
		return types.ParsedTransaction{}, err
	}
	if txn.Balance, err = decodeDecimal(balance); err != nil {
		return types.ParsedTransaction{}, err
	}
	if txn.Date, err = decodeTime(txnDate); err != nil {
		return types.ParsedTransaction{}, err
	}
	if txn.CreatedAt, err = decodeTime(createdAt); err != nil {
		return types.ParsedTransaction{}, err
	}
	if err := json.Unmarshal([]byte(extractedJSON), &txn.Extracted); err != nil {
		return types.ParsedTransaction{}, fmt.Errorf("unmarshaling extracted fields: %w", err)
	}
	return txn, nil
}
