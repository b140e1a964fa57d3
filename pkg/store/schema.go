package store

import (
	"database/sql"
	"fmt"
)

// SchemaVersion is the current database schema version.
const SchemaVersion = 3

// CreateSchema creates the database schema if it doesn't exist. The same DDL
// runs against SQLite and PostgreSQL, so column types stay on the common
// subset (TEXT, BIGINT).
func CreateSchema(db *sql.DB) error {
	if err := createSchemaVersionTable(db); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	if err := createTemplatesTable(db); err != nil {
		return fmt.Errorf("creating templates table: %w", err)
	}

	if err := createAuditTable(db); err != nil {
		return fmt.Errorf("creating audit_log table: %w", err)
	}

	if err := createMessageLogsTable(db); err != nil {
		return fmt.Errorf("creating message_logs table: %w", err)
	}

	if err := createTransactionsTable(db); err != nil {
		return fmt.Errorf("creating transactions table: %w", err)
	}

	return nil
}

func createSchemaVersionTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version BIGINT NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	// Insert version if table is empty
	var count int
	err = db.QueryRow("SELECT COUNT(*) FROM schema_version").Scan(&count)
	if err != nil {
		return err
	}

	if count == 0 {
		_, err = db.Exec("INSERT INTO schema_version (version) VALUES (3)")
		return err
	}

	return nil
}

func createTemplatesTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS templates (
			id TEXT PRIMARY KEY NOT NULL,
			bank_name TEXT NOT NULL,
			pattern TEXT NOT NULL,
			kind TEXT NOT NULL,
			status TEXT NOT NULL,
			sample_text TEXT,
			description TEXT,
			maker_id TEXT NOT NULL,
			checker_id TEXT,
			approved_at TEXT,
			deprecated_at TEXT,
			rejection_reason TEXT,
			version BIGINT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_templates_status ON templates(status)
	`)
	return err
}

func createAuditTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS audit_log (
			id TEXT PRIMARY KEY NOT NULL,
			template_id TEXT NOT NULL REFERENCES templates(id),
			previous_status TEXT NOT NULL,
			new_status TEXT NOT NULL,
			action TEXT NOT NULL,
			comment TEXT,
			actor_id TEXT NOT NULL,
			created_at TEXT NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_audit_template_id ON audit_log(template_id)
	`)
	return err
}

func createMessageLogsTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS message_logs (
			id TEXT PRIMARY KEY NOT NULL,
			text TEXT NOT NULL,
			sender TEXT,
			status TEXT NOT NULL,
			template_id TEXT,
			uploader_id TEXT NOT NULL,
			err_message TEXT,
			created_at TEXT NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_message_logs_uploader ON message_logs(uploader_id)
	`)
	return err
}

func createTransactionsTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS transactions (
			id TEXT PRIMARY KEY NOT NULL,
			message_log_id TEXT NOT NULL REFERENCES message_logs(id),
			user_id TEXT NOT NULL,
			template_id TEXT NOT NULL,
			bank_name TEXT,
			amount TEXT,
			balance TEXT,
			kind TEXT NOT NULL,
			account_id TEXT,
			merchant TEXT,
			mode TEXT,
			txn_date TEXT NOT NULL,
			reference TEXT,
			extracted_json TEXT,
			created_at TEXT NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_transactions_user ON transactions(user_id)
	`)
	return err
}
