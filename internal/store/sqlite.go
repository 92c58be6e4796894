package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/juristec/caseintel/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS audit_log (
	id          TEXT PRIMARY KEY,
	case_number TEXT NOT NULL,
	operation   TEXT NOT NULL,
	outcome     TEXT NOT NULL,
	detail      TEXT,
	duration_ms INTEGER NOT NULL DEFAULT 0,
	raw_size    INTEGER NOT NULL DEFAULT 0,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS case_cache (
	case_number TEXT PRIMARY KEY,
	data        TEXT NOT NULL,
	raw_xml     BLOB,
	fetched_at  DATETIME NOT NULL,
	expires_at  DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_audit_log_case_number ON audit_log(case_number);
CREATE INDEX IF NOT EXISTS idx_audit_log_created_at ON audit_log(created_at);
CREATE INDEX IF NOT EXISTS idx_case_cache_expires_at ON case_cache(expires_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) RecordAudit(ctx context.Context, entry AuditEntry) error {
	fillAuditDefaults(&entry)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_log (id, case_number, operation, outcome, detail, duration_ms, raw_size, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.CaseNumber, entry.Operation, entry.Outcome, entry.Detail,
		entry.DurationMS, entry.RawSize, entry.CreatedAt,
	)
	return eris.Wrap(err, "sqlite: insert audit entry")
}

func (s *SQLiteStore) RecordAuditBatch(ctx context.Context, entries []AuditEntry) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin audit batch")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO audit_log (id, case_number, operation, outcome, detail, duration_ms, raw_size, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare audit batch")
	}
	defer stmt.Close()

	for _, entry := range entries {
		fillAuditDefaults(&entry)
		if _, err := stmt.ExecContext(ctx,
			entry.ID, entry.CaseNumber, entry.Operation, entry.Outcome, entry.Detail,
			entry.DurationMS, entry.RawSize, entry.CreatedAt,
		); err != nil {
			return eris.Wrap(err, "sqlite: insert audit batch entry")
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit audit batch")
}

func (s *SQLiteStore) ListAudit(ctx context.Context, caseNumber string, limit int) ([]AuditEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, case_number, operation, outcome, detail, duration_ms, raw_size, created_at
		 FROM audit_log WHERE case_number = ? ORDER BY created_at DESC LIMIT ?`,
		caseNumber, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list audit")
	}
	defer rows.Close()

	var entries []AuditEntry
	for rows.Next() {
		var e AuditEntry
		var detail sql.NullString
		if err := rows.Scan(&e.ID, &e.CaseNumber, &e.Operation, &e.Outcome, &detail,
			&e.DurationMS, &e.RawSize, &e.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan audit entry")
		}
		e.Detail = detail.String
		entries = append(entries, e)
	}
	return entries, eris.Wrap(rows.Err(), "sqlite: list audit iterate")
}

func (s *SQLiteStore) GetCachedCase(ctx context.Context, caseNumber string) (*model.Case, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT data, raw_xml FROM case_cache
		 WHERE case_number = ? AND expires_at > datetime('now')`,
		caseNumber,
	)

	var data string
	var rawXML []byte
	err := row.Scan(&data, &rawXML)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get cached case")
	}

	var c model.Case
	if err := json.Unmarshal([]byte(data), &c); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal cached case")
	}
	c.RawXML = rawXML
	return &c, nil
}

func (s *SQLiteStore) SetCachedCase(ctx context.Context, c *model.Case, ttl time.Duration) error {
	data, err := json.Marshal(c)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal case")
	}
	now := time.Now().UTC()

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO case_cache (case_number, data, raw_xml, fetched_at, expires_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (case_number) DO UPDATE SET
		 data = excluded.data, raw_xml = excluded.raw_xml,
		 fetched_at = excluded.fetched_at, expires_at = excluded.expires_at`,
		c.Number, string(data), c.RawXML, now, now.Add(ttl),
	)
	return eris.Wrap(err, "sqlite: set cached case")
}

func (s *SQLiteStore) DeleteExpiredCases(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM case_cache WHERE expires_at <= datetime('now')`,
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete expired cases")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: rows affected")
}

func fillAuditDefaults(entry *AuditEntry) {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
}
