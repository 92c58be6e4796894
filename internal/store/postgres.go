package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/juristec/caseintel/internal/db"
	"github.com/juristec/caseintel/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the hottest store operations.
var preparedStatements = map[string]string{
	"insert_audit":         `INSERT INTO audit_log (id, case_number, operation, outcome, detail, duration_ms, raw_size, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
	"get_cached_case":      `SELECT data, raw_xml FROM case_cache WHERE case_number = $1 AND expires_at > now()`,
	"set_cached_case":      `INSERT INTO case_cache (case_number, data, raw_xml, fetched_at, expires_at) VALUES ($1, $2, $3, $4, $5) ON CONFLICT (case_number) DO UPDATE SET data = EXCLUDED.data, raw_xml = EXCLUDED.raw_xml, fetched_at = EXCLUDED.fetched_at, expires_at = EXCLUDED.expires_at`,
	"delete_expired_cases": `DELETE FROM case_cache WHERE expires_at <= now()`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS audit_log (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	case_number TEXT NOT NULL,
	operation   TEXT NOT NULL,
	outcome     TEXT NOT NULL,
	detail      TEXT,
	duration_ms BIGINT NOT NULL DEFAULT 0,
	raw_size    INTEGER NOT NULL DEFAULT 0,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS case_cache (
	case_number TEXT PRIMARY KEY,
	data        JSONB NOT NULL,
	raw_xml     BYTEA,
	fetched_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	expires_at  TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_audit_log_case_number ON audit_log(case_number);
CREATE INDEX IF NOT EXISTS idx_audit_log_created_at ON audit_log(created_at);
CREATE INDEX IF NOT EXISTS idx_case_cache_expires_at ON case_cache(expires_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) RecordAudit(ctx context.Context, entry AuditEntry) error {
	fillAuditDefaults(&entry)
	_, err := s.pool.Exec(ctx,
		`INSERT INTO audit_log (id, case_number, operation, outcome, detail, duration_ms, raw_size, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		entry.ID, entry.CaseNumber, entry.Operation, entry.Outcome, entry.Detail,
		entry.DurationMS, entry.RawSize, entry.CreatedAt,
	)
	return eris.Wrap(err, "postgres: insert audit entry")
}

// RecordAuditBatch flushes entries via the COPY protocol in one round trip.
func (s *PostgresStore) RecordAuditBatch(ctx context.Context, entries []AuditEntry) error {
	if len(entries) == 0 {
		return nil
	}
	rows := make([][]any, len(entries))
	for i, entry := range entries {
		fillAuditDefaults(&entry)
		rows[i] = []any{entry.ID, entry.CaseNumber, entry.Operation, entry.Outcome,
			entry.Detail, entry.DurationMS, entry.RawSize, entry.CreatedAt}
	}
	_, err := db.CopyFrom(ctx, s.pool, "audit_log",
		[]string{"id", "case_number", "operation", "outcome", "detail", "duration_ms", "raw_size", "created_at"},
		rows,
	)
	return eris.Wrap(err, "postgres: audit batch")
}

func (s *PostgresStore) ListAudit(ctx context.Context, caseNumber string, limit int) ([]AuditEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, case_number, operation, outcome, COALESCE(detail, ''), duration_ms, raw_size, created_at
		 FROM audit_log WHERE case_number = $1 ORDER BY created_at DESC LIMIT $2`,
		caseNumber, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list audit")
	}
	defer rows.Close()

	var entries []AuditEntry
	for rows.Next() {
		var e AuditEntry
		if err := rows.Scan(&e.ID, &e.CaseNumber, &e.Operation, &e.Outcome, &e.Detail,
			&e.DurationMS, &e.RawSize, &e.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan audit entry")
		}
		entries = append(entries, e)
	}
	return entries, eris.Wrap(rows.Err(), "postgres: list audit iterate")
}

func (s *PostgresStore) GetCachedCase(ctx context.Context, caseNumber string) (*model.Case, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT data, raw_xml FROM case_cache WHERE case_number = $1 AND expires_at > now()`,
		caseNumber,
	)

	var data []byte
	var rawXML []byte
	err := row.Scan(&data, &rawXML)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get cached case")
	}

	var c model.Case
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal cached case")
	}
	c.RawXML = rawXML
	return &c, nil
}

func (s *PostgresStore) SetCachedCase(ctx context.Context, c *model.Case, ttl time.Duration) error {
	data, err := json.Marshal(c)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal case")
	}
	now := time.Now().UTC()

	_, err = s.pool.Exec(ctx,
		`INSERT INTO case_cache (case_number, data, raw_xml, fetched_at, expires_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (case_number) DO UPDATE SET
		 data = EXCLUDED.data, raw_xml = EXCLUDED.raw_xml,
		 fetched_at = EXCLUDED.fetched_at, expires_at = EXCLUDED.expires_at`,
		c.Number, data, c.RawXML, now, now.Add(ttl),
	)
	return eris.Wrap(err, "postgres: set cached case")
}

func (s *PostgresStore) DeleteExpiredCases(ctx context.Context) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM case_cache WHERE expires_at <= now()`)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: delete expired cases")
	}
	return int(tag.RowsAffected()), nil
}

var _ Store = (*PostgresStore)(nil)
