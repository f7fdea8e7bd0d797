package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using modernc.org/sqlite (pure-Go, no CGO),
// grounded on internal/store/sqlite.go's NewSQLite/Migrate/pragma setup.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA busy_timeout=5000;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite pragmas: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS usage_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			provider TEXT NOT NULL,
			model TEXT NOT NULL,
			tokens_in INTEGER NOT NULL DEFAULT 0,
			tokens_out INTEGER NOT NULL DEFAULT 0,
			chars_in INTEGER NOT NULL DEFAULT 0,
			chars_out INTEGER NOT NULL DEFAULT 0,
			cost_usd REAL NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_usage_history_timestamp ON usage_history(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_usage_history_model ON usage_history(model)`,
		`CREATE TABLE IF NOT EXISTS tm_snapshots (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			entries INTEGER NOT NULL DEFAULT 0,
			hits INTEGER NOT NULL DEFAULT 0,
			misses INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tm_snapshots_timestamp ON tm_snapshots(timestamp)`,
		`CREATE TABLE IF NOT EXISTS permission_audit (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			pattern TEXT NOT NULL,
			granted BOOLEAN NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_permission_audit_timestamp ON permission_audit(timestamp)`,
	}
	for _, q := range queries {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) LogUsage(ctx context.Context, r UsageRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO usage_history (timestamp, provider, model, tokens_in, tokens_out, chars_in, chars_out, cost_usd)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Timestamp, r.Provider, r.Model, r.TokensIn, r.TokensOut, r.CharsIn, r.CharsOut, r.CostUSD)
	return err
}

func (s *SQLiteStore) ListUsage(ctx context.Context, since time.Time, limit int) ([]UsageRecord, error) {
	if limit <= 0 {
		limit = 500
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, timestamp, provider, model, tokens_in, tokens_out, chars_in, chars_out, cost_usd
		 FROM usage_history WHERE timestamp >= ? ORDER BY timestamp DESC LIMIT ?`, since, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []UsageRecord
	for rows.Next() {
		var r UsageRecord
		var ts string
		if err := rows.Scan(&r.ID, &ts, &r.Provider, &r.Model, &r.TokensIn, &r.TokensOut, &r.CharsIn, &r.CharsOut, &r.CostUSD); err != nil {
			return nil, err
		}
		r.Timestamp, _ = time.Parse(time.RFC3339, ts)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) SaveTMSnapshot(ctx context.Context, snap TMSnapshot) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tm_snapshots (timestamp, entries, hits, misses) VALUES (?, ?, ?, ?)`,
		snap.Timestamp, snap.Entries, snap.Hits, snap.Misses)
	return err
}

func (s *SQLiteStore) ListTMSnapshots(ctx context.Context, limit int) ([]TMSnapshot, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, timestamp, entries, hits, misses FROM tm_snapshots ORDER BY timestamp DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []TMSnapshot
	for rows.Next() {
		var snap TMSnapshot
		var ts string
		if err := rows.Scan(&snap.ID, &ts, &snap.Entries, &snap.Hits, &snap.Misses); err != nil {
			return nil, err
		}
		snap.Timestamp, _ = time.Parse(time.RFC3339, ts)
		out = append(out, snap)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) LogPermissionAudit(ctx context.Context, a PermissionAudit) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO permission_audit (timestamp, pattern, granted) VALUES (?, ?, ?)`,
		a.Timestamp, a.Pattern, a.Granted)
	return err
}

func (s *SQLiteStore) ListPermissionAudit(ctx context.Context, limit int) ([]PermissionAudit, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, timestamp, pattern, granted FROM permission_audit ORDER BY timestamp DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []PermissionAudit
	for rows.Next() {
		var a PermissionAudit
		var ts string
		if err := rows.Scan(&a.ID, &ts, &a.Pattern, &a.Granted); err != nil {
			return nil, err
		}
		a.Timestamp, _ = time.Parse(time.RFC3339, ts)
		out = append(out, a)
	}
	return out, rows.Err()
}
