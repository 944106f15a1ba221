// Package store persists Monitor and MonitorResult rows (spec.md §6
// "Persisted schema") against Postgres or SQLite, selected by DSN scheme.
//
// Grounded on the teacher's internal/store package: the dialect-detecting
// constructor follows internal/history/sqlsink.go's NewSQLSinkFromDSN,
// the placeholder-style branching (?, vs $N) the same file's Send, and
// the pgx/v5 stdlib driver registration follows
// internal/store/postgres/postgres.go rather than the teacher's older
// lib/pq-based postgresql.go.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/yeheng/monitor/internal/monitor"
	"github.com/yeheng/monitor/internal/monitorerr"
)

// Store persists Monitor definitions and MonitorResult rows.
type Store interface {
	EnsureSchema(ctx context.Context) error

	CreateMonitor(ctx context.Context, m *monitor.Monitor) error
	GetMonitor(ctx context.Context, id uuid.UUID) (*monitor.Monitor, error)
	ListMonitors(ctx context.Context) ([]*monitor.Monitor, error)
	ListEnabledMonitors(ctx context.Context) ([]*monitor.Monitor, error)
	UpdateMonitor(ctx context.Context, m *monitor.Monitor) error
	DeleteMonitor(ctx context.Context, id uuid.UUID) error

	InsertResult(ctx context.Context, r *monitor.MonitorResult) error
	ListResults(ctx context.Context, monitorID uuid.UUID, limit int) ([]*monitor.MonitorResult, error)

	Close() error
}

// sqlStore is the dialect-agnostic implementation shared by both
// backends; dialect only changes placeholder style and a handful of
// column type affinities baked into the CREATE TABLE statements.
type sqlStore struct {
	db      *sql.DB
	dialect string // "postgres" or "sqlite"
}

// Open selects a backend from dsn's scheme: "postgres://"/"postgresql://"
// routes to pgx/v5 over database/sql; anything else (including a bare
// path or ":memory:") is treated as a SQLite DSN, matching the teacher's
// history sink dialect-detection convention.
func Open(dsn string) (Store, error) {
	d := strings.TrimSpace(dsn)
	if d == "" {
		return nil, monitorerr.New(monitorerr.KindConfig, "empty database DSN")
	}
	ld := strings.ToLower(d)

	var driver, dialect, path string
	switch {
	case strings.HasPrefix(ld, "postgres://"), strings.HasPrefix(ld, "postgresql://"):
		driver, dialect, path = "pgx", "postgres", d
	case strings.HasPrefix(ld, "sqlite://"):
		driver, dialect, path = "sqlite", "sqlite", strings.TrimPrefix(d, "sqlite://")
	default:
		driver, dialect, path = "sqlite", "sqlite", d
	}

	db, err := sql.Open(driver, path)
	if err != nil {
		return nil, monitorerr.Wrap(monitorerr.KindDatabase, "opening database", err)
	}

	if dialect == "postgres" {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	} else {
		db.SetMaxOpenConns(1) // sqlite serializes writers; one connection avoids lock contention
	}

	if err := db.PingContext(context.Background()); err != nil {
		_ = db.Close()
		return nil, monitorerr.Wrap(monitorerr.KindDatabase, "pinging database", err)
	}

	return &sqlStore{db: db, dialect: dialect}, nil
}

func (s *sqlStore) Close() error { return s.db.Close() }

func (s *sqlStore) EnsureSchema(ctx context.Context) error {
	var stmts []string
	if s.dialect == "sqlite" {
		stmts = []string{
			`CREATE TABLE IF NOT EXISTS monitors(
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				endpoint TEXT NOT NULL,
				method TEXT NOT NULL,
				headers TEXT NOT NULL DEFAULT '{}',
				body TEXT NOT NULL DEFAULT '',
				expected_status INTEGER NOT NULL,
				timeout_seconds INTEGER NOT NULL,
				interval_seconds INTEGER NOT NULL,
				script TEXT NOT NULL DEFAULT '',
				enabled BOOLEAN NOT NULL DEFAULT 1,
				created_at TIMESTAMP NOT NULL,
				updated_at TIMESTAMP NOT NULL
			);`,
			`CREATE INDEX IF NOT EXISTS idx_monitors_enabled ON monitors(enabled);`,
			`CREATE TABLE IF NOT EXISTS monitor_results(
				id TEXT PRIMARY KEY,
				monitor_id TEXT NOT NULL,
				status TEXT NOT NULL,
				response_time INTEGER NOT NULL,
				response_code INTEGER NULL,
				response_body TEXT NOT NULL DEFAULT '',
				error_message TEXT NULL,
				checked_at TIMESTAMP NOT NULL
			);`,
			`CREATE INDEX IF NOT EXISTS idx_monitor_results_monitor_id ON monitor_results(monitor_id, checked_at DESC);`,
		}
	} else {
		stmts = []string{
			`CREATE TABLE IF NOT EXISTS monitors(
				id UUID PRIMARY KEY,
				name TEXT NOT NULL,
				endpoint TEXT NOT NULL,
				method TEXT NOT NULL,
				headers JSONB NOT NULL DEFAULT '{}',
				body TEXT NOT NULL DEFAULT '',
				expected_status INTEGER NOT NULL,
				timeout_seconds INTEGER NOT NULL,
				interval_seconds INTEGER NOT NULL,
				script TEXT NOT NULL DEFAULT '',
				enabled BOOLEAN NOT NULL DEFAULT TRUE,
				created_at TIMESTAMPTZ NOT NULL,
				updated_at TIMESTAMPTZ NOT NULL
			);`,
			`CREATE INDEX IF NOT EXISTS idx_monitors_enabled ON monitors(enabled);`,
			`CREATE TABLE IF NOT EXISTS monitor_results(
				id UUID PRIMARY KEY,
				monitor_id UUID NOT NULL,
				status TEXT NOT NULL,
				response_time INTEGER NOT NULL,
				response_code INTEGER NULL,
				response_body TEXT NOT NULL DEFAULT '',
				error_message TEXT NULL,
				checked_at TIMESTAMPTZ NOT NULL
			);`,
			`CREATE INDEX IF NOT EXISTS idx_monitor_results_monitor_id ON monitor_results(monitor_id, checked_at DESC);`,
		}
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return monitorerr.Wrap(monitorerr.KindMigration, "applying schema", err)
		}
	}
	return nil
}

// ph returns the n-th positional placeholder in the store's dialect.
func (s *sqlStore) ph(n int) string {
	if s.dialect == "sqlite" {
		return "?"
	}
	return fmt.Sprintf("$%d", n)
}

// idArg renders a uuid.UUID for a driver argument. google/uuid.Value()
// already returns a string, which both the pgx and sqlite drivers accept.
func (s *sqlStore) idArg(id uuid.UUID) interface{} {
	return id
}

func (s *sqlStore) CreateMonitor(ctx context.Context, m *monitor.Monitor) error {
	if err := m.Validate(); err != nil {
		return err
	}
	headersJSON, err := marshalHeaders(m.Headers)
	if err != nil {
		return monitorerr.Wrap(monitorerr.KindSerialization, "marshaling headers", err)
	}
	now := time.Now().UTC()
	m.CreatedAt, m.UpdatedAt = now, now

	q := fmt.Sprintf(`INSERT INTO monitors(id, name, endpoint, method, headers, body,
		expected_status, timeout_seconds, interval_seconds, script, enabled, created_at, updated_at)
		VALUES(%s,%s,%s,%s,%s,%s,%s,%s,%s,%s,%s,%s,%s)`,
		s.ph(1), s.ph(2), s.ph(3), s.ph(4), s.ph(5), s.ph(6), s.ph(7), s.ph(8), s.ph(9), s.ph(10), s.ph(11), s.ph(12), s.ph(13))

	_, err = s.db.ExecContext(ctx, q,
		s.idArg(m.ID), m.Name, m.Endpoint, m.Method, headersJSON, m.Body,
		m.ExpectedStatus, m.TimeoutSeconds, m.IntervalSeconds, m.Script, m.Enabled, m.CreatedAt, m.UpdatedAt)
	if err != nil {
		return monitorerr.Wrap(monitorerr.KindDatabase, "inserting monitor", err)
	}
	return nil
}

func (s *sqlStore) GetMonitor(ctx context.Context, id uuid.UUID) (*monitor.Monitor, error) {
	q := fmt.Sprintf(`SELECT id, name, endpoint, method, headers, body, expected_status,
		timeout_seconds, interval_seconds, script, enabled, created_at, updated_at
		FROM monitors WHERE id = %s`, s.ph(1))
	row := s.db.QueryRowContext(ctx, q, s.idArg(id))
	m, err := s.scanMonitor(row)
	if err == sql.ErrNoRows {
		return nil, monitorerr.New(monitorerr.KindNotFound, "monitor not found")
	}
	if err != nil {
		return nil, monitorerr.Wrap(monitorerr.KindDatabase, "querying monitor", err)
	}
	return m, nil
}

func (s *sqlStore) ListMonitors(ctx context.Context) ([]*monitor.Monitor, error) {
	return s.queryMonitors(ctx, `SELECT id, name, endpoint, method, headers, body, expected_status,
		timeout_seconds, interval_seconds, script, enabled, created_at, updated_at FROM monitors ORDER BY created_at`)
}

func (s *sqlStore) ListEnabledMonitors(ctx context.Context) ([]*monitor.Monitor, error) {
	enabledLiteral := "TRUE"
	if s.dialect == "sqlite" {
		enabledLiteral = "1"
	}
	return s.queryMonitors(ctx, fmt.Sprintf(`SELECT id, name, endpoint, method, headers, body, expected_status,
		timeout_seconds, interval_seconds, script, enabled, created_at, updated_at
		FROM monitors WHERE enabled = %s ORDER BY created_at`, enabledLiteral))
}

func (s *sqlStore) queryMonitors(ctx context.Context, q string) ([]*monitor.Monitor, error) {
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, monitorerr.Wrap(monitorerr.KindDatabase, "listing monitors", err)
	}
	defer rows.Close()

	var out []*monitor.Monitor
	for rows.Next() {
		m, err := s.scanMonitor(rows)
		if err != nil {
			return nil, monitorerr.Wrap(monitorerr.KindDatabase, "scanning monitor row", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (s *sqlStore) scanMonitor(row rowScanner) (*monitor.Monitor, error) {
	var (
		m           monitor.Monitor
		headersJSON string
	)
	if err := row.Scan(&m.ID, &m.Name, &m.Endpoint, &m.Method, &headersJSON, &m.Body,
		&m.ExpectedStatus, &m.TimeoutSeconds, &m.IntervalSeconds, &m.Script, &m.Enabled,
		&m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	headers, err := unmarshalHeaders(headersJSON)
	if err != nil {
		return nil, err
	}
	m.Headers = headers
	return &m, nil
}

func (s *sqlStore) UpdateMonitor(ctx context.Context, m *monitor.Monitor) error {
	if err := m.Validate(); err != nil {
		return err
	}
	headersJSON, err := marshalHeaders(m.Headers)
	if err != nil {
		return monitorerr.Wrap(monitorerr.KindSerialization, "marshaling headers", err)
	}
	m.UpdatedAt = time.Now().UTC()

	q := fmt.Sprintf(`UPDATE monitors SET name=%s, endpoint=%s, method=%s, headers=%s, body=%s,
		expected_status=%s, timeout_seconds=%s, interval_seconds=%s, script=%s, enabled=%s, updated_at=%s
		WHERE id=%s`,
		s.ph(1), s.ph(2), s.ph(3), s.ph(4), s.ph(5), s.ph(6), s.ph(7), s.ph(8), s.ph(9), s.ph(10), s.ph(11), s.ph(12))

	res, err := s.db.ExecContext(ctx, q, m.Name, m.Endpoint, m.Method, headersJSON, m.Body,
		m.ExpectedStatus, m.TimeoutSeconds, m.IntervalSeconds, m.Script, m.Enabled, m.UpdatedAt, s.idArg(m.ID))
	if err != nil {
		return monitorerr.Wrap(monitorerr.KindDatabase, "updating monitor", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return monitorerr.New(monitorerr.KindNotFound, "monitor not found")
	}
	return nil
}

func (s *sqlStore) DeleteMonitor(ctx context.Context, id uuid.UUID) error {
	q := fmt.Sprintf(`DELETE FROM monitors WHERE id=%s`, s.ph(1))
	res, err := s.db.ExecContext(ctx, q, s.idArg(id))
	if err != nil {
		return monitorerr.Wrap(monitorerr.KindDatabase, "deleting monitor", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return monitorerr.New(monitorerr.KindNotFound, "monitor not found")
	}
	return nil
}

func (s *sqlStore) InsertResult(ctx context.Context, r *monitor.MonitorResult) error {
	q := fmt.Sprintf(`INSERT INTO monitor_results(id, monitor_id, status, response_time,
		response_code, response_body, error_message, checked_at)
		VALUES(%s,%s,%s,%s,%s,%s,%s,%s)`,
		s.ph(1), s.ph(2), s.ph(3), s.ph(4), s.ph(5), s.ph(6), s.ph(7), s.ph(8))

	_, err := s.db.ExecContext(ctx, q, s.idArg(r.ID), s.idArg(r.MonitorID), string(r.Status),
		r.ResponseTime, r.ResponseCode, r.ResponseBody, r.ErrorMessage, r.CheckedAt)
	if err != nil {
		return monitorerr.Wrap(monitorerr.KindDatabase, "inserting monitor result", err)
	}
	return nil
}

func (s *sqlStore) ListResults(ctx context.Context, monitorID uuid.UUID, limit int) ([]*monitor.MonitorResult, error) {
	if limit <= 0 {
		limit = 100
	}
	q := fmt.Sprintf(`SELECT id, monitor_id, status, response_time, response_code, response_body,
		error_message, checked_at FROM monitor_results WHERE monitor_id=%s
		ORDER BY checked_at DESC LIMIT %s`, s.ph(1), s.ph(2))

	rows, err := s.db.QueryContext(ctx, q, s.idArg(monitorID), limit)
	if err != nil {
		return nil, monitorerr.Wrap(monitorerr.KindDatabase, "listing monitor results", err)
	}
	defer rows.Close()

	var out []*monitor.MonitorResult
	for rows.Next() {
		var (
			r         monitor.MonitorResult
			statusStr string
		)
		if err := rows.Scan(&r.ID, &r.MonitorID, &statusStr, &r.ResponseTime, &r.ResponseCode,
			&r.ResponseBody, &r.ErrorMessage, &r.CheckedAt); err != nil {
			return nil, monitorerr.Wrap(monitorerr.KindDatabase, "scanning monitor result row", err)
		}
		r.Status = monitor.Status(statusStr)
		out = append(out, &r)
	}
	return out, rows.Err()
}
