package auth

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserAlreadyExists  = errors.New("user already exists")
)

// User is an operator account stored for HTTP Basic / JWT login against
// the ambient API surface (spec §1 carries this as out-of-scope-but-
// ambient, following the teacher's internal/auth package).
type User struct {
	ID           string
	Username     string
	PasswordHash string
	Roles        []string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Active       bool
}

// UserStore persists operator accounts.
type UserStore interface {
	CreateUser(ctx context.Context, user *User) error
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	ListUsers(ctx context.Context, offset, limit int) ([]*User, int, error)
	DeleteUser(ctx context.Context, id string) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	Close() error
}

type sqlUserStore struct {
	db      *sql.DB
	dialect string
}

// NewUserStore opens a UserStore against dsn, selecting Postgres (pgx) or
// SQLite the same way internal/store.Open does.
func NewUserStore(dsn string) (UserStore, error) {
	d := strings.TrimSpace(dsn)
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
		return nil, fmt.Errorf("opening auth database: %w", err)
	}
	if dialect == "sqlite" {
		db.SetMaxOpenConns(1)
	}

	s := &sqlUserStore{db: db, dialect: dialect}
	if err := s.createTable(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *sqlUserStore) Close() error { return s.db.Close() }

func (s *sqlUserStore) createTable(ctx context.Context) error {
	var stmt string
	if s.dialect == "sqlite" {
		stmt = `CREATE TABLE IF NOT EXISTS users(
			id TEXT PRIMARY KEY,
			username TEXT UNIQUE NOT NULL,
			password_hash TEXT NOT NULL,
			roles TEXT NOT NULL DEFAULT '[]',
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			active BOOLEAN NOT NULL DEFAULT 1
		)`
	} else {
		stmt = `CREATE TABLE IF NOT EXISTS users(
			id UUID PRIMARY KEY,
			username VARCHAR(255) UNIQUE NOT NULL,
			password_hash TEXT NOT NULL,
			roles JSONB NOT NULL DEFAULT '[]',
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL,
			active BOOLEAN NOT NULL DEFAULT TRUE
		)`
	}
	_, err := s.db.ExecContext(ctx, stmt)
	return err
}

func (s *sqlUserStore) ph(n int) string {
	if s.dialect == "sqlite" {
		return "?"
	}
	return fmt.Sprintf("$%d", n)
}

func (s *sqlUserStore) CreateUser(ctx context.Context, user *User) error {
	rolesJSON, err := json.Marshal(user.Roles)
	if err != nil {
		return fmt.Errorf("marshaling roles: %w", err)
	}
	now := time.Now().UTC()
	user.CreatedAt, user.UpdatedAt = now, now

	q := fmt.Sprintf(`INSERT INTO users(id, username, password_hash, roles, created_at, updated_at, active)
		VALUES(%s,%s,%s,%s,%s,%s,%s)`, s.ph(1), s.ph(2), s.ph(3), s.ph(4), s.ph(5), s.ph(6), s.ph(7))

	_, err = s.db.ExecContext(ctx, q, user.ID, user.Username, user.PasswordHash,
		string(rolesJSON), user.CreatedAt, user.UpdatedAt, user.Active)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") || strings.Contains(err.Error(), "duplicate key") {
			return ErrUserAlreadyExists
		}
		return fmt.Errorf("creating user: %w", err)
	}
	return nil
}

func (s *sqlUserStore) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	activeLiteral := "TRUE"
	if s.dialect == "sqlite" {
		activeLiteral = "1"
	}
	q := fmt.Sprintf(`SELECT id, username, password_hash, roles, created_at, updated_at, active
		FROM users WHERE username = %s AND active = %s`, s.ph(1), activeLiteral)

	var (
		u         User
		rolesJSON string
	)
	err := s.db.QueryRowContext(ctx, q, username).Scan(
		&u.ID, &u.Username, &u.PasswordHash, &rolesJSON, &u.CreatedAt, &u.UpdatedAt, &u.Active)
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying user: %w", err)
	}
	if err := json.Unmarshal([]byte(rolesJSON), &u.Roles); err != nil {
		return nil, fmt.Errorf("unmarshaling roles: %w", err)
	}
	return &u, nil
}

func (s *sqlUserStore) ListUsers(ctx context.Context, offset, limit int) ([]*User, int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting users: %w", err)
	}

	q := fmt.Sprintf(`SELECT id, username, password_hash, roles, created_at, updated_at, active
		FROM users ORDER BY created_at LIMIT %s OFFSET %s`, s.ph(1), s.ph(2))
	rows, err := s.db.QueryContext(ctx, q, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var out []*User
	for rows.Next() {
		var (
			u         User
			rolesJSON string
		)
		if err := rows.Scan(&u.ID, &u.Username, &u.PasswordHash, &rolesJSON,
			&u.CreatedAt, &u.UpdatedAt, &u.Active); err != nil {
			return nil, 0, fmt.Errorf("scanning user row: %w", err)
		}
		if err := json.Unmarshal([]byte(rolesJSON), &u.Roles); err != nil {
			return nil, 0, fmt.Errorf("unmarshaling roles: %w", err)
		}
		out = append(out, &u)
	}
	return out, total, rows.Err()
}

func (s *sqlUserStore) DeleteUser(ctx context.Context, id string) error {
	q := fmt.Sprintf(`DELETE FROM users WHERE id = %s`, s.ph(1))
	res, err := s.db.ExecContext(ctx, q, id)
	if err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking delete result: %w", err)
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (s *sqlUserStore) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	q := fmt.Sprintf(`UPDATE users SET password_hash = %s, updated_at = %s WHERE id = %s`,
		s.ph(1), s.ph(2), s.ph(3))
	res, err := s.db.ExecContext(ctx, q, passwordHash, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("updating password: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update result: %w", err)
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}
