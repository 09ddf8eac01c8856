// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package auth manages FloraFind accounts: registration, login sessions,
// password resets and the mocked premium trial.
package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/pdiddy/florafind/pkg/types"
)

// ErrUserNotFound reports a lookup for an account that does not exist.
var ErrUserNotFound = errors.New("user not found")

// Store persists users and password reset tokens in SQLite.
type Store struct {
	db *sql.DB
}

// NewStore opens or creates the database at path and bootstraps its schema.
func NewStore(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			created_at TEXT NOT NULL,
			plan TEXT NOT NULL DEFAULT 'none',
			trial_ends_at TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS password_resets (
			token TEXT PRIMARY KEY,
			user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			expires_at TEXT NOT NULL,
			used INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_password_resets_user ON password_resets(user_id)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// CreateUser inserts u. A duplicate email yields ErrEmailTaken.
func (s *Store) CreateUser(ctx context.Context, u *types.User) error {
	plan := u.Plan
	if plan == "" {
		plan = types.PlanNone
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, created_at, plan, trial_ends_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.PasswordHash, formatTime(u.CreatedAt), string(plan), nullTime(u.TrialEndsAt))
	if err != nil {
		var sqlErr sqlite3.Error
		if errors.As(err, &sqlErr) && sqlErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return ErrEmailTaken
		}
		return fmt.Errorf("inserting user: %w", err)
	}
	return nil
}

// UserByEmail loads the account registered under email.
func (s *Store) UserByEmail(ctx context.Context, email string) (*types.User, error) {
	return s.queryUser(ctx, `WHERE email = ?`, email)
}

// UserByID loads the account with the given ID.
func (s *Store) UserByID(ctx context.Context, id string) (*types.User, error) {
	return s.queryUser(ctx, `WHERE id = ?`, id)
}

func (s *Store) queryUser(ctx context.Context, where string, arg any) (*types.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, created_at, plan, trial_ends_at FROM users `+where, arg)

	var (
		u         types.User
		createdAt string
		plan      string
		trialEnds sql.NullString
	)
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &createdAt, &plan, &trialEnds); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("querying user: %w", err)
	}

	u.Plan = types.PlanID(plan)
	u.CreatedAt = parseTime(createdAt)
	if trialEnds.Valid {
		u.TrialEndsAt = parseTime(trialEnds.String)
	}
	return &u, nil
}

// UpdatePassword replaces the stored password hash of a user.
func (s *Store) UpdatePassword(ctx context.Context, userID, hash string) error {
	return s.updateUser(ctx, `UPDATE users SET password_hash = ? WHERE id = ?`, hash, userID)
}

// UpdatePlan records a plan choice and its trial end.
func (s *Store) UpdatePlan(ctx context.Context, userID string, plan types.PlanID, trialEndsAt time.Time) error {
	return s.updateUser(ctx, `UPDATE users SET plan = ?, trial_ends_at = ? WHERE id = ?`,
		string(plan), nullTime(trialEndsAt), userID)
}

func (s *Store) updateUser(ctx context.Context, stmt string, args ...any) error {
	res, err := s.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("updating user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating user: %w", err)
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// CreateReset stores a password reset token for userID.
func (s *Store) CreateReset(ctx context.Context, token, userID string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO password_resets (token, user_id, expires_at) VALUES (?, ?, ?)`,
		token, userID, formatTime(expiresAt))
	if err != nil {
		return fmt.Errorf("inserting reset token: %w", err)
	}
	return nil
}

// ConsumeReset marks token used and returns its user. Unknown, used and
// expired tokens yield ErrResetTokenInvalid.
func (s *Store) ConsumeReset(ctx context.Context, token string, now time.Time) (string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var (
		userID    string
		expiresAt string
		used      bool
	)
	err = tx.QueryRowContext(ctx,
		`SELECT user_id, expires_at, used FROM password_resets WHERE token = ?`, token,
	).Scan(&userID, &expiresAt, &used)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrResetTokenInvalid
	}
	if err != nil {
		return "", fmt.Errorf("querying reset token: %w", err)
	}
	if used || !now.Before(parseTime(expiresAt)) {
		return "", ErrResetTokenInvalid
	}

	if _, err := tx.ExecContext(ctx, `UPDATE password_resets SET used = 1 WHERE token = ?`, token); err != nil {
		return "", fmt.Errorf("marking reset token used: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing reset: %w", err)
	}
	return userID, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func nullTime(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(t), Valid: true}
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
