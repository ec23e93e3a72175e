// Package postgres implements repository.UserRepository on PostgreSQL using
// github.com/lib/pq. The layout mirrors the SQLite store: one row per user,
// the document in a JSONB column, and an integer version for optimistic
// concurrency.
package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/rs/xid"

	"github.com/mohiuddinsizan/MoneyManagementSystem/internal/apperror"
	"github.com/mohiuddinsizan/MoneyManagementSystem/internal/model"
	"github.com/mohiuddinsizan/MoneyManagementSystem/internal/repository"
)

var _ repository.UserRepository = (*Store)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS users (
    id         TEXT PRIMARY KEY,
    username   TEXT NOT NULL UNIQUE,
    document   JSONB NOT NULL,
    version    BIGINT NOT NULL DEFAULT 1,
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
);
`

// Store is a PostgreSQL-backed user document store.
type Store struct {
	db *sql.DB
}

// New connects to dsn, verifies the connection and runs migrations.
func New(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: opening database: %w", err)
	}
	db.SetMaxOpenConns(20)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: pinging database: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: running migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Create inserts a new user document with version 1.
func (s *Store) Create(ctx context.Context, user *model.User) error {
	if user.ID == "" {
		user.ID = xid.New().String()
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	user.Version = 1

	doc, err := repository.EncodeUser(user)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO users (id, username, document, version, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		user.ID, user.Username, string(doc), user.Version, now, now,
	)
	if err != nil {
		if pqCode(err) == "23505" {
			return apperror.Conflict("user", "User already exists")
		}
		return wrap(err, "inserting user %s", user.Username)
	}
	return nil
}

// GetByID retrieves a user by internal ID.
func (s *Store) GetByID(ctx context.Context, id string) (*model.User, error) {
	return s.getOne(ctx, `SELECT id, version, document FROM users WHERE id = $1`, id)
}

// GetByUsername retrieves a user by username.
func (s *Store) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return s.getOne(ctx, `SELECT id, version, document FROM users WHERE username = $1`, username)
}

func (s *Store) getOne(ctx context.Context, query, key string) (*model.User, error) {
	var (
		id      string
		version int64
		doc     []byte
	)
	err := s.db.QueryRowContext(ctx, query, key).Scan(&id, &version, &doc)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", key)
		}
		return nil, wrap(err, "getting user %s", key)
	}

	user, err := repository.DecodeUser(id, version, doc)
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}
	return user, nil
}

// Save performs the version compare-and-swap. See repository.UserRepository.
func (s *Store) Save(ctx context.Context, user *model.User) error {
	now := time.Now().UTC()
	prevUpdated := user.UpdatedAt
	user.UpdatedAt = now

	doc, err := repository.EncodeUser(user)
	if err != nil {
		user.UpdatedAt = prevUpdated
		return fmt.Errorf("postgres: %w", err)
	}

	var next int64
	err = s.db.QueryRowContext(ctx,
		`UPDATE users SET document = $1, version = version + 1, updated_at = $2
		 WHERE id = $3 AND version = $4
		 RETURNING version`,
		string(doc), now, user.ID, user.Version,
	).Scan(&next)
	if err != nil {
		user.UpdatedAt = prevUpdated
		if errors.Is(err, sql.ErrNoRows) {
			return s.missingOrStale(ctx, user.ID)
		}
		return wrap(err, "saving user %s", user.ID)
	}

	user.Version = next
	return nil
}

func (s *Store) missingOrStale(ctx context.Context, id string) error {
	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return wrap(err, "checking user %s", id)
	}
	if !exists {
		return apperror.NotFound("user", id)
	}
	return apperror.Conflict("user", "document changed since it was read")
}

func pqCode(err error) pq.ErrorCode {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code
	}
	return ""
}

// isTransient reports failures worth retrying: lost connections,
// serialization failures and a server that is starting up or shutting down.
func isTransient(err error) bool {
	if errors.Is(err, driver.ErrBadConn) {
		return true
	}
	code := pqCode(err)
	if code == "" {
		return false
	}
	switch {
	case code.Class() == "08": // connection_exception
		return true
	case code == "40001", code == "40P01": // serialization_failure, deadlock_detected
		return true
	case code == "57P01", code == "57P03": // admin_shutdown, cannot_connect_now
		return true
	}
	return false
}

func wrap(err error, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if isTransient(err) {
		return fmt.Errorf("postgres: %s: %w", msg, apperror.Unavailable(err))
	}
	return fmt.Errorf("postgres: %s: %w", msg, err)
}
