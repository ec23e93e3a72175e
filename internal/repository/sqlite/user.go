package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/mohiuddinsizan/MoneyManagementSystem/internal/apperror"
	"github.com/mohiuddinsizan/MoneyManagementSystem/internal/model"
	"github.com/mohiuddinsizan/MoneyManagementSystem/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

// Create inserts a new user document with version 1.
func (db *DB) Create(ctx context.Context, user *model.User) error {
	if user.ID == "" {
		user.ID = xid.New().String()
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	user.Version = 1

	doc, err := repository.EncodeUser(user)
	if err != nil {
		return fmt.Errorf("sqlite: %w", err)
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO users (id, username, document, version, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Username,
		string(doc),
		user.Version,
		now.UnixMilli(),
		now.UnixMilli(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("user", "User already exists")
		}
		return wrap(err, "inserting user %s", user.Username)
	}

	return nil
}

// GetByID retrieves a user by internal ID.
func (db *DB) GetByID(ctx context.Context, id string) (*model.User, error) {
	return db.getOne(ctx, `SELECT id, version, document FROM users WHERE id = ?`, id)
}

// GetByUsername retrieves a user by username.
func (db *DB) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return db.getOne(ctx, `SELECT id, version, document FROM users WHERE username = ?`, username)
}

func (db *DB) getOne(ctx context.Context, query, key string) (*model.User, error) {
	var (
		id      string
		version int64
		doc     string
	)
	err := db.conn.QueryRowContext(ctx, query, key).Scan(&id, &version, &doc)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", key)
		}
		return nil, wrap(err, "getting user %s", key)
	}

	user, err := repository.DecodeUser(id, version, []byte(doc))
	if err != nil {
		return nil, fmt.Errorf("sqlite: %w", err)
	}
	return user, nil
}

// Save writes the document back if nobody else saved since it was loaded.
//
// The WHERE version = ? clause is the compare-and-swap: zero affected rows
// means either the row is gone or another writer got there first.
func (db *DB) Save(ctx context.Context, user *model.User) error {
	now := time.Now().UTC()
	prevUpdated := user.UpdatedAt
	user.UpdatedAt = now

	doc, err := repository.EncodeUser(user)
	if err != nil {
		user.UpdatedAt = prevUpdated
		return fmt.Errorf("sqlite: %w", err)
	}

	next := user.Version + 1
	res, err := db.conn.ExecContext(ctx,
		`UPDATE users SET document = ?, version = ?, updated_at = ?
		 WHERE id = ? AND version = ?`,
		string(doc), next, now.UnixMilli(), user.ID, user.Version,
	)
	if err != nil {
		user.UpdatedAt = prevUpdated
		return wrap(err, "saving user %s", user.ID)
	}

	n, err := res.RowsAffected()
	if err != nil {
		user.UpdatedAt = prevUpdated
		return wrap(err, "saving user %s", user.ID)
	}
	if n == 0 {
		user.UpdatedAt = prevUpdated
		return db.missingOrStale(ctx, user.ID)
	}

	user.Version = next
	return nil
}

func (db *DB) missingOrStale(ctx context.Context, id string) error {
	var count int
	err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE id = ?`, id).Scan(&count)
	if err != nil {
		return wrap(err, "checking user %s", id)
	}
	if count == 0 {
		return apperror.NotFound("user", id)
	}
	return apperror.Conflict("user", "document changed since it was read")
}

// wrap classifies driver errors: lock contention is retryable, anything else
// is an internal failure.
func wrap(err error, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if isBusy(err) {
		return fmt.Errorf("sqlite: %s: %w", msg, apperror.Unavailable(err))
	}
	return fmt.Errorf("sqlite: %s: %w", msg, err)
}
