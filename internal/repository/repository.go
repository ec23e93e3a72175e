// Package repository declares the storage contract the services depend on.
//
// Each user is one document: profile, both ledgers and history are loaded and
// saved together. Concurrent writers are detected with an optimistic version
// number rather than locks, so a service performs
//
//	u, _ := repo.GetByID(ctx, id) // u.Version = n
//	mutate(u)
//	repo.Save(ctx, u)             // succeeds only if the stored version is still n
//
// and retries the whole cycle when Save reports apperror.ErrConflict.
package repository

import (
	"context"

	"github.com/mohiuddinsizan/MoneyManagementSystem/internal/model"
)

// UserRepository is implemented by every document store backend.
type UserRepository interface {
	// Create inserts a new user. It assigns ID (when empty), Version and
	// timestamps. A taken username yields apperror.ErrConflict.
	Create(ctx context.Context, user *model.User) error

	// GetByID loads a user document. Unknown ids yield apperror.ErrNotFound.
	GetByID(ctx context.Context, id string) (*model.User, error)

	// GetByUsername loads a user document by its unique username.
	GetByUsername(ctx context.Context, username string) (*model.User, error)

	// Save replaces the stored document if its version still equals
	// user.Version, then bumps user.Version. A stale version yields
	// apperror.ErrConflict; a deleted user yields apperror.ErrNotFound.
	Save(ctx context.Context, user *model.User) error
}
