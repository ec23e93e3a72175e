package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/mohiuddinsizan/MoneyManagementSystem/internal/apperror"
	"github.com/mohiuddinsizan/MoneyManagementSystem/internal/objectstore"
	"github.com/mohiuddinsizan/MoneyManagementSystem/internal/repository"
)

// ProfileImageService pushes a picture to the object store and records its
// URL on the user.
type ProfileImageService struct {
	users  repository.UserRepository
	store  objectstore.Uploader
	ledger *LedgerService
	logger *slog.Logger
}

// NewProfileImageService stores images with store and records their URL
// through ledger.
func NewProfileImageService(
	users repository.UserRepository,
	store objectstore.Uploader,
	ledger *LedgerService,
	logger *slog.Logger,
) *ProfileImageService {
	return &ProfileImageService{
		users:  users,
		store:  store,
		ledger: ledger,
		logger: logger,
	}
}

// Upload stores the image and returns its public URL. contentType must be
// the sniffed type of body and has to be an image.
func (s *ProfileImageService) Upload(ctx context.Context, userID, filename, contentType string, body io.Reader) (string, error) {
	if !strings.HasPrefix(contentType, "image/") {
		return "", apperror.ValidationFailed("image", "only image files are allowed")
	}

	// Check first so unknown users cannot leave orphaned objects behind.
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return "", fmt.Errorf("service/profile: loading %s: %w", userID, err)
	}

	url, err := s.store.Upload(ctx, objectstore.Object{
		Name:        filename,
		ContentType: contentType,
		Body:        body,
	})
	if err != nil {
		s.logger.Error("profile image upload failed",
			slog.String("userID", userID),
			slog.String("error", err.Error()),
		)
		return "", fmt.Errorf("service/profile: uploading image: %w", err)
	}

	if err := s.ledger.SetProfileImage(ctx, userID, url); err != nil {
		return "", err
	}

	s.logger.Info("profile image updated",
		slog.String("userID", userID),
		slog.String("url", url),
	)
	return url, nil
}
