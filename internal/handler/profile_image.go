package handler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/mohiuddinsizan/MoneyManagementSystem/internal/apperror"
)

// DefaultMaxUploadBytes caps an uploaded profile picture.
const DefaultMaxUploadBytes = 5 << 20

// sniffLen is how much http.DetectContentType looks at.
const sniffLen = 512

// ProfileImageService is the part of service.ProfileImageService the handler uses.
type ProfileImageService interface {
	Upload(ctx context.Context, userID, filename, contentType string, body io.Reader) (string, error)
}

// ProfileImageHandler accepts multipart profile picture uploads.
type ProfileImageHandler struct {
	images   ProfileImageService
	maxBytes int64
	logger   *slog.Logger
}

// NewProfileImageHandler creates the handler. maxBytes <= 0 selects
// DefaultMaxUploadBytes.
func NewProfileImageHandler(images ProfileImageService, maxBytes int64, logger *slog.Logger) *ProfileImageHandler {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	return &ProfileImageHandler{images: images, maxBytes: maxBytes, logger: logger}
}

// HandleUpload stores the "image" form file and answers with its URL.
//
// HTTP: POST /api/users/upload-image (multipart/form-data)
//
// The declared Content-Type of the part is ignored; the type is sniffed from
// the first bytes of the file.
func (h *ProfileImageHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r, h.logger)
	if !ok {
		return
	}

	// Allow some room for the multipart framing around the file.
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+64<<10)
	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, h.logger, h.formError(err))
		return
	}
	defer file.Close()

	if header.Size > h.maxBytes {
		writeError(w, h.logger, h.tooLarge())
		return
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		writeError(w, h.logger, fmt.Errorf("reading upload: %w", err))
		return
	}
	if n == 0 {
		writeError(w, h.logger, apperror.ValidationFailed("image", "No file uploaded"))
		return
	}
	head = head[:n]
	contentType := http.DetectContentType(head)

	url, err := h.images.Upload(r.Context(), userID, header.Filename, contentType,
		io.MultiReader(bytes.NewReader(head), file))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"profileImage": url})
}

func (h *ProfileImageHandler) formError(err error) error {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return h.tooLarge()
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
		return apperror.ValidationFailed("image", "No file uploaded")
	default:
		return apperror.ValidationFailed("image", "malformed multipart body")
	}
}

func (h *ProfileImageHandler) tooLarge() error {
	return apperror.ValidationFailed("image", fmt.Sprintf("image must be %d bytes or smaller", h.maxBytes))
}
