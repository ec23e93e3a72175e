// Package service holds the business rules of the money manager.
//
// Handlers parse HTTP and call in here with plain values; services validate,
// orchestrate the repository and return apperror values that the handler
// package turns into status codes. Nothing in this package knows about HTTP.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/xid"
	"github.com/shopspring/decimal"

	"github.com/mohiuddinsizan/MoneyManagementSystem/internal/apperror"
	"github.com/mohiuddinsizan/MoneyManagementSystem/internal/events"
	"github.com/mohiuddinsizan/MoneyManagementSystem/internal/metrics"
	"github.com/mohiuddinsizan/MoneyManagementSystem/internal/model"
	"github.com/mohiuddinsizan/MoneyManagementSystem/internal/repository"
)

// DefaultStoreRetries bounds how many read-modify-write cycles one mutation
// may take before giving up on a contended document.
const DefaultStoreRetries = 5

// MaxEntryNameLength caps counterparty names, in characters.
const MaxEntryNameLength = 200

// MaxAmountScale is the number of decimal places an amount may carry.
const MaxAmountScale = 8

// maxAmountExponent is the exponent of MaxAmount. Amounts whose exponent is
// above it are rejected before any comparison, which would otherwise expand
// the coefficient.
const maxAmountExponent = 12

// MaxAmount is the largest amount a single entry may hold.
var MaxAmount = decimal.New(1, maxAmountExponent)

// EntryInput carries the client-supplied fields of a debt or credit. Amount
// is a pointer so a missing amount can be told apart from zero.
type EntryInput struct {
	Name   string
	Amount *decimal.Decimal
}

// Profile is the read model behind the profile endpoint.
type Profile struct {
	Username        string
	ProfileImageURL string
	TotalDebt       decimal.Decimal
	TotalCredit     decimal.Decimal
	Debts           []model.LedgerEntry
	Credits         []model.LedgerEntry
}

// LedgerService manages each user's debts, credits and history.
//
// Every mutation loads the user document, applies the change and saves it
// with the version it was loaded at. When another writer saved in between,
// the whole cycle runs again on fresh data, so no update is lost and no
// in-process lock is held.
type LedgerService struct {
	users     repository.UserRepository
	publisher events.Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
	retries   int

	now   func() time.Time
	newID func() string
}

// NewLedgerService wires a LedgerService. publisher may be nil (events are
// then dropped), m may be nil, and retries < 1 selects DefaultStoreRetries.
func NewLedgerService(
	users repository.UserRepository,
	publisher events.Publisher,
	m *metrics.Metrics,
	logger *slog.Logger,
	retries int,
) *LedgerService {
	if publisher == nil {
		publisher = events.Nop{}
	}
	if retries < 1 {
		retries = DefaultStoreRetries
	}
	return &LedgerService{
		users:     users,
		publisher: publisher,
		metrics:   m,
		logger:    logger,
		retries:   retries,
		now:       func() time.Time { return time.Now().UTC() },
		newID:     func() string { return xid.New().String() },
	}
}

// AddEntry records a new debt or credit and logs it in the history. Next to
// the new entry it returns the ledger of that kind as it was saved.
func (s *LedgerService) AddEntry(ctx context.Context, userID string, kind model.EntryKind, in EntryInput) (model.LedgerEntry, []model.LedgerEntry, error) {
	name, amount, err := validateEntry(kind, in)
	if err != nil {
		return model.LedgerEntry{}, nil, err
	}

	// Built once so a retried cycle stores the same id and timestamp.
	entry := model.LedgerEntry{
		ID:        s.newID(),
		Name:      name,
		Amount:    amount,
		CreatedAt: s.now(),
	}

	saved, err := s.mutate(ctx, userID, func(u *model.User) (bool, error) {
		u.AddEntry(kind, entry)
		return true, nil
	})
	if err != nil {
		return model.LedgerEntry{}, nil, fmt.Errorf("adding %s for user %s: %w", kind, userID, err)
	}

	s.metrics.EntryAdded(kind.String())
	s.logger.Info("ledger entry added",
		slog.String("userID", userID),
		slog.String("kind", kind.String()),
		slog.String("entryID", entry.ID),
	)
	s.publish(ctx, events.EntryAdded{
		UserID:    userID,
		Kind:      kind.String(),
		EntryID:   entry.ID,
		Name:      entry.Name,
		Amount:    entry.Amount,
		CreatedAt: entry.CreatedAt,
	})

	return entry, append([]model.LedgerEntry{}, saved.Entries(kind)...), nil
}

// UpdateEntry replaces the name and amount of an existing entry. The entry's
// id and creation time stay as they were and the history is not touched.
func (s *LedgerService) UpdateEntry(ctx context.Context, userID string, kind model.EntryKind, entryID string, in EntryInput) (model.LedgerEntry, error) {
	name, amount, err := validateEntry(kind, in)
	if err != nil {
		return model.LedgerEntry{}, err
	}
	entryID = strings.TrimSpace(entryID)
	if entryID == "" {
		return model.LedgerEntry{}, apperror.ValidationFailed("id", "entry id is required")
	}

	var updated model.LedgerEntry
	_, err = s.mutate(ctx, userID, func(u *model.User) (bool, error) {
		e, ok := u.UpdateEntry(kind, entryID, name, amount)
		if !ok {
			return false, apperror.NotFound(kind.String(), entryID)
		}
		updated = e
		return true, nil
	})
	if err != nil {
		return model.LedgerEntry{}, fmt.Errorf("updating %s %s: %w", kind, entryID, err)
	}

	s.logger.Info("ledger entry updated",
		slog.String("userID", userID),
		slog.String("kind", kind.String()),
		slog.String("entryID", entryID),
	)
	return updated, nil
}

// DeleteEntry removes an entry. Deleting an id that is not in the ledger
// succeeds without writing anything.
func (s *LedgerService) DeleteEntry(ctx context.Context, userID string, kind model.EntryKind, entryID string) error {
	if _, ok := model.ParseEntryKind(string(kind)); !ok {
		return apperror.ValidationFailed("kind", "kind must be debt or credit")
	}

	_, err := s.mutate(ctx, userID, func(u *model.User) (bool, error) {
		return u.RemoveEntry(kind, entryID), nil
	})
	if err != nil {
		return fmt.Errorf("deleting %s %s: %w", kind, entryID, err)
	}
	return nil
}

// GetProfile returns the user's ledgers with their totals.
func (s *LedgerService) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading profile %s: %w", userID, err)
	}
	return profileOf(u), nil
}

// GetHistory returns at most model.MaxHistory records, newest first.
func (s *LedgerService) GetHistory(ctx context.Context, userID string) ([]model.HistoryRecord, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading history %s: %w", userID, err)
	}
	return u.RecentHistory(), nil
}

// SetProfileImage stores url as the user's picture, replacing any previous one.
func (s *LedgerService) SetProfileImage(ctx context.Context, userID, url string) error {
	_, err := s.mutate(ctx, userID, func(u *model.User) (bool, error) {
		u.ProfileImageURL = url
		return true, nil
	})
	if err != nil {
		return fmt.Errorf("setting profile image for %s: %w", userID, err)
	}
	return nil
}

// mutate runs the optimistic read-modify-write cycle. apply reports whether
// it changed the document; an unchanged document is not saved.
func (s *LedgerService) mutate(ctx context.Context, userID string, apply func(*model.User) (bool, error)) (*model.User, error) {
	for attempt := 1; ; attempt++ {
		u, err := s.users.GetByID(ctx, userID)
		if err != nil {
			return nil, err
		}

		changed, err := apply(u)
		if err != nil {
			return nil, err
		}
		if !changed {
			return u, nil
		}

		err = s.users.Save(ctx, u)
		if err == nil {
			return u, nil
		}
		if !errors.Is(err, apperror.ErrConflict) {
			return nil, err
		}

		s.metrics.StoreConflict()
		if attempt >= s.retries {
			s.logger.Warn("giving up on contended user document",
				slog.String("userID", userID),
				slog.Int("attempts", attempt),
			)
			return nil, apperror.Unavailable(fmt.Errorf("%d conflicting writes: %w", attempt, err))
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s.logger.Debug("version conflict, retrying",
			slog.String("userID", userID),
			slog.Int("attempt", attempt),
		)
	}
}

func (s *LedgerService) publish(ctx context.Context, e events.Event) {
	if err := s.publisher.Publish(ctx, e); err != nil {
		s.logger.Warn("failed to publish event",
			slog.String("type", e.Type()),
			slog.String("key", e.Key()),
			slog.String("error", err.Error()),
		)
	}
}

func validateEntry(kind model.EntryKind, in EntryInput) (string, decimal.Decimal, error) {
	if _, ok := model.ParseEntryKind(string(kind)); !ok {
		return "", decimal.Decimal{}, apperror.ValidationFailed("kind", "kind must be debt or credit")
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		return "", decimal.Decimal{}, apperror.ValidationFailed("name", "name is required")
	}
	if utf8.RuneCountInString(name) > MaxEntryNameLength {
		return "", decimal.Decimal{}, apperror.ValidationFailed("name",
			fmt.Sprintf("name must be %d characters or less", MaxEntryNameLength))
	}

	if in.Amount == nil {
		return "", decimal.Decimal{}, apperror.ValidationFailed("amount", "amount is required")
	}
	amount := *in.Amount
	if amount.IsNegative() {
		return "", decimal.Decimal{}, apperror.ValidationFailed("amount", "amount must not be negative")
	}
	if amount.IsZero() {
		return name, decimal.Zero, nil
	}
	if amount.Exponent() < -MaxAmountScale {
		return "", decimal.Decimal{}, apperror.ValidationFailed("amount",
			fmt.Sprintf("amount must have at most %d decimal places", MaxAmountScale))
	}
	if amount.Exponent() > maxAmountExponent || amount.GreaterThan(MaxAmount) {
		return "", decimal.Decimal{}, apperror.ValidationFailed("amount",
			fmt.Sprintf("amount must not exceed %s", MaxAmount.String()))
	}

	return name, amount, nil
}

func profileOf(u *model.User) *Profile {
	return &Profile{
		Username:        u.Username,
		ProfileImageURL: u.ProfileImageURL,
		TotalDebt:       u.TotalDebt(),
		TotalCredit:     u.TotalCredit(),
		Debts:           append([]model.LedgerEntry{}, u.Debts...),
		Credits:         append([]model.LedgerEntry{}, u.Credits...),
	}
}
