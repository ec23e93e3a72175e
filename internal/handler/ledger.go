package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/mohiuddinsizan/MoneyManagementSystem/internal/apperror"
	"github.com/mohiuddinsizan/MoneyManagementSystem/internal/auth"
	"github.com/mohiuddinsizan/MoneyManagementSystem/internal/model"
	"github.com/mohiuddinsizan/MoneyManagementSystem/internal/service"
)

// LedgerService is the part of service.LedgerService the handler uses.
type LedgerService interface {
	AddEntry(ctx context.Context, userID string, kind model.EntryKind, in service.EntryInput) (model.LedgerEntry, []model.LedgerEntry, error)
	UpdateEntry(ctx context.Context, userID string, kind model.EntryKind, entryID string, in service.EntryInput) (model.LedgerEntry, error)
	DeleteEntry(ctx context.Context, userID string, kind model.EntryKind, entryID string) error
	GetProfile(ctx context.Context, userID string) (*service.Profile, error)
	GetHistory(ctx context.Context, userID string) ([]model.HistoryRecord, error)
}

// kindWording holds the JSON keys and messages for one ledger. The web
// client knows credits as "owed".
type kindWording struct {
	single  string
	list    string
	added   string
	updated string
	deleted string
}

var wording = map[model.EntryKind]kindWording{
	model.KindDebt: {
		single:  "debt",
		list:    "debts",
		added:   "Debt added successfully",
		updated: "Debt updated successfully",
		deleted: "Debt deleted successfully",
	},
	model.KindCredit: {
		single:  "owed",
		list:    "owedByOthers",
		added:   "Owed amount added successfully",
		updated: "Owed amount updated successfully",
		deleted: "Owed entry deleted successfully",
	},
}

// LedgerHandler serves the authenticated ledger routes. Every handler reads
// the caller from the context populated by auth.RequireAuth.
type LedgerHandler struct {
	ledger LedgerService
	logger *slog.Logger
}

// NewLedgerHandler creates a LedgerHandler serving both ledgers.
func NewLedgerHandler(ledger LedgerService, logger *slog.Logger) *LedgerHandler {
	return &LedgerHandler{ledger: ledger, logger: logger}
}

// ProfileResponse is the body of GET /api/users/profile.
type ProfileResponse struct {
	Username     string          `json:"username"`
	ProfileImage string          `json:"profileImage"`
	TotalDebt    decimal.Decimal `json:"totalDebt"`
	TotalOwed    decimal.Decimal `json:"totalOwed"`
	Debts        []entryView     `json:"debts"`
	OwedByOthers []entryView     `json:"owedByOthers"`
}

type entryRequest struct {
	Name string `json:"name"`
	// Kept raw so a missing amount is told apart from a non-numeric one.
	Amount json.RawMessage `json:"amount"`
}

func (req entryRequest) input() (service.EntryInput, error) {
	in := service.EntryInput{Name: req.Name}

	raw := bytes.TrimSpace(req.Amount)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return in, nil
	}

	// Accepts 12.5 as well as "12.5".
	var amount decimal.Decimal
	if err := amount.UnmarshalJSON(raw); err != nil {
		return in, apperror.ValidationFailed("amount", "amount must be a number")
	}
	in.Amount = &amount
	return in, nil
}

// HandleProfile returns both ledgers with their totals.
//
// HTTP: GET /api/users/profile
func (h *LedgerHandler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.caller(w, r)
	if !ok {
		return
	}

	p, err := h.ledger.GetProfile(r.Context(), userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, ProfileResponse{
		Username:     p.Username,
		ProfileImage: p.ProfileImageURL,
		TotalDebt:    p.TotalDebt,
		TotalOwed:    p.TotalCredit,
		Debts:        newEntryViews(p.Debts),
		OwedByOthers: newEntryViews(p.Credits),
	})
}

// HandleAdd returns the handler for POST /api/users/add-debt and
// POST /api/users/add-owed.
func (h *LedgerHandler) HandleAdd(kind model.EntryKind) http.HandlerFunc {
	words := wording[kind]
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := h.caller(w, r)
		if !ok {
			return
		}
		in, ok := h.readEntry(w, r)
		if !ok {
			return
		}

		entry, ledger, err := h.ledger.AddEntry(r.Context(), userID, kind, in)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"message":    words.added,
			words.single: newEntryView(entry),
			words.list:   newEntryViews(ledger),
		})
	}
}

// HandleUpdate returns the handler for PUT /api/users/update-debt/{id} and
// PUT /api/users/update-owed/{id}.
func (h *LedgerHandler) HandleUpdate(kind model.EntryKind) http.HandlerFunc {
	words := wording[kind]
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := h.caller(w, r)
		if !ok {
			return
		}
		in, ok := h.readEntry(w, r)
		if !ok {
			return
		}

		entry, err := h.ledger.UpdateEntry(r.Context(), userID, kind, chi.URLParam(r, "id"), in)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"message":    words.updated,
			words.single: newEntryView(entry),
		})
	}
}

// HandleDelete returns the handler for DELETE /api/users/delete-debt/{id}
// and DELETE /api/users/delete-owed/{id}.
func (h *LedgerHandler) HandleDelete(kind model.EntryKind) http.HandlerFunc {
	words := wording[kind]
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := h.caller(w, r)
		if !ok {
			return
		}

		if err := h.ledger.DeleteEntry(r.Context(), userID, kind, chi.URLParam(r, "id")); err != nil {
			writeError(w, h.logger, err)
			return
		}

		writeJSON(w, http.StatusOK, MessageResponse{Message: words.deleted})
	}
}

// HandleHistory returns up to 100 history records, newest first.
//
// HTTP: GET /api/users/transaction-history
func (h *LedgerHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.caller(w, r)
	if !ok {
		return
	}

	records, err := h.ledger.GetHistory(r.Context(), userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"transactionHistory": newHistoryViews(records),
	})
}

func (h *LedgerHandler) readEntry(w http.ResponseWriter, r *http.Request) (service.EntryInput, bool) {
	var req entryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return service.EntryInput{}, false
	}
	in, err := req.input()
	if err != nil {
		writeError(w, h.logger, err)
		return service.EntryInput{}, false
	}
	return in, true
}

// caller extracts the authenticated user id. Routes are mounted behind
// auth.RequireAuth, so a miss means the router was wired wrong.
func (h *LedgerHandler) caller(w http.ResponseWriter, r *http.Request) (string, bool) {
	return callerID(w, r, h.logger)
}

func callerID(w http.ResponseWriter, r *http.Request, logger *slog.Logger) (string, bool) {
	id, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, logger, apperror.Unauthenticated("Access Denied. No token provided."))
		return "", false
	}
	return id, true
}
