package handler_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohiuddinsizan/MoneyManagementSystem/internal/apperror"
	"github.com/mohiuddinsizan/MoneyManagementSystem/internal/handler"
	"github.com/mohiuddinsizan/MoneyManagementSystem/internal/model"
	"github.com/mohiuddinsizan/MoneyManagementSystem/internal/service"
)

// ledgerRouter mounts the ledger routes so chi fills in {id}.
func ledgerRouter(h *handler.LedgerHandler) http.Handler {
	r := chi.NewRouter()
	r.Get("/api/users/profile", h.HandleProfile)
	r.Post("/api/users/add-debt", h.HandleAdd(model.KindDebt))
	r.Post("/api/users/add-owed", h.HandleAdd(model.KindCredit))
	r.Put("/api/users/update-debt/{id}", h.HandleUpdate(model.KindDebt))
	r.Put("/api/users/update-owed/{id}", h.HandleUpdate(model.KindCredit))
	r.Delete("/api/users/delete-debt/{id}", h.HandleDelete(model.KindDebt))
	r.Delete("/api/users/delete-owed/{id}", h.HandleDelete(model.KindCredit))
	r.Get("/api/users/transaction-history", h.HandleHistory)
	return r
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, asUser(req, "user-1"))
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	return body
}

var when = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestLedgerHandler_Add(t *testing.T) {
	entry := model.LedgerEntry{ID: "e1", Name: "Bob", Amount: decimal.RequireFromString("12.5"), CreatedAt: when}

	t.Run("debt", func(t *testing.T) {
		m := &MockLedger{ReturnEntry: entry, ReturnLedger: []model.LedgerEntry{entry}}
		rr := doJSON(t, ledgerRouter(handler.NewLedgerHandler(m, testLogger)),
			http.MethodPost, "/api/users/add-debt", `{"name":"Bob","amount":12.5}`)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "user-1", m.CapturedUser)
		assert.Equal(t, model.KindDebt, m.CapturedKind)
		assert.Equal(t, "Bob", m.CapturedInput.Name)
		require.NotNil(t, m.CapturedInput.Amount)
		assert.True(t, m.CapturedInput.Amount.Equal(decimal.RequireFromString("12.5")))

		body := decodeBody(t, rr)
		assert.Equal(t, "Debt added successfully", body["message"])
		debt := body["debt"].(map[string]any)
		assert.Equal(t, "e1", debt["_id"])
		assert.Equal(t, 12.5, debt["amount"], "amounts are JSON numbers")
		assert.Equal(t, "2026-03-01T12:00:00Z", debt["timestamp"])
		assert.Len(t, body["debts"], 1)
	})

	t.Run("owed uses the client's wording", func(t *testing.T) {
		m := &MockLedger{ReturnEntry: entry, ReturnLedger: []model.LedgerEntry{entry}}
		rr := doJSON(t, ledgerRouter(handler.NewLedgerHandler(m, testLogger)),
			http.MethodPost, "/api/users/add-owed", `{"name":"Bob","amount":"12.5"}`)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, model.KindCredit, m.CapturedKind)
		body := decodeBody(t, rr)
		assert.Equal(t, "Owed amount added successfully", body["message"])
		assert.Contains(t, body, "owed")
		assert.Contains(t, body, "owedByOthers")
	})

	t.Run("missing amount reaches the service as nil", func(t *testing.T) {
		m := &MockLedger{ReturnErr: apperror.ValidationFailed("amount", "amount is required")}
		rr := doJSON(t, ledgerRouter(handler.NewLedgerHandler(m, testLogger)),
			http.MethodPost, "/api/users/add-debt", `{"name":"Bob"}`)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Nil(t, m.CapturedInput.Amount)
		body := decodeBody(t, rr)
		assert.Equal(t, "validation_error", body["error"])
		assert.Equal(t, "amount", body["field"])
	})

	t.Run("non-numeric amount", func(t *testing.T) {
		m := &MockLedger{}
		rr := doJSON(t, ledgerRouter(handler.NewLedgerHandler(m, testLogger)),
			http.MethodPost, "/api/users/add-debt", `{"name":"Bob","amount":"ten"}`)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Empty(t, m.CapturedUser, "service must not be called")
		assert.Equal(t, "amount", decodeBody(t, rr)["field"])
	})

	t.Run("huge exponent reaches the service unexpanded", func(t *testing.T) {
		m := &MockLedger{ReturnErr: apperror.ValidationFailed("amount", "amount must not exceed 1000000000000")}
		rr := doJSON(t, ledgerRouter(handler.NewLedgerHandler(m, testLogger)),
			http.MethodPost, "/api/users/add-debt", `{"name":"Bob","amount":1e3000000}`)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		require.NotNil(t, m.CapturedInput.Amount)
		assert.EqualValues(t, 3000000, m.CapturedInput.Amount.Exponent())
		assert.Equal(t, "amount", decodeBody(t, rr)["field"])
	})

	t.Run("malformed JSON", func(t *testing.T) {
		m := &MockLedger{}
		rr := doJSON(t, ledgerRouter(handler.NewLedgerHandler(m, testLogger)),
			http.MethodPost, "/api/users/add-debt", `{"name":`)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Empty(t, m.CapturedUser)
	})
}

func TestLedgerHandler_UpdateAndDelete(t *testing.T) {
	entry := model.LedgerEntry{ID: "e7", Name: "Dan", Amount: decimal.NewFromInt(30), CreatedAt: when}

	t.Run("update passes the path id", func(t *testing.T) {
		m := &MockLedger{ReturnEntry: entry}
		rr := doJSON(t, ledgerRouter(handler.NewLedgerHandler(m, testLogger)),
			http.MethodPut, "/api/users/update-owed/e7", `{"name":"Dan","amount":30}`)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "e7", m.CapturedID)
		assert.Equal(t, model.KindCredit, m.CapturedKind)
		body := decodeBody(t, rr)
		assert.Equal(t, "Owed amount updated successfully", body["message"])
		assert.Equal(t, "e7", body["owed"].(map[string]any)["_id"])
	})

	t.Run("update of unknown entry", func(t *testing.T) {
		m := &MockLedger{ReturnErr: apperror.NotFound("debt", "nope")}
		rr := doJSON(t, ledgerRouter(handler.NewLedgerHandler(m, testLogger)),
			http.MethodPut, "/api/users/update-debt/nope", `{"name":"Dan","amount":1}`)

		assert.Equal(t, http.StatusNotFound, rr.Code)
		assert.Equal(t, "not_found", decodeBody(t, rr)["error"])
	})

	t.Run("delete", func(t *testing.T) {
		m := &MockLedger{}
		rr := doJSON(t, ledgerRouter(handler.NewLedgerHandler(m, testLogger)),
			http.MethodDelete, "/api/users/delete-debt/e7", "")

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "e7", m.CapturedID)
		assert.Equal(t, model.KindDebt, m.CapturedKind)
		assert.Equal(t, "Debt deleted successfully", decodeBody(t, rr)["message"])
	})
}

func TestLedgerHandler_ProfileAndHistory(t *testing.T) {
	m := &MockLedger{
		ReturnProfile: &service.Profile{
			Username:    "alice",
			TotalDebt:   decimal.RequireFromString("0.3"),
			TotalCredit: decimal.Zero,
			Debts: []model.LedgerEntry{
				{ID: "a", Name: "x", Amount: decimal.RequireFromString("0.1"), CreatedAt: when},
				{ID: "b", Name: "y", Amount: decimal.RequireFromString("0.2"), CreatedAt: when},
			},
		},
		ReturnHistory: []model.HistoryRecord{
			{Kind: model.KindCredit, Name: "new", Amount: decimal.NewFromInt(2), CreatedAt: when},
			{Kind: model.KindDebt, Name: "old", Amount: decimal.NewFromInt(1), CreatedAt: when},
		},
	}
	router := ledgerRouter(handler.NewLedgerHandler(m, testLogger))

	rr := doJSON(t, router, http.MethodGet, "/api/users/profile", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{
		"username": "alice",
		"profileImage": "",
		"totalDebt": 0.3,
		"totalOwed": 0,
		"debts": [
			{"_id": "a", "name": "x", "amount": 0.1, "timestamp": "2026-03-01T12:00:00Z"},
			{"_id": "b", "name": "y", "amount": 0.2, "timestamp": "2026-03-01T12:00:00Z"}
		],
		"owedByOthers": []
	}`, rr.Body.String())

	rr = doJSON(t, router, http.MethodGet, "/api/users/transaction-history", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"transactionHistory": [
		{"type": "credit", "name": "new", "amount": 2, "timestamp": "2026-03-01T12:00:00Z"},
		{"type": "debt", "name": "old", "amount": 1, "timestamp": "2026-03-01T12:00:00Z"}
	]}`, rr.Body.String())
}

func TestLedgerHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
		wantMsg    string
	}{
		{"not found", apperror.NotFound("user", "u1"), http.StatusNotFound, "not_found", "user not found with id u1"},
		{"unavailable", apperror.Unavailable(errors.New("busy")), http.StatusServiceUnavailable, "unavailable", "storage temporarily unavailable, please retry"},
		{"retries exhausted", apperror.Unavailable(apperror.Conflict("user", "stale")), http.StatusServiceUnavailable, "unavailable", "storage temporarily unavailable, please retry"},
		{"internal", errors.New("SELECT * FROM secrets failed"), http.StatusInternalServerError, "internal_error", "An internal error occurred"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &MockLedger{ReturnErr: tt.err}
			rr := doJSON(t, ledgerRouter(handler.NewLedgerHandler(m, testLogger)),
				http.MethodGet, "/api/users/profile", "")

			assert.Equal(t, tt.wantStatus, rr.Code)
			body := decodeBody(t, rr)
			assert.Equal(t, tt.wantType, body["error"])
			assert.Equal(t, tt.wantMsg, body["message"])
		})
	}
}

func TestLedgerHandler_NoCaller(t *testing.T) {
	m := &MockLedger{}
	h := handler.NewLedgerHandler(m, testLogger)

	req := httptest.NewRequest(http.MethodGet, "/api/users/profile", nil)
	rr := httptest.NewRecorder()
	h.HandleProfile(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Empty(t, m.CapturedUser)
}
