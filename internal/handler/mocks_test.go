package handler_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/mohiuddinsizan/MoneyManagementSystem/internal/auth"
	"github.com/mohiuddinsizan/MoneyManagementSystem/internal/model"
	"github.com/mohiuddinsizan/MoneyManagementSystem/internal/service"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

// MockLedger records the last call and returns canned results.
type MockLedger struct {
	CapturedUser  string
	CapturedKind  model.EntryKind
	CapturedID    string
	CapturedInput service.EntryInput

	ReturnEntry   model.LedgerEntry
	ReturnLedger  []model.LedgerEntry
	ReturnProfile *service.Profile
	ReturnHistory []model.HistoryRecord
	ReturnErr     error
}

func (m *MockLedger) AddEntry(_ context.Context, userID string, kind model.EntryKind, in service.EntryInput) (model.LedgerEntry, []model.LedgerEntry, error) {
	m.CapturedUser, m.CapturedKind, m.CapturedInput = userID, kind, in
	return m.ReturnEntry, m.ReturnLedger, m.ReturnErr
}

func (m *MockLedger) UpdateEntry(_ context.Context, userID string, kind model.EntryKind, entryID string, in service.EntryInput) (model.LedgerEntry, error) {
	m.CapturedUser, m.CapturedKind, m.CapturedID, m.CapturedInput = userID, kind, entryID, in
	return m.ReturnEntry, m.ReturnErr
}

func (m *MockLedger) DeleteEntry(_ context.Context, userID string, kind model.EntryKind, entryID string) error {
	m.CapturedUser, m.CapturedKind, m.CapturedID = userID, kind, entryID
	return m.ReturnErr
}

func (m *MockLedger) GetProfile(_ context.Context, userID string) (*service.Profile, error) {
	m.CapturedUser = userID
	return m.ReturnProfile, m.ReturnErr
}

func (m *MockLedger) GetHistory(_ context.Context, userID string) ([]model.HistoryRecord, error) {
	m.CapturedUser = userID
	return m.ReturnHistory, m.ReturnErr
}

// MockAccounts stands in for service.AccountService.
type MockAccounts struct {
	CapturedUsername string
	CapturedPassword string

	ReturnUser  *model.User
	ReturnLogin *service.LoginResult
	ReturnErr   error
}

func (m *MockAccounts) Signup(_ context.Context, username, password string) (*model.User, error) {
	m.CapturedUsername, m.CapturedPassword = username, password
	return m.ReturnUser, m.ReturnErr
}

func (m *MockAccounts) Login(_ context.Context, username, password string) (*service.LoginResult, error) {
	m.CapturedUsername, m.CapturedPassword = username, password
	return m.ReturnLogin, m.ReturnErr
}

// MockImages stands in for service.ProfileImageService.
type MockImages struct {
	CapturedFilename    string
	CapturedContentType string
	CapturedBody        []byte

	ReturnURL string
	ReturnErr error
}

func (m *MockImages) Upload(_ context.Context, _ string, filename, contentType string, body io.Reader) (string, error) {
	m.CapturedFilename, m.CapturedContentType = filename, contentType
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	m.CapturedBody = data
	return m.ReturnURL, m.ReturnErr
}

// asUser attaches an authenticated user id the way auth.RequireAuth would.
func asUser(r *http.Request, userID string) *http.Request {
	return r.WithContext(auth.WithUserID(r.Context(), userID))
}
