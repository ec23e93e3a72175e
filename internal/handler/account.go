package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/mohiuddinsizan/MoneyManagementSystem/internal/model"
	"github.com/mohiuddinsizan/MoneyManagementSystem/internal/service"
)

// AccountService is the part of service.AccountService the handler uses.
type AccountService interface {
	Signup(ctx context.Context, username, password string) (*model.User, error)
	Login(ctx context.Context, username, password string) (*service.LoginResult, error)
}

// AccountHandler serves sign-up and login.
type AccountHandler struct {
	accounts AccountService
	logger   *slog.Logger
}

// NewAccountHandler creates an AccountHandler backed by accounts.
func NewAccountHandler(accounts AccountService, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{accounts: accounts, logger: logger}
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse carries the token plus the profile snapshot the client
// renders right after logging in.
type LoginResponse struct {
	Token        string      `json:"token"`
	Username     string      `json:"username"`
	ProfileImage string      `json:"profileImage"`
	Debts        []entryView `json:"debts"`
	OwedByOthers []entryView `json:"owedByOthers"`
}

// HandleSignup creates an account.
//
// HTTP: POST /api/users/signup
func (h *AccountHandler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	if _, err := h.accounts.Signup(r.Context(), req.Username, req.Password); err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, MessageResponse{Message: "User created successfully"})
}

// HandleLogin checks credentials and returns a bearer token.
//
// HTTP: POST /api/users/login
func (h *AccountHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	res, err := h.accounts.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{
		Token:        res.Token,
		Username:     res.User.Username,
		ProfileImage: res.User.ProfileImageURL,
		Debts:        newEntryViews(res.User.Debts),
		OwedByOthers: newEntryViews(res.User.Credits),
	})
}
