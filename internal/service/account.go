package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/mohiuddinsizan/MoneyManagementSystem/internal/apperror"
	"github.com/mohiuddinsizan/MoneyManagementSystem/internal/auth"
	"github.com/mohiuddinsizan/MoneyManagementSystem/internal/model"
	"github.com/mohiuddinsizan/MoneyManagementSystem/internal/repository"
)

// Credential limits.
const (
	MinUsernameLength = 3
	MaxUsernameLength = 32
	MinPasswordLength = 6
)

const msgInvalidCredentials = "invalid credentials"

// AccountService handles sign-up and login.
type AccountService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

// NewAccountService wires signup and login to the user store and the
// token and password services.
func NewAccountService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AccountService {
	return &AccountService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// LoginResult bundles the issued token with the user it was issued for, so
// the handler can answer with the profile snapshot in one response.
type LoginResult struct {
	Token string
	User  *model.User
}

// Signup creates an account with empty ledgers.
func (s *AccountService) Signup(ctx context.Context, username, password string) (*model.User, error) {
	username = strings.TrimSpace(username)
	if n := utf8.RuneCountInString(username); n < MinUsernameLength || n > MaxUsernameLength {
		return nil, apperror.ValidationFailed("username",
			fmt.Sprintf("username must be between %d and %d characters", MinUsernameLength, MaxUsernameLength))
	}
	if len(password) < MinPasswordLength || len(password) > auth.MaxPasswordBytes {
		return nil, apperror.ValidationFailed("password",
			fmt.Sprintf("password must be between %d and %d characters", MinPasswordLength, auth.MaxPasswordBytes))
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("service/account: %w", err)
	}

	user := &model.User{
		Username:     username,
		PasswordHash: hash,
		Debts:        []model.LedgerEntry{},
		Credits:      []model.LedgerEntry{},
		History:      []model.HistoryRecord{},
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, &apperror.AppError{
				Err:     apperror.ErrConflict,
				Message: "User already exists",
				Field:   "username",
			}
		}
		return nil, fmt.Errorf("service/account: creating user %s: %w", username, err)
	}

	s.logger.Info("user signed up",
		slog.String("userID", user.ID),
		slog.String("username", user.Username),
	)
	return user, nil
}

// Login checks the credentials and issues an access token. An unknown user
// and a wrong password produce the same error.
func (s *AccountService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, apperror.Unauthenticated(msgInvalidCredentials)
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthenticated(msgInvalidCredentials)
		}
		return nil, fmt.Errorf("service/account: loading %s: %w", username, err)
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			s.logger.Info("login rejected", slog.String("username", username))
			return nil, apperror.Unauthenticated(msgInvalidCredentials)
		}
		return nil, fmt.Errorf("service/account: %w", err)
	}

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/account: generating token for %s: %w", user.ID, err)
	}

	s.logger.Info("user logged in", slog.String("userID", user.ID))
	return &LoginResult{Token: token, User: user}, nil
}
