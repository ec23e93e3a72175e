package auth

import (
	"context"
	"net/http"
	"strings"
)

// contextKey is unexported so only this package can set or read the user id.
type contextKey string

const userIDKey contextKey = "userID"

// Messages returned to clients on 401. The web client shows them verbatim.
const (
	msgNoToken      = "Access Denied. No token provided."
	msgInvalidToken = "Invalid or expired token."
)

// TokenValidator is the part of TokenService the middleware needs.
type TokenValidator interface {
	Validate(token string) (string, error)
}

// RequireAuth enforces authentication on protected routes.
//
// It reads "Authorization: Bearer <jwt>", validates the token and stores the
// subject in the request context. Anything else stops the chain with 401.
func RequireAuth(tokens TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok {
				unauthorized(w, msgNoToken)
				return
			}

			userID, err := tokens.Validate(raw)
			if err != nil {
				unauthorized(w, msgInvalidToken)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

// WithUserID returns a copy of ctx carrying userID. RequireAuth uses it; tests
// use it to call handlers without minting tokens.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext retrieves the authenticated user's ID from the request
// context. It returns ("", false) on routes that were not authenticated.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

// bearerToken extracts the token from the Authorization header.
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	// message is one of the constants above; no escaping needed.
	_, _ = w.Write([]byte(`{"error":"unauthorized","message":"` + message + `"}`))
}
