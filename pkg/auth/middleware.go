package auth

import (
	"context"
	"encoding/json"
	"net/http"
)

type contextKey string

const sessionKey contextKey = "session"

// Session identifies the signed-in user of a request.
type Session struct {
	UserID string
	Token  string
}

// SessionValidator resolves a session token to a user id.
type SessionValidator interface {
	ValidateSession(ctx context.Context, token string) (string, error)
}

// WithSession stores s in ctx.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

// SessionFromContext returns the session set by RequireAuth or DevAuth.
func SessionFromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionKey).(Session)
	return s, ok && s.UserID != ""
}

// UserIDFromContext returns the signed-in user id.
func UserIDFromContext(ctx context.Context) (string, bool) {
	s, ok := SessionFromContext(ctx)
	return s.UserID, ok
}

// WithUserID stores a session holding only userID.
func WithUserID(ctx context.Context, userID string) context.Context {
	return WithSession(ctx, Session{UserID: userID})
}

func unauthorized(w http.ResponseWriter, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": code})
}

// RequireAuth rejects requests without a valid session cookie and puts the
// session on the request context otherwise.
func RequireAuth(validator SessionValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName())
			if err != nil || cookie.Value == "" {
				unauthorized(w, "unauthorized")
				return
			}

			userID, err := validator.ValidateSession(r.Context(), cookie.Value)
			if err != nil {
				unauthorized(w, "invalid_session")
				return
			}

			ctx := WithSession(r.Context(), Session{UserID: userID, Token: cookie.Value})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// DevUserID is the user every request acts as when AUTH_REQUIRED=false.
const DevUserID = "dev-user-id"

// DevAuth puts the fixed development user on the request context.
func DevAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := WithSession(r.Context(), Session{UserID: DevUserID})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
