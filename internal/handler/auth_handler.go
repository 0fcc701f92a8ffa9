package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/contactlearncert-blip/prospection/internal/model"
	"github.com/contactlearncert-blip/prospection/internal/service"
	"github.com/contactlearncert-blip/prospection/pkg/auth"
	"github.com/contactlearncert-blip/prospection/pkg/identity"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	GoogleCallbackPath = "/api/auth/google/callback"
	AppleCallbackPath  = "/api/auth/apple/callback"
)

var appleEndpoint = oauth2.Endpoint{
	AuthURL:   "https://appleid.apple.com/auth/authorize",
	TokenURL:  "https://appleid.apple.com/auth/token",
	AuthStyle: oauth2.AuthStyleInParams,
}

// AuthHandler serves email/password and OAuth sign-in.
type AuthHandler struct {
	authenticator service.Authenticator
	google        *oauth2.Config
	apple         *oauth2.Config
	stateSecret   []byte
	frontendURL   string
	secure        bool
	now           func() time.Time
}

// AuthConfig configures AuthHandler.
type AuthConfig struct {
	GoogleClientID     string
	GoogleClientSecret string
	AppleClientID      string
	// AppleClientSecret is the pre-generated client secret JWT.
	AppleClientSecret string
	BackendURL        string
	SessionSecret     string
	FrontendURL       string
	// Secure marks cookies Secure; set in production.
	Secure bool
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(authenticator service.Authenticator, cfg AuthConfig) *AuthHandler {
	backend := strings.TrimSuffix(cfg.BackendURL, "/")
	if backend == "" {
		backend = "http://localhost:8080"
	}

	return &AuthHandler{
		authenticator: authenticator,
		google: &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  backend + GoogleCallbackPath,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
		apple: &oauth2.Config{
			ClientID:     cfg.AppleClientID,
			ClientSecret: cfg.AppleClientSecret,
			RedirectURL:  backend + AppleCallbackPath,
			Scopes:       []string{"name", "email"},
			Endpoint:     appleEndpoint,
		},
		stateSecret: auth.SessionSecretBytes(cfg.SessionSecret),
		frontendURL: cfg.FrontendURL,
		secure:      cfg.Secure,
		now:         time.Now,
	}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type authResponse struct {
	User *model.UserProfile `json:"user"`
}

// SignUp handles POST /api/auth/signup.
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	res, err := h.authenticator.SignUp(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		writeAuthError(w, service.OpSignUp, err)
		return
	}
	h.setSessionCookie(w, res.Session)
	writeJSON(w, http.StatusCreated, authResponse{User: res.User})
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	res, err := h.authenticator.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		writeAuthError(w, service.OpSignIn, err)
		return
	}
	h.setSessionCookie(w, res.Session)
	writeJSON(w, http.StatusOK, authResponse{User: res.User})
}

// Logout handles POST /api/auth/logout. It always clears the cookie.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(auth.SessionCookieName()); err == nil {
		if err := h.authenticator.SignOut(r.Context(), cookie.Value); err != nil {
			slog.Warn("session delete failed on logout", "error", err)
		}
	}
	h.clearCookie(w, auth.SessionCookieName())
	writeJSON(w, http.StatusOK, map[string]string{"ok": "true"})
}

// GoogleLoginURL returns the Google consent URL (GET /api/auth/google/login).
func (h *AuthHandler) GoogleLoginURL(w http.ResponseWriter, r *http.Request) {
	if h.google.ClientID == "" {
		writeError(w, http.StatusNotFound, "provider_disabled")
		return
	}
	state, ok := h.startOAuth(w, http.SameSiteLaxMode)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": h.google.AuthCodeURL(state)})
}

// GoogleCallback completes the Google flow (GET /api/auth/google/callback).
func (h *AuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	idToken, ok := h.finishOAuth(w, r, h.google, q.Get("error"), q.Get("state"), q.Get("code"))
	if !ok {
		return
	}

	res, err := h.authenticator.SignInWithGoogle(r.Context(), idToken, h.google.RedirectURL)
	if err != nil {
		h.redirectError(w, r, service.NewAuthError(service.OpSignIn, err).Code)
		return
	}
	h.setSessionCookie(w, res.Session)
	http.Redirect(w, r, h.frontendURL+"/dashboard", http.StatusFound)
}

// AppleLoginURL returns the Apple consent URL (GET /api/auth/apple/login).
// Apple posts the result back as a form, so the state cookie must survive a
// cross-site POST.
func (h *AuthHandler) AppleLoginURL(w http.ResponseWriter, r *http.Request) {
	if h.apple.ClientID == "" {
		writeError(w, http.StatusNotFound, "provider_disabled")
		return
	}
	sameSite := http.SameSiteLaxMode
	if h.secure {
		sameSite = http.SameSiteNoneMode
	}
	state, ok := h.startOAuth(w, sameSite)
	if !ok {
		return
	}
	consent := h.apple.AuthCodeURL(state, oauth2.SetAuthURLParam("response_mode", "form_post"))
	writeJSON(w, http.StatusOK, map[string]string{"url": consent})
}

// appleUser is the "user" form field Apple sends on the first sign-in only.
type appleUser struct {
	Name struct {
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
	} `json:"name"`
}

// AppleCallback completes the Apple flow (POST /api/auth/apple/callback).
func (h *AuthHandler) AppleCallback(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.redirectError(w, r, identity.CodeInternal)
		return
	}
	f := r.PostForm
	idToken, ok := h.finishOAuth(w, r, h.apple, f.Get("error"), f.Get("state"), f.Get("code"))
	if !ok {
		return
	}

	var name string
	if raw := f.Get("user"); raw != "" {
		var u appleUser
		if err := json.Unmarshal([]byte(raw), &u); err == nil {
			name = strings.TrimSpace(u.Name.FirstName + " " + u.Name.LastName)
		}
	}

	res, err := h.authenticator.SignInWithApple(r.Context(), idToken, h.apple.RedirectURL, name)
	if err != nil {
		h.redirectError(w, r, service.NewAuthError(service.OpSignIn, err).Code)
		return
	}
	h.setSessionCookie(w, res.Session)
	http.Redirect(w, r, h.frontendURL+"/dashboard", http.StatusFound)
}

// startOAuth issues a new state and stores its signed form in a cookie.
func (h *AuthHandler) startOAuth(w http.ResponseWriter, sameSite http.SameSite) (string, bool) {
	state, signed, err := auth.NewOAuthState(h.stateSecret, h.now())
	if err != nil {
		slog.Error("oauth state generation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error")
		return "", false
	}
	http.SetCookie(w, &http.Cookie{
		Name:     auth.StateCookieName(),
		Value:    signed,
		Path:     "/",
		MaxAge:   int(auth.StateDuration.Seconds()),
		HttpOnly: true,
		SameSite: sameSite,
		Secure:   h.secure,
	})
	return state, true
}

// finishOAuth checks the provider response and the state, then exchanges the
// code for an id token. On failure it has already redirected.
func (h *AuthHandler) finishOAuth(w http.ResponseWriter, r *http.Request, cfg *oauth2.Config, providerErr, state, code string) (string, bool) {
	cookie, cookieErr := r.Cookie(auth.StateCookieName())
	h.clearCookie(w, auth.StateCookieName())

	switch providerErr {
	case "":
	case "access_denied", "user_cancelled_authorize":
		h.redirectError(w, r, identity.CodePopupClosedByUser)
		return "", false
	default:
		slog.Warn("oauth provider returned an error", "provider_error", providerErr)
		h.redirectError(w, r, identity.CodeInternal)
		return "", false
	}

	if cookieErr != nil {
		h.redirectError(w, r, "invalid_state")
		return "", false
	}
	if err := auth.VerifyOAuthState(state, cookie.Value, h.stateSecret, h.now()); err != nil {
		slog.Warn("oauth state rejected", "error", err)
		h.redirectError(w, r, "invalid_state")
		return "", false
	}
	if code == "" {
		h.redirectError(w, r, "no_code")
		return "", false
	}

	token, err := cfg.Exchange(r.Context(), code)
	if err != nil {
		slog.Warn("oauth code exchange failed", "error", err)
		h.redirectError(w, r, "exchange_failed")
		return "", false
	}
	idToken, _ := token.Extra("id_token").(string)
	if idToken == "" {
		h.redirectError(w, r, "exchange_failed")
		return "", false
	}
	return idToken, true
}

func (h *AuthHandler) redirectError(w http.ResponseWriter, r *http.Request, code string) {
	http.Redirect(w, r, h.frontendURL+"/login?error="+url.QueryEscape(code), http.StatusFound)
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, s *model.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookieName(),
		Value:    s.Token,
		Path:     "/",
		MaxAge:   int(auth.SessionDuration.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.secure,
	})
}

func (h *AuthHandler) clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Expires:  time.Unix(0, 0),
		Secure:   h.secure,
	})
}

func authStatus(code string) int {
	switch code {
	case identity.CodeUserNotFound, identity.CodeWrongPassword, identity.CodeInvalidCredential, identity.CodeUserDisabled:
		return http.StatusUnauthorized
	case identity.CodeEmailAlreadyInUse, identity.CodeAccountExistsWithDifferentCredential:
		return http.StatusConflict
	case identity.CodeInvalidEmail, identity.CodeWeakPassword:
		return http.StatusBadRequest
	case identity.CodeTooManyRequests:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func writeAuthError(w http.ResponseWriter, op service.AuthOp, err error) {
	var ae *service.AuthError
	if !errors.As(err, &ae) {
		ae = service.NewAuthError(op, err)
	}
	writeJSON(w, authStatus(ae.Code), ae)
}
