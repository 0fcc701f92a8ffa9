package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/contactlearncert-blip/prospection/internal/model"
	"github.com/contactlearncert-blip/prospection/internal/repository"
	"github.com/contactlearncert-blip/prospection/pkg/identity"
)

// MinPasswordLength is checked before the provider is called.
const MinPasswordLength = 6

// AuthResult is a signed-in user with a fresh session.
type AuthResult struct {
	User    *model.UserProfile
	Session *model.Session
}

// Authenticator signs users in and out. Every method returns *AuthError on
// failure, except SignOut.
type Authenticator interface {
	SignUp(ctx context.Context, email, password, name string) (*AuthResult, error)
	SignIn(ctx context.Context, email, password string) (*AuthResult, error)
	// SignInWithGoogle and SignInWithApple take the id token obtained by the
	// OAuth exchange and the callback URL it was issued for.
	SignInWithGoogle(ctx context.Context, idToken, requestURI string) (*AuthResult, error)
	SignInWithApple(ctx context.Context, idToken, requestURI, name string) (*AuthResult, error)
	SignOut(ctx context.Context, token string) error
}

// SessionStore is the part of SessionService the authenticator needs.
type SessionStore interface {
	CreateSession(ctx context.Context, userID string) (*model.Session, error)
	DeleteSession(ctx context.Context, token string) error
}

type authenticatorImpl struct {
	provider identity.Client
	users    repository.UserRepository
	sessions SessionStore
}

// NewAuthenticator composes the auth provider, the user profiles and the
// session store.
func NewAuthenticator(provider identity.Client, users repository.UserRepository, sessions SessionStore) Authenticator {
	return &authenticatorImpl{provider: provider, users: users, sessions: sessions}
}

func (a *authenticatorImpl) SignUp(ctx context.Context, email, password, name string) (*AuthResult, error) {
	email = strings.TrimSpace(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, NewAuthError(OpSignUp, &identity.Error{Code: identity.CodeInvalidEmail})
	}
	if len(password) < MinPasswordLength {
		return nil, NewAuthError(OpSignUp, &identity.Error{Code: identity.CodeWeakPassword})
	}

	acc, err := a.provider.SignUp(ctx, email, password)
	if err != nil {
		slog.Warn("sign up rejected", "code", identity.CodeOf(err), "error", err)
		return nil, NewAuthError(OpSignUp, err)
	}
	return a.complete(ctx, OpSignUp, acc, strings.TrimSpace(name), "password")
}

func (a *authenticatorImpl) SignIn(ctx context.Context, email, password string) (*AuthResult, error) {
	acc, err := a.provider.SignInWithPassword(ctx, strings.TrimSpace(email), password)
	if err != nil {
		slog.Warn("sign in rejected", "code", identity.CodeOf(err), "error", err)
		return nil, NewAuthError(OpSignIn, err)
	}
	return a.complete(ctx, OpSignIn, acc, "", "password")
}

func (a *authenticatorImpl) SignInWithGoogle(ctx context.Context, idToken, requestURI string) (*AuthResult, error) {
	return a.signInWithIdP(ctx, identity.ProviderGoogle, idToken, requestURI, "")
}

func (a *authenticatorImpl) SignInWithApple(ctx context.Context, idToken, requestURI, name string) (*AuthResult, error) {
	return a.signInWithIdP(ctx, identity.ProviderApple, idToken, requestURI, name)
}

func (a *authenticatorImpl) signInWithIdP(ctx context.Context, providerID, idToken, requestURI, name string) (*AuthResult, error) {
	acc, err := a.provider.SignInWithIdP(ctx, providerID, idToken, requestURI)
	if err != nil {
		slog.Warn("federated sign in rejected", "provider", providerID, "code", identity.CodeOf(err), "error", err)
		return nil, NewAuthError(OpSignIn, err)
	}
	return a.complete(ctx, OpSignIn, acc, name, providerID)
}

func (a *authenticatorImpl) SignOut(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return a.sessions.DeleteSession(ctx, token)
}

// complete makes sure the user has a profile and opens a session.
func (a *authenticatorImpl) complete(ctx context.Context, op AuthOp, acc *identity.Account, name, provider string) (*AuthResult, error) {
	user, err := a.ensureProfile(ctx, acc, name)
	if err != nil {
		slog.Error("user profile setup failed", "user_id", acc.UserID, "error", err)
		return nil, NewAuthError(op, err)
	}

	session, err := a.sessions.CreateSession(ctx, user.ID)
	if err != nil {
		return nil, NewAuthError(op, fmt.Errorf("create session: %w", err))
	}
	slog.Info("user signed in", "user_id", user.ID, "provider", provider)
	return &AuthResult{User: user, Session: session}, nil
}

// ensureProfile returns the stored profile, creating it on first sign-in.
// Profiles are never updated afterwards.
func (a *authenticatorImpl) ensureProfile(ctx context.Context, acc *identity.Account, name string) (*model.UserProfile, error) {
	u, err := a.users.FindByID(ctx, acc.UserID)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	if name == "" {
		name = acc.DisplayName
	}
	if name == "" {
		name, _, _ = strings.Cut(acc.Email, "@")
	}
	u = &model.UserProfile{ID: acc.UserID, Email: acc.Email, Name: name}
	err = a.users.Create(ctx, u)
	if errors.Is(err, repository.ErrConflict) {
		// Created concurrently by another sign-in.
		return a.users.FindByID(ctx, acc.UserID)
	}
	if err != nil {
		return nil, err
	}
	slog.Info("user profile created", "user_id", u.ID)
	return u, nil
}
