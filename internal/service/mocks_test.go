package service

import (
	"context"
	"errors"
	"time"

	"github.com/contactlearncert-blip/prospection/internal/model"
	"github.com/contactlearncert-blip/prospection/internal/repository"
	"github.com/contactlearncert-blip/prospection/pkg/identity"
)

// ---------------------------------------------------------------------------
// Mock SessionRepository
// ---------------------------------------------------------------------------

type mockSessionRepository struct {
	createFunc         func(ctx context.Context, s *model.Session) error
	findByTokenFunc    func(ctx context.Context, token string) (*model.Session, error)
	deleteByTokenFunc  func(ctx context.Context, token string) error
	deleteByUserIDFunc func(ctx context.Context, userID string) error
}

func (m *mockSessionRepository) Create(ctx context.Context, s *model.Session) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, s)
	}
	return nil
}
func (m *mockSessionRepository) FindByToken(ctx context.Context, token string) (*model.Session, error) {
	if m.findByTokenFunc != nil {
		return m.findByTokenFunc(ctx, token)
	}
	return nil, repository.ErrNotFound
}
func (m *mockSessionRepository) DeleteByToken(ctx context.Context, token string) error {
	if m.deleteByTokenFunc != nil {
		return m.deleteByTokenFunc(ctx, token)
	}
	return nil
}
func (m *mockSessionRepository) DeleteByUserID(ctx context.Context, userID string) error {
	if m.deleteByUserIDFunc != nil {
		return m.deleteByUserIDFunc(ctx, userID)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Mock UserRepository
// ---------------------------------------------------------------------------

type mockUserRepository struct {
	findByIDFunc func(ctx context.Context, id string) (*model.UserProfile, error)
	createFunc   func(ctx context.Context, user *model.UserProfile) error
}

func (m *mockUserRepository) FindByID(ctx context.Context, id string) (*model.UserProfile, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, repository.ErrNotFound
}
func (m *mockUserRepository) Create(ctx context.Context, user *model.UserProfile) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, user)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Mock ProspectRepository
// ---------------------------------------------------------------------------

type mockProspectRepository struct {
	createFunc       func(ctx context.Context, p *model.Prospect) error
	findByIDFunc     func(ctx context.Context, userID, id string) (*model.Prospect, error)
	listByUserFunc   func(ctx context.Context, userID string) ([]*model.Prospect, error)
	updateStatusFunc func(ctx context.Context, userID, id string, status model.Status, at time.Time) (*model.Prospect, error)
}

func (m *mockProspectRepository) Create(ctx context.Context, p *model.Prospect) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, p)
	}
	return nil
}
func (m *mockProspectRepository) FindByID(ctx context.Context, userID, id string) (*model.Prospect, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, userID, id)
	}
	return nil, repository.ErrNotFound
}
func (m *mockProspectRepository) ListByUser(ctx context.Context, userID string) ([]*model.Prospect, error) {
	if m.listByUserFunc != nil {
		return m.listByUserFunc(ctx, userID)
	}
	return nil, nil
}
func (m *mockProspectRepository) UpdateStatus(ctx context.Context, userID, id string, status model.Status, at time.Time) (*model.Prospect, error) {
	if m.updateStatusFunc != nil {
		return m.updateStatusFunc(ctx, userID, id, status, at)
	}
	return nil, repository.ErrNotFound
}

// ---------------------------------------------------------------------------
// Mock identity.Client
// ---------------------------------------------------------------------------

type mockIdentity struct {
	signUpFunc func(ctx context.Context, email, password string) (*identity.Account, error)
	signInFunc func(ctx context.Context, email, password string) (*identity.Account, error)
	signInIdP  func(ctx context.Context, providerID, idToken, requestURI string) (*identity.Account, error)
}

func (m *mockIdentity) SignUp(ctx context.Context, email, password string) (*identity.Account, error) {
	if m.signUpFunc != nil {
		return m.signUpFunc(ctx, email, password)
	}
	return nil, errors.New("not implemented")
}
func (m *mockIdentity) SignInWithPassword(ctx context.Context, email, password string) (*identity.Account, error) {
	if m.signInFunc != nil {
		return m.signInFunc(ctx, email, password)
	}
	return nil, errors.New("not implemented")
}
func (m *mockIdentity) SignInWithIdP(ctx context.Context, providerID, idToken, requestURI string) (*identity.Account, error) {
	if m.signInIdP != nil {
		return m.signInIdP(ctx, providerID, idToken, requestURI)
	}
	return nil, errors.New("not implemented")
}

// ---------------------------------------------------------------------------
// Mock SessionStore
// ---------------------------------------------------------------------------

type mockSessionStore struct {
	createFunc func(ctx context.Context, userID string) (*model.Session, error)
	deleteFunc func(ctx context.Context, token string) error
}

func (m *mockSessionStore) CreateSession(ctx context.Context, userID string) (*model.Session, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, userID)
	}
	return &model.Session{Token: "tok-" + userID, UserID: userID}, nil
}
func (m *mockSessionStore) DeleteSession(ctx context.Context, token string) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, token)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Mock Subscriber
// ---------------------------------------------------------------------------

type mockSubscriber struct {
	subscribeFunc func(userID string, onChange func([]*model.Prospect), onError func(error)) func()
}

func (m *mockSubscriber) Subscribe(userID string, onChange func([]*model.Prospect), onError func(error)) func() {
	if m.subscribeFunc != nil {
		return m.subscribeFunc(userID, onChange, onError)
	}
	return func() {}
}

// ---------------------------------------------------------------------------
// Stub flow runners
// ---------------------------------------------------------------------------

type stubRunner[In, Out any] struct {
	runFunc func(ctx context.Context, in In) (Out, error)
	calls   []In
}

func (r *stubRunner[In, Out]) Run(ctx context.Context, in In) (Out, error) {
	r.calls = append(r.calls, in)
	return r.runFunc(ctx, in)
}
