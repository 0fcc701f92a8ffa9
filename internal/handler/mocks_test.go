package handler

import (
	"context"
	"errors"

	"github.com/contactlearncert-blip/prospection/internal/model"
	"github.com/contactlearncert-blip/prospection/internal/repository"
	"github.com/contactlearncert-blip/prospection/internal/service"
)

// ---------------------------------------------------------------------------
// Mock Authenticator
// ---------------------------------------------------------------------------

type mockAuthenticator struct {
	signUpFunc func(ctx context.Context, email, password, name string) (*service.AuthResult, error)
	signInFunc func(ctx context.Context, email, password string) (*service.AuthResult, error)
	googleFunc func(ctx context.Context, idToken, requestURI string) (*service.AuthResult, error)
	appleFunc  func(ctx context.Context, idToken, requestURI, name string) (*service.AuthResult, error)
	signOutFn  func(ctx context.Context, token string) error
}

func (m *mockAuthenticator) SignUp(ctx context.Context, email, password, name string) (*service.AuthResult, error) {
	if m.signUpFunc != nil {
		return m.signUpFunc(ctx, email, password, name)
	}
	return nil, errors.New("not implemented")
}
func (m *mockAuthenticator) SignIn(ctx context.Context, email, password string) (*service.AuthResult, error) {
	if m.signInFunc != nil {
		return m.signInFunc(ctx, email, password)
	}
	return nil, errors.New("not implemented")
}
func (m *mockAuthenticator) SignInWithGoogle(ctx context.Context, idToken, requestURI string) (*service.AuthResult, error) {
	if m.googleFunc != nil {
		return m.googleFunc(ctx, idToken, requestURI)
	}
	return nil, errors.New("not implemented")
}
func (m *mockAuthenticator) SignInWithApple(ctx context.Context, idToken, requestURI, name string) (*service.AuthResult, error) {
	if m.appleFunc != nil {
		return m.appleFunc(ctx, idToken, requestURI, name)
	}
	return nil, errors.New("not implemented")
}
func (m *mockAuthenticator) SignOut(ctx context.Context, token string) error {
	if m.signOutFn != nil {
		return m.signOutFn(ctx, token)
	}
	return nil
}

func okResult(userID string) *service.AuthResult {
	return &service.AuthResult{
		User:    &model.UserProfile{ID: userID, Email: userID + "@example.fr", Name: "Jean"},
		Session: &model.Session{Token: "session-token", UserID: userID},
	}
}

// ---------------------------------------------------------------------------
// Mock ProspectService
// ---------------------------------------------------------------------------

type mockProspectService struct {
	addFunc          func(ctx context.Context, userID string, p *model.Prospect) (*model.Prospect, error)
	updateStatusFunc func(ctx context.Context, userID, id string, status model.Status) (*model.Prospect, error)
	markSentFunc     func(ctx context.Context, userID, id, message string) (*model.Prospect, error)
	listFunc         func(ctx context.Context, userID string) ([]*model.Prospect, error)
	getFunc          func(ctx context.Context, userID, id string) (*model.Prospect, error)
	subscribeFunc    func(ctx context.Context, userID string, onChange func([]*model.Prospect), onError func(error)) func()
}

func (m *mockProspectService) Add(ctx context.Context, userID string, p *model.Prospect) (*model.Prospect, error) {
	if m.addFunc != nil {
		return m.addFunc(ctx, userID, p)
	}
	return p, nil
}
func (m *mockProspectService) UpdateStatus(ctx context.Context, userID, id string, status model.Status) (*model.Prospect, error) {
	if m.updateStatusFunc != nil {
		return m.updateStatusFunc(ctx, userID, id, status)
	}
	return nil, repository.ErrNotFound
}
func (m *mockProspectService) MarkMessageSent(ctx context.Context, userID, id, message string) (*model.Prospect, error) {
	if m.markSentFunc != nil {
		return m.markSentFunc(ctx, userID, id, message)
	}
	return nil, repository.ErrNotFound
}
func (m *mockProspectService) List(ctx context.Context, userID string) ([]*model.Prospect, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, userID)
	}
	return nil, nil
}
func (m *mockProspectService) Get(ctx context.Context, userID, id string) (*model.Prospect, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, userID, id)
	}
	return nil, repository.ErrNotFound
}
func (m *mockProspectService) Subscribe(ctx context.Context, userID string, onChange func([]*model.Prospect), onError func(error)) func() {
	if m.subscribeFunc != nil {
		return m.subscribeFunc(ctx, userID, onChange, onError)
	}
	return func() {}
}

// ---------------------------------------------------------------------------
// Mock AssistantService
// ---------------------------------------------------------------------------

type mockAssistantService struct {
	evaluateFunc func(ctx context.Context, in model.EvaluateProspectInput) (*model.EvaluationResult, error)
	generateFunc func(ctx context.Context, in model.GenerateMessageInput) (*model.PersonalizedMessage, error)
}

func (m *mockAssistantService) EvaluateProspect(ctx context.Context, in model.EvaluateProspectInput) (*model.EvaluationResult, error) {
	if m.evaluateFunc != nil {
		return m.evaluateFunc(ctx, in)
	}
	return &model.EvaluationResult{}, nil
}
func (m *mockAssistantService) GeneratePersonalizedMessage(ctx context.Context, in model.GenerateMessageInput) (*model.PersonalizedMessage, error) {
	if m.generateFunc != nil {
		return m.generateFunc(ctx, in)
	}
	return &model.PersonalizedMessage{}, nil
}

// ---------------------------------------------------------------------------
// Mock DashboardService
// ---------------------------------------------------------------------------

type mockDashboardService struct {
	overviewFunc func(ctx context.Context, userID string) (*model.Dashboard, error)
}

func (m *mockDashboardService) Overview(ctx context.Context, userID string) (*model.Dashboard, error) {
	if m.overviewFunc != nil {
		return m.overviewFunc(ctx, userID)
	}
	return &model.Dashboard{}, nil
}

// ---------------------------------------------------------------------------
// Mock UserRepository
// ---------------------------------------------------------------------------

type mockUserRepository struct {
	findByIDFunc func(ctx context.Context, id string) (*model.UserProfile, error)
}

func (m *mockUserRepository) FindByID(ctx context.Context, id string) (*model.UserProfile, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, repository.ErrNotFound
}
func (m *mockUserRepository) Create(context.Context, *model.UserProfile) error { return nil }
