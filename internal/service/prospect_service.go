package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/contactlearncert-blip/prospection/internal/metrics"
	"github.com/contactlearncert-blip/prospection/internal/model"
	"github.com/contactlearncert-blip/prospection/internal/repository"
	"github.com/google/uuid"
)

// Subscriber delivers live snapshots of a user's prospects.
type Subscriber interface {
	Subscribe(userID string, onChange func([]*model.Prospect), onError func(error)) (unsubscribe func())
}

// ProspectService is the business logic for a user's prospect list.
type ProspectService interface {
	// Add stores a new prospect owned by userID. Status, LastContacted, ID
	// and UserID from the caller are ignored.
	Add(ctx context.Context, userID string, p *model.Prospect) (*model.Prospect, error)
	// UpdateStatus sets the status and stamps LastContacted with now.
	UpdateStatus(ctx context.Context, userID, id string, status model.Status) (*model.Prospect, error)
	// MarkMessageSent records that message was sent and moves the prospect to
	// contacted. No message is actually delivered.
	MarkMessageSent(ctx context.Context, userID, id, message string) (*model.Prospect, error)
	List(ctx context.Context, userID string) ([]*model.Prospect, error)
	Get(ctx context.Context, userID, id string) (*model.Prospect, error)
	// Subscribe delivers the full prospect set on every change until ctx is
	// done or unsubscribe is called.
	Subscribe(ctx context.Context, userID string, onChange func([]*model.Prospect), onError func(error)) (unsubscribe func())
}

type prospectServiceImpl struct {
	repo repository.ProspectRepository
	feed Subscriber
	now  func() time.Time
}

// NewProspectService creates a ProspectService.
func NewProspectService(repo repository.ProspectRepository, feed Subscriber) ProspectService {
	return &prospectServiceImpl{repo: repo, feed: feed, now: time.Now}
}

func (s *prospectServiceImpl) Add(ctx context.Context, userID string, p *model.Prospect) (*model.Prospect, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: missing prospect", ErrValidation)
	}
	np := p.Clone()
	if err := normalizeProspect(np); err != nil {
		return nil, err
	}
	np.ID = uuid.NewString()
	np.UserID = userID
	np.Status = model.StatusNew
	np.LastContacted = nil

	if err := s.repo.Create(ctx, np); err != nil {
		slog.Error("create prospect failed", "user_id", userID, "error", err)
		return nil, fmt.Errorf("create prospect: %w", err)
	}
	slog.Info("prospect added", "user_id", userID, "prospect_id", np.ID)
	return np, nil
}

// normalizeProspect trims p in place and validates it.
func normalizeProspect(p *model.Prospect) error {
	p.Name = strings.TrimSpace(p.Name)
	p.Company = strings.TrimSpace(p.Company)
	p.Contact.Email = strings.TrimSpace(p.Contact.Email)

	switch {
	case p.Name == "":
		return fmt.Errorf("%w: name is required", ErrValidation)
	case p.Company == "":
		return fmt.Errorf("%w: company is required", ErrValidation)
	case !p.Industry.Valid():
		return fmt.Errorf("%w: unknown industry %q", ErrValidation, p.Industry)
	}
	if p.Contact.Email != "" {
		if _, err := mail.ParseAddress(p.Contact.Email); err != nil {
			return fmt.Errorf("%w: invalid email", ErrValidation)
		}
	}
	return nil
}

func (s *prospectServiceImpl) UpdateStatus(ctx context.Context, userID, id string, status model.Status) (*model.Prospect, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	p, err := s.repo.UpdateStatus(ctx, userID, id, status, s.now().UTC())
	if err != nil {
		slog.Warn("update status failed", "user_id", userID, "prospect_id", id, "status", status, "error", err)
		return nil, err
	}
	metrics.RecordStatusUpdate(string(status))
	slog.Info("prospect status updated", "user_id", userID, "prospect_id", id, "status", status)
	return p, nil
}

func (s *prospectServiceImpl) MarkMessageSent(ctx context.Context, userID, id, message string) (*model.Prospect, error) {
	if strings.TrimSpace(message) == "" {
		return nil, fmt.Errorf("%w: message is empty", ErrInvalidInput)
	}
	slog.Info("message marked as sent", "user_id", userID, "prospect_id", id, "length", len(message))
	return s.UpdateStatus(ctx, userID, id, model.StatusContacted)
}

func (s *prospectServiceImpl) List(ctx context.Context, userID string) ([]*model.Prospect, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *prospectServiceImpl) Get(ctx context.Context, userID, id string) (*model.Prospect, error) {
	return s.repo.FindByID(ctx, userID, id)
}

func (s *prospectServiceImpl) Subscribe(ctx context.Context, userID string, onChange func([]*model.Prospect), onError func(error)) func() {
	unsubscribe := s.feed.Subscribe(userID, onChange, onError)
	stop := context.AfterFunc(ctx, unsubscribe)
	return func() {
		stop()
		unsubscribe()
	}
}
