package repository

import (
	"context"
	"time"

	"github.com/contactlearncert-blip/prospection/internal/model"
)

// DB reports whether the underlying store is reachable.
type DB interface {
	Ping(ctx context.Context) error
}

// UserRepository persists user profiles.
type UserRepository interface {
	FindByID(ctx context.Context, id string) (*model.UserProfile, error)
	// Create inserts a profile. It returns ErrConflict when the id is taken.
	Create(ctx context.Context, user *model.UserProfile) error
}

// ProspectRepository persists prospects. Every method is scoped to one user;
// a prospect owned by someone else behaves as if it did not exist.
type ProspectRepository interface {
	Create(ctx context.Context, p *model.Prospect) error
	FindByID(ctx context.Context, userID, id string) (*model.Prospect, error)
	ListByUser(ctx context.Context, userID string) ([]*model.Prospect, error)
	// UpdateStatus sets status and last_contacted and returns the updated row.
	UpdateStatus(ctx context.Context, userID, id string, status model.Status, at time.Time) (*model.Prospect, error)
}
