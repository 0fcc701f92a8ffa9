package service

import (
	"context"

	"github.com/contactlearncert-blip/prospection/internal/model"
	"github.com/contactlearncert-blip/prospection/internal/repository"
	"github.com/contactlearncert-blip/prospection/internal/view"
)

// DashboardService computes the dashboard of a user.
type DashboardService interface {
	Overview(ctx context.Context, userID string) (*model.Dashboard, error)
}

type dashboardServiceImpl struct {
	repo repository.ProspectRepository
}

// NewDashboardService creates a DashboardService.
func NewDashboardService(repo repository.ProspectRepository) DashboardService {
	return &dashboardServiceImpl{repo: repo}
}

func (s *dashboardServiceImpl) Overview(ctx context.Context, userID string) (*model.Dashboard, error) {
	prospects, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	d := view.BuildDashboard(prospects)
	return &d, nil
}
