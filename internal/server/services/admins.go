package services

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/voxbot/internal/common"
	"github.com/dmitrijs2005/voxbot/internal/logging"
)

// AdminService guards the admin surface.
type AdminService struct {
	Deps
	log logging.Logger
}

func NewAdminService(d Deps) *AdminService {
	d = d.withDefaults()
	return &AdminService{Deps: d, log: d.Logger.With("module", "admins")}
}

// Seed adds the ids configured at start-up. Existing entries are kept.
func (s *AdminService) Seed(ctx context.Context, ids []int64) error {
	repo := s.Repos.Admins(s.DB)
	for _, id := range ids {
		if err := repo.Add(ctx, id); err != nil {
			return fmt.Errorf("seed admin %d: %w", id, err)
		}
	}
	if len(ids) > 0 {
		s.log.Info(ctx, "admins seeded", "count", len(ids))
	}
	return nil
}

func (s *AdminService) Add(ctx context.Context, userID int64) error {
	if userID <= 0 {
		return fmt.Errorf("%w: admin id %d", common.ErrInvalidAmount, userID)
	}
	if err := s.Repos.Admins(s.DB).Add(ctx, userID); err != nil {
		return err
	}
	s.log.Info(ctx, "admin added", "user_id", userID)
	return nil
}

func (s *AdminService) IsAdmin(ctx context.Context, userID int64) (bool, error) {
	return s.Repos.Admins(s.DB).IsAdmin(ctx, userID)
}

func (s *AdminService) List(ctx context.Context) ([]int64, error) {
	return s.Repos.Admins(s.DB).List(ctx)
}

// Authorize returns common.ErrorUnauthorized unless userID is an admin.
func (s *AdminService) Authorize(ctx context.Context, userID int64) error {
	ok, err := s.IsAdmin(ctx, userID)
	if err != nil {
		return err
	}
	if !ok {
		return common.ErrorUnauthorized
	}
	return nil
}
