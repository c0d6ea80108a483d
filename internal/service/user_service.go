package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Freeeeeet/ltrc_platform/internal/model"
)

const recentUsersLimit = 5

type UserStore interface {
	GetByID(ctx context.Context, id string) (*model.User, error)
	Counts(ctx context.Context) (total, admins int, err error)
	ListRecent(ctx context.Context, limit int) ([]*model.User, error)
}

// DashboardStats feeds the admin dashboard.
type DashboardStats struct {
	TotalUsers  int           `json:"totalUsers"`
	TotalAdmins int           `json:"totalAdmins"`
	RecentUsers []*model.User `json:"recentUsers"`
}

type UserService struct {
	users  UserStore
	logger *zap.Logger
}

func NewUserService(users UserStore, logger *zap.Logger) *UserService {
	return &UserService{
		users:  users,
		logger: logger,
	}
}

// ProfileByID returns nil, nil when the profile does not exist.
func (s *UserService) ProfileByID(ctx context.Context, id string) (*model.User, error) {
	return s.users.GetByID(ctx, id)
}

func (s *UserService) Stats(ctx context.Context) (*DashboardStats, error) {
	total, admins, err := s.users.Counts(ctx)
	if err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}

	recent, err := s.users.ListRecent(ctx, recentUsersLimit)
	if err != nil {
		return nil, fmt.Errorf("list recent users: %w", err)
	}
	if recent == nil {
		recent = []*model.User{}
	}

	return &DashboardStats{
		TotalUsers:  total,
		TotalAdmins: admins,
		RecentUsers: recent,
	}, nil
}
