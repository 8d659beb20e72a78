package users

import (
	"context"
	"errors"
	"strings"

	"test-report-backend/internal/shared/server/middleware"
)

type Service struct {
	Repo Repo
}

func NewService(repo Repo) *Service {
	return &Service{Repo: repo}
}

// Register stores a user record; accounts themselves are issued elsewhere.
func (s *Service) Register(ctx context.Context, user User) error {
	if s == nil || s.Repo == nil {
		return errors.New("users service not configured")
	}
	if strings.TrimSpace(user.ID) == "" || strings.TrimSpace(user.Email) == "" {
		return errors.New("user id and email are required")
	}
	return s.Repo.Upsert(ctx, user)
}

func (s *Service) GetByID(ctx context.Context, userID string) (User, error) {
	if s == nil || s.Repo == nil {
		return User{}, errors.New("users service not configured")
	}
	if strings.TrimSpace(userID) == "" {
		return User{}, errors.New("user id is required")
	}
	return s.Repo.GetByID(ctx, userID)
}

// ResolveIdentity implements middleware.IdentityResolver.
func (s *Service) ResolveIdentity(ctx context.Context, userID string) (middleware.Identity, error) {
	user, err := s.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return middleware.Identity{}, middleware.ErrIdentityNotFound
		}
		return middleware.Identity{}, err
	}
	return middleware.Identity{
		UserID:  user.ID,
		Email:   user.Email,
		Name:    user.FullName,
		Active:  user.Status == StatusActive,
		Deleted: user.IsDeleted,
	}, nil
}

var _ middleware.IdentityResolver = (*Service)(nil)
