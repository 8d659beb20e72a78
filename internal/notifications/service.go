package notifications

import (
	"context"
	"strings"
)

// Service exposes a user's notification inbox.
type Service struct {
	Repo Repo
}

// NewService constructs a Service.
func NewService(repo Repo) *Service {
	return &Service{Repo: repo}
}

// List returns the user's events, newest first.
func (s *Service) List(ctx context.Context, userID string, unreadOnly bool) ([]Event, error) {
	return s.Repo.ListByUser(ctx, userID, unreadOnly)
}

// MarkRead flips the read flag on one of the user's events.
func (s *Service) MarkRead(ctx context.Context, userID, eventID string) error {
	if strings.TrimSpace(eventID) == "" {
		return ErrNotFound
	}
	return s.Repo.MarkRead(ctx, userID, eventID)
}

// Delete hides one of the user's events.
func (s *Service) Delete(ctx context.Context, userID, eventID string) error {
	if strings.TrimSpace(eventID) == "" {
		return ErrNotFound
	}
	return s.Repo.SoftDelete(ctx, userID, eventID)
}
