package notification

import (
	"context"
	"fmt"

	"github.com/kgbox/expiry-notifier/internal/domain"
)

// Service is the client-facing read surface over notification records.
// The scan job creates records; this service only reads and dismisses them.
type Service interface {
	ListUnread(ctx context.Context, tenantID string) ([]domain.Notification, error)
	MarkAsRead(ctx context.Context, notificationID, tenantID string) (*domain.Notification, error)
}

type notificationStore interface {
	ListUnread(ctx context.Context, tenantID string) ([]domain.Notification, error)
	Get(ctx context.Context, notificationID string) (*domain.Notification, error)
	MarkAsRead(ctx context.Context, notificationID string) (*domain.Notification, error)
}

type service struct {
	repo notificationStore
}

func NewService(repo notificationStore) Service {
	return &service{repo: repo}
}

func (s *service) ListUnread(ctx context.Context, tenantID string) ([]domain.Notification, error) {
	return s.repo.ListUnread(ctx, tenantID)
}

func (s *service) MarkAsRead(ctx context.Context, notificationID, tenantID string) (*domain.Notification, error) {
	n, err := s.repo.Get(ctx, notificationID)
	if err != nil {
		return nil, err
	}
	if n.TenantID != tenantID {
		return nil, fmt.Errorf("notification belongs to another tenant: %w", domain.ErrNotFound)
	}
	return s.repo.MarkAsRead(ctx, notificationID)
}
