package registry

import (
	"context"
	"fmt"
	"time"

	"github.com/kgbox/expiry-notifier/internal/domain"
	"github.com/kgbox/expiry-notifier/internal/pkg/validate"
)

// Service manages the device token lifecycle: registration when a device
// installs the app, removal when the device unregisters. Pruning of invalid
// tokens happens in the scan job, not here.
type Service interface {
	Register(ctx context.Context, req domain.RegisterTokenRequest) (*domain.DeviceToken, error)
	Unregister(ctx context.Context, token, tenantID string) error
	List(ctx context.Context, tenantID string) ([]domain.DeviceToken, error)
}

type tokenStore interface {
	Put(ctx context.Context, t *domain.DeviceToken) error
	Get(ctx context.Context, token string) (*domain.DeviceToken, error)
	ListByTenant(ctx context.Context, tenantID string) ([]domain.DeviceToken, error)
	Delete(ctx context.Context, token string) error
}

type service struct {
	tokens tokenStore
}

func NewService(tokens tokenStore) Service {
	return &service{tokens: tokens}
}

func (s *service) Register(ctx context.Context, req domain.RegisterTokenRequest) (*domain.DeviceToken, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%v: %w", err, domain.ErrInvalidArgument)
	}
	t := &domain.DeviceToken{
		Token:     req.Token,
		TenantID:  req.TenantID,
		Platform:  req.Platform,
		CreatedAt: time.Now().UTC(),
	}
	// Put is idempotent: re-registering an existing token refreshes it.
	if err := s.tokens.Put(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *service) Unregister(ctx context.Context, token, tenantID string) error {
	existing, err := s.tokens.Get(ctx, token)
	if err != nil {
		return err
	}
	if existing.TenantID != tenantID {
		return fmt.Errorf("token belongs to another tenant: %w", domain.ErrNotFound)
	}
	return s.tokens.Delete(ctx, token)
}

func (s *service) List(ctx context.Context, tenantID string) ([]domain.DeviceToken, error) {
	return s.tokens.ListByTenant(ctx, tenantID)
}
