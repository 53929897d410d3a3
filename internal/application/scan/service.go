package scan

import (
	"context"
	"fmt"
	"time"

	"github.com/kgbox/expiry-notifier/internal/application/expiry"
	"github.com/kgbox/expiry-notifier/internal/domain"
)

// Service scans the product catalog and aggregates expiry state per tenant.
type Service interface {
	// Scan reads every product (optionally one tenant's) and returns the
	// per-tenant aggregates. Tenants with nothing expired or near-expiry
	// still appear with zero counts so callers can answer count queries.
	Scan(ctx context.Context, tenantID string) (map[string]*domain.TenantAggregate, error)
}

type productStore interface {
	ListForExpiry(ctx context.Context, tenantID string) ([]domain.Product, error)
}

type service struct {
	products productStore
	horizon  time.Duration
	// now is swappable for tests; each Scan captures one reference instant.
	now func() time.Time
}

func NewService(products productStore, horizon time.Duration) Service {
	return &service{products: products, horizon: horizon, now: time.Now}
}

func (s *service) Scan(ctx context.Context, tenantID string) (map[string]*domain.TenantAggregate, error) {
	items, err := s.products.ListForExpiry(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("query products: %v: %w", err, domain.ErrScanFailed)
	}

	// One reference instant for the whole aggregate.
	now := s.now()

	out := make(map[string]*domain.TenantAggregate)
	for _, p := range items {
		tenant := p.TenantID
		if tenant == "" {
			tenant = domain.TenantGlobal
		}
		agg, ok := out[tenant]
		if !ok {
			agg = &domain.TenantAggregate{}
			out[tenant] = agg
		}

		c := expiry.Classify(p.Fields, now, s.horizon)
		switch c.State {
		case expiry.StateExpired:
			agg.ExpiredCount++
			agg.Products = append(agg.Products, domain.ProductRef{ProductID: p.ProductID, Name: p.Name, Expired: true})
		case expiry.StateNear:
			agg.NearCount++
			agg.Products = append(agg.Products, domain.ProductRef{ProductID: p.ProductID, Name: p.Name})
		}
	}
	return out, nil
}
