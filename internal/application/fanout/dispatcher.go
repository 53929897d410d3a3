package fanout

import (
	"context"
	"fmt"

	"github.com/kgbox/expiry-notifier/internal/domain"
	"go.uber.org/zap"
)

// Dispatcher fans a composed message out to a tenant's device endpoints,
// falling back to the tenant broadcast channel when none are registered.
type Dispatcher interface {
	Dispatch(ctx context.Context, tenantID string, msg *domain.Message) (*domain.DispatchResult, error)
}

type tokenStore interface {
	ListByTenant(ctx context.Context, tenantID string) ([]domain.DeviceToken, error)
}

// Transport abstracts the push provider. SendBatch reports a per-endpoint
// outcome and must not fail as a whole on partial per-endpoint failure.
type Transport interface {
	SendBatch(ctx context.Context, tokens []string, msg *domain.Message) ([]domain.SendOutcome, error)
	SendToChannel(ctx context.Context, channelID string, msg *domain.Message) (string, error)
}

type dispatcher struct {
	tokens    tokenStore
	transport Transport
	log       *zap.Logger
}

func NewDispatcher(tokens tokenStore, transport Transport, log *zap.Logger) Dispatcher {
	return &dispatcher{tokens: tokens, transport: transport, log: log}
}

// ChannelFor derives the tenant broadcast channel name. The derivation is
// deterministic so clients can subscribe without any registration handshake.
func ChannelFor(tenantID string) string {
	return "tenant_" + tenantID
}

func (d *dispatcher) Dispatch(ctx context.Context, tenantID string, msg *domain.Message) (*domain.DispatchResult, error) {
	registered, err := d.tokens.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list tokens for tenant %s: %v: %w", tenantID, err, domain.ErrDispatchFailed)
	}

	if len(registered) == 0 {
		return d.broadcast(ctx, tenantID, msg)
	}

	tokens := make([]string, 0, len(registered))
	for _, t := range registered {
		tokens = append(tokens, t.Token)
	}

	outcomes, err := d.transport.SendBatch(ctx, tokens, msg)
	if err != nil {
		return nil, fmt.Errorf("batch send for tenant %s: %v: %w", tenantID, err, domain.ErrDispatchFailed)
	}

	res := &domain.DispatchResult{}
	for _, o := range outcomes {
		if o.Err == nil {
			res.SuccessCount++
			continue
		}
		res.FailureCount++
		if o.Permanent {
			res.InvalidTokens = append(res.InvalidTokens, o.Token)
			d.log.Info("endpoint registration invalid, queued for removal",
				zap.String("tenant_id", tenantID), zap.String("token", o.Token))
		} else {
			// Transient; the next scheduled run retries naturally.
			d.log.Warn("push send failed",
				zap.String("tenant_id", tenantID), zap.String("token", o.Token), zap.Error(o.Err))
		}
	}
	return res, nil
}

// broadcast is the zero-endpoint fallback. No per-endpoint result exists on
// this path; failure is logged and reported as a zero-success result rather
// than an error, since there is nothing to retry against.
func (d *dispatcher) broadcast(ctx context.Context, tenantID string, msg *domain.Message) (*domain.DispatchResult, error) {
	channel := ChannelFor(tenantID)
	if _, err := d.transport.SendToChannel(ctx, channel, msg); err != nil {
		d.log.Warn("broadcast send failed",
			zap.String("tenant_id", tenantID), zap.String("channel", channel), zap.Error(err))
		return &domain.DispatchResult{Broadcast: true, FailureCount: 1}, nil
	}
	return &domain.DispatchResult{Broadcast: true, SuccessCount: 1}, nil
}
