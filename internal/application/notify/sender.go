package notify

import (
	"context"
	"fmt"

	"github.com/kgbox/expiry-notifier/internal/application/fanout"
	"github.com/kgbox/expiry-notifier/internal/domain"
	"github.com/kgbox/expiry-notifier/internal/pkg/validate"
)

// SendRequest is the payload of the authenticated send operation.
// Either ChannelID or TenantID must be set; TenantID resolves to the
// tenant's derived broadcast channel.
type SendRequest struct {
	ChannelID string `json:"channel_id"`
	TenantID  string `json:"tenant_id"`
	Title     string `json:"title" validate:"required"`
	Body      string `json:"body" validate:"required"`
	Type      string `json:"type"`
}

// Sender pushes an ad hoc message to a broadcast channel.
type Sender interface {
	Send(ctx context.Context, req SendRequest) (string, error)
}

type channelTransport interface {
	SendToChannel(ctx context.Context, channelID string, msg *domain.Message) (string, error)
}

type sender struct {
	transport channelTransport
}

func NewSender(transport channelTransport) Sender {
	return &sender{transport: transport}
}

// Send validates the request fully before touching the transport and
// returns the provider message id.
func (s *sender) Send(ctx context.Context, req SendRequest) (string, error) {
	if err := validate.Struct(req); err != nil {
		return "", fmt.Errorf("%v: %w", err, domain.ErrInvalidArgument)
	}
	channel := req.ChannelID
	if channel == "" {
		if req.TenantID == "" {
			return "", fmt.Errorf("channel_id or tenant_id is required: %w", domain.ErrInvalidArgument)
		}
		channel = fanout.ChannelFor(req.TenantID)
	}

	msgType := req.Type
	if msgType == "" {
		msgType = domain.NotificationTypeInfo
	}
	msg := &domain.Message{
		Title: req.Title,
		Body:  req.Body,
		Data: map[string]string{
			"type":         msgType,
			"click_action": "FLUTTER_NOTIFICATION_CLICK",
		},
	}
	return s.transport.SendToChannel(ctx, channel, msg)
}
