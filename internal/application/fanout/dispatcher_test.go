package fanout

import (
	"context"
	"errors"
	"testing"

	"github.com/kgbox/expiry-notifier/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockTokenStore struct{ mock.Mock }

func (m *mockTokenStore) ListByTenant(ctx context.Context, tenantID string) ([]domain.DeviceToken, error) {
	args := m.Called(ctx, tenantID)
	if t, _ := args.Get(0).([]domain.DeviceToken); t != nil {
		return t, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockTransport struct{ mock.Mock }

func (m *mockTransport) SendBatch(ctx context.Context, tokens []string, msg *domain.Message) ([]domain.SendOutcome, error) {
	args := m.Called(ctx, tokens, msg)
	if o, _ := args.Get(0).([]domain.SendOutcome); o != nil {
		return o, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockTransport) SendToChannel(ctx context.Context, channelID string, msg *domain.Message) (string, error) {
	args := m.Called(ctx, channelID, msg)
	return args.String(0), args.Error(1)
}

func tokens(ts ...string) []domain.DeviceToken {
	out := make([]domain.DeviceToken, 0, len(ts))
	for _, t := range ts {
		out = append(out, domain.DeviceToken{Token: t, TenantID: "t1"})
	}
	return out
}

var msg = &domain.Message{Title: "x", Body: "y"}

func TestDispatch_BatchPath_NeverBroadcasts(t *testing.T) {
	ts := &mockTokenStore{}
	tr := &mockTransport{}
	ts.On("ListByTenant", mock.Anything, "t1").Return(tokens("tok1", "tok2"), nil)
	tr.On("SendBatch", mock.Anything, []string{"tok1", "tok2"}, msg).Return([]domain.SendOutcome{
		{Token: "tok1", MessageID: "m1"},
		{Token: "tok2", MessageID: "m2"},
	}, nil)

	res, err := NewDispatcher(ts, tr, zap.NewNop()).Dispatch(context.Background(), "t1", msg)
	require.NoError(t, err)
	assert.Equal(t, 2, res.SuccessCount)
	assert.Equal(t, 0, res.FailureCount)
	assert.False(t, res.Broadcast)
	tr.AssertNotCalled(t, "SendToChannel", mock.Anything, mock.Anything, mock.Anything)
}

func TestDispatch_ZeroTokens_BroadcastsOnDerivedChannel(t *testing.T) {
	ts := &mockTokenStore{}
	tr := &mockTransport{}
	ts.On("ListByTenant", mock.Anything, "t2").Return([]domain.DeviceToken{}, nil)
	tr.On("SendToChannel", mock.Anything, "tenant_t2", msg).Return("mid-1", nil)

	res, err := NewDispatcher(ts, tr, zap.NewNop()).Dispatch(context.Background(), "t2", msg)
	require.NoError(t, err)
	assert.True(t, res.Broadcast)
	assert.Equal(t, 1, res.SuccessCount)
	assert.Empty(t, res.InvalidTokens)
	tr.AssertNotCalled(t, "SendBatch", mock.Anything, mock.Anything, mock.Anything)
}

func TestDispatch_BroadcastFailure_IsNotAnError(t *testing.T) {
	ts := &mockTokenStore{}
	tr := &mockTransport{}
	ts.On("ListByTenant", mock.Anything, "t2").Return([]domain.DeviceToken{}, nil)
	tr.On("SendToChannel", mock.Anything, "tenant_t2", msg).Return("", errors.New("sns down"))

	res, err := NewDispatcher(ts, tr, zap.NewNop()).Dispatch(context.Background(), "t2", msg)
	require.NoError(t, err)
	assert.True(t, res.Broadcast)
	assert.Equal(t, 0, res.SuccessCount)
	assert.Equal(t, 1, res.FailureCount)
}

func TestDispatch_ClassifiesPermanentVsTransient(t *testing.T) {
	ts := &mockTokenStore{}
	tr := &mockTransport{}
	ts.On("ListByTenant", mock.Anything, "t1").Return(tokens("ok", "gone", "busy"), nil)
	tr.On("SendBatch", mock.Anything, mock.Anything, msg).Return([]domain.SendOutcome{
		{Token: "ok", MessageID: "m1"},
		{Token: "gone", Err: errors.New("endpoint disabled"), Permanent: true},
		{Token: "busy", Err: errors.New("throttled")},
	}, nil)

	res, err := NewDispatcher(ts, tr, zap.NewNop()).Dispatch(context.Background(), "t1", msg)
	require.NoError(t, err)
	assert.Equal(t, 1, res.SuccessCount)
	assert.Equal(t, 2, res.FailureCount)
	// Only the permanently-invalid token is queued for removal.
	assert.Equal(t, []string{"gone"}, res.InvalidTokens)
}

func TestDispatch_TokenLookupFailure_WrapsDispatchFailed(t *testing.T) {
	ts := &mockTokenStore{}
	tr := &mockTransport{}
	ts.On("ListByTenant", mock.Anything, "t1").Return(nil, errors.New("dynamo down"))

	res, err := NewDispatcher(ts, tr, zap.NewNop()).Dispatch(context.Background(), "t1", msg)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, domain.ErrDispatchFailed)
}

func TestDispatch_WholeBatchFailure_WrapsDispatchFailed(t *testing.T) {
	ts := &mockTokenStore{}
	tr := &mockTransport{}
	ts.On("ListByTenant", mock.Anything, "t1").Return(tokens("tok1"), nil)
	tr.On("SendBatch", mock.Anything, mock.Anything, msg).Return(nil, errors.New("transport down"))

	_, err := NewDispatcher(ts, tr, zap.NewNop()).Dispatch(context.Background(), "t1", msg)
	assert.ErrorIs(t, err, domain.ErrDispatchFailed)
}
