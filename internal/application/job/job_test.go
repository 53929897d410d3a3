package job

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/kgbox/expiry-notifier/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockScanner struct{ mock.Mock }

func (m *mockScanner) Scan(ctx context.Context, tenantID string) (map[string]*domain.TenantAggregate, error) {
	args := m.Called(ctx, tenantID)
	if a, _ := args.Get(0).(map[string]*domain.TenantAggregate); a != nil {
		return a, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockDispatcher struct{ mock.Mock }

func (m *mockDispatcher) Dispatch(ctx context.Context, tenantID string, msg *domain.Message) (*domain.DispatchResult, error) {
	args := m.Called(ctx, tenantID, msg)
	if r, _ := args.Get(0).(*domain.DispatchResult); r != nil {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockNotifStore struct {
	mock.Mock
	mu  sync.Mutex
	put []*domain.Notification
}

func (m *mockNotifStore) Put(ctx context.Context, n *domain.Notification) error {
	m.mu.Lock()
	m.put = append(m.put, n)
	m.mu.Unlock()
	return m.Called(ctx, n).Error(0)
}

func (m *mockNotifStore) LatestForTenant(ctx context.Context, tenantID string) (*domain.Notification, error) {
	args := m.Called(ctx, tenantID)
	if n, _ := args.Get(0).(*domain.Notification); n != nil {
		return n, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockTokenRemover struct{ mock.Mock }

func (m *mockTokenRemover) BatchDelete(ctx context.Context, tokens []string) error {
	return m.Called(ctx, tokens).Error(0)
}

type fixture struct {
	scanner *mockScanner
	disp    *mockDispatcher
	notifs  *mockNotifStore
	tokens  *mockTokenRemover
	job     *Job
}

func newFixture() *fixture {
	f := &fixture{
		scanner: &mockScanner{},
		disp:    &mockDispatcher{},
		notifs:  &mockNotifStore{},
		tokens:  &mockTokenRemover{},
	}
	f.job = New(f.scanner, f.disp, f.notifs, f.tokens, nil, zap.NewNop(), 4)
	f.job.now = func() time.Time { return time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC) }
	return f
}

func aggT1() map[string]*domain.TenantAggregate {
	return map[string]*domain.TenantAggregate{
		"t1": {
			ExpiredCount: 1,
			NearCount:    1,
			Products: []domain.ProductRef{
				{ProductID: "a", Name: "Milk", Expired: true},
				{ProductID: "b", Name: "Eggs"},
			},
		},
	}
}

func TestRun_NotifiesTenantAndPersistsRecord(t *testing.T) {
	f := newFixture()
	f.scanner.On("Scan", mock.Anything, "").Return(aggT1(), nil)
	f.notifs.On("LatestForTenant", mock.Anything, "t1").Return(nil, domain.ErrNotFound)
	f.notifs.On("Put", mock.Anything, mock.Anything).Return(nil)
	f.disp.On("Dispatch", mock.Anything, "t1", mock.Anything).
		Return(&domain.DispatchResult{SuccessCount: 2}, nil)

	summary, err := f.job.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.TenantsNotified)
	assert.Equal(t, 1, summary.NotificationsCreated)
	assert.Equal(t, 0, summary.TokensPruned)

	require.Len(t, f.notifs.put, 1)
	rec := f.notifs.put[0]
	assert.Equal(t, "t1", rec.TenantID)
	assert.Equal(t, []string{"a", "b"}, rec.ProductIDs)
	assert.Equal(t, domain.NotificationTypeExpired, rec.Type)
	assert.Equal(t, "2025-06-15", rec.ScanDate)
	f.tokens.AssertNotCalled(t, "BatchDelete", mock.Anything, mock.Anything)
}

func TestRun_EmptyAggregates_NothingPersistedOrDispatched(t *testing.T) {
	f := newFixture()
	f.scanner.On("Scan", mock.Anything, "").Return(map[string]*domain.TenantAggregate{
		"t1": {}, // products exist but none expired or near
	}, nil)

	summary, err := f.job.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, summary.TenantsNotified)
	assert.Zero(t, summary.NotificationsCreated)
	f.disp.AssertNotCalled(t, "Dispatch", mock.Anything, mock.Anything, mock.Anything)
	assert.Empty(t, f.notifs.put)
}

func TestRun_ScanFailure_AbortsWithNothingPersisted(t *testing.T) {
	f := newFixture()
	f.scanner.On("Scan", mock.Anything, "").Return(nil, domain.ErrScanFailed)

	summary, err := f.job.Run(context.Background())
	assert.Nil(t, summary)
	assert.ErrorIs(t, err, domain.ErrScanFailed)
	assert.Empty(t, f.notifs.put)
	f.disp.AssertNotCalled(t, "Dispatch", mock.Anything, mock.Anything, mock.Anything)
}

func TestRun_InvalidTokensUnionedAndPruned(t *testing.T) {
	f := newFixture()
	aggs := aggT1()
	aggs["t2"] = &domain.TenantAggregate{
		ExpiredCount: 1,
		Products:     []domain.ProductRef{{ProductID: "z", Name: "Jam", Expired: true}},
	}
	f.scanner.On("Scan", mock.Anything, "").Return(aggs, nil)
	f.notifs.On("LatestForTenant", mock.Anything, mock.Anything).Return(nil, domain.ErrNotFound)
	f.notifs.On("Put", mock.Anything, mock.Anything).Return(nil)
	f.disp.On("Dispatch", mock.Anything, "t1", mock.Anything).
		Return(&domain.DispatchResult{SuccessCount: 1, FailureCount: 1, InvalidTokens: []string{"dead-1"}}, nil)
	f.disp.On("Dispatch", mock.Anything, "t2", mock.Anything).
		Return(&domain.DispatchResult{SuccessCount: 0, FailureCount: 1, InvalidTokens: []string{"dead-2"}}, nil)
	f.tokens.On("BatchDelete", mock.Anything, mock.MatchedBy(func(ts []string) bool {
		return len(ts) == 2
	})).Return(nil)

	summary, err := f.job.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.TokensPruned)
	f.tokens.AssertExpectations(t)
}

func TestRun_TenantFailureIsolated(t *testing.T) {
	f := newFixture()
	aggs := aggT1()
	aggs["t2"] = &domain.TenantAggregate{
		NearCount: 1,
		Products:  []domain.ProductRef{{ProductID: "z", Name: "Jam"}},
	}
	f.scanner.On("Scan", mock.Anything, "").Return(aggs, nil)
	f.notifs.On("LatestForTenant", mock.Anything, mock.Anything).Return(nil, domain.ErrNotFound)
	f.notifs.On("Put", mock.Anything, mock.Anything).Return(nil)
	f.disp.On("Dispatch", mock.Anything, "t1", mock.Anything).
		Return(nil, domain.ErrDispatchFailed)
	f.disp.On("Dispatch", mock.Anything, "t2", mock.Anything).
		Return(&domain.DispatchResult{SuccessCount: 1}, nil)

	summary, err := f.job.Run(context.Background())
	require.NoError(t, err)
	// t1's failure does not block t2.
	assert.Equal(t, 1, summary.TenantsNotified)
	assert.Equal(t, 2, summary.NotificationsCreated)
}

func TestRun_ZeroTokenTenant_BroadcastCreatesNoRemovalWork(t *testing.T) {
	f := newFixture()
	f.scanner.On("Scan", mock.Anything, "").Return(map[string]*domain.TenantAggregate{
		"t2": {ExpiredCount: 1, Products: []domain.ProductRef{{ProductID: "z", Expired: true}}},
	}, nil)
	f.notifs.On("LatestForTenant", mock.Anything, "t2").Return(nil, domain.ErrNotFound)
	f.notifs.On("Put", mock.Anything, mock.Anything).Return(nil)
	f.disp.On("Dispatch", mock.Anything, "t2", mock.Anything).
		Return(&domain.DispatchResult{Broadcast: true, SuccessCount: 1}, nil)

	summary, err := f.job.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.TenantsNotified)
	f.tokens.AssertNotCalled(t, "BatchDelete", mock.Anything, mock.Anything)
}

func TestRun_SameScanDate_Deduplicated(t *testing.T) {
	f := newFixture()
	f.scanner.On("Scan", mock.Anything, "").Return(aggT1(), nil)
	f.notifs.On("LatestForTenant", mock.Anything, "t1").Return(&domain.Notification{
		TenantID: "t1", ScanDate: "2025-06-15",
	}, nil)

	summary, err := f.job.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, summary.NotificationsCreated)
	f.disp.AssertNotCalled(t, "Dispatch", mock.Anything, mock.Anything, mock.Anything)
}

func TestRun_PreviousScanDate_NotifiesAgain(t *testing.T) {
	f := newFixture()
	f.scanner.On("Scan", mock.Anything, "").Return(aggT1(), nil)
	f.notifs.On("LatestForTenant", mock.Anything, "t1").Return(&domain.Notification{
		TenantID: "t1", ScanDate: "2025-06-14",
	}, nil)
	f.notifs.On("Put", mock.Anything, mock.Anything).Return(nil)
	f.disp.On("Dispatch", mock.Anything, "t1", mock.Anything).
		Return(&domain.DispatchResult{SuccessCount: 1}, nil)

	summary, err := f.job.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.NotificationsCreated)
}

func TestRun_OverlappingRun_Rejected(t *testing.T) {
	f := newFixture()
	started := make(chan struct{})
	release := make(chan struct{})
	f.scanner.On("Scan", mock.Anything, "").Run(func(mock.Arguments) {
		close(started)
		<-release
	}).Return(map[string]*domain.TenantAggregate{}, nil).Once()
	f.scanner.On("Scan", mock.Anything, "").Return(map[string]*domain.TenantAggregate{}, nil)

	done := make(chan struct{})
	go func() {
		_, _ = f.job.Run(context.Background())
		close(done)
	}()
	<-started

	_, err := f.job.Run(context.Background())
	assert.ErrorIs(t, err, domain.ErrRunInProgress)

	close(release)
	<-done

	// Lock released after completion; a new run proceeds.
	_, err = f.job.Run(context.Background())
	assert.NoError(t, err)
}

func TestRunScheduled_NeverPropagatesFailure(t *testing.T) {
	f := newFixture()
	f.scanner.On("Scan", mock.Anything, "").Return(nil, errors.New("store unreachable"))

	// Must complete normally so the scheduler does not treat the job as wedged.
	f.job.RunScheduled(context.Background())
}
