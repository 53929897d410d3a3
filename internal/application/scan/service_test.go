package scan

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kgbox/expiry-notifier/internal/application/expiry"
	"github.com/kgbox/expiry-notifier/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockProductStore struct{ mock.Mock }

func (m *mockProductStore) ListForExpiry(ctx context.Context, tenantID string) ([]domain.Product, error) {
	args := m.Called(ctx, tenantID)
	if p, _ := args.Get(0).([]domain.Product); p != nil {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

var testNow = time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)

func newSvc(ps *mockProductStore) *service {
	s := NewService(ps, expiry.DefaultHorizon).(*service)
	s.now = func() time.Time { return testNow }
	return s
}

func expiresIn(d time.Duration) map[string]any {
	return map[string]any{"tanggal_expired": testNow.Add(d).Format(time.RFC3339)}
}

func TestScan_AggregatesPerTenant(t *testing.T) {
	ps := &mockProductStore{}
	ps.On("ListForExpiry", mock.Anything, "").Return([]domain.Product{
		{ProductID: "a", TenantID: "t1", Name: "Milk", Fields: expiresIn(-24 * time.Hour)},
		{ProductID: "b", TenantID: "t1", Name: "Eggs", Fields: expiresIn(3 * 24 * time.Hour)},
		{ProductID: "c", TenantID: "t1", Name: "Rice", Fields: expiresIn(30 * 24 * time.Hour)},
		{ProductID: "d", TenantID: "t2", Name: "Jam", Fields: expiresIn(-time.Hour)},
	}, nil)

	out, err := newSvc(ps).Scan(context.Background(), "")
	require.NoError(t, err)

	require.Contains(t, out, "t1")
	assert.Equal(t, 1, out["t1"].ExpiredCount)
	assert.Equal(t, 1, out["t1"].NearCount)
	require.Len(t, out["t1"].Products, 2)

	require.Contains(t, out, "t2")
	assert.Equal(t, 1, out["t2"].ExpiredCount)
	assert.Equal(t, 0, out["t2"].NearCount)
}

func TestScan_OrderIndependent(t *testing.T) {
	products := []domain.Product{
		{ProductID: "a", TenantID: "t1", Fields: expiresIn(-24 * time.Hour)},
		{ProductID: "b", TenantID: "t1", Fields: expiresIn(2 * 24 * time.Hour)},
		{ProductID: "c", TenantID: "t2", Fields: expiresIn(5 * 24 * time.Hour)},
	}
	reversed := []domain.Product{products[2], products[1], products[0]}

	ps1 := &mockProductStore{}
	ps1.On("ListForExpiry", mock.Anything, "").Return(products, nil)
	ps2 := &mockProductStore{}
	ps2.On("ListForExpiry", mock.Anything, "").Return(reversed, nil)

	out1, err := newSvc(ps1).Scan(context.Background(), "")
	require.NoError(t, err)
	out2, err := newSvc(ps2).Scan(context.Background(), "")
	require.NoError(t, err)

	for tenant, agg := range out1 {
		require.Contains(t, out2, tenant)
		assert.Equal(t, agg.ExpiredCount, out2[tenant].ExpiredCount)
		assert.Equal(t, agg.NearCount, out2[tenant].NearCount)
	}
}

func TestScan_MissingTenant_GroupsUnderGlobal(t *testing.T) {
	ps := &mockProductStore{}
	ps.On("ListForExpiry", mock.Anything, "").Return([]domain.Product{
		{ProductID: "orphan", Fields: expiresIn(-time.Hour)},
	}, nil)

	out, err := newSvc(ps).Scan(context.Background(), "")
	require.NoError(t, err)
	require.Contains(t, out, domain.TenantGlobal)
	assert.Equal(t, 1, out[domain.TenantGlobal].ExpiredCount)
}

func TestScan_UnparseableProduct_ContributesNothing(t *testing.T) {
	ps := &mockProductStore{}
	ps.On("ListForExpiry", mock.Anything, "").Return([]domain.Product{
		{ProductID: "a", TenantID: "t1", Fields: map[string]any{"tanggal_expired": "someday"}},
		{ProductID: "b", TenantID: "t1", Fields: map[string]any{"name": "no expiry at all"}},
	}, nil)

	out, err := newSvc(ps).Scan(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 0, out["t1"].ExpiredCount)
	assert.Equal(t, 0, out["t1"].NearCount)
	assert.Empty(t, out["t1"].Products)
}

func TestScan_TenantFilterPassedThrough(t *testing.T) {
	ps := &mockProductStore{}
	ps.On("ListForExpiry", mock.Anything, "t1").Return([]domain.Product{}, nil)

	_, err := newSvc(ps).Scan(context.Background(), "t1")
	require.NoError(t, err)
	ps.AssertCalled(t, "ListForExpiry", mock.Anything, "t1")
}

func TestScan_StoreError_WrapsScanFailed(t *testing.T) {
	ps := &mockProductStore{}
	ps.On("ListForExpiry", mock.Anything, "").Return(nil, errors.New("dynamo down"))

	out, err := newSvc(ps).Scan(context.Background(), "")
	assert.Nil(t, out)
	assert.ErrorIs(t, err, domain.ErrScanFailed)
}
