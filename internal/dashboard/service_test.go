package dashboard

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/dokan-pos/dokan-pos/internal/testutil"
)

type fakeRepo struct {
	overview      Overview
	top           []TopProduct
	monthly       []MonthlyPoint
	overviewCalls int
	topCalls      int
	monthlyCalls  int
	lastLimit     int
	lastMonths    int
}

func (r *fakeRepo) Overview(_ context.Context, _ time.Time) (Overview, error) {
	r.overviewCalls++
	return r.overview, nil
}

func (r *fakeRepo) TopProducts(_ context.Context, _, _ time.Time, limit int) ([]TopProduct, error) {
	r.topCalls++
	r.lastLimit = limit
	return r.top, nil
}

func (r *fakeRepo) MonthlyRevenue(_ context.Context, months int, _ time.Time) ([]MonthlyPoint, error) {
	r.monthlyCalls++
	r.lastMonths = months
	return r.monthly, nil
}

func newTestService(t *testing.T, repo *fakeRepo) *Service {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	svc := NewService(repo, NewCache(client, 10*time.Minute), testutil.DiscardLogger())
	svc.now = func() time.Time {
		return time.Date(2026, time.August, 15, 12, 0, 0, 0, time.UTC)
	}
	return svc
}

func TestOverviewCachesSecondRead(t *testing.T) {
	repo := &fakeRepo{overview: Overview{TodaySales: 4, TodayRevenue: 1260.50, ProductCount: 31}}
	svc := newTestService(t, repo)

	first, err := svc.Overview(context.Background())
	require.NoError(t, err)
	require.Equal(t, 4, first.TodaySales)

	second, err := svc.Overview(context.Background())
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 1, repo.overviewCalls)
}

func TestInvalidateForcesReload(t *testing.T) {
	repo := &fakeRepo{overview: Overview{TodaySales: 1}}
	svc := newTestService(t, repo)

	_, err := svc.Overview(context.Background())
	require.NoError(t, err)

	repo.overview.TodaySales = 2
	svc.Invalidate(context.Background())

	out, err := svc.Overview(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, out.TodaySales)
	require.Equal(t, 2, repo.overviewCalls)
}

func TestTopProductsClampsLimit(t *testing.T) {
	repo := &fakeRepo{top: []TopProduct{{ProductID: 7, ProductName: "Galaxy A15", UnitsSold: 12, Revenue: 1800}}}
	svc := newTestService(t, repo)

	out, err := svc.TopProducts(context.Background(), time.Time{}, time.Time{}, 500)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, maxTopLimit, repo.lastLimit)

	_, err = svc.TopProducts(context.Background(), time.Time{}, time.Time{}, 0)
	require.NoError(t, err)
	require.Equal(t, defaultTopLimit, repo.lastLimit)
}

func TestMonthlyRevenueDefaults(t *testing.T) {
	repo := &fakeRepo{monthly: []MonthlyPoint{{Month: "2026-08", SaleCount: 9, Revenue: 4200, Tax: 210}}}
	svc := newTestService(t, repo)

	out, err := svc.MonthlyRevenue(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, defaultMonths, repo.lastMonths)
}
