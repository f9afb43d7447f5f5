package dashboard

import (
	"context"
	"log/slog"
	"time"
)

const (
	defaultTopLimit  = 10
	maxTopLimit      = 50
	defaultMonths    = 12
	maxMonths        = 36
	defaultTopWindow = 30 * 24 * time.Hour
)

// Service serves the reporting endpoints, consulting the cache before
// hitting the primary store.
type Service struct {
	repo   Repository
	cache  *Cache
	logger *slog.Logger

	now func() time.Time
}

func NewService(repo Repository, cache *Cache, logger *slog.Logger) *Service {
	return &Service{repo: repo, cache: cache, logger: logger, now: time.Now}
}

func (s *Service) Overview(ctx context.Context) (Overview, error) {
	now := s.now()
	key, err := s.cache.BuildKey(ctx, keyOverview(now))
	if err != nil {
		s.logger.Warn("dashboard cache key", slog.Any("error", err))
		return s.repo.Overview(ctx, now)
	}
	var out Overview
	err = s.cache.FetchJSON(ctx, key, &out, func(ctx context.Context) (interface{}, error) {
		return s.repo.Overview(ctx, now)
	})
	if err != nil {
		return Overview{}, err
	}
	return out, nil
}

func (s *Service) TopProducts(ctx context.Context, from, to time.Time, limit int) ([]TopProduct, error) {
	now := s.now()
	if to.IsZero() {
		to = now
	}
	if from.IsZero() {
		from = to.Add(-defaultTopWindow)
	}
	if limit <= 0 {
		limit = defaultTopLimit
	}
	if limit > maxTopLimit {
		limit = maxTopLimit
	}

	key, err := s.cache.BuildKey(ctx, keyTopProducts(from, to, limit))
	if err != nil {
		s.logger.Warn("dashboard cache key", slog.Any("error", err))
		return s.repo.TopProducts(ctx, from, to, limit)
	}
	var out []TopProduct
	err = s.cache.FetchJSON(ctx, key, &out, func(ctx context.Context) (interface{}, error) {
		return s.repo.TopProducts(ctx, from, to, limit)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) MonthlyRevenue(ctx context.Context, months int) ([]MonthlyPoint, error) {
	if months <= 0 {
		months = defaultMonths
	}
	if months > maxMonths {
		months = maxMonths
	}
	key, err := s.cache.BuildKey(ctx, keyMonthly(months))
	if err != nil {
		s.logger.Warn("dashboard cache key", slog.Any("error", err))
		return s.repo.MonthlyRevenue(ctx, months, s.now())
	}
	var out []MonthlyPoint
	err = s.cache.FetchJSON(ctx, key, &out, func(ctx context.Context) (interface{}, error) {
		return s.repo.MonthlyRevenue(ctx, months, s.now())
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Invalidate drops cached figures after a write elsewhere in the system.
func (s *Service) Invalidate(ctx context.Context) {
	if err := s.cache.Bump(ctx); err != nil {
		s.logger.Warn("dashboard cache bump", slog.Any("error", err))
	}
}
