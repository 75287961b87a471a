package service

import (
	"context"

	"github.com/ChilliBits/particulate-matter-api/internal/models"
	nuts "github.com/vaudience/go-nuts"
	"golang.org/x/sync/errgroup"
)

// StatsService reports sensor map and request counters
type StatsService interface {
	Stats(ctx context.Context) (models.Stats, error)
	RecordRequest(ctx context.Context) error
}

var _ StatsService = (*Service)(nil)

// Stats queries the sensor counts and the request counters concurrently.
func (s *Service) Stats(ctx context.Context) (models.Stats, error) {
	now := s.cfg.Clock.Now()
	activeSince := now.Add(-s.cfg.ActiveWindow).UnixMilli()

	var (
		stats  models.Stats
		counts models.RequestCounts
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		total, err := s.sensors.CountTotal(gctx)
		stats.SensorsMapTotal = total
		return err
	})
	g.Go(func() error {
		active, err := s.sensors.CountActive(gctx, activeSince)
		stats.SensorsMapActive = active
		return err
	})
	if s.requests != nil {
		g.Go(func() error {
			var err error
			counts, err = s.requests.Counts(gctx, now)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		nuts.L.Errorf("[StatsService] Failed to collect stats: %v", err)
		return models.Stats{}, err
	}

	stats.ServerRequestsTotal = counts.Total
	stats.ServerRequestsToday = counts.Today
	stats.ServerRequestsYesterday = counts.Yesterday
	return stats, nil
}

// RecordRequest counts one served request, a no-op without a request counter.
func (s *Service) RecordRequest(ctx context.Context) error {
	if s.requests == nil {
		return nil
	}
	return s.requests.Increment(ctx, s.cfg.Clock.Now())
}
