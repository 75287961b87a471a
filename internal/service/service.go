package service

import (
	"time"

	"github.com/ChilliBits/particulate-matter-api/internal/errors"
	"github.com/ChilliBits/particulate-matter-api/internal/models"
	"github.com/ChilliBits/particulate-matter-api/internal/repository"
	"github.com/jellydator/ttlcache/v3"
	"github.com/jonboulle/clockwork"
)

// Config holds the settings of the ancillary read services
type Config struct {
	RankingCacheTTL time.Duration
	// ActiveWindow is how recent a measurement must be for a sensor to count as active.
	ActiveWindow time.Duration
	Clock        clockwork.Clock
}

// Service contains all repositories and service-wide dependencies
type Service struct {
	sensors  repository.SensorRepository
	requests repository.RequestStatsRepository
	cfg      Config

	cityRanking    *ttlcache.Cache[int, []models.RankingItemCity]
	countryRanking *ttlcache.Cache[int, []models.RankingItemCountry]
	started        bool
}

// New creates a new service instance. requests may be nil, request counters then read as zero.
func New(
	sensors repository.SensorRepository,
	requests repository.RequestStatsRepository,
	cfg Config,
) *Service {
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	return &Service{
		sensors:  sensors,
		requests: requests,
		cfg:      cfg,
		cityRanking: ttlcache.New(
			ttlcache.WithTTL[int, []models.RankingItemCity](cfg.RankingCacheTTL),
		),
		countryRanking: ttlcache.New(
			ttlcache.WithTTL[int, []models.RankingItemCountry](cfg.RankingCacheTTL),
		),
	}
}

// Validate checks if all required repositories are initialized
func (s *Service) Validate() error {
	if s.sensors == nil {
		return ErrMissingRepository("sensors")
	}
	if s.cfg.ActiveWindow <= 0 {
		return errors.NewInternalError("stats active window must be positive", nil)
	}
	return nil
}

// Start runs the cache janitors until Close is called.
func (s *Service) Start() {
	s.started = true
	go s.cityRanking.Start()
	go s.countryRanking.Start()
}

// Close stops the cache janitors.
func (s *Service) Close() {
	if !s.started {
		return
	}
	s.started = false
	s.cityRanking.Stop()
	s.countryRanking.Stop()
}

func ErrMissingRepository(name string) error {
	return errors.NewInternalError("missing repository: "+name, nil)
}
