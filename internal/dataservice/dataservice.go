// Package dataservice answers measurement queries: it resolves the sensors in
// scope, fans record scans out across them and aggregates or merges the result.
package dataservice

import (
	"time"

	"github.com/ChilliBits/particulate-matter-api/internal/errors"
	"github.com/ChilliBits/particulate-matter-api/internal/models"
	"github.com/ChilliBits/particulate-matter-api/internal/monitoring"
	"github.com/ChilliBits/particulate-matter-api/internal/repository"
	"github.com/alitto/pond/v2"
	"github.com/jonboulle/clockwork"
)

// Config tunes the query core.
type Config struct {
	// DefaultWindow is used when a query does not give a start timestamp.
	DefaultWindow time.Duration
	// MaxPerRequestFanout caps concurrent store calls of one query, 0 means unbounded.
	MaxPerRequestFanout int
	// StoreTimeout bounds every single store call, 0 means the caller deadline only.
	StoreTimeout time.Duration
	Clock        clockwork.Clock
	Monitor      *monitoring.Service
}

// DataService is safe for concurrent use. It holds no per-query state.
type DataService struct {
	sensors repository.SensorIndex
	records repository.DataRecordRepository
	cfg     Config
	pool    pond.ResultPool[[]models.DataRecord]
}

// New creates the query core on top of the sensor index and the record store
func New(sensors repository.SensorIndex, records repository.DataRecordRepository, cfg Config) (*DataService, error) {
	if sensors == nil {
		return nil, errors.NewInternalError("missing repository: sensors", nil)
	}
	if records == nil {
		return nil, errors.NewInternalError("missing repository: records", nil)
	}
	if cfg.DefaultWindow <= 0 {
		return nil, errors.NewInternalError("default window must be positive", nil)
	}
	if cfg.MaxPerRequestFanout < 0 || cfg.StoreTimeout < 0 {
		return nil, errors.NewInternalError("fanout and store timeout must not be negative", nil)
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}

	return &DataService{
		sensors: sensors,
		records: records,
		cfg:     cfg,
		pool:    pond.NewResultPool[[]models.DataRecord](0),
	}, nil
}

// Close waits for running store calls and releases the worker pool.
func (s *DataService) Close() {
	s.pool.StopAndWait()
}

// Now returns the current time of the service clock.
func (s *DataService) Now() time.Time {
	return s.cfg.Clock.Now()
}

func (s *DataService) nowMs() int64 {
	return s.cfg.Clock.Now().UnixMilli()
}
