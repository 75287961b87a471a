// FilePath: internal/repository/repository.go
package repository

import (
	"context"
	"time"

	"github.com/ChilliBits/particulate-matter-api/internal/models"
)

// SensorIndex is the read-only view of the sensor metadata the query core consults.
// No ordering is guaranteed and an empty result is legal.
type SensorIndex interface {
	ChipIDsInCountry(ctx context.Context, country string) ([]uint64, error)
	ChipIDsInCity(ctx context.Context, country, city string) ([]uint64, error)
	Exists(ctx context.Context, chipID uint64) (bool, error)
}

// SensorRepository defines the interface for sensor metadata operations
type SensorRepository interface {
	SensorIndex
	Get(ctx context.Context, chipID uint64) (*models.Sensor, error)
	FindInRadius(ctx context.Context, latitude, longitude float64, radiusMeters int) ([]models.SensorWithDistance, error)
	CountTotal(ctx context.Context) (int64, error)
	CountActive(ctx context.Context, minLastMeasurement int64) (int64, error)
	RankingByCity(ctx context.Context, items int) ([]models.RankingItemCity, error)
	RankingByCountry(ctx context.Context, items int) ([]models.RankingItemCountry, error)
}

// DataRecordRepository reads raw records from the collection of a single chip.
// Records may be returned in any order.
type DataRecordRepository interface {
	// ScanRange returns all records with from <= timestamp <= to.
	ScanRange(ctx context.Context, chipID uint64, from, to int64) ([]models.DataRecord, error)
	// Latest returns the record with the greatest timestamp, nil if the collection is empty.
	Latest(ctx context.Context, chipID uint64) (*models.DataRecord, error)
	ScanAll(ctx context.Context, chipID uint64) ([]models.DataRecord, error)
}

// RequestStatsRepository counts served API requests per day.
type RequestStatsRepository interface {
	Increment(ctx context.Context, at time.Time) error
	Counts(ctx context.Context, at time.Time) (models.RequestCounts, error)
}
