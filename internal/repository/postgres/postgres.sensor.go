// FilePath: internal/repository/postgres/postgres.sensor.go
package postgres

import (
	"context"
	"database/sql"
	stderrors "errors"

	"github.com/ChilliBits/particulate-matter-api/internal/database"
	"github.com/ChilliBits/particulate-matter-api/internal/errors"
	"github.com/ChilliBits/particulate-matter-api/internal/models"
	"github.com/ChilliBits/particulate-matter-api/internal/repository"
	nuts "github.com/vaudience/go-nuts"
)

// earthRadiusMeters is the mean radius used for great-circle distances.
const earthRadiusMeters = 6371000

const (
	queryChipIDsInCountry = `SELECT chip_id FROM sensor WHERE country = $1`
	queryChipIDsInCity    = `SELECT chip_id FROM sensor WHERE country = $1 AND city = $2`
	querySensorExists     = `SELECT EXISTS (SELECT 1 FROM sensor WHERE chip_id = $1)`
	querySensorByChipID   = `SELECT * FROM sensor WHERE chip_id = $1`
	querySensorsInRadius  = `
		SELECT * FROM (
			SELECT s.*, $4 * acos(LEAST(1.0, GREATEST(-1.0,
				cos(radians($1)) * cos(radians(s.gps_latitude)) * cos(radians(s.gps_longitude) - radians($2))
				+ sin(radians($1)) * sin(radians(s.gps_latitude))
			))) AS distance
			FROM sensor s
		) d
		WHERE d.distance <= $3
		ORDER BY d.distance ASC`
	queryCountTotal       = `SELECT COUNT(chip_id) FROM sensor`
	queryCountActive      = `SELECT COUNT(chip_id) FROM sensor WHERE last_measurement_timestamp > $1`
	queryRankingByCity    = `
		SELECT country, city, COUNT(chip_id) AS count
		FROM sensor
		GROUP BY country, city
		ORDER BY count DESC, country, city
		LIMIT $1`
	queryRankingByCountry = `
		SELECT country, COUNT(chip_id) AS count
		FROM sensor
		GROUP BY country
		ORDER BY count DESC, country
		LIMIT $1`
)

var _ repository.SensorRepository = (*SensorRepo)(nil)

type SensorRepo struct {
	PostgresBaseRepo
}

func NewSensorRepository(db database.DB) (*SensorRepo, error) {
	repo := &SensorRepo{PostgresBaseRepo: PostgresBaseRepo{db: db}}
	if err := repo.initializeSchema(); err != nil {
		return nil, err
	}
	return repo, nil
}

func (r *SensorRepo) initializeSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS sensor (
			chip_id BIGINT PRIMARY KEY,
			gps_latitude DOUBLE PRECISION NOT NULL DEFAULT 0,
			gps_longitude DOUBLE PRECISION NOT NULL DEFAULT 0,
			country TEXT NOT NULL DEFAULT '',
			city TEXT NOT NULL DEFAULT '',
			indoor BOOLEAN NOT NULL DEFAULT FALSE,
			published BOOLEAN NOT NULL DEFAULT TRUE,
			last_edit_timestamp BIGINT NOT NULL DEFAULT 0,
			last_measurement_timestamp BIGINT NOT NULL DEFAULT 0,
			notes TEXT NOT NULL DEFAULT '',
			firmware_version TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sensor_country_city ON sensor(country, city)`,
		`CREATE INDEX IF NOT EXISTS idx_sensor_last_measurement ON sensor(last_measurement_timestamp)`,
	}

	for _, query := range queries {
		if _, err := r.db.GetDB().Exec(query); err != nil {
			return errors.NewDataAccessError("failed to initialize schema", err)
		}
	}
	return nil
}

func (r *SensorRepo) ChipIDsInCountry(ctx context.Context, country string) ([]uint64, error) {
	ids := []uint64{}
	err := r.selectContext(ctx, "failed to list sensors of country", &ids, queryChipIDsInCountry, country)
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *SensorRepo) ChipIDsInCity(ctx context.Context, country, city string) ([]uint64, error) {
	ids := []uint64{}
	err := r.selectContext(ctx, "failed to list sensors of city", &ids, queryChipIDsInCity, country, city)
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *SensorRepo) Exists(ctx context.Context, chipID uint64) (bool, error) {
	var exists bool
	if err := r.getContext(ctx, "failed to check sensor existence", &exists, querySensorExists, chipID); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *SensorRepo) Get(ctx context.Context, chipID uint64) (*models.Sensor, error) {
	sensor := &models.Sensor{}
	err := r.db.GetDB().GetContext(ctx, sensor, querySensorByChipID, chipID)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NewSensorNotExistingError(chipID)
		}
		return nil, errors.NewDataAccessError("failed to get sensor", err)
	}
	return sensor, nil
}

func (r *SensorRepo) FindInRadius(ctx context.Context, latitude, longitude float64, radiusMeters int) ([]models.SensorWithDistance, error) {
	sensors := []models.SensorWithDistance{}
	err := r.selectContext(ctx, "failed to search sensors in radius", &sensors,
		querySensorsInRadius, latitude, longitude, radiusMeters, earthRadiusMeters)
	if err != nil {
		return nil, err
	}
	nuts.L.Debugf("[SensorRepo] Found %d sensors within %dm of (%f, %f)", len(sensors), radiusMeters, latitude, longitude)
	return sensors, nil
}

func (r *SensorRepo) CountTotal(ctx context.Context) (int64, error) {
	var count int64
	if err := r.getContext(ctx, "failed to count sensors", &count, queryCountTotal); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *SensorRepo) CountActive(ctx context.Context, minLastMeasurement int64) (int64, error) {
	var count int64
	if err := r.getContext(ctx, "failed to count active sensors", &count, queryCountActive, minLastMeasurement); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *SensorRepo) RankingByCity(ctx context.Context, items int) ([]models.RankingItemCity, error) {
	ranking := []models.RankingItemCity{}
	if err := r.selectContext(ctx, "failed to rank cities", &ranking, queryRankingByCity, items); err != nil {
		return nil, err
	}
	return ranking, nil
}

func (r *SensorRepo) RankingByCountry(ctx context.Context, items int) ([]models.RankingItemCountry, error) {
	ranking := []models.RankingItemCountry{}
	if err := r.selectContext(ctx, "failed to rank countries", &ranking, queryRankingByCountry, items); err != nil {
		return nil, err
	}
	return ranking, nil
}
