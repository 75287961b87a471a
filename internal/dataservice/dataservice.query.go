package dataservice

import (
	"context"
	stderrors "errors"
	"fmt"
	"math"

	"github.com/ChilliBits/particulate-matter-api/internal/errors"
	"github.com/ChilliBits/particulate-matter-api/internal/models"
	nuts "github.com/vaudience/go-nuts"
)

// Records returns the records of one chip within the window in store order.
func (s *DataService) Records(ctx context.Context, chipID uint64, from, to int64) ([]models.DataRecord, error) {
	w, err := s.Window(from, to)
	if err != nil {
		return nil, err
	}
	return s.fetch(ctx, []uint64{chipID}, w, fetchRange)
}

func (s *DataService) RecordsCompressed(ctx context.Context, chipID uint64, from, to int64) ([]models.DataRecordCompressed, error) {
	records, err := s.Records(ctx, chipID, from, to)
	if err != nil {
		return nil, err
	}
	return Compress(records), nil
}

// Latest returns the newest record of one chip. A registered chip without
// records yields an empty record at timestamp 0.
func (s *DataService) Latest(ctx context.Context, chipID uint64) (models.DataRecord, error) {
	records, err := s.fetch(ctx, []uint64{chipID}, Window{}, fetchLatest)
	if err != nil {
		return models.DataRecord{}, err
	}
	if len(records) > 0 {
		return records[0], nil
	}

	exists, err := s.sensors.Exists(ctx, chipID)
	if err != nil {
		return models.DataRecord{}, indexError(err)
	}
	if !exists {
		return models.DataRecord{}, errors.NewSensorNotExistingError(chipID)
	}
	return models.EmptyDataRecord(0), nil
}

// AllCompressed returns every record of one chip, unbounded by time.
func (s *DataService) AllCompressed(ctx context.Context, chipID uint64) ([]models.DataRecordCompressed, error) {
	records, err := s.fetch(ctx, []uint64{chipID}, Window{}, fetchAll)
	if err != nil {
		return nil, err
	}
	return Compress(records), nil
}

// AverageMulti averages the latest records of the given chips. Duplicate
// chip IDs count once.
func (s *DataService) AverageMulti(ctx context.Context, chipIDs []uint64) (models.DataRecord, error) {
	return s.averageLatest(ctx, dedupe(chipIDs))
}

func (s *DataService) Country(ctx context.Context, country string, from, to int64) ([]models.DataRecordCompressed, error) {
	w, err := s.Window(from, to)
	if err != nil {
		return nil, err
	}
	chipIDs, err := s.sensors.ChipIDsInCountry(ctx, country)
	if err != nil {
		return nil, indexError(err)
	}
	return s.scopeRecords(ctx, chipIDs, w)
}

func (s *DataService) CountryLatest(ctx context.Context, country string) (models.DataRecord, error) {
	chipIDs, err := s.sensors.ChipIDsInCountry(ctx, country)
	if err != nil {
		return models.DataRecord{}, indexError(err)
	}
	return s.averageLatest(ctx, chipIDs)
}

func (s *DataService) City(ctx context.Context, country, city string, from, to int64) ([]models.DataRecordCompressed, error) {
	w, err := s.Window(from, to)
	if err != nil {
		return nil, err
	}
	chipIDs, err := s.sensors.ChipIDsInCity(ctx, country, city)
	if err != nil {
		return nil, indexError(err)
	}
	return s.scopeRecords(ctx, chipIDs, w)
}

func (s *DataService) CityLatest(ctx context.Context, country, city string) (models.DataRecord, error) {
	chipIDs, err := s.sensors.ChipIDsInCity(ctx, country, city)
	if err != nil {
		return models.DataRecord{}, indexError(err)
	}
	return s.averageLatest(ctx, chipIDs)
}

// ChartSensor merges the records of one chip by count.
func (s *DataService) ChartSensor(ctx context.Context, chipID uint64, from, to int64, fieldIndex, mergeCount int) (*ChartResult, error) {
	w, err := s.Window(from, to)
	if err != nil {
		return nil, err
	}
	if err := validateChartParams(fieldIndex, mergeCount, math.MaxInt64, "merge count"); err != nil {
		return nil, err
	}

	records, err := s.fetch(ctx, []uint64{chipID}, w, fetchRange)
	if err != nil {
		return nil, err
	}
	sortByTimestamp(records)
	if err := checkFieldIndex(records, fieldIndex); err != nil {
		return nil, err
	}
	return &ChartResult{Series: MergeByCount(records, mergeCount), SensorCount: 1}, nil
}

// ChartCountry merges the records of all sensors of a country into time buckets.
func (s *DataService) ChartCountry(ctx context.Context, country string, from, to int64, fieldIndex, granularity int) (*ChartResult, error) {
	w, err := s.Window(from, to)
	if err != nil {
		return nil, err
	}
	if err := validateChartParams(fieldIndex, granularity, maxGranularity, "granularity"); err != nil {
		return nil, err
	}
	chipIDs, err := s.sensors.ChipIDsInCountry(ctx, country)
	if err != nil {
		return nil, indexError(err)
	}
	if len(chipIDs) == 0 {
		return nil, errors.NewNoDataRecordsError(fmt.Sprintf("No sensors found in country %q", country))
	}
	return s.chartScope(ctx, chipIDs, w, fieldIndex, granularity)
}

// ChartCity merges the records of all sensors of a city into time buckets.
func (s *DataService) ChartCity(ctx context.Context, country, city string, from, to int64, fieldIndex, granularity int) (*ChartResult, error) {
	w, err := s.Window(from, to)
	if err != nil {
		return nil, err
	}
	if err := validateChartParams(fieldIndex, granularity, maxGranularity, "granularity"); err != nil {
		return nil, err
	}
	chipIDs, err := s.sensors.ChipIDsInCity(ctx, country, city)
	if err != nil {
		return nil, indexError(err)
	}
	if len(chipIDs) == 0 {
		return nil, errors.NewNoDataRecordsError(fmt.Sprintf("No sensors found in %q, %q", city, country))
	}
	return s.chartScope(ctx, chipIDs, w, fieldIndex, granularity)
}

func (s *DataService) chartScope(ctx context.Context, chipIDs []uint64, w Window, fieldIndex, granularity int) (*ChartResult, error) {
	records, err := s.fetch(ctx, chipIDs, w, fetchRange)
	if err != nil {
		return nil, err
	}
	sortByTimestamp(records)
	if err := checkFieldIndex(records, fieldIndex); err != nil {
		return nil, err
	}
	return &ChartResult{Series: MergeByGranularity(records, granularity), SensorCount: len(chipIDs)}, nil
}

func (s *DataService) scopeRecords(ctx context.Context, chipIDs []uint64, w Window) ([]models.DataRecordCompressed, error) {
	if len(chipIDs) == 0 {
		return []models.DataRecordCompressed{}, nil
	}
	records, err := s.fetch(ctx, chipIDs, w, fetchRange)
	if err != nil {
		return nil, err
	}
	return Compress(records), nil
}

func (s *DataService) averageLatest(ctx context.Context, chipIDs []uint64) (models.DataRecord, error) {
	records, err := s.fetch(ctx, chipIDs, Window{}, fetchLatest)
	if err != nil {
		return models.DataRecord{}, err
	}
	nuts.L.Debugf("[DataService] Averaging %d latest records of %d sensors", len(records), len(chipIDs))
	return Average(records, s.nowMs()), nil
}

func indexError(err error) error {
	var apiErr *errors.APIError
	if stderrors.As(err, &apiErr) || stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return errors.NewDataAccessError("failed to query sensor index", err)
}

func dedupe(chipIDs []uint64) []uint64 {
	seen := make(map[uint64]struct{}, len(chipIDs))
	unique := make([]uint64, 0, len(chipIDs))
	for _, id := range chipIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	return unique
}
