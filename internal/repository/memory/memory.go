// Package memory holds in-process implementations of the repositories,
// used for local development and as test doubles.
package memory

import (
	"context"
	"math"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/ChilliBits/particulate-matter-api/internal/errors"
	"github.com/ChilliBits/particulate-matter-api/internal/models"
	"github.com/ChilliBits/particulate-matter-api/internal/repository"
)

var (
	_ repository.SensorRepository       = (*SensorRepo)(nil)
	_ repository.DataRecordRepository   = (*DataRecordRepo)(nil)
	_ repository.RequestStatsRepository = (*RequestStatsRepo)(nil)
)

// SensorRepo keeps sensor metadata in a map keyed by chip ID.
type SensorRepo struct {
	mu      sync.RWMutex
	sensors map[uint64]models.Sensor
	calls   int
}

func NewSensorRepository(sensors ...models.Sensor) *SensorRepo {
	r := &SensorRepo{sensors: make(map[uint64]models.Sensor, len(sensors))}
	for _, s := range sensors {
		r.sensors[s.ChipID] = s
	}
	return r
}

// Put adds or replaces a sensor.
func (r *SensorRepo) Put(sensor models.Sensor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sensors[sensor.ChipID] = sensor
}

// Calls returns how many repository operations were served.
func (r *SensorRepo) Calls() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.calls
}

func (r *SensorRepo) filter(match func(models.Sensor) bool) []models.Sensor {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++

	matched := []models.Sensor{}
	for _, s := range r.sensors {
		if match(s) {
			matched = append(matched, s)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ChipID < matched[j].ChipID })
	return matched
}

func chipIDs(sensors []models.Sensor) []uint64 {
	ids := make([]uint64, len(sensors))
	for i, s := range sensors {
		ids[i] = s.ChipID
	}
	return ids
}

func (r *SensorRepo) ChipIDsInCountry(ctx context.Context, country string) ([]uint64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return chipIDs(r.filter(func(s models.Sensor) bool { return s.Country == country })), nil
}

func (r *SensorRepo) ChipIDsInCity(ctx context.Context, country, city string) ([]uint64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return chipIDs(r.filter(func(s models.Sensor) bool { return s.Country == country && s.City == city })), nil
}

func (r *SensorRepo) Exists(ctx context.Context, chipID uint64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return len(r.filter(func(s models.Sensor) bool { return s.ChipID == chipID })) > 0, nil
}

func (r *SensorRepo) Get(ctx context.Context, chipID uint64) (*models.Sensor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	found := r.filter(func(s models.Sensor) bool { return s.ChipID == chipID })
	if len(found) == 0 {
		return nil, errors.NewSensorNotExistingError(chipID)
	}
	return &found[0], nil
}

func (r *SensorRepo) FindInRadius(ctx context.Context, latitude, longitude float64, radiusMeters int) ([]models.SensorWithDistance, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	hits := []models.SensorWithDistance{}
	for _, s := range r.filter(func(models.Sensor) bool { return true }) {
		d := distanceMeters(latitude, longitude, s.GpsLatitude, s.GpsLongitude)
		if d <= float64(radiusMeters) {
			hits = append(hits, models.SensorWithDistance{Sensor: s, Distance: d})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })
	return hits, nil
}

func (r *SensorRepo) CountTotal(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return int64(len(r.filter(func(models.Sensor) bool { return true }))), nil
}

func (r *SensorRepo) CountActive(ctx context.Context, minLastMeasurement int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	active := r.filter(func(s models.Sensor) bool { return s.LastMeasurementTimestamp > minLastMeasurement })
	return int64(len(active)), nil
}

func (r *SensorRepo) RankingByCity(ctx context.Context, items int) ([]models.RankingItemCity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	counts := map[[2]string]int64{}
	for _, s := range r.filter(func(models.Sensor) bool { return true }) {
		counts[[2]string{s.Country, s.City}]++
	}
	ranking := make([]models.RankingItemCity, 0, len(counts))
	for key, count := range counts {
		ranking = append(ranking, models.RankingItemCity{Country: key[0], City: key[1], Count: count})
	}
	sort.Slice(ranking, func(i, j int) bool {
		a, b := ranking[i], ranking[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		if a.Country != b.Country {
			return a.Country < b.Country
		}
		return a.City < b.City
	})
	return ranking[:min(items, len(ranking))], nil
}

func (r *SensorRepo) RankingByCountry(ctx context.Context, items int) ([]models.RankingItemCountry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	counts := map[string]int64{}
	for _, s := range r.filter(func(models.Sensor) bool { return true }) {
		counts[s.Country]++
	}
	ranking := make([]models.RankingItemCountry, 0, len(counts))
	for country, count := range counts {
		ranking = append(ranking, models.RankingItemCountry{Country: country, Count: count})
	}
	sort.Slice(ranking, func(i, j int) bool {
		if ranking[i].Count != ranking[j].Count {
			return ranking[i].Count > ranking[j].Count
		}
		return ranking[i].Country < ranking[j].Country
	})
	return ranking[:min(items, len(ranking))], nil
}

func distanceMeters(lat1, lng1, lat2, lng2 float64) float64 {
	const earthRadiusMeters = 6371000
	rad := func(deg float64) float64 { return deg * math.Pi / 180 }
	cos := math.Cos(rad(lat1))*math.Cos(rad(lat2))*math.Cos(rad(lng2)-rad(lng1)) +
		math.Sin(rad(lat1))*math.Sin(rad(lat2))
	return earthRadiusMeters * math.Acos(math.Max(-1, math.Min(1, cos)))
}

// DataRecordRepo keeps one record slice per chip. Records are returned in insertion order.
type DataRecordRepo struct {
	mu       sync.Mutex
	records  map[uint64][]models.DataRecord
	failures map[uint64]error
	delay    time.Duration
	calls    []uint64
	inFlight int
	peak     int
}

func NewDataRecordRepository() *DataRecordRepo {
	return &DataRecordRepo{
		records:  map[uint64][]models.DataRecord{},
		failures: map[uint64]error{},
	}
}

// Add appends records to the collection of a chip.
func (r *DataRecordRepo) Add(chipID uint64, records ...models.DataRecord) *DataRecordRepo {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[chipID] = append(r.records[chipID], records...)
	return r
}

// FailOn makes every call for the chip return err.
func (r *DataRecordRepo) FailOn(chipID uint64, err error) *DataRecordRepo {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures[chipID] = err
	return r
}

// WithDelay blocks every call for d or until the context is done.
func (r *DataRecordRepo) WithDelay(d time.Duration) *DataRecordRepo {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delay = d
	return r
}

// Calls returns the chip IDs of all served calls in arrival order.
func (r *DataRecordRepo) Calls() []uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.calls)
}

// PeakInFlight returns the highest number of calls that were served at the same time.
func (r *DataRecordRepo) PeakInFlight() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.peak
}

func (r *DataRecordRepo) begin(ctx context.Context, chipID uint64) ([]models.DataRecord, error) {
	r.mu.Lock()
	r.calls = append(r.calls, chipID)
	r.inFlight++
	r.peak = max(r.peak, r.inFlight)
	defer func() {
		r.mu.Lock()
		r.inFlight--
		r.mu.Unlock()
	}()
	delay := r.delay
	failure := r.failures[chipID]
	records := slices.Clone(r.records[chipID])
	r.mu.Unlock()

	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if failure != nil {
		return nil, failure
	}
	return records, nil
}

func (r *DataRecordRepo) ScanRange(ctx context.Context, chipID uint64, from, to int64) ([]models.DataRecord, error) {
	records, err := r.begin(ctx, chipID)
	if err != nil {
		return nil, err
	}
	inRange := []models.DataRecord{}
	for _, rec := range records {
		if rec.Timestamp >= from && rec.Timestamp <= to {
			inRange = append(inRange, rec)
		}
	}
	return inRange, nil
}

func (r *DataRecordRepo) Latest(ctx context.Context, chipID uint64) (*models.DataRecord, error) {
	records, err := r.begin(ctx, chipID)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	latest := slices.MaxFunc(records, func(a, b models.DataRecord) int {
		return cmpInt64(a.Timestamp, b.Timestamp)
	})
	return &latest, nil
}

func (r *DataRecordRepo) ScanAll(ctx context.Context, chipID uint64) ([]models.DataRecord, error) {
	records, err := r.begin(ctx, chipID)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []models.DataRecord{}
	}
	return records, nil
}

func cmpInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// RequestStatsRepo counts requests per UTC day.
type RequestStatsRepo struct {
	mu    sync.Mutex
	total int64
	days  map[string]int64
}

func NewRequestStatsRepository() *RequestStatsRepo {
	return &RequestStatsRepo{days: map[string]int64{}}
}

func dayKey(at time.Time) string {
	return at.UTC().Format("2006-01-02")
}

func (r *RequestStatsRepo) Increment(_ context.Context, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.total++
	r.days[dayKey(at)]++
	return nil
}

func (r *RequestStatsRepo) Counts(_ context.Context, at time.Time) (models.RequestCounts, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return models.RequestCounts{
		Total:     r.total,
		Today:     r.days[dayKey(at)],
		Yesterday: r.days[dayKey(at.AddDate(0, 0, -1))],
	}, nil
}
