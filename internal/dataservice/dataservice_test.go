package dataservice_test

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"slices"
	"testing"
	"time"

	"github.com/ChilliBits/particulate-matter-api/internal/dataservice"
	"github.com/ChilliBits/particulate-matter-api/internal/errors"
	"github.com/ChilliBits/particulate-matter-api/internal/models"
	"github.com/ChilliBits/particulate-matter-api/internal/repository/memory"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	nowMs         = int64(1_700_000_000_000)
	defaultWindow = 24 * time.Hour
)

func record(ts int64, values ...models.SensorDataValue) models.DataRecord {
	return models.DataRecord{Timestamp: ts, SensorDataValues: values}
}

func p1(v float64) models.SensorDataValue { return models.SensorDataValue{ValueType: "P1", Value: v} }
func p2(v float64) models.SensorDataValue { return models.SensorDataValue{ValueType: "P2", Value: v} }

type fixture struct {
	sensors *memory.SensorRepo
	records *memory.DataRecordRepo
	clock   *clockwork.FakeClock
	svc     *dataservice.DataService
}

func newFixture(t *testing.T, at int64, fanout int, sensors ...models.Sensor) *fixture {
	t.Helper()

	f := &fixture{
		sensors: memory.NewSensorRepository(sensors...),
		records: memory.NewDataRecordRepository(),
		clock:   clockwork.NewFakeClockAt(time.UnixMilli(at)),
	}
	svc, err := dataservice.New(f.sensors, f.records, dataservice.Config{
		DefaultWindow:       defaultWindow,
		MaxPerRequestFanout: fanout,
		Clock:               f.clock,
	})
	require.NoError(t, err)
	t.Cleanup(svc.Close)
	f.svc = svc
	return f
}

func sensor(chipID uint64, country, city string) models.Sensor {
	return models.Sensor{ChipID: chipID, Country: country, City: city}
}

func collect(result *dataservice.ChartResult) []models.DataRecord {
	return slices.Collect(result.Series)
}

func TestDataService_New(t *testing.T) {
	t.Parallel()

	_, err := dataservice.New(nil, memory.NewDataRecordRepository(), dataservice.Config{DefaultWindow: time.Hour})
	require.Error(t, err)

	_, err = dataservice.New(memory.NewSensorRepository(), memory.NewDataRecordRepository(), dataservice.Config{})
	require.Error(t, err)

	svc, err := dataservice.New(memory.NewSensorRepository(), memory.NewDataRecordRepository(), dataservice.Config{DefaultWindow: time.Hour})
	require.NoError(t, err)
	svc.Close()
}

func TestDataService_RecordsDefaultWindow(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nowMs, 0, sensor(1234, "Germany", "Berlin"))
	f.records.Add(1234,
		record(1_699_900_000_000, p1(1), p2(1)),
		record(1_699_950_000_000, p1(10), p2(5)),
		record(1_699_990_000_000, p1(12), p2(6)),
	)

	got, err := f.svc.Records(context.Background(), 1234, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, []models.DataRecord{
		record(1_699_950_000_000, p1(10), p2(5)),
		record(1_699_990_000_000, p1(12), p2(6)),
	}, got)

	compressed, err := f.svc.RecordsCompressed(context.Background(), 1234, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, []models.DataRecordCompressed{
		{Timestamp: 1_699_950_000_000, SensorDataValues: []float64{10, 5}},
		{Timestamp: 1_699_990_000_000, SensorDataValues: []float64{12, 6}},
	}, compressed)
}

func TestDataService_InvalidTimeRangeSkipsStore(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nowMs, 0, sensor(5, "Germany", "Berlin"))

	_, err := f.svc.Records(context.Background(), 5, 10, 5)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeInvalidTimeRange))

	_, err = f.svc.Country(context.Background(), "Germany", -1, 0)
	assert.True(t, errors.IsType(err, errors.ErrorTypeInvalidTimeRange))

	assert.Empty(t, f.records.Calls())
	assert.Zero(t, f.sensors.Calls())
}

func TestDataService_AverageMulti(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nowMs, 0, sensor(1, "Germany", "Berlin"), sensor(2, "Germany", "Berlin"))
	f.records.
		Add(1, record(100, p1(1), p2(1)), record(1_000, p1(8), p2(4))).
		Add(2, record(2_000, p1(12), p2(8)))

	got, err := f.svc.AverageMulti(context.Background(), []uint64{1, 2, 2})
	require.NoError(t, err)
	assert.Equal(t, record(nowMs, p1(10), p2(6)), got)
	assert.ElementsMatch(t, []uint64{1, 2}, f.records.Calls())
}

func TestDataService_Latest(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nowMs, 0, sensor(1, "Germany", "Berlin"), sensor(2, "Germany", "Berlin"))
	f.records.Add(1, record(300, p1(3)), record(500, p1(5)), record(400, p1(4)))

	got, err := f.svc.Latest(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, record(500, p1(5)), got)

	t.Run("registered without records", func(t *testing.T) {
		got, err := f.svc.Latest(context.Background(), 2)
		require.NoError(t, err)
		assert.Equal(t, models.EmptyDataRecord(0), got)
	})

	t.Run("unregistered", func(t *testing.T) {
		_, err := f.svc.Latest(context.Background(), 99)
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypeSensorNotExisting))
	})
}

func TestDataService_AllCompressed(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nowMs, 0, sensor(1, "Germany", "Berlin"))
	f.records.Add(1, record(1, p1(1), p2(2)), record(nowMs*2, p1(3), p2(4)))

	got, err := f.svc.AllCompressed(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, []models.DataRecordCompressed{
		{Timestamp: 1, SensorDataValues: []float64{1, 2}},
		{Timestamp: nowMs * 2, SensorDataValues: []float64{3, 4}},
	}, got)
}

func TestDataService_CountryAndCity(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nowMs, 0,
		sensor(1, "Germany", "Berlin"),
		sensor(2, "Germany", "Hamburg"),
		sensor(3, "Austria", "Vienna"),
	)
	f.records.
		Add(1, record(nowMs-1_000, p1(10), p2(2))).
		Add(2, record(nowMs-2_000, p1(20), p2(4))).
		Add(3, record(nowMs-3_000, p1(30), p2(6)))

	country, err := f.svc.Country(context.Background(), "Germany", 0, 0)
	require.NoError(t, err)
	assert.ElementsMatch(t, []models.DataRecordCompressed{
		{Timestamp: nowMs - 1_000, SensorDataValues: []float64{10, 2}},
		{Timestamp: nowMs - 2_000, SensorDataValues: []float64{20, 4}},
	}, country)

	latest, err := f.svc.CountryLatest(context.Background(), "Germany")
	require.NoError(t, err)
	assert.Equal(t, record(nowMs, p1(15), p2(3)), latest)

	city, err := f.svc.City(context.Background(), "Germany", "Hamburg", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, []models.DataRecordCompressed{
		{Timestamp: nowMs - 2_000, SensorDataValues: []float64{20, 4}},
	}, city)

	cityLatest, err := f.svc.CityLatest(context.Background(), "Austria", "Vienna")
	require.NoError(t, err)
	assert.Equal(t, record(nowMs, p1(30), p2(6)), cityLatest)
}

func TestDataService_EmptyScopeSkipsStore(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nowMs, 0, sensor(1, "Germany", "Berlin"))

	for _, country := range []string{"Atlantis", "Lemuria", ""} {
		got, err := f.svc.Country(context.Background(), country, 0, 0)
		require.NoError(t, err)
		assert.Empty(t, got)
		assert.NotNil(t, got)
	}

	city, err := f.svc.City(context.Background(), "Germany", "Munich", 0, 0)
	require.NoError(t, err)
	assert.Empty(t, city)

	latest, err := f.svc.CountryLatest(context.Background(), "Atlantis")
	require.NoError(t, err)
	assert.Equal(t, models.EmptyDataRecord(nowMs), latest)

	_, err = f.svc.ChartCountry(context.Background(), "Atlantis", 0, 0, 0, 60)
	assert.True(t, errors.IsType(err, errors.ErrorTypeNoDataRecords))

	_, err = f.svc.ChartCity(context.Background(), "Germany", "Munich", 0, 0, 0, 60)
	assert.True(t, errors.IsType(err, errors.ErrorTypeNoDataRecords))

	assert.Empty(t, f.records.Calls())
}

func TestDataService_FetchFailures(t *testing.T) {
	t.Parallel()

	boom := stderrors.New("connection reset")

	t.Run("registered sensor fails the query", func(t *testing.T) {
		f := newFixture(t, nowMs, 0, sensor(1, "Germany", "Berlin"), sensor(2, "Germany", "Berlin"))
		f.records.Add(1, record(nowMs-1, p1(1))).FailOn(2, boom)

		_, err := f.svc.Country(context.Background(), "Germany", 0, 0)
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypeDataAccess))
		assert.True(t, stderrors.Is(err, boom))
	})

	t.Run("unregistered sensor is skipped", func(t *testing.T) {
		f := newFixture(t, nowMs, 0, sensor(1, "Germany", "Berlin"))
		f.records.
			Add(1, record(nowMs-1, p1(4))).
			Add(3, record(nowMs-1, p1(8))).
			FailOn(3, boom)

		got, err := f.svc.AverageMulti(context.Background(), []uint64{1, 3})
		require.NoError(t, err)
		assert.Equal(t, record(nowMs, p1(4)), got)
	})
}

func TestDataService_Cancellation(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nowMs, 0, sensor(1, "Germany", "Berlin"), sensor(2, "Germany", "Berlin"))
	f.records.Add(1, record(nowMs-1, p1(1))).WithDelay(time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(10*time.Millisecond, cancel)

	got, err := f.svc.Country(ctx, "Germany", 0, 0)
	require.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, got)
}

func TestDataService_FanoutLimit(t *testing.T) {
	t.Parallel()

	sensors := []models.Sensor{}
	for chipID := uint64(1); chipID <= 8; chipID++ {
		sensors = append(sensors, sensor(chipID, "Germany", "Berlin"))
	}
	f := newFixture(t, nowMs, 2, sensors...)
	for chipID := uint64(1); chipID <= 8; chipID++ {
		f.records.Add(chipID, record(nowMs-int64(chipID), p1(float64(chipID))))
	}
	f.records.WithDelay(20 * time.Millisecond)

	got, err := f.svc.CountryLatest(context.Background(), "Germany")
	require.NoError(t, err)
	assert.Equal(t, record(nowMs, p1(4.5)), got)
	assert.Len(t, f.records.Calls(), 8)
	assert.LessOrEqual(t, f.records.PeakInFlight(), 2)

	unbounded := newFixture(t, nowMs, 0, sensors...)
	for chipID := uint64(1); chipID <= 8; chipID++ {
		unbounded.records.Add(chipID, record(nowMs-int64(chipID), p1(float64(chipID))))
	}
	unbounded.records.WithDelay(50 * time.Millisecond)

	_, err = unbounded.svc.CountryLatest(context.Background(), "Germany")
	require.NoError(t, err)
	assert.Greater(t, unbounded.records.PeakInFlight(), 2)
}

func TestDataService_ChartSensor(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 1_000, 0, sensor(7, "Germany", "Berlin"))
	f.records.Add(7, record(300, p1(5)), record(100, p1(1)), record(200, p1(3)))

	startedAt := f.svc.Now()
	result, err := f.svc.ChartSensor(context.Background(), 7, 0, 0, 0, 2)
	require.NoError(t, err)
	f.clock.Advance(25 * time.Millisecond)

	envelope := f.svc.ChartEnvelope(result, 0, startedAt)
	assert.Equal(t, models.ChartEnvelope{
		Values:       []models.ChartPoint{{Timestamp: 150, Value: 2}, {Timestamp: 300, Value: 5}},
		Field:        "P1",
		ResponseTime: 25,
		SensorCount:  1,
	}, envelope)
}

func TestDataService_ChartSensorValidation(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 1_000, 0, sensor(7, "Germany", "Berlin"))
	f.records.Add(7, record(100, p1(1)))

	_, err := f.svc.ChartSensor(context.Background(), 7, 0, 0, 0, 0)
	assert.True(t, errors.IsType(err, errors.ErrorTypeInvalidMergeCount))

	_, err = f.svc.ChartSensor(context.Background(), 7, 0, 0, -1, 1)
	assert.True(t, errors.IsType(err, errors.ErrorTypeInvalidFieldIndex))

	_, err = f.svc.ChartCountry(context.Background(), "Germany", 0, 0, 0, 0)
	assert.True(t, errors.IsType(err, errors.ErrorTypeInvalidMergeCount))

	_, err = f.svc.ChartCountry(context.Background(), "Germany", 0, 0, 0, 1<<59)
	assert.True(t, errors.IsType(err, errors.ErrorTypeInvalidMergeCount), "bucket width must fit into int64")

	_, err = f.svc.ChartCity(context.Background(), "Germany", "Berlin", 0, 0, 0, 1<<59)
	assert.True(t, errors.IsType(err, errors.ErrorTypeInvalidMergeCount))

	assert.Empty(t, f.records.Calls())

	_, err = f.svc.ChartSensor(context.Background(), 7, 0, 0, 1, 1)
	assert.True(t, errors.IsType(err, errors.ErrorTypeInvalidFieldIndex))

	result, err := f.svc.ChartSensor(context.Background(), 7, 500, 900, 3, 1)
	require.NoError(t, err, "field index is only checked against existing records")
	assert.Empty(t, collect(result))
}

func TestDataService_ChartCountryGranularity(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 1_700_010_000_000, 0, sensor(11, "Germany", "Berlin"), sensor(12, "Germany", "Hamburg"))
	f.records.
		Add(11, record(1_700_003_600_000, p1(40)), record(1_700_000_000_000, p1(10))).
		Add(12, record(1_700_000_600_000, p1(20)))

	result, err := f.svc.ChartCountry(context.Background(), "Germany", 0, 0, 0, 60)
	require.NoError(t, err)

	envelope := dataservice.Envelope(result, 0, 0)
	assert.Equal(t, []models.ChartPoint{
		{Timestamp: 1_699_999_200_000, Value: 15},
		{Timestamp: 1_700_002_800_000, Value: 40},
	}, envelope.Values)
	assert.Equal(t, "P1", envelope.Field)
	assert.Equal(t, 2, envelope.SensorCount)

	city, err := f.svc.ChartCity(context.Background(), "Germany", "Hamburg", 0, 0, 0, 60)
	require.NoError(t, err)
	assert.Equal(t, 1, city.SensorCount)
	assert.Equal(t, []models.DataRecord{record(1_699_999_200_000, p1(20))}, collect(city))
}

func TestDataService_EnvelopeOmitsEmptySeries(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nowMs, 0, sensor(1, "Germany", "Berlin"))

	result, err := f.svc.ChartCountry(context.Background(), "Germany", 0, 0, 0, 60)
	require.NoError(t, err)

	body, err := json.Marshal(dataservice.Envelope(result, 0, 3*time.Millisecond))
	require.NoError(t, err)
	assert.JSONEq(t, `{"responseTime":3,"sensorCount":1}`, string(body))
}
