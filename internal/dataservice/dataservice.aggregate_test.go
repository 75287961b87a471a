package dataservice_test

import (
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/ChilliBits/particulate-matter-api/internal/dataservice"
	"github.com/ChilliBits/particulate-matter-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomRecords(rng *rand.Rand, n int) []models.DataRecord {
	records := make([]models.DataRecord, n)
	ts := int64(1_700_000_000_000)
	for i := range records {
		ts += rng.Int64N(600_000) + 1
		records[i] = record(ts, p1(rng.Float64()*100), p2(rng.Float64()*50))
	}
	return records
}

func TestAverage(t *testing.T) {
	t.Parallel()

	t.Run("empty input", func(t *testing.T) {
		assert.Equal(t, models.EmptyDataRecord(42), dataservice.Average(nil, 42))
	})

	t.Run("label order follows first record", func(t *testing.T) {
		got := dataservice.Average([]models.DataRecord{
			record(1, p2(2), p1(1)),
			record(2, p1(3), p2(4)),
		}, 9)
		assert.Equal(t, record(9, p2(3), p1(2)), got)
	})

	t.Run("missing labels are skipped", func(t *testing.T) {
		temperature := models.SensorDataValue{ValueType: "temperature", Value: 30}
		got := dataservice.Average([]models.DataRecord{
			record(1, p1(10), p2(2)),
			record(2, p1(20)),
			record(3, p1(30), temperature),
		}, 9)
		assert.Equal(t, record(9, p1(20), p2(2)), got)
	})

	t.Run("mean of every label", func(t *testing.T) {
		rng := rand.New(rand.NewPCG(1, 2))
		for n := 1; n <= 40; n++ {
			records := randomRecords(rng, n)

			var sum float64
			for _, r := range records {
				sum += r.SensorDataValues[0].Value
			}
			got := dataservice.Average(records, 0)
			require.Len(t, got.SensorDataValues, 2)
			assert.InDelta(t, sum/float64(n), got.SensorDataValues[0].Value, 1e-12)
		}
	})
}

func TestCompress_FollowsLabelOrder(t *testing.T) {
	t.Parallel()

	records := []models.DataRecord{
		record(1, p1(1.5), p2(2.5)),
		record(2, p2(7), p1(8)),
	}
	got := dataservice.Compress(records)
	require.Len(t, got, 2)
	for i, r := range records {
		assert.Equal(t, r.Timestamp, got[i].Timestamp)
		for j, v := range r.SensorDataValues {
			assert.Equal(t, v.Value, got[i].SensorDataValues[j])
		}
	}
}

func TestMergeByCount(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewPCG(3, 4))
	for _, n := range []int{0, 1, 2, 7, 20} {
		records := randomRecords(rng, n)
		for _, k := range []int{1, 2, 3, 5, 25} {
			merged := slices.Collect(dataservice.MergeByCount(records, k))

			assert.Len(t, merged, (n+k-1)/k, "n=%d k=%d", n, k)
			assert.True(t, slices.IsSortedFunc(merged, func(a, b models.DataRecord) int {
				return int(a.Timestamp - b.Timestamp)
			}), "n=%d k=%d", n, k)
			if k == 1 {
				if n == 0 {
					assert.Empty(t, merged)
				} else {
					assert.Equal(t, records, merged)
				}
			}
		}
	}
}

func TestMergeByCount_StopsEarly(t *testing.T) {
	t.Parallel()

	records := randomRecords(rand.New(rand.NewPCG(5, 6)), 10)
	seen := 0
	for range dataservice.MergeByCount(records, 2) {
		seen++
		if seen == 2 {
			break
		}
	}
	assert.Equal(t, 2, seen)
}

func TestMergeByGranularity(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewPCG(7, 8))
	records := randomRecords(rng, 200)

	for _, g := range []int{1, 5, 60, 1440} {
		width := int64(g) * 60_000
		merged := slices.Collect(dataservice.MergeByGranularity(records, g))
		require.NotEmpty(t, merged)

		for i, m := range merged {
			assert.Zero(t, m.Timestamp%width, "g=%d", g)
			if i > 0 {
				assert.Greater(t, m.Timestamp, merged[i-1].Timestamp)
			}
		}

		buckets := map[int64]struct{}{}
		for _, r := range records {
			buckets[r.Timestamp/width] = struct{}{}
		}
		assert.Len(t, merged, len(buckets), "g=%d", g)
	}
}

func TestMergeByGranularity_SameBucket(t *testing.T) {
	t.Parallel()

	records := []models.DataRecord{
		record(3_600_000, p1(1)),
		record(3_600_000+3_599_999, p1(3)),
		record(7_200_000, p1(10)),
	}
	merged := slices.Collect(dataservice.MergeByGranularity(records, 60))
	assert.Equal(t, []models.DataRecord{
		record(3_600_000, p1(2)),
		record(7_200_000, p1(10)),
	}, merged)
}
