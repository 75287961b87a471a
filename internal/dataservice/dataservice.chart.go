package dataservice

import (
	"cmp"
	"fmt"
	"iter"
	"math"
	"slices"
	"time"

	"github.com/ChilliBits/particulate-matter-api/internal/errors"
	"github.com/ChilliBits/particulate-matter-api/internal/models"
)

const (
	minuteMs = int64(time.Minute / time.Millisecond)
	// maxGranularity keeps the bucket width in milliseconds within int64.
	maxGranularity = math.MaxInt64 / minuteMs
)

// ChartResult is a merged series ready for plotting together with the
// number of sensors that were in scope.
type ChartResult struct {
	Series      iter.Seq[models.DataRecord]
	SensorCount int
}

func sortByTimestamp(records []models.DataRecord) {
	slices.SortStableFunc(records, func(a, b models.DataRecord) int {
		return cmp.Compare(a.Timestamp, b.Timestamp)
	})
}

// MergeByCount lazily merges every k consecutive records of a sorted slice.
// The merged timestamp is the mean of the group timestamps and a trailing
// partial group is emitted as well.
func MergeByCount(sorted []models.DataRecord, k int) iter.Seq[models.DataRecord] {
	return func(yield func(models.DataRecord) bool) {
		for start := 0; start < len(sorted); start += k {
			group := sorted[start:min(start+k, len(sorted))]
			if !yield(Average(group, meanTimestamp(group))) {
				return
			}
		}
	}
}

// MergeByGranularity lazily merges the records of a sorted slice into buckets
// of granularityMinutes. Each merged record is stamped with its bucket start;
// empty buckets are omitted.
func MergeByGranularity(sorted []models.DataRecord, granularityMinutes int) iter.Seq[models.DataRecord] {
	width := int64(granularityMinutes) * minuteMs
	return func(yield func(models.DataRecord) bool) {
		start := 0
		for start < len(sorted) {
			bucket := sorted[start].Timestamp / width
			end := start + 1
			for end < len(sorted) && sorted[end].Timestamp/width == bucket {
				end++
			}
			if !yield(Average(sorted[start:end], bucket*width)) {
				return
			}
			start = end
		}
	}
}

func validateChartParams(fieldIndex, merge int, maxMerge int64, mergeName string) error {
	if merge < 1 {
		return errors.NewInvalidMergeCountError("Invalid " + mergeName + ". Please provide a number >= 1")
	}
	if int64(merge) > maxMerge {
		return errors.NewInvalidMergeCountError(fmt.Sprintf("Invalid %s. Please provide a number <= %d", mergeName, maxMerge))
	}
	if fieldIndex < 0 {
		return errors.NewInvalidFieldIndexError(fieldIndex, 0)
	}
	return nil
}

func checkFieldIndex(sorted []models.DataRecord, fieldIndex int) error {
	if len(sorted) == 0 {
		return nil
	}
	if count := len(sorted[0].SensorDataValues); count <= fieldIndex {
		return errors.NewInvalidFieldIndexError(fieldIndex, count)
	}
	return nil
}

// Envelope renders a chart result for the client. Merged records lacking the
// selected field contribute no point; the field label is taken from the first
// point.
func Envelope(result *ChartResult, fieldIndex int, responseTime time.Duration) models.ChartEnvelope {
	envelope := models.ChartEnvelope{
		ResponseTime: responseTime.Milliseconds(),
		SensorCount:  result.SensorCount,
	}
	for record := range result.Series {
		if fieldIndex >= len(record.SensorDataValues) {
			continue
		}
		value := record.SensorDataValues[fieldIndex]
		if envelope.Field == "" {
			envelope.Field = value.ValueType
		}
		envelope.Values = append(envelope.Values, models.ChartPoint{Timestamp: record.Timestamp, Value: value.Value})
	}
	return envelope
}

// ChartEnvelope renders a chart result, timing the response from startedAt.
func (s *DataService) ChartEnvelope(result *ChartResult, fieldIndex int, startedAt time.Time) models.ChartEnvelope {
	return Envelope(result, fieldIndex, s.cfg.Clock.Since(startedAt))
}
