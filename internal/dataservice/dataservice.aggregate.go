package dataservice

import (
	"github.com/ChilliBits/particulate-matter-api/internal/models"
)

// Average builds one synthetic record holding the per-label mean of all
// records. Labels keep the order of the first record; labels the first record
// lacks are dropped and records lacking a label do not count towards its mean.
func Average(records []models.DataRecord, timestamp int64) models.DataRecord {
	if len(records) == 0 {
		return models.EmptyDataRecord(timestamp)
	}

	labels := records[0].SensorDataValues
	index := make(map[string]int, len(labels))
	for i, v := range labels {
		index[v.ValueType] = i
	}

	sums := make([]float64, len(labels))
	counts := make([]int, len(labels))
	for _, record := range records {
		for _, v := range record.SensorDataValues {
			if i, ok := index[v.ValueType]; ok {
				sums[i] += v.Value
				counts[i]++
			}
		}
	}

	values := make([]models.SensorDataValue, 0, len(labels))
	for i, label := range labels {
		if counts[i] == 0 {
			continue
		}
		values = append(values, models.SensorDataValue{
			ValueType: label.ValueType,
			Value:     sums[i] / float64(counts[i]),
		})
	}
	return models.DataRecord{Timestamp: timestamp, SensorDataValues: values}
}

// meanTimestamp returns the integer mean of the record timestamps.
func meanTimestamp(records []models.DataRecord) int64 {
	base := records[0].Timestamp
	var offset int64
	for _, r := range records {
		offset += r.Timestamp - base
	}
	return base + offset/int64(len(records))
}

// Compress strips the labels of every record, keeping record order.
func Compress(records []models.DataRecord) []models.DataRecordCompressed {
	compressed := make([]models.DataRecordCompressed, len(records))
	for i, r := range records {
		compressed[i] = r.Compress()
	}
	return compressed
}
