// FilePath: internal/models/models.data_record.go
package models

// SensorDataValue is one labeled measurement inside a record, e.g. ("P1", 10.5)
type SensorDataValue struct {
	ValueType string  `json:"valueType" bson:"valueType"`
	Value     float64 `json:"value" bson:"value"`
}

// DataRecord is one measurement sample of one sensor at one instant.
// Timestamp is in milliseconds since the Unix epoch.
type DataRecord struct {
	Timestamp        int64             `json:"timestamp" bson:"timestamp"`
	SensorDataValues []SensorDataValue `json:"sensorDataValues" bson:"sensorDataValues"`
}

// DataRecordCompressed drops the value labels and keeps the values in record order.
type DataRecordCompressed struct {
	Timestamp        int64     `json:"timestamp"`
	SensorDataValues []float64 `json:"sensorDataValues"`
}

// EmptyDataRecord returns a record without values at the given timestamp.
func EmptyDataRecord(timestamp int64) DataRecord {
	return DataRecord{Timestamp: timestamp, SensorDataValues: []SensorDataValue{}}
}

// Compress strips the labels of the record.
func (r DataRecord) Compress() DataRecordCompressed {
	values := make([]float64, len(r.SensorDataValues))
	for i, v := range r.SensorDataValues {
		values[i] = v.Value
	}
	return DataRecordCompressed{Timestamp: r.Timestamp, SensorDataValues: values}
}
