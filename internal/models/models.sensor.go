// FilePath: internal/models/models.sensor.go
package models

// Sensor is the relational metadata row of a physical sensor module.
type Sensor struct {
	ChipID                   uint64  `json:"chipId" db:"chip_id"`
	GpsLatitude              float64 `json:"gpsLatitude" db:"gps_latitude"`
	GpsLongitude             float64 `json:"gpsLongitude" db:"gps_longitude"`
	Country                  string  `json:"country" db:"country"`
	City                     string  `json:"city" db:"city"`
	Indoor                   bool    `json:"indoor" db:"indoor"`
	Published                bool    `json:"published" db:"published"`
	LastEditTimestamp        int64   `json:"lastEditTimestamp" db:"last_edit_timestamp"`
	LastMeasurementTimestamp int64   `json:"lastMeasurementTimestamp" db:"last_measurement_timestamp"`
	Notes                    string  `json:"notes" db:"notes"`
	FirmwareVersion          string  `json:"firmwareVersion" db:"firmware_version"`
}

// SensorWithDistance is a radius search hit, distance in meters.
type SensorWithDistance struct {
	Sensor
	Distance float64 `json:"distance" db:"distance"`
}
