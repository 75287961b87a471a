// FilePath: internal/models/models.stats.go
package models

// Stats summarizes the sensor map and the API request counters.
type Stats struct {
	SensorsMapTotal         int64 `json:"sensorsMapTotal"`
	SensorsMapActive        int64 `json:"sensorsMapActive"`
	ServerRequestsTotal     int64 `json:"serverRequestsTotal"`
	ServerRequestsToday     int64 `json:"serverRequestsToday"`
	ServerRequestsYesterday int64 `json:"serverRequestsYesterday"`
}

// RequestCounts is a snapshot of the request counters.
type RequestCounts struct {
	Total     int64
	Today     int64
	Yesterday int64
}
