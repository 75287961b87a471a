// FilePath: internal/models/models.chart.go
package models

import "encoding/json"

// ChartPoint is a single [timestamp, value] pair of a chart series.
type ChartPoint struct {
	Timestamp int64
	Value     float64
}

// MarshalJSON encodes the point as a two element array.
func (p ChartPoint) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{p.Timestamp, p.Value})
}

// UnmarshalJSON decodes a two element array.
func (p *ChartPoint) UnmarshalJSON(data []byte) error {
	var raw [2]json.Number
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	ts, err := raw[0].Int64()
	if err != nil {
		return err
	}
	value, err := raw[1].Float64()
	if err != nil {
		return err
	}
	p.Timestamp, p.Value = ts, value
	return nil
}

// ChartEnvelope is the response body of the chart endpoints.
// Values and Field are only set when the merged series is not empty.
type ChartEnvelope struct {
	Values       []ChartPoint `json:"values,omitempty"`
	Field        string       `json:"field,omitempty"`
	ResponseTime int64        `json:"responseTime"`
	SensorCount  int          `json:"sensorCount"`
}
