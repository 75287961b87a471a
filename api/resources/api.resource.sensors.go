package resources

import (
	"net/http"

	"github.com/ChilliBits/particulate-matter-api/internal/errors"
	"github.com/ChilliBits/particulate-matter-api/internal/service"
)

// SensorHandlers encapsulates the sensor-related HTTP handlers
type SensorHandlers struct {
	service service.SensorService
}

type radiusQuery struct {
	Latitude  *float64 `schema:"latitude"`
	Longitude *float64 `schema:"longitude"`
	Radius    *int     `schema:"radius"`
}

// @Summary Get sensor
// @Description Metadata of one sensor
// @Tags sensors
// @Produce json
// @Param chipId path int true "Chip ID"
// @Success 200 {object} models.Sensor
// @Failure 404 {object} errors.APIError
// @Router /sensor/{chipId} [get]
func (h *SensorHandlers) GetSensor(w http.ResponseWriter, r *http.Request) {
	requestID := newRequestID(w)

	chipID, apiErr := chipIDVar(r)
	if apiErr != nil {
		respondWithError(w, apiErr.WithRequestID(requestID))
		return
	}

	sensor, err := h.service.GetSensor(r.Context(), chipID)
	if err != nil {
		respondWithQueryError(w, r, requestID, err)
		return
	}
	respondWithJSON(w, http.StatusOK, sensor)
}

// @Summary Sensors in radius
// @Description Sensors within a radius around a position, nearest first
// @Tags sensors
// @Produce json
// @Param latitude query number true "Latitude"
// @Param longitude query number true "Longitude"
// @Param radius query int true "Radius in meters"
// @Success 200 {array} models.SensorWithDistance
// @Failure 400 {object} errors.APIError
// @Router /sensor [get]
func (h *SensorHandlers) FindSensorsInRadius(w http.ResponseWriter, r *http.Request) {
	requestID := newRequestID(w)

	var q radiusQuery
	if apiErr := decodeQuery(r, &q); apiErr != nil {
		respondWithError(w, apiErr.WithRequestID(requestID))
		return
	}
	if q.Latitude == nil || q.Longitude == nil || q.Radius == nil {
		respondWithError(w, errors.NewValidationError("latitude, longitude and radius are required", nil).WithRequestID(requestID))
		return
	}

	sensors, err := h.service.FindSensorsInRadius(r.Context(), *q.Latitude, *q.Longitude, *q.Radius)
	if err != nil {
		respondWithQueryError(w, r, requestID, err)
		return
	}
	respondWithJSON(w, http.StatusOK, sensors)
}
