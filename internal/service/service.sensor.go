package service

import (
	"context"
	"fmt"

	"github.com/ChilliBits/particulate-matter-api/internal/errors"
	"github.com/ChilliBits/particulate-matter-api/internal/models"
)

// SensorService handles sensor metadata lookups
type SensorService interface {
	GetSensor(ctx context.Context, chipID uint64) (*models.Sensor, error)
	FindSensorsInRadius(ctx context.Context, latitude, longitude float64, radiusMeters int) ([]models.SensorWithDistance, error)
}

var _ SensorService = (*Service)(nil)

func (s *Service) GetSensor(ctx context.Context, chipID uint64) (*models.Sensor, error) {
	return s.sensors.Get(ctx, chipID)
}

// FindSensorsInRadius returns the sensors within radiusMeters of a WGS84 position, nearest first.
func (s *Service) FindSensorsInRadius(ctx context.Context, latitude, longitude float64, radiusMeters int) ([]models.SensorWithDistance, error) {
	if latitude < -90 || latitude > 90 {
		return nil, errors.NewValidationError(fmt.Sprintf("latitude %v out of range [-90, 90]", latitude), nil)
	}
	if longitude < -180 || longitude > 180 {
		return nil, errors.NewValidationError(fmt.Sprintf("longitude %v out of range [-180, 180]", longitude), nil)
	}
	if radiusMeters < 1 {
		return nil, errors.NewValidationError("radius must be at least 1 meter", nil)
	}
	return s.sensors.FindInRadius(ctx, latitude, longitude, radiusMeters)
}
