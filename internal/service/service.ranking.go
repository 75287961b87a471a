package service

import (
	"context"

	"github.com/ChilliBits/particulate-matter-api/internal/errors"
	"github.com/ChilliBits/particulate-matter-api/internal/models"
	"github.com/jellydator/ttlcache/v3"
	nuts "github.com/vaudience/go-nuts"
)

// RankingService ranks cities and countries by their number of sensors
type RankingService interface {
	CityRanking(ctx context.Context, items int) ([]models.RankingItemCity, error)
	CountryRanking(ctx context.Context, items int) ([]models.RankingItemCountry, error)
}

var _ RankingService = (*Service)(nil)

func (s *Service) CityRanking(ctx context.Context, items int) ([]models.RankingItemCity, error) {
	if items < 1 {
		return nil, errors.NewInvalidItemsCountError(items)
	}
	if cached := s.cityRanking.Get(items); cached != nil {
		return cached.Value(), nil
	}

	ranking, err := s.sensors.RankingByCity(ctx, items)
	if err != nil {
		nuts.L.Errorf("[RankingService] Failed to rank cities: %v", err)
		return nil, err
	}
	s.cityRanking.Set(items, ranking, ttlcache.DefaultTTL)
	return ranking, nil
}

func (s *Service) CountryRanking(ctx context.Context, items int) ([]models.RankingItemCountry, error) {
	if items < 1 {
		return nil, errors.NewInvalidItemsCountError(items)
	}
	if cached := s.countryRanking.Get(items); cached != nil {
		return cached.Value(), nil
	}

	ranking, err := s.sensors.RankingByCountry(ctx, items)
	if err != nil {
		nuts.L.Errorf("[RankingService] Failed to rank countries: %v", err)
		return nil, err
	}
	s.countryRanking.Set(items, ranking, ttlcache.DefaultTTL)
	return ranking, nil
}
