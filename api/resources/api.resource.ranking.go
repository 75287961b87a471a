package resources

import (
	"net/http"

	"github.com/ChilliBits/particulate-matter-api/internal/models"
	"github.com/ChilliBits/particulate-matter-api/internal/service"
)

// RankingHandlers encapsulates the ranking HTTP handlers
type RankingHandlers struct {
	service      service.RankingService
	defaultItems int
}

type rankingQuery struct {
	Items int `schema:"items"`
}

// @Summary City ranking
// @Description Cities with the most sensors
// @Tags ranking
// @Produce json
// @Param items query int false "Number of items" default(10)
// @Param compressed query bool false "Encode items as arrays"
// @Success 200 {array} models.RankingItemCity
// @Failure 406 {object} errors.APIError
// @Router /ranking/city [get]
func (h *RankingHandlers) GetCityRanking(w http.ResponseWriter, r *http.Request) {
	requestID := newRequestID(w)

	q := rankingQuery{Items: h.defaultItems}
	if apiErr := decodeQuery(r, &q); apiErr != nil {
		respondWithError(w, apiErr.WithRequestID(requestID))
		return
	}

	ranking, err := h.service.CityRanking(r.Context(), q.Items)
	if err != nil {
		respondWithQueryError(w, r, requestID, err)
		return
	}
	if !isCompressed(r) {
		respondWithJSON(w, http.StatusOK, ranking)
		return
	}
	compressed := make([]models.RankingItemCityCompressed, len(ranking))
	for i, item := range ranking {
		compressed[i] = models.RankingItemCityCompressed(item)
	}
	respondWithJSON(w, http.StatusOK, compressed)
}

// @Summary Country ranking
// @Description Countries with the most sensors
// @Tags ranking
// @Produce json
// @Param items query int false "Number of items" default(10)
// @Param compressed query bool false "Encode items as arrays"
// @Success 200 {array} models.RankingItemCountry
// @Failure 406 {object} errors.APIError
// @Router /ranking/country [get]
func (h *RankingHandlers) GetCountryRanking(w http.ResponseWriter, r *http.Request) {
	requestID := newRequestID(w)

	q := rankingQuery{Items: h.defaultItems}
	if apiErr := decodeQuery(r, &q); apiErr != nil {
		respondWithError(w, apiErr.WithRequestID(requestID))
		return
	}

	ranking, err := h.service.CountryRanking(r.Context(), q.Items)
	if err != nil {
		respondWithQueryError(w, r, requestID, err)
		return
	}
	if !isCompressed(r) {
		respondWithJSON(w, http.StatusOK, ranking)
		return
	}
	compressed := make([]models.RankingItemCountryCompressed, len(ranking))
	for i, item := range ranking {
		compressed[i] = models.RankingItemCountryCompressed(item)
	}
	respondWithJSON(w, http.StatusOK, compressed)
}
