package resources

import (
	"net/http"

	"github.com/ChilliBits/particulate-matter-api/internal/service"
)

// StatsHandlers encapsulates the stats HTTP handlers
type StatsHandlers struct {
	service service.StatsService
}

// @Summary Service stats
// @Description Sensor map totals and served request counters
// @Tags stats
// @Produce json
// @Success 200 {object} models.Stats
// @Router /stats [get]
func (h *StatsHandlers) GetStats(w http.ResponseWriter, r *http.Request) {
	requestID := newRequestID(w)

	stats, err := h.service.Stats(r.Context())
	if err != nil {
		respondWithQueryError(w, r, requestID, err)
		return
	}
	respondWithJSON(w, http.StatusOK, stats)
}
