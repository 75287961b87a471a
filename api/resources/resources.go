package resources

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/ChilliBits/particulate-matter-api/internal/dataservice"
	"github.com/ChilliBits/particulate-matter-api/internal/errors"
	"github.com/ChilliBits/particulate-matter-api/internal/service"
	"github.com/gorilla/mux"
	"github.com/gorilla/schema"
	nuts "github.com/vaudience/go-nuts"
)

// RequestIDHeader carries the request ID back to the client
const RequestIDHeader = "X-Request-ID"

// Resources holds all HTTP resource handlers
type Resources struct {
	Data        *DataHandlers
	Ranking     *RankingHandlers
	Sensors     *SensorHandlers
	Stats       *StatsHandlers
	HealthCheck func(w http.ResponseWriter, r *http.Request)
	Metrics     http.Handler
}

// NewResources creates a new Resources instance
func NewResources(data *dataservice.DataService, svc *service.Service, defaultRankingItems int) *Resources {
	return &Resources{
		Data:        &DataHandlers{data: data},
		Ranking:     &RankingHandlers{service: svc, defaultItems: defaultRankingItems},
		Sensors:     &SensorHandlers{service: svc},
		Stats:       &StatsHandlers{service: svc},
		HealthCheck: HealthCheck,
		Metrics:     http.NotFoundHandler(),
	}
}

// SetHealthCheck sets the health check handler
func (r *Resources) SetHealthCheck(h func(w http.ResponseWriter, r *http.Request)) {
	r.HealthCheck = h
}

// SetMetrics sets the metrics handler
func (r *Resources) SetMetrics(h http.Handler) {
	r.Metrics = h
}

// @Summary Health check
// @Tags system
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": nuts.GetVersion(),
	})
}

// StorePing checks that a backing store answers
type StorePing func(ctx context.Context) error

// StoreHealthCheck returns a health check that pings every store within timeout.
// A single failing store turns the response into 503.
func StoreHealthCheck(timeout time.Duration, stores map[string]StorePing) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		status, code := "ok", http.StatusOK
		checks := make(map[string]string, len(stores))
		for name, ping := range stores {
			if err := ping(ctx); err != nil {
				nuts.L.Warnf("[API] Health check of %s failed: %v", name, err)
				checks[name] = "unavailable"
				status, code = "degraded", http.StatusServiceUnavailable
				continue
			}
			checks[name] = "ok"
		}

		respondWithJSON(w, code, map[string]any{
			"status":  status,
			"version": nuts.GetVersion(),
			"stores":  checks,
		})
	}
}

var queryDecoder = newQueryDecoder()

func newQueryDecoder() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)
	return d
}

// decodeQuery fills dst from the URL query. Fields absent from the query keep their value.
func decodeQuery(r *http.Request, dst any) *errors.APIError {
	if err := queryDecoder.Decode(dst, r.URL.Query()); err != nil {
		return errors.NewValidationError("invalid query parameters", err).WithDetails(err.Error())
	}
	return nil
}

// isCompressed reports whether the client asked for the compressed representation.
func isCompressed(r *http.Request) bool {
	values, ok := r.URL.Query()["compressed"]
	if !ok {
		return false
	}
	for _, v := range values {
		if v == "false" || v == "0" {
			return false
		}
	}
	return true
}

func chipIDVar(r *http.Request) (uint64, *errors.APIError) {
	raw := mux.Vars(r)["chipId"]
	chipID, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, errors.NewValidationError("invalid chip id "+strconv.Quote(raw), err)
	}
	return chipID, nil
}

func newRequestID(w http.ResponseWriter) string {
	requestID := nuts.NID("req", 12)
	w.Header().Set(RequestIDHeader, requestID)
	return requestID
}

// respondWithQueryError writes err unless the client has gone away, in which
// case nothing is written.
func respondWithQueryError(w http.ResponseWriter, r *http.Request, requestID string, err error) {
	if ctxErr := r.Context().Err(); ctxErr != nil {
		nuts.L.Debugf("[API] Request %s aborted: %v", requestID, ctxErr)
		return
	}
	respondWithError(w, errors.AsAPIError(err).WithRequestID(requestID))
}

func respondWithError(w http.ResponseWriter, err *errors.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.Code)
	json.NewEncoder(w).Encode(err)
	if err.Code >= http.StatusInternalServerError {
		nuts.L.Errorf("[API] %s", err.Error())
		return
	}
	nuts.L.Debugf("[API] %s", err.Error())
}

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}
