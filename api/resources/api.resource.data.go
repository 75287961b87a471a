package resources

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/ChilliBits/particulate-matter-api/internal/dataservice"
	"github.com/ChilliBits/particulate-matter-api/internal/errors"
	"github.com/gorilla/mux"
)

// DataHandlers encapsulates the measurement query HTTP handlers
type DataHandlers struct {
	data *dataservice.DataService
}

type windowQuery struct {
	From int64 `schema:"from"`
	To   int64 `schema:"to"`
}

type chartQuery struct {
	From        int64  `schema:"from"`
	To          int64  `schema:"to"`
	ChipID      string `schema:"chipId"`
	Country     string `schema:"country"`
	City        string `schema:"city"`
	FieldIndex  int    `schema:"fieldIndex"`
	MergeCount  int    `schema:"mergeCount"`
	Granularity int    `schema:"granularity"`
}

// @Summary Get records of a sensor
// @Description Raw or compressed records of one sensor within [from, to]
// @Tags data
// @Produce json
// @Param chipId path int true "Chip ID"
// @Param from query int false "Start timestamp in ms"
// @Param to query int false "End timestamp in ms"
// @Param compressed query bool false "Strip value labels"
// @Success 200 {array} models.DataRecord
// @Failure 406 {object} errors.APIError
// @Router /data/{chipId} [get]
func (h *DataHandlers) GetRecords(w http.ResponseWriter, r *http.Request) {
	requestID := newRequestID(w)

	chipID, apiErr := chipIDVar(r)
	if apiErr != nil {
		respondWithError(w, apiErr.WithRequestID(requestID))
		return
	}
	var q windowQuery
	if apiErr := decodeQuery(r, &q); apiErr != nil {
		respondWithError(w, apiErr.WithRequestID(requestID))
		return
	}

	var (
		payload any
		err     error
	)
	if isCompressed(r) {
		payload, err = h.data.RecordsCompressed(r.Context(), chipID, q.From, q.To)
	} else {
		payload, err = h.data.Records(r.Context(), chipID, q.From, q.To)
	}
	h.respond(w, r, requestID, payload, err)
}

// @Summary Get latest record of a sensor
// @Tags data
// @Produce json
// @Param chipId path int true "Chip ID"
// @Success 200 {object} models.DataRecord
// @Failure 404 {object} errors.APIError
// @Router /data/{chipId}/latest [get]
func (h *DataHandlers) GetLatest(w http.ResponseWriter, r *http.Request) {
	requestID := newRequestID(w)

	chipID, apiErr := chipIDVar(r)
	if apiErr != nil {
		respondWithError(w, apiErr.WithRequestID(requestID))
		return
	}
	record, err := h.data.Latest(r.Context(), chipID)
	h.respond(w, r, requestID, record, err)
}

// @Summary Get all records of a sensor
// @Tags data
// @Produce json
// @Param chipId path int true "Chip ID"
// @Success 200 {array} models.DataRecordCompressed
// @Router /data/{chipId}/all [get]
func (h *DataHandlers) GetAll(w http.ResponseWriter, r *http.Request) {
	requestID := newRequestID(w)

	chipID, apiErr := chipIDVar(r)
	if apiErr != nil {
		respondWithError(w, apiErr.WithRequestID(requestID))
		return
	}
	records, err := h.data.AllCompressed(r.Context(), chipID)
	h.respond(w, r, requestID, records, err)
}

// @Summary Average of the latest records of several sensors
// @Tags data
// @Produce json
// @Param chipIds query string true "Comma separated or repeated chip IDs"
// @Success 200 {object} models.DataRecord
// @Router /data/average [get]
func (h *DataHandlers) GetAverage(w http.ResponseWriter, r *http.Request) {
	requestID := newRequestID(w)

	chipIDs, apiErr := parseChipIDs(r.URL.Query()["chipIds"])
	if apiErr != nil {
		respondWithError(w, apiErr.WithRequestID(requestID))
		return
	}
	if len(chipIDs) == 0 {
		respondWithError(w, errors.NewValidationError("missing required query parameter chipIds", nil).WithRequestID(requestID))
		return
	}
	record, err := h.data.AverageMulti(r.Context(), chipIDs)
	h.respond(w, r, requestID, record, err)
}

// @Summary Records of all sensors of a country
// @Tags data
// @Produce json
// @Param country path string true "Country"
// @Param from query int false "Start timestamp in ms"
// @Param to query int false "End timestamp in ms"
// @Success 200 {array} models.DataRecordCompressed
// @Router /data/country/{country} [get]
func (h *DataHandlers) GetCountry(w http.ResponseWriter, r *http.Request) {
	requestID := newRequestID(w)

	var q windowQuery
	if apiErr := decodeQuery(r, &q); apiErr != nil {
		respondWithError(w, apiErr.WithRequestID(requestID))
		return
	}
	records, err := h.data.Country(r.Context(), mux.Vars(r)["country"], q.From, q.To)
	h.respond(w, r, requestID, records, err)
}

// @Summary Average of the latest records of a country
// @Tags data
// @Produce json
// @Param country path string true "Country"
// @Success 200 {object} models.DataRecord
// @Router /data/country/{country}/latest [get]
func (h *DataHandlers) GetCountryLatest(w http.ResponseWriter, r *http.Request) {
	requestID := newRequestID(w)

	record, err := h.data.CountryLatest(r.Context(), mux.Vars(r)["country"])
	h.respond(w, r, requestID, record, err)
}

// @Summary Records of all sensors of a city
// @Tags data
// @Produce json
// @Param country path string true "Country"
// @Param city path string true "City"
// @Param from query int false "Start timestamp in ms"
// @Param to query int false "End timestamp in ms"
// @Success 200 {array} models.DataRecordCompressed
// @Router /data/city/{country}/{city} [get]
func (h *DataHandlers) GetCity(w http.ResponseWriter, r *http.Request) {
	requestID := newRequestID(w)

	var q windowQuery
	if apiErr := decodeQuery(r, &q); apiErr != nil {
		respondWithError(w, apiErr.WithRequestID(requestID))
		return
	}
	vars := mux.Vars(r)
	records, err := h.data.City(r.Context(), vars["country"], vars["city"], q.From, q.To)
	h.respond(w, r, requestID, records, err)
}

// @Summary Average of the latest records of a city
// @Tags data
// @Produce json
// @Param country path string true "Country"
// @Param city path string true "City"
// @Success 200 {object} models.DataRecord
// @Router /data/city/{country}/{city}/latest [get]
func (h *DataHandlers) GetCityLatest(w http.ResponseWriter, r *http.Request) {
	requestID := newRequestID(w)

	vars := mux.Vars(r)
	record, err := h.data.CityLatest(r.Context(), vars["country"], vars["city"])
	h.respond(w, r, requestID, record, err)
}

// @Summary Chart series
// @Description Merged series of one field for a sensor (by count) or a country/city (by time bucket)
// @Tags data
// @Produce json
// @Param chipId query int false "Chip ID"
// @Param country query string false "Country"
// @Param city query string false "City"
// @Param from query int false "Start timestamp in ms"
// @Param to query int false "End timestamp in ms"
// @Param fieldIndex query int false "Index of the plotted value" default(0)
// @Param mergeCount query int false "Records merged per point" default(1)
// @Param granularity query int false "Bucket width in minutes" default(60)
// @Success 200 {object} models.ChartEnvelope
// @Failure 406 {object} errors.APIError
// @Router /data/chart [get]
func (h *DataHandlers) GetChart(w http.ResponseWriter, r *http.Request) {
	startedAt := h.data.Now()
	requestID := newRequestID(w)

	q := chartQuery{MergeCount: 1, Granularity: 60}
	if apiErr := decodeQuery(r, &q); apiErr != nil {
		respondWithError(w, apiErr.WithRequestID(requestID))
		return
	}

	var (
		result *dataservice.ChartResult
		err    error
	)
	switch {
	case q.Country != "" && q.City != "":
		result, err = h.data.ChartCity(r.Context(), q.Country, q.City, q.From, q.To, q.FieldIndex, q.Granularity)
	case q.Country != "":
		result, err = h.data.ChartCountry(r.Context(), q.Country, q.From, q.To, q.FieldIndex, q.Granularity)
	case q.ChipID != "":
		chipID, parseErr := strconv.ParseUint(q.ChipID, 10, 64)
		if parseErr != nil {
			respondWithError(w, errors.NewValidationError("invalid chip id "+strconv.Quote(q.ChipID), parseErr).WithRequestID(requestID))
			return
		}
		result, err = h.data.ChartSensor(r.Context(), chipID, q.From, q.To, q.FieldIndex, q.MergeCount)
	default:
		respondWithError(w, errors.NewValidationError("either chipId or country is required", nil).WithRequestID(requestID))
		return
	}
	if err != nil {
		respondWithQueryError(w, r, requestID, err)
		return
	}
	h.respond(w, r, requestID, h.data.ChartEnvelope(result, q.FieldIndex, startedAt), nil)
}

func (h *DataHandlers) respond(w http.ResponseWriter, r *http.Request, requestID string, payload any, err error) {
	if err != nil {
		respondWithQueryError(w, r, requestID, err)
		return
	}
	if r.Context().Err() != nil {
		return
	}
	respondWithJSON(w, http.StatusOK, payload)
}

// parseChipIDs accepts repeated and comma separated chip IDs.
func parseChipIDs(raw []string) ([]uint64, *errors.APIError) {
	chipIDs := []uint64{}
	for _, value := range raw {
		for _, part := range strings.Split(value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			chipID, err := strconv.ParseUint(part, 10, 64)
			if err != nil {
				return nil, errors.NewValidationError("invalid chip id "+strconv.Quote(part), err)
			}
			chipIDs = append(chipIDs, chipID)
		}
	}
	return chipIDs, nil
}
