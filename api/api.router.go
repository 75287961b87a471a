package api

import (
	"context"
	"net/http"

	"github.com/ChilliBits/particulate-matter-api/api/resources"
	"github.com/ChilliBits/particulate-matter-api/internal/dataservice"
	"github.com/ChilliBits/particulate-matter-api/internal/monitoring"
	"github.com/ChilliBits/particulate-matter-api/internal/service"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	nuts "github.com/vaudience/go-nuts"
)

// RequestRecorder counts served requests
type RequestRecorder interface {
	RecordRequest(ctx context.Context) error
}

type Router struct {
	router    *mux.Router
	resources *resources.Resources
	requests  RequestRecorder
	monitor   *monitoring.Service
}

func NewRouter(data *dataservice.DataService, svc *service.Service, monitor *monitoring.Service, defaultRankingItems int) *Router {
	r := &Router{
		router:    mux.NewRouter(),
		resources: resources.NewResources(data, svc, defaultRankingItems),
		requests:  svc,
		monitor:   monitor,
	}
	r.resources.SetMetrics(monitor.Handler())

	r.setupRoutes()
	return r
}

func (r *Router) setupRoutes() {
	r.router.Use(r.monitor.Middleware)

	// System routes
	r.router.HandleFunc("/health", func(w http.ResponseWriter, req *http.Request) {
		r.resources.HealthCheck(w, req)
	}).Methods(http.MethodGet)
	r.router.Handle("/metrics", r.resources.Metrics).Methods(http.MethodGet)

	// Counted public routes
	public := r.router.PathPrefix("").Subrouter()
	public.Use(r.countRequests)

	// Data
	data := public.PathPrefix("/data").Subrouter()
	data.HandleFunc("/average", r.resources.Data.GetAverage).Methods(http.MethodGet)
	data.HandleFunc("/chart", r.resources.Data.GetChart).Methods(http.MethodGet)
	data.HandleFunc("/country/{country}", r.resources.Data.GetCountry).Methods(http.MethodGet)
	data.HandleFunc("/country/{country}/latest", r.resources.Data.GetCountryLatest).Methods(http.MethodGet)
	data.HandleFunc("/city/{country}/{city}", r.resources.Data.GetCity).Methods(http.MethodGet)
	data.HandleFunc("/city/{country}/{city}/latest", r.resources.Data.GetCityLatest).Methods(http.MethodGet)
	data.HandleFunc("/{chipId:[0-9]+}", r.resources.Data.GetRecords).Methods(http.MethodGet)
	data.HandleFunc("/{chipId:[0-9]+}/latest", r.resources.Data.GetLatest).Methods(http.MethodGet)
	data.HandleFunc("/{chipId:[0-9]+}/all", r.resources.Data.GetAll).Methods(http.MethodGet)

	// Ranking
	ranking := public.PathPrefix("/ranking").Subrouter()
	ranking.HandleFunc("/city", r.resources.Ranking.GetCityRanking).Methods(http.MethodGet)
	ranking.HandleFunc("/country", r.resources.Ranking.GetCountryRanking).Methods(http.MethodGet)

	// Sensors
	public.HandleFunc("/sensor", r.resources.Sensors.FindSensorsInRadius).Methods(http.MethodGet)
	public.HandleFunc("/sensor/{chipId:[0-9]+}", r.resources.Sensors.GetSensor).Methods(http.MethodGet)

	// Stats
	public.HandleFunc("/stats", r.resources.Stats.GetStats).Methods(http.MethodGet)
}

// SetHealthCheck replaces the handler behind /health
func (r *Router) SetHealthCheck(h func(w http.ResponseWriter, r *http.Request)) {
	r.resources.SetHealthCheck(h)
}

// countRequests increments the request counters once the request is served.
func (r *Router) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		next.ServeHTTP(w, req)
		if err := r.requests.RecordRequest(context.WithoutCancel(req.Context())); err != nil {
			nuts.L.Warnf("[Router] Failed to count request: %v", err)
		}
	})
}

// Handler returns the router wrapped in panic recovery, CORS and response compression.
func (r *Router) Handler() http.Handler {
	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodOptions}),
		handlers.ExposedHeaders([]string{resources.RequestIDHeader}),
	)
	return handlers.RecoveryHandler(handlers.PrintRecoveryStack(true))(
		cors(handlers.CompressHandler(r.router)),
	)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.router.ServeHTTP(w, req)
}
