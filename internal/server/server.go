package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ChilliBits/particulate-matter-api/api"
	"github.com/ChilliBits/particulate-matter-api/api/resources"
	"github.com/ChilliBits/particulate-matter-api/internal/config"
	"github.com/ChilliBits/particulate-matter-api/internal/database"
	"github.com/ChilliBits/particulate-matter-api/internal/dataservice"
	"github.com/ChilliBits/particulate-matter-api/internal/monitoring"
	"github.com/ChilliBits/particulate-matter-api/internal/repository"
	"github.com/ChilliBits/particulate-matter-api/internal/repository/mongodb"
	"github.com/ChilliBits/particulate-matter-api/internal/repository/postgres"
	"github.com/ChilliBits/particulate-matter-api/internal/repository/redisstore"
	"github.com/ChilliBits/particulate-matter-api/internal/service"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	nuts "github.com/vaudience/go-nuts"
)

const healthCheckTimeout = 2 * time.Second

// Server represents our HTTP server
type Server struct {
	config     *config.Config
	srv        *http.Server
	appDB      database.DB
	recordsDB  database.DocumentDB
	redis      *redis.Client
	data       *dataservice.DataService
	service    *service.Service
	monitoring *monitoring.Service
}

// New creates a new server instance
func New(cfg *config.Config) *Server {
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return &Server{
		config: cfg,
		srv:    srv,
	}
}

// Start connects the stores, wires the services and serves until SIGINT or SIGTERM
func (s *Server) Start() error {
	if err := s.initialize(); err != nil {
		s.close()
		return err
	}

	router := api.NewRouter(s.data, s.service, s.monitoring, s.config.Ranking.DefaultItems)
	router.SetHealthCheck(resources.StoreHealthCheck(healthCheckTimeout, s.storePings()))
	s.srv.Handler = router.Handler()
	s.service.Start()

	errCh := make(chan error, 1)
	go func() {
		nuts.L.Infof("[Server] Starting server on %s", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	return s.waitForShutdown(errCh)
}

func (s *Server) initialize() error {
	s.monitoring = monitoring.NewService(monitoring.Config{
		MetricsEnabled: s.config.Monitoring.MetricsEnabled,
	})

	appDB, err := database.NewPostgresDB(s.config.Database.Postgres)
	if err != nil {
		return err
	}
	s.appDB = appDB

	recordsDB, err := database.NewMongoDB(s.config.Database.Mongo)
	if err != nil {
		return err
	}
	s.recordsDB = recordsDB

	var requests repository.RequestStatsRepository
	if s.config.Redis.Enabled {
		client, err := database.NewRedis(s.config.Redis)
		if err != nil {
			return err
		}
		s.redis = client
		requests = redisstore.NewRequestStatsRepository(client)
	} else {
		nuts.L.Infof("[Server] Redis disabled, request counters read as zero")
	}

	sensors, err := postgres.NewSensorRepository(appDB)
	if err != nil {
		return fmt.Errorf("error initializing sensor repository: %w", err)
	}
	records := mongodb.NewDataRecordRepository(recordsDB)

	clock := clockwork.NewRealClock()
	s.data, err = dataservice.New(sensors, records, dataservice.Config{
		DefaultWindow:       s.config.Query.DefaultWindow(),
		MaxPerRequestFanout: s.config.Query.MaxPerRequestFanout,
		StoreTimeout:        s.config.Query.StoreTimeout(),
		Clock:               clock,
		Monitor:             s.monitoring,
	})
	if err != nil {
		return err
	}

	s.service = service.New(sensors, requests, service.Config{
		RankingCacheTTL: s.config.Ranking.CacheTTL,
		ActiveWindow:    s.config.Stats.ActiveWindow,
		Clock:           clock,
	})
	return s.service.Validate()
}

// storePings lists the stores /health reports on
func (s *Server) storePings() map[string]resources.StorePing {
	pings := map[string]resources.StorePing{
		"postgres": s.appDB.Ping,
		"mongodb":  s.recordsDB.Ping,
	}
	if s.redis != nil {
		pings["redis"] = func(ctx context.Context) error {
			return s.redis.Ping(ctx).Err()
		}
	}
	return pings
}

// waitForShutdown waits for interrupt signal and gracefully shuts down the server
func (s *Server) waitForShutdown(errCh <-chan error) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
	case err := <-errCh:
		s.close()
		return fmt.Errorf("error starting server: %w", err)
	}

	nuts.L.Infof("[Server] Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
	defer cancel()

	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("error shutting down server: %w", err)
	}
	s.close()

	nuts.L.Infof("[Server] Server shut down successfully")
	return nil
}

// close releases whatever initialize managed to open
func (s *Server) close() {
	if s.service != nil {
		s.service.Close()
	}
	if s.data != nil {
		s.data.Close()
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			nuts.L.Warnf("[Server] Error closing Redis: %v", err)
		}
	}
	if s.recordsDB != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.recordsDB.Close(ctx); err != nil {
			nuts.L.Warnf("[Server] Error closing MongoDB: %v", err)
		}
	}
	if s.appDB != nil {
		if err := s.appDB.Close(); err != nil {
			nuts.L.Warnf("[Server] Error closing PostgreSQL: %v", err)
		}
	}
}
