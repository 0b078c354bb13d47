package api

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/causelab/causeway/internal/api/handlers"
	mw "github.com/causelab/causeway/internal/api/middleware"
	"github.com/causelab/causeway/internal/buildconfig"
	"github.com/causelab/causeway/internal/config"
	"github.com/causelab/causeway/internal/domain"
	"github.com/causelab/causeway/internal/llm"
	"github.com/causelab/causeway/internal/service"
	"github.com/causelab/causeway/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// App holds the router and request counters for the metrics endpoint.
type App struct {
	Router       *chi.Mux
	startTime    time.Time
	requestCount atomic.Int64
	errorCount   atomic.Int64
}

func NewApp(db *pgxpool.Pool, logger *zap.Logger) *App {
	runStore := store.NewRunStore(db)

	// Knowledge oracle via provider factory
	opts := llm.DefaultOptions()
	opts.Model = config.OracleModel()
	opts.RequestsPerSecond = config.OracleRPS()
	opts.MaxRetries = config.OracleMaxRetries()

	oracle, err := llm.NewKnowledgeOracle(config.OracleProvider(), config.OracleAPIKey(), opts, logger)
	if err != nil {
		logger.Warn("oracle initialization failed, falling back to mock",
			zap.String("provider", config.OracleProvider()), zap.Error(err))
		oracle = llm.NewMockOracle()
	} else {
		logger.Info("knowledge oracle initialized", zap.String("provider", config.OracleProvider()))
	}

	cfg := service.DefaultConfig()
	cfg.Alpha = config.DiscoveryAlpha()
	cfg.Samples = config.DiscoverySamples()
	cfg.ContradictionThreshold = config.DiscoveryContradictionThreshold()
	cfg.MaxIterations = config.DiscoveryMaxIterations()
	cfg.SignificanceLevel = config.DiscoverySignificance()
	cfg.AcceptAbove = config.DiscoveryAcceptThreshold()
	cfg.DeferBelow = config.DiscoveryDeferThreshold()
	cfg.ScoreFloor = config.DiscoveryScoreFloor()
	cfg.MinEdgeConfidence = config.DiscoveryMinEdgeConfidence()
	cfg.ViolationPenalty = config.DiscoveryViolationPenalty()

	discoveryHandler := handlers.NewDiscoveryHandler(oracle, runStore, cfg, logger)

	r := chi.NewRouter()
	app := &App{
		Router:    r,
		startTime: time.Now(),
	}

	metricsCollector := mw.NewMetricsCollector(&app.requestCount, &app.errorCount)

	// Global middleware (order matters)
	r.Use(mw.RequestID)
	r.Use(middleware.RealIP)
	r.Use(metricsCollector.Middleware)
	r.Use(mw.Logging(logger))
	r.Use(middleware.Recoverer)
	r.Use(mw.RateLimit(config.RateLimitRPS(), config.RateLimitBurst()))

	// Health (no auth)
	r.Get("/health", healthHandler(db))

	// Metrics (no auth)
	r.Get("/metrics", app.metricsHandler())

	// Authenticated routes
	r.Route("/v1", func(r chi.Router) {
		r.Use(mw.APIKeyAuth(config.APIKey()))

		r.Route("/discoveries", func(r chi.Router) {
			r.Post("/", discoveryHandler.Create)
			r.Get("/", discoveryHandler.List)
			r.Get("/{id}", discoveryHandler.GetByID)
		})
	})

	return app
}

// NewRouter returns just the chi.Mux.
func NewRouter(db *pgxpool.Pool, logger *zap.Logger) *chi.Mux {
	return NewApp(db, logger).Router
}

func healthHandler(db *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(r.Context()); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "error", "error": err.Error()})
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"status":  "ok",
			"version": buildconfig.Version(),
		})
	}
}

func (app *App) metricsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var memStats runtime.MemStats
		runtime.ReadMemStats(&memStats)

		uptime := time.Since(app.startTime)

		response := map[string]any{
			"uptime_seconds": uptime.Seconds(),
			"uptime_human":   uptime.Round(time.Second).String(),
			"request_count":  app.requestCount.Load(),
			"error_count":    app.errorCount.Load(),
			"goroutines":     runtime.NumGoroutine(),
			"memory": map[string]any{
				"alloc_mb":       float64(memStats.Alloc) / 1024 / 1024,
				"total_alloc_mb": float64(memStats.TotalAlloc) / 1024 / 1024,
				"sys_mb":         float64(memStats.Sys) / 1024 / 1024,
				"num_gc":         memStats.NumGC,
			},
			"go_version": runtime.Version(),
			"build":      buildconfig.Info(),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(response)
	}
}

// Ensure stores satisfy interfaces at compile time.
var _ domain.RunStore = (*store.RunStore)(nil)
