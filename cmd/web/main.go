package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Akaleli1/retail-analytics-dashboard/internal/config"
	"github.com/Akaleli1/retail-analytics-dashboard/internal/dataset"
	"github.com/Akaleli1/retail-analytics-dashboard/internal/middleware"
	"github.com/Akaleli1/retail-analytics-dashboard/internal/observability"
	"github.com/Akaleli1/retail-analytics-dashboard/internal/server"
	"github.com/Akaleli1/retail-analytics-dashboard/internal/ui/templates"
)

const renderTimeout = 10 * time.Second

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Logger)
	slog.SetDefault(logger)

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	store := dataset.NewStore(cfg.Dataset.CSVFile, cfg.Dataset.CacheDir, logger)
	store.OnLoad = func(d *dataset.Dataset, buildTime time.Duration) {
		stats := d.Stats()
		metrics.ObserveDatasetLoad(stats.Retained, map[string]int64{
			"missing_customer":     stats.MissingCustomer,
			"cancelled":            stats.Cancelled,
			"non_positive":         stats.NonPositive,
			"excluded_description": stats.ExcludedDescription,
		}, buildTime)
	}

	// Build the cleaned dataset up front so data-quality failures halt
	// startup instead of surfacing on the first interaction.
	warmCtx, cancel := context.WithTimeout(context.Background(), cfg.Dataset.LoadTimeout)
	defer cancel()
	ds, err := store.Dataset(warmCtx)
	if err != nil {
		var srcErr *dataset.SourceUnavailableError
		var dateErr *dataset.MalformedDateError
		var numErr *dataset.MalformedNumberError
		switch {
		case errors.As(err, &srcErr):
			logger.Error("source file unavailable", "path", srcErr.Path, "error", srcErr.Err)
		case errors.As(err, &dateErr):
			logger.Error("source contains unparseable invoice dates, refusing to drop sales silently", "error", dateErr)
		case errors.As(err, &numErr):
			logger.Error("source contains unparseable numeric fields", "field", numErr.Field, "error", numErr)
		case errors.Is(err, dataset.ErrEmptyDataset):
			logger.Error("cleaning removed every record", "path", cfg.Dataset.CSVFile)
		default:
			logger.Error("failed to load dataset", "error", err)
		}
		os.Exit(1)
	}
	logger.Info("dataset ready", "records", ds.Len(), "countries", len(ds.Countries()))

	rateLimiter := middleware.NewRateLimiter(cfg.Security)
	handler := server.New(server.Options{
		Store:          store,
		TopProducts:    cfg.Dataset.TopProducts,
		Logger:         logger,
		Dashboard:      dashboardHandler(store, logger),
		MetricsHandler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		Middlewares: []middleware.Middleware{
			middleware.Recovery(logger),
			middleware.RequestID(),
			middleware.Logger(logger),
			middleware.Metrics(metrics),
			middleware.SecurityHeaders(),
			middleware.CORS(cfg.Security),
			middleware.TrustedProxy(cfg.Security),
			middleware.RateLimit(rateLimiter, logger),
		},
	})

	httpServer := &http.Server{
		Addr:         cfg.Address(),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	gracefulServer := server.NewGracefulServer(httpServer, logger, cfg.Server.ShutdownTimeout)
	gracefulServer.RegisterShutdownHook(func(ctx context.Context) error {
		logger.Info("dashboard stopped")
		return nil
	})

	if err := gracefulServer.ListenAndServe(); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}

// dashboardHandler renders the page shell with the filter controls populated
// from the cleaned dataset (distinct countries, min/max invoice dates).
func dashboardHandler(store *dataset.Store, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), renderTimeout)
		defer cancel()

		ds, err := store.Dataset(ctx)
		if err != nil {
			logger.Error("dataset unavailable", "error", err)
			http.Error(w, "dashboard unavailable", http.StatusServiceUnavailable)
			return
		}

		minDate, maxDate := ds.DateBounds()
		data := templates.DashboardData{
			Countries: ds.Countries(),
			Start:     minDate.Format("2006-01-02"),
			End:       maxDate.Format("2006-01-02"),
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := templates.Dashboard(data).Render(ctx, w); err != nil {
			logger.Error("render dashboard", "error", err)
			http.Error(w, "render error", http.StatusInternalServerError)
		}
	}
}
