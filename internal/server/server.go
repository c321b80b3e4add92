package server

import (
	"log/slog"
	"net/http"

	"github.com/CAFxX/httpcompression"
	"github.com/go-chi/chi/v5"

	"github.com/Akaleli1/retail-analytics-dashboard/internal/dataset"
	"github.com/Akaleli1/retail-analytics-dashboard/internal/handlers"
	"github.com/Akaleli1/retail-analytics-dashboard/internal/middleware"
)

// Options carries the route dependencies main wires up.
type Options struct {
	Store          *dataset.Store
	TopProducts    int
	Logger         *slog.Logger
	Dashboard      http.HandlerFunc
	MetricsHandler http.Handler
	Middlewares    []middleware.Middleware
}

// New assembles the router: the dashboard page, the JSON API (compressed),
// the SSE refresh endpoint, and the operational endpoints.
func New(opts Options) http.Handler {
	api := handlers.NewAPIHandlers(opts.Store, opts.TopProducts, opts.Logger)
	sse := handlers.NewSSEHandlers(opts.Store, opts.TopProducts, opts.Logger)

	mux := chi.NewRouter()
	for _, mw := range opts.Middlewares {
		mux.Use(mw)
	}

	mux.Get("/", opts.Dashboard)
	mux.Get("/health", api.HandleHealth)
	mux.Get("/admin/stats", api.HandleStats)
	if opts.MetricsHandler != nil {
		mux.Handle("/metrics", opts.MetricsHandler)
	}

	mux.Group(func(r chi.Router) {
		if compress, err := httpcompression.DefaultAdapter(); err == nil {
			r.Use(compress)
		} else {
			opts.Logger.Warn("compression disabled", "error", err)
		}
		r.Get("/api/kpi", api.HandleKPI)
		r.Get("/api/country-revenue", api.HandleCountryRevenue)
		r.Get("/api/top-products", api.HandleTopProducts)
		r.Get("/api/daily-revenue", api.HandleDailyRevenue)
		r.Get("/api/meta", api.HandleMeta)
	})

	mux.Get("/sse/dashboard", sse.HandleRefresh)

	return mux
}
