package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Akaleli1/retail-analytics-dashboard/internal/analytics"
	"github.com/Akaleli1/retail-analytics-dashboard/internal/dataset"
	"github.com/Akaleli1/retail-analytics-dashboard/internal/errors"
	"github.com/Akaleli1/retail-analytics-dashboard/internal/models"
	"github.com/Akaleli1/retail-analytics-dashboard/internal/observability"
)

const (
	dateParam    = "2006-01-02"
	maxTopLimit  = 50
	cacheControl = "public, max-age=300"
)

type APIHandlers struct {
	store       *dataset.Store
	topProducts int
	logger      *slog.Logger
}

func NewAPIHandlers(store *dataset.Store, topProducts int, logger *slog.Logger) *APIHandlers {
	if topProducts <= 0 {
		topProducts = analytics.DefaultTopProducts
	}
	return &APIHandlers{store: store, topProducts: topProducts, logger: logger}
}

// Filtered response DTOs. Decimal revenue crosses to float64 here and only
// here: this is the presentation boundary where rounding is allowed.

type filterDTO struct {
	Country string `json:"country"`
	Start   string `json:"start"`
	End     string `json:"end"`
}

type kpiResponse struct {
	Filter        filterDTO `json:"filter"`
	Empty         bool      `json:"empty"`
	TotalRevenue  float64   `json:"total_revenue"`
	OrderCount    int       `json:"order_count"`
	AvgOrderValue *float64  `json:"avg_order_value"`
}

type countryRevenueDTO struct {
	Country      string  `json:"country"`
	Revenue      float64 `json:"total_revenue"`
	Transactions int     `json:"transactions"`
	Share        float64 `json:"share"`
}

type productRevenueDTO struct {
	Description string  `json:"description"`
	Revenue     float64 `json:"total_revenue"`
	UnitsSold   int     `json:"units_sold"`
}

type dailyRevenueDTO struct {
	Date    string  `json:"date"`
	Revenue float64 `json:"revenue"`
}

type listResponse[T any] struct {
	Filter filterDTO `json:"filter"`
	Empty  bool      `json:"empty"`
	Items  []T       `json:"items"`
}

type metaResponse struct {
	Countries []string `json:"countries"`
	Start     string   `json:"start"`
	End       string   `json:"end"`
	Records   int      `json:"records"`
}

// filteredRows resolves the dataset and applies the request's filter
// selection. A nil *AppError means both steps succeeded.
func (h *APIHandlers) filteredRows(r *http.Request) ([]models.Transaction, filterDTO, *errors.AppError) {
	ds, err := h.store.Dataset(r.Context())
	if err != nil {
		h.logger.Error("dataset unavailable", "error", err)
		return nil, filterDTO{}, errors.ServiceUnavailable("dataset unavailable")
	}

	f, appErr := parseFilter(r, ds)
	if appErr != nil {
		return nil, filterDTO{}, appErr
	}
	return ds.Filter(f), describeFilter(f), nil
}

// parseFilter builds the filter selection from query params, defaulting to
// all countries over the dataset's full date bounds.
func parseFilter(r *http.Request, ds *dataset.Dataset) (dataset.Filter, *errors.AppError) {
	minDate, maxDate := ds.DateBounds()
	f := dataset.Filter{Country: dataset.CountryAll, Start: minDate, End: maxDate}

	if c := r.URL.Query().Get("country"); c != "" {
		f.Country = c
	}
	if s := r.URL.Query().Get("start"); s != "" {
		t, err := time.Parse(dateParam, s)
		if err != nil {
			return dataset.Filter{}, errors.Validation("start must be a YYYY-MM-DD date")
		}
		f.Start = t
	}
	if e := r.URL.Query().Get("end"); e != "" {
		t, err := time.Parse(dateParam, e)
		if err != nil {
			return dataset.Filter{}, errors.Validation("end must be a YYYY-MM-DD date")
		}
		f.End = t
	}
	return f, nil
}

func describeFilter(f dataset.Filter) filterDTO {
	return filterDTO{
		Country: f.Country,
		Start:   f.Start.Format(dateParam),
		End:     f.End.Format(dateParam),
	}
}

func (h *APIHandlers) HandleKPI(w http.ResponseWriter, r *http.Request) {
	rows, f, appErr := h.filteredRows(r)
	if appErr != nil {
		errors.WriteError(w, h.logger, appErr, observability.GetRequestID(r.Context()))
		return
	}

	summary := analytics.Summarize(rows)
	resp := kpiResponse{
		Filter:       f,
		Empty:        len(rows) == 0,
		TotalRevenue: summary.TotalRevenue.InexactFloat64(),
		OrderCount:   summary.OrderCount,
	}
	if summary.HasAvg {
		avg := summary.AvgOrderValue.InexactFloat64()
		resp.AvgOrderValue = &avg
	}
	errors.WriteSuccessWithHeaders(w, resp, map[string]string{"Cache-Control": cacheControl})
}

func (h *APIHandlers) HandleCountryRevenue(w http.ResponseWriter, r *http.Request) {
	rows, f, appErr := h.filteredRows(r)
	if appErr != nil {
		errors.WriteError(w, h.logger, appErr, observability.GetRequestID(r.Context()))
		return
	}

	breakdown := analytics.CountryBreakdown(rows)
	total := analytics.Summarize(rows).TotalRevenue
	items := make([]countryRevenueDTO, 0, len(breakdown))
	for _, cr := range breakdown {
		dto := countryRevenueDTO{
			Country:      cr.Country,
			Revenue:      cr.Revenue.InexactFloat64(),
			Transactions: cr.Transactions,
		}
		if total.IsPositive() {
			dto.Share = cr.Revenue.Div(total).InexactFloat64()
		}
		items = append(items, dto)
	}
	errors.WriteSuccessWithHeaders(w, listResponse[countryRevenueDTO]{Filter: f, Empty: len(rows) == 0, Items: items},
		map[string]string{"Cache-Control": cacheControl})
}

func (h *APIHandlers) HandleTopProducts(w http.ResponseWriter, r *http.Request) {
	rows, f, appErr := h.filteredRows(r)
	if appErr != nil {
		errors.WriteError(w, h.logger, appErr, observability.GetRequestID(r.Context()))
		return
	}

	limit := h.topProducts
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			errors.WriteError(w, h.logger, errors.Validation("limit must be a positive integer"), observability.GetRequestID(r.Context()))
			return
		}
		limit = min(n, maxTopLimit)
	}

	top := analytics.TopProducts(rows, limit)
	items := make([]productRevenueDTO, 0, len(top))
	for _, pr := range top {
		items = append(items, productRevenueDTO{
			Description: pr.Description,
			Revenue:     pr.Revenue.InexactFloat64(),
			UnitsSold:   pr.UnitsSold,
		})
	}
	errors.WriteSuccessWithHeaders(w, listResponse[productRevenueDTO]{Filter: f, Empty: len(rows) == 0, Items: items},
		map[string]string{"Cache-Control": cacheControl})
}

func (h *APIHandlers) HandleDailyRevenue(w http.ResponseWriter, r *http.Request) {
	rows, f, appErr := h.filteredRows(r)
	if appErr != nil {
		errors.WriteError(w, h.logger, appErr, observability.GetRequestID(r.Context()))
		return
	}

	series := analytics.DailySeries(rows)
	items := make([]dailyRevenueDTO, 0, len(series))
	for _, dr := range series {
		items = append(items, dailyRevenueDTO{
			Date:    dr.Date.Format(dateParam),
			Revenue: dr.Revenue.InexactFloat64(),
		})
	}
	errors.WriteSuccessWithHeaders(w, listResponse[dailyRevenueDTO]{Filter: f, Empty: len(rows) == 0, Items: items},
		map[string]string{"Cache-Control": cacheControl})
}

// HandleMeta returns the value sets the filter controls are populated from.
func (h *APIHandlers) HandleMeta(w http.ResponseWriter, r *http.Request) {
	ds, err := h.store.Dataset(r.Context())
	if err != nil {
		h.logger.Error("dataset unavailable", "error", err)
		errors.WriteError(w, h.logger, errors.ServiceUnavailable("dataset unavailable"), observability.GetRequestID(r.Context()))
		return
	}

	minDate, maxDate := ds.DateBounds()
	errors.WriteSuccess(w, metaResponse{
		Countries: ds.Countries(),
		Start:     minDate.Format(dateParam),
		End:       maxDate.Format(dateParam),
		Records:   ds.Len(),
	})
}

func (h *APIHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccess(w, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *APIHandlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	ds, err := h.store.Dataset(r.Context())
	if err != nil {
		errors.WriteError(w, h.logger, errors.ServiceUnavailable("dataset unavailable"), observability.GetRequestID(r.Context()))
		return
	}

	errors.WriteSuccess(w, map[string]any{
		"clean_stats": ds.Stats(),
		"countries":   len(ds.Countries()),
		"loaded_at":   ds.LoadedAt().UTC().Format(time.RFC3339),
	})
}
