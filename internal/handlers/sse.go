package handlers

import (
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/starfederation/datastar-go/datastar"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/Akaleli1/retail-analytics-dashboard/internal/analytics"
	"github.com/Akaleli1/retail-analytics-dashboard/internal/dataset"
	"github.com/Akaleli1/retail-analytics-dashboard/internal/models"
)

var kpiCardsTemplate = template.Must(template.New("kpiCards").Parse(`
<div id="kpi-cards" class="kpi-grid">
<div class="kpi-card"><span class="kpi-label">Total Revenue</span><span class="kpi-value">{{.TotalRevenue}}</span></div>
<div class="kpi-card"><span class="kpi-label">Total Orders</span><span class="kpi-value">{{.OrderCount}}</span></div>
<div class="kpi-card"><span class="kpi-label">Avg. Order Value</span><span class="kpi-value">{{.AvgOrderValue}}</span></div>
</div>`))

// gbp renders currency and counts with British thousands separators.
var gbp = message.NewPrinter(language.BritishEnglish)

type SSEHandlers struct {
	store       *dataset.Store
	topProducts int
	logger      *slog.Logger
}

func NewSSEHandlers(store *dataset.Store, topProducts int, logger *slog.Logger) *SSEHandlers {
	if topProducts <= 0 {
		topProducts = analytics.DefaultTopProducts
	}
	return &SSEHandlers{store: store, topProducts: topProducts, logger: logger}
}

// dashboardSignals mirrors the datastar signals bound to the filter
// controls. Empty or malformed values fall back to the unrestricted
// selection: a degenerate control state is harmless, never an error.
type dashboardSignals struct {
	Country string `json:"country"`
	Start   string `json:"start"`
	End     string `json:"end"`
}

// HandleRefresh re-runs the Filter and Aggregation stages for the current
// control signals and patches every dashboard widget in one SSE response.
func (h *SSEHandlers) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	ds, err := h.store.Dataset(r.Context())
	if err != nil {
		h.logger.Error("dataset unavailable", "error", err)
		sse.PatchElements(`<div id="empty-banner" class="banner error">Dashboard data is unavailable.</div>`)
		return
	}

	signals := dashboardSignals{}
	if err := datastar.ReadSignals(r, &signals); err != nil {
		h.logger.Warn("read signals", "error", err)
	}

	rows := ds.Filter(h.filterFrom(signals, ds))
	if len(rows) == 0 {
		sse.PatchElements(`<div id="empty-banner" class="banner warn">No data available for these filters.</div>`)
		flush(w)
		return
	}
	sse.PatchElements(`<div id="empty-banner" hidden></div>`)

	if html, err := renderKPICards(analytics.Summarize(rows)); err == nil {
		sse.PatchElements(html)
	} else {
		h.logger.Error("render kpi cards", "error", err)
	}

	chartSignals, err := json.Marshal(map[string]any{
		"countryData":  countryChartData(rows),
		"productsData": productChartData(rows, h.topProducts),
		"dailyData":    dailyChartData(rows),
	})
	if err != nil {
		h.logger.Error("marshal chart signals", "error", err)
		return
	}
	sse.PatchSignals(chartSignals)

	flush(w)
}

func (h *SSEHandlers) filterFrom(signals dashboardSignals, ds *dataset.Dataset) dataset.Filter {
	minDate, maxDate := ds.DateBounds()
	f := dataset.Filter{Country: dataset.CountryAll, Start: minDate, End: maxDate}

	if signals.Country != "" {
		f.Country = signals.Country
	}
	if t, err := time.Parse(dateParam, signals.Start); err == nil {
		f.Start = t
	}
	if t, err := time.Parse(dateParam, signals.End); err == nil {
		f.End = t
	}
	return f
}

type kpiCards struct {
	TotalRevenue  string
	OrderCount    string
	AvgOrderValue string
}

func renderKPICards(summary models.KPISummary) (string, error) {
	cards := kpiCards{
		TotalRevenue:  gbp.Sprintf("£%.0f", summary.TotalRevenue.InexactFloat64()),
		OrderCount:    gbp.Sprintf("%d", summary.OrderCount),
		AvgOrderValue: "N/A",
	}
	if summary.HasAvg {
		cards.AvgOrderValue = gbp.Sprintf("£%.2f", summary.AvgOrderValue.InexactFloat64())
	}

	var buf strings.Builder
	err := kpiCardsTemplate.Execute(&buf, cards)
	return buf.String(), err
}

func flush(w http.ResponseWriter) {
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

// Chart data shapes consumed by the dashboard's plotting script.

type namedValue struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

type datedValue struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

func countryChartData(rows []models.Transaction) []namedValue {
	breakdown := analytics.CountryBreakdown(rows)
	out := make([]namedValue, 0, len(breakdown))
	for _, cr := range breakdown {
		out = append(out, namedValue{Label: cr.Country, Value: cr.Revenue.InexactFloat64()})
	}
	return out
}

func productChartData(rows []models.Transaction, n int) []namedValue {
	top := analytics.TopProducts(rows, n)
	out := make([]namedValue, 0, len(top))
	for _, pr := range top {
		out = append(out, namedValue{Label: pr.Description, Value: pr.Revenue.InexactFloat64()})
	}
	return out
}

// dailyChartData is sparse on purpose: gap days carry no point, and the
// plotting script must not draw continuity where no data exists.
func dailyChartData(rows []models.Transaction) []datedValue {
	series := analytics.DailySeries(rows)
	out := make([]datedValue, 0, len(series))
	for _, dr := range series {
		out = append(out, datedValue{Date: dr.Date.Format(dateParam), Value: dr.Revenue.InexactFloat64()})
	}
	return out
}
