package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is the service's prometheus instrument set, registered on the
// injected Registerer. All methods are nil-safe so wiring stays optional in
// tests.
type Metrics struct {
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	loadDuration    prometheus.Histogram
	recordsRetained prometheus.Gauge
	rowsDropped     *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return &Metrics{}
	}

	httpRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "HTTP requests by route, method and status.",
	}, []string{"route", "method", "status"})
	httpDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request duration by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	loadDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "dataset_load_duration_seconds",
		Help:    "Time spent building the cleaned dataset.",
		Buckets: prometheus.DefBuckets,
	})
	recordsRetained := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "dataset_records_retained",
		Help: "Records that survived cleaning in the current dataset.",
	})
	rowsDropped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dataset_rows_dropped_total",
		Help: "Rows removed during cleaning, by rule.",
	}, []string{"rule"})

	reg.MustRegister(httpRequests, httpDuration, loadDuration, recordsRetained, rowsDropped)
	return &Metrics{
		httpRequests:    httpRequests,
		httpDuration:    httpDuration,
		loadDuration:    loadDuration,
		recordsRetained: recordsRetained,
		rowsDropped:     rowsDropped,
	}
}

func (m *Metrics) ObserveRequest(route, method, status string, duration time.Duration) {
	if m == nil || m.httpRequests == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(route, method, status).Inc()
	m.httpDuration.WithLabelValues(route).Observe(duration.Seconds())
}

// ObserveDatasetLoad records one dataset (re)build. Drop counts arrive as a
// rule -> count map so this package stays decoupled from the dataset types.
func (m *Metrics) ObserveDatasetLoad(retained int64, dropped map[string]int64, duration time.Duration) {
	if m == nil || m.loadDuration == nil {
		return
	}
	m.loadDuration.Observe(duration.Seconds())
	m.recordsRetained.Set(float64(retained))
	for rule, count := range dropped {
		m.rowsDropped.WithLabelValues(rule).Add(float64(count))
	}
}
