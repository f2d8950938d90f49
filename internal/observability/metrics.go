// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Trawl metrics
	TrawlCyclesTotal   *prometheus.CounterVec
	TrawlCycleDuration prometheus.Histogram
	PagesFetched       prometheus.Counter
	OrdersReceived     prometheus.Counter
	RegionsProcessed   prometheus.Counter

	// Trawl state
	CurrentRegion  prometheus.Gauge
	LastCycleStart prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "esi_market_trawler"
	}

	return &Metrics{
		TrawlCyclesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trawl",
			Name:      "cycles_total",
			Help:      "Total number of trawl cycles by status",
		}, []string{"status"}),
		TrawlCycleDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "trawl",
			Name:      "cycle_duration_seconds",
			Help:      "Trawl cycle duration in seconds",
			Buckets:   []float64{60, 300, 600, 1200, 1800, 2700, 3600, 7200},
		}),
		PagesFetched: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trawl",
			Name:      "pages_fetched_total",
			Help:      "Total number of market pages fetched",
		}),
		OrdersReceived: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trawl",
			Name:      "orders_received_total",
			Help:      "Total number of market orders received",
		}),
		RegionsProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trawl",
			Name:      "regions_processed_total",
			Help:      "Total number of regions fully trawled",
		}),
		CurrentRegion: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "trawl",
			Name:      "current_region",
			Help:      "Region id currently being trawled",
		}),
		LastCycleStart: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "trawl",
			Name:      "last_cycle_start_timestamp",
			Help:      "Unix timestamp of the last trawl cycle start",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
