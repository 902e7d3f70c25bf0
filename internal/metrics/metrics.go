package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	FetchCycles    *prometheus.CounterVec
	RequestSeconds *prometheus.HistogramVec
	SnapshotErrors prometheus.Counter
	Connectivity   prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		FetchCycles: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "weather_fetch_cycles_total",
			Help: "Total number of completed weather fetch cycles by terminal state.",
		}, []string{"status"}),
		RequestSeconds: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "weather_provider_request_duration_seconds",
			Help:    "Duration of requests to the weather provider API.",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
		SnapshotErrors: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "weather_snapshot_errors_total",
			Help: "Total number of weather snapshots that could not be stored.",
		}),
		Connectivity: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "network_available",
			Help: "1 when the network is reachable, 0 otherwise.",
		}),
	}
}
