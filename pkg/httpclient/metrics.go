package httpclient

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics はゲートウェイのPrometheusメトリクス。
type Metrics struct {
	// RequestsTotal は呼び出し数。outcomeは "ok" またはErrorKindのラベル。
	RequestsTotal *prometheus.CounterVec
	// RefreshTotal はリフレッシュ試行数。
	RefreshTotal *prometheus.CounterVec
	// RequestDuration はリフレッシュと再送を含む呼び出し全体の所要時間。
	RequestDuration *prometheus.HistogramVec
}

// NewMetrics はメトリクスを生成してregに登録する。
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		RequestsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "technotes",
				Subsystem: "gateway",
				Name:      "requests_total",
				Help:      "Total number of API requests issued through the gateway",
			},
			[]string{"method", "outcome"},
		),
		RefreshTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "technotes",
				Subsystem: "gateway",
				Name:      "refresh_total",
				Help:      "Total number of access token refresh attempts",
			},
			[]string{"result"}, // result=success/expired/failure/no_token
		),
		RequestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "technotes",
				Subsystem: "gateway",
				Name:      "request_duration_seconds",
				Help:      "Gateway invocation duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method"},
		),
	}
}
