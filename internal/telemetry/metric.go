package telemetry

import (
	"strconv"
	"time"

	"qrious/config"
	"qrious/internal/core"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metric struct
type Metric struct {
	HttpRequestsTotal   *prometheus.CounterVec
	HttpRequestDuration *prometheus.HistogramVec
	GenerationsTotal    *prometheus.CounterVec
	QuotaDeniedTotal    *prometheus.CounterVec
	ScansTotal          *prometheus.CounterVec
	BreakerState        *prometheus.GaugeVec
	ThrottledTotal      *prometheus.CounterVec
	config              *config.Configuration
}

// NewMetric 建立所有指標（註冊到 prometheus 預設 registry）
func NewMetric(config *config.Configuration) *Metric {
	return NewMetricWith(config, prometheus.DefaultRegisterer)
}

// NewMetricWith 指定 registerer，測試時傳入獨立 registry 避免重複註冊
func NewMetricWith(config *config.Configuration, reg prometheus.Registerer) *Metric {
	if config == nil || !config.Telemetry.Metric.Enabled {
		return &Metric{}
	}
	buckets := prometheus.DefBuckets
	if len(config.Telemetry.Metric.Buckets) > 0 {
		buckets = config.Telemetry.Metric.Buckets
	}
	factory := promauto.With(reg)
	prefix := config.App.Name + "_"
	return &Metric{
		config: config,
		HttpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + string(core.MetricHttpRequestsTotal),
				Help: "Total received API requests",
			},
			labelNames(core.MetricLabelEndpoint, core.MetricLabelStatus),
		),
		HttpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    prefix + string(core.MetricHttpRequestDuration),
				Help:    "Request handling duration (seconds)",
				Buckets: buckets,
			},
			labelNames(core.MetricLabelEndpoint),
		),
		GenerationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + string(core.MetricGenerationsTotal),
				Help: "QR code generation requests by outcome (created, cached, failed)",
			},
			labelNames(core.MetricLabelChannel, core.MetricLabelResult),
		),
		QuotaDeniedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + string(core.MetricQuotaDeniedTotal),
				Help: "Generation requests refused by the quota ledger",
			},
			labelNames(core.MetricLabelChannel, core.MetricLabelScope),
		),
		ScansTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + string(core.MetricScansTotal),
				Help: "Scan redirects served",
			},
			labelNames(core.MetricLabelResult),
		),
		BreakerState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: prefix + string(core.MetricBreakerState),
				Help: "Encoder circuit breaker state (0 closed, 1 half-open, 2 open)",
			},
			labelNames(core.MetricLabelBreaker),
		),
		ThrottledTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + string(core.MetricThrottledTotal),
				Help: "Requests rejected by per-IP throttling",
			},
			labelNames(core.MetricLabelBucket),
		),
	}
}

func (m *Metric) ObserveRequest(endpoint string, status int, elapsed time.Duration) {
	if m == nil || m.HttpRequestsTotal == nil || m.HttpRequestDuration == nil {
		return
	}
	m.HttpRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()
	m.HttpRequestDuration.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

func (m *Metric) IncGeneration(channel core.Channel, result string) {
	if m == nil || m.GenerationsTotal == nil {
		return
	}
	m.GenerationsTotal.WithLabelValues(string(channel), result).Inc()
}

func (m *Metric) IncQuotaDenied(channel core.Channel, scope core.Scope) {
	if m == nil || m.QuotaDeniedTotal == nil {
		return
	}
	m.QuotaDeniedTotal.WithLabelValues(string(channel), string(scope)).Inc()
}

func (m *Metric) IncScan(result string) {
	if m == nil || m.ScansTotal == nil {
		return
	}
	m.ScansTotal.WithLabelValues(result).Inc()
}

func (m *Metric) SetBreakerState(name string, state float64) {
	if m == nil || m.BreakerState == nil {
		return
	}
	m.BreakerState.WithLabelValues(name).Set(state)
}

func (m *Metric) IncThrottled(bucket string) {
	if m == nil || m.ThrottledTotal == nil {
		return
	}
	m.ThrottledTotal.WithLabelValues(bucket).Inc()
}

// labelNames helper: LabelName slice 轉成 []string
func labelNames(labels ...core.MetricLabelName) []string {
	strs := make([]string, len(labels))
	for i, l := range labels {
		strs[i] = string(l)
	}
	return strs
}
