package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sony/gobreaker/v2"

	"github.com/kirillkom/legal-sla-monitor/internal/core/domain"
)

const namespace = "slamon"

type WorkerMetrics struct {
	registry *prometheus.Registry
	service  string

	processTotal    *prometheus.CounterVec
	processDuration *prometheus.HistogramVec
	processInFlight prometheus.Gauge
	queueLag        *prometheus.HistogramVec
	recordsTotal    *prometheus.CounterVec
	atRiskTotal     *prometheus.CounterVec
	unmatched       *prometheus.GaugeVec
	retriesTotal    *prometheus.CounterVec
	breakerOpen     *prometheus.GaugeVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	processTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "run_process_total",
			Help:      "Total processed runs by status.",
		},
		[]string{"service", "status"},
	)
	processDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "run_process_duration_seconds",
			Help:      "Run processing duration in seconds by status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
	processInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "run_process_in_flight",
			Help:      "Number of in-flight run processing tasks.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	queueLag := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "queue_lag_seconds",
			Help:      "Delay between run submission and processing start.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"service"},
	)
	recordsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "run_records_total",
			Help:      "Inventory records processed, split into valid and error partitions.",
		},
		[]string{"service", "partition"},
	)
	atRiskTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "run_records_at_risk_total",
			Help:      "Records flagged as reaching their deadline within the current month.",
		},
		[]string{"service"},
	)
	unmatched := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "run_unmatched_substages",
			Help:      "Sub-stages without a reference duration in the last processed run.",
		},
		[]string{"service"},
	)
	retriesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "resilience",
			Name:      "retries_total",
			Help:      "Retries performed by dependency operation.",
		},
		[]string{"service", "operation"},
	)
	breakerOpen := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "resilience",
			Name:      "breaker_open",
			Help:      "1 while the circuit breaker of an operation is open.",
		},
		[]string{"service", "operation"},
	)

	registry.MustRegister(
		processTotal,
		processDuration,
		processInFlight,
		queueLag,
		recordsTotal,
		atRiskTotal,
		unmatched,
		retriesTotal,
		breakerOpen,
	)

	return &WorkerMetrics{
		registry:        registry,
		service:         service,
		processTotal:    processTotal,
		processDuration: processDuration,
		processInFlight: processInFlight,
		queueLag:        queueLag,
		recordsTotal:    recordsTotal,
		atRiskTotal:     atRiskTotal,
		unmatched:       unmatched,
		retriesTotal:    retriesTotal,
		breakerOpen:     breakerOpen,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartRun() {
	m.processInFlight.Inc()
}

func (m *WorkerMetrics) FinishRun(duration time.Duration, err error) {
	m.processInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}

	m.processTotal.WithLabelValues(m.service, status).Inc()
	m.processDuration.WithLabelValues(m.service, status).Observe(duration.Seconds())
}

// ObserveResult records per-run record figures. A nil result is ignored.
func (m *WorkerMetrics) ObserveResult(result *domain.Result) {
	if result == nil {
		return
	}
	s := result.Summary
	m.recordsTotal.WithLabelValues(m.service, "valid").Add(float64(s.ValidRecords))
	m.recordsTotal.WithLabelValues(m.service, "error").Add(float64(s.ErrorRecords))
	m.atRiskTotal.WithLabelValues(m.service).Add(float64(s.AtRiskThisMonth))
	m.unmatched.WithLabelValues(m.service).Set(float64(s.UnmatchedSubstages))
}

func (m *WorkerMetrics) ObserveQueueLag(lag time.Duration) {
	if lag < 0 {
		return
	}
	m.queueLag.WithLabelValues(m.service).Observe(lag.Seconds())
}

func (m *WorkerMetrics) RecordRetry(operation string) {
	m.retriesTotal.WithLabelValues(m.service, operation).Inc()
}

func (m *WorkerMetrics) RecordBreakerState(operation string, to gobreaker.State) {
	open := 0.0
	if to == gobreaker.StateOpen {
		open = 1
	}
	m.breakerOpen.WithLabelValues(m.service, operation).Set(open)
}
