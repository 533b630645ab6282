package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus 账务操作与 HTTP 请求指标
type Prometheus struct {
	operations *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	retries    *prometheus.CounterVec

	httpRequests *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec
}

// NewPrometheus 创建指标并注册到 reg (测试中传入独立 Registry)
func NewPrometheus(namespace string, reg prometheus.Registerer) *Prometheus {
	p := &Prometheus{
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ledger_operations_total",
				Help:      "Total number of ledger operations by outcome",
			},
			[]string{"operation", "outcome"},
		),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "ledger_operation_duration_seconds",
				Help:      "Ledger operation latencies in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		retries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ledger_optimistic_retries_total",
				Help:      "Units of work retried after an optimistic lock conflict",
			},
			[]string{"operation"},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		httpLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latencies in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}

	reg.MustRegister(p.operations, p.latency, p.retries, p.httpRequests, p.httpLatency)
	return p
}

func (p *Prometheus) ObserveOperation(operation, outcome string, duration time.Duration) {
	p.operations.WithLabelValues(operation, outcome).Inc()
	p.latency.WithLabelValues(operation).Observe(duration.Seconds())
}

func (p *Prometheus) ObserveRetry(operation string) {
	p.retries.WithLabelValues(operation).Inc()
}

// ObserveHTTP 由 server 中间件调用
func (p *Prometheus) ObserveHTTP(method, route, status string, duration time.Duration) {
	p.httpRequests.WithLabelValues(method, route, status).Inc()
	p.httpLatency.WithLabelValues(method, route).Observe(duration.Seconds())
}
