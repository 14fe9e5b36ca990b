package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsCollector 指标收集器
type MetricsCollector struct {
	// HTTP 指标
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// 支付指标
	checkoutSessionsTotal *prometheus.CounterVec
	discountCentsTotal    prometheus.Counter
	webhookEventsTotal    *prometheus.CounterVec
	refundsTotal          *prometheus.CounterVec

	// 缓存指标
	cacheHitsTotal   *prometheus.CounterVec
	cacheMissesTotal *prometheus.CounterVec

	// 异步任务指标
	workerTasksTotal *prometheus.CounterVec
}

// NewMetricsCollector 创建指标收集器，reg 为 nil 时注册到默认 Registry
func NewMetricsCollector(reg prometheus.Registerer) *MetricsCollector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &MetricsCollector{
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),

		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		checkoutSessionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "checkout_sessions_total",
				Help: "Checkout sessions requested from the payment provider",
			},
			[]string{"result"},
		),

		discountCentsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "checkout_discount_cents_total",
				Help: "Sum of coupon amounts attached to checkout sessions, in minor units",
			},
		),

		webhookEventsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webhook_events_total",
				Help: "Payment provider webhook events by type and outcome",
			},
			[]string{"type", "outcome"},
		),

		refundsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "refunds_total",
				Help: "Refunds issued by kind",
			},
			[]string{"kind"},
		),

		cacheHitsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cache_hits_total",
				Help: "Total number of cache hits",
			},
			[]string{"key_prefix"},
		),

		cacheMissesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cache_misses_total",
				Help: "Total number of cache misses",
			},
			[]string{"key_prefix"},
		),

		workerTasksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "worker_tasks_total",
				Help: "Background tasks by kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
	}
}

// RecordHTTPRequest 记录 HTTP 请求指标
func (m *MetricsCollector) RecordHTTPRequest(method, endpoint string, status int, duration time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, endpoint, getStatusCategory(status)).Inc()
	m.httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordCheckoutSession 记录支付会话创建结果
func (m *MetricsCollector) RecordCheckoutSession(success bool, discountCents int64) {
	result := "created"
	if !success {
		result = "failed"
	}
	m.checkoutSessionsTotal.WithLabelValues(result).Inc()
	if success && discountCents > 0 {
		m.discountCentsTotal.Add(float64(discountCents))
	}
}

// RecordWebhookEvent 记录回调事件处理结果
// outcome: applied, skipped, duplicate, ignored, error
func (m *MetricsCollector) RecordWebhookEvent(eventType, outcome string) {
	m.webhookEventsTotal.WithLabelValues(eventType, outcome).Inc()
}

// RecordRefund 记录退款
func (m *MetricsCollector) RecordRefund(full bool) {
	kind := "partial"
	if full {
		kind = "full"
	}
	m.refundsTotal.WithLabelValues(kind).Inc()
}

// RecordCacheOperation 记录缓存命中情况
func (m *MetricsCollector) RecordCacheOperation(keyPrefix string, hit bool) {
	if hit {
		m.cacheHitsTotal.WithLabelValues(keyPrefix).Inc()
	} else {
		m.cacheMissesTotal.WithLabelValues(keyPrefix).Inc()
	}
}

// RecordWorkerTask 记录异步任务结果
func (m *MetricsCollector) RecordWorkerTask(kind string, success bool) {
	outcome := "success"
	if !success {
		outcome = "error"
	}
	m.workerTasksTotal.WithLabelValues(kind, outcome).Inc()
}

// getStatusCategory 获取状态分类
func getStatusCategory(status int) string {
	switch {
	case status >= 200 && status < 300:
		return "2xx"
	case status >= 300 && status < 400:
		return "3xx"
	case status >= 400 && status < 500:
		return "4xx"
	case status >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}

var (
	globalCollector *MetricsCollector
	initOnce        sync.Once
)

// GetGlobalCollector 获取全局指标收集器
func GetGlobalCollector() *MetricsCollector {
	initOnce.Do(func() {
		globalCollector = NewMetricsCollector(nil)
	})
	return globalCollector
}
