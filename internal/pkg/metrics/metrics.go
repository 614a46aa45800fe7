// Package metrics 提供 Prometheus 指標
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "lifequest"

var (
	// GenerationTotal 各生成流程的結果
	GenerationTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_total",
			Help:      "Total number of generation pipeline runs",
		},
		[]string{"pipeline", "outcome"},
	)

	// RecordActions 寫入決策（inserted / skipped_occupied / skipped_cap）
	RecordActions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "record_actions_total",
			Help:      "Upsert decisions per record",
		},
		[]string{"kind", "action"},
	)

	// UpstreamDuration 外部 API 耗時
	UpstreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_duration_seconds",
			Help:      "Duration of upstream API calls in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"upstream", "status"},
	)

	// CacheLookups 快取查詢結果
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Cache lookups by namespace and result",
		},
		[]string{"namespace", "result"},
	)

	// HTTPRequests HTTP 請求數
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status",
		},
		[]string{"route", "method", "status"},
	)
)

// RecordGeneration 記錄一次生成流程
func RecordGeneration(pipeline string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	GenerationTotal.WithLabelValues(pipeline, outcome).Inc()
}

// RecordAction 記錄一筆寫入決策
func RecordAction(kind, action string) {
	RecordActions.WithLabelValues(kind, action).Inc()
}

// ObserveUpstream 記錄外部 API 呼叫
func ObserveUpstream(upstream string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	UpstreamDuration.WithLabelValues(upstream, status).Observe(time.Since(start).Seconds())
}

// RecordCache 記錄快取命中與否
func RecordCache(namespace string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	CacheLookups.WithLabelValues(namespace, result).Inc()
}

// RecordHTTP 記錄 HTTP 請求
func RecordHTTP(route, method, status string) {
	HTTPRequests.WithLabelValues(route, method, status).Inc()
}
