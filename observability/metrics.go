package observability

import (
	"fmt"
	"math"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type moduleMetrics struct {
	requests  *prometheus.CounterVec
	errors    *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	throttles *prometheus.CounterVec
}

var (
	moduleMetricsOnce sync.Once
	moduleRegistry    *moduleMetrics

	executorMetricsOnce sync.Once
	executorRegistry    *ExecutorMetrics

	poolMetricsOnce sync.Once
	poolRegistry    *PoolMetrics
)

// ModuleMetrics returns the lazily-initialised module metrics registry used to
// record RPC module activity.
func ModuleMetrics() *moduleMetrics {
	moduleMetricsOnce.Do(func() {
		moduleRegistry = &moduleMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "sou",
				Subsystem: "rpc",
				Name:      "requests_total",
				Help:      "Total JSON-RPC requests segmented by module and method.",
			}, []string{"module", "method", "outcome"}),
			errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "sou",
				Subsystem: "rpc",
				Name:      "errors_total",
				Help:      "Total JSON-RPC errors segmented by module, method, and error code.",
			}, []string{"module", "method", "code"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "sou",
				Subsystem: "rpc",
				Name:      "request_duration_seconds",
				Help:      "Latency distribution for JSON-RPC handlers.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"module", "method"}),
			throttles: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "sou",
				Subsystem: "rpc",
				Name:      "throttles_total",
				Help:      "Count of requests rejected due to throttling policies.",
			}, []string{"reason"}),
		}
		prometheus.MustRegister(
			moduleRegistry.requests,
			moduleRegistry.errors,
			moduleRegistry.latency,
			moduleRegistry.throttles,
		)
	})
	return moduleRegistry
}

// Observe records the outcome of a JSON-RPC call. code is zero on success and
// the JSON-RPC error code otherwise.
func (m *moduleMetrics) Observe(module, method string, code int, duration time.Duration) {
	if m == nil {
		return
	}
	if module == "" {
		module = "unknown"
	}
	if method == "" {
		method = "unknown"
	}
	outcome := "success"
	if code != 0 {
		outcome = "error"
		m.errors.WithLabelValues(module, method, fmt.Sprintf("%d", code)).Inc()
	}
	m.requests.WithLabelValues(module, method, outcome).Inc()
	m.latency.WithLabelValues(module, method).Observe(duration.Seconds())
}

// RecordThrottle increments the throttle counter. Reasons should be stable
// strings such as "rate_limit" so dashboards and alerts remain consistent.
func (m *moduleMetrics) RecordThrottle(reason string) {
	if m == nil {
		return
	}
	if reason == "" {
		reason = "unspecified"
	}
	m.throttles.WithLabelValues(reason).Inc()
}

// ExecutorMetrics tracks submissions processed by the host executor.
type ExecutorMetrics struct {
	submissions *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	writes      prometheus.Histogram
}

// Executor returns the singleton executor metrics registry.
func Executor() *ExecutorMetrics {
	executorMetricsOnce.Do(func() {
		executorRegistry = &ExecutorMetrics{
			submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "sou",
				Subsystem: "executor",
				Name:      "submissions_total",
				Help:      "Count of submitted operations segmented by operation and outcome.",
			}, []string{"operation", "outcome"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "sou",
				Subsystem: "executor",
				Name:      "submission_duration_seconds",
				Help:      "Latency distribution for submitted operations.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"operation"}),
			writes: prometheus.NewHistogram(prometheus.HistogramOpts{
				Namespace: "sou",
				Subsystem: "executor",
				Name:      "batch_writes",
				Help:      "Number of keys written per committed submission.",
				Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
			}),
		}
		prometheus.MustRegister(executorRegistry.submissions, executorRegistry.latency, executorRegistry.writes)
	})
	return executorRegistry
}

// Observe records a finished submission. outcome is "committed", "reverted"
// or "failed".
func (m *ExecutorMetrics) Observe(operation, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	if operation == "" {
		operation = "unknown"
	}
	m.submissions.WithLabelValues(operation, outcome).Inc()
	m.latency.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordBatch records the size of a committed write batch.
func (m *ExecutorMetrics) RecordBatch(keys int) {
	if m == nil {
		return
	}
	m.writes.Observe(float64(keys))
}

// PoolMetrics exposes the swap pool reserves as gauges.
type PoolMetrics struct {
	reserves *prometheus.GaugeVec
	shares   prometheus.Gauge
}

// Pool returns the singleton pool metrics registry.
func Pool() *PoolMetrics {
	poolMetricsOnce.Do(func() {
		poolRegistry = &PoolMetrics{
			reserves: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: "sou",
				Subsystem: "swap",
				Name:      "reserve",
				Help:      "Pool reserves in whole units segmented by asset.",
			}, []string{"asset"}),
			shares: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "sou",
				Subsystem: "swap",
				Name:      "total_shares",
				Help:      "Outstanding liquidity shares in whole units.",
			}),
		}
		prometheus.MustRegister(poolRegistry.reserves, poolRegistry.shares)
	})
	return poolRegistry
}

// SetReserves publishes the current reserves. Values are scaled down by 1e18.
func (m *PoolMetrics) SetReserves(nativeAsset string, native *big.Int, tokenAsset string, token, shares *big.Int) {
	if m == nil {
		return
	}
	m.reserves.WithLabelValues(labelAsset(nativeAsset)).Set(wholeUnits(native))
	m.reserves.WithLabelValues(labelAsset(tokenAsset)).Set(wholeUnits(token))
	m.shares.Set(wholeUnits(shares))
}

func labelAsset(asset string) string {
	trimmed := strings.TrimSpace(asset)
	if trimmed == "" {
		return "UNKNOWN"
	}
	return strings.ToUpper(trimmed)
}

func wholeUnits(value *big.Int) float64 {
	return bigToFloat(value) / 1e18
}

func bigToFloat(value *big.Int) float64 {
	if value == nil {
		return 0
	}
	floatVal, acc := new(big.Float).SetInt(value).Float64()
	if acc != big.Exact {
		// Guard against NaN/Inf when conversion fails.
		if math.IsNaN(floatVal) || math.IsInf(floatVal, 0) {
			return 0
		}
	}
	return floatVal
}
