// Package metrics provides Prometheus metrics for the generation pipeline
// Exports generation, agent, cache, and diff-engine metrics
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once     sync.Once
	instance *Metrics
)

// Metrics holds all Prometheus metric collectors for the generator
type Metrics struct {
	// Generation pipeline
	GenerationsTotal    *prometheus.CounterVec // by stack
	GenerationDuration  *prometheus.HistogramVec
	FallbacksTotal      prometheus.Counter
	GenerationsInFlight prometheus.Gauge

	// Agents
	AgentRunsTotal   *prometheus.CounterVec // by agent, outcome
	AgentRunDuration *prometheus.HistogramVec

	// Result cache
	CacheHitsTotal   prometheus.Counter
	CacheMissesTotal prometheus.Counter
	CacheEvictions   prometheus.Counter

	// Diff engine
	DiffAppliedTotal  prometheus.Counter
	DiffFallbackTotal prometheus.Counter
}

// Get returns the singleton metrics instance, registering collectors once
func Get() *Metrics {
	once.Do(func() {
		instance = &Metrics{
			GenerationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "generator_generations_total",
				Help: "Total app generations by target stack",
			}, []string{"stack"}),
			GenerationDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
				Name:    "generator_generation_duration_seconds",
				Help:    "End-to-end generation duration",
				Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
			}, []string{"stack"}),
			FallbacksTotal: promauto.NewCounter(prometheus.CounterOpts{
				Name: "generator_fallbacks_total",
				Help: "Total pipeline-level fallback results",
			}),
			GenerationsInFlight: promauto.NewGauge(prometheus.GaugeOpts{
				Name: "generator_generations_in_flight",
				Help: "Generations currently in progress",
			}),
			AgentRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "generator_agent_runs_total",
				Help: "Agent invocations by agent name and outcome",
			}, []string{"agent", "outcome"}),
			AgentRunDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
				Name:    "generator_agent_run_duration_seconds",
				Help:    "Per-agent invocation duration",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
			}, []string{"agent"}),
			CacheHitsTotal: promauto.NewCounter(prometheus.CounterOpts{
				Name: "generator_cache_hits_total",
				Help: "Result cache hits",
			}),
			CacheMissesTotal: promauto.NewCounter(prometheus.CounterOpts{
				Name: "generator_cache_misses_total",
				Help: "Result cache misses",
			}),
			CacheEvictions: promauto.NewCounter(prometheus.CounterOpts{
				Name: "generator_cache_evictions_total",
				Help: "Result cache entries evicted at capacity",
			}),
			DiffAppliedTotal: promauto.NewCounter(prometheus.CounterOpts{
				Name: "generator_diffs_applied_total",
				Help: "Individual diffs applied in iteration mode",
			}),
			DiffFallbackTotal: promauto.NewCounter(prometheus.CounterOpts{
				Name: "generator_diff_fallbacks_total",
				Help: "Iteration requests that fell back to full regeneration",
			}),
		}
	})
	return instance
}

// ObserveGeneration records one completed generation
func (m *Metrics) ObserveGeneration(stack string, d time.Duration) {
	m.GenerationsTotal.WithLabelValues(stack).Inc()
	m.GenerationDuration.WithLabelValues(stack).Observe(d.Seconds())
}

// ObserveAgentRun records one agent invocation
func (m *Metrics) ObserveAgentRun(agent string, success bool, d time.Duration) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	m.AgentRunsTotal.WithLabelValues(agent, outcome).Inc()
	m.AgentRunDuration.WithLabelValues(agent).Observe(d.Seconds())
}
