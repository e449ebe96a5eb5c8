package telemetry

import (
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/stebou/marketintel/config"
)

// Telemetry provides monitoring and cost tracking for the intelligence engine.
type Telemetry struct {
	config      config.TelemetryConfig
	logger      *log.Logger
	costTracker *CostTracker

	runs          *prometheus.CounterVec
	runDuration   prometheus.Histogram
	retrievalTier *prometheus.CounterVec
	cacheEvents   *prometheus.CounterVec
	parseFailures *prometheus.CounterVec
	llmTokens     *prometheus.CounterVec
}

// CostTracker tracks LLM spend across models and operations.
type CostTracker struct {
	mu             sync.RWMutex
	ModelCosts     map[string]float64
	OperationCosts map[string]float64
	TotalCost      float64
	TotalTokens    int64
}

// CostSummary is a point-in-time snapshot of accumulated spend.
type CostSummary struct {
	ModelCosts     map[string]float64 `json:"model_costs"`
	OperationCosts map[string]float64 `json:"operation_costs"`
	TotalCost      float64            `json:"total_cost"`
	TotalTokens    int64              `json:"total_tokens"`
}

// NewTelemetry creates a telemetry instance and registers its collectors on
// reg. A nil reg falls back to the default registry.
func NewTelemetry(cfg config.TelemetryConfig, reg prometheus.Registerer) *Telemetry {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	t := &Telemetry{
		config: cfg,
		logger: log.New(log.Writer(), "[TELEMETRY] ", log.LstdFlags),
		costTracker: &CostTracker{
			ModelCosts:     make(map[string]float64),
			OperationCosts: make(map[string]float64),
		},
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "marketintel_runs_total",
			Help: "Engine runs by outcome.",
		}, []string{"outcome"}),
		runDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "marketintel_run_duration_seconds",
			Help:    "End to end engine run duration.",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 8),
		}),
		retrievalTier: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "marketintel_retrieval_tier_total",
			Help: "Web retrievals by the tier that produced the results.",
		}, []string{"tier"}),
		cacheEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "marketintel_batch_cache_events_total",
			Help: "Batch cache hits and misses.",
		}, []string{"event"}),
		parseFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "marketintel_parse_failures_total",
			Help: "LLM responses that failed lenient JSON decoding.",
		}, []string{"component"}),
		llmTokens: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "marketintel_llm_tokens_total",
			Help: "LLM token usage by model and direction.",
		}, []string{"model", "direction"}),
	}
	return t
}

// RecordRun records an engine run outcome and duration.
func (t *Telemetry) RecordRun(duration time.Duration, success bool) {
	if t == nil || !t.config.Enabled {
		return
	}
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	t.runs.WithLabelValues(outcome).Inc()
	t.runDuration.Observe(duration.Seconds())
}

// RecordRetrievalTier records which fallback tier served a query.
func (t *Telemetry) RecordRetrievalTier(tier string) {
	if t == nil || !t.config.Enabled {
		return
	}
	t.retrievalTier.WithLabelValues(tier).Inc()
}

// RecordCacheHit records a batch cache hit.
func (t *Telemetry) RecordCacheHit() {
	if t == nil || !t.config.Enabled {
		return
	}
	t.cacheEvents.WithLabelValues("hit").Inc()
}

// RecordCacheMiss records a batch cache miss.
func (t *Telemetry) RecordCacheMiss() {
	if t == nil || !t.config.Enabled {
		return
	}
	t.cacheEvents.WithLabelValues("miss").Inc()
}

// RecordParseFailure records a malformed LLM response for a component.
func (t *Telemetry) RecordParseFailure(component string) {
	if t == nil || !t.config.Enabled {
		return
	}
	t.parseFailures.WithLabelValues(component).Inc()
}

// RecordLLMUsage records token usage and cost for one model call.
func (t *Telemetry) RecordLLMUsage(operation, model string, inputTokens, outputTokens int64, cost float64) {
	if t == nil || !t.config.Enabled {
		return
	}
	t.llmTokens.WithLabelValues(model, "input").Add(float64(inputTokens))
	t.llmTokens.WithLabelValues(model, "output").Add(float64(outputTokens))

	if !t.config.CostTracking {
		return
	}
	t.costTracker.mu.Lock()
	defer t.costTracker.mu.Unlock()
	t.costTracker.ModelCosts[model] += cost
	t.costTracker.OperationCosts[operation] += cost
	t.costTracker.TotalCost += cost
	t.costTracker.TotalTokens += inputTokens + outputTokens
}

// GetCostSummary returns a snapshot of accumulated LLM spend.
func (t *Telemetry) GetCostSummary() CostSummary {
	t.costTracker.mu.RLock()
	defer t.costTracker.mu.RUnlock()

	summary := CostSummary{
		ModelCosts:     make(map[string]float64, len(t.costTracker.ModelCosts)),
		OperationCosts: make(map[string]float64, len(t.costTracker.OperationCosts)),
		TotalCost:      t.costTracker.TotalCost,
		TotalTokens:    t.costTracker.TotalTokens,
	}
	for k, v := range t.costTracker.ModelCosts {
		summary.ModelCosts[k] = v
	}
	for k, v := range t.costTracker.OperationCosts {
		summary.OperationCosts[k] = v
	}
	return summary
}
