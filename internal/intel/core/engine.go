package core

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorhill/cronexpr"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/stebou/marketintel/config"
	"github.com/stebou/marketintel/internal/intel/telemetry"
)

var engineTracer trace.Tracer = otel.Tracer("marketintel/internal/intel/engine")

// Engine runs the full intelligence pipeline: plan queries, retrieve content,
// extract insights through the batch cache, run the competitor/event/sentiment
// sub-analyses in parallel, then consolidate into a report.
type Engine struct {
	cfg    *config.Config
	logger *log.Logger
	tele   *telemetry.Telemetry

	llm         LLMProvider
	planner     *QueryPlanner
	retriever   Retriever
	cache       *BatchCache
	extractor   *InsightExtractor
	competitors *CompetitorMonitor
	events      *EventDetector
	sentiment   *SentimentAnalyzer
	clock       Clock
}

// EngineOption overrides a collaborator, mainly for tests.
type EngineOption func(*Engine)

// WithClock injects the time source used by every stage.
func WithClock(clock Clock) EngineOption {
	return func(e *Engine) { e.clock = clock }
}

// WithLLMProvider injects the extraction model provider.
func WithLLMProvider(llm LLMProvider) EngineOption {
	return func(e *Engine) { e.llm = llm }
}

// WithRetriever injects the web retrieval adapter.
func WithRetriever(r Retriever) EngineOption {
	return func(e *Engine) { e.retriever = r }
}

// WithRandSource seeds the probabilistic sub-analyses.
func WithRandSource(seed int64) EngineOption {
	return func(e *Engine) {
		e.competitors = NewCompetitorMonitor(rand.New(rand.NewSource(seed)), e.clock)
		e.events = NewEventDetector(rand.New(rand.NewSource(seed+1)), e.clock, e.cfg.Engine.SeasonalWindowDays)
	}
}

// NewEngine wires the pipeline from config. It fails only on configuration
// errors that no fallback can cover, such as a missing LLM credential.
func NewEngine(cfg *config.Config, tele *telemetry.Telemetry, opts ...EngineOption) (*Engine, error) {
	e := &Engine{
		cfg:    cfg,
		logger: log.New(log.Writer(), "[ENGINE] ", log.LstdFlags),
		tele:   tele,
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.llm == nil {
		llm, err := NewLLMProvider(cfg.LLM)
		if err != nil {
			return nil, err
		}
		e.llm = llm
	}

	e.planner = NewQueryPlanner(e.clock)
	if e.retriever == nil {
		e.retriever = NewTieredRetriever(cfg.Search, e.llm, cfg.LLM.Routing.Simulation, tele, e.clock)
	}
	e.cache = NewBatchCache(cfg.Cache.TTL, e.clock, tele)
	e.extractor = NewInsightExtractor(e.llm, cfg.LLM.Routing.Extraction, tele, e.clock)
	if e.competitors == nil {
		e.competitors = NewCompetitorMonitor(nil, e.clock)
	}
	if e.events == nil {
		e.events = NewEventDetector(nil, e.clock, cfg.Engine.SeasonalWindowDays)
	}
	e.sentiment = NewSentimentAnalyzer(e.llm, cfg.LLM.Routing.Sentiment, e.retriever, e.planner, nil, tele)

	return e, nil
}

// Analyze executes one intelligence run. The run either succeeds, possibly
// with degraded-provenance data, or fails fast on invalid input before any
// external work starts.
func (e *Engine) Analyze(ctx context.Context, req AnalysisRequest) (RunResult, error) {
	if err := validateRequest(req); err != nil {
		return RunResult{}, err
	}

	budget := e.cfg.General.MaxProcessingTime
	if budget <= 0 {
		budget = 20 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	runID := uuid.NewString()
	started := e.clock()

	ctx, span := engineTracer.Start(ctx, "engine.analyze",
		trace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.String("profile.industry", req.CompanyProfile.Industry),
		))
	defer span.End()

	e.logger.Printf("[%s] starting analysis: industry=%s categories=%d competitors=%d",
		runID, req.CompanyProfile.Industry, len(req.CompanyProfile.ProductCategories), len(req.CompanyProfile.Competitors))

	trends, degraded := e.analyzeTrends(ctx, req)

	var (
		wg                 sync.WaitGroup
		competitorAnalyses []CompetitorAnalysis
		marketEvents       []MarketEvent
		sentimentAnalysis  *SentimentAnalysis
	)
	if req.SearchConfiguration.EnableCompetitorMonitoring {
		wg.Add(1)
		go func() {
			defer wg.Done()
			competitorAnalyses = e.competitors.Monitor(ctx, req.CompanyProfile)
		}()
	}
	if req.SearchConfiguration.EnableMarketEvents {
		wg.Add(1)
		go func() {
			defer wg.Done()
			marketEvents = e.events.Detect(ctx, req.CompanyProfile)
		}()
	}
	if req.SearchConfiguration.EnableSentimentAnalysis {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sentimentAnalysis = e.sentiment.Analyze(ctx, req.CompanyProfile)
		}()
	}
	wg.Wait()

	if err := ctx.Err(); err == context.Canceled {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if e.tele != nil {
			e.tele.RecordRun(e.clock().Sub(started), false)
		}
		return RunResult{}, err
	}

	now := e.clock()
	consolidated := ConsolidateInsights(trends, competitorAnalyses, marketEvents, now, e.cfg.Engine.ConsolidatedCap)

	report := IntelligenceReport{
		MarketInsights:            consolidated,
		CompetitorAnalysis:        competitorAnalyses,
		MarketEvents:              marketEvents,
		SentimentAnalysis:         sentimentAnalysis,
		ContextualRecommendations: GenerateRecommendations(consolidated),
		ForecastAdjustments:       CalculateForecastAdjustments(consolidated),
		IntelligenceSummary:       SummarizeIntelligence(consolidated),
		NextMonitoringSchedule:    e.nextMonitoringSchedule(req.SearchConfiguration, now),
	}

	duration := now.Sub(started)
	span.AddEvent("analysis.complete", trace.WithAttributes(
		attribute.Int("insights", len(consolidated)),
		attribute.Int("events", len(marketEvents)),
		attribute.Bool("degraded", degraded),
	))
	if e.tele != nil {
		e.tele.RecordRun(duration, true)
	}
	e.logger.Printf("[%s] analysis completed: insights=%d events=%d competitors=%d degraded=%v in %s",
		runID, len(consolidated), len(marketEvents), len(competitorAnalyses), degraded, duration)

	return RunResult{
		RunID:          runID,
		Report:         report,
		Confidence:     ContextConfidence(consolidated),
		Degraded:       degraded,
		ProcessingTime: duration,
		CreatedAt:      started,
	}, nil
}

// analyzeTrends gathers every planned query concurrently, then issues the
// single batched extraction through the cache. The degraded flag reports
// whether any result came from a fallback tier.
func (e *Engine) analyzeTrends(ctx context.Context, req AnalysisRequest) ([]MarketInsight, bool) {
	if !req.SearchConfiguration.EnableTrendAnalysis {
		return nil, false
	}

	ctx, span := engineTracer.Start(ctx, "engine.trends")
	defer span.End()

	queries := e.planner.PlanTrendQueries(req.CompanyProfile)

	maxConcurrent := e.cfg.Engine.MaxConcurrentQueries
	if maxConcurrent <= 0 {
		maxConcurrent = 8
	}
	sem := make(chan struct{}, maxConcurrent)

	searches := make([]QueryResults, len(queries))
	var wg sync.WaitGroup
	for i, query := range queries {
		wg.Add(1)
		go func(i int, query string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			searches[i] = QueryResults{
				Query:   query,
				Results: e.retriever.Retrieve(ctx, query, req.CompanyProfile.Industry),
			}
		}(i, query)
	}
	wg.Wait()

	degraded := false
	for _, search := range searches {
		for _, result := range search.Results {
			if result.Provenance != ProvenancePrimary {
				degraded = true
			}
		}
	}

	key := CacheKey(req.CompanyProfile.Industry, queries)
	insights, err := e.cache.GetOrCompute(ctx, key, func(ctx context.Context) ([]MarketInsight, error) {
		return e.extractor.ExtractBatch(ctx, req.CompanyProfile, searches)
	})
	if err != nil {
		// Extraction transport failure degrades to an empty trend set.
		span.RecordError(err)
		e.logger.Printf("trend extraction failed: %v", err)
		return nil, true
	}

	return RankInsights(insights, e.cfg.Engine.TrendResultCap), degraded
}

func (e *Engine) nextMonitoringSchedule(cfg SearchConfiguration, now time.Time) time.Time {
	if spec := e.cfg.Monitoring.CronSpec; spec != "" {
		if expr, err := cronexpr.Parse(spec); err == nil {
			return expr.Next(now)
		}
		e.logger.Printf("invalid monitoring cron spec %q, using interval schedule", spec)
	}
	hours := 24
	if cfg.EnableCompetitorMonitoring {
		hours = 6
	}
	return now.Add(time.Duration(hours) * time.Hour)
}

func validateRequest(req AnalysisRequest) error {
	if req.CompanyProfile.Industry == "" {
		return fmt.Errorf("%w: industry is required", ErrInvalidProfile)
	}
	return nil
}
