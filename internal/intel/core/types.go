package core

import (
	"context"
	"errors"
	"time"
)

// ErrMissingLLMCredential is returned when the extraction model credential is
// absent. This is the only error class that aborts a run before any work.
var ErrMissingLLMCredential = errors.New("extraction LLM API key not configured")

// ErrInvalidProfile is returned when a required company-profile field is missing.
var ErrInvalidProfile = errors.New("company profile missing required fields")

// InsightType classifies a market insight.
type InsightType string

const (
	InsightTrend      InsightType = "TREND"
	InsightEvent      InsightType = "EVENT"
	InsightCompetitor InsightType = "COMPETITOR"
	InsightRegulation InsightType = "REGULATION"
	InsightEconomic   InsightType = "ECONOMIC"
	InsightSeasonal   InsightType = "SEASONAL"
)

// TimeRelevance describes how soon an insight matters.
type TimeRelevance string

const (
	RelevanceImmediate  TimeRelevance = "IMMEDIATE"
	RelevanceShortTerm  TimeRelevance = "SHORT_TERM"
	RelevanceMediumTerm TimeRelevance = "MEDIUM_TERM"
	RelevanceLongTerm   TimeRelevance = "LONG_TERM"
)

// ImpactDirection is the predicted direction of a demand change.
type ImpactDirection string

const (
	DirectionIncrease ImpactDirection = "INCREASE"
	DirectionDecrease ImpactDirection = "DECREASE"
	DirectionNeutral  ImpactDirection = "NEUTRAL"
)

// ThreatLevel grades a competitor threat assessment.
type ThreatLevel string

const (
	ThreatLow      ThreatLevel = "LOW"
	ThreatMedium   ThreatLevel = "MEDIUM"
	ThreatHigh     ThreatLevel = "HIGH"
	ThreatCritical ThreatLevel = "CRITICAL"
)

// ImpactMagnitude grades a market event.
type ImpactMagnitude string

const (
	MagnitudeLow      ImpactMagnitude = "LOW"
	MagnitudeMedium   ImpactMagnitude = "MEDIUM"
	MagnitudeHigh     ImpactMagnitude = "HIGH"
	MagnitudeCritical ImpactMagnitude = "CRITICAL"
)

// Provenance records which retrieval tier produced a web result.
type Provenance string

const (
	ProvenancePrimary   Provenance = "primary"
	ProvenanceSimulated Provenance = "simulated"
	ProvenanceStatic    Provenance = "static"
)

// CompanyProfile is the immutable per-run description of the analyzed company.
type CompanyProfile struct {
	Industry          string   `json:"industry"`
	BusinessType      string   `json:"business_type"`
	PrimaryMarkets    []string `json:"primary_markets"`
	Competitors       []string `json:"competitors"`
	ProductCategories []string `json:"product_categories"`
}

// Timeframe bounds an analysis run.
type Timeframe struct {
	Start               time.Time `json:"start"`
	End                 time.Time `json:"end"`
	ForecastHorizonDays int       `json:"forecast_horizon_days"`
}

// DemandPattern is a baseline demand observation supplied by the forecasting
// pipeline.
type DemandPattern struct {
	ProductID      string  `json:"product_id"`
	Category       string  `json:"category"`
	BaselineDemand float64 `json:"baseline_demand"`
	Trend          string  `json:"trend,omitempty"`
}

// SearchConfiguration toggles the engine's sub-analyses.
type SearchConfiguration struct {
	EnableCompetitorMonitoring bool     `json:"enable_competitor_monitoring"`
	EnableMarketEvents         bool     `json:"enable_market_events"`
	EnableSentimentAnalysis    bool     `json:"enable_sentiment_analysis"`
	EnableTrendAnalysis        bool     `json:"enable_trend_analysis"`
	SourcesPriority            []string `json:"sources_priority,omitempty"`
}

// AnalysisRequest is the engine's input contract.
type AnalysisRequest struct {
	CompanyProfile      CompanyProfile      `json:"company_profile"`
	AnalysisTimeframe   Timeframe           `json:"analysis_timeframe"`
	DemandPatterns      []DemandPattern     `json:"demand_patterns,omitempty"`
	SearchConfiguration SearchConfiguration `json:"search_configuration"`
}

// WebResult is one piece of retrieved market content. Ephemeral: produced and
// consumed within a single run.
type WebResult struct {
	Title       string     `json:"title"`
	Content     string     `json:"content"`
	URL         string     `json:"url"`
	Source      string     `json:"source"`
	PublishedAt time.Time  `json:"published_at"`
	Reliability float64    `json:"reliability"`
	Provenance  Provenance `json:"provenance"`
}

// PredictedImpact is the demand effect an insight forecasts.
type PredictedImpact struct {
	DemandChangePercentage float64         `json:"demand_change_percentage"`
	Direction              ImpactDirection `json:"direction"`
	DurationDays           int             `json:"duration_days"`
}

// MarketInsight is a scored, typed claim about the market.
type MarketInsight struct {
	ID               string          `json:"id"`
	Type             InsightType     `json:"type"`
	Source           string          `json:"source"`
	Title            string          `json:"title"`
	Description      string          `json:"description"`
	ImpactScore      float64         `json:"impact_score"`
	ConfidenceScore  float64         `json:"confidence_score"`
	TimeRelevance    TimeRelevance   `json:"time_relevance"`
	AffectedProducts []string        `json:"affected_products"`
	PredictedImpact  PredictedImpact `json:"predicted_impact"`
	DiscoveredAt     time.Time       `json:"discovered_at"`
	SourceURL        string          `json:"source_url,omitempty"`
	Keywords         []string        `json:"keywords,omitempty"`
}

// CompetitorAction is one detected competitor move.
type CompetitorAction struct {
	ActionType          string    `json:"action_type"`
	Description         string    `json:"description"`
	DetectedDate        time.Time `json:"detected_date"`
	ImpactAssessment    float64   `json:"impact_assessment"`
	AffectedCategories  []string  `json:"affected_categories"`
	RecommendedResponse []string  `json:"recommended_response"`
}

// MarketPosition estimates where a competitor sits in the market.
type MarketPosition struct {
	EstimatedMarketShare float64  `json:"estimated_market_share"`
	PricePositioning     string   `json:"price_positioning"`
	DistributionChannels []string `json:"distribution_channels"`
}

// CompetitorAnalysis is the per-competitor monitoring output.
type CompetitorAnalysis struct {
	CompetitorName   string             `json:"competitor_name"`
	ActionsDetected  []CompetitorAction `json:"actions_detected"`
	MarketPosition   MarketPosition     `json:"market_position"`
	ThreatAssessment ThreatLevel        `json:"threat_assessment"`
}

// PredictedEffects quantifies an event's market effects, each in [-1, 1].
type PredictedEffects struct {
	DemandImpact      float64 `json:"demand_impact"`
	PriceImpact       float64 `json:"price_impact"`
	SupplyChainImpact float64 `json:"supply_chain_impact"`
}

// MarketEvent is a detected economic, seasonal, or regulatory event.
type MarketEvent struct {
	EventID                    string           `json:"event_id"`
	EventType                  InsightType      `json:"event_type"`
	Title                      string           `json:"title"`
	Description                string           `json:"description"`
	StartDate                  time.Time        `json:"start_date"`
	EndDate                    *time.Time       `json:"end_date,omitempty"`
	GeographicScope            string           `json:"geographic_scope"`
	ImpactMagnitude            ImpactMagnitude  `json:"impact_magnitude"`
	AffectedIndustries         []string         `json:"affected_industries"`
	PredictedEffects           PredictedEffects `json:"predicted_effects"`
	PreparationRecommendations []string         `json:"preparation_recommendations,omitempty"`
}

// TopicSentiment is per-topic sentiment with mention volume.
type TopicSentiment struct {
	Topic          string  `json:"topic"`
	SentimentScore float64 `json:"sentiment_score"`
	MentionVolume  int     `json:"mention_volume"`
	TrendDirection string  `json:"trend_direction"`
}

// BrandPerception scores the company and each competitor in [-1, 1].
type BrandPerception struct {
	Company     float64            `json:"company"`
	Competitors map[string]float64 `json:"competitors"`
}

// ConsumerConfidence holds confidence indices on a 0-100 scale.
type ConsumerConfidence struct {
	CurrentLevel      float64 `json:"current_level"`
	ThreeMonthOutlook float64 `json:"three_month_outlook"`
	IndustrySpecific  float64 `json:"industry_specific"`
}

// SentimentAnalysis is the market sentiment output.
type SentimentAnalysis struct {
	OverallSentiment   float64            `json:"overall_sentiment"`
	SentimentTrend     string             `json:"sentiment_trend"`
	KeyTopics          []TopicSentiment   `json:"key_topics"`
	BrandPerception    BrandPerception    `json:"brand_perception"`
	ConsumerConfidence ConsumerConfidence `json:"consumer_confidence"`
}

// ForecastAdjustments aggregates insight-level demand changes into per-product
// correction factors.
type ForecastAdjustments struct {
	ProductAdjustments map[string]float64 `json:"product_adjustments"`
	GlobalMarketFactor float64            `json:"global_market_factor"`
	ConfidenceLevel    float64            `json:"confidence_level"`
}

// IntelligenceReport is the engine's output contract.
type IntelligenceReport struct {
	MarketInsights            []MarketInsight      `json:"market_insights"`
	CompetitorAnalysis        []CompetitorAnalysis `json:"competitor_analysis"`
	MarketEvents              []MarketEvent        `json:"market_events"`
	SentimentAnalysis         *SentimentAnalysis   `json:"sentiment_analysis"`
	ContextualRecommendations []string             `json:"contextual_recommendations"`
	ForecastAdjustments       ForecastAdjustments  `json:"forecast_adjustments"`
	IntelligenceSummary       string               `json:"intelligence_summary"`
	NextMonitoringSchedule    time.Time            `json:"next_monitoring_schedule"`
}

// RunResult wraps a report in its run envelope.
type RunResult struct {
	RunID          string             `json:"run_id"`
	Report         IntelligenceReport `json:"report"`
	Confidence     float64            `json:"confidence"`
	Degraded       bool               `json:"degraded"`
	ProcessingTime time.Duration      `json:"processing_time"`
	CreatedAt      time.Time          `json:"created_at"`
}

// QueryResults pairs a planned query with its retrieved content.
type QueryResults struct {
	Query   string
	Results []WebResult
}

// LLMProvider is the contract for the extraction model.
type LLMProvider interface {
	// Generate generates text using the named model.
	Generate(ctx context.Context, prompt string, model string, options map[string]interface{}) (string, error)

	// GenerateWithTokens generates text and returns token usage.
	GenerateWithTokens(ctx context.Context, prompt string, model string, options map[string]interface{}) (string, int64, int64, error)

	// CalculateCost calculates the cost for a given number of tokens.
	CalculateCost(inputTokens, outputTokens int64, model string) float64
}

// Retriever produces web results for a query, degrading through fallback
// tiers rather than failing.
type Retriever interface {
	Retrieve(ctx context.Context, query, industry string) []WebResult
}

// Clock abstracts time for cache and event-window testability.
type Clock func() time.Time

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

func clamp(v, lo, hi float64) float64 {
	switch {
	case v < lo:
		return lo
	case v > hi:
		return hi
	}
	return v
}
