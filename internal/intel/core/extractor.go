package core

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/stebou/marketintel/internal/helpers"
	"github.com/stebou/marketintel/internal/intel/telemetry"
	"github.com/stebou/marketintel/utils"
)

// batchExtractionResponse is the strict output contract the extraction model
// is instructed to follow.
type batchExtractionResponse struct {
	BatchInsights []struct {
		SearchIndex int          `json:"search_index"`
		Query       string       `json:"query"`
		Insights    []rawInsight `json:"insights"`
	} `json:"batch_insights"`
}

type rawInsight struct {
	Title            string   `json:"title"`
	Description      string   `json:"description"`
	ImpactScore      *float64 `json:"impact_score"`
	ConfidenceScore  *float64 `json:"confidence_score"`
	TimeRelevance    string   `json:"time_relevance"`
	AffectedProducts []string `json:"affected_products"`
	PredictedImpact  *struct {
		DemandChangePercentage float64 `json:"demand_change_percentage"`
		Direction              string  `json:"direction"`
		DurationDays           int     `json:"duration_days"`
	} `json:"predicted_impact"`
	Keywords []string `json:"keywords"`
}

// InsightExtractor turns batched web content into typed MarketInsight records
// with a single model call per batch.
type InsightExtractor struct {
	llm    LLMProvider
	model  string
	tele   *telemetry.Telemetry
	logger *log.Logger
	clock  Clock
}

// NewInsightExtractor creates an extractor bound to the routed extraction model.
func NewInsightExtractor(llm LLMProvider, model string, tele *telemetry.Telemetry, clock Clock) *InsightExtractor {
	if clock == nil {
		clock = time.Now
	}
	return &InsightExtractor{
		llm:    llm,
		model:  model,
		tele:   tele,
		logger: log.New(log.Writer(), "[EXTRACT] ", log.LstdFlags),
		clock:  clock,
	}
}

// ExtractBatch sends every query with its retrieved content in one combined
// prompt and parses the structured response defensively. A malformed response
// yields an empty insight set, never an error that fails the run.
func (e *InsightExtractor) ExtractBatch(ctx context.Context, profile CompanyProfile, searches []QueryResults) ([]MarketInsight, error) {
	if len(searches) == 0 {
		return nil, nil
	}

	system := e.systemPrompt(profile)
	prompt := e.batchPrompt(searches)

	e.logger.Printf("batched extraction: %d searches, prompt %d bytes", len(searches), len(prompt))

	response, inTok, outTok, err := e.llm.GenerateWithTokens(ctx, prompt, e.model, map[string]interface{}{"system": system})
	if err != nil {
		return nil, fmt.Errorf("batch extraction call: %w", err)
	}
	if e.tele != nil {
		cost := e.llm.CalculateCost(inTok, outTok, e.model)
		e.tele.RecordLLMUsage("batch_extraction", e.model, inTok, outTok, cost)
	}

	var parsed batchExtractionResponse
	if err := helpers.DecodeLLMJSON(response, &parsed); err != nil {
		if e.tele != nil {
			e.tele.RecordParseFailure("extractor")
		}
		e.logger.Printf("extraction response unparseable, dropping batch: %v (head: %s)", err, utils.Truncate(response, 200))
		return nil, nil
	}

	now := e.clock()
	var insights []MarketInsight
	for _, batch := range parsed.BatchInsights {
		for _, raw := range batch.Insights {
			insights = append(insights, normalizeInsight(raw, profile, now))
		}
	}
	e.logger.Printf("batched extraction completed: %d searches in, %d insights out", len(searches), len(insights))
	return insights, nil
}

func (e *InsightExtractor) systemPrompt(profile CompanyProfile) string {
	return fmt.Sprintf(`You are a market intelligence expert specialized in analyzing web data to optimize inventory management.

Industry: %s
Business type: %s
Product categories: %s
Competitors: %s

IMPORTANT: Respond ONLY with valid JSON, no markdown, no backticks, no formatting. Your response must start with { and end with }.

Analyze ALL provided searches and produce structured insights.

Expected format:
{
  "batch_insights": [
    {
      "search_index": 0,
      "query": "original query",
      "insights": [
        {
          "title": "Insight title",
          "description": "Detailed description",
          "impact_score": 0.8,
          "confidence_score": 0.9,
          "time_relevance": "SHORT_TERM",
          "predicted_impact": {
            "demand_change_percentage": 15,
            "direction": "INCREASE",
            "duration_days": 90
          }
        }
      ]
    }
  ]
}`,
		profile.Industry,
		profile.BusinessType,
		strings.Join(profile.ProductCategories, ", "),
		strings.Join(profile.Competitors, ", "))
}

func (e *InsightExtractor) batchPrompt(searches []QueryResults) string {
	var b strings.Builder
	for i, search := range searches {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "--- SEARCH %d: %s ---\n", i+1, search.Query)
		for _, result := range search.Results {
			fmt.Fprintf(&b, "Source: %s\nTitle: %s\nContent: %s\n---\n", result.Source, result.Title, result.Content)
		}
	}
	return b.String()
}

// normalizeInsight applies the extraction defaults and invariants: scores
// clamped to [0,1], time relevance defaulting to MEDIUM_TERM, duration to 30
// days, and direction re-derived from the sign of the demand change.
func normalizeInsight(raw rawInsight, profile CompanyProfile, now time.Time) MarketInsight {
	title := raw.Title
	if title == "" {
		title = "Market Insight"
	}
	description := raw.Description
	if description == "" {
		description = "Extracted market insight"
	}

	impact := 0.5
	if raw.ImpactScore != nil {
		impact = clamp01(*raw.ImpactScore)
	}
	confidence := 0.7
	if raw.ConfidenceScore != nil {
		confidence = clamp01(*raw.ConfidenceScore)
	}

	relevance := TimeRelevance(raw.TimeRelevance)
	switch relevance {
	case RelevanceImmediate, RelevanceShortTerm, RelevanceMediumTerm, RelevanceLongTerm:
	default:
		relevance = RelevanceMediumTerm
	}

	var change float64
	duration := 30
	if raw.PredictedImpact != nil {
		change = raw.PredictedImpact.DemandChangePercentage
		if raw.PredictedImpact.DurationDays > 0 {
			duration = raw.PredictedImpact.DurationDays
		}
	}

	affected := raw.AffectedProducts
	if len(affected) == 0 {
		affected = profile.ProductCategories
	}

	return MarketInsight{
		ID:               "insight_" + uuid.NewString(),
		Type:             InsightTrend,
		Source:           "Batch Extraction",
		Title:            title,
		Description:      description,
		ImpactScore:      impact,
		ConfidenceScore:  confidence,
		TimeRelevance:    relevance,
		AffectedProducts: affected,
		PredictedImpact: PredictedImpact{
			DemandChangePercentage: change,
			Direction:              directionFor(change),
			DurationDays:           duration,
		},
		DiscoveredAt: now,
		Keywords:     raw.Keywords,
	}
}

// directionFor keeps direction consistent with the sign of the demand change,
// regardless of what the model claimed.
func directionFor(change float64) ImpactDirection {
	switch {
	case change > 0:
		return DirectionIncrease
	case change < 0:
		return DirectionDecrease
	}
	return DirectionNeutral
}
