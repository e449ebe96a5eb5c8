package core

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// RankInsights sorts insights descending by impact*confidence and truncates
// to max. The sort is stable so equal scores keep insertion order and output
// stays deterministic.
func RankInsights(insights []MarketInsight, max int) []MarketInsight {
	ranked := make([]MarketInsight, len(insights))
	copy(ranked, insights)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].ImpactScore*ranked[i].ConfidenceScore > ranked[j].ImpactScore*ranked[j].ConfidenceScore
	})
	if max > 0 && len(ranked) > max {
		ranked = ranked[:max]
	}
	return ranked
}

// magnitudeScores is the fixed event magnitude to impact-score mapping.
var magnitudeScores = map[ImpactMagnitude]float64{
	MagnitudeLow:      0.3,
	MagnitudeMedium:   0.6,
	MagnitudeHigh:     0.8,
	MagnitudeCritical: 0.95,
}

// eventConfidence is the confidence assigned to event-derived insights.
const eventConfidence = 0.85

// ConsolidateInsights merges every insight source into one ranked, capped
// list. Events and competitor actions are converted to MarketInsight records;
// sentiment contributes through its own report section rather than the list.
func ConsolidateInsights(trends []MarketInsight, competitors []CompetitorAnalysis, events []MarketEvent, now time.Time, max int) []MarketInsight {
	all := make([]MarketInsight, 0, len(trends)+len(events))
	all = append(all, trends...)
	for _, event := range events {
		all = append(all, eventToInsight(event, now))
	}
	for _, analysis := range competitors {
		for _, action := range analysis.ActionsDetected {
			all = append(all, competitorActionToInsight(analysis.CompetitorName, action, now))
		}
	}
	return RankInsights(all, max)
}

func eventToInsight(event MarketEvent, now time.Time) MarketInsight {
	change := event.PredictedEffects.DemandImpact * 100
	return MarketInsight{
		ID:               event.EventID,
		Type:             event.EventType,
		Source:           "Market Events Detection",
		Title:            event.Title,
		Description:      event.Description,
		ImpactScore:      magnitudeScores[event.ImpactMagnitude],
		ConfidenceScore:  eventConfidence,
		TimeRelevance:    relevanceFor(event.StartDate, now),
		AffectedProducts: []string{},
		PredictedImpact: PredictedImpact{
			DemandChangePercentage: change,
			Direction:              directionFor(change),
			DurationDays:           30,
		},
		DiscoveredAt: now,
		Keywords:     strings.Fields(event.Title),
	}
}

// competitorActionToInsight projects a detected competitor move onto the
// company's own demand: a competitor gain is a demand headwind here.
func competitorActionToInsight(competitor string, action CompetitorAction, now time.Time) MarketInsight {
	change := -math.Round(action.ImpactAssessment * 10)
	return MarketInsight{
		ID:               fmt.Sprintf("competitor_%s_%s", strings.ToLower(competitor), strings.ToLower(action.ActionType)),
		Type:             InsightCompetitor,
		Source:           "Competitor Monitoring",
		Title:            fmt.Sprintf("%s: %s", competitor, action.ActionType),
		Description:      action.Description,
		ImpactScore:      clamp01(action.ImpactAssessment),
		ConfidenceScore:  0.7,
		TimeRelevance:    RelevanceShortTerm,
		AffectedProducts: action.AffectedCategories,
		PredictedImpact: PredictedImpact{
			DemandChangePercentage: change,
			Direction:              directionFor(change),
			DurationDays:           14,
		},
		DiscoveredAt: now,
		Keywords:     strings.Fields(action.ActionType),
	}
}

func relevanceFor(start, now time.Time) TimeRelevance {
	days := start.Sub(now).Hours() / 24
	switch {
	case days <= 7:
		return RelevanceImmediate
	case days <= 30:
		return RelevanceShortTerm
	case days <= 90:
		return RelevanceMediumTerm
	}
	return RelevanceLongTerm
}

// CalculateForecastAdjustments aggregates insight demand changes into
// per-product additive factors. Only insights with impact above 0.5
// contribute.
func CalculateForecastAdjustments(insights []MarketInsight) ForecastAdjustments {
	adjustments := make(map[string]float64)
	for _, insight := range insights {
		if insight.ImpactScore <= 0.5 {
			continue
		}
		for _, product := range insight.AffectedProducts {
			adjustments[product] += insight.PredictedImpact.DemandChangePercentage / 100
		}
	}
	return ForecastAdjustments{
		ProductAdjustments: adjustments,
		GlobalMarketFactor: globalMarketFactor(insights),
		ConfidenceLevel:    adjustmentConfidence(insights),
	}
}

// globalMarketFactor maps the weighted average impact onto a multiplicative
// factor bounded to roughly [0.8, 1.2].
func globalMarketFactor(insights []MarketInsight) float64 {
	if len(insights) == 0 {
		return 1.0
	}
	var weighted float64
	for _, insight := range insights {
		weighted += insight.ImpactScore * insight.ConfidenceScore
	}
	weighted /= float64(len(insights))
	return 1.0 + (weighted-0.5)*0.4
}

func adjustmentConfidence(insights []MarketInsight) float64 {
	if len(insights) == 0 {
		return 0.5
	}
	var sum float64
	for _, insight := range insights {
		sum += insight.ConfidenceScore
	}
	return sum / float64(len(insights))
}

// ContextConfidence estimates the run's overall confidence from the
// consolidated insight set.
func ContextConfidence(insights []MarketInsight) float64 {
	if len(insights) == 0 {
		return 0.6
	}
	var confidenceSum float64
	var highImpact int
	for _, insight := range insights {
		confidenceSum += insight.ConfidenceScore
		if insight.ImpactScore > 0.6 {
			highImpact++
		}
	}
	avgConfidence := confidenceSum / float64(len(insights))
	highImpactRatio := float64(highImpact) / float64(len(insights))
	return math.Min(0.95, avgConfidence*0.7+highImpactRatio*0.3)
}

// GenerateRecommendations derives action items from high-impact insights.
func GenerateRecommendations(insights []MarketInsight) []string {
	var recommendations []string
	for _, insight := range insights {
		if insight.ImpactScore <= 0.7 {
			continue
		}
		products := strings.Join(insight.AffectedProducts, ", ")
		switch insight.PredictedImpact.Direction {
		case DirectionIncrease:
			recommendations = append(recommendations,
				fmt.Sprintf("Prepare for a %.0f%% demand increase for %s", insight.PredictedImpact.DemandChangePercentage, products))
		case DirectionDecrease:
			recommendations = append(recommendations,
				fmt.Sprintf("Anticipate a %.0f%% demand decrease for %s", math.Abs(insight.PredictedImpact.DemandChangePercentage), products))
		}
	}

	trendCount := 0
	for _, insight := range insights {
		if insight.Type == InsightTrend {
			trendCount++
		}
	}
	if trendCount > 3 {
		recommendations = append(recommendations, "Multiple market trends detected, strategic review recommended")
	}
	return recommendations
}

// SummarizeIntelligence builds the one-line run summary.
func SummarizeIntelligence(insights []MarketInsight) string {
	highImpact := 0
	immediate := 0
	for _, insight := range insights {
		if insight.ImpactScore > 0.6 {
			highImpact++
		}
		if insight.TimeRelevance == RelevanceImmediate {
			immediate++
		}
	}
	return fmt.Sprintf("Market intelligence: %d insights detected, %d high impact, %d requiring immediate action.",
		len(insights), highImpact, immediate)
}
