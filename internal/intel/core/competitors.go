package core

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// CompetitorMonitor produces per-competitor analyses. Without a real signal
// feed the action detection is sampled from the injected random source, which
// keeps tests deterministic when seeded.
type CompetitorMonitor struct {
	mu    sync.Mutex
	rng   *rand.Rand
	clock Clock
}

// NewCompetitorMonitor creates a monitor. A nil rng gets a time-seeded source.
func NewCompetitorMonitor(rng *rand.Rand, clock Clock) *CompetitorMonitor {
	if clock == nil {
		clock = time.Now
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(clock().UnixNano()))
	}
	return &CompetitorMonitor{rng: rng, clock: clock}
}

// Monitor analyzes every competitor in the profile, in profile order.
func (m *CompetitorMonitor) Monitor(ctx context.Context, profile CompanyProfile) []CompetitorAnalysis {
	analyses := make([]CompetitorAnalysis, 0, len(profile.Competitors))
	for _, competitor := range profile.Competitors {
		select {
		case <-ctx.Done():
			return analyses
		default:
		}
		analyses = append(analyses, m.analyzeCompetitor(competitor, profile))
	}
	return analyses
}

func (m *CompetitorMonitor) analyzeCompetitor(competitor string, profile CompanyProfile) CompetitorAnalysis {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock()
	var actions []CompetitorAction

	// 40% chance of a recent promotion.
	if m.rng.Float64() < 0.4 {
		actions = append(actions, CompetitorAction{
			ActionType:         "PROMOTION",
			Description:        fmt.Sprintf("%s launched a -25%% promotion campaign", competitor),
			DetectedDate:       now.Add(-time.Duration(m.rng.Float64() * 7 * 24 * float64(time.Hour))),
			ImpactAssessment:   0.7,
			AffectedCategories: firstN(profile.ProductCategories, 2),
			RecommendedResponse: []string{
				"Assess impact on our sales",
				"Consider a defensive promotion",
				"Communicate on our differentiators",
			},
		})
	}

	// 20% chance of a product launch.
	if m.rng.Float64() < 0.2 {
		category := ""
		if len(profile.ProductCategories) > 0 {
			category = profile.ProductCategories[0]
		}
		actions = append(actions, CompetitorAction{
			ActionType:         "PRODUCT_LAUNCH",
			Description:        fmt.Sprintf("%s launched a new product in %s", competitor, category),
			DetectedDate:       now.Add(-time.Duration(m.rng.Float64() * 14 * 24 * float64(time.Hour))),
			ImpactAssessment:   0.6,
			AffectedCategories: firstN(profile.ProductCategories, 1),
			RecommendedResponse: []string{
				"Analyze the new product's features",
				"Evaluate impact on our roadmap",
				"Reinforce differentiation",
			},
		})
	}

	return CompetitorAnalysis{
		CompetitorName:  competitor,
		ActionsDetected: actions,
		MarketPosition: MarketPosition{
			EstimatedMarketShare: m.rng.Float64()*30 + 5,
			PricePositioning:     []string{"PREMIUM", "STANDARD", "DISCOUNT"}[m.rng.Intn(3)],
			DistributionChannels: m.sampleChannels(),
		},
		ThreatAssessment: threatFor(len(actions)),
	}
}

func (m *CompetitorMonitor) sampleChannels() []string {
	var channels []string
	for _, ch := range []string{"online", "retail", "B2B"} {
		if m.rng.Float64() > 0.5 {
			channels = append(channels, ch)
		}
	}
	return channels
}

func threatFor(actionCount int) ThreatLevel {
	switch {
	case actionCount >= 2:
		return ThreatHigh
	case actionCount == 1:
		return ThreatMedium
	}
	return ThreatLow
}

func firstN(items []string, n int) []string {
	if len(items) <= n {
		return items
	}
	return items[:n]
}
