package core

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// seasonalEvent is one entry in the industry seasonal calendar.
type seasonalEvent struct {
	month  time.Month
	name   string
	impact float64
}

// seasonalCalendar maps industries to their recurring demand events.
var seasonalCalendar = map[string][]seasonalEvent{
	"retail": {
		{month: time.November, name: "Black Friday", impact: 0.8},
		{month: time.December, name: "Holiday season", impact: 0.9},
		{month: time.September, name: "Back to school", impact: 0.6},
	},
	"food": {
		{month: time.December, name: "End-of-year festivities", impact: 0.7},
		{month: time.April, name: "Easter", impact: 0.4},
		{month: time.July, name: "Summer barbecue season", impact: 0.5},
	},
}

// EventDetector produces economic, seasonal, and regulatory market events.
// Seasonal events come deterministically from the calendar table; the other
// two classes are sampled when no real signal feed exists.
type EventDetector struct {
	mu         sync.Mutex
	rng        *rand.Rand
	clock      Clock
	windowDays int
}

// NewEventDetector creates a detector with the given forward window for
// seasonal events.
func NewEventDetector(rng *rand.Rand, clock Clock, windowDays int) *EventDetector {
	if clock == nil {
		clock = time.Now
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(clock().UnixNano()))
	}
	if windowDays <= 0 {
		windowDays = 90
	}
	return &EventDetector{rng: rng, clock: clock, windowDays: windowDays}
}

// Detect returns the events relevant to the profile's industry.
func (d *EventDetector) Detect(ctx context.Context, profile CompanyProfile) []MarketEvent {
	select {
	case <-ctx.Done():
		return nil
	default:
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.clock()
	var events []MarketEvent

	events = append(events, d.economicEvents(now, profile)...)
	events = append(events, d.seasonalEvents(now, profile)...)
	events = append(events, d.regulatoryEvents(now)...)

	return events
}

func (d *EventDetector) economicEvents(now time.Time, profile CompanyProfile) []MarketEvent {
	candidates := []struct {
		title       string
		description string
		effects     PredictedEffects
	}{
		{
			title:       "Moderate inflation expected next quarter",
			description: "Economic forecasts anticipate inflation near 2.8% for the coming quarter",
			effects:     PredictedEffects{DemandImpact: -0.1, PriceImpact: 0.2, SupplyChainImpact: -0.05},
		},
		{
			title:       "Interest rates held steady",
			description: "The central bank keeps its key rates unchanged",
			effects:     PredictedEffects{DemandImpact: 0.05, PriceImpact: 0, SupplyChainImpact: 0.02},
		},
	}

	var events []MarketEvent
	for _, candidate := range candidates {
		// each candidate has a 50% inclusion chance
		if d.rng.Float64() >= 0.5 {
			continue
		}
		events = append(events, MarketEvent{
			EventID:            "econ_" + uuid.NewString(),
			EventType:          InsightEconomic,
			Title:              candidate.title,
			Description:        candidate.description,
			StartDate:          now.Add(time.Duration(d.rng.Float64() * 30 * 24 * float64(time.Hour))),
			GeographicScope:    "NATIONAL",
			ImpactMagnitude:    MagnitudeMedium,
			AffectedIndustries: []string{profile.Industry},
			PredictedEffects:   candidate.effects,
			PreparationRecommendations: []string{
				"Adjust pricing strategy",
				"Revise demand forecasts",
				"Optimize cost management",
			},
		})
	}
	return events
}

// seasonalEvents emits calendar entries whose next occurrence falls within
// the forward window. An occurrence this year that already passed rolls over
// to next year.
func (d *EventDetector) seasonalEvents(now time.Time, profile CompanyProfile) []MarketEvent {
	entries := seasonalCalendar[strings.ToLower(profile.Industry)]
	window := time.Duration(d.windowDays) * 24 * time.Hour

	var events []MarketEvent
	for _, entry := range entries {
		start := time.Date(now.Year(), entry.month, 1, 0, 0, 0, 0, now.Location())
		if !start.After(now) {
			start = start.AddDate(1, 0, 0)
		}
		if start.Sub(now) >= window {
			continue
		}

		magnitude := MagnitudeMedium
		if entry.impact > 0.7 {
			magnitude = MagnitudeHigh
		}
		end := start.AddDate(0, 0, 30)
		events = append(events, MarketEvent{
			EventID:            "seasonal_" + strings.ToLower(strings.ReplaceAll(entry.name, " ", "_")),
			EventType:          InsightSeasonal,
			Title:              entry.name,
			Description:        fmt.Sprintf("Seasonal period %s is approaching", entry.name),
			StartDate:          start,
			EndDate:            &end,
			GeographicScope:    "NATIONAL",
			ImpactMagnitude:    magnitude,
			AffectedIndustries: []string{profile.Industry},
			PredictedEffects: PredictedEffects{
				DemandImpact:      entry.impact,
				PriceImpact:       entry.impact * 0.5,
				SupplyChainImpact: entry.impact * 0.3,
			},
			PreparationRecommendations: []string{
				"Increase seasonal stock",
				"Prepare marketing campaigns",
				"Optimize the supply chain",
			},
		})
	}
	return events
}

func (d *EventDetector) regulatoryEvents(now time.Time) []MarketEvent {
	// 20% chance of a pending regulation
	if d.rng.Float64() >= 0.2 {
		return nil
	}
	return []MarketEvent{{
		EventID:            "reg_" + uuid.NewString(),
		EventType:          InsightRegulation,
		Title:              "New product regulation announced",
		Description:        "New safety standards announced for electronic products",
		StartDate:          now.Add(60 * 24 * time.Hour),
		GeographicScope:    "REGIONAL",
		ImpactMagnitude:    MagnitudeHigh,
		AffectedIndustries: []string{"technology", "electronics"},
		PredictedEffects:   PredictedEffects{DemandImpact: -0.15, PriceImpact: 0.1, SupplyChainImpact: -0.2},
		PreparationRecommendations: []string{
			"Audit product compliance",
			"Budget compliance costs",
			"Communicate on conformity",
		},
	}}
}
