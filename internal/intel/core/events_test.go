package core

import (
	"context"
	"math/rand"
	"testing"
	"time"
)

func seasonalOnly(events []MarketEvent) []MarketEvent {
	var out []MarketEvent
	for _, event := range events {
		if event.EventType == InsightSeasonal {
			out = append(out, event)
		}
	}
	return out
}

func TestSeasonalEventsWithinWindow(t *testing.T) {
	// mid-September: Black Friday (Nov 1) and holidays (Dec 1) are inside the
	// 90-day window, back-to-school (Sep 1) already passed this year.
	clock := fixedClock(time.Date(2026, time.September, 15, 0, 0, 0, 0, time.UTC))
	detector := NewEventDetector(rand.New(rand.NewSource(1)), clock, 90)

	events := seasonalOnly(detector.Detect(context.Background(), CompanyProfile{Industry: "retail"}))
	if len(events) != 2 {
		t.Fatalf("expected 2 seasonal events, got %d: %+v", len(events), events)
	}

	byID := map[string]MarketEvent{}
	for _, event := range events {
		byID[event.EventID] = event
	}
	bf, ok := byID["seasonal_black_friday"]
	if !ok {
		t.Fatalf("Black Friday missing: %v", byID)
	}
	if bf.ImpactMagnitude != MagnitudeHigh {
		t.Fatalf("Black Friday magnitude: got %s", bf.ImpactMagnitude)
	}
	if bf.StartDate.Month() != time.November || bf.StartDate.Day() != 1 {
		t.Fatalf("Black Friday start: got %s", bf.StartDate)
	}
	if bf.EndDate == nil || !bf.EndDate.Equal(bf.StartDate.AddDate(0, 0, 30)) {
		t.Fatalf("Black Friday end date: got %v", bf.EndDate)
	}
	if bf.PredictedEffects.DemandImpact != 0.8 {
		t.Fatalf("Black Friday demand impact: got %v", bf.PredictedEffects.DemandImpact)
	}

	if _, ok := byID["seasonal_holiday_season"]; !ok {
		t.Fatalf("holiday season missing: %v", byID)
	}
}

func TestSeasonalEventsOutsideWindow(t *testing.T) {
	// January: the next retail seasonal dates are all more than 90 days out.
	clock := fixedClock(time.Date(2026, time.January, 10, 0, 0, 0, 0, time.UTC))
	detector := NewEventDetector(rand.New(rand.NewSource(1)), clock, 90)

	events := seasonalOnly(detector.Detect(context.Background(), CompanyProfile{Industry: "retail"}))
	if len(events) != 0 {
		t.Fatalf("expected no seasonal events in January, got %+v", events)
	}
}

func TestSeasonalEventsUnknownIndustry(t *testing.T) {
	clock := fixedClock(time.Date(2026, time.September, 15, 0, 0, 0, 0, time.UTC))
	detector := NewEventDetector(rand.New(rand.NewSource(1)), clock, 90)

	events := seasonalOnly(detector.Detect(context.Background(), CompanyProfile{Industry: "aerospace"}))
	if len(events) != 0 {
		t.Fatalf("unknown industry must yield no seasonal events, got %+v", events)
	}
}

func TestDetectDeterministicWithSeed(t *testing.T) {
	clock := fixedClock(time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC))
	profile := CompanyProfile{Industry: "food"}

	first := NewEventDetector(rand.New(rand.NewSource(7)), clock, 90).Detect(context.Background(), profile)
	second := NewEventDetector(rand.New(rand.NewSource(7)), clock, 90).Detect(context.Background(), profile)

	if len(first) != len(second) {
		t.Fatalf("seeded detection not reproducible: %d vs %d events", len(first), len(second))
	}
	for i := range first {
		if first[i].Title != second[i].Title {
			t.Fatalf("event %d differs: %q vs %q", i, first[i].Title, second[i].Title)
		}
	}
}
