package core

import (
	"context"
	"math/rand"
	"testing"
	"time"
)

func TestThreatAssessmentMapping(t *testing.T) {
	cases := map[int]ThreatLevel{
		0: ThreatLow,
		1: ThreatMedium,
		2: ThreatHigh,
		3: ThreatHigh,
	}
	for actions, want := range cases {
		if got := threatFor(actions); got != want {
			t.Fatalf("threat for %d actions: got %s want %s", actions, got, want)
		}
	}
}

func TestMonitorCoversEveryCompetitor(t *testing.T) {
	clock := fixedClock(time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC))
	monitor := NewCompetitorMonitor(rand.New(rand.NewSource(42)), clock)

	profile := CompanyProfile{
		Industry:          "retail",
		Competitors:       []string{"Acme Corp", "Globex", "Initech"},
		ProductCategories: []string{"electronics", "apparel", "toys"},
	}
	analyses := monitor.Monitor(context.Background(), profile)
	if len(analyses) != 3 {
		t.Fatalf("expected one analysis per competitor, got %d", len(analyses))
	}

	for i, analysis := range analyses {
		if analysis.CompetitorName != profile.Competitors[i] {
			t.Fatalf("competitor order not preserved: got %s at %d", analysis.CompetitorName, i)
		}
		if analysis.ThreatAssessment != threatFor(len(analysis.ActionsDetected)) {
			t.Fatalf("threat inconsistent with action count for %s", analysis.CompetitorName)
		}
		share := analysis.MarketPosition.EstimatedMarketShare
		if share < 5 || share > 35 {
			t.Fatalf("market share out of range: %v", share)
		}
		for _, action := range analysis.ActionsDetected {
			if action.ImpactAssessment <= 0 || action.ImpactAssessment > 1 {
				t.Fatalf("impact assessment out of range: %v", action.ImpactAssessment)
			}
			if action.DetectedDate.After(clock()) {
				t.Fatalf("action detected in the future: %s", action.DetectedDate)
			}
			if len(action.RecommendedResponse) == 0 {
				t.Fatalf("action %s has no recommended response", action.ActionType)
			}
		}
	}
}

func TestMonitorDeterministicWithSeed(t *testing.T) {
	clock := fixedClock(time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC))
	profile := CompanyProfile{
		Competitors:       []string{"Acme Corp", "Globex"},
		ProductCategories: []string{"electronics"},
	}

	first := NewCompetitorMonitor(rand.New(rand.NewSource(7)), clock).Monitor(context.Background(), profile)
	second := NewCompetitorMonitor(rand.New(rand.NewSource(7)), clock).Monitor(context.Background(), profile)

	for i := range first {
		if len(first[i].ActionsDetected) != len(second[i].ActionsDetected) {
			t.Fatalf("seeded monitoring not reproducible for %s", first[i].CompetitorName)
		}
		if first[i].ThreatAssessment != second[i].ThreatAssessment {
			t.Fatalf("threat differs for %s", first[i].CompetitorName)
		}
	}
}

func TestMonitorEmptyCompetitorList(t *testing.T) {
	monitor := NewCompetitorMonitor(rand.New(rand.NewSource(1)), nil)
	analyses := monitor.Monitor(context.Background(), CompanyProfile{Industry: "retail"})
	if len(analyses) != 0 {
		t.Fatalf("expected no analyses, got %d", len(analyses))
	}
}
