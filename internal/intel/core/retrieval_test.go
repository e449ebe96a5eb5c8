package core

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stebou/marketintel/config"
)

func TestRetrieveFallsBackToStaticWithoutCredentials(t *testing.T) {
	clock := fixedClock(time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC))
	retriever := NewTieredRetriever(config.SearchConfig{}, nil, "", nil, clock)

	results := retriever.Retrieve(context.Background(), "retail market trends 2026", "retail")
	if len(results) != 4 {
		t.Fatalf("expected 4 static results, got %d", len(results))
	}
	for _, result := range results {
		if result.Provenance != ProvenanceStatic {
			t.Fatalf("expected static provenance, got %s for %s", result.Provenance, result.Source)
		}
		if result.Reliability < 0.9 {
			t.Fatalf("premium source %s has reliability %v", result.Source, result.Reliability)
		}
		if !strings.Contains(result.Content, "retail") {
			t.Fatalf("canned content not parameterized by industry: %q", result.Content)
		}
	}
}

func TestSimulatedTierAttributesPremiumSources(t *testing.T) {
	llm := &stubLLM{response: strings.Repeat("Market analysis paragraph with plenty of substance to pass the segment filter. ", 2) +
		"\n\n" + strings.Repeat("Second paragraph with different consulting findings and forecasts for the sector. ", 2)}
	tier := &simulatedTier{llm: llm, model: "analysis", clock: fixedClock(time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC))}

	results, err := tier.attempt(context.Background(), "retail economic outlook", "retail")
	if err != nil {
		t.Fatalf("attempt: %v", err)
	}
	if len(results) != 4 {
		t.Fatalf("expected one result per premium source, got %d", len(results))
	}

	wantSources := map[string]float64{
		"McKinsey & Company":      0.95,
		"Deloitte Insights":       0.92,
		"PwC Global":              0.90,
		"Boston Consulting Group": 0.94,
	}
	for _, result := range results {
		want, ok := wantSources[result.Source]
		if !ok {
			t.Fatalf("unknown source %q", result.Source)
		}
		if result.Reliability != want {
			t.Fatalf("source %s reliability: got %v want %v", result.Source, result.Reliability, want)
		}
		if result.Provenance != ProvenanceSimulated {
			t.Fatalf("expected simulated provenance, got %s", result.Provenance)
		}
	}
}

func TestSimulatedTierFailureDegradesToStatic(t *testing.T) {
	clock := fixedClock(time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC))
	llm := &stubLLM{err: context.DeadlineExceeded}
	retriever := NewTieredRetriever(config.SearchConfig{}, llm, "analysis", nil, clock)

	results := retriever.Retrieve(context.Background(), "food seasonal patterns", "food")
	if len(results) != 4 {
		t.Fatalf("expected static fallback results, got %d", len(results))
	}
	if results[0].Provenance != ProvenanceStatic {
		t.Fatalf("expected static provenance after simulated-tier failure, got %s", results[0].Provenance)
	}
}

func TestSourceReliabilityTable(t *testing.T) {
	cases := map[string]float64{
		"mckinsey.com": 0.95,
		"bcg.com":      0.94,
		"wsj.com":      0.83,
	}
	for domain, want := range cases {
		if got := sourceReliability[domain]; got != want {
			t.Fatalf("reliability for %s: got %v want %v", domain, got, want)
		}
	}
	if _, ok := sourceReliability["example.com"]; ok {
		t.Fatal("unknown domains must fall back to the default reliability")
	}
	if defaultReliability != 0.70 {
		t.Fatalf("default reliability changed: %v", defaultReliability)
	}
}
