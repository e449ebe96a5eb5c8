package core

import (
	"reflect"
	"testing"
	"time"
)

func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

func TestPlanTrendQueriesDeterministic(t *testing.T) {
	planner := NewQueryPlanner(fixedClock(time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC)))
	profile := CompanyProfile{
		Industry:          "retail",
		ProductCategories: []string{"electronics", "apparel"},
	}

	first := planner.PlanTrendQueries(profile)
	second := planner.PlanTrendQueries(profile)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("planner not deterministic: %v vs %v", first, second)
	}

	want := []string{
		"retail market trends 2026",
		"retail consumer behavior changes",
		"retail seasonal patterns",
		"retail economic outlook",
		"electronics demand forecast retail",
		"apparel demand forecast retail",
	}
	if !reflect.DeepEqual(first, want) {
		t.Fatalf("unexpected queries: got %v want %v", first, want)
	}
}

func TestPlanTrendQueriesEmptyCategories(t *testing.T) {
	planner := NewQueryPlanner(fixedClock(time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC)))
	queries := planner.PlanTrendQueries(CompanyProfile{Industry: "food"})
	if len(queries) != 4 {
		t.Fatalf("expected 4 base queries, got %d: %v", len(queries), queries)
	}
}

func TestPlanSentimentQuery(t *testing.T) {
	planner := NewQueryPlanner(fixedClock(time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC)))
	got := planner.PlanSentimentQuery(CompanyProfile{Industry: "retail"})
	want := "retail consumer sentiment market confidence 2026"
	if got != want {
		t.Fatalf("sentiment query: got %q want %q", got, want)
	}
}
