package core

import (
	"fmt"
	"time"
)

// QueryPlanner builds the ordered set of search queries for a run. Output is
// deterministic for identical input so the batch-cache key stays stable.
type QueryPlanner struct {
	clock Clock
}

// NewQueryPlanner creates a planner. A nil clock falls back to time.Now.
func NewQueryPlanner(clock Clock) *QueryPlanner {
	if clock == nil {
		clock = time.Now
	}
	return &QueryPlanner{clock: clock}
}

// PlanTrendQueries returns the industry trend queries followed by one query
// per product category, in profile order. An empty category list just yields
// fewer queries.
func (p *QueryPlanner) PlanTrendQueries(profile CompanyProfile) []string {
	year := p.clock().Year()
	queries := []string{
		fmt.Sprintf("%s market trends %d", profile.Industry, year),
		fmt.Sprintf("%s consumer behavior changes", profile.Industry),
		fmt.Sprintf("%s seasonal patterns", profile.Industry),
		fmt.Sprintf("%s economic outlook", profile.Industry),
	}
	for _, category := range profile.ProductCategories {
		queries = append(queries, fmt.Sprintf("%s demand forecast %s", category, profile.Industry))
	}
	return queries
}

// PlanSentimentQuery returns the single sentiment retrieval query.
func (p *QueryPlanner) PlanSentimentQuery(profile CompanyProfile) string {
	return fmt.Sprintf("%s consumer sentiment market confidence %d", profile.Industry, p.clock().Year())
}
