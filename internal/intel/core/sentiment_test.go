package core

import (
	"context"
	"math/rand"
	"testing"
	"time"
)

// stubRetriever returns fixed results regardless of the query.
type stubRetriever struct {
	results []WebResult
}

func (s *stubRetriever) Retrieve(ctx context.Context, query, industry string) []WebResult {
	return s.results
}

func sentimentFixture(llm *stubLLM, retriever Retriever) *SentimentAnalyzer {
	planner := NewQueryPlanner(fixedClock(time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC)))
	return NewSentimentAnalyzer(llm, "analysis", retriever, planner, rand.New(rand.NewSource(11)), nil)
}

func TestAnalyzeSentimentParsesResponse(t *testing.T) {
	llm := &stubLLM{response: `{"overall_sentiment": 0.4, "sentiment_trend": "IMPROVING", "key_topics": [{"topic": "electronics", "sentiment_score": 0.5, "mention_volume": 300, "trend_direction": "UP"}], "consumer_confidence": {"current_level": 75, "three_month_outlook": 80, "industry_specific": 70}}`}
	retriever := &stubRetriever{results: []WebResult{{Title: "t", Content: "c", Source: "reuters.com"}}}
	analyzer := sentimentFixture(llm, retriever)

	analysis := analyzer.Analyze(context.Background(), testProfile)
	if analysis == nil {
		t.Fatal("sentiment must never be nil")
	}
	if analysis.OverallSentiment != 0.4 || analysis.SentimentTrend != "IMPROVING" {
		t.Fatalf("parsed fields lost: %+v", analysis)
	}
	if len(analysis.KeyTopics) != 1 || analysis.KeyTopics[0].Topic != "electronics" {
		t.Fatalf("topics lost: %+v", analysis.KeyTopics)
	}
	if analysis.ConsumerConfidence.ThreeMonthOutlook != 80 {
		t.Fatalf("confidence lost: %+v", analysis.ConsumerConfidence)
	}
	if _, ok := analysis.BrandPerception.Competitors["Acme Corp"]; !ok {
		t.Fatalf("competitor perception missing: %+v", analysis.BrandPerception)
	}
}

func TestAnalyzeSentimentFallbackOnMalformedResponse(t *testing.T) {
	llm := &stubLLM{response: "I cannot answer in JSON today."}
	retriever := &stubRetriever{results: []WebResult{{Title: "t", Content: "c"}}}
	analyzer := sentimentFixture(llm, retriever)

	analysis := analyzer.Analyze(context.Background(), testProfile)
	if analysis == nil {
		t.Fatal("fallback must produce a profile")
	}
	if analysis.OverallSentiment < -0.6 || analysis.OverallSentiment > 0.6 {
		t.Fatalf("fallback sentiment out of bounds: %v", analysis.OverallSentiment)
	}
	if len(analysis.KeyTopics) != len(testProfile.ProductCategories) {
		t.Fatalf("fallback topics: got %d want %d", len(analysis.KeyTopics), len(testProfile.ProductCategories))
	}
	for _, topic := range analysis.KeyTopics {
		if topic.MentionVolume < 200 || topic.MentionVolume >= 1000 {
			t.Fatalf("mention volume out of range: %d", topic.MentionVolume)
		}
	}
}

func TestAnalyzeSentimentFallbackOnEmptyRetrieval(t *testing.T) {
	llm := &stubLLM{response: `{"overall_sentiment": 0.4}`}
	analyzer := sentimentFixture(llm, &stubRetriever{})

	analysis := analyzer.Analyze(context.Background(), testProfile)
	if analysis == nil {
		t.Fatal("fallback must produce a profile")
	}
	if llm.calls != 0 {
		t.Fatalf("empty retrieval must not call the model, got %d calls", llm.calls)
	}
}

func TestAnalyzeSentimentClampsOutOfRangeValues(t *testing.T) {
	llm := &stubLLM{response: `{"overall_sentiment": 3.5, "sentiment_trend": "SIDEWAYS", "consumer_confidence": {"current_level": 140, "three_month_outlook": -5, "industry_specific": 0}}`}
	retriever := &stubRetriever{results: []WebResult{{Title: "t", Content: "c"}}}
	analyzer := sentimentFixture(llm, retriever)

	analysis := analyzer.Analyze(context.Background(), testProfile)
	if analysis.OverallSentiment != 1 {
		t.Fatalf("overall sentiment not clamped: %v", analysis.OverallSentiment)
	}
	if analysis.SentimentTrend != "STABLE" {
		t.Fatalf("invalid trend not defaulted: %s", analysis.SentimentTrend)
	}
	if analysis.ConsumerConfidence.CurrentLevel != 100 {
		t.Fatalf("current level not clamped: %v", analysis.ConsumerConfidence.CurrentLevel)
	}
	if analysis.ConsumerConfidence.ThreeMonthOutlook != 0 {
		t.Fatalf("negative outlook not clamped: %v", analysis.ConsumerConfidence.ThreeMonthOutlook)
	}
	if analysis.ConsumerConfidence.IndustrySpecific != 70 {
		t.Fatalf("zero confidence must take the default: %v", analysis.ConsumerConfidence.IndustrySpecific)
	}
}
