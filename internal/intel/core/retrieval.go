package core

import (
	"context"
	"fmt"
	"log"
	"net/http"
	nurl "net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"

	"github.com/stebou/marketintel/config"
	"github.com/stebou/marketintel/internal/intel/telemetry"
	search "github.com/stebou/marketintel/tools/web_search"
	"github.com/stebou/marketintel/utils"
)

// sourceReliability maps known domains to their trust score. Unknown domains
// get defaultReliability.
var sourceReliability = map[string]float64{
	"mckinsey.com":  0.95,
	"bcg.com":       0.94,
	"deloitte.com":  0.92,
	"pwc.com":       0.90,
	"reuters.com":   0.88,
	"bloomberg.com": 0.87,
	"economist.com": 0.85,
	"ft.com":        0.84,
	"wsj.com":       0.83,
}

const defaultReliability = 0.70

// premiumSource is one of the consultancy identities used by the simulated
// and static tiers.
type premiumSource struct {
	name        string
	domain      string
	reliability float64
	focus       string
}

var premiumSources = []premiumSource{
	{name: "McKinsey & Company", domain: "mckinsey.com", reliability: 0.95, focus: "Strategic insights"},
	{name: "Deloitte Insights", domain: "deloitte.com", reliability: 0.92, focus: "Market research"},
	{name: "PwC Global", domain: "pwc.com", reliability: 0.90, focus: "Business intelligence"},
	{name: "Boston Consulting Group", domain: "bcg.com", reliability: 0.94, focus: "Innovation insights"},
}

// retrievalTier attempts one retrieval strategy. An error or empty slice moves
// the retriever to the next tier.
type retrievalTier interface {
	name() Provenance
	available() bool
	attempt(ctx context.Context, query, industry string) ([]WebResult, error)
}

// TieredRetriever walks its tiers in order and returns the first non-empty
// result set. It never returns an error; the last tier is pure in-memory data.
type TieredRetriever struct {
	tiers  []retrievalTier
	logger *log.Logger
	tele   *telemetry.Telemetry
	clock  Clock
}

// NewTieredRetriever wires the three-tier chain: provider search, then
// LLM-simulated premium content, then static canned results.
func NewTieredRetriever(cfg config.SearchConfig, llm LLMProvider, simulationModel string, tele *telemetry.Telemetry, clock Clock) *TieredRetriever {
	if clock == nil {
		clock = time.Now
	}
	logger := log.New(log.Writer(), "[RETRIEVE] ", log.LstdFlags)

	reliability := make(map[string]float64, len(sourceReliability))
	for k, v := range sourceReliability {
		reliability[k] = v
	}
	for k, v := range cfg.ReliabilityOverrides {
		reliability[k] = clamp01(v)
	}

	var searcher search.WebSearcher
	if cfg.APIKey() != "" {
		var err error
		searcher, err = search.NewWebSearcher(search.Provider(cfg.Provider), cfg.APIKey())
		if err != nil {
			logger.Printf("search provider %q unavailable: %v", cfg.Provider, err)
			searcher = nil
		}
	}

	tiers := []retrievalTier{
		&searchTier{
			searcher:    searcher,
			maxResults:  cfg.MaxResults,
			timeout:     cfg.Timeout,
			enrich:      cfg.EnrichContent,
			reliability: reliability,
			client:      &http.Client{Timeout: 8 * time.Second},
			clock:       clock,
		},
		&simulatedTier{llm: llm, model: simulationModel, clock: clock},
		&staticTier{clock: clock},
	}
	return &TieredRetriever{tiers: tiers, logger: logger, tele: tele, clock: clock}
}

// Retrieve walks the tier chain. Every failure degrades to the next tier
// rather than propagating.
func (r *TieredRetriever) Retrieve(ctx context.Context, query, industry string) []WebResult {
	for _, tier := range r.tiers {
		if !tier.available() {
			continue
		}
		results, err := tier.attempt(ctx, query, industry)
		if err != nil {
			r.logger.Printf("tier %s failed for %q: %v", tier.name(), utils.Truncate(query, 60), err)
			continue
		}
		if len(results) == 0 {
			continue
		}
		if r.tele != nil {
			r.tele.RecordRetrievalTier(string(tier.name()))
		}
		return results
	}
	// Unreachable: the static tier always succeeds.
	return nil
}

// searchTier queries the configured web-search provider.
type searchTier struct {
	searcher    search.WebSearcher
	maxResults  int
	timeout     time.Duration
	enrich      bool
	reliability map[string]float64
	client      *http.Client
	clock       Clock
}

func (t *searchTier) name() Provenance { return ProvenancePrimary }

func (t *searchTier) available() bool { return t.searcher != nil }

func (t *searchTier) attempt(ctx context.Context, query, industry string) ([]WebResult, error) {
	max := t.maxResults
	if max <= 0 {
		max = 8
	}
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	optimized := fmt.Sprintf("%s %s market trends analysis", query, industry)
	raw, err := t.searcher.Discover(ctx, optimized, max)
	if err != nil {
		return nil, err
	}

	now := t.clock()
	results := make([]WebResult, 0, len(raw))
	for _, item := range raw {
		domain := utils.Domain(item.URL)
		content := item.Snippet
		if t.enrich {
			if enriched := t.enrichContent(ctx, item.URL); enriched != "" {
				content = enriched
			}
		}
		published := now
		if item.Date != "" {
			if ts, err := time.Parse(time.RFC3339, item.Date); err == nil {
				published = ts
			}
		}
		rel, ok := t.reliability[domain]
		if !ok {
			rel = defaultReliability
		}
		results = append(results, WebResult{
			Title:       item.Title,
			Content:     content,
			URL:         item.URL,
			Source:      domain,
			PublishedAt: published,
			Reliability: rel,
			Provenance:  ProvenancePrimary,
		})
	}
	return results, nil
}

// enrichContent fetches the page and extracts readable text. Best effort; the
// search snippet stands in when extraction fails.
func (t *searchTier) enrichContent(ctx context.Context, rawURL string) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return ""
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return ""
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return ""
	}

	u, err := nurl.Parse(rawURL)
	if err != nil {
		u = &nurl.URL{}
	}
	article, err := readability.FromReader(resp.Body, u)
	if err != nil {
		return ""
	}
	text := strings.TrimSpace(article.TextContent)
	return utils.Truncate(text, 1200)
}

// simulatedTier asks the LLM for premium-consultancy style market content and
// attributes the paragraphs to the fixed premium source identities.
type simulatedTier struct {
	llm   LLMProvider
	model string
	clock Clock
}

func (t *simulatedTier) name() Provenance { return ProvenanceSimulated }

func (t *simulatedTier) available() bool { return t.llm != nil }

func (t *simulatedTier) attempt(ctx context.Context, query, industry string) ([]WebResult, error) {
	system := `You are a market intelligence analyst specialized in inventory and demand planning.
Your role is to produce insight briefs grounded in premium research publishers such as McKinsey, Deloitte, PwC, and BCG.
For each request cover: current market trends, impactful economic factors, consumer behavior shifts, sector forecasts, and risks or opportunities for inventory management.
Write four standalone paragraphs separated by blank lines, one per publisher perspective.`

	prompt := fmt.Sprintf("Analyze market data for: %q in the %s industry.\nFocus on quantified, dated, decision-ready findings.", query, industry)

	content, err := t.llm.Generate(ctx, prompt, t.model, map[string]interface{}{"system": system})
	if err != nil {
		return nil, err
	}

	segments := splitSegments(content)
	now := t.clock()
	results := make([]WebResult, 0, len(premiumSources))
	for i, src := range premiumSources {
		body := fmt.Sprintf("%s analysis reveals key market dynamics in the %s sector with emerging opportunities in digital transformation, sustainability, and supply chain optimization.", src.name, industry)
		if len(segments) > 0 {
			body = segments[i%len(segments)]
		}
		results = append(results, WebResult{
			Title:       fmt.Sprintf("%s for %s: market intelligence from %s", src.focus, industry, src.name),
			Content:     utils.Truncate(body, 500),
			URL:         fmt.Sprintf("https://www.%s/insights/%s-market-trends-%d", src.domain, strings.ToLower(industry), now.Year()),
			Source:      src.name,
			PublishedAt: now.AddDate(0, 0, -(i + 1)),
			Reliability: src.reliability,
			Provenance:  ProvenanceSimulated,
		})
	}
	return results, nil
}

func splitSegments(content string) []string {
	var segments []string
	for _, seg := range strings.Split(content, "\n\n") {
		seg = strings.TrimSpace(seg)
		if len(seg) > 50 {
			segments = append(segments, seg)
		}
	}
	return segments
}

// staticTier returns fixed canned paragraphs per premium source. Pure
// in-memory data; cannot fail.
type staticTier struct {
	clock Clock
}

func (t *staticTier) name() Provenance { return ProvenanceStatic }

func (t *staticTier) available() bool { return true }

var staticTemplates = []struct {
	title   string
	content string
}{
	{
		title:   "The future of %s: strategic imperatives for the years ahead",
		content: "McKinsey analysis reveals five critical transformation areas driving %s evolution: digital acceleration (40%% productivity gains), sustainability integration (ESG compliance driving 25%% premium valuations), supply chain resilience (reducing disruption risk by 60%%), customer experience reimagination, and workforce transformation. Companies investing across all five areas show 2.3x higher revenue growth and 50%% better margin performance than peers.",
	},
	{
		title:   "%s sector outlook: market dynamics and consumer behavior shifts",
		content: "Deloitte research identifies significant consumer behavior evolution in %s with 70%% increased emphasis on value-for-money positioning, 45%% growth in digital-first engagement preferences, and emerging demand for personalized experiences. Economic indicators show resilient sector fundamentals with projected CAGR of 6-9%%, despite inflationary pressures affecting input costs by 12-15%%.",
	},
	{
		title:   "Global %s survey: economic trends and business confidence",
		content: "PwC's survey of 1,200+ %s executives reveals cautious optimism with 78%% expecting revenue growth in the next 12 months, though 65%% cite supply chain volatility as the primary concern. Technology investment priorities focus on automation (84%%), data analytics (72%%), and customer relationship platforms (68%%). Regulatory compliance costs are increasing 18%% annually.",
	},
	{
		title:   "Competitive dynamics in %s: innovation imperatives and market disruption",
		content: "Boston Consulting Group analysis highlights accelerating competitive pressure with 60%% of %s market leaders facing disruption from non-traditional entrants. Successful companies invest 4.2%% of revenue in R&D versus an industry average of 2.8%%. Customer acquisition costs are rising 25%% annually, necessitating retention-focused strategies and lifetime value optimization.",
	},
}

func (t *staticTier) attempt(_ context.Context, _, industry string) ([]WebResult, error) {
	now := t.clock()
	results := make([]WebResult, 0, len(staticTemplates))
	for i, tpl := range staticTemplates {
		src := premiumSources[i]
		results = append(results, WebResult{
			Title:       fmt.Sprintf(tpl.title, industry),
			Content:     fmt.Sprintf(tpl.content, industry),
			URL:         fmt.Sprintf("https://www.%s/insights/%s-outlook", src.domain, strings.ToLower(industry)),
			Source:      src.name,
			PublishedAt: now.AddDate(0, 0, -(i + 1)),
			Reliability: src.reliability,
			Provenance:  ProvenanceStatic,
		})
	}
	return results, nil
}
