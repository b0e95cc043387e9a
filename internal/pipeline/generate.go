package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/copyforge/rsa-writer/internal/metrics"
)

// ErrNoScrapeData indicates a generation phase with no eligible input at all;
// this is the only condition that fails the phase as a whole.
var ErrNoScrapeData = errors.New("no successful scrape data to generate from")

// URLFailure records a per-URL generation failure.
type URLFailure struct {
	URL    string `json:"url"`
	Reason string `json:"reason"`
}

// GenerationReport summarizes one generation phase.
type GenerationReport struct {
	Copies   map[string]GeneratedCopy
	Failed   []URLFailure
	Eligible int
}

// CopyWriter drives the generative-text provider to produce ad copy for each
// successfully scraped URL. Generation runs strictly sequentially; the
// provider is rate-sensitive in a way fetches are not.
type CopyWriter struct {
	generator       Generator
	maxHeadlines    int
	maxDescriptions int
	logger          *zap.Logger
}

// NewCopyWriter constructs a CopyWriter. Non-positive limits fall back to the
// package defaults.
func NewCopyWriter(generator Generator, maxHeadlines, maxDescriptions int, logger *zap.Logger) *CopyWriter {
	if maxHeadlines <= 0 {
		maxHeadlines = MaxHeadlines
	}
	if maxDescriptions <= 0 {
		maxDescriptions = MaxDescriptions
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CopyWriter{
		generator:       generator,
		maxHeadlines:    maxHeadlines,
		maxDescriptions: maxDescriptions,
		logger:          logger,
	}
}

// Run iterates the job's URLs in their original order, generating copy for
// every URL with a successful scrape result. Per-URL provider and parse
// failures are recorded and the loop continues; they never fail the phase.
func (w *CopyWriter) Run(ctx context.Context, urls []string, scraped map[string]ScrapeResult) GenerationReport {
	report := GenerationReport{Copies: make(map[string]GeneratedCopy)}
	for _, url := range urls {
		res, ok := scraped[url]
		if !ok || !res.OK {
			w.logger.Info("skipping url without scrape data", zap.String("url", url))
			continue
		}
		report.Eligible++

		copyForURL, err := w.GenerateOne(ctx, res)
		metrics.ObserveGenerationResult(err == nil)
		if err != nil {
			w.logger.Warn("copy generation failed", zap.String("url", url), zap.Error(err))
			report.Failed = append(report.Failed, URLFailure{URL: url, Reason: err.Error()})
			continue
		}
		report.Copies[url] = copyForURL
	}
	return report
}

// GenerateOne produces copy for a single successful scrape result.
func (w *CopyWriter) GenerateOne(ctx context.Context, res ScrapeResult) (GeneratedCopy, error) {
	if !res.OK {
		return GeneratedCopy{}, fmt.Errorf("url %s has no successful scrape result", res.URL)
	}

	response, err := w.generator.Generate(ctx, w.BuildPrompt(res))
	if err != nil {
		return GeneratedCopy{}, fmt.Errorf("generation provider: %w", err)
	}

	parsed := ParseCopyResponse(response, w.maxHeadlines, w.maxDescriptions)
	if !parsed.OK {
		return GeneratedCopy{}, fmt.Errorf("parse generation response: %s", parsed.Reason)
	}
	return GeneratedCopy{
		URL:          res.URL,
		Headlines:    parsed.Headlines,
		Descriptions: parsed.Descriptions,
	}, nil
}

// BuildPrompt renders the generation request from scraped content and
// metadata.
func (w *CopyWriter) BuildPrompt(res ScrapeResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Given the following scraped data from the URL %s for an eCommerce product or collection:\n\n", res.URL)
	fmt.Fprintf(&b, "Content:\n%s\n\n", res.Content)

	if len(res.Meta) > 0 {
		b.WriteString("Metadata:\n")
		keys := make([]string, 0, len(res.Meta))
		for k := range res.Meta {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "- %s: %s\n", k, res.Meta[k])
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b,
		"Generate %d Google Ads headlines (max 30 characters each) and %d descriptions (max 90 characters each) tailored to this content.\n",
		w.maxHeadlines, w.maxDescriptions)
	b.WriteString(`
### Ad Copy Goals
- Attract the searcher who wants this product or collection; repel irrelevant searchers with specific, qualifying language.
- Lead with clear benefits, not features, using simple words.
- Use specific numbers, shipping times, offers, and social proof where the data supports them.

### Headline Instructions
- The first third should carry the value proposition, offer, and brand name.
- The middle third should highlight key benefits and trust factors.
- The final third should use varied, action-oriented CTAs.

### Description Instructions
- Focus on benefits and include a CTA in at least one description.
- Use urgency and trust signals only when backed by the data.

### Output Format
Return ONLY a JSON object with this format:
{
    "headlines": ["headline1", "headline2"],
    "descriptions": ["description1", "description2"]
}

IMPORTANT: Return the raw JSON object WITHOUT markdown formatting. The response should start with { and end with }.
`)
	return b.String()
}
