// Package fetcher pulls RSS and Atom feeds and runs every entry through the
// ingestion pipeline: duplicate detection, normalization, analysis,
// categorization, visual asset resolution and storage.
package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/mmcdole/gofeed"

	"github.com/ainewz/pipeline/internal/analyze"
	"github.com/ainewz/pipeline/internal/assets"
	"github.com/ainewz/pipeline/internal/categorize"
	"github.com/ainewz/pipeline/internal/dedup"
	"github.com/ainewz/pipeline/internal/logger"
	"github.com/ainewz/pipeline/internal/models"
	"github.com/ainewz/pipeline/internal/normalize"
	"github.com/ainewz/pipeline/internal/store"
)

const maxTags = 10

// Options tune network behavior. Zero values fall back to defaults.
type Options struct {
	Timeout      time.Duration
	MaxRedirects int
	UserAgent    string
}

// Service orchestrates the per-source ingestion pipeline.
type Service struct {
	client   *resty.Client
	parser   *gofeed.Parser
	store    store.Store
	detector *dedup.Detector
	analyzer *analyze.Analyzer
	resolver *assets.Resolver
}

// NewService builds a fetcher. Feed fetches are not retried: a failing
// source is reported in the batch summary and tried again on the next run.
func NewService(st store.Store, detector *dedup.Detector, resolver *assets.Resolver, opts Options) *Service {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxRedirects <= 0 {
		opts.MaxRedirects = 10
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "ai-newz-pipeline/1.0"
	}

	client := resty.New().
		SetTimeout(opts.Timeout).
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(opts.MaxRedirects)).
		SetHeader("User-Agent", opts.UserAgent)

	return &Service{
		client:   client,
		parser:   gofeed.NewParser(),
		store:    st,
		detector: detector,
		analyzer: analyze.NewAnalyzer(),
		resolver: resolver,
	}
}

// FetchSource ingests one feed and returns a per-source result. Transport
// and parse failures produce an error-status result, not a Go error: the
// batch keeps going.
func (s *Service) FetchSource(ctx context.Context, src models.Source) models.FetchResult {
	res := models.FetchResult{SourceID: src.ID, Status: models.FetchStatusSuccess}

	feed, err := s.fetchFeed(ctx, src.URL)
	if err != nil {
		logger.Warn().Err(err).Str("source_id", src.ID).Str("url", src.URL).Msg("feed fetch failed")
		res.Status = models.FetchStatusError
		res.Error = err.Error()
		return res
	}

	res.ArticlesFetched = len(feed.Items)

	// Entry failures are isolated: one bad entry never aborts the rest of
	// the feed and never demotes the source status. They are counted in
	// EntryFailures instead.
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		processed, duplicate, err := s.processItem(ctx, src, item)
		if err != nil {
			logger.Error().Err(err).Str("source_id", src.ID).Str("item", item.Link).Msg("item processing failed")
			res.EntryFailures++
			continue
		}
		if duplicate {
			res.DuplicatesFound++
		}
		if processed {
			res.ArticlesProcessed++
		}
	}

	if err := s.store.TouchLastFetched(ctx, src.ID, time.Now().UTC()); err != nil {
		logger.Warn().Err(err).Str("source_id", src.ID).Msg("failed to update last_fetched")
	}

	return res
}

// FetchBatch ingests every source concurrently and aggregates the results.
// One goroutine per source, fanned back in over a channel.
func (s *Service) FetchBatch(ctx context.Context, sources []models.Source) models.BatchSummary {
	results := make(chan models.FetchResult, len(sources))

	for _, src := range sources {
		go func(src models.Source) {
			results <- s.FetchSource(ctx, src)
		}(src)
	}

	summary := models.BatchSummary{Success: true}
	for i := 0; i < len(sources); i++ {
		r := <-results
		summary.SourcesProcessed++
		summary.ArticlesFetched += r.ArticlesFetched
		summary.ArticlesProcessed += r.ArticlesProcessed
		summary.DuplicatesFound += r.DuplicatesFound
		summary.EntryFailures += r.EntryFailures
		if r.Status == models.FetchStatusError {
			summary.Success = false
			summary.Errors = append(summary.Errors, fmt.Sprintf("%s: %s", r.SourceID, r.Error))
		}
		summary.Results = append(summary.Results, r)
	}

	sort.Slice(summary.Results, func(i, j int) bool {
		return summary.Results[i].SourceID < summary.Results[j].SourceID
	})

	return summary
}

func (s *Service) fetchFeed(ctx context.Context, url string) (*gofeed.Feed, error) {
	resp, err := s.client.R().
		SetContext(ctx).
		Get(url)
	if err != nil {
		return nil, fmt.Errorf("fetch feed %s: %w", url, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode(), url)
	}

	feed, err := s.parser.ParseString(string(resp.Body()))
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", url, err)
	}
	return feed, nil
}

// processItem runs one entry through the pipeline. Returns whether the
// entry was stored and whether it was a duplicate.
func (s *Service) processItem(ctx context.Context, src models.Source, item *gofeed.Item) (bool, bool, error) {
	link := strings.TrimSpace(item.Link)
	title := strings.TrimSpace(item.Title)
	if link == "" || title == "" {
		logger.Debug().Str("source_id", src.ID).Msg("skipping entry without link or title")
		return false, false, nil
	}

	dupID, err := s.detector.Detect(ctx, src.OwnerID, link, title)
	if err != nil {
		return false, false, fmt.Errorf("duplicate check: %w", err)
	}
	if dupID != "" {
		return false, true, nil
	}

	rawContent := itemContent(item)
	article := models.Article{
		OwnerID:     src.OwnerID,
		SourceID:    src.ID,
		Title:       title,
		URL:         link,
		Content:     normalize.Text(rawContent),
		Summary:     normalize.Text(item.Description),
		Author:      itemAuthor(item),
		PublishedAt: item.PublishedParsed,
		FetchedAt:   time.Now().UTC(),
		Tags:        itemTags(item),
		IsActive:    true,
	}

	s.analyzeInto(&article, rawContent)

	article.Category = categorize.Categorize(article.Title, article.Content, article.Tags)
	if article.Category == categorize.General && src.Category != "" {
		article.Category = src.Category
	}

	visual := s.resolver.Resolve(ctx, rawContent, link, feedImageHints(item))
	article.ImageURL = visual.ImageURL
	article.ThumbnailURL = visual.ThumbnailURL
	article.ImageAltText = visual.AltText

	upsert, err := s.store.UpsertArticle(ctx, &article)
	if err != nil {
		return false, false, fmt.Errorf("store article: %w", err)
	}
	if upsert.Conflict {
		return false, true, nil
	}
	return true, false, nil
}

// analyzeInto scores the article, falling back to neutral defaults if the
// analyzer panics on pathological input. One bad entry must not sink the
// whole source.
func (s *Service) analyzeInto(article *models.Article, rawContent string) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Str("url", article.URL).Msg("analysis panicked, using defaults")
			d := analyze.Defaults()
			article.WordCount = d.WordCount
			article.ReadingTime = d.ReadingTime
			article.ReadabilityScore = d.ReadabilityScore
			article.SentimentScore = d.SentimentScore
			article.QualityScore = d.QualityScore
			article.ContentType = d.ContentType
		}
	}()

	res := s.analyzer.Analyze(article.Content, rawContent, article.Title)
	article.WordCount = res.WordCount
	article.ReadingTime = res.ReadingTime
	article.ReadabilityScore = res.ReadabilityScore
	article.SentimentScore = res.SentimentScore
	article.QualityScore = res.QualityScore
	article.HasImages = res.HasImages
	article.HasVideos = res.HasVideos
	article.HasLists = res.HasLists
	article.HasQuotes = res.HasQuotes
	article.ContentType = res.ContentType
}

func itemContent(item *gofeed.Item) string {
	if item.Content != "" {
		return item.Content
	}
	return item.Description
}

func itemAuthor(item *gofeed.Item) string {
	if len(item.Authors) > 0 && item.Authors[0] != nil {
		return item.Authors[0].Name
	}
	return ""
}

// itemTags collects lowercased categories, deduplicated and capped.
func itemTags(item *gofeed.Item) []string {
	seen := make(map[string]bool)
	var tags []string
	for _, c := range item.Categories {
		tag := strings.ToLower(strings.TrimSpace(c))
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		tags = append(tags, tag)
		if len(tags) == maxTags {
			break
		}
	}
	return tags
}

// feedImageHints extracts explicit image signals from the feed entry
// itself: the item image, image enclosures, then media extensions.
func feedImageHints(item *gofeed.Item) assets.FeedHints {
	var hints assets.FeedHints

	if item.Image != nil && item.Image.URL != "" {
		hints.ImageURL = item.Image.URL
		hints.AltText = item.Image.Title
	}

	if hints.ImageURL == "" {
		for _, enc := range item.Enclosures {
			if enc != nil && strings.HasPrefix(enc.Type, "image/") && enc.URL != "" {
				hints.ImageURL = enc.URL
				break
			}
		}
	}

	if media, ok := item.Extensions["media"]; ok {
		for _, name := range []string{"thumbnail", "content"} {
			for _, ext := range media[name] {
				url := ext.Attrs["url"]
				if url == "" {
					continue
				}
				if name == "thumbnail" && hints.ThumbnailURL == "" {
					hints.ThumbnailURL = url
				}
				if hints.ImageURL == "" {
					hints.ImageURL = url
				}
			}
		}
	}

	return hints
}
