// Package assets finds a representative image for an article from feed
// metadata, inline markup, or the article page itself.
package assets

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"

	"github.com/ainewz/pipeline/internal/cache"
	"github.com/ainewz/pipeline/internal/logger"
)

// FeedHints carries image URLs declared by the feed itself (media:content,
// enclosure, media:thumbnail and similar fields). They are the highest-trust
// candidates and cost no extra network round trip.
type FeedHints struct {
	ImageURL     string
	ThumbnailURL string
	AltText      string
}

// Result is the resolved set of visual assets. Empty fields mean "none
// found"; resolution never fails outright.
type Result struct {
	ImageURL     string
	ThumbnailURL string
	AltText      string
}

// Options tune the resolver. Zero values fall back to sane defaults.
type Options struct {
	PageTimeout  time.Duration
	MaxRedirects int
	UserAgent    string
	MinImageArea int           // floor for the largest-image page scan, rejects icons and spacers
	FailureTTL   time.Duration // how long a failed page lookup stays cached
}

// Resolver resolves visual assets for feed entries. The failure cache is
// injectable so repeated fetch cycles skip pages that already failed.
type Resolver struct {
	client       *resty.Client
	failed       cache.TTLCache
	minImageArea int
	failureTTL   time.Duration
}

var lazyAttrs = []string{"src", "data-src", "data-original", "data-lazy", "data-thumbnail"}

var thumbnailMarkers = []string{"thumbnail", "thumb", "small", "preview"}

func NewResolver(failed cache.TTLCache, opts Options) *Resolver {
	if opts.PageTimeout == 0 {
		opts.PageTimeout = 10 * time.Second
	}
	if opts.MaxRedirects == 0 {
		opts.MaxRedirects = 10
	}
	if opts.MinImageArea == 0 {
		opts.MinImageArea = 50000
	}
	if opts.FailureTTL == 0 {
		opts.FailureTTL = 6 * time.Hour
	}

	client := resty.New().
		SetTimeout(opts.PageTimeout).
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(opts.MaxRedirects))
	if opts.UserAgent != "" {
		client.SetHeader("User-Agent", opts.UserAgent)
	}

	return &Resolver{
		client:       client,
		failed:       failed,
		minImageArea: opts.MinImageArea,
		failureTTL:   opts.FailureTTL,
	}
}

// Resolve walks the candidate sources in priority order: feed hints, inline
// markup, then a fallback fetch of the article page. The first source that
// yields a main image wins. Every failure is swallowed; a total miss
// returns the zero Result.
func (r *Resolver) Resolve(ctx context.Context, rawHTML, entryURL string, hints FeedHints) Result {
	var res Result

	// 1. Feed-native hints.
	if img := normalizeCandidate(hints.ImageURL, entryURL); img != "" {
		res.ImageURL = img
		res.AltText = hints.AltText
	}
	if thumb := normalizeCandidate(hints.ThumbnailURL, entryURL); thumb != "" {
		res.ThumbnailURL = thumb
		if res.ImageURL == "" {
			res.ImageURL = thumb
		}
	}
	if res.ImageURL != "" {
		return res
	}

	// 2. Inline markup.
	if inline := r.fromInlineMarkup(rawHTML, entryURL); inline.ImageURL != "" {
		if res.ThumbnailURL != "" && inline.ThumbnailURL == "" {
			inline.ThumbnailURL = res.ThumbnailURL
		}
		return inline
	}

	// 3. Article page fetch, the expensive path.
	if entryURL != "" {
		if img := r.fromArticlePage(ctx, entryURL); img != "" {
			res.ImageURL = img
			if res.ThumbnailURL == "" {
				res.ThumbnailURL = img
			}
			return res
		}
	}

	return res
}

func (r *Resolver) fromInlineMarkup(rawHTML, entryURL string) Result {
	var res Result
	if strings.TrimSpace(rawHTML) == "" {
		return res
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return res
	}

	imgs := doc.Find("img")
	if imgs.Length() == 0 {
		return res
	}

	first := imgs.First()
	src := imageSource(first)
	if src = normalizeCandidate(src, entryURL); src != "" {
		res.ImageURL = src
		res.AltText, _ = first.Attr("alt")
	}

	// Look for a declared smaller variant to use as thumbnail.
	imgs.EachWithBreak(func(_ int, s *goquery.Selection) bool {
		candidate := strings.ToLower(imageSource(s))
		for _, marker := range thumbnailMarkers {
			if strings.Contains(candidate, marker) {
				if thumb := normalizeCandidate(imageSource(s), entryURL); thumb != "" {
					res.ThumbnailURL = thumb
					return false
				}
			}
		}
		return true
	})

	return res
}

func (r *Resolver) fromArticlePage(ctx context.Context, pageURL string) string {
	key := cache.Key(pageURL)
	if r.failed != nil {
		if seen, err := r.failed.Has(ctx, key); err == nil && seen {
			logger.Debug().Str("url", pageURL).Msg("Skipping page image lookup, recent failure cached")
			return ""
		}
	}

	img := r.scanArticlePage(ctx, pageURL)
	if img == "" && r.failed != nil {
		if err := r.failed.Set(ctx, key, r.failureTTL); err != nil {
			logger.Warn().Err(err).Str("url", pageURL).Msg("Failed to record asset lookup miss")
		}
	}
	return img
}

func (r *Resolver) scanArticlePage(ctx context.Context, pageURL string) string {
	resp, err := r.client.R().SetContext(ctx).Get(pageURL)
	if err != nil {
		logger.Debug().Err(err).Str("url", pageURL).Msg("Article page fetch failed")
		return ""
	}
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		logger.Debug().Int("status", resp.StatusCode()).Str("url", pageURL).Msg("Article page returned non-2xx")
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(resp.String()))
	if err != nil {
		return ""
	}

	// Open Graph first, then Twitter card.
	if content, ok := doc.Find(`meta[property="og:image"]`).First().Attr("content"); ok {
		if img := normalizeCandidate(content, pageURL); img != "" {
			return img
		}
	}
	if content, ok := doc.Find(`meta[name="twitter:image"]`).First().Attr("content"); ok {
		if img := normalizeCandidate(content, pageURL); img != "" {
			return img
		}
	}

	// Last resort: largest image by declared area, above the icon floor.
	best := ""
	bestArea := 0
	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		src := normalizeCandidate(imageSource(s), pageURL)
		if src == "" {
			return
		}
		w, _ := strconv.Atoi(strings.TrimSpace(s.AttrOr("width", "")))
		h, _ := strconv.Atoi(strings.TrimSpace(s.AttrOr("height", "")))
		area := w * h
		if area >= r.minImageArea && area > bestArea {
			best = src
			bestArea = area
		}
	})
	return best
}

// imageSource picks an image URL from an <img> element, preferring the
// plain src, then common lazy-loading attributes, then the largest srcset
// candidate.
func imageSource(s *goquery.Selection) string {
	for _, attr := range lazyAttrs {
		if v, ok := s.Attr(attr); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	if srcset, ok := s.Attr("srcset"); ok {
		return largestSrcsetCandidate(srcset)
	}
	return ""
}

// largestSrcsetCandidate parses a srcset attribute and returns the URL with
// the largest declared width or pixel density.
func largestSrcsetCandidate(srcset string) string {
	best := ""
	bestScore := -1
	for _, entry := range strings.Split(srcset, ",") {
		fields := strings.Fields(strings.TrimSpace(entry))
		if len(fields) == 0 {
			continue
		}
		score := 0
		if len(fields) > 1 {
			desc := fields[1]
			switch {
			case strings.HasSuffix(desc, "w"):
				score, _ = strconv.Atoi(strings.TrimSuffix(desc, "w"))
			case strings.HasSuffix(desc, "x"):
				if density, err := strconv.ParseFloat(strings.TrimSuffix(desc, "x"), 64); err == nil {
					score = int(density * 1000)
				}
			}
		}
		if score > bestScore {
			best = fields[0]
			bestScore = score
		}
	}
	return best
}

// normalizeCandidate resolves relative URLs against the entry URL, upgrades
// protocol-relative URLs to https and rejects anything that is not plain or
// secure HTTP.
func normalizeCandidate(candidate, baseURL string) string {
	candidate = strings.TrimSpace(candidate)
	if candidate == "" {
		return ""
	}

	if strings.HasPrefix(candidate, "//") {
		candidate = "https:" + candidate
	} else if !strings.HasPrefix(candidate, "http") && baseURL != "" {
		base, err := url.Parse(baseURL)
		if err != nil {
			return ""
		}
		ref, err := url.Parse(candidate)
		if err != nil {
			return ""
		}
		candidate = base.ResolveReference(ref).String()
	}

	if strings.HasPrefix(candidate, "http://") || strings.HasPrefix(candidate, "https://") {
		return candidate
	}
	return ""
}
