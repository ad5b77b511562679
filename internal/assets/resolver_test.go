package assets

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ainewz/pipeline/internal/cache"
)

func newTestResolver(t *testing.T) *Resolver {
	t.Helper()
	c := cache.NewMemoryCache()
	t.Cleanup(func() { _ = c.Close() })
	return NewResolver(c, Options{PageTimeout: 2 * time.Second})
}

func TestResolveFeedHintsWin(t *testing.T) {
	r := newTestResolver(t)
	res := r.Resolve(context.Background(),
		`<p><img src="https://example.com/inline.jpg"></p>`,
		"https://example.com/post",
		FeedHints{ImageURL: "https://cdn.example.com/media.jpg", AltText: "hero"},
	)
	if res.ImageURL != "https://cdn.example.com/media.jpg" {
		t.Errorf("feed hint should win, got %q", res.ImageURL)
	}
	if res.AltText != "hero" {
		t.Errorf("alt text lost: %q", res.AltText)
	}
}

func TestResolveInlineImage(t *testing.T) {
	r := newTestResolver(t)
	res := r.Resolve(context.Background(),
		`<div><img src="/images/lead.png" alt="lead shot"><img src="/images/lead_thumb.png"></div>`,
		"https://news.example.com/story/42",
		FeedHints{},
	)
	if res.ImageURL != "https://news.example.com/images/lead.png" {
		t.Errorf("relative URL not resolved: %q", res.ImageURL)
	}
	if res.ThumbnailURL != "https://news.example.com/images/lead_thumb.png" {
		t.Errorf("thumbnail variant not picked: %q", res.ThumbnailURL)
	}
	if res.AltText != "lead shot" {
		t.Errorf("alt text missing: %q", res.AltText)
	}
}

func TestResolveLazyLoadAttribute(t *testing.T) {
	r := newTestResolver(t)
	res := r.Resolve(context.Background(),
		`<img data-src="//cdn.example.com/lazy.jpg">`,
		"https://example.com/a",
		FeedHints{},
	)
	if res.ImageURL != "https://cdn.example.com/lazy.jpg" {
		t.Errorf("lazy attribute / protocol-relative upgrade failed: %q", res.ImageURL)
	}
}

func TestResolveSrcsetLargestWins(t *testing.T) {
	r := newTestResolver(t)
	res := r.Resolve(context.Background(),
		`<img srcset="https://e.com/s.jpg 320w, https://e.com/l.jpg 1280w, https://e.com/m.jpg 640w">`,
		"https://e.com/p",
		FeedHints{},
	)
	if res.ImageURL != "https://e.com/l.jpg" {
		t.Errorf("expected largest srcset candidate, got %q", res.ImageURL)
	}
}

func TestResolveRejectsNonHTTPSchemes(t *testing.T) {
	r := newTestResolver(t)
	res := r.Resolve(context.Background(),
		`<img src="javascript:alert(1)">`,
		"",
		FeedHints{ImageURL: "ftp://example.com/x.jpg"},
	)
	if res.ImageURL != "" {
		t.Errorf("non-HTTP scheme accepted: %q", res.ImageURL)
	}
}

func TestResolvePageFallbackOpenGraph(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><head>
			<meta property="og:image" content="https://img.example.com/og.jpg">
			<meta name="twitter:image" content="https://img.example.com/tw.jpg">
		</head><body></body></html>`))
	}))
	defer srv.Close()

	r := newTestResolver(t)
	res := r.Resolve(context.Background(), "", srv.URL, FeedHints{})
	if res.ImageURL != "https://img.example.com/og.jpg" {
		t.Errorf("og:image should be preferred, got %q", res.ImageURL)
	}
	if res.ThumbnailURL != res.ImageURL {
		t.Errorf("page-derived image should double as thumbnail")
	}
}

func TestResolvePageFallbackLargestImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><body>
			<img src="https://img.example.com/icon.png" width="32" height="32">
			<img src="https://img.example.com/big.png" width="1200" height="800">
			<img src="https://img.example.com/mid.png" width="400" height="300">
		</body></html>`))
	}))
	defer srv.Close()

	r := newTestResolver(t)
	res := r.Resolve(context.Background(), "", srv.URL, FeedHints{})
	if res.ImageURL != "https://img.example.com/big.png" {
		t.Errorf("expected largest image above area floor, got %q", res.ImageURL)
	}
}

func TestResolveTotalMissIsEmptyNotError(t *testing.T) {
	// Unreachable page: server closed before the request.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	deadURL := srv.URL
	srv.Close()

	r := newTestResolver(t)
	res := r.Resolve(context.Background(), "", deadURL, FeedHints{})
	if res.ImageURL != "" || res.ThumbnailURL != "" || res.AltText != "" {
		t.Errorf("expected all-empty result for total miss, got %+v", res)
	}
}

func TestResolveCachesFailedPageLookups(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	r := newTestResolver(t)
	_ = r.Resolve(context.Background(), "", srv.URL, FeedHints{})
	_ = r.Resolve(context.Background(), "", srv.URL, FeedHints{})
	if hits != 1 {
		t.Errorf("expected one page hit thanks to the failure cache, got %d", hits)
	}
}
