package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ainewz/pipeline/internal/assets"
	"github.com/ainewz/pipeline/internal/cache"
	"github.com/ainewz/pipeline/internal/dedup"
	"github.com/ainewz/pipeline/internal/models"
	"github.com/ainewz/pipeline/internal/store"
)

const rssTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
<title>Test Feed</title>
<link>https://feed.example</link>
%s
</channel>
</rss>`

func rssItem(title, link, description string) string {
	return fmt.Sprintf(`<item>
<title>%s</title>
<link>%s</link>
<description>%s</description>
<pubDate>Mon, 02 Jun 2025 10:00:00 GMT</pubDate>
<category>Technology</category>
</item>`, title, link, description)
}

func newTestService(t *testing.T, st store.Store) *Service {
	t.Helper()
	mc := cache.NewMemoryCache()
	t.Cleanup(func() { _ = mc.Close() })
	detector := dedup.NewDetector(st, 0, 0)
	resolver := assets.NewResolver(mc, assets.Options{})
	return NewService(st, detector, resolver, Options{})
}

func TestFetchSourceStoresEntries(t *testing.T) {
	feed := fmt.Sprintf(rssTemplate,
		rssItem("AI chips ship in volume", "https://news.example/chips",
			"A new generation of ai accelerators reached general availability this quarter."))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, feed)
	}))
	defer srv.Close()

	st := store.NewMemoryStore()
	svc := newTestService(t, st)
	src := models.Source{ID: "src-1", OwnerID: "o1", URL: srv.URL, Category: "technology", IsActive: true}

	res := svc.FetchSource(context.Background(), src)
	if res.Status != models.FetchStatusSuccess {
		t.Fatalf("status = %q (%s), want success", res.Status, res.Error)
	}
	if res.ArticlesFetched != 1 || res.ArticlesProcessed != 1 {
		t.Fatalf("fetched = %d processed = %d, want 1/1", res.ArticlesFetched, res.ArticlesProcessed)
	}

	stored, err := st.QueryArticles(context.Background(), store.ArticleFilter{OwnerID: "o1"})
	if err != nil {
		t.Fatal(err)
	}
	if len(stored) != 1 {
		t.Fatalf("stored = %d articles, want 1", len(stored))
	}
	a := stored[0]
	if a.Category != "technology" {
		t.Errorf("category = %q, want technology", a.Category)
	}
	if a.WordCount == 0 || a.QualityScore <= 0 {
		t.Errorf("analysis missing: words = %d quality = %f", a.WordCount, a.QualityScore)
	}
	if a.PublishedAt == nil {
		t.Error("published_at not parsed")
	}
	if len(a.Tags) != 1 || a.Tags[0] != "technology" {
		t.Errorf("tags = %v, want [technology]", a.Tags)
	}
}

func TestFetchSourceSameURLTwiceInOneFeed(t *testing.T) {
	feed := fmt.Sprintf(rssTemplate,
		rssItem("Story once", "https://news.example/same", "First copy.")+
			rssItem("Story again", "https://news.example/same", "Second copy."))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, feed)
	}))
	defer srv.Close()

	st := store.NewMemoryStore()
	svc := newTestService(t, st)

	res := svc.FetchSource(context.Background(), models.Source{ID: "src-1", OwnerID: "o1", URL: srv.URL})
	if res.Status != models.FetchStatusSuccess {
		t.Fatalf("status = %q (%s), want success", res.Status, res.Error)
	}
	if res.ArticlesProcessed != 1 || res.DuplicatesFound != 1 {
		t.Errorf("processed = %d duplicates = %d, want 1/1", res.ArticlesProcessed, res.DuplicatesFound)
	}

	stored, err := st.QueryArticles(context.Background(), store.ArticleFilter{OwnerID: "o1", ActiveOnly: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(stored) != 1 {
		t.Errorf("active articles = %d, want exactly 1", len(stored))
	}
}

func TestFetchSourceSameEntryTwiceIsDuplicate(t *testing.T) {
	feed := fmt.Sprintf(rssTemplate,
		rssItem("Single story", "https://news.example/one", "The only story."))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, feed)
	}))
	defer srv.Close()

	st := store.NewMemoryStore()
	svc := newTestService(t, st)
	src := models.Source{ID: "src-1", OwnerID: "o1", URL: srv.URL, IsActive: true}

	first := svc.FetchSource(context.Background(), src)
	if first.ArticlesProcessed != 1 || first.DuplicatesFound != 0 {
		t.Fatalf("first run: processed = %d duplicates = %d, want 1/0",
			first.ArticlesProcessed, first.DuplicatesFound)
	}

	second := svc.FetchSource(context.Background(), src)
	if second.ArticlesProcessed != 0 || second.DuplicatesFound != 1 {
		t.Fatalf("second run: processed = %d duplicates = %d, want 0/1",
			second.ArticlesProcessed, second.DuplicatesFound)
	}

	stored, err := st.QueryArticles(context.Background(), store.ArticleFilter{OwnerID: "o1"})
	if err != nil {
		t.Fatal(err)
	}
	if len(stored) != 1 {
		t.Errorf("stored = %d articles, want exactly 1", len(stored))
	}
}

func TestFetchSourceNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer srv.Close()

	st := store.NewMemoryStore()
	svc := newTestService(t, st)

	res := svc.FetchSource(context.Background(), models.Source{ID: "src-1", OwnerID: "o1", URL: srv.URL})
	if res.Status != models.FetchStatusError {
		t.Fatalf("status = %q, want error", res.Status)
	}
	if res.Error == "" {
		t.Error("error message missing")
	}
}

func TestFetchSourceSkipsEntriesWithoutLink(t *testing.T) {
	feed := fmt.Sprintf(rssTemplate,
		`<item><title>No link here</title><description>orphan</description></item>`+
			rssItem("Proper story", "https://news.example/ok", "Has a link."))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, feed)
	}))
	defer srv.Close()

	st := store.NewMemoryStore()
	svc := newTestService(t, st)

	res := svc.FetchSource(context.Background(), models.Source{ID: "src-1", OwnerID: "o1", URL: srv.URL})
	if res.Status != models.FetchStatusSuccess {
		t.Fatalf("status = %q (%s), want success", res.Status, res.Error)
	}
	if res.ArticlesFetched != 2 || res.ArticlesProcessed != 1 {
		t.Errorf("fetched = %d processed = %d, want 2 fetched and 1 processed",
			res.ArticlesFetched, res.ArticlesProcessed)
	}
}

// flakyStore fails UpsertArticle for one URL and delegates everything else.
type flakyStore struct {
	store.Store
	failURL string
}

func (s *flakyStore) UpsertArticle(ctx context.Context, a *models.Article) (store.UpsertResult, error) {
	if a.URL == s.failURL {
		return store.UpsertResult{}, errors.New("write rejected")
	}
	return s.Store.UpsertArticle(ctx, a)
}

func TestFetchSourceIsolatesEntryFailures(t *testing.T) {
	feed := fmt.Sprintf(rssTemplate,
		rssItem("Doomed story", "https://news.example/doomed", "Will not persist.")+
			rssItem("Healthy story", "https://news.example/healthy", "Persists fine."))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, feed)
	}))
	defer srv.Close()

	mem := store.NewMemoryStore()
	st := &flakyStore{Store: mem, failURL: "https://news.example/doomed"}
	svc := newTestService(t, st)

	res := svc.FetchSource(context.Background(), models.Source{ID: "src-1", OwnerID: "o1", URL: srv.URL})
	if res.Status != models.FetchStatusSuccess {
		t.Fatalf("status = %q (%s), want success despite a failing entry", res.Status, res.Error)
	}
	if res.Error != "" {
		t.Errorf("error = %q, want empty for an entry-level failure", res.Error)
	}
	if res.ArticlesProcessed != 1 || res.EntryFailures != 1 {
		t.Errorf("processed = %d entry failures = %d, want 1/1",
			res.ArticlesProcessed, res.EntryFailures)
	}

	stored, err := mem.QueryArticles(context.Background(), store.ArticleFilter{OwnerID: "o1"})
	if err != nil {
		t.Fatal(err)
	}
	if len(stored) != 1 {
		t.Errorf("stored = %d articles, want 1", len(stored))
	}
}

func TestFetchBatchAggregates(t *testing.T) {
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, fmt.Sprintf(rssTemplate,
			rssItem("Batch story", "https://news.example/batch", "Content.")))
	}))
	defer good.Close()
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer bad.Close()

	st := store.NewMemoryStore()
	svc := newTestService(t, st)
	sources := []models.Source{
		{ID: "src-good", OwnerID: "o1", URL: good.URL},
		{ID: "src-bad", OwnerID: "o1", URL: bad.URL},
	}

	summary := svc.FetchBatch(context.Background(), sources)
	if summary.Success {
		t.Error("summary.Success = true, want false with a failing source")
	}
	if summary.SourcesProcessed != 2 {
		t.Errorf("sources processed = %d, want 2", summary.SourcesProcessed)
	}
	if summary.ArticlesProcessed != 1 {
		t.Errorf("articles processed = %d, want 1", summary.ArticlesProcessed)
	}
	if len(summary.Errors) != 1 {
		t.Errorf("errors = %v, want exactly one", summary.Errors)
	}
	if len(summary.Results) != 2 || summary.Results[0].SourceID != "src-bad" {
		t.Errorf("results not sorted by source: %v", summary.Results)
	}
}
