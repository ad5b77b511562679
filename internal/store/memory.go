package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ainewz/pipeline/internal/models"
)

// MemoryStore keeps everything in process memory. It honors the same URL
// uniqueness invariant as the Postgres store.
type MemoryStore struct {
	mu       sync.RWMutex
	articles map[string]models.Article
	sources  map[string]models.Source
	urlIndex map[string]string // ownerID + "\x00" + url -> article ID
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		articles: make(map[string]models.Article),
		sources:  make(map[string]models.Source),
		urlIndex: make(map[string]string),
	}
}

func (s *MemoryStore) Close() error { return nil }

func urlKey(ownerID, url string) string {
	return ownerID + "\x00" + url
}

func (s *MemoryStore) UpsertArticle(_ context.Context, a *models.Article) (UpsertResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.urlIndex[urlKey(a.OwnerID, a.URL)]; ok {
		return UpsertResult{Conflict: true, ExistingID: existing}, nil
	}

	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.FetchedAt.IsZero() {
		a.FetchedAt = time.Now().UTC()
	}

	s.articles[a.ID] = *a
	s.urlIndex[urlKey(a.OwnerID, a.URL)] = a.ID
	return UpsertResult{Inserted: true}, nil
}

func (s *MemoryStore) QueryArticles(_ context.Context, f ArticleFilter) ([]models.Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Article
	for _, a := range s.articles {
		if matchesFilter(a, f) {
			out = append(out, a)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		switch f.OrderBy {
		case OrderQualityDesc:
			if out[i].QualityScore != out[j].QualityScore {
				return out[i].QualityScore > out[j].QualityScore
			}
			return laterPublished(out[i], out[j])
		case OrderFetchedDesc:
			return out[i].FetchedAt.After(out[j].FetchedAt)
		default:
			return laterPublished(out[i], out[j])
		}
	})

	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return nil, nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *MemoryStore) CountArticles(_ context.Context, f ArticleFilter) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	for _, a := range s.articles {
		if matchesFilter(a, f) {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) GetArticle(_ context.Context, ownerID, id string) (*models.Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.articles[id]
	if !ok || a.OwnerID != ownerID {
		return nil, ErrNotFound
	}
	return &a, nil
}

func (s *MemoryStore) FindIDByURL(_ context.Context, ownerID, url string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.urlIndex[urlKey(ownerID, url)], nil
}

func (s *MemoryStore) TitleCandidates(_ context.Context, ownerID, prefix string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]string)
	for id, a := range s.articles {
		if a.OwnerID == ownerID && a.IsActive && strings.HasPrefix(a.Title, prefix) {
			out[id] = a.Title
		}
	}
	return out, nil
}

func (s *MemoryStore) MarkUsed(_ context.Context, ownerID string, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		if a, ok := s.articles[id]; ok && a.OwnerID == ownerID {
			a.UsedInNewsletter = true
			s.articles[id] = a
		}
	}
	return nil
}

func (s *MemoryStore) ListSources(_ context.Context, ownerID string, activeOnly bool) ([]models.Source, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Source
	for _, src := range s.sources {
		if src.OwnerID != ownerID {
			continue
		}
		if activeOnly && !src.IsActive {
			continue
		}
		out = append(out, src)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) GetSource(_ context.Context, ownerID, id string) (*models.Source, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	src, ok := s.sources[id]
	if !ok || src.OwnerID != ownerID {
		return nil, ErrNotFound
	}
	return &src, nil
}

func (s *MemoryStore) UpsertSource(_ context.Context, src *models.Source) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, existing := range s.sources {
		if existing.OwnerID == src.OwnerID && existing.URL == src.URL {
			src.ID = id
			src.CreatedAt = existing.CreatedAt
			src.LastFetched = existing.LastFetched
			s.sources[id] = *src
			return nil
		}
	}

	if src.ID == "" {
		src.ID = uuid.NewString()
	}
	if src.CreatedAt.IsZero() {
		src.CreatedAt = time.Now().UTC()
	}
	s.sources[src.ID] = *src
	return nil
}

func (s *MemoryStore) TouchLastFetched(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if src, ok := s.sources[id]; ok {
		src.LastFetched = &at
		s.sources[id] = src
	}
	return nil
}

func matchesFilter(a models.Article, f ArticleFilter) bool {
	if a.OwnerID != f.OwnerID {
		return false
	}
	if f.ActiveOnly && (!a.IsActive || a.IsDuplicate) {
		return false
	}
	if len(f.Categories) > 0 && !containsString(f.Categories, a.Category) {
		return false
	}
	if len(f.SourceIDs) > 0 && !containsString(f.SourceIDs, a.SourceID) {
		return false
	}
	if f.MinQuality > 0 && a.QualityScore < f.MinQuality {
		return false
	}
	if f.MinWordCount > 0 && a.WordCount < f.MinWordCount {
		return false
	}
	if f.RequireImage && a.ImageURL == "" {
		return false
	}
	if f.PublishedSince != nil {
		if a.PublishedAt == nil || a.PublishedAt.Before(*f.PublishedSince) {
			return false
		}
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(a.Title), needle) &&
			!strings.Contains(strings.ToLower(a.Summary), needle) {
			return false
		}
	}
	return true
}

func laterPublished(a, b models.Article) bool {
	switch {
	case a.PublishedAt == nil:
		return false
	case b.PublishedAt == nil:
		return true
	default:
		return a.PublishedAt.After(*b.PublishedAt)
	}
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
