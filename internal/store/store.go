// Package store persists sources and articles. The Postgres implementation
// is the production path; the memory implementation backs tests and runs
// without external services.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/ainewz/pipeline/internal/models"
)

var ErrNotFound = errors.New("store: not found")

// Sort orders accepted by QueryArticles.
const (
	OrderPublishedDesc = "published_desc"
	OrderQualityDesc   = "quality_desc"
	OrderFetchedDesc   = "fetched_desc"
)

// ArticleFilter narrows QueryArticles. Zero values mean "no constraint".
type ArticleFilter struct {
	OwnerID        string
	ActiveOnly     bool
	Categories     []string
	SourceIDs      []string
	MinQuality     float64
	MinWordCount   int
	RequireImage   bool
	PublishedSince *time.Time
	Search         string
	OrderBy        string
	Limit          int
	Offset         int
}

// UpsertResult reports whether the article was written or lost a URL
// conflict race to a concurrent insert.
type UpsertResult struct {
	Inserted   bool
	Conflict   bool
	ExistingID string
}

type ArticleStore interface {
	// UpsertArticle inserts the article, treating a URL collision as a
	// detected duplicate rather than an error.
	UpsertArticle(ctx context.Context, a *models.Article) (UpsertResult, error)

	QueryArticles(ctx context.Context, f ArticleFilter) ([]models.Article, error)
	CountArticles(ctx context.Context, f ArticleFilter) (int, error)
	GetArticle(ctx context.Context, ownerID, id string) (*models.Article, error)

	// FindIDByURL and TitleCandidates serve duplicate detection.
	FindIDByURL(ctx context.Context, ownerID, url string) (string, error)
	TitleCandidates(ctx context.Context, ownerID, prefix string) (map[string]string, error)

	// MarkUsed flags articles as consumed by a composed newsletter.
	MarkUsed(ctx context.Context, ownerID string, ids []string) error
}

type SourceStore interface {
	ListSources(ctx context.Context, ownerID string, activeOnly bool) ([]models.Source, error)
	GetSource(ctx context.Context, ownerID, id string) (*models.Source, error)
	UpsertSource(ctx context.Context, s *models.Source) error
	TouchLastFetched(ctx context.Context, id string, at time.Time) error
}

// Store is the combined persistence surface the pipeline wires against.
type Store interface {
	ArticleStore
	SourceStore
	Close() error
}
