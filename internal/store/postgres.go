package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/ainewz/pipeline/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS sources (
    id                TEXT PRIMARY KEY,
    owner_id          TEXT NOT NULL,
    name              TEXT NOT NULL,
    url               TEXT NOT NULL,
    category          TEXT NOT NULL DEFAULT '',
    is_active         BOOLEAN NOT NULL DEFAULT TRUE,
    credibility_score DOUBLE PRECISION NOT NULL DEFAULT 0,
    last_fetched      TIMESTAMPTZ,
    created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    UNIQUE (owner_id, url)
);

CREATE TABLE IF NOT EXISTS articles (
    id                 TEXT PRIMARY KEY,
    owner_id           TEXT NOT NULL,
    source_id          TEXT NOT NULL REFERENCES sources(id),
    title              TEXT NOT NULL,
    url                TEXT NOT NULL,
    content            TEXT NOT NULL DEFAULT '',
    summary            TEXT NOT NULL DEFAULT '',
    author             TEXT NOT NULL DEFAULT '',
    published_at       TIMESTAMPTZ,
    fetched_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    image_url          TEXT NOT NULL DEFAULT '',
    thumbnail_url      TEXT NOT NULL DEFAULT '',
    image_alt_text     TEXT NOT NULL DEFAULT '',
    category           TEXT NOT NULL DEFAULT '',
    tags               TEXT[] NOT NULL DEFAULT '{}',
    sentiment_score    DOUBLE PRECISION NOT NULL DEFAULT 0,
    readability_score  DOUBLE PRECISION NOT NULL DEFAULT 0,
    word_count         INTEGER NOT NULL DEFAULT 0,
    reading_time       INTEGER NOT NULL DEFAULT 1,
    quality_score      DOUBLE PRECISION NOT NULL DEFAULT 0,
    has_images         BOOLEAN NOT NULL DEFAULT FALSE,
    has_videos         BOOLEAN NOT NULL DEFAULT FALSE,
    has_lists          BOOLEAN NOT NULL DEFAULT FALSE,
    has_quotes         BOOLEAN NOT NULL DEFAULT FALSE,
    content_type       TEXT NOT NULL DEFAULT 'article',
    is_duplicate       BOOLEAN NOT NULL DEFAULT FALSE,
    duplicate_of       TEXT NOT NULL DEFAULT '',
    used_in_newsletter BOOLEAN NOT NULL DEFAULT FALSE,
    is_active          BOOLEAN NOT NULL DEFAULT TRUE,
    UNIQUE (owner_id, url)
);

CREATE INDEX IF NOT EXISTS idx_articles_owner_published ON articles (owner_id, published_at DESC);
CREATE INDEX IF NOT EXISTS idx_articles_owner_title ON articles (owner_id, title text_pattern_ops);
`

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var articleColumns = []string{
	"id", "owner_id", "source_id", "title", "url", "content", "summary",
	"author", "published_at", "fetched_at", "image_url", "thumbnail_url",
	"image_alt_text", "category", "tags", "sentiment_score",
	"readability_score", "word_count", "reading_time", "quality_score",
	"has_images", "has_videos", "has_lists", "has_quotes", "content_type",
	"is_duplicate", "duplicate_of", "used_in_newsletter", "is_active",
}

// PostgresStore persists the pipeline in Postgres.
type PostgresStore struct {
	db *sql.DB
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore opens the database, verifies connectivity and ensures
// the schema exists.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) UpsertArticle(ctx context.Context, a *models.Article) (UpsertResult, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.FetchedAt.IsZero() {
		a.FetchedAt = time.Now().UTC()
	}

	query, args, err := psql.Insert("articles").
		Columns(articleColumns...).
		Values(
			a.ID, a.OwnerID, a.SourceID, a.Title, a.URL, a.Content, a.Summary,
			a.Author, a.PublishedAt, a.FetchedAt, a.ImageURL, a.ThumbnailURL,
			a.ImageAltText, a.Category, pq.Array(a.Tags), a.SentimentScore,
			a.ReadabilityScore, a.WordCount, a.ReadingTime, a.QualityScore,
			a.HasImages, a.HasVideos, a.HasLists, a.HasQuotes, a.ContentType,
			a.IsDuplicate, a.DuplicateOf, a.UsedInNewsletter, a.IsActive,
		).
		Suffix("ON CONFLICT (owner_id, url) DO NOTHING").
		ToSql()
	if err != nil {
		return UpsertResult{}, fmt.Errorf("build insert: %w", err)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return UpsertResult{}, fmt.Errorf("insert article: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return UpsertResult{}, fmt.Errorf("rows affected: %w", err)
	}
	if affected > 0 {
		return UpsertResult{Inserted: true}, nil
	}

	// Lost the race: report the winner so the caller can record the
	// duplicate relationship.
	existing, err := s.FindIDByURL(ctx, a.OwnerID, a.URL)
	if err != nil {
		return UpsertResult{}, err
	}
	return UpsertResult{Conflict: true, ExistingID: existing}, nil
}

func (s *PostgresStore) QueryArticles(ctx context.Context, f ArticleFilter) ([]models.Article, error) {
	builder := applyArticleFilter(psql.Select(articleColumns...).From("articles"), f)

	switch f.OrderBy {
	case OrderQualityDesc:
		builder = builder.OrderBy("quality_score DESC", "published_at DESC NULLS LAST")
	case OrderFetchedDesc:
		builder = builder.OrderBy("fetched_at DESC")
	default:
		builder = builder.OrderBy("published_at DESC NULLS LAST")
	}
	if f.Limit > 0 {
		builder = builder.Limit(uint64(f.Limit))
	}
	if f.Offset > 0 {
		builder = builder.Offset(uint64(f.Offset))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query articles: %w", err)
	}
	defer rows.Close()

	var out []models.Article
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return out, nil
}

func (s *PostgresStore) CountArticles(ctx context.Context, f ArticleFilter) (int, error) {
	query, args, err := applyArticleFilter(psql.Select("COUNT(*)").From("articles"), f).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count: %w", err)
	}

	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count articles: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) GetArticle(ctx context.Context, ownerID, id string) (*models.Article, error) {
	query, args, err := psql.Select(articleColumns...).
		From("articles").
		Where(sq.Eq{"owner_id": ownerID, "id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get: %w", err)
	}

	a, err := scanArticle(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return a, nil
}

func (s *PostgresStore) FindIDByURL(ctx context.Context, ownerID, url string) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM articles WHERE owner_id = $1 AND url = $2`, ownerID, url).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("find by url: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) TitleCandidates(ctx context.Context, ownerID, prefix string) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title FROM articles WHERE owner_id = $1 AND is_active AND title LIKE $2 || '%'`,
		ownerID, prefix)
	if err != nil {
		return nil, fmt.Errorf("title candidates: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var id, title string
		if err := rows.Scan(&id, &title); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		out[id] = title
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) MarkUsed(ctx context.Context, ownerID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE articles SET used_in_newsletter = TRUE WHERE owner_id = $1 AND id = ANY($2)`,
		ownerID, pq.StringArray(ids))
	if err != nil {
		return fmt.Errorf("mark used: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListSources(ctx context.Context, ownerID string, activeOnly bool) ([]models.Source, error) {
	builder := psql.Select(
		"id", "owner_id", "name", "url", "category", "is_active",
		"credibility_score", "last_fetched", "created_at",
	).From("sources").Where(sq.Eq{"owner_id": ownerID}).OrderBy("created_at")
	if activeOnly {
		builder = builder.Where(sq.Eq{"is_active": true})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list sources: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	defer rows.Close()

	var out []models.Source
	for rows.Next() {
		var src models.Source
		if err := rows.Scan(
			&src.ID, &src.OwnerID, &src.Name, &src.URL, &src.Category,
			&src.IsActive, &src.CredibilityScore, &src.LastFetched, &src.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		out = append(out, src)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) GetSource(ctx context.Context, ownerID, id string) (*models.Source, error) {
	var src models.Source
	err := s.db.QueryRowContext(ctx,
		`SELECT id, owner_id, name, url, category, is_active, credibility_score, last_fetched, created_at
		 FROM sources WHERE owner_id = $1 AND id = $2`, ownerID, id).Scan(
		&src.ID, &src.OwnerID, &src.Name, &src.URL, &src.Category,
		&src.IsActive, &src.CredibilityScore, &src.LastFetched, &src.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get source: %w", err)
	}
	return &src, nil
}

func (s *PostgresStore) UpsertSource(ctx context.Context, src *models.Source) error {
	if src.ID == "" {
		src.ID = uuid.NewString()
	}
	if src.CreatedAt.IsZero() {
		src.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sources (id, owner_id, name, url, category, is_active, credibility_score, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (owner_id, url) DO UPDATE
		 SET name = EXCLUDED.name,
		     category = EXCLUDED.category,
		     is_active = EXCLUDED.is_active,
		     credibility_score = EXCLUDED.credibility_score`,
		src.ID, src.OwnerID, src.Name, src.URL, src.Category,
		src.IsActive, src.CredibilityScore, src.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert source: %w", err)
	}
	return nil
}

func (s *PostgresStore) TouchLastFetched(ctx context.Context, id string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE sources SET last_fetched = $1 WHERE id = $2`, at, id)
	if err != nil {
		return fmt.Errorf("touch last fetched: %w", err)
	}
	return nil
}

func applyArticleFilter(builder sq.SelectBuilder, f ArticleFilter) sq.SelectBuilder {
	builder = builder.Where(sq.Eq{"owner_id": f.OwnerID})
	if f.ActiveOnly {
		builder = builder.Where(sq.Eq{"is_active": true, "is_duplicate": false})
	}
	if len(f.Categories) > 0 {
		builder = builder.Where(sq.Eq{"category": f.Categories})
	}
	if len(f.SourceIDs) > 0 {
		builder = builder.Where(sq.Eq{"source_id": f.SourceIDs})
	}
	if f.MinQuality > 0 {
		builder = builder.Where(sq.GtOrEq{"quality_score": f.MinQuality})
	}
	if f.MinWordCount > 0 {
		builder = builder.Where(sq.GtOrEq{"word_count": f.MinWordCount})
	}
	if f.RequireImage {
		builder = builder.Where(sq.NotEq{"image_url": ""})
	}
	if f.PublishedSince != nil {
		builder = builder.Where(sq.GtOrEq{"published_at": *f.PublishedSince})
	}
	if f.Search != "" {
		like := "%" + f.Search + "%"
		builder = builder.Where(sq.Or{
			sq.ILike{"title": like},
			sq.ILike{"summary": like},
		})
	}
	return builder
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArticle(row rowScanner) (*models.Article, error) {
	var a models.Article
	var tags pq.StringArray
	err := row.Scan(
		&a.ID, &a.OwnerID, &a.SourceID, &a.Title, &a.URL, &a.Content,
		&a.Summary, &a.Author, &a.PublishedAt, &a.FetchedAt, &a.ImageURL,
		&a.ThumbnailURL, &a.ImageAltText, &a.Category, &tags,
		&a.SentimentScore, &a.ReadabilityScore, &a.WordCount, &a.ReadingTime,
		&a.QualityScore, &a.HasImages, &a.HasVideos, &a.HasLists,
		&a.HasQuotes, &a.ContentType, &a.IsDuplicate, &a.DuplicateOf,
		&a.UsedInNewsletter, &a.IsActive,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan article: %w", err)
	}
	a.Tags = tags
	return &a, nil
}
