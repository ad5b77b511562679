// Package curate selects the articles for a newsletter issue: filter the
// recent pool, cap per-source representation, drop near-identical stories,
// rank and project down to the requested fields.
package curate

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/ainewz/pipeline/internal/dedup"
	"github.com/ainewz/pipeline/internal/models"
	"github.com/ainewz/pipeline/internal/store"
)

type Engine struct {
	store    store.ArticleStore
	validate *validator.Validate
}

func NewEngine(st store.ArticleStore) *Engine {
	return &Engine{
		store:    st,
		validate: validator.New(),
	}
}

// Curate runs the full selection pass for one owner. The request is
// validated after defaults are applied; a bad request is the caller's
// error, not an empty batch.
func (e *Engine) Curate(ctx context.Context, ownerID string, req models.CurationRequest) (*models.CuratedBatch, error) {
	req.ApplyDefaults()
	if err := e.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("invalid curation request: %w", err)
	}

	since := time.Now().UTC().AddDate(0, 0, -req.SinceDays)
	filter := store.ArticleFilter{
		OwnerID:        ownerID,
		ActiveOnly:     true,
		Categories:     req.Categories,
		SourceIDs:      req.SourceIDs,
		RequireImage:   req.RequireImage,
		PublishedSince: &since,
		OrderBy:        store.OrderPublishedDesc,
	}
	if req.MinQuality != nil {
		filter.MinQuality = *req.MinQuality
	}
	if req.MinWordCount != nil {
		filter.MinWordCount = *req.MinWordCount
	}
	pool, err := e.store.QueryArticles(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("query candidate pool: %w", err)
	}

	considered := len(pool)
	pool = capPerSource(pool, req.PerSourceCap)
	pool = dropSimilarTitles(pool, req.TitleSimilarity)

	sort.SliceStable(pool, func(i, j int) bool {
		return rankHigher(pool[i], pool[j])
	})

	if len(pool) > req.Limit {
		pool = pool[:req.Limit]
	}

	batch := &models.CuratedBatch{
		Considered: considered,
		Selected:   len(pool),
		Articles:   make([]models.ProjectedArticle, 0, len(pool)),
	}
	for i := range pool {
		batch.Articles = append(batch.Articles, project(&pool[i], req.IncludeFields))
	}

	return batch, nil
}

// capPerSource keeps at most n articles per source, preserving the
// incoming order so earlier (newer) articles win the slots.
func capPerSource(pool []models.Article, n int) []models.Article {
	if n <= 0 {
		return pool
	}
	counts := make(map[string]int)
	out := pool[:0]
	for _, a := range pool {
		if counts[a.SourceID] >= n {
			continue
		}
		counts[a.SourceID]++
		out = append(out, a)
	}
	return out
}

// dropSimilarTitles removes any article whose title is too close to one
// already accepted. First occurrence wins.
func dropSimilarTitles(pool []models.Article, threshold float64) []models.Article {
	if threshold <= 0 || threshold > 1 {
		return pool
	}
	var accepted []string
	out := pool[:0]
	for _, a := range pool {
		similar := false
		for _, title := range accepted {
			if dedup.TitleSimilarity(a.Title, title) >= threshold {
				similar = true
				break
			}
		}
		if similar {
			continue
		}
		accepted = append(accepted, a.Title)
		out = append(out, a)
	}
	return out
}

// rankHigher orders by image presence, then quality, then recency.
func rankHigher(a, b models.Article) bool {
	if a.HasImage() != b.HasImage() {
		return a.HasImage()
	}
	if a.QualityScore != b.QualityScore {
		return a.QualityScore > b.QualityScore
	}
	switch {
	case a.PublishedAt == nil:
		return false
	case b.PublishedAt == nil:
		return true
	default:
		return a.PublishedAt.After(*b.PublishedAt)
	}
}

// project builds the response article. Identity fields are always kept;
// everything else is opt-in through include_fields.
func project(a *models.Article, fields []string) models.ProjectedArticle {
	p := models.ProjectedArticle{
		ID:          a.ID,
		SourceID:    a.SourceID,
		PublishedAt: a.PublishedAt,
	}

	for _, f := range fields {
		switch f {
		case "title":
			p.Title = a.Title
		case "summary":
			p.Summary = a.Summary
		case "url":
			p.URL = a.URL
		case "author":
			p.Author = a.Author
		case "category":
			p.Category = a.Category
		case "tags":
			p.Tags = a.Tags
		case "image_url":
			p.ImageURL = a.ImageURL
		case "thumbnail_url":
			p.ThumbnailURL = a.ThumbnailURL
		case "quality_score":
			v := a.QualityScore
			p.QualityScore = &v
		case "word_count":
			v := a.WordCount
			p.WordCount = &v
		case "reading_time":
			v := a.ReadingTime
			p.ReadingTime = &v
		case "content_type":
			p.ContentType = a.ContentType
		}
	}

	return p
}
