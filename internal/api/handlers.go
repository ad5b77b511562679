package api

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/ainewz/pipeline/internal/composer"
	"github.com/ainewz/pipeline/internal/curate"
	"github.com/ainewz/pipeline/internal/fetcher"
	"github.com/ainewz/pipeline/internal/logger"
	"github.com/ainewz/pipeline/internal/models"
	"github.com/ainewz/pipeline/internal/store"
)

const defaultOwner = "default"

type Handlers struct {
	store    store.Store
	fetcher  *fetcher.Service
	curator  *curate.Engine
	composer *composer.Client
	validate *validator.Validate
}

func NewHandlers(st store.Store, f *fetcher.Service, cur *curate.Engine, comp *composer.Client) *Handlers {
	return &Handlers{
		store:    st,
		fetcher:  f,
		curator:  cur,
		composer: comp,
		validate: validator.New(),
	}
}

// ownerID identifies the tenant. There is no auth layer; the header is a
// namespace, not a credential.
func ownerID(c *fiber.Ctx) string {
	if owner := c.Get("X-Owner-ID"); owner != "" {
		return owner
	}
	return defaultOwner
}

func (h *Handlers) HealthCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// ListArticles handles GET /api/v1/articles with pagination and filters.
func (h *Handlers) ListArticles(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(c.Query("page_size", "20"))
	switch {
	case pageSize > 100:
		pageSize = 100
	case pageSize <= 0:
		pageSize = 20
	}

	filter := store.ArticleFilter{
		OwnerID:    ownerID(c),
		ActiveOnly: true,
		Search:     c.Query("q"),
		OrderBy:    c.Query("order", store.OrderPublishedDesc),
		Limit:      pageSize,
		Offset:     (page - 1) * pageSize,
	}
	if category := c.Query("category"); category != "" {
		filter.Categories = strings.Split(category, ",")
	}
	if sourceID := c.Query("source_id"); sourceID != "" {
		filter.SourceIDs = strings.Split(sourceID, ",")
	}
	if minQuality := c.Query("min_quality"); minQuality != "" {
		v, err := strconv.ParseFloat(minQuality, 64)
		if err != nil || v < 0 || v > 1 {
			return fiber.NewError(fiber.StatusBadRequest, "min_quality must be between 0 and 1")
		}
		filter.MinQuality = v
	}

	articles, err := h.store.QueryArticles(c.Context(), filter)
	if err != nil {
		logger.Error().Err(err).Msg("article query failed")
		return fiber.NewError(fiber.StatusInternalServerError, "failed to list articles")
	}

	countFilter := filter
	countFilter.Limit = 0
	countFilter.Offset = 0
	total, err := h.store.CountArticles(c.Context(), countFilter)
	if err != nil {
		logger.Error().Err(err).Msg("article count failed")
		return fiber.NewError(fiber.StatusInternalServerError, "failed to list articles")
	}

	if articles == nil {
		articles = []models.Article{}
	}
	return c.JSON(fiber.Map{
		"articles":  articles,
		"page":      page,
		"page_size": pageSize,
		"total":     total,
	})
}

// GetArticle handles GET /api/v1/articles/:id.
func (h *Handlers) GetArticle(c *fiber.Ctx) error {
	article, err := h.store.GetArticle(c.Context(), ownerID(c), c.Params("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "article not found")
		}
		logger.Error().Err(err).Msg("article lookup failed")
		return fiber.NewError(fiber.StatusInternalServerError, "failed to get article")
	}
	return c.JSON(article)
}

// ListSources handles GET /api/v1/sources.
func (h *Handlers) ListSources(c *fiber.Ctx) error {
	activeOnly := c.QueryBool("active", false)
	sources, err := h.store.ListSources(c.Context(), ownerID(c), activeOnly)
	if err != nil {
		logger.Error().Err(err).Msg("source listing failed")
		return fiber.NewError(fiber.StatusInternalServerError, "failed to list sources")
	}
	if sources == nil {
		sources = []models.Source{}
	}
	return c.JSON(fiber.Map{"sources": sources})
}

// Stats handles GET /api/v1/stats.
func (h *Handlers) Stats(c *fiber.Ctx) error {
	owner := ownerID(c)

	total, err := h.store.CountArticles(c.Context(), store.ArticleFilter{OwnerID: owner})
	if err != nil {
		logger.Error().Err(err).Msg("stats total failed")
		return fiber.NewError(fiber.StatusInternalServerError, "failed to compute stats")
	}
	active, err := h.store.CountArticles(c.Context(), store.ArticleFilter{OwnerID: owner, ActiveOnly: true})
	if err != nil {
		logger.Error().Err(err).Msg("stats active failed")
		return fiber.NewError(fiber.StatusInternalServerError, "failed to compute stats")
	}
	withImages, err := h.store.CountArticles(c.Context(), store.ArticleFilter{
		OwnerID: owner, ActiveOnly: true, RequireImage: true,
	})
	if err != nil {
		logger.Error().Err(err).Msg("stats images failed")
		return fiber.NewError(fiber.StatusInternalServerError, "failed to compute stats")
	}
	byCategory := make(map[string]int)
	for _, category := range []string{"technology", "business", "science", "health", "general"} {
		n, err := h.store.CountArticles(c.Context(), store.ArticleFilter{
			OwnerID: owner, ActiveOnly: true, Categories: []string{category},
		})
		if err != nil {
			logger.Error().Err(err).Msg("stats category failed")
			return fiber.NewError(fiber.StatusInternalServerError, "failed to compute stats")
		}
		if n > 0 {
			byCategory[category] = n
		}
	}
	// Source-assigned categories outside the keyword taxonomy.
	var known int
	for _, n := range byCategory {
		known += n
	}
	if other := active - known; other > 0 {
		byCategory["other"] = other
	}

	sources, err := h.store.ListSources(c.Context(), owner, false)
	if err != nil {
		logger.Error().Err(err).Msg("stats sources failed")
		return fiber.NewError(fiber.StatusInternalServerError, "failed to compute stats")
	}

	return c.JSON(fiber.Map{
		"articles_total":    total,
		"articles_active":   active,
		"articles_inactive": total - active,
		"with_images":       withImages,
		"by_category":       byCategory,
		"sources":           len(sources),
	})
}

type fetchRequest struct {
	SourceIDs []string `json:"source_ids"`
}

// TriggerFetch handles POST /api/v1/fetch: ingest all active sources, or
// the requested subset.
func (h *Handlers) TriggerFetch(c *fiber.Ctx) error {
	owner := ownerID(c)

	var req fetchRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
	}

	sources, err := h.store.ListSources(c.Context(), owner, true)
	if err != nil {
		logger.Error().Err(err).Msg("source listing failed")
		return fiber.NewError(fiber.StatusInternalServerError, "failed to list sources")
	}

	if len(req.SourceIDs) > 0 {
		wanted := make(map[string]bool, len(req.SourceIDs))
		for _, id := range req.SourceIDs {
			wanted[id] = true
		}
		filtered := sources[:0]
		for _, src := range sources {
			if wanted[src.ID] {
				filtered = append(filtered, src)
			}
		}
		sources = filtered
	}

	if len(sources) == 0 {
		return fiber.NewError(fiber.StatusNotFound, "no matching active sources")
	}

	summary := h.fetcher.FetchBatch(c.Context(), sources)
	return c.JSON(summary)
}

type newsletterRequest struct {
	Topic    string                 `json:"topic" validate:"required"`
	Style    string                 `json:"style"`
	Length   string                 `json:"length"`
	Curation models.CurationRequest `json:"curation"`
	MarkUsed bool                   `json:"mark_used"`
}

// ComposeNewsletter handles POST /api/v1/newsletter: curate, compose, and
// optionally flag the picked articles as used.
func (h *Handlers) ComposeNewsletter(c *fiber.Ctx) error {
	owner := ownerID(c)

	var req newsletterRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validate.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "topic is required")
	}

	batch, err := h.curator.Curate(c.Context(), owner, req.Curation)
	if err != nil {
		logger.Error().Err(err).Msg("curation failed")
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	newsletter, err := h.composer.Compose(c.Context(), composer.Options{
		Topic:  req.Topic,
		Style:  req.Style,
		Length: req.Length,
	}, batch)
	if err != nil {
		logger.Error().Err(err).Msg("composition failed")
		return fiber.NewError(fiber.StatusBadGateway, "newsletter composition failed")
	}

	if req.MarkUsed && len(batch.Articles) > 0 {
		ids := make([]string, 0, len(batch.Articles))
		for _, a := range batch.Articles {
			ids = append(ids, a.ID)
		}
		if err := h.store.MarkUsed(c.Context(), owner, ids); err != nil {
			logger.Warn().Err(err).Msg("failed to mark articles as used")
		}
	}

	return c.JSON(fiber.Map{
		"newsletter": newsletter,
		"curation": fiber.Map{
			"considered": batch.Considered,
			"selected":   batch.Selected,
			"articles":   batch.Articles,
		},
	})
}
