package models

import "time"

// ContentType classifies what kind of media an entry resolved to.
type ContentType string

const (
	ContentTypeArticle ContentType = "article"
	ContentTypeVideo   ContentType = "video"
	ContentTypePodcast ContentType = "podcast"
	ContentTypeGallery ContentType = "gallery"
)

// Article is a persisted, enriched and scored feed entry. The canonical URL
// is the unique key: a second ingestion of the same URL is a no-op.
// Articles are never deleted by the pipeline, only deactivated or
// flag-flipped (used / duplicate).
type Article struct {
	ID          string     `json:"id"`
	OwnerID     string     `json:"owner_id"`
	SourceID    string     `json:"source_id"`
	Title       string     `json:"title"`
	URL         string     `json:"url"`
	Content     string     `json:"content,omitempty"`
	Summary     string     `json:"summary,omitempty"`
	Author      string     `json:"author,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	FetchedAt   time.Time  `json:"fetched_at"`

	// Visual assets
	ImageURL     string `json:"image_url,omitempty"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
	ImageAltText string `json:"image_alt_text,omitempty"`

	// Content analysis
	Category         string      `json:"category,omitempty"`
	Tags             []string    `json:"tags,omitempty"`
	SentimentScore   float64     `json:"sentiment_score"`
	ReadabilityScore float64     `json:"readability_score"`
	WordCount        int         `json:"word_count"`
	ReadingTime      int         `json:"reading_time"`
	QualityScore     float64     `json:"quality_score"`
	HasImages        bool        `json:"has_images"`
	HasVideos        bool        `json:"has_videos"`
	HasLists         bool        `json:"has_lists"`
	HasQuotes        bool        `json:"has_quotes"`
	ContentType      ContentType `json:"content_type"`

	// Lifecycle flags
	IsDuplicate      bool   `json:"is_duplicate"`
	DuplicateOf      string `json:"duplicate_of,omitempty"`
	UsedInNewsletter bool   `json:"used_in_newsletter"`
	IsActive         bool   `json:"is_active"`
}

// HasImage reports whether the article carries a usable lead image.
func (a *Article) HasImage() bool {
	return a.ImageURL != ""
}
