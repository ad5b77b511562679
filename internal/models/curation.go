package models

import "time"

// CurationRequest describes one selection policy for a newsletter run.
// It is an ephemeral value object and is never persisted.
// MinQuality and MinWordCount are pointers so an omitted field takes the
// default threshold while an explicit zero still disables the filter.
type CurationRequest struct {
	SinceDays       int      `json:"since_days" validate:"gte=0,lte=90"`
	Limit           int      `json:"limit" validate:"gte=1,lte=50"`
	MinQuality      *float64 `json:"min_quality,omitempty" validate:"omitempty,gte=0,lte=1"`
	MinWordCount    *int     `json:"min_word_count,omitempty" validate:"omitempty,gte=0,lte=5000"`
	RequireImage    bool     `json:"require_image"`
	Categories      []string `json:"categories,omitempty"`
	SourceIDs       []string `json:"source_ids,omitempty"`
	PerSourceCap    int      `json:"per_source_cap" validate:"gte=1,lte=10"`
	TitleSimilarity float64  `json:"title_similarity" validate:"gte=0,lte=1"`
	IncludeFields   []string `json:"include_fields,omitempty"`
}

// DefaultCurationRequest returns the selection policy used when the caller
// supplies nothing.
func DefaultCurationRequest() CurationRequest {
	minQuality := 0.1
	minWordCount := 10
	return CurationRequest{
		SinceDays:       3,
		Limit:           6,
		MinQuality:      &minQuality,
		MinWordCount:    &minWordCount,
		PerSourceCap:    3,
		TitleSimilarity: 0.85,
		IncludeFields:   []string{"title", "summary", "url", "tags"},
	}
}

// ApplyDefaults fills omitted tuning knobs with the default policy so a
// partially specified request still validates.
func (r *CurationRequest) ApplyDefaults() {
	def := DefaultCurationRequest()
	if r.SinceDays == 0 {
		r.SinceDays = def.SinceDays
	}
	if r.Limit == 0 {
		r.Limit = def.Limit
	}
	if r.MinQuality == nil {
		r.MinQuality = def.MinQuality
	}
	if r.MinWordCount == nil {
		r.MinWordCount = def.MinWordCount
	}
	if r.PerSourceCap == 0 {
		r.PerSourceCap = def.PerSourceCap
	}
	if r.TitleSimilarity == 0 {
		r.TitleSimilarity = def.TitleSimilarity
	}
	if len(r.IncludeFields) == 0 {
		r.IncludeFields = def.IncludeFields
	}
}

// ProjectedArticle is an Article reduced to the fields a Curation Request
// asked for. ID, SourceID and PublishedAt survive every projection.
type ProjectedArticle struct {
	ID          string     `json:"id"`
	SourceID    string     `json:"source_id"`
	PublishedAt *time.Time `json:"published_at,omitempty"`

	Title        string      `json:"title,omitempty"`
	Summary      string      `json:"summary,omitempty"`
	URL          string      `json:"url,omitempty"`
	Author       string      `json:"author,omitempty"`
	Category     string      `json:"category,omitempty"`
	Tags         []string    `json:"tags,omitempty"`
	ImageURL     string      `json:"image_url,omitempty"`
	ThumbnailURL string      `json:"thumbnail_url,omitempty"`
	QualityScore *float64    `json:"quality_score,omitempty"`
	WordCount    *int        `json:"word_count,omitempty"`
	ReadingTime  *int        `json:"reading_time,omitempty"`
	ContentType  ContentType `json:"content_type,omitempty"`
}

// CuratedBatch is the ordered output of one Curation Request evaluation,
// handed to the Composer.
type CuratedBatch struct {
	Articles   []ProjectedArticle `json:"articles"`
	Considered int                `json:"considered"`
	Selected   int                `json:"selected"`
}
