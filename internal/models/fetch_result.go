package models

// FetchResult summarizes one source's fetch cycle. Status reflects the
// fetch and parse of the feed itself; failures of individual entries are
// counted in EntryFailures and leave Status untouched.
type FetchResult struct {
	SourceID          string `json:"source_id"`
	Status            string `json:"status"`
	Error             string `json:"error,omitempty"`
	ArticlesFetched   int    `json:"articles_fetched"`
	ArticlesProcessed int    `json:"articles_processed"`
	DuplicatesFound   int    `json:"duplicates_found"`
	EntryFailures     int    `json:"entry_failures,omitempty"`
}

const (
	FetchStatusSuccess = "success"
	FetchStatusError   = "error"
)

// BatchSummary aggregates the results of a multi-source fetch run. Partial
// failures land in Errors; they never abort the batch.
type BatchSummary struct {
	Success           bool          `json:"success"`
	SourcesProcessed  int           `json:"sources_processed"`
	ArticlesFetched   int           `json:"articles_fetched"`
	ArticlesProcessed int           `json:"articles_processed"`
	DuplicatesFound   int           `json:"duplicates_found"`
	EntryFailures     int           `json:"entry_failures,omitempty"`
	Errors            []string      `json:"errors"`
	Results           []FetchResult `json:"results,omitempty"`
}
