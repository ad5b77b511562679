package models

import "time"

// Source is a registered feed endpoint. The pipeline treats sources as
// read-only except for LastFetched, which is written after each fetch cycle.
type Source struct {
	ID               string     `json:"id"`
	OwnerID          string     `json:"owner_id"`
	Name             string     `json:"name"`
	URL              string     `json:"url"`
	Category         string     `json:"category,omitempty"`
	IsActive         bool       `json:"is_active"`
	CredibilityScore float64    `json:"credibility_score"`
	LastFetched      *time.Time `json:"last_fetched,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}
