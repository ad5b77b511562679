package store

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ainewz/pipeline/internal/models"
)

type seedFile struct {
	OwnerID string       `yaml:"owner_id"`
	Sources []seedSource `yaml:"sources"`
}

type seedSource struct {
	Name        string  `yaml:"name"`
	URL         string  `yaml:"url"`
	Category    string  `yaml:"category"`
	Credibility float64 `yaml:"credibility"`
	Active      *bool   `yaml:"active"`
}

// SeedSources loads feed definitions from a YAML file and upserts them.
// Re-running against the same file is safe: sources are keyed by URL.
func SeedSources(ctx context.Context, s SourceStore, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read seed file: %w", err)
	}

	var file seedFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return 0, fmt.Errorf("parse seed file: %w", err)
	}
	if file.OwnerID == "" {
		file.OwnerID = "default"
	}

	var count int
	for i, entry := range file.Sources {
		if entry.URL == "" {
			return count, fmt.Errorf("seed source %d: missing url", i)
		}
		active := true
		if entry.Active != nil {
			active = *entry.Active
		}
		src := models.Source{
			OwnerID:          file.OwnerID,
			Name:             entry.Name,
			URL:              entry.URL,
			Category:         entry.Category,
			CredibilityScore: entry.Credibility,
			IsActive:         active,
		}
		if err := s.UpsertSource(ctx, &src); err != nil {
			return count, fmt.Errorf("seed source %q: %w", entry.URL, err)
		}
		count++
	}

	return count, nil
}
