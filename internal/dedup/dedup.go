// Package dedup detects near-duplicate entries before they are stored.
// Detection runs in two passes: an exact URL lookup, then a fuzzy title
// comparison against stored titles sharing the same prefix.
package dedup

import (
	"context"
	"fmt"
	"strings"
)

const (
	// DefaultPrefixLen bounds the candidate set for fuzzy comparison.
	// Titles that do not share this many leading characters are never
	// compared.
	DefaultPrefixLen = 50

	// DefaultThreshold is the Jaccard similarity above which two titles
	// are considered the same story.
	DefaultThreshold = 0.8
)

// Corpus is the slice of stored articles the detector compares against.
type Corpus interface {
	// FindIDByURL returns the article ID stored under the exact URL, or
	// "" when none exists.
	FindIDByURL(ctx context.Context, ownerID, url string) (string, error)

	// TitleCandidates returns (id, title) pairs for stored articles whose
	// title starts with the given prefix.
	TitleCandidates(ctx context.Context, ownerID, prefix string) (map[string]string, error)
}

type Detector struct {
	corpus    Corpus
	prefixLen int
	threshold float64
}

func NewDetector(corpus Corpus, prefixLen int, threshold float64) *Detector {
	if prefixLen <= 0 {
		prefixLen = DefaultPrefixLen
	}
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultThreshold
	}
	return &Detector{corpus: corpus, prefixLen: prefixLen, threshold: threshold}
}

// Detect returns the ID of the stored article this entry duplicates, or ""
// when the entry is new. Lookup errors are returned, never swallowed: a
// failed check must not admit a duplicate.
func (d *Detector) Detect(ctx context.Context, ownerID, url, title string) (string, error) {
	if url != "" {
		id, err := d.corpus.FindIDByURL(ctx, ownerID, url)
		if err != nil {
			return "", fmt.Errorf("url lookup: %w", err)
		}
		if id != "" {
			return id, nil
		}
	}

	title = strings.TrimSpace(title)
	if title == "" {
		return "", nil
	}

	// Slice on runes so a multi-byte character at the boundary is not
	// split into an invalid UTF-8 sequence.
	prefix := title
	if runes := []rune(title); len(runes) > d.prefixLen {
		prefix = string(runes[:d.prefixLen])
	}

	candidates, err := d.corpus.TitleCandidates(ctx, ownerID, prefix)
	if err != nil {
		return "", fmt.Errorf("title candidates: %w", err)
	}

	for id, candidate := range candidates {
		if TitleSimilarity(title, candidate) > d.threshold {
			return id, nil
		}
	}

	return "", nil
}

// TitleSimilarity is the Jaccard similarity of the lowercased word sets of
// two titles. Identical titles score 1, disjoint titles 0.
func TitleSimilarity(a, b string) float64 {
	setA := wordSet(a)
	setB := wordSet(b)
	if len(setA) == 0 && len(setB) == 0 {
		return 1
	}
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	var intersection int
	for w := range setA {
		if setB[w] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection

	return float64(intersection) / float64(union)
}

func wordSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(s)) {
		set[w] = true
	}
	return set
}
