package dedup

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"
)

type fakeCorpus struct {
	byURL      map[string]string
	titles     map[string]string
	err        error
	lastPrefix string
}

func (f *fakeCorpus) FindIDByURL(_ context.Context, _, url string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.byURL[url], nil
}

func (f *fakeCorpus) TitleCandidates(_ context.Context, _, prefix string) (map[string]string, error) {
	f.lastPrefix = prefix
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[string]string)
	for id, title := range f.titles {
		if strings.HasPrefix(title, prefix) {
			out[id] = title
		}
	}
	return out, nil
}

func TestDetectExactURL(t *testing.T) {
	corpus := &fakeCorpus{byURL: map[string]string{"https://a.example/x": "art-1"}}
	d := NewDetector(corpus, 0, 0)

	id, err := d.Detect(context.Background(), "owner", "https://a.example/x", "Anything")
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if id != "art-1" {
		t.Errorf("Detect() = %q, want art-1", id)
	}
}

func TestDetectSimilarTitle(t *testing.T) {
	corpus := &fakeCorpus{
		titles: map[string]string{
			"art-2": "OpenAI releases new model with improved reasoning today",
		},
	}
	d := NewDetector(corpus, 0, 0)

	id, err := d.Detect(context.Background(), "owner", "https://b.example/y",
		"OpenAI releases new model with improved reasoning")
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if id != "art-2" {
		t.Errorf("Detect() = %q, want art-2", id)
	}
}

func TestDetectDifferentPrefixNotCompared(t *testing.T) {
	// Same words, reordered: Jaccard would be 1.0, but the prefix
	// narrowing never surfaces the candidate.
	corpus := &fakeCorpus{
		titles: map[string]string{
			"art-3": "Quantum computing breakthrough announced at annual industry conference",
		},
	}
	d := NewDetector(corpus, 0, 0)

	id, err := d.Detect(context.Background(), "owner", "",
		"Announced at annual industry conference breakthrough quantum computing")
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if id != "" {
		t.Errorf("Detect() = %q, want no match across differing prefixes", id)
	}
}

func TestDetectMultiByteTitlePrefix(t *testing.T) {
	// A two-byte character straddling the byte at the prefix length must
	// not be cut in half.
	title := strings.Repeat("a", 49) + "é and some trailing words"
	corpus := &fakeCorpus{titles: map[string]string{"art-4": title}}
	d := NewDetector(corpus, DefaultPrefixLen, 0)

	id, err := d.Detect(context.Background(), "owner", "", title)
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if !utf8.ValidString(corpus.lastPrefix) {
		t.Errorf("prefix %q is not valid UTF-8", corpus.lastPrefix)
	}
	if want := strings.Repeat("a", 49) + "é"; corpus.lastPrefix != want {
		t.Errorf("prefix = %q, want %q", corpus.lastPrefix, want)
	}
	if id != "art-4" {
		t.Errorf("Detect() = %q, want art-4", id)
	}
}

func TestDetectNewEntry(t *testing.T) {
	d := NewDetector(&fakeCorpus{}, 0, 0)

	id, err := d.Detect(context.Background(), "owner", "https://c.example/z", "Entirely fresh story")
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if id != "" {
		t.Errorf("Detect() = %q, want empty for new entry", id)
	}
}

func TestDetectPropagatesLookupError(t *testing.T) {
	d := NewDetector(&fakeCorpus{err: errors.New("connection refused")}, 0, 0)

	if _, err := d.Detect(context.Background(), "owner", "https://d.example", "Title"); err == nil {
		t.Fatal("Detect() error = nil, want lookup failure surfaced")
	}
}

func TestTitleSimilarity(t *testing.T) {
	if got := TitleSimilarity("Breaking news today", "Breaking news today"); got != 1 {
		t.Errorf("identical titles = %f, want 1", got)
	}
	if got := TitleSimilarity("alpha beta", "gamma delta"); got != 0 {
		t.Errorf("disjoint titles = %f, want 0", got)
	}

	a, b := "markets rally on rate cut", "rate cut sparks rally"
	if TitleSimilarity(a, b) != TitleSimilarity(b, a) {
		t.Error("similarity is not symmetric")
	}

	got := TitleSimilarity("one two three four", "one two three")
	if got != 0.75 {
		t.Errorf("partial overlap = %f, want 0.75", got)
	}
}
