// Package analyze computes heuristic content metrics for ingested entries:
// word count, reading time, readability, sentiment, a composite quality
// score, structural flags and the content type.
package analyze

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/ainewz/pipeline/internal/models"
)

const (
	wordsPerMinute    = 200
	maxReadingMinutes = 60

	// Quality score weights: length suitability vs. readability.
	lengthWeight      = 0.4
	readabilityWeight = 0.6
)

// Lexical sentiment word lists. This is a best-effort heuristic, not a
// model; misses are expected and acceptable.
var positiveWords = map[string]bool{
	"good": true, "great": true, "excellent": true, "amazing": true,
	"wonderful": true, "fantastic": true, "positive": true, "success": true,
	"win": true, "best": true,
}

var negativeWords = map[string]bool{
	"bad": true, "terrible": true, "awful": true, "horrible": true,
	"negative": true, "fail": true, "lose": true, "worst": true,
	"problem": true, "issue": true,
}

var podcastTitleWords = []string{"podcast", "episode", "audio"}

// Analysis is the full set of computed metrics for one entry.
type Analysis struct {
	WordCount        int
	ReadingTime      int
	ReadabilityScore float64
	SentimentScore   float64
	QualityScore     float64
	HasImages        bool
	HasVideos        bool
	HasLists         bool
	HasQuotes        bool
	ContentType      models.ContentType
}

// Defaults returns the neutral analysis used when an entry cannot be
// analyzed for isolated-entry reasons. The quality score is deliberately
// moderate so the entry is neither promoted nor buried.
func Defaults() Analysis {
	return Analysis{
		ReadingTime:  1,
		QualityScore: 0.5,
		ContentType:  models.ContentTypeArticle,
	}
}

// Analyzer is stateless; the zero value is ready to use.
type Analyzer struct{}

func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// Analyze scores normalized text and inspects the raw markup for structure.
// Empty input yields zero and neutral values, never an error.
func (a *Analyzer) Analyze(text, rawHTML, title string) Analysis {
	words := strings.Fields(text)
	wordCount := len(words)

	res := Analysis{
		WordCount:        wordCount,
		ReadingTime:      readingTime(wordCount),
		ReadabilityScore: fleschReadingEase(text),
		SentimentScore:   sentiment(words),
	}
	res.QualityScore = qualityScore(wordCount, res.ReadabilityScore)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err == nil {
		res.HasImages = doc.Find("img").Length() > 0
		res.HasVideos = doc.Find("video, iframe").Length() > 0
		res.HasLists = doc.Find("ul, ol").Length() > 0
		res.HasQuotes = doc.Find("blockquote").Length() > 0
		res.ContentType = contentType(doc, title)
	} else {
		res.ContentType = models.ContentTypeArticle
	}

	return res
}

// readingTime estimates minutes at 200 wpm, floored at 1 and capped at 60.
func readingTime(wordCount int) int {
	minutes := wordCount / wordsPerMinute
	if minutes < 1 {
		return 1
	}
	if minutes > maxReadingMinutes {
		return maxReadingMinutes
	}
	return minutes
}

// sentiment is the signed fraction of sentiment-bearing words, clamped to
// [-1, 1].
func sentiment(words []string) float64 {
	if len(words) == 0 {
		return 0
	}

	var positive, negative int
	for _, w := range words {
		w = strings.ToLower(strings.Trim(w, ".,!?;:()\"'"))
		if positiveWords[w] {
			positive++
		} else if negativeWords[w] {
			negative++
		}
	}

	return clamp(float64(positive-negative)/float64(len(words)), -1, 1)
}

// qualityScore combines length suitability and normalized readability.
// Zero words always means zero quality.
func qualityScore(wordCount int, readability float64) float64 {
	if wordCount == 0 {
		return 0
	}

	lengthScore := clamp(float64(wordCount)/500, 0, 1)
	if wordCount < 100 {
		lengthScore *= 0.5
	} else if wordCount > 2000 {
		lengthScore *= 0.8
	}

	readabilityNorm := clamp(readability/100, 0, 1)

	return clamp(lengthScore*lengthWeight+readabilityNorm*readabilityWeight, 0, 1)
}

func contentType(doc *goquery.Document, title string) models.ContentType {
	if doc.Find("video, iframe").Length() > 0 {
		return models.ContentTypeVideo
	}

	titleLower := strings.ToLower(title)
	if doc.Find("audio").Length() > 0 {
		return models.ContentTypePodcast
	}
	for _, kw := range podcastTitleWords {
		if strings.Contains(titleLower, kw) {
			return models.ContentTypePodcast
		}
	}

	if doc.Find("img").Length() > 3 {
		return models.ContentTypeGallery
	}

	return models.ContentTypeArticle
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
