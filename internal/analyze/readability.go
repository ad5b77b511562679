package analyze

import (
	"strings"
	"unicode"
)

var vowels = map[rune]bool{'a': true, 'e': true, 'i': true, 'o': true, 'u': true, 'y': true}

// fleschReadingEase computes the Flesch reading-ease score for the text,
// clamped to [0, 100]. Empty text scores 0.
func fleschReadingEase(text string) float64 {
	words := strings.Fields(text)
	if len(words) == 0 {
		return 0
	}

	sentences := countSentences(text)
	if sentences == 0 {
		sentences = 1
	}

	var syllables int
	for _, w := range words {
		syllables += countSyllables(w)
	}

	wordCount := float64(len(words))
	score := 206.835 - 1.015*(wordCount/float64(sentences)) - 84.6*(float64(syllables)/wordCount)

	return clamp(score, 0, 100)
}

func countSentences(text string) int {
	var n int
	for _, r := range text {
		switch r {
		case '.', '!', '?':
			n++
		}
	}
	return n
}

// countSyllables approximates syllables as runs of vowels, with a silent
// trailing 'e' discounted. Every word counts at least one.
func countSyllables(word string) int {
	word = strings.ToLower(strings.TrimFunc(word, func(r rune) bool {
		return !unicode.IsLetter(r)
	}))
	if word == "" {
		return 1
	}

	var count int
	prevVowel := false
	for _, r := range word {
		isVowel := vowels[r]
		if isVowel && !prevVowel {
			count++
		}
		prevVowel = isVowel
	}

	if strings.HasSuffix(word, "e") && count > 1 {
		count--
	}
	if count < 1 {
		count = 1
	}
	return count
}
