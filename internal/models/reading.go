package models

import (
	"math"
	"strings"
	"unicode"
)

// wordsPerMinute is the reading speed used for post estimates.
const wordsPerMinute = 238

// ReadingMinutes estimates reading time in minutes for text. It returns a
// minimum of 1 minute for non-empty text and 0 for empty text.
func ReadingMinutes(text string) int {
	words := countWords(text)
	if words == 0 {
		return 0
	}
	return int(math.Max(1, math.Ceil(float64(words)/wordsPerMinute)))
}

// countWords counts words separated by whitespace or punctuation.
func countWords(text string) int {
	count := 0
	inWord := false
	for _, r := range text {
		if unicode.IsSpace(r) || strings.ContainsRune(".,;:!?¡¿\"'()[]{}—–-«»", r) {
			if inWord {
				count++
				inWord = false
			}
		} else {
			inWord = true
		}
	}
	if inWord {
		count++
	}
	return count
}
