package feeds

import (
	"html"
	"regexp"
	"slices"
	"strings"
	"time"
	"unicode"

	"github.com/mmcdole/gofeed"
)

// lookbackDays drops items older than this many days.
const lookbackDays = 7

var htmlTagPattern = regexp.MustCompile("<[^>]*>")

// headline is a feed item title with its publication time, if known.
type headline struct {
	Title       string
	PublishedAt *time.Time
}

// parseFeedItems converts gofeed items into headlines, filtering by the
// lookback window. Items with nil PublishedParsed are always included. Items
// with an empty title are skipped.
func parseFeedItems(feed *gofeed.Feed, lookbackDays int, now time.Time) []headline {
	cutoff := now.AddDate(0, 0, -lookbackDays)

	var out []headline
	for _, item := range feed.Items {
		title := strings.TrimSpace(stripHTML(item.Title))
		if title == "" {
			continue
		}

		published := item.PublishedParsed
		if published == nil {
			published = item.UpdatedParsed
		}
		if published != nil && published.Before(cutoff) {
			continue
		}

		var publishedAt *time.Time
		if published != nil {
			t := *published
			publishedAt = &t
		}
		out = append(out, headline{Title: title, PublishedAt: publishedAt})
	}
	return out
}

// selectHeadlines returns up to limit distinct titles. Titles sharing a word
// with topic come first; within each group newer items come first.
func selectHeadlines(items []headline, topic string, limit int) []string {
	keywords := significantWords(topic)

	type scored struct {
		headline
		related bool
	}
	ranked := make([]scored, 0, len(items))
	for _, h := range items {
		ranked = append(ranked, scored{headline: h, related: sharesWord(h.Title, keywords)})
	}

	slices.SortStableFunc(ranked, func(a, b scored) int {
		if a.related != b.related {
			if a.related {
				return -1
			}
			return 1
		}
		return comparePublished(a.PublishedAt, b.PublishedAt)
	})

	seen := make(map[string]bool)
	var out []string
	for _, h := range ranked {
		key := strings.ToLower(h.Title)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, h.Title)
		if len(out) == limit {
			break
		}
	}
	return out
}

// comparePublished orders newer times first and unknown times last.
func comparePublished(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	return b.Compare(*a)
}

// significantWords lowercases s and keeps words of three or more letters.
func significantWords(s string) map[string]bool {
	words := make(map[string]bool)
	for _, w := range splitWords(s) {
		if len([]rune(w)) >= 3 {
			words[w] = true
		}
	}
	return words
}

func sharesWord(title string, keywords map[string]bool) bool {
	for _, w := range splitWords(title) {
		if keywords[w] {
			return true
		}
	}
	return false
}

func splitWords(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// stripHTML removes HTML tags from s and unescapes HTML entities.
func stripHTML(s string) string {
	clean := htmlTagPattern.ReplaceAllString(s, "")
	return html.UnescapeString(clean)
}
