// Package autopost generates AI-written posts and publishes them: it picks a
// topic for the hour, drives the providers with retry and one fallback,
// skips recent duplicates and stores the result.
package autopost

import "math/rand/v2"

// Bucket is a time-of-day topic list.
type Bucket string

const (
	Morning   Bucket = "morning"
	Afternoon Bucket = "afternoon"
	Evening   Bucket = "evening"
)

var topics = map[Bucket][]string{
	Morning: {
		"OpenAI nuevos desarrollos",
		"DeepSeek modelos",
		"nuevos modelos de IA",
		"avances en machine learning",
		"benchmarks de IA",
	},
	Afternoon: {
		"ingeniería de prompts",
		"prompt engineering",
		"AI coding tools",
		"DeepSeek coder",
		"vibe coding",
	},
	Evening: {
		"ChatGPT nuevas funciones",
		"Claude AI",
		"Gemini AI",
		"herramientas de desarrollo con IA",
		"IA generativa nuevos usos",
	},
}

// BucketForHour maps an hour of the day to its bucket: [6,12) is morning,
// [12,18) afternoon and everything else evening.
func BucketForHour(hour int) Bucket {
	switch {
	case hour >= 6 && hour < 12:
		return Morning
	case hour >= 12 && hour < 18:
		return Afternoon
	default:
		return Evening
	}
}

// Topics returns a copy of the topics in bucket b.
func Topics(b Bucket) []string {
	return append([]string(nil), topics[b]...)
}

// PickTopic chooses uniformly among the topics of the hour's bucket. A nil
// rnd uses the global source.
func PickTopic(hour int, rnd *rand.Rand) string {
	list := topics[BucketForHour(hour)]
	if rnd == nil {
		return list[rand.IntN(len(list))]
	}
	return list[rnd.IntN(len(list))]
}
