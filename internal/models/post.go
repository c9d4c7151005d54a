package models

import "time"

// Post statuses.
const (
	StatusPublished = "published"
	StatusDraft     = "draft"
)

// Post is a single row of the post collection.
type Post struct {
	ID             int64     `json:"id"`
	Title          string    `json:"title"`
	Content        string    `json:"content"`
	Category       string    `json:"category"`
	Slug           string    `json:"slug"`
	CreatedAt      time.Time `json:"created_at"`
	Author         string    `json:"author,omitempty"`
	Status         string    `json:"status"`
	Views          int       `json:"views"`
	Likes          int       `json:"likes"`
	Shares         int       `json:"shares"`
	Topic          string    `json:"topic,omitempty"`
	Source         string    `json:"source,omitempty"`
	RelevanceScore float64   `json:"relevance_score,omitempty"`
	WordCount      int       `json:"word_count,omitempty"`
	AutoGenerated  bool      `json:"auto_generated"`
	AIProvider     string    `json:"ai_provider,omitempty"`
}

// PostInput holds the user-editable fields of a post. The slug is never
// part of an update.
type PostInput struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	Category string `json:"category"`
}

// ListOptions filters and pages a post listing.
type ListOptions struct {
	Category string
	Query    string // substring of title or content
	Limit    int
	Offset   int
}
