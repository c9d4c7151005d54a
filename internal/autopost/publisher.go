package autopost

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/aifeed/aifeed/internal/ai"
	"github.com/aifeed/aifeed/internal/models"
)

// maxSlugBase is the length of the title part of a slug.
const maxSlugBase = 40

var (
	slugSpaces   = regexp.MustCompile(`[\s\p{Z}]+`)
	slugNonWords = regexp.MustCompile(`[^\w-]+`)
)

// Slug derives a slug from title: lowercased, whitespace runs turned into
// hyphens, everything but ASCII word characters and hyphens dropped, cut to
// 40 characters and suffixed with the epoch milliseconds of at.
func Slug(title string, at time.Time) string {
	base := strings.ToLower(title)
	base = slugSpaces.ReplaceAllString(base, "-")
	base = slugNonWords.ReplaceAllString(base, "")
	if len(base) > maxSlugBase {
		base = base[:maxSlugBase]
	}
	return fmt.Sprintf("%s-%d", base, at.UnixMilli())
}

// PostCreator is the storage call the publisher needs.
type PostCreator interface {
	CreatePost(ctx context.Context, p *models.Post) (*models.Post, error)
}

// Publisher turns drafts into stored posts.
type Publisher struct {
	store  PostCreator
	author string
	source string
	now    func() time.Time
}

// NewPublisher creates a Publisher signing posts with author. source is used
// when the draft names none.
func NewPublisher(store PostCreator, author, source string) *Publisher {
	return &Publisher{store: store, author: author, source: source, now: time.Now}
}

// Publish stores draft as a published, auto-generated post.
func (p *Publisher) Publish(ctx context.Context, draft *ai.Draft) (*models.Post, error) {
	now := p.now()
	source := draft.Source
	if source == "" {
		source = p.source
	}
	post := &models.Post{
		Title:          draft.Title,
		Content:        draft.Content,
		Category:       draft.Category,
		Slug:           Slug(draft.Title, now),
		CreatedAt:      now,
		Author:         p.author,
		Status:         models.StatusPublished,
		Topic:          draft.Topic,
		Source:         source,
		RelevanceScore: draft.RelevanceScore,
		WordCount:      draft.WordCount,
		AutoGenerated:  true,
		AIProvider:     draft.Provider,
	}
	created, err := p.store.CreatePost(ctx, post)
	if err != nil {
		return nil, fmt.Errorf("publishing post: %w", err)
	}
	return created, nil
}
