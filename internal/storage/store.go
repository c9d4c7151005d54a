package storage

import (
	"context"
	"time"

	"github.com/aifeed/aifeed/internal/models"
)

// PostStore is the contract every backend offers for the post collection.
type PostStore interface {
	// CreatePost inserts p and returns the stored row with ID and
	// CreatedAt populated. Backend failures are *PersistenceError.
	CreatePost(ctx context.Context, p *models.Post) (*models.Post, error)

	// GetPost returns the post with the given ID or ErrNotFound.
	GetPost(ctx context.Context, id int64) (*models.Post, error)

	// GetPostBySlug returns the post with the given slug or ErrNotFound.
	GetPostBySlug(ctx context.Context, slug string) (*models.Post, error)

	// ListPosts returns posts newest first.
	ListPosts(ctx context.Context, opts models.ListOptions) ([]models.Post, error)

	// UpdatePost rewrites title, content and category of a post. The slug
	// is left untouched.
	UpdatePost(ctx context.Context, id int64, in models.PostInput) (*models.Post, error)

	// DeletePost removes the post or returns ErrNotFound.
	DeletePost(ctx context.Context, id int64) error

	// IncrementViews bumps the view counter of a post.
	IncrementViews(ctx context.Context, id int64) error

	// FindRecentByTitle reports whether a post created at or after since has
	// a title containing fragment, ignoring case.
	FindRecentByTitle(ctx context.Context, fragment string, since time.Time) (bool, error)
}

// DefaultListLimit caps listings when the caller does not ask for a limit.
const DefaultListLimit = 100
