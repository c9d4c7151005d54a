package autopost

import (
	"context"
	"fmt"
	"time"
)

// TitleFinder is the storage query the guard needs.
type TitleFinder interface {
	FindRecentByTitle(ctx context.Context, fragment string, since time.Time) (bool, error)
}

// Guard detects drafts whose title prefix already appears in a recent post.
type Guard struct {
	store     TitleFinder
	prefixLen int
	window    time.Duration
	now       func() time.Time
}

// NewGuard creates a Guard matching the first prefixLen runes of a title
// against posts created within window.
func NewGuard(store TitleFinder, prefixLen int, window time.Duration) *Guard {
	return &Guard{store: store, prefixLen: prefixLen, window: window, now: time.Now}
}

// IsDuplicate reports whether a post created in the window has a title
// containing the prefix of title, ignoring case.
func (g *Guard) IsDuplicate(ctx context.Context, title string) (bool, error) {
	fragment := titlePrefix(title, g.prefixLen)
	if fragment == "" {
		return false, nil
	}
	dup, err := g.store.FindRecentByTitle(ctx, fragment, g.now().Add(-g.window))
	if err != nil {
		return false, fmt.Errorf("duplicate check: %w", err)
	}
	return dup, nil
}

func titlePrefix(title string, n int) string {
	runes := []rune(title)
	if n > 0 && len(runes) > n {
		runes = runes[:n]
	}
	return string(runes)
}
