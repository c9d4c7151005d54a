package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aifeed/aifeed/internal/models"
)

func insertPost(t *testing.T, store *Store, title string, createdAt time.Time) *models.Post {
	t.Helper()
	p, err := store.CreatePost(context.Background(), &models.Post{
		Title:     title,
		Content:   "contenido de prueba",
		Category:  "IA Avanzada",
		Slug:      "slug-" + title,
		CreatedAt: createdAt,
	})
	if err != nil {
		t.Fatalf("CreatePost(%q) error: %v", title, err)
	}
	return p
}

func TestCreatePost_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	in := &models.Post{
		Title:          "Claude AI y el futuro",
		Content:        "Un artículo largo.",
		Category:       "Herramientas IA",
		Slug:           "claude-ai-y-el-futuro-1700000000000",
		Author:         "AIFeed Bot",
		Topic:          "Claude AI",
		Source:         "AIFeed Bot",
		RelevanceScore: 8,
		WordCount:      150,
		AutoGenerated:  true,
		AIProvider:     "gemini",
	}

	got, err := store.CreatePost(ctx, in)
	if err != nil {
		t.Fatalf("CreatePost() error: %v", err)
	}
	if got.ID == 0 {
		t.Fatal("CreatePost() returned id 0")
	}
	if got.CreatedAt.IsZero() {
		t.Error("CreatedAt should be populated")
	}
	if got.Status != models.StatusPublished {
		t.Errorf("Status = %q, want %q", got.Status, models.StatusPublished)
	}
	if got.Slug != in.Slug {
		t.Errorf("Slug = %q, want %q", got.Slug, in.Slug)
	}
	if !got.AutoGenerated {
		t.Error("AutoGenerated = false, want true")
	}
	if got.WordCount != 150 || got.RelevanceScore != 8 {
		t.Errorf("WordCount/RelevanceScore = %d/%v, want 150/8", got.WordCount, got.RelevanceScore)
	}
	if got.AIProvider != "gemini" || got.Topic != "Claude AI" || got.Author != "AIFeed Bot" {
		t.Errorf("unexpected attribution: %+v", got)
	}
}

func TestGetPost_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetPost(context.Background(), 99999)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got: %v", err)
	}
}

func TestGetPostBySlug(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	p := insertPost(t, store, "uno", time.Now())

	got, err := store.GetPostBySlug(ctx, p.Slug)
	if err != nil {
		t.Fatalf("GetPostBySlug() error: %v", err)
	}
	if got.ID != p.ID {
		t.Errorf("ID = %d, want %d", got.ID, p.ID)
	}

	if _, err := store.GetPostBySlug(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got: %v", err)
	}
}

func TestListPosts_NewestFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	insertPost(t, store, "old", now.Add(-2*time.Hour))
	insertPost(t, store, "new", now)
	insertPost(t, store, "mid", now.Add(-time.Hour))

	posts, err := store.ListPosts(ctx, models.ListOptions{})
	if err != nil {
		t.Fatalf("ListPosts() error: %v", err)
	}
	if len(posts) != 3 {
		t.Fatalf("got %d posts, want 3", len(posts))
	}
	want := []string{"new", "mid", "old"}
	for i, p := range posts {
		if p.Title != want[i] {
			t.Errorf("posts[%d].Title = %q, want %q", i, p.Title, want[i])
		}
	}
}

func TestListPosts_Filters(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.CreatePost(ctx, &models.Post{Title: "Gemini AI", Content: "texto", Category: "Herramientas IA", Slug: "a"})
	if err != nil {
		t.Fatal(err)
	}
	_, err = store.CreatePost(ctx, &models.Post{Title: "Vibe coding", Content: "con DeepSeek coder", Category: "Coding con IA", Slug: "b"})
	if err != nil {
		t.Fatal(err)
	}

	t.Run("category", func(t *testing.T) {
		posts, err := store.ListPosts(ctx, models.ListOptions{Category: "Coding con IA"})
		if err != nil {
			t.Fatalf("ListPosts() error: %v", err)
		}
		if len(posts) != 1 || posts[0].Title != "Vibe coding" {
			t.Errorf("unexpected result: %+v", posts)
		}
	})

	t.Run("query matches content", func(t *testing.T) {
		posts, err := store.ListPosts(ctx, models.ListOptions{Query: "deepseek"})
		if err != nil {
			t.Fatalf("ListPosts() error: %v", err)
		}
		if len(posts) != 1 || posts[0].Slug != "b" {
			t.Errorf("unexpected result: %+v", posts)
		}
	})

	t.Run("limit and offset", func(t *testing.T) {
		posts, err := store.ListPosts(ctx, models.ListOptions{Limit: 1, Offset: 1})
		if err != nil {
			t.Fatalf("ListPosts() error: %v", err)
		}
		if len(posts) != 1 {
			t.Errorf("got %d posts, want 1", len(posts))
		}
	})

	t.Run("empty result is not nil", func(t *testing.T) {
		posts, err := store.ListPosts(ctx, models.ListOptions{Category: "none"})
		if err != nil {
			t.Fatalf("ListPosts() error: %v", err)
		}
		if posts == nil {
			t.Error("expected empty slice, got nil")
		}
	})
}

func TestUpdatePost_KeepsSlug(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	p := insertPost(t, store, "original", time.Now())

	got, err := store.UpdatePost(ctx, p.ID, models.PostInput{
		Title:    "renamed",
		Content:  "nuevo contenido",
		Category: "Prompt Engineering",
	})
	if err != nil {
		t.Fatalf("UpdatePost() error: %v", err)
	}
	if got.Title != "renamed" || got.Content != "nuevo contenido" || got.Category != "Prompt Engineering" {
		t.Errorf("update not applied: %+v", got)
	}
	if got.Slug != p.Slug {
		t.Errorf("Slug changed to %q, want %q", got.Slug, p.Slug)
	}

	if _, err := store.UpdatePost(ctx, 99999, models.PostInput{Title: "x"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got: %v", err)
	}
}

func TestDeletePost(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	p := insertPost(t, store, "to delete", time.Now())

	if err := store.DeletePost(ctx, p.ID); err != nil {
		t.Fatalf("DeletePost() error: %v", err)
	}
	if _, err := store.GetPost(ctx, p.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("post still present after delete: %v", err)
	}
	if err := store.DeletePost(ctx, p.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete: expected ErrNotFound, got: %v", err)
	}
}

func TestIncrementViews(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	p := insertPost(t, store, "popular", time.Now())

	for range 3 {
		if err := store.IncrementViews(ctx, p.ID); err != nil {
			t.Fatalf("IncrementViews() error: %v", err)
		}
	}
	got, err := store.GetPost(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Views != 3 {
		t.Errorf("Views = %d, want 3", got.Views)
	}
}

func TestFindRecentByTitle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	insertPost(t, store, "OpenAI nuevos desarrollos en GPT", now.Add(-time.Hour))
	insertPost(t, store, "DeepSeek modelos abiertos", now.Add(-30*time.Hour))
	insertPost(t, store, "INGENIERÍA DE PROMPTS avanza rápido", now.Add(-time.Hour))

	since := now.Add(-24 * time.Hour)

	tests := []struct {
		name     string
		fragment string
		want     bool
	}{
		{name: "recent match", fragment: "OpenAI nuevos desarr", want: true},
		{name: "case insensitive", fragment: "openai NUEVOS desarr", want: true},
		{name: "match outside window", fragment: "DeepSeek modelos", want: false},
		{name: "no match", fragment: "Gemini", want: false},
		{name: "wildcards are literal", fragment: "Open%", want: false},
		{name: "accented capitals fold", fragment: "Ingeniería de prompt", want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.FindRecentByTitle(ctx, tt.fragment, since)
			if err != nil {
				t.Fatalf("FindRecentByTitle() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("FindRecentByTitle(%q) = %v, want %v", tt.fragment, got, tt.want)
			}
		})
	}
}

func TestPersistenceError_MessageVerbatim(t *testing.T) {
	store := newTestStore(t)
	store.db.Close()

	_, err := store.CreatePost(context.Background(), &models.Post{Title: "t", Content: "c", Slug: "s"})
	var perr *PersistenceError
	if !errors.As(err, &perr) {
		t.Fatalf("expected *PersistenceError, got %T: %v", err, err)
	}
	if perr.Error() != perr.Err.Error() {
		t.Errorf("Error() = %q, want backend message %q", perr.Error(), perr.Err.Error())
	}
}
