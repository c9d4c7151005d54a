package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/aifeed/aifeed/internal/models"
	"github.com/aifeed/aifeed/internal/storage"
)

// seedPost stores a post and returns it with its ID.
func seedPost(t *testing.T, store *storage.Store, title, category string, at time.Time) *models.Post {
	t.Helper()
	p, err := store.CreatePost(context.Background(), &models.Post{
		Title:     title,
		Content:   "Contenido de prueba sobre " + title,
		Category:  category,
		Slug:      strings.ToLower(strings.ReplaceAll(title, " ", "-")),
		CreatedAt: at,
		Status:    models.StatusPublished,
	})
	if err != nil {
		t.Fatalf("seeding post: %v", err)
	}
	return p
}

func decodePost(t *testing.T, w *httptest.ResponseRecorder) PostResponse {
	t.Helper()
	var got PostResponse
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return got
}

func TestListPosts(t *testing.T) {
	store := newTestStore(t)
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	seedPost(t, store, "Robots en la fabrica", "Tecnología", base)
	seedPost(t, store, "Mercados de IA", "Negocios", base.Add(time.Hour))
	seedPost(t, store, "Nuevos robots", "Tecnología", base.Add(2*time.Hour))

	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantTitles []string
	}{
		{
			name:       "newest first",
			wantStatus: http.StatusOK,
			wantTitles: []string{"Nuevos robots", "Mercados de IA", "Robots en la fabrica"},
		},
		{
			name:       "by category",
			query:      "?category=Negocios",
			wantStatus: http.StatusOK,
			wantTitles: []string{"Mercados de IA"},
		},
		{
			name:       "search",
			query:      "?q=robots",
			wantStatus: http.StatusOK,
			wantTitles: []string{"Nuevos robots", "Robots en la fabrica"},
		},
		{
			name:       "paged",
			query:      "?limit=1&offset=1",
			wantStatus: http.StatusOK,
			wantTitles: []string{"Mercados de IA"},
		},
		{
			name:       "bad limit",
			query:      "?limit=abc",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "zero limit",
			query:      "?limit=0",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "negative offset",
			query:      "?offset=-1",
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/api/posts"+tt.query, nil)
			w := httptest.NewRecorder()

			ListPosts(store).ServeHTTP(w, r)

			if w.Code != tt.wantStatus {
				t.Fatalf("got status %d, want %d; body: %s", w.Code, tt.wantStatus, w.Body.String())
			}
			if tt.wantStatus != http.StatusOK {
				return
			}

			var got []PostResponse
			if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
				t.Fatalf("decoding response: %v", err)
			}
			if len(got) != len(tt.wantTitles) {
				t.Fatalf("got %d posts, want %d", len(got), len(tt.wantTitles))
			}
			for i, title := range tt.wantTitles {
				if got[i].Title != title {
					t.Errorf("post %d: got %q, want %q", i, got[i].Title, title)
				}
				if got[i].ReadingMinutes != 1 {
					t.Errorf("post %d: got reading_minutes %d, want 1", i, got[i].ReadingMinutes)
				}
			}
		})
	}
}

func TestListPostsEmpty(t *testing.T) {
	store := newTestStore(t)
	r := httptest.NewRequest(http.MethodGet, "/api/posts", nil)
	w := httptest.NewRecorder()

	ListPosts(store).ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, want %d", w.Code, http.StatusOK)
	}
	if body := strings.TrimSpace(w.Body.String()); body != "[]" {
		t.Errorf("got body %q, want []", body)
	}
}

func TestGetPost(t *testing.T) {
	store := newTestStore(t)
	p := seedPost(t, store, "Un post", "Tecnología", time.Now())

	tests := []struct {
		name       string
		id         string
		wantStatus int
	}{
		{name: "found", id: strconv.FormatInt(p.ID, 10), wantStatus: http.StatusOK},
		{name: "missing", id: "999", wantStatus: http.StatusNotFound},
		{name: "invalid id", id: "abc", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := withURLParam(httptest.NewRequest(http.MethodGet, "/api/posts/"+tt.id, nil), "id", tt.id)
			w := httptest.NewRecorder()

			GetPost(store).ServeHTTP(w, r)

			if w.Code != tt.wantStatus {
				t.Fatalf("got status %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusOK {
				if got := decodePost(t, w); got.ID != p.ID || got.Title != "Un post" {
					t.Errorf("got post %d %q, want %d %q", got.ID, got.Title, p.ID, "Un post")
				}
			}
		})
	}
}

func TestGetPostBySlugCountsViews(t *testing.T) {
	store := newTestStore(t)
	p := seedPost(t, store, "Con vistas", "Tecnología", time.Now())

	for want := 1; want <= 2; want++ {
		r := withURLParam(httptest.NewRequest(http.MethodGet, "/api/posts/slug/"+p.Slug, nil), "slug", p.Slug)
		w := httptest.NewRecorder()

		GetPostBySlug(store).ServeHTTP(w, r)

		if w.Code != http.StatusOK {
			t.Fatalf("got status %d, want %d", w.Code, http.StatusOK)
		}
		if got := decodePost(t, w); got.Views != want {
			t.Errorf("got views %d, want %d", got.Views, want)
		}
	}

	r := withURLParam(httptest.NewRequest(http.MethodGet, "/api/posts/slug/nope", nil), "slug", "nope")
	w := httptest.NewRecorder()
	GetPostBySlug(store).ServeHTTP(w, r)
	if w.Code != http.StatusNotFound {
		t.Errorf("got status %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestCreatePost(t *testing.T) {
	store := newTestStore(t)

	body := jsonBody(t, models.PostInput{
		Title:    "  Mi primer post  ",
		Content:  "uno dos tres cuatro",
		Category: "Tecnología",
	})
	r := httptest.NewRequest(http.MethodPost, "/api/posts", body)
	w := httptest.NewRecorder()

	CreatePost(store).ServeHTTP(w, r)

	if w.Code != http.StatusCreated {
		t.Fatalf("got status %d, want %d; body: %s", w.Code, http.StatusCreated, w.Body.String())
	}

	got := decodePost(t, w)
	if got.ID == 0 {
		t.Error("expected an id")
	}
	if got.Title != "Mi primer post" {
		t.Errorf("got title %q, want trimmed title", got.Title)
	}
	if !strings.HasPrefix(got.Slug, "mi-primer-post-") {
		t.Errorf("got slug %q, want mi-primer-post- prefix", got.Slug)
	}
	if got.Status != models.StatusPublished {
		t.Errorf("got status %q, want %q", got.Status, models.StatusPublished)
	}
	if got.WordCount != 4 {
		t.Errorf("got word_count %d, want 4", got.WordCount)
	}
	if got.AutoGenerated {
		t.Error("manual post marked as auto generated")
	}

	stored, err := store.GetPost(context.Background(), got.ID)
	if err != nil {
		t.Fatalf("loading stored post: %v", err)
	}
	if stored.Slug != got.Slug {
		t.Errorf("stored slug %q, response slug %q", stored.Slug, got.Slug)
	}
}

func TestCreatePostValidation(t *testing.T) {
	store := newTestStore(t)

	tests := []struct {
		name string
		body string
	}{
		{name: "invalid json", body: "{"},
		{name: "missing title", body: `{"content":"x","category":"y"}`},
		{name: "missing content", body: `{"title":"x","category":"y"}`},
		{name: "missing category", body: `{"title":"x","content":"y"}`},
		{name: "blank title", body: `{"title":"   ","content":"x","category":"y"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/api/posts", strings.NewReader(tt.body))
			w := httptest.NewRecorder()

			CreatePost(store).ServeHTTP(w, r)

			if w.Code != http.StatusBadRequest {
				t.Errorf("got status %d, want %d", w.Code, http.StatusBadRequest)
			}
		})
	}

	posts, err := store.ListPosts(context.Background(), models.ListOptions{})
	if err != nil {
		t.Fatalf("listing posts: %v", err)
	}
	if len(posts) != 0 {
		t.Errorf("got %d stored posts, want 0", len(posts))
	}
}

func TestUpdatePost(t *testing.T) {
	store := newTestStore(t)
	p := seedPost(t, store, "Titulo viejo", "Tecnología", time.Now())
	id := strconv.FormatInt(p.ID, 10)

	t.Run("updates fields and keeps slug", func(t *testing.T) {
		body := jsonBody(t, models.PostInput{Title: "Titulo nuevo", Content: "Texto nuevo", Category: "Ciencia"})
		r := withURLParam(httptest.NewRequest(http.MethodPut, "/api/posts/"+id, body), "id", id)
		w := httptest.NewRecorder()

		UpdatePost(store).ServeHTTP(w, r)

		if w.Code != http.StatusOK {
			t.Fatalf("got status %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
		}
		got := decodePost(t, w)
		if got.Title != "Titulo nuevo" || got.Content != "Texto nuevo" || got.Category != "Ciencia" {
			t.Errorf("got %+v, want updated fields", got.Post)
		}
		if got.Slug != p.Slug {
			t.Errorf("got slug %q, want %q", got.Slug, p.Slug)
		}
	})

	t.Run("missing post", func(t *testing.T) {
		body := jsonBody(t, models.PostInput{Title: "a", Content: "b", Category: "c"})
		r := withURLParam(httptest.NewRequest(http.MethodPut, "/api/posts/999", body), "id", "999")
		w := httptest.NewRecorder()

		UpdatePost(store).ServeHTTP(w, r)

		if w.Code != http.StatusNotFound {
			t.Errorf("got status %d, want %d", w.Code, http.StatusNotFound)
		}
	})

	t.Run("missing fields", func(t *testing.T) {
		body := jsonBody(t, models.PostInput{Title: "a"})
		r := withURLParam(httptest.NewRequest(http.MethodPut, "/api/posts/"+id, body), "id", id)
		w := httptest.NewRecorder()

		UpdatePost(store).ServeHTTP(w, r)

		if w.Code != http.StatusBadRequest {
			t.Errorf("got status %d, want %d", w.Code, http.StatusBadRequest)
		}
	})
}

func TestDeletePost(t *testing.T) {
	store := newTestStore(t)
	p := seedPost(t, store, "Para borrar", "Tecnología", time.Now())
	id := strconv.FormatInt(p.ID, 10)

	r := withURLParam(httptest.NewRequest(http.MethodDelete, "/api/posts/"+id, nil), "id", id)
	w := httptest.NewRecorder()
	DeletePost(store).ServeHTTP(w, r)

	if w.Code != http.StatusNoContent {
		t.Fatalf("got status %d, want %d", w.Code, http.StatusNoContent)
	}

	r = withURLParam(httptest.NewRequest(http.MethodDelete, "/api/posts/"+id, nil), "id", id)
	w = httptest.NewRecorder()
	DeletePost(store).ServeHTTP(w, r)

	if w.Code != http.StatusNotFound {
		t.Errorf("second delete got status %d, want %d", w.Code, http.StatusNotFound)
	}
}
