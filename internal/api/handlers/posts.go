package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/aifeed/aifeed/internal/ai"
	"github.com/aifeed/aifeed/internal/autopost"
	"github.com/aifeed/aifeed/internal/metrics"
	"github.com/aifeed/aifeed/internal/models"
	"github.com/aifeed/aifeed/internal/storage"
)

// maxListLimit caps the page size of GET /api/posts.
const maxListLimit = 500

// PostResponse is a post as returned by the API.
type PostResponse struct {
	models.Post
	ReadingMinutes int `json:"reading_minutes"`
}

func newPostResponse(p models.Post) PostResponse {
	return PostResponse{Post: p, ReadingMinutes: models.ReadingMinutes(p.Content)}
}

// ListPosts handles GET /api/posts. Query parameters: category, q, limit,
// offset. Posts are returned newest first.
func ListPosts(store storage.PostStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		opts := models.ListOptions{
			Category: strings.TrimSpace(q.Get("category")),
			Query:    strings.TrimSpace(q.Get("q")),
		}

		var err error
		if opts.Limit, err = intParam(q.Get("limit"), storage.DefaultListLimit); err != nil || opts.Limit < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		if opts.Limit > maxListLimit {
			opts.Limit = maxListLimit
		}
		if opts.Offset, err = intParam(q.Get("offset"), 0); err != nil || opts.Offset < 0 {
			writeError(w, http.StatusBadRequest, "offset must be a non-negative integer")
			return
		}

		posts, err := store.ListPosts(r.Context(), opts)
		if err != nil {
			slog.Error("failed to list posts", "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to load posts")
			return
		}

		out := make([]PostResponse, len(posts))
		for i, p := range posts {
			out[i] = newPostResponse(p)
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// GetPost handles GET /api/posts/{id}.
func GetPost(store storage.PostStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseID(r, "id")
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		post, err := store.GetPost(r.Context(), id)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				writeError(w, http.StatusNotFound, "Post not found")
				return
			}
			slog.Error("failed to get post", "id", id, "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to load post")
			return
		}

		writeJSON(w, http.StatusOK, newPostResponse(*post))
	}
}

// GetPostBySlug handles GET /api/posts/slug/{slug}. Every read counts as a
// view.
func GetPostBySlug(store storage.PostStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slug := chi.URLParam(r, "slug")

		post, err := store.GetPostBySlug(r.Context(), slug)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				writeError(w, http.StatusNotFound, "Post not found")
				return
			}
			slog.Error("failed to get post by slug", "slug", slug, "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to load post")
			return
		}

		if err := store.IncrementViews(r.Context(), post.ID); err != nil {
			slog.Warn("failed to count view", "id", post.ID, "error", err)
		} else {
			post.Views++
		}

		writeJSON(w, http.StatusOK, newPostResponse(*post))
	}
}

// CreatePost handles POST /api/posts. Title, content and category are all
// required.
func CreatePost(store storage.PostStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		in, ok := decodePostInput(w, r)
		if !ok {
			return
		}

		now := time.Now()
		post, err := store.CreatePost(r.Context(), &models.Post{
			Title:     in.Title,
			Content:   in.Content,
			Category:  in.Category,
			Slug:      autopost.Slug(in.Title, now),
			CreatedAt: now,
			Status:    models.StatusPublished,
			WordCount: ai.CountWords(in.Content),
		})
		if err != nil {
			slog.Error("failed to create post", "error", err)
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		metrics.ObservePublished(metrics.SourceManual)

		writeJSON(w, http.StatusCreated, newPostResponse(*post))
	}
}

// UpdatePost handles PUT /api/posts/{id}. The slug is kept.
func UpdatePost(store storage.PostStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseID(r, "id")
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		in, ok := decodePostInput(w, r)
		if !ok {
			return
		}

		post, err := store.UpdatePost(r.Context(), id, in)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				writeError(w, http.StatusNotFound, "Post not found")
				return
			}
			slog.Error("failed to update post", "id", id, "error", err)
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		writeJSON(w, http.StatusOK, newPostResponse(*post))
	}
}

// DeletePost handles DELETE /api/posts/{id}.
func DeletePost(store storage.PostStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseID(r, "id")
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		if err := store.DeletePost(r.Context(), id); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				writeError(w, http.StatusNotFound, "Post not found")
				return
			}
			slog.Error("failed to delete post", "id", id, "error", err)
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// decodePostInput reads and checks a post body, writing a 400 on failure.
func decodePostInput(w http.ResponseWriter, r *http.Request) (models.PostInput, bool) {
	var in models.PostInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return in, false
	}

	in.Title = strings.TrimSpace(in.Title)
	in.Content = strings.TrimSpace(in.Content)
	in.Category = strings.TrimSpace(in.Category)
	if in.Title == "" || in.Content == "" || in.Category == "" {
		writeError(w, http.StatusBadRequest, "title, content and category are required")
		return in, false
	}
	return in, true
}

// intParam parses an optional integer query parameter.
func intParam(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}
