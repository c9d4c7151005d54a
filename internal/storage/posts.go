package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aifeed/aifeed/internal/models"
)

const postColumns = `id, title, content, category, slug, created_at, author, status,
		views, likes, shares, topic, source, relevance_score, word_count,
		auto_generated, ai_provider`

// CreatePost inserts a post. A zero CreatedAt is filled with the current
// time and an empty Status defaults to published.
func (s *Store) CreatePost(ctx context.Context, p *models.Post) (*models.Post, error) {
	createdAt := p.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}
	status := p.Status
	if status == "" {
		status = models.StatusPublished
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO post (title, content, category, slug, created_at, author, status,
			views, likes, shares, topic, source, relevance_score, word_count,
			auto_generated, ai_provider)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Title, p.Content, p.Category, p.Slug, formatTime(createdAt),
		nullableString(p.Author), status, p.Views, p.Likes, p.Shares,
		nullableString(p.Topic), nullableString(p.Source), nullableFloat(p.RelevanceScore),
		nullableInt(p.WordCount), p.AutoGenerated, nullableString(p.AIProvider),
	)
	if err != nil {
		return nil, &PersistenceError{Op: "insert post", Err: err}
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, &PersistenceError{Op: "insert post", Err: err}
	}
	return s.GetPost(ctx, id)
}

// GetPost returns the post with the given ID.
// Returns nil, ErrNotFound if no matching row exists.
func (s *Store) GetPost(ctx context.Context, id int64) (*models.Post, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+postColumns+` FROM post WHERE id = ?`, id)
	post, err := scanPost(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting post by id: %w", err)
	}
	return post, nil
}

// GetPostBySlug returns the post with the given slug.
// Returns nil, ErrNotFound if no matching row exists.
func (s *Store) GetPostBySlug(ctx context.Context, slug string) (*models.Post, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+postColumns+` FROM post WHERE slug = ?`, slug)
	post, err := scanPost(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting post by slug: %w", err)
	}
	return post, nil
}

// ListPosts returns posts ordered by created_at DESC, optionally restricted
// to one category and to titles or bodies containing opts.Query.
func (s *Store) ListPosts(ctx context.Context, opts models.ListOptions) ([]models.Post, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}

	query := `SELECT ` + postColumns + ` FROM post WHERE 1 = 1`
	var args []any
	if opts.Category != "" {
		query += ` AND category = ?`
		args = append(args, opts.Category)
	}
	if q := strings.TrimSpace(opts.Query); q != "" {
		query += ` AND (title LIKE ? ESCAPE '\' OR content LIKE ? ESCAPE '\')`
		pattern := LikePattern(q)
		args = append(args, pattern, pattern)
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	args = append(args, limit, opts.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying posts: %w", err)
	}
	defer rows.Close()

	posts := []models.Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning post row: %w", err)
		}
		posts = append(posts, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating post rows: %w", err)
	}
	return posts, nil
}

// UpdatePost rewrites title, content and category of the post with the given
// ID and returns the updated row.
func (s *Store) UpdatePost(ctx context.Context, id int64, in models.PostInput) (*models.Post, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE post SET title = ?, content = ?, category = ? WHERE id = ?`,
		in.Title, in.Content, in.Category, id,
	)
	if err != nil {
		return nil, &PersistenceError{Op: "update post", Err: err}
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return s.GetPost(ctx, id)
}

// DeletePost removes the post with the given ID.
func (s *Store) DeletePost(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM post WHERE id = ?`, id)
	if err != nil {
		return &PersistenceError{Op: "delete post", Err: err}
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// IncrementViews adds one to the post's view counter.
func (s *Store) IncrementViews(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `UPDATE post SET views = views + 1 WHERE id = ?`, id)
	if err != nil {
		return &PersistenceError{Op: "increment views", Err: err}
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// FindRecentByTitle reports whether any post created at or after since has a
// title containing fragment. Case is folded in Go because SQLite's LIKE only
// folds ASCII letters.
func (s *Store) FindRecentByTitle(ctx context.Context, fragment string, since time.Time) (bool, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT title FROM post WHERE created_at >= ?`, formatTime(since))
	if err != nil {
		return false, fmt.Errorf("checking recent titles: %w", err)
	}
	defer rows.Close()

	needle := strings.ToLower(fragment)
	for rows.Next() {
		var title string
		if err := rows.Scan(&title); err != nil {
			return false, fmt.Errorf("scanning recent title: %w", err)
		}
		if strings.Contains(strings.ToLower(title), needle) {
			return true, nil
		}
	}
	if err := rows.Err(); err != nil {
		return false, fmt.Errorf("iterating recent titles: %w", err)
	}
	return false, nil
}

// scanner is a minimal interface satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanPost(row scanner) (*models.Post, error) {
	var (
		p              models.Post
		createdAt      string
		author         sql.NullString
		topic          sql.NullString
		source         sql.NullString
		relevanceScore sql.NullFloat64
		wordCount      sql.NullInt64
		aiProvider     sql.NullString
	)

	if err := row.Scan(
		&p.ID, &p.Title, &p.Content, &p.Category, &p.Slug, &createdAt, &author,
		&p.Status, &p.Views, &p.Likes, &p.Shares, &topic, &source,
		&relevanceScore, &wordCount, &p.AutoGenerated, &aiProvider,
	); err != nil {
		return nil, err
	}

	p.CreatedAt = parseTime(createdAt)
	p.Author = author.String
	p.Topic = topic.String
	p.Source = source.String
	p.RelevanceScore = relevanceScore.Float64
	p.WordCount = int(wordCount.Int64)
	p.AIProvider = aiProvider.String
	return &p, nil
}

// nullableString converts an empty string to nil for nullable TEXT columns.
func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullableInt(n int) *int {
	if n == 0 {
		return nil
	}
	return &n
}

func nullableFloat(f float64) *float64 {
	if f == 0 {
		return nil
	}
	return &f
}
