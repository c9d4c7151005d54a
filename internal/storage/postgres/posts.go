// Package postgres implements storage.PostStore on a hosted Postgres
// database (Supabase or any other Postgres endpoint) through pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aifeed/aifeed/internal/models"
	"github.com/aifeed/aifeed/internal/storage"
)

var _ storage.PostStore = (*Store)(nil)

// Config controls the connection pool.
type Config struct {
	DSN             string
	MaxConns        int32
	MaxConnLifetime time.Duration
}

// pgxIface is the subset of *pgxpool.Pool the store needs. pgxmock pools
// satisfy it too.
type pgxIface interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Store writes and reads the post table in Postgres.
type Store struct {
	pool pgxIface
	now  func() time.Time
}

// New connects a pool using cfg and returns a Store.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{pool: pool, now: time.Now}, nil
}

// NewWithPool builds a Store from an existing pool (primarily for testing).
func NewWithPool(pool pgxIface) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &Store{pool: pool, now: time.Now}, nil
}

// Close releases the pool.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

const schema = `
CREATE TABLE IF NOT EXISTS post (
	id              BIGSERIAL PRIMARY KEY,
	title           TEXT        NOT NULL,
	content         TEXT        NOT NULL,
	category        TEXT        NOT NULL DEFAULT '',
	slug            TEXT        NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	author          TEXT,
	status          TEXT        NOT NULL DEFAULT 'published',
	views           INTEGER     NOT NULL DEFAULT 0,
	likes           INTEGER     NOT NULL DEFAULT 0,
	shares          INTEGER     NOT NULL DEFAULT 0,
	topic           TEXT,
	source          TEXT,
	relevance_score DOUBLE PRECISION,
	word_count      INTEGER,
	auto_generated  BOOLEAN     NOT NULL DEFAULT false,
	ai_provider     TEXT
);
CREATE INDEX IF NOT EXISTS idx_post_created_at ON post (created_at DESC);
CREATE INDEX IF NOT EXISTS idx_post_slug ON post (slug);
`

// EnsureSchema creates the post table when it does not exist yet. Hosted
// projects that manage their schema elsewhere can skip it.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure post schema: %w", err)
	}
	return nil
}

const postColumns = `id, title, content, category, slug, created_at, author, status,
	views, likes, shares, topic, source, relevance_score, word_count,
	auto_generated, ai_provider`

// CreatePost inserts p and returns the stored row.
func (s *Store) CreatePost(ctx context.Context, p *models.Post) (*models.Post, error) {
	createdAt := p.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}
	status := p.Status
	if status == "" {
		status = models.StatusPublished
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO post (title, content, category, slug, created_at, author, status,
			views, likes, shares, topic, source, relevance_score, word_count,
			auto_generated, ai_provider)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING `+postColumns,
		p.Title, p.Content, p.Category, p.Slug, createdAt.UTC(),
		text(p.Author), status, p.Views, p.Likes, p.Shares,
		text(p.Topic), text(p.Source), float8(p.RelevanceScore), int4(p.WordCount),
		p.AutoGenerated, text(p.AIProvider),
	)
	post, err := scanPost(row)
	if err != nil {
		return nil, &storage.PersistenceError{Op: "insert post", Err: err}
	}
	return post, nil
}

// GetPost returns the post with the given ID or storage.ErrNotFound.
func (s *Store) GetPost(ctx context.Context, id int64) (*models.Post, error) {
	post, err := scanPost(s.pool.QueryRow(ctx, `SELECT `+postColumns+` FROM post WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get post by id: %w", err)
	}
	return post, nil
}

// GetPostBySlug returns the post with the given slug or storage.ErrNotFound.
func (s *Store) GetPostBySlug(ctx context.Context, slug string) (*models.Post, error) {
	post, err := scanPost(s.pool.QueryRow(ctx, `SELECT `+postColumns+` FROM post WHERE slug = $1`, slug))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get post by slug: %w", err)
	}
	return post, nil
}

// ListPosts returns posts newest first.
func (s *Store) ListPosts(ctx context.Context, opts models.ListOptions) ([]models.Post, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = storage.DefaultListLimit
	}

	var (
		where []string
		args  []any
	)
	if opts.Category != "" {
		args = append(args, opts.Category)
		where = append(where, fmt.Sprintf("category = $%d", len(args)))
	}
	if q := strings.TrimSpace(opts.Query); q != "" {
		args = append(args, storage.LikePattern(q))
		where = append(where, fmt.Sprintf("(title ILIKE $%d OR content ILIKE $%d)", len(args), len(args)))
	}

	query := `SELECT ` + postColumns + ` FROM post`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	args = append(args, limit, opts.Offset)
	query += fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query posts: %w", err)
	}
	defer rows.Close()

	posts := []models.Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan post row: %w", err)
		}
		posts = append(posts, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate post rows: %w", err)
	}
	return posts, nil
}

// UpdatePost rewrites title, content and category. The slug is untouched.
func (s *Store) UpdatePost(ctx context.Context, id int64, in models.PostInput) (*models.Post, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE post SET title = $1, content = $2, category = $3
		WHERE id = $4
		RETURNING `+postColumns,
		in.Title, in.Content, in.Category, id,
	)
	post, err := scanPost(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, &storage.PersistenceError{Op: "update post", Err: err}
	}
	return post, nil
}

// DeletePost removes a post by ID.
func (s *Store) DeletePost(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM post WHERE id = $1`, id)
	if err != nil {
		return &storage.PersistenceError{Op: "delete post", Err: err}
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// IncrementViews adds one to the view counter.
func (s *Store) IncrementViews(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `UPDATE post SET views = views + 1 WHERE id = $1`, id)
	if err != nil {
		return &storage.PersistenceError{Op: "increment views", Err: err}
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// FindRecentByTitle reports whether a post created at or after since has a
// title containing fragment (ILIKE).
func (s *Store) FindRecentByTitle(ctx context.Context, fragment string, since time.Time) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM post
			WHERE title ILIKE $1 AND created_at >= $2
			LIMIT 1)`,
		storage.LikePattern(fragment), since.UTC(),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check recent titles: %w", err)
	}
	return exists, nil
}

func scanPost(row pgx.Row) (*models.Post, error) {
	var (
		p              models.Post
		author         pgtype.Text
		topic          pgtype.Text
		source         pgtype.Text
		relevanceScore pgtype.Float8
		wordCount      pgtype.Int8
		aiProvider     pgtype.Text
	)
	if err := row.Scan(
		&p.ID, &p.Title, &p.Content, &p.Category, &p.Slug, &p.CreatedAt, &author,
		&p.Status, &p.Views, &p.Likes, &p.Shares, &topic, &source,
		&relevanceScore, &wordCount, &p.AutoGenerated, &aiProvider,
	); err != nil {
		return nil, err
	}
	p.Author = author.String
	p.Topic = topic.String
	p.Source = source.String
	p.RelevanceScore = relevanceScore.Float64
	p.WordCount = int(wordCount.Int64)
	p.AIProvider = aiProvider.String
	return &p, nil
}

func text(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}

func float8(f float64) pgtype.Float8 {
	return pgtype.Float8{Float64: f, Valid: f != 0}
}

func int4(n int) pgtype.Int4 {
	return pgtype.Int4{Int32: int32(n), Valid: n != 0}
}
