// Package postgres implements notes.Store using PostgreSQL. Tags are a
// native text[] column so tag filtering happens in SQL, and text search
// uses ILIKE over title and content.
//
// The Store accepts an externally-owned *pgxpool.Pool via constructor
// injection. The caller creates and closes the pool.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nevindra/scout/tools/notes"
)

// Store implements notes.Store backed by PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

var _ notes.Store = (*Store)(nil)

// New creates a Store using an existing pgxpool.Pool.
// The caller owns the pool and is responsible for closing it.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Init creates the notes table and indexes.
// Safe to call multiple times (all statements are idempotent).
func (s *Store) Init(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS notes (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			content TEXT NOT NULL,
			tags TEXT[] NOT NULL DEFAULT '{}',
			source_urls TEXT[] NOT NULL DEFAULT '{}',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS notes_created_idx ON notes(created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS notes_tags_idx ON notes USING gin(tags)`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init notes schema: %w", err)
		}
	}
	return nil
}

// Save inserts a note, or replaces it when the id already exists.
func (s *Store) Save(ctx context.Context, n notes.Note) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO notes (id, title, content, tags, source_urls, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			content = EXCLUDED.content,
			tags = EXCLUDED.tags,
			source_urls = EXCLUDED.source_urls,
			updated_at = EXCLUDED.updated_at`,
		n.ID, n.Title, n.Content, n.Tags, n.SourceURLs, n.CreatedAt, n.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save note: %w", err)
	}
	return nil
}

// List returns notes matching q, newest first, plus the total match count.
func (s *Store) List(ctx context.Context, q notes.Query) ([]notes.Note, int, error) {
	where := ` WHERE TRUE`
	args := []any{}
	if q.Text != "" {
		args = append(args, "%"+q.Text+"%")
		where += fmt.Sprintf(` AND (title ILIKE $%d OR content ILIKE $%d)`, len(args), len(args))
	}
	if len(q.Tags) > 0 {
		args = append(args, q.Tags)
		where += fmt.Sprintf(` AND tags @> $%d`, len(args))
	}

	var total int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM notes`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count notes: %w", err)
	}

	args = append(args, q.Limit, q.Offset)
	query := fmt.Sprintf(
		`SELECT id, title, content, tags, source_urls, created_at, updated_at
		 FROM notes%s ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d`,
		where, len(args)-1, len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list notes: %w", err)
	}
	defer rows.Close()

	var out []notes.Note
	for rows.Next() {
		var n notes.Note
		if err := rows.Scan(&n.ID, &n.Title, &n.Content, &n.Tags, &n.SourceURLs, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan note: %w", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list notes: %w", err)
	}
	return out, total, nil
}

// Get loads one note by id. Returns notes.ErrNotFound for unknown ids.
func (s *Store) Get(ctx context.Context, id string) (notes.Note, error) {
	var n notes.Note
	err := s.pool.QueryRow(ctx,
		`SELECT id, title, content, tags, source_urls, created_at, updated_at FROM notes WHERE id = $1`, id).
		Scan(&n.ID, &n.Title, &n.Content, &n.Tags, &n.SourceURLs, &n.CreatedAt, &n.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return notes.Note{}, notes.ErrNotFound
	}
	if err != nil {
		return notes.Note{}, fmt.Errorf("get note: %w", err)
	}
	return n, nil
}
