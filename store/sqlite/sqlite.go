// Package sqlite implements notes.Store using pure-Go SQLite.
// Zero CGO required; tag filtering is done in-process.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nevindra/scout/tools/notes"

	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

// StoreOption configures a SQLite Store.
type StoreOption func(*Store)

// WithLogger sets a structured logger for the store.
// When set, the store emits debug logs for every operation including
// timing, row counts, and key parameters. If not set, no logs are emitted.
func WithLogger(l *slog.Logger) StoreOption {
	return func(s *Store) { s.logger = l }
}

// Store implements notes.Store backed by a local SQLite file. Tags and
// source URLs are stored as JSON text columns.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ notes.Store = (*Store)(nil)

// nopLogger is a logger that discards all output.
var nopLogger = slog.New(discardHandler{})

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }

// New creates a Store using a local SQLite file at dbPath.
// It opens a single shared connection pool with SetMaxOpenConns(1) so that
// all goroutines serialize through one connection, eliminating SQLITE_BUSY
// errors caused by concurrent writers opening independent connections.
func New(dbPath string, opts ...StoreOption) *Store {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		// sql.Open only fails when the driver is not registered; with the
		// blank import above that never happens.
		panic(fmt.Sprintf("sqlite: open driver: %v", err))
	}
	db.SetMaxOpenConns(1)
	s := &Store{db: db, logger: nopLogger}
	for _, o := range opts {
		o(s)
	}
	s.logger.Debug("sqlite: store opened", "path", dbPath)
	return s
}

// Init creates the notes table.
func (s *Store) Init(ctx context.Context) error {
	start := time.Now()
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS notes (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		content TEXT NOT NULL,
		tags TEXT NOT NULL DEFAULT '[]',
		source_urls TEXT NOT NULL DEFAULT '[]',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`)
	if err != nil {
		s.logger.Error("sqlite: init failed", "error", err, "duration", time.Since(start))
		return fmt.Errorf("create table: %w", err)
	}
	s.logger.Info("sqlite: init completed", "duration", time.Since(start))
	return nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// Save inserts a note, or replaces it when the id already exists.
func (s *Store) Save(ctx context.Context, n notes.Note) error {
	start := time.Now()
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO notes (id, title, content, tags, source_urls, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.Title, n.Content, marshalStrings(n.Tags), marshalStrings(n.SourceURLs), n.CreatedAt, n.UpdatedAt)
	if err != nil {
		s.logger.Error("sqlite: save note failed", "id", n.ID, "error", err)
		return fmt.Errorf("save note: %w", err)
	}
	s.logger.Debug("sqlite: note saved", "id", n.ID, "duration", time.Since(start))
	return nil
}

// List returns notes matching q, newest first, plus the total match count.
// The text query matches title and content; tag filtering requires every
// listed tag and is applied in-process since tags live in a JSON column.
func (s *Store) List(ctx context.Context, q notes.Query) ([]notes.Note, int, error) {
	start := time.Now()

	query := `SELECT id, title, content, tags, source_urls, created_at, updated_at FROM notes`
	var args []any
	if q.Text != "" {
		query += ` WHERE title LIKE ? OR content LIKE ?`
		pattern := "%" + q.Text + "%"
		args = append(args, pattern, pattern)
	}
	query += ` ORDER BY created_at DESC, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		s.logger.Error("sqlite: list notes failed", "error", err)
		return nil, 0, fmt.Errorf("list notes: %w", err)
	}
	defer rows.Close()

	var matched []notes.Note
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, 0, err
		}
		if hasAllTags(n.Tags, q.Tags) {
			matched = append(matched, n)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list notes: %w", err)
	}

	total := len(matched)
	page := paginate(matched, q.Offset, q.Limit)
	s.logger.Debug("sqlite: notes listed",
		"total", total, "returned", len(page), "duration", time.Since(start))
	return page, total, nil
}

// Get loads one note by id. Returns notes.ErrNotFound for unknown ids.
func (s *Store) Get(ctx context.Context, id string) (notes.Note, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, title, content, tags, source_urls, created_at, updated_at FROM notes WHERE id = ?`, id)
	n, err := scanNote(row)
	if err == sql.ErrNoRows {
		return notes.Note{}, notes.ErrNotFound
	}
	if err != nil {
		s.logger.Error("sqlite: get note failed", "id", id, "error", err)
		return notes.Note{}, fmt.Errorf("get note: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanNote(row scanner) (notes.Note, error) {
	var n notes.Note
	var tags, urls string
	if err := row.Scan(&n.ID, &n.Title, &n.Content, &tags, &urls, &n.CreatedAt, &n.UpdatedAt); err != nil {
		return notes.Note{}, err
	}
	n.Tags = unmarshalStrings(tags)
	n.SourceURLs = unmarshalStrings(urls)
	return n, nil
}

func marshalStrings(in []string) string {
	if len(in) == 0 {
		return "[]"
	}
	b, _ := json.Marshal(in)
	return string(b)
}

func unmarshalStrings(raw string) []string {
	var out []string
	if json.Unmarshal([]byte(raw), &out) != nil {
		return []string{}
	}
	if out == nil {
		out = []string{}
	}
	return out
}

func hasAllTags(have, want []string) bool {
	if len(want) == 0 {
		return true
	}
	set := make(map[string]bool, len(have))
	for _, t := range have {
		set[t] = true
	}
	for _, t := range want {
		if !set[t] {
			return false
		}
	}
	return true
}

func paginate(in []notes.Note, offset, limit int) []notes.Note {
	if offset >= len(in) {
		return nil
	}
	in = in[offset:]
	if limit > 0 && len(in) > limit {
		in = in[:limit]
	}
	return in
}
