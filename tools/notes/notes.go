// Package notes implements note persistence for research findings: the Note
// model, validation limits, the Store contract, and the save_note /
// list_notes / get_note tool handlers.
package notes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nevindra/scout"
	"github.com/nevindra/scout/mcp"
)

// Validation limits.
const (
	MaxTitleLength   = 200
	MaxContentLength = 50000
	MaxTags          = 10
	MaxTagLength     = 50
	MaxSourceURLs    = 20

	DefaultListLimit = 20
	MaxListLimit     = 100
)

// Note is a saved research note. Timestamps are RFC 3339 strings so they
// render directly in tool results.
type Note struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Content    string   `json:"content"`
	Tags       []string `json:"tags"`
	SourceURLs []string `json:"source_urls"`
	CreatedAt  string   `json:"created_at"`
	UpdatedAt  string   `json:"updated_at"`
}

// Query filters a note listing.
type Query struct {
	Text   string   // substring match against title and content
	Tags   []string // notes must carry every listed tag
	Limit  int      // defaults to DefaultListLimit, capped at MaxListLimit
	Offset int
}

// ErrNotFound is returned by Store.Get for unknown ids.
var ErrNotFound = errors.New("note not found")

// Store persists notes. store/sqlite and store/postgres implement it.
type Store interface {
	Save(ctx context.Context, note Note) error
	// List returns the matching page plus the total match count.
	List(ctx context.Context, q Query) ([]Note, int, error)
	Get(ctx context.Context, id string) (Note, error)
}

// New creates a Note with a fresh id and current timestamps. Tags and source
// URLs are normalized: whitespace trimmed, empties dropped, source URLs
// capped at MaxSourceURLs.
func New(title, content string, tags, sourceURLs []string) Note {
	now := time.Now().UTC().Format(time.RFC3339)
	if len(sourceURLs) > MaxSourceURLs {
		sourceURLs = sourceURLs[:MaxSourceURLs]
	}
	return Note{
		ID:         uuid.NewString(),
		Title:      strings.TrimSpace(title),
		Content:    content,
		Tags:       cleanStrings(tags),
		SourceURLs: cleanStrings(sourceURLs),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func cleanStrings(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Validate checks title, content, and tags against the note limits and
// returns a structured tool error on the first violation.
func Validate(title, content string, tags []string) error {
	if strings.TrimSpace(title) == "" {
		return &mcp.ToolError{Code: scout.CodeNoteTitleRequired, Message: "Note title is required"}
	}
	if len(title) > MaxTitleLength {
		return &mcp.ToolError{
			Code:    scout.CodeNoteTitleTooLong,
			Message: fmt.Sprintf("Note title must be %d characters or less", MaxTitleLength),
		}
	}
	if strings.TrimSpace(content) == "" {
		return &mcp.ToolError{Code: scout.CodeNoteContentRequired, Message: "Note content is required"}
	}
	if len(content) > MaxContentLength {
		return &mcp.ToolError{
			Code:    scout.CodeNoteContentTooLong,
			Message: fmt.Sprintf("Note content must be %d characters or less", MaxContentLength),
		}
	}
	if len(tags) > MaxTags {
		return &mcp.ToolError{
			Code:    scout.CodeNoteTooManyTags,
			Message: fmt.Sprintf("Maximum %d tags allowed", MaxTags),
		}
	}
	for _, tag := range tags {
		if len(tag) > MaxTagLength {
			short := tag
			if len(short) > 20 {
				short = short[:20] + "..."
			}
			return &mcp.ToolError{
				Code:    scout.CodeNoteTagTooLong,
				Message: fmt.Sprintf("Tag %q exceeds %d character limit", short, MaxTagLength),
			}
		}
	}
	return nil
}

// normalizeQuery applies listing defaults and caps.
func normalizeQuery(q Query) Query {
	if q.Limit <= 0 {
		q.Limit = DefaultListLimit
	}
	if q.Limit > MaxListLimit {
		q.Limit = MaxListLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	q.Tags = cleanStrings(q.Tags)
	return q
}
