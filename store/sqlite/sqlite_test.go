package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/nevindra/scout/tools/notes"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s := New(filepath.Join(t.TempDir(), "notes.db"))
	t.Cleanup(func() { s.Close() })
	if err := s.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return s
}

func saveNote(t *testing.T, s *Store, id, title, content, createdAt string, tags ...string) {
	t.Helper()
	err := s.Save(context.Background(), notes.Note{
		ID:         id,
		Title:      title,
		Content:    content,
		Tags:       tags,
		SourceURLs: []string{"https://example.com/" + id},
		CreatedAt:  createdAt,
		UpdatedAt:  createdAt,
	})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
}

func TestSaveAndGet(t *testing.T) {
	s := testStore(t)
	saveNote(t, s, "n1", "Go generics", "Type parameters overview", "2026-01-01T10:00:00Z", "go")

	n, err := s.Get(context.Background(), "n1")
	if err != nil {
		t.Fatal(err)
	}
	if n.Title != "Go generics" || n.Content != "Type parameters overview" {
		t.Errorf("note = %+v", n)
	}
	if len(n.Tags) != 1 || n.Tags[0] != "go" {
		t.Errorf("tags = %v", n.Tags)
	}
	if len(n.SourceURLs) != 1 {
		t.Errorf("source urls = %v", n.SourceURLs)
	}
}

func TestGetNotFound(t *testing.T) {
	s := testStore(t)
	_, err := s.Get(context.Background(), "missing")
	if !errors.Is(err, notes.ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
}

func TestSaveReplacesExisting(t *testing.T) {
	s := testStore(t)
	saveNote(t, s, "n1", "Original", "v1", "2026-01-01T10:00:00Z")
	saveNote(t, s, "n1", "Updated", "v2", "2026-01-01T10:00:00Z")

	n, err := s.Get(context.Background(), "n1")
	if err != nil {
		t.Fatal(err)
	}
	if n.Title != "Updated" || n.Content != "v2" {
		t.Errorf("note = %+v", n)
	}

	_, total, err := s.List(context.Background(), notes.Query{Limit: 10})
	if err != nil {
		t.Fatal(err)
	}
	if total != 1 {
		t.Errorf("total = %d", total)
	}
}

func TestListNewestFirst(t *testing.T) {
	s := testStore(t)
	saveNote(t, s, "old", "Old note", "x", "2026-01-01T10:00:00Z")
	saveNote(t, s, "new", "New note", "x", "2026-02-01T10:00:00Z")

	got, total, err := s.List(context.Background(), notes.Query{Limit: 10})
	if err != nil {
		t.Fatal(err)
	}
	if total != 2 || len(got) != 2 {
		t.Fatalf("total = %d, returned = %d", total, len(got))
	}
	if got[0].ID != "new" || got[1].ID != "old" {
		t.Errorf("order = %s, %s", got[0].ID, got[1].ID)
	}
}

func TestListTextQuery(t *testing.T) {
	s := testStore(t)
	saveNote(t, s, "n1", "Rust ownership", "borrow checker", "2026-01-01T10:00:00Z")
	saveNote(t, s, "n2", "Go channels", "share memory by communicating", "2026-01-02T10:00:00Z")
	saveNote(t, s, "n3", "Scheduling", "goroutine scheduler details", "2026-01-03T10:00:00Z")

	got, total, err := s.List(context.Background(), notes.Query{Text: "goroutine", Limit: 10})
	if err != nil {
		t.Fatal(err)
	}
	if total != 1 || got[0].ID != "n3" {
		t.Errorf("got = %+v, total = %d", got, total)
	}
}

func TestListTagFilterRequiresAll(t *testing.T) {
	s := testStore(t)
	saveNote(t, s, "n1", "A", "x", "2026-01-01T10:00:00Z", "go", "web")
	saveNote(t, s, "n2", "B", "x", "2026-01-02T10:00:00Z", "go")

	got, total, err := s.List(context.Background(), notes.Query{Tags: []string{"go", "web"}, Limit: 10})
	if err != nil {
		t.Fatal(err)
	}
	if total != 1 || got[0].ID != "n1" {
		t.Errorf("got = %+v, total = %d", got, total)
	}
}

func TestListPagination(t *testing.T) {
	s := testStore(t)
	saveNote(t, s, "n1", "A", "x", "2026-01-01T10:00:00Z")
	saveNote(t, s, "n2", "B", "x", "2026-01-02T10:00:00Z")
	saveNote(t, s, "n3", "C", "x", "2026-01-03T10:00:00Z")

	got, total, err := s.List(context.Background(), notes.Query{Limit: 2, Offset: 1})
	if err != nil {
		t.Fatal(err)
	}
	if total != 3 {
		t.Errorf("total = %d", total)
	}
	if len(got) != 2 || got[0].ID != "n2" || got[1].ID != "n1" {
		t.Errorf("page = %+v", got)
	}

	got, _, err = s.List(context.Background(), notes.Query{Limit: 2, Offset: 10})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("out-of-range page = %+v", got)
	}
}
