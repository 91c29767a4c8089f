package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/hyperjump/kioku/internal/embedding"
	"github.com/hyperjump/kioku/internal/search"
	"github.com/hyperjump/kioku/internal/store/memory"
)

func newTestIngestor(t *testing.T) (*Ingestor, *memory.Store) {
	t.Helper()
	s, err := memory.NewStore(8)
	if err != nil {
		t.Fatal(err)
	}
	encoder := embedding.NewMockEncoder(8)
	return NewIngestor(search.NewEngine(s, 0), encoder), s
}

func TestIngestor_InsertMarkdown(t *testing.T) {
	g, s := newTestIngestor(t)
	ctx := context.Background()

	tag, n, err := g.InsertMarkdown(ctx, "notes", "First sentence. Second sentence.")
	if err != nil {
		t.Fatal(err)
	}
	if tag != "notes" {
		t.Errorf("tag=%q", tag)
	}
	if n != 2 {
		t.Errorf("n=%d", n)
	}
	bag, _ := s.FetchByTag(ctx, "notes")
	if len(bag) != 2 {
		t.Errorf("bag size=%d", len(bag))
	}
}

func TestIngestor_GeneratesTag(t *testing.T) {
	g, _ := newTestIngestor(t)
	tag, _, err := g.InsertMarkdown(context.Background(), "", "A sentence.")
	if err != nil {
		t.Fatal(err)
	}
	if tag == "" {
		t.Error("expected generated tag")
	}
}

func TestIngestor_EmptyDocument(t *testing.T) {
	g, _ := newTestIngestor(t)
	if _, _, err := g.InsertMarkdown(context.Background(), "t", "   "); err == nil {
		t.Error("expected error for document with no chunks")
	}
}

func TestIngestor_InsertMarkdownFile(t *testing.T) {
	g, s := newTestIngestor(t)
	path := filepath.Join(t.TempDir(), "doc.md")
	if err := os.WriteFile(path, []byte("From a file."), 0644); err != nil {
		t.Fatal(err)
	}
	tag, n, err := g.InsertMarkdownFile(context.Background(), "filedoc", path)
	if err != nil {
		t.Fatal(err)
	}
	if tag != "filedoc" || n != 1 {
		t.Errorf("tag=%q n=%d", tag, n)
	}
	bag, _ := s.FetchByTag(context.Background(), "filedoc")
	if len(bag) != 1 {
		t.Errorf("bag size=%d", len(bag))
	}
}

func TestIngestor_FileTagFromName(t *testing.T) {
	g, _ := newTestIngestor(t)
	path := filepath.Join(t.TempDir(), "meeting-notes.md")
	if err := os.WriteFile(path, []byte("Ship it on Friday."), 0644); err != nil {
		t.Fatal(err)
	}
	tag, _, err := g.InsertMarkdownFile(context.Background(), "", path)
	if err != nil {
		t.Fatal(err)
	}
	if tag != "meeting-notes" {
		t.Errorf("tag=%q, want meeting-notes", tag)
	}
}

func TestIngestor_MissingFile(t *testing.T) {
	g, _ := newTestIngestor(t)
	if _, _, err := g.InsertMarkdownFile(context.Background(), "t", "/does/not/exist.md"); err == nil {
		t.Error("expected error for missing file")
	}
}
