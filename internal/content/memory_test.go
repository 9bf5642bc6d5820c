package content

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "posts.yaml")
	data := `- slug: lenses
  section: Intro
  title: Lenses
  url: /articles/intro/lenses
  what: Focus on one field
  why: Updating nested records
  content: "<p>lenses</p>"
- slug: prisms
  section: Advanced
  title: Prisms
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	store, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error: %v", err)
	}

	articles, err := store.FetchCollection(context.Background())
	if err != nil {
		t.Fatalf("FetchCollection() error: %v", err)
	}
	if len(articles) != 2 {
		t.Fatalf("loaded %d articles, want 2", len(articles))
	}
	if articles[0].What != "Focus on one field" || articles[0].Content != "<p>lenses</p>" {
		t.Fatalf("unexpected first article: %+v", articles[0])
	}

	got, err := store.FetchOne(context.Background(), "prisms")
	if err != nil {
		t.Fatalf("FetchOne() error: %v", err)
	}
	if got == nil || got.Section != "Advanced" {
		t.Fatalf("FetchOne(prisms) = %+v", got)
	}
}

func TestLoadFileErrors(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("slug: [unterminated"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Fatal("expected error for malformed file")
	}
}

func TestMemoryStoreMissing(t *testing.T) {
	store := NewMemoryStore([]Article{{Section: "orphan", Title: "No slug"}})

	got, err := store.FetchOne(context.Background(), "missing")
	if err != nil {
		t.Fatalf("FetchOne() error: %v", err)
	}
	if got != nil {
		t.Fatalf("FetchOne(missing) = %+v, want nil", got)
	}
}

func TestMemoryStoreCopies(t *testing.T) {
	src := []Article{{Slug: "a", Title: "A"}}
	store := NewMemoryStore(src)
	src[0].Title = "changed"

	articles, _ := store.FetchCollection(context.Background())
	articles[0].Title = "also changed"

	again, _ := store.FetchCollection(context.Background())
	if again[0].Title != "A" {
		t.Fatalf("store was mutated through a caller slice: %q", again[0].Title)
	}
}
