package content

import (
	"context"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// MemoryStore serves a fixed set of articles. It backs the file backend and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	articles []Article
}

// NewMemoryStore returns a store holding a copy of articles.
func NewMemoryStore(articles []Article) *MemoryStore {
	s := &MemoryStore{}
	s.Replace(articles)
	return s
}

// LoadFile reads a YAML list of articles into a MemoryStore.
func LoadFile(path string) (*MemoryStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read posts file: %w", err)
	}

	var articles []Article
	if err := yaml.Unmarshal(data, &articles); err != nil {
		return nil, fmt.Errorf("parse posts file %s: %w", path, err)
	}
	return NewMemoryStore(articles), nil
}

// Replace swaps the stored articles.
func (s *MemoryStore) Replace(articles []Article) {
	cp := make([]Article, len(articles))
	copy(cp, articles)

	s.mu.Lock()
	s.articles = cp
	s.mu.Unlock()
}

func (s *MemoryStore) FetchCollection(_ context.Context) ([]Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Article, len(s.articles))
	copy(out, s.articles)
	return out, nil
}

// FetchOne matches on Key, so documents stored without an id or slug are
// unreachable, the same as a missing key.
func (s *MemoryStore) FetchOne(_ context.Context, slug string) (*Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, a := range s.articles {
		if a.Key() == slug {
			found := a
			return &found, nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
