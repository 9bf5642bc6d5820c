package content

import "context"

// DefaultCollection is the collection the site reads articles from.
const DefaultCollection = "posts"

// Store reads articles from a document source.
type Store interface {
	// FetchCollection returns every article in the collection in store order.
	FetchCollection(ctx context.Context) ([]Article, error)
	// FetchOne returns the document keyed by slug, or nil when it does not exist.
	FetchOne(ctx context.Context, slug string) (*Article, error)
	Close() error
}

// Watcher is implemented by stores that can push collection updates.
// Watch calls fn with the full collection on every change until ctx ends or
// the watch fails.
type Watcher interface {
	Watch(ctx context.Context, fn func([]Article)) error
}
