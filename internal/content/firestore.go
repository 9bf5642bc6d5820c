package content

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreConfig identifies the project and collection to read.
type FirestoreConfig struct {
	ProjectID  string
	APIKey     string
	Collection string
}

// FirestoreStore reads articles from a Firestore collection.
type FirestoreStore struct {
	client     *firestore.Client
	collection string
}

// NewFirestoreStore connects to Firestore. An empty APIKey falls back to
// application default credentials; FIRESTORE_EMULATOR_HOST is honoured by the
// client library.
func NewFirestoreStore(ctx context.Context, cfg FirestoreConfig) (*FirestoreStore, error) {
	var opts []option.ClientOption
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}

	client, err := firestore.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("firestore client: %w", err)
	}

	collection := cfg.Collection
	if collection == "" {
		collection = DefaultCollection
	}
	return &FirestoreStore{client: client, collection: collection}, nil
}

func (s *FirestoreStore) FetchCollection(ctx context.Context) ([]Article, error) {
	snaps, err := s.client.Collection(s.collection).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", s.collection, err)
	}
	return articlesFromSnapshots(snaps), nil
}

func (s *FirestoreStore) FetchOne(ctx context.Context, slug string) (*Article, error) {
	ref := s.client.Collection(s.collection).Doc(slug)
	if ref == nil {
		return nil, nil
	}

	snap, err := ref.Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("get %s/%s: %w", s.collection, slug, err)
	}
	if !snap.Exists() {
		return nil, nil
	}

	a := fromFields(snap.Data())
	a.ID = snap.Ref.ID
	return &a, nil
}

// Watch streams collection snapshots until ctx is done.
func (s *FirestoreStore) Watch(ctx context.Context, fn func([]Article)) error {
	it := s.client.Collection(s.collection).Snapshots(ctx)
	defer it.Stop()

	for {
		qs, err := it.Next()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("watch %s: %w", s.collection, err)
		}

		snaps, err := qs.Documents.GetAll()
		if err != nil {
			return fmt.Errorf("read %s snapshot: %w", s.collection, err)
		}
		fn(articlesFromSnapshots(snaps))
	}
}

func (s *FirestoreStore) Close() error {
	return s.client.Close()
}

func articlesFromSnapshots(snaps []*firestore.DocumentSnapshot) []Article {
	articles := make([]Article, 0, len(snaps))
	for _, snap := range snaps {
		a := fromFields(snap.Data())
		a.ID = snap.Ref.ID
		articles = append(articles, a)
	}
	return articles
}
