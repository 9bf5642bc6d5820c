package app

import (
	"context"
	"fmt"

	"lensbyexample/internal/content"
)

// OpenStore builds the content store selected by cfg.Backend.
func OpenStore(ctx context.Context, cfg Config) (content.Store, error) {
	switch cfg.Backend {
	case BackendFirestore:
		store, err := content.NewFirestoreStore(ctx, content.FirestoreConfig{
			ProjectID:  cfg.Firestore.ProjectID,
			APIKey:     cfg.Firestore.APIKey,
			Collection: cfg.Collection,
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	case BackendMySQL:
		store, err := content.OpenMySQL(cfg.MySQLDSN)
		if err != nil {
			return nil, fmt.Errorf("open db: %w", err)
		}
		if err := store.Ping(ctx); err != nil {
			store.Close()
			return nil, fmt.Errorf("ping db: %w", err)
		}
		return store, nil
	case BackendFile:
		store, err := content.LoadFile(cfg.PostsFile)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported content backend %q", cfg.Backend)
	}
}
