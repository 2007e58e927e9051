// Package backend opens the document store named in the configuration.
package backend

import (
	"context"
	"fmt"

	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/config"
	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/docstore"
	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/mongostore"
	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/store"
)

// Open connects the configured backend. SQLite databases are migrated first.
func Open(ctx context.Context, cfg *config.Config) (docstore.Store, error) {
	switch cfg.DocStore {
	case config.BackendMongo:
		s, err := mongostore.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.BackendMemory:
		var opts []docstore.MemoryOption
		if cfg.MemorySnapshot != "" {
			opts = append(opts, docstore.WithSnapshot(cfg.MemorySnapshot))
		}
		m, err := docstore.NewMemory(opts...)
		if err != nil {
			return nil, err
		}
		return m, nil
	case config.BackendSQLite:
		s, err := store.NewStore(cfg.DBPath)
		if err != nil {
			return nil, err
		}
		if err := s.Migrate(store.Migrations()); err != nil {
			s.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		return s, nil
	}
	return nil, fmt.Errorf("unknown document store %q", cfg.DocStore)
}
