package catalog

import (
	"context"
	"time"

	"sortable/internal/config"
	"sortable/internal/storage"
)

// SyncService keeps the sqlite product cache current, either from the
// remote catalog API or from a local products file.
type SyncService struct {
	db     *storage.DB
	client *Client
	cfg    config.Config
}

func NewSyncService(db *storage.DB, cfg config.Config) *SyncService {
	return &SyncService{db: db, client: NewClient(cfg), cfg: cfg}
}

func (s *SyncService) SyncFromAPI(ctx context.Context) (int, error) {
	products, err := s.client.GetProductsScrollAll(ctx)
	if err != nil {
		return 0, err
	}
	if err := s.db.UpsertProducts(products); err != nil {
		return 0, err
	}
	_ = s.db.SetMetadata("catalog.last_api_sync", time.Now().UTC().Format(time.RFC3339))
	return len(products), nil
}

func (s *SyncService) LoadFromFile(path string) (int, error) {
	products, err := LoadFile(path)
	if err != nil {
		return 0, err
	}
	// Reject malformed entries before caching anything; a partial
	// catalog load would silently change match outcomes.
	if _, err := BuildIndex(products); err != nil {
		return 0, err
	}
	if err := s.db.UpsertProducts(products); err != nil {
		return 0, err
	}
	_ = s.db.SetMetadata("catalog.last_file_load", time.Now().UTC().Format(time.RFC3339))
	return len(products), nil
}
