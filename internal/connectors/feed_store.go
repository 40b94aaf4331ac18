package connectors

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"

	"sortable/internal"
	"sortable/internal/storage"
)

// FeedStoreService writes the raw .eml next to its feeds row so a
// feed can be reprocessed later without refetching.
type FeedStoreService struct {
	db         *storage.DB
	rawFeedDir string
}

func NewFeedStoreService(db *storage.DB, rawFeedDir string) *FeedStoreService {
	return &FeedStoreService{db: db, rawFeedDir: rawFeedDir}
}

func (s *FeedStoreService) Store(msg internal.FetchedFeedMessage) (internal.FeedRow, error) {
	hashBytes := sha256.Sum256(msg.Raw)
	hash := hex.EncodeToString(hashBytes[:])

	if err := os.MkdirAll(s.rawFeedDir, 0o755); err != nil {
		return internal.FeedRow{}, err
	}

	rawPath := filepath.Join(s.rawFeedDir, hash+".eml")
	if _, err := os.Stat(rawPath); os.IsNotExist(err) {
		if err := os.WriteFile(rawPath, msg.Raw, 0o644); err != nil {
			return internal.FeedRow{}, err
		}
	}

	return s.db.UpsertFeed(msg.Provider, msg.MessageID, msg.Subject, msg.From, msg.ReceivedAt, hash, rawPath, "fetched")
}
