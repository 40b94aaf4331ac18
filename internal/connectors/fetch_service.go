package connectors

import (
	"sortable/internal/storage"
)

type FetchService struct {
	db        *storage.DB
	connector FeedConnector
	store     *FeedStoreService
}

type FetchResult struct {
	Fetched int
	Stored  int
	Skipped int
}

func NewFetchService(db *storage.DB, rawFeedDir string, connector FeedConnector) *FetchService {
	return &FetchService{
		db:        db,
		connector: connector,
		store:     NewFeedStoreService(db, rawFeedDir),
	}
}

func (s *FetchService) FetchAndStore(label string, max int) (FetchResult, error) {
	messages, err := s.connector.FetchInbox(label, max)
	if err != nil {
		return FetchResult{}, err
	}

	stored := 0
	skipped := 0
	for _, msg := range messages {
		if !HasFeedContent(msg.Raw) {
			skipped++
			continue
		}
		if _, err := s.store.Store(msg); err != nil {
			return FetchResult{}, err
		}
		stored++
	}

	return FetchResult{Fetched: len(messages), Stored: stored, Skipped: skipped}, nil
}
