package connectors

import "sortable/internal"

// FeedConnector fetches raw feed emails from one mailbox provider.
type FeedConnector interface {
	FetchInbox(label string, max int) ([]internal.FetchedFeedMessage, error)
}
