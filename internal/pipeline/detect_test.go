package pipeline

import "testing"

func TestDetectListingFeed(t *testing.T) {
	res := DetectListingFeed("Daily listing feed", "Sony | A100 $499.99\nCanon | 7D $1299.00", "", nil)
	if !res.IsFeed {
		t.Fatalf("score=%v reason=%s", res.Score, res.Reason)
	}
}

func TestDetectListingFeedRejectsPlainMail(t *testing.T) {
	res := DetectListingFeed("Lunch on Friday?", "See you at noon.", "", nil)
	if res.IsFeed {
		t.Fatalf("score=%v", res.Score)
	}
}

func TestDetectListingFeedAttachmentSignal(t *testing.T) {
	res := DetectListingFeed("Export attached", "", "", []string{"listings.jsonl"})
	if !res.IsFeed {
		t.Fatalf("score=%v", res.Score)
	}
}
