package pipeline

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"sortable/internal"
	"sortable/internal/catalog"
	"sortable/internal/config"
	"sortable/internal/storage"
)

type RunResult struct {
	Products      int
	Listings      int
	Chunks        int
	SkippedChunks int
	Matched       int
	Unmatched     int
}

// RunFile is the whole file-to-file pipeline: load the catalog, build
// the index once, stream listings through the matcher in bounded
// chunks, then emit every leaf. The index is the only shared state
// and is complete before the first listing is read.
func RunFile(productsPath, listingsPath, outputPath string, chunkSize int, xlsxPath string) (RunResult, error) {
	products, err := catalog.LoadFile(productsPath)
	if err != nil {
		return RunResult{}, err
	}
	index, err := catalog.BuildIndex(products)
	if err != nil {
		return RunResult{}, err
	}

	f, err := os.Open(listingsPath)
	if err != nil {
		return RunResult{}, err
	}
	defer f.Close()

	matcher := NewMatcher(index)
	reader := NewChunkReader(f, chunkSize)

	var exportRows []internal.AssignmentExportRow
	listings := 0
	for {
		chunk, ok, err := reader.Next()
		if err != nil {
			return RunResult{}, err
		}
		if !ok {
			break
		}
		for _, listing := range chunk {
			listings++
			match := matcher.Match(listing)
			if xlsxPath != "" {
				exportRows = append(exportRows, ExportRow(listing, match))
			}
		}
	}

	if err := WriteReport(index.Leaves(), outputPath); err != nil {
		return RunResult{}, err
	}
	if xlsxPath != "" {
		if err := ExportRowsToXLSX(exportRows, xlsxPath); err != nil {
			return RunResult{}, err
		}
	}

	return RunResult{
		Products:      index.Size(),
		Listings:      listings,
		Chunks:        reader.Chunks,
		SkippedChunks: reader.Skipped,
		Matched:       matcher.Matched,
		Unmatched:     matcher.Unmatched,
	}, nil
}

type ProcessingService struct {
	db  *storage.DB
	cfg config.Config
}

func NewProcessingService(db *storage.DB, cfg config.Config) *ProcessingService {
	return &ProcessingService{db: db, cfg: cfg}
}

type ProcessResult struct {
	FeedID    int
	Processed int
	Matched   int
	Unmatched int
}

func (s *ProcessingService) ProcessByProviderMessageID(provider, messageID string) (ProcessResult, error) {
	feed, err := s.db.MustFeedByProviderMessageID(provider, messageID)
	if err != nil {
		return ProcessResult{}, err
	}
	return s.ProcessFeed(feed)
}

func (s *ProcessingService) ProcessPending(limit int, provider string) (int, int, error) {
	pending, err := s.db.ListFeedsByStatus("fetched", limit)
	if err != nil {
		return 0, 0, err
	}
	processedFeeds := 0
	processedListings := 0
	for _, feed := range pending {
		if provider != "" && feed.Provider != provider {
			continue
		}
		res, err := s.ProcessFeed(feed)
		if err != nil {
			return processedFeeds, processedListings, err
		}
		processedFeeds++
		processedListings += res.Processed
	}
	return processedFeeds, processedListings, nil
}

// ProcessFeed matches every listing extracted from one stored feed
// email against the cached catalog and records the assignments.
func (s *ProcessingService) ProcessFeed(feed internal.FeedRow) (ProcessResult, error) {
	start := time.Now()
	raw, err := os.ReadFile(feed.RawRef)
	if err != nil {
		return ProcessResult{}, err
	}

	listings, subject, text, attachmentNames, err := ExtractListingsFromFeedRaw(raw)
	if err != nil {
		return ProcessResult{}, err
	}

	detect := DetectListingFeed(firstNonEmpty(subject, feed.Subject), text, "", attachmentNames)
	if err := s.db.ClearFeedProcessing(feed.ID); err != nil {
		return ProcessResult{}, err
	}

	if !detect.IsFeed {
		_ = s.db.UpdateFeedStatus(feed.ID, "skipped")
		_ = s.db.InsertRun(traceID(), feed.ID, map[string]float64{"totalMs": float64(time.Since(start).Milliseconds())}, map[string]int{"listings": 0, "matched": 0, "unmatched": 0})
		return ProcessResult{FeedID: feed.ID, Processed: 0}, nil
	}

	products, err := s.db.ListProducts()
	if err != nil {
		return ProcessResult{}, err
	}
	index, err := catalog.BuildIndex(products)
	if err != nil {
		return ProcessResult{}, err
	}
	matcher := NewMatcher(index)

	for _, listing := range listings {
		match := matcher.Match(listing)
		listingID, err := s.db.InsertListing(feed.ID, listing)
		if err != nil {
			return ProcessResult{}, err
		}
		if err := s.db.InsertAssignment(listingID, match); err != nil {
			return ProcessResult{}, err
		}
	}

	if err := s.db.UpdateFeedStatus(feed.ID, "processed"); err != nil {
		return ProcessResult{}, err
	}
	_ = s.db.InsertRun(traceID(), feed.ID, map[string]float64{"totalMs": float64(time.Since(start).Milliseconds())}, map[string]int{"listings": len(listings), "matched": matcher.Matched, "unmatched": matcher.Unmatched})

	return ProcessResult{FeedID: feed.ID, Processed: len(listings), Matched: matcher.Matched, Unmatched: matcher.Unmatched}, nil
}

func ExportRow(listing internal.Listing, match internal.MatchResult) internal.AssignmentExportRow {
	row := internal.AssignmentExportRow{
		InputLineNo:    listing.LineNo,
		Source:         string(listing.Source),
		Manufacturer:   listing.Manufacturer,
		Title:          listing.Title,
		RawListing:     string(listing.Raw),
		MatchStatus:    string(match.Status),
		CandidateCount: match.CandidateCount,
	}
	if match.Status == internal.StatusMatched {
		name := match.ProductName
		row.ProductName = &name
	}
	if match.Candidate != nil {
		row.ManufacturerKey = &match.Candidate.Manufacturer
		row.FamilyKey = &match.Candidate.Family
		row.ModelKey = &match.Candidate.Model
	}
	return row
}

func traceID() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return fmt.Sprintf("run-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b[:])
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
