package internal

import "encoding/json"

type ListingSource string

const (
	SourceListingsFile  ListingSource = "listings_file"
	SourceFeedText      ListingSource = "feed_text"
	SourceFeedHTMLTable ListingSource = "feed_html_table"
	SourceFeedJSONL     ListingSource = "feed_jsonl"
	SourceXLSX          ListingSource = "xlsx"
	SourcePDF           ListingSource = "pdf"
)

// Product is one canonical catalog record. Manufacturer, family and
// model may each be absent; product_name is required.
type Product struct {
	ProductName   string  `json:"product_name"`
	Manufacturer  *string `json:"manufacturer,omitempty"`
	Family        *string `json:"family,omitempty"`
	Model         *string `json:"model,omitempty"`
	AnnouncedDate *string `json:"announced-date,omitempty"`
}

// Listing is one marketplace record. Raw carries the original JSON so
// matched listings pass through to the report byte-for-byte. Fields
// beyond manufacturer and title are never interpreted.
type Listing struct {
	LineNo       int
	Source       ListingSource
	Manufacturer *string
	Title        *string
	Raw          json.RawMessage
}

// Candidate is a transient (manufacturer, family, model) key triple
// produced while scanning the index for one listing.
type Candidate struct {
	Manufacturer string
	Family       string
	FamilyAbsent bool
	Model        string
}

type MatchStatus string

const (
	StatusMatched   MatchStatus = "MATCHED"
	StatusUnmatched MatchStatus = "UNMATCHED"
)

type MatchResult struct {
	Status      MatchStatus
	ProductName string
	Candidate   *Candidate
	// CandidateCount is the number of raw candidates before
	// disambiguation.
	CandidateCount int
}

type FeedRow struct {
	ID         int
	Provider   string
	MessageID  string
	Subject    string
	Sender     string
	ReceivedAt string
	Hash       string
	Status     string
	RawRef     string
}

type FetchedFeedMessage struct {
	Provider   string
	MessageID  string
	Subject    string
	From       string
	ReceivedAt string
	Raw        []byte
}

// AssignmentExportRow is one row of the per-feed XLSX report.
type AssignmentExportRow struct {
	InputLineNo     int
	Source          string
	Manufacturer    *string
	Title           *string
	RawListing      string
	MatchStatus     string
	ProductName     *string
	ManufacturerKey *string
	FamilyKey       *string
	ModelKey        *string
	CandidateCount  int
}
