package pipeline

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"

	"sortable/internal"
)

const DefaultChunkSize = 1000

// ChunkReader consumes a listing stream in bounded chunks so the
// stream never has to fit in memory. Each chunk of lines is decoded
// as one JSON array; a chunk that fails to decode is skipped and the
// run continues with the next one.
type ChunkReader struct {
	scanner *bufio.Scanner
	size    int
	source  internal.ListingSource
	lineNo  int

	Chunks  int
	Skipped int
}

func NewChunkReader(r io.Reader, size int) *ChunkReader {
	if size <= 0 {
		size = DefaultChunkSize
	}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &ChunkReader{scanner: scanner, size: size, source: internal.SourceListingsFile}
}

// Next returns the next chunk of listings. ok is false once the
// stream is exhausted. A skipped chunk comes back as an empty slice
// with ok still true.
func (r *ChunkReader) Next() ([]internal.Listing, bool, error) {
	lines := make([]string, 0, r.size)
	for len(lines) < r.size && r.scanner.Scan() {
		lines = append(lines, r.scanner.Text())
	}
	if err := r.scanner.Err(); err != nil {
		return nil, false, err
	}
	if len(lines) == 0 {
		return nil, false, nil
	}

	r.Chunks++
	blob := "[" + strings.Join(lines, ",") + "]"
	var raws []json.RawMessage
	if err := json.Unmarshal([]byte(blob), &raws); err != nil {
		r.Skipped++
		r.lineNo += len(lines)
		return []internal.Listing{}, true, nil
	}

	out := make([]internal.Listing, 0, len(raws))
	for _, raw := range raws {
		r.lineNo++
		out = append(out, DecodeListing(r.lineNo, r.source, raw))
	}
	return out, true, nil
}

// DecodeListing extracts the two searched fields and keeps the full
// record for pass-through. A record of the wrong shape simply ends up
// with nil fields and is later counted unmatched.
func DecodeListing(lineNo int, source internal.ListingSource, raw json.RawMessage) internal.Listing {
	var fields struct {
		Manufacturer *string `json:"manufacturer"`
		Title        *string `json:"title"`
	}
	_ = json.Unmarshal(raw, &fields)
	return internal.Listing{
		LineNo:       lineNo,
		Source:       source,
		Manufacturer: fields.Manufacturer,
		Title:        fields.Title,
		Raw:          raw,
	}
}
