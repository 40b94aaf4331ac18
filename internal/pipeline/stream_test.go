package pipeline

import (
	"strings"
	"testing"
)

func TestChunkReaderSplitsStream(t *testing.T) {
	input := `{"manufacturer":"Sony","title":"A100"}
{"manufacturer":"Canon","title":"EOS 7D"}
{"manufacturer":"Nikon","title":"D90"}`
	r := NewChunkReader(strings.NewReader(input), 2)

	first, ok, err := r.Next()
	if err != nil || !ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	if len(first) != 2 {
		t.Fatalf("first len=%d", len(first))
	}
	if first[1].LineNo != 2 || *first[1].Manufacturer != "Canon" {
		t.Fatalf("first[1]=%+v", first[1])
	}

	second, ok, err := r.Next()
	if err != nil || !ok || len(second) != 1 {
		t.Fatalf("second ok=%v len=%d err=%v", ok, len(second), err)
	}
	if second[0].LineNo != 3 {
		t.Fatalf("lineNo=%d", second[0].LineNo)
	}

	if _, ok, _ := r.Next(); ok {
		t.Fatal("expected exhausted stream")
	}
	if r.Chunks != 2 || r.Skipped != 0 {
		t.Fatalf("chunks=%d skipped=%d", r.Chunks, r.Skipped)
	}
}

func TestChunkReaderSkipsBrokenChunk(t *testing.T) {
	input := `{"manufacturer":"Sony","title":"A100"}
not json at all
{"manufacturer":"Canon","title":"EOS 7D"}`
	r := NewChunkReader(strings.NewReader(input), 2)

	first, ok, err := r.Next()
	if err != nil || !ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	if len(first) != 0 {
		t.Fatalf("broken chunk returned %d listings", len(first))
	}

	second, ok, err := r.Next()
	if err != nil || !ok || len(second) != 1 {
		t.Fatalf("second ok=%v len=%d err=%v", ok, len(second), err)
	}
	if r.Skipped != 1 || r.Chunks != 2 {
		t.Fatalf("chunks=%d skipped=%d", r.Chunks, r.Skipped)
	}
}

func TestDecodeListingKeepsRawRecord(t *testing.T) {
	raw := []byte(`{"manufacturer":"Sony","title":"A100","price":"129.99","extra":"kept"}`)
	l := DecodeListing(7, "listings_file", raw)
	if l.LineNo != 7 || *l.Manufacturer != "Sony" || *l.Title != "A100" {
		t.Fatalf("listing=%+v", l)
	}
	if string(l.Raw) != string(raw) {
		t.Fatalf("raw=%s", l.Raw)
	}
}

func TestDecodeListingWrongShape(t *testing.T) {
	l := DecodeListing(1, "listings_file", []byte(`{"title":42}`))
	if l.Manufacturer != nil {
		t.Fatalf("manufacturer=%v", l.Manufacturer)
	}
}
