package pipeline

import "testing"

func TestParseFeedText(t *testing.T) {
	text := "\nSony | Sony Alpha A100 body $499.99\nCanon | Canon EOS 7D kit\n\nRegards,\n"
	listings := parseFeedText(text)
	if len(listings) != 2 {
		t.Fatalf("len=%d", len(listings))
	}
	if listings[0].Manufacturer == nil || *listings[0].Manufacturer != "Sony" {
		t.Fatalf("manufacturer=%v", listings[0].Manufacturer)
	}
	if listings[1].Title == nil || *listings[1].Title != "Canon EOS 7D kit" {
		t.Fatalf("title=%v", listings[1].Title)
	}
}

func TestParseFeedTextSkipsUnstructuredLines(t *testing.T) {
	listings := parseFeedText("hello there\nSony\tAlpha A200\n")
	if len(listings) != 1 {
		t.Fatalf("len=%d", len(listings))
	}
	if listings[0].LineNo != 1 {
		t.Fatalf("lineNo=%d", listings[0].LineNo)
	}
}
