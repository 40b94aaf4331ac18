package pipeline

import "testing"

func TestParseFeedHTMLTable(t *testing.T) {
	html := `<table><tr><th>Manufacturer</th><th>Title</th><th>Price</th></tr><tr><td>Sony</td><td>Sony Alpha A100</td><td>$499.99</td></tr></table>`
	listings := parseFeedHTMLTable(html)
	if len(listings) != 1 {
		t.Fatalf("len=%d", len(listings))
	}
	if listings[0].Manufacturer == nil || *listings[0].Manufacturer != "Sony" {
		t.Fatalf("manufacturer=%v", listings[0].Manufacturer)
	}
	if listings[0].Title == nil || *listings[0].Title != "Sony Alpha A100" {
		t.Fatalf("title=%v", listings[0].Title)
	}
}

func TestParseFeedHTMLTableNoHeaders(t *testing.T) {
	html := `<table><tr><th>Foo</th><th>Bar</th></tr><tr><td>x</td><td>y</td></tr></table>`
	if listings := parseFeedHTMLTable(html); len(listings) != 0 {
		t.Fatalf("len=%d", len(listings))
	}
}
