package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"sortable/internal"
	"sortable/internal/config"
	"sortable/internal/storage"
)

func TestSmokeMatchRun(t *testing.T) {
	tmp := t.TempDir()

	productsPath := filepath.Join(tmp, "products.txt")
	productsBlob := `{"product_name":"Sony_A100","manufacturer":"Sony","family":"Alpha","model":"A100"}
{"product_name":"Canon_7D","manufacturer":"Canon","family":"EOS","model":"7D"}
`
	if err := os.WriteFile(productsPath, []byte(productsBlob), 0o644); err != nil {
		t.Fatal(err)
	}

	listingsPath := filepath.Join(tmp, "listings.txt")
	listingsBlob := `{"title":"Sony Alpha A100 digital camera","manufacturer":"Sony","price":"499.99"}
{"title":"Canon EOS 7D body","manufacturer":"Canon"}
{"title":"Nikon D90","manufacturer":"Nikon"}
`
	if err := os.WriteFile(listingsPath, []byte(listingsBlob), 0o644); err != nil {
		t.Fatal(err)
	}

	outPath := filepath.Join(tmp, "out.txt")
	xlsxPath := filepath.Join(tmp, "out.xlsx")
	res, err := RunFile(productsPath, listingsPath, outPath, 0, xlsxPath)
	if err != nil {
		t.Fatal(err)
	}
	if res.Products != 2 || res.Listings != 3 || res.Chunks != 1 || res.SkippedChunks != 0 {
		t.Fatalf("result=%+v", res)
	}
	if res.Matched != 2 || res.Unmatched != 1 {
		t.Fatalf("matched=%d unmatched=%d", res.Matched, res.Unmatched)
	}

	got, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"product_name":"Sony_A100","listings":[{"title":"Sony Alpha A100 digital camera","manufacturer":"Sony","price":"499.99"}]}
{"product_name":"Canon_7D","listings":[{"title":"Canon EOS 7D body","manufacturer":"Canon"}]}`
	if string(got) != want {
		t.Fatalf("report:\n%s", got)
	}

	if _, err := os.Stat(xlsxPath); err != nil {
		t.Fatal(err)
	}
}

func TestSmokeFeedToXLSX(t *testing.T) {
	tmp := t.TempDir()
	db, err := storage.Open(filepath.Join(tmp, "app.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	products := []internal.Product{
		product("Sony_A100", "Sony", "Alpha", "A100"),
		product("Canon_7D", "Canon", "EOS", "7D"),
	}
	if err := db.UpsertProducts(products); err != nil {
		t.Fatal(err)
	}

	rawBlob, err := os.ReadFile(filepath.Join("testdata", "sample_feed.eml"))
	if err != nil {
		t.Fatal(err)
	}
	rawPath := filepath.Join(tmp, "fixture.eml")
	if err := os.WriteFile(rawPath, rawBlob, 0o644); err != nil {
		t.Fatal(err)
	}

	feed, err := db.UpsertFeed("gmail", "<fixture-1@example.com>", "Daily listing feed", "vendor@example.com", "2026-08-01T00:00:00Z", "hash", rawPath, "fetched")
	if err != nil {
		t.Fatal(err)
	}

	cfg, _ := config.Load()
	proc := NewProcessingService(db, cfg)
	res, err := proc.ProcessFeed(feed)
	if err != nil {
		t.Fatal(err)
	}
	if res.Processed == 0 {
		t.Fatal("no listings processed")
	}
	if res.Matched == 0 {
		t.Fatal("no listings matched")
	}

	rows, err := db.GetExportRows(feed.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != res.Processed {
		t.Fatalf("rows=%d processed=%d", len(rows), res.Processed)
	}

	out := filepath.Join(tmp, "result.xlsx")
	if err := ExportRowsToXLSX(rows, out); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(out); err != nil {
		t.Fatal(err)
	}
}
