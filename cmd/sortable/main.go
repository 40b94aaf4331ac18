package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"sortable/internal"
	"sortable/internal/catalog"
	"sortable/internal/config"
	"sortable/internal/connectors"
	gmailconnector "sortable/internal/connectors/gmail"
	imapconnector "sortable/internal/connectors/imap"
	"sortable/internal/listener"
	"sortable/internal/pipeline"
	"sortable/internal/storage"
)

func main() {
	cfg, err := config.Load()
	must(err)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cmd := os.Args[1]

	// match:run reads and writes plain files and needs no database.
	if cmd == "match:run" {
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		products := fs.String("products", cfg.ProductsPath, "catalog products file (one JSON object per line)")
		listings := fs.String("listings", cfg.ListingsPath, "listings file (one JSON object per line)")
		out := fs.String("out", cfg.OutputPath, "output report path")
		chunk := fs.Int("chunk", cfg.ChunkSize, "listings per chunk")
		xlsx := fs.String("xlsx", "", "optional xlsx export path")
		_ = fs.Parse(os.Args[2:])
		result, err := pipeline.RunFile(*products, *listings, *out, *chunk, *xlsx)
		must(err)
		fmt.Printf("match run done products=%d listings=%d chunks=%d skipped=%d matched=%d unmatched=%d output=%s\n",
			result.Products, result.Listings, result.Chunks, result.SkippedChunks, result.Matched, result.Unmatched, *out)
		return
	}

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	switch cmd {
	case "catalog:load":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		file := fs.String("file", cfg.ProductsPath, "catalog products file")
		_ = fs.Parse(os.Args[2:])
		svc := catalog.NewSyncService(db, cfg)
		count, err := svc.LoadFromFile(*file)
		must(err)
		fmt.Printf("catalog load complete: %d products\n", count)
	case "catalog:sync":
		svc := catalog.NewSyncService(db, cfg)
		count, err := svc.SyncFromAPI(context.Background())
		must(err)
		fmt.Printf("catalog sync complete: %d products\n", count)
	case "feeds:fetch":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		provider := fs.String("provider", "gmail", "gmail|imap")
		label := fs.String("label", "INBOX", "mailbox/label")
		max := fs.Int("max", 50, "max messages")
		_ = fs.Parse(os.Args[2:])
		conn, err := makeConnector(cfg, *provider)
		must(err)
		fetch := connectors.NewFetchService(db, cfg.RawFeedDir, conn)
		result, err := fetch.FetchAndStore(*label, *max)
		must(err)
		fmt.Printf("feeds fetch done provider=%s fetched=%d stored=%d skipped=%d\n", *provider, result.Fetched, result.Stored, result.Skipped)
	case "feeds:process":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		provider := fs.String("provider", "gmail", "gmail|imap")
		messageID := fs.String("messageId", "", "specific message-id")
		batch := fs.Int("batch", 20, "batch size")
		_ = fs.Parse(os.Args[2:])
		processor := pipeline.NewProcessingService(db, cfg)
		if strings.TrimSpace(*messageID) != "" {
			res, err := processor.ProcessByProviderMessageID(*provider, *messageID)
			must(err)
			fmt.Printf("processed feed id=%d listings=%d matched=%d unmatched=%d\n", res.FeedID, res.Processed, res.Matched, res.Unmatched)
			return
		}
		processedFeeds, processedListings, err := processor.ProcessPending(*batch, *provider)
		must(err)
		fmt.Printf("processed pending feeds=%d listings=%d\n", processedFeeds, processedListings)
	case "feeds:run":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		input := fs.String("input", "", "input file path")
		inType := fs.String("type", "", "text|html|jsonl|xlsx|pdf")
		output := fs.String("output", "", "output xlsx path")
		_ = fs.Parse(os.Args[2:])
		if *input == "" || *inType == "" || *output == "" {
			must(fmt.Errorf("--input --type --output are required"))
		}

		items, err := pipeline.ExtractListingsFromInput(*inType, *input)
		must(err)
		products, err := db.ListProducts()
		must(err)
		index, err := catalog.BuildIndex(products)
		must(err)
		matcher := pipeline.NewMatcher(index)

		exportRows := make([]internal.AssignmentExportRow, 0, len(items))
		for _, item := range items {
			match := matcher.Match(item)
			exportRows = append(exportRows, pipeline.ExportRow(item, match))
		}
		must(pipeline.ExportRowsToXLSX(exportRows, *output))
		fmt.Printf("feeds run done rows=%d matched=%d unmatched=%d output=%s\n", len(exportRows), matcher.Matched, matcher.Unmatched, *output)
	case "export:xlsx":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		feedID := fs.Int("feedId", 0, "internal feed id")
		out := fs.String("out", "", "output xlsx path")
		_ = fs.Parse(os.Args[2:])
		if *feedID == 0 || strings.TrimSpace(*out) == "" {
			must(fmt.Errorf("--feedId and --out are required"))
		}
		feed, err := db.GetFeedByID(*feedID)
		must(err)
		if feed == nil {
			must(fmt.Errorf("feed not found: id=%d", *feedID))
		}
		rows, err := db.GetExportRows(*feedID)
		must(err)
		if len(rows) == 0 {
			must(fmt.Errorf("no export rows for feedId=%d", *feedID))
		}
		must(pipeline.ExportRowsToXLSX(rows, *out))
		fmt.Printf("exported %d rows to %s\n", len(rows), *out)
	case "feeds:listen":
		s := listener.NewService(db, cfg)
		must(s.Run(context.Background()))
	default:
		usage()
		os.Exit(1)
	}
}

func makeConnector(cfg config.Config, provider string) (connectors.FeedConnector, error) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "gmail":
		return gmailconnector.NewConnector(cfg)
	case "imap":
		return imapconnector.NewConnector(cfg)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

func usage() {
	fmt.Println("usage: sortable <command>")
	fmt.Println("commands:")
	fmt.Println("  match:run [--products=products.txt] [--listings=listings.txt] [--out=out.txt] [--chunk=1000] [--xlsx=...]")
	fmt.Println("  catalog:load [--file=products.txt]")
	fmt.Println("  catalog:sync")
	fmt.Println("  feeds:fetch --provider=gmail|imap --label=INBOX --max=50")
	fmt.Println("  feeds:process --provider=gmail|imap [--messageId=...] [--batch=20]")
	fmt.Println("  feeds:run --input=... --type=text|html|jsonl|xlsx|pdf --output=...xlsx")
	fmt.Println("  feeds:listen")
	fmt.Println("  export:xlsx --feedId=1 --out=./out/result.xlsx")
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
