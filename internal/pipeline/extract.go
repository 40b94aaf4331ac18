package pipeline

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/jhillyerd/enmime"
	pdf "github.com/ledongthuc/pdf"
	"github.com/xuri/excelize/v2"

	"sortable/internal"
	"sortable/internal/util"
)

var ignorePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^--+$`),
	regexp.MustCompile(`(?i)^thanks`),
	regexp.MustCompile(`(?i)^regards`),
	regexp.MustCompile(`(?i)^best,`),
	regexp.MustCompile(`(?i)^tel[:\s]`),
	regexp.MustCompile(`(?i)^e-?mail[:\s]`),
	regexp.MustCompile(`(?i)^http`),
}

var textSeparators = []string{"\t", " | ", ";"}

// ExtractListingsFromFeedRaw pulls listing records out of one raw feed
// email: delimited lines from the text body, rows from HTML tables,
// and JSONL, XLSX or PDF attachments.
func ExtractListingsFromFeedRaw(raw []byte) ([]internal.Listing, string, string, []string, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return nil, "", "", nil, err
	}

	listings := make([]internal.Listing, 0)
	if env.Text != "" {
		listings = append(listings, parseFeedText(env.Text)...)
	}
	if env.HTML != "" {
		listings = append(listings, parseFeedHTMLTable(env.HTML)...)
	}

	attachmentNames := make([]string, 0, len(env.Attachments))
	for _, att := range env.Attachments {
		filename := strings.TrimSpace(att.FileName)
		if filename == "" {
			filename = "attachment"
		}
		attachmentNames = append(attachmentNames, filename)
		lower := strings.ToLower(filename)

		switch {
		case strings.HasSuffix(lower, ".json") || strings.HasSuffix(lower, ".jsonl"):
			listings = append(listings, parseJSONLines(att.Content)...)
		case strings.HasSuffix(lower, ".xlsx") || strings.HasSuffix(lower, ".xls"):
			extra, err := parseXLSX(att.Content)
			if err == nil {
				listings = append(listings, extra...)
			}
		case strings.HasSuffix(lower, ".pdf"):
			extra, err := parsePDF(att.Content)
			if err == nil {
				listings = append(listings, extra...)
			}
		}
	}

	listings = dedupeListings(listings)
	for i := range listings {
		listings[i].LineNo = i + 1
	}

	return listings, env.GetHeader("Subject"), env.Text, attachmentNames, nil
}

// parseFeedText reads delimited body lines of the form
// "manufacturer<sep>title[<sep>price]" with tab, " | " or ";" as the
// separator. Lines without a separator carry no manufacturer and are
// dropped here rather than matched blind.
func parseFeedText(text string) []internal.Listing {
	out := []internal.Listing{}
	lineNo := 0
	for _, line := range splitLines(text) {
		if isLikelyNoise(line) {
			continue
		}
		listing, ok := lineToListing(internal.SourceFeedText, line)
		if !ok {
			continue
		}
		lineNo++
		listing.LineNo = lineNo
		out = append(out, listing)
	}
	return out
}

func parseFeedHTMLTable(html string) []internal.Listing {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	out := []internal.Listing{}
	globalLine := 0
	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		rows := table.Find("tr")
		if rows.Length() < 2 {
			return
		}

		headers := []string{}
		rows.First().Find("th,td").Each(func(_ int, cell *goquery.Selection) {
			headers = append(headers, strings.ToLower(strings.TrimSpace(cell.Text())))
		})

		manIdx := findHeaderIndex(headers, []string{"manufacturer", "brand", "make"})
		titleIdx := findHeaderIndex(headers, []string{"title", "name", "listing", "product"})
		priceIdx := findHeaderIndex(headers, []string{"price", "amount"})
		currencyIdx := findHeaderIndex(headers, []string{"currency", "cur"})
		if manIdx < 0 || titleIdx < 0 {
			return
		}

		rows.Slice(1, rows.Length()).Each(func(_ int, row *goquery.Selection) {
			cells := []string{}
			row.Find("th,td").Each(func(_ int, cell *goquery.Selection) {
				cells = append(cells, normalizeSpaces(cell.Text()))
			})
			man := pickCell(cells, manIdx, -1)
			title := pickCell(cells, titleIdx, -1)
			if man == "" || title == "" {
				return
			}

			record := map[string]string{"title": title, "manufacturer": man}
			if price := pickCell(cells, priceIdx, -1); price != "" {
				parsed := util.ParsePrice(price)
				if parsed.Price != nil {
					record["price"] = price
				}
				if parsed.Currency != nil {
					record["currency"] = *parsed.Currency
				}
			}
			if currency := pickCell(cells, currencyIdx, -1); currency != "" {
				record["currency"] = strings.ToUpper(currency)
			}

			globalLine++
			out = append(out, listingFromRecord(internal.SourceFeedHTMLTable, globalLine, record))
		})
	})

	return out
}

func parseJSONLines(content []byte) []internal.Listing {
	out := []internal.Listing{}
	lineNo := 0
	for _, line := range splitLines(string(content)) {
		var raw json.RawMessage
		if err := json.Unmarshal([]byte(line), &raw); err != nil {
			continue
		}
		lineNo++
		out = append(out, DecodeListing(lineNo, internal.SourceFeedJSONL, raw))
	}
	return out
}

func parseXLSX(content []byte) ([]internal.Listing, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	lineNo := 0
	out := []internal.Listing{}
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil || len(rows) < 2 {
			continue
		}

		headers := make([]string, 0, len(rows[0]))
		for _, h := range rows[0] {
			headers = append(headers, strings.ToLower(strings.TrimSpace(h)))
		}
		manIdx := findHeaderIndex(headers, []string{"manufacturer", "brand", "make"})
		titleIdx := findHeaderIndex(headers, []string{"title", "name", "listing", "product"})
		priceIdx := findHeaderIndex(headers, []string{"price", "amount"})
		currencyIdx := findHeaderIndex(headers, []string{"currency", "cur"})
		if manIdx < 0 || titleIdx < 0 {
			continue
		}

		for _, row := range rows[1:] {
			cells := normalizeCells(row)
			man := pickCell(cells, manIdx, -1)
			title := pickCell(cells, titleIdx, -1)
			if man == "" || title == "" {
				continue
			}

			record := map[string]string{"title": title, "manufacturer": man}
			if price := pickCell(cells, priceIdx, -1); price != "" {
				record["price"] = price
			}
			if currency := pickCell(cells, currencyIdx, -1); currency != "" {
				record["currency"] = strings.ToUpper(currency)
			}

			lineNo++
			out = append(out, listingFromRecord(internal.SourceXLSX, lineNo, record))
		}
	}

	return out, nil
}

func parsePDF(content []byte) ([]internal.Listing, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, err
	}

	out := []internal.Listing{}
	lineNo := 0
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			continue
		}
		for _, line := range splitLines(text) {
			if isLikelyNoise(line) {
				continue
			}
			listing, ok := lineToListing(internal.SourcePDF, line)
			if !ok {
				continue
			}
			lineNo++
			listing.LineNo = lineNo
			out = append(out, listing)
		}
	}
	return out, nil
}

func lineToListing(source internal.ListingSource, rawLine string) (internal.Listing, bool) {
	compact := normalizeSpaces(rawLine)
	if compact == "" {
		return internal.Listing{}, false
	}

	var parts []string
	for _, sep := range textSeparators {
		if strings.Contains(compact, sep) {
			parts = strings.Split(compact, sep)
			break
		}
	}
	if len(parts) < 2 {
		return internal.Listing{}, false
	}

	man := normalizeSpaces(parts[0])
	title := normalizeSpaces(strings.Join(parts[1:], " "))
	if man == "" || title == "" {
		return internal.Listing{}, false
	}

	record := map[string]string{"title": title, "manufacturer": man}
	parsed := util.ParsePrice(compact)
	if parsed.PriceRaw != nil {
		record["price"] = *parsed.PriceRaw
	}
	if parsed.Currency != nil {
		record["currency"] = *parsed.Currency
	}

	return listingFromRecord(source, 0, record), true
}

func listingFromRecord(source internal.ListingSource, lineNo int, record map[string]string) internal.Listing {
	raw, _ := json.Marshal(record)
	return DecodeListing(lineNo, source, raw)
}

func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	parts := strings.Split(text, "\n")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func normalizeSpaces(input string) string {
	return strings.TrimSpace(regexp.MustCompile(`\s+`).ReplaceAllString(input, " "))
}

func isLikelyNoise(line string) bool {
	for _, re := range ignorePatterns {
		if re.MatchString(strings.TrimSpace(line)) {
			return true
		}
	}
	return false
}

func dedupeListings(listings []internal.Listing) []internal.Listing {
	seen := map[string]struct{}{}
	out := make([]internal.Listing, 0, len(listings))
	for _, l := range listings {
		key := string(l.Source) + "|" + string(l.Raw)
		if _, exists := seen[key]; exists {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, l)
	}
	return out
}

func findHeaderIndex(headers []string, probes []string) int {
	for i, h := range headers {
		for _, probe := range probes {
			if strings.Contains(h, probe) {
				return i
			}
		}
	}
	return -1
}

func pickCell(cells []string, idx int, fallback int) string {
	if idx >= 0 && idx < len(cells) {
		return strings.TrimSpace(cells[idx])
	}
	if fallback >= 0 && fallback < len(cells) {
		return strings.TrimSpace(cells[fallback])
	}
	return ""
}

func normalizeCells(row []string) []string {
	out := make([]string, 0, len(row))
	for _, c := range row {
		out = append(out, normalizeSpaces(c))
	}
	return out
}
