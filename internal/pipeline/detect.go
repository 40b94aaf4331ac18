package pipeline

import "strings"

type DetectResult struct {
	IsFeed bool
	Score  float64
	Reason string
}

var detectKeywords = []string{"listing", "listings", "feed", "inventory", "price list", "pricelist", "export", "catalog"}

// DetectListingFeed scores a fetched email for whether it carries a
// marketplace listing feed, so signature blocks and unrelated mail do
// not get matched against the catalog.
func DetectListingFeed(subject, text, html string, attachmentNames []string) DetectResult {
	subject = strings.ToLower(subject)
	text = strings.ToLower(text)
	html = strings.ToLower(html)

	score := 0.0
	for _, kw := range detectKeywords {
		if strings.Contains(subject, kw) {
			score += 0.2
		}
		if strings.Contains(text, kw) || strings.Contains(html, kw) {
			score += 0.1
		}
	}

	priceHits := countPricePatterns(text)
	if priceHits >= 2 {
		score += 0.4
	} else if priceHits == 1 {
		score += 0.2
	}

	for _, name := range attachmentNames {
		ln := strings.ToLower(name)
		if strings.HasSuffix(ln, ".json") || strings.HasSuffix(ln, ".jsonl") ||
			strings.HasSuffix(ln, ".xlsx") || strings.HasSuffix(ln, ".pdf") {
			score += 0.25
			break
		}
	}

	if strings.Contains(html, "<table") {
		score += 0.25
	}
	if score > 1 {
		score = 1
	}

	isFeed := score >= 0.45
	reason := "rules_negative"
	if isFeed {
		reason = "rules_positive"
	}

	return DetectResult{IsFeed: isFeed, Score: score, Reason: reason}
}

func countPricePatterns(text string) int {
	count := strings.Count(text, "$") + strings.Count(text, "€") + strings.Count(text, "£")
	for _, code := range []string{"usd", "eur", "gbp", "cad"} {
		count += strings.Count(text, code)
	}
	return count
}
