package util

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	currencyPattern = regexp.MustCompile(`(?i)\b(usd|cad|eur|gbp|aud|chf)\b|[$€£]`)
	pricePattern    = regexp.MustCompile(`(?i)(?:(usd|cad|eur|gbp|aud|chf|[$€£])\s*)?(\d{1,3}(?:[\s,]\d{3})+(?:\.\d+)?|\d+(?:[.,]\d+)?)`)
)

type ParsedPrice struct {
	Price    *float64
	Currency *string
	PriceRaw *string
}

// ParsePrice pulls an amount and currency out of a feed row such as
// "$129.99", "129,99 EUR" or "CAD 1 299.00". The last amount on the
// line wins, matching how sellers append the price after the title.
func ParsePrice(input string) ParsedPrice {
	line := strings.ReplaceAll(input, " ", " ")

	priceRaw := ""
	priceToken := ""
	matches := pricePattern.FindAllStringSubmatch(line, -1)
	if len(matches) > 0 {
		last := matches[len(matches)-1]
		priceRaw = strings.TrimSpace(strings.TrimSpace(last[1]) + " " + last[2])
		priceToken = last[2]
	}

	var pricePtr *float64
	if priceToken != "" {
		if parsed, err := strconv.ParseFloat(normalizeAmountToken(priceToken), 64); err == nil {
			pricePtr = FloatPtr(parsed)
		}
	}

	var currencyPtr *string
	if cm := currencyPattern.FindString(line); cm != "" {
		c := normalizeCurrency(cm)
		currencyPtr = &c
	}

	var priceRawPtr *string
	if priceRaw != "" {
		priceRawPtr = &priceRaw
	}

	return ParsedPrice{Price: pricePtr, Currency: currencyPtr, PriceRaw: priceRawPtr}
}

func normalizeCurrency(token string) string {
	switch strings.ToUpper(strings.TrimSpace(token)) {
	case "$":
		return "USD"
	case "€":
		return "EUR"
	case "£":
		return "GBP"
	default:
		return strings.ToUpper(strings.TrimSpace(token))
	}
}

func normalizeAmountToken(token string) string {
	compact := strings.ReplaceAll(strings.ReplaceAll(token, " ", ""), ",", "")
	if strings.Count(token, ",") == 1 && !strings.Contains(token, ".") {
		// European decimal comma, e.g. "129,99".
		if idx := strings.Index(token, ","); len(token)-idx-1 <= 2 {
			return strings.Replace(token, ",", ".", 1)
		}
	}
	return compact
}
