package util

import "testing"

func TestParsePrice(t *testing.T) {
	cases := []struct {
		name     string
		input    string
		want     float64
		currency string
	}{
		{name: "dollar symbol", input: "Sony DSC-W310 $129.99", want: 129.99, currency: "USD"},
		{name: "currency code", input: "Canon EOS 7D 1499.00 CAD", want: 1499.00, currency: "CAD"},
		{name: "decimal comma", input: "Pentax K-x 399,99 EUR", want: 399.99, currency: "EUR"},
		{name: "thousand separators", input: "Leica M9 $6,995.00", want: 6995.00, currency: "USD"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			parsed := ParsePrice(tc.input)
			if parsed.Price == nil {
				t.Fatalf("price is nil")
			}
			if *parsed.Price != tc.want {
				t.Fatalf("got %v want %v", *parsed.Price, tc.want)
			}
			if parsed.Currency == nil || *parsed.Currency != tc.currency {
				t.Fatalf("currency = %v want %s", parsed.Currency, tc.currency)
			}
		})
	}
}

func TestParsePriceNone(t *testing.T) {
	parsed := ParsePrice("no amount here")
	if parsed.Price != nil {
		t.Fatalf("expected nil price, got %v", *parsed.Price)
	}
}
