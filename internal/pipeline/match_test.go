package pipeline

import (
	"encoding/json"
	"fmt"
	"reflect"
	"testing"

	"sortable/internal"
	"sortable/internal/catalog"
	"sortable/internal/util"
)

func sp(v string) *string { return &v }

func product(name, man, fam, model string) internal.Product {
	p := internal.Product{ProductName: name}
	if man != "" {
		p.Manufacturer = sp(man)
	}
	if fam != "" {
		p.Family = sp(fam)
	}
	if model != "" {
		p.Model = sp(model)
	}
	return p
}

func listing(man, title string) internal.Listing {
	raw, _ := json.Marshal(map[string]string{"manufacturer": man, "title": title})
	return internal.Listing{LineNo: 1, Source: internal.SourceListingsFile, Manufacturer: sp(man), Title: sp(title), Raw: raw}
}

func mustIndex(t *testing.T, products ...internal.Product) *catalog.Index {
	t.Helper()
	index, err := catalog.BuildIndex(products)
	if err != nil {
		t.Fatal(err)
	}
	return index
}

func TestMatchSingleCandidate(t *testing.T) {
	index := mustIndex(t, product("Sony_A100", "Sony", "Alpha", "A100"))
	m := NewMatcher(index)

	res := m.Match(listing("Sony", "Sony Alpha A100 digital camera"))
	if res.Status != internal.StatusMatched {
		t.Fatalf("status=%s", res.Status)
	}
	if res.ProductName != "Sony_A100" {
		t.Fatalf("productName=%s", res.ProductName)
	}
	if m.Matched != 1 || m.Unmatched != 0 {
		t.Fatalf("matched=%d unmatched=%d", m.Matched, m.Unmatched)
	}

	leaves := index.Leaves()
	if len(leaves) != 1 || len(leaves[0].Listings) != 1 {
		t.Fatalf("leaf listings=%d", len(leaves[0].Listings))
	}
}

func TestMatchMissingFields(t *testing.T) {
	index := mustIndex(t, product("Sony_A100", "Sony", "Alpha", "A100"))
	m := NewMatcher(index)

	for _, l := range []internal.Listing{
		{LineNo: 1, Title: sp("Sony Alpha A100")},
		{LineNo: 2, Manufacturer: sp("Sony")},
		{LineNo: 3},
	} {
		if res := m.Match(l); res.Status != internal.StatusUnmatched {
			t.Fatalf("line %d: status=%s", l.LineNo, res.Status)
		}
	}
	if m.Unmatched != 3 {
		t.Fatalf("unmatched=%d", m.Unmatched)
	}
}

func TestMatchNoCandidates(t *testing.T) {
	index := mustIndex(t, product("Sony_A100", "Sony", "Alpha", "A100"))
	m := NewMatcher(index)

	res := m.Match(listing("Nikon", "Coolpix S3000"))
	if res.Status != internal.StatusUnmatched || res.CandidateCount != 0 {
		t.Fatalf("status=%s candidates=%d", res.Status, res.CandidateCount)
	}
}

func TestMatchExactTokenFilterPrefixModels(t *testing.T) {
	index := mustIndex(t,
		product("Sony_A10", "Sony", "Alpha", "A10"),
		product("Sony_A100", "Sony", "Alpha", "A100"),
	)
	m := NewMatcher(index)

	// "a10" is a substring of the compressed text but never an exact
	// token run, so only "a100" survives.
	res := m.Match(listing("Sony", "Alpha A100 camera"))
	if res.Status != internal.StatusMatched {
		t.Fatalf("status=%s", res.Status)
	}
	if res.ProductName != "Sony_A100" {
		t.Fatalf("productName=%s", res.ProductName)
	}
	if res.CandidateCount != 2 {
		t.Fatalf("candidates=%d", res.CandidateCount)
	}
}

func TestMatchAmbiguousModelsUnmatched(t *testing.T) {
	index := mustIndex(t,
		product("Sony_A100", "Sony", "Alpha", "A100"),
		product("Sony_B200", "Sony", "Alpha", "B200"),
	)
	m := NewMatcher(index)

	res := m.Match(listing("Sony", "Alpha A100 B200 twin kit"))
	if res.Status != internal.StatusUnmatched {
		t.Fatalf("status=%s", res.Status)
	}
	if res.CandidateCount != 2 {
		t.Fatalf("candidates=%d", res.CandidateCount)
	}
}

func TestMatchCrossManufacturerUnmatched(t *testing.T) {
	index := mustIndex(t,
		product("Sony_A100", "Sony", "", "A100"),
		product("Canon_7D", "Canon", "EOS", "7D"),
	)
	m := NewMatcher(index)

	res := m.Match(listing("Sony", "A100 like Canon EOS 7D"))
	if res.Status != internal.StatusUnmatched {
		t.Fatalf("status=%s", res.Status)
	}
}

func TestMatchFamilyAbsentFallback(t *testing.T) {
	index := mustIndex(t, product("Pentax_WG1", "Pentax", "", "WG1"))
	m := NewMatcher(index)

	res := m.Match(listing("Pentax", "WG-1 waterproof"))
	if res.Status != internal.StatusMatched || res.ProductName != "Pentax_WG1" {
		t.Fatalf("status=%s productName=%s", res.Status, res.ProductName)
	}
	if res.Candidate == nil || !res.Candidate.FamilyAbsent {
		t.Fatalf("candidate=%+v", res.Candidate)
	}
}

func TestMatchFamilyTakesPrecedenceOverFallback(t *testing.T) {
	index := mustIndex(t,
		product("Pentax_WG1", "Pentax", "Optio", "WG1"),
		product("Pentax_K5", "Pentax", "", "K5"),
	)
	m := NewMatcher(index)

	// A model was found under a named family, so the no-family branch
	// is not consulted even though "k5" never appears in the text.
	res := m.Match(listing("Pentax", "Optio WG-1"))
	if res.Status != internal.StatusMatched || res.ProductName != "Pentax_WG1" {
		t.Fatalf("status=%s productName=%s", res.Status, res.ProductName)
	}
}

func TestMatchFamilyHitWithoutModelStillFallsBack(t *testing.T) {
	index := mustIndex(t,
		product("Pentax_WG1", "Pentax", "Optio", "WG1"),
		product("Pentax_K5", "Pentax", "", "K5"),
	)
	m := NewMatcher(index)

	// "optio" matches a family key but no model under it does; the
	// no-family branch is still searched and lands on K5.
	res := m.Match(listing("Pentax", "Optio K5 body"))
	if res.Status != internal.StatusMatched || res.ProductName != "Pentax_K5" {
		t.Fatalf("status=%s productName=%s", res.Status, res.ProductName)
	}
	if res.Candidate == nil || !res.Candidate.FamilyAbsent {
		t.Fatalf("candidate=%+v", res.Candidate)
	}
}

func TestMatchLongestModelCollapse(t *testing.T) {
	index := mustIndex(t,
		product("Pentax_WG1", "Pentax", "Optio", "WG1"),
		product("Pentax_WG1_GPS", "Pentax", "Optio", "WG1GPS"),
	)
	m := NewMatcher(index)

	res := m.Match(listing("Pentax", "Optio WG-1 GPS"))
	if res.Status != internal.StatusMatched {
		t.Fatalf("status=%s", res.Status)
	}
	if res.ProductName != "Pentax_WG1_GPS" {
		t.Fatalf("productName=%s", res.ProductName)
	}
}

func TestMatchDeterministicAcrossRuns(t *testing.T) {
	products := []internal.Product{
		product("Sony_A100", "Sony", "Alpha", "A100"),
		product("Sony_A10", "Sony", "Alpha", "A10"),
		product("Canon_7D", "Canon", "EOS", "7D"),
	}
	inputs := []internal.Listing{
		listing("Sony", "Alpha A100 camera"),
		listing("Canon", "EOS 7D body"),
		listing("Nikon", "Coolpix"),
	}

	run := func() string {
		index := mustIndex(t, products...)
		m := NewMatcher(index)
		out := ""
		for _, l := range inputs {
			res := m.Match(l)
			out += fmt.Sprintf("%s:%s;", res.Status, res.ProductName)
		}
		return out
	}

	if a, b := run(), run(); a != b {
		t.Fatalf("runs differ: %q vs %q", a, b)
	}
}

func TestFilterExactTokensDuplicateModels(t *testing.T) {
	// Duplicate model keys across different manufacturer/family pairs
	// never reach the filter through Match because of the consistency
	// gate, so the removal scheme is pinned here directly. A failing
	// model is removed by value and its candidate by position from the
	// end; a model key passes or fails for every duplicate alike, so
	// the two removals stay aligned and attribution is preserved.
	candidates := []internal.Candidate{
		{Manufacturer: "canon", Family: "eos", Model: "x500"},
		{Manufacturer: "nikon", Family: "coolpix", Model: "d3"},
		{Manufacturer: "sony", Family: "alpha", Model: "x500"},
	}

	got := filterExactTokens(candidates, util.Tokenize("bundle x-500 charger"))
	want := []internal.Candidate{
		{Manufacturer: "canon", Family: "eos", Model: "x500"},
		{Manufacturer: "sony", Family: "alpha", Model: "x500"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v", got)
	}

	got = filterExactTokens(candidates, util.Tokenize("nikon d3 body"))
	want = []internal.Candidate{
		{Manufacturer: "nikon", Family: "coolpix", Model: "d3"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v", got)
	}
}

func TestTokenRunEquals(t *testing.T) {
	tokens := util.Tokenize("pentax optio wg-1 gps")
	cases := []struct {
		key  string
		want bool
	}{
		{"wg1", true},
		{"wg1gps", true},
		{"wg", true},
		{"g1", false},
		{"wg1g", false},
		{"optio", true},
		{"", false},
	}
	for _, c := range cases {
		if got := tokenRunEquals(tokens, c.key); got != c.want {
			t.Errorf("tokenRunEquals(%q)=%v", c.key, got)
		}
	}
}
