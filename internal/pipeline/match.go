package pipeline

import (
	"strings"

	"sortable/internal"
	"sortable/internal/catalog"
	"sortable/internal/util"
)

// Matcher assigns listings to catalog leaves. The index must be fully
// built before the first Match call; after that the only mutation is
// appending matched listings to leaves.
type Matcher struct {
	index *catalog.Index

	Matched   int
	Unmatched int
}

func NewMatcher(index *catalog.Index) *Matcher {
	return &Matcher{index: index}
}

// Match classifies one listing and, on success, appends its raw record
// to the winning leaf. A listing missing manufacturer or title can
// never match; it is counted unmatched rather than failing the run.
func (m *Matcher) Match(listing internal.Listing) internal.MatchResult {
	if listing.Manufacturer == nil || listing.Title == nil {
		m.Unmatched++
		return internal.MatchResult{Status: internal.StatusUnmatched}
	}

	rawSearch := strings.ToLower(*listing.Manufacturer) + " " + strings.ToLower(*listing.Title)
	candidates := m.findCandidates(rawSearch)

	winner, ok := resolve(candidates, rawSearch)
	if ok {
		if leaf := m.index.Lookup(winner); leaf != nil {
			leaf.Append(listing.Raw)
			m.Matched++
			c := winner
			return internal.MatchResult{
				Status:         internal.StatusMatched,
				ProductName:    leaf.ProductName,
				Candidate:      &c,
				CandidateCount: len(candidates),
			}
		}
	}

	m.Unmatched++
	return internal.MatchResult{Status: internal.StatusUnmatched, CandidateCount: len(candidates)}
}

// findCandidates scans every manufacturer key (never the absent
// branch) against the compressed search string. Each hit is removed
// once before descending so the same characters are not re-matched at
// deeper levels. The absent-family branch is a fallback: it is
// consulted only when the named families produced no candidate for
// that manufacturer, a family key matching without any of its models
// included. All manufacturers are scanned; one listing may yield many
// candidates.
func (m *Matcher) findCandidates(rawSearch string) []internal.Candidate {
	compressed := util.Normalize(rawSearch)

	out := []internal.Candidate{}
	for _, man := range m.index.Root.Children {
		if man.Absent || !strings.Contains(compressed, man.Key) {
			continue
		}
		refined1 := strings.Replace(compressed, man.Key, "", 1)

		foundModel := false
		for _, fam := range man.Node.Children {
			if fam.Absent || !strings.Contains(refined1, fam.Key) {
				continue
			}
			refined2 := strings.Replace(refined1, fam.Key, "", 1)
			for _, mod := range fam.Node.Children {
				if mod.Absent {
					continue
				}
				if strings.Contains(refined2, mod.Key) {
					foundModel = true
					out = append(out, internal.Candidate{Manufacturer: man.Key, Family: fam.Key, Model: mod.Key})
				}
			}
		}

		if !foundModel {
			if fallback := man.Node.AbsentChild(); fallback != nil {
				for _, mod := range fallback.Children {
					if mod.Absent {
						continue
					}
					if strings.Contains(refined1, mod.Key) {
						out = append(out, internal.Candidate{Manufacturer: man.Key, FamilyAbsent: true, Model: mod.Key})
					}
				}
			}
		}
	}
	return out
}

// resolve reduces a candidate list to at most one winner. Candidates
// spanning more than one manufacturer or family are never resolved;
// among consistent candidates the exact-token filter runs first, then
// the most specific surviving model key wins if every other survivor
// is embedded in it. Anything still ambiguous is treated as a bundle
// or accessory listing and left unmatched.
func resolve(candidates []internal.Candidate, rawSearch string) (internal.Candidate, bool) {
	switch len(candidates) {
	case 0:
		return internal.Candidate{}, false
	case 1:
		return candidates[0], true
	}

	first := candidates[0]
	for _, c := range candidates[1:] {
		if c.Manufacturer != first.Manufacturer || c.Family != first.Family || c.FamilyAbsent != first.FamilyAbsent {
			return internal.Candidate{}, false
		}
	}

	remaining := filterExactTokens(candidates, util.Tokenize(rawSearch))
	switch len(remaining) {
	case 0:
		return internal.Candidate{}, false
	case 1:
		return remaining[0], true
	}

	longest := remaining[0].Model
	for _, c := range remaining[1:] {
		if len(c.Model) > len(longest) {
			longest = c.Model
		}
	}
	for _, c := range remaining {
		if !strings.Contains(longest, c.Model) {
			return internal.Candidate{}, false
		}
	}

	winner := remaining[0]
	winner.Model = longest
	return winner, true
}

// filterExactTokens drops candidates whose model key cannot be rebuilt
// from a contiguous token run of the raw search text. Removal keeps
// the historical quirk: the model list loses the first occurrence of
// the failing value, while the manufacturer/family slots are deleted
// by position counted from the end of the list. With duplicate model
// keys across different manufacturer/family pairs the two can diverge
// and a surviving model is re-paired; see DESIGN.md before changing.
func filterExactTokens(candidates []internal.Candidate, tokens []string) []internal.Candidate {
	orig := len(candidates)
	mods := make([]string, orig)
	for i, c := range candidates {
		mods[i] = c.Model
	}
	rest := append([]internal.Candidate(nil), candidates...)

	for i, c := range candidates {
		if tokenRunEquals(tokens, c.Model) {
			continue
		}
		for j, v := range mods {
			if v == c.Model {
				mods = append(mods[:j], mods[j+1:]...)
				break
			}
		}
		pos := len(rest) - (orig - i)
		rest = append(rest[:pos], rest[pos+1:]...)
	}

	out := make([]internal.Candidate, len(mods))
	for j := range mods {
		out[j] = rest[j]
		out[j].Model = mods[j]
	}
	return out
}

// tokenRunEquals reports whether some contiguous run of tokens,
// starting at a token whose first character equals the key's first
// character, concatenates without separators to exactly the key. The
// run stops growing as soon as it reaches the key's length.
func tokenRunEquals(tokens []string, key string) bool {
	if key == "" {
		return false
	}
	for i, tok := range tokens {
		if tok == "" || tok[0] != key[0] {
			continue
		}
		var b strings.Builder
		for j := i; j < len(tokens); j++ {
			b.WriteString(tokens[j])
			if b.Len() >= len(key) {
				if b.String() == key {
					return true
				}
				break
			}
		}
	}
	return false
}
