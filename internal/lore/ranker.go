// Package lore ranks world background entries against a player query.
//
// Ranking is hybrid: a keyword phase matches query terms against an entry's
// primary and secondary keys, and an optional semantic phase folds in
// nearest-neighbor hits from a vector lookup. Without a lookup the ranker
// degrades to keyword matching ordered by the entries' authored order.
package lore

import (
	"context"
	"sort"
	"strings"
	"unicode"

	"github.com/hollowmoor/tableside/internal/worldpack"
)

const (
	// MaxResults caps how many entries a search returns.
	MaxResults = 5
	// MaxTerms caps how many query terms feed the keyword phase.
	MaxTerms = 5

	primaryKeyScore   = 2.0
	secondaryKeyScore = 1.0
	semanticWeight    = 0.8
	dualMatchBoost    = 1.5
	constantFloor     = 2.0
)

// SemanticHit is one nearest neighbor returned by a vector lookup.
type SemanticHit struct {
	UID      int64
	Text     string
	Distance float64
}

// SemanticLookup is an optional nearest-neighbor search capability.
type SemanticLookup interface {
	Query(ctx context.Context, collection, query string, k int, languageFilter string) ([]SemanticHit, error)
}

// Match is a scored lore entry in a search result.
type Match struct {
	Entry       worldpack.LoreEntry
	Score       float64
	DualMatched bool
}

// Ranker performs lore searches over a pack's entries.
type Ranker struct {
	lookup     SemanticLookup
	collection string
	neighbors  int
}

// NewRanker creates a Ranker. A nil lookup enables degraded keyword-only
// mode. neighbors bounds how many semantic hits are folded in per search.
func NewRanker(lookup SemanticLookup, collection string, neighbors int) *Ranker {
	if neighbors <= 0 {
		neighbors = MaxResults
	}
	return &Ranker{lookup: lookup, collection: collection, neighbors: neighbors}
}

// Search returns the filtered, ranked entries relevant to the query, capped
// at MaxResults.
//
// Entries whose visibility is not basic are dropped unless constant. Entries
// scoped to locations or regions are dropped when the current location or
// region is not listed. Constant entries are always candidates with a score
// floor even when nothing matched them.
func (r *Ranker) Search(ctx context.Context, query string, corpus []worldpack.LoreEntry, regionID, locationID string) []Match {
	terms := SearchTerms(query)

	type scored struct {
		entry    worldpack.LoreEntry
		score    float64
		keyword  bool
		semantic bool
	}
	candidates := make(map[int64]*scored)

	for i := range corpus {
		entry := corpus[i]
		score, matched := keywordScore(entry, terms)
		if matched {
			candidates[entry.UID] = &scored{entry: entry, score: score, keyword: true}
		}
	}

	semanticRan := false
	if r.lookup != nil {
		hits, err := r.lookup.Query(ctx, r.collection, query, r.neighbors, DetectLanguage(query))
		if err == nil {
			semanticRan = true
			byUID := make(map[int64]worldpack.LoreEntry, len(corpus))
			for _, entry := range corpus {
				byUID[entry.UID] = entry
			}
			for _, hit := range hits {
				entry, ok := byUID[hit.UID]
				if !ok {
					continue
				}
				similarity := 1 - hit.Distance
				if existing, ok := candidates[hit.UID]; ok && existing.keyword {
					if !existing.semantic {
						existing.score *= dualMatchBoost
						existing.semantic = true
					}
					continue
				}
				candidate, ok := candidates[hit.UID]
				if !ok {
					candidate = &scored{entry: entry}
					candidates[hit.UID] = candidate
				}
				candidate.score += semanticWeight * similarity
				candidate.semantic = true
			}
		}
	}

	// Constant entries always surface, scored or not.
	for _, entry := range corpus {
		if !entry.Constant {
			continue
		}
		if _, ok := candidates[entry.UID]; !ok {
			candidates[entry.UID] = &scored{entry: entry, score: constantFloor}
		}
	}

	matches := make([]Match, 0, len(candidates))
	for _, candidate := range candidates {
		if !visible(candidate.entry) {
			continue
		}
		if !appliesTo(candidate.entry.Locations, locationID) {
			continue
		}
		if !appliesTo(candidate.entry.Regions, regionID) {
			continue
		}
		matches = append(matches, Match{
			Entry:       candidate.entry,
			Score:       candidate.score,
			DualMatched: candidate.keyword && candidate.semantic,
		})
	}

	if semanticRan {
		sort.Slice(matches, func(i, j int) bool {
			if matches[i].Score != matches[j].Score {
				return matches[i].Score > matches[j].Score
			}
			return matches[i].Entry.Order < matches[j].Entry.Order
		})
	} else {
		// No vector score exists, so authored order is the only ranking.
		sort.Slice(matches, func(i, j int) bool {
			return matches[i].Entry.Order < matches[j].Entry.Order
		})
	}

	if len(matches) > MaxResults {
		matches = matches[:MaxResults]
	}
	return matches
}

// keywordScore returns the entry's keyword-phase score. The first term that
// matches wins; later terms never double count.
func keywordScore(entry worldpack.LoreEntry, terms []string) (float64, bool) {
	for _, term := range terms {
		if anyKeyContains(entry.PrimaryKeys, term) {
			return primaryKeyScore, true
		}
		if anyKeyContains(entry.SecondaryKeys, term) {
			return secondaryKeyScore, true
		}
	}
	return 0, false
}

func anyKeyContains(keys []string, term string) bool {
	for _, key := range keys {
		if strings.Contains(strings.ToLower(key), term) {
			return true
		}
	}
	return false
}

func visible(entry worldpack.LoreEntry) bool {
	return entry.Constant || entry.Visibility == worldpack.VisibilityBasic
}

// appliesTo reports whether a scoping list admits the current id. An empty
// list means unscoped.
func appliesTo(scope []string, id string) bool {
	if len(scope) == 0 {
		return true
	}
	for _, candidate := range scope {
		if candidate == id {
			return true
		}
	}
	return false
}

// SearchTerms tokenizes a query into at most MaxTerms lowercase terms,
// skipping stopwords and single-rune tokens. Tokenization is word-boundary
// aware across mixed Latin and Cyrillic scripts.
func SearchTerms(query string) []string {
	var terms []string
	var current strings.Builder

	flush := func() {
		if current.Len() == 0 {
			return
		}
		token := strings.ToLower(current.String())
		current.Reset()
		if len([]rune(token)) < 2 {
			return
		}
		if _, ok := stopwords[token]; ok {
			return
		}
		if len(terms) < MaxTerms {
			terms = append(terms, token)
		}
	}

	for _, r := range query {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			current.WriteRune(r)
			continue
		}
		flush()
	}
	flush()

	return terms
}

// DetectLanguage guesses the query's language for semantic filtering.
// Any Cyrillic rune marks the query as Russian; the default is English.
func DetectLanguage(query string) string {
	for _, r := range query {
		if unicode.Is(unicode.Cyrillic, r) {
			return "ru"
		}
	}
	return "en"
}
