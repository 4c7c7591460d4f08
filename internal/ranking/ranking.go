// Package ranking filters, orders and pages ranking entries on the client
// when the backend cannot do it.
package ranking

import (
	"slices"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/and161185/vidvote/internal/model"
	"github.com/and161185/vidvote/internal/paging"
)

// DefaultPageSize is the page size used when none is given.
const DefaultPageSize = 10

// NormalizeCity folds accents and case: NFD, drop combining marks, lower.
func NormalizeCity(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)))
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}

// FilterByCity keeps entries whose city equals city after normalization.
// An empty city keeps everything; entries without a city never match a non-empty one.
func FilterByCity(items []model.RankingEntry, city string) []model.RankingEntry {
	if city == "" {
		return slices.Clone(items)
	}
	want := NormalizeCity(city)
	out := make([]model.RankingEntry, 0, len(items))
	for _, it := range items {
		if it.City != nil && *it.City != "" && NormalizeCity(*it.City) == want {
			out = append(out, it)
		}
	}
	return out
}

// SortByVotes orders entries by votes, highest first. Ties keep their input order.
func SortByVotes(items []model.RankingEntry) {
	slices.SortStableFunc(items, func(a, b model.RankingEntry) int {
		return b.Votes - a.Votes
	})
}

// Paginate returns one page of items, numbering each entry by its overall
// position. A size below 1 falls back to DefaultPageSize.
func Paginate(items []model.RankingEntry, page, size int) model.RankingPage {
	if size < 1 {
		size = DefaultPageSize
	}
	p := paging.Paginate(items, page, size)
	out := slices.Clone(p.Items)
	if out == nil {
		out = []model.RankingEntry{}
	}
	for i := range out {
		out[i].Position = (p.Number-1)*p.Size + i + 1
	}
	return model.RankingPage{Items: out, Page: p.Number, PageSize: p.Size, TotalPages: p.Total}
}

// Rank filters by city, sorts by votes and returns the requested page.
func Rank(items []model.RankingEntry, city string, page, size int) model.RankingPage {
	filtered := FilterByCity(items, city)
	SortByVotes(filtered)
	return Paginate(filtered, page, size)
}
