// Package search filters listings by a free-text query.
package search

import (
	"strings"

	"vilatur/internal/model"
)

// Outcome tells how a result set was produced.
type Outcome string

const (
	OutcomeUnfiltered Outcome = "unfiltered" // blank query
	OutcomeMatched    Outcome = "matched"
	OutcomeFallback   Outcome = "fallback" // nothing matched, all listings returned
	OutcomeNoMatch    Outcome = "no_match"
)

// Result is the filtered listing set and how it was obtained.
type Result struct {
	Listings []model.Listing `json:"listings"`
	Query    string          `json:"query"`
	Outcome  Outcome         `json:"outcome"`
}

// Filter returns the listings whose title, content, site or keywords contain
// query, case-insensitively. A blank query returns all listings. When nothing
// matches, all listings are returned if fallbackToAll is set, otherwise none.
func Filter(all []model.Listing, query string, fallbackToAll bool) Result {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return Result{Listings: all, Outcome: OutcomeUnfiltered}
	}

	matched := make([]model.Listing, 0)
	for _, l := range all {
		if Matches(l, q) {
			matched = append(matched, l)
		}
	}

	switch {
	case len(matched) > 0:
		return Result{Listings: matched, Query: q, Outcome: OutcomeMatched}
	case fallbackToAll:
		return Result{Listings: all, Query: q, Outcome: OutcomeFallback}
	default:
		return Result{Listings: matched, Query: q, Outcome: OutcomeNoMatch}
	}
}

// Matches reports whether any searchable field of l contains the lowercase query q.
func Matches(l model.Listing, q string) bool {
	if containsFold(l.Title, q) || containsFold(l.Content, q) || containsFold(l.Site, q) {
		return true
	}
	return l.Keywords != nil && containsFold(*l.Keywords, q)
}

func containsFold(field, q string) bool {
	if field == "" {
		return false
	}
	return strings.Contains(strings.ToLower(field), q)
}
