// Package crm implements the lead-tracking operations on top of a Store:
// duplicate detection, board and list projections, CSV import, and the
// Service that ties them to preferences, logging, and metrics.
package crm

import (
	"strings"

	"github.com/mesh-intelligence/minicrm/pkg/types"
)

// Fields reported by a duplicate match.
const (
	MatchName = "name"
	MatchURL  = "url"
)

// NormalizeName trims and lower-cases a company name for comparison.
func NormalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizeURL trims and lower-cases u, strips one leading http:// or
// https:// and one trailing slash.
func NormalizeURL(u string) string {
	u = strings.ToLower(strings.TrimSpace(u))
	if rest, ok := strings.CutPrefix(u, "http://"); ok {
		u = rest
	} else if rest, ok := strings.CutPrefix(u, "https://"); ok {
		u = rest
	}
	return strings.TrimSuffix(u, "/")
}

// Candidate is the minimal view of a record the detector compares against.
type Candidate struct {
	ID   string
	Name string
	URL  string
}

// Match is the result of a duplicate scan.
type Match struct {
	ID    string
	Field string
}

// FindDuplicate scans records in order. The first record whose normalized
// name equals the normalized name wins; otherwise the first whose
// normalized URL equals the normalized url. Empty normalized values never
// match. Returns nil when nothing matches.
func FindDuplicate(records []Candidate, name, url string) *Match {
	if n := NormalizeName(name); n != "" {
		for _, r := range records {
			if NormalizeName(r.Name) == n {
				return &Match{ID: r.ID, Field: MatchName}
			}
		}
	}
	if u := NormalizeURL(url); u != "" {
		for _, r := range records {
			if NormalizeURL(r.URL) == u {
				return &Match{ID: r.ID, Field: MatchURL}
			}
		}
	}
	return nil
}

// candidatesOf projects companies onto detector candidates.
func candidatesOf(companies []*types.Company) []Candidate {
	out := make([]Candidate, len(companies))
	for i, c := range companies {
		out[i] = Candidate{ID: c.ID, Name: c.Name, URL: c.URL}
	}
	return out
}
