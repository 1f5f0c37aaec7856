package types

import (
	"encoding/json"
	"strings"
	"time"
)

// TimestampLayout is the minute-granularity layout used to persist
// created_at, updated_at, and note times.
const TimestampLayout = "2006-01-02 15:04"

// Stamp normalizes t to the stored granularity: UTC, truncated to the minute.
func Stamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Minute)
}

// ContactedVia records through which channels a company has been reached.
type ContactedVia struct {
	Email    bool `json:"email"`
	URL      bool `json:"url"`
	LinkedIn bool `json:"linkedin"`
}

// Company is a sales lead or partner record.
type Company struct {
	ID           string       `json:"id"`
	Type         string       `json:"type"`
	Owner        string       `json:"owner"`
	Name         string       `json:"name"`
	URL          string       `json:"url"`
	LinkedIn     string       `json:"linkedin"`
	Email        string       `json:"email"`
	ContactedVia ContactedVia `json:"contacted_via"`
	Status       string       `json:"status"`
	Sources      Sources      `json:"sources"`
	Notes        []Note       `json:"notes"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// Board returns the board the company is shown on.
func (c *Company) Board() Board {
	return BoardFor(c.Status)
}

// CompanyUpdate carries a partial update. Nil fields are left unchanged;
// a non-nil Sources replaces the whole tag set.
type CompanyUpdate struct {
	Type         *string       `json:"type,omitempty"`
	Owner        *string       `json:"owner,omitempty"`
	Name         *string       `json:"name,omitempty"`
	URL          *string       `json:"url,omitempty"`
	LinkedIn     *string       `json:"linkedin,omitempty"`
	Email        *string       `json:"email,omitempty"`
	ContactedVia *ContactedVia `json:"contacted_via,omitempty"`
	Status       *string       `json:"status,omitempty"`
	Sources      *Sources      `json:"sources,omitempty"`
}

// Sources is a set of free-form tags. Duplicates are suppressed with a
// case-sensitive comparison. Stored sets read back in alphabetical order,
// ignoring case.
type Sources []string

// NewSources builds a tag set from raw values: each value is trimmed,
// empty values are dropped, and repeats are suppressed.
func NewSources(tags ...string) Sources {
	out := Sources{}
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// ParseSources decodes a tag payload. A JSON array of strings is preferred;
// anything else is treated as a comma-separated list.
func ParseSources(raw string) Sources {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Sources{}
	}
	var arr []any
	if err := json.Unmarshal([]byte(raw), &arr); err == nil {
		tags := make([]string, 0, len(arr))
		for _, v := range arr {
			if s, ok := v.(string); ok {
				tags = append(tags, s)
			}
		}
		return NewSources(tags...)
	}
	return NewSources(strings.Split(raw, ",")...)
}

// UnmarshalJSON accepts an array, keeping only its string elements, or a
// string, which is decoded with ParseSources. Any other value is treated
// as comma-separated text. null leaves s unchanged.
func (s *Sources) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		*s = ParseSources(t)
	case []any:
		tags := make([]string, 0, len(t))
		for _, e := range t {
			if str, ok := e.(string); ok {
				tags = append(tags, str)
			}
		}
		*s = NewSources(tags...)
	default:
		*s = ParseSources(string(b))
	}
	return nil
}

// Contains reports whether tag is in the set.
func (s Sources) Contains(tag string) bool {
	for _, t := range s {
		if t == tag {
			return true
		}
	}
	return false
}
