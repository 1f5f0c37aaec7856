// This file implements the preference rows and the recent-sources query.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/mesh-intelligence/minicrm/pkg/types"
)

// Compile-time interface check: preferencesTable must implement PreferenceTable.
var _ types.PreferenceTable = (*preferencesTable)(nil)

// DefaultRecentSourcesLimit is used when RecentSources is given a
// non-positive limit.
const DefaultRecentSourcesLimit = 10

// preferencesTable implements PreferenceTable over the prefs key/value table.
type preferencesTable struct {
	backend *Backend
}

// Load reads the preference rows. Missing keys fall back to the first
// catalog entries and an empty tag list.
func (pt *preferencesTable) Load() (types.Preferences, error) {
	b := pt.backend
	var p types.Preferences
	err := b.read(func(db *sql.DB) error {
		rows, err := db.Query("SELECT key, value FROM prefs")
		if err != nil {
			return fmt.Errorf("querying prefs: %w", err)
		}
		defer rows.Close()

		values := make(map[string]string)
		for rows.Next() {
			var k, v string
			if err := rows.Scan(&k, &v); err != nil {
				return fmt.Errorf("scanning pref: %w", err)
			}
			values[k] = v
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterating prefs: %w", err)
		}

		p = types.Preferences{
			LastType:    values[types.PrefLastType],
			LastOwner:   values[types.PrefLastOwner],
			LastSources: types.ParseSources(values[types.PrefLastSources]),
		}
		if p.LastType == "" {
			p.LastType = b.config.TypeCatalog()[0]
		}
		if p.LastOwner == "" {
			p.LastOwner = b.config.OwnerCatalog()[0]
		}
		return nil
	})
	return p, err
}

// Save upserts all three preference rows.
func (pt *preferencesTable) Save(p types.Preferences) error {
	sources, err := json.Marshal(types.NewSources(p.LastSources...))
	if err != nil {
		return fmt.Errorf("encoding last_sources: %w", err)
	}

	return pt.backend.write(func(tx *sql.Tx) error {
		for _, kv := range [][2]string{
			{types.PrefLastType, p.LastType},
			{types.PrefLastOwner, p.LastOwner},
			{types.PrefLastSources, string(sources)},
		} {
			if _, err := tx.Exec(
				"INSERT INTO prefs (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
				kv[0], kv[1],
			); err != nil {
				return fmt.Errorf("saving pref %s: %w", kv[0], err)
			}
		}
		return nil
	})
}

// RecentSources returns up to limit distinct tags, most recently active
// first. Activity is the latest updated_at among companies carrying the tag.
func (pt *preferencesTable) RecentSources(limit int) ([]string, error) {
	if limit <= 0 {
		limit = DefaultRecentSourcesLimit
	}

	out := []string{}
	err := pt.backend.read(func(db *sql.DB) error {
		rows, err := db.Query(`SELECT s.source, MAX(COALESCE(c.updated_at, c.created_at)) AS last_used
FROM sources s
JOIN companies c ON c.id = s.company_id
GROUP BY s.source
ORDER BY last_used DESC, s.source
LIMIT ?`, limit)
		if err != nil {
			return fmt.Errorf("querying recent sources: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var s, lastUsed string
			if err := rows.Scan(&s, &lastUsed); err != nil {
				return fmt.Errorf("scanning recent source: %w", err)
			}
			out = append(out, s)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
