package types

// Preference keys as stored in the prefs table.
const (
	PrefLastType    = "last_type"
	PrefLastOwner   = "last_owner"
	PrefLastSources = "last_sources"
)

// Preferences holds the last-used values that prefill the add form.
type Preferences struct {
	LastType    string  `json:"last_type"`
	LastOwner   string  `json:"last_owner"`
	LastSources Sources `json:"last_sources"`
}
