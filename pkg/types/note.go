package types

import "time"

// Note categories. Unknown categories are stored as CategoryGeneral.
const (
	CategoryGeneral    = "General"
	CategoryContacts   = "Contacts"
	CategoryAgreements = "Agreements"
)

// NoteCategories returns the known note categories in display order.
func NoteCategories() []string {
	return []string{CategoryGeneral, CategoryContacts, CategoryAgreements}
}

// NormalizeCategory maps c onto a known category, defaulting to General.
func NormalizeCategory(c string) string {
	switch c {
	case CategoryGeneral, CategoryContacts, CategoryAgreements:
		return c
	default:
		return CategoryGeneral
	}
}

// Note is a timestamped annotation on a company. Time is set at creation
// and never updated.
type Note struct {
	ID        string    `json:"id"`
	CompanyID string    `json:"company_id"`
	Time      time.Time `json:"time"`
	Text      string    `json:"text"`
	Starred   bool      `json:"starred"`
	Category  string    `json:"category"`
}

// NoteEdit replaces the editable fields of a note. Empty text is allowed.
type NoteEdit struct {
	Text     string `json:"text"`
	Category string `json:"category"`
	Starred  bool   `json:"starred"`
}
