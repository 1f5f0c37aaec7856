package crm

import "fmt"

// DuplicateError reports that a create was blocked by an existing record.
type DuplicateError struct {
	ExistingID string
	Field      string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("duplicate by %s: existing company %s", e.Field, e.ExistingID)
}
