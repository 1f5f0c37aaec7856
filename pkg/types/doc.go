// Package types defines the Store and table interfaces, entity types,
// and standard errors for the minicrm sales-lead tracker.
//
// Companies carry a status drawn from a closed enumeration; the status
// decides which board (leads or partners) the company appears on. Notes,
// source tags, preferences, and users hang off the same Store.
package types
