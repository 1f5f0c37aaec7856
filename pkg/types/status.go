package types

import (
	"errors"
	"slices"
)

// Lead stages, in board column order.
const (
	StatusNew         = "New"
	StatusContacted   = "Contacted"
	StatusQualified   = "Qualified"
	StatusNegotiation = "Negotiation"
	StatusLost        = "Lost"
)

// Partner stages, in board column order.
const (
	StatusOnboarding     = "Onboarding"
	StatusActiveProject  = "Active Project"
	StatusFollowUpNeeded = "Follow-up Needed"
	StatusPaused         = "Paused"
	StatusSourcePartner  = "Source Partner"
)

// StatusPastClient is a valid status that belongs to neither board.
const StatusPastClient = "Past Client"

// DefaultStatus is assigned to new records that arrive without a status.
const DefaultStatus = StatusNew

// Board names a kanban view over a subset of statuses.
type Board string

// Known boards. BoardNone is returned for statuses that appear on no board.
const (
	BoardLeads    Board = "leads"
	BoardPartners Board = "partners"
	BoardNone     Board = ""
)

// ErrUnknownBoard is returned by ParseBoard for unrecognized board names.
var ErrUnknownBoard = errors.New("unknown board")

var (
	leadStatuses = []string{
		StatusNew,
		StatusContacted,
		StatusQualified,
		StatusNegotiation,
		StatusLost,
	}
	partnerStatuses = []string{
		StatusOnboarding,
		StatusActiveProject,
		StatusFollowUpNeeded,
		StatusPaused,
		StatusSourcePartner,
	}
)

// LeadStatuses returns the lead stages in column order.
func LeadStatuses() []string {
	return slices.Clone(leadStatuses)
}

// PartnerStatuses returns the partner stages in column order.
func PartnerStatuses() []string {
	return slices.Clone(partnerStatuses)
}

// AllStatuses returns the full enumeration: lead stages, partner stages,
// then Past Client.
func AllStatuses() []string {
	all := make([]string, 0, len(leadStatuses)+len(partnerStatuses)+1)
	all = append(all, leadStatuses...)
	all = append(all, partnerStatuses...)
	return append(all, StatusPastClient)
}

// IsValidStatus reports whether s is a member of the full enumeration.
// Comparison is exact; "new" is not a valid status.
func IsValidStatus(s string) bool {
	return s == StatusPastClient ||
		slices.Contains(leadStatuses, s) ||
		slices.Contains(partnerStatuses, s)
}

// BoardFor returns the board on which a company with the given status is
// shown. Unknown statuses and Past Client map to BoardNone.
func BoardFor(status string) Board {
	switch {
	case slices.Contains(leadStatuses, status):
		return BoardLeads
	case slices.Contains(partnerStatuses, status):
		return BoardPartners
	default:
		return BoardNone
	}
}

// ParseBoard converts a board name into a Board.
func ParseBoard(name string) (Board, error) {
	switch Board(name) {
	case BoardLeads:
		return BoardLeads, nil
	case BoardPartners:
		return BoardPartners, nil
	default:
		return BoardNone, ErrUnknownBoard
	}
}

// Statuses returns the column statuses of the board in display order.
func (b Board) Statuses() []string {
	switch b {
	case BoardLeads:
		return LeadStatuses()
	case BoardPartners:
		return PartnerStatuses()
	default:
		return nil
	}
}
