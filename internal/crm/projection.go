package crm

import (
	"cmp"
	"slices"
	"strings"

	"github.com/mesh-intelligence/minicrm/pkg/types"
)

// Column is one status column of a board.
type Column struct {
	Status    string           `json:"status"`
	Companies []*types.Company `json:"companies"`
}

// BoardView is a board grouped into columns in enumeration order.
type BoardView struct {
	Board   types.Board `json:"board"`
	Columns []Column    `json:"columns"`
}

// BuildBoard keeps the companies whose status belongs to board and groups
// them into one column per status. Each column is ordered by updated_at
// descending; ties keep input order.
func BuildBoard(board types.Board, companies []*types.Company) BoardView {
	statuses := board.Statuses()
	view := BoardView{Board: board, Columns: make([]Column, len(statuses))}
	index := make(map[string]int, len(statuses))
	for i, s := range statuses {
		view.Columns[i] = Column{Status: s, Companies: []*types.Company{}}
		index[s] = i
	}

	sorted := slices.Clone(companies)
	slices.SortStableFunc(sorted, func(a, b *types.Company) int {
		return b.UpdatedAt.Compare(a.UpdatedAt)
	})
	for _, c := range sorted {
		if i, ok := index[c.Status]; ok {
			view.Columns[i].Companies = append(view.Columns[i].Companies, c)
		}
	}
	return view
}

// Sort fields accepted by the list view.
const (
	SortName    = "name"
	SortType    = "type"
	SortOwner   = "owner"
	SortStatus  = "status"
	SortEmail   = "email"
	SortURL     = "url"
	SortCreated = "created"
	SortUpdated = "updated"
)

// Sort directions.
const (
	DirAsc  = "asc"
	DirDesc = "desc"
)

// ListQuery selects and orders the list view.
type ListQuery struct {
	Query     string `json:"q" query:"q"`
	Sort      string `json:"sort" query:"sort"`
	Direction string `json:"dir" query:"dir"`
}

// ListResult is the filtered, sorted list with the effective query.
type ListResult struct {
	Companies []*types.Company `json:"companies"`
	Query     string           `json:"q"`
	Sort      string           `json:"sort"`
	Direction string           `json:"dir"`
}

// CanonicalSort maps a requested sort field to a known one. The _at forms
// of the timestamp fields are accepted; anything else sorts by updated.
func CanonicalSort(field string) string {
	switch f := strings.ToLower(strings.TrimSpace(field)); f {
	case SortName, SortType, SortOwner, SortStatus, SortEmail, SortURL, SortCreated, SortUpdated:
		return f
	case "created_at":
		return SortCreated
	case "updated_at":
		return SortUpdated
	default:
		return SortUpdated
	}
}

// CanonicalDirection maps a requested direction to asc or desc, defaulting
// to desc.
func CanonicalDirection(dir string) string {
	if strings.ToLower(strings.TrimSpace(dir)) == DirAsc {
		return DirAsc
	}
	return DirDesc
}

// Matches reports whether the lower-cased query is a substring of at least
// one of the company's name, url, email, owner, type, or status. An empty
// query matches everything.
func Matches(c *types.Company, query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	for _, field := range []string{c.Name, c.URL, c.Email, c.Owner, c.Type, c.Status} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}

// FilterAndSort applies the query filter, then a stable sort by the
// selected field. Text fields compare lower-cased.
func FilterAndSort(companies []*types.Company, q ListQuery) ListResult {
	res := ListResult{
		Query:     strings.ToLower(strings.TrimSpace(q.Query)),
		Sort:      CanonicalSort(q.Sort),
		Direction: CanonicalDirection(q.Direction),
		Companies: []*types.Company{},
	}
	for _, c := range companies {
		if Matches(c, res.Query) {
			res.Companies = append(res.Companies, c)
		}
	}

	compare := comparatorFor(res.Sort)
	desc := res.Direction == DirDesc
	slices.SortStableFunc(res.Companies, func(a, b *types.Company) int {
		if desc {
			return compare(b, a)
		}
		return compare(a, b)
	})
	return res
}

// NextDirection returns the direction a column header should request:
// asc for a field other than the current sort, the flipped direction
// otherwise.
func NextDirection(currentSort, currentDir, field string) string {
	if CanonicalSort(field) != CanonicalSort(currentSort) {
		return DirAsc
	}
	if CanonicalDirection(currentDir) == DirAsc {
		return DirDesc
	}
	return DirAsc
}

func comparatorFor(field string) func(a, b *types.Company) int {
	text := func(get func(*types.Company) string) func(a, b *types.Company) int {
		return func(a, b *types.Company) int {
			return cmp.Compare(strings.ToLower(get(a)), strings.ToLower(get(b)))
		}
	}
	switch field {
	case SortName:
		return text(func(c *types.Company) string { return c.Name })
	case SortType:
		return text(func(c *types.Company) string { return c.Type })
	case SortOwner:
		return text(func(c *types.Company) string { return c.Owner })
	case SortStatus:
		return text(func(c *types.Company) string { return c.Status })
	case SortEmail:
		return text(func(c *types.Company) string { return c.Email })
	case SortURL:
		return text(func(c *types.Company) string { return c.URL })
	case SortCreated:
		return func(a, b *types.Company) int { return a.CreatedAt.Compare(b.CreatedAt) }
	default:
		return func(a, b *types.Company) int { return a.UpdatedAt.Compare(b.UpdatedAt) }
	}
}
