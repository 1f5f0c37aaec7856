// Tests for the companies table accessor.
package sqlite

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/minicrm/pkg/types"
)

func strPtr(s string) *string { return &s }

func TestCompanies_Create(t *testing.T) {
	tests := []struct {
		name    string
		company types.Company
		wantErr error
		check   func(t *testing.T, c *types.Company)
	}{
		{
			name:    "empty status defaults to New",
			company: types.Company{Type: "Agency", Name: "Acme"},
			check: func(t *testing.T, c *types.Company) {
				assert.Equal(t, types.StatusNew, c.Status)
			},
		},
		{
			name:    "partner status is accepted",
			company: types.Company{Type: "Agency", Status: types.StatusOnboarding},
			check: func(t *testing.T, c *types.Company) {
				assert.Equal(t, types.StatusOnboarding, c.Status)
			},
		},
		{
			name:    "invalid status is rejected",
			company: types.Company{Type: "Agency", Status: "Discovery"},
			wantErr: types.ErrInvalidStatus,
		},
		{
			name:    "type outside catalog is rejected",
			company: types.Company{Type: "Reseller"},
			wantErr: types.ErrInvalidType,
		},
		{
			name:    "empty type is rejected",
			company: types.Company{},
			wantErr: types.ErrInvalidType,
		},
		{
			name:    "owner outside catalog is rejected",
			company: types.Company{Type: "Agency", Owner: "Mallory"},
			wantErr: types.ErrInvalidOwner,
		},
		{
			name:    "empty owner is allowed",
			company: types.Company{Type: "Agency", Owner: ""},
			check: func(t *testing.T, c *types.Company) {
				assert.Empty(t, c.Owner)
			},
		},
		{
			name: "sources are deduplicated",
			company: types.Company{
				Type:    "Agency",
				Sources: types.Sources{"event", " event", "Event", ""},
			},
			check: func(t *testing.T, c *types.Company) {
				assert.ElementsMatch(t, types.Sources{"event", "Event"}, c.Sources)
			},
		},
		{
			name: "first note is stored with the company",
			company: types.Company{
				Type:  "Agency",
				Notes: []types.Note{{Text: "  met at expo  "}, {Text: "   "}},
			},
			check: func(t *testing.T, c *types.Company) {
				require.Len(t, c.Notes, 1)
				assert.Equal(t, "met at expo", c.Notes[0].Text)
				assert.Equal(t, types.CategoryGeneral, c.Notes[0].Category)
				assert.Equal(t, c.CreatedAt, c.Notes[0].Time)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, _ := setupBackend(t)
			c := tt.company

			id, err := b.Companies().Create(&c)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				list, lerr := b.Companies().List()
				require.NoError(t, lerr)
				assert.Empty(t, list, "rejected create must not write")
				return
			}
			require.NoError(t, err)
			require.NotEmpty(t, id)

			got, err := b.Companies().Get(id)
			require.NoError(t, err)
			tt.check(t, got)
		})
	}
}

func TestCompanies_CreateStampsTimestamps(t *testing.T) {
	b, clock := setupBackend(t)
	clock.t = time.Date(2025, 5, 6, 7, 8, 42, 0, time.UTC)

	c := &types.Company{Type: "Agency", Name: "Acme"}
	id, err := b.Companies().Create(c)
	require.NoError(t, err)

	want := time.Date(2025, 5, 6, 7, 8, 0, 0, time.UTC)
	assert.Equal(t, id, c.ID)
	assert.Equal(t, want, c.CreatedAt)
	assert.Equal(t, want, c.UpdatedAt)

	got, err := b.Companies().Get(id)
	require.NoError(t, err)
	assert.Equal(t, want, got.CreatedAt)
	assert.Equal(t, want, got.UpdatedAt)
}

func TestCompanies_CreateGeneratesDistinctIDs(t *testing.T) {
	b, _ := setupBackend(t)

	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		id, err := b.Companies().Create(&types.Company{Type: "Agency", Name: fmt.Sprintf("c%d", i)})
		require.NoError(t, err)
		assert.False(t, seen[id], "id reused: %s", id)
		seen[id] = true
	}
}

func TestCompanies_GetErrors(t *testing.T) {
	b, _ := setupBackend(t)

	_, err := b.Companies().Get("")
	assert.ErrorIs(t, err, types.ErrInvalidID)

	_, err = b.Companies().Get("missing")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestCompanies_Update(t *testing.T) {
	b, clock := setupBackend(t)

	c := &types.Company{
		Type:    "Agency",
		Owner:   "Oskars",
		Name:    "Acme",
		URL:     "acme.io",
		Sources: types.Sources{"a", "b"},
	}
	id, err := b.Companies().Create(c)
	require.NoError(t, err)

	clock.Advance(90 * time.Minute)
	sources := types.Sources{"c"}
	err = b.Companies().Update(id, types.CompanyUpdate{
		Owner:        strPtr("Shawn"),
		Status:       strPtr(types.StatusQualified),
		ContactedVia: &types.ContactedVia{Email: true, LinkedIn: true},
		Sources:      &sources,
	})
	require.NoError(t, err)

	got, err := b.Companies().Get(id)
	require.NoError(t, err)
	assert.Equal(t, "Shawn", got.Owner)
	assert.Equal(t, types.StatusQualified, got.Status)
	assert.Equal(t, "Acme", got.Name, "unsupplied fields are unchanged")
	assert.Equal(t, "acme.io", got.URL)
	assert.Equal(t, types.ContactedVia{Email: true, LinkedIn: true}, got.ContactedVia)
	assert.Equal(t, types.Sources{"c"}, got.Sources, "source replacement is total")
	assert.Equal(t, c.CreatedAt, got.CreatedAt)
	assert.Equal(t, c.CreatedAt.Add(90*time.Minute), got.UpdatedAt)
}

func TestCompanies_UpdateNilSourcesKeepsTags(t *testing.T) {
	b, _ := setupBackend(t)

	id, err := b.Companies().Create(&types.Company{Type: "Agency", Sources: types.Sources{"x"}})
	require.NoError(t, err)
	require.NoError(t, b.Companies().Update(id, types.CompanyUpdate{Name: strPtr("Renamed")}))

	got, err := b.Companies().Get(id)
	require.NoError(t, err)
	assert.Equal(t, types.Sources{"x"}, got.Sources)

	empty := types.Sources{}
	require.NoError(t, b.Companies().Update(id, types.CompanyUpdate{Sources: &empty}))
	got, err = b.Companies().Get(id)
	require.NoError(t, err)
	assert.Empty(t, got.Sources)
}

func TestCompanies_UpdateErrors(t *testing.T) {
	b, _ := setupBackend(t)
	id, err := b.Companies().Create(&types.Company{Type: "Agency", Name: "Acme"})
	require.NoError(t, err)

	tests := []struct {
		name    string
		id      string
		update  types.CompanyUpdate
		wantErr error
	}{
		{"unknown id", "missing", types.CompanyUpdate{Name: strPtr("x")}, types.ErrNotFound},
		{"empty id", "", types.CompanyUpdate{}, types.ErrInvalidID},
		{"invalid status", id, types.CompanyUpdate{Status: strPtr("new")}, types.ErrInvalidStatus},
		{"empty status", id, types.CompanyUpdate{Status: strPtr("")}, types.ErrInvalidStatus},
		{"invalid type", id, types.CompanyUpdate{Type: strPtr("Reseller")}, types.ErrInvalidType},
		{"invalid owner", id, types.CompanyUpdate{Owner: strPtr("Mallory")}, types.ErrInvalidOwner},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, b.Companies().Update(tt.id, tt.update), tt.wantErr)
		})
	}

	got, err := b.Companies().Get(id)
	require.NoError(t, err)
	assert.Equal(t, types.StatusNew, got.Status, "failed updates must not write")
}

func TestCompanies_DeleteCascades(t *testing.T) {
	b, _ := setupBackend(t)

	c := &types.Company{
		Type:    "Agency",
		Sources: types.Sources{"event"},
		Notes:   []types.Note{{Text: "first"}},
	}
	id, err := b.Companies().Create(c)
	require.NoError(t, err)
	_, err = b.Notes().Add(id, &types.Note{Text: "second"})
	require.NoError(t, err)

	n, err := b.Companies().Delete(id)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = b.Companies().Get(id)
	assert.ErrorIs(t, err, types.ErrNotFound)

	var notes, sources int
	require.NoError(t, b.db.QueryRow("SELECT COUNT(*) FROM notes WHERE company_id = ?", id).Scan(&notes))
	require.NoError(t, b.db.QueryRow("SELECT COUNT(*) FROM sources WHERE company_id = ?", id).Scan(&sources))
	assert.Zero(t, notes)
	assert.Zero(t, sources)

	_, err = b.Companies().Delete(id)
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestCompanies_DeleteMany(t *testing.T) {
	b, _ := setupBackend(t)

	var ids []string
	for i := 0; i < 3; i++ {
		id, err := b.Companies().Create(&types.Company{Type: "Agency", Name: fmt.Sprintf("c%d", i)})
		require.NoError(t, err)
		ids = append(ids, id)
	}

	n, err := b.Companies().DeleteMany([]string{ids[0], ids[1], ids[0], "missing", ""})
	require.NoError(t, err)
	assert.Equal(t, 2, n, "only existing companies are counted")

	list, err := b.Companies().List()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, ids[2], list[0].ID)

	n, err = b.Companies().DeleteMany(nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCompanies_DeleteManyAcrossChunks(t *testing.T) {
	b, _ := setupBackend(t)

	ids := make([]string, 0, deleteChunkSize+5)
	for i := 0; i < 3; i++ {
		id, err := b.Companies().Create(&types.Company{Type: "Agency"})
		require.NoError(t, err)
		ids = append(ids, id)
	}
	for len(ids) < deleteChunkSize+5 {
		ids = append(ids, fmt.Sprintf("missing-%d", len(ids)))
	}
	ids = append(ids, ids[0])

	n, err := b.Companies().DeleteMany(ids)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestCompanies_ListInsertionOrder(t *testing.T) {
	b, clock := setupBackend(t)

	names := []string{"Zeta", "Alpha", "Mid"}
	for _, name := range names {
		_, err := b.Companies().Create(&types.Company{Type: "Agency", Name: name})
		require.NoError(t, err)
		clock.Advance(time.Minute)
	}

	list, err := b.Companies().List()
	require.NoError(t, err)
	require.Len(t, list, 3)
	for i, name := range names {
		assert.Equal(t, name, list[i].Name)
		assert.NotNil(t, list[i].Notes)
		assert.NotNil(t, list[i].Sources)
	}
}

func TestCompanies_ListAttachesChildren(t *testing.T) {
	b, clock := setupBackend(t)

	idA, err := b.Companies().Create(&types.Company{Type: "Agency", Name: "A", Sources: types.Sources{"b-tag", "A-tag"}})
	require.NoError(t, err)
	idB, err := b.Companies().Create(&types.Company{Type: "Agency", Name: "B"})
	require.NoError(t, err)

	_, err = b.Notes().Add(idA, &types.Note{Text: "one"})
	require.NoError(t, err)
	clock.Advance(time.Minute)
	_, err = b.Notes().Add(idA, &types.Note{Text: "two"})
	require.NoError(t, err)

	list, err := b.Companies().List()
	require.NoError(t, err)
	require.Len(t, list, 2)

	assert.Equal(t, idA, list[0].ID)
	assert.Equal(t, types.Sources{"A-tag", "b-tag"}, list[0].Sources)
	require.Len(t, list[0].Notes, 2)
	assert.Equal(t, "one", list[0].Notes[0].Text)
	assert.Equal(t, "two", list[0].Notes[1].Text)

	assert.Equal(t, idB, list[1].ID)
	assert.Empty(t, list[1].Notes)
}

func TestCompanies_ReturnsCopies(t *testing.T) {
	b, _ := setupBackend(t)
	id, err := b.Companies().Create(&types.Company{Type: "Agency", Name: "Acme"})
	require.NoError(t, err)

	got, err := b.Companies().Get(id)
	require.NoError(t, err)
	got.Name = "mutated"

	again, err := b.Companies().Get(id)
	require.NoError(t, err)
	assert.Equal(t, "Acme", again.Name)
}
