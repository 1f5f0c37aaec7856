package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/minicrm/internal/crm"
	"github.com/mesh-intelligence/minicrm/internal/paths"
	"github.com/mesh-intelligence/minicrm/pkg/types"
)

type cliEnv struct {
	t         *testing.T
	configDir string
	dataDir   string
	stdin     string
}

type result struct {
	stdout string
	stderr string
	code   int
}

func setupCLI(t *testing.T) *cliEnv {
	t.Helper()
	t.Setenv("MINICRM_LOG_LEVEL", "error")
	return &cliEnv{t: t, configDir: t.TempDir(), dataDir: t.TempDir()}
}

func (e *cliEnv) run(args ...string) result {
	e.t.Helper()
	root, a := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(e.stdin))
	full := append([]string{"--config-dir", e.configDir, "--data-dir", e.dataDir}, args...)
	code := run(root, a, full, &errOut)
	return result{stdout: out.String(), stderr: errOut.String(), code: code}
}

// mustRun runs args, requires exit 0, and decodes the --json output into T.
func mustRun[T any](e *cliEnv, args ...string) T {
	e.t.Helper()
	r := e.run(append([]string{"--json"}, args...)...)
	require.Equal(e.t, exitSuccess, r.code, r.stderr)
	var v T
	require.NoError(e.t, json.Unmarshal([]byte(r.stdout), &v), r.stdout)
	return v
}

func TestVersion(t *testing.T) {
	env := setupCLI(t)
	r := env.run("version")
	assert.Equal(t, exitSuccess, r.code)
	assert.Contains(t, r.stdout, "minicrm v"+Version)
}

func TestUsageErrors(t *testing.T) {
	env := setupCLI(t)
	assert.Equal(t, exitUserError, env.run("get").code)
	assert.Equal(t, exitUserError, env.run("list", "--bogus").code)
	assert.Equal(t, exitUserError, env.run("frobnicate").code)
	assert.Equal(t, exitUserError, env.run("board", "sideways").code)
	assert.Equal(t, exitUserError, env.run("add", "x", "--contacted-via", "fax").code)
}

func TestSystemError(t *testing.T) {
	env := setupCLI(t)
	file := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	env.dataDir = file

	r := env.run("list")
	assert.Equal(t, exitSysError, r.code)
	assert.Contains(t, r.stderr, "attaching backend")
}

func TestInit(t *testing.T) {
	env := setupCLI(t)
	env.configDir = filepath.Join(t.TempDir(), "conf")

	r := env.run("init")
	require.Equal(t, exitSuccess, r.code, r.stderr)
	assert.Contains(t, r.stdout, "Wrote")
	assert.FileExists(t, paths.ConfigFile(env.configDir))

	r = env.run("init")
	require.Equal(t, exitSuccess, r.code, r.stderr)
	assert.NotContains(t, r.stdout, "Wrote")
	assert.Contains(t, r.stdout, "initialized successfully")
}

func TestAddGetAndDuplicates(t *testing.T) {
	env := setupCLI(t)

	c := mustRun[types.Company](env, "add", "Acme Inc", "--url", "https://acme.com",
		"--sources", "Expo,Referral", "--contacted-via", "email", "--note", "met at expo")
	assert.Equal(t, types.StatusNew, c.Status)
	assert.Equal(t, types.Sources{"Expo", "Referral"}, c.Sources)
	assert.True(t, c.ContactedVia.Email)
	require.Len(t, c.Notes, 1)

	r := env.run("add", "ACME INC")
	assert.Equal(t, exitUserError, r.code)
	assert.Contains(t, r.stderr, c.ID)
	assert.Contains(t, r.stderr, crm.MatchName)

	r = env.run("add", "--url", "acme.com/")
	assert.Equal(t, exitUserError, r.code)
	assert.Contains(t, r.stderr, crm.MatchURL)

	assert.Equal(t, exitUserError, env.run("add").code, "name or url required")
	assert.Equal(t, exitUserError, env.run("add", "Foo", "--status", "Sleeping").code)

	got := mustRun[types.Company](env, "get", c.ID)
	assert.Equal(t, "Acme Inc", got.Name)

	r = env.run("get", c.ID)
	require.Equal(t, exitSuccess, r.code)
	assert.Contains(t, r.stdout, "met at expo")
	assert.Contains(t, r.stdout, "Expo, Referral")

	assert.Equal(t, exitUserError, env.run("get", "missing").code)

	m := mustRun[crm.DuplicateMatch](env, "check", "--name", " acme inc ")
	assert.True(t, m.Duplicate)
	assert.Equal(t, c.ID, m.ID)
	m = mustRun[crm.DuplicateMatch](env, "check", "--url", "globex.com")
	assert.False(t, m.Duplicate)
}

func TestUpdateStatusAndBoard(t *testing.T) {
	env := setupCLI(t)
	c := mustRun[types.Company](env, "add", "Acme")

	u := mustRun[types.Company](env, "update", c.ID, "--email", "hi@acme.com", "--owner", "Shawn", "--sources", "")
	assert.Equal(t, "hi@acme.com", u.Email)
	assert.Equal(t, "Shawn", u.Owner)
	assert.Empty(t, u.Sources)

	assert.Equal(t, exitUserError, env.run("update", c.ID, "--status", "Sleeping").code)
	assert.Equal(t, exitUserError, env.run("update", "missing", "--name", "x").code)

	assert.Equal(t, exitUserError, env.run("status", c.ID, "Sleeping").code)
	assert.Equal(t, exitUserError, env.run("status", "missing", types.StatusLost).code)
	r := env.run("status", c.ID, types.StatusActiveProject)
	require.Equal(t, exitSuccess, r.code, r.stderr)

	view := mustRun[crm.BoardView](env, "board", "partners")
	var found bool
	for _, col := range view.Columns {
		for _, bc := range col.Companies {
			if bc.ID == c.ID {
				found = true
				assert.Equal(t, types.StatusActiveProject, col.Status)
			}
		}
	}
	assert.True(t, found)

	leads := mustRun[crm.BoardView](env, "board", "leads")
	for _, col := range leads.Columns {
		assert.Empty(t, col.Companies)
	}

	// The next add remembers the owner chosen by update.
	next := mustRun[types.Company](env, "add", "Globex")
	assert.Equal(t, "Shawn", next.Owner)
}

func TestListAndDelete(t *testing.T) {
	env := setupCLI(t)
	a := mustRun[types.Company](env, "add", "Acme", "--url", "acme.com")
	b := mustRun[types.Company](env, "add", "Globex")
	c := mustRun[types.Company](env, "add", "Initech")

	res := mustRun[crm.ListResult](env, "list", "ACME.COM")
	require.Len(t, res.Companies, 1)
	assert.Equal(t, a.ID, res.Companies[0].ID)

	res = mustRun[crm.ListResult](env, "list", "--sort", "name", "--dir", "desc")
	require.Len(t, res.Companies, 3)
	assert.Equal(t, []string{"Initech", "Globex", "Acme"},
		[]string{res.Companies[0].Name, res.Companies[1].Name, res.Companies[2].Name})

	r := env.run("list")
	require.Equal(t, exitSuccess, r.code)
	assert.Contains(t, r.stdout, "Globex")

	assert.Equal(t, exitUserError, env.run("delete", "missing").code)
	del := mustRun[map[string]int](env, "delete", a.ID)
	assert.Equal(t, 1, del["deleted"])
	del = mustRun[map[string]int](env, "delete", b.ID, c.ID, "missing", b.ID)
	assert.Equal(t, 2, del["deleted"])

	r = env.run("list")
	assert.Contains(t, r.stdout, "No companies")
}

func TestNotes(t *testing.T) {
	env := setupCLI(t)
	c := mustRun[types.Company](env, "add", "Acme")

	r := env.run("note", "add", c.ID, "   ")
	assert.Equal(t, exitSuccess, r.code)
	assert.Contains(t, r.stderr, "nothing added")

	n := mustRun[types.Note](env, "note", "add", c.ID, "signed NDA", "--category", types.CategoryAgreements)
	assert.Equal(t, types.CategoryAgreements, n.Category)
	assert.False(t, n.Starred)

	star := mustRun[map[string]bool](env, "note", "star", c.ID, n.ID)
	assert.True(t, star["starred"])

	edit := mustRun[types.NoteEdit](env, "note", "edit", c.ID, n.ID, "--text", "signed MSA")
	assert.Equal(t, "signed MSA", edit.Text)
	assert.Equal(t, types.CategoryAgreements, edit.Category)
	assert.True(t, edit.Starred)

	got := mustRun[types.Company](env, "get", c.ID)
	require.Len(t, got.Notes, 1)
	assert.Equal(t, "signed MSA", got.Notes[0].Text)

	assert.Equal(t, exitUserError, env.run("note", "edit", c.ID, "missing", "--text", "x").code)
	assert.Equal(t, exitUserError, env.run("note", "add", "missing", "hi").code)

	r = env.run("note", "delete", c.ID, n.ID)
	require.Equal(t, exitSuccess, r.code, r.stderr)
	assert.Equal(t, exitUserError, env.run("note", "delete", c.ID, n.ID).code)
}

func TestImportExport(t *testing.T) {
	env := setupCLI(t)
	mustRun[types.Company](env, "add", "Acme", "--url", "acme.com")

	csvPath := filepath.Join(t.TempDir(), "leads.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(
		"name,url,email,sources\n"+
			"ACME,,,\n"+
			"Globex,globex.com,hi@globex.com,\"Expo,Web\"\n"+
			"Initech,initech.com,,\n"), 0o644))

	res := mustRun[crm.ImportResult](env, "import", csvPath)
	assert.Equal(t, crm.ImportResult{Added: 2, Skipped: 1}, res)

	env.stdin = "Umbrella,umbrella.com\nglobex,\n"
	res = mustRun[crm.ImportResult](env, "import", "-", "--keep-duplicates")
	assert.Equal(t, crm.ImportResult{Added: 2, Skipped: 0}, res)
	env.stdin = ""

	assert.Equal(t, exitUserError, env.run("import", filepath.Join(t.TempDir(), "nope.csv")).code)

	snapshot := filepath.Join(t.TempDir(), "companies.jsonl")
	exported := mustRun[map[string]int](env, "export", snapshot)
	assert.Equal(t, 5, exported["exported"])

	fresh := setupCLI(t)
	res = mustRun[crm.ImportResult](fresh, "import", "--jsonl", snapshot)
	assert.Equal(t, crm.ImportResult{Added: 4, Skipped: 1}, res)

	list := mustRun[crm.ListResult](fresh, "list", "globex")
	require.Len(t, list.Companies, 1)
	assert.Equal(t, types.Sources{"Expo", "Web"}, list.Companies[0].Sources)
}

func TestMigrateJSON(t *testing.T) {
	env := setupCLI(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, crm.LegacyCompaniesFile), []byte(`{
  "companies": [
    {"type": "marketing", "name": "Acme", "url": "acme.com", "status": "Replied",
     "notes": [{"time": "2024-05-01 10:00", "text": "sent deck"}]},
    {"type": "merchant", "name": "acme", "status": "Discovery"}
  ]
}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, crm.LegacyPrefsFile),
		[]byte(`{"last_type": "Agency", "last_owner": "Shawn"}`), 0o644))

	res := mustRun[crm.ImportResult](env, "migrate-json", dir)
	assert.Equal(t, crm.ImportResult{Added: 1, Skipped: 1}, res)

	list := mustRun[crm.ListResult](env, "list")
	require.Len(t, list.Companies, 1)
	assert.Equal(t, types.StatusContacted, list.Companies[0].Status)
	assert.Equal(t, "Marketing Agency", list.Companies[0].Type)

	prefs := mustRun[types.Preferences](env, "prefs", "get")
	assert.Equal(t, "Agency", prefs.LastType)
	assert.Equal(t, "Shawn", prefs.LastOwner)

	assert.Equal(t, exitUserError, env.run("migrate-json", t.TempDir()).code)
}

func TestPrefs(t *testing.T) {
	env := setupCLI(t)

	r := env.run("prefs", "set", "--type", "Bakery")
	assert.Equal(t, exitUserError, r.code)
	assert.Contains(t, r.stderr, "Marketing Agency")
	assert.Equal(t, exitUserError, env.run("prefs", "set", "--owner", "Mallory").code)

	p := mustRun[types.Preferences](env, "prefs", "set", "--type", "Agency", "--owner", "Shawn", "--sources", `["Expo"]`)
	assert.Equal(t, "Agency", p.LastType)
	assert.Equal(t, types.Sources{"Expo"}, p.LastSources)

	c := mustRun[types.Company](env, "add", "Acme")
	assert.Equal(t, "Agency", c.Type)
	assert.Equal(t, "Shawn", c.Owner)

	mustRun[types.Company](env, "add", "Globex", "--sources", "Web")
	tags := mustRun[[]string](env, "prefs", "sources")
	assert.Contains(t, tags, "Web")
}
