package sqlite

// Schema DDL. Statements are idempotent so an existing database file is
// reused across runs.
const (
	createCompanies = `CREATE TABLE IF NOT EXISTS companies (
    id TEXT PRIMARY KEY,
    type TEXT NOT NULL,
    owner TEXT NOT NULL DEFAULT '',
    name TEXT NOT NULL DEFAULT '',
    url TEXT NOT NULL DEFAULT '',
    linkedin TEXT NOT NULL DEFAULT '',
    email TEXT NOT NULL DEFAULT '',
    contacted_email INTEGER NOT NULL DEFAULT 0,
    contacted_url INTEGER NOT NULL DEFAULT 0,
    contacted_linkedin INTEGER NOT NULL DEFAULT 0,
    status TEXT NOT NULL,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);`

	createNotes = `CREATE TABLE IF NOT EXISTS notes (
    id TEXT PRIMARY KEY,
    company_id TEXT NOT NULL,
    time TEXT NOT NULL,
    text TEXT NOT NULL,
    starred INTEGER NOT NULL DEFAULT 0,
    category TEXT NOT NULL DEFAULT 'General',
    FOREIGN KEY (company_id) REFERENCES companies(id) ON DELETE CASCADE
);`

	createSources = `CREATE TABLE IF NOT EXISTS sources (
    company_id TEXT NOT NULL,
    source TEXT NOT NULL,
    PRIMARY KEY (company_id, source),
    FOREIGN KEY (company_id) REFERENCES companies(id) ON DELETE CASCADE
);`

	createPrefs = `CREATE TABLE IF NOT EXISTS prefs (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);`

	createUsers = `CREATE TABLE IF NOT EXISTS users (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    username TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    role TEXT NOT NULL CHECK (role IN ('Admin', 'Manager', 'Sales'))
);`
)

// Index DDL.
const (
	createIndexNotesCompany  = `CREATE INDEX IF NOT EXISTS idx_notes_company ON notes(company_id);`
	createIndexSourcesSource = `CREATE INDEX IF NOT EXISTS idx_sources_source ON sources(source);`
)

// schemaStatements lists the DDL in execution order.
var schemaStatements = []string{
	createCompanies,
	createNotes,
	createSources,
	createPrefs,
	createUsers,
	createIndexNotesCompany,
	createIndexSourcesSource,
}
