package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/minicrm/internal/paths"
	"github.com/mesh-intelligence/minicrm/pkg/types"
)

// chdir switches the working directory for one test so no stray .env is
// picked up.
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(wd) })
}

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, types.BackendSQLite, cfg.Backend)
	assert.Equal(t, "", cfg.DataDir)
	assert.Equal(t, types.DefaultTypes, cfg.Types)
	assert.Equal(t, types.DefaultOwners, cfg.Owners)
	assert.Equal(t, DefaultServerAddr, cfg.Server.Addr)
	assert.Equal(t, DefaultLogLevel, cfg.Log.Level)
	assert.Equal(t, DefaultExpirationHours, cfg.Auth.ExpirationHours)
	require.Len(t, cfg.Auth.SeedUsers, 1)
	assert.Equal(t, types.RoleAdmin, cfg.Auth.SeedUsers[0].Role)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_File(t *testing.T) {
	chdir(t, t.TempDir())
	dir := t.TempDir()
	yml := `backend: sqlite
data_dir: /srv/crm
owners: [Alice, Bob]
server:
  addr: 127.0.0.1:9000
log:
  level: debug
auth:
  signing_key: s3cret
  seed_users:
    - username: alice
      password: pw
      role: Manager
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, paths.ConfigFileName), []byte(yml), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "/srv/crm", cfg.DataDir)
	assert.Equal(t, []string{"Alice", "Bob"}, cfg.Owners)
	assert.Equal(t, types.DefaultTypes, cfg.Types)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "s3cret", cfg.Auth.SigningKey)
	assert.Equal(t, []types.SeedUser{{Username: "alice", Password: "pw", Role: types.RoleManager}}, cfg.Auth.SeedUsers)
}

func TestLoad_EnvOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, paths.ConfigFileName), []byte("server:\n  addr: :1\ndata_dir: /from/file\n"), 0o644))

	t.Setenv("MINICRM_SERVER_ADDR", ":8080")
	t.Setenv("MINICRM_AUTH_EXPIRATION_HOURS", "48")
	t.Setenv("MINICRM_DATA_DIR", "/from/env")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 48, cfg.Auth.ExpirationHours)
	assert.Equal(t, "/from/file", cfg.DataDir, "config.yaml beats the env for data_dir")
}

func TestLoad_DotEnv(t *testing.T) {
	wd := t.TempDir()
	chdir(t, wd)
	require.NoError(t, os.WriteFile(filepath.Join(wd, paths.EnvFileName), []byte("MINICRM_LOG_LEVEL=warn\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("MINICRM_LOG_LEVEL") })

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoad_BadYAML(t *testing.T) {
	chdir(t, t.TempDir())
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, paths.ConfigFileName), []byte("server: [unclosed"), 0o644))

	_, err := Load(dir)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "default is valid", mutate: func(*Config) {}},
		{name: "unknown backend", mutate: func(c *Config) { c.Backend = "postgres" }, wantErr: true},
		{name: "empty addr", mutate: func(c *Config) { c.Server.Addr = "" }, wantErr: true},
		{name: "zero expiration", mutate: func(c *Config) { c.Auth.ExpirationHours = 0 }, wantErr: true},
		{name: "bad seed role", mutate: func(c *Config) { c.Auth.SeedUsers[0].Role = "Root" }, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			if tt.wantErr {
				assert.Error(t, cfg.Validate())
			} else {
				assert.NoError(t, cfg.Validate())
			}
		})
	}
}

func TestWriteDefault(t *testing.T) {
	chdir(t, t.TempDir())
	dir := t.TempDir()
	path := paths.ConfigFile(dir)

	wrote, err := WriteDefault(path, "/data")
	require.NoError(t, err)
	assert.True(t, wrote)

	wrote, err = WriteDefault(path, "/other")
	require.NoError(t, err)
	assert.False(t, wrote, "existing file is kept")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "/data", cfg.DataDir)
	assert.Equal(t, Default().Auth.SeedUsers, cfg.Auth.SeedUsers)
}

func TestStore(t *testing.T) {
	cfg := Default()
	sc := cfg.Store("/d")
	assert.Equal(t, "/d", sc.DataDir)
	assert.Equal(t, cfg.Auth.SeedUsers, sc.SeedUsers)
	assert.Equal(t, cfg.Types, sc.Types)
}
