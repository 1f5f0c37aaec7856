// Package config loads minicrm settings from config.yaml, an optional .env
// file, and MINICRM_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/minicrm/internal/logger"
	"github.com/mesh-intelligence/minicrm/internal/paths"
	"github.com/mesh-intelligence/minicrm/pkg/types"
)

// EnvPrefix prefixes environment overrides, e.g. MINICRM_SERVER_ADDR.
const EnvPrefix = "MINICRM"

// Config keys.
const (
	KeyBackend         = "backend"
	KeyDataDir         = "data_dir"
	KeyTypes           = "types"
	KeyOwners          = "owners"
	KeyServerAddr      = "server.addr"
	KeyLogLevel        = "log.level"
	KeyLogEnvironment  = "log.environment"
	KeySigningKey      = "auth.signing_key"
	KeyExpirationHours = "auth.expiration_hours"
	KeySeedUsers       = "auth.seed_users"
)

// Defaults.
const (
	DefaultServerAddr      = ":4500"
	DefaultLogLevel        = "info"
	DefaultExpirationHours = 12
)

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

// AuthConfig configures login and tokens. An empty SigningKey makes the
// server generate a random key at start-up.
type AuthConfig struct {
	SigningKey      string           `mapstructure:"signing_key" yaml:"signing_key"`
	ExpirationHours int              `mapstructure:"expiration_hours" yaml:"expiration_hours"`
	SeedUsers       []types.SeedUser `mapstructure:"seed_users" yaml:"seed_users"`
}

// Config is the full application configuration.
type Config struct {
	Backend string        `mapstructure:"backend" yaml:"backend"`
	DataDir string        `mapstructure:"data_dir" yaml:"data_dir,omitempty"`
	Types   []string      `mapstructure:"types" yaml:"types"`
	Owners  []string      `mapstructure:"owners" yaml:"owners"`
	Server  ServerConfig  `mapstructure:"server" yaml:"server"`
	Log     logger.Config `mapstructure:"log" yaml:"log"`
	Auth    AuthConfig    `mapstructure:"auth" yaml:"auth"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Backend: types.BackendSQLite,
		Types:   types.DefaultTypes,
		Owners:  types.DefaultOwners,
		Server:  ServerConfig{Addr: DefaultServerAddr},
		Log:     logger.Config{Level: DefaultLogLevel, Environment: logger.EnvDevelopment},
		Auth: AuthConfig{
			ExpirationHours: DefaultExpirationHours,
			SeedUsers: []types.SeedUser{
				{Username: "admin", Password: "changeme", Role: types.RoleAdmin},
			},
		},
	}
}

// Load reads configuration in increasing precedence: defaults, config.yaml
// in configDir, then MINICRM_* variables (a .env file in the working
// directory is loaded into the environment first). A missing config.yaml or
// .env is not an error.
//
// DataDir holds only the config.yaml value; the environment override for
// the data directory is applied by paths.ResolveDataDir.
func Load(configDir string) (Config, error) {
	if err := godotenv.Load(paths.EnvFileName); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("loading %s: %w", paths.EnvFileName, err)
	}

	def := Default()
	v := viper.New()
	v.SetDefault(KeyBackend, def.Backend)
	v.SetDefault(KeyDataDir, "")
	v.SetDefault(KeyTypes, def.Types)
	v.SetDefault(KeyOwners, def.Owners)
	v.SetDefault(KeyServerAddr, def.Server.Addr)
	v.SetDefault(KeyLogLevel, def.Log.Level)
	v.SetDefault(KeyLogEnvironment, def.Log.Environment)
	v.SetDefault(KeySigningKey, "")
	v.SetDefault(KeyExpirationHours, def.Auth.ExpirationHours)
	v.SetDefault(KeySeedUsers, def.Auth.SeedUsers)

	v.SetConfigName(strings.TrimSuffix(paths.ConfigFileName, ".yaml"))
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("reading config: %w", err)
		}
	}
	fileDataDir := v.GetString(KeyDataDir)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	cfg.DataDir = fileDataDir
	return cfg, nil
}

// Validate checks the settings that Load cannot default.
func (c Config) Validate() error {
	if err := c.Store("").Validate(); err != nil {
		return err
	}
	if c.Server.Addr == "" {
		return errors.New("server.addr must not be empty")
	}
	if c.Auth.ExpirationHours <= 0 {
		return errors.New("auth.expiration_hours must be positive")
	}
	return nil
}

// Store returns the storage configuration for dataDir.
func (c Config) Store(dataDir string) types.Config {
	return types.Config{
		Backend:   c.Backend,
		DataDir:   dataDir,
		Types:     c.Types,
		Owners:    c.Owners,
		SeedUsers: c.Auth.SeedUsers,
	}
}

const fileHeader = `# minicrm configuration
# Every key can be overridden by MINICRM_<KEY> with dots replaced by
# underscores, e.g. MINICRM_SERVER_ADDR.

`

// WriteDefault writes the default configuration, with dataDir if set, to
// path unless the file already exists. Reports whether it wrote the file.
func WriteDefault(path, dataDir string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return false, fmt.Errorf("checking %s: %w", path, err)
	}

	cfg := Default()
	cfg.DataDir = dataDir
	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return false, fmt.Errorf("encoding config: %w", err)
	}
	if err := os.WriteFile(path, append([]byte(fileHeader), data...), 0o600); err != nil {
		return false, fmt.Errorf("writing %s: %w", path, err)
	}
	return true, nil
}
