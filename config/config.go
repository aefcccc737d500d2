// Package config loads the civic API configuration from a YAML or TOML
// file, expands ${VAR} references and applies CIVIC_* overrides.
package config

import (
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/goliatone/go-errors"
	"gopkg.in/yaml.v3"

	auth "github.com/goliatone/go-civic-auth"
)

const (
	EnvSigningKey  = "CIVIC_SIGNING_KEY"
	EnvDatabaseDSN = "CIVIC_DATABASE_DSN"
	EnvHTTPAddr    = "CIVIC_HTTP_ADDR"
)

// Config represents the complete civic API configuration
type Config struct {
	HTTP     HTTPConfig     `yaml:"http" toml:"http"`
	Database DatabaseConfig `yaml:"database" toml:"database"`
	Auth     AuthConfig     `yaml:"auth" toml:"auth"`
	Logging  LoggingConfig  `yaml:"logging" toml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics" toml:"metrics"`
}

type HTTPConfig struct {
	Addr           string   `yaml:"addr" toml:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins" toml:"allowed_origins"`
}

type DatabaseConfig struct {
	// DSN selects the driver: postgres:// and postgresql:// use pgx,
	// anything else is treated as a SQLite file or URI
	DSN         string `yaml:"dsn" toml:"dsn"`
	AutoMigrate bool   `yaml:"auto_migrate" toml:"auto_migrate"`
	Debug       bool   `yaml:"debug" toml:"debug"`
}

type AuthConfig struct {
	SigningKey       string        `yaml:"signing_key" toml:"signing_key"`
	Issuer           string        `yaml:"issuer" toml:"issuer"`
	TokenExpiration  time.Duration `yaml:"-" toml:"-"`
	PasswordCost     int           `yaml:"password_cost" toml:"password_cost"`
	PublicPrefixes   []string      `yaml:"public_prefixes" toml:"public_prefixes"`
	ContextKey       string        `yaml:"context_key" toml:"context_key"`
	DeterministicIDs bool          `yaml:"deterministic_ids" toml:"deterministic_ids"`

	TokenExpirationRaw string `yaml:"token_expiration" toml:"token_expiration"`
}

type LoggingConfig struct {
	// Level is info unless set to debug or trace
	Level string `yaml:"level" toml:"level"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" toml:"enabled"`
	Addr    string `yaml:"addr" toml:"addr"`
	Path    string `yaml:"path" toml:"path"`
}

var _ auth.Config = (*Config)(nil)

// Default returns a configuration with every optional field populated
func Default() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Addr:           ":8080",
			AllowedOrigins: []string{"http://localhost:5173"},
		},
		Database: DatabaseConfig{
			DSN:         "file:civic.db?cache=shared",
			AutoMigrate: true,
		},
		Auth: AuthConfig{
			Issuer:          "civic-api",
			TokenExpiration: auth.DefaultTokenTTL,
			PublicPrefixes:  []string{"/api/v1/auth/"},
			ContextKey:      auth.DefaultContextKey,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Addr:    ":9090",
			Path:    "/metrics",
		},
	}
}

// Load reads the file at path, YAML or TOML by extension, on top of the
// defaults. An empty path yields defaults plus environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err, errors.CategoryInternal, "reading config file").
				WithMetadata(map[string]any{"path": path})
		}

		if err := cfg.decode(filepath.Ext(path), expandEnvVars(string(data))); err != nil {
			return nil, err
		}
	}

	if err := parseDurations(cfg); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) decode(ext, data string) error {
	var err error
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal([]byte(data), c)
	case ".toml":
		_, err = toml.Decode(data, c)
	default:
		return errors.New("unsupported config file extension "+ext, errors.CategoryValidation)
	}

	if err != nil {
		return errors.Wrap(err, errors.CategoryValidation, "parsing config file")
	}
	return nil
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} with the variable's value, or an
// empty string when unset
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(envVarPattern.FindStringSubmatch(match)[1])
	})
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv(EnvSigningKey); v != "" {
		cfg.Auth.SigningKey = v
	}
	if v := os.Getenv(EnvDatabaseDSN); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv(EnvHTTPAddr); v != "" {
		cfg.HTTP.Addr = v
	}
}

func parseDurations(cfg *Config) error {
	raw := strings.TrimSpace(cfg.Auth.TokenExpirationRaw)
	if raw == "" {
		return nil
	}

	// bare numbers are hours
	if hours, err := strconv.Atoi(raw); err == nil {
		cfg.Auth.TokenExpiration = time.Duration(hours) * time.Hour
		return nil
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return errors.Wrap(err, errors.CategoryValidation, "parsing auth.token_expiration").
			WithMetadata(map[string]any{"value": raw})
	}
	cfg.Auth.TokenExpiration = d
	return nil
}

// Validate checks that all required configuration fields are present and valid.
func (c *Config) Validate() error {
	if c.Auth.SigningKey == "" {
		return errors.New("auth.signing_key is required (or set "+EnvSigningKey+")", errors.CategoryValidation)
	}

	if len(c.Auth.SigningKey) < auth.MinSigningKeyLength {
		return errors.New("auth.signing_key must be at least 32 bytes", errors.CategoryValidation)
	}

	if c.Auth.TokenExpiration <= 0 {
		return errors.New("auth.token_expiration must be positive", errors.CategoryValidation)
	}

	if c.Auth.PasswordCost < 0 || c.Auth.PasswordCost > 31 {
		return errors.New("auth.password_cost must be between 4 and 31, or 0 for the default", errors.CategoryValidation)
	}

	if c.HTTP.Addr == "" {
		return errors.New("http.addr is required", errors.CategoryValidation)
	}

	if c.Database.DSN == "" {
		return errors.New("database.dsn is required", errors.CategoryValidation)
	}

	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		return errors.New("metrics.addr is required when metrics are enabled", errors.CategoryValidation)
	}

	return nil
}

// IsPostgres reports whether the DSN points at PostgreSQL
func (c *Config) IsPostgres() bool {
	dsn := strings.ToLower(c.Database.DSN)
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

func (c *Config) GetSigningKey() string {
	return c.Auth.SigningKey
}

func (c *Config) GetTokenExpiration() time.Duration {
	return c.Auth.TokenExpiration
}

func (c *Config) GetIssuer() string {
	return c.Auth.Issuer
}

func (c *Config) GetPasswordCost() int {
	return c.Auth.PasswordCost
}

func (c *Config) GetPublicPrefixes() []string {
	return c.Auth.PublicPrefixes
}

func (c *Config) GetContextKey() string {
	return c.Auth.ContextKey
}

func (c *Config) GetDeterministicIDs() bool {
	return c.Auth.DeterministicIDs
}

// Redacted returns a copy safe to log
func (c *Config) Redacted() Config {
	out := *c
	if out.Auth.SigningKey != "" {
		out.Auth.SigningKey = "[redacted]"
	}
	return out
}
