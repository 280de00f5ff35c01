// Package config loads server settings from defaults, an optional YAML file,
// an optional .env file and the process environment, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Store backends.
const (
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
	StoreMemory   = "memory"
)

// Config holds every runtime setting. YAML keys match the environment names.
type Config struct {
	Addr   string `yaml:"ADDR"`
	WebDir string `yaml:"WEB_DIR"`

	Store       string `yaml:"STORE"`
	DatabaseURL string `yaml:"DATABASE_URL"`
	SQLitePath  string `yaml:"SQLITE_PATH"`

	MistralAPIKey    string `yaml:"MISTRAL_API_KEY"`
	MistralAPIURL    string `yaml:"MISTRAL_API_URL"`
	MistralModel     string `yaml:"MISTRAL_MODEL"`
	MistralMaxTokens int    `yaml:"MISTRAL_MAX_TOKENS"`

	S3Bucket    string `yaml:"S3_BUCKET"`
	S3Region    string `yaml:"S3_REGION"`
	S3Endpoint  string `yaml:"S3_ENDPOINT"`
	S3PublicURL string `yaml:"S3_PUBLIC_URL"`
	S3AccessKey string `yaml:"S3_ACCESS_KEY"`
	S3SecretKey string `yaml:"S3_SECRET_KEY"`

	RedisAddr     string        `yaml:"REDIS_ADDR"`
	RedisPassword string        `yaml:"REDIS_PASSWORD"`
	RedisDB       int           `yaml:"REDIS_DB"`
	HandoffTTL    time.Duration `yaml:"HANDOFF_TTL"`

	OIDCIssuer       string `yaml:"OIDC_ISSUER"`
	OIDCClientID     string `yaml:"OIDC_CLIENT_ID"`
	OIDCClientSecret string `yaml:"OIDC_CLIENT_SECRET"`
	OIDCRedirectURL  string `yaml:"OIDC_REDIRECT_URL"`
}

// Default returns the settings used when nothing else is configured.
func Default() *Config {
	return &Config{
		Addr:             ":8080",
		WebDir:           "web",
		Store:            StorePostgres,
		SQLitePath:       "nutriscan.db",
		MistralAPIURL:    "https://api.mistral.ai/v1",
		MistralModel:     "mistral-medium",
		MistralMaxTokens: 1000,
		S3Region:         "us-east-1",
		HandoffTTL:       24 * time.Hour,
	}
}

// Load builds the configuration. CONFIG_FILE (default config.yaml) and
// ENV_FILE (default .env) are read when present.
func Load() (*Config, error) {
	cfg := Default()

	configFile := envOr("CONFIG_FILE", "config.yaml")
	if err := cfg.loadYAML(configFile); err != nil {
		return nil, err
	}

	dotenv := map[string]string{}
	envFile := envOr("ENV_FILE", ".env")
	if _, err := os.Stat(envFile); err == nil {
		m, err := godotenv.Read(envFile)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", envFile, err)
		}
		dotenv = m
	}

	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok && v != ""
	}
	if err := cfg.applyEnv(lookup); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadYAML(path string) error {
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"ADDR":               &c.Addr,
		"WEB_DIR":            &c.WebDir,
		"STORE":              &c.Store,
		"DATABASE_URL":       &c.DatabaseURL,
		"SQLITE_PATH":        &c.SQLitePath,
		"MISTRAL_API_KEY":    &c.MistralAPIKey,
		"MISTRAL_API_URL":    &c.MistralAPIURL,
		"MISTRAL_MODEL":      &c.MistralModel,
		"S3_BUCKET":          &c.S3Bucket,
		"S3_REGION":          &c.S3Region,
		"S3_ENDPOINT":        &c.S3Endpoint,
		"S3_PUBLIC_URL":      &c.S3PublicURL,
		"S3_ACCESS_KEY":      &c.S3AccessKey,
		"S3_SECRET_KEY":      &c.S3SecretKey,
		"REDIS_ADDR":         &c.RedisAddr,
		"REDIS_PASSWORD":     &c.RedisPassword,
		"OIDC_ISSUER":        &c.OIDCIssuer,
		"OIDC_CLIENT_ID":     &c.OIDCClientID,
		"OIDC_CLIENT_SECRET": &c.OIDCClientSecret,
		"OIDC_REDIRECT_URL":  &c.OIDCRedirectURL,
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}

	ints := map[string]*int{
		"MISTRAL_MAX_TOKENS": &c.MistralMaxTokens,
		"REDIS_DB":           &c.RedisDB,
	}
	for key, dst := range ints {
		v, ok := lookup(key)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: %s: %w", key, err)
		}
		*dst = n
	}

	if v, ok := lookup("HANDOFF_TTL"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: HANDOFF_TTL: %w", err)
		}
		c.HandoffTTL = d
	}

	c.Store = strings.ToLower(strings.TrimSpace(c.Store))
	return nil
}

// Validate reports settings the server cannot start without.
func (c *Config) Validate() error {
	if c.MistralAPIKey == "" {
		return errors.New("MISTRAL_API_KEY is required")
	}
	switch c.Store {
	case StorePostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required when STORE=postgres")
		}
	case StoreSQLite:
		if c.SQLitePath == "" {
			return errors.New("SQLITE_PATH is required when STORE=sqlite")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("unknown STORE %q", c.Store)
	}
	if c.HandoffTTL <= 0 {
		return errors.New("HANDOFF_TTL must be positive")
	}
	return nil
}

// OIDCEnabled reports whether SSO settings are present.
func (c *Config) OIDCEnabled() bool {
	return c.OIDCIssuer != "" && c.OIDCClientID != ""
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
