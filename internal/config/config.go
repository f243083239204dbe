// Package config loads application configuration from flags, an optional
// YAML file and LEARNPREVIEW_ environment variables.
package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. LEARNPREVIEW_LISTEN_ADDR.
const EnvPrefix = "LEARNPREVIEW"

// Config holds the validated application configuration.
type Config struct {
	ListenAddr   string        `mapstructure:"listen_addr"`
	DBPath       string        `mapstructure:"db_path"`
	SecretKey    string        `mapstructure:"secret_key"`
	GitHub       GitHubConfig  `mapstructure:"github"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	CheckName    string        `mapstructure:"check_name"`
	CacheSize    int           `mapstructure:"cache_size"`
	Retry        RetryConfig   `mapstructure:"retry"`
	Ops          OpsConfig     `mapstructure:"ops"`
	Log          LogConfig     `mapstructure:"log"`
}

type GitHubConfig struct {
	Token string `mapstructure:"token"`
}

type RetryConfig struct {
	Attempts     int           `mapstructure:"attempts"`
	InitialDelay time.Duration `mapstructure:"initial_delay"`
	Factor       float64       `mapstructure:"factor"`
}

// OpsConfig controls documentation repository detection.
type OpsConfig struct {
	Org        string   `mapstructure:"org"`
	KnownRepos []string `mapstructure:"known_repos"`
	ConfigFile string   `mapstructure:"config_file"`
	RawBaseURL string   `mapstructure:"raw_base_url"`
	Branch     string   `mapstructure:"branch"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

var defaults = map[string]any{
	"listen_addr":         "127.0.0.1:8787",
	"db_path":             "learnpreview.db",
	"secret_key":          "",
	"github.token":        "",
	"poll_interval":       "15s",
	"check_name":          "OpenPublishing.Build",
	"cache_size":          50,
	"retry.attempts":      3,
	"retry.initial_delay": "2s",
	"retry.factor":        2.0,
	"ops.org":             "MicrosoftDocs",
	"ops.known_repos":     []string{"dotnet/docs", "dotnet/docs-aspire", "dotnet/docs-desktop"},
	"ops.config_file":     ".openpublishing.publish.config.json",
	"ops.raw_base_url":    "https://raw.githubusercontent.com",
	"ops.branch":          "main",
	"log.level":           "info",
	"log.format":          "console",
}

// NewViper returns a viper instance with defaults registered and environment
// lookup enabled. Nested keys map to variables with '.' replaced by '_', so
// ops.known_repos is read from LEARNPREVIEW_OPS_KNOWN_REPOS.
func NewViper() *viper.Viper {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load decodes and validates the configuration held by v.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	cfg.GitHub.Token = strings.TrimSpace(cfg.GitHub.Token)
	cfg.Ops.KnownRepos = splitList(cfg.Ops.KnownRepos)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	var errs []error

	if c.ListenAddr == "" {
		errs = append(errs, errors.New("listen_addr must not be empty"))
	}
	if c.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("poll_interval must be positive, got %s", c.PollInterval))
	}
	if strings.TrimSpace(c.CheckName) == "" {
		errs = append(errs, errors.New("check_name must not be empty"))
	}
	if c.CacheSize <= 0 {
		errs = append(errs, fmt.Errorf("cache_size must be positive, got %d", c.CacheSize))
	}
	if c.Retry.InitialDelay < 0 {
		errs = append(errs, fmt.Errorf("retry.initial_delay must not be negative, got %s", c.Retry.InitialDelay))
	}
	if c.Retry.Factor < 1 {
		errs = append(errs, fmt.Errorf("retry.factor must be at least 1, got %g", c.Retry.Factor))
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("log.format must be json or console, got %q", c.Log.Format))
	}
	if _, err := c.SecretKeyBytes(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// HasBootstrapToken reports whether a GitHub token was configured outside
// the credential store.
func (c *Config) HasBootstrapToken() bool {
	return c.GitHub.Token != ""
}

// SecretKeyBytes returns the credential encryption key. The key is given as
// 64 hex characters or 32 raw bytes; an empty key yields nil.
func (c *Config) SecretKeyBytes() ([]byte, error) {
	key := strings.TrimSpace(c.SecretKey)
	switch {
	case key == "":
		return nil, nil
	case len(key) == 64:
		b, err := hex.DecodeString(key)
		if err != nil {
			return nil, fmt.Errorf("secret_key is not valid hex: %w", err)
		}
		return b, nil
	case len(key) == 32:
		return []byte(key), nil
	default:
		return nil, fmt.Errorf("secret_key must be 32 bytes or 64 hex characters, got %d characters", len(key))
	}
}

// splitList flattens comma-separated entries and drops blanks.
func splitList(in []string) []string {
	out := []string{}
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
