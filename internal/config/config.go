// Package config loads tablechat's YAML configuration.
// Environment variables in the format ${VAR_NAME} are expanded before parsing,
// and a .env file in the working directory is honoured when present.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/saravenpi/tablechat/internal/format"
)

// Config represents the complete tablechat configuration
type Config struct {
	API     APIConfig     `yaml:"api"`
	UI      UIConfig      `yaml:"ui"`
	Storage StorageConfig `yaml:"storage"`
	Logging LoggingConfig `yaml:"logging"`
}

// APIConfig holds the restaurant console endpoints
type APIConfig struct {
	BaseURL string        `yaml:"base_url"`
	WSURL   string        `yaml:"ws_url"`
	Token   string        `yaml:"token"`
	Timeout time.Duration `yaml:"-"`

	TimeoutRaw string `yaml:"timeout"`
}

// UIConfig holds display settings
type UIConfig struct {
	Locale           string `yaml:"locale"`
	MobileBreakpoint int    `yaml:"mobile_breakpoint"`

	locale format.Locale
}

// StorageConfig holds the local state directory (contacts, read marks)
type StorageConfig struct {
	Dir string `yaml:"dir"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level"`
	Path  string `yaml:"path"`
}

const (
	DefaultTimeout          = 15 * time.Second
	DefaultMobileBreakpoint = 100
)

// DefaultDir returns ~/.tablechat.
func DefaultDir() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".tablechat")
}

// DefaultPath returns ~/.tablechat/config.yml.
func DefaultPath() string {
	return filepath.Join(DefaultDir(), "config.yml")
}

// Load reads the configuration at path. A missing file at the default path
// is not an error as long as the environment supplies the API settings.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		data = nil
	}

	return Parse(data)
}

// Parse expands, decodes, defaults and validates raw YAML.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	expanded := expandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.parseDurations(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var envPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnv replaces ${VAR} with the value of VAR, or the empty string.
func expandEnv(s string) string {
	return envPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := envPattern.FindStringSubmatch(match)[1]
		return os.Getenv(name)
	})
}

// applyEnv lets TABLECHAT_* variables fill settings left empty by the file.
func (c *Config) applyEnv() {
	if c.API.BaseURL == "" {
		c.API.BaseURL = os.Getenv("TABLECHAT_API_URL")
	}
	if c.API.WSURL == "" {
		c.API.WSURL = os.Getenv("TABLECHAT_WS_URL")
	}
	if c.API.Token == "" {
		c.API.Token = os.Getenv("TABLECHAT_TOKEN")
	}
}

func (c *Config) applyDefaults() {
	if c.UI.MobileBreakpoint == 0 {
		c.UI.MobileBreakpoint = DefaultMobileBreakpoint
	}
	if c.Storage.Dir == "" {
		c.Storage.Dir = DefaultDir()
	}
	c.Storage.Dir = expandHome(c.Storage.Dir)
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Path == "" {
		c.Logging.Path = filepath.Join(c.Storage.Dir, "tablechat.log")
	}
	c.Logging.Path = expandHome(c.Logging.Path)
}

func (c *Config) parseDurations() error {
	if c.API.TimeoutRaw == "" {
		c.API.Timeout = DefaultTimeout
		return nil
	}
	d, err := time.ParseDuration(c.API.TimeoutRaw)
	if err != nil {
		return fmt.Errorf("parsing api.timeout: %w", err)
	}
	c.API.Timeout = d
	return nil
}

// Validate checks required fields and value ranges.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url is required (or set TABLECHAT_API_URL)")
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout must be positive")
	}
	if c.UI.MobileBreakpoint < 0 {
		return fmt.Errorf("ui.mobile_breakpoint must not be negative")
	}
	locale, err := format.ParseLocale(c.UI.Locale)
	if err != nil {
		return fmt.Errorf("ui.locale: %w", err)
	}
	c.UI.locale = locale
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error")
	}
	return nil
}

// LocaleValue returns the parsed ui.locale.
func (u UIConfig) LocaleValue() format.Locale {
	return u.locale
}

// ContactsDir is where the contact book lives.
func (c *Config) ContactsDir() string {
	return filepath.Join(c.Storage.Dir, "contacts")
}

// StatePath is the SQLite database holding read marks.
func (c *Config) StatePath() string {
	return filepath.Join(c.Storage.Dir, "state.db")
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return p
		}
		return filepath.Join(homeDir, strings.TrimPrefix(p, "~"))
	}
	return p
}
