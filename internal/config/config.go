// Package config handles loading and resolving bazi configuration.
// Resolution order (first non-empty value wins):
//  1. CLI flag --api-url
//  2. Environment variable BAZI_API_URL
//  3. config.json in the current working directory
//  4. built-in default (http://localhost:8000)
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	DefaultConfigFile  = "config.json"
	DefaultBaseURL     = "http://localhost:8000"
	DefaultFormat      = "table"
	DefaultTimeout     = 30 * time.Second
	DefaultConcurrency = 4
	DefaultRate        = 5.0
	EnvBaseURL         = "BAZI_API_URL"
	EnvDBPath          = "BAZI_DB_PATH"
)

// File is the on-disk representation of config.json.
type File struct {
	BaseURL       string  `json:"base_url"`
	DefaultFormat string  `json:"default_format"`
	Timeout       string  `json:"timeout"`
	Concurrency   int     `json:"concurrency"`
	Rate          float64 `json:"rate"`
	DBPath        string  `json:"db_path"`
	UserID        string  `json:"user_id,omitempty"`
}

// Config is the fully-resolved runtime configuration.
// All callers use this struct; the File is only read during loading.
type Config struct {
	BaseURL     string
	Format      string
	Timeout     time.Duration // 0 = no client-side timeout
	Concurrency int
	Rate        float64
	DBPath      string
	UserID      string
	ConfigPath  string // path of the config.json that was loaded (empty if none found)

	// Runtime overrides set from CLI flags after Load()
	Quiet   bool
	Verbose bool
	Debug   bool
}

// NormalizeBaseURL trims surrounding whitespace and a single trailing slash.
// The result is not validated; a malformed URL surfaces later as a
// transport error.
func NormalizeBaseURL(raw string) string {
	return strings.TrimSuffix(strings.TrimSpace(raw), "/")
}

// Load resolves configuration from all sources.
// flagBaseURL is the value of --api-url (empty string if not set).
func Load(flagBaseURL string) (*Config, error) {
	cfg := &Config{
		BaseURL:     DefaultBaseURL,
		Format:      DefaultFormat,
		Timeout:     DefaultTimeout,
		Concurrency: DefaultConcurrency,
		Rate:        DefaultRate,
	}

	// Layer 1: config.json (lowest priority)
	f, path, err := loadFile()
	switch {
	case err == nil:
		applyFile(cfg, f, path)
	case !os.IsNotExist(err):
		return nil, err
	}

	// Layer 2: environment
	if v := os.Getenv(EnvBaseURL); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv(EnvDBPath); v != "" {
		cfg.DBPath = v
	}

	// Layer 3: CLI flag (highest priority)
	if flagBaseURL != "" {
		cfg.BaseURL = flagBaseURL
	}
	cfg.BaseURL = NormalizeBaseURL(cfg.BaseURL)

	if cfg.DBPath == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			cfg.DBPath = filepath.Join(home, ".bazi", "bazi.db")
		}
	}

	return cfg, nil
}

// loadFile reads config.json from the current working directory.
// A missing file is reported with an error satisfying os.IsNotExist.
func loadFile() (*File, string, error) {
	path, err := filepath.Abs(DefaultConfigFile)
	if err != nil {
		return nil, "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", err
		}
		return nil, "", fmt.Errorf("reading config.json: %w", err)
	}
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, "", fmt.Errorf("parsing config.json: %w", err)
	}
	return &f, path, nil
}

// applyFile copies values from a parsed File into cfg,
// skipping any fields that are zero/empty.
func applyFile(cfg *Config, f *File, path string) {
	cfg.ConfigPath = path
	if f.BaseURL != "" {
		cfg.BaseURL = f.BaseURL
	}
	if f.DefaultFormat != "" {
		cfg.Format = f.DefaultFormat
	}
	if f.Timeout != "" {
		if d, err := time.ParseDuration(f.Timeout); err == nil {
			cfg.Timeout = d
		}
	}
	if f.Concurrency > 0 {
		cfg.Concurrency = f.Concurrency
	}
	if f.Rate > 0 {
		cfg.Rate = f.Rate
	}
	if f.DBPath != "" {
		cfg.DBPath = f.DBPath
	}
	if f.UserID != "" {
		cfg.UserID = f.UserID
	}
}

// Template returns a File populated with sensible defaults, suitable for
// writing an initial config.json via `bazi config init`.
func Template() File {
	return File{
		BaseURL:       DefaultBaseURL,
		DefaultFormat: DefaultFormat,
		Timeout:       "30s",
		Concurrency:   DefaultConcurrency,
		Rate:          DefaultRate,
	}
}

// ReadFile reads a config file from path.
func ReadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &f, nil
}

// WriteFile serialises a File to the given path.
func WriteFile(path string, f File) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0600)
}
