// Package config loads, validates, and saves the audit configuration.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/julianshen/pqcaudit/internal/audit"
	"github.com/julianshen/pqcaudit/internal/logging"
)

// DefaultPath is the config file read when none is given.
const DefaultPath = "config.yml"

// Config represents the top-level application configuration.
type Config struct {
	Scan    ScanConfig    `yaml:"scan" toml:"scan"`
	TLS     TLSConfig     `yaml:"tls" toml:"tls"`
	Output  OutputConfig  `yaml:"output" toml:"output"`
	Logging LoggingConfig `yaml:"logging" toml:"logging"`
}

// ScanConfig holds settings for the code and config scanners. The key
// names match files written by earlier releases of the tool.
type ScanConfig struct {
	Root           string   `yaml:"scan_root" toml:"scan_root"`
	Include        []string `yaml:"include_patterns,omitempty" toml:"include_patterns,omitempty"`
	Exclude        []string `yaml:"exclude_directories,omitempty" toml:"exclude_directories,omitempty"`
	DryRun         bool     `yaml:"dry_run" toml:"dry_run"`
	Verbose        bool     `yaml:"verbose" toml:"verbose"`
	Anonymize      bool     `yaml:"anonymize" toml:"anonymize"`
	AnonymizeDepth int      `yaml:"anonymize_depth" toml:"anonymize_depth"`
	RulesFile      string   `yaml:"rules_file" toml:"rules_file"`
	Analyzer       string   `yaml:"analyzer" toml:"analyzer"`
	Concurrency    int      `yaml:"concurrency" toml:"concurrency"`
	TimeoutSeconds int      `yaml:"timeout_seconds" toml:"timeout_seconds"`
}

// TLSConfig holds settings for the TLS scanner.
type TLSConfig struct {
	Hosts          []string `yaml:"hosts,omitempty" toml:"hosts,omitempty"`
	HostFile       string   `yaml:"host_file,omitempty" toml:"host_file,omitempty"`
	DefaultPort    int      `yaml:"default_port" toml:"default_port"`
	TimeoutSeconds int      `yaml:"timeout_seconds" toml:"timeout_seconds"`
	Concurrency    int      `yaml:"concurrency" toml:"concurrency"`
	RatePerSecond  float64  `yaml:"rate_per_second" toml:"rate_per_second"`
}

// OutputConfig holds report rendering settings.
type OutputConfig struct {
	Format     string `yaml:"format" toml:"format"`
	File       string `yaml:"file,omitempty" toml:"file,omitempty"`
	FailOn     string `yaml:"fail_on,omitempty" toml:"fail_on,omitempty"`
	ChromePath string `yaml:"chrome_path,omitempty" toml:"chrome_path,omitempty"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Format string `yaml:"format" toml:"format"`
	Level  string `yaml:"level" toml:"level"`
}

// Formats lists the accepted output format names, aliases included.
var Formats = []string{"table", "rich", "json", "markdown", "md", "html", "sarif", "pdf"}

// sections are the top-level keys of the sectioned layout.
var sections = []string{"scan", "tls", "output", "logging"}

// DefaultConfig returns a Config populated with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		Scan: ScanConfig{
			Root:           ".",
			Include:        []string{"*.py"},
			AnonymizeDepth: 2,
			RulesFile:      "pqc_rules.yml",
			Analyzer:       "semgrep",
			Concurrency:    4,
			TimeoutSeconds: 60,
		},
		TLS: TLSConfig{
			DefaultPort:    443,
			TimeoutSeconds: 10,
			Concurrency:    8,
		},
		Output: OutputConfig{
			Format: "table",
		},
		Logging: LoggingConfig{
			Format: "text",
			Level:  "info",
		},
	}
}

// ScanTimeout is the per-file analyzer timeout.
func (c *Config) ScanTimeout() time.Duration {
	return time.Duration(c.Scan.TimeoutSeconds) * time.Second
}

// TLSTimeout is the per-host TLS timeout.
func (c *Config) TLSTimeout() time.Duration {
	return time.Duration(c.TLS.TimeoutSeconds) * time.Second
}

// EffectiveAnonymizeDepth is the depth scanners should use: 0 unless
// anonymization is enabled.
func (c *Config) EffectiveAnonymizeDepth() int {
	if !c.Scan.Anonymize {
		return 0
	}
	return c.Scan.AnonymizeDepth
}

// Load reads the config file at path on top of the defaults, applies
// environment overrides, and validates the result. A missing file yields
// the defaults. The format is chosen by extension: .toml is TOML, anything
// else is YAML. A file with none of the known sections is read as the scan
// section. Every failure wraps audit.ErrConfigParse.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("%w: reading %s: %v", audit.ErrConfigParse, path, err)
		default:
			if err := decode(cfg, path, data); err != nil {
				return nil, fmt.Errorf("%w: %s: %v", audit.ErrConfigParse, path, err)
			}
		}
	}

	cfg.ApplyEnvOverrides(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(cfg *Config, path string, data []byte) error {
	if isTOML(path) {
		var probe map[string]any
		if _, err := toml.Decode(string(data), &probe); err != nil {
			return fmt.Errorf("decoding toml: %w", err)
		}
		var target any = cfg
		if isLegacy(probe) {
			target = &cfg.Scan
		}
		if _, err := toml.Decode(string(data), target); err != nil {
			return fmt.Errorf("decoding toml: %w", err)
		}
		return nil
	}

	var probe map[string]any
	if err := yaml.Unmarshal(data, &probe); err != nil {
		return fmt.Errorf("decoding yaml: %w", err)
	}
	var target any = cfg
	if isLegacy(probe) {
		target = &cfg.Scan
	}
	if err := yaml.Unmarshal(data, target); err != nil {
		return fmt.Errorf("decoding yaml: %w", err)
	}
	return nil
}

// isLegacy reports whether a decoded document uses the flat layout.
func isLegacy(doc map[string]any) bool {
	if len(doc) == 0 {
		return false
	}
	for _, s := range sections {
		if _, ok := doc[s]; ok {
			return false
		}
	}
	return true
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// ApplyEnvOverrides applies PQCAUDIT_* variables read through getenv.
func (c *Config) ApplyEnvOverrides(getenv func(string) string) {
	if v := getenv("PQCAUDIT_SCAN_ROOT"); v != "" {
		c.Scan.Root = v
	}
	if v := getenv("PQCAUDIT_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := getenv("PQCAUDIT_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := getenv("PQCAUDIT_OUTPUT_FORMAT"); v != "" {
		c.Output.Format = v
	}
}

// Validate checks the config for values the scanners cannot use. The
// returned error wraps audit.ErrConfigParse and lists every problem found.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	for _, p := range c.Scan.Include {
		if _, err := filepath.Match(p, ""); err != nil {
			add("scan.include_patterns: bad pattern %q", p)
		}
	}
	for _, p := range c.Scan.Exclude {
		if _, err := filepath.Match(p, ""); err != nil {
			add("scan.exclude_directories: bad pattern %q", p)
		}
	}
	if c.Scan.AnonymizeDepth < 0 {
		add("scan.anonymize_depth must not be negative, got %d", c.Scan.AnonymizeDepth)
	}
	if c.Scan.Concurrency < 0 {
		add("scan.concurrency must not be negative, got %d", c.Scan.Concurrency)
	}
	if c.Scan.TimeoutSeconds < 0 {
		add("scan.timeout_seconds must not be negative, got %d", c.Scan.TimeoutSeconds)
	}

	if c.TLS.DefaultPort < 1 || c.TLS.DefaultPort > 65535 {
		add("tls.default_port must be between 1 and 65535, got %d", c.TLS.DefaultPort)
	}
	if c.TLS.TimeoutSeconds < 0 {
		add("tls.timeout_seconds must not be negative, got %d", c.TLS.TimeoutSeconds)
	}
	if c.TLS.Concurrency < 0 {
		add("tls.concurrency must not be negative, got %d", c.TLS.Concurrency)
	}
	if c.TLS.RatePerSecond < 0 {
		add("tls.rate_per_second must not be negative, got %s", strconv.FormatFloat(c.TLS.RatePerSecond, 'g', -1, 64))
	}

	if !contains(Formats, strings.ToLower(c.Output.Format)) {
		add("output.format %q is not one of %s", c.Output.Format, strings.Join(Formats, ", "))
	}
	if c.Output.FailOn != "" && audit.ParseRisk(c.Output.FailOn) == audit.RiskUnknown {
		add("output.fail_on %q is not one of high, medium, low", c.Output.FailOn)
	}

	if !contains(logging.Formats, strings.ToLower(c.Logging.Format)) {
		add("logging.format %q is not one of %s", c.Logging.Format, strings.Join(logging.Formats, ", "))
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		add("logging.level: %v", err)
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", audit.ErrConfigParse, errors.Join(errs...))
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Save writes cfg to path as YAML, or TOML for a .toml path. The file is
// created with owner-only permissions.
func Save(path string, cfg *Config) error {
	var buf bytes.Buffer
	if isTOML(path) {
		if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
			return fmt.Errorf("encoding toml: %w", err)
		}
	} else {
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			return fmt.Errorf("encoding yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("encoding yaml: %w", err)
		}
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	// WriteFile keeps the mode of an existing file.
	if err := os.Chmod(path, 0o600); err != nil {
		return fmt.Errorf("securing config: %w", err)
	}
	return nil
}
