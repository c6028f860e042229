package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianshen/pqcaudit/internal/audit"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, ".", cfg.Scan.Root)
	assert.Equal(t, []string{"*.py"}, cfg.Scan.Include)
	assert.Empty(t, cfg.Scan.Exclude)
	assert.Equal(t, "pqc_rules.yml", cfg.Scan.RulesFile)
	assert.Equal(t, "semgrep", cfg.Scan.Analyzer)
	assert.Equal(t, 2, cfg.Scan.AnonymizeDepth)
	assert.Equal(t, 4, cfg.Scan.Concurrency)
	assert.Equal(t, 60*time.Second, cfg.ScanTimeout())
	assert.Equal(t, 443, cfg.TLS.DefaultPort)
	assert.Equal(t, 10*time.Second, cfg.TLSTimeout())
	assert.Equal(t, 8, cfg.TLS.Concurrency)
	assert.Equal(t, "table", cfg.Output.Format)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.NoError(t, cfg.Validate())
}

func TestLoadYAMLSections(t *testing.T) {
	path := writeConfig(t, "config.yml", `
scan:
  scan_root: ./src
  include_patterns: ["*.py", "*.js"]
  exclude_directories: [".git", "node_modules"]
  dry_run: true
  anonymize: true
  concurrency: 2
tls:
  hosts: [example.com, "api.example.com:8443"]
  default_port: 8443
  rate_per_second: 2.5
output:
  format: json
  fail_on: high
logging:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "./src", cfg.Scan.Root)
	assert.Equal(t, []string{"*.py", "*.js"}, cfg.Scan.Include)
	assert.Equal(t, []string{".git", "node_modules"}, cfg.Scan.Exclude)
	assert.True(t, cfg.Scan.DryRun)
	assert.Equal(t, 2, cfg.EffectiveAnonymizeDepth())
	assert.Equal(t, 2, cfg.Scan.Concurrency)
	assert.Equal(t, "semgrep", cfg.Scan.Analyzer, "unset keys keep their defaults")
	assert.Equal(t, []string{"example.com", "api.example.com:8443"}, cfg.TLS.Hosts)
	assert.Equal(t, 8443, cfg.TLS.DefaultPort)
	assert.InDelta(t, 2.5, cfg.TLS.RatePerSecond, 0.001)
	assert.Equal(t, "json", cfg.Output.Format)
	assert.Equal(t, "high", cfg.Output.FailOn)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadYAMLLegacyFlatLayout(t *testing.T) {
	path := writeConfig(t, "config.yml", `
scan_root: /srv/app
include_patterns:
  - "*.py"
exclude_directories:
  - venv
verbose: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/srv/app", cfg.Scan.Root)
	assert.Equal(t, []string{"venv"}, cfg.Scan.Exclude)
	assert.True(t, cfg.Scan.Verbose)
	assert.Equal(t, "table", cfg.Output.Format)
}

func TestLoadTOML(t *testing.T) {
	path := writeConfig(t, "pqcaudit.toml", `
[scan]
scan_root = "repo"
include_patterns = ["*.go"]
timeout_seconds = 30

[tls]
hosts = ["example.com"]

[output]
format = "sarif"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "repo", cfg.Scan.Root)
	assert.Equal(t, []string{"*.go"}, cfg.Scan.Include)
	assert.Equal(t, 30*time.Second, cfg.ScanTimeout())
	assert.Equal(t, []string{"example.com"}, cfg.TLS.Hosts)
	assert.Equal(t, "sarif", cfg.Output.Format)
}

func TestLoadTOMLLegacyFlatLayout(t *testing.T) {
	path := writeConfig(t, "legacy.toml", `
scan_root = "legacy"
dry_run = true
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "legacy", cfg.Scan.Root)
	assert.True(t, cfg.Scan.DryRun)
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.yml")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadMalformed(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad.yml", "scan: [unclosed"},
		{"bad.toml", "[scan\nscan_root = 1"},
		{"wrongtype.yml", "scan:\n  concurrency: many\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.name, tt.content))
			require.Error(t, err)
			assert.ErrorIs(t, err, audit.ErrConfigParse)
		})
	}
}

func TestLoadInvalidValues(t *testing.T) {
	path := writeConfig(t, "config.yml", `
scan:
  include_patterns: ["[a-"]
  concurrency: -1
tls:
  default_port: 70000
output:
  format: docx
logging:
  level: chatty
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, audit.ErrConfigParse)
	for _, want := range []string{"include_patterns", "scan.concurrency", "tls.default_port", "output.format", "logging.level"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PQCAUDIT_SCAN_ROOT", "/from/env")
	t.Setenv("PQCAUDIT_LOG_LEVEL", "warn")
	t.Setenv("PQCAUDIT_LOG_FORMAT", "json")
	t.Setenv("PQCAUDIT_OUTPUT_FORMAT", "markdown")

	path := writeConfig(t, "config.yml", "scan:\n  scan_root: /from/file\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/from/env", cfg.Scan.Root)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "markdown", cfg.Output.Format)
}

func TestValidateFailOn(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Output.FailOn = "Medium"
	assert.NoError(t, cfg.Validate())

	cfg.Output.FailOn = "critical"
	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, audit.ErrConfigParse)
}

func TestEffectiveAnonymizeDepth(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 0, cfg.EffectiveAnonymizeDepth())
	cfg.Scan.Anonymize = true
	assert.Equal(t, 2, cfg.EffectiveAnonymizeDepth())
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	for _, name := range []string{"config.yml", "config.toml"} {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Scan.Root = "/code"
			cfg.Scan.Exclude = []string{".git", "node_modules"}
			cfg.Scan.Anonymize = true
			cfg.Output.Format = "html"

			path := filepath.Join(t.TempDir(), "nested", name)
			require.NoError(t, Save(path, cfg))

			loaded, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, cfg, loaded)
		})
	}
}

func TestSavePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix permissions only")
	}
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0o644))
	require.NoError(t, Save(path, DefaultConfig()))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestSaveWritesScanSection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, Save(path, DefaultConfig()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "scan:\n")
	assert.Contains(t, string(data), "scan_root:")
}
