package scanner

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/julianshen/pqcaudit/internal/audit"
)

// configExtensions are the file types the config scanner reads.
var configExtensions = []string{".yml", ".yaml", ".json", ".ini", ".conf"}

// algorithmRule detects one algorithm in config text. safe reports whether
// the content carries an indicator that the usage is already mitigated.
type algorithmRule struct {
	algorithm string
	pattern   *regexp.Regexp
	safe      func(content string) bool
}

// containsAny returns a safe predicate that fires when content contains any
// of the indicators verbatim.
func containsAny(indicators ...string) func(string) bool {
	return func(content string) bool {
		for _, ind := range indicators {
			if strings.Contains(content, ind) {
				return true
			}
		}
		return false
	}
}

func never(string) bool { return false }

// algorithmRules is evaluated in order; each rule is independent.
var algorithmRules = []algorithmRule{
	{"RSA", regexp.MustCompile(`(?i)\bRSA\b`), containsAny("hybrid RSA+Kyber", ">=3072")},
	{"ECDSA", regexp.MustCompile(`(?i)\bECDSA\b`), never},
	{"MD5", regexp.MustCompile(`(?i)\bMD5\b`), containsAny("SHA-256", "SHA-3")},
	{"SHA-1", regexp.MustCompile(`(?i)\bSHA-1\b`), containsAny("SHA-256", "SHA-3")},
	{"AES", regexp.MustCompile(`(?i)\bAES\b`), never},
	{"3DES", regexp.MustCompile(`(?i)\b3DES\b`), never},
	{"Diffie-Hellman", regexp.MustCompile(`(?i)\bDiffie[- ]?Hellman\b`), never},
}

// ConfigRisk is the fixed risk for an algorithm referenced in config text.
func ConfigRisk(algorithm string) audit.Risk {
	switch strings.ToUpper(algorithm) {
	case "RSA", "ECDSA", "SHA-1", "MD5":
		return audit.RiskHigh
	case "3DES", "DIFFIE-HELLMAN", "DIFFIE":
		return audit.RiskMedium
	default:
		return audit.RiskLow
	}
}

// ConfigConfig configures a ConfigScanner.
type ConfigConfig struct {
	Exclude        []string
	RulesFile      string // never scanned, to avoid matching our own rules
	AnonymizeDepth int
	Logger         *slog.Logger
}

// ConfigScanner finds references to weak algorithms in configuration files.
type ConfigScanner struct {
	config ConfigConfig
	logger *slog.Logger
}

// NewConfigScanner creates a ConfigScanner.
func NewConfigScanner(config ConfigConfig) *ConfigScanner {
	if config.RulesFile == "" {
		config.RulesFile = DefaultRulesFile
	}
	return &ConfigScanner{
		config: config,
		logger: audit.OrDiscard(config.Logger).With("scanner", "config"),
	}
}

// Name returns the scanner name.
func (s *ConfigScanner) Name() string {
	return "config"
}

// Scan walks target.Root and checks every configuration file.
func (s *ConfigScanner) Scan(ctx context.Context, target audit.Target) (*audit.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("config scanner cancelled: %w", err)
	}

	res := &audit.Result{}
	files, err := audit.Walk(target.Root, audit.WalkOptions{
		Exclude:    s.config.Exclude,
		Extensions: configExtensions,
		OnError: func(path string, err error) {
			s.logger.Warn("skipping unreadable path", "path", path, "error", err)
		},
	})
	if err != nil {
		s.logger.Error("cannot scan root", "root", target.Root, "error", err)
		res.Errors = append(res.Errors, audit.ScanError{Scanner: s.Name(), Target: target.Root, Err: err})
		return res, nil
	}

	rulesBase := filepath.Base(s.config.RulesFile)
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("config scanner cancelled: %w", err)
		}
		if filepath.Base(file) == rulesBase {
			s.logger.Debug("skipping rules file", "file", file)
			continue
		}
		res.Discovered = append(res.Discovered, file)
		res.Findings = append(res.Findings, s.scanFile(file)...)
	}
	return res, nil
}

// scanFile reads one file. A read failure becomes a single Unknown finding.
func (s *ConfigScanner) scanFile(file string) []audit.Finding {
	location := file
	if s.config.AnonymizeDepth > 0 {
		location = audit.Anonymize(file, s.config.AnonymizeDepth)
	}

	data, err := os.ReadFile(file)
	if err != nil {
		s.logger.Error("error reading config file", "file", file, "error", err)
		return []audit.Finding{{
			Location: location,
			Line:     audit.NotApplicable,
			Message:  fmt.Sprintf("Error reading config file: %v", err),
			Risk:     audit.RiskUnknown,
			Source:   "config",
		}}
	}
	return ScanContent(location, string(data))
}

// ScanContent checks config text for each algorithm independently and
// returns one finding per algorithm that is referenced without a safe
// indicator.
func ScanContent(location, content string) []audit.Finding {
	var findings []audit.Finding
	for _, rule := range algorithmRules {
		if !rule.pattern.MatchString(content) || rule.safe(content) {
			continue
		}
		findings = append(findings, audit.Finding{
			Location: location,
			Line:     audit.NotApplicable,
			Message:  audit.ConfigMessage(rule.algorithm),
			Risk:     ConfigRisk(rule.algorithm),
			Source:   "config",
		})
	}
	return findings
}
