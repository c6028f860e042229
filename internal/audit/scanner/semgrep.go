package scanner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/julianshen/pqcaudit/internal/audit"
)

// DefaultRulesFile is the semgrep rule set shipped alongside the tool.
const DefaultRulesFile = "pqc_rules.yml"

// MinSemgrepVersion is the oldest semgrep release known to emit the JSON
// layout parsed here.
const MinSemgrepVersion = ">= 1.0.0"

// semgrepOutput is the subset of `semgrep --json` that we read.
type semgrepOutput struct {
	Results []semgrepResult `json:"results"`
}

type semgrepResult struct {
	CheckID string `json:"check_id"`
	Path    string `json:"path"`
	Start   struct {
		Line int `json:"line"`
	} `json:"start"`
	Extra struct {
		Message string `json:"message"`
	} `json:"extra"`
}

// SemgrepAnalyzer runs the semgrep CLI on one file at a time.
type SemgrepAnalyzer struct {
	binary string
	logger *slog.Logger
}

// NewSemgrepAnalyzer creates an analyzer that invokes binary, or "semgrep"
// from PATH when binary is empty.
func NewSemgrepAnalyzer(binary string, logger *slog.Logger) *SemgrepAnalyzer {
	if binary == "" {
		binary = "semgrep"
	}
	return &SemgrepAnalyzer{binary: binary, logger: audit.OrDiscard(logger)}
}

// Preflight confirms the binary exists and warns when it is older than
// MinSemgrepVersion.
func (a *SemgrepAnalyzer) Preflight(ctx context.Context) error {
	path, err := exec.LookPath(a.binary)
	if err != nil {
		return fmt.Errorf("%w: %s not found in PATH: %v", audit.ErrToolUnavailable, a.binary, err)
	}

	out, err := exec.CommandContext(ctx, path, "--version").Output()
	if err != nil {
		a.logger.Warn("could not determine semgrep version", "error", err)
		return nil
	}
	version := strings.TrimSpace(string(out))
	ok, err := versionSatisfies(version, MinSemgrepVersion)
	if err != nil {
		a.logger.Warn("unparseable semgrep version", "version", version, "error", err)
		return nil
	}
	if !ok {
		a.logger.Warn("semgrep is older than supported", "version", version, "required", MinSemgrepVersion)
	}
	return nil
}

// Analyze runs semgrep with the given rules against file.
func (a *SemgrepAnalyzer) Analyze(ctx context.Context, file, rules string) ([]Hit, error) {
	path, err := exec.LookPath(a.binary)
	if err != nil {
		return nil, fmt.Errorf("%w: %s not found in PATH: %v", audit.ErrToolUnavailable, a.binary, err)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, path, "--config", rules, "--json", "--quiet", file)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("%w: semgrep exited with code %d: %s",
				audit.ErrToolExecution, exitErr.ExitCode(), strings.TrimSpace(stderr.String()))
		}
		return nil, fmt.Errorf("%w: running semgrep: %v", audit.ErrToolExecution, err)
	}

	return parseSemgrepJSON(stdout.Bytes())
}

// parseSemgrepJSON converts semgrep's JSON report into hits.
func parseSemgrepJSON(data []byte) ([]Hit, error) {
	var out semgrepOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("%w: malformed semgrep output: %v", audit.ErrToolExecution, err)
	}
	hits := make([]Hit, 0, len(out.Results))
	for _, r := range out.Results {
		hits = append(hits, Hit{
			Path:      r.Path,
			StartLine: r.Start.Line,
			Message:   r.Extra.Message,
		})
	}
	return hits, nil
}

// versionSatisfies reports whether version meets the constraint.
func versionSatisfies(version, constraint string) (bool, error) {
	// semgrep may print extra text after the version on some installs.
	if fields := strings.Fields(version); len(fields) > 0 {
		version = fields[len(fields)-1]
	}
	v, err := semver.NewVersion(version)
	if err != nil {
		return false, fmt.Errorf("invalid version %q: %w", version, err)
	}
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return false, fmt.Errorf("invalid version constraint %q: %w", constraint, err)
	}
	return c.Check(v), nil
}
