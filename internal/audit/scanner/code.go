package scanner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/sourcegraph/conc/iter"

	"github.com/julianshen/pqcaudit/internal/audit"
)

// Hit is one raw match reported by the external static analyzer.
// A zero StartLine means the analyzer did not report one.
type Hit struct {
	Path      string
	StartLine int
	Message   string
}

// Analyzer is the external static-analysis engine. It is invoked once per
// file with the rule set to apply.
type Analyzer interface {
	Analyze(ctx context.Context, file, rules string) ([]Hit, error)
}

// Preflighter is implemented by analyzers that can check their own
// availability before a scan starts.
type Preflighter interface {
	Preflight(ctx context.Context) error
}

// CodeConfig configures a CodeScanner.
type CodeConfig struct {
	Include        []string // file-name globs, default *.py
	Exclude        []string // directory substrings or globs
	RulesFile      string
	DryRun         bool
	AnonymizeDepth int // keep only the last N path segments; 0 disables
	Concurrency    int
	Timeout        time.Duration // per-file analyzer timeout
	Logger         *slog.Logger
}

// CodeScanner turns static-analysis hits into findings.
type CodeScanner struct {
	analyzer Analyzer
	config   CodeConfig
	logger   *slog.Logger
}

// NewCodeScanner creates a CodeScanner backed by analyzer.
func NewCodeScanner(analyzer Analyzer, config CodeConfig) *CodeScanner {
	if len(config.Include) == 0 {
		config.Include = []string{"*.py"}
	}
	if config.RulesFile == "" {
		config.RulesFile = DefaultRulesFile
	}
	if config.Concurrency <= 0 {
		config.Concurrency = 1
	}
	if config.Timeout <= 0 {
		config.Timeout = 60 * time.Second
	}
	return &CodeScanner{
		analyzer: analyzer,
		config:   config,
		logger:   audit.OrDiscard(config.Logger).With("scanner", "code"),
	}
}

// Name returns the scanner name.
func (s *CodeScanner) Name() string {
	return "code"
}

// fileOutcome is the result of analysing one file.
type fileOutcome struct {
	findings []audit.Finding
	err      error
}

// Scan walks target.Root and analyses every eligible file. Per-file
// failures are logged and recorded; they never abort the scan.
func (s *CodeScanner) Scan(ctx context.Context, target audit.Target) (*audit.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("code scanner cancelled: %w", err)
	}

	res := &audit.Result{}
	files, err := audit.Walk(target.Root, audit.WalkOptions{
		Include: s.config.Include,
		Exclude: s.config.Exclude,
		OnError: func(path string, err error) {
			s.logger.Warn("skipping unreadable path", "path", path, "error", err)
		},
	})
	if err != nil {
		s.logger.Error("cannot scan root", "root", target.Root, "error", err)
		res.Errors = append(res.Errors, audit.ScanError{Scanner: s.Name(), Target: target.Root, Err: err})
		return res, nil
	}

	var eligible []string
	for _, file := range files {
		if err := checkReadable(file); err != nil {
			s.logger.Warn("skipping unreadable file", "file", file, "error", err)
			res.Errors = append(res.Errors, audit.ScanError{Scanner: s.Name(), Target: file, Err: err})
			continue
		}
		eligible = append(eligible, file)
	}
	res.Discovered = eligible

	if s.config.DryRun {
		for _, file := range eligible {
			s.logger.Info("dry run: would scan", "file", file)
		}
		return res, nil
	}

	if p, ok := s.analyzer.(Preflighter); ok && len(eligible) > 0 {
		if err := p.Preflight(ctx); err != nil {
			s.logger.Error("analyzer unavailable, no code findings will be produced", "error", err)
			res.Errors = append(res.Errors, audit.ScanError{Scanner: s.Name(), Err: err})
			if errors.Is(err, audit.ErrToolUnavailable) {
				return res, nil
			}
		}
	}

	mapper := iter.Mapper[string, fileOutcome]{MaxGoroutines: s.config.Concurrency}
	outcomes := mapper.Map(eligible, func(file *string) fileOutcome {
		return s.scanFile(ctx, *file)
	})

	for i, out := range outcomes {
		if out.err != nil {
			s.logger.Error("error scanning file", "file", eligible[i], "error", out.err)
			res.Errors = append(res.Errors, audit.ScanError{Scanner: s.Name(), Target: eligible[i], Err: out.err})
			continue
		}
		res.Findings = append(res.Findings, out.findings...)
	}
	return res, nil
}

// scanFile runs the analyzer on one file under the per-file timeout.
func (s *CodeScanner) scanFile(ctx context.Context, file string) fileOutcome {
	if err := ctx.Err(); err != nil {
		return fileOutcome{err: err}
	}
	fctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	s.logger.Debug("analysing file", "file", file)
	hits, err := s.analyzer.Analyze(fctx, file, s.config.RulesFile)
	if err != nil {
		return fileOutcome{err: err}
	}
	return fileOutcome{findings: NormalizeHits(hits, file, s.config.AnonymizeDepth)}
}

// NormalizeHits converts analyzer hits for file into findings. When
// anonymizeDepth is positive the location keeps only that many trailing
// path segments.
func NormalizeHits(hits []Hit, file string, anonymizeDepth int) []audit.Finding {
	if len(hits) == 0 {
		return nil
	}
	findings := make([]audit.Finding, 0, len(hits))
	for _, h := range hits {
		location := h.Path
		if location == "" {
			location = file
		}
		if anonymizeDepth > 0 {
			location = audit.Anonymize(location, anonymizeDepth)
		}
		line := audit.NotApplicable
		if h.StartLine > 0 {
			line = strconv.Itoa(h.StartLine)
		}
		msg := h.Message
		if msg == "" {
			msg = "No message"
		}
		findings = append(findings, audit.Finding{
			Location: location,
			Line:     line,
			Message:  msg,
			Risk:     audit.Classify(msg),
			Source:   "code",
		})
	}
	return findings
}

// checkReadable opens and closes file to confirm it can be read.
func checkReadable(file string) error {
	f, err := os.Open(file)
	if err != nil {
		return fmt.Errorf("%w: %v", audit.ErrIO, err)
	}
	return f.Close()
}
