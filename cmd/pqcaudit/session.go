// cmd/pqcaudit/session.go
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/julianshen/pqcaudit/internal/audit"
	"github.com/julianshen/pqcaudit/internal/audit/output"
	"github.com/julianshen/pqcaudit/internal/audit/scanner"
	"github.com/julianshen/pqcaudit/internal/config"
	"github.com/julianshen/pqcaudit/internal/logging"
)

// newAnalyzer and newCertFetcher build the external collaborators. Tests
// replace them with fakes.
var (
	newAnalyzer = func(cfg *config.Config, logger *slog.Logger) scanner.Analyzer {
		return scanner.NewSemgrepAnalyzer(cfg.Scan.Analyzer, logger)
	}
	newCertFetcher = func() scanner.CertFetcher {
		return scanner.NewDialFetcher()
	}
)

// session is the resolved configuration and I/O for one command run.
type session struct {
	cfg    *config.Config
	logger *slog.Logger
	out    io.Writer
}

// newSession loads the config file and applies the persistent flag
// overrides.
func newSession(cmd *cobra.Command, opts *rootOptions) (*session, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if opts.outputFormat != "" {
		cfg.Output.Format = opts.outputFormat
	}
	if opts.outputFile != "" {
		cfg.Output.File = opts.outputFile
	}
	if opts.failOn != "" {
		cfg.Output.FailOn = opts.failOn
	}
	if opts.verbose || cfg.Scan.Verbose {
		cfg.Logging.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &session{
		cfg:    cfg,
		logger: logging.New(cmd.ErrOrStderr(), cfg.Logging.Format, cfg.Logging.Level),
		out:    cmd.OutOrStdout(),
	}, nil
}

func (s *session) codeScanner() *scanner.CodeScanner {
	return scanner.NewCodeScanner(newAnalyzer(s.cfg, s.logger), scanner.CodeConfig{
		Include:        s.cfg.Scan.Include,
		Exclude:        s.cfg.Scan.Exclude,
		RulesFile:      s.cfg.Scan.RulesFile,
		DryRun:         s.cfg.Scan.DryRun,
		AnonymizeDepth: s.cfg.EffectiveAnonymizeDepth(),
		Concurrency:    s.cfg.Scan.Concurrency,
		Timeout:        s.cfg.ScanTimeout(),
		Logger:         s.logger,
	})
}

func (s *session) configScanner() *scanner.ConfigScanner {
	return scanner.NewConfigScanner(scanner.ConfigConfig{
		Exclude:        s.cfg.Scan.Exclude,
		RulesFile:      s.cfg.Scan.RulesFile,
		AnonymizeDepth: s.cfg.EffectiveAnonymizeDepth(),
		Logger:         s.logger,
	})
}

func (s *session) tlsScanner() *scanner.TLSScanner {
	return scanner.NewTLSScanner(newCertFetcher(), scanner.TLSConfig{
		DefaultPort:   s.cfg.TLS.DefaultPort,
		Concurrency:   s.cfg.TLS.Concurrency,
		Timeout:       s.cfg.TLSTimeout(),
		RatePerSecond: s.cfg.TLS.RatePerSecond,
		Logger:        s.logger,
	})
}

func (s *session) dataScanner() *scanner.DataScanner {
	return scanner.NewDataScanner(s.logger)
}

// run executes the scanners in order, writes the report, and applies the
// fail-on threshold.
func (s *session) run(ctx context.Context, target audit.Target, scanners ...audit.Scanner) error {
	engine := audit.NewEngine(s.logger)
	for _, sc := range scanners {
		engine.AddScanner(sc)
	}

	report, err := engine.Run(ctx, target)
	if err != nil {
		return err
	}
	s.logger.Debug("scan complete",
		"run_id", report.RunID,
		"findings", len(report.Findings),
		"errors", len(report.Errors),
		"duration", report.Stats.Duration)

	if err := s.writeReport(ctx, report); err != nil {
		return err
	}

	if s.cfg.Output.FailOn != "" && report.Exceeds(audit.ParseRisk(s.cfg.Output.FailOn)) {
		return fmt.Errorf("%w (%s)", errThresholdExceeded, strings.ToLower(s.cfg.Output.FailOn))
	}
	return nil
}

// writeReport renders the report and writes it to the configured file, or
// to stdout. HTML and PDF always go to a file.
func (s *session) writeReport(ctx context.Context, report *audit.Report) error {
	width := 0
	if output.IsTerminal(s.out) {
		width = output.TerminalWidth(s.out)
	}

	f, err := output.New(s.cfg.Output.Format, output.Options{
		Width:      width,
		Version:    version,
		ChromePath: s.cfg.Output.ChromePath,
	})
	if err != nil {
		return err
	}

	data, err := f.Format(ctx, report)
	if err != nil {
		return fmt.Errorf("rendering %s report: %w", f.Name(), err)
	}

	file := s.cfg.Output.File
	if file == "" && (f.Name() == "html" || f.Name() == "pdf") {
		file = output.DefaultFileName(f.Name())
	}
	if file != "" {
		if err := os.WriteFile(file, data, 0o644); err != nil {
			return fmt.Errorf("%w: writing report: %v", audit.ErrIO, err)
		}
		fmt.Fprintf(s.out, "%s report generated: %s\n", strings.ToUpper(f.Name()), file)
		return nil
	}

	if f.Name() == "markdown" && output.IsTerminal(s.out) {
		rendered, err := output.RenderTerminal(data, width)
		if err != nil {
			s.logger.Warn("cannot style markdown, printing raw", "error", err)
		} else {
			data = rendered
		}
	}
	_, err = s.out.Write(data)
	return err
}
