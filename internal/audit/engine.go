package audit

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Aggregate concatenates finding batches in argument order. It neither
// sorts nor deduplicates, and the inputs are left untouched.
func Aggregate(batches ...[]Finding) []Finding {
	n := 0
	for _, b := range batches {
		n += len(b)
	}
	out := make([]Finding, 0, n)
	for _, b := range batches {
		out = append(out, b...)
	}
	return out
}

// Engine runs registered scanners in registration order and merges their
// output into a single report.
type Engine struct {
	scanners []Scanner
	logger   *slog.Logger
}

// NewEngine creates an Engine. A nil logger discards log output.
func NewEngine(logger *slog.Logger) *Engine {
	return &Engine{logger: OrDiscard(logger)}
}

// AddScanner registers a scanner. Scanners run in the order they are added.
func (e *Engine) AddScanner(s Scanner) {
	e.scanners = append(e.scanners, s)
}

// Run executes every registered scanner against target and returns the
// aggregated report. A failing scanner is recorded in Report.Errors and
// does not stop the others.
func (e *Engine) Run(ctx context.Context, target Target) (*Report, error) {
	start := time.Now()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("engine cancelled before start: %w", err)
	}

	var batches [][]Finding
	var errs []ScanError
	discovered := make(map[string]int, len(e.scanners))

	for _, s := range e.scanners {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("engine cancelled before %s: %w", s.Name(), err)
		}

		e.logger.Debug("running scanner", "scanner", s.Name())
		res, err := s.Scan(ctx, target)
		if err != nil {
			e.logger.Error("scanner failed", "scanner", s.Name(), "error", err)
			errs = append(errs, ScanError{Scanner: s.Name(), Err: err, Fatal: true})
			continue
		}
		if res == nil {
			continue
		}
		batches = append(batches, res.Findings)
		discovered[s.Name()] = len(res.Discovered)
		errs = append(errs, res.Errors...)
	}

	findings := Aggregate(batches...)
	return &Report{
		RunID:    uuid.New().String(),
		Findings: findings,
		Stats: ScanStats{
			Duration:      time.Since(start),
			Discovered:    discovered,
			FindingsCount: len(findings),
		},
		Errors: errs,
	}, nil
}

// OrDiscard returns logger, or a logger that drops everything when nil.
func OrDiscard(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
