// Package output renders audit reports in the supported formats.
package output

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/julianshen/pqcaudit/internal/audit"
)

// ErrUnknownFormat is returned by New for an unregistered format name.
var ErrUnknownFormat = errors.New("unknown output format")

// Formatter renders a report. Formatters never alter risks or messages.
type Formatter interface {
	Name() string
	Format(ctx context.Context, report *audit.Report) ([]byte, error)
}

// Options carries settings shared by the formatters.
type Options struct {
	// Width is the terminal width for the table format. 0 means unbounded.
	Width int
	// Version is reported as the tool version in SARIF output.
	Version string
	// ChromePath overrides the Chrome binary used for PDF output.
	ChromePath string
}

// Names lists the supported formats in display order.
func Names() []string {
	return []string{"table", "json", "markdown", "html", "sarif", "pdf"}
}

// New returns the formatter registered under name.
func New(name string, opts Options) (Formatter, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "table", "rich":
		return NewTableFormatter(opts.Width), nil
	case "json":
		return NewJSONFormatter(), nil
	case "markdown", "md":
		return NewMarkdownFormatter(), nil
	case "html":
		return NewHTMLFormatter(), nil
	case "sarif":
		return NewSARIFFormatter(opts.Version), nil
	case "pdf":
		return NewPDFFormatter(opts.ChromePath), nil
	default:
		return nil, fmt.Errorf("%w: %q (want one of %s)", ErrUnknownFormat, name, strings.Join(Names(), ", "))
	}
}

// DefaultFileName is the file a format is written to when the caller asks
// for a file without naming one.
func DefaultFileName(format string) string {
	switch format {
	case "html":
		return "report.html"
	case "pdf":
		return "report.pdf"
	case "json":
		return "report.json"
	case "sarif":
		return "report.sarif"
	case "markdown", "md":
		return "report.md"
	default:
		return "report.txt"
	}
}
