package output

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/julianshen/pqcaudit/internal/audit"
)

// MarkdownFormatter formats a report as Markdown.
type MarkdownFormatter struct{}

// NewMarkdownFormatter creates a new MarkdownFormatter.
func NewMarkdownFormatter() *MarkdownFormatter {
	return &MarkdownFormatter{}
}

// Name returns the formatter name.
func (f *MarkdownFormatter) Name() string {
	return "markdown"
}

// Format renders a summary table followed by the findings in report order.
func (f *MarkdownFormatter) Format(_ context.Context, report *audit.Report) ([]byte, error) {
	var b strings.Builder
	summary := report.Summary()

	fmt.Fprintf(&b, "# %s\n\n", ReportTitle)

	b.WriteString("## Summary\n\n")
	b.WriteString("| Risk | Count |\n")
	b.WriteString("|------|-------|\n")
	for _, r := range audit.AllRisks() {
		fmt.Fprintf(&b, "| %s | %d |\n", r, summary.Count(r))
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "**Total findings:** %d | **Duration:** %dms\n\n",
		summary.Total, report.Stats.Duration.Milliseconds())

	b.WriteString("## Findings\n\n")
	if len(report.Findings) == 0 {
		b.WriteString(NoIssues + "\n")
	} else {
		b.WriteString("| Location/File | Line/Component | Message | Risk | Recommendation |\n")
		b.WriteString("|---|---|---|---|---|\n")
		for _, finding := range report.Findings {
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n",
				escapeCell(finding.Location),
				escapeCell(finding.Line),
				escapeCell(finding.Message),
				finding.Risk,
				escapeCell(audit.RecommendationText(finding)))
		}
	}

	if len(report.Errors) > 0 {
		b.WriteString("\n## Scan Errors\n\n")
		for _, e := range report.Errors {
			fmt.Fprintf(&b, "- %s\n", e.Error())
		}
	}

	return []byte(b.String()), nil
}

// escapeCell keeps pipes and newlines from breaking a table row.
func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}

// RenderTerminal styles Markdown for display in a terminal with the given
// word wrap width.
func RenderTerminal(md []byte, width int) ([]byte, error) {
	if width <= 0 {
		width = 100
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, fmt.Errorf("creating glamour renderer: %w", err)
	}
	out, err := r.Render(string(md))
	if err != nil {
		return nil, fmt.Errorf("rendering markdown: %w", err)
	}
	return []byte(out), nil
}
