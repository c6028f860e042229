package output

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/julianshen/pqcaudit/internal/audit"
)

// ReportTitle heads the human-readable report formats.
const ReportTitle = "Quantum Migration Audit Report"

// NoIssues is printed instead of a table when a report is empty.
const NoIssues = "No issues found."

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#333333", Dark: "#EEEEEE"}).
			Bold(true)
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

	riskColors = map[audit.Risk]lipgloss.TerminalColor{
		audit.RiskHigh:    lipgloss.Color("196"),
		audit.RiskMedium:  lipgloss.Color("214"),
		audit.RiskLow:     lipgloss.Color("34"),
		audit.RiskUnknown: lipgloss.Color("245"),
	}
)

// riskColumn is the index of the Risk column.
const riskColumn = 3

// TableFormatter renders a report as a terminal table.
type TableFormatter struct {
	width int
}

// NewTableFormatter creates a TableFormatter. A width of 0 lets the table
// size itself to its content.
func NewTableFormatter(width int) *TableFormatter {
	return &TableFormatter{width: width}
}

// Name returns the formatter name.
func (f *TableFormatter) Name() string {
	return "table"
}

// Format renders the title, the findings table in report order, and a
// one-line summary.
func (f *TableFormatter) Format(_ context.Context, report *audit.Report) ([]byte, error) {
	var b strings.Builder
	b.WriteString(titleStyle.Render(ReportTitle))
	b.WriteString("\n\n")

	if len(report.Findings) == 0 {
		b.WriteString(NoIssues)
		b.WriteString("\n")
		return []byte(b.String()), nil
	}

	risks := make([]audit.Risk, len(report.Findings))
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers("Location/File", "Line/Component", "Message", "Risk", "Recommendation")
	for i, finding := range report.Findings {
		risks[i] = finding.Risk
		t.Row(finding.Location, finding.Line, finding.Message, string(finding.Risk), audit.RecommendationText(finding))
	}
	t.StyleFunc(func(row, col int) lipgloss.Style {
		if row == table.HeaderRow {
			return headerStyle
		}
		if col == riskColumn && row >= 0 && row < len(risks) {
			if c, ok := riskColors[risks[row]]; ok {
				return cellStyle.Foreground(c)
			}
		}
		return cellStyle
	})
	if f.width > 0 {
		t.Width(f.width)
	}

	b.WriteString(t.String())
	b.WriteString("\n")

	s := report.Summary()
	fmt.Fprintf(&b, "\nHigh: %d  Medium: %d  Low: %d  Unknown: %d  Total: %d\n",
		s.High, s.Medium, s.Low, s.Unknown, s.Total)
	return []byte(b.String()), nil
}
