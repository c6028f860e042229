package output

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/julianshen/pqcaudit/internal/audit"
)

var htmlTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"lower": func(r audit.Risk) string { return strings.ToLower(string(r)) },
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: -apple-system, "Segoe UI", Helvetica, Arial, sans-serif; margin: 2em; color: #222; }
h1 { font-size: 1.6em; }
table { border-collapse: collapse; width: 100%; margin-bottom: 1.5em; }
th, td { border: 1px solid #ccc; padding: 6px 8px; text-align: left; vertical-align: top; font-size: 0.9em; }
th { background: #f0f0f0; }
.risk-high { color: #b00020; font-weight: bold; }
.risk-medium { color: #c77700; font-weight: bold; }
.risk-low { color: #2e7d32; }
.risk-unknown { color: #666; }
.meta { color: #666; font-size: 0.85em; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<p class="meta">Run {{.RunID}} &middot; generated {{.Generated}} &middot; {{.DurationMS}}ms</p>
<h2>Summary</h2>
<table>
<tr><th>High</th><th>Medium</th><th>Low</th><th>Unknown</th><th>Total</th></tr>
<tr><td>{{.Summary.High}}</td><td>{{.Summary.Medium}}</td><td>{{.Summary.Low}}</td><td>{{.Summary.Unknown}}</td><td>{{.Summary.Total}}</td></tr>
</table>
<h2>Findings</h2>
{{- if .Rows}}
<table>
<tr><th>Location/File</th><th>Line/Component</th><th>Message</th><th>Risk</th><th>Recommendation</th></tr>
{{- range .Rows}}
<tr><td>{{.Location}}</td><td>{{.Line}}</td><td>{{.Message}}</td><td class="risk-{{lower .Risk}}">{{.Risk}}</td><td>{{.Recommendation}}</td></tr>
{{- end}}
</table>
{{- else}}
<p>{{.NoIssues}}</p>
{{- end}}
{{- if .Errors}}
<h2>Scan Errors</h2>
<ul>
{{- range .Errors}}
<li>{{.}}</li>
{{- end}}
</ul>
{{- end}}
</body>
</html>
`))

type htmlRow struct {
	Location       string
	Line           string
	Message        string
	Risk           audit.Risk
	Recommendation string
}

type htmlPage struct {
	Title      string
	RunID      string
	Generated  string
	DurationMS int64
	Summary    audit.ReportSummary
	Rows       []htmlRow
	Errors     []string
	NoIssues   string
}

// HTMLFormatter renders a report as a standalone HTML page.
type HTMLFormatter struct {
	now func() time.Time
}

// NewHTMLFormatter creates a new HTMLFormatter.
func NewHTMLFormatter() *HTMLFormatter {
	return &HTMLFormatter{now: time.Now}
}

// Name returns the formatter name.
func (f *HTMLFormatter) Name() string {
	return "html"
}

// Format renders the report. All text is escaped by html/template.
func (f *HTMLFormatter) Format(_ context.Context, report *audit.Report) ([]byte, error) {
	p := htmlPage{
		Title:      ReportTitle,
		RunID:      report.RunID,
		Generated:  f.now().UTC().Format(time.RFC3339),
		DurationMS: report.Stats.Duration.Milliseconds(),
		Summary:    report.Summary(),
		NoIssues:   NoIssues,
	}
	for _, finding := range report.Findings {
		p.Rows = append(p.Rows, htmlRow{
			Location:       finding.Location,
			Line:           finding.Line,
			Message:        finding.Message,
			Risk:           finding.Risk,
			Recommendation: audit.RecommendationText(finding),
		})
	}
	for _, e := range report.Errors {
		p.Errors = append(p.Errors, e.Error())
	}

	var buf bytes.Buffer
	if err := htmlTemplate.Execute(&buf, p); err != nil {
		return nil, fmt.Errorf("rendering html report: %w", err)
	}
	return buf.Bytes(), nil
}
