package output

import (
	"context"
	"encoding/json"

	"github.com/julianshen/pqcaudit/internal/audit"
)

// jsonReport is the top-level JSON output structure.
type jsonReport struct {
	RunID    string        `json:"run_id"`
	Findings []jsonFinding `json:"findings"`
	Summary  jsonSummary   `json:"summary"`
	Stats    jsonStats     `json:"stats"`
	Errors   []jsonError   `json:"errors"`
}

// jsonFinding mirrors audit.Finding plus the recommendation text.
type jsonFinding struct {
	Location       string `json:"location"`
	Line           string `json:"line"`
	Message        string `json:"message"`
	Risk           string `json:"risk"`
	Source         string `json:"source,omitempty"`
	Endpoint       string `json:"endpoint,omitempty"`
	Recommendation string `json:"recommendation"`
}

type jsonSummary struct {
	High    int `json:"high"`
	Medium  int `json:"medium"`
	Low     int `json:"low"`
	Unknown int `json:"unknown"`
	Total   int `json:"total"`
}

type jsonStats struct {
	DurationMS int64          `json:"duration_ms"`
	Discovered map[string]int `json:"discovered"`
	Findings   int            `json:"findings"`
}

type jsonError struct {
	Scanner string `json:"scanner"`
	Target  string `json:"target,omitempty"`
	Error   string `json:"error"`
	Fatal   bool   `json:"fatal,omitempty"`
}

// JSONFormatter formats a report as JSON.
type JSONFormatter struct{}

// NewJSONFormatter creates a new JSONFormatter.
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

// Name returns the formatter name.
func (f *JSONFormatter) Name() string {
	return "json"
}

// Format renders the report as indented JSON.
func (f *JSONFormatter) Format(_ context.Context, report *audit.Report) ([]byte, error) {
	s := report.Summary()
	discovered := report.Stats.Discovered
	if discovered == nil {
		discovered = map[string]int{}
	}
	jr := jsonReport{
		RunID:    report.RunID,
		Findings: convertFindings(report.Findings),
		Summary: jsonSummary{
			High:    s.High,
			Medium:  s.Medium,
			Low:     s.Low,
			Unknown: s.Unknown,
			Total:   s.Total,
		},
		Stats: jsonStats{
			DurationMS: report.Stats.Duration.Milliseconds(),
			Discovered: discovered,
			Findings:   report.Stats.FindingsCount,
		},
		Errors: convertErrors(report.Errors),
	}
	return json.MarshalIndent(jr, "", "  ")
}

func convertFindings(findings []audit.Finding) []jsonFinding {
	result := make([]jsonFinding, len(findings))
	for i, f := range findings {
		result[i] = jsonFinding{
			Location:       f.Location,
			Line:           f.Line,
			Message:        f.Message,
			Risk:           string(f.Risk),
			Source:         f.Source,
			Endpoint:       f.Endpoint,
			Recommendation: audit.RecommendationText(f),
		}
	}
	return result
}

func convertErrors(errs []audit.ScanError) []jsonError {
	result := make([]jsonError, len(errs))
	for i, e := range errs {
		msg := ""
		if e.Err != nil {
			msg = e.Err.Error()
		}
		result[i] = jsonError{Scanner: e.Scanner, Target: e.Target, Error: msg, Fatal: e.Fatal}
	}
	return result
}
