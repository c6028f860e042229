package output

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/julianshen/pqcaudit/internal/audit"
)

// SARIF v2.1.0 structures.

type sarifDocument struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool    sarifTool     `json:"tool"`
	Results []sarifResult `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name    string      `json:"name"`
	Version string      `json:"version"`
	Rules   []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID               string          `json:"id"`
	ShortDescription sarifMessageStr `json:"shortDescription"`
	Help             sarifMessageStr `json:"help"`
}

type sarifMessageStr struct {
	Text string `json:"text"`
}

type sarifResult struct {
	RuleID     string            `json:"ruleId"`
	Level      string            `json:"level"`
	Message    sarifMessageStr   `json:"message"`
	Locations  []sarifLocation   `json:"locations"`
	Properties map[string]string `json:"properties,omitempty"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysicalLocation `json:"physicalLocation"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
	Region           *sarifRegion          `json:"region,omitempty"`
}

type sarifArtifactLocation struct {
	URI string `json:"uri"`
}

type sarifRegion struct {
	StartLine int `json:"startLine"`
}

const sarifSchemaURL = "https://raw.githubusercontent.com/oasis-tcs/sarif-spec/main/sarif-2.1/schema/sarif-schema-2.1.0.json"

// SARIFFormatter formats a report as SARIF v2.1.0 JSON.
type SARIFFormatter struct {
	version string
}

// NewSARIFFormatter creates a new SARIFFormatter reporting the given tool
// version.
func NewSARIFFormatter(version string) *SARIFFormatter {
	if version == "" {
		version = "dev"
	}
	return &SARIFFormatter{version: version}
}

// Name returns the formatter name.
func (f *SARIFFormatter) Name() string {
	return "sarif"
}

// Format renders the report as SARIF v2.1.0 JSON.
func (f *SARIFFormatter) Format(_ context.Context, report *audit.Report) ([]byte, error) {
	doc := sarifDocument{
		Schema:  sarifSchemaURL,
		Version: "2.1.0",
		Runs: []sarifRun{
			{
				Tool: sarifTool{
					Driver: sarifDriver{
						Name:    "pqcaudit",
						Version: f.version,
						Rules:   buildRules(report.Findings),
					},
				},
				Results: buildResults(report.Findings),
			},
		},
	}
	return json.MarshalIndent(doc, "", "  ")
}

// riskToLevel maps risk to SARIF level.
func riskToLevel(r audit.Risk) string {
	switch r {
	case audit.RiskHigh:
		return "error"
	case audit.RiskMedium:
		return "warning"
	case audit.RiskLow:
		return "note"
	default:
		return "none"
	}
}

// ruleID names a finding's rule after its source and rule name, e.g.
// "code/rsa" or "config/md5".
func ruleID(f audit.Finding) string {
	return ruleSource(f) + "/" + audit.RuleName(f)
}

func ruleSource(f audit.Finding) string {
	if f.Source == "" {
		return "pqc"
	}
	return f.Source
}

// buildRules creates unique SARIF rules from findings, in first-seen order.
func buildRules(findings []audit.Finding) []sarifRule {
	seen := make(map[string]bool)
	rules := []sarifRule{}
	for _, f := range findings {
		id := ruleID(f)
		if seen[id] {
			continue
		}
		seen[id] = true
		name := audit.RuleName(f)
		rules = append(rules, sarifRule{
			ID:               id,
			ShortDescription: sarifMessageStr{Text: fmt.Sprintf("%s finding: %s", ruleSource(f), name)},
			// Rule help depends only on the rule; per-result advice goes in
			// the result's properties.
			Help: sarifMessageStr{Text: audit.RecommendationText(audit.Finding{Message: name})},
		})
	}
	return rules
}

// buildResults creates SARIF results from findings.
func buildResults(findings []audit.Finding) []sarifResult {
	results := make([]sarifResult, 0, len(findings))
	for _, f := range findings {
		loc := sarifPhysicalLocation{ArtifactLocation: sarifArtifactLocation{URI: artifactURI(f)}}
		if line, err := strconv.Atoi(f.Line); err == nil && line > 0 {
			loc.Region = &sarifRegion{StartLine: line}
		}
		results = append(results, sarifResult{
			RuleID:    ruleID(f),
			Level:     riskToLevel(f.Risk),
			Message:   sarifMessageStr{Text: f.Message},
			Locations: []sarifLocation{{PhysicalLocation: loc}},
			Properties: map[string]string{
				"risk":           string(f.Risk),
				"recommendation": audit.RecommendationText(f),
			},
		})
	}
	return results
}

// artifactURI prefers the endpoint for TLS findings, whose location is the
// fixed string "TLS".
func artifactURI(f audit.Finding) string {
	if f.Endpoint != "" {
		return f.Endpoint
	}
	return f.Location
}
