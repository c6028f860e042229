package output

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianshen/pqcaudit/internal/audit"
)

func TestSARIFFormatterName(t *testing.T) {
	assert.Equal(t, "sarif", NewSARIFFormatter("").Name())
}

func TestSARIFFormatterValidStructure(t *testing.T) {
	data, err := NewSARIFFormatter("1.2.3").Format(context.Background(), sampleReport())
	require.NoError(t, err)

	var doc sarifDocument
	require.NoError(t, json.Unmarshal(data, &doc))

	assert.Equal(t, sarifSchemaURL, doc.Schema)
	assert.Equal(t, "2.1.0", doc.Version)
	require.Len(t, doc.Runs, 1)

	run := doc.Runs[0]
	assert.Equal(t, "pqcaudit", run.Tool.Driver.Name)
	assert.Equal(t, "1.2.3", run.Tool.Driver.Version)

	require.Len(t, run.Results, 4)
	first := run.Results[0]
	assert.Equal(t, "code/rsa", first.RuleID)
	assert.Equal(t, "error", first.Level)
	assert.Equal(t, "app/crypto.py", first.Locations[0].PhysicalLocation.ArtifactLocation.URI)
	require.NotNil(t, first.Locations[0].PhysicalLocation.Region)
	assert.Equal(t, 12, first.Locations[0].PhysicalLocation.Region.StartLine)

	// N/A lines carry no region; TLS findings point at their endpoint.
	tls := run.Results[2]
	assert.Nil(t, tls.Locations[0].PhysicalLocation.Region)
	assert.Equal(t, "example.com:443", tls.Locations[0].PhysicalLocation.ArtifactLocation.URI)
}

func TestSARIFFormatterLevels(t *testing.T) {
	assert.Equal(t, "error", riskToLevel(audit.RiskHigh))
	assert.Equal(t, "warning", riskToLevel(audit.RiskMedium))
	assert.Equal(t, "note", riskToLevel(audit.RiskLow))
	assert.Equal(t, "none", riskToLevel(audit.RiskUnknown))
}

func TestSARIFFormatterDeduplicatesRules(t *testing.T) {
	report := &audit.Report{Findings: []audit.Finding{
		{Location: "a.py", Line: "1", Message: "Insecure use of MD5 detected", Risk: audit.RiskMedium, Source: "code"},
		{Location: "b.py", Line: "2", Message: "Insecure use of MD5 detected", Risk: audit.RiskMedium, Source: "code"},
	}}
	data, err := NewSARIFFormatter("").Format(context.Background(), report)
	require.NoError(t, err)

	var doc sarifDocument
	require.NoError(t, json.Unmarshal(data, &doc))
	require.Len(t, doc.Runs[0].Tool.Driver.Rules, 1)
	assert.Equal(t, "code/md5", doc.Runs[0].Tool.Driver.Rules[0].ID)
	assert.Equal(t, "dev", doc.Runs[0].Tool.Driver.Version)
}

func TestSARIFFormatterEmpty(t *testing.T) {
	data, err := NewSARIFFormatter("").Format(context.Background(), &audit.Report{})
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	runs := raw["runs"].([]any)
	run := runs[0].(map[string]any)
	assert.Equal(t, []any{}, run["results"])
}

func TestSARIFFormatterRulesPerSourceOutcome(t *testing.T) {
	report := &audit.Report{Findings: []audit.Finding{
		{Location: "app.yml", Line: "N/A", Message: "Found reference to RSA in config.", Risk: audit.RiskHigh, Source: "config"},
		{Location: "app.yml", Line: "N/A", Message: "Found reference to MD5 in config.", Risk: audit.RiskHigh, Source: "config"},
		{Location: "TLS", Line: "N/A", Message: "ecdsa-with-SHA256 with 256 bits", Risk: audit.RiskLow, Source: "tls", Endpoint: "ok.example:443"},
		{Location: "TLS", Line: "N/A", Message: "Error scanning TLS certificate: timeout", Risk: audit.RiskUnknown, Source: "tls", Endpoint: "down.example:443"},
		{Location: "TLS", Line: "N/A", Message: "sha256WithRSAEncryption with 2048 bits", Risk: audit.RiskHigh, Source: "tls", Endpoint: "weak.example:443"},
	}}
	data, err := NewSARIFFormatter("").Format(context.Background(), report)
	require.NoError(t, err)

	var doc sarifDocument
	require.NoError(t, json.Unmarshal(data, &doc))
	run := doc.Runs[0]

	var ids []string
	for _, r := range run.Results {
		ids = append(ids, r.RuleID)
	}
	assert.Equal(t, []string{"config/rsa", "config/md5", "tls/ok", "tls/error", "tls/rsa-weak"}, ids)

	help := map[string]string{}
	for _, r := range run.Tool.Driver.Rules {
		help[r.ID] = r.Help.Text
	}
	require.Len(t, help, 5)
	assert.Equal(t, "Replace MD5 with SHA-2 or SHA-3 and use secure HMAC.", help["config/md5"])
	assert.Equal(t, "Replace with hybrid RSA+Kyber or use RSA with at least 3072-bit keys.", help["config/rsa"])
	assert.Equal(t, audit.GenericRecommendation, help["tls/error"])
	assert.Equal(t, audit.GenericRecommendation, help["tls/ok"])

	assert.Equal(t, "Replace MD5 with SHA-2 or SHA-3 and use secure HMAC.", run.Results[1].Properties["recommendation"])
	assert.Equal(t, "Unknown", run.Results[3].Properties["risk"])
}

func TestSARIFFormatterRuleHelpIgnoresFirstMessage(t *testing.T) {
	// Both land on the default rule; its help must not echo the first one.
	report := &audit.Report{Findings: []audit.Finding{
		{Location: "a.py", Line: "1", Message: "Weak RSA padding", Risk: audit.RiskLow, Source: "code"},
		{Location: "b.py", Line: "2", Message: "Weak MD5 salt", Risk: audit.RiskLow, Source: "code"},
	}}
	data, err := NewSARIFFormatter("").Format(context.Background(), report)
	require.NoError(t, err)

	var doc sarifDocument
	require.NoError(t, json.Unmarshal(data, &doc))
	rules := doc.Runs[0].Tool.Driver.Rules
	require.Len(t, rules, 1)
	assert.Equal(t, "code/default", rules[0].ID)
	assert.Equal(t, audit.GenericRecommendation, rules[0].Help.Text)
	assert.Equal(t, "code finding: default", rules[0].ShortDescription.Text)
}
