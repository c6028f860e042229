package scanner

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianshen/pqcaudit/internal/audit"
)

func TestDataScannerName(t *testing.T) {
	assert.Equal(t, "data", NewDataScanner(nil).Name())
}

func TestDataScannerCSV(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "findings.csv", "File,Line,Message,Risk\n"+
		"app.py,10,Insecure RSA key usage detected,High\n"+
		",,,\n")

	findings := NewDataScanner(nil).ScanFile(path)
	require.Len(t, findings, 2)
	assert.Equal(t, audit.Finding{Location: "app.py", Line: "10", Message: "Insecure RSA key usage detected", Risk: audit.RiskHigh, Source: "data"}, findings[0])
	assert.Equal(t, audit.Finding{Location: "Data File", Line: "N/A", Message: "No message", Risk: audit.RiskUnknown, Source: "data"}, findings[1])
}

func TestDataScannerJSON(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "findings.json", `[
  {"file": "a.py", "line": 3, "message": "Insecure use of MD5 detected", "risk": "medium"},
  {"message": "no location"}
]`)

	findings := NewDataScanner(nil).ScanFile(path)
	require.Len(t, findings, 2)
	assert.Equal(t, "a.py", findings[0].Location)
	assert.Equal(t, "3", findings[0].Line)
	assert.Equal(t, audit.RiskMedium, findings[0].Risk)
	assert.Equal(t, "Data File", findings[1].Location)
	assert.Equal(t, audit.RiskUnknown, findings[1].Risk)
}

func TestDataScannerJSONReport(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "report.json", `{
  "run_id": "abc",
  "findings": [
    {"location": "TLS", "line": "N/A", "message": "sha256WithRSAEncryption with 2048 bits", "risk": "High"}
  ]
}`)

	findings := NewDataScanner(nil).ScanFile(path)
	require.Len(t, findings, 1)
	assert.Equal(t, "TLS", findings[0].Location)
	assert.Equal(t, audit.RiskHigh, findings[0].Risk)
}

func TestDataScannerXML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "findings.xml", `<findings>
  <finding>
    <file>svc/tls.conf</file>
    <line>N/A</line>
    <message>Found reference to 3DES in config.</message>
    <risk>Medium</risk>
  </finding>
  <finding>
    <message>only a message</message>
  </finding>
</findings>`)

	findings := NewDataScanner(nil).ScanFile(path)
	require.Len(t, findings, 2)
	assert.Equal(t, audit.Finding{Location: "svc/tls.conf", Line: "N/A", Message: "Found reference to 3DES in config.", Risk: audit.RiskMedium, Source: "data"}, findings[0])
	assert.Equal(t, "only a message", findings[1].Message)
	assert.Equal(t, "Data File", findings[1].Location)
}

func TestDataScannerYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "findings.yaml", "- file: k.py\n  line: 7\n  message: Insecure use of ECDSA detected\n  risk: High\n")

	findings := NewDataScanner(nil).ScanFile(path)
	require.Len(t, findings, 1)
	assert.Equal(t, "k.py", findings[0].Location)
	assert.Equal(t, "7", findings[0].Line)
	assert.Equal(t, audit.RiskHigh, findings[0].Risk)
}

func TestDataScannerUnsupportedFormat(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "findings.txt", "anything")

	findings := NewDataScanner(nil).ScanFile(path)
	require.Len(t, findings, 1)
	assert.Equal(t, "Unsupported data file format", findings[0].Message)
	assert.Equal(t, audit.RiskUnknown, findings[0].Risk)
}

func TestDataScannerParseError(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		content string
		prefix  string
	}{
		{"bad.json", "{not json", "JSON parsing error:"},
		{"bad.xml", "<open>", "XML parsing error:"},
		{"bad.csv", "a,b\n\"unterminated", "CSV parsing error:"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, dir, tt.name, tt.content)
			findings := NewDataScanner(nil).ScanFile(path)
			require.Len(t, findings, 1)
			assert.Contains(t, findings[0].Message, tt.prefix)
			assert.Equal(t, audit.RiskUnknown, findings[0].Risk)
			assert.Equal(t, "Data File", findings[0].Location)
		})
	}
}

func TestDataScannerMissingFile(t *testing.T) {
	findings := NewDataScanner(nil).ScanFile(filepath.Join(t.TempDir(), "missing.csv"))
	require.Len(t, findings, 1)
	assert.Contains(t, findings[0].Message, "CSV parsing error:")
}

func TestDataScannerScanKeepsFileOrder(t *testing.T) {
	dir := t.TempDir()
	b := writeFile(t, dir, "b.csv", "file,message,risk\nb.py,second,Low\n")
	a := writeFile(t, dir, "a.json", `[{"file": "a.py", "message": "first", "risk": "High"}]`)

	res, err := NewDataScanner(nil).Scan(context.Background(), audit.Target{DataFiles: []string{b, a}})
	require.NoError(t, err)
	require.Len(t, res.Findings, 2)
	assert.Equal(t, "second", res.Findings[0].Message)
	assert.Equal(t, "first", res.Findings[1].Message)
	assert.Equal(t, []string{b, a}, res.Discovered)
}
