package output

import (
	"errors"
	"time"

	"github.com/julianshen/pqcaudit/internal/audit"
)

// sampleReport covers every risk level and source.
func sampleReport() *audit.Report {
	return &audit.Report{
		RunID: "run-1",
		Findings: []audit.Finding{
			{Location: "app/crypto.py", Line: "12", Message: "Insecure RSA key usage detected", Risk: audit.RiskHigh, Source: "code"},
			{Location: "etc/tls.conf", Line: "N/A", Message: "Found reference to 3DES in config.", Risk: audit.RiskMedium, Source: "config"},
			{Location: "TLS", Line: "N/A", Message: "sha256WithRSAEncryption with 4096 bits", Risk: audit.RiskLow, Source: "tls", Endpoint: "example.com:443"},
			{Location: "TLS", Line: "N/A", Message: "Error scanning TLS certificate: timeout", Risk: audit.RiskUnknown, Source: "tls", Endpoint: "down.example:443"},
		},
		Stats: audit.ScanStats{
			Duration:      1500 * time.Millisecond,
			Discovered:    map[string]int{"code": 1, "config": 1, "tls": 2},
			FindingsCount: 4,
		},
		Errors: []audit.ScanError{
			{Scanner: "tls", Target: "down.example", Err: errors.New("Error scanning TLS certificate: timeout")},
		},
	}
}
