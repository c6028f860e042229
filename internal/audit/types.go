package audit

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Risk is the severity assigned to a finding.
type Risk string

const (
	RiskLow     Risk = "Low"
	RiskMedium  Risk = "Medium"
	RiskHigh    Risk = "High"
	RiskUnknown Risk = "Unknown"
)

// RiskRank returns a numeric rank for ordering risks.
// High=3, Medium=2, Low=1. Unknown and unrecognised values return 0.
func RiskRank(r Risk) int {
	switch r {
	case RiskHigh:
		return 3
	case RiskMedium:
		return 2
	case RiskLow:
		return 1
	default:
		return 0
	}
}

// ParseRisk converts a case-insensitive risk name into a Risk.
// Anything it does not recognise is RiskUnknown.
func ParseRisk(s string) Risk {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high":
		return RiskHigh
	case "medium":
		return RiskMedium
	case "low":
		return RiskLow
	default:
		return RiskUnknown
	}
}

// AllRisks returns every risk level, highest first.
func AllRisks() []Risk {
	return []Risk{RiskHigh, RiskMedium, RiskLow, RiskUnknown}
}

// NotApplicable is the Line value for findings that have no line.
const NotApplicable = "N/A"

// Finding is one detected cryptographic weakness. Findings are values; once
// built by a scanner they are never modified.
type Finding struct {
	Location string
	Line     string
	Message  string
	Risk     Risk
	Source   string
	Endpoint string
}

// Target describes what the scanners should look at. Each scanner reads
// only the fields relevant to it.
type Target struct {
	Root      string
	Hosts     []string
	DataFiles []string
}

// ScanError records a problem encountered during a scan. Fatal marks an
// error that stopped a whole scanner rather than one file or host.
type ScanError struct {
	Scanner string
	Target  string
	Err     error
	Fatal   bool
}

// Error implements the error interface for ScanError.
func (e ScanError) Error() string {
	prefix := "error"
	if e.Fatal {
		prefix = "fatal error"
	}
	if e.Target != "" {
		return fmt.Sprintf("%s in %s (%s): %s", prefix, e.Scanner, e.Target, e.Err)
	}
	return fmt.Sprintf("%s in %s: %s", prefix, e.Scanner, e.Err)
}

// Unwrap exposes the underlying error to errors.Is.
func (e ScanError) Unwrap() error {
	return e.Err
}

// Result is what a single scanner produced.
type Result struct {
	Findings   []Finding
	Discovered []string
	Errors     []ScanError
}

// Scanner is a signal adapter that turns one external source into findings.
type Scanner interface {
	Name() string
	Scan(ctx context.Context, target Target) (*Result, error)
}

// ScanStats holds timing and count metrics for a completed run.
type ScanStats struct {
	Duration      time.Duration
	Discovered    map[string]int
	FindingsCount int
}

// ReportSummary provides aggregate counts of findings by risk.
type ReportSummary struct {
	High    int
	Medium  int
	Low     int
	Unknown int
	Total   int
}

// Count returns the number of findings at risk r. Unrecognised risks count
// as Unknown.
func (s ReportSummary) Count(r Risk) int {
	switch r {
	case RiskHigh:
		return s.High
	case RiskMedium:
		return s.Medium
	case RiskLow:
		return s.Low
	default:
		return s.Unknown
	}
}

// Report is the top-level result of an audit run.
type Report struct {
	RunID    string
	Findings []Finding
	Stats    ScanStats
	Errors   []ScanError
}

// Summary computes aggregate counts from the report's findings.
func (r *Report) Summary() ReportSummary {
	var s ReportSummary
	for _, f := range r.Findings {
		switch f.Risk {
		case RiskHigh:
			s.High++
		case RiskMedium:
			s.Medium++
		case RiskLow:
			s.Low++
		default:
			s.Unknown++
		}
	}
	s.Total = len(r.Findings)
	return s
}

// Exceeds reports whether any finding is at or above the given risk.
// A threshold of RiskUnknown never trips.
func (r *Report) Exceeds(threshold Risk) bool {
	floor := RiskRank(threshold)
	if floor == 0 {
		return false
	}
	for _, f := range r.Findings {
		if RiskRank(f.Risk) >= floor {
			return true
		}
	}
	return false
}
