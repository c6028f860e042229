package audit

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockScanner implements Scanner for testing.
type mockScanner struct {
	name   string
	result *Result
	err    error
	calls  *[]string
}

func (m *mockScanner) Name() string { return m.name }
func (m *mockScanner) Scan(_ context.Context, _ Target) (*Result, error) {
	if m.calls != nil {
		*m.calls = append(*m.calls, m.name)
	}
	return m.result, m.err
}

func TestAggregatePreservesOrder(t *testing.T) {
	f1 := Finding{Message: "f1", Risk: RiskLow}
	f2 := Finding{Message: "f2", Risk: RiskMedium}
	f3 := Finding{Message: "f3", Risk: RiskHigh}

	got := Aggregate([]Finding{f1, f2}, []Finding{f3})
	assert.Equal(t, []Finding{f1, f2, f3}, got)
}

func TestAggregateDoesNotAliasInputs(t *testing.T) {
	a := []Finding{{Message: "a"}}
	got := Aggregate(a, nil)
	got[0].Message = "changed"
	assert.Equal(t, "a", a[0].Message)
}

func TestAggregateEmpty(t *testing.T) {
	assert.Empty(t, Aggregate())
	assert.Empty(t, Aggregate(nil, nil))
}

func TestEngineRunsScannersInOrder(t *testing.T) {
	var calls []string
	e := NewEngine(nil)
	e.AddScanner(&mockScanner{name: "code", calls: &calls, result: &Result{
		Findings:   []Finding{{Message: "c1", Risk: RiskLow}, {Message: "c2", Risk: RiskHigh}},
		Discovered: []string{"a.py", "b.py"},
	}})
	e.AddScanner(&mockScanner{name: "tls", calls: &calls, result: &Result{
		Findings:   []Finding{{Message: "t1", Risk: RiskHigh}},
		Discovered: []string{"example.com:443"},
	}})

	report, err := e.Run(context.Background(), Target{})
	require.NoError(t, err)
	assert.Equal(t, []string{"code", "tls"}, calls)
	require.Len(t, report.Findings, 3)
	assert.Equal(t, "c1", report.Findings[0].Message)
	assert.Equal(t, "c2", report.Findings[1].Message)
	assert.Equal(t, "t1", report.Findings[2].Message)
	assert.Equal(t, 2, report.Stats.Discovered["code"])
	assert.Equal(t, 1, report.Stats.Discovered["tls"])
	assert.Equal(t, 3, report.Stats.FindingsCount)
	assert.NotEmpty(t, report.RunID)
}

func TestEngineHandlesScannerError(t *testing.T) {
	e := NewEngine(nil)
	e.AddScanner(&mockScanner{name: "failing", err: fmt.Errorf("scanner crashed")})
	e.AddScanner(&mockScanner{name: "ok", result: &Result{Findings: []Finding{{Message: "ok"}}}})

	report, err := e.Run(context.Background(), Target{})
	require.NoError(t, err)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, "failing", report.Errors[0].Scanner)
	assert.True(t, report.Errors[0].Fatal)
	assert.Len(t, report.Findings, 1)
}

func TestEngineCollectsScannerErrors(t *testing.T) {
	e := NewEngine(nil)
	e.AddScanner(&mockScanner{name: "code", result: &Result{
		Errors: []ScanError{{Scanner: "code", Target: "x.py", Err: ErrToolExecution}},
	}})

	report, err := e.Run(context.Background(), Target{})
	require.NoError(t, err)
	require.Len(t, report.Errors, 1)
	assert.True(t, errors.Is(report.Errors[0], ErrToolExecution))
	assert.False(t, report.Errors[0].Fatal)
}

func TestEngineCancelledContext(t *testing.T) {
	e := NewEngine(nil)
	e.AddScanner(&mockScanner{name: "code", result: &Result{}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Run(ctx, Target{})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEngineUniqueRunIDs(t *testing.T) {
	e := NewEngine(nil)
	r1, err := e.Run(context.Background(), Target{})
	require.NoError(t, err)
	r2, err := e.Run(context.Background(), Target{})
	require.NoError(t, err)
	assert.NotEqual(t, r1.RunID, r2.RunID)
}
