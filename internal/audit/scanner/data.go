package scanner

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/julianshen/pqcaudit/internal/audit"
)

// dataLocation is the location used when a record names no file.
const dataLocation = "Data File"

// record is one parsed row of a data export.
type record map[string]string

// DataScanner turns previously exported findings (CSV, JSON, XML, YAML)
// into findings so they can be merged into a report.
type DataScanner struct {
	logger *slog.Logger
}

// NewDataScanner creates a DataScanner. A nil logger discards output.
func NewDataScanner(logger *slog.Logger) *DataScanner {
	return &DataScanner{logger: audit.OrDiscard(logger).With("scanner", "data")}
}

// Name returns the scanner name.
func (s *DataScanner) Name() string {
	return "data"
}

// Scan reads every file in target.DataFiles in order.
func (s *DataScanner) Scan(ctx context.Context, target audit.Target) (*audit.Result, error) {
	res := &audit.Result{}
	for _, file := range target.DataFiles {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("data scanner cancelled: %w", err)
		}
		s.logger.Info("scanning data file", "file", file)
		res.Discovered = append(res.Discovered, file)
		res.Findings = append(res.Findings, s.ScanFile(file)...)
	}
	return res, nil
}

// ScanFile parses one data file, choosing the format by extension.
// Parse failures and unsupported formats become a single Unknown finding.
func (s *DataScanner) ScanFile(path string) []audit.Finding {
	var parse func(io.Reader) ([]record, error)
	var format string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		parse, format = parseCSV, "CSV"
	case ".json":
		parse, format = parseJSON, "JSON"
	case ".xml":
		parse, format = parseXML, "XML"
	case ".yaml", ".yml":
		parse, format = parseYAML, "YAML"
	default:
		s.logger.Warn("unsupported data file format", "file", path)
		return []audit.Finding{unknownDataFinding("Unsupported data file format")}
	}

	f, err := os.Open(path)
	if err != nil {
		s.logger.Error("cannot open data file", "file", path, "error", err)
		return []audit.Finding{unknownDataFinding(fmt.Sprintf("%s parsing error: %v", format, err))}
	}
	defer f.Close()

	records, err := parse(f)
	if err != nil {
		s.logger.Error("cannot parse data file", "file", path, "error", err)
		return []audit.Finding{unknownDataFinding(fmt.Sprintf("%s parsing error: %v", format, err))}
	}
	return standardize(records)
}

// standardize fills defaults for missing fields.
func standardize(records []record) []audit.Finding {
	findings := make([]audit.Finding, 0, len(records))
	for _, r := range records {
		findings = append(findings, audit.Finding{
			Location: valueOr(r, "file", valueOr(r, "location", dataLocation)),
			Line:     valueOr(r, "line", audit.NotApplicable),
			Message:  valueOr(r, "message", "No message"),
			Risk:     audit.ParseRisk(r["risk"]),
			Source:   "data",
		})
	}
	return findings
}

func valueOr(r record, key, fallback string) string {
	if v := strings.TrimSpace(r[key]); v != "" {
		return v
	}
	return fallback
}

func unknownDataFinding(msg string) audit.Finding {
	return audit.Finding{
		Location: dataLocation,
		Line:     audit.NotApplicable,
		Message:  msg,
		Risk:     audit.RiskUnknown,
		Source:   "data",
	}
}

// parseCSV reads a header row followed by records.
func parseCSV(r io.Reader) ([]record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, err
	}
	for i := range header {
		header[i] = strings.ToLower(strings.TrimSpace(header[i]))
	}

	var records []record
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		rec := make(record, len(header))
		for i, v := range row {
			if i < len(header) {
				rec[header[i]] = v
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

// parseJSON accepts an array of objects, a single object, or a report with
// a top-level "findings" array.
func parseJSON(r io.Reader) ([]record, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimSpace(data)

	var items []map[string]any
	if len(data) > 0 && data[0] == '[' {
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, err
		}
		return toRecords(items), nil
	}

	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, err
	}
	if nested, ok := obj["findings"].([]any); ok {
		for _, n := range nested {
			if m, ok := n.(map[string]any); ok {
				items = append(items, m)
			}
		}
		return toRecords(items), nil
	}
	return toRecords([]map[string]any{obj}), nil
}

// parseYAML accepts a sequence of mappings or a single mapping.
func parseYAML(r io.Reader) ([]record, error) {
	var doc any
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, err
	}
	switch v := doc.(type) {
	case []any:
		var items []map[string]any
		for _, n := range v {
			if m, ok := n.(map[string]any); ok {
				items = append(items, m)
			}
		}
		return toRecords(items), nil
	case map[string]any:
		return toRecords([]map[string]any{v}), nil
	default:
		return nil, fmt.Errorf("expected a mapping or a sequence, got %T", doc)
	}
}

// xmlNode is a generic element used to read arbitrary XML.
type xmlNode struct {
	XMLName  xml.Name
	Content  string    `xml:",chardata"`
	Children []xmlNode `xml:",any"`
}

// parseXML treats each child of the root element as a record whose child
// elements are fields.
func parseXML(r io.Reader) ([]record, error) {
	var root xmlNode
	if err := xml.NewDecoder(r).Decode(&root); err != nil {
		return nil, err
	}
	records := make([]record, 0, len(root.Children))
	for _, child := range root.Children {
		rec := make(record, len(child.Children))
		for _, field := range child.Children {
			rec[strings.ToLower(field.XMLName.Local)] = strings.TrimSpace(field.Content)
		}
		records = append(records, rec)
	}
	return records, nil
}

// toRecords stringifies decoded values. Keys are lower-cased so exports
// from other tools ("File", "Message") line up.
func toRecords(items []map[string]any) []record {
	records := make([]record, 0, len(items))
	for _, item := range items {
		rec := make(record, len(item))
		for k, v := range item {
			if v == nil {
				continue
			}
			rec[strings.ToLower(k)] = stringify(v)
		}
		records = append(records, rec)
	}
	return records
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%g", t)
	default:
		return fmt.Sprint(t)
	}
}
