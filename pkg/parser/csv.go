package parser

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/tracelens/tracelens/internal/model"
)

// CSVParser parses flattened event logs in CSV form, one event per row.
// Column names follow the XES flattening convention (case:concept:name,
// concept:name, time:timestamp, ...) and are configurable.
type CSVParser struct {
	cfg Config
}

// NewCSVParser creates a new CSV parser.
func NewCSVParser(cfg Config) *CSVParser {
	return &CSVParser{cfg: cfg}
}

// Parse implements the Parser interface.
func (p *CSVParser) Parse(ctx context.Context, r io.Reader, out chan<- *model.Event) error {
	reader := csv.NewReader(r)
	reader.Comma = p.cfg.Delimiter
	reader.ReuseRecord = false

	header, err := reader.Read()
	if err == io.EOF {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCSV, err)
	}

	cols, err := p.resolveColumns(header)
	if err != nil {
		return err
	}

	row := 1
	for {
		select {
		case <-ctx.Done():
			return ErrContextCanceled
		default:
		}

		record, err := reader.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: row %d: %v", ErrInvalidCSV, row, err)
		}
		row++

		event := &model.Event{
			CaseID:   field(record, cols.caseID),
			Activity: field(record, cols.activity),
			Resource: field(record, cols.resource),
		}
		if cols.lifecycle >= 0 {
			event.Lifecycle = field(record, cols.lifecycle)
		}
		if raw := field(record, cols.timestamp); raw != "" {
			ts, err := p.parseTimestamp(raw)
			if err != nil {
				return fmt.Errorf("%w: row %d: %q", ErrInvalidTimestamp, row, raw)
			}
			event.Timestamp = ts
		}

		for i, name := range header {
			if i == cols.caseID || i == cols.activity || i == cols.timestamp ||
				i == cols.resource || i == cols.lifecycle {
				continue
			}
			if v := field(record, i); v != "" {
				event.Attributes = append(event.Attributes, model.Attribute{Key: name, Value: v})
			}
		}

		select {
		case out <- event:
		case <-ctx.Done():
			return ErrContextCanceled
		}
	}
}

type columnIndexes struct {
	caseID    int
	activity  int
	timestamp int
	resource  int
	lifecycle int
}

// resolveColumns maps configured column names to header positions.
// Case ID and activity are required; the rest are optional.
func (p *CSVParser) resolveColumns(header []string) (columnIndexes, error) {
	find := func(name string) int {
		for i, h := range header {
			if strings.EqualFold(strings.TrimSpace(h), name) {
				return i
			}
		}
		return -1
	}

	cols := columnIndexes{
		caseID:    find(p.cfg.CaseIDColumn),
		activity:  find(p.cfg.ActivityColumn),
		timestamp: find(p.cfg.TimestampColumn),
		resource:  find(p.cfg.ResourceColumn),
		lifecycle: find(p.cfg.LifecycleColumn),
	}

	if cols.caseID < 0 {
		return cols, fmt.Errorf("%w: %s", ErrMissingColumn, p.cfg.CaseIDColumn)
	}
	if cols.activity < 0 {
		return cols, fmt.Errorf("%w: %s", ErrMissingColumn, p.cfg.ActivityColumn)
	}
	return cols, nil
}

func field(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return record[idx]
}

// parseTimestamp tries the configured layout first, then the XES layouts.
func (p *CSVParser) parseTimestamp(raw string) (int64, error) {
	if p.cfg.TimestampFormat != "" {
		if t, err := time.Parse(p.cfg.TimestampFormat, raw); err == nil {
			return t.UnixNano(), nil
		}
	}
	return parseXESTimestamp(raw)
}
