// Package parser provides parsers for process mining event log formats
// (XES, CSV).
package parser

import (
	"context"
	"io"

	"github.com/tracelens/tracelens/internal/model"
)

// Parser defines the interface for parsing event log data.
// Implementations must respect context cancellation and must not retain
// references to the output channel after returning. The caller closes
// the out channel.
//
// A trace that declares a case identifier but contains no events is
// reported as a single event with CaseOnly set, so that empty cases
// survive into the assembled log.
type Parser interface {
	Parse(ctx context.Context, r io.Reader, out chan<- *model.Event) error
}

// Format represents a supported input format.
type Format uint8

const (
	FormatUnknown Format = iota
	FormatXES
	FormatCSV
)

// String returns the format name.
func (f Format) String() string {
	switch f {
	case FormatXES:
		return "xes"
	case FormatCSV:
		return "csv"
	default:
		return "unknown"
	}
}

// ParseFormat parses a format string.
func ParseFormat(s string) Format {
	switch s {
	case "xes", "XES":
		return FormatXES
	case "csv", "CSV":
		return FormatCSV
	default:
		return FormatUnknown
	}
}

// Config holds common parser configuration.
type Config struct {
	// BufferSize is the size of the read buffer in bytes.
	BufferSize int

	// CaseIDColumn is the name of the case ID column (CSV).
	CaseIDColumn string

	// ActivityColumn is the name of the activity column (CSV).
	ActivityColumn string

	// TimestampColumn is the name of the timestamp column (CSV).
	TimestampColumn string

	// ResourceColumn is the name of the resource column (CSV).
	ResourceColumn string

	// LifecycleColumn is the name of the lifecycle column (CSV).
	LifecycleColumn string

	// TimestampFormat is the expected timestamp format (Go time layout).
	TimestampFormat string

	// Delimiter is the field delimiter for CSV (default: comma).
	Delimiter rune
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		BufferSize:      64 * 1024,
		CaseIDColumn:    model.KeyCaseID,
		ActivityColumn:  model.KeyActivity,
		TimestampColumn: model.KeyTimestamp,
		ResourceColumn:  model.KeyResource,
		LifecycleColumn: model.KeyLifecycle,
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		Delimiter:       ',',
	}
}

// New creates a parser for the given format.
func New(format Format, cfg Config) (Parser, error) {
	switch format {
	case FormatXES:
		return NewXESParser(cfg), nil
	case FormatCSV:
		return NewCSVParser(cfg), nil
	default:
		return nil, ErrUnsupportedFormat
	}
}
