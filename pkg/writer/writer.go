// Package writer provides event log output: Parquet via Apache Arrow,
// and XES for writing derived logs back out.
package writer

import (
	"context"

	"github.com/tracelens/tracelens/internal/model"
)

// Writer writes a complete event log to an output format.
type Writer interface {
	WriteLog(ctx context.Context, log *model.Log) error

	// Close flushes buffered data and releases resources.
	Close() error
}

// Config holds writer configuration.
type Config struct {
	BatchSize   int // events per record batch
	Compression CompressionType
}

// DefaultConfig returns the defaults used by the export command.
func DefaultConfig() Config {
	return Config{BatchSize: 8192, Compression: CompressionSnappy}
}

// CompressionType selects the Parquet compression codec.
type CompressionType uint8

const (
	CompressionNone CompressionType = iota
	CompressionSnappy
	CompressionGzip
	CompressionZstd
)

var compressionNames = map[CompressionType]string{
	CompressionNone:   "none",
	CompressionSnappy: "snappy",
	CompressionGzip:   "gzip",
	CompressionZstd:   "zstd",
}

func (c CompressionType) String() string {
	if n, ok := compressionNames[c]; ok {
		return n
	}
	return "none"
}

// ParseCompression maps a name to its compression type, none when
// unrecognized.
func ParseCompression(s string) CompressionType {
	for t, n := range compressionNames {
		if n == s {
			return t
		}
	}
	return CompressionNone
}
