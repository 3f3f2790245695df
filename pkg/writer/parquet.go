package writer

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/arrow/memory"
	"github.com/apache/arrow/go/v14/parquet"
	"github.com/apache/arrow/go/v14/parquet/compress"
	"github.com/apache/arrow/go/v14/parquet/pqarrow"

	"github.com/tracelens/tracelens/internal/model"
)

// Flattened event table columns.
const (
	colCaseID = iota
	colActivity
	colTimestamp
	colResource
	colLifecycle
)

func eventSchema() *arrow.Schema {
	return arrow.NewSchema([]arrow.Field{
		{Name: "case_id", Type: arrow.BinaryTypes.String},
		{Name: "activity", Type: arrow.BinaryTypes.String},
		{Name: "timestamp", Type: arrow.PrimitiveTypes.Int64},
		{Name: "resource", Type: arrow.BinaryTypes.String, Nullable: true},
		{Name: "lifecycle", Type: arrow.BinaryTypes.String, Nullable: true},
	}, nil)
}

// ParquetWriter writes a flattened event table to Parquet via Arrow.
// One row per event; case attributes are not materialized.
type ParquetWriter struct {
	cfg    Config
	schema *arrow.Schema
	file   *pqarrow.FileWriter
	rec    *array.RecordBuilder

	mu      sync.Mutex
	pending int
	written int64
	closed  bool
}

func parquetCodec(c CompressionType) compress.Compression {
	switch c {
	case CompressionSnappy:
		return compress.Codecs.Snappy
	case CompressionGzip:
		return compress.Codecs.Gzip
	case CompressionZstd:
		return compress.Codecs.Zstd
	}
	return compress.Codecs.Uncompressed
}

// NewParquetWriter creates a Parquet writer over output.
func NewParquetWriter(output io.Writer, cfg Config) (*ParquetWriter, error) {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultConfig().BatchSize
	}
	schema := eventSchema()

	props := parquet.NewWriterProperties(
		parquet.WithCompression(parquetCodec(cfg.Compression)),
		parquet.WithDictionaryDefault(true),
		parquet.WithDataPageSize(1024*1024),
	)
	file, err := pqarrow.NewFileWriter(schema, output, props,
		pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema()))
	if err != nil {
		return nil, fmt.Errorf("failed to create parquet writer: %w", err)
	}

	rec := array.NewRecordBuilder(memory.NewGoAllocator(), schema)
	for _, f := range rec.Fields() {
		f.Reserve(cfg.BatchSize)
	}

	return &ParquetWriter{
		cfg:    cfg,
		schema: schema,
		file:   file,
		rec:    rec,
	}, nil
}

// WriteLog implements the Writer interface. Empty cases contribute no
// rows.
func (w *ParquetWriter) WriteLog(ctx context.Context, log *model.Log) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, c := range log.Cases {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		for i := range c.Events {
			w.appendRow(&c.Events[i])
			if w.pending >= w.cfg.BatchSize {
				if err := w.flush(); err != nil {
					return err
				}
			}
		}
	}
	return w.flush()
}

func (w *ParquetWriter) appendRow(ev *model.Event) {
	str := func(col int) *array.StringBuilder {
		return w.rec.Field(col).(*array.StringBuilder)
	}
	nullable := func(col int, v string) {
		// Empty string means absent in the model.
		if v == "" {
			str(col).AppendNull()
		} else {
			str(col).Append(v)
		}
	}

	str(colCaseID).Append(ev.CaseID)
	str(colActivity).Append(ev.Activity)
	w.rec.Field(colTimestamp).(*array.Int64Builder).Append(ev.Timestamp)
	nullable(colResource, ev.Resource)
	nullable(colLifecycle, ev.Lifecycle)
	w.pending++
}

// flush writes the pending rows as one record batch. NewRecord resets
// the builder for the next batch.
func (w *ParquetWriter) flush() error {
	if w.pending == 0 {
		return nil
	}
	batch := w.rec.NewRecord()
	defer batch.Release()

	if err := w.file.Write(batch); err != nil {
		return fmt.Errorf("failed to write record batch: %w", err)
	}
	w.written += int64(w.pending)
	w.pending = 0
	return nil
}

// Close flushes remaining rows and finalizes the Parquet footer.
func (w *ParquetWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	if err := w.flush(); err != nil {
		return err
	}
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("failed to close parquet writer: %w", err)
	}
	w.rec.Release()
	w.closed = true
	return nil
}

// RowsWritten returns the total number of rows written so far.
func (w *ParquetWriter) RowsWritten() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.written
}
