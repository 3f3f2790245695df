// Package export materializes analysis results as Parquet tables for BI
// tools, using DuckDB as the query engine.
package export

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/tracelens/tracelens/internal/model"
	"github.com/tracelens/tracelens/pkg/variants"
)

// DuckDBExporter writes events, case summaries and the variant coverage
// table to Parquet. Output: events.parquet, cases.parquet,
// variants.parquet, coverage.parquet
type DuckDBExporter struct {
	db          *sql.DB
	outputDir   string
	compression string
}

// NewDuckDBExporter creates an exporter backed by an in-memory DuckDB
// instance.
func NewDuckDBExporter(outputDir, compression string) (*DuckDBExporter, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	if compression == "" {
		compression = "snappy"
	}

	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb: %w", err)
	}

	return &DuckDBExporter{
		db:          db,
		outputDir:   outputDir,
		compression: compression,
	}, nil
}

// Result contains the paths to generated files.
type Result struct {
	OutputDir string `json:"output_dir"`
	Events    string `json:"events"`
	Cases     string `json:"cases"`
	Variants  string `json:"variants"`
	Coverage  string `json:"coverage"`
}

// Files returns all generated file paths.
func (r *Result) Files() []string {
	return []string{r.Events, r.Cases, r.Variants, r.Coverage}
}

// Export loads the log and the ranked coverage rows into DuckDB and
// copies the result tables to Parquet.
func (e *DuckDBExporter) Export(ctx context.Context, log *model.Log, rows []variants.Row) (*Result, error) {
	if err := e.loadEvents(ctx, log); err != nil {
		return nil, err
	}
	if err := e.loadCoverage(ctx, rows); err != nil {
		return nil, err
	}

	result := &Result{OutputDir: e.outputDir}

	if err := e.copyEvents(ctx); err != nil {
		return nil, err
	}
	result.Events = filepath.Join(e.outputDir, "events.parquet")

	if err := e.copyCases(ctx); err != nil {
		return nil, err
	}
	result.Cases = filepath.Join(e.outputDir, "cases.parquet")

	if err := e.copyVariants(ctx); err != nil {
		return nil, err
	}
	result.Variants = filepath.Join(e.outputDir, "variants.parquet")

	if err := e.copyCoverage(ctx); err != nil {
		return nil, err
	}
	result.Coverage = filepath.Join(e.outputDir, "coverage.parquet")

	return result, nil
}

// loadEvents bulk-inserts the flattened event table.
func (e *DuckDBExporter) loadEvents(ctx context.Context, log *model.Log) error {
	_, err := e.db.ExecContext(ctx, `
		CREATE TABLE events (
			case_id VARCHAR NOT NULL,
			activity VARCHAR NOT NULL,
			timestamp BIGINT NOT NULL,
			resource VARCHAR,
			lifecycle VARCHAR
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create events table: %w", err)
	}

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO events VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, c := range log.Cases {
		for i := range c.Events {
			ev := &c.Events[i]
			if _, err := stmt.ExecContext(ctx,
				ev.CaseID, ev.Activity, ev.Timestamp,
				nullable(ev.Resource), nullable(ev.Lifecycle)); err != nil {
				return fmt.Errorf("failed to insert event: %w", err)
			}
		}
	}

	return tx.Commit()
}

// loadCoverage inserts the ranked coverage sequence.
func (e *DuckDBExporter) loadCoverage(ctx context.Context, rows []variants.Row) error {
	_, err := e.db.ExecContext(ctx, `
		CREATE TABLE coverage (
			rank INTEGER NOT NULL,
			variant VARCHAR NOT NULL,
			length INTEGER NOT NULL,
			case_count INTEGER NOT NULL,
			fraction DOUBLE NOT NULL,
			cumulative INTEGER NOT NULL,
			coverage DOUBLE NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create coverage table: %w", err)
	}

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO coverage VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx,
			r.Rank, r.Label(), len(r.Activities), r.Count,
			r.Fraction, r.Cumulative, r.Coverage); err != nil {
			return fmt.Errorf("failed to insert coverage row: %w", err)
		}
	}

	return tx.Commit()
}

func (e *DuckDBExporter) copyEvents(ctx context.Context) error {
	return e.copy(ctx, `SELECT * FROM events ORDER BY case_id, timestamp`, "events.parquet")
}

// copyCases derives one summary row per case.
func (e *DuckDBExporter) copyCases(ctx context.Context) error {
	return e.copy(ctx, `
		SELECT
			case_id,
			COUNT(*) as event_count,
			MIN(timestamp) as start_time,
			MAX(timestamp) as end_time,
			(MAX(timestamp) - MIN(timestamp)) / 1000000000 as duration_seconds,
			STRING_AGG(activity, ' -> ' ORDER BY timestamp) as variant
		FROM events
		GROUP BY case_id
		ORDER BY case_id
	`, "cases.parquet")
}

// copyVariants aggregates the case summaries per variant.
func (e *DuckDBExporter) copyVariants(ctx context.Context) error {
	return e.copy(ctx, `
		WITH case_variants AS (
			SELECT
				case_id,
				STRING_AGG(activity, ' -> ' ORDER BY timestamp) as variant
			FROM events
			GROUP BY case_id
		)
		SELECT
			variant,
			COUNT(*) as case_count
		FROM case_variants
		GROUP BY variant
		ORDER BY case_count DESC, variant
	`, "variants.parquet")
}

func (e *DuckDBExporter) copyCoverage(ctx context.Context) error {
	return e.copy(ctx, `SELECT * FROM coverage ORDER BY rank`, "coverage.parquet")
}

// copy runs COPY (query) TO parquet with the configured compression.
func (e *DuckDBExporter) copy(ctx context.Context, query, name string) error {
	path := filepath.Join(e.outputDir, name)
	stmt := fmt.Sprintf(`COPY (%s) TO '%s' (FORMAT PARQUET, COMPRESSION '%s')`,
		query, escapePath(path), e.compression)
	if _, err := e.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("failed to copy %s: %w", name, err)
	}
	return nil
}

// Close releases resources.
func (e *DuckDBExporter) Close() error {
	return e.db.Close()
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func escapePath(p string) string {
	return strings.ReplaceAll(p, "'", "''")
}
