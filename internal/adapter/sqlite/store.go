// Package sqlite keeps summary records in a local SQLite database so several
// dates can be queried together.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"time"

	_ "modernc.org/sqlite"

	"github.com/couchcryptid/radar-scan-stats/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS scan_summaries (
	run_id              TEXT NOT NULL,
	date                TEXT NOT NULL,
	source              TEXT NOT NULL,
	time                TIMESTAMP,
	scan_mode           TEXT,
	scan_name           TEXT,
	template_name       TEXT,
	azimuth_min         DOUBLE,
	azimuth_max         DOUBLE,
	elevation_min       DOUBLE,
	elevation_max       DOUBLE,
	range_min           DOUBLE,
	range_max           DOUBLE,
	cell_azimuth        DOUBLE,
	cell_range          DOUBLE,
	cell_zh             DOUBLE,
	reflectivity_counts TEXT,
	height_counts       TEXT,
	valid_gates         BIGINT,
	plot_path           TEXT,
	processed_at        TIMESTAMP,
	PRIMARY KEY (run_id, source)
);
CREATE INDEX IF NOT EXISTS idx_scan_summaries_date ON scan_summaries (date);
`

// Store writes batches to the scan_summaries table.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path and ensures the schema exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// ":memory:" databases live only as long as their connection.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// LoadRecords inserts a batch in one transaction. Reloading the same run and
// source replaces the earlier row.
func (s *Store) LoadRecords(ctx context.Context, b domain.Batch) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO scan_summaries (
			run_id, date, source, time, scan_mode, scan_name, template_name,
			azimuth_min, azimuth_max, elevation_min, elevation_max, range_min, range_max,
			cell_azimuth, cell_range, cell_zh,
			reflectivity_counts, height_counts, valid_gates, plot_path, processed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	date := b.Date.UTC().Format("20060102")
	for i := range b.Records {
		r := &b.Records[i]
		zhCounts, err := json.Marshal(r.ReflectivityCounts)
		if err != nil {
			return fmt.Errorf("encode reflectivity counts: %w", err)
		}
		heightCounts, err := json.Marshal(r.HeightCounts)
		if err != nil {
			return fmt.Errorf("encode height counts: %w", err)
		}
		if _, err := stmt.ExecContext(ctx,
			b.RunID, date, r.Source, r.Time.UTC(), r.ScanMode, r.ScanName, r.TemplateName,
			nullFloat(r.AzimuthMin), nullFloat(r.AzimuthMax),
			nullFloat(r.ElevationMin), nullFloat(r.ElevationMax),
			nullFloat(r.RangeMin), nullFloat(r.RangeMax),
			nullFloat(r.PeakAzimuth), nullFloat(r.PeakRange), nullFloat(r.PeakReflectivity),
			string(zhCounts), string(heightCounts), r.ValidGates, r.PlotPath, r.ProcessedAt.UTC(),
		); err != nil {
			return fmt.Errorf("insert %s: %w", r.Source, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Records returns the rows stored for a run, ordered by scan time then source.
func (s *Store) Records(ctx context.Context, runID string) ([]domain.SummaryRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT source, time, scan_mode, scan_name, template_name,
			azimuth_min, azimuth_max, elevation_min, elevation_max, range_min, range_max,
			cell_azimuth, cell_range, cell_zh,
			reflectivity_counts, height_counts, valid_gates, plot_path, processed_at
		FROM scan_summaries
		WHERE run_id = ?
		ORDER BY time, source`, runID)
	if err != nil {
		return nil, fmt.Errorf("query run %s: %w", runID, err)
	}
	defer rows.Close()

	var out []domain.SummaryRecord
	for rows.Next() {
		var (
			r                      domain.SummaryRecord
			azMin, azMax           sql.NullFloat64
			elMin, elMax           sql.NullFloat64
			rngMin, rngMax         sql.NullFloat64
			cellAz, cellRng, cellZ sql.NullFloat64
			zhCounts, heightCounts string
			ts, processed          time.Time
		)
		if err := rows.Scan(&r.Source, &ts, &r.ScanMode, &r.ScanName, &r.TemplateName,
			&azMin, &azMax, &elMin, &elMax, &rngMin, &rngMax,
			&cellAz, &cellRng, &cellZ,
			&zhCounts, &heightCounts, &r.ValidGates, &r.PlotPath, &processed,
		); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		r.Time, r.ProcessedAt = ts.UTC(), processed.UTC()
		r.AzimuthMin, r.AzimuthMax = fromNull(azMin), fromNull(azMax)
		r.ElevationMin, r.ElevationMax = fromNull(elMin), fromNull(elMax)
		r.RangeMin, r.RangeMax = fromNull(rngMin), fromNull(rngMax)
		r.PeakAzimuth, r.PeakRange, r.PeakReflectivity = fromNull(cellAz), fromNull(cellRng), fromNull(cellZ)
		if err := json.Unmarshal([]byte(zhCounts), &r.ReflectivityCounts); err != nil {
			return nil, fmt.Errorf("decode reflectivity counts: %w", err)
		}
		if err := json.Unmarshal([]byte(heightCounts), &r.HeightCounts); err != nil {
			return nil, fmt.Errorf("decode height counts: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) Close() error {
	return s.db.Close()
}

func nullFloat(v float64) sql.NullFloat64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

func fromNull(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}
