// Package csvsink writes one summary table per date as CSV.
package csvsink

import (
	"context"
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/couchcryptid/radar-scan-stats/internal/domain"
)

// TimeLayout is the timestamp format of the time column.
const TimeLayout = domain.TimeLayout

// Sink writes <Dir>/<Prefix>.<YYYYMMDD>.csv per batch.
type Sink struct {
	Dir    string
	Prefix string
}

// New returns a Sink rooted at dir.
func New(dir, prefix string) *Sink {
	return &Sink{Dir: dir, Prefix: prefix}
}

// Path returns the output file for a batch date.
func (s *Sink) Path(b domain.Batch) string {
	return filepath.Join(s.Dir, s.Prefix+"."+b.Date.UTC().Format("20060102")+".csv")
}

// LoadRecords writes the batch atomically: rows go to a temp file in the
// output directory which then replaces any previous file for the date. A batch
// with no records still produces a header-only file.
func (s *Sink) LoadRecords(ctx context.Context, b domain.Batch) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	path := s.Path(b)
	tmp, err := os.CreateTemp(s.Dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	w := csv.NewWriter(tmp)
	if err := w.Write(b.Columns); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write header: %w", err)
	}
	for i := range b.Records {
		if err := w.Write(Row(b.Records[i])); err != nil {
			_ = tmp.Close()
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("flush csv: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename to %s: %w", path, err)
	}
	return nil
}

// Row formats a record in domain.Columns order.
func Row(r domain.SummaryRecord) []string {
	row := make([]string, 0, 13+len(r.ReflectivityCounts)+len(r.HeightCounts)+1)
	row = append(row,
		formatTime(r),
		r.ScanMode,
		r.ScanName,
		r.TemplateName,
		FormatFloat(r.AzimuthMin),
		FormatFloat(r.AzimuthMax),
		FormatFloat(r.ElevationMin),
		FormatFloat(r.ElevationMax),
		FormatFloat(r.RangeMin),
		FormatFloat(r.RangeMax),
		FormatFloat(r.PeakAzimuth),
		FormatFloat(r.PeakRange),
		FormatFloat(r.PeakReflectivity),
	)
	for _, c := range r.ReflectivityCounts {
		row = append(row, strconv.Itoa(c.Count))
	}
	for _, c := range r.HeightCounts {
		row = append(row, strconv.Itoa(c.Count))
	}
	return append(row, strconv.Itoa(r.ValidGates))
}

// FormatFloat renders v in shortest form; NaN is an empty cell.
func FormatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ParseFloat is the inverse of FormatFloat.
func ParseFloat(s string) (float64, error) {
	if s == "" {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}

func formatTime(r domain.SummaryRecord) string {
	if r.Time.IsZero() {
		return ""
	}
	return r.Time.UTC().Format(TimeLayout)
}
