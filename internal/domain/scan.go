package domain

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrInvalidScan is returned when a decoded scan violates the shape invariants.
var ErrInvalidScan = errors.New("invalid scan")

// Grid is a row-major rows × cols matrix of gate values. Rows index rays
// (time), columns index range bins. NaN marks a missing gate.
type Grid struct {
	Rows int
	Cols int
	Data []float64
}

// NewGrid returns a rows × cols grid with every gate missing.
func NewGrid(rows, cols int) Grid {
	if rows < 0 || cols < 0 {
		rows, cols = 0, 0
	}
	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = math.NaN()
	}
	return Grid{Rows: rows, Cols: cols, Data: data}
}

// GridFromRows copies a ragged-free slice of rows into a Grid.
func GridFromRows(rows [][]float64) (Grid, error) {
	if len(rows) == 0 {
		return Grid{}, nil
	}
	cols := len(rows[0])
	g := Grid{Rows: len(rows), Cols: cols, Data: make([]float64, 0, len(rows)*cols)}
	for i, row := range rows {
		if len(row) != cols {
			return Grid{}, fmt.Errorf("%w: row %d has %d columns, want %d", ErrInvalidScan, i, len(row), cols)
		}
		g.Data = append(g.Data, row...)
	}
	return g, nil
}

// index returns the offset of (row, col) in Data, or -1 when the gate lies
// outside the grid or past the end of a short Data slice.
func (g Grid) index(row, col int) int {
	if row < 0 || col < 0 || row >= g.Rows || col >= g.Cols {
		return -1
	}
	i := row*g.Cols + col
	if i >= len(g.Data) {
		return -1
	}
	return i
}

// At returns the gate at (row, col), or NaN when out of bounds.
func (g Grid) At(row, col int) float64 {
	i := g.index(row, col)
	if i < 0 {
		return math.NaN()
	}
	return g.Data[i]
}

// Set stores v at (row, col). Out-of-bounds writes are ignored.
func (g Grid) Set(row, col int, v float64) {
	if i := g.index(row, col); i >= 0 {
		g.Data[i] = v
	}
}

// check reports a grid whose Data does not hold exactly Rows*Cols gates.
func (g Grid) check(name string) error {
	if g.Rows < 0 || g.Cols < 0 || len(g.Data) != g.Rows*g.Cols {
		return fmt.Errorf("%w: %s holds %d gates for %dx%d", ErrInvalidScan, name, len(g.Data), g.Rows, g.Cols)
	}
	return nil
}

// Clone returns a deep copy.
func (g Grid) Clone() Grid {
	data := make([]float64, len(g.Data))
	copy(data, g.Data)
	return Grid{Rows: g.Rows, Cols: g.Cols, Data: data}
}

// SameShape reports whether both grids have identical dimensions.
func (g Grid) SameShape(o Grid) bool {
	return g.Rows == o.Rows && g.Cols == o.Cols
}

// Valid counts defined (non-NaN) gates.
func (g Grid) Valid() int {
	n := 0
	for _, v := range g.Data {
		if !math.IsNaN(v) {
			n++
		}
	}
	return n
}

// Scan is one decoded radar file.
type Scan struct {
	Source string // input path

	Time      []time.Time
	Azimuth   []float64 // degrees, one per ray
	Elevation []float64 // degrees, one per ray
	Range     []float64 // metres, one per range bin

	Reflectivity             Grid
	DifferentialReflectivity Grid
	CopolCorrelation         Grid

	ScanMode     string
	ScanName     string
	TemplateName string
}

// Validate checks the shape invariants shared by all grids and coordinates.
func (s Scan) Validate() error {
	rows, cols := s.Reflectivity.Rows, s.Reflectivity.Cols
	switch {
	case len(s.Range) == 0:
		return fmt.Errorf("%w: empty range axis", ErrInvalidScan)
	case len(s.Azimuth) == 0:
		return fmt.Errorf("%w: empty azimuth axis", ErrInvalidScan)
	case len(s.Elevation) == 0:
		return fmt.Errorf("%w: empty elevation axis", ErrInvalidScan)
	case len(s.Time) != rows:
		return fmt.Errorf("%w: %d timestamps for %d rays", ErrInvalidScan, len(s.Time), rows)
	case len(s.Azimuth) != rows || len(s.Elevation) != rows:
		return fmt.Errorf("%w: azimuth/elevation length %d/%d for %d rays", ErrInvalidScan, len(s.Azimuth), len(s.Elevation), rows)
	case len(s.Range) != cols:
		return fmt.Errorf("%w: %d range bins for %d columns", ErrInvalidScan, len(s.Range), cols)
	case !s.DifferentialReflectivity.SameShape(s.Reflectivity):
		return fmt.Errorf("%w: differential_reflectivity shape mismatch", ErrInvalidScan)
	case !s.CopolCorrelation.SameShape(s.Reflectivity):
		return fmt.Errorf("%w: copol_correlation_coeff shape mismatch", ErrInvalidScan)
	}
	return errors.Join(
		s.Reflectivity.check("reflectivity"),
		s.DifferentialReflectivity.check("differential_reflectivity"),
		s.CopolCorrelation.check("copol_correlation_coeff"),
	)
}

// FirstTime returns the first ray timestamp, or the zero time for an empty scan.
func (s Scan) FirstTime() time.Time {
	if len(s.Time) == 0 {
		return time.Time{}
	}
	return s.Time[0]
}

// WithReflectivity returns a shallow copy of the scan carrying g as its
// reflectivity field. The receiver is not modified.
func (s Scan) WithReflectivity(g Grid) Scan {
	s.Reflectivity = g
	return s
}
