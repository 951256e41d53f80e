package plot

import (
	"time"

	"github.com/couchcryptid/radar-scan-stats/internal/domain"
)

// scanGrid adapts a scan grid to plotter.GridXYZ: columns are rays (time),
// rows are range bins.
type scanGrid struct {
	g      domain.Grid
	times  []time.Time
	ranges []float64
}

func (s scanGrid) Dims() (c, r int) { return s.g.Rows, s.g.Cols }

func (s scanGrid) Z(c, r int) float64 { return s.g.At(c, r) }

func (s scanGrid) X(c int) float64 { return unixSeconds(s.times[c]) }

func (s scanGrid) Y(r int) float64 { return s.ranges[r] / 1000 }

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}
