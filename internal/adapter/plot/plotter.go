// Package plot renders a scan moment as a time × range heat map.
package plot

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/couchcryptid/radar-scan-stats/internal/domain"
)

// ErrTooSmall is returned for scans with fewer than two rays or range bins.
var ErrTooSmall = errors.New("scan too small to plot")

// Plotter writes PNG images for plot requests.
type Plotter struct {
	Width, Height vg.Length
	Colors        int
}

// NewPlotter returns a Plotter with a 10×4 inch canvas.
func NewPlotter() *Plotter {
	return &Plotter{Width: 10 * vg.Inch, Height: 4 * vg.Inch, Colors: 32}
}

// Plot renders req.Field of req.Scan to req.Path, creating the parent
// directory when absent. Concurrent calls may share a directory.
func (pl *Plotter) Plot(ctx context.Context, req domain.PlotRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	g, ok := field(req.Scan, req.Field)
	if !ok {
		return fmt.Errorf("unknown field %q", req.Field)
	}
	if g.Rows < 2 || g.Cols < 2 || len(req.Scan.Time) < g.Rows || len(req.Scan.Range) < g.Cols {
		return fmt.Errorf("%w: %d×%d", ErrTooSmall, g.Rows, g.Cols)
	}

	p := plot.New()
	p.Title.Text = req.Title
	p.X.Label.Text = "Time (UTC)"
	p.Y.Label.Text = "Range (km)"
	p.X.Tick.Marker = plot.TimeTicks{Format: "15:04:05"}

	grid := scanGrid{g: g, times: req.Scan.Time, ranges: req.Scan.Range}
	hm := plotter.NewHeatMap(grid, palette.Heat(pl.Colors, 1))
	hm.Min, hm.Max = bounds(g.Data)
	hm.NaN = color.Transparent
	p.Add(hm)

	if req.Marker != nil {
		pts := plotter.XYs{{
			X: unixSeconds(req.Marker.Time),
			Y: req.Marker.Range / 1000,
		}}
		sc, err := plotter.NewScatter(pts)
		if err != nil {
			return fmt.Errorf("peak marker: %w", err)
		}
		sc.GlyphStyle.Shape = draw.CrossGlyph{}
		sc.GlyphStyle.Color = color.RGBA{R: 255, A: 255}
		sc.GlyphStyle.Radius = vg.Points(6)
		p.Add(sc)
	}

	if err := os.MkdirAll(filepath.Dir(req.Path), 0o755); err != nil {
		return fmt.Errorf("create plot dir: %w", err)
	}
	if err := p.Save(pl.Width, pl.Height, req.Path); err != nil {
		return fmt.Errorf("save plot: %w", err)
	}
	return nil
}

func field(s domain.Scan, name string) (domain.Grid, bool) {
	switch name {
	case "reflectivity":
		return s.Reflectivity, true
	case "differential_reflectivity":
		return s.DifferentialReflectivity, true
	case "copol_correlation_coeff":
		return s.CopolCorrelation, true
	default:
		return domain.Grid{}, false
	}
}

// bounds returns the finite value range, widened when flat or empty.
func bounds(data []float64) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, v := range data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if lo > hi {
		return 0, 1
	}
	if lo == hi {
		return lo - 0.5, hi + 0.5
	}
	return lo, hi
}
