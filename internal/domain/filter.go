package domain

import "math"

// RollingMean computes a trailing moving mean along the time axis of g,
// independently for every range bin. The value at row r averages rows
// r-window+1..r. It is NaN when fewer than window rows precede r or when
// any sample inside the window is missing.
func RollingMean(g Grid, window int) Grid {
	out := NewGrid(g.Rows, g.Cols)
	if window < 1 {
		return out
	}
	for c := 0; c < g.Cols; c++ {
		for r := window - 1; r < g.Rows; r++ {
			sum := 0.0
			for k := r - window + 1; k <= r; k++ {
				sum += g.At(k, c)
			}
			// NaN propagates through the sum.
			out.Set(r, c, sum/float64(window))
		}
	}
	return out
}

// SuppressClutter returns a filtered copy of the scan's reflectivity. Each
// test masks the gates that fail it, and the next test runs on what is
// left. A gate masked once stays masked.
//
// The scan itself is not modified.
func SuppressClutter(s Scan, t Thresholds) Grid {
	out := s.Reflectivity.Clone()

	zdr := smoothed(s.DifferentialReflectivity, out, t.SmoothingWindow)
	refine(out, func(r, c int) bool {
		return zdr.At(r, c) <= t.ClutterZdrMax
	})

	rhohv := smoothed(s.CopolCorrelation, out, t.SmoothingWindow)
	refine(out, func(r, c int) bool {
		return rhohv.At(r, c) >= t.ClutterRhoHVMin
	})

	refine(out, func(_, c int) bool {
		return c < len(s.Range) && s.Range[c] > t.ClutterRangeMinM
	})

	return out
}

// smoothed returns the trailing mean of field, or an all-missing grid when
// field does not line up with the reflectivity grid.
func smoothed(field, like Grid, window int) Grid {
	if !field.SameShape(like) {
		return NewGrid(like.Rows, like.Cols)
	}
	return RollingMean(field, window)
}

// refine masks every gate of g for which pass is false. Comparisons against
// NaN are false, so undefined inputs fail.
func refine(g Grid, pass func(r, c int) bool) {
	for r := 0; r < g.Rows; r++ {
		for c := 0; c < g.Cols; c++ {
			if !pass(r, c) {
				g.Set(r, c, math.NaN())
			}
		}
	}
}
