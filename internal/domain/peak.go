package domain

import "math"

// Peak locates the strongest filtered reflectivity gate. When OK is false the
// location is undefined and Azimuth, Range and Value are NaN.
type Peak struct {
	OK         bool
	TimeIndex  int
	RangeIndex int
	Azimuth    float64
	Range      float64
	Value      float64
}

func undefinedPeak() Peak {
	return Peak{
		TimeIndex:  -1,
		RangeIndex: -1,
		Azimuth:    math.NaN(),
		Range:      math.NaN(),
		Value:      math.NaN(),
	}
}

// FindPeak returns the maximum of g over both axes. Ties resolve to the
// gate seen first in row-major order. The peak is undefined when g has no
// defined gate or when the azimuth/range arrays do not cover the winning
// gate.
func FindPeak(g Grid, azimuth, rng []float64) Peak {
	best := -1
	for i, v := range g.Data {
		if math.IsNaN(v) {
			continue
		}
		if best < 0 || v > g.Data[best] {
			best = i
		}
	}
	if best < 0 || g.Cols == 0 {
		return undefinedPeak()
	}

	r, c := best/g.Cols, best%g.Cols
	if r >= len(azimuth) || c >= len(rng) {
		return undefinedPeak()
	}
	return Peak{
		OK:         true,
		TimeIndex:  r,
		RangeIndex: c,
		Azimuth:    azimuth[r],
		Range:      rng[c],
		Value:      g.Data[best],
	}
}
