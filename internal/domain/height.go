package domain

import "math"

// BeamHeightKm returns the beam centre height above the antenna for a gate
// at rangeM metres and elevDeg degrees, using an effective Earth radius of
// earthRadiusKm.
func BeamHeightKm(rangeM, elevDeg, earthRadiusKm float64) float64 {
	rKm := rangeM / 1000
	return rKm*math.Sin(elevDeg*math.Pi/180) + rKm*rKm/(2*earthRadiusKm)
}

// HeightGrid broadcasts each ray's elevation across the range axis and
// returns the gate heights in km. Rays without an elevation get NaN.
func HeightGrid(elevation, rng []float64, rows int, earthRadiusKm float64) Grid {
	g := NewGrid(rows, len(rng))
	for r := 0; r < rows && r < len(elevation); r++ {
		for c, rm := range rng {
			g.Set(r, c, BeamHeightKm(rm, elevation[r], earthRadiusKm))
		}
	}
	return g
}
