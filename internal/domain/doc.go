// Package domain models scanning weather-radar volumes and the per-scan
// summary statistics derived from them.
//
// # Data Source
//
// Scans come from an ARM scanning precipitation radar archive (for example
// houcsapr2cfrS2.a1). Each file holds one CF/Radial-style scan decoded into a
// [Scan]: a time × range grid of gate measurements with per-ray azimuth and
// elevation and a shared range axis.
//
// # Field Conventions
//
//	reflectivity               Zh, dBZ
//	differential_reflectivity  Zdr, dB
//	copol_correlation_coeff    ρHV, unitless 0–1
//	range                      metres from the antenna, shared by all rays
//	azimuth, elevation         degrees, one value per ray (grid row)
//
// Missing gates are NaN. Decoders translate _FillValue and missing_value to
// NaN before a grid reaches this package.
//
// # Clutter Suppression
//
// Ground clutter is removed by [SuppressClutter], three pass/fail tests
// applied one after another to a copy of the reflectivity grid:
//
//	Zdr trailing mean over 5 rays   <= 4.5 dB
//	ρHV trailing mean over 5 rays   >= 0.98
//	range                           >  500 m
//
// A trailing mean is undefined for the first window-1 rays and for any
// window holding a missing sample; an undefined mean fails its test. The
// first four rays of every scan are therefore always masked with the
// default window.
//
// # Beam Height
//
// Gate height uses the 4/3 effective Earth radius approximation:
//
//	h_km = r_km·sin(el) + r_km² / (2·6370)
//
// # Summary Records
//
// [Extract] never fails. When the filtered grid has no defined gate the peak
// triple (azimuth, range, reflectivity) is NaN and every gate count is 0.
package domain
