package domain

import (
	"math"
	"strings"
	"time"

	"gonum.org/v1/gonum/floats"
)

// Result is everything Extract derives from one scan.
type Result struct {
	Record   SummaryRecord
	Filtered Grid // clutter-suppressed reflectivity
	Heights  Grid // gate heights, km
	Peak     Peak
}

// Extract filters a scan and summarises it. It never fails: degenerate
// scans produce NaN statistics and zero counts rather than an error.
func Extract(s Scan, t Thresholds) Result {
	filtered := SuppressClutter(s, t)
	heights := HeightGrid(s.Elevation, s.Range, filtered.Rows, t.EarthRadiusKm)
	peak := FindPeak(filtered, s.Azimuth, s.Range)

	rec := SummaryRecord{
		Time:             s.FirstTime(),
		ScanMode:         s.ScanMode,
		ScanName:         s.ScanName,
		TemplateName:     s.TemplateName,
		PeakAzimuth:      peak.Azimuth,
		PeakRange:        peak.Range,
		PeakReflectivity: peak.Value,
		ValidGates:       filtered.Valid(),
		Source:           s.Source,
		ProcessedAt:      clock.Now(),
	}
	rec.AzimuthMin, rec.AzimuthMax = minMax(s.Azimuth)
	rec.ElevationMin, rec.ElevationMax = minMax(s.Elevation)
	rec.RangeMin, rec.RangeMax = minMax(s.Range)

	rec.ReflectivityCounts = make([]GateCount, 0, len(t.ReflectivityThresholds))
	for _, th := range t.ReflectivityThresholds {
		n := floats.Count(func(v float64) bool { return v > th }, filtered.Data)
		rec.ReflectivityCounts = append(rec.ReflectivityCounts, GateCount{
			Column:    reflectivityColumn(th),
			Threshold: th,
			Count:     n,
		})
	}

	rec.HeightCounts = make([]GateCount, 0, len(t.HeightReflectivityThresholds))
	for _, th := range t.HeightReflectivityThresholds {
		rec.HeightCounts = append(rec.HeightCounts, GateCount{
			Column:    heightColumn(th, t.HeightThresholdKm),
			Threshold: th,
			Count:     countAboveHeight(filtered, heights, th, t.HeightThresholdKm),
		})
	}

	return Result{Record: rec, Filtered: filtered, Heights: heights, Peak: peak}
}

func countAboveHeight(zh, heights Grid, minZh, minKm float64) int {
	n := 0
	for i, v := range zh.Data {
		if v >= minZh && i < len(heights.Data) && heights.Data[i] > minKm {
			n++
		}
	}
	return n
}

// minMax returns the exact extremes of s ignoring NaN, or NaN, NaN when s
// has no defined value.
func minMax(s []float64) (lo, hi float64) {
	lo, hi = math.NaN(), math.NaN()
	for _, v := range s {
		if math.IsNaN(v) {
			continue
		}
		if math.IsNaN(lo) || v < lo {
			lo = v
		}
		if math.IsNaN(hi) || v > hi {
			hi = v
		}
	}
	return lo, hi
}

// ShouldPlot reports whether the scan's template selects it for rendering.
func ShouldPlot(s Scan, t Thresholds) bool {
	return t.PlotTemplateSubstring != "" && strings.Contains(s.TemplateName, t.PlotTemplateSubstring)
}

// Marker is a point annotation on a time × range plot.
type Marker struct {
	Time  time.Time
	Range float64 // metres
}

// PlotRequest asks a charting collaborator to render one field of a scan.
type PlotRequest struct {
	Scan   Scan
	Field  string
	Title  string
	Marker *Marker // nil when no peak was found
	Path   string
}

// PlotRequest builds the render request for the filtered field of s.
func (r Result) PlotRequest(s Scan, path string) PlotRequest {
	req := PlotRequest{
		Scan:  s.WithReflectivity(r.Filtered),
		Field: "reflectivity",
		Title: PlotTitle(s),
		Path:  path,
	}
	if r.Peak.OK && r.Peak.TimeIndex < len(s.Time) {
		req.Marker = &Marker{Time: s.Time[r.Peak.TimeIndex], Range: r.Peak.Range}
	}
	return req
}

// PlotTitle is "<first timestamp> <scan name>".
func PlotTitle(s Scan) string {
	return s.FirstTime().UTC().Format(TimeLayout) + " " + s.ScanName
}
