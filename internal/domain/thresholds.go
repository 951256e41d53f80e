package domain

import (
	"errors"
	"fmt"
	"strconv"
)

// Thresholds holds every tunable constant used by the extractor.
type Thresholds struct {
	// SmoothingWindow is the trailing moving-mean length, in rays.
	SmoothingWindow int

	ClutterZdrMax    float64 // dB, smoothed Zdr must be <= this
	ClutterRhoHVMin  float64 // smoothed ρHV must be >= this
	ClutterRangeMinM float64 // metres, range must be > this

	// ReflectivityThresholds produce one "Zh > t" gate count each.
	ReflectivityThresholds []float64
	// HeightReflectivityThresholds produce one "Zh >= t and height > HeightThresholdKm" count each.
	HeightReflectivityThresholds []float64
	HeightThresholdKm            float64

	EarthRadiusKm float64

	// PlotTemplateSubstring selects scans to render. Empty disables plotting.
	PlotTemplateSubstring string
}

// DefaultThresholds returns the thresholds used for the CSAPR2 cell-tracking campaign.
func DefaultThresholds() Thresholds {
	return Thresholds{
		SmoothingWindow:              5,
		ClutterZdrMax:                4.5,
		ClutterRhoHVMin:              0.98,
		ClutterRangeMinM:             500,
		ReflectivityThresholds:       []float64{0, 10, 30, 50},
		HeightReflectivityThresholds: []float64{10, 40},
		HeightThresholdKm:            5,
		EarthRadiusKm:                6370,
		PlotTemplateSubstring:        "cell",
	}
}

// Validate rejects thresholds the extractor cannot work with.
func (t Thresholds) Validate() error {
	if t.SmoothingWindow < 1 {
		return fmt.Errorf("smoothing window must be >= 1, got %d", t.SmoothingWindow)
	}
	if t.EarthRadiusKm <= 0 {
		return errors.New("earth radius must be positive")
	}
	if err := checkAscending(t.ReflectivityThresholds); err != nil {
		return fmt.Errorf("reflectivity thresholds: %w", err)
	}
	if err := checkAscending(t.HeightReflectivityThresholds); err != nil {
		return fmt.Errorf("height reflectivity thresholds: %w", err)
	}
	return nil
}

func checkAscending(ts []float64) error {
	for i := 1; i < len(ts); i++ {
		if ts[i] <= ts[i-1] {
			return fmt.Errorf("values must be strictly ascending, got %v", ts)
		}
	}
	return nil
}

// Fixed leading columns of every output table.
var baseColumns = []string{
	"time",
	"scan_mode",
	"scan_name",
	"template_name",
	"azimuth_min",
	"azimuth_max",
	"elevation_min",
	"elevation_max",
	"range_min",
	"range_max",
	"cell_azimuth",
	"cell_range",
	"cell_zh",
}

// Columns returns the output table header for t, in record order.
func Columns(t Thresholds) []string {
	cols := make([]string, 0, len(baseColumns)+len(t.ReflectivityThresholds)+len(t.HeightReflectivityThresholds)+1)
	cols = append(cols, baseColumns...)
	for _, th := range t.ReflectivityThresholds {
		cols = append(cols, reflectivityColumn(th))
	}
	for _, th := range t.HeightReflectivityThresholds {
		cols = append(cols, heightColumn(th, t.HeightThresholdKm))
	}
	return append(cols, "valid_gates")
}

func reflectivityColumn(t float64) string {
	return "zh_gt_" + formatThreshold(t)
}

func heightColumn(t, km float64) string {
	return "zh_ge_" + formatThreshold(t) + "_height_gt_" + formatThreshold(km) + "km"
}

func formatThreshold(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
