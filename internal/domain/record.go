package domain

import (
	"math"
	"path/filepath"
	"regexp"
	"time"
)

// TimeLayout formats scan timestamps in UTC with the sub-second part kept
// and trailing zeros trimmed.
const TimeLayout = "2006-01-02T15:04:05.999999999Z07:00"

// GateCount is the number of filtered gates meeting one threshold condition.
type GateCount struct {
	Column    string  `json:"column"`
	Threshold float64 `json:"threshold"`
	Count     int     `json:"count"`
}

// SummaryRecord is one output row. NaN marks an undefined statistic.
type SummaryRecord struct {
	Time         time.Time
	ScanMode     string
	ScanName     string
	TemplateName string

	AzimuthMin   float64
	AzimuthMax   float64
	ElevationMin float64
	ElevationMax float64
	RangeMin     float64
	RangeMax     float64

	PeakAzimuth      float64
	PeakRange        float64
	PeakReflectivity float64

	ReflectivityCounts []GateCount
	HeightCounts       []GateCount
	ValidGates         int

	// Not part of the table.
	Source      string
	PlotPath    string
	ProcessedAt time.Time
}

// PeakDefined reports whether the peak triple holds real values.
func (r SummaryRecord) PeakDefined() bool {
	return !math.IsNaN(r.PeakReflectivity)
}

// Batch is the output table for one date.
type Batch struct {
	RunID   string
	Date    time.Time
	Columns []string
	Records []SummaryRecord
}

// fileDateRe matches the YYYYMMDD stamp in ARM file names such as
// houcsapr2cfrS2.a1.20220801.000004.nc.
var fileDateRe = regexp.MustCompile(`\.(\d{8})\.\d{6}`)

// DayFromFilename returns the YYYYMMDD day stamp embedded in an archive file
// name, falling back to the UTC date of fallback.
func DayFromFilename(path string, fallback time.Time) string {
	if m := fileDateRe.FindStringSubmatch(filepath.Base(path)); len(m) == 2 {
		return m[1]
	}
	return fallback.UTC().Format("20060102")
}

// PlotPath returns <plotDir>/<YYYYMMDD>/<basename>.png for a scan file.
func PlotPath(plotDir, source string, first time.Time) string {
	return filepath.Join(plotDir, DayFromFilename(source, first), filepath.Base(source)+".png")
}
