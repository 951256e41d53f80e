// Package netcdf reads and writes radar scan files in the CF/Radial-style
// NetCDF layout produced by the ARM CSAPR2 instrument: a time × range grid
// per moment, 1-D coordinates, and free-text acquisition attributes.
package netcdf

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"

	"github.com/couchcryptid/radar-scan-stats/internal/domain"
)

// Variable and attribute names in a scan file.
const (
	VarTime                     = "time"
	VarAzimuth                  = "azimuth"
	VarElevation                = "elevation"
	VarRange                    = "range"
	VarReflectivity             = "reflectivity"
	VarDifferentialReflectivity = "differential_reflectivity"
	VarCopolCorrelation         = "copol_correlation_coeff"

	AttrScanMode     = "scan_mode"
	AttrScanName     = "scan_name"
	AttrTemplateName = "template_name"
)

// ErrDecode wraps every failure to turn a file into a scan.
var ErrDecode = errors.New("decode scan")

// Decoder maps a scan file path to a domain.Scan.
type Decoder struct{}

// NewDecoder returns a Decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode opens path and extracts the coordinates, the three moments and the
// acquisition attributes. Packed integers are unpacked with scale_factor and
// add_offset; gates equal to _FillValue or missing_value become NaN. Missing
// global attributes decode as empty strings.
func (d *Decoder) Decode(path string) (domain.Scan, error) {
	nc, err := netcdf.Open(path)
	if err != nil {
		return domain.Scan{}, fmt.Errorf("%w: open %s: %w", ErrDecode, path, err)
	}
	defer nc.Close()

	s := domain.Scan{Source: path}

	if s.Time, err = readTime(nc); err != nil {
		return domain.Scan{}, fmt.Errorf("%w: %s: %w", ErrDecode, path, err)
	}
	if s.Azimuth, err = readVector(nc, VarAzimuth); err != nil {
		return domain.Scan{}, fmt.Errorf("%w: %s: %w", ErrDecode, path, err)
	}
	if s.Elevation, err = readVector(nc, VarElevation); err != nil {
		return domain.Scan{}, fmt.Errorf("%w: %s: %w", ErrDecode, path, err)
	}
	if s.Range, err = readVector(nc, VarRange); err != nil {
		return domain.Scan{}, fmt.Errorf("%w: %s: %w", ErrDecode, path, err)
	}
	if s.Reflectivity, err = readGrid(nc, VarReflectivity); err != nil {
		return domain.Scan{}, fmt.Errorf("%w: %s: %w", ErrDecode, path, err)
	}
	if s.DifferentialReflectivity, err = readGrid(nc, VarDifferentialReflectivity); err != nil {
		return domain.Scan{}, fmt.Errorf("%w: %s: %w", ErrDecode, path, err)
	}
	if s.CopolCorrelation, err = readGrid(nc, VarCopolCorrelation); err != nil {
		return domain.Scan{}, fmt.Errorf("%w: %s: %w", ErrDecode, path, err)
	}

	attrs := nc.Attributes()
	s.ScanMode = stringAttr(attrs, AttrScanMode)
	s.ScanName = stringAttr(attrs, AttrScanName)
	s.TemplateName = stringAttr(attrs, AttrTemplateName)

	if err := s.Validate(); err != nil {
		return domain.Scan{}, fmt.Errorf("%w: %s: %w", ErrDecode, path, err)
	}
	return s, nil
}

func readVector(nc api.Group, name string) ([]float64, error) {
	v, err := nc.GetVariable(name)
	if err != nil {
		return nil, fmt.Errorf("variable %q: %w", name, err)
	}
	vals, err := flatten(v.Values)
	if err != nil {
		return nil, fmt.Errorf("variable %q: %w", name, err)
	}
	unpack(vals, v.Attributes)
	return vals, nil
}

func readGrid(nc api.Group, name string) (domain.Grid, error) {
	v, err := nc.GetVariable(name)
	if err != nil {
		return domain.Grid{}, fmt.Errorf("variable %q: %w", name, err)
	}
	if len(v.Dimensions) != 2 {
		return domain.Grid{}, fmt.Errorf("variable %q: want 2 dimensions, got %d", name, len(v.Dimensions))
	}
	rows, err := rows2D(v.Values)
	if err != nil {
		return domain.Grid{}, fmt.Errorf("variable %q: %w", name, err)
	}
	g, err := domain.GridFromRows(rows)
	if err != nil {
		return domain.Grid{}, fmt.Errorf("variable %q: %w", name, err)
	}
	unpack(g.Data, v.Attributes)
	return g, nil
}

func readTime(nc api.Group) ([]time.Time, error) {
	v, err := nc.GetVariable(VarTime)
	if err != nil {
		return nil, fmt.Errorf("variable %q: %w", VarTime, err)
	}
	offsets, err := flatten(v.Values)
	if err != nil {
		return nil, fmt.Errorf("variable %q: %w", VarTime, err)
	}
	units := stringAttr(v.Attributes, "units")
	unit, ref, err := ParseTimeUnits(units)
	if err != nil {
		return nil, fmt.Errorf("variable %q: %w", VarTime, err)
	}
	times := make([]time.Time, len(offsets))
	for i, off := range offsets {
		times[i] = ref.Add(time.Duration(math.Round(off * float64(unit)))).UTC()
	}
	return times, nil
}

// unpack applies CF packing conventions in place: fill and missing values
// become NaN, then value*scale_factor + add_offset.
func unpack(vals []float64, attrs api.AttributeMap) {
	fills := make([]float64, 0, 2)
	for _, key := range []string{"_FillValue", "missing_value"} {
		if f, ok := floatAttr(attrs, key); ok {
			fills = append(fills, f)
		}
	}
	scale, hasScale := floatAttr(attrs, "scale_factor")
	offset, hasOffset := floatAttr(attrs, "add_offset")
	if !hasScale {
		scale = 1
	}
	if !hasOffset {
		offset = 0
	}

	for i, v := range vals {
		if isFill(v, fills) {
			vals[i] = math.NaN()
			continue
		}
		if hasScale || hasOffset {
			vals[i] = v*scale + offset
		}
	}
}

func isFill(v float64, fills []float64) bool {
	if math.IsNaN(v) {
		return true
	}
	for _, f := range fills {
		if v == f {
			return true
		}
	}
	return false
}

// ParseTimeUnits parses a CF time unit string such as
// "seconds since 2022-08-01T00:00:04Z".
func ParseTimeUnits(units string) (time.Duration, time.Time, error) {
	before, after, ok := strings.Cut(strings.TrimSpace(units), " since ")
	if !ok {
		return 0, time.Time{}, fmt.Errorf("unsupported time units %q", units)
	}
	var unit time.Duration
	switch strings.ToLower(strings.TrimSpace(before)) {
	case "seconds", "second", "secs", "sec", "s":
		unit = time.Second
	case "minutes", "minute", "mins", "min":
		unit = time.Minute
	case "hours", "hour", "hrs", "hr", "h":
		unit = time.Hour
	case "days", "day", "d":
		unit = 24 * time.Hour
	default:
		return 0, time.Time{}, fmt.Errorf("unsupported time unit %q", before)
	}

	ref, err := parseReference(strings.TrimSpace(after))
	if err != nil {
		return 0, time.Time{}, err
	}
	return unit, ref, nil
}

var referenceLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05 0:00",
	"2006-01-02 15:04:05 00:00",
	"2006-01-02",
}

func parseReference(s string) (time.Time, error) {
	for _, layout := range referenceLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported time reference %q", s)
}

func stringAttr(attrs api.AttributeMap, key string) string {
	if attrs == nil {
		return ""
	}
	v, ok := attrs.Get(key)
	if !ok {
		return ""
	}
	switch s := v.(type) {
	case string:
		return strings.TrimRight(s, "\x00")
	case []string:
		return strings.Join(s, " ")
	default:
		return fmt.Sprint(v)
	}
}

func floatAttr(attrs api.AttributeMap, key string) (float64, bool) {
	if attrs == nil {
		return 0, false
	}
	v, ok := attrs.Get(key)
	if !ok {
		return 0, false
	}
	if f, ok := scalar(v); ok {
		return f, true
	}
	vals, err := flatten(v)
	if err != nil || len(vals) == 0 {
		return 0, false
	}
	return vals[0], true
}
