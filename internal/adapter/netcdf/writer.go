package netcdf

import (
	"fmt"
	"math"
	"time"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"
	"github.com/batchatco/go-native-netcdf/netcdf/util"

	"github.com/couchcryptid/radar-scan-stats/internal/domain"
)

// FillValue marks missing gates in written moment grids.
const FillValue float32 = -9999

// WriteScan writes s to path in the layout Decode reads. Times are stored as
// seconds since the first ray, truncated to the second.
func WriteScan(path string, s domain.Scan) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	cw, err := netcdf.OpenWriter(path, netcdf.KindCDF)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	globals, err := util.NewOrderedMap(
		[]string{AttrScanMode, AttrScanName, AttrTemplateName},
		map[string]any{
			AttrScanMode:     s.ScanMode,
			AttrScanName:     s.ScanName,
			AttrTemplateName: s.TemplateName,
		})
	if err != nil {
		_ = cw.Close()
		return fmt.Errorf("global attributes: %w", err)
	}
	if err := cw.AddGlobalAttrs(globals); err != nil {
		_ = cw.Close()
		return fmt.Errorf("global attributes: %w", err)
	}

	ref := s.FirstTime().UTC().Truncate(time.Second)
	offsets := make([]float64, len(s.Time))
	for i, t := range s.Time {
		offsets[i] = t.Sub(ref).Seconds()
	}

	vars := []struct {
		name  string
		value any
		dims  []string
		attrs map[string]any
	}{
		{VarTime, offsets, []string{"time"}, map[string]any{"units": "seconds since " + ref.Format(time.RFC3339)}},
		{VarAzimuth, toFloat32(s.Azimuth), []string{"time"}, map[string]any{"units": "degrees"}},
		{VarElevation, toFloat32(s.Elevation), []string{"time"}, map[string]any{"units": "degrees"}},
		{VarRange, toFloat32(s.Range), []string{"range"}, map[string]any{"units": "meters"}},
		{VarReflectivity, gridRows(s.Reflectivity), []string{"time", "range"}, map[string]any{"units": "dBZ", "_FillValue": FillValue}},
		{VarDifferentialReflectivity, gridRows(s.DifferentialReflectivity), []string{"time", "range"}, map[string]any{"units": "dB", "_FillValue": FillValue}},
		{VarCopolCorrelation, gridRows(s.CopolCorrelation), []string{"time", "range"}, map[string]any{"units": "1", "_FillValue": FillValue}},
	}
	for _, v := range vars {
		attrs, err := util.NewOrderedMap(attrKeys(v.attrs), v.attrs)
		if err != nil {
			_ = cw.Close()
			return fmt.Errorf("variable %q attributes: %w", v.name, err)
		}
		if err := cw.AddVar(v.name, api.Variable{
			Values:     v.value,
			Dimensions: v.dims,
			Attributes: attrs,
		}); err != nil {
			_ = cw.Close()
			return fmt.Errorf("variable %q: %w", v.name, err)
		}
	}

	if err := cw.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}

func toFloat32(in []float64) []float32 {
	out := make([]float32, len(in))
	for i, v := range in {
		out[i] = float32(v)
	}
	return out
}

func gridRows(g domain.Grid) [][]float32 {
	rows := make([][]float32, g.Rows)
	for r := range rows {
		row := make([]float32, g.Cols)
		for c := range row {
			v := g.At(r, c)
			if math.IsNaN(v) {
				row[c] = FillValue
				continue
			}
			row[c] = float32(v)
		}
		rows[r] = row
	}
	return rows
}

// attrKeys lists the attribute keys present in m, units first.
func attrKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	if _, ok := m["units"]; ok {
		keys = append(keys, "units")
	}
	if _, ok := m["_FillValue"]; ok {
		keys = append(keys, "_FillValue")
	}
	return keys
}
