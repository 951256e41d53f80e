package config

import (
	"fmt"

	"github.com/couchcryptid/radar-scan-stats/internal/domain"
	"github.com/spf13/viper"
)

// LoadThresholds reads a threshold profile (TOML, YAML or JSON, by file
// extension). Keys missing from the file keep their defaults. An empty path
// returns the defaults.
//
// Example profile:
//
//	[clutter]
//	window = 5
//	zdr_max = 4.5
//	rhohv_min = 0.98
//	range_min_m = 500
//
//	[counts]
//	reflectivity = [0, 10, 30, 50]
//	height_reflectivity = [10, 40]
//	height_km = 5
func LoadThresholds(path string) (domain.Thresholds, error) {
	def := domain.DefaultThresholds()

	v := viper.New()
	v.SetDefault("clutter.window", def.SmoothingWindow)
	v.SetDefault("clutter.zdr_max", def.ClutterZdrMax)
	v.SetDefault("clutter.rhohv_min", def.ClutterRhoHVMin)
	v.SetDefault("clutter.range_min_m", def.ClutterRangeMinM)
	v.SetDefault("counts.reflectivity", def.ReflectivityThresholds)
	v.SetDefault("counts.height_reflectivity", def.HeightReflectivityThresholds)
	v.SetDefault("counts.height_km", def.HeightThresholdKm)
	v.SetDefault("geometry.earth_radius_km", def.EarthRadiusKm)
	v.SetDefault("plot.template_substring", def.PlotTemplateSubstring)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return domain.Thresholds{}, fmt.Errorf("read THRESHOLDS_FILE: %w", err)
		}
	}

	t := domain.Thresholds{
		SmoothingWindow:       v.GetInt("clutter.window"),
		ClutterZdrMax:         v.GetFloat64("clutter.zdr_max"),
		ClutterRhoHVMin:       v.GetFloat64("clutter.rhohv_min"),
		ClutterRangeMinM:      v.GetFloat64("clutter.range_min_m"),
		HeightThresholdKm:     v.GetFloat64("counts.height_km"),
		EarthRadiusKm:         v.GetFloat64("geometry.earth_radius_km"),
		PlotTemplateSubstring: v.GetString("plot.template_substring"),
	}
	if err := v.UnmarshalKey("counts.reflectivity", &t.ReflectivityThresholds); err != nil {
		return domain.Thresholds{}, fmt.Errorf("counts.reflectivity: %w", err)
	}
	if err := v.UnmarshalKey("counts.height_reflectivity", &t.HeightReflectivityThresholds); err != nil {
		return domain.Thresholds{}, fmt.Errorf("counts.height_reflectivity: %w", err)
	}

	if err := t.Validate(); err != nil {
		return domain.Thresholds{}, fmt.Errorf("invalid thresholds: %w", err)
	}
	return t, nil
}
