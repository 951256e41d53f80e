package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/couchcryptid/radar-scan-stats/internal/domain"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/data/archive/hou/houcsapr2cfrS2.a1", cfg.ArchiveDir)
	assert.True(t, cfg.StartDate.IsZero())
	assert.True(t, cfg.EndDate.IsZero())
	assert.Equal(t, "./data", cfg.OutputDir)
	assert.Equal(t, "houcsapr", cfg.OutputPrefix)
	assert.Equal(t, "./plots", cfg.PlotDir)
	assert.True(t, cfg.PlotEnabled)
	assert.Equal(t, runtime.NumCPU(), cfg.Workers)
	assert.Zero(t, cfg.FileTimeout)
	assert.False(t, cfg.FailFast)
	assert.Equal(t, domain.DefaultThresholds(), cfg.Thresholds)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, "radar-scan-summaries", cfg.KafkaTopic)
	assert.Equal(t, 50, cfg.BatchSize)
	assert.Equal(t, 500*time.Millisecond, cfg.BatchFlushInterval)
	assert.Empty(t, cfg.SQLitePath)
	assert.Empty(t, cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("ARCHIVE_DIR", "/archive")
	t.Setenv("START_DATE", "20220801")
	t.Setenv("END_DATE", "20220804")
	t.Setenv("OUTPUT_DIR", "/out")
	t.Setenv("OUTPUT_PREFIX", "csapr")
	t.Setenv("PLOT_DIR", "/www/cell_tracking")
	t.Setenv("PLOT_ENABLED", "false")
	t.Setenv("WORKERS", "3")
	t.Setenv("FILE_TIMEOUT", "45s")
	t.Setenv("FAIL_FAST", "true")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_TOPIC", "summaries")
	t.Setenv("SQLITE_PATH", "/out/stats.db")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/archive", cfg.ArchiveDir)
	assert.Equal(t, time.Date(2022, time.August, 1, 0, 0, 0, 0, time.UTC), cfg.StartDate)
	assert.Equal(t, time.Date(2022, time.August, 4, 0, 0, 0, 0, time.UTC), cfg.EndDate)
	assert.Equal(t, "/out", cfg.OutputDir)
	assert.Equal(t, "csapr", cfg.OutputPrefix)
	assert.Equal(t, "/www/cell_tracking", cfg.PlotDir)
	assert.False(t, cfg.PlotEnabled)
	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, 45*time.Second, cfg.FileTimeout)
	assert.True(t, cfg.FailFast)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "summaries", cfg.KafkaTopic)
	assert.Equal(t, "/out/stats.db", cfg.SQLitePath)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)

	assert.Len(t, cfg.Dates(), 4)
}

func TestLoad_InvalidStartDate(t *testing.T) {
	t.Setenv("START_DATE", "2022-08-01")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "START_DATE")
}

func TestLoad_EndBeforeStart(t *testing.T) {
	t.Setenv("START_DATE", "20220805")
	t.Setenv("END_DATE", "20220801")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "END_DATE")
}

func TestLoad_EndWithoutStart(t *testing.T) {
	t.Setenv("END_DATE", "20220801")
	_, err := Load()
	require.Error(t, err)
}

func TestLoad_InvalidWorkers(t *testing.T) {
	t.Setenv("WORKERS", "0")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "WORKERS")
}

func TestLoad_InvalidFileTimeout(t *testing.T) {
	t.Setenv("FILE_TIMEOUT", "soon")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FILE_TIMEOUT")
}

func TestLoad_InvalidFailFast(t *testing.T) {
	t.Setenv("FAIL_FAST", "maybe")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FAIL_FAST")
}

func TestLoad_InvalidShutdownTimeout(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "not-a-duration")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_InvalidBatchSize(t *testing.T) {
	t.Setenv("BATCH_SIZE", "0")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BATCH_SIZE")
}

func TestLoad_MissingThresholdsFile(t *testing.T) {
	t.Setenv("THRESHOLDS_FILE", filepath.Join(t.TempDir(), "missing.toml"))
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "THRESHOLDS_FILE")
}

func TestLoadThresholds_Empty(t *testing.T) {
	th, err := LoadThresholds("")
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultThresholds(), th)
}

func TestLoadThresholds_TOMLOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[clutter]
zdr_max = 3.5
range_min_m = 1000.0

[counts]
reflectivity = [5.0, 20.0]
height_km = 8.0

[plot]
template_substring = "rhi"
`), 0o600))

	th, err := LoadThresholds(path)
	require.NoError(t, err)

	assert.InDelta(t, 3.5, th.ClutterZdrMax, 1e-12)
	assert.InDelta(t, 1000.0, th.ClutterRangeMinM, 1e-12)
	assert.Equal(t, []float64{5, 20}, th.ReflectivityThresholds)
	assert.InDelta(t, 8.0, th.HeightThresholdKm, 1e-12)
	assert.Equal(t, "rhi", th.PlotTemplateSubstring)
	// Untouched keys keep defaults.
	assert.Equal(t, 5, th.SmoothingWindow)
	assert.InDelta(t, 0.98, th.ClutterRhoHVMin, 1e-12)
	assert.Equal(t, []float64{10, 40}, th.HeightReflectivityThresholds)
}

func TestLoadThresholds_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	require.NoError(t, os.WriteFile(path, []byte("clutter:\n  window: 0\n"), 0o600))

	_, err := LoadThresholds(path)
	require.Error(t, err)
}

func TestConfig_DatesDefaultsToToday(t *testing.T) {
	domain.SetClock(clockwork.NewFakeClockAt(time.Date(2022, time.August, 2, 17, 45, 0, 0, time.UTC)))
	t.Cleanup(func() { domain.SetClock(nil) })

	cfg := &Config{}
	assert.Equal(t, []time.Time{time.Date(2022, time.August, 2, 0, 0, 0, 0, time.UTC)}, cfg.Dates())
}
