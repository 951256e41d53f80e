package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/couchcryptid/radar-scan-stats/internal/domain"
	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

const dateLayout = "20060102"

// Config holds all batch settings, populated from environment variables.
type Config struct {
	ArchiveDir string
	// StartDate and EndDate bound the processed days, inclusive. Zero means today.
	StartDate time.Time
	EndDate   time.Time

	OutputDir    string
	OutputPrefix string

	PlotDir     string
	PlotEnabled bool

	Workers     int
	FileTimeout time.Duration
	FailFast    bool

	ThresholdsFile string
	Thresholds     domain.Thresholds

	// Optional record sinks. Empty values disable them.
	KafkaBrokers       []string
	KafkaTopic         string
	BatchSize          int
	BatchFlushInterval time.Duration
	SQLitePath         string

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	start, end, err := parseDateRange(os.Getenv("START_DATE"), os.Getenv("END_DATE"))
	if err != nil {
		return nil, err
	}

	workers, err := parsePositiveInt("WORKERS", runtime.NumCPU())
	if err != nil {
		return nil, err
	}

	fileTimeout, err := time.ParseDuration(sharedcfg.EnvOrDefault("FILE_TIMEOUT", "0s"))
	if err != nil || fileTimeout < 0 {
		return nil, errors.New("invalid FILE_TIMEOUT")
	}

	plotEnabled, err := parseBool("PLOT_ENABLED", true)
	if err != nil {
		return nil, err
	}
	failFast, err := parseBool("FAIL_FAST", false)
	if err != nil {
		return nil, err
	}

	thresholdsFile := os.Getenv("THRESHOLDS_FILE")
	thresholds, err := LoadThresholds(thresholdsFile)
	if err != nil {
		return nil, err
	}

	var brokers []string
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		brokers = sharedcfg.ParseBrokers(v)
	}

	cfg := &Config{
		ArchiveDir:   sharedcfg.EnvOrDefault("ARCHIVE_DIR", "/data/archive/hou/houcsapr2cfrS2.a1"),
		StartDate:    start,
		EndDate:      end,
		OutputDir:    sharedcfg.EnvOrDefault("OUTPUT_DIR", "./data"),
		OutputPrefix: sharedcfg.EnvOrDefault("OUTPUT_PREFIX", "houcsapr"),
		PlotDir:      sharedcfg.EnvOrDefault("PLOT_DIR", "./plots"),
		PlotEnabled:  plotEnabled,
		Workers:      workers,
		FileTimeout:  fileTimeout,
		FailFast:     failFast,

		ThresholdsFile: thresholdsFile,
		Thresholds:     thresholds,

		KafkaBrokers:       brokers,
		KafkaTopic:         sharedcfg.EnvOrDefault("KAFKA_TOPIC", "radar-scan-summaries"),
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,
		SQLitePath:         os.Getenv("SQLITE_PATH"),

		HTTPAddr:        os.Getenv("HTTP_ADDR"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
	}

	if cfg.ArchiveDir == "" {
		return nil, errors.New("ARCHIVE_DIR is required")
	}
	if cfg.OutputDir == "" {
		return nil, errors.New("OUTPUT_DIR is required")
	}
	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_BROKERS is set but KAFKA_TOPIC is empty")
	}

	return cfg, nil
}

// Dates returns every day from StartDate to EndDate inclusive, substituting
// today for unset bounds.
func (c *Config) Dates() []time.Time {
	start, end := c.StartDate, c.EndDate
	if start.IsZero() {
		start = domain.Today()
	}
	if end.IsZero() {
		end = start
	}
	return domain.DatesBetween(start, end)
}

func parseDateRange(startStr, endStr string) (time.Time, time.Time, error) {
	var start, end time.Time
	var err error
	if startStr != "" {
		start, err = time.Parse(dateLayout, startStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid START_DATE %q: want YYYYMMDD", startStr)
		}
	}
	if endStr != "" {
		end, err = time.Parse(dateLayout, endStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid END_DATE %q: want YYYYMMDD", endStr)
		}
		if start.IsZero() {
			return time.Time{}, time.Time{}, errors.New("END_DATE requires START_DATE")
		}
		if end.Before(start) {
			return time.Time{}, time.Time{}, errors.New("END_DATE is before START_DATE")
		}
	}
	return start, end, nil
}

func parsePositiveInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid %s: must be a positive integer", key)
	}
	return n, nil
}

func parseBool(key string, def bool) (bool, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}
