// Command scanstats summarises every radar scan archived on each configured
// date and writes one CSV per date, plus the optional Kafka and SQLite sinks.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/radar-scan-stats/internal/adapter/http"
	"github.com/couchcryptid/radar-scan-stats/internal/adapter/archive"
	"github.com/couchcryptid/radar-scan-stats/internal/adapter/csvsink"
	kafkaadapter "github.com/couchcryptid/radar-scan-stats/internal/adapter/kafka"
	"github.com/couchcryptid/radar-scan-stats/internal/adapter/netcdf"
	"github.com/couchcryptid/radar-scan-stats/internal/adapter/plot"
	"github.com/couchcryptid/radar-scan-stats/internal/adapter/sqlite"
	"github.com/couchcryptid/radar-scan-stats/internal/config"
	"github.com/couchcryptid/radar-scan-stats/internal/domain"
	"github.com/couchcryptid/radar-scan-stats/internal/observability"
	"github.com/couchcryptid/radar-scan-stats/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	if err := run(cfg, logger, metrics); err != nil {
		logger.Error("batch failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) error {
	// Plotting is feature-flagged via PLOT_ENABLED.
	var plotter pipeline.Plotter
	if cfg.PlotEnabled {
		plotter = plot.NewPlotter()
		logger.Info("plotting enabled", "plot_dir", cfg.PlotDir, "template_substring", cfg.Thresholds.PlotTemplateSubstring)
	} else {
		logger.Info("plotting disabled")
	}

	sinks := []pipeline.Sink{{Name: "csv", Loader: csvsink.New(cfg.OutputDir, cfg.OutputPrefix)}}
	var closers []func() error

	if len(cfg.KafkaBrokers) > 0 {
		writer := kafkaadapter.NewWriter(cfg, logger)
		sinks = append(sinks, pipeline.Sink{Name: "kafka", Loader: writer})
		closers = append(closers, writer.Close)
		logger.Info("kafka sink enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}
	if cfg.SQLitePath != "" {
		store, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return err
		}
		sinks = append(sinks, pipeline.Sink{Name: "sqlite", Loader: store})
		closers = append(closers, store.Close)
		logger.Info("sqlite sink enabled", "path", cfg.SQLitePath)
	}
	defer func() {
		for _, c := range closers {
			if err := c(); err != nil {
				logger.Error("sink close error", "error", err)
			}
		}
	}()

	proc := pipeline.NewScanProcessor(netcdf.NewDecoder(), plotter, cfg.Thresholds, cfg.PlotDir, logger, metrics)
	p := pipeline.New(archive.New(cfg.ArchiveDir), proc, sinks, pipeline.Options{
		Workers:     cfg.Workers,
		FileTimeout: cfg.FileTimeout,
		FailFast:    cfg.FailFast,
		Columns:     domain.Columns(cfg.Thresholds),
	}, logger, metrics)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Ops endpoints live only for the duration of the batch.
	if cfg.HTTPAddr != "" {
		srv := httpadapter.NewServer(cfg.HTTPAddr, p, p, logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("http server shutdown error", "error", err)
			}
		}()
	}

	dates := cfg.Dates()
	logger.Info("batch starting",
		"archive_dir", cfg.ArchiveDir,
		"first_date", dates[0].Format("20060102"),
		"last_date", dates[len(dates)-1].Format("20060102"),
	)
	if err := p.Run(ctx, dates); err != nil {
		return err
	}
	logger.Info("batch complete", "output_dir", cfg.OutputDir)
	return nil
}
