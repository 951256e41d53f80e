package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/radar-scan-stats/internal/domain"
	"github.com/couchcryptid/radar-scan-stats/internal/observability"
)

// Processing stages, used as the stage label on scan_errors_total.
const (
	StageDecode  = "decode"
	StageExtract = "extract"
	StagePlot    = "plot"
	StageTimeout = "timeout"
)

// Decoder maps a scan file to a Scan.
type Decoder interface {
	Decode(path string) (domain.Scan, error)
}

// Plotter renders a plot request to disk.
type Plotter interface {
	Plot(ctx context.Context, req domain.PlotRequest) error
}

// StageError records which stage a file failed in.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string { return e.Stage + ": " + e.Err.Error() }

func (e *StageError) Unwrap() error { return e.Err }

// StageOf returns the failing stage of err, or "unknown".
func StageOf(err error) string {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return "unknown"
}

// ScanProcessor implements Processor: decode, extract, and optionally plot.
type ScanProcessor struct {
	decoder    Decoder
	plotter    Plotter
	thresholds domain.Thresholds
	plotDir    string
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewScanProcessor creates a ScanProcessor. Pass a nil plotter to disable
// plotting.
func NewScanProcessor(dec Decoder, plotter Plotter, th domain.Thresholds, plotDir string, logger *slog.Logger, metrics *observability.Metrics) *ScanProcessor {
	return &ScanProcessor{
		decoder:    dec,
		plotter:    plotter,
		thresholds: th,
		plotDir:    plotDir,
		logger:     logger,
		metrics:    metrics,
	}
}

// Process summarises one file. The context is checked before each stage.
// A plot failure is logged and counted but never fails the record.
func (p *ScanProcessor) Process(ctx context.Context, path string) (domain.SummaryRecord, error) {
	if err := ctx.Err(); err != nil {
		return domain.SummaryRecord{}, &StageError{Stage: StageTimeout, Err: err}
	}
	scan, err := p.decoder.Decode(path)
	if err != nil {
		return domain.SummaryRecord{}, &StageError{Stage: StageDecode, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return domain.SummaryRecord{}, &StageError{Stage: StageTimeout, Err: err}
	}

	res, err := extract(scan, p.thresholds)
	if err != nil {
		return domain.SummaryRecord{}, &StageError{Stage: StageExtract, Err: err}
	}
	if !res.Peak.OK {
		p.metrics.PeakUndefined.Inc()
		p.logger.Debug("no defined gate after filtering", "file", path)
	}

	if p.plotter != nil && domain.ShouldPlot(scan, p.thresholds) {
		if err := ctx.Err(); err != nil {
			return domain.SummaryRecord{}, &StageError{Stage: StageTimeout, Err: err}
		}
		plotPath := domain.PlotPath(p.plotDir, path, scan.FirstTime())
		if err := p.plotter.Plot(ctx, res.PlotRequest(scan, plotPath)); err != nil {
			p.metrics.ScanErrors.WithLabelValues(StagePlot).Inc()
			p.logger.Warn("plot failed", "file", path, "plot", plotPath, "error", err)
		} else {
			res.Record.PlotPath = plotPath
			p.metrics.PlotsRendered.Inc()
		}
	}

	return res.Record, nil
}

// extract reports a panic on a malformed scan as ErrInvalidScan.
func extract(s domain.Scan, th domain.Thresholds) (res domain.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", domain.ErrInvalidScan, r)
		}
	}()
	return domain.Extract(s, th), nil
}
