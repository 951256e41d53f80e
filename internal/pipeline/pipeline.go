package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/radar-scan-stats/internal/domain"
	"github.com/couchcryptid/radar-scan-stats/internal/observability"
)

// FileSource lists the scan files recorded on a date.
type FileSource interface {
	Files(ctx context.Context, date time.Time) ([]string, error)
}

// Processor turns one scan file into a summary record.
type Processor interface {
	Process(ctx context.Context, path string) (domain.SummaryRecord, error)
}

// RecordLoader writes one date's records to a destination.
type RecordLoader interface {
	LoadRecords(ctx context.Context, b domain.Batch) error
}

// Sink is a named RecordLoader; the name labels records_loaded_total.
type Sink struct {
	Name   string
	Loader RecordLoader
}

// Options tune the per-date fan-out.
type Options struct {
	Workers     int
	FileTimeout time.Duration // zero disables
	FailFast    bool
	Columns     []string
}

// Pipeline processes dates one at a time, fanning each date's files out to a
// bounded worker pool and handing the ordered records to every sink.
type Pipeline struct {
	source    FileSource
	processor Processor
	sinks     []Sink
	opts      Options
	logger    *slog.Logger
	metrics   *observability.Metrics
	ready     atomic.Bool

	mu     sync.Mutex
	status Status
}

// New creates a Pipeline with the given stages and observability.
func New(src FileSource, proc Processor, sinks []Sink, opts Options, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Pipeline{
		source:    src,
		processor: proc,
		sinks:     sinks,
		opts:      opts,
		logger:    logger,
		metrics:   metrics,
	}
}

// CheckReadiness returns nil once the pipeline has loaded at least one date,
// or an error describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not loaded any dates yet")
	}
	return nil
}

// Run processes each date in order and returns the first fatal error. Per-file
// failures are skipped unless FailFast is set. Sink failures always abort.
func (p *Pipeline) Run(ctx context.Context, dates []time.Time) error {
	runID := uuid.NewString()
	p.setStatus(func(s *Status) {
		*s = Status{RunID: runID, Running: true, DatesTotal: len(dates)}
	})
	p.logger.Info("pipeline started", "run_id", runID, "dates", len(dates), "workers", p.opts.Workers)
	p.metrics.PipelineRunning.Set(1)
	defer func() {
		p.metrics.PipelineRunning.Set(0)
		p.setStatus(func(s *Status) { s.Running = false })
	}()

	for _, date := range dates {
		if err := p.runDate(ctx, runID, date); err != nil {
			p.setStatus(func(s *Status) { s.LastError = err.Error() })
			return fmt.Errorf("date %s: %w", date.Format("20060102"), err)
		}
		p.setStatus(func(s *Status) { s.DatesDone++ })
	}

	p.logger.Info("pipeline finished", "run_id", runID, "dates", len(dates))
	return nil
}

func (p *Pipeline) runDate(ctx context.Context, runID string, date time.Time) error {
	start := time.Now()
	day := date.Format("20060102")
	logger := p.logger.With("run_id", runID, "date", day)

	files, err := p.source.Files(ctx, date)
	if err != nil {
		return fmt.Errorf("list files: %w", err)
	}
	p.metrics.FilesDiscovered.Add(float64(len(files)))
	p.setStatus(func(s *Status) {
		s.Date, s.Files, s.Processed, s.Failed = day, len(files), 0, 0
	})
	logger.Info("processing date", "files", len(files))

	records, err := p.processFiles(ctx, logger, files)
	if err != nil {
		return err
	}

	batch := domain.Batch{
		RunID:   runID,
		Date:    date,
		Columns: p.opts.Columns,
		Records: records,
	}
	for _, sink := range p.sinks {
		if err := sink.Loader.LoadRecords(ctx, batch); err != nil {
			logger.Error("load failed", "sink", sink.Name, "error", err)
			return fmt.Errorf("load %s: %w", sink.Name, err)
		}
		p.metrics.RecordsLoaded.WithLabelValues(sink.Name).Add(float64(len(records)))
	}

	p.metrics.BatchDuration.Observe(time.Since(start).Seconds())
	p.ready.Store(true)
	logger.Info("date complete", "records", len(records), "skipped", len(files)-len(records),
		"duration", time.Since(start))
	return nil
}

// processFiles runs the processor over files with bounded concurrency and
// returns the successful records in file order.
func (p *Pipeline) processFiles(ctx context.Context, logger *slog.Logger, files []string) ([]domain.SummaryRecord, error) {
	slots := make([]domain.SummaryRecord, len(files))
	done := make([]bool, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Workers)
	for i, path := range files {
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			rec, err := p.processOne(gctx, path)
			if err != nil {
				if cancelled(gctx, err) {
					return nil
				}
				p.metrics.ScanErrors.WithLabelValues(StageOf(err)).Inc()
				p.setStatus(func(s *Status) { s.Failed++ })
				if p.opts.FailFast {
					return fmt.Errorf("%s: %w", path, err)
				}
				logger.Warn("scan skipped", "file", path, "stage", StageOf(err), "error", err)
				return nil
			}
			slots[i], done[i] = rec, true
			p.metrics.ScansProcessed.Inc()
			p.setStatus(func(s *Status) { s.Processed++ })
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	records := make([]domain.SummaryRecord, 0, len(files))
	for i := range slots {
		if done[i] {
			records = append(records, slots[i])
		}
	}
	return records, nil
}

// cancelled reports whether err only reflects the run stopping, after a
// signal or a fail-fast abort, rather than a problem with the file.
func cancelled(ctx context.Context, err error) bool {
	cause := ctx.Err()
	return cause != nil && errors.Is(err, cause)
}

func (p *Pipeline) processOne(ctx context.Context, path string) (domain.SummaryRecord, error) {
	if p.opts.FileTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opts.FileTimeout)
		defer cancel()
	}
	start := time.Now()
	defer func() { p.metrics.ScanDuration.Observe(time.Since(start).Seconds()) }()
	return p.processor.Process(ctx, path)
}

// Status is a point-in-time view of the current run.
type Status struct {
	RunID      string `json:"run_id"`
	Running    bool   `json:"running"`
	Date       string `json:"date,omitempty"`
	Files      int    `json:"files"`
	Processed  int    `json:"processed"`
	Failed     int    `json:"failed"`
	DatesDone  int    `json:"dates_done"`
	DatesTotal int    `json:"dates_total"`
	LastError  string `json:"last_error,omitempty"`
}

// Status returns a copy of the run status for the ops endpoint.
func (p *Pipeline) Status() any {
	return p.Snapshot()
}

// Snapshot returns a copy of the run status.
func (p *Pipeline) Snapshot() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

func (p *Pipeline) setStatus(fn func(*Status)) {
	p.mu.Lock()
	fn(&p.status)
	p.mu.Unlock()
}
