package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/radar-scan-stats/internal/domain"
	"github.com/couchcryptid/radar-scan-stats/internal/observability"
	"github.com/couchcryptid/radar-scan-stats/internal/pipeline"
)

// --- mocks ---

type mockSource struct {
	files map[string][]string // keyed by YYYYMMDD
	err   error
}

func (m *mockSource) Files(_ context.Context, date time.Time) ([]string, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.files[date.Format("20060102")], nil
}

type mockProcessor struct {
	fail  map[string]error
	delay map[string]time.Duration
}

func (m *mockProcessor) Process(ctx context.Context, path string) (domain.SummaryRecord, error) {
	if d, ok := m.delay[path]; ok {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return domain.SummaryRecord{}, &pipeline.StageError{Stage: pipeline.StageTimeout, Err: ctx.Err()}
		}
	}
	if err := m.fail[path]; err != nil {
		return domain.SummaryRecord{}, err
	}
	return domain.SummaryRecord{Source: path, ScanName: "scan-" + path}, nil
}

type mockLoader struct {
	mu      sync.Mutex
	batches []domain.Batch
	err     error
}

func (m *mockLoader) LoadRecords(_ context.Context, b domain.Batch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.batches = append(m.batches, b)
	return nil
}

// countingDecoder counts decode calls and fails paths listed in fail.
type countingDecoder struct {
	calls atomic.Int32
	fail  map[string]bool
}

func (d *countingDecoder) Decode(path string) (domain.Scan, error) {
	d.calls.Add(1)
	if d.fail[path] {
		return domain.Scan{}, errors.New("truncated file")
	}
	s := cellScan("ppi_volume")
	s.Source = path
	return s, nil
}

func numberedFiles(n int) []string {
	files := make([]string, n)
	for i := range files {
		files[i] = fmt.Sprintf("scan%02d.nc", i)
	}
	return files
}

func newTestMetrics() *observability.Metrics {
	return observability.NewMetricsForTesting()
}

var (
	day1 = time.Date(2022, time.August, 1, 0, 0, 0, 0, time.UTC)
	day2 = time.Date(2022, time.August, 2, 0, 0, 0, 0, time.UTC)
)

func recordSources(b domain.Batch) []string {
	out := make([]string, len(b.Records))
	for i, r := range b.Records {
		out[i] = r.Source
	}
	return out
}

func newPipeline(src pipeline.FileSource, proc pipeline.Processor, ldr *mockLoader, opts pipeline.Options, m *observability.Metrics) *pipeline.Pipeline {
	return pipeline.New(src, proc, []pipeline.Sink{{Name: "mock", Loader: ldr}}, opts, slog.Default(), m)
}

// --- tests ---

func TestPipeline_Run_HappyPath(t *testing.T) {
	files := []string{"a.nc", "b.nc", "c.nc", "d.nc", "e.nc"}
	src := &mockSource{files: map[string][]string{"20220801": files}}
	proc := &mockProcessor{delay: map[string]time.Duration{"a.nc": 30 * time.Millisecond}}
	ldr := &mockLoader{}
	metrics := newTestMetrics()
	cols := []string{"time", "valid_gates"}

	p := newPipeline(src, proc, ldr, pipeline.Options{Workers: 3, Columns: cols}, metrics)
	require.Error(t, p.CheckReadiness(context.Background()))

	require.NoError(t, p.Run(context.Background(), []time.Time{day1}))

	require.Len(t, ldr.batches, 1)
	b := ldr.batches[0]
	assert.NotEmpty(t, b.RunID)
	assert.Equal(t, day1, b.Date)
	assert.Equal(t, cols, b.Columns)
	assert.Equal(t, files, recordSources(b), "records keep file order")

	require.NoError(t, p.CheckReadiness(context.Background()))
	assert.InDelta(t, 5.0, testutil.ToFloat64(metrics.FilesDiscovered), 0)
	assert.InDelta(t, 5.0, testutil.ToFloat64(metrics.ScansProcessed), 0)
	assert.InDelta(t, 5.0, testutil.ToFloat64(metrics.RecordsLoaded.WithLabelValues("mock")), 0)
	assert.InDelta(t, 0.0, testutil.ToFloat64(metrics.PipelineRunning), 0)

	st := p.Snapshot()
	assert.False(t, st.Running)
	assert.Equal(t, b.RunID, st.RunID)
	assert.Equal(t, "20220801", st.Date)
	assert.Equal(t, 5, st.Processed)
	assert.Equal(t, 1, st.DatesDone)
}

func TestPipeline_Run_SkipsFailedFiles(t *testing.T) {
	src := &mockSource{files: map[string][]string{"20220801": {"a.nc", "bad.nc", "c.nc"}}}
	proc := &mockProcessor{fail: map[string]error{
		"bad.nc": &pipeline.StageError{Stage: pipeline.StageDecode, Err: errors.New("truncated file")},
	}}
	ldr := &mockLoader{}
	metrics := newTestMetrics()

	p := newPipeline(src, proc, ldr, pipeline.Options{Workers: 2}, metrics)
	require.NoError(t, p.Run(context.Background(), []time.Time{day1}))

	require.Len(t, ldr.batches, 1)
	assert.Equal(t, []string{"a.nc", "c.nc"}, recordSources(ldr.batches[0]))
	assert.InDelta(t, 1.0, testutil.ToFloat64(metrics.ScanErrors.WithLabelValues(pipeline.StageDecode)), 0)
	assert.Equal(t, 1, p.Snapshot().Failed)
}

func TestPipeline_Run_FailFast(t *testing.T) {
	decodeErr := errors.New("truncated file")
	src := &mockSource{files: map[string][]string{"20220801": {"a.nc", "bad.nc"}}}
	proc := &mockProcessor{fail: map[string]error{
		"bad.nc": &pipeline.StageError{Stage: pipeline.StageDecode, Err: decodeErr},
	}}
	ldr := &mockLoader{}

	p := newPipeline(src, proc, ldr, pipeline.Options{Workers: 1, FailFast: true}, newTestMetrics())
	err := p.Run(context.Background(), []time.Time{day1})

	require.ErrorIs(t, err, decodeErr)
	assert.Contains(t, err.Error(), "bad.nc")
	assert.Empty(t, ldr.batches)
	assert.Error(t, p.CheckReadiness(context.Background()))
	assert.NotEmpty(t, p.Snapshot().LastError)
}

func TestPipeline_Run_EmptyDateStillLoads(t *testing.T) {
	ldr := &mockLoader{}
	p := newPipeline(&mockSource{}, &mockProcessor{}, ldr, pipeline.Options{Workers: 4, Columns: []string{"time"}}, newTestMetrics())

	require.NoError(t, p.Run(context.Background(), []time.Time{day1}))

	require.Len(t, ldr.batches, 1)
	assert.Empty(t, ldr.batches[0].Records)
	assert.Equal(t, []string{"time"}, ldr.batches[0].Columns)
}

func TestPipeline_Run_DatesInOrder(t *testing.T) {
	src := &mockSource{files: map[string][]string{
		"20220801": {"a.nc"},
		"20220802": {"b.nc", "c.nc"},
	}}
	ldr := &mockLoader{}
	p := newPipeline(src, &mockProcessor{}, ldr, pipeline.Options{Workers: 2}, newTestMetrics())

	require.NoError(t, p.Run(context.Background(), []time.Time{day1, day2}))

	require.Len(t, ldr.batches, 2)
	assert.Equal(t, day1, ldr.batches[0].Date)
	assert.Equal(t, day2, ldr.batches[1].Date)
	assert.Equal(t, ldr.batches[0].RunID, ldr.batches[1].RunID)
	assert.Len(t, ldr.batches[1].Records, 2)
	assert.Equal(t, 2, p.Snapshot().DatesDone)
}

func TestPipeline_Run_FileTimeout(t *testing.T) {
	src := &mockSource{files: map[string][]string{"20220801": {"slow.nc", "fast.nc"}}}
	proc := &mockProcessor{delay: map[string]time.Duration{"slow.nc": time.Minute}}
	ldr := &mockLoader{}
	metrics := newTestMetrics()

	p := newPipeline(src, proc, ldr, pipeline.Options{Workers: 2, FileTimeout: 20 * time.Millisecond}, metrics)
	require.NoError(t, p.Run(context.Background(), []time.Time{day1}))

	require.Len(t, ldr.batches, 1)
	assert.Equal(t, []string{"fast.nc"}, recordSources(ldr.batches[0]))
	assert.InDelta(t, 1.0, testutil.ToFloat64(metrics.ScanErrors.WithLabelValues(pipeline.StageTimeout)), 0)
}

func TestPipeline_Run_LoaderErrorAborts(t *testing.T) {
	src := &mockSource{files: map[string][]string{"20220801": {"a.nc"}, "20220802": {"b.nc"}}}
	ldr := &mockLoader{err: errors.New("disk full")}

	p := newPipeline(src, &mockProcessor{}, ldr, pipeline.Options{}, newTestMetrics())
	err := p.Run(context.Background(), []time.Time{day1, day2})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "20220801")
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, 0, p.Snapshot().DatesDone)
}

func TestPipeline_Run_SourceError(t *testing.T) {
	ldr := &mockLoader{}
	p := newPipeline(&mockSource{err: fmt.Errorf("permission denied")}, &mockProcessor{}, ldr, pipeline.Options{}, newTestMetrics())

	require.Error(t, p.Run(context.Background(), []time.Time{day1}))
	assert.Empty(t, ldr.batches)
}

func TestPipeline_Run_ContextCancellation(t *testing.T) {
	src := &mockSource{files: map[string][]string{"20220801": {"a.nc"}}}
	proc := &mockProcessor{delay: map[string]time.Duration{"a.nc": time.Minute}}
	ldr := &mockLoader{}

	p := newPipeline(src, proc, ldr, pipeline.Options{Workers: 1}, newTestMetrics())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := p.Run(ctx, []time.Time{day1})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Empty(t, ldr.batches, "partial dates are not loaded")
}

func TestPipeline_Run_CancelledBeforeStartDecodesNothing(t *testing.T) {
	files := numberedFiles(50)
	src := &mockSource{files: map[string][]string{"20220801": files}}
	dec := &countingDecoder{}
	metrics := newTestMetrics()
	proc := pipeline.NewScanProcessor(dec, nil, domain.DefaultThresholds(), t.TempDir(), slog.Default(), metrics)
	ldr := &mockLoader{}

	p := newPipeline(src, proc, ldr, pipeline.Options{Workers: 1}, metrics)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.Run(ctx, []time.Time{day1})
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, dec.calls.Load(), "no file is decoded after cancellation")
	assert.InDelta(t, 0.0, testutil.ToFloat64(metrics.ScanErrors.WithLabelValues(pipeline.StageTimeout)), 0)
	assert.Zero(t, p.Snapshot().Failed)
	assert.Empty(t, ldr.batches)
}

func TestPipeline_Run_FailFastStopsRemainingFiles(t *testing.T) {
	files := numberedFiles(20)
	src := &mockSource{files: map[string][]string{"20220801": files}}
	dec := &countingDecoder{fail: map[string]bool{files[0]: true}}
	metrics := newTestMetrics()
	proc := pipeline.NewScanProcessor(dec, nil, domain.DefaultThresholds(), t.TempDir(), slog.Default(), metrics)
	ldr := &mockLoader{}

	p := newPipeline(src, proc, ldr, pipeline.Options{Workers: 1, FailFast: true}, metrics)

	err := p.Run(context.Background(), []time.Time{day1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), files[0])
	assert.Equal(t, int32(1), dec.calls.Load(), "files after the failure are not decoded")
	assert.InDelta(t, 1.0, testutil.ToFloat64(metrics.ScanErrors.WithLabelValues(pipeline.StageDecode)), 0)
	assert.InDelta(t, 0.0, testutil.ToFloat64(metrics.ScanErrors.WithLabelValues(pipeline.StageTimeout)), 0)
	assert.Equal(t, 1, p.Snapshot().Failed)
	assert.Empty(t, ldr.batches)
}

func TestStageOf(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", &pipeline.StageError{Stage: pipeline.StagePlot, Err: errors.New("x")})
	assert.Equal(t, pipeline.StagePlot, pipeline.StageOf(err))
	assert.Equal(t, "unknown", pipeline.StageOf(errors.New("plain")))
}
