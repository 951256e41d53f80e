package sqlite

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/radar-scan-stats/internal/domain"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "stats.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func record(source string, minute int) domain.SummaryRecord {
	return domain.SummaryRecord{
		Source:           source,
		Time:             time.Date(2022, time.August, 1, 0, minute, 4, 0, time.UTC),
		ScanMode:         "rhi",
		ScanName:         "cell_track_01",
		TemplateName:     "cell_tracking_rhi",
		AzimuthMin:       90,
		AzimuthMax:       180,
		ElevationMin:     0,
		ElevationMax:     20,
		RangeMin:         1000,
		RangeMax:         40000,
		PeakAzimuth:      90,
		PeakRange:        40000,
		PeakReflectivity: 55,
		ReflectivityCounts: []domain.GateCount{
			{Column: "zh_gt_0", Threshold: 0, Count: 4},
			{Column: "zh_gt_10", Threshold: 10, Count: 4},
		},
		HeightCounts: []domain.GateCount{
			{Column: "zh_ge_10_height_gt_5km", Threshold: 10, Count: 1},
		},
		ValidGates:  5,
		PlotPath:    "/plots/20220801/" + source + ".png",
		ProcessedAt: time.Date(2022, time.August, 2, 6, 0, 0, 0, time.UTC),
	}
}

func TestStore_LoadAndReadBack(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()

	undefined := record("b.nc", 0)
	undefined.PeakAzimuth, undefined.PeakRange, undefined.PeakReflectivity = math.NaN(), math.NaN(), math.NaN()
	batch := domain.Batch{
		RunID:   "run-1",
		Date:    time.Date(2022, time.August, 1, 0, 0, 0, 0, time.UTC),
		Records: []domain.SummaryRecord{record("a.nc", 5), undefined},
	}
	require.NoError(t, st.LoadRecords(ctx, batch))

	got, err := st.Records(ctx, "run-1")
	require.NoError(t, err)

	want := []domain.SummaryRecord{undefined, record("a.nc", 5)}
	if diff := cmp.Diff(want, got, cmpopts.EquateNaNs()); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestStore_ReloadReplaces(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()
	batch := domain.Batch{RunID: "run-1", Records: []domain.SummaryRecord{record("a.nc", 0)}}

	require.NoError(t, st.LoadRecords(ctx, batch))
	batch.Records[0].ValidGates = 9
	require.NoError(t, st.LoadRecords(ctx, batch))

	got, err := st.Records(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 9, got[0].ValidGates)
}

func TestStore_RunsAreSeparate(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()
	require.NoError(t, st.LoadRecords(ctx, domain.Batch{RunID: "run-1", Records: []domain.SummaryRecord{record("a.nc", 0)}}))

	got, err := st.Records(ctx, "run-2")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestStore_EmptyBatch(t *testing.T) {
	st := openStore(t)
	require.NoError(t, st.LoadRecords(context.Background(), domain.Batch{RunID: "run-1"}))
}
