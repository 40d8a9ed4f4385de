package runner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/KaramelBytes/edaloom-cli/internal/analysis"
	"github.com/KaramelBytes/edaloom-cli/internal/loader"
	"github.com/KaramelBytes/edaloom-cli/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sensors = "station,temp,humidity\n" +
	"north,20,40\n" +
	"south,21,42\n" +
	"east,,44\n" +
	"west,22,43\n" +
	"north,23,41\n" +
	"south,24,45\n" +
	"east,99,44\n"

func TestRunProducesReport(t *testing.T) {
	r := New(Options{Report: analysis.Options{SampleRows: 3, ShowRemoved: true}})
	rep, err := r.Run(context.Background(), "sensors.csv", []byte(sensors), "csv")
	require.NoError(t, err)
	assert.Equal(t, 7, rep.Rows)
	assert.Equal(t, 1, rep.RemovedMissing)
	assert.Equal(t, 1, rep.RemovedOutliers)
	assert.Equal(t, 5, rep.CleanedRows)
	assert.Equal(t, 3, rep.Samples.Len())
	require.NotNil(t, rep.Summary.Correlation)
	assert.Equal(t, []string{"temp", "humidity"}, rep.Summary.Correlation.Columns)
}

func TestRunDetectsFormatFromName(t *testing.T) {
	r := New(Options{})
	rep, err := r.Run(context.Background(), "sensors.csv", []byte(sensors), "")
	require.NoError(t, err)
	assert.Equal(t, "csv", rep.Format)

	_, err = r.Run(context.Background(), "", []byte(sensors), "")
	assert.True(t, errors.Is(err, loader.ErrUnsupportedFormat))
}

func TestRunUnsupportedFormatCountsLoadError(t *testing.T) {
	rec := metrics.New()
	r := New(Options{Metrics: rec})
	_, err := r.Run(context.Background(), "x.parquet", []byte("x"), "parquet")
	require.Error(t, err)
	assert.True(t, errors.Is(err, loader.ErrUnsupportedFormat))

	_, err = r.Run(context.Background(), "bad.json", []byte("{"), "json")
	require.Error(t, err)
	n, err := testutil.GatherAndCount(rec.Registry(), "edaloom_load_errors_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n, "one series for parquet and one for json")
}

func TestRunMemoizesStages(t *testing.T) {
	rec := metrics.New()
	r := New(Options{Metrics: rec})
	ctx := context.Background()
	first, err := r.Execute(ctx, Request{Name: "a.csv", Data: []byte(sensors)})
	require.NoError(t, err)
	second, err := r.Execute(ctx, Request{Name: "b.csv", Data: []byte(sensors)})
	require.NoError(t, err)

	assert.Same(t, first.Raw, second.Raw, "load stage reused")
	assert.Same(t, first.Result.Cleaned, second.Result.Cleaned, "clean stage reused")
	assert.NotEqual(t, first.Report.ID, second.Report.ID, "reports are per run")
	assert.Equal(t, "b.csv", second.Report.Name)
	assert.Equal(t, 1, r.loads.Len())
	assert.Equal(t, 1, r.cleans.Len())
	assert.Equal(t, 1, r.summaries.Len())
}

func TestRunHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(Options{}).Run(ctx, "s.csv", []byte(sensors), "csv")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRequestReportOverride(t *testing.T) {
	r := New(Options{Report: analysis.DefaultOptions()})
	out, err := r.Execute(context.Background(), Request{
		Name: "s.csv", Data: []byte(sensors), Report: &analysis.Options{SampleRows: 1, ShowRemoved: true},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, out.Report.Samples.Len())
	assert.NotNil(t, out.Report.OutlierRows)
}

func TestRunFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "sensors.csv")
	require.NoError(t, os.WriteFile(p, []byte(sensors), 0o644))
	out, err := New(Options{}).RunFile(context.Background(), p, "")
	require.NoError(t, err)
	assert.Equal(t, "sensors.csv", out.Report.Name)

	_, err = New(Options{}).RunFile(context.Background(), filepath.Join(t.TempDir(), "nope.csv"), "")
	assert.ErrorContains(t, err, "read dataset")
}
