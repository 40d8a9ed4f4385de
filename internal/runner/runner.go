// Package runner drives one dataset through load, clean and analyze,
// memoizing each stage by content and recording metrics along the way.
package runner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/KaramelBytes/edaloom-cli/internal/analysis"
	"github.com/KaramelBytes/edaloom-cli/internal/cache"
	"github.com/KaramelBytes/edaloom-cli/internal/clean"
	"github.com/KaramelBytes/edaloom-cli/internal/dataset"
	"github.com/KaramelBytes/edaloom-cli/internal/loader"
	"github.com/KaramelBytes/edaloom-cli/internal/logger"
	"github.com/KaramelBytes/edaloom-cli/internal/metrics"
	"go.uber.org/zap"
)

// Options configures a Runner.
type Options struct {
	// Report holds default presentation options; requests may override them.
	Report analysis.Options
	// CacheMaxEntries bounds each stage cache; 0 means unbounded.
	CacheMaxEntries int
	// Metrics may be nil.
	Metrics *metrics.Recorder
}

// Request describes one dataset to process.
type Request struct {
	Name   string
	Data   []byte
	Format string // empty: detect from Name
	Sheet  string // xlsx only
	// Report overrides Options.Report when set.
	Report *analysis.Options
}

// Outcome is the full product of a run.
type Outcome struct {
	Raw     *dataset.Dataset
	Result  clean.Result
	Summary analysis.Summary
	Report  *analysis.Report
}

// Runner is safe for concurrent use; all runs share its caches.
type Runner struct {
	opts      Options
	loads     *cache.Cache[*dataset.Dataset]
	cleans    *cache.Cache[clean.Result]
	summaries *cache.Cache[analysis.Summary]
}

// New creates a Runner.
func New(opts Options) *Runner {
	return &Runner{
		opts:      opts,
		loads:     cache.New[*dataset.Dataset]("load", opts.CacheMaxEntries, opts.Metrics),
		cleans:    cache.New[clean.Result]("clean", opts.CacheMaxEntries, opts.Metrics),
		summaries: cache.New[analysis.Summary]("analyze", opts.CacheMaxEntries, opts.Metrics),
	}
}

// Metrics returns the recorder the runner reports to (possibly nil).
func (r *Runner) Metrics() *metrics.Recorder { return r.opts.Metrics }

// Run processes raw bytes named name in the given format and returns the report.
func (r *Runner) Run(ctx context.Context, name string, raw []byte, format string) (*analysis.Report, error) {
	out, err := r.Execute(ctx, Request{Name: name, Data: raw, Format: format})
	if err != nil {
		return nil, err
	}
	return out.Report, nil
}

// RunFile reads path and processes it. An empty format is detected from the
// file extension.
func (r *Runner) RunFile(ctx context.Context, path, format string) (*Outcome, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}
	return r.Execute(ctx, Request{Name: filepath.Base(path), Data: b, Format: format})
}

// Execute runs every stage for req.
func (r *Runner) Execute(ctx context.Context, req Request) (*Outcome, error) {
	start := time.Now()
	format, err := resolveFormat(req)
	if err != nil {
		r.opts.Metrics.LoadError(req.Format)
		return nil, err
	}
	ctx = context.WithValue(ctx, logger.DatasetKey, req.Name)
	log := logger.WithContext(ctx)

	raw, err := r.loads.Do(cache.Key(format+"\x00"+req.Sheet, req.Data), func() (*dataset.Dataset, error) {
		return loader.Load(req.Data, format, loader.Options{Sheet: req.Sheet})
	})
	if err != nil {
		r.opts.Metrics.LoadError(format)
		log.Debug("load failed", zap.String("format", format), zap.Error(err))
		return nil, err
	}
	log.Debug("loaded", zap.String("format", format), zap.Int("rows", raw.Len()), zap.Int("columns", raw.Width()))
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res, _ := r.cleans.Do(raw.Fingerprint(), func() (clean.Result, error) {
		return clean.Clean(raw), nil
	})
	log.Debug("cleaned",
		zap.Int("kept", res.Cleaned.Len()),
		zap.Int("removed_missing", res.RemovedMissing.Len()),
		zap.Int("removed_outliers", res.RemovedOutliers.Len()))
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sum, _ := r.summaries.Do(res.Cleaned.Fingerprint(), func() (analysis.Summary, error) {
		return analysis.Analyze(res.Cleaned), nil
	})
	log.Debug("analyzed",
		zap.Int("frequency_tables", len(sum.FrequencyTables)),
		zap.Int("numeric_columns", len(sum.NumericStats)))

	opt := r.opts.Report
	if req.Report != nil {
		opt = *req.Report
	}
	rep := analysis.NewReport(req.Name, format, raw, res, sum, opt)

	m := r.opts.Metrics
	m.AddRows(metrics.StageIngested, raw.Len())
	m.AddRows(metrics.StageCleaned, res.Cleaned.Len())
	m.AddRows(metrics.StageRemovedMissing, res.RemovedMissing.Len())
	m.AddRows(metrics.StageRemovedOutliers, res.RemovedOutliers.Len())
	m.ObserveRun(time.Since(start))
	log.Debug("run complete", zap.String("report_id", rep.ID), zap.Duration("elapsed", time.Since(start)))

	return &Outcome{Raw: raw, Result: res, Summary: sum, Report: rep}, nil
}

func resolveFormat(req Request) (string, error) {
	f := strings.ToLower(strings.TrimSpace(req.Format))
	if f != "" {
		return f, nil
	}
	if req.Name == "" {
		return "", fmt.Errorf("%w: no format given and no file name to infer it from", loader.ErrUnsupportedFormat)
	}
	return loader.DetectFormat(req.Name)
}
