package cmd

import (
	"fmt"
	"os"

	"github.com/KaramelBytes/edaloom-cli/internal/analysis"
	cfgpkg "github.com/KaramelBytes/edaloom-cli/internal/config"
	"github.com/KaramelBytes/edaloom-cli/internal/logger"
	"github.com/KaramelBytes/edaloom-cli/internal/metrics"
	"github.com/KaramelBytes/edaloom-cli/internal/runner"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Global flags
	cfgFile      string
	debug        bool
	flagLogLevel string

	// Loaded configuration
	cfg *cfgpkg.Global
)

var rootCmd = &cobra.Command{
	Use:   "edaloom",
	Short: "edaloom: clean tabular data and summarize what is left",
	Long: `edaloom loads a CSV, TSV, JSON or XLSX dataset, removes rows with missing
values and IQR outliers while keeping every removed row for inspection, and
produces descriptive statistics, frequency tables and correlations.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	cobra.OnInitialize(loadConfig)
	err := rootCmd.Execute()
	_ = logger.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.edaloom/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level: debug|info|warn|error (overrides config)")
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: allow running commands that don't need config
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		c = &cfgpkg.Global{SampleRows: analysis.DefaultOptions().SampleRows}
	}
	cfg = c

	lc := logger.Config{Level: cfg.LogLevel, Encoding: cfg.LogEncoding}
	if f := rootCmd.PersistentFlags(); f.Changed("log-level") && flagLogLevel != "" {
		lc.Level = flagLogLevel
	}
	if debug {
		lc.Level = "debug"
		lc.Development = true
	}
	if err := logger.Init(lc); err != nil {
		fmt.Fprintf(os.Stderr, "⚠ Warning: logger: %v\n", err)
		return
	}
	logger.Debug("config loaded", zap.String("projects_dir", cfg.ProjectsDir), zap.String("default_format", cfg.DefaultFormat))
}

// reportDefaults returns the report options configured globally.
func reportDefaults() analysis.Options {
	opt := analysis.DefaultOptions()
	if cfg != nil {
		if cfg.SampleRows >= 0 {
			opt.SampleRows = cfg.SampleRows
		}
		opt.ShowRemoved = cfg.ShowRemoved
	}
	return opt
}

// newRunner builds a runner from the loaded configuration.
func newRunner(rec *metrics.Recorder) *runner.Runner {
	entries := 0
	if cfg != nil {
		entries = cfg.CacheMaxEntries
	}
	return runner.New(runner.Options{Report: reportDefaults(), CacheMaxEntries: entries, Metrics: rec})
}
