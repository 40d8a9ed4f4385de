package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/KaramelBytes/edaloom-cli/internal/analysis"
	"github.com/KaramelBytes/edaloom-cli/internal/logger"
	"github.com/KaramelBytes/edaloom-cli/internal/project"
	"github.com/KaramelBytes/edaloom-cli/internal/runner"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	abProject     string
	abDescription string
	abFormat      string
	abInputFormat string
	abSheet       string
	abSampleRows  int
	abShowRemoved bool
	abWorkers     int
	abQuiet       bool
)

var analyzeBatchCmd = &cobra.Command{
	Use:   "analyze-batch <files...>",
	Short: "Analyze multiple datasets concurrently with optional project attachment",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files, err := expandInputs(args)
		if err != nil {
			return err
		}

		var p *project.Project
		if abProject != "" {
			pp, err := loadProjectByName(abProject)
			if err != nil {
				return err
			}
			p = pp
		}
		opt := reportOptions(cmd.Flags(), p, abSampleRows, abShowRemoved)
		format := outputFormat(cmd.Flags(), p, abFormat)

		workers := abWorkers
		if workers <= 0 && cfg != nil {
			workers = cfg.BatchWorkers
		}
		if workers <= 0 {
			workers = 1
		}

		// One runner for the whole batch: files with identical content are
		// loaded, cleaned and analyzed once.
		r := newRunner(nil)
		reports := make([]*analysis.Report, len(files))
		g, ctx := errgroup.WithContext(cmd.Context())
		g.SetLimit(workers)
		for i, path := range files {
			g.Go(func() error {
				data, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("read %s: %w", path, err)
				}
				out, err := r.Execute(ctx, runner.Request{
					Name:   filepath.Base(path),
					Data:   data,
					Format: abInputFormat,
					Sheet:  abSheet,
					Report: &opt,
				})
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				reports[i] = out.Report
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
		logger.Debug("batch complete", zap.Int("files", len(files)), zap.Int("workers", workers))

		total := len(files)
		for i, path := range files {
			rep := reports[i]
			if !abQuiet {
				fmt.Printf("[%d/%d] %s: %d rows, %d kept, %d removed (missing), %d removed (outliers)\n",
					i+1, total, filepath.Base(path), rep.Rows, rep.CleanedRows, rep.RemovedMissing, rep.RemovedOutliers)
			}
			if p != nil {
				s, err := p.AttachReport(rep, path, abDescription)
				if err != nil {
					return err
				}
				if !abQuiet {
					fmt.Printf("✓ Added analysis to project '%s' as %s\n", p.Name, s.File)
				}
				continue
			}
			if abQuiet {
				continue
			}
			rendered, err := rep.Render(format)
			if err != nil {
				return err
			}
			fmt.Println(string(rendered))
		}
		if p != nil {
			if err := p.Save(); err != nil {
				return err
			}
		}
		return nil
	},
}

// expandInputs resolves globs and literal paths into a sorted, de-duplicated
// file list.
func expandInputs(args []string) ([]string, error) {
	var files []string
	seen := map[string]struct{}{}
	for _, arg := range args {
		matches, _ := filepath.Glob(arg)
		if len(matches) == 0 {
			// treat as literal path if exists
			if _, err := os.Stat(arg); err == nil {
				matches = []string{arg}
			}
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no input files matched")
	}
	sort.Strings(files)
	return files, nil
}

func init() {
	rootCmd.AddCommand(analyzeBatchCmd)
	analyzeBatchCmd.Flags().StringVarP(&abProject, "project", "p", "", "project name to attach summaries")
	analyzeBatchCmd.Flags().StringVar(&abDescription, "desc", "", "description when attaching to project")
	analyzeBatchCmd.Flags().StringVarP(&abFormat, "format", "f", "md", "report format when printing: md|json|yaml|html")
	analyzeBatchCmd.Flags().StringVar(&abInputFormat, "input-format", "", "dataset format for every file (detected per file if omitted)")
	analyzeBatchCmd.Flags().StringVar(&abSheet, "sheet", "", "XLSX: sheet name to analyze")
	analyzeBatchCmd.Flags().IntVar(&abSampleRows, "sample-rows", 5, "number of sample rows to include (0 disables samples)")
	analyzeBatchCmd.Flags().BoolVar(&abShowRemoved, "show-removed", false, "include removed rows in each report")
	analyzeBatchCmd.Flags().IntVarP(&abWorkers, "workers", "w", 0, "concurrent workers (default from config batch_workers)")
	analyzeBatchCmd.Flags().BoolVar(&abQuiet, "quiet", false, "suppress progress and non-essential output")
}
