package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/KaramelBytes/edaloom-cli/internal/analysis"
	"github.com/KaramelBytes/edaloom-cli/internal/project"
	"github.com/KaramelBytes/edaloom-cli/internal/runner"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	anaProject     string
	anaOutputPath  string
	anaDescription string
	anaFormat      string
	anaInputFormat string
	anaSheet       string
	anaSampleRows  int
	anaShowRemoved bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Clean a dataset and produce a descriptive summary report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]

		var p *project.Project
		if anaProject != "" {
			pp, err := loadProjectByName(anaProject)
			if err != nil {
				return err
			}
			p = pp
		}
		opt := reportOptions(cmd.Flags(), p, anaSampleRows, anaShowRemoved)
		format := outputFormat(cmd.Flags(), p, anaFormat)

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read dataset: %w", err)
		}
		r := newRunner(nil)
		out, err := r.Execute(cmd.Context(), runner.Request{
			Name:   filepath.Base(path),
			Data:   data,
			Format: anaInputFormat,
			Sheet:  anaSheet,
			Report: &opt,
		})
		if err != nil {
			return err
		}
		rendered, err := out.Report.Render(format)
		if err != nil {
			return err
		}

		// Decide where to write: --output path, or attach to project, or stdout
		written := false
		if anaOutputPath != "" {
			if err := os.WriteFile(anaOutputPath, rendered, 0o644); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Printf("✓ Wrote analysis to %s\n", anaOutputPath)
			written = true
		}
		if p != nil {
			s, err := p.AttachReport(out.Report, path, anaDescription)
			if err != nil {
				return err
			}
			if err := p.Save(); err != nil {
				return err
			}
			fmt.Printf("✓ Added analysis to project '%s' as %s\n", p.Name, s.File)
			written = true
		}
		if !written {
			fmt.Println(string(rendered))
		}
		return nil
	},
}

// reportOptions layers config defaults, project settings and explicitly set
// flags, in that order.
func reportOptions(flags *pflag.FlagSet, p *project.Project, sampleRows int, showRemoved bool) analysis.Options {
	opt := reportDefaults()
	if p != nil {
		opt = p.ReportOptions(opt)
	}
	if flags.Changed("sample-rows") {
		opt.SampleRows = sampleRows
	}
	if flags.Changed("show-removed") {
		opt.ShowRemoved = showRemoved
	}
	return opt
}

func outputFormat(flags *pflag.FlagSet, p *project.Project, flagVal string) string {
	if flags.Changed("format") {
		return flagVal
	}
	if p != nil && p.Settings != nil && p.Settings.Format != "" {
		return p.Settings.Format
	}
	if cfg != nil && cfg.DefaultFormat != "" {
		return cfg.DefaultFormat
	}
	return flagVal
}

func loadProjectByName(name string) (*project.Project, error) {
	dir, err := resolveProjectDirByName(name)
	if err != nil {
		return nil, err
	}
	return project.LoadProject(dir)
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().StringVarP(&anaProject, "project", "p", "", "project name to attach summary")
	analyzeCmd.Flags().StringVarP(&anaOutputPath, "output", "o", "", "optional path to write the report")
	analyzeCmd.Flags().StringVar(&anaDescription, "desc", "", "description when attaching to project")
	analyzeCmd.Flags().StringVarP(&anaFormat, "format", "f", "md", "report format: md|json|yaml|html")
	analyzeCmd.Flags().StringVar(&anaInputFormat, "input-format", "", "dataset format: csv|tsv|json|xlsx (detected from extension if omitted)")
	analyzeCmd.Flags().StringVar(&anaSheet, "sheet", "", "XLSX: sheet name to analyze (first sheet if omitted)")
	analyzeCmd.Flags().IntVar(&anaSampleRows, "sample-rows", 5, "number of sample rows to include (0 disables samples)")
	analyzeCmd.Flags().BoolVar(&anaShowRemoved, "show-removed", false, "include rows removed for missing values and outliers")
}
