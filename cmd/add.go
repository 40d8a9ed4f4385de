package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/KaramelBytes/edaloom-cli/internal/runner"
	"github.com/spf13/cobra"
)

var (
	addProjectName string
	addDesc        string
	addInputFormat string
	addSheet       string
)

var addCmd = &cobra.Command{
	Use:   "add <file>",
	Short: "Add a dataset's summary to a project using the project's settings",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		file := args[0]
		if addProjectName == "" {
			return fmt.Errorf("--project is required")
		}
		p, err := loadProjectByName(addProjectName)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("read dataset: %w", err)
		}
		opt := p.ReportOptions(reportDefaults())
		out, err := newRunner(nil).Execute(cmd.Context(), runner.Request{
			Name:   filepath.Base(file),
			Data:   data,
			Format: addInputFormat,
			Sheet:  addSheet,
			Report: &opt,
		})
		if err != nil {
			return err
		}
		s, err := p.AttachReport(out.Report, file, addDesc)
		if err != nil {
			return err
		}
		if err := p.Save(); err != nil {
			return err
		}
		fmt.Printf("✓ Dataset added: %s (%d of %d rows kept)\n", filepath.Base(file), s.CleanedRows, s.Rows)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(addCmd)
	addCmd.Flags().StringVarP(&addProjectName, "project", "p", "", "project name")
	addCmd.Flags().StringVar(&addDesc, "desc", "", "dataset description")
	addCmd.Flags().StringVar(&addInputFormat, "input-format", "", "dataset format (detected from extension if omitted)")
	addCmd.Flags().StringVar(&addSheet, "sheet", "", "XLSX: sheet name")
}
