package cmd

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/edaloom-cli/internal/analysis"
	"github.com/KaramelBytes/edaloom-cli/internal/clean"
	"github.com/KaramelBytes/edaloom-cli/internal/dataset"
	"github.com/KaramelBytes/edaloom-cli/internal/runner"
	"github.com/KaramelBytes/edaloom-cli/internal/utils"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	clFormat      string
	clInputFormat string
	clSheet       string
	clOutputPath  string
	clShowRemoved bool
)

var cleanCmd = &cobra.Command{
	Use:   "clean <file>",
	Short: "Drop rows with missing values and IQR outliers and print what is left",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read dataset: %w", err)
		}
		out, err := newRunner(nil).Execute(cmd.Context(), runner.Request{
			Name:   filepath.Base(path),
			Data:   data,
			Format: clInputFormat,
			Sheet:  clSheet,
		})
		if err != nil {
			return err
		}

		var sb strings.Builder
		if err := writeCleaned(&sb, out.Result, strings.ToLower(clFormat), clShowRemoved); err != nil {
			return err
		}
		if clOutputPath != "" {
			if err := utils.SafeWriteFile(clOutputPath, []byte(sb.String())); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Printf("✓ Wrote %d cleaned rows to %s\n", out.Result.Cleaned.Len(), clOutputPath)
			return nil
		}
		fmt.Print(sb.String())
		return nil
	},
}

// cleanedDoc is the json/yaml shape of the clean command's output.
type cleanedDoc struct {
	Cleaned         *dataset.Dataset `json:"cleaned" yaml:"cleaned"`
	RemovedMissing  *dataset.Dataset `json:"removed_missing,omitempty" yaml:"removed_missing,omitempty"`
	RemovedOutliers *dataset.Dataset `json:"removed_outliers,omitempty" yaml:"removed_outliers,omitempty"`
	Fences          []clean.Fence    `json:"fences,omitempty" yaml:"fences,omitempty"`
}

func writeCleaned(w io.Writer, res clean.Result, format string, showRemoved bool) error {
	switch format {
	case "", "table", "md", "markdown":
		fmt.Fprintln(w, "[CLEANED ROWS]")
		fmt.Fprint(w, analysis.Table(res.Cleaned))
		if !showRemoved {
			return nil
		}
		fmt.Fprintln(w, "\n[REMOVED ROWS: MISSING VALUES]")
		if res.RemovedMissing.Len() == 0 {
			fmt.Fprintln(w, "No rows were removed for missing values.")
		} else {
			fmt.Fprint(w, analysis.Table(res.RemovedMissing))
		}
		fmt.Fprintln(w, "\n[REMOVED ROWS: OUTLIERS]")
		if res.RemovedOutliers.Len() == 0 {
			fmt.Fprintln(w, "No rows were removed as outliers.")
		} else {
			fmt.Fprint(w, analysis.Table(res.RemovedOutliers))
		}
		if len(res.Fences) > 0 {
			fmt.Fprintln(w, "\n[FENCES]")
			for _, f := range res.Fences {
				fmt.Fprintf(w, "- %s\n", analysis.FenceLine(f))
			}
		}
		return nil
	case "csv":
		return writeCleanedCSV(w, res, showRemoved)
	case "json":
		doc := cleanedDoc{Cleaned: res.Cleaned}
		if showRemoved {
			doc.RemovedMissing, doc.RemovedOutliers, doc.Fences = res.RemovedMissing, res.RemovedOutliers, res.Fences
		}
		b, err := utils.PrettyJSON(doc)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(b))
		return err
	case "yaml", "yml":
		doc := cleanedDoc{Cleaned: res.Cleaned}
		if showRemoved {
			doc.RemovedMissing, doc.RemovedOutliers, doc.Fences = res.RemovedMissing, res.RemovedOutliers, res.Fences
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("marshal yaml: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported --format: %s (use table, csv, json or yaml)", format)
	}
}

// writeCleanedCSV emits the cleaned rows; with showRemoved every input row is
// emitted with a leading status column (kept, missing or outlier).
func writeCleanedCSV(w io.Writer, res clean.Result, showRemoved bool) error {
	cw := csv.NewWriter(w)
	header := make([]string, 0, res.Cleaned.Width()+1)
	if showRemoved {
		header = append(header, "status")
	}
	for _, c := range res.Cleaned.Columns {
		header = append(header, c.Name)
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	type labeled struct {
		status string
		ds     *dataset.Dataset
	}
	sets := []labeled{{"kept", res.Cleaned}}
	if showRemoved {
		sets = append(sets, labeled{"missing", res.RemovedMissing}, labeled{"outlier", res.RemovedOutliers})
	}
	for _, set := range sets {
		for _, rec := range set.ds.Records() {
			if showRemoved {
				rec = append([]string{set.status}, rec...)
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

func init() {
	rootCmd.AddCommand(cleanCmd)
	cleanCmd.Flags().StringVarP(&clFormat, "format", "f", "table", "output format: table|csv|json|yaml")
	cleanCmd.Flags().StringVar(&clInputFormat, "input-format", "", "dataset format: csv|tsv|json|xlsx (detected from extension if omitted)")
	cleanCmd.Flags().StringVar(&clSheet, "sheet", "", "XLSX: sheet name (first sheet if omitted)")
	cleanCmd.Flags().StringVarP(&clOutputPath, "output", "o", "", "write the output to a file instead of stdout")
	cleanCmd.Flags().BoolVar(&clShowRemoved, "show-removed", false, "also print rows removed for missing values and outliers, plus fences")
}
