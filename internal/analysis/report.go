package analysis

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/KaramelBytes/edaloom-cli/internal/clean"
	"github.com/KaramelBytes/edaloom-cli/internal/dataset"
	"github.com/google/uuid"
)

// Options controls report presentation.
type Options struct {
	// SampleRows determines how many example rows to include in the report.
	SampleRows int
	// ShowRemoved includes the heads of both removed-row sets.
	ShowRemoved bool
}

// DefaultOptions returns reasonable defaults for report rendering.
func DefaultOptions() Options {
	return Options{SampleRows: 5}
}

// Report bundles one pipeline run: provenance of the cleaning step and the
// summary of the cleaned dataset.
type Report struct {
	ID              string           `json:"id" yaml:"id"`
	Name            string           `json:"name" yaml:"name"`
	Format          string           `json:"format" yaml:"format"`
	GeneratedAt     time.Time        `json:"generated_at" yaml:"generated_at"`
	Rows            int              `json:"rows" yaml:"rows"`
	Columns         []dataset.Column `json:"columns" yaml:"columns"`
	CleanedRows     int              `json:"cleaned_rows" yaml:"cleaned_rows"`
	RemovedMissing  int              `json:"removed_missing" yaml:"removed_missing"`
	RemovedOutliers int              `json:"removed_outliers" yaml:"removed_outliers"`
	Fences          []clean.Fence    `json:"fences" yaml:"fences"`
	Summary         Summary          `json:"summary" yaml:"summary"`
	Samples         *dataset.Dataset `json:"samples" yaml:"samples"`
	MissingRows     *dataset.Dataset `json:"missing_rows,omitempty" yaml:"missing_rows,omitempty"`
	OutlierRows     *dataset.Dataset `json:"outlier_rows,omitempty" yaml:"outlier_rows,omitempty"`
	Warnings        []string         `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// NewReport assembles a report from a cleaning result and the summary of its
// cleaned dataset.
func NewReport(name, format string, raw *dataset.Dataset, res clean.Result, sum Summary, opt Options) *Report {
	if opt.SampleRows < 0 {
		opt.SampleRows = 0
	}
	r := &Report{
		ID:              uuid.NewString(),
		Name:            name,
		Format:          format,
		GeneratedAt:     time.Now().UTC(),
		Rows:            raw.Len(),
		CleanedRows:     res.Cleaned.Len(),
		RemovedMissing:  res.RemovedMissing.Len(),
		RemovedOutliers: res.RemovedOutliers.Len(),
		Fences:          res.Fences,
		Summary:         sum,
		Samples:         res.Cleaned.Head(opt.SampleRows),
	}
	if raw != nil {
		r.Columns = append([]dataset.Column(nil), raw.Columns...)
	}
	if opt.ShowRemoved {
		r.MissingRows = res.RemovedMissing.Head(opt.SampleRows)
		r.OutlierRows = res.RemovedOutliers.Head(opt.SampleRows)
	}
	r.Warnings = warnings(r)
	return r
}

func warnings(r *Report) []string {
	var out []string
	if r.Rows == 0 {
		out = append(out, "Dataset has no rows.")
		return out
	}
	if r.CleanedRows == 0 {
		out = append(out, "Every row was removed during cleaning; statistics are empty.")
	}
	if r.Summary.Correlation == nil && len(r.Summary.NumericStats) < 2 {
		out = append(out, "Correlation matrix needs at least two numeric columns.")
	}
	for _, s := range r.Summary.NumericStats {
		if s.Count > 1 && s.Std == 0 {
			out = append(out, fmt.Sprintf("Column %s is constant; its correlations are undefined.", safeName(s.Column)))
		}
	}
	return out
}

// Markdown renders the report as bracketed plain-text sections.
func (r *Report) Markdown() string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	if r.Name != "" {
		b.WriteString(fmt.Sprintf("File: %s\n", r.Name))
	}
	if r.Format != "" {
		b.WriteString(fmt.Sprintf("Format: %s\n", r.Format))
	}
	b.WriteString(fmt.Sprintf("Rows: %d\n", r.Rows))
	b.WriteString(fmt.Sprintf("Columns: %d\n\n", len(r.Columns)))

	b.WriteString("[SCHEMA]\n")
	for _, c := range r.Columns {
		b.WriteString(fmt.Sprintf("- %s: %s\n", safeName(c.Name), c.Type))
	}

	b.WriteString("\n[CLEANING]\n")
	b.WriteString(fmt.Sprintf("- rows kept: %d of %d\n", r.CleanedRows, r.Rows))
	b.WriteString(fmt.Sprintf("- removed for missing values: %d\n", r.RemovedMissing))
	b.WriteString(fmt.Sprintf("- removed as outliers: %d\n", r.RemovedOutliers))
	for _, f := range r.Fences {
		b.WriteString("  • " + FenceLine(f) + "\n")
	}

	if r.MissingRows != nil {
		b.WriteString("\n[REMOVED ROWS: MISSING VALUES]\n")
		if r.MissingRows.Len() == 0 {
			b.WriteString("No rows were removed for missing values.\n")
		} else {
			writeTable(&b, r.MissingRows)
			if r.RemovedMissing > r.MissingRows.Len() {
				b.WriteString(fmt.Sprintf("(showing %d of %d)\n", r.MissingRows.Len(), r.RemovedMissing))
			}
		}
	}
	if r.OutlierRows != nil {
		b.WriteString("\n[REMOVED ROWS: OUTLIERS]\n")
		if r.OutlierRows.Len() == 0 {
			b.WriteString("No rows were removed as outliers.\n")
		} else {
			writeTable(&b, r.OutlierRows)
			if r.RemovedOutliers > r.OutlierRows.Len() {
				b.WriteString(fmt.Sprintf("(showing %d of %d)\n", r.OutlierRows.Len(), r.RemovedOutliers))
			}
		}
	}

	if len(r.Summary.FrequencyTables) > 0 {
		b.WriteString("\n[CATEGORICAL DISTRIBUTIONS]\n")
		for _, ft := range r.Summary.FrequencyTables {
			b.WriteString(fmt.Sprintf("- %s (n=%d, unique=%d): ", safeName(ft.Column), ft.Total, len(ft.Values)))
			lim := 10
			if len(ft.Values) < lim {
				lim = len(ft.Values)
			}
			for i := 0; i < lim; i++ {
				if i > 0 {
					b.WriteString(", ")
				}
				b.WriteString(fmt.Sprintf("%s(%d)", safeVal(ft.Values[i].Value), ft.Values[i].Count))
			}
			if len(ft.Values) > lim {
				b.WriteString(", …")
			}
			b.WriteString("\n")
		}
	}

	if len(r.Summary.NumericStats) > 0 {
		b.WriteString("\n[NUMERIC DISTRIBUTIONS]\n\n")
		b.WriteString("| column | count | mean | std | min | 25% | 50% | 75% | max |\n")
		b.WriteString("| --- | --- | --- | --- | --- | --- | --- | --- | --- |\n")
		for _, s := range r.Summary.NumericStats {
			b.WriteString(fmt.Sprintf("| %s | %d | %s | %s | %s | %s | %s | %s | %s |\n",
				safeVal(safeName(s.Column)), s.Count, num(s.Mean), num(s.Std), num(s.Min),
				num(s.Q1), num(s.Median), num(s.Q3), num(s.Max)))
		}
	}

	if r.Summary.Correlation != nil && len(r.Summary.Correlation.Columns) >= 2 {
		b.WriteString("\n[CORRELATIONS]\n")
		type pr struct {
			A, B string
			R    float64
		}
		var pairs []pr
		m := r.Summary.Correlation
		n := len(m.Columns)
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				if math.IsNaN(m.Values[i][j]) {
					continue
				}
				pairs = append(pairs, pr{A: m.Columns[i], B: m.Columns[j], R: m.Values[i][j]})
			}
		}
		sort.SliceStable(pairs, func(i, j int) bool {
			return math.Abs(pairs[i].R) > math.Abs(pairs[j].R)
		})
		maxp := 10
		if len(pairs) < maxp {
			maxp = len(pairs)
		}
		if maxp == 0 {
			b.WriteString("No defined correlations.\n")
		}
		for i := 0; i < maxp; i++ {
			b.WriteString(fmt.Sprintf("- %s ~ %s: r=%.3f\n", pairs[i].A, pairs[i].B, pairs[i].R))
		}
	}

	if len(r.Summary.Pairs) > 0 {
		b.WriteString("\n[PAIRWISE RELATIONSHIPS]\n")
		for _, p := range r.Summary.Pairs {
			b.WriteString(fmt.Sprintf("- %s × %s\n", safeName(p.A), safeName(p.B)))
		}
	}

	if r.Samples.Len() > 0 {
		b.WriteString("\n[HEAD AND SAMPLE ROWS]\n")
		writeTable(&b, r.Samples)
	}
	if len(r.Warnings) > 0 {
		b.WriteString("\n[NOTES]\n")
		for _, w := range r.Warnings {
			b.WriteString("- ")
			b.WriteString(w)
			b.WriteString("\n")
		}
	}
	return b.String()
}

// Table renders ds as a markdown pipe table. Nulls are shown as "null".
func Table(ds *dataset.Dataset) string {
	var b strings.Builder
	writeTable(&b, ds)
	return strings.TrimPrefix(b.String(), "\n")
}

// FenceLine describes one fence in a single line.
func FenceLine(f clean.Fence) string {
	return fmt.Sprintf("%s: Q1 %s, Q3 %s, IQR %s, keep [%s, %s], removed %d",
		safeName(f.Column), num(f.Q1), num(f.Q3), num(f.IQR), num(f.Lower), num(f.Upper), f.Removed)
}

// writeTable renders ds as a pipe table preceded by a blank line so markdown
// parsers do not fold it into the section heading.
func writeTable(b *strings.Builder, ds *dataset.Dataset) {
	b.WriteString("\n| ")
	for i, c := range ds.Columns {
		if i > 0 {
			b.WriteString(" | ")
		}
		b.WriteString(safeVal(safeName(c.Name)))
	}
	b.WriteString(" |\n| ")
	for i := range ds.Columns {
		if i > 0 {
			b.WriteString(" | ")
		}
		b.WriteString("---")
	}
	b.WriteString(" |\n")
	for _, row := range ds.Rows {
		b.WriteString("| ")
		for i, v := range row {
			if i > 0 {
				b.WriteString(" | ")
			}
			val := v.String()
			if v.IsNull() {
				val = "null"
			}
			if len(val) > 80 {
				val = val[:77] + "..."
			}
			b.WriteString(safeVal(val))
		}
		b.WriteString(" |\n")
	}
}

func num(f float64) string {
	if math.IsNaN(f) {
		return "NaN"
	}
	return fmt.Sprintf("%.4g", f)
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return s
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }
