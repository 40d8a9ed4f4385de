package loader

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/KaramelBytes/edaloom-cli/internal/dataset"
)

// missingMarkers are cell spellings read as null, matching the usual
// spreadsheet and dataframe conventions.
var missingMarkers = map[string]struct{}{
	"": {}, "#N/A": {}, "#N/A N/A": {}, "#NA": {}, "-1.#IND": {}, "-1.#QNAN": {},
	"-NaN": {}, "-nan": {}, "1.#IND": {}, "1.#QNAN": {}, "<NA>": {}, "N/A": {},
	"NA": {}, "NULL": {}, "NaN": {}, "None": {}, "n/a": {}, "nan": {}, "null": {},
}

func isMissing(s string) bool {
	_, ok := missingMarkers[strings.TrimSpace(s)]
	return ok
}

func parseNumber(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// headerNames fills blank names and disambiguates duplicates ("a", "a.1", ...).
func headerNames(raw []string) []string {
	out := make([]string, len(raw))
	used := map[string]bool{}
	dups := map[string]int{}
	for i, h := range raw {
		name := strings.TrimSpace(h)
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		candidate := name
		for used[candidate] {
			dups[name]++
			candidate = fmt.Sprintf("%s.%d", name, dups[name])
		}
		used[candidate] = true
		out[i] = candidate
	}
	return out
}

// fromRecords types text cells. A column is numeric when every non-missing
// cell parses as a float; a column with no values at all is numeric too.
func fromRecords(header []string, records [][]string) *dataset.Dataset {
	names := headerNames(header)
	width := len(names)
	cols := make([]dataset.Column, width)
	for j := range cols {
		numeric := true
		for _, rec := range records {
			if j >= len(rec) || isMissing(rec[j]) {
				continue
			}
			if _, ok := parseNumber(rec[j]); !ok {
				numeric = false
				break
			}
		}
		typ := dataset.Categorical
		if numeric {
			typ = dataset.Numeric
		}
		cols[j] = dataset.Column{Name: names[j], Type: typ}
	}
	rows := make([]dataset.Row, 0, len(records))
	for _, rec := range records {
		row := make(dataset.Row, width)
		for j := 0; j < width; j++ {
			if j >= len(rec) || isMissing(rec[j]) {
				row[j] = dataset.Null()
				continue
			}
			if cols[j].Type == dataset.Numeric {
				f, _ := parseNumber(rec[j])
				row[j] = dataset.Number(f)
			} else {
				row[j] = dataset.Text(rec[j])
			}
		}
		rows = append(rows, row)
	}
	return &dataset.Dataset{Columns: cols, Rows: rows}
}
