package analysis

import (
	"math"
	"sort"

	"github.com/KaramelBytes/edaloom-cli/internal/clean"
	"github.com/KaramelBytes/edaloom-cli/internal/dataset"
	gojson "github.com/goccy/go-json"
	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"
)

// Summary is the exploratory description of one dataset.
type Summary struct {
	Rows            int              `json:"rows" yaml:"rows"`
	FrequencyTables []FrequencyTable `json:"frequency_tables" yaml:"frequency_tables"`
	NumericStats    []NumericStats   `json:"numeric_stats" yaml:"numeric_stats"`
	// Correlation is nil unless there are at least two numeric columns.
	Correlation *CorrMatrix  `json:"correlation" yaml:"correlation"`
	Pairs       []ColumnPair `json:"pairs" yaml:"pairs"`
}

// FrequencyTable counts distinct values of one categorical column.
// Values are ordered by count descending, ties by first appearance.
type FrequencyTable struct {
	Column string          `json:"column" yaml:"column"`
	Total  int             `json:"total" yaml:"total"`
	Values []CategoryCount `json:"values" yaml:"values"`
}

type CategoryCount struct {
	Value string `json:"value" yaml:"value"`
	Count int    `json:"count" yaml:"count"`
}

// NumericStats are the descriptive statistics of one numeric column.
// Std is the sample standard deviation (n-1); it is NaN when Count < 2.
type NumericStats struct {
	Column string  `json:"column" yaml:"column"`
	Count  int     `json:"count" yaml:"count"`
	Mean   float64 `json:"mean" yaml:"mean"`
	Std    float64 `json:"std" yaml:"std"`
	Min    float64 `json:"min" yaml:"min"`
	Q1     float64 `json:"q1" yaml:"q1"`
	Median float64 `json:"median" yaml:"median"`
	Q3     float64 `json:"q3" yaml:"q3"`
	Max    float64 `json:"max" yaml:"max"`
}

// CorrMatrix holds a symmetric Pearson correlation matrix across numeric columns.
type CorrMatrix struct {
	Columns []string
	Values  [][]float64 // row-major, Values[i][j]
}

// At returns the correlation between two named columns.
func (m *CorrMatrix) At(a, b string) (float64, bool) {
	if m == nil {
		return 0, false
	}
	i, j := -1, -1
	for k, c := range m.Columns {
		if c == a {
			i = k
		}
		if c == b {
			j = k
		}
	}
	if i < 0 || j < 0 {
		return 0, false
	}
	return m.Values[i][j], true
}

// ColumnPair is an unordered pair of numeric columns, A before B in column order.
type ColumnPair struct {
	A string `json:"a" yaml:"a"`
	B string `json:"b" yaml:"b"`
}

// Analyze describes ds. A dataset without rows yields an empty summary.
func Analyze(ds *dataset.Dataset) Summary {
	sum := Summary{
		Rows:            ds.Len(),
		FrequencyTables: []FrequencyTable{},
		NumericStats:    []NumericStats{},
		Pairs:           []ColumnPair{},
	}
	if ds.Len() == 0 {
		return sum
	}
	for _, idx := range ds.CategoricalColumns() {
		sum.FrequencyTables = append(sum.FrequencyTables, frequencies(ds.Columns[idx].Name, ds.Texts(idx)))
	}
	num := ds.NumericColumns()
	for _, idx := range num {
		sum.NumericStats = append(sum.NumericStats, describe(ds.Columns[idx].Name, ds.Floats(idx)))
	}
	if len(num) >= 2 {
		sum.Correlation = correlations(ds, num)
	}
	for a := 0; a < len(num); a++ {
		for b := a + 1; b < len(num); b++ {
			sum.Pairs = append(sum.Pairs, ColumnPair{A: ds.Columns[num[a]].Name, B: ds.Columns[num[b]].Name})
		}
	}
	return sum
}

func frequencies(column string, vals []string) FrequencyTable {
	counts := map[string]int{}
	var order []string
	for _, v := range vals {
		if _, ok := counts[v]; !ok {
			order = append(order, v)
		}
		counts[v]++
	}
	out := make([]CategoryCount, len(order))
	for i, v := range order {
		out[i] = CategoryCount{Value: v, Count: counts[v]}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return FrequencyTable{Column: column, Total: len(vals), Values: out}
}

func describe(column string, vals []float64) NumericStats {
	nan := math.NaN()
	s := NumericStats{Column: column, Count: len(vals), Mean: nan, Std: nan, Min: nan, Q1: nan, Median: nan, Q3: nan, Max: nan}
	if len(vals) == 0 {
		return s
	}
	// errors only signal empty input, ruled out above
	s.Mean, _ = stats.Mean(vals)
	s.Min, _ = stats.Min(vals)
	s.Max, _ = stats.Max(vals)
	if len(vals) > 1 {
		s.Std, _ = stats.StandardDeviationSample(vals)
	}
	s.Q1 = clean.Quantile(vals, 0.25)
	s.Median = clean.Quantile(vals, 0.5)
	s.Q3 = clean.Quantile(vals, 0.75)
	return s
}

// correlations computes pairwise Pearson coefficients over rows where both
// columns are present. Undefined coefficients (fewer than two rows, zero
// variance) are NaN; the diagonal is always 1.
func correlations(ds *dataset.Dataset, num []int) *CorrMatrix {
	n := len(num)
	names := make([]string, n)
	mat := make([][]float64, n)
	for i, idx := range num {
		names[i] = ds.Columns[idx].Name
		mat[i] = make([]float64, n)
		mat[i][i] = 1
	}
	for a := 0; a < n; a++ {
		for b := a + 1; b < n; b++ {
			r := pearson(ds, num[a], num[b])
			mat[a][b] = r
			mat[b][a] = r
		}
	}
	return &CorrMatrix{Columns: names, Values: mat}
}

func pearson(ds *dataset.Dataset, ia, ib int) float64 {
	xs := make([]float64, 0, ds.Len())
	ys := make([]float64, 0, ds.Len())
	for _, r := range ds.Rows {
		x, okx := r[ia].Float()
		y, oky := r[ib].Float()
		if okx && oky {
			xs = append(xs, x)
			ys = append(ys, y)
		}
	}
	if len(xs) < 2 {
		return math.NaN()
	}
	r := stat.Correlation(xs, ys, nil)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return math.NaN()
	}
	if r > 1 {
		r = 1
	} else if r < -1 {
		r = -1
	}
	return r
}

// MarshalJSON encodes NaN statistics as null.
func (s NumericStats) MarshalJSON() ([]byte, error) {
	return gojson.Marshal(struct {
		Column string        `json:"column"`
		Count  int           `json:"count"`
		Mean   dataset.Float `json:"mean"`
		Std    dataset.Float `json:"std"`
		Min    dataset.Float `json:"min"`
		Q1     dataset.Float `json:"q1"`
		Median dataset.Float `json:"median"`
		Q3     dataset.Float `json:"q3"`
		Max    dataset.Float `json:"max"`
	}{s.Column, s.Count, dataset.Float(s.Mean), dataset.Float(s.Std), dataset.Float(s.Min),
		dataset.Float(s.Q1), dataset.Float(s.Median), dataset.Float(s.Q3), dataset.Float(s.Max)})
}

// MarshalJSON encodes undefined coefficients as null.
func (m CorrMatrix) MarshalJSON() ([]byte, error) {
	vals := make([][]dataset.Float, len(m.Values))
	for i, row := range m.Values {
		vals[i] = make([]dataset.Float, len(row))
		for j, v := range row {
			vals[i][j] = dataset.Float(v)
		}
	}
	return gojson.Marshal(struct {
		Columns []string          `json:"columns"`
		Values  [][]dataset.Float `json:"values"`
	}{m.Columns, vals})
}

// MarshalYAML mirrors the JSON layout.
func (m CorrMatrix) MarshalYAML() (interface{}, error) {
	return struct {
		Columns []string    `yaml:"columns"`
		Values  [][]float64 `yaml:"values"`
	}{m.Columns, m.Values}, nil
}
