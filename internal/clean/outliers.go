package clean

import (
	"math"
	"sort"

	"github.com/KaramelBytes/edaloom-cli/internal/dataset"
	gojson "github.com/goccy/go-json"
)

// IQRMultiplier scales the interquartile range when building a fence.
const IQRMultiplier = 1.5

// Fence is the closed interval [Lower, Upper] derived from one numeric
// column's quartiles. Removed counts rows rejected by this fence during the
// pass that produced it.
type Fence struct {
	Column  string  `json:"column" yaml:"column"`
	Q1      float64 `json:"q1" yaml:"q1"`
	Q3      float64 `json:"q3" yaml:"q3"`
	IQR     float64 `json:"iqr" yaml:"iqr"`
	Lower   float64 `json:"lower" yaml:"lower"`
	Upper   float64 `json:"upper" yaml:"upper"`
	Removed int     `json:"removed" yaml:"removed"`
}

// Contains reports whether x lies inside the fence, bounds included.
func (f Fence) Contains(x float64) bool {
	return x >= f.Lower && x <= f.Upper
}

// ComputeFence builds the fence for the given values. ok is false when vals
// is empty. A zero IQR collapses the fence onto the quartile value.
func ComputeFence(column string, vals []float64) (f Fence, ok bool) {
	if len(vals) == 0 {
		return Fence{Column: column}, false
	}
	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)
	q1 := quantileSorted(sorted, 0.25)
	q3 := quantileSorted(sorted, 0.75)
	iqr := q3 - q1
	if math.IsNaN(iqr) {
		// both quartiles sit on the same infinity
		iqr = 0
	}
	f = Fence{Column: column, Q1: q1, Q3: q3, IQR: iqr}
	if iqr == 0 {
		f.Lower, f.Upper = q1, q3
	} else {
		f.Lower = q1 - IQRMultiplier*iqr
		f.Upper = q3 + IQRMultiplier*iqr
	}
	return f, true
}

// PartitionOutliers removes statistical outliers column by column.
//
// Numeric columns are visited in column order. Each column's fence is
// computed on the rows that survived the previous columns, rows outside it
// are appended to removed, and only the rows inside carry on to the next
// column. A row is therefore attributed to the first column that rejects it.
// Null cells never fail a fence.
func PartitionOutliers(ds *dataset.Dataset) (kept, removed *dataset.Dataset, fences []Fence) {
	working := ds.Rows
	var drop []dataset.Row
	for _, idx := range ds.NumericColumns() {
		vals := make([]float64, 0, len(working))
		for _, r := range working {
			if x, ok := r[idx].Float(); ok {
				vals = append(vals, x)
			}
		}
		fence, ok := ComputeFence(ds.Columns[idx].Name, vals)
		if !ok {
			continue
		}
		next := make([]dataset.Row, 0, len(working))
		for _, r := range working {
			x, isNum := r[idx].Float()
			if !isNum || fence.Contains(x) {
				next = append(next, r)
				continue
			}
			drop = append(drop, r)
			fence.Removed++
		}
		fences = append(fences, fence)
		working = next
	}
	kept = ds.WithRows(append([]dataset.Row(nil), working...))
	return kept, ds.WithRows(drop), fences
}

// MarshalJSON keeps infinite bounds encodable.
func (f Fence) MarshalJSON() ([]byte, error) {
	return gojson.Marshal(struct {
		Column  string        `json:"column"`
		Q1      dataset.Float `json:"q1"`
		Q3      dataset.Float `json:"q3"`
		IQR     dataset.Float `json:"iqr"`
		Lower   dataset.Float `json:"lower"`
		Upper   dataset.Float `json:"upper"`
		Removed int           `json:"removed"`
	}{f.Column, dataset.Float(f.Q1), dataset.Float(f.Q3), dataset.Float(f.IQR), dataset.Float(f.Lower), dataset.Float(f.Upper), f.Removed})
}
