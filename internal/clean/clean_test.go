package clean

import (
	"math"
	"testing"

	"github.com/KaramelBytes/edaloom-cli/internal/dataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func numCol(name string) dataset.Column { return dataset.Column{Name: name, Type: dataset.Numeric} }
func catCol(name string) dataset.Column { return dataset.Column{Name: name, Type: dataset.Categorical} }

func single(name string, vals ...float64) *dataset.Dataset {
	rows := make([]dataset.Row, len(vals))
	for i, v := range vals {
		rows[i] = dataset.Row{dataset.Number(v)}
	}
	return dataset.New([]dataset.Column{numCol(name)}, rows)
}

func column(ds *dataset.Dataset, idx int) []float64 { return ds.Floats(idx) }

func TestQuantileLinearInterpolation(t *testing.T) {
	vals := []float64{100, 1, 2, 3, 4, 5}
	assert.InDelta(t, 2.25, Quantile(vals, 0.25), 1e-12)
	assert.InDelta(t, 4.75, Quantile(vals, 0.75), 1e-12)
	assert.InDelta(t, 3.5, Quantile(vals, 0.5), 1e-12)
	assert.Equal(t, 1.0, Quantile(vals, 0))
	assert.Equal(t, 100.0, Quantile(vals, 1))
	assert.Equal(t, []float64{100, 1, 2, 3, 4, 5}, vals, "input must not be reordered")
	assert.True(t, math.IsNaN(Quantile(nil, 0.5)))
}

func TestQuantileInfinities(t *testing.T) {
	inf := math.Inf(1)
	assert.Equal(t, inf, Quantile([]float64{1, 2, 3, inf}, 0.75))
	assert.Equal(t, math.Inf(-1), Quantile([]float64{math.Inf(-1), inf}, 0.25))
	assert.Equal(t, inf, Quantile([]float64{math.Inf(-1), inf}, 0.75))
}

func TestComputeFenceExample(t *testing.T) {
	f, ok := ComputeFence("x", []float64{1, 2, 3, 4, 5, 100})
	require.True(t, ok)
	assert.InDelta(t, 2.25, f.Q1, 1e-12)
	assert.InDelta(t, 4.75, f.Q3, 1e-12)
	assert.InDelta(t, 2.5, f.IQR, 1e-12)
	assert.InDelta(t, -1.5, f.Lower, 1e-12)
	assert.InDelta(t, 8.5, f.Upper, 1e-12)
	assert.True(t, f.Contains(8.5))
	assert.False(t, f.Contains(100))

	_, ok = ComputeFence("empty", nil)
	assert.False(t, ok)
}

func TestComputeFenceDegenerate(t *testing.T) {
	f, ok := ComputeFence("c", []float64{5, 5, 5, 5})
	require.True(t, ok)
	assert.Equal(t, 0.0, f.IQR)
	assert.Equal(t, 5.0, f.Lower)
	assert.Equal(t, 5.0, f.Upper)
	assert.True(t, f.Contains(5))
	assert.False(t, f.Contains(6))
	assert.False(t, f.Contains(4.999))
}

func TestComputeFenceSameInfinity(t *testing.T) {
	inf := math.Inf(1)
	f, ok := ComputeFence("c", []float64{1, inf, inf, inf, inf})
	require.True(t, ok)
	assert.Equal(t, 0.0, f.IQR)
	assert.True(t, f.Contains(inf))
	assert.False(t, f.Contains(1))
}

func TestPartitionMissing(t *testing.T) {
	ds := dataset.New(
		[]dataset.Column{catCol("name"), numCol("age")},
		[]dataset.Row{
			{dataset.Text("ann"), dataset.Number(31)},
			{dataset.Null(), dataset.Number(40)},
			{dataset.Text("bob"), dataset.Number(28)},
			{dataset.Text("cy"), dataset.Null()},
			{dataset.Text("dee"), dataset.Number(55)},
		},
	)
	kept, removed := PartitionMissing(ds)
	require.Equal(t, 3, kept.Len())
	require.Equal(t, 2, removed.Len())
	assert.Equal(t, []string{"ann", "bob", "dee"}, kept.Texts(0), "order preserved")
	assert.Equal(t, []float64{40}, removed.Floats(1))
	assert.Equal(t, ds.Columns, kept.Columns)
	assert.Equal(t, 5, ds.Len(), "input untouched")
}

func TestPartitionMissingEmpty(t *testing.T) {
	kept, removed := PartitionMissing(dataset.Empty([]dataset.Column{numCol("x")}))
	assert.Equal(t, 0, kept.Len())
	assert.Equal(t, 0, removed.Len())
}

func TestPartitionOutliersSpecExample(t *testing.T) {
	ds := single("x", 1, 2, 3, 4, 5, 100)
	kept, removed, fences := PartitionOutliers(ds)
	assert.Equal(t, []float64{1, 2, 3, 4, 5}, column(kept, 0))
	assert.Equal(t, []float64{100}, column(removed, 0))
	require.Len(t, fences, 1)
	assert.Equal(t, 1, fences[0].Removed)
}

func TestPartitionOutliersDegenerateColumn(t *testing.T) {
	ds := single("c", 5, 5, 5, 5, 5, 5, 5, 6)
	kept, removed, _ := PartitionOutliers(ds)
	assert.Equal(t, []float64{5, 5, 5, 5, 5, 5, 5}, column(kept, 0))
	assert.Equal(t, []float64{6}, column(removed, 0))
}

func TestPartitionOutliersNoNumericColumns(t *testing.T) {
	ds := dataset.New([]dataset.Column{catCol("k")}, []dataset.Row{{dataset.Text("a")}, {dataset.Text("b")}})
	kept, removed, fences := PartitionOutliers(ds)
	assert.Equal(t, ds.Rows, kept.Rows)
	assert.Equal(t, 0, removed.Len())
	assert.Empty(t, fences)
}

// Fences are recomputed on the narrowed rows, so the second column's fence
// depends on what the first column removed.
func TestPartitionOutliersIsSequential(t *testing.T) {
	cols := []dataset.Column{numCol("a"), catCol("tag"), numCol("b")}
	rows := []dataset.Row{
		{dataset.Number(1), dataset.Text("r0"), dataset.Number(10)},
		{dataset.Number(2), dataset.Text("r1"), dataset.Number(11)},
		{dataset.Number(3), dataset.Text("r2"), dataset.Number(12)},
		{dataset.Number(4), dataset.Text("r3"), dataset.Number(13)},
		{dataset.Number(5), dataset.Text("r4"), dataset.Number(14)},
		{dataset.Number(100), dataset.Text("r5"), dataset.Number(500)},
		{dataset.Number(3), dataset.Text("r6"), dataset.Number(40)},
	}
	ds := dataset.New(cols, rows)

	kept, removed, fences := PartitionOutliers(ds)
	require.Len(t, fences, 2)
	assert.Equal(t, "a", fences[0].Column)
	assert.Equal(t, "b", fences[1].Column)

	// r5 violates both fences but is attributed to "a" only.
	assert.Equal(t, []string{"r5", "r6"}, removed.Texts(1))
	assert.Equal(t, 1, fences[0].Removed)
	assert.Equal(t, 1, fences[1].Removed)
	assert.Equal(t, []string{"r0", "r1", "r2", "r3", "r4"}, kept.Texts(1))

	// b's fence was computed without r5.
	b := []float64{10, 11, 12, 13, 14, 40}
	want, _ := ComputeFence("b", b)
	assert.InDelta(t, want.Upper, fences[1].Upper, 1e-12)
}

func TestPartitionOutliersInfinityIsExtreme(t *testing.T) {
	ds := single("x", 1, 2, 3, 4, 5, 6, 7, 8, math.Inf(1))
	kept, removed, _ := PartitionOutliers(ds)
	assert.Equal(t, ds.Len(), kept.Len()+removed.Len())
	for _, v := range column(kept, 0) {
		assert.False(t, math.IsNaN(v))
	}
}

func TestPartitionOutliersNullsPassThrough(t *testing.T) {
	ds := dataset.New([]dataset.Column{numCol("x")}, []dataset.Row{
		{dataset.Number(1)}, {dataset.Null()}, {dataset.Number(2)}, {dataset.Number(3)}, {dataset.Number(1000)},
	})
	kept, removed, _ := PartitionOutliers(ds)
	assert.Equal(t, 4, kept.Len())
	assert.Equal(t, []float64{1000}, column(removed, 0))
}

func mixed() *dataset.Dataset {
	cols := []dataset.Column{catCol("species"), numCol("length"), numCol("width")}
	return dataset.New(cols, []dataset.Row{
		{dataset.Text("setosa"), dataset.Number(5.1), dataset.Number(3.5)},
		{dataset.Text("setosa"), dataset.Number(4.9), dataset.Number(3.0)},
		{dataset.Null(), dataset.Number(4.7), dataset.Number(3.2)},
		{dataset.Text("virginica"), dataset.Number(6.3), dataset.Null()},
		{dataset.Text("virginica"), dataset.Number(5.8), dataset.Number(2.7)},
		{dataset.Text("versicolor"), dataset.Number(7.0), dataset.Number(3.2)},
		{dataset.Text("versicolor"), dataset.Number(6.4), dataset.Number(3.2)},
		{dataset.Text("setosa"), dataset.Number(5.0), dataset.Number(3.6)},
		{dataset.Text("virginica"), dataset.Number(42), dataset.Number(3.0)},
		{dataset.Text("versicolor"), dataset.Number(5.5), dataset.Number(2.3)},
		{dataset.Text("setosa"), dataset.Number(5.4), dataset.Number(3.9)},
	})
}

func TestCleanPipeline(t *testing.T) {
	ds := mixed()
	res := Clean(ds)

	assert.Equal(t, 2, res.RemovedMissing.Len())
	assert.Equal(t, []float64{42}, res.RemovedOutliers.Floats(1))
	assert.Equal(t, ds.Len(), res.Cleaned.Len()+res.Removed(), "row conservation")
	for _, r := range res.Cleaned.Rows {
		assert.False(t, r.HasNull())
	}
	for _, f := range res.Fences {
		idx := res.Cleaned.ColumnIndex(f.Column)
		for _, v := range res.Cleaned.Floats(idx) {
			assert.True(t, f.Contains(v), "%s=%v outside its fence", f.Column, v)
		}
	}
}

func TestCleanIsIdempotentOnCleanedOutput(t *testing.T) {
	first := Clean(mixed())
	second := Clean(first.Cleaned)
	assert.Equal(t, first.Cleaned.Rows, second.Cleaned.Rows)
	assert.Equal(t, 0, second.RemovedMissing.Len())
	assert.Equal(t, 0, second.RemovedOutliers.Len())
}

func TestCleanFixedPoint(t *testing.T) {
	ds := single("x", 1, 2, 3, 4, 5)
	res := Clean(ds)
	assert.Equal(t, ds.Rows, res.Cleaned.Rows)
	assert.Equal(t, 0, res.Removed())
}

func TestCleanEmpty(t *testing.T) {
	res := Clean(dataset.Empty([]dataset.Column{numCol("x"), catCol("y")}))
	assert.Equal(t, 0, res.Cleaned.Len())
	assert.Equal(t, 0, res.RemovedMissing.Len())
	assert.Equal(t, 0, res.RemovedOutliers.Len())
	assert.Empty(t, res.Fences)

	res = Clean(nil)
	assert.Equal(t, 0, res.Cleaned.Len())
}

func TestCleanAllNullColumn(t *testing.T) {
	ds := dataset.New([]dataset.Column{numCol("x"), numCol("empty")}, []dataset.Row{
		{dataset.Number(1), dataset.Null()},
		{dataset.Number(2), dataset.Null()},
	})
	res := Clean(ds)
	assert.Equal(t, 0, res.Cleaned.Len())
	assert.Equal(t, 2, res.RemovedMissing.Len())
	assert.Empty(t, res.Fences, "no rows left to fence")
}

func TestCleanIsDeterministic(t *testing.T) {
	a := Clean(mixed())
	b := Clean(mixed())
	assert.Equal(t, a, b)
}
