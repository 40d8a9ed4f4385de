package clean

import "github.com/KaramelBytes/edaloom-cli/internal/dataset"

// PartitionMissing splits ds into rows without any null value and rows with
// at least one. Both sides keep the input's relative row order.
func PartitionMissing(ds *dataset.Dataset) (kept, removed *dataset.Dataset) {
	keep := make([]dataset.Row, 0, ds.Len())
	var drop []dataset.Row
	for _, r := range ds.Rows {
		if r.HasNull() {
			drop = append(drop, r)
			continue
		}
		keep = append(keep, r)
	}
	return ds.WithRows(keep), ds.WithRows(drop)
}
