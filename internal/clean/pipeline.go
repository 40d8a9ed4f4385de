// Package clean implements the two-stage cleaning pipeline: missing-value
// removal followed by sequential IQR outlier removal. Every function here is
// pure; inputs are never modified.
package clean

import "github.com/KaramelBytes/edaloom-cli/internal/dataset"

// Result is the outcome of one pipeline run. Cleaned, RemovedMissing and
// RemovedOutliers together hold every input row exactly once.
type Result struct {
	Cleaned         *dataset.Dataset `json:"cleaned" yaml:"cleaned"`
	RemovedMissing  *dataset.Dataset `json:"removed_missing" yaml:"removed_missing"`
	RemovedOutliers *dataset.Dataset `json:"removed_outliers" yaml:"removed_outliers"`
	// Fences lists the fence applied to each numeric column, in column order.
	Fences []Fence `json:"fences" yaml:"fences"`
}

// Removed returns the total number of rows dropped by either stage.
func (r Result) Removed() int {
	return r.RemovedMissing.Len() + r.RemovedOutliers.Len()
}

// Clean drops rows with missing values, then drops outliers from what is left.
func Clean(raw *dataset.Dataset) Result {
	if raw == nil {
		raw = dataset.Empty(nil)
	}
	afterMissing, removedMissing := PartitionMissing(raw)
	cleaned, removedOutliers, fences := PartitionOutliers(afterMissing)
	return Result{
		Cleaned:         cleaned,
		RemovedMissing:  removedMissing,
		RemovedOutliers: removedOutliers,
		Fences:          fences,
	}
}
