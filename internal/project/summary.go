package project

import "time"

// Summary records one dataset report attached to a project. The rendered
// markdown lives in File, relative to the project directory.
type Summary struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Source          string    `json:"source"`
	Format          string    `json:"format"`
	File            string    `json:"file"`
	Description     string    `json:"description"`
	Rows            int       `json:"rows"`
	CleanedRows     int       `json:"cleaned_rows"`
	RemovedMissing  int       `json:"removed_missing"`
	RemovedOutliers int       `json:"removed_outliers"`
	AddedAt         time.Time `json:"added_at"`
}
