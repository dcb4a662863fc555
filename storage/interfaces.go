package storage

import "collection-kpi/models"

// ReportExporter is the interface any file export backend must satisfy.
// Export returns the path written.
type ReportExporter interface {
	Export(r *models.Report, checks *models.CheckReport) (string, error)
}

// SnapshotStore persists computed reports.
type SnapshotStore interface {
	SaveRun(r *models.Report) (string, error)
	FetchRuns(limit int) ([]*models.Run, error)
	Close() error
}
