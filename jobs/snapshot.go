package jobs

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"collection-kpi/models"
	"collection-kpi/services"
	"collection-kpi/storage"
	"collection-kpi/utils"
)

// SnapshotJob recomputes the report for the current day and stores it.
type SnapshotJob struct {
	ds       *models.Dataset
	insights *services.InsightService
	store    storage.SnapshotStore
	opts     services.ReportOptions
	loc      *time.Location
	logger   *utils.Logger

	now func() time.Time
}

// NewSnapshotJob builds a job over ds. The AsOf of opts is replaced by the
// current date in loc on every run.
func NewSnapshotJob(ds *models.Dataset, store storage.SnapshotStore, opts services.ReportOptions, loc *time.Location, logger *utils.Logger) *SnapshotJob {
	if loc == nil {
		loc = time.UTC
	}
	return &SnapshotJob{
		ds:       ds,
		insights: services.NewInsightService(logger),
		store:    store,
		opts:     opts,
		loc:      loc,
		logger:   logger,
		now:      time.Now,
	}
}

// Run generates and saves one snapshot, returning the stored run ID.
func (j *SnapshotJob) Run() (string, error) {
	opts := j.opts
	today := j.now().In(j.loc)
	opts.AsOf = time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)

	report, err := j.insights.Generate(j.ds, opts)
	if err != nil {
		return "", fmt.Errorf("jobs: snapshot: %w", err)
	}
	id, err := j.store.SaveRun(report)
	if err != nil {
		return "", fmt.Errorf("jobs: snapshot: %w", err)
	}
	j.logger.Info("[jobs] Snapshot %s saved for %s", id, opts.AsOf.Format("2006-01-02"))
	return id, nil
}

// StartScheduler registers job on schedule and starts the cron runner. The
// caller stops it with Stop.
func StartScheduler(schedule string, job *SnapshotJob, logger *utils.Logger) (*cron.Cron, error) {
	c := cron.New(cron.WithLocation(job.loc))

	_, err := c.AddFunc(schedule, func() {
		logger.Info("[jobs] Snapshot started at %s", time.Now().In(job.loc).Format(time.RFC3339))
		if _, err := job.Run(); err != nil {
			logger.Error("[jobs] %v", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("jobs: unable to schedule snapshot %q: %w", schedule, err)
	}

	c.Start()
	logger.Info("[jobs] Snapshot scheduler started: %s (%s)", schedule, job.loc)
	return c, nil
}

// LoadLocation resolves name, falling back to UTC.
func LoadLocation(name string, logger *utils.Logger) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		logger.Warn("[jobs] Invalid timezone %s, falling back to UTC: %v", name, err)
		return time.UTC
	}
	return loc
}
