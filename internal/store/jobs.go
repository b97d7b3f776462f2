package store

import (
	"database/sql"
	"time"
)

// ScheduledJob tracks the last run of a background job.
type ScheduledJob struct {
	JobName   string     `json:"job_name"`
	Status    string     `json:"status"`
	LastRunAt *time.Time `json:"last_run_at,omitempty"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// UpsertScheduledJob records a job run.
func (s *Store) UpsertScheduledJob(jobName, status string, runAt time.Time) error {
	_, err := s.db.Exec(s.rebind(`
		INSERT INTO scheduled_jobs (job_name, status, last_run_at, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(job_name) DO UPDATE SET
			status = excluded.status,
			last_run_at = excluded.last_run_at,
			updated_at = CURRENT_TIMESTAMP`),
		jobName, status, runAt)
	return err
}

// GetScheduledJob returns the bookkeeping row for a job, or nil.
func (s *Store) GetScheduledJob(jobName string) (*ScheduledJob, error) {
	var j ScheduledJob
	var lastRun sql.NullTime
	err := s.db.QueryRow(s.rebind(`
		SELECT job_name, status, last_run_at, updated_at
		FROM scheduled_jobs WHERE job_name = ?`), jobName).Scan(
		&j.JobName, &j.Status, &lastRun, &j.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if lastRun.Valid {
		j.LastRunAt = &lastRun.Time
	}
	return &j, nil
}
