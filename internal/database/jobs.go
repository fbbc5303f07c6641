package database

import (
	"context"
	"time"

	"techtrack-backend/internal/models"
)

const jobColumns = `id, title, description, address, address_lat, address_lng, status,
	admin_id, tech_id, accepted_at, started_at, completed_at, created_at`

func (s *Store) GetJob(ctx context.Context, id string) (*models.Job, error) {
	var job models.Job
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE id = $1`

	if err := s.db.GetContext(ctx, &job, query, id); err != nil {
		return nil, translate(err, "get job "+id)
	}
	return &job, nil
}

func (s *Store) CreateJob(ctx context.Context, job *models.Job) error {
	if job.Status == "" {
		job.Status = models.JobAssigned
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	query := `
		INSERT INTO jobs (id, title, description, address, address_lat, address_lng, status, admin_id, tech_id, created_at)
		VALUES (:id, :title, :description, :address, :address_lat, :address_lng, :status, :admin_id, :tech_id, :created_at)
	`
	if _, err := s.db.NamedExecContext(ctx, query, job); err != nil {
		return translate(err, "create job")
	}
	return nil
}

// UpdateJobStatus sets the status and stamps the matching *_at column
func (s *Store) UpdateJobStatus(ctx context.Context, id string, status models.JobStatus, at time.Time) (*models.Job, error) {
	var job models.Job
	query := `
		UPDATE jobs
		SET status = $2::text,
			accepted_at = CASE WHEN $2::text = 'ACCEPTED' THEN $3::timestamptz ELSE accepted_at END,
			started_at = CASE WHEN $2::text = 'IN_PROGRESS' THEN $3::timestamptz ELSE started_at END,
			completed_at = CASE WHEN $2::text = 'COMPLETED' THEN $3::timestamptz ELSE completed_at END
		WHERE id = $1
		RETURNING ` + jobColumns

	if err := s.db.GetContext(ctx, &job, query, id, status, at); err != nil {
		return nil, translate(err, "update job "+id)
	}
	return &job, nil
}
