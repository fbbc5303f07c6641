package database

import (
	"context"
	"fmt"

	"techtrack-backend/internal/models"
	"techtrack-backend/internal/tracking"
)

const technicianColumns = `id, name, email, password, last_lat, last_lng, last_ping,
	is_tracking, status, current_job_id, created_at, updated_at`

// GetTechnician retrieves a technician's current-state row
func (s *Store) GetTechnician(ctx context.Context, id string) (*models.Technician, error) {
	var tech models.Technician
	query := `SELECT ` + technicianColumns + ` FROM technicians WHERE id = $1`

	if err := s.db.GetContext(ctx, &tech, query, id); err != nil {
		return nil, translate(err, "get technician "+id)
	}
	return &tech, nil
}

// SaveTechnicianState overwrites the tracking fields. Last write wins.
func (s *Store) SaveTechnicianState(ctx context.Context, t *models.Technician) error {
	query := `
		UPDATE technicians
		SET last_lat = :last_lat,
			last_lng = :last_lng,
			last_ping = :last_ping,
			is_tracking = :is_tracking,
			status = :status,
			current_job_id = :current_job_id,
			updated_at = NOW()
		WHERE id = :id
	`
	res, err := s.db.NamedExecContext(ctx, query, t)
	if err != nil {
		return translate(err, "save technician "+t.ID)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: technician %s", tracking.ErrNotFound, t.ID)
	}
	return nil
}

// InProgressJobIDs lists the technician's IN_PROGRESS jobs, oldest first
func (s *Store) InProgressJobIDs(ctx context.Context, techID string) ([]string, error) {
	var ids []string
	query := `SELECT id FROM jobs
	          WHERE tech_id = $1 AND status = $2
	          ORDER BY started_at ASC NULLS LAST, created_at ASC, id ASC`

	if err := s.db.SelectContext(ctx, &ids, query, techID, models.JobInProgress); err != nil {
		return nil, translate(err, "list in-progress jobs")
	}
	return ids, nil
}

// CreateTechnician inserts a technician in the OFFLINE state
func (s *Store) CreateTechnician(ctx context.Context, t *models.Technician) error {
	if t.Status == "" {
		t.Status = models.StatusOffline
	}
	query := `
		INSERT INTO technicians (id, name, email, password, is_tracking, status)
		VALUES (:id, :name, :email, :password, :is_tracking, :status)
	`
	if _, err := s.db.NamedExecContext(ctx, query, t); err != nil {
		return translate(err, "create technician")
	}
	return nil
}
