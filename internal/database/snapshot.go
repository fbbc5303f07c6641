package database

import (
	"context"

	"techtrack-backend/internal/models"
)

// technicianJobRow is a technician with at most one job joined laterally
type technicianJobRow struct {
	models.Technician
	JobID         *string           `db:"job_id"`
	JobTitle      *string           `db:"job_title"`
	JobStatus     *models.JobStatus `db:"job_status"`
	JobAddress    *string           `db:"job_address"`
	JobAddressLat *float64          `db:"job_address_lat"`
	JobAddressLng *float64          `db:"job_address_lng"`
}

func (r technicianJobRow) snapshot() models.TechnicianSnapshot {
	snap := r.Technician.Snapshot()
	if r.JobID != nil {
		job := &models.JobSummary{
			ID:         *r.JobID,
			Address:    r.JobAddress,
			AddressLat: r.JobAddressLat,
			AddressLng: r.JobAddressLng,
		}
		if r.JobTitle != nil {
			job.Title = *r.JobTitle
		}
		if r.JobStatus != nil {
			job.Status = *r.JobStatus
		}
		snap.ActiveJob = job
	}
	return snap
}

const technicianSnapshotColumns = `t.id, t.name, t.email, t.last_lat, t.last_lng, t.last_ping,
	t.is_tracking, t.status, t.current_job_id, t.created_at, t.updated_at,
	j.id AS job_id, j.title AS job_title, j.status AS job_status,
	j.address AS job_address, j.address_lat AS job_address_lat, j.address_lng AS job_address_lng`

// AllTechnicians lists every technician with its first open job,
// tracking technicians first, then by latest ping
func (s *Store) AllTechnicians(ctx context.Context) ([]models.TechnicianSnapshot, error) {
	var rows []technicianJobRow
	query := `
		SELECT ` + technicianSnapshotColumns + `
		FROM technicians t
		LEFT JOIN LATERAL (
			SELECT id, title, status, address, address_lat, address_lng
			FROM jobs
			WHERE tech_id = t.id AND status IN ('ASSIGNED', 'ACCEPTED', 'IN_PROGRESS')
			ORDER BY created_at ASC, id ASC
			LIMIT 1
		) j ON TRUE
		ORDER BY t.is_tracking DESC, t.last_ping DESC NULLS LAST, t.id ASC
	`
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, translate(err, "list technicians")
	}
	return snapshots(rows), nil
}

// TrackedTechnicians lists technicians that are tracking or not OFFLINE,
// each with its IN_PROGRESS job
func (s *Store) TrackedTechnicians(ctx context.Context) ([]models.TechnicianSnapshot, error) {
	var rows []technicianJobRow
	query := `
		SELECT ` + technicianSnapshotColumns + `
		FROM technicians t
		LEFT JOIN LATERAL (
			SELECT id, title, status, address, address_lat, address_lng
			FROM jobs
			WHERE tech_id = t.id AND status = 'IN_PROGRESS'
			ORDER BY started_at ASC NULLS LAST, created_at ASC, id ASC
			LIMIT 1
		) j ON TRUE
		WHERE t.is_tracking OR t.status <> 'OFFLINE'
		ORDER BY t.last_ping DESC NULLS LAST, t.id ASC
	`
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, translate(err, "list tracked technicians")
	}
	return snapshots(rows), nil
}

func snapshots(rows []technicianJobRow) []models.TechnicianSnapshot {
	out := make([]models.TechnicianSnapshot, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.snapshot())
	}
	return out
}
