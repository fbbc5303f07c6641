package database

import (
	"context"

	"techtrack-backend/internal/models"
)

// AppendLocation inserts a sample and sets its id
func (s *Store) AppendLocation(ctx context.Context, sample *models.LocationSample) error {
	query := `
		INSERT INTO location_history (tech_id, job_id, lat, lng, is_start_point, is_end_point, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	err := s.db.QueryRowxContext(ctx, query,
		sample.TechID, sample.JobID, sample.Lat, sample.Lng,
		sample.IsStartPoint, sample.IsEndPoint, sample.RecordedAt,
	).Scan(&sample.ID)
	if err != nil {
		return translate(err, "append location")
	}
	return nil
}

type historyRow struct {
	models.LocationSample
	JobTitle *string `db:"job_title"`
}

// RecentLocations returns a technician's newest samples first
func (s *Store) RecentLocations(ctx context.Context, techID string, limit int) ([]models.HistoryEntry, error) {
	var rows []historyRow
	query := `
		SELECT l.id, l.tech_id, l.job_id, l.lat, l.lng, l.is_start_point, l.is_end_point, l.recorded_at,
			j.title AS job_title
		FROM location_history l
		LEFT JOIN jobs j ON j.id = l.job_id
		WHERE l.tech_id = $1
		ORDER BY l.recorded_at DESC, l.id DESC
		LIMIT $2
	`
	if err := s.db.SelectContext(ctx, &rows, query, techID, limit); err != nil {
		return nil, translate(err, "get location history")
	}

	history := make([]models.HistoryEntry, 0, len(rows))
	for _, r := range rows {
		entry := models.HistoryEntry{LocationSample: r.LocationSample}
		if r.JobID != nil && r.JobTitle != nil {
			entry.Job = &models.JobSummary{ID: *r.JobID, Title: *r.JobTitle}
		}
		history = append(history, entry)
	}
	return history, nil
}

// JobLocations returns every sample of a job in replay order
func (s *Store) JobLocations(ctx context.Context, jobID string) ([]models.LocationSample, error) {
	samples := []models.LocationSample{}
	query := `
		SELECT id, tech_id, job_id, lat, lng, is_start_point, is_end_point, recorded_at
		FROM location_history
		WHERE job_id = $1
		ORDER BY recorded_at ASC, id ASC
	`
	if err := s.db.SelectContext(ctx, &samples, query, jobID); err != nil {
		return nil, translate(err, "get job locations")
	}
	return samples, nil
}
