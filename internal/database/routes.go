package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"techtrack-backend/internal/models"
	"techtrack-backend/internal/tracking"
)

const routeColumns = `r.id, r.job_id, r.tech_id, r.start_lat, r.start_lng, r.end_lat, r.end_lng, r.started_at, r.completed_at`

// CreateRoute inserts the job's route. UNIQUE(job_id) rejects a second start.
func (s *Store) CreateRoute(ctx context.Context, route *models.Route) error {
	query := `
		INSERT INTO technician_routes (id, job_id, tech_id, start_lat, start_lng, started_at)
		VALUES (:id, :job_id, :tech_id, :start_lat, :start_lng, :started_at)
	`
	_, err := s.db.NamedExecContext(ctx, query, route)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return fmt.Errorf("%w: job %s", tracking.ErrRouteAlreadyOpen, route.JobID)
		}
		return translate(err, "create route")
	}
	return nil
}

// CompleteRoute closes the open route in one conditional UPDATE, so two
// concurrent ends cannot both succeed.
func (s *Store) CompleteRoute(ctx context.Context, jobID, techID string, endLat, endLng float64, at time.Time) (*models.Route, error) {
	var route models.Route
	query := `
		UPDATE technician_routes r
		SET end_lat = $3, end_lng = $4, completed_at = $5
		WHERE r.job_id = $1 AND r.tech_id = $2 AND r.completed_at IS NULL
		RETURNING ` + routeColumns

	err := s.db.GetContext(ctx, &route, query, jobID, techID, endLat, endLng, at)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: job %s", tracking.ErrRouteNotFound, jobID)
	}
	if err != nil {
		return nil, translate(err, "complete route")
	}
	return &route, nil
}

// GetOpenRoute returns ErrRouteNotFound when the job has no open route
func (s *Store) GetOpenRoute(ctx context.Context, jobID string) (*models.Route, error) {
	var route models.Route
	query := `SELECT ` + routeColumns + ` FROM technician_routes r
	          WHERE r.job_id = $1 AND r.completed_at IS NULL`

	err := s.db.GetContext(ctx, &route, query, jobID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: job %s", tracking.ErrRouteNotFound, jobID)
	}
	if err != nil {
		return nil, translate(err, "get open route")
	}
	return &route, nil
}

type activeRouteRow struct {
	models.Route
	TechName       string                  `db:"tech_name"`
	TechEmail      string                  `db:"tech_email"`
	TechLastLat    *float64                `db:"tech_last_lat"`
	TechLastLng    *float64                `db:"tech_last_lng"`
	TechLastPing   *time.Time              `db:"tech_last_ping"`
	TechIsTracking bool                    `db:"tech_is_tracking"`
	TechStatus     models.TechnicianStatus `db:"tech_status"`
	TechJobID      *string                 `db:"tech_current_job_id"`
	JobTitle       string                  `db:"job_title"`
	JobStatus      models.JobStatus        `db:"job_status"`
	JobAddress     *string                 `db:"job_address"`
	JobAddressLat  *float64                `db:"job_address_lat"`
	JobAddressLng  *float64                `db:"job_address_lng"`
}

// ActiveRoutes lists open routes with technician and job summaries
func (s *Store) ActiveRoutes(ctx context.Context) ([]models.ActiveRoute, error) {
	var rows []activeRouteRow
	query := `
		SELECT ` + routeColumns + `,
			t.name AS tech_name, t.email AS tech_email,
			t.last_lat AS tech_last_lat, t.last_lng AS tech_last_lng, t.last_ping AS tech_last_ping,
			t.is_tracking AS tech_is_tracking, t.status AS tech_status, t.current_job_id AS tech_current_job_id,
			j.title AS job_title, j.status AS job_status, j.address AS job_address,
			j.address_lat AS job_address_lat, j.address_lng AS job_address_lng
		FROM technician_routes r
		JOIN technicians t ON t.id = r.tech_id
		JOIN jobs j ON j.id = r.job_id
		WHERE r.completed_at IS NULL
		ORDER BY r.started_at ASC, r.id ASC
	`
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, translate(err, "list active routes")
	}

	routes := make([]models.ActiveRoute, 0, len(rows))
	for _, r := range rows {
		routes = append(routes, models.ActiveRoute{
			Route: r.Route,
			Technician: models.TechnicianSnapshot{
				ID:           r.TechID,
				Name:         r.TechName,
				Email:        r.TechEmail,
				LastLat:      r.TechLastLat,
				LastLng:      r.TechLastLng,
				LastPing:     r.TechLastPing,
				IsTracking:   r.TechIsTracking,
				Status:       r.TechStatus,
				CurrentJobID: r.TechJobID,
			},
			Job: models.JobSummary{
				ID:         r.JobID,
				Title:      r.JobTitle,
				Status:     r.JobStatus,
				Address:    r.JobAddress,
				AddressLat: r.JobAddressLat,
				AddressLng: r.JobAddressLng,
			},
		})
	}
	return routes, nil
}

type routeDetailRow struct {
	models.Route
	TechName   string  `db:"tech_name"`
	JobTitle   string  `db:"job_title"`
	JobAddress *string `db:"job_address"`
}

// RouteByJob returns nil without error when the job never had a route
func (s *Store) RouteByJob(ctx context.Context, jobID string) (*models.RouteDetail, error) {
	var row routeDetailRow
	query := `
		SELECT ` + routeColumns + `,
			t.name AS tech_name, j.title AS job_title, j.address AS job_address
		FROM technician_routes r
		JOIN technicians t ON t.id = r.tech_id
		JOIN jobs j ON j.id = r.job_id
		WHERE r.job_id = $1
	`
	err := s.db.GetContext(ctx, &row, query, jobID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, translate(err, "get job route")
	}

	return &models.RouteDetail{
		Route:      row.Route,
		Technician: models.TechnicianRef{ID: row.TechID, Name: row.TechName},
		Job:        models.JobSummary{ID: row.JobID, Title: row.JobTitle, Address: row.JobAddress},
	}, nil
}
