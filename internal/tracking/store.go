package tracking

import (
	"context"
	"time"

	"techtrack-backend/internal/models"
)

// TechnicianStore holds the current-state row of each technician.
// GetTechnician returns ErrNotFound for an unknown id.
type TechnicianStore interface {
	GetTechnician(ctx context.Context, id string) (*models.Technician, error)
	// SaveTechnicianState overwrites position, last_ping, is_tracking, status and current_job_id
	SaveTechnicianState(ctx context.Context, t *models.Technician) error
	InProgressJobIDs(ctx context.Context, techID string) ([]string, error)
}

// LocationStore is append-only. AppendLocation assigns the sample id.
type LocationStore interface {
	AppendLocation(ctx context.Context, sample *models.LocationSample) error
}

// RouteStore keeps one route per job.
// CreateRoute fails with ErrRouteAlreadyOpen when the job already has a route.
// CompleteRoute only touches an open route owned by techID and fails with
// ErrRouteNotFound otherwise.
type RouteStore interface {
	CreateRoute(ctx context.Context, route *models.Route) error
	CompleteRoute(ctx context.Context, jobID, techID string, endLat, endLng float64, at time.Time) (*models.Route, error)
	GetOpenRoute(ctx context.Context, jobID string) (*models.Route, error)
}

// JobStore is the slice of the job collaborator the engine needs
type JobStore interface {
	GetJob(ctx context.Context, id string) (*models.Job, error)
	CreateJob(ctx context.Context, job *models.Job) error
	UpdateJobStatus(ctx context.Context, id string, status models.JobStatus, at time.Time) (*models.Job, error)
}

// Store is everything the engine writes through
type Store interface {
	TechnicianStore
	LocationStore
	RouteStore
	JobStore
}
