// Package snapshot answers read-only questions about technicians, routes and
// location history. Nothing here writes to the store.
package snapshot

import (
	"context"
	"fmt"

	"techtrack-backend/internal/models"
	"techtrack-backend/internal/tracking"
)

// History windows used by the different call sites
const (
	ChannelHistoryLimit = 100
	HTTPHistoryLimit    = 500
	MaxHistoryLimit     = 500
)

// Reader is implemented by database.Store and database.MemoryStore
type Reader interface {
	AllTechnicians(ctx context.Context) ([]models.TechnicianSnapshot, error)
	TrackedTechnicians(ctx context.Context) ([]models.TechnicianSnapshot, error)
	RecentLocations(ctx context.Context, techID string, limit int) ([]models.HistoryEntry, error)
	JobLocations(ctx context.Context, jobID string) ([]models.LocationSample, error)
	ActiveRoutes(ctx context.Context) ([]models.ActiveRoute, error)
	RouteByJob(ctx context.Context, jobID string) (*models.RouteDetail, error)
}

type Service struct {
	reader Reader
}

func NewService(reader Reader) *Service {
	return &Service{reader: reader}
}

// AllTechnicians returns every technician with its first open job
func (s *Service) AllTechnicians(ctx context.Context) ([]models.TechnicianSnapshot, error) {
	return s.reader.AllTechnicians(ctx)
}

// TrackedTechnicians returns technicians that are tracking or not OFFLINE
func (s *Service) TrackedTechnicians(ctx context.Context) ([]models.TechnicianSnapshot, error) {
	return s.reader.TrackedTechnicians(ctx)
}

// History returns a technician's newest samples first.
// A non-positive limit falls back to def; anything above MaxHistoryLimit is capped.
func (s *Service) History(ctx context.Context, techID string, limit, def int) ([]models.HistoryEntry, error) {
	if techID == "" {
		return nil, fmt.Errorf("%w: technician id is required", tracking.ErrValidation)
	}
	return s.reader.RecentLocations(ctx, techID, NormalizeLimit(limit, def))
}

func NormalizeLimit(limit, def int) int {
	if limit <= 0 {
		limit = def
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	return limit
}

func (s *Service) ActiveRoutes(ctx context.Context) ([]models.ActiveRoute, error) {
	return s.reader.ActiveRoutes(ctx)
}

// JobRoute returns the job's route (nil if it was never started) and the full
// sample list in replay order
func (s *Service) JobRoute(ctx context.Context, jobID string) (*models.JobRoute, error) {
	if jobID == "" {
		return nil, fmt.Errorf("%w: job id is required", tracking.ErrValidation)
	}
	route, err := s.reader.RouteByJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	samples, err := s.reader.JobLocations(ctx, jobID)
	if err != nil {
		return nil, err
	}
	return &models.JobRoute{Route: route, LocationHistory: samples}, nil
}
