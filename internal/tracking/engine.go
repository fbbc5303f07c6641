package tracking

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"techtrack-backend/internal/models"
)

// Engine is the only writer of technician state, routes and location history.
// Every mutating call holds the technician's lock for its whole read-modify-write.
type Engine struct {
	store Store
	locks *keyedMutex
	log   zerolog.Logger
	now   func() time.Time
}

func NewEngine(store Store, log zerolog.Logger) *Engine {
	return &Engine{
		store: store,
		locks: newKeyedMutex(),
		log:   log.With().Str("component", "tracking").Logger(),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the engine clock. Used by tests.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// ValidateCoordinates rejects NaN, infinities and out-of-range values
func ValidateCoordinates(lat, lng float64) error {
	if math.IsNaN(lat) || math.IsNaN(lng) || math.IsInf(lat, 0) || math.IsInf(lng, 0) {
		return fmt.Errorf("%w: coordinates must be finite numbers", ErrValidation)
	}
	if lat < -90 || lat > 90 {
		return fmt.Errorf("%w: latitude must be between -90 and 90", ErrValidation)
	}
	if lng < -180 || lng > 180 {
		return fmt.Errorf("%w: longitude must be between -180 and 180", ErrValidation)
	}
	return nil
}

func requireCoordinates(lat, lng *float64) error {
	var missing []string
	if lat == nil {
		missing = append(missing, "lat is required")
	}
	if lng == nil {
		missing = append(missing, "lng is required")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrValidation, strings.Join(missing, ", "))
	}
	return nil
}

func requireID(kind, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: %s id is required", ErrValidation, kind)
	}
	return nil
}

// AcceptLocationUpdate records a ping from a technician that is currently tracking.
// jobID is optional; see resolveJob for how the sample gets bound to a job.
func (e *Engine) AcceptLocationUpdate(ctx context.Context, techID string, lat, lng float64, jobID string) (*LocationResult, error) {
	return e.AcceptLocationPayload(ctx, techID, &lat, &lng, jobID)
}

// AcceptLocationPayload is AcceptLocationUpdate for coordinates as they came
// off the wire. A technician that is not tracking gets ErrTrackingDisabled
// whatever the coordinates look like; missing or out-of-range values are
// only reported after that check.
func (e *Engine) AcceptLocationPayload(ctx context.Context, techID string, latIn, lngIn *float64, jobID string) (*LocationResult, error) {
	if err := requireID("technician", techID); err != nil {
		return nil, err
	}
	unlock := e.locks.Lock(techID)
	defer unlock()

	tech, err := e.store.GetTechnician(ctx, techID)
	if err != nil {
		return nil, err
	}
	if !tech.IsTracking {
		return nil, ErrTrackingDisabled
	}
	if err := requireCoordinates(latIn, lngIn); err != nil {
		return nil, err
	}
	lat, lng := *latIn, *lngIn
	if err := ValidateCoordinates(lat, lng); err != nil {
		return nil, err
	}

	activeJobID, err := e.resolveJob(ctx, tech, jobID)
	if err != nil {
		return nil, err
	}

	now := e.now()
	setPosition(tech, lat, lng, now)
	if err := e.store.SaveTechnicianState(ctx, tech); err != nil {
		return nil, err
	}

	sample := &models.LocationSample{
		TechID:     techID,
		JobID:      activeJobID,
		Lat:        lat,
		Lng:        lng,
		RecordedAt: now,
	}
	if err := e.store.AppendLocation(ctx, sample); err != nil {
		return nil, err
	}

	return &LocationResult{
		Saved: LocationSaved{Success: true, Lat: lat, Lng: lng},
		Update: LocationUpdate{
			TechnicianID: techID,
			Lat:          lat,
			Lng:          lng,
			JobID:        activeJobID,
			Timestamp:    now,
			TechName:     tech.Name,
			Status:       tech.Status,
		},
	}, nil
}

// resolveJob picks the job a sample belongs to: the explicit job, then the
// technician's bound job, then its single IN_PROGRESS job. With several
// IN_PROGRESS jobs and nothing else to go on the sample stays unbound.
func (e *Engine) resolveJob(ctx context.Context, tech *models.Technician, jobID string) (*string, error) {
	if jobID != "" {
		if _, err := e.store.GetJob(ctx, jobID); err != nil {
			return nil, err
		}
		return &jobID, nil
	}
	if tech.CurrentJobID != nil && *tech.CurrentJobID != "" {
		id := *tech.CurrentJobID
		return &id, nil
	}

	ids, err := e.store.InProgressJobIDs(ctx, tech.ID)
	if err != nil {
		return nil, err
	}
	switch len(ids) {
	case 0:
		return nil, nil
	case 1:
		return &ids[0], nil
	default:
		e.log.Warn().
			Str("tech_id", tech.ID).
			Strs("job_ids", ids).
			Msg("⚠️  Several jobs in progress and no job given, storing sample without job")
		return nil, nil
	}
}

// StartRoute opens the route of a job and binds the technician to it
func (e *Engine) StartRoute(ctx context.Context, techID, jobID string, lat, lng float64) (*RouteEvent, error) {
	if err := requireID("technician", techID); err != nil {
		return nil, err
	}
	if err := requireID("job", jobID); err != nil {
		return nil, err
	}
	if err := ValidateCoordinates(lat, lng); err != nil {
		return nil, err
	}
	unlock := e.locks.Lock(techID)
	defer unlock()

	tech, err := e.store.GetTechnician(ctx, techID)
	if err != nil {
		return nil, err
	}
	job, err := e.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.TechID != techID {
		return nil, fmt.Errorf("%w: job %s is not assigned to technician %s", ErrValidation, jobID, techID)
	}
	if job.Status == models.JobCompleted {
		return nil, fmt.Errorf("%w: job %s is already completed", ErrValidation, jobID)
	}

	now := e.now()
	route := &models.Route{
		ID:        uuid.New().String(),
		JobID:     jobID,
		TechID:    techID,
		StartLat:  lat,
		StartLng:  lng,
		StartedAt: now,
	}
	if err := e.store.CreateRoute(ctx, route); err != nil {
		return nil, err
	}

	if err := e.store.AppendLocation(ctx, &models.LocationSample{
		TechID:       techID,
		JobID:        &jobID,
		Lat:          lat,
		Lng:          lng,
		IsStartPoint: true,
		RecordedAt:   now,
	}); err != nil {
		return nil, err
	}

	setPosition(tech, lat, lng, now)
	applyState(tech, true, &jobID, "")
	if err := e.store.SaveTechnicianState(ctx, tech); err != nil {
		return nil, err
	}

	e.log.Info().Str("tech_id", techID).Str("job_id", jobID).Msg("🚗 Route started")

	return &RouteEvent{
		Success:      true,
		TechnicianID: techID,
		JobID:        jobID,
		Lat:          lat,
		Lng:          lng,
		Route:        route,
		Timestamp:    now,
	}, nil
}

// EndRoute completes the technician's open route for a job.
// The technician is released only when it was bound to that job (or to none).
func (e *Engine) EndRoute(ctx context.Context, techID, jobID string, lat, lng float64) (*RouteEvent, error) {
	if err := requireID("technician", techID); err != nil {
		return nil, err
	}
	if err := requireID("job", jobID); err != nil {
		return nil, err
	}
	if err := ValidateCoordinates(lat, lng); err != nil {
		return nil, err
	}
	unlock := e.locks.Lock(techID)
	defer unlock()

	tech, err := e.store.GetTechnician(ctx, techID)
	if err != nil {
		return nil, err
	}

	now := e.now()
	route, err := e.closeRoute(ctx, tech, jobID, lat, lng, now)
	if err != nil {
		return nil, err
	}
	if err := e.store.SaveTechnicianState(ctx, tech); err != nil {
		return nil, err
	}

	e.log.Info().Str("tech_id", techID).Str("job_id", jobID).Msg("🏁 Route completed")

	return &RouteEvent{
		Success:      true,
		TechnicianID: techID,
		JobID:        jobID,
		Lat:          lat,
		Lng:          lng,
		Route:        route,
		Timestamp:    now,
	}, nil
}

// closeRoute completes the route, appends the end sample and releases tech in
// memory. The caller persists tech.
func (e *Engine) closeRoute(ctx context.Context, tech *models.Technician, jobID string, lat, lng float64, now time.Time) (*models.Route, error) {
	route, err := e.store.CompleteRoute(ctx, jobID, tech.ID, lat, lng, now)
	if err != nil {
		return nil, err
	}

	if err := e.store.AppendLocation(ctx, &models.LocationSample{
		TechID:     tech.ID,
		JobID:      &jobID,
		Lat:        lat,
		Lng:        lng,
		IsEndPoint: true,
		RecordedAt: now,
	}); err != nil {
		return nil, err
	}

	setPosition(tech, lat, lng, now)
	if boundTo(tech, jobID) {
		applyState(tech, false, nil, models.StatusOnline)
	}
	return route, nil
}

// ToggleGPS switches plain GPS streaming on or off without job context.
// lat and lng are applied only when both are present.
// Enabling keeps an existing job binding, so a technician still bound to a
// job comes back ON_WAY rather than ONLINE. Disabling always clears the
// binding and leaves the technician OFFLINE.
func (e *Engine) ToggleGPS(ctx context.Context, techID string, enabled bool, lat, lng *float64) (*GPSResult, error) {
	if err := requireID("technician", techID); err != nil {
		return nil, err
	}
	hasPosition := lat != nil && lng != nil
	if hasPosition {
		if err := ValidateCoordinates(*lat, *lng); err != nil {
			return nil, err
		}
	}
	unlock := e.locks.Lock(techID)
	defer unlock()

	tech, err := e.store.GetTechnician(ctx, techID)
	if err != nil {
		return nil, err
	}

	now := e.now()
	tech.LastPing = &now
	if hasPosition {
		setPosition(tech, *lat, *lng, now)
	}
	if enabled {
		applyState(tech, true, tech.CurrentJobID, "")
	} else {
		applyState(tech, false, nil, models.StatusOffline)
	}
	if err := e.store.SaveTechnicianState(ctx, tech); err != nil {
		return nil, err
	}

	if enabled && hasPosition {
		if err := e.store.AppendLocation(ctx, &models.LocationSample{
			TechID:     techID,
			Lat:        *lat,
			Lng:        *lng,
			RecordedAt: now,
		}); err != nil {
			return nil, err
		}
	}

	e.log.Info().Str("tech_id", techID).Bool("enabled", enabled).Msg("📡 GPS toggled")

	if !hasPosition {
		lat, lng = nil, nil
	}
	return &GPSResult{
		Toggled: GPSToggled{Success: true, Enabled: enabled, Technician: tech.Snapshot()},
		Changed: GPSChanged{
			TechnicianID: techID,
			TechName:     tech.Name,
			Enabled:      enabled,
			Lat:          lat,
			Lng:          lng,
			Status:       tech.Status,
			Timestamp:    now,
		},
	}, nil
}

// SetTracking is the HTTP toggle. Disabling releases the job binding and
// leaves the technician ONLINE rather than OFFLINE.
func (e *Engine) SetTracking(ctx context.Context, techID string, enabled bool) (*TrackingResult, error) {
	if err := requireID("technician", techID); err != nil {
		return nil, err
	}
	unlock := e.locks.Lock(techID)
	defer unlock()

	tech, err := e.store.GetTechnician(ctx, techID)
	if err != nil {
		return nil, err
	}

	now := e.now()
	tech.LastPing = &now
	if enabled {
		applyState(tech, true, tech.CurrentJobID, "")
	} else {
		applyState(tech, false, nil, models.StatusOnline)
	}
	if err := e.store.SaveTechnicianState(ctx, tech); err != nil {
		return nil, err
	}

	return &TrackingResult{
		Technician: tech.Snapshot(),
		Changed: GPSChanged{
			TechnicianID: techID,
			TechName:     tech.Name,
			Enabled:      enabled,
			Lat:          tech.LastLat,
			Lng:          tech.LastLng,
			Status:       tech.Status,
			Timestamp:    now,
		},
	}, nil
}

func setPosition(t *models.Technician, lat, lng float64, at time.Time) {
	t.LastLat = &lat
	t.LastLng = &lng
	t.LastPing = &at
}

// boundTo reports whether tech is bound to jobID or to no job at all
func boundTo(t *models.Technician, jobID string) bool {
	return t.CurrentJobID == nil || *t.CurrentJobID == "" || *t.CurrentJobID == jobID
}
