package database

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"techtrack-backend/internal/models"
	"techtrack-backend/internal/tracking"
)

// MemoryStore keeps everything in process. It backs STORAGE_DRIVER=memory
// and the tests; its semantics mirror the Postgres store, including the
// one-route-per-job rule and conditional route completion.
type MemoryStore struct {
	mu          sync.RWMutex
	technicians map[string]models.Technician
	jobs        map[string]models.Job
	routes      map[string]models.Route // keyed by job id
	locations   []models.LocationSample
	nextID      int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		technicians: make(map[string]models.Technician),
		jobs:        make(map[string]models.Job),
		routes:      make(map[string]models.Route),
	}
}

func (m *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (m *MemoryStore) CreateTechnician(ctx context.Context, t *models.Technician) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.technicians[t.ID]; ok {
		return fmt.Errorf("%w: technician %s already exists", tracking.ErrValidation, t.ID)
	}
	if t.Status == "" {
		t.Status = models.StatusOffline
	}
	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now
	m.technicians[t.ID] = cloneTechnician(*t)
	return nil
}

func (m *MemoryStore) GetTechnician(ctx context.Context, id string) (*models.Technician, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.technicians[id]
	if !ok {
		return nil, fmt.Errorf("%w: technician %s", tracking.ErrNotFound, id)
	}
	t = cloneTechnician(t)
	return &t, nil
}

func (m *MemoryStore) SaveTechnicianState(ctx context.Context, t *models.Technician) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.technicians[t.ID]
	if !ok {
		return fmt.Errorf("%w: technician %s", tracking.ErrNotFound, t.ID)
	}
	if t.CurrentJobID != nil {
		if _, ok := m.jobs[*t.CurrentJobID]; !ok {
			return fmt.Errorf("%w: job %s", tracking.ErrNotFound, *t.CurrentJobID)
		}
	}
	next := cloneTechnician(*t)
	cur.LastLat, cur.LastLng, cur.LastPing = next.LastLat, next.LastLng, next.LastPing
	cur.IsTracking = next.IsTracking
	cur.Status = next.Status
	cur.CurrentJobID = next.CurrentJobID
	cur.UpdatedAt = time.Now().UTC()
	m.technicians[t.ID] = cur
	return nil
}

func (m *MemoryStore) InProgressJobIDs(ctx context.Context, techID string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	jobs := m.jobsLocked(func(j models.Job) bool {
		return j.TechID == techID && j.Status == models.JobInProgress
	})
	sort.SliceStable(jobs, func(a, b int) bool {
		return timeBefore(jobs[a].StartedAt, jobs[b].StartedAt)
	})
	ids := make([]string, 0, len(jobs))
	for _, j := range jobs {
		ids = append(ids, j.ID)
	}
	return ids, nil
}

func (m *MemoryStore) AppendLocation(ctx context.Context, sample *models.LocationSample) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.technicians[sample.TechID]; !ok {
		return fmt.Errorf("%w: technician %s", tracking.ErrNotFound, sample.TechID)
	}
	if sample.JobID != nil {
		if _, ok := m.jobs[*sample.JobID]; !ok {
			return fmt.Errorf("%w: job %s", tracking.ErrNotFound, *sample.JobID)
		}
	}
	m.nextID++
	sample.ID = m.nextID
	m.locations = append(m.locations, cloneSample(*sample))
	return nil
}

func (m *MemoryStore) CreateRoute(ctx context.Context, route *models.Route) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.jobs[route.JobID]; !ok {
		return fmt.Errorf("%w: job %s", tracking.ErrNotFound, route.JobID)
	}
	if _, ok := m.routes[route.JobID]; ok {
		return fmt.Errorf("%w: job %s", tracking.ErrRouteAlreadyOpen, route.JobID)
	}
	m.routes[route.JobID] = *route
	return nil
}

func (m *MemoryStore) CompleteRoute(ctx context.Context, jobID, techID string, endLat, endLng float64, at time.Time) (*models.Route, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.routes[jobID]
	if !ok || r.TechID != techID || !r.IsOpen() {
		return nil, fmt.Errorf("%w: job %s", tracking.ErrRouteNotFound, jobID)
	}
	r.EndLat, r.EndLng, r.CompletedAt = &endLat, &endLng, &at
	m.routes[jobID] = r
	out := cloneRoute(r)
	return &out, nil
}

func (m *MemoryStore) GetOpenRoute(ctx context.Context, jobID string) (*models.Route, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.routes[jobID]
	if !ok || !r.IsOpen() {
		return nil, fmt.Errorf("%w: job %s", tracking.ErrRouteNotFound, jobID)
	}
	out := cloneRoute(r)
	return &out, nil
}

func (m *MemoryStore) GetJob(ctx context.Context, id string) (*models.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	j, ok := m.jobs[id]
	if !ok {
		return nil, fmt.Errorf("%w: job %s", tracking.ErrNotFound, id)
	}
	return &j, nil
}

func (m *MemoryStore) CreateJob(ctx context.Context, job *models.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.technicians[job.TechID]; !ok {
		return fmt.Errorf("%w: technician %s", tracking.ErrNotFound, job.TechID)
	}
	if job.Status == "" {
		job.Status = models.JobAssigned
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	m.jobs[job.ID] = *job
	return nil
}

func (m *MemoryStore) UpdateJobStatus(ctx context.Context, id string, status models.JobStatus, at time.Time) (*models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	j, ok := m.jobs[id]
	if !ok {
		return nil, fmt.Errorf("%w: job %s", tracking.ErrNotFound, id)
	}
	j.Status = status
	switch status {
	case models.JobAccepted:
		j.AcceptedAt = &at
	case models.JobInProgress:
		j.StartedAt = &at
	case models.JobCompleted:
		j.CompletedAt = &at
	}
	m.jobs[id] = j
	return &j, nil
}

func (m *MemoryStore) AllTechnicians(ctx context.Context) ([]models.TechnicianSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	techs := m.techniciansLocked()
	sort.SliceStable(techs, func(a, b int) bool {
		if techs[a].IsTracking != techs[b].IsTracking {
			return techs[a].IsTracking
		}
		return timeAfter(techs[a].LastPing, techs[b].LastPing)
	})

	out := make([]models.TechnicianSnapshot, 0, len(techs))
	for _, t := range techs {
		snap := t.Snapshot()
		open := m.jobsLocked(func(j models.Job) bool {
			return j.TechID == t.ID && j.Status != models.JobCompleted
		})
		sortJobsByCreation(open)
		if len(open) > 0 {
			s := open[0].Summary()
			s.Address, s.AddressLat, s.AddressLng = nil, nil, nil
			snap.ActiveJob = &s
		}
		out = append(out, snap)
	}
	return out, nil
}

func (m *MemoryStore) TrackedTechnicians(ctx context.Context) ([]models.TechnicianSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	techs := m.techniciansLocked()
	sort.SliceStable(techs, func(a, b int) bool {
		return timeAfter(techs[a].LastPing, techs[b].LastPing)
	})

	out := make([]models.TechnicianSnapshot, 0, len(techs))
	for _, t := range techs {
		if !t.IsTracking && t.Status == models.StatusOffline {
			continue
		}
		snap := t.Snapshot()
		running := m.jobsLocked(func(j models.Job) bool {
			return j.TechID == t.ID && j.Status == models.JobInProgress
		})
		sort.SliceStable(running, func(a, b int) bool {
			return timeBefore(running[a].StartedAt, running[b].StartedAt)
		})
		if len(running) > 0 {
			s := running[0].Summary()
			snap.ActiveJob = &s
		}
		out = append(out, snap)
	}
	return out, nil
}

func (m *MemoryStore) RecentLocations(ctx context.Context, techID string, limit int) ([]models.HistoryEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	history := []models.HistoryEntry{}
	for i := len(m.locations) - 1; i >= 0; i-- {
		l := m.locations[i]
		if l.TechID != techID {
			continue
		}
		history = append(history, models.HistoryEntry{LocationSample: cloneSample(l)})
	}
	sort.SliceStable(history, func(a, b int) bool {
		return history[a].RecordedAt.After(history[b].RecordedAt)
	})
	if limit >= 0 && len(history) > limit {
		history = history[:limit]
	}
	for i := range history {
		if history[i].JobID == nil {
			continue
		}
		if j, ok := m.jobs[*history[i].JobID]; ok {
			history[i].Job = &models.JobSummary{ID: j.ID, Title: j.Title}
		}
	}
	return history, nil
}

func (m *MemoryStore) JobLocations(ctx context.Context, jobID string) ([]models.LocationSample, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	samples := []models.LocationSample{}
	for _, l := range m.locations {
		if l.JobID != nil && *l.JobID == jobID {
			samples = append(samples, cloneSample(l))
		}
	}
	sort.SliceStable(samples, func(a, b int) bool {
		if !samples[a].RecordedAt.Equal(samples[b].RecordedAt) {
			return samples[a].RecordedAt.Before(samples[b].RecordedAt)
		}
		return samples[a].ID < samples[b].ID
	})
	return samples, nil
}

func (m *MemoryStore) ActiveRoutes(ctx context.Context) ([]models.ActiveRoute, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	routes := []models.ActiveRoute{}
	for _, r := range m.routes {
		if !r.IsOpen() {
			continue
		}
		tech := cloneTechnician(m.technicians[r.TechID])
		job := m.jobs[r.JobID]
		routes = append(routes, models.ActiveRoute{
			Route:      cloneRoute(r),
			Technician: tech.Snapshot(),
			Job:        job.Summary(),
		})
	}
	sort.Slice(routes, func(a, b int) bool {
		if !routes[a].StartedAt.Equal(routes[b].StartedAt) {
			return routes[a].StartedAt.Before(routes[b].StartedAt)
		}
		return routes[a].ID < routes[b].ID
	})
	return routes, nil
}

func (m *MemoryStore) RouteByJob(ctx context.Context, jobID string) (*models.RouteDetail, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.routes[jobID]
	if !ok {
		return nil, nil
	}
	tech := m.technicians[r.TechID]
	job := m.jobs[r.JobID]
	return &models.RouteDetail{
		Route:      cloneRoute(r),
		Technician: models.TechnicianRef{ID: tech.ID, Name: tech.Name},
		Job:        models.JobSummary{ID: job.ID, Title: job.Title, Address: job.Address},
	}, nil
}

func (m *MemoryStore) techniciansLocked() []models.Technician {
	techs := make([]models.Technician, 0, len(m.technicians))
	for _, t := range m.technicians {
		techs = append(techs, cloneTechnician(t))
	}
	sort.Slice(techs, func(a, b int) bool { return techs[a].ID < techs[b].ID })
	return techs
}

func (m *MemoryStore) jobsLocked(keep func(models.Job) bool) []models.Job {
	var jobs []models.Job
	for _, j := range m.jobs {
		if keep(j) {
			jobs = append(jobs, j)
		}
	}
	sortJobsByCreation(jobs)
	return jobs
}

func sortJobsByCreation(jobs []models.Job) {
	sort.SliceStable(jobs, func(a, b int) bool {
		if !jobs[a].CreatedAt.Equal(jobs[b].CreatedAt) {
			return jobs[a].CreatedAt.Before(jobs[b].CreatedAt)
		}
		return jobs[a].ID < jobs[b].ID
	})
}

// timeBefore orders nil last
func timeBefore(a, b *time.Time) bool {
	switch {
	case a == nil:
		return false
	case b == nil:
		return true
	}
	return a.Before(*b)
}

// timeAfter orders newest first, nil last
func timeAfter(a, b *time.Time) bool {
	switch {
	case a == nil:
		return false
	case b == nil:
		return true
	}
	return a.After(*b)
}

func cloneTechnician(t models.Technician) models.Technician {
	t.LastLat = cloneFloat(t.LastLat)
	t.LastLng = cloneFloat(t.LastLng)
	t.LastPing = cloneTime(t.LastPing)
	t.CurrentJobID = cloneString(t.CurrentJobID)
	return t
}

func cloneRoute(r models.Route) models.Route {
	r.EndLat = cloneFloat(r.EndLat)
	r.EndLng = cloneFloat(r.EndLng)
	r.CompletedAt = cloneTime(r.CompletedAt)
	return r
}

func cloneSample(s models.LocationSample) models.LocationSample {
	s.JobID = cloneString(s.JobID)
	return s
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneTime(v *time.Time) *time.Time {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneString(v *string) *string {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
