package tracking

import "techtrack-backend/internal/models"

// DeriveStatus is the only place a technician status is computed.
//
//	tracking + job     → ON_WAY
//	tracking, no job   → ONLINE
//	not tracking       → override when it is OFFLINE or ONLINE, otherwise ONLINE
func DeriveStatus(isTracking bool, currentJobID *string, override models.TechnicianStatus) models.TechnicianStatus {
	if isTracking {
		if currentJobID != nil && *currentJobID != "" {
			return models.StatusOnWay
		}
		return models.StatusOnline
	}
	if override == models.StatusOffline || override == models.StatusOnline {
		return override
	}
	return models.StatusOnline
}

// applyState sets the tracking fields on t and re-derives its status
func applyState(t *models.Technician, isTracking bool, currentJobID *string, override models.TechnicianStatus) {
	t.IsTracking = isTracking
	t.CurrentJobID = currentJobID
	t.Status = DeriveStatus(isTracking, currentJobID, override)
}
