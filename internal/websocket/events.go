package websocket

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"techtrack-backend/internal/tracking"
)

// Inbound event types
const (
	EventPing                  = "ping"
	EventJoinTech              = "join_tech"
	EventJoinAdmin             = "join_admin"
	EventUpdateLocation        = "update_location"
	EventStartRoute            = "start_route"
	EventEndRoute              = "end_route"
	EventToggleGPS             = "toggle_gps"
	EventRequestAllTechnicians = "request_all_technicians"
	EventRequestAllLocations   = "request_all_locations"
	EventRequestActiveRoutes   = "request_active_routes"
	EventRequestJobRoute       = "request_job_route"
	EventRequestHistory        = "request_history"
)

// Outbound event types
const (
	EventPong             = "pong"
	EventJoined           = "joined"
	EventLocationSaved    = "location_saved"
	EventLocationUpdate   = "location_update"
	EventRouteStarted     = "route_started"
	EventRouteCompleted   = "route_completed"
	EventGPSToggled       = "gps_toggled"
	EventTechGPSChanged   = "tech_gps_changed"
	EventJobStatusChanged = "job_status_changed"
	EventAllTechnicians   = "all_technicians"
	EventAllLocations     = "all_locations"
	EventActiveRoutes     = "active_routes"
	EventJobRoute         = "job_route"
	EventLocationHistory  = "location_history"
	EventTrackingError    = "tracking_error"
)

// Envelope wraps every message in both directions
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// outbound is the marshalled form of Envelope
type outbound struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// FlexibleID accepts "42" or 42 and always holds a string
type FlexibleID string

func (id *FlexibleID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*id = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = FlexibleID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id must be a string or a number")
	}
	if _, err := strconv.ParseFloat(n.String(), 64); err != nil {
		return fmt.Errorf("id must be a string or a number")
	}
	*id = FlexibleID(n.String())
	return nil
}

func (id FlexibleID) String() string {
	return string(id)
}

type JoinTechPayload struct {
	TechnicianID FlexibleID `json:"technician_id" validate:"required"`
}

// UpdateLocationPayload leaves coordinate checks to the engine, which runs
// them after the tracking check
type UpdateLocationPayload struct {
	TechnicianID FlexibleID `json:"technician_id" validate:"required"`
	Lat          *float64   `json:"lat"`
	Lng          *float64   `json:"lng"`
	JobID        FlexibleID `json:"job_id,omitempty"`
}

type RoutePayload struct {
	TechnicianID FlexibleID `json:"technician_id" validate:"required"`
	JobID        FlexibleID `json:"job_id" validate:"required"`
	Lat          *float64   `json:"lat" validate:"required,min=-90,max=90"`
	Lng          *float64   `json:"lng" validate:"required,min=-180,max=180"`
}

type ToggleGPSPayload struct {
	TechnicianID FlexibleID `json:"technician_id" validate:"required"`
	Enabled      *bool      `json:"enabled" validate:"required"`
	Lat          *float64   `json:"lat,omitempty" validate:"omitempty,min=-90,max=90"`
	Lng          *float64   `json:"lng,omitempty" validate:"omitempty,min=-180,max=180"`
}

type JobRouteRequest struct {
	JobID FlexibleID `json:"job_id" validate:"required"`
}

type HistoryRequest struct {
	TechnicianID FlexibleID `json:"technician_id" validate:"required"`
	Limit        int        `json:"limit,omitempty" validate:"omitempty,min=1"`
}

type ErrorPayload struct {
	Message string `json:"message"`
	Event   string `json:"event,omitempty"`
}

// decoder parses and validates inbound payloads
type decoder struct {
	validate *validator.Validate
}

func newDecoder() *decoder {
	return &decoder{validate: validator.New()}
}

// decode unmarshals data into v and runs struct validation
func (d *decoder) decode(data json.RawMessage, v interface{}) error {
	if len(bytes.TrimSpace(data)) == 0 {
		data = json.RawMessage("{}")
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: malformed payload: %v", tracking.ErrValidation, err)
	}
	if err := d.validate.Struct(v); err != nil {
		return validationError(err)
	}
	return nil
}

// decodeID accepts either {"<field>": id} or a bare id as the payload
func (d *decoder) decodeID(data json.RawMessage, v interface{}, bare *FlexibleID) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] != '{' {
		if err := json.Unmarshal(trimmed, bare); err != nil {
			return fmt.Errorf("%w: malformed id: %v", tracking.ErrValidation, err)
		}
		if *bare == "" {
			return fmt.Errorf("%w: id is required", tracking.ErrValidation)
		}
		return nil
	}
	return d.decode(data, v)
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", tracking.ErrValidation, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", jsonName(fe.Field())))
		case "min", "max":
			msgs = append(msgs, fmt.Sprintf("%s is out of range", jsonName(fe.Field())))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid", jsonName(fe.Field())))
		}
	}
	return fmt.Errorf("%w: %s", tracking.ErrValidation, strings.Join(msgs, ", "))
}

var fieldNames = map[string]string{
	"TechnicianID": "technician_id",
	"JobID":        "job_id",
	"Lat":          "lat",
	"Lng":          "lng",
	"Enabled":      "enabled",
	"Limit":        "limit",
}

func jsonName(field string) string {
	if name, ok := fieldNames[field]; ok {
		return name
	}
	return strings.ToLower(field)
}
