package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"techtrack-backend/internal/snapshot"
	"techtrack-backend/internal/tracking"
)

// eventTimeout bounds one handler. It is detached from the connection, so a
// disconnect never cancels a mutation half way.
const eventTimeout = 10 * time.Second

type handlerFunc func(ctx context.Context, c *Client, data json.RawMessage) error

// Dispatcher routes inbound events to their handler
type Dispatcher struct {
	engine       *tracking.Engine
	snapshots    *snapshot.Service
	hub          *Hub
	decoder      *decoder
	historyLimit int
	handlers     map[string]handlerFunc
	log          zerolog.Logger
}

func NewDispatcher(engine *tracking.Engine, snapshots *snapshot.Service, hub *Hub, historyLimit int, log zerolog.Logger) *Dispatcher {
	if historyLimit <= 0 {
		historyLimit = snapshot.ChannelHistoryLimit
	}
	d := &Dispatcher{
		engine:       engine,
		snapshots:    snapshots,
		hub:          hub,
		decoder:      newDecoder(),
		historyLimit: historyLimit,
		log:          log.With().Str("component", "dispatch").Logger(),
	}
	d.handlers = map[string]handlerFunc{
		EventPing:                  d.handlePing,
		EventJoinTech:              d.handleJoinTech,
		EventJoinAdmin:             d.handleJoinAdmin,
		EventUpdateLocation:        d.handleUpdateLocation,
		EventStartRoute:            d.handleStartRoute,
		EventEndRoute:              d.handleEndRoute,
		EventToggleGPS:             d.handleToggleGPS,
		EventRequestAllTechnicians: d.handleAllTechnicians,
		EventRequestAllLocations:   d.handleAllLocations,
		EventRequestActiveRoutes:   d.handleActiveRoutes,
		EventRequestJobRoute:       d.handleJobRoute,
		EventRequestHistory:        d.handleHistory,
	}
	return d
}

// Dispatch runs the handler for env. Any error becomes a tracking_error
// unicast; the connection stays open.
func (d *Dispatcher) Dispatch(c *Client, env Envelope) {
	handler, ok := d.handlers[env.Type]
	if !ok {
		c.Send(EventTrackingError, ErrorPayload{Message: fmt.Sprintf("Unknown event type: %s", env.Type), Event: env.Type})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()

	if err := handler(ctx, c, env.Data); err != nil {
		event := d.log.Warn()
		if tracking.StatusCode(err) >= 500 {
			event = d.log.Error()
		}
		event.Err(err).Str("client_id", c.ID).Str("event", env.Type).Msg("❌ Tracking event failed")
		c.Send(EventTrackingError, ErrorPayload{Message: tracking.PublicMessage(err), Event: env.Type})
	}
}

func (d *Dispatcher) handlePing(ctx context.Context, c *Client, _ json.RawMessage) error {
	c.Send(EventPong, map[string]interface{}{"timestamp": time.Now().UTC().Format(time.RFC3339)})
	return nil
}

func (d *Dispatcher) handleJoinTech(ctx context.Context, c *Client, data json.RawMessage) error {
	var p JoinTechPayload
	if err := d.decoder.decodeID(data, &p, &p.TechnicianID); err != nil {
		return err
	}
	room := TechRoom(p.TechnicianID.String())
	d.hub.Join(room, c)
	d.log.Info().Str("client_id", c.ID).Str("tech_id", p.TechnicianID.String()).Msg("👷 Technician joined room")
	c.Send(EventJoined, map[string]string{"room": room})
	return nil
}

func (d *Dispatcher) handleJoinAdmin(ctx context.Context, c *Client, _ json.RawMessage) error {
	d.hub.Join(AdminRoom, c)
	d.log.Info().Str("client_id", c.ID).Msg("🛰️  Admin joined monitoring room")
	c.Send(EventJoined, map[string]string{"room": AdminRoom})
	return nil
}

func (d *Dispatcher) handleUpdateLocation(ctx context.Context, c *Client, data json.RawMessage) error {
	var p UpdateLocationPayload
	if err := d.decoder.decode(data, &p); err != nil {
		return err
	}
	res, err := d.engine.AcceptLocationPayload(ctx, p.TechnicianID.String(), p.Lat, p.Lng, p.JobID.String())
	if err != nil {
		return err
	}
	d.hub.BroadcastToRoom(AdminRoom, EventLocationUpdate, &res.Update)
	c.Send(EventLocationSaved, res.Saved)
	return nil
}

func (d *Dispatcher) handleStartRoute(ctx context.Context, c *Client, data json.RawMessage) error {
	var p RoutePayload
	if err := d.decoder.decode(data, &p); err != nil {
		return err
	}
	event, err := d.engine.StartRoute(ctx, p.TechnicianID.String(), p.JobID.String(), *p.Lat, *p.Lng)
	if err != nil {
		return err
	}
	d.hub.BroadcastToRoom(AdminRoom, EventRouteStarted, event)
	c.Send(EventRouteStarted, event)
	return nil
}

func (d *Dispatcher) handleEndRoute(ctx context.Context, c *Client, data json.RawMessage) error {
	var p RoutePayload
	if err := d.decoder.decode(data, &p); err != nil {
		return err
	}
	event, err := d.engine.EndRoute(ctx, p.TechnicianID.String(), p.JobID.String(), *p.Lat, *p.Lng)
	if err != nil {
		return err
	}
	d.hub.BroadcastToRoom(AdminRoom, EventRouteCompleted, event)
	c.Send(EventRouteCompleted, event)
	return nil
}

func (d *Dispatcher) handleToggleGPS(ctx context.Context, c *Client, data json.RawMessage) error {
	var p ToggleGPSPayload
	if err := d.decoder.decode(data, &p); err != nil {
		return err
	}
	res, err := d.engine.ToggleGPS(ctx, p.TechnicianID.String(), *p.Enabled, p.Lat, p.Lng)
	if err != nil {
		return err
	}
	d.hub.BroadcastToRoom(AdminRoom, EventTechGPSChanged, &res.Changed)
	c.Send(EventGPSToggled, res.Toggled)
	return nil
}

func (d *Dispatcher) handleAllTechnicians(ctx context.Context, c *Client, _ json.RawMessage) error {
	techs, err := d.snapshots.AllTechnicians(ctx)
	if err != nil {
		return err
	}
	c.Send(EventAllTechnicians, techs)
	return nil
}

func (d *Dispatcher) handleAllLocations(ctx context.Context, c *Client, _ json.RawMessage) error {
	techs, err := d.snapshots.TrackedTechnicians(ctx)
	if err != nil {
		return err
	}
	c.Send(EventAllLocations, techs)
	return nil
}

func (d *Dispatcher) handleActiveRoutes(ctx context.Context, c *Client, _ json.RawMessage) error {
	routes, err := d.snapshots.ActiveRoutes(ctx)
	if err != nil {
		return err
	}
	c.Send(EventActiveRoutes, routes)
	return nil
}

func (d *Dispatcher) handleJobRoute(ctx context.Context, c *Client, data json.RawMessage) error {
	var p JobRouteRequest
	if err := d.decoder.decodeID(data, &p, &p.JobID); err != nil {
		return err
	}
	route, err := d.snapshots.JobRoute(ctx, p.JobID.String())
	if err != nil {
		return err
	}
	c.Send(EventJobRoute, map[string]interface{}{
		"job_id":           p.JobID.String(),
		"route":            route.Route,
		"location_history": route.LocationHistory,
	})
	return nil
}

func (d *Dispatcher) handleHistory(ctx context.Context, c *Client, data json.RawMessage) error {
	var p HistoryRequest
	if err := d.decoder.decodeID(data, &p, &p.TechnicianID); err != nil {
		return err
	}
	history, err := d.snapshots.History(ctx, p.TechnicianID.String(), p.Limit, d.historyLimit)
	if err != nil {
		return err
	}
	c.Send(EventLocationHistory, map[string]interface{}{
		"technician_id": p.TechnicianID.String(),
		"history":       history,
	})
	return nil
}
