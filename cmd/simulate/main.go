// Command simulate drives the realtime channel the way a technician's phone
// does: join, switch GPS on, stream a path and print every reply.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	flag "github.com/spf13/pflag"

	"techtrack-backend/internal/logger"
)

type point struct {
	Lat float64
	Lng float64
}

// Default path: a short drive through downtown Dallas
var defaultPath = []point{
	{32.7767, -96.7970},
	{32.7790, -96.8003},
	{32.7812, -96.8040},
	{32.7835, -96.8071},
	{32.7851, -96.8102},
}

type message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

func main() {
	server := flag.String("url", "ws://localhost:8080/ws", "realtime endpoint")
	token := flag.String("token", "", "bearer token appended as ?token=")
	techID := flag.String("tech", "", "technician id (required)")
	jobID := flag.String("job", "", "job id; when set the path is driven as a route (start_route ... end_route)")
	pathFlag := flag.String("path", "", `semicolon separated "lat,lng" points (default: built-in Dallas path)`)
	interval := flag.Duration("interval", 2*time.Second, "delay between points")
	keep := flag.Bool("keep-tracking", false, "leave GPS on when the path is done")
	flag.Parse()

	log := logger.New("info", "dev")

	if *techID == "" {
		flag.Usage()
		os.Exit(2)
	}

	path := defaultPath
	if *pathFlag != "" {
		p, err := parsePath(*pathFlag)
		if err != nil {
			log.Fatal().Err(err).Msg("❌ Invalid --path")
		}
		path = p
	}

	endpoint, err := url.Parse(*server)
	if err != nil {
		log.Fatal().Err(err).Msg("❌ Invalid --url")
	}
	if *token != "" {
		q := endpoint.Query()
		q.Set("token", *token)
		endpoint.RawQuery = q.Encode()
	}

	conn, _, err := websocket.DefaultDialer.Dial(endpoint.String(), nil)
	if err != nil {
		log.Fatal().Err(err).Str("url", *server).Msg("❌ Failed to connect")
	}
	defer conn.Close()
	log.Info().Str("url", *server).Msg("🔌 Connected")

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, frame, err := conn.ReadMessage()
			if err != nil {
				return
			}
			// The server batches queued messages into one frame
			for _, line := range bytes.Split(frame, []byte{'\n'}) {
				if len(bytes.TrimSpace(line)) > 0 {
					fmt.Printf("⬅️  %s\n", line)
				}
			}
		}
	}()

	send := func(eventType string, data interface{}) {
		b, err := json.Marshal(message{Type: eventType, Data: data})
		if err != nil {
			log.Fatal().Err(err).Msg("❌ Failed to encode message")
		}
		fmt.Printf("➡️  %s\n", b)
		if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
			log.Fatal().Err(err).Msg("❌ Failed to send message")
		}
	}

	send("join_tech", map[string]string{"technician_id": *techID})
	send("toggle_gps", map[string]interface{}{
		"technician_id": *techID,
		"enabled":       true,
		"lat":           path[0].Lat,
		"lng":           path[0].Lng,
	})

	for i, p := range path {
		time.Sleep(*interval)

		payload := map[string]interface{}{
			"technician_id": *techID,
			"lat":           p.Lat,
			"lng":           p.Lng,
		}
		if *jobID != "" {
			payload["job_id"] = *jobID
		}

		switch {
		case *jobID != "" && i == 0:
			send("start_route", payload)
		case *jobID != "" && i == len(path)-1:
			send("end_route", payload)
		default:
			send("update_location", payload)
		}
	}

	if !*keep {
		time.Sleep(*interval)
		send("toggle_gps", map[string]interface{}{"technician_id": *techID, "enabled": false})
	}

	// Give the last replies a moment before closing
	time.Sleep(time.Second)
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	select {
	case <-done:
	case <-time.After(2 * time.Second):
	}
	log.Info().Int("points", len(path)).Msg("✅ Simulation finished")
}

func parsePath(raw string) ([]point, error) {
	var path []point
	for _, pair := range strings.Split(raw, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		parts := strings.Split(pair, ",")
		if len(parts) != 2 {
			return nil, fmt.Errorf("point %q must be lat,lng", pair)
		}
		lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		if err != nil {
			return nil, fmt.Errorf("point %q: %w", pair, err)
		}
		lng, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("point %q: %w", pair, err)
		}
		path = append(path, point{Lat: lat, Lng: lng})
	}
	if len(path) == 0 {
		return nil, fmt.Errorf("path is empty")
	}
	return path, nil
}
