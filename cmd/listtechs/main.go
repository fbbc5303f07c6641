package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"

	"techtrack-backend/internal/database"
	"techtrack-backend/internal/logger"
	"techtrack-backend/internal/models"
	"techtrack-backend/internal/snapshot"
)

func main() {
	_ = godotenv.Load()

	dbURL := flag.String("database-url", os.Getenv("DATABASE_URL"), "Postgres connection string (default $DATABASE_URL)")
	trackedOnly := flag.Bool("tracked", false, "only technicians that are tracking or not OFFLINE")
	asJSON := flag.Bool("json", false, "print JSON instead of a table")
	flag.Parse()

	log := logger.New("warn", "dev")

	if *dbURL == "" {
		log.Fatal().Msg("DATABASE_URL environment variable not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := database.Connect(ctx, *dbURL, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	snapshots := snapshot.NewService(database.NewStore(db))

	var techs []models.TechnicianSnapshot
	if *trackedOnly {
		techs, err = snapshots.TrackedTechnicians(ctx)
	} else {
		techs, err = snapshots.AllTechnicians(ctx)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list technicians")
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(techs); err != nil {
			log.Fatal().Err(err).Msg("Failed to encode technicians")
		}
		return
	}

	fmt.Printf("Total technicians: %d\n\n", len(techs))
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSTATUS\tTRACKING\tLAST POSITION\tLAST PING\tJOB")
	for _, t := range techs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%s\t%s\t%s\n",
			t.ID, t.Name, t.Status, t.IsTracking, position(t), ping(t.LastPing), job(t))
	}
	tw.Flush()
}

func position(t models.TechnicianSnapshot) string {
	if t.LastLat == nil || t.LastLng == nil {
		return "-"
	}
	return fmt.Sprintf("%.6f,%.6f", *t.LastLat, *t.LastLng)
}

func ping(at *time.Time) string {
	if at == nil {
		return "never"
	}
	return at.Local().Format(time.RFC3339)
}

func job(t models.TechnicianSnapshot) string {
	if t.ActiveJob == nil {
		return "-"
	}
	return fmt.Sprintf("%s (%s)", t.ActiveJob.Title, t.ActiveJob.Status)
}
