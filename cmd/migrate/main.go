package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"

	"techtrack-backend/internal/database"
	"techtrack-backend/internal/logger"
)

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, using environment variables")
	}

	dbURL := flag.String("database-url", os.Getenv("DATABASE_URL"), "Postgres connection string (default $DATABASE_URL)")
	seed := flag.Bool("seed", false, "insert the demo admin, technicians and jobs when the database is empty")
	level := flag.String("log-level", "info", "log level")
	flag.Parse()

	log := logger.New(*level, "dev")

	if *dbURL == "" {
		log.Fatal().Msg("DATABASE_URL environment variable not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	db, err := database.Connect(ctx, *dbURL, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	if err := database.Migrate(ctx, db, log); err != nil {
		log.Fatal().Err(err).Msg("Migration failed")
	}

	if *seed {
		if err := database.Seed(ctx, db, log); err != nil {
			log.Fatal().Err(err).Msg("Seeding failed")
		}
	}

	var result struct {
		Admins      int `db:"admins"`
		Technicians int `db:"technicians"`
		Tracking    int `db:"tracking"`
		OpenJobs    int `db:"open_jobs"`
		OpenRoutes  int `db:"open_routes"`
		Samples     int `db:"samples"`
	}

	query := `
		SELECT
			(SELECT COUNT(*) FROM admins) AS admins,
			(SELECT COUNT(*) FROM technicians) AS technicians,
			(SELECT COUNT(*) FROM technicians WHERE is_tracking) AS tracking,
			(SELECT COUNT(*) FROM jobs WHERE status <> 'COMPLETED') AS open_jobs,
			(SELECT COUNT(*) FROM technician_routes WHERE completed_at IS NULL) AS open_routes,
			(SELECT COUNT(*) FROM location_history) AS samples
	`
	if err := db.GetContext(ctx, &result, query); err != nil {
		log.Fatal().Err(err).Msg("Failed to query summary")
	}

	fmt.Println("\n============================================================")
	fmt.Println("MIGRATION SUMMARY")
	fmt.Println("============================================================")
	fmt.Printf("Admins:                  %d\n", result.Admins)
	fmt.Printf("Technicians:             %d\n", result.Technicians)
	fmt.Printf("Technicians tracking:    %d\n", result.Tracking)
	fmt.Printf("Open jobs:               %d\n", result.OpenJobs)
	fmt.Printf("Open routes:             %d\n", result.OpenRoutes)
	fmt.Printf("Location samples:        %d\n", result.Samples)
	fmt.Println("============================================================")
}
