package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
)

func Connect(ctx context.Context, dbURL string, log zerolog.Logger) (*sqlx.DB, error) {
	log.Info().Msg("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	log.Info().Msg("🔌 DATABASE CONNECTION ATTEMPT")
	log.Info().Msgf("   📍 Database URL length: %d characters", len(dbURL))
	log.Info().Msg("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")

	log.Info().Msg("🔄 Step 1: Attempting sqlx.Connect()...")
	db, err := sqlx.ConnectContext(ctx, "postgres", dbURL)
	if err != nil {
		log.Error().Err(err).Str("error_type", fmt.Sprintf("%T", err)).Msg("❌ DATABASE CONNECTION FAILED AT sqlx.Connect()")
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Info().Msg("✅ Step 1 Complete: sqlx.Connect() succeeded")

	log.Info().Msg("🔄 Step 2: Testing connection with Ping()...")
	if err := db.PingContext(ctx); err != nil {
		log.Error().Err(err).Str("error_type", fmt.Sprintf("%T", err)).Msg("❌ DATABASE CONNECTION FAILED AT Ping()")
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	log.Info().Msg("✅ Step 2 Complete: Ping() succeeded")

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	log.Info().Msg("✅ DATABASE CONNECTION SUCCESSFUL")
	return db, nil
}

var migrations = []string{
	// Administrators (accounts managed elsewhere)
	`CREATE TABLE IF NOT EXISTS admins (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		password TEXT NOT NULL,
		name TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	// Technician current state, one row per technician
	`CREATE TABLE IF NOT EXISTS technicians (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		password TEXT NOT NULL,
		last_lat DOUBLE PRECISION,
		last_lng DOUBLE PRECISION,
		last_ping TIMESTAMPTZ,
		is_tracking BOOLEAN NOT NULL DEFAULT FALSE,
		status TEXT NOT NULL DEFAULT 'OFFLINE' CHECK(status IN ('OFFLINE', 'ONLINE', 'ON_WAY')),
		current_job_id TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS jobs (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT,
		address TEXT,
		address_lat DOUBLE PRECISION,
		address_lng DOUBLE PRECISION,
		status TEXT NOT NULL DEFAULT 'ASSIGNED' CHECK(status IN ('ASSIGNED', 'ACCEPTED', 'IN_PROGRESS', 'COMPLETED')),
		admin_id TEXT REFERENCES admins(id) ON DELETE SET NULL,
		tech_id TEXT NOT NULL REFERENCES technicians(id) ON DELETE CASCADE,
		accepted_at TIMESTAMPTZ,
		started_at TIMESTAMPTZ,
		completed_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	// technicians and jobs reference each other, so the FK is added afterwards
	`DO $$
	BEGIN
		IF NOT EXISTS (
			SELECT 1 FROM information_schema.table_constraints
			WHERE constraint_name = 'technicians_current_job_id_fkey'
			AND table_name = 'technicians'
		) THEN
			ALTER TABLE technicians ADD CONSTRAINT technicians_current_job_id_fkey
				FOREIGN KEY (current_job_id) REFERENCES jobs(id) ON DELETE SET NULL;
		END IF;
	END $$`,

	// Append-only GPS samples
	`CREATE TABLE IF NOT EXISTS location_history (
		id BIGSERIAL PRIMARY KEY,
		tech_id TEXT NOT NULL REFERENCES technicians(id) ON DELETE CASCADE,
		job_id TEXT REFERENCES jobs(id) ON DELETE SET NULL,
		lat DOUBLE PRECISION NOT NULL,
		lng DOUBLE PRECISION NOT NULL,
		is_start_point BOOLEAN NOT NULL DEFAULT FALSE,
		is_end_point BOOLEAN NOT NULL DEFAULT FALSE,
		recorded_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	// One route per job
	`CREATE TABLE IF NOT EXISTS technician_routes (
		id TEXT PRIMARY KEY,
		job_id TEXT NOT NULL UNIQUE REFERENCES jobs(id) ON DELETE CASCADE,
		tech_id TEXT NOT NULL REFERENCES technicians(id) ON DELETE CASCADE,
		start_lat DOUBLE PRECISION NOT NULL,
		start_lng DOUBLE PRECISION NOT NULL,
		end_lat DOUBLE PRECISION,
		end_lng DOUBLE PRECISION,
		started_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		completed_at TIMESTAMPTZ
	)`,

	`CREATE INDEX IF NOT EXISTS idx_location_history_tech_recorded ON location_history(tech_id, recorded_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_location_history_job_recorded ON location_history(job_id, recorded_at, id)`,
	`CREATE INDEX IF NOT EXISTS idx_jobs_tech_status ON jobs(tech_id, status)`,
	`CREATE INDEX IF NOT EXISTS idx_technician_routes_open ON technician_routes(completed_at) WHERE completed_at IS NULL`,
}

func Migrate(ctx context.Context, db *sqlx.DB, log zerolog.Logger) error {
	for _, migration := range migrations {
		if _, err := db.ExecContext(ctx, migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	log.Info().Int("statements", len(migrations)).Msg("✓ Database migrations completed")
	return nil
}
