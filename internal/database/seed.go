package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"techtrack-backend/internal/models"
)

// SeedData is the demo dataset shared by the Postgres and memory seeders
type SeedData struct {
	Admins      []models.Admin
	Technicians []models.Technician
	Jobs        []models.Job
}

func strPtr(s string) *string { return &s }
func floatPtr(f float64) *float64 { return &f }

// DemoData builds one admin, two technicians and one ASSIGNED job per technician.
// Passwords are bcrypt hashed.
func DemoData() (*SeedData, error) {
	adminPassword, err := bcrypt.GenerateFromPassword([]byte("admin123"), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	techPassword, err := bcrypt.GenerateFromPassword([]byte("tech123"), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	adminID := uuid.New().String()
	data := &SeedData{
		Admins: []models.Admin{
			{ID: adminID, Email: "admin@techtrack.dev", Password: string(adminPassword), Name: "Admin User"},
		},
		Technicians: []models.Technician{
			{ID: uuid.New().String(), Email: "tech@techtrack.dev", Password: string(techPassword), Name: "Tom Technician", Status: models.StatusOffline},
			{ID: uuid.New().String(), Email: "tech2@techtrack.dev", Password: string(techPassword), Name: "Tina Technician", Status: models.StatusOffline},
		},
	}

	addresses := []struct {
		title, address string
		lat, lng       float64
	}{
		{"Replace water heater", "325 S 1st St, San Jose", 37.3329, -121.8866},
		{"HVAC inspection", "200 E Santa Clara St, San Jose", 37.3361, -121.8869},
	}
	now := time.Now().UTC()
	for i, tech := range data.Technicians {
		a := addresses[i%len(addresses)]
		data.Jobs = append(data.Jobs, models.Job{
			ID:         uuid.New().String(),
			Title:      a.title,
			Address:    strPtr(a.address),
			AddressLat: floatPtr(a.lat),
			AddressLng: floatPtr(a.lng),
			Status:     models.JobAssigned,
			AdminID:    strPtr(adminID),
			TechID:     tech.ID,
			CreatedAt:  now,
		})
	}
	return data, nil
}

// Seed inserts the demo dataset into an empty database
func Seed(ctx context.Context, db *sqlx.DB, log zerolog.Logger) error {
	var count int
	if err := db.GetContext(ctx, &count, "SELECT COUNT(*) FROM technicians"); err != nil {
		return err
	}
	if count > 0 {
		log.Info().Msg("✓ Technicians already seeded, skipping...")
		return nil
	}

	log.Info().Msg("🌱 Seeding demo admin, technicians and jobs...")
	data, err := DemoData()
	if err != nil {
		return err
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, admin := range data.Admins {
		query := `INSERT INTO admins (id, email, password, name) VALUES (:id, :email, :password, :name)`
		if _, err := tx.NamedExecContext(ctx, query, admin); err != nil {
			return fmt.Errorf("failed to seed admin: %w", err)
		}
	}
	for _, tech := range data.Technicians {
		query := `INSERT INTO technicians (id, name, email, password, status) VALUES (:id, :name, :email, :password, :status)`
		if _, err := tx.NamedExecContext(ctx, query, tech); err != nil {
			return fmt.Errorf("failed to seed technician: %w", err)
		}
		log.Info().Msgf("  ✓ Created technician: %s (%s)", tech.Email, tech.ID)
	}
	for _, job := range data.Jobs {
		query := `
			INSERT INTO jobs (id, title, address, address_lat, address_lng, status, admin_id, tech_id, created_at)
			VALUES (:id, :title, :address, :address_lat, :address_lng, :status, :admin_id, :tech_id, :created_at)
		`
		if _, err := tx.NamedExecContext(ctx, query, job); err != nil {
			return fmt.Errorf("failed to seed job: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit seed: %w", err)
	}

	log.Info().Msg("✓ Successfully seeded demo data")
	log.Info().Msg("  📧 Admin:      admin@techtrack.dev / admin123")
	log.Info().Msg("  📧 Technician: tech@techtrack.dev / tech123")
	return nil
}

// Seed loads the demo dataset into an empty memory store
func (m *MemoryStore) Seed(ctx context.Context, log zerolog.Logger) error {
	m.mu.RLock()
	count := len(m.technicians)
	m.mu.RUnlock()
	if count > 0 {
		return nil
	}

	data, err := DemoData()
	if err != nil {
		return err
	}
	for i := range data.Technicians {
		if err := m.CreateTechnician(ctx, &data.Technicians[i]); err != nil {
			return err
		}
		log.Info().Msgf("  ✓ Created technician: %s (%s)", data.Technicians[i].Email, data.Technicians[i].ID)
	}
	for i := range data.Jobs {
		if err := m.CreateJob(ctx, &data.Jobs[i]); err != nil {
			return err
		}
	}
	log.Info().Msg("✓ Seeded memory store with demo data")
	return nil
}
