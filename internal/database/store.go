package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"techtrack-backend/internal/tracking"
)

// Postgres error codes the store gives meaning to
const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

// Store is the Postgres implementation of tracking.Store and snapshot.Reader.
// Every method is a single statement; atomicity comes from the row it touches.
type Store struct {
	db *sqlx.DB
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: ping: %v", tracking.ErrStoreFailure, err)
	}
	return nil
}

// translate maps driver errors onto tracking error kinds
func translate(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", tracking.ErrNotFound, what)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqUniqueViolation:
			// CreateRoute maps its own unique violation to ErrRouteAlreadyOpen
			return fmt.Errorf("%w: %s: %s already exists", tracking.ErrValidation, what, pqErr.Constraint)
		case pqForeignKeyViolation:
			return fmt.Errorf("%w: %s references a missing row", tracking.ErrNotFound, what)
		}
	}
	return fmt.Errorf("%w: failed to %s: %v", tracking.ErrStoreFailure, what, err)
}
