package models

import "time"

// Admin is an administrator account. Accounts are managed outside the
// tracking service; the row exists so jobs can reference who assigned them.
type Admin struct {
	ID        string    `json:"id" db:"id"`
	Email     string    `json:"email" db:"email"`
	Password  string    `json:"-" db:"password"` // Never return password in JSON
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Roles carried in bearer tokens
const (
	RoleAdmin      = "admin"
	RoleTechnician = "technician"
)
