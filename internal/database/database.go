// Package database stores MealVibe accounts and their saved diet and
// allergy preferences.
package database

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"MealVibe/internal/config"
	"MealVibe/internal/models"
)

var (
	ErrNotFound   = errors.New("user not found")
	ErrEmailTaken = errors.New("email already registered")
)

// User is a stored account. PasswordHash never leaves the server.
type User struct {
	ID             string
	Name           string
	Email          string
	PasswordHash   string
	SavedDiet      string
	SavedAllergies []string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Profile returns the public view of u.
func (u *User) Profile() models.UserProfile {
	allergies := slices.Clone(u.SavedAllergies)
	if allergies == nil {
		allergies = []string{}
	}
	return models.UserProfile{
		ID:             u.ID,
		Name:           u.Name,
		Email:          u.Email,
		SavedDiet:      u.SavedDiet,
		SavedAllergies: allergies,
	}
}

// Service represents a service that interacts with a database.
type Service interface {
	// Health returns a map of health status information.
	// The keys and values in the map are service-specific.
	Health() map[string]string

	// Close terminates the database connection.
	Close()

	// CreateUser inserts u. It returns ErrEmailTaken when the email exists.
	CreateUser(ctx context.Context, u *User) error

	GetUserByID(ctx context.Context, id string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)

	// UpdatePreferences replaces the saved diet and allergies of a user.
	UpdatePreferences(ctx context.Context, id, diet string, allergies []string) (*User, error)
}

// NewService opens the store selected by cfg.StoreDriver.
func NewService(ctx context.Context, cfg *config.Config) (Service, error) {
	switch cfg.StoreDriver {
	case config.DriverMemory, "":
		return NewMemoryService(), nil
	case config.DriverSQLite:
		return NewSQLiteService(cfg.SQLitePath)
	case config.DriverPostgres:
		return NewPostgresService(ctx, cfg.Postgres.DSN())
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}

// NormalizeEmail is the form emails are stored and looked up in.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
