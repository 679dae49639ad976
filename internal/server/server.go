/*
Package server implements the application's network transport layer.
It initializes the HTTP server, configures timeouts, and wires the
services behind the router.
*/
package server

import (
	"fmt"
	"net/http"
	"time"

	"MealVibe/internal/auth"
	"MealVibe/internal/database"
	"MealVibe/internal/meals"
	"MealVibe/internal/wizardapi"
)

// Deps are the services the HTTP layer routes to.
type Deps struct {
	Port     int
	DB       database.Service
	Auth     *auth.Service
	Meals    *meals.Handler
	Wizard   *wizardapi.Handler
	Provider string // name of the AI provider, for /health
}

// Server defines the configuration and dependencies for the HTTP service.
type Server struct {
	// port specifies the TCP port the server will listen on.
	port int

	// db provides access to the user store.
	db database.Service

	auth     *auth.Service
	meals    *meals.Handler
	wizard   *wizardapi.Handler
	provider string

	startTime time.Time
}

// NewServer returns a configured *http.Server with production-ready
// network timeouts.
func NewServer(d Deps) *http.Server {
	port := d.Port
	if port == 0 {
		port = 8080
	}

	newApp := &Server{
		port:      port,
		db:        d.DB,
		auth:      d.Auth,
		meals:     d.Meals,
		wizard:    d.Wizard,
		provider:  d.Provider,
		startTime: time.Now(),
	}

	// Generation can take a while on slow providers, hence the long write timeout.
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", newApp.port),
		Handler:      newApp.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second,
	}

	return server
}
