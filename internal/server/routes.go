package server

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"

	"MealVibe/internal/meals"
)

func (s *Server) RegisterRoutes() http.Handler {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	// base64 photos are large
	e.Use(middleware.BodyLimit("12M"))

	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"https://*", "http://*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposeHeaders:    []string{"X-Request-ID", meals.FallbackHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	e.Use(LoggerMiddleware)

	e.GET("/health", s.healthHandler)

	api := e.Group("/api")
	if s.auth != nil {
		api.POST("/auth", s.auth.Handler)
		api.GET("/profile", s.auth.ProfileHandler, s.auth.JwtAuthMiddleware)
	}
	if s.meals != nil {
		api.POST("/recommendations", s.meals.Recommendations)
		api.POST("/scan-fridge", s.meals.ScanFridge)
	}

	if s.wizard != nil {
		s.wizard.Register(e.Group("/wizard"))
	}

	return e
}

// LoggerMiddleware tags every request with an id and stores a logger
// carrying it under "logger".
func LoggerMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		requestID := c.Request().Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set("request_id", requestID)
		c.Response().Header().Set("X-Request-ID", requestID)

		logger := log.With().Str("request_id", requestID).Logger()

		c.Set("logger", &logger)

		return next(c)
	}
}
