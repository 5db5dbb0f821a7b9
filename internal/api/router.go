package api

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/surveyforge/surveyforge/internal/auth"
)

// SetupRoutes configures all API routes. Authorization is declared per route:
// reading surveys and submitting responses is public, creating requires a
// token, mutating a survey requires its creator or an admin (checked in the
// service layer), and the cleanup sweep is admin-only.
func SetupRoutes(e *echo.Echo, h *Handlers, hh *HealthHandlers, tokens *auth.TokenManager, users auth.UserStore) {
	// Health check and metrics endpoints (no middleware)
	e.GET("/health", hh.Health)
	e.GET("/health/ready", hh.Readiness)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Apply middleware to all other routes
	e.Use(RequestIDMiddleware())
	e.Use(MetricsMiddleware())
	e.Use(SecurityHeadersMiddleware())

	limits := DefaultBodyLimitConfig()
	limiters := NewRateLimiterConfig()

	requireAuth := auth.RequireAuth(tokens, users)
	optionalAuth := auth.OptionalAuth(tokens, users)

	api := e.Group("/api/v1", limiters.GeneralAPI.Middleware(), NewBodyLimitMiddleware(limits.GeneralAPI))

	// Authentication
	authGroup := api.Group("/auth", limiters.Auth.Middleware())
	authGroup.POST("/register", h.Register)
	authGroup.POST("/login", h.Login)
	authGroup.GET("/me", h.Me, requireAuth)
	authGroup.DELETE("/me", h.DeactivateMe, requireAuth)

	// Service totals
	api.GET("/stats", h.GetServiceStats)

	// Survey management
	api.POST("/surveys", h.CreateSurvey, requireAuth, limiters.SurveyMutation.Middleware(), NewBodyLimitMiddleware(limits.SurveyPayload))
	api.POST("/surveys/import", h.ImportSurvey, requireAuth, limiters.SurveyMutation.Middleware(), NewBodyLimitMiddleware(limits.SurveyPayload))
	api.GET("/surveys", h.ListSurveys, optionalAuth)
	api.GET("/surveys/:id", h.GetSurvey)
	api.PUT("/surveys/:id", h.UpdateSurvey, requireAuth, limiters.SurveyMutation.Middleware(), NewBodyLimitMiddleware(limits.SurveyPayload))
	api.DELETE("/surveys/:id", h.DeleteSurvey, requireAuth, limiters.SurveyMutation.Middleware())
	api.POST("/surveys/:id/status", h.TransitionSurvey, requireAuth, limiters.SurveyMutation.Middleware())

	// Response submission and statistics
	api.POST("/surveys/:id/responses", h.SubmitResponse, optionalAuth, limiters.ResponseSubmission.Middleware(), NewBodyLimitMiddleware(limits.ResponseSubmission))
	api.GET("/surveys/:id/statistics", h.GetStatistics)

	// Data hygiene sweep
	api.POST("/admin/cleanup", h.RunCleanup, requireAuth, auth.RequireAdmin())
}
