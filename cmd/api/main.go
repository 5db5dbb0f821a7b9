package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/surveyforge/surveyforge/internal/api"
	"github.com/surveyforge/surveyforge/internal/auth"
	"github.com/surveyforge/surveyforge/internal/db"
	"github.com/surveyforge/surveyforge/internal/service"
	"github.com/surveyforge/surveyforge/internal/telemetry"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// tokenManagerFromEnv builds the JWT token manager from JWT_SECRET and
// JWT_TTL_MINUTES. The secret has no default: a missing or short secret is a
// startup failure, never a baked-in fallback.
func tokenManagerFromEnv() (*auth.TokenManager, error) {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	ttl := 60 * time.Minute
	if minutes := os.Getenv("JWT_TTL_MINUTES"); minutes != "" {
		parsed, err := strconv.Atoi(minutes)
		if err != nil || parsed < 1 {
			return nil, fmt.Errorf("invalid JWT_TTL_MINUTES: %q", minutes)
		}
		ttl = time.Duration(parsed) * time.Minute
	}

	return auth.NewTokenManager([]byte(secret), ttl)
}

// setupTracing configures the OTLP trace exporter when an endpoint is set.
// Returns a shutdown function; a no-op when tracing is disabled.
func setupTracing(ctx context.Context) (func(context.Context) error, error) {
	if os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") == "" {
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := otlptracehttp.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(tp)

	return tp.Shutdown, nil
}

func main() {
	// Register Prometheus metrics
	telemetry.RegisterMetrics()

	ctx := context.Background()

	shutdownTracing, err := setupTracing(ctx)
	if err != nil {
		log.Fatalf("Failed to set up tracing: %v", err)
	}

	// Get database configuration from environment
	dbConfig, err := db.ConfigFromEnv()
	if err != nil {
		log.Fatalf("Failed to load database config: %v", err)
	}

	// Connect to database
	database, err := db.Connect(ctx, dbConfig)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close(database)

	log.Println("Connected to database successfully")

	// Run startup migrations
	if err := db.Migrate(ctx, database); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Create database queries instance
	queries := db.NewQueries(database)

	tokens, err := tokenManagerFromEnv()
	if err != nil {
		log.Fatalf("Failed to configure token manager: %v", err)
	}

	// Create services
	userService := service.NewUserService(queries, tokens)
	surveyService := service.NewSurveyService(queries)
	statsService := service.NewStatsService(queries)
	cleanupService := service.NewCleanupService(queries)

	// Create Echo instance
	e := echo.New()

	// Basic middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(otelecho.Middleware("surveyforge-api"))

	// Create handlers
	handlers := api.NewHandlers(userService, surveyService, statsService, cleanupService, tokens)
	healthHandlers := api.NewHealthHandlers(database)

	// Setup routes (includes metrics and request ID middleware)
	api.SetupRoutes(e, handlers, healthHandlers, tokens, queries)

	// Start server with graceful shutdown
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// Start server in a goroutine
	go func() {
		addr := fmt.Sprintf(":%s", port)
		log.Printf("Starting server on %s", addr)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			e.Logger.Fatal("shutting down the server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		e.Logger.Fatal(err)
	}

	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Printf("Failed to shut down tracing: %v", err)
	}

	log.Println("Server shutdown complete")
}
