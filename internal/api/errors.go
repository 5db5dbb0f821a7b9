package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/surveyforge/surveyforge/internal/service"
	"go.opentelemetry.io/otel/trace"
)

// getTraceID extracts the trace ID from the OpenTelemetry span context
// Returns empty string if no active span exists
func getTraceID(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() {
		return ""
	}
	return span.SpanContext().TraceID().String()
}

// InternalServerError returns a sanitized 500 error response to the client
// and logs the full error details server-side with the trace ID for debugging
//
// Client sees: {"error": "Failed to retrieve surveys", "details": "Reference: abc123..."}
// Server logs: [abc123...] Failed to retrieve surveys: pq: connection refused
func InternalServerError(c echo.Context, userMessage string, err error) error {
	traceID := getTraceID(c.Request().Context())

	// Log the FULL error server-side with trace ID
	if traceID != "" {
		c.Logger().Errorf("[%s] %s: %v", traceID, userMessage, err)
	} else {
		c.Logger().Errorf("%s: %v", userMessage, err)
	}

	// Build sanitized response for client
	response := ErrorResponse{
		Error: userMessage,
	}

	// Include trace ID if available (safe to show - it's just a reference)
	if traceID != "" {
		response.Details = fmt.Sprintf("Reference: %s", traceID)
	}

	return c.JSON(http.StatusInternalServerError, response)
}

// ValidationError returns a 400 error response with full details
// Validation errors are safe to show because they're controlled messages
func ValidationError(c echo.Context, message string, details string) error {
	return c.JSON(http.StatusBadRequest, ErrorResponse{
		Error:   message,
		Details: details,
	})
}

// serviceStatusCodes maps service error codes to HTTP status codes
var serviceStatusCodes = map[service.ErrorCode]int{
	service.ErrorInvalid:      http.StatusBadRequest,
	service.ErrorUnauthorized: http.StatusUnauthorized,
	service.ErrorForbidden:    http.StatusForbidden,
	service.ErrorNotFound:     http.StatusNotFound,
	service.ErrorConflict:     http.StatusConflict,
}

// ServiceErrorResponse translates a service-layer error into an HTTP
// response. Typed domain errors carry controlled messages and map to 4xx;
// anything else is an internal error and gets the sanitized 500 treatment.
func ServiceErrorResponse(c echo.Context, userMessage string, err error) error {
	if se, ok := service.AsServiceError(err); ok {
		status, known := serviceStatusCodes[se.Code]
		if !known {
			status = http.StatusInternalServerError
		}
		return c.JSON(status, ErrorResponse{Error: se.Message})
	}
	return InternalServerError(c, userMessage, err)
}
