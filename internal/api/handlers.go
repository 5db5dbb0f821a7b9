package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/surveyforge/surveyforge/internal/auth"
	"github.com/surveyforge/surveyforge/internal/models"
	"github.com/surveyforge/surveyforge/internal/service"
	"github.com/surveyforge/surveyforge/internal/telemetry"
)

// Handlers holds the HTTP handler dependencies
type Handlers struct {
	users   *service.UserService
	surveys *service.SurveyService
	stats   *service.StatsService
	cleanup *service.CleanupService
	tokens  *auth.TokenManager
}

// NewHandlers creates a new Handlers instance
func NewHandlers(users *service.UserService, surveys *service.SurveyService, stats *service.StatsService, cleanup *service.CleanupService, tokens *auth.TokenManager) *Handlers {
	return &Handlers{
		users:   users,
		surveys: surveys,
		stats:   stats,
		cleanup: cleanup,
		tokens:  tokens,
	}
}

// authResponse builds the token envelope returned by register and login
func (h *Handlers) authResponse(result *service.AuthResult) AuthResponse {
	return AuthResponse{
		Token:     result.Token,
		ExpiresIn: int64(h.tokens.TTL().Seconds()),
		User:      ToUserResponse(result.User),
	}
}

// Register handles POST /api/v1/auth/register
func (h *Handlers) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return ValidationError(c, "Invalid request body", err.Error())
	}

	result, err := h.users.Register(c.Request().Context(), req.FirstName, req.LastName, req.Email, req.Password)
	if err != nil {
		return ServiceErrorResponse(c, "Failed to register user", err)
	}

	return c.JSON(http.StatusCreated, h.authResponse(result))
}

// Login handles POST /api/v1/auth/login
func (h *Handlers) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return ValidationError(c, "Invalid request body", err.Error())
	}

	result, err := h.users.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return ServiceErrorResponse(c, "Failed to log in", err)
	}

	return c.JSON(http.StatusOK, h.authResponse(result))
}

// Me handles GET /api/v1/auth/me
func (h *Handlers) Me(c echo.Context) error {
	user := auth.CurrentUser(c)
	if user == nil {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Authentication required"})
	}
	return c.JSON(http.StatusOK, ToUserResponse(user))
}

// DeactivateMe handles DELETE /api/v1/auth/me. The account is soft-deleted;
// its surveys are picked up by the cleanup sweep.
func (h *Handlers) DeactivateMe(c echo.Context) error {
	user := auth.CurrentUser(c)
	if user == nil {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Authentication required"})
	}

	if err := h.users.Deactivate(c.Request().Context(), user.ID); err != nil {
		return ServiceErrorResponse(c, "Failed to deactivate account", err)
	}

	return c.NoContent(http.StatusNoContent)
}

// GetServiceStats handles GET /api/v1/stats
func (h *Handlers) GetServiceStats(c echo.Context) error {
	stats, err := h.stats.ServiceStats(c.Request().Context())
	if err != nil {
		return ServiceErrorResponse(c, "Failed to get service stats", err)
	}
	return c.JSON(http.StatusOK, stats)
}

// surveyIDParam parses the :id route parameter
func surveyIDParam(c echo.Context) (uuid.UUID, error) {
	return uuid.Parse(c.Param("id"))
}

// CreateSurvey handles POST /api/v1/surveys
func (h *Handlers) CreateSurvey(c echo.Context) error {
	var req CreateSurveyRequest
	if err := c.Bind(&req); err != nil {
		return ValidationError(c, "Invalid request body", err.Error())
	}

	survey, err := h.surveys.Create(c.Request().Context(), auth.CurrentUser(c), req.toSurveyInput())
	if err != nil {
		return ServiceErrorResponse(c, "Failed to create survey", err)
	}

	return c.JSON(http.StatusCreated, ToSurveyResponse(survey, true))
}

// ImportSurvey handles POST /api/v1/surveys/import. The definition document
// may be JSON or YAML.
func (h *Handlers) ImportSurvey(c echo.Context) error {
	var req ImportSurveyRequest
	if err := c.Bind(&req); err != nil {
		return ValidationError(c, "Invalid request body", err.Error())
	}
	if req.Definition == "" {
		return ValidationError(c, "Invalid request body", "definition is required")
	}

	survey, err := h.surveys.Import(c.Request().Context(), auth.CurrentUser(c), []byte(req.Definition))
	if err != nil {
		return ServiceErrorResponse(c, "Failed to import survey", err)
	}

	return c.JSON(http.StatusCreated, ToSurveyResponse(survey, true))
}

// ListSurveys handles GET /api/v1/surveys
func (h *Handlers) ListSurveys(c echo.Context) error {
	// Parse pagination parameters
	limit := 20
	offset := 0

	if l := c.QueryParam("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed < 1 || parsed > 100 {
			return ValidationError(c, "Invalid limit", "limit must be between 1 and 100")
		}
		limit = parsed
	}

	if o := c.QueryParam("offset"); o != "" {
		parsed, err := strconv.Atoi(o)
		if err != nil || parsed < 0 {
			return ValidationError(c, "Invalid offset", "offset must not be negative")
		}
		offset = parsed
	}

	items, err := h.surveys.List(c.Request().Context(), limit, offset, auth.CurrentUser(c))
	if err != nil {
		return ServiceErrorResponse(c, "Failed to list surveys", err)
	}

	responses := make([]SurveyListItemResponse, len(items))
	for i, item := range items {
		responses[i] = ToSurveyListItemResponse(item)
	}

	return c.JSON(http.StatusOK, responses)
}

// GetSurvey handles GET /api/v1/surveys/:id
func (h *Handlers) GetSurvey(c echo.Context) error {
	id, err := surveyIDParam(c)
	if err != nil {
		return ValidationError(c, "Invalid survey id", err.Error())
	}

	survey, err := h.surveys.Get(c.Request().Context(), id)
	if err != nil {
		return ServiceErrorResponse(c, "Failed to retrieve survey", err)
	}

	return c.JSON(http.StatusOK, ToSurveyResponse(survey, true))
}

// UpdateSurvey handles PUT /api/v1/surveys/:id. The request replaces the
// survey's metadata and its entire question set.
func (h *Handlers) UpdateSurvey(c echo.Context) error {
	id, err := surveyIDParam(c)
	if err != nil {
		return ValidationError(c, "Invalid survey id", err.Error())
	}

	var req CreateSurveyRequest
	if err := c.Bind(&req); err != nil {
		return ValidationError(c, "Invalid request body", err.Error())
	}

	survey, err := h.surveys.Update(c.Request().Context(), auth.CurrentUser(c), id, req.toSurveyInput())
	if err != nil {
		return ServiceErrorResponse(c, "Failed to update survey", err)
	}

	return c.JSON(http.StatusOK, ToSurveyResponse(survey, true))
}

// DeleteSurvey handles DELETE /api/v1/surveys/:id
func (h *Handlers) DeleteSurvey(c echo.Context) error {
	id, err := surveyIDParam(c)
	if err != nil {
		return ValidationError(c, "Invalid survey id", err.Error())
	}

	if err := h.surveys.Delete(c.Request().Context(), auth.CurrentUser(c), id); err != nil {
		return ServiceErrorResponse(c, "Failed to delete survey", err)
	}

	return c.NoContent(http.StatusNoContent)
}

// TransitionSurvey handles POST /api/v1/surveys/:id/status
func (h *Handlers) TransitionSurvey(c echo.Context) error {
	id, err := surveyIDParam(c)
	if err != nil {
		return ValidationError(c, "Invalid survey id", err.Error())
	}

	var req TransitionRequest
	if err := c.Bind(&req); err != nil {
		return ValidationError(c, "Invalid request body", err.Error())
	}

	survey, err := h.surveys.Transition(c.Request().Context(), auth.CurrentUser(c), id, models.SurveyStatus(req.Status))
	if err != nil {
		return ServiceErrorResponse(c, "Failed to change survey status", err)
	}

	return c.JSON(http.StatusOK, ToSurveyResponse(survey, false))
}

// SubmitResponse handles POST /api/v1/surveys/:id/responses. Authenticated
// respondents are recorded by user ID unless the survey is anonymous. A
// session ID is derived from the request whenever the client supplies none,
// so anonymous surveys also accept logged-in respondents.
func (h *Handlers) SubmitResponse(c echo.Context) error {
	id, err := surveyIDParam(c)
	if err != nil {
		return ValidationError(c, "Invalid survey id", err.Error())
	}

	var req SubmitResponseRequest
	if err := c.Bind(&req); err != nil {
		return ValidationError(c, "Invalid request body", err.Error())
	}

	user := auth.CurrentUser(c)
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = models.GenerateSessionID(id, getClientIP(c), c.Request().UserAgent())
	}

	answers := make([]service.AnswerInput, len(req.Answers))
	for i, a := range req.Answers {
		answers[i] = service.AnswerInput{
			QuestionID: a.QuestionID,
			AnswerText: a.AnswerText,
		}
	}

	result, err := h.surveys.SubmitResponse(c.Request().Context(), id, user, sessionID, answers)
	if err != nil {
		return ServiceErrorResponse(c, "Failed to submit response", err)
	}

	source := "anonymous"
	if user != nil {
		source = "authenticated"
	}
	telemetry.SurveyResponsesTotal.WithLabelValues(source, "matched").Add(float64(result.Recorded - result.Unmatched))
	telemetry.SurveyResponsesTotal.WithLabelValues(source, "fallback").Add(float64(result.Unmatched))

	return c.JSON(http.StatusCreated, SubmitResponseResponse{
		SurveyID:  result.SurveyID,
		Recorded:  result.Recorded,
		Unmatched: result.Unmatched,
	})
}

// GetStatistics handles GET /api/v1/surveys/:id/statistics
func (h *Handlers) GetStatistics(c echo.Context) error {
	id, err := surveyIDParam(c)
	if err != nil {
		return ValidationError(c, "Invalid survey id", err.Error())
	}

	stats, err := h.stats.SurveyStatistics(c.Request().Context(), id)
	if err != nil {
		return ServiceErrorResponse(c, "Failed to compute statistics", err)
	}

	return c.JSON(http.StatusOK, stats)
}

// RunCleanup handles POST /api/v1/admin/cleanup. Categories run
// independently; a partial failure still returns the report, with
// success=false and the failed categories listed.
func (h *Handlers) RunCleanup(c echo.Context) error {
	maxAgeDays := 0
	if d := c.QueryParam("maxAgeDays"); d != "" {
		parsed, err := strconv.Atoi(d)
		if err != nil || parsed < 1 {
			return ValidationError(c, "Invalid maxAgeDays", "maxAgeDays must be a positive integer")
		}
		maxAgeDays = parsed
	}

	report, err := h.cleanup.Sweep(c.Request().Context(), maxAgeDays)
	if err != nil {
		return InternalServerError(c, "Failed to run cleanup sweep", err)
	}

	telemetry.CleanupActionsTotal.WithLabelValues("orphaned").Add(float64(report.OrphanedDeleted))
	telemetry.CleanupActionsTotal.WithLabelValues("inactive_creator").Add(float64(report.InactiveCreatorDeactivated))
	telemetry.CleanupActionsTotal.WithLabelValues("empty").Add(float64(report.EmptyDeactivated))
	telemetry.CleanupActionsTotal.WithLabelValues("stale").Add(float64(report.StaleDeactivated))
	telemetry.CleanupActionsTotal.WithLabelValues("auto_closed").Add(float64(report.AutoClosed))
	telemetry.CleanupActionsTotal.WithLabelValues("auto_activated").Add(float64(report.AutoActivated))

	return c.JSON(http.StatusOK, report)
}

// DBChecker is the database surface the readiness probe needs
type DBChecker interface {
	PingContext(ctx context.Context) error
}

// HealthResponse is the health check response body
type HealthResponse struct {
	Status    string            `json:"status"`
	Service   string            `json:"service"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// HealthHandlers holds health check dependencies
type HealthHandlers struct {
	db DBChecker
}

// NewHealthHandlers creates a new HealthHandlers instance
func NewHealthHandlers(db DBChecker) *HealthHandlers {
	return &HealthHandlers{
		db: db,
	}
}

// Health handles GET /health (liveness)
func (hh *HealthHandlers) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{
		Status:    "healthy",
		Service:   "surveyforge-api",
		Timestamp: time.Now().UTC(),
	})
}

// Readiness handles GET /health/ready and verifies the database is reachable
func (hh *HealthHandlers) Readiness(c echo.Context) error {
	checks := make(map[string]string)
	status := "ready"
	code := http.StatusOK

	if err := hh.db.PingContext(c.Request().Context()); err != nil {
		checks["database"] = "unreachable"
		status = "not ready"
		code = http.StatusServiceUnavailable
	} else {
		checks["database"] = "ok"
	}

	return c.JSON(code, HealthResponse{
		Status:    status,
		Service:   "surveyforge-api",
		Timestamp: time.Now().UTC(),
		Checks:    checks,
	})
}
