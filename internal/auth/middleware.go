package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/surveyforge/surveyforge/internal/models"
)

// principalKey is the echo context key for the authenticated user
const principalKey = "auth_principal"

// UserStore loads users during token validation
type UserStore interface {
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

// authErrorBody is the 401 JSON body with a machine-readable errorType
type authErrorBody struct {
	Error     string `json:"error"`
	ErrorType string `json:"errorType"`
}

func unauthorized(c echo.Context, message string, errType ErrorType) error {
	return c.JSON(http.StatusUnauthorized, authErrorBody{
		Error:     message,
		ErrorType: string(errType),
	})
}

// bearerToken extracts the token from an Authorization: Bearer header
func bearerToken(c echo.Context) string {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// authenticate validates the bearer token and loads the active user
func authenticate(c echo.Context, tm *TokenManager, store UserStore) (*models.User, *ValidationError) {
	token := bearerToken(c)
	if token == "" {
		return nil, &ValidationError{Type: ErrorTypeMissing}
	}

	claims, err := tm.Validate(token)
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			return nil, verr
		}
		return nil, &ValidationError{Type: ErrorTypeMalformed, Err: err}
	}

	user, err := store.GetUserByEmail(c.Request().Context(), claims.Email)
	if err != nil {
		return nil, &ValidationError{Type: ErrorTypeUser, Err: err}
	}
	if !user.IsActive {
		return nil, &ValidationError{Type: ErrorTypeDisabled}
	}

	return user, nil
}

// RequireAuth rejects requests without a valid token for an active user.
// The authenticated user is stored in the echo context.
func RequireAuth(tm *TokenManager, store UserStore) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user, verr := authenticate(c, tm, store)
			if verr != nil {
				return unauthorized(c, "Authentication required", verr.Type)
			}
			c.Set(principalKey, user)
			return next(c)
		}
	}
}

// OptionalAuth attaches the authenticated user to the context when a valid
// token is present and continues anonymously otherwise. A token that is
// present but invalid is still rejected.
func OptionalAuth(tm *TokenManager, store UserStore) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if bearerToken(c) == "" {
				return next(c)
			}
			user, verr := authenticate(c, tm, store)
			if verr != nil {
				return unauthorized(c, "Invalid credentials", verr.Type)
			}
			c.Set(principalKey, user)
			return next(c)
		}
	}
}

// RequireAdmin rejects authenticated requests from non-admin users. Must run
// after RequireAuth.
func RequireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user := CurrentUser(c)
			if user == nil {
				return unauthorized(c, "Authentication required", ErrorTypeMissing)
			}
			if user.Role != models.RoleAdmin {
				return c.JSON(http.StatusForbidden, map[string]string{
					"error": "Admin privileges required",
				})
			}
			return next(c)
		}
	}
}

// CurrentUser returns the authenticated user from the echo context, or nil
// for anonymous requests
func CurrentUser(c echo.Context) *models.User {
	user, _ := c.Get(principalKey).(*models.User)
	return user
}
