package auth

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/surveyforge/surveyforge/internal/models"
)

// mapUserStore is an in-memory UserStore keyed by email
type mapUserStore struct {
	users map[string]*models.User
}

func (s *mapUserStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	user, ok := s.users[email]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

func middlewareFixture(t *testing.T) (*TokenManager, *mapUserStore, *models.User) {
	t.Helper()

	tm, err := NewTokenManager(testSecret, time.Hour)
	require.NoError(t, err)

	user := testUser()
	store := &mapUserStore{users: map[string]*models.User{user.Email: user}}
	return tm, store, user
}

func doRequest(mw echo.MiddlewareFunc, authorization string) (*httptest.ResponseRecorder, *models.User) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authorization != "" {
		req.Header.Set(echo.HeaderAuthorization, authorization)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var seen *models.User
	handler := mw(func(c echo.Context) error {
		seen = CurrentUser(c)
		return c.NoContent(http.StatusOK)
	})
	_ = handler(c)

	return rec, seen
}

func errorType(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["errorType"]
}

func TestRequireAuthValidToken(t *testing.T) {
	tm, store, user := middlewareFixture(t)
	token, err := tm.Issue(user)
	require.NoError(t, err)

	rec, seen := doRequest(RequireAuth(tm, store), "Bearer "+token)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, seen)
	assert.Equal(t, user.ID, seen.ID)
}

func TestRequireAuthMissingToken(t *testing.T) {
	tm, store, _ := middlewareFixture(t)

	rec, _ := doRequest(RequireAuth(tm, store), "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "token_missing", errorType(t, rec))
}

func TestRequireAuthMalformedToken(t *testing.T) {
	tm, store, _ := middlewareFixture(t)

	rec, _ := doRequest(RequireAuth(tm, store), "Bearer garbage")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "token_malformed", errorType(t, rec))
}

func TestRequireAuthUnknownUser(t *testing.T) {
	tm, store, user := middlewareFixture(t)
	token, err := tm.Issue(user)
	require.NoError(t, err)
	delete(store.users, user.Email)

	rec, _ := doRequest(RequireAuth(tm, store), "Bearer "+token)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unknown_user", errorType(t, rec))
}

func TestRequireAuthDisabledAccount(t *testing.T) {
	tm, store, user := middlewareFixture(t)
	token, err := tm.Issue(user)
	require.NoError(t, err)
	user.IsActive = false

	rec, _ := doRequest(RequireAuth(tm, store), "Bearer "+token)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "account_disabled", errorType(t, rec))
}

func TestOptionalAuthAnonymous(t *testing.T) {
	tm, store, _ := middlewareFixture(t)

	rec, seen := doRequest(OptionalAuth(tm, store), "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, seen)
}

func TestOptionalAuthValidToken(t *testing.T) {
	tm, store, user := middlewareFixture(t)
	token, err := tm.Issue(user)
	require.NoError(t, err)

	rec, seen := doRequest(OptionalAuth(tm, store), "Bearer "+token)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, seen)
	assert.Equal(t, user.ID, seen.ID)
}

func TestOptionalAuthRejectsInvalidToken(t *testing.T) {
	// A present-but-bad token is an error, not an anonymous request
	tm, store, _ := middlewareFixture(t)

	rec, _ := doRequest(OptionalAuth(tm, store), "Bearer garbage")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAdmin(t *testing.T) {
	e := echo.New()

	run := func(user *models.User) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		if user != nil {
			c.Set(principalKey, user)
		}
		handler := RequireAdmin()(func(c echo.Context) error {
			return c.NoContent(http.StatusOK)
		})
		_ = handler(c)
		return rec
	}

	t.Run("admin passes", func(t *testing.T) {
		admin := testUser()
		admin.Role = models.RoleAdmin
		assert.Equal(t, http.StatusOK, run(admin).Code)
	})

	t.Run("regular user forbidden", func(t *testing.T) {
		assert.Equal(t, http.StatusForbidden, run(testUser()).Code)
	})

	t.Run("anonymous unauthorized", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, run(nil).Code)
	})
}
