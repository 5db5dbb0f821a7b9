package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/surveyforge/surveyforge/internal/auth"
	"github.com/surveyforge/surveyforge/internal/models"
)

// pgUniqueViolation is the postgres error code for unique constraint hits
const pgUniqueViolation = "23505"

// UserStore is the storage surface the user service needs
type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	DeactivateUser(ctx context.Context, id uuid.UUID) error
}

// UserService handles registration, login and account management
type UserService struct {
	store  UserStore
	tokens *auth.TokenManager
	now    func() time.Time
}

// NewUserService creates a UserService
func NewUserService(store UserStore, tokens *auth.TokenManager) *UserService {
	return &UserService{
		store:  store,
		tokens: tokens,
		now:    time.Now,
	}
}

// AuthResult carries the outcome of a successful registration or login
type AuthResult struct {
	Token string
	User  *models.User
}

// Register creates a new user account and issues an access token.
// A duplicate email is a conflict.
func (s *UserService) Register(ctx context.Context, firstName, lastName, email, password string) (*AuthResult, error) {
	firstName = models.SanitizeText(firstName)
	lastName = models.SanitizeText(lastName)
	if firstName == "" || lastName == "" {
		return nil, NewInvalidError("first and last name are required")
	}

	email = models.NormalizeEmail(email)
	if err := models.ValidateEmail(email); err != nil {
		return nil, NewInvalidError(err.Error())
	}

	exists, err := s.store.EmailExists(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if exists {
		return nil, NewConflictError("email is already registered")
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, NewInvalidError(err.Error())
	}

	now := s.now()
	user := &models.User{
		ID:           uuid.New(),
		FirstName:    firstName,
		LastName:     lastName,
		Email:        email,
		PasswordHash: hash,
		Role:         models.RoleUser,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.store.CreateUser(ctx, user); err != nil {
		// Concurrent registration can still hit the unique index
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, NewConflictError("email is already registered")
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	return &AuthResult{Token: token, User: user}, nil
}

// Login verifies credentials and issues an access token. Unknown emails and
// wrong passwords produce the same unauthorized error; deactivated accounts
// are reported distinctly.
func (s *UserService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = models.NormalizeEmail(email)
	if email == "" || strings.TrimSpace(password) == "" {
		return nil, NewInvalidError("email and password are required")
	}

	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, NewUnauthorizedError("invalid credentials")
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if !auth.CheckPassword(user.PasswordHash, password) {
		return nil, NewUnauthorizedError("invalid credentials")
	}

	if !user.IsActive {
		return nil, NewUnauthorizedError("account is disabled")
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	return &AuthResult{Token: token, User: user}, nil
}

// Deactivate soft-deletes a user account
func (s *UserService) Deactivate(ctx context.Context, id uuid.UUID) error {
	if err := s.store.DeactivateUser(ctx, id); err != nil {
		return fmt.Errorf("failed to deactivate user: %w", err)
	}
	return nil
}
