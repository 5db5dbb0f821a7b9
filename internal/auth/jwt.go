package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/surveyforge/surveyforge/internal/models"
)

// ErrorType is the machine-readable discriminator carried by 401 responses
type ErrorType string

const (
	ErrorTypeMissing   ErrorType = "token_missing"
	ErrorTypeMalformed ErrorType = "token_malformed"
	ErrorTypeExpired   ErrorType = "token_expired"
	ErrorTypeSignature ErrorType = "token_invalid_signature"
	ErrorTypeUser      ErrorType = "unknown_user"
	ErrorTypeDisabled  ErrorType = "account_disabled"
)

// ValidationError describes why a token was rejected
type ValidationError struct {
	Type ErrorType
	Err  error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Type, e.Err)
	}
	return string(e.Type)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Claims is the validated content of an access token
type Claims struct {
	Email  string
	UserID uuid.UUID
	Role   models.Role
}

// TokenManager issues and validates HMAC-SHA256 access tokens. The signing
// secret and TTL are injected at construction; there is no process-wide
// signing state.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenManager creates a TokenManager with the given secret and token TTL
func NewTokenManager(secret []byte, ttl time.Duration) (*TokenManager, error) {
	if len(secret) < 32 {
		return nil, errors.New("jwt secret must be at least 32 bytes")
	}
	if ttl <= 0 {
		return nil, errors.New("token ttl must be positive")
	}
	return &TokenManager{
		secret: secret,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// Issue creates a signed token for the user: subject is the email, with
// custom claims for user ID and role, and a fixed expiration.
func (tm *TokenManager) Issue(user *models.User) (string, error) {
	now := tm.now()
	claims := jwt.MapClaims{
		"sub":  user.Email,
		"uid":  user.ID.String(),
		"role": string(user.Role),
		"iat":  now.Unix(),
		"exp":  now.Add(tm.ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(tm.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, nil
}

// Validate parses and verifies a token, returning its claims. Failures are
// reported as *ValidationError with a typed discriminator.
func (tm *TokenManager) Validate(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, &ValidationError{Type: ErrorTypeMissing}
	}

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return tm.secret, nil
	}, jwt.WithTimeFunc(tm.now))

	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, &ValidationError{Type: ErrorTypeExpired, Err: err}
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, &ValidationError{Type: ErrorTypeSignature, Err: err}
		default:
			return nil, &ValidationError{Type: ErrorTypeMalformed, Err: err}
		}
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, &ValidationError{Type: ErrorTypeMalformed}
	}

	email, _ := mapClaims["sub"].(string)
	uidStr, _ := mapClaims["uid"].(string)
	roleStr, _ := mapClaims["role"].(string)

	uid, err := uuid.Parse(uidStr)
	if err != nil {
		return nil, &ValidationError{Type: ErrorTypeMalformed, Err: fmt.Errorf("invalid uid claim: %w", err)}
	}

	role := models.Role(roleStr)
	if email == "" || !role.Valid() {
		return nil, &ValidationError{Type: ErrorTypeMalformed, Err: errors.New("missing required claims")}
	}

	return &Claims{Email: email, UserID: uid, Role: role}, nil
}

// TTL returns the configured token lifetime
func (tm *TokenManager) TTL() time.Duration {
	return tm.ttl
}
