package service

import "errors"

// ErrorCode classifies service failures for HTTP translation
type ErrorCode string

const (
	ErrorInvalid      ErrorCode = "invalid"
	ErrorForbidden    ErrorCode = "forbidden"
	ErrorNotFound     ErrorCode = "not_found"
	ErrorConflict     ErrorCode = "conflict"
	ErrorUnauthorized ErrorCode = "unauthorized"
)

// ServiceError is a typed error raised on domain invariant violations
type ServiceError struct {
	Code    ErrorCode
	Message string
}

func (e *ServiceError) Error() string { return e.Message }

func NewInvalidError(msg string) error   { return &ServiceError{Code: ErrorInvalid, Message: msg} }
func NewForbiddenError(msg string) error { return &ServiceError{Code: ErrorForbidden, Message: msg} }
func NewNotFoundError(msg string) error  { return &ServiceError{Code: ErrorNotFound, Message: msg} }
func NewConflictError(msg string) error  { return &ServiceError{Code: ErrorConflict, Message: msg} }
func NewUnauthorizedError(msg string) error {
	return &ServiceError{Code: ErrorUnauthorized, Message: msg}
}

// AsServiceError unwraps err into a *ServiceError when possible
func AsServiceError(err error) (*ServiceError, bool) {
	var se *ServiceError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

func hasCode(err error, code ErrorCode) bool {
	se, ok := AsServiceError(err)
	return ok && se.Code == code
}

func IsNotFound(err error) bool     { return hasCode(err, ErrorNotFound) }
func IsConflict(err error) bool     { return hasCode(err, ErrorConflict) }
func IsInvalid(err error) bool      { return hasCode(err, ErrorInvalid) }
func IsForbidden(err error) bool    { return hasCode(err, ErrorForbidden) }
func IsUnauthorized(err error) bool { return hasCode(err, ErrorUnauthorized) }
