// Package apperr defines the error kinds shared by services and the HTTP layer.
package apperr

import (
	"errors"
	"net/http"
)

// Kind classifies an error for transport mapping.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindUnauthenticated
	KindForbidden
	KindNotFound
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	default:
		return "internal"
	}
}

var defaultCodes = map[Kind]string{
	KindInternal:        "INTERNAL_ERROR",
	KindValidation:      "VALIDATION_ERROR",
	KindUnauthenticated: "UNAUTHORIZED",
	KindForbidden:       "FORBIDDEN",
	KindNotFound:        "NOT_FOUND",
	KindConflict:        "CONFLICT",
}

// Error is a classified application error.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message == "" {
		return e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an error of the given kind with a machine readable code.
func New(kind Kind, code, message string) *Error {
	if code == "" {
		code = defaultCodes[kind]
	}
	return &Error{Kind: kind, Code: code, Message: message}
}

// Wrap attaches a cause to a classified error.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Code: defaultCodes[kind], Message: message, Err: err}
}

func Validation(message string) *Error      { return New(KindValidation, "", message) }
func Unauthenticated(message string) *Error { return New(KindUnauthenticated, "", message) }
func Forbidden(message string) *Error       { return New(KindForbidden, "", message) }
func NotFound(message string) *Error        { return New(KindNotFound, "", message) }
func Conflict(message string) *Error        { return New(KindConflict, "", message) }

// Internal wraps an unexpected failure. The message is safe to show to clients.
func Internal(message string, err error) *Error {
	return Wrap(KindInternal, message, err)
}

var (
	// ErrAccountBlocked is returned when a blocked user authenticates.
	ErrAccountBlocked = New(KindForbidden, "ACCOUNT_BLOCKED", "Account is blocked")
	// ErrNotApproved is returned when an unapproved user logs in.
	ErrNotApproved = New(KindForbidden, "NOT_APPROVED", "Not approved by Admin")
	// ErrInvalidCredentials is returned when email or password is incorrect.
	ErrInvalidCredentials = New(KindValidation, "INVALID_CREDENTIALS", "Invalid email or password")
	// ErrAdminOnly is returned when a non-admin reaches an admin route.
	ErrAdminOnly = New(KindForbidden, "ADMIN_ONLY", "Access denied: Admins only")
	// ErrNotAuthor is returned when the principal neither owns the resource nor is an admin.
	ErrNotAuthor = New(KindForbidden, "NOT_AUTHOR", "You are not allowed to modify this resource")
)

// KindOf returns the kind of err, KindInternal when unclassified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err is classified as kind.
func Is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// ToErrorResponse converts an HTTPError to ErrorResponse.
func (e *HTTPError) ToErrorResponse() ErrorResponse {
	return ErrorResponse{Message: e.Message, Code: e.Code}
}

// StatusCode maps a kind to its HTTP status.
func StatusCode(kind Kind) int {
	switch kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// MapErrorToHTTP maps domain errors to HTTP errors. Internal errors never leak
// their cause.
func MapErrorToHTTP(err error) *HTTPError {
	var e *Error
	if !errors.As(err, &e) || e.Kind == KindInternal {
		msg := "internal server error"
		if e != nil && e.Message != "" {
			msg = e.Message
		}
		return &HTTPError{StatusCode: http.StatusInternalServerError, Message: msg, Code: defaultCodes[KindInternal]}
	}
	return &HTTPError{StatusCode: StatusCode(e.Kind), Message: e.Message, Code: e.Code}
}
