package apperror

import (
	"errors"
	"net/http"
)

// Kind classifies an application error; each kind maps to one HTTP status at the boundary.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindUnavailable:
		return "unavailable"
	default:
		return "internal"
	}
}

// HTTPStatus returns the status code used when the error crosses the HTTP boundary.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Error is the typed result returned by the auth core.
// Message is safe to show to clients; Err is the internal cause and is never serialized.
type Error struct {
	Kind    Kind
	Reason  string
	Message string
	Details map[string]string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error with the same kind and reason, so wrapped copies
// of a sentinel still satisfy errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Reason == t.Reason
}

// Wrap returns a copy of e carrying cause as the internal error.
func (e *Error) Wrap(cause error) *Error {
	cp := *e
	cp.Err = cause
	return &cp
}

// WithDetails returns a copy of e with per-field details attached.
func (e *Error) WithDetails(details map[string]string) *Error {
	cp := *e
	cp.Details = details
	return &cp
}

func New(kind Kind, reason, message string) *Error {
	return &Error{Kind: kind, Reason: reason, Message: message}
}

// KindOf reports the kind of err, or KindInternal when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Reasons
const (
	ReasonInvalidInput        = "invalid_input"
	ReasonInvalidCredentials  = "invalid_credentials"
	ReasonNoToken             = "no_token"
	ReasonInvalidToken        = "invalid_token"
	ReasonExpiredToken        = "expired_token"
	ReasonUserNotFound        = "user_not_found"
	ReasonInvalidRefreshToken = "invalid_refresh_token"
	ReasonUserExists          = "user_exists"
	ReasonNotOwner            = "not_owner"
	ReasonInternal            = "internal"
	ReasonUnavailable         = "unavailable"
)

var (
	ErrValidation = New(KindValidation, ReasonInvalidInput, "invalid payload")

	ErrInvalidCredentials  = New(KindUnauthorized, ReasonInvalidCredentials, "invalid email or password")
	ErrNoToken             = New(KindUnauthorized, ReasonNoToken, "no token provided")
	ErrInvalidToken        = New(KindUnauthorized, ReasonInvalidToken, "invalid token")
	ErrExpiredToken        = New(KindUnauthorized, ReasonExpiredToken, "token expired")
	ErrTokenUserNotFound   = New(KindUnauthorized, ReasonUserNotFound, "user not found")
	ErrInvalidRefreshToken = New(KindUnauthorized, ReasonInvalidRefreshToken, "invalid refresh token")

	ErrNotOwner = New(KindForbidden, ReasonNotOwner, "you are not allowed to modify this resource")

	ErrUserNotFound = New(KindNotFound, ReasonUserNotFound, "user not found")

	ErrUserExists = New(KindConflict, ReasonUserExists, "user with this email already exists")

	ErrInternal    = New(KindInternal, ReasonInternal, "internal server error")
	ErrUnavailable = New(KindUnavailable, ReasonUnavailable, "service temporarily unavailable, try again")
)
