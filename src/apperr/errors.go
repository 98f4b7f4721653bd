package apperr

import (
	"errors"
	"net/http"
)

// Kind classifies an error for the response envelope and status code.
type Kind string

const (
	KindInternal         Kind = "internal"
	KindNotAuthenticated Kind = "not_authenticated"
	KindNotFound         Kind = "not_found"
	KindInvalidInput     Kind = "invalid_input"
	KindAlreadyFollowing Kind = "already_following"
	KindAlreadyConnected Kind = "already_connected"
	KindRequestPending   Kind = "request_pending"
	KindRateLimited      Kind = "rate_limited"
	KindEmptyMessage     Kind = "empty_message"
	KindUpstreamFailure  Kind = "upstream_failure"
)

// Error is the error type returned by services. Message is safe to show to
// the caller, Err is kept for logs.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on Kind so callers can write errors.Is(err, apperr.ErrNotFound).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Sentinels for errors.Is comparisons.
var (
	ErrNotAuthenticated = New(KindNotAuthenticated, "Not authenticated")
	ErrNotFound         = New(KindNotFound, "Not found")
	ErrInvalidInput     = New(KindInvalidInput, "Invalid input")
	ErrAlreadyFollowing = New(KindAlreadyFollowing, "You are already following this user")
	ErrAlreadyConnected = New(KindAlreadyConnected, "You are already connected with this user")
	ErrRequestPending   = New(KindRequestPending, "Connection request is already pending")
	ErrRateLimited      = New(KindRateLimited, "You have sent more than 20 connection requests in the last 24 hours")
	ErrEmptyMessage     = New(KindEmptyMessage, "Message must contain text or an attachment")
	ErrUpstreamFailure  = New(KindUpstreamFailure, "Upstream service failure")
)

// KindOf returns the Kind of err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// MessageOf returns the caller-facing message for err.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "Internal server error"
}

// HTTPStatus maps a Kind to a status code.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindNotAuthenticated:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindInvalidInput, KindEmptyMessage:
		return http.StatusBadRequest
	case KindAlreadyFollowing, KindAlreadyConnected, KindRequestPending:
		return http.StatusConflict
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindUpstreamFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
