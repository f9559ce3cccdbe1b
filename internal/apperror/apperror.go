// Package apperror defines the typed errors surfaced by handlers and the
// single responder that maps them onto HTTP responses.
package apperror

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Kind classifies an error for status-code mapping.
type Kind int

const (
	KindInternal Kind = iota // unexpected failure, message suppressed
	KindValidation
	KindNotFound
	KindUnauthorized
	KindForbidden
	KindConflict
)

// Error is an operational error safe to surface to clients, except for
// KindInternal whose message is replaced with a generic one.
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

func (e *Error) Unwrap() error { return e.Err }

// Status maps the error kind to an HTTP status code.
func (e *Error) Status() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func New(kind Kind, msg string) *Error { return &Error{Kind: kind, Message: msg} }

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

func Validation(msg string) *Error   { return New(KindValidation, msg) }
func NotFound(msg string) *Error     { return New(KindNotFound, msg) }
func Unauthorized(msg string) *Error { return New(KindUnauthorized, msg) }
func Forbidden(msg string) *Error    { return New(KindForbidden, msg) }
func Conflict(msg string) *Error     { return New(KindConflict, msg) }

func Internal(msg string, err error) *Error { return Wrap(KindInternal, msg, err) }

// FromDB translates a storage error into a typed error: missing rows become
// NotFound, unique-constraint violations become Conflict, everything else is
// Internal.
func FromDB(err error, resource string) *Error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Newf(KindNotFound, "no %s found with that ID", resource)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch {
		case pqErr.Code == "23505":
			return Newf(KindConflict, "duplicate value for a unique %s field", resource)
		// Request-supplied filter values can reach the database with the
		// wrong type; bad casts (class 22) and operator mismatches (42883)
		// are client errors, not server faults.
		case pqErr.Code.Class() == "22" || pqErr.Code == "42883":
			return Newf(KindValidation, "invalid value in %s query", resource)
		}
	}
	return Internal("database error", err)
}

type errorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Respond is the centralized error responder. Operational errors expose their
// message with their mapped status; anything else (including KindInternal) is
// logged in full and reported as a generic 500.
func Respond(w http.ResponseWriter, err error) {
	var appErr *Error
	if errors.As(err, &appErr) && appErr.Kind != KindInternal {
		writeError(w, appErr.Status(), appErr.Message)
		return
	}
	log.Printf("[error] %v", err)
	writeError(w, http.StatusInternalServerError, "Something went wrong")
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	state := "error"
	if status < http.StatusInternalServerError {
		state = "fail"
	}
	_ = json.NewEncoder(w).Encode(errorResponse{Status: state, Message: msg})
}
