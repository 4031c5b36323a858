// Package httperr carries the error taxonomy for the API and the single
// translator that turns handler errors into HTTP responses.
package httperr

import (
	"encoding/json"
	"errors"
	"net/http"
)

// Error pairs an HTTP status with a client-facing message. Err, when set,
// holds the underlying cause and is only ever exposed in development mode.
type Error struct {
	Status  int
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

// Validation is a 400: missing or malformed input.
func Validation(message string) *Error {
	return &Error{Status: http.StatusBadRequest, Message: message}
}

// Authentication is a 401: missing/invalid token or bad password.
func Authentication(message string) *Error {
	return &Error{Status: http.StatusUnauthorized, Message: message}
}

// Authorization is a 403: the caller is not allowed to touch the resource.
func Authorization(message string) *Error {
	return &Error{Status: http.StatusForbidden, Message: message}
}

// NotFound is a 404.
func NotFound(message string) *Error {
	return &Error{Status: http.StatusNotFound, Message: message}
}

// Internal is a 500 wrapping a remote-dependency or filesystem failure.
func Internal(message string, err error) *Error {
	return &Error{Status: http.StatusInternalServerError, Message: message, Err: err}
}

type errorBody struct {
	Message    string `json:"message"`
	ErrorStack string `json:"errorStack,omitempty"`
}

// Write renders err as the API's error body. Errors that are not *Error are
// treated as internal. The underlying cause is included only in development.
func Write(w http.ResponseWriter, err error, development bool) {
	var he *Error
	if !errors.As(err, &he) {
		he = &Error{Status: http.StatusInternalServerError, Message: "Internal Server Error", Err: err}
	}
	body := errorBody{Message: he.Message}
	if development && he.Err != nil {
		body.ErrorStack = he.Err.Error()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.Status)
	_ = json.NewEncoder(w).Encode(body)
}

// HandlerFunc is an http handler that reports failures by returning an error
// instead of writing the response itself.
type HandlerFunc func(http.ResponseWriter, *http.Request) error

// Handler adapts fn into a http.HandlerFunc, funneling every returned error
// through Write.
func Handler(fn HandlerFunc, development bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := fn(w, r); err != nil {
			Write(w, err, development)
		}
	}
}
