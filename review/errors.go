package review

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures returned by the annotation service.
type ErrorKind string

const (
	KindNotFound      ErrorKind = "not_found"
	KindValidation    ErrorKind = "validation"
	KindAuthorization ErrorKind = "authorization"
	KindServer        ErrorKind = "server"
)

// APIError is a classified failure from the annotation service. The Kind is
// assigned at the API-client boundary so callers never inspect transport
// details to tell a missing record from a real failure.
type APIError struct {
	Kind       ErrorKind
	StatusCode int
	Message    string
	Fields     map[string]string
}

func (e *APIError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Message != "" {
		return fmt.Sprintf("annotation service: %s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("annotation service: %s (http %d)", e.Kind, e.StatusCode)
}

// KindOf returns the taxonomy kind of err. Errors that did not come from
// the service boundary classify as KindServer.
func KindOf(err error) ErrorKind {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindServer
}

// IsNotFound reports whether err represents a missing record, the one
// failure the history fetch treats as an expected, silent condition.
func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}
