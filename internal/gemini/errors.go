package gemini

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrAuthentication     = errors.New("gemini: authentication failed")
	ErrNotFound           = errors.New("gemini: resource not found")
	ErrUnsupportedContent = errors.New("gemini: content rejected")
	ErrUnavailable        = errors.New("gemini: service unavailable")
)

// APIError describes a failed upstream call. It unwraps to one of the
// sentinel errors above and, for transport failures, to the cause.
type APIError struct {
	Op         string
	StatusCode int
	Status     string
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	var b strings.Builder
	b.WriteString("gemini ")
	b.WriteString(e.Op)
	if e.StatusCode > 0 {
		fmt.Fprintf(&b, ": http %d", e.StatusCode)
	}
	if e.Status != "" {
		b.WriteString(" ")
		b.WriteString(e.Status)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *APIError) Unwrap() []error {
	errs := []error{sentinelFor(e.StatusCode, e.Status, e.Message)}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func sentinelFor(statusCode int, status, message string) error {
	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden,
		status == "UNAUTHENTICATED" || status == "PERMISSION_DENIED",
		strings.Contains(message, "API key not valid"):
		return ErrAuthentication
	case statusCode == http.StatusNotFound || status == "NOT_FOUND":
		return ErrNotFound
	case statusCode == http.StatusBadRequest || statusCode == http.StatusRequestEntityTooLarge,
		status == "INVALID_ARGUMENT" || status == "FAILED_PRECONDITION":
		return ErrUnsupportedContent
	default:
		return ErrUnavailable
	}
}

// rpcCodeNames maps google.rpc.Code values found in long-running operation
// errors to their canonical names.
var rpcCodeNames = map[int]string{
	1:  "CANCELLED",
	2:  "UNKNOWN",
	3:  "INVALID_ARGUMENT",
	4:  "DEADLINE_EXCEEDED",
	5:  "NOT_FOUND",
	7:  "PERMISSION_DENIED",
	8:  "RESOURCE_EXHAUSTED",
	9:  "FAILED_PRECONDITION",
	13: "INTERNAL",
	14: "UNAVAILABLE",
	16: "UNAUTHENTICATED",
}
