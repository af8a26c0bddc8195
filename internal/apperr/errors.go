// Package apperr defines the error markers shared by the conversion pipeline and
// maps them to HTTP status codes.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrValidation       = errors.New("validation error")
	ErrToolExecution    = errors.New("tool execution error")
	ErrTimeout          = errors.New("timeout")
	ErrArtifactNotFound = errors.New("artifact not found")
	ErrParsing          = errors.New("parsing error")
	ErrFilesystem       = errors.New("filesystem error")
)

// Wrap tags err with marker and an operation/message detail. The marker should be
// one of the exported sentinels above; nil falls back to ErrFilesystem.
func Wrap(marker error, operation, message string, err error) error {
	if marker == nil {
		marker = ErrFilesystem
	}
	detail := buildDetail(operation, message)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Timeout reports a tool run that exceeded its deadline. It matches both
// ErrTimeout and ErrToolExecution.
func Timeout(operation string, after fmt.Stringer) error {
	return fmt.Errorf("%w: %w: %s exceeded %s", ErrToolExecution, ErrTimeout, operation, after)
}

// HTTPStatus maps an error to the response status for request-facing failures.
// ErrArtifactNotFound maps to 404; callers that treat a missing artifact as a
// server fault (convert) override it.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrArtifactNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the client-facing text of err: the detail after the marker,
// without the wrapped cause chain prefix.
func Message(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	for _, marker := range []error{ErrToolExecution, ErrTimeout, ErrValidation, ErrArtifactNotFound, ErrParsing, ErrFilesystem} {
		msg = strings.TrimPrefix(msg, marker.Error()+": ")
	}
	return msg
}

func buildDetail(operation, message string) string {
	parts := make([]string, 0, 2)
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "failure"
	}
	return strings.Join(parts, ": ")
}
