package errors

import (
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/colonq/clonk/internal/client/output"
)

// Exit codes for different error scenarios
const (
	ExitSuccess          = 0 // Success
	ExitGeneralError     = 1 // General error (network failure, server 500, unknown error)
	ExitInvalidArguments = 2 // Invalid arguments/usage (missing name, blank values)
	ExitNotFound         = 3 // Resource not found (404)
	ExitConflict         = 4 // Conflict (409) - e.g., code already redeemed
	ExitAuthError        = 5 // Authentication error (401, no stored credentials, no session cookie)
	ExitPermissionDenied = 6 // Permission denied (403)
)

// ExitError carries the process exit code alongside the error that caused it
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	case e.Err != nil:
		return e.Err.Error()
	default:
		return e.Message
	}
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// WithCode wraps err with a message and an exit code. err may be nil.
func WithCode(code int, err error, message string) error {
	return &ExitError{Code: code, Message: message, Err: err}
}

// MapHTTPStatusToExitCode maps HTTP status codes to exit codes
func MapHTTPStatusToExitCode(statusCode int) int {
	switch statusCode {
	case http.StatusUnauthorized:
		return ExitAuthError
	case http.StatusForbidden:
		return ExitPermissionDenied
	case http.StatusNotFound:
		return ExitNotFound
	case http.StatusConflict:
		return ExitConflict
	case http.StatusBadRequest:
		return ExitInvalidArguments
	default:
		if statusCode >= 400 && statusCode < 500 {
			return ExitInvalidArguments
		}
		return ExitGeneralError
	}
}

// FromHTTPStatus builds an ExitError for a failed HTTP response
func FromHTTPStatus(statusCode int, err error) error {
	message := ""
	// Add specific suggestions for auth errors
	if statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden {
		message = "session rejected. Try running 'clonk auth login' to authenticate"
	}
	return &ExitError{Code: MapHTTPStatusToExitCode(statusCode), Message: message, Err: err}
}

// CodeOf returns the exit code carried by err, or ExitGeneralError
func CodeOf(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if stderrors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitGeneralError
}

// Report prints the error message and returns the exit code for err
func Report(w io.Writer, err error) int {
	if msg := err.Error(); msg != "" {
		output.PrintError(w, "Error: "+msg)
	}
	return CodeOf(err)
}

// Exit prints the error message and exits with the appropriate code
func Exit(w io.Writer, err error) {
	os.Exit(Report(w, err))
}
