package types

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for common failure modes.
var (
	ErrUnauthorized    = errors.New("unauthorized")
	ErrNotFound        = errors.New("not found")
	ErrBlocked         = errors.New("blocked by anti-automation defenses")
	ErrEmptyResponse   = errors.New("empty response body")
	ErrInvalidURL      = errors.New("invalid URL")
	ErrNoStrategy      = errors.New("no strategy succeeded")
	ErrRatingRange     = errors.New("rating out of range [0,5]")
	ErrUncoercible     = errors.New("value cannot be coerced")
	ErrSnapshotMissing = errors.New("snapshot file not found")
)

// Exit codes used by the CLI.
const (
	ExitOK          = 0
	ExitParse       = 1
	ExitAcquisition = 2
	ExitValidation  = 3
)

// ConfigurationError reports a missing or invalid request parameter or
// credential. It is raised before any network activity.
type ConfigurationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return "configuration error: " + e.Message
	}
	return fmt.Sprintf("configuration error (%s): %s", e.Field, e.Message)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// DiscoveryError means no navigation strategy resolved a reviews page.
type DiscoveryError struct {
	Source  Source
	Company string
	Tried   []string
	Err     error
}

func (e *DiscoveryError) Error() string {
	msg := fmt.Sprintf("product page not found for %q on %s", e.Company, e.Source)
	if len(e.Tried) > 0 {
		msg += " (tried " + strings.Join(e.Tried, ", ") + ")"
	}
	return msg
}

func (e *DiscoveryError) Unwrap() error { return e.Err }

// ExtractionEnvironmentError means the browser runtime cannot start here.
type ExtractionEnvironmentError struct {
	Err  error
	Hint string
}

func (e *ExtractionEnvironmentError) Error() string {
	return fmt.Sprintf("browser automation unavailable: %v", e.Err)
}

func (e *ExtractionEnvironmentError) Unwrap() error { return e.Err }

// maxErrorBody caps the response body kept on a RemoteServiceError.
const maxErrorBody = 512

// RemoteServiceError is a non-success answer from the data API or the
// crawling service.
type RemoteServiceError struct {
	Service string
	Status  int
	Body    string
	Err     error
}

// NewRemoteServiceError builds the error, truncating body.
func NewRemoteServiceError(service string, status int, body []byte, err error) *RemoteServiceError {
	b := string(body)
	if len(b) > maxErrorBody {
		b = b[:maxErrorBody] + "..."
	}
	return &RemoteServiceError{Service: service, Status: status, Body: b, Err: err}
}

func (e *RemoteServiceError) Error() string {
	msg := fmt.Sprintf("%s returned status %d", e.Service, e.Status)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

func (e *RemoteServiceError) Unwrap() error { return e.Err }

// Unauthorized reports whether the service rejected the credentials.
func (e *RemoteServiceError) Unauthorized() bool { return errors.Is(e.Err, ErrUnauthorized) }

// RecordValidationError is a per-record normalization failure. It is counted,
// never propagated past the normalizer.
type RecordValidationError struct {
	Field  string
	Value  any
	Reason error
}

func (e *RecordValidationError) Error() string {
	return fmt.Sprintf("invalid %s %v: %v", e.Field, e.Value, e.Reason)
}

func (e *RecordValidationError) Unwrap() error { return e.Reason }

// FetchError wraps errors that occur during fetching.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetch error for %s (status %d): %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch error for %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseError wraps errors that occur during parsing.
type ParseError struct {
	URL      string
	Selector string
	Err      error
}

func (e *ParseError) Error() string {
	if e.Selector == "" {
		return fmt.Sprintf("parse error for %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("parse error for %s (selector=%q): %v", e.URL, e.Selector, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// StorageError wraps errors that occur during storage/export.
type StorageError struct {
	Backend string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error (%s): %v", e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// ExitCode maps an invocation error onto the CLI exit codes.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var (
		cfgErr    *ConfigurationError
		parseErr  *ParseError
		recordErr *RecordValidationError
	)
	switch {
	case errors.As(err, &cfgErr), errors.As(err, &parseErr):
		return ExitParse
	case errors.As(err, &recordErr):
		return ExitValidation
	}
	return ExitAcquisition
}

// Hint returns the remediation hint carried by err, if any.
func Hint(err error) string {
	var envErr *ExtractionEnvironmentError
	if errors.As(err, &envErr) {
		return envErr.Hint
	}
	return ""
}

// Chain lists the messages of err and every error it wraps, outermost first.
func Chain(err error) []string {
	var chain []string
	for err != nil {
		chain = append(chain, err.Error())
		err = errors.Unwrap(err)
	}
	return chain
}

// PipelineError wraps errors that occur in the record pipeline.
type PipelineError struct {
	Stage string
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("pipeline error at stage %q: %v", e.Stage, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }
