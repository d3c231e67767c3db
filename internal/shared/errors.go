package shared

import (
	"fmt"
	"io/fs"
	"strings"
)

var (
	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors
	ErrAuthFailed       = fmt.Errorf("authentication failed")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrTimeout          = fmt.Errorf("operation timed out")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)

// ConfigurationError reports missing credentials or an invalid setting.
//
// It is always fatal and is returned before any remote call.
type ConfigurationError struct {
	Missing []string // credential keys that were not set
	Field   string
	Reason  string
}

func (e *ConfigurationError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("%v: %s", ErrMissingCredentials, strings.Join(e.Missing, ", "))
	}
	return fmt.Sprintf("%v: %s %s", ErrInvalidConfig, e.Field, e.Reason)
}

func (e *ConfigurationError) Unwrap() error {
	if len(e.Missing) > 0 {
		return ErrMissingCredentials
	}
	return ErrInvalidConfig
}

// SourceNotFoundError is returned when the ranking file does not exist.
type SourceNotFoundError struct {
	Path string
	Err  error
}

func (e *SourceNotFoundError) Error() string {
	return fmt.Sprintf("ranking file %q does not exist", e.Path)
}

func (e *SourceNotFoundError) Unwrap() error {
	if e.Err == nil {
		return fs.ErrNotExist
	}
	return e.Err
}

// MalformedLineError is returned for a ranking line that is neither skippable nor a rank<TAB>title row.
type MalformedLineError struct {
	Line   int
	Text   string
	Reason string
}

func (e *MalformedLineError) Error() string {
	return fmt.Sprintf("%v: line %d: %s: %q", ErrInvalidInput, e.Line, e.Reason, e.Text)
}

func (e *MalformedLineError) Unwrap() error { return ErrInvalidInput }

// ResolutionError wraps a failed search for a single title. The run continues.
type ResolutionError struct {
	Title string
	Query string
	Err   error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("error searching for %q: %v", e.Title, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// BatchSubmissionError wraps a failed append of one batch. The run continues.
type BatchSubmissionError struct {
	Index int // 1-based
	Size  int
	Err   error
}

func (e *BatchSubmissionError) Error() string {
	return fmt.Sprintf("error adding batch %d (%d tracks): %v", e.Index, e.Size, e.Err)
}

func (e *BatchSubmissionError) Unwrap() error { return e.Err }
