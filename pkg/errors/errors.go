package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrorTypeSession means the browser process died or stopped responding
	ErrorTypeSession ErrorType = "session"
	// ErrorTypeNavigation represents page load failures
	ErrorTypeNavigation ErrorType = "navigation"
	// ErrorTypeExtraction represents failures reading a rendered page
	ErrorTypeExtraction ErrorType = "extraction"
	// ErrorTypeConfiguration represents configuration errors
	ErrorTypeConfiguration ErrorType = "configuration"
	// ErrorTypeSink represents output sink failures
	ErrorTypeSink ErrorType = "sink"
	// ErrorTypeInput represents unusable input data (city lists, prior datasets)
	ErrorTypeInput ErrorType = "input"
)

// ErrElementNotFound is returned when a selector matches nothing.
var ErrElementNotFound = stderrors.New("element not found")

// ScrapeError represents a scraper-specific error
type ScrapeError struct {
	Type     ErrorType
	Provider string
	Message  string
	Err      error
	Time     time.Time
}

// Error implements the error interface
func (e *ScrapeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s - %v", e.Type, e.Provider, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Type, e.Provider, e.Message)
}

// Unwrap returns the underlying error
func (e *ScrapeError) Unwrap() error {
	return e.Err
}

// IsRetryable returns true if the error is retryable after a session restart
func (e *ScrapeError) IsRetryable() bool {
	return e.Type == ErrorTypeSession
}

// New creates a new ScrapeError
func New(errType ErrorType, provider, message string, err error) *ScrapeError {
	return &ScrapeError{
		Type:     errType,
		Provider: provider,
		Message:  message,
		Err:      err,
		Time:     time.Now(),
	}
}

// NewSession creates a new session error
func NewSession(provider, message string, err error) *ScrapeError {
	return New(ErrorTypeSession, provider, message, err)
}

// NewNavigation creates a new navigation error
func NewNavigation(provider, message string, err error) *ScrapeError {
	return New(ErrorTypeNavigation, provider, message, err)
}

// NewExtraction creates a new extraction error
func NewExtraction(provider, message string, err error) *ScrapeError {
	return New(ErrorTypeExtraction, provider, message, err)
}

// NewConfiguration creates a new configuration error
func NewConfiguration(message string, err error) *ScrapeError {
	return New(ErrorTypeConfiguration, "", message, err)
}

// NewSink creates a new sink error
func NewSink(sink, message string, err error) *ScrapeError {
	return New(ErrorTypeSink, sink, message, err)
}

// NewInput creates a new input error
func NewInput(message string, err error) *ScrapeError {
	return New(ErrorTypeInput, "", message, err)
}

// TypeOf returns the type of the first ScrapeError in err's chain.
func TypeOf(err error) (ErrorType, bool) {
	var se *ScrapeError
	if stderrors.As(err, &se) {
		return se.Type, true
	}
	return "", false
}

// IsSessionFatal reports whether err means the browser session is gone.
func IsSessionFatal(err error) bool {
	t, ok := TypeOf(err)
	return ok && t == ErrorTypeSession
}

// IsConfiguration reports whether err is an unrecoverable configuration problem.
func IsConfiguration(err error) bool {
	t, ok := TypeOf(err)
	return ok && (t == ErrorTypeConfiguration || t == ErrorTypeInput)
}
