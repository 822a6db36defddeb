// Package ai holds the error taxonomy shared by the STT, LLM and TTS
// provider packages.
package ai

import "errors"

var (
	// ErrRecoverable indicates a temporary provider failure that may succeed
	// if retried: network timeout, rate limiting, transient service errors.
	ErrRecoverable = errors.New("recoverable AI provider error")

	// ErrFatal indicates a permanent provider failure that will not succeed
	// if retried: invalid API key, unsupported format, malformed request.
	ErrFatal = errors.New("fatal AI provider error")
)

// IsRecoverable reports whether err should be retried.
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrRecoverable)
}

// IsFatal reports whether err is permanent.
func IsFatal(err error) bool {
	return errors.Is(err, ErrFatal)
}

// ProviderError wraps an underlying provider error with its retry class.
type ProviderError struct {
	Underlying error
	Retryable  bool
	Message    string
}

func (e *ProviderError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Underlying.Error()
}

func (e *ProviderError) Unwrap() error {
	if e.Retryable {
		return ErrRecoverable
	}
	return ErrFatal
}

// NewRecoverableError wraps err as retryable.
func NewRecoverableError(err error, message string) error {
	return &ProviderError{Underlying: err, Retryable: true, Message: message}
}

// NewFatalError wraps err as permanent.
func NewFatalError(err error, message string) error {
	return &ProviderError{Underlying: err, Retryable: false, Message: message}
}
