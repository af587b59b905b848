package llm

import (
	"errors"
	"fmt"
)

// ModelError is the base type for all errors returned by this package.
type ModelError struct {
	Message string
	Cause   error
}

func (e *ModelError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *ModelError) Unwrap() error {
	return e.Cause
}

// ProviderError is an error attributed to the model provider, carrying the
// HTTP status code when one was received.
type ProviderError struct {
	ModelError
	Provider   string
	StatusCode int
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("[%s] %s (status=%d)", e.Provider, e.ModelError.Error(), e.StatusCode)
}

// AuthenticationError indicates the API key was missing or rejected.
type AuthenticationError struct {
	ProviderError
}

// AccessDeniedError indicates the key is valid but lacks permission.
type AccessDeniedError struct {
	ProviderError
}

// InvalidRequestError indicates the request was malformed or rejected by
// validation. Not retryable.
type InvalidRequestError struct {
	ProviderError
}

// NotFoundError indicates the model or endpoint does not exist.
type NotFoundError struct {
	ProviderError
}

// ContextLengthError indicates the conversation exceeded the model's
// context window.
type ContextLengthError struct {
	ProviderError
}

// RateLimitError indicates the provider throttled the request. RetryAfter
// is the provider-suggested wait in seconds, zero when not supplied.
type RateLimitError struct {
	ProviderError
	RetryAfter float64
}

// RequestTimeoutError indicates the provider timed out serving the request.
type RequestTimeoutError struct {
	ProviderError
}

// ServerError indicates a 5xx or overloaded response from the provider.
type ServerError struct {
	ProviderError
}

// NetworkError indicates the request never produced an HTTP response.
type NetworkError struct {
	ModelError
}

// AbortError indicates the caller's context was cancelled.
type AbortError struct {
	ModelError
}

func newProviderError(provider string, statusCode int, message string, cause error) ProviderError {
	return ProviderError{
		ModelError: ModelError{Message: message, Cause: cause},
		Provider:   provider,
		StatusCode: statusCode,
	}
}

// ErrorFromStatusCode maps an HTTP status code from a provider response to
// the matching typed error.
func ErrorFromStatusCode(provider string, statusCode int, message string, cause error) error {
	pe := newProviderError(provider, statusCode, message, cause)
	switch {
	case statusCode == 400 || statusCode == 422:
		return &InvalidRequestError{ProviderError: pe}
	case statusCode == 401:
		return &AuthenticationError{ProviderError: pe}
	case statusCode == 403:
		return &AccessDeniedError{ProviderError: pe}
	case statusCode == 404:
		return &NotFoundError{ProviderError: pe}
	case statusCode == 408:
		return &RequestTimeoutError{ProviderError: pe}
	case statusCode == 413:
		return &ContextLengthError{ProviderError: pe}
	case statusCode == 429:
		return &RateLimitError{ProviderError: pe}
	case statusCode >= 500:
		return &ServerError{ProviderError: pe}
	default:
		return &pe
	}
}

// IsRetryable reports whether err is transient and worth retrying. Rate
// limits, server errors, timeouts, and network failures are retryable;
// validation, authentication, and abort errors are not.
func IsRetryable(err error) bool {
	var rateLimit *RateLimitError
	if errors.As(err, &rateLimit) {
		return true
	}
	var server *ServerError
	if errors.As(err, &server) {
		return true
	}
	var timeout *RequestTimeoutError
	if errors.As(err, &timeout) {
		return true
	}
	var network *NetworkError
	if errors.As(err, &network) {
		return true
	}
	return false
}
