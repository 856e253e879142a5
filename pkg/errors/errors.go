// Package errors defines the error taxonomy of the SOAP issued-token proxy.
// Every error carries a machine-readable Code that identifies its category and a
// Reason that identifies the specific failure, so callers can match with errors.Is
// against the predefined sentinels even after details or causes are attached.
package errors

import (
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
)

// Code identifies an error category
type Code string

const (
	// CodeConfiguration marks missing or invalid configuration. Never retried.
	CodeConfiguration Code = "configuration_error"

	// CodeTokenAcquisition marks a failure to obtain a token from the token source.
	CodeTokenAcquisition Code = "token_acquisition_error"

	// CodeTokenFormat marks a token string that no registered reader understands.
	CodeTokenFormat Code = "token_format_error"

	// CodeTokenConversion marks a token that cannot be written to the wire.
	CodeTokenConversion Code = "token_conversion_error"

	// CodeTransport marks failures raised by the transport stack.
	CodeTransport Code = "transport_error"

	// CodeChannelState marks operations attempted on a channel or factory in the wrong state.
	CodeChannelState Code = "channel_state_error"
)

// ================================================================================
// AppError
// ================================================================================

// AppError represents a structured application error
type AppError struct {
	Code    Code
	Reason  string
	Message string
	Details map[string]string
	cause   error
}

// Error implements the error interface
func (e *AppError) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	if len(e.Details) > 0 {
		keys := make([]string, 0, len(e.Details))
		for k := range e.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString(" (")
		for i, k := range keys {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s=%s", k, e.Details[k])
		}
		b.WriteString(")")
	}
	if e.cause != nil {
		b.WriteString(": ")
		b.WriteString(e.cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause error
func (e *AppError) Unwrap() error {
	return e.cause
}

// Is matches any AppError with the same Code and Reason, ignoring details and cause.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Reason == t.Reason
}

// WithError returns a copy of the error with cause attached
func (e *AppError) WithError(cause error) *AppError {
	c := e.clone()
	c.cause = cause
	return c
}

// WithDetail returns a copy of the error with an additional detail
func (e *AppError) WithDetail(key, value string) *AppError {
	c := e.clone()
	c.Details[key] = value
	return c
}

// WithMessage returns a copy of the error with a replaced message
func (e *AppError) WithMessage(format string, args ...interface{}) *AppError {
	c := e.clone()
	c.Message = fmt.Sprintf(format, args...)
	return c
}

func (e *AppError) clone() *AppError {
	details := make(map[string]string, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	return &AppError{
		Code:    e.Code,
		Reason:  e.Reason,
		Message: e.Message,
		Details: details,
		cause:   e.cause,
	}
}

// New creates a new AppError
func New(code Code, reason, message string) *AppError {
	return &AppError{Code: code, Reason: reason, Message: message}
}

// ================================================================================
// Predefined Errors
// ================================================================================

var (
	// ErrInvalidEndpoint is returned when a proxy configuration has no endpoint.
	ErrInvalidEndpoint = New(CodeConfiguration, "invalid_endpoint", "proxy endpoint must not be empty")

	// ErrUnknownProxyConfiguration is returned when no configuration is registered for a key.
	ErrUnknownProxyConfiguration = New(CodeConfiguration, "unknown_proxy_configuration", "no proxy configuration registered")

	// ErrInvalidConfiguration is returned for any other configuration problem.
	ErrInvalidConfiguration = New(CodeConfiguration, "invalid_configuration", "invalid configuration")

	// ErrNoTokenProviderConfigured is returned when a token is needed but no token source is registered.
	ErrNoTokenProviderConfigured = New(CodeTokenAcquisition, "no_token_provider", "no security token source configured")

	// ErrTokenUnavailable is returned when the token source yields nothing.
	ErrTokenUnavailable = New(CodeTokenAcquisition, "token_unavailable", "could not get a security token")

	// ErrUnreadableToken is returned when no registered reader can read a token string.
	ErrUnreadableToken = New(CodeTokenFormat, "unreadable_token", "cannot read token")

	// ErrUnsupportedTokenType is returned when no writer handles a token's type.
	ErrUnsupportedTokenType = New(CodeTokenConversion, "unsupported_token_type", "cannot write token type")

	// ErrTokenWriteFailed is returned when a handler fails to write a token.
	ErrTokenWriteFailed = New(CodeTokenConversion, "token_write_failed", "failed to write token")

	// ErrUnsupportedKeyType is returned for proof keys that are not symmetric.
	ErrUnsupportedKeyType = New(CodeTokenConversion, "unsupported_key_type", "key type not supported")

	// ErrNoDefaultTokenProvider is returned by the default credentials when no token provider applies.
	ErrNoDefaultTokenProvider = New(CodeTokenConversion, "no_default_token_provider", "no security token provider available for the token requirement")

	// ErrTransport is returned for transport failures.
	ErrTransport = New(CodeTransport, "transport_failure", "transport failure")

	// ErrQuotaExceeded is returned when a received message exceeds a configured limit.
	ErrQuotaExceeded = New(CodeTransport, "quota_exceeded", "message quota exceeded")

	// ErrMessageConsumed is returned when a single-pass message is read or written twice.
	ErrMessageConsumed = New(CodeChannelState, "message_consumed", "message has already been consumed")

	// ErrChannelNotUsable is returned for operations on closed or faulted channels.
	ErrChannelNotUsable = New(CodeChannelState, "channel_not_usable", "channel is closed or faulted")

	// ErrFactoryDisposed is returned when a disposed proxy factory is used.
	ErrFactoryDisposed = New(CodeChannelState, "factory_disposed", "proxy factory has been disposed")
)

// ================================================================================
// Helpers
// ================================================================================

// HasCode reports whether any AppError in err's chain has the given code.
func HasCode(err error, code Code) bool {
	var appErr *AppError
	if !stderrors.As(err, &appErr) {
		return false
	}
	return appErr.Code == code
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return stderrors.As(err, target)
}
