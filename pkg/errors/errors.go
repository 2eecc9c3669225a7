// Package errors provides structured error handling for walletd.
// It defines sentinel errors, HTTP status mapping, and helpers for adding
// context, details, and suggestions to errors.
//
//nolint:revive // Package name intentionally shadows stdlib for domain-specific error handling
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
)

// WalletError is the structured error type for walletd.
type WalletError struct {
	Code       string            // Machine-readable error code
	Message    string            // Human-readable message
	Details    map[string]string // Additional context (never secret material)
	Suggestion string            // Actionable suggestion for the caller
	Cause      error             // Underlying error
	HTTPStatus int               // Status code for the HTTP surface
	Retryable  bool              // Eligible for decoupled background retry
}

func (e *WalletError) Error() string {
	msg := e.Message

	// Include details in error message (sorted for deterministic output)
	if len(e.Details) > 0 {
		keys := make([]string, 0, len(e.Details))
		for k := range e.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			msg = fmt.Sprintf("%s (%s: %s)", msg, k, e.Details[k])
		}
	}

	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *WalletError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is for WalletError.
func (e *WalletError) Is(target error) bool {
	var t *WalletError
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// Sentinel errors covering the failure taxonomy. Fail-fast categories
// carry 4xx/5xx statuses; Retryable marks the two background-retry classes.
var (
	ErrNotFound = &WalletError{
		Code:       "NOT_FOUND",
		Message:    "resource not found",
		HTTPStatus: http.StatusNotFound,
	}

	ErrValidation = &WalletError{
		Code:       "VALIDATION_ERROR",
		Message:    "invalid request",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrAuthFailure = &WalletError{
		Code:       "AUTH_FAILURE",
		Message:    "authentication rejected",
		HTTPStatus: http.StatusUnauthorized,
	}

	ErrRateLimited = &WalletError{
		Code:       "RATE_LIMITED",
		Message:    "rate limited by upstream",
		HTTPStatus: http.StatusTooManyRequests,
		Retryable:  true,
	}

	ErrTransientUpstream = &WalletError{
		Code:       "TRANSIENT_UPSTREAM",
		Message:    "upstream temporarily unavailable",
		HTTPStatus: http.StatusBadGateway,
		Retryable:  true,
	}

	ErrInternal = &WalletError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal error",
		HTTPStatus: http.StatusInternalServerError,
	}

	// Chain registry errors.
	ErrChainNotFound = &WalletError{
		Code:       "CHAIN_NOT_FOUND",
		Message:    "chain not found",
		HTTPStatus: http.StatusNotFound,
	}

	// Session errors.
	ErrSessionNotFound = &WalletError{
		Code:       "SESSION_NOT_FOUND",
		Message:    "no active session for key",
		HTTPStatus: http.StatusNotFound,
	}

	ErrSessionExpired = &WalletError{
		Code:       "SESSION_EXPIRED",
		Message:    "session has expired",
		HTTPStatus: http.StatusUnauthorized,
	}

	// Stamping and key-material errors.
	ErrInvalidSigningKey = &WalletError{
		Code:       "INVALID_SIGNING_KEY",
		Message:    "signing key is missing or invalid",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrInvalidStamp = &WalletError{
		Code:       "INVALID_STAMP",
		Message:    "malformed stamp",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrBundleDecryption = &WalletError{
		Code:       "BUNDLE_DECRYPTION_FAILED",
		Message:    "credential bundle decryption failed",
		HTTPStatus: http.StatusInternalServerError,
	}

	// Config errors.
	ErrConfigNotFound = &WalletError{
		Code:       "CONFIG_NOT_FOUND",
		Message:    "configuration file not found",
		HTTPStatus: http.StatusInternalServerError,
	}

	ErrConfigInvalid = &WalletError{
		Code:       "CONFIG_INVALID",
		Message:    "configuration file is invalid",
		HTTPStatus: http.StatusInternalServerError,
	}

	// Keystore errors.
	ErrKeystoreNotFound = &WalletError{
		Code:       "KEYSTORE_NOT_FOUND",
		Message:    "operator key file not found",
		HTTPStatus: http.StatusInternalServerError,
	}

	ErrDecryptionFailed = &WalletError{
		Code:       "DECRYPTION_FAILED",
		Message:    "decryption failed - wrong passphrase or corrupted file",
		HTTPStatus: http.StatusInternalServerError,
	}
)

// New creates a new WalletError with the given code and message.
func New(code, message string) *WalletError {
	return &WalletError{
		Code:       code,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
	}
}

// Wrap wraps an error with additional context, preserving the code,
// status, and retry eligibility of a wrapped WalletError.
func Wrap(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}

	msg := fmt.Sprintf(format, args...)

	var we *WalletError
	if errors.As(err, &we) {
		return &WalletError{
			Code:       we.Code,
			Message:    fmt.Sprintf("%s: %s", msg, we.Message),
			Details:    we.Details,
			Suggestion: we.Suggestion,
			Cause:      err,
			HTTPStatus: we.HTTPStatus,
			Retryable:  we.Retryable,
		}
	}

	return &WalletError{
		Code:       "INTERNAL_ERROR",
		Message:    msg,
		Cause:      err,
		HTTPStatus: http.StatusInternalServerError,
	}
}

// WithDetails adds details to an error.
func WithDetails(err error, details map[string]string) error {
	if err == nil {
		return nil
	}

	var we *WalletError
	if errors.As(err, &we) {
		return &WalletError{
			Code:       we.Code,
			Message:    we.Message,
			Details:    details,
			Suggestion: we.Suggestion,
			Cause:      we.Cause,
			HTTPStatus: we.HTTPStatus,
			Retryable:  we.Retryable,
		}
	}

	return &WalletError{
		Code:       "INTERNAL_ERROR",
		Message:    err.Error(),
		Details:    details,
		Cause:      err,
		HTTPStatus: http.StatusInternalServerError,
	}
}

// WithSuggestion adds a suggestion to an error.
func WithSuggestion(err error, suggestion string) error {
	if err == nil {
		return nil
	}

	var we *WalletError
	if errors.As(err, &we) {
		return &WalletError{
			Code:       we.Code,
			Message:    we.Message,
			Details:    we.Details,
			Suggestion: suggestion,
			Cause:      we.Cause,
			HTTPStatus: we.HTTPStatus,
			Retryable:  we.Retryable,
		}
	}

	return &WalletError{
		Code:       "INTERNAL_ERROR",
		Message:    err.Error(),
		Suggestion: suggestion,
		Cause:      err,
		HTTPStatus: http.StatusInternalServerError,
	}
}

// HTTPStatus returns the HTTP status code for an error.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var we *WalletError
	if errors.As(err, &we) {
		return we.HTTPStatus
	}

	return http.StatusInternalServerError
}

// Code returns the error code for an error.
func Code(err error) string {
	var we *WalletError
	if errors.As(err, &we) {
		return we.Code
	}
	return "INTERNAL_ERROR"
}

// IsRetryable reports whether the error is eligible for decoupled
// background retry. Everything else fails fast to the waiting caller.
func IsRetryable(err error) bool {
	var we *WalletError
	if errors.As(err, &we) {
		return we.Retryable
	}
	return false
}

// Is wraps errors.Is for convenience.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As wraps errors.As for convenience.
func As(err error, target any) bool {
	return errors.As(err, target)
}
