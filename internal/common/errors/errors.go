// Package errors provides standardized error handling for the generation
// pipeline and its boundaries.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"

	ErrCodeStyleAnalysisFailed ErrorCode = "STYLE_ANALYSIS_FAILED"
	ErrCodeGenerationFailed    ErrorCode = "GENERATION_FAILED"
	ErrCodeProviderTimeout     ErrorCode = "PROVIDER_TIMEOUT"
	ErrCodeEmptyCompletion     ErrorCode = "EMPTY_COMPLETION"

	ErrCodeQuotaExceeded    ErrorCode = "QUOTA_EXCEEDED"
	ErrCodeUsageCheckFailed ErrorCode = "USAGE_CHECK_FAILED"

	ErrCodeCheckoutFailed            ErrorCode = "BILLING_CHECKOUT_FAILED"
	ErrCodeWebhookVerificationFailed ErrorCode = "WEBHOOK_VERIFICATION_FAILED"
	ErrCodeWebhookHandlingFailed     ErrorCode = "WEBHOOK_HANDLING_FAILED"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// CodeOf extracts the ErrorCode from any error, unwrapping as needed.
func CodeOf(err error) ErrorCode {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr.Code
	}
	return ErrCodeInternal
}

// NewValidationError creates a non-retryable input validation error. Field
// names the offending request field for field-level surfacing.
func NewValidationError(field, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeValidationFailed,
		Message:   "Request validation failed",
		Details:   details,
		Retryable: false,
		Metadata:  map[string]interface{}{"field": field},
		Timestamp: time.Now().UTC(),
	}
}

// NewStyleAnalysisError wraps a provider failure during style analysis. The
// orchestrator recovers from this kind internally; it must never surface to
// the caller as a hard failure.
func NewStyleAnalysisError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeStyleAnalysisFailed,
		Message:   "Style analysis failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewGenerationError wraps a provider failure during script generation.
// Terminal for the request.
func NewGenerationError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeGenerationFailed,
		Message:   "There was a problem generating your script",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewProviderTimeoutError creates a retryable completion timeout error.
func NewProviderTimeoutError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeProviderTimeout,
		Message:   "Completion provider timed out",
		Details:   details,
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewQuotaExceededError creates a non-retryable free-tier quota error.
func NewQuotaExceededError(identity string, limit int) *StandardError {
	return &StandardError{
		Code:      ErrCodeQuotaExceeded,
		Message:   "Free Limit Reached",
		Details:   fmt.Sprintf("identity %s has used all %d free generations", identity, limit),
		Retryable: false,
		Metadata:  map[string]interface{}{"limit": limit},
		Timestamp: time.Now().UTC(),
	}
}

// NewUsageCheckFailedError creates a retryable usage-store error.
func NewUsageCheckFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeUsageCheckFailed,
		Message:   "Usage check failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewCheckoutFailedError creates a billing checkout error.
func NewCheckoutFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeCheckoutFailed,
		Message:   "Checkout session creation failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewWebhookVerificationError creates a non-retryable signature error. No
// state may be mutated once this is returned.
func NewWebhookVerificationError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeWebhookVerificationFailed,
		Message:   "Webhook signature verification failed",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewWebhookHandlingError creates a retryable webhook processing error so
// Stripe re-delivers the event.
func NewWebhookHandlingError(eventType string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeWebhookHandlingFailed,
		Message:   "Webhook event handling failed",
		Details:   err.Error(),
		Retryable: true,
		Metadata:  map[string]interface{}{"eventType": eventType},
		Timestamp: time.Now().UTC(),
	}
}
