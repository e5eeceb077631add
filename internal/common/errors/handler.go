package errors

import (
	"encoding/json"
	"net/http"
	"time"
)

// HTTPHandler maps StandardError values onto HTTP responses with the
// { success, error, code } envelope the UI expects.
type HTTPHandler struct {
	logger Logger
}

type Logger interface {
	Error(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
}

func NewHTTPHandler(logger Logger) *HTTPHandler {
	return &HTTPHandler{logger: logger}
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
}

// WriteError normalizes err to a StandardError and writes it as JSON.
func (h *HTTPHandler) WriteError(w http.ResponseWriter, err error) {
	stdErr := h.normalizeError(err)

	status := StatusCodeFor(stdErr.Code)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", map[string]interface{}{
			"code":    string(stdErr.Code),
			"details": stdErr.Details,
		})
	} else {
		h.logger.Warn("request rejected", map[string]interface{}{
			"code":    string(stdErr.Code),
			"details": stdErr.Details,
		})
	}

	resp := errorResponse{
		Success: false,
		Error:   stdErr.Message,
		Code:    string(stdErr.Code),
	}
	if field, ok := stdErr.Metadata["field"].(string); ok {
		resp.Field = field
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// StatusCodeFor maps internal error codes to HTTP status codes.
func StatusCodeFor(code ErrorCode) int {
	switch code {
	case ErrCodeValidationFailed:
		return http.StatusBadRequest
	case ErrCodeQuotaExceeded:
		return http.StatusPaymentRequired
	case ErrCodeWebhookVerificationFailed:
		return http.StatusBadRequest
	case ErrCodeGenerationFailed, ErrCodeProviderTimeout, ErrCodeEmptyCompletion:
		return http.StatusBadGateway
	case ErrCodeUsageCheckFailed, ErrCodeCheckoutFailed, ErrCodeWebhookHandlingFailed:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func (h *HTTPHandler) normalizeError(err error) *StandardError {
	if stdErr, ok := err.(*StandardError); ok {
		return stdErr
	}
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}
