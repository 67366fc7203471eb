package api

import (
	"encoding/json"
	"net/http"
)

// ErrorCode represents standardized API error codes.
type ErrorCode string

const (
	ErrCodeBadRequest     ErrorCode = "BAD_REQUEST"
	ErrCodeUnauthorized   ErrorCode = "UNAUTHORIZED"
	ErrCodeNotFound       ErrorCode = "NOT_FOUND"
	ErrCodeValidation     ErrorCode = "VALIDATION_ERROR"
	ErrCodeInternalServer ErrorCode = "INTERNAL_SERVER_ERROR"
	ErrCodeBadGateway     ErrorCode = "BAD_GATEWAY"
)

// ErrorResponse represents a standardized API error response.
type ErrorResponse struct {
	Error   ErrorDetail `json:"error"`
	Request RequestInfo `json:"request,omitempty"`
}

// ErrorDetail contains error information.
type ErrorDetail struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// RequestInfo contains request context for debugging.
type RequestInfo struct {
	Method    string `json:"method,omitempty"`
	Path      string `json:"path,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// APIError represents an internal API error with HTTP status.
type APIError struct {
	Code       ErrorCode
	Message    string
	StatusCode int
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return e.Message
}

// NewAPIError creates a new API error.
func NewAPIError(code ErrorCode, message string, statusCode int) *APIError {
	return &APIError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// BadRequest creates a 400 Bad Request error.
func BadRequest(message string) *APIError {
	return NewAPIError(ErrCodeBadRequest, message, http.StatusBadRequest)
}

// Unauthorized creates a 401 Unauthorized error.
func Unauthorized(message string) *APIError {
	return NewAPIError(ErrCodeUnauthorized, message, http.StatusUnauthorized)
}

// NotFound creates a 404 Not Found error.
func NotFound(resource string) *APIError {
	return NewAPIError(ErrCodeNotFound, resource+" not found", http.StatusNotFound)
}

// ValidationError creates a 400 error for rejected input such as
// malformed payloads or path traversal attempts.
func ValidationError(message string) *APIError {
	return NewAPIError(ErrCodeValidation, message, http.StatusBadRequest)
}

// InternalServerError creates a 500 Internal Server Error.
func InternalServerError(message string) *APIError {
	return NewAPIError(ErrCodeInternalServer, message, http.StatusInternalServerError)
}

// BadGateway creates a 502 error for upstream failures.
func BadGateway(message string) *APIError {
	return NewAPIError(ErrCodeBadGateway, message, http.StatusBadGateway)
}

// WriteError writes an API error response.
func WriteError(w http.ResponseWriter, r *http.Request, err *APIError) {
	response := ErrorResponse{
		Error: ErrorDetail{
			Code:    err.Code,
			Message: err.Message,
		},
		Request: RequestInfo{
			Method:    r.Method,
			Path:      r.URL.Path,
			RequestID: GetRequestID(r),
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.StatusCode)
	json.NewEncoder(w).Encode(response)
}

// GetRequestID extracts the request ID from the request context
// (set by RequestIDMiddleware).
func GetRequestID(r *http.Request) string {
	if id := r.Context().Value(requestIDContextKey); id != nil {
		if idStr, ok := id.(string); ok {
			return idStr
		}
	}
	return ""
}
