package utils

import (
	"encoding/json"
	"net/http"

	"photovault/pkg/logger"
)

const (
	// Request Error Codes
	ErrRequestInvalid           = "request/invalid_parameters"
	ErrRequestNotFound          = "request/not_found"
	ErrRequestRateLimitExceeded = "request/rate_limit_exceeded"
	ErrRequestForbidden         = "request/forbidden"
	ErrRequestBodyTooLarge      = "request/body_too_large"

	// Auth Error Codes
	ErrAuthRequired = "auth/authentication_required"
	ErrAuthInvalid  = "auth/invalid_credentials"

	// Server Error Codes
	ErrServerInternal = "server/internal_error"
	ErrServerTimeout  = "server/timeout"

	// Batch & Resource Error Codes
	ErrBatchNotFound         = "batch/not_found"
	ErrBatchInvalidState     = "batch/invalid_state"
	ErrBatchAwaitingDecision = "batch/awaiting_decisions"
	ErrResourceNotFound      = "resource/not_found"
	ErrResourceConflict      = "resource/conflict"

	// Storage & Sync Error Codes
	ErrStorageUnavailable = "storage/unavailable"
	ErrStoreCorrupt       = "store/unavailable"
)

type APIError struct {
	Code    string `json:"code"`    // e.g., "request/invalid_parameters"
	Message string `json:"message"` // User-friendly message
	Status  int    `json:"status"`  // HTTP Status Code
}

// WriteError sends a JSON formatted error response
func WriteError(w http.ResponseWriter, status int, code string, message string) {
	if status >= http.StatusInternalServerError {
		logger.LogError("%s: %s", code, message)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(APIError{
		Code:    code,
		Message: message,
		Status:  status,
	})
}

func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
