package dto

import "net/http"

// General error codes
const (
	ErrCodeInternal   = "INTERNAL_ERROR"
	ErrCodeBadRequest = "BAD_REQUEST"
	ErrCodeValidation = "VALIDATION_ERROR"
	ErrCodeNotFound   = "NOT_FOUND"
)

// Request error codes
const (
	ErrCodeRequestTooLarge   = "REQUEST_TOO_LARGE"
	ErrCodeRateLimited       = "RATE_LIMIT_EXCEEDED"
	ErrCodeUnauthorized      = "UNAUTHORIZED"
	ErrCodeTooManyListeners  = "MAX_CONNECTIONS_REACHED"
	ErrCodeStreamUnsupported = "STREAMING_UNSUPPORTED"
)

// ErrorCodeHTTPStatus maps domain and transport error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:   http.StatusInternalServerError,
	ErrCodeBadRequest: http.StatusBadRequest,
	ErrCodeValidation: http.StatusBadRequest,
	ErrCodeNotFound:   http.StatusNotFound,

	ErrCodeRequestTooLarge:   http.StatusRequestEntityTooLarge,
	ErrCodeRateLimited:       http.StatusTooManyRequests,
	ErrCodeUnauthorized:      http.StatusUnauthorized,
	ErrCodeTooManyListeners:  http.StatusServiceUnavailable,
	ErrCodeStreamUnsupported: http.StatusInternalServerError,

	// Input
	"INVALID_INPUT":      http.StatusBadRequest,
	"INVALID_ENTRY":      http.StatusBadRequest,
	"INVALID_OWNER":      http.StatusBadRequest,
	"INVALID_POLICY":     http.StatusBadRequest,
	"UNKNOWN_COLLECTION": http.StatusNotFound,

	// Catalog
	"PRODUCT_NOT_FOUND":   http.StatusNotFound,
	"CATALOG_UNAVAILABLE": http.StatusServiceUnavailable,
	"INVALID_PRODUCT":     http.StatusBadRequest,
	"INVALID_TITLE":       http.StatusBadRequest,
	"INVALID_PRICE":       http.StatusBadRequest,
	"INVALID_DISCOUNT":    http.StatusBadRequest,

	// Persistence
	"STORAGE_QUOTA_EXCEEDED": http.StatusInsufficientStorage,
	"PERSISTENCE_FAILED":     http.StatusServiceUnavailable,
	"STORAGE_UNAVAILABLE":    http.StatusServiceUnavailable,
	"SERVICE_UNAVAILABLE":    http.StatusServiceUnavailable,

	// Checkout
	"CHECKOUT_NOT_STARTED": http.StatusNotFound,
	"EMPTY_CART":           http.StatusUnprocessableEntity,
	"INVALID_STATE":        http.StatusUnprocessableEntity,

	// Identity
	"INVALID_CREDENTIALS": http.StatusUnauthorized,
	"INVALID_TOKEN":       http.StatusUnauthorized,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Unknown codes map to 500.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
