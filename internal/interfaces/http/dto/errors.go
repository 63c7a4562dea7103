package dto

import (
	"net/http"

	"github.com/marketlevy/backend/internal/domain/shared"
)

// Error code constants returned to API clients
// Format: ERR_<CATEGORY>
const (
	ErrCodeNotFound      = "ERR_NOT_FOUND"
	ErrCodeConflict      = "ERR_CONFLICT"
	ErrCodeForbidden     = "ERR_FORBIDDEN"
	ErrCodeUnauthorized  = "ERR_UNAUTHORIZED"
	ErrCodeValidation    = "ERR_VALIDATION"
	ErrCodeConfiguration = "ERR_CONFIGURATION"
	ErrCodeInvalidState  = "ERR_INVALID_STATE"
	ErrCodeUnexpected    = "ERR_UNEXPECTED"
)

// Transport-level error codes with no domain counterpart
const (
	ErrCodeTokenExpired    = "ERR_TOKEN_EXPIRED"
	ErrCodeTokenInvalid    = "ERR_TOKEN_INVALID"
	ErrCodeInvalidJSON     = "ERR_INVALID_JSON"
	ErrCodeRequestTooLarge = "ERR_REQUEST_TOO_LARGE"
	ErrCodeRateLimited     = "ERR_RATE_LIMITED"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeNotFound:      http.StatusNotFound,
	ErrCodeConflict:      http.StatusConflict,
	ErrCodeForbidden:     http.StatusForbidden,
	ErrCodeUnauthorized:  http.StatusUnauthorized,
	ErrCodeValidation:    http.StatusBadRequest,
	ErrCodeConfiguration: http.StatusUnprocessableEntity,
	ErrCodeInvalidState:  http.StatusUnprocessableEntity,
	ErrCodeUnexpected:    http.StatusInternalServerError,

	ErrCodeTokenExpired:    http.StatusUnauthorized,
	ErrCodeTokenInvalid:    http.StatusUnauthorized,
	ErrCodeInvalidJSON:     http.StatusBadRequest,
	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,
	ErrCodeRateLimited:     http.StatusTooManyRequests,
}

// domainCodes maps domain error codes onto API codes
var domainCodes = map[string]string{
	shared.CodeNotFound:      ErrCodeNotFound,
	shared.CodeConflict:      ErrCodeConflict,
	shared.CodeForbidden:     ErrCodeForbidden,
	shared.CodeUnauthorized:  ErrCodeUnauthorized,
	shared.CodeValidation:    ErrCodeValidation,
	shared.CodeConfiguration: ErrCodeConfiguration,
	shared.CodeInvalidState:  ErrCodeInvalidState,
	shared.CodeUnexpected:    ErrCodeUnexpected,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// FromDomainCode converts a domain error code to an API error code.
// Unknown codes are treated as unexpected.
func FromDomainCode(code string) string {
	if apiCode, ok := domainCodes[code]; ok {
		return apiCode
	}
	return ErrCodeUnexpected
}
