package model

import "net/http"

// Error kinds
const (
	KindValidation   = "validation"
	KindNotFound     = "not_found"
	KindExpired      = "expired"
	KindConflict     = "conflict"
	KindRateLimited  = "rate_limited"
	KindAuthProvider = "auth_provider"
	KindUnauthorized = "unauthorized"
	KindForbidden    = "forbidden"
	KindInternal     = "internal"
)

// ErrorResponse - Standard error response format
type ErrorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Code    int    `json:"code"`
	Kind    string `json:"-"`
}

func (e *ErrorResponse) Error() string {
	return e.Message
}

func newError(kind string, code int, message string) *ErrorResponse {
	return &ErrorResponse{
		Status:  "error",
		Message: message,
		Code:    code,
		Kind:    kind,
	}
}

func ValidationError(message string) *ErrorResponse {
	return newError(KindValidation, http.StatusBadRequest, message)
}

// NotFoundError uses 404. OTP and token lookups use InvalidCodeError instead,
// which keeps the 400 clients already branch on.
func NotFoundError(message string) *ErrorResponse {
	return newError(KindNotFound, http.StatusNotFound, message)
}

func InvalidCodeError(message string) *ErrorResponse {
	return newError(KindNotFound, http.StatusBadRequest, message)
}

func ExpiredError(message string) *ErrorResponse {
	return newError(KindExpired, http.StatusBadRequest, message)
}

func ConflictError(message string) *ErrorResponse {
	return newError(KindConflict, http.StatusConflict, message)
}

func RateLimitedError(message string) *ErrorResponse {
	return newError(KindRateLimited, http.StatusTooManyRequests, message)
}

func AuthProviderError(code int, message string) *ErrorResponse {
	return newError(KindAuthProvider, code, message)
}

func UnauthorizedError(message string) *ErrorResponse {
	return newError(KindUnauthorized, http.StatusUnauthorized, message)
}

func ForbiddenError(message string) *ErrorResponse {
	return newError(KindForbidden, http.StatusForbidden, message)
}

// InternalError never carries the underlying cause; callers log it.
func InternalError(message string) *ErrorResponse {
	if message == "" {
		message = "Something went wrong. Please try again."
	}
	return newError(KindInternal, http.StatusInternalServerError, message)
}
