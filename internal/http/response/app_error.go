package response

import "net/http"

// AppError pairs a business code with the HTTP status it rides on.
type AppError struct {
	HTTPStatus int    `json:"-"`
	Code       int    `json:"code"`
	Message    string `json:"message"`
}

// Error implements error.
func (e *AppError) Error() string {
	return e.Message
}

// NewAppError builds an error with an explicit status.
func NewAppError(httpStatus, code int, message string) *AppError {
	return &AppError{HTTPStatus: httpStatus, Code: code, Message: message}
}

// BadRequest builds a validation error.
func BadRequest(message string) *AppError {
	return NewAppError(http.StatusBadRequest, CodeBadRequest, message)
}

// NotFound builds a lookup-miss error.
func NotFound(message string) *AppError {
	return NewAppError(http.StatusNotFound, CodeNotFound, message)
}

// Conflict builds a state-conflict error.
func Conflict(message string) *AppError {
	return NewAppError(http.StatusConflict, CodeStateConflict, message)
}

// GatewayFailure builds a processor-failure error.
func GatewayFailure(message string) *AppError {
	return NewAppError(http.StatusBadGateway, CodeGatewayFailure, message)
}

// Internal builds a catch-all server error.
func Internal(message string) *AppError {
	return NewAppError(http.StatusInternalServerError, CodeInternal, message)
}
