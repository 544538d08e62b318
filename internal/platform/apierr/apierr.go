// Package apierr defines the closed set of HTTP-facing error codes shared
// by both services, adapted from the teacher's src/errors.APIError.
package apierr

import "net/http"

// APIError is the JSON shape returned to HTTP clients on failure.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
}

func (e APIError) Error() string {
	return e.Message
}

const (
	CodeValidation     = "VALIDATION_ERROR"
	CodeNotFound       = "NOT_FOUND"
	CodeDuplicateUser  = "DUPLICATE_USER"
	CodeInternalServer = "INTERNAL_SERVER_ERROR"
)

func NewValidationError(message string) APIError {
	return APIError{Code: CodeValidation, Message: message, Status: http.StatusBadRequest}
}

func NewNotFoundError(resource string) APIError {
	return APIError{Code: CodeNotFound, Message: resource + " not found", Status: http.StatusNotFound}
}

func NewDuplicateUserError() APIError {
	return APIError{Code: CodeDuplicateUser, Message: "user already has a wallet", Status: http.StatusConflict}
}

func NewInternalServerError() APIError {
	return APIError{Code: CodeInternalServer, Message: "internal server error", Status: http.StatusInternalServerError}
}
