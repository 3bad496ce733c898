package apperror

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Kinds of failure a registration or listing can end in. Each AppError
// carries exactly one of them as its base.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrConflict     = errors.New("conflict")
	ErrUpload       = errors.New("upload failed")
	ErrHash         = errors.New("hash failed")
	ErrStorage      = errors.New("storage failed")
	ErrInternal     = errors.New("internal server error")
)

const internalMessage = "An internal server error occurred"

// Kinds not listed here render as 500.
var statusByKind = map[error]int{
	ErrInvalidInput: http.StatusBadRequest,
	ErrConflict:     http.StatusConflict,
}

type AppError struct {
	BaseError error
	// Message is safe to show to clients.
	Message string
	// Details and Err are for the server log only.
	Details string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (Details: %s, Cause: %v)", e.BaseError, e.Message, e.Details, e.Err)
	}
	return fmt.Sprintf("%s: %s (Details: %s)", e.BaseError, e.Message, e.Details)
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *AppError) Unwrap() []error {
	if e.Err != nil {
		return []error{e.BaseError, e.Err}
	}
	return []error{e.BaseError}
}

func newAppError(kind error, msg, details string, err error) *AppError {
	return &AppError{BaseError: kind, Message: msg, Details: details, Err: err}
}

func NewInvalidInput(details string, err error) *AppError {
	return newAppError(ErrInvalidInput, "Invalid input provided", details, err)
}

// NewDuplicateEmail is the expected, user-facing rejection of a registration.
func NewDuplicateEmail(email string, err error) *AppError {
	details := fmt.Sprintf("user with email '%s' already exists", email)
	return newAppError(ErrConflict, "Sorry, an account with this email already exists.", details, err)
}

func NewUpload(details string, err error) *AppError {
	return newAppError(ErrUpload, internalMessage, details, err)
}

func NewHash(details string, err error) *AppError {
	return newAppError(ErrHash, internalMessage, details, err)
}

func NewStorage(details string, err error) *AppError {
	return newAppError(ErrStorage, internalMessage, details, err)
}

func NewInternal(details string, err error) *AppError {
	return newAppError(ErrInternal, internalMessage, details, err)
}

func ToHTTPStatus(err error) int {
	for kind, status := range statusByKind {
		if errors.Is(err, kind) {
			return status
		}
	}
	return http.StatusInternalServerError
}

// ToJSON renders only what a client may see. Server-side kinds collapse
// into a generic internal error.
func (e *AppError) ToJSON() gin.H {
	if ToHTTPStatus(e) >= http.StatusInternalServerError {
		return gin.H{"error": ErrInternal.Error(), "message": internalMessage}
	}
	return gin.H{"error": e.BaseError.Error(), "message": e.Message}
}
