package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"gorm.io/gorm"
)

// Error is a failure scoped to a single request, carrying the HTTP status it
// renders as.
type Error struct {
	Code    int               `json:"-"`
	Message string            `json:"error"`
	Fields  map[string]string `json:"fields,omitempty"`
	Err     error             `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on code and message so sentinel values work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

func New(code int, message string) *Error {
	return &Error{Code: code, Message: message}
}

var (
	ErrAuthenticationRequired = New(http.StatusUnauthorized, "Authentication required")
	ErrForbidden              = New(http.StatusForbidden, "You do not have permission to perform this action")
	ErrAdminRequired          = New(http.StatusForbidden, "Admin access required")
	ErrInvalidCredentials     = New(http.StatusBadRequest, "Invalid credentials")
	ErrInvalidOldPassword     = New(http.StatusBadRequest, "Invalid old password")
	ErrPasswordMismatch       = New(http.StatusBadRequest, "Passwords do not match")
	ErrInvalidStatus          = New(http.StatusBadRequest, "Invalid status")
	ErrInvalidDeliveryStaff   = New(http.StatusBadRequest, "Invalid delivery staff")
	ErrOrderTotalMismatch     = New(http.StatusBadRequest, "Order total does not match line items")
	ErrUsernameTaken          = New(http.StatusConflict, "A user with that username already exists")
)

// Validation builds a 400 with per-field details.
func Validation(message string, fields map[string]string) *Error {
	return &Error{Code: http.StatusBadRequest, Message: message, Fields: fields}
}

// Field is shorthand for a validation error on one field.
func Field(field, message string) *Error {
	return Validation(message, map[string]string{field: message})
}

func NotFound(entity string) *Error {
	return New(http.StatusNotFound, entity+" not found")
}

// InvalidTransition wraps a state machine refusal.
func InvalidTransition(err error) *Error {
	return &Error{Code: http.StatusBadRequest, Message: "Invalid state transition", Err: err}
}

// Internal hides the cause from the client; it is logged by the renderer.
func Internal(err error) *Error {
	return &Error{Code: http.StatusInternalServerError, Message: "Internal server error", Err: err}
}

// FromDB maps a store error, turning a missing row into NotFound(entity).
func FromDB(err error, entity string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return NotFound(entity)
	}
	return Internal(err)
}

// IsDuplicateKey reports whether err is a unique constraint violation. Drivers
// without gorm error translation are matched on their message.
func IsDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "duplicate entry")
}

// As extracts an *Error, wrapping anything else as Internal.
func As(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal(err)
}
