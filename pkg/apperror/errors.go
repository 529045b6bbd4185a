package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses. Business
// denials (insufficient balance, re-entry refused, item unavailable) are NOT
// errors: the processor reports them as DENIED results with a reason code.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Retryable  bool   `json:"retryable,omitempty"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Validation (VAL) ----

func ErrInvalidAmount() *AppError {
	return New("VAL_001", "Amount must be a positive number of minor units", http.StatusBadRequest)
}

func ErrMissingField(field string) *AppError {
	return New("VAL_002", fmt.Sprintf("Required field %q is missing", field), http.StatusBadRequest)
}

func ErrInvalidQuantity() *AppError {
	return New("VAL_003", "Quantity must be at least 1", http.StatusBadRequest)
}

func ErrInvalidTip() *AppError {
	return New("VAL_004", "Tip must not be negative", http.StatusBadRequest)
}

// ---- Not found (NF) ----

func ErrNotFound(entity string) *AppError {
	return New("NF_001", fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

// ---- Concurrency (CONFLICT) ----

// ErrConflict is surfaced after the internal retry bound is exhausted; the
// caller is expected to retry the whole operation.
func ErrConflict() *AppError {
	e := New("CONFLICT_001", "Wallet was modified concurrently, retry the operation", http.StatusConflict)
	e.Retryable = true
	return e
}

// ---- System & dependencies (SYS) ----

func ErrDatabaseError(err error) *AppError {
	e := Wrap("SYS_001", "Internal database error", http.StatusInternalServerError, err)
	e.Retryable = true
	return e
}

func ErrDependencyUnavailable(dep string, err error) *AppError {
	e := Wrap("SYS_002", fmt.Sprintf("Dependency %s unavailable", dep), http.StatusServiceUnavailable, err)
	e.Retryable = true
	return e
}

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

// Validation returns a VAL-class error with a custom message.
func Validation(message string) *AppError {
	return New("VAL_000", message, http.StatusBadRequest)
}
