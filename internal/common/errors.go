package common

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure for the transport layer.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindEngine
	KindTimeout
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindEngine:
		return "engine"
	case KindTimeout:
		return "timeout"
	default:
		return "internal"
	}
}

// AppError represents application-specific errors
type AppError struct {
	Kind    Kind
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Common application errors
var (
	ErrInvalidInput            = errors.New("invalid input")
	ErrUnsupportedDocumentType = errors.New("unsupported document type")
	ErrFileTooLarge            = errors.New("file too large")
	ErrCorruptDocument         = errors.New("document could not be decoded")
	ErrTooManyPages            = errors.New("document has too many pages")
	ErrRecognition             = errors.New("recognition failed")
	ErrRasterization           = errors.New("rasterization failed")
	ErrProcessing              = errors.New("image processing failed")
	ErrTimeout                 = errors.New("processing deadline exceeded")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Kind:    kindForCause(cause),
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewValidationError builds a caller-input error (HTTP 400).
func NewValidationError(message string, cause error) *AppError {
	return &AppError{Kind: KindValidation, Code: "VALIDATION_ERROR", Message: message, Cause: cause}
}

// NewEngineError builds a recognition/rasterization failure (HTTP 500).
func NewEngineError(message string, cause error) *AppError {
	return &AppError{Kind: KindEngine, Code: "ENGINE_ERROR", Message: message, Cause: cause}
}

// NewTimeoutError builds a deadline failure.
func NewTimeoutError(message string, cause error) *AppError {
	return &AppError{Kind: KindTimeout, Code: "TIMEOUT", Message: message, Cause: cause}
}

func kindForCause(cause error) Kind {
	switch {
	case cause == nil:
		return KindInternal
	case errors.Is(cause, ErrInvalidInput),
		errors.Is(cause, ErrUnsupportedDocumentType),
		errors.Is(cause, ErrFileTooLarge),
		errors.Is(cause, ErrCorruptDocument),
		errors.Is(cause, ErrTooManyPages):
		return KindValidation
	case errors.Is(cause, ErrRecognition), errors.Is(cause, ErrRasterization):
		return KindEngine
	case errors.Is(cause, ErrTimeout), errors.Is(cause, context.DeadlineExceeded):
		return KindTimeout
	default:
		return KindInternal
	}
}

// KindOf reports the kind of the outermost AppError in err's chain. Errors
// without one are classified from their sentinel causes.
func KindOf(err error) Kind {
	if err == nil {
		return KindInternal
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return kindForCause(err)
}

// IsValidation reports whether err should be surfaced as a caller error.
func IsValidation(err error) bool {
	return KindOf(err) == KindValidation
}

// HTTPStatus maps an error kind to a response status code.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the message safe to show to a client. Only
// validation and timeout errors expose their own text.
func PublicMessage(err error) string {
	var appErr *AppError
	switch KindOf(err) {
	case KindValidation:
		if errors.As(err, &appErr) {
			return appErr.Message
		}
		return err.Error()
	case KindTimeout:
		return "OCR processing timed out."
	default:
		return "An unexpected error occurred during OCR processing."
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
