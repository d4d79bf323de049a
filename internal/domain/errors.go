package domain

import (
	"fmt"
)

type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Err        error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) WithError(err error) *AppError {
	return &AppError{
		Code:       e.Code,
		Message:    e.Message,
		StatusCode: e.StatusCode,
		Err:        err,
	}
}

// Detail returns the message surfaced to API callers. Server-side failures
// carry the underlying error text so clients can see why inference failed.
func (e *AppError) Detail() string {
	if e.StatusCode >= 500 && e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// Pre-defined errors
var (
	ErrInternal = &AppError{
		Code:       "INTERNAL_ERROR",
		Message:    "An unexpected error occurred",
		StatusCode: 500,
	}

	ErrBadRequest = &AppError{
		Code:       "BAD_REQUEST",
		Message:    "Invalid request",
		StatusCode: 400,
	}

	ErrNotFound = &AppError{
		Code:       "NOT_FOUND",
		Message:    "Resource not found",
		StatusCode: 404,
	}

	ErrMissingFile = &AppError{
		Code:       "MISSING_FILE",
		Message:    "Multipart field 'file' is required",
		StatusCode: 400,
	}

	ErrInvalidContentType = &AppError{
		Code:       "INVALID_CONTENT_TYPE",
		Message:    "File must be an image.",
		StatusCode: 400,
	}

	ErrImageDecode = &AppError{
		Code:       "IMAGE_DECODE_FAILED",
		Message:    "Image decoding failed",
		StatusCode: 500,
	}

	ErrInference = &AppError{
		Code:       "INFERENCE_FAILED",
		Message:    "Model inference failed",
		StatusCode: 500,
	}

	ErrNotReady = &AppError{
		Code:       "NOT_READY",
		Message:    "Models are not prepared",
		StatusCode: 503,
	}
)
