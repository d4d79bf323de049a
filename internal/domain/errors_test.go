package domain

import (
	"errors"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appErr   *AppError
		expected string
	}{
		{
			name:     "error without wrapped error",
			appErr:   ErrInvalidContentType,
			expected: "File must be an image.",
		},
		{
			name: "error with wrapped error",
			appErr: &AppError{
				Code:       "TEST_ERROR",
				Message:    "Test message",
				StatusCode: 500,
				Err:        errors.New("underlying error"),
			},
			expected: "Test message: underlying error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.appErr.Error(); got != tt.expected {
				t.Errorf("Error() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	underlying := errors.New("underlying error")
	appErr := &AppError{
		Code:       "TEST",
		Message:    "test",
		StatusCode: 500,
		Err:        underlying,
	}

	if got := appErr.Unwrap(); got != underlying {
		t.Errorf("Unwrap() = %v, want %v", got, underlying)
	}

	// Test with nil error
	appErrNoWrap := ErrMissingFile
	if got := appErrNoWrap.Unwrap(); got != nil {
		t.Errorf("Unwrap() = %v, want nil", got)
	}
}

func TestAppError_WithError(t *testing.T) {
	underlying := errors.New("onnxruntime: invalid input shape")
	newErr := ErrInference.WithError(underlying)

	if newErr.Code != ErrInference.Code {
		t.Errorf("Code = %v, want %v", newErr.Code, ErrInference.Code)
	}

	if newErr.StatusCode != ErrInference.StatusCode {
		t.Errorf("StatusCode = %v, want %v", newErr.StatusCode, ErrInference.StatusCode)
	}

	if newErr.Err != underlying {
		t.Errorf("Err = %v, want %v", newErr.Err, underlying)
	}

	// Check errors.Is still works
	if !errors.Is(newErr, underlying) {
		t.Errorf("errors.Is should return true for wrapped error")
	}

	// The shared sentinel must not be mutated
	if ErrInference.Err != nil {
		t.Errorf("ErrInference.Err = %v, want nil", ErrInference.Err)
	}
}

func TestAppError_Detail(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want string
	}{
		{"client error keeps fixed message", ErrInvalidContentType.WithError(errors.New("text/plain")), "File must be an image."},
		{"server error surfaces cause", ErrImageDecode.WithError(errors.New("image: unknown format")), "image: unknown format"},
		{"server error without cause", ErrInternal, "An unexpected error occurred"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Detail(); got != tt.want {
				t.Errorf("Detail() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestErrorsAs(t *testing.T) {
	err := ErrImageDecode.WithError(errors.New("unexpected EOF"))

	var appErr *AppError
	if !errors.As(err, &appErr) {
		t.Errorf("errors.As should match AppError")
	}

	if appErr.Code != "IMAGE_DECODE_FAILED" {
		t.Errorf("Code = %v, want IMAGE_DECODE_FAILED", appErr.Code)
	}
}

func TestPredefinedErrors(t *testing.T) {
	tests := []struct {
		err        *AppError
		code       string
		statusCode int
	}{
		{ErrInternal, "INTERNAL_ERROR", 500},
		{ErrBadRequest, "BAD_REQUEST", 400},
		{ErrNotFound, "NOT_FOUND", 404},
		{ErrMissingFile, "MISSING_FILE", 400},
		{ErrInvalidContentType, "INVALID_CONTENT_TYPE", 400},
		{ErrImageDecode, "IMAGE_DECODE_FAILED", 500},
		{ErrInference, "INFERENCE_FAILED", 500},
		{ErrNotReady, "NOT_READY", 503},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			if tt.err.Code != tt.code {
				t.Errorf("Code = %v, want %v", tt.err.Code, tt.code)
			}
			if tt.err.StatusCode != tt.statusCode {
				t.Errorf("StatusCode = %v, want %v", tt.err.StatusCode, tt.statusCode)
			}
		})
	}
}
