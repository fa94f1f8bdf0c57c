// Package errors provides standardized error handling for the menu
// ingestion pipeline.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeAuth                  ErrorCode = "AUTH_ERROR"
	ErrCodeUpload                ErrorCode = "UPLOAD_ERROR"
	ErrCodeInvalidFileType       ErrorCode = "INVALID_FILE_TYPE"
	ErrCodeExtractionFailed      ErrorCode = "EXTRACTION_FAILED"
	ErrCodePollingExhausted      ErrorCode = "POLLING_EXHAUSTED"
	ErrCodeMalformedResult       ErrorCode = "MALFORMED_EXTRACTION_RESULT"
	ErrCodeEmptyDraft            ErrorCode = "EMPTY_DRAFT"
	ErrCodeValidationFailed      ErrorCode = "VALIDATION_FAILED"
	ErrCodeUploadFailed          ErrorCode = "UPLOAD_FAILED"
	ErrCodePublishPartialFailure ErrorCode = "PUBLISH_PARTIAL_FAILURE"
	ErrCodeExternalService       ErrorCode = "EXTERNAL_SERVICE_ERROR"
	ErrCodeTimeout               ErrorCode = "TIMEOUT_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// IsCode reports whether err is a *StandardError carrying the given code.
func IsCode(err error, code ErrorCode) bool {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr.Code == code
	}
	return false
}

// NewAuthError creates a non-retryable credential error. Recovery requires
// re-authenticating, not retrying the same call.
func NewAuthError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeAuth,
		Message:   "Missing or expired credential",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewUploadError creates a retryable extraction submit error.
func NewUploadError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeUpload,
		Message:   "Extraction job submission failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidFileTypeError creates a non-retryable file type error, raised
// before any network call is made.
func NewInvalidFileTypeError(mimeType string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidFileType,
		Message:   "File is not an accepted image type",
		Details:   fmt.Sprintf("mimeType: %s", mimeType),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewExtractionFailedError creates a non-retryable job failure error. The
// job reached terminal failed state on the backend; this is not a transport
// error and is surfaced verbatim to the user.
func NewExtractionFailedError(jobID, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeExtractionFailed,
		Message:   "Extraction job failed",
		Details:   details,
		Retryable: false,
		Metadata:  map[string]interface{}{"jobId": jobID},
		Timestamp: time.Now().UTC(),
	}
}

// NewPollingExhaustedError creates a retryable transport-level polling
// error, distinct from ExtractionFailed.
func NewPollingExhaustedError(jobID string, consecutiveFailures int, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodePollingExhausted,
		Message:   "Job status polling exhausted transport retries",
		Details:   err.Error(),
		Retryable: true,
		Metadata: map[string]interface{}{
			"jobId":               jobID,
			"consecutiveFailures": consecutiveFailures,
		},
		Timestamp: time.Now().UTC(),
	}
}

// NewMalformedResultError creates a non-retryable reconciliation input error.
func NewMalformedResultError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeMalformedResult,
		Message:   "Extraction result violates the structural contract",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewEmptyDraftError creates a non-retryable validation error, raised before
// any network call is made.
func NewEmptyDraftError() *StandardError {
	return &StandardError{
		Code:      ErrCodeEmptyDraft,
		Message:   "Draft has no section with a named item",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewValidationError creates a non-retryable draft field validation error.
func NewValidationError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeValidationFailed,
		Message:   "Draft validation failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewUploadFailedError creates a retryable image upload error carrying the
// backend-provided reason.
func NewUploadFailedError(reason string) *StandardError {
	return &StandardError{
		Code:      ErrCodeUploadFailed,
		Message:   "Image upload rejected by backend",
		Details:   reason,
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewPublishPartialFailureError creates a retryable error for the
// created-but-not-published state. The created menu ID is preserved so the
// caller can retry only the publish step.
func NewPublishPartialFailureError(menuID string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodePublishPartialFailure,
		Message:   "Menu created but publish step failed",
		Details:   err.Error(),
		Retryable: true,
		Metadata:  map[string]interface{}{"menuId": menuID},
		Timestamp: time.Now().UTC(),
	}
}

// CreatedMenuID extracts the created menu identifier from a
// PUBLISH_PARTIAL_FAILURE error, if present.
func CreatedMenuID(err error) (string, bool) {
	var stdErr *StandardError
	if !errors.As(err, &stdErr) || stdErr.Code != ErrCodePublishPartialFailure {
		return "", false
	}
	id, ok := stdErr.Metadata["menuId"].(string)
	return id, ok && id != ""
}

// Generic constructors

func NewExternalServiceError(service string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeExternalService,
		Message:   fmt.Sprintf("External service '%s' error", service),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewTimeoutError(service string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeTimeout,
		Message:   fmt.Sprintf("Service '%s' timeout", service),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}
