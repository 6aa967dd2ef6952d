// Package errors provides standardized error handling for BPMN workflow integration.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Generation service
	ErrCodeMalformedResponse       ErrorCode = "MALFORMED_RESPONSE"
	ErrCodeServiceInvocationFailed ErrorCode = "SERVICE_INVOCATION_FAILED"
	ErrCodeServiceTimeout          ErrorCode = "SERVICE_TIMEOUT"
	ErrCodeSchemaGap               ErrorCode = "SCHEMA_GAP"

	// Input and lookups
	ErrCodeInputValidationFailed ErrorCode = "INPUT_VALIDATION_FAILED"
	ErrCodeInvalidDecision       ErrorCode = "INVALID_DECISION"
	ErrCodeProjectNotFound       ErrorCode = "PROJECT_NOT_FOUND"
	ErrCodeNoStoriesForModule    ErrorCode = "NO_STORIES_FOR_MODULE"
	ErrCodePendingBatchNotFound  ErrorCode = "PENDING_BATCH_NOT_FOUND"

	// Persistence
	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeStorageFailed            ErrorCode = "STORAGE_FAILED"
	ErrCodeExportFailed             ErrorCode = "EXPORT_FAILED"
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
	if e.Details == "" {
		return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("StandardError[%s]: %s (%s)", e.Code, e.Message, e.Details)
}

// WithMetadata attaches a key/value pair and returns the receiver.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

func newError(code ErrorCode, message, details string, retryable bool) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
	}
}

// NewMalformedResponseError reports generation output that yielded no usable JSON.
func NewMalformedResponseError(details string) *StandardError {
	return newError(ErrCodeMalformedResponse, "Generation response could not be parsed", details, false)
}

// NewServiceInvocationFailedError reports a failed call to the generation service.
func NewServiceInvocationFailedError(err error) *StandardError {
	return newError(ErrCodeServiceInvocationFailed, "Generation service call failed", errDetails(err), true)
}

// NewServiceTimeoutError reports a generation call that ran past its deadline.
func NewServiceTimeoutError(err error) *StandardError {
	return newError(ErrCodeServiceTimeout, "Generation service timeout", errDetails(err), true)
}

// NewSchemaGapError records a value that was present but of an unexpected shape.
func NewSchemaGapError(details string) *StandardError {
	return newError(ErrCodeSchemaGap, "Record field had unexpected shape", details, false)
}

func NewInputValidationFailedError(details string) *StandardError {
	return newError(ErrCodeInputValidationFailed, "Input validation failed", details, false)
}

func NewInvalidDecisionError(decision string) *StandardError {
	return newError(ErrCodeInvalidDecision, "Unsupported review decision", fmt.Sprintf("decision: %s", decision), false)
}

func NewProjectNotFoundError(project string) *StandardError {
	return newError(ErrCodeProjectNotFound, "Project not found", fmt.Sprintf("project: %s", project), false)
}

func NewNoStoriesForModuleError(project, module string) *StandardError {
	return newError(ErrCodeNoStoriesForModule, "No approved stories for module",
		fmt.Sprintf("project: %s, module: %s", project, module), false)
}

func NewPendingBatchNotFoundError(key string) *StandardError {
	return newError(ErrCodePendingBatchNotFound, "No pending batch awaiting review", fmt.Sprintf("key: %s", key), false)
}

// NewDatabaseConnectionFailedError creates a retryable database connection error.
func NewDatabaseConnectionFailedError(err error) *StandardError {
	return newError(ErrCodeDatabaseConnectionFailed, "Database connection error", errDetails(err), true)
}

// NewStorageFailedError reports a failed read or write of project data.
func NewStorageFailedError(operation string, err error) *StandardError {
	return newError(ErrCodeStorageFailed, "Storage operation failed",
		fmt.Sprintf("operation: %s, error: %s", operation, errDetails(err)), true)
}

// NewExportFailedError reports a failed workbook append.
func NewExportFailedError(path string, err error) *StandardError {
	return newError(ErrCodeExportFailed, "Workbook export failed",
		fmt.Sprintf("path: %s, error: %s", path, errDetails(err)), true)
}

func errDetails(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// BPMNErrorMapping maps internal error codes to BPMN error codes.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeMalformedResponse:        "MALFORMED_RESPONSE",
	ErrCodeServiceInvocationFailed:  "SERVICE_INVOCATION_FAILED",
	ErrCodeServiceTimeout:           "SERVICE_TIMEOUT",
	ErrCodeSchemaGap:                "SCHEMA_GAP",
	ErrCodeInputValidationFailed:    "INPUT_VALIDATION_FAILED",
	ErrCodeInvalidDecision:          "INVALID_DECISION",
	ErrCodeProjectNotFound:          "PROJECT_NOT_FOUND",
	ErrCodeNoStoriesForModule:       "NO_STORIES_FOR_MODULE",
	ErrCodePendingBatchNotFound:     "PENDING_BATCH_NOT_FOUND",
	ErrCodeDatabaseConnectionFailed: "DATABASE_CONNECTION_FAILED",
	ErrCodeStorageFailed:            "STORAGE_FAILED",
	ErrCodeExportFailed:             "EXPORT_FAILED",
}

// GetRetryCount returns the recommended retry count for an error code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeServiceInvocationFailed,
		ErrCodeDatabaseConnectionFailed,
		ErrCodeStorageFailed:
		return 3

	case ErrCodeServiceTimeout,
		ErrCodeExportFailed:
		return 2

	default:
		return 0
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	vars := map[string]interface{}{
		"originalErrorCode": string(stdErr.Code),
		"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
	}
	for k, v := range stdErr.Metadata {
		vars[k] = v
	}

	return &BPMNError{
		Code:           bpmnCode,
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		Retryable:      stdErr.Retryable,
		Retries:        retries,
		ErrorVariables: vars,
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// AsStandardError unwraps err to a *StandardError if one is in its chain.
func AsStandardError(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// CodeOf returns the error code carried by err, or "" when it has none.
func CodeOf(err error) ErrorCode {
	if stdErr, ok := AsStandardError(err); ok {
		return stdErr.Code
	}
	return ""
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "SERVICE") || strings.Contains(codeStr, "RESPONSE") || strings.Contains(codeStr, "SCHEMA"):
		return "GENERATION"
	case strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "STORAGE") || strings.Contains(codeStr, "EXPORT"):
		return "STORAGE"
	case strings.Contains(codeStr, "NOT_FOUND") || strings.Contains(codeStr, "NO_STORIES"):
		return "LOOKUP"
	case strings.Contains(codeStr, "INVALID") || strings.Contains(codeStr, "VALIDATION"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
