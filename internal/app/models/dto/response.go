package dto

import "time"

// ErrorCode represents standardized error codes of the status API
type ErrorCode string

const (
	ErrorCodeRunNotFound      ErrorCode = "RUN_001"
	ErrorCodeValidationFailed ErrorCode = "VAL_001"
	ErrorCodeInternalServer   ErrorCode = "SRV_001"
)

// ErrorDetail represents detailed error information
type ErrorDetail struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Field   string    `json:"field,omitempty"`
}

// StructuredResponse is the envelope of every status API response
type StructuredResponse struct {
	Success   bool         `json:"success"`
	Data      interface{}  `json:"data,omitempty"`
	Error     *ErrorDetail `json:"error,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}

// NewSuccessResponse wraps data in a successful envelope
func NewSuccessResponse(data interface{}) *StructuredResponse {
	return &StructuredResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}
}

// NewErrorResponse wraps an error detail in a failed envelope
func NewErrorResponse(code ErrorCode, message string) *StructuredResponse {
	return &StructuredResponse{
		Success:   false,
		Error:     &ErrorDetail{Code: code, Message: message},
		Timestamp: time.Now().UTC(),
	}
}

// PaginationInfo holds pagination metadata for list responses
type PaginationInfo struct {
	CurrentPage int   `json:"currentPage"`
	TotalPages  int   `json:"totalPages"`
	PageSize    int   `json:"pageSize"`
	TotalItems  int64 `json:"totalItems"`
}

// RunListResponse is a page of archived run reports, newest first
type RunListResponse struct {
	Runs       interface{}    `json:"runs"`
	Pagination PaginationInfo `json:"pagination"`
}
