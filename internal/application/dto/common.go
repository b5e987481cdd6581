// Package dto holds the response envelopes shared by the HTTP surface
// (internal/interfaces/http/handler): the error envelope the sync
// engine's handlers render.
package dto

import "time"

// ErrorResponse is the standardized error envelope every handler error
// path renders.
type ErrorResponse struct {
	Error     ErrorDetail `json:"error"`
	RequestID string      `json:"request_id,omitempty" example:"req_123456789"`
	Timestamp time.Time   `json:"timestamp" example:"2023-01-01T00:00:00Z"`
	Path      string      `json:"path,omitempty" example:"/sync/connections/123/start-scan"`
	Method    string      `json:"method,omitempty" example:"POST"`
}

// ErrorDetail carries the AppError code/message pair rendered into an
// ErrorResponse.
type ErrorDetail struct {
	Code        string                 `json:"code" example:"NOT_FOUND"`
	Message     string                 `json:"message" example:"platform connection not found"`
	Details     map[string]interface{} `json:"details,omitempty"`
	UserMessage string                 `json:"user_message,omitempty"`
}
