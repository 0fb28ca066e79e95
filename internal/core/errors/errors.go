package errors

const (
	HttpInternalError       = "internal_error"
	HttpInvalidJsonError    = "invalid_json"
	HttpInvalidRequestError = "invalid_request"
	HttpUnauthorizedError   = "unauthorized"
	HttpDraftNotFoundError  = "draft_not_found"
	HttpDuplicateDraftError = "duplicate_draft"
	HttpPersistenceError    = "persistence_failed"
	HttpPublishError        = "publish_failed"
)

// ErrorResponse is the JSON error body returned by every handler.
type ErrorResponse struct {
	ErrorType string      `json:"error_type"`
	Error     string      `json:"error"`
	Details   interface{} `json:"details,omitempty"`
}

// RoutedError is one catalog error translated for the editing UI.
type RoutedError struct {
	Page      string `json:"page,omitempty"`
	TopField  string `json:"top_field,omitempty"`
	Field     string `json:"field,omitempty"`
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// PublishErrorResponse is returned when the catalog rejects a publish.
type PublishErrorResponse struct {
	ErrorType string        `json:"error_type"`
	Error     string        `json:"error"`
	Errors    []RoutedError `json:"errors"`
}
