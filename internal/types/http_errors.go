package types

// PublicHTTPError types used for client-side error handling
const (
	PublicHTTPErrorTypeGeneric    = "generic"
	PublicHTTPErrorTypeValidation = "validation"
)

// PublicHTTPError is the public representation of an API error
type PublicHTTPError struct {
	// HTTP status code returned for the error
	// Required: true
	Code *int64 `json:"status"`

	// Type of error returned, should be used for client-side error handling
	// Required: true
	Type *string `json:"type"`

	// Short, human-readable description of the error
	// Required: true
	Title *string `json:"title"`

	// More detailed, human-readable, optional explanation of the error
	Detail string `json:"detail,omitempty"`
}

// HTTPValidationErrorDetail describes a single field validation failure
type HTTPValidationErrorDetail struct {
	// Key of the field failing validation
	Key *string `json:"key"`

	// Indicates how the invalid field was provided
	In *string `json:"in"`

	// Error describing the field validation failure
	Error *string `json:"error"`
}

// PublicHTTPValidationError extends PublicHTTPError with per-field details
type PublicHTTPValidationError struct {
	PublicHTTPError

	// List of errors received while validating the payload against the schema
	ValidationErrors []*HTTPValidationErrorDetail `json:"validationErrors"`
}
