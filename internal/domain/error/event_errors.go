package error

import "errors"

// Event domain errors.
var (
	// ErrMalformedEvent is returned when an event message cannot be decoded or is semantically invalid.
	ErrMalformedEvent = errors.New("malformed event")
)

// EventErrorCode defines error codes for event errors.
// Format: EVT-XXYYYY where XX is category and YYYY is specific error.
type EventErrorCode string

const (
	// Decoding errors (01XXXX)
	ErrCodeUndecodableEvent EventErrorCode = "EVT-010001"
	ErrCodeInvalidEvent     EventErrorCode = "EVT-010002"

	// Delivery errors (02XXXX)
	ErrCodePublishFailed EventErrorCode = "EVT-020001"
)

// EventError represents an event error with code and message.
type EventError struct {
	Code    EventErrorCode
	Message string
	Err     error
}

// Error implements the error interface.
func (e *EventError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *EventError) Unwrap() error {
	return e.Err
}

// NewEventError creates a new EventError with the given code and message.
func NewEventError(code EventErrorCode, message string, err error) *EventError {
	return &EventError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// NewMalformedEventError marks an event as undeliverable to any handler.
func NewMalformedEventError(code EventErrorCode, message string, cause error) *EventError {
	return NewEventError(code, message, errors.Join(ErrMalformedEvent, cause))
}
