package error

import "errors"

// Analytics domain errors.
var (
	// ErrInvalidTrendDays is returned when the requested trend window is out of range.
	ErrInvalidTrendDays = errors.New("invalid trend days")

	// ErrInvalidReportPeriod is returned when the report period label is malformed.
	ErrInvalidReportPeriod = errors.New("invalid report period")
)

// AnalyticsErrorCode defines error codes for analytics errors.
// Format: ANL-XXYYYY where XX is category and YYYY is specific error.
type AnalyticsErrorCode string

const (
	// Validation errors (01XXXX)
	ErrCodeInvalidTrendDays    AnalyticsErrorCode = "ANL-010001"
	ErrCodeInvalidReportPeriod AnalyticsErrorCode = "ANL-010002"

	// Internal errors (99XXXX)
	ErrCodeAnalyticsUnavailable AnalyticsErrorCode = "ANL-990001"
)

// AnalyticsError represents an analytics error with code and message.
type AnalyticsError struct {
	Code    AnalyticsErrorCode
	Message string
	Err     error
}

// Error implements the error interface.
func (e *AnalyticsError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *AnalyticsError) Unwrap() error {
	return e.Err
}

// NewAnalyticsError creates a new AnalyticsError with the given code and message.
func NewAnalyticsError(code AnalyticsErrorCode, message string, err error) *AnalyticsError {
	return &AnalyticsError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// NewAnalyticsUnavailableError wraps a failure of the ledger store or snapshot cache.
func NewAnalyticsUnavailableError(err error) *AnalyticsError {
	return NewAnalyticsError(
		ErrCodeAnalyticsUnavailable,
		"analytics temporarily unavailable",
		errors.Join(ErrUpstreamUnavailable, err),
	)
}
