package error

import "errors"

// Identity domain errors.
var (
	// ErrMissingUserID is returned when the caller identity header is absent.
	ErrMissingUserID = errors.New("user id is required")

	// ErrInvalidUserID is returned when the caller identity is not a valid UUID.
	ErrInvalidUserID = errors.New("invalid user id")

	// ErrRateLimited is returned when a caller exceeds the write rate limit.
	ErrRateLimited = errors.New("too many requests")
)

// IdentityErrorCode defines error codes for caller identity errors.
// Format: IDN-XXYYYY where XX is category and YYYY is specific error.
type IdentityErrorCode string

const (
	// Identity errors (01XXXX)
	ErrCodeMissingUserID IdentityErrorCode = "IDN-010001"
	ErrCodeInvalidUserID IdentityErrorCode = "IDN-010002"

	// Throttling errors (02XXXX)
	ErrCodeRateLimited IdentityErrorCode = "IDN-020001"
)
