// Package adapters provides implementations of application adapter interfaces.
package adapters

import (
	"time"

	"github.com/finance-tracker/ledger/internal/application/adapter"
)

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

// NewSystemClock creates a clock backed by time.Now.
func NewSystemClock() adapter.Clock {
	return SystemClock{}
}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}
