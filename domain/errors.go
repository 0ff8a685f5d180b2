package domain

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrNotFound          = errors.New("ticker not found")
	ErrComputationFailed = errors.New("price computation failed")
	ErrCancelled         = errors.New("price computation cancelled")
	// ErrNonPositivePrice is returned when a generator breaks its contract
	// and produces a price that is zero or negative.
	ErrNonPositivePrice = errors.New("generator returned non-positive price")
)

// ComputationError is delivered to every waiter of a failed computation.
type ComputationError struct {
	Ticker string
	Bucket int64
	Err    error
}

func (e *ComputationError) Error() string {
	return fmt.Sprintf("%s for %s at %d: %v", ErrComputationFailed, e.Ticker, e.Bucket, e.Err)
}

func (e *ComputationError) Unwrap() error {
	return e.Err
}

func (e *ComputationError) Is(target error) bool {
	return target == ErrComputationFailed
}
