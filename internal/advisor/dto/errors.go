package dto

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrPriceUnavailable matches a *PriceUnavailableError.
	ErrPriceUnavailable = errors.New("price unavailable")
	// ErrAdvisoryUnavailable matches an *AdvisoryUnavailableError.
	ErrAdvisoryUnavailable = errors.New("advisory unavailable")
	// ErrRunSkipped is returned when a run is attempted while another is in flight.
	ErrRunSkipped = errors.New("run skipped: another run is in progress")
	// ErrNoAdvisory is returned when no run has been published yet.
	ErrNoAdvisory = errors.New("no advisory published yet")
)

// TierFailure records why one tier did not produce a price.
type TierFailure struct {
	Tier   TierKind `json:"tier"`
	Source string   `json:"source"`
	Reason string   `json:"reason"`
}

// PriceUnavailableError is returned when every tier failed for a ticker.
type PriceUnavailableError struct {
	Ticker   string
	Failures []TierFailure
}

func (e *PriceUnavailableError) Error() string {
	reasons := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		reasons = append(reasons, fmt.Sprintf("%s(%s): %s", f.Tier, f.Source, f.Reason))
	}
	return fmt.Sprintf("price unavailable for %s: %s", e.Ticker, strings.Join(reasons, "; "))
}

func (e *PriceUnavailableError) Is(target error) bool {
	return target == ErrPriceUnavailable
}

// AdvisoryUnavailableError is returned when the advisor exhausted retries or
// produced a response that failed validation.
type AdvisoryUnavailableError struct {
	Mode   AdvisorMode
	Reason string
	Err    error
}

func (e *AdvisoryUnavailableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("advisory unavailable (%s): %s: %v", e.Mode, e.Reason, e.Err)
	}
	return fmt.Sprintf("advisory unavailable (%s): %s", e.Mode, e.Reason)
}

func (e *AdvisoryUnavailableError) Is(target error) bool {
	return target == ErrAdvisoryUnavailable
}

func (e *AdvisoryUnavailableError) Unwrap() error {
	return e.Err
}
