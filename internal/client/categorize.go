package client

import (
	"context"
	"errors"
)

// ErrorCategory is a stable label for error classification in metrics.
type ErrorCategory string

// Error category constants used as the weatherApiErrorsTotal label.
const (
	ErrorCategoryTimeout         ErrorCategory = "timeout"
	ErrorCategoryNetwork         ErrorCategory = "network"
	ErrorCategoryInvalidLocation ErrorCategory = "invalid_location"
	ErrorCategoryMisconfigured   ErrorCategory = "misconfigured"
	ErrorCategoryCircuitOpen     ErrorCategory = "circuit_open"
	ErrorCategoryParsing         ErrorCategory = "parsing"
	ErrorCategoryUpstream        ErrorCategory = "upstream"
	ErrorCategoryCanceled        ErrorCategory = "canceled"
	ErrorCategoryUnknown         ErrorCategory = "unknown"
)

// CategorizeError maps an error to a stable ErrorCategory for metrics.
// The more specific markers (circuit open, malformed response) are checked before
// the broad ErrProviderUnavailable they are paired with.
func CategorizeError(err error) ErrorCategory {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrProviderTimeout):
		return ErrorCategoryTimeout
	case errors.Is(err, ErrInvalidLocation):
		return ErrorCategoryInvalidLocation
	case errors.Is(err, ErrProviderMisconfigured):
		return ErrorCategoryMisconfigured
	case errors.Is(err, ErrCircuitOpen):
		return ErrorCategoryCircuitOpen
	case errors.Is(err, ErrMalformedResponse):
		return ErrorCategoryParsing
	case errors.Is(err, context.Canceled):
		return ErrorCategoryCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return ErrorCategoryTimeout
	case errors.Is(err, ErrProviderUnavailable):
		var statusErr *StatusError
		if errors.As(err, &statusErr) {
			return ErrorCategoryUpstream
		}
		return ErrorCategoryNetwork
	default:
		return ErrorCategoryUnknown
	}
}
