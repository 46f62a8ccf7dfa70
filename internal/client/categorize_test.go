package client

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

// TestCategorizeError verifies the metric label for sentinel, wrapped and paired errors.
func TestCategorizeError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCategory
	}{
		{"nil", nil, ""},
		{"timeout", fmt.Errorf("%w: %w", ErrProviderTimeout, context.DeadlineExceeded), ErrorCategoryTimeout},
		{"bare deadline", context.DeadlineExceeded, ErrorCategoryTimeout},
		{"canceled transport", fmt.Errorf("%w: %w", ErrProviderUnavailable, context.Canceled), ErrorCategoryCanceled},
		{"invalid location", &ProviderError{Err: ErrInvalidLocation, Code: 615}, ErrorCategoryInvalidLocation},
		{"misconfigured", &ProviderError{Err: ErrProviderMisconfigured, Code: 101}, ErrorCategoryMisconfigured},
		{"wrapped misconfigured", fmt.Errorf("create: %w", ErrProviderMisconfigured), ErrorCategoryMisconfigured},
		{"circuit open", fmt.Errorf("%w: %w", ErrProviderUnavailable, ErrCircuitOpen), ErrorCategoryCircuitOpen},
		{"malformed", fmt.Errorf("%w: %w: bad", ErrProviderUnavailable, ErrMalformedResponse), ErrorCategoryParsing},
		{"http status", fmt.Errorf("%w: %w", ErrProviderUnavailable, &StatusError{StatusCode: 502}), ErrorCategoryUpstream},
		{"network", fmt.Errorf("%w: %w", ErrProviderUnavailable, errors.New("connection refused")), ErrorCategoryNetwork},
		{"unknown", errors.New("something else"), ErrorCategoryUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CategorizeError(tt.err); got != tt.want {
				t.Errorf("CategorizeError() = %v, want %v", got, tt.want)
			}
		})
	}
}
