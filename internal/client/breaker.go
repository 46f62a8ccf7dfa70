package client

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/kjstillabower/weather-records-service/internal/observability"
)

// BreakerConfig holds circuit breaker parameters for the live provider.
type BreakerConfig struct {
	FailureThreshold int           // consecutive failures before opening
	OpenTimeout      time.Duration // time spent open before a half-open trial call
	Logger           *zap.Logger
}

// NewCircuitBreaker builds the breaker around provider calls. Only provider outages
// count as failures: unresolvable locations, credential errors and callers that
// went away do not.
func NewCircuitBreaker(cfg BreakerConfig) *gobreaker.CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}
	threshold := uint32(cfg.FailureThreshold)
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	observability.CircuitBreakerState.Set(breakerStateValue(gobreaker.StateClosed))

	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "weatherstack",
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: isBreakerSuccess,
		OnStateChange: func(name string, from, to gobreaker.State) {
			observability.CircuitBreakerState.Set(breakerStateValue(to))
			logger.Warn("circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
}

func isBreakerSuccess(err error) bool {
	switch {
	case err == nil,
		errors.Is(err, ErrInvalidLocation),
		errors.Is(err, ErrProviderMisconfigured),
		errors.Is(err, context.Canceled):
		return true
	}
	return false
}

func breakerStateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
