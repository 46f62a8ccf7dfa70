package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kjstillabower/weather-records-service/internal/models"
)

// Provider modes reported by WeatherClient.Mode.
const (
	ModeLive      = "live"
	ModeSynthetic = "synthetic"
)

// WeatherClient produces current conditions for a location.
type WeatherClient interface {
	GetCurrentWeather(ctx context.Context, location string) (models.WeatherData, error)
	Mode() string
}

var (
	ErrInvalidLocation       = errors.New("invalid location")
	ErrProviderMisconfigured = errors.New("weather provider misconfigured")
	ErrProviderUnavailable   = errors.New("weather provider unavailable")
	ErrProviderTimeout       = errors.New("weather provider timeout")

	// ErrMalformedResponse is always returned alongside ErrProviderUnavailable.
	ErrMalformedResponse = errors.New("malformed provider response")
	// ErrCircuitOpen is always returned alongside ErrProviderUnavailable.
	ErrCircuitOpen = errors.New("circuit breaker open")
)

// ProviderError carries the error payload reported by the provider.
// Err is ErrInvalidLocation or ErrProviderMisconfigured.
type ProviderError struct {
	Err  error
	Code int
	Type string
	Info string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%v: provider error %d (%s)", e.Err, e.Code, e.Type)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// StatusError records a non-200 HTTP status from the provider.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

// Options configures NewWeatherClient.
type Options struct {
	APIKey  string
	APIURL  string
	Timeout time.Duration
	Breaker *BreakerConfig // nil disables the circuit breaker
}

// NewWeatherClient returns a live Weatherstack client when an API key is configured,
// otherwise a synthetic client so the service works standalone.
func NewWeatherClient(opts Options) (WeatherClient, error) {
	if opts.APIKey == "" {
		return NewSyntheticClient(nil), nil
	}
	c, err := NewWeatherstackClient(opts.APIKey, opts.APIURL, opts.Timeout)
	if err != nil {
		return nil, err
	}
	if opts.Breaker != nil {
		c.SetCircuitBreaker(NewCircuitBreaker(*opts.Breaker))
	}
	return c, nil
}
