package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/sony/gobreaker"

	"github.com/kjstillabower/weather-records-service/internal/models"
	"github.com/kjstillabower/weather-records-service/internal/observability"
)

// DefaultWeatherstackURL is the current-conditions endpoint.
const DefaultWeatherstackURL = "http://api.weatherstack.com/current"

// WeatherstackClient issues a single current-conditions request per call. No retries.
type WeatherstackClient struct {
	apiKey  string
	apiURL  string
	timeout time.Duration
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
}

func NewWeatherstackClient(apiKey, apiURL string, timeout time.Duration) (*WeatherstackClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: API key is required", ErrProviderMisconfigured)
	}
	if apiURL == "" {
		apiURL = DefaultWeatherstackURL
	}
	if _, err := url.Parse(apiURL); err != nil {
		return nil, fmt.Errorf("%w: invalid API URL: %v", ErrProviderMisconfigured, err)
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WeatherstackClient{
		apiKey:  apiKey,
		apiURL:  apiURL,
		timeout: timeout,
		client: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// SetCircuitBreaker wraps subsequent calls in cb. Pass nil to disable.
func (c *WeatherstackClient) SetCircuitBreaker(cb *gobreaker.CircuitBreaker) {
	c.breaker = cb
}

func (c *WeatherstackClient) Mode() string {
	return ModeLive
}

type weatherstackError struct {
	Code int    `json:"code"`
	Type string `json:"type"`
	Info string `json:"info"`
}

type weatherstackResponse struct {
	Error    *weatherstackError `json:"error"`
	Location *struct {
		Name      string `json:"name"`
		Localtime string `json:"localtime"`
	} `json:"location"`
	Current *struct {
		Temperature         *float64 `json:"temperature"`
		WeatherDescriptions []string `json:"weather_descriptions"`
		WindSpeed           *float64 `json:"wind_speed"`
		WindDir             string   `json:"wind_dir"`
		Pressure            *float64 `json:"pressure"`
		Precip              *float64 `json:"precip"`
		Humidity            *float64 `json:"humidity"`
		CloudCover          *float64 `json:"cloudcover"`
		FeelsLike           *float64 `json:"feelslike"`
		UVIndex             *float64 `json:"uv_index"`
		Visibility          *float64 `json:"visibility"`
		Astro               *struct {
			Sunrise string `json:"sunrise"`
			Sunset  string `json:"sunset"`
		} `json:"astro"`
	} `json:"current"`
}

// GetCurrentWeather fetches current conditions for location in metric units.
func (c *WeatherstackClient) GetCurrentWeather(ctx context.Context, location string) (models.WeatherData, error) {
	if c.breaker == nil {
		return c.callAPI(ctx, location)
	}
	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.callAPI(ctx, location)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return models.WeatherData{}, fmt.Errorf("%w: %w", ErrProviderUnavailable, ErrCircuitOpen)
		}
		return models.WeatherData{}, err
	}
	return result.(models.WeatherData), nil
}

func (c *WeatherstackClient) callAPI(ctx context.Context, location string) (models.WeatherData, error) {
	start := time.Now()

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := c.buildRequest(reqCtx, location)
	if err != nil {
		observability.WeatherAPICallsTotal.WithLabelValues("error").Inc()
		return models.WeatherData{}, fmt.Errorf("build request: %w", err)
	}
	if corrID := observability.CorrelationID(ctx); corrID != "" {
		req.Header.Set("X-Correlation-ID", corrID)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		observability.WeatherAPICallsTotal.WithLabelValues("error").Inc()
		observability.WeatherAPIDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
		return models.WeatherData{}, classifyTransportError(err)
	}
	defer resp.Body.Close()

	status := statusLabel(resp.StatusCode)
	observability.WeatherAPICallsTotal.WithLabelValues(status).Inc()
	observability.WeatherAPIDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())

	if resp.StatusCode != http.StatusOK {
		return models.WeatherData{}, fmt.Errorf("%w: %w", ErrProviderUnavailable, &StatusError{StatusCode: resp.StatusCode})
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.WeatherData{}, classifyTransportError(fmt.Errorf("read response body: %w", err))
	}

	var apiResp weatherstackResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return models.WeatherData{}, fmt.Errorf("%w: %w: parse response: %v", ErrProviderUnavailable, ErrMalformedResponse, err)
	}
	if apiResp.Error != nil {
		return models.WeatherData{}, classifyPayloadError(*apiResp.Error)
	}
	return mapResponse(apiResp)
}

func (c *WeatherstackClient) buildRequest(ctx context.Context, location string) (*http.Request, error) {
	baseURL, err := url.Parse(c.apiURL)
	if err != nil {
		return nil, fmt.Errorf("invalid API URL: %w", err)
	}

	params := url.Values{}
	params.Set("access_key", c.apiKey)
	params.Set("query", location)
	params.Set("units", "m")
	baseURL.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// mapResponse renames provider fields into WeatherData. Fails closed when the
// current block or its temperature is missing.
func mapResponse(apiResp weatherstackResponse) (models.WeatherData, error) {
	cur := apiResp.Current
	if cur == nil {
		return models.WeatherData{}, fmt.Errorf("%w: %w: missing current conditions", ErrProviderUnavailable, ErrMalformedResponse)
	}
	if cur.Temperature == nil {
		return models.WeatherData{}, fmt.Errorf("%w: %w: missing temperature", ErrProviderUnavailable, ErrMalformedResponse)
	}

	data := models.WeatherData{
		Temperature:   cur.Temperature,
		Humidity:      cur.Humidity,
		WindSpeed:     cur.WindSpeed,
		Pressure:      cur.Pressure,
		Visibility:    cur.Visibility,
		FeelsLike:     cur.FeelsLike,
		UVIndex:       cur.UVIndex,
		Precipitation: cur.Precip,
		CloudCover:    cur.CloudCover,
		WindDirection: cur.WindDir,
	}
	if len(cur.WeatherDescriptions) > 0 {
		data.Description = cur.WeatherDescriptions[0]
	}
	if cur.Astro != nil {
		data.Sunrise = cur.Astro.Sunrise
		data.Sunset = cur.Astro.Sunset
	}
	if apiResp.Location != nil {
		data.LocalTime = apiResp.Location.Localtime
	}
	return data, nil
}

// classifyTransportError maps http.Client failures to ErrProviderTimeout or ErrProviderUnavailable.
func classifyTransportError(err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %w", ErrProviderTimeout, err)
	}
	return fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
}

// credentialErrorCodes are Weatherstack codes for missing/invalid keys, inactive
// accounts, exhausted usage and plan restrictions.
var credentialErrorCodes = map[int]struct{}{
	101: {},
	102: {},
	104: {},
	105: {},
}

// classifyPayloadError splits provider error payloads into credential problems and
// unresolvable queries. Anything that is not a credential problem is treated as a location problem.
func classifyPayloadError(e weatherstackError) error {
	kind := ErrInvalidLocation
	if isCredentialError(e) {
		kind = ErrProviderMisconfigured
	}
	return &ProviderError{Err: kind, Code: e.Code, Type: e.Type, Info: e.Info}
}

func isCredentialError(e weatherstackError) bool {
	if _, ok := credentialErrorCodes[e.Code]; ok {
		return true
	}
	if hasAny(strings.ToLower(e.Type), "access_key", "inactive_user", "usage_limit", "restricted") {
		return true
	}
	return hasAny(strings.ToLower(e.Info), "api key", "access key")
}

func hasAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func statusLabel(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return "success"
	case statusCode == http.StatusTooManyRequests:
		return "rate_limited"
	case statusCode >= 400 && statusCode < 500:
		return "client_error"
	case statusCode >= 500:
		return "server_error"
	default:
		return "error"
	}
}
