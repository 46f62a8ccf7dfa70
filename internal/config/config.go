package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Defaults applied when neither the YAML file nor the environment sets a value.
const (
	DefaultPort                    = "8000"
	DefaultStorePath               = "weather_data.json"
	DefaultWeatherAPIURL           = "http://api.weatherstack.com/current"
	DefaultWeatherAPITimeout       = 10 * time.Second
	DefaultRequestTimeout          = 15 * time.Second
	DefaultRateLimitRPS            = 100
	DefaultRateLimitBurst          = 250
	DefaultBreakerThreshold        = 5
	DefaultBreakerOpenTimeout      = 30 * time.Second
	DefaultShutdownTimeout         = 30 * time.Second
	DefaultShutdownInFlightTimeout = 10 * time.Second
)

// DefaultAllowedOrigins are the local front-end dev servers.
var DefaultAllowedOrigins = []string{"http://localhost:3000", "http://127.0.0.1:3000"}

// DefaultAllowedHeaders accepts any request header on cross-origin calls.
var DefaultAllowedHeaders = []string{"*"}

// Config holds service configuration loaded from YAML and env.
type Config struct {
	ServerPort     string
	AllowedOrigins []string
	AllowedHeaders []string

	StorePath  string
	SeedSample bool

	// WeatherAPIKey is empty in synthetic mode.
	WeatherAPIKey     string
	WeatherAPIURL     string
	WeatherAPITimeout time.Duration

	RequestTimeout time.Duration

	RateLimitRPS   int // 0 disables rate limiting
	RateLimitBurst int

	CircuitBreakerEnabled          bool
	CircuitBreakerFailureThreshold int
	CircuitBreakerOpenTimeout      time.Duration

	ShutdownTimeout         time.Duration
	ShutdownInFlightTimeout time.Duration

	MetricsEnabled bool
}

type fileConfig struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	CORS struct {
		AllowedOrigins []string `yaml:"allowed_origins"`
		AllowedHeaders []string `yaml:"allowed_headers"`
	} `yaml:"cors"`

	Store struct {
		Path       string `yaml:"path"`
		SeedSample *bool  `yaml:"seed_sample"`
	} `yaml:"store"`

	WeatherAPI struct {
		URL     string `yaml:"url"`
		Timeout string `yaml:"timeout"`
	} `yaml:"weather_api"`

	Request struct {
		Timeout string `yaml:"timeout"`
	} `yaml:"request"`

	Reliability struct {
		RateLimitRPS   *int `yaml:"rate_limit_rps"`
		RateLimitBurst int  `yaml:"rate_limit_burst"`
		CircuitBreaker struct {
			Enabled          *bool  `yaml:"enabled"`
			FailureThreshold int    `yaml:"failure_threshold"`
			OpenTimeout      string `yaml:"open_timeout"`
		} `yaml:"circuit_breaker"`
	} `yaml:"reliability"`

	Shutdown struct {
		Timeout         string `yaml:"timeout"`
		InFlightTimeout string `yaml:"in_flight_timeout"`
	} `yaml:"shutdown"`

	Metrics struct {
		Enabled *bool `yaml:"enabled"`
	} `yaml:"metrics"`
}

type secretsFile struct {
	WeatherAPIKey string `yaml:"weather_api_key"`
}

// Load reads configuration relative to the working directory. See LoadFrom.
func Load() (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("config: get working directory: %w", err)
	}
	return LoadFrom(cwd)
}

// LoadFrom reads dir/.env (optional), dir/config/{ENV_NAME}.yaml (default dev, optional)
// and dir/config/secrets.yaml (optional), then applies env overrides.
// The API key comes from WEATHERSTACK_API_KEY or the secrets file; without one the
// service runs in synthetic mode.
func LoadFrom(dir string) (*Config, error) {
	if err := godotenv.Load(filepath.Join(dir, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	env := os.Getenv("ENV_NAME")
	if env == "" {
		env = "dev"
	}

	var fc fileConfig
	configPath := filepath.Join(dir, "config", env+".yaml")
	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", configPath, err)
		}
	case errors.Is(err, fs.ErrNotExist):
		// defaults only
	default:
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}

	cfg.ServerPort = firstNonEmpty(os.Getenv("PORT"), fc.Server.Port, DefaultPort)

	cfg.AllowedOrigins = splitList(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = fc.CORS.AllowedOrigins
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = append([]string(nil), DefaultAllowedOrigins...)
	}
	cfg.AllowedHeaders = splitList(os.Getenv("CORS_ALLOWED_HEADERS"))
	if len(cfg.AllowedHeaders) == 0 {
		cfg.AllowedHeaders = fc.CORS.AllowedHeaders
	}
	if len(cfg.AllowedHeaders) == 0 {
		cfg.AllowedHeaders = append([]string(nil), DefaultAllowedHeaders...)
	}

	cfg.StorePath = firstNonEmpty(os.Getenv("STORE_PATH"), fc.Store.Path, DefaultStorePath)
	cfg.SeedSample = boolOr(fc.Store.SeedSample, true)

	cfg.WeatherAPIKey, err = loadAPIKey(dir)
	if err != nil {
		return nil, err
	}
	cfg.WeatherAPIURL = firstNonEmpty(fc.WeatherAPI.URL, DefaultWeatherAPIURL)
	cfg.WeatherAPITimeout = parseDurationOrZero(fc.WeatherAPI.Timeout, DefaultWeatherAPITimeout)
	cfg.RequestTimeout = parseDuration(fc.Request.Timeout, DefaultRequestTimeout)

	cfg.RateLimitRPS = DefaultRateLimitRPS
	if fc.Reliability.RateLimitRPS != nil {
		cfg.RateLimitRPS = *fc.Reliability.RateLimitRPS
	}
	cfg.RateLimitBurst = fc.Reliability.RateLimitBurst
	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = DefaultRateLimitBurst
	}

	cb := fc.Reliability.CircuitBreaker
	cfg.CircuitBreakerEnabled = boolOr(cb.Enabled, true)
	cfg.CircuitBreakerFailureThreshold = cb.FailureThreshold
	if cfg.CircuitBreakerFailureThreshold <= 0 {
		cfg.CircuitBreakerFailureThreshold = DefaultBreakerThreshold
	}
	cfg.CircuitBreakerOpenTimeout = parseDuration(cb.OpenTimeout, DefaultBreakerOpenTimeout)

	cfg.ShutdownTimeout = parseDuration(fc.Shutdown.Timeout, DefaultShutdownTimeout)
	cfg.ShutdownInFlightTimeout = parseDuration(fc.Shutdown.InFlightTimeout, DefaultShutdownInFlightTimeout)

	cfg.MetricsEnabled = boolOr(fc.Metrics.Enabled, true)

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SyntheticMode reports whether no provider credential is configured.
func (c *Config) SyntheticMode() bool {
	return c.WeatherAPIKey == ""
}

func loadAPIKey(dir string) (string, error) {
	if key := strings.TrimSpace(os.Getenv("WEATHERSTACK_API_KEY")); key != "" {
		return key, nil
	}
	secretsPath := filepath.Join(dir, "config", "secrets.yaml")
	data, err := os.ReadFile(secretsPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("read secrets file: %w", err)
	}
	var sec secretsFile
	if err := yaml.Unmarshal(data, &sec); err != nil {
		return "", fmt.Errorf("parse secrets file: %w", err)
	}
	return strings.TrimSpace(sec.WeatherAPIKey), nil
}

// parseDuration parses a duration string and returns defaultVal if parsing fails or result is <= 0.
func parseDuration(s string, defaultVal time.Duration) time.Duration {
	d := parseDurationOrZero(s, defaultVal)
	if d <= 0 {
		return defaultVal
	}
	return d
}

// parseDurationOrZero parses a duration string, returning defaultVal on empty string or parse error.
// Zero and negative durations are returned as-is for validate to reject.
func parseDurationOrZero(s string, defaultVal time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return defaultVal
	}
	return d
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// validate performs post-load validation. RequestTimeout is raised above WeatherAPITimeout
// when it does not exceed it.
func validate(cfg *Config) error {
	if cfg.WeatherAPITimeout <= 0 {
		return fmt.Errorf("weather_api.timeout must be positive")
	}
	if cfg.RequestTimeout <= cfg.WeatherAPITimeout {
		cfg.RequestTimeout = cfg.WeatherAPITimeout + time.Second
	}
	if port, err := strconv.Atoi(cfg.ServerPort); err != nil || port <= 0 || port > 65535 {
		return fmt.Errorf("server.port must be a TCP port, got %q", cfg.ServerPort)
	}
	if cfg.RateLimitRPS < 0 {
		return fmt.Errorf("reliability.rate_limit_rps must not be negative")
	}
	for _, origin := range cfg.AllowedOrigins {
		if origin == "*" {
			continue
		}
		u, err := url.Parse(origin)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("cors.allowed_origins: invalid origin %q", origin)
		}
	}
	return nil
}
