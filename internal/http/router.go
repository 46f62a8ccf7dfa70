package http

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/weather-records-service/internal/observability"
)

// RouterOptions configures NewRouter. Zero values disable the optional pieces.
type RouterOptions struct {
	Logger         *zap.Logger
	RequestTimeout time.Duration
	RateLimiter    *rate.Limiter
	AllowedOrigins []string
	AllowedHeaders []string // extra CORS request headers; empty or "*" accepts any
	MetricsEnabled bool
}

// NewRouter builds the service route table:
//
//	GET    /health
//	GET    /metrics        (when enabled)
//	POST   /weather
//	GET    /weather
//	GET    /weather/{id}
//	DELETE /weather/{id}
//
// Rate limiting and the request timeout apply to /weather routes only.
func NewRouter(h *Handler, opts RouterOptions) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := mux.NewRouter()
	router.NotFoundHandler = http.HandlerFunc(notFoundHandler)
	router.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowedHandler)
	router.Use(CorrelationIDMiddleware(logger))
	router.Use(MetricsMiddleware)

	router.HandleFunc("/health", h.GetHealth).Methods(http.MethodGet)
	if opts.MetricsEnabled {
		router.Handle("/metrics", observability.MetricsHandler()).Methods(http.MethodGet)
	}

	weatherRouter := router.PathPrefix("/weather").Subrouter()
	weatherRouter.Use(RateLimitMiddleware(opts.RateLimiter))
	weatherRouter.Use(TimeoutMiddleware(opts.RequestTimeout))
	weatherRouter.HandleFunc("", h.CreateWeather).Methods(http.MethodPost)
	weatherRouter.HandleFunc("", h.ListWeather).Methods(http.MethodGet)
	weatherRouter.HandleFunc("/{id}", h.GetWeather).Methods(http.MethodGet)
	weatherRouter.HandleFunc("/{id}", h.DeleteWeather).Methods(http.MethodDelete)

	if len(opts.AllowedOrigins) == 0 {
		return router
	}
	return CORSMiddleware(opts.AllowedOrigins, opts.AllowedHeaders)(router)
}
