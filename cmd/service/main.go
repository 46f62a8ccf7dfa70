package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/weather-records-service/internal/client"
	"github.com/kjstillabower/weather-records-service/internal/config"
	httphandler "github.com/kjstillabower/weather-records-service/internal/http"
	"github.com/kjstillabower/weather-records-service/internal/observability"
	"github.com/kjstillabower/weather-records-service/internal/service"
	"github.com/kjstillabower/weather-records-service/internal/store"
)

func main() {
	logger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}

	weatherClient, err := newWeatherClient(cfg, logger)
	if err != nil {
		logger.Fatal("weather client", zap.Error(err))
	}

	recordStore, err := openStore(cfg, logger)
	if err != nil {
		logger.Fatal("store", zap.Error(err))
	}
	observability.RegisterStoreGauge(recordStore.Len)

	records := service.NewRecordService(weatherClient, recordStore)
	handler := httphandler.NewHandler(records, logger)

	var limiter *rate.Limiter
	if cfg.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	}
	router := httphandler.NewRouter(handler, httphandler.RouterOptions{
		Logger:         logger,
		RequestTimeout: cfg.RequestTimeout,
		RateLimiter:    limiter,
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedHeaders: cfg.AllowedHeaders,
		MetricsEnabled: cfg.MetricsEnabled,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
	}

	go func() {
		logger.Info("server starting",
			zap.String("addr", srv.Addr),
			zap.String("mode", weatherClient.Mode()),
			zap.Strings("allowed_origins", cfg.AllowedOrigins))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	<-ctx.Done()
	stop()

	logger.Info("graceful shutdown triggered")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}

	logger.Info("waiting for in-flight requests", zap.Int64("count", httphandler.InFlightCount()))
	waitCtx, waitCancel := context.WithTimeout(context.Background(), cfg.ShutdownInFlightTimeout)
	defer waitCancel()
	if err := httphandler.WaitForInFlight(waitCtx, 50*time.Millisecond); err != nil {
		logger.Warn("in-flight requests not completed", zap.Error(err), zap.Int64("remaining", httphandler.InFlightCount()))
	}

	if err := recordStore.Save(); err != nil {
		logger.Warn("final store save failed", zap.Error(err))
	}
	if err := observability.FlushTelemetry(context.Background(), logger); err != nil {
		logger.Error("telemetry flush", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

// newWeatherClient selects the live Weatherstack client when a key is configured,
// otherwise the synthetic generator.
func newWeatherClient(cfg *config.Config, logger *zap.Logger) (client.WeatherClient, error) {
	opts := client.Options{
		APIKey:  cfg.WeatherAPIKey,
		APIURL:  cfg.WeatherAPIURL,
		Timeout: cfg.WeatherAPITimeout,
	}
	if cfg.CircuitBreakerEnabled {
		opts.Breaker = &client.BreakerConfig{
			FailureThreshold: cfg.CircuitBreakerFailureThreshold,
			OpenTimeout:      cfg.CircuitBreakerOpenTimeout,
			Logger:           logger,
		}
	}
	c, err := client.NewWeatherClient(opts)
	if err != nil {
		return nil, err
	}
	if cfg.SyntheticMode() {
		logger.Warn("no weather API key configured; serving synthetic weather data")
	} else {
		logger.Info("weather provider configured",
			zap.String("url", cfg.WeatherAPIURL),
			zap.Duration("timeout", cfg.WeatherAPITimeout),
			zap.Bool("circuit_breaker", cfg.CircuitBreakerEnabled))
	}
	return c, nil
}

// openStore loads the persisted records and seeds the sample record into an empty store.
// An unreadable file is a warning: the service starts empty.
func openStore(cfg *config.Config, logger *zap.Logger) (*store.FileStore, error) {
	fs := store.NewFileStore(cfg.StorePath, logger)
	if err := fs.Load(); err != nil {
		logger.Warn("store load failed; starting empty", zap.String("path", cfg.StorePath), zap.Error(err))
	}
	logger.Info("store loaded", zap.String("path", cfg.StorePath), zap.Int("records", fs.Len()))

	if cfg.SeedSample {
		seeded, err := store.SeedSample(fs, time.Now().UTC())
		if err != nil {
			return nil, fmt.Errorf("seed sample record: %w", err)
		}
		if seeded {
			logger.Info("sample record seeded", zap.String("id", store.SampleID))
		}
	}
	return fs, nil
}
