package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kjstillabower/weather-records-service/internal/client"
	"github.com/kjstillabower/weather-records-service/internal/models"
	"github.com/kjstillabower/weather-records-service/internal/observability"
	"github.com/kjstillabower/weather-records-service/internal/store"
	"github.com/kjstillabower/weather-records-service/internal/validation"
)

// RecordService creates weather records from provider data and manages the stored set.
// The provider call runs before any store lock is taken, so a slow provider never
// blocks reads or deletes.
type RecordService struct {
	client client.WeatherClient
	store  store.Store
	now    func() time.Time
	newID  func() string
}

// Option customizes a RecordService.
type Option func(*RecordService)

// WithClock overrides the time source used for CreatedAt.
func WithClock(now func() time.Time) Option {
	return func(s *RecordService) { s.now = now }
}

// WithIDGenerator overrides the record id generator.
func WithIDGenerator(gen func() string) Option {
	return func(s *RecordService) { s.newID = gen }
}

func NewRecordService(c client.WeatherClient, st store.Store, opts ...Option) *RecordService {
	s := &RecordService{
		client: c,
		store:  st,
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create validates req, fetches current conditions for its location and stores a new record.
// Nothing is stored when validation or the provider call fails.
func (s *RecordService) Create(ctx context.Context, req models.CreateRequest) (models.WeatherRecord, error) {
	logger := observability.LoggerFromContext(ctx)

	req, err := validation.ValidateCreate(req)
	if err != nil {
		return models.WeatherRecord{}, err
	}

	start := time.Now()
	data, err := s.client.GetCurrentWeather(ctx, req.Location)
	if err != nil {
		category := client.CategorizeError(err)
		observability.WeatherAPIErrorsTotal.WithLabelValues(string(category)).Inc()
		logger.Warn("weather lookup failed",
			zap.String("location", req.Location),
			zap.String("category", string(category)),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))
		return models.WeatherRecord{}, fmt.Errorf("fetch weather for %s: %w", req.Location, err)
	}

	rec := models.WeatherRecord{
		ID:          s.newID(),
		Date:        req.Date,
		Location:    req.Location,
		Notes:       req.Notes,
		WeatherData: data,
		CreatedAt:   s.now(),
	}
	if err := s.store.Put(rec); err != nil {
		return models.WeatherRecord{}, fmt.Errorf("store record: %w", err)
	}

	observability.RecordsCreatedTotal.WithLabelValues(s.client.Mode()).Inc()
	logger.Info("weather record created",
		zap.String("id", rec.ID),
		zap.String("location", rec.Location),
		zap.String("mode", s.client.Mode()),
		zap.Duration("duration", time.Since(start)))
	return rec, nil
}

func (s *RecordService) Get(ctx context.Context, id string) (models.WeatherRecord, error) {
	return s.store.Get(id)
}

// List returns every record, newest first.
func (s *RecordService) List(ctx context.Context) []models.WeatherRecord {
	return s.store.List()
}

func (s *RecordService) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(id); err != nil {
		return err
	}
	observability.RecordsDeletedTotal.Inc()
	observability.LoggerFromContext(ctx).Info("weather record deleted", zap.String("id", id))
	return nil
}

// IsNotFound reports whether err means the requested record does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}
