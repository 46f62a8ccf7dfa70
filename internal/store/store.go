package store

import (
	"errors"

	"github.com/kjstillabower/weather-records-service/internal/models"
)

var (
	// ErrNotFound is returned when no record exists for the requested id.
	ErrNotFound = errors.New("weather record not found")

	// ErrPersistence wraps failures to read or write the store file. These are
	// warnings: in-memory state stays authoritative.
	ErrPersistence = errors.New("store persistence failed")
)

// Store holds weather records keyed by id. Put and Delete persist before returning;
// persistence failures are logged by the implementation and not returned.
type Store interface {
	Get(id string) (models.WeatherRecord, error)
	Put(rec models.WeatherRecord) error
	// List returns all records ordered by CreatedAt descending, ties in insertion order.
	List() []models.WeatherRecord
	Delete(id string) error
	Len() int
	Save() error
}
