package store

import (
	"time"

	"github.com/kjstillabower/weather-records-service/internal/models"
)

// SampleID is the fixed id of the record seeded into an empty store.
const SampleID = "sample-123"

// SampleRecord returns the deterministic demo record, stamped with createdAt.
func SampleRecord(createdAt time.Time) models.WeatherRecord {
	return models.WeatherRecord{
		ID:       SampleID,
		Date:     "2024-01-15",
		Location: "New York",
		Notes:    "Sample weather data for testing",
		WeatherData: models.WeatherData{
			Temperature:   models.Float(45),
			Description:   "Partly cloudy",
			Humidity:      models.Float(65),
			WindSpeed:     models.Float(12),
			Pressure:      models.Float(1013),
			Visibility:    models.Float(10),
			FeelsLike:     models.Float(42),
			UVIndex:       models.Float(3),
			Precipitation: models.Float(0),
			CloudCover:    models.Float(60),
		},
		CreatedAt: createdAt,
	}
}

// SeedSample puts the sample record (which persists it) only when s is empty.
// Reports whether the record was added.
func SeedSample(s Store, now time.Time) (bool, error) {
	if s.Len() > 0 {
		return false, nil
	}
	if err := s.Put(SampleRecord(now)); err != nil {
		return false, err
	}
	return true, nil
}
