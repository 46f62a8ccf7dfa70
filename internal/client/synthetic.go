package client

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/kjstillabower/weather-records-service/internal/models"
)

var (
	syntheticDescriptions = []string{"Sunny", "Partly cloudy", "Cloudy", "Light rain", "Clear"}
	syntheticDirections   = []string{"N", "NE", "E", "SE", "S", "SW", "W", "NW"}
)

// SyntheticClient generates plausible conditions without calling any provider.
// Used when no API key is configured.
type SyntheticClient struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewSyntheticClient returns a generator backed by rnd, or a time-seeded source when rnd is nil.
func NewSyntheticClient(rnd *rand.Rand) *SyntheticClient {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &SyntheticClient{rnd: rnd}
}

func (c *SyntheticClient) Mode() string {
	return ModeSynthetic
}

// GetCurrentWeather ignores location; every value is drawn from a fixed inclusive range.
func (c *SyntheticClient) GetCurrentWeather(ctx context.Context, location string) (models.WeatherData, error) {
	if err := ctx.Err(); err != nil {
		return models.WeatherData{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	return models.WeatherData{
		Temperature:   c.between(15, 35),
		Description:   syntheticDescriptions[c.rnd.Intn(len(syntheticDescriptions))],
		Humidity:      c.between(30, 90),
		WindSpeed:     c.between(5, 25),
		Pressure:      c.between(1000, 1030),
		Visibility:    c.between(5, 15),
		FeelsLike:     c.between(12, 38),
		UVIndex:       c.between(1, 10),
		Precipitation: c.between(0, 10),
		CloudCover:    c.between(0, 100),
		WindDirection: syntheticDirections[c.rnd.Intn(len(syntheticDirections))],
		Sunrise:       "06:30",
		Sunset:        "18:45",
	}, nil
}

// between returns an integer value in [lo, hi]. Caller holds c.mu.
func (c *SyntheticClient) between(lo, hi int) *float64 {
	return models.Float(float64(lo + c.rnd.Intn(hi-lo+1)))
}
