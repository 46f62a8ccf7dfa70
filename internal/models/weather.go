package models

import (
	"fmt"
	"time"

	json "github.com/goccy/go-json"
)

// WeatherData holds the conditions captured for a record. Every field is optional:
// live and synthetic providers fill slightly different subsets.
type WeatherData struct {
	Temperature   *float64 `json:"temperature,omitempty"`
	Description   string   `json:"description,omitempty"`
	Humidity      *float64 `json:"humidity,omitempty"`
	WindSpeed     *float64 `json:"wind_speed,omitempty"`
	Pressure      *float64 `json:"pressure,omitempty"`
	Visibility    *float64 `json:"visibility,omitempty"`
	FeelsLike     *float64 `json:"feels_like,omitempty"`
	UVIndex       *float64 `json:"uv_index,omitempty"`
	Precipitation *float64 `json:"precipitation,omitempty"`
	CloudCover    *float64 `json:"cloud_cover,omitempty"`
	WindDirection string   `json:"wind_direction,omitempty"`
	Sunrise       string   `json:"sunrise,omitempty"`
	Sunset        string   `json:"sunset,omitempty"`
	LocalTime     string   `json:"local_time,omitempty"`
}

// WeatherRecord is one stored weather lookup. ID, Date, Location and CreatedAt never change after creation.
type WeatherRecord struct {
	ID          string      `json:"id"`
	Date        string      `json:"date"`
	Location    string      `json:"location"`
	Notes       string      `json:"notes"`
	WeatherData WeatherData `json:"weather_data"`
	CreatedAt   time.Time   `json:"created_at"`
}

// naiveTimestampLayouts are zone-less created_at forms written by older stores.
// Fractional seconds are accepted by time.Parse without a layout entry.
var naiveTimestampLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// UnmarshalJSON accepts RFC 3339 created_at values as well as zone-less ones,
// which are read as UTC.
func (r *WeatherRecord) UnmarshalJSON(data []byte) error {
	var aux struct {
		ID          string      `json:"id"`
		Date        string      `json:"date"`
		Location    string      `json:"location"`
		Notes       string      `json:"notes"`
		WeatherData WeatherData `json:"weather_data"`
		CreatedAt   string      `json:"created_at"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	createdAt, err := ParseTimestamp(aux.CreatedAt)
	if err != nil {
		return err
	}
	*r = WeatherRecord{
		ID:          aux.ID,
		Date:        aux.Date,
		Location:    aux.Location,
		Notes:       aux.Notes,
		WeatherData: aux.WeatherData,
		CreatedAt:   createdAt,
	}
	return nil
}

// ParseTimestamp parses an RFC 3339 timestamp, falling back to zone-less
// ISO 8601 in UTC. An empty string yields the zero time.
func ParseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	for _, layout := range naiveTimestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid created_at %q", s)
}

// Float returns a pointer to v. Used when building WeatherData literals.
func Float(v float64) *float64 {
	return &v
}
