package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kjstillabower/weather-records-service/internal/client"
	"github.com/kjstillabower/weather-records-service/internal/models"
	"github.com/kjstillabower/weather-records-service/internal/observability"
	"github.com/kjstillabower/weather-records-service/internal/store"
	"github.com/kjstillabower/weather-records-service/internal/validation"
)

type mockWeatherClient struct {
	mu        sync.Mutex
	weather   models.WeatherData
	err       error
	mode      string
	locations []string
}

func (m *mockWeatherClient) GetCurrentWeather(ctx context.Context, location string) (models.WeatherData, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locations = append(m.locations, location)
	return m.weather, m.err
}

func (m *mockWeatherClient) Mode() string {
	if m.mode == "" {
		return client.ModeLive
	}
	return m.mode
}

func (m *mockWeatherClient) calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.locations...)
}

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func newTestService(c client.WeatherClient, st store.Store) *RecordService {
	return NewRecordService(c, st, WithClock(func() time.Time { return fixedNow }), WithIDGenerator(sequentialIDs()))
}

func TestCreate_StoresRecord(t *testing.T) {
	c := &mockWeatherClient{weather: models.WeatherData{Temperature: models.Float(22), Description: "Sunny"}}
	st := store.NewMemoryStore()
	svc := newTestService(c, st)

	rec, err := svc.Create(context.Background(), models.CreateRequest{Date: "2024-01-15", Location: "  London  ", Notes: "trip"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if rec.ID != "id-1" {
		t.Errorf("ID = %q, want id-1", rec.ID)
	}
	if rec.Location != "London" {
		t.Errorf("Location = %q, want trimmed London", rec.Location)
	}
	if !rec.CreatedAt.Equal(fixedNow) {
		t.Errorf("CreatedAt = %v, want %v", rec.CreatedAt, fixedNow)
	}
	if rec.WeatherData.Description != "Sunny" || *rec.WeatherData.Temperature != 22 {
		t.Errorf("WeatherData = %+v", rec.WeatherData)
	}
	if got := c.calls(); len(got) != 1 || got[0] != "London" {
		t.Errorf("provider called with %v, want [London]", got)
	}

	stored, err := st.Get("id-1")
	if err != nil {
		t.Fatalf("store Get() error = %v", err)
	}
	if stored.Notes != "trip" {
		t.Errorf("stored Notes = %q, want trip", stored.Notes)
	}
}

func TestCreate_DefaultIDsAreUnique(t *testing.T) {
	svc := NewRecordService(&mockWeatherClient{}, store.NewMemoryStore())
	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		rec, err := svc.Create(context.Background(), models.CreateRequest{Date: "2024-01-15", Location: "Paris"})
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if seen[rec.ID] {
			t.Fatalf("duplicate id %q", rec.ID)
		}
		seen[rec.ID] = true
	}
}

func TestCreate_ValidationFailureSkipsProvider(t *testing.T) {
	c := &mockWeatherClient{}
	st := store.NewMemoryStore()
	svc := newTestService(c, st)

	tests := []struct {
		name string
		req  models.CreateRequest
		msg  string
	}{
		{"bad date", models.CreateRequest{Date: "15-01-2024", Location: "London"}, validation.MsgDateFormat},
		{"blank location", models.CreateRequest{Date: "2024-01-15", Location: "   "}, validation.MsgLocationEmpty},
		{"short location", models.CreateRequest{Date: "2024-01-15", Location: " A "}, validation.MsgLocationTooShort},
		{"long notes", models.CreateRequest{Date: "2024-01-15", Location: "London", Notes: strings.Repeat("x", 501)}, validation.MsgNotesTooLong},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tt.req)
			if !validation.IsValidationError(err) {
				t.Fatalf("Create() error = %v, want validation error", err)
			}
			if err.Error() != tt.msg {
				t.Errorf("message = %q, want %q", err.Error(), tt.msg)
			}
		})
	}
	if len(c.calls()) != 0 {
		t.Errorf("provider called %d times, want 0", len(c.calls()))
	}
	if st.Len() != 0 {
		t.Errorf("store has %d records, want 0", st.Len())
	}
}

func TestCreate_ProviderFailureStoresNothing(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"invalid location", &client.ProviderError{Err: client.ErrInvalidLocation, Code: 615}, client.ErrInvalidLocation},
		{"misconfigured", &client.ProviderError{Err: client.ErrProviderMisconfigured, Code: 101}, client.ErrProviderMisconfigured},
		{"unavailable", fmt.Errorf("%w: connection refused", client.ErrProviderUnavailable), client.ErrProviderUnavailable},
		{"timeout", client.ErrProviderTimeout, client.ErrProviderTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := store.NewMemoryStore()
			core, logs := observer.New(zapcore.WarnLevel)
			ctx := observability.WithLogger(context.Background(), zap.New(core))
			svc := newTestService(&mockWeatherClient{err: tt.err}, st)

			_, err := svc.Create(ctx, models.CreateRequest{Date: "2024-01-15", Location: "Atlantis"})
			if !errors.Is(err, tt.want) {
				t.Fatalf("Create() error = %v, want %v", err, tt.want)
			}
			if st.Len() != 0 {
				t.Errorf("store has %d records, want 0", st.Len())
			}
			if logs.FilterMessage("weather lookup failed").Len() != 1 {
				t.Errorf("expected one warning log, got %v", logs.All())
			}
		})
	}
}

func TestCreate_LogsWithContextLogger(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	ctx := observability.WithLogger(context.Background(), zap.New(core))
	svc := newTestService(&mockWeatherClient{mode: client.ModeSynthetic}, store.NewMemoryStore())

	if _, err := svc.Create(ctx, models.CreateRequest{Date: "2024-01-15", Location: "Oslo"}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	entries := logs.FilterMessage("weather record created").All()
	if len(entries) != 1 {
		t.Fatalf("got %d created logs, want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["mode"] != client.ModeSynthetic || fields["id"] != "id-1" {
		t.Errorf("log fields = %v", fields)
	}
}

func TestList_NewestFirst(t *testing.T) {
	now := fixedNow
	svc := NewRecordService(&mockWeatherClient{}, store.NewMemoryStore(),
		WithClock(func() time.Time {
			now = now.Add(time.Second)
			return now
		}),
		WithIDGenerator(sequentialIDs()))

	for _, loc := range []string{"Rome", "Lima", "Cairo"} {
		if _, err := svc.Create(context.Background(), models.CreateRequest{Date: "2024-01-15", Location: loc}); err != nil {
			t.Fatalf("Create(%s) error = %v", loc, err)
		}
	}

	list := svc.List(context.Background())
	if len(list) != 3 {
		t.Fatalf("List() len = %d, want 3", len(list))
	}
	want := []string{"Cairo", "Lima", "Rome"}
	for i, rec := range list {
		if rec.Location != want[i] {
			t.Errorf("List()[%d].Location = %q, want %q", i, rec.Location, want[i])
		}
	}
}

func TestGetAndDelete(t *testing.T) {
	st := store.NewMemoryStore()
	svc := newTestService(&mockWeatherClient{}, st)
	ctx := context.Background()

	rec, err := svc.Create(ctx, models.CreateRequest{Date: "2024-01-15", Location: "Tokyo"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := svc.Get(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Location != "Tokyo" {
		t.Errorf("Get().Location = %q, want Tokyo", got.Location)
	}

	if err := svc.Delete(ctx, rec.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := svc.Get(ctx, rec.ID); !IsNotFound(err) {
		t.Errorf("Get() after delete error = %v, want not found", err)
	}
	if err := svc.Delete(ctx, rec.ID); !IsNotFound(err) {
		t.Errorf("second Delete() error = %v, want not found", err)
	}
}

func TestGet_UnknownID(t *testing.T) {
	svc := newTestService(&mockWeatherClient{}, store.NewMemoryStore())
	if _, err := svc.Get(context.Background(), "does-not-exist"); !IsNotFound(err) {
		t.Errorf("Get() error = %v, want not found", err)
	}
}

func TestCreate_ConcurrentRequests(t *testing.T) {
	st := store.NewMemoryStore()
	svc := NewRecordService(&mockWeatherClient{}, st)

	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Create(context.Background(), models.CreateRequest{Date: "2024-01-15", Location: "Berlin"}); err != nil {
				t.Errorf("Create() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if st.Len() != 25 {
		t.Errorf("store has %d records, want 25", st.Len())
	}
}
