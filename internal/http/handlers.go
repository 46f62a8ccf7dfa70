package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	json "github.com/goccy/go-json"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/kjstillabower/weather-records-service/internal/client"
	"github.com/kjstillabower/weather-records-service/internal/models"
	"github.com/kjstillabower/weather-records-service/internal/observability"
	"github.com/kjstillabower/weather-records-service/internal/service"
	"github.com/kjstillabower/weather-records-service/internal/validation"
)

const maxBodyBytes = 1 << 20

// Response messages.
const (
	msgBackendRunning   = "Backend is running"
	msgRecordCreated    = "Weather request created successfully"
	msgInvalidBody      = "Invalid request body"
	msgConfigError      = "Weather service configuration error"
	msgProviderTimeout  = "Weather service request timed out"
	msgProviderDown     = "Weather service is currently unavailable"
	msgInternalError    = "Internal server error: unable to process weather request"
	msgRouteNotFound    = "Not Found"
	msgMethodNotAllowed = "Method Not Allowed"
)

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	records *service.RecordService
	logger  *zap.Logger
}

// NewHandler returns a new Handler.
func NewHandler(records *service.RecordService, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{records: records, logger: logger}
}

// GetHealth handles GET /health. Liveness only: always 200.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.HealthResponse{Status: "ok", Message: msgBackendRunning})
}

// CreateWeather handles POST /weather.
func (h *Handler) CreateWeather(w http.ResponseWriter, r *http.Request) {
	var req models.CreateRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		observability.LoggerFromContext(r.Context()).Debug("invalid request body", zap.Error(err))
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	rec, err := h.records.Create(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err, req.Location)
		return
	}
	writeJSON(w, http.StatusCreated, models.CreateResponse{ID: rec.ID, Message: msgRecordCreated})
}

// GetWeather handles GET /weather/{id}.
func (h *Handler) GetWeather(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	rec, err := h.records.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err, id)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// ListWeather handles GET /weather. Records are returned newest first.
func (h *Handler) ListWeather(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.records.List(r.Context()))
}

// DeleteWeather handles DELETE /weather/{id}.
func (h *Handler) DeleteWeather(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.records.Delete(r.Context(), id); err != nil {
		writeServiceError(w, r, err, id)
		return
	}
	writeJSON(w, http.StatusOK, models.MessageResponse{
		Message: fmt.Sprintf("Weather data with ID '%s' deleted successfully", id),
	})
}

func notFoundHandler(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, msgRouteNotFound)
}

func methodNotAllowedHandler(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, msgMethodNotAllowed)
}

// writeJSON writes v as a JSON body with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes the standard {"detail": ...} error body.
func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, models.ErrorResponse{Detail: detail})
}

// writeServiceError maps a service error to its HTTP status and detail. subject is the
// record id for lookups, or the requested location for creates.
// Provider messages are logged, never echoed.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, subject string) {
	var vErr *validation.Error
	status, detail := http.StatusInternalServerError, msgInternalError
	switch {
	case errors.As(err, &vErr):
		status, detail = http.StatusBadRequest, vErr.Message
	case service.IsNotFound(err):
		status, detail = http.StatusNotFound, fmt.Sprintf("Weather data with ID '%s' not found", subject)
	case errors.Is(err, client.ErrInvalidLocation):
		status, detail = http.StatusBadRequest, "Location not found: "+validation.NormalizeLocation(subject)
	case errors.Is(err, client.ErrProviderMisconfigured):
		status, detail = http.StatusInternalServerError, msgConfigError
	case errors.Is(err, client.ErrProviderTimeout), errors.Is(err, context.DeadlineExceeded):
		status, detail = http.StatusGatewayTimeout, msgProviderTimeout
	case errors.Is(err, client.ErrProviderUnavailable):
		status, detail = http.StatusServiceUnavailable, msgProviderDown
	}

	logger := observability.LoggerFromContext(r.Context())
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", zap.Int("status", status), zap.Error(err))
	} else {
		logger.Debug("request rejected", zap.Int("status", status), zap.Error(err))
	}
	writeError(w, status, detail)
}
