package http

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"safedrive/internal/auth"
	"safedrive/internal/fatigue/application"
	fatigue "safedrive/internal/fatigue/domain"
	"safedrive/internal/observability/metrics"
)

// IngestHandler accepts fatigue readings from the in-cab detector.
type IngestHandler struct {
	service *application.Service
	logger  *log.Logger
}

// NewIngestHandler constructs an ingest handler.
func NewIngestHandler(service *application.Service, logger *log.Logger) (*IngestHandler, error) {
	if service == nil {
		return nil, errors.New("fatigue ingest: nil service")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &IngestHandler{service: service, logger: logger}, nil
}

// ServeHTTP handles POST /api/v1/fatigue/logs.
func (h *IngestHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	start := time.Now()

	driverID := auth.UserIDFromContext(r.Context())
	if driverID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		metrics.IncIngestError("read_body")
		respondError(w, http.StatusBadRequest, "read body error")
		return
	}
	defer r.Body.Close()

	var reading fatigue.Reading
	if err := json.Unmarshal(body, &reading); err != nil {
		metrics.IncIngestError("decode")
		respondError(w, http.StatusBadRequest, "invalid json")
		return
	}

	result, err := h.service.LogReading(r.Context(), driverID, reading)
	if err != nil {
		metrics.ObserveIngest(metrics.ResultError, time.Since(start))
		switch {
		case errors.Is(err, fatigue.ErrNoActiveTrip):
			metrics.IncIngestError("no_active_trip")
			respondError(w, http.StatusBadRequest, "No active trip found")
		case errors.Is(err, fatigue.ErrInvalidReading):
			metrics.IncIngestError("invalid_reading")
			respondError(w, http.StatusBadRequest, "invalid reading")
		default:
			metrics.IncIngestError("internal")
			h.logger.Printf("fatigue ingest failed: driver=%s error=%v", driverID, err)
			respondError(w, http.StatusInternalServerError, "Failed to log fatigue data")
		}
		return
	}
	metrics.ObserveIngest(metrics.ResultSuccess, time.Since(start))

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":  "success",
		"message": "Fatigue data logged successfully",
		"data": map[string]any{
			"fatigue_log":    result.Log,
			"alerts_created": len(result.Alerts),
			"alerts":         result.Alerts,
			"fatigue_score":  result.Score,
			"recommendation": result.Recommendation,
		},
	})
}

func respondError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status":  "error",
		"message": message,
	})
}
