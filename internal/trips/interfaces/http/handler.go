package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"safedrive/internal/audit"
	"safedrive/internal/auth"
	fatigue "safedrive/internal/fatigue/domain"
	"safedrive/internal/observability/metrics"
	"safedrive/internal/trips/application"
	trips "safedrive/internal/trips/domain"
)

// AlertLister supplies a trip's alerts for report exports.
type AlertLister interface {
	List(ctx context.Context, filter fatigue.AlertFilter) ([]fatigue.Alert, error)
}

// Handler serves the trip lifecycle endpoints.
type Handler struct {
	service *application.Service
	alerts  AlertLister
	audits  audit.Logger
	logger  *log.Logger
}

func NewHandler(service *application.Service, alerts AlertLister, audits audit.Logger, logger *log.Logger) (*Handler, error) {
	if service == nil {
		return nil, errors.New("trips http: nil service")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Handler{service: service, alerts: alerts, audits: audits, logger: logger}, nil
}

// ServeHTTP handles /api/v1/trips and subroutes.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/api/v1/trips":
		switch r.Method {
		case http.MethodPost:
			h.handleStart(w, r)
		case http.MethodGet:
			h.handleList(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	case strings.HasPrefix(r.URL.Path, "/api/v1/trips/"):
		h.handleTrip(w, r)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) handleTrip(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/trips/")
	parts := strings.Split(path, "/")
	id := parts[0]
	if id == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	switch {
	case len(parts) == 1:
		switch r.Method {
		case http.MethodGet:
			h.handleGet(w, r, id)
		case http.MethodDelete:
			h.handleDelete(w, r, id)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	case len(parts) == 2 && parts[1] == "end" && r.Method == http.MethodPost:
		h.handleEnd(w, r, id)
	case len(parts) == 2 && parts[1] == "stats" && r.Method == http.MethodGet:
		h.handleStats(w, r, id)
	case len(parts) == 2 && parts[1] == "export.pdf" && r.Method == http.MethodGet:
		h.handleExport(w, r, id, "pdf")
	case len(parts) == 2 && parts[1] == "export.xlsx" && r.Method == http.MethodGet:
		h.handleExport(w, r, id, "xlsx")
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request) {
	driverID := auth.UserIDFromContext(r.Context())
	if driverID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var in struct {
		StartLocation string `json:"start_location"`
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			respondError(w, http.StatusBadRequest, "invalid json")
			return
		}
	}
	trip, err := h.service.Start(r.Context(), driverID, in.StartLocation)
	if err != nil {
		if errors.Is(err, trips.ErrActiveTripExists) {
			respondError(w, http.StatusConflict, "Driver already has an active trip")
			return
		}
		h.logger.Printf("trip start failed: driver=%s error=%v", driverID, err)
		respondError(w, http.StatusInternalServerError, "Failed to start trip")
		return
	}
	respondJSON(w, http.StatusCreated, trip)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context())
	if err != nil {
		respondAccessError(w, err)
		return
	}
	if list == nil {
		list = []trips.Trip{}
	}
	respondJSON(w, http.StatusOK, list)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request, id string) {
	trip, err := h.service.Get(r.Context(), id)
	if err != nil {
		respondTripError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, trip)
}

func (h *Handler) handleEnd(w http.ResponseWriter, r *http.Request, id string) {
	driverID := auth.UserIDFromContext(r.Context())
	var in struct {
		EndLocation string  `json:"end_location"`
		DistanceKM  float64 `json:"distance_km"`
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			respondError(w, http.StatusBadRequest, "invalid json")
			return
		}
	}
	trip, err := h.service.End(r.Context(), driverID, id, in.EndLocation, in.DistanceKM)
	if err != nil {
		switch {
		case errors.Is(err, trips.ErrNotFound):
			respondError(w, http.StatusNotFound, "Trip not found")
		case errors.Is(err, trips.ErrNotActive):
			respondError(w, http.StatusConflict, "Trip is not active")
		case errors.Is(err, auth.ErrForbidden):
			respondError(w, http.StatusForbidden, "forbidden")
		default:
			h.logger.Printf("trip end failed: trip=%s error=%v", id, err)
			respondError(w, http.StatusInternalServerError, "Failed to end trip")
		}
		return
	}
	respondJSON(w, http.StatusOK, trip)
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request, id string) {
	stats, err := h.service.Stats(r.Context(), id)
	if err != nil {
		respondTripError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request, id string) {
	trip, err := h.service.Get(r.Context(), id)
	if err != nil {
		respondTripError(w, err)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		respondTripError(w, err)
		return
	}
	h.auditDelete(r, trip)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request, id, format string) {
	start := time.Now()
	trip, err := h.service.Get(r.Context(), id)
	if err != nil {
		respondTripError(w, err)
		return
	}
	stats, err := h.service.Stats(r.Context(), id)
	if err != nil {
		respondTripError(w, err)
		return
	}
	var alerts []fatigue.Alert
	if h.alerts != nil {
		alerts, err = h.alerts.List(r.Context(), fatigue.AlertFilter{TripID: id, DriverID: trip.DriverID})
		if err != nil {
			h.logger.Printf("trip export: list alerts failed: trip=%s error=%v", id, err)
			alerts = nil
		}
	}

	var payload []byte
	var contentType, filename string
	switch format {
	case "pdf":
		payload, err = BuildTripPDF(trip, stats, alerts)
		contentType = "application/pdf"
		filename = trip.ID + ".pdf"
	case "xlsx":
		payload, err = BuildTripXLSX(trip, stats, alerts)
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		filename = trip.ID + ".xlsx"
	default:
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if err != nil {
		metrics.ObserveReportExport(format, metrics.ResultError, time.Since(start))
		h.logger.Printf("trip export failed: trip=%s format=%s error=%v", id, format, err)
		respondError(w, http.StatusInternalServerError, "Failed to build report")
		return
	}
	metrics.ObserveReportExport(format, metrics.ResultSuccess, time.Since(start))

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	_, _ = w.Write(payload)
}

func (h *Handler) auditDelete(r *http.Request, trip *trips.Trip) {
	if h.audits == nil || trip == nil {
		return
	}
	_ = h.audits.Log(r.Context(), audit.Entry{
		Actor:        auth.UserIDFromContext(r.Context()),
		Role:         string(auth.RoleFromContext(r.Context())),
		Action:       "trip.delete",
		ResourceType: "trip",
		ResourceID:   trip.ID,
		DriverID:     trip.DriverID,
		IP:           r.RemoteAddr,
		UserAgent:    r.UserAgent(),
	})
}

func respondTripError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, trips.ErrNotFound):
		respondError(w, http.StatusNotFound, "Trip not found")
	case errors.Is(err, auth.ErrForbidden):
		respondError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, auth.ErrNotFound):
		respondError(w, http.StatusNotFound, "not found")
	default:
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

func respondAccessError(w http.ResponseWriter, err error) {
	if errors.Is(err, auth.ErrForbidden) {
		respondError(w, http.StatusForbidden, "forbidden")
		return
	}
	respondError(w, http.StatusInternalServerError, "internal error")
}

func respondJSON(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status":  "error",
		"message": message,
	})
}
