package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"safedrive/internal/audit"
	"safedrive/internal/auth"
	"safedrive/internal/fatigue/application"
	fatigue "safedrive/internal/fatigue/domain"
)

const timeLayout = time.RFC3339

// AlertHandler provides alert HTTP endpoints.
type AlertHandler struct {
	service *application.Service
	checker auth.DriverAccessChecker
	audits  audit.Logger
}

// NewAlertHandler constructs a handler.
func NewAlertHandler(service *application.Service, checker auth.DriverAccessChecker, audits audit.Logger) (*AlertHandler, error) {
	if service == nil {
		return nil, errors.New("alerts handler: nil service")
	}
	return &AlertHandler{service: service, checker: checker, audits: audits}, nil
}

// ServeHTTP handles /api/v1/alerts and subroutes.
func (h *AlertHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/api/v1/alerts":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleList(w, r)
	case strings.HasPrefix(r.URL.Path, "/api/v1/alerts/"):
		h.handleAction(w, r)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *AlertHandler) handleList(w http.ResponseWriter, r *http.Request) {
	driverID := r.URL.Query().Get("driver_id")
	if driverID == "" && auth.RoleFromContext(r.Context()) == auth.RoleDriver {
		driverID = auth.UserIDFromContext(r.Context())
	}
	if driverID == "" {
		http.Error(w, "driver_id is required", http.StatusBadRequest)
		return
	}
	if h.checker != nil {
		if err := h.checker.EnsureDriverAccess(r.Context(), driverID); err != nil {
			respondAccessError(w, err)
			return
		}
	}

	filter := fatigue.AlertFilter{DriverID: driverID}
	filter.TripID = r.URL.Query().Get("trip_id")
	if value := r.URL.Query().Get("type"); value != "" {
		filter.Type = fatigue.AlertType(value)
	}
	if value := r.URL.Query().Get("acknowledged"); value != "" {
		acked := value == "true"
		filter.Acknowledged = &acked
	}
	var err error
	if filter.From, err = parseOptionalTime(r, "from"); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if filter.To, err = parseOptionalTime(r, "to"); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	list, err := h.service.ListAlerts(r.Context(), filter)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []fatigue.Alert{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(list)
}

func (h *AlertHandler) handleAction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/alerts/")
	parts := strings.Split(path, "/")
	if len(parts) != 2 || parts[1] != "ack" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	id := parts[0]

	existing, err := h.service.GetAlert(r.Context(), id)
	if err != nil {
		if errors.Is(err, fatigue.ErrAlertNotFound) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if h.checker != nil {
		if err := h.checker.EnsureDriverAccess(r.Context(), existing.DriverID); err != nil {
			respondAccessError(w, err)
			return
		}
	}

	alert, err := h.service.AckAlert(r.Context(), id)
	if err != nil {
		if errors.Is(err, fatigue.ErrAlertNotFound) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.auditAck(r, alert)

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(alert)
}

func (h *AlertHandler) auditAck(r *http.Request, alert *fatigue.Alert) {
	if h.audits == nil || alert == nil {
		return
	}
	_ = h.audits.Log(r.Context(), audit.Entry{
		Actor:        auth.UserIDFromContext(r.Context()),
		Role:         string(auth.RoleFromContext(r.Context())),
		Action:       "alert.ack",
		ResourceType: "alert",
		ResourceID:   alert.ID,
		DriverID:     alert.DriverID,
		IP:           r.RemoteAddr,
		UserAgent:    r.UserAgent(),
	})
}

func respondAccessError(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	if errors.Is(err, auth.ErrForbidden) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	if errors.Is(err, auth.ErrNotFound) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	http.Error(w, "access check failed", http.StatusInternalServerError)
}

func parseOptionalTime(r *http.Request, key string) (time.Time, error) {
	value := r.URL.Query().Get(key)
	if value == "" {
		return time.Time{}, nil
	}
	parsed, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}, errors.New(key + " must be RFC3339")
	}
	return parsed.UTC(), nil
}
