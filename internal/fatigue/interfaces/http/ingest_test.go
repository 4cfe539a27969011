package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"safedrive/internal/auth"
	"safedrive/internal/fatigue/application"
	fatigue "safedrive/internal/fatigue/domain"
	trips "safedrive/internal/trips/domain"
)

type stubLogRepo struct{}

func (stubLogRepo) Insert(_ context.Context, _ *fatigue.FatigueLog) error { return nil }
func (stubLogRepo) CountClosedEyes(_ context.Context, _ string, _ time.Time) (int, error) {
	return 0, nil
}
func (stubLogRepo) CountYawns(_ context.Context, _ string, _ time.Time) (int, error) {
	return 0, nil
}

type stubAlertRepo struct{}

func (stubAlertRepo) Create(_ context.Context, _ *fatigue.Alert) error { return nil }
func (stubAlertRepo) GetByID(_ context.Context, _ string) (*fatigue.Alert, error) {
	return nil, nil
}
func (stubAlertRepo) List(_ context.Context, _ fatigue.AlertFilter) ([]fatigue.Alert, error) {
	return nil, nil
}
func (stubAlertRepo) MarkAcknowledged(_ context.Context, _ string, _ time.Time) error {
	return nil
}

type stubTripStore struct {
	active *trips.Trip
}

func (s stubTripStore) FindActiveByDriver(_ context.Context, _ string) (*trips.Trip, error) {
	return s.active, nil
}
func (s stubTripStore) AppendRoutePoint(_ context.Context, _ string, _ trips.RoutePoint) error {
	return nil
}

func newIngestHandler(t *testing.T, store stubTripStore) *IngestHandler {
	t.Helper()
	service, err := application.NewService(stubLogRepo{}, stubAlertRepo{}, store, application.DefaultRules())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	handler, err := NewIngestHandler(service, nil)
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}
	return handler
}

func driverRequest(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/fatigue/logs", strings.NewReader(body))
	ctx := auth.WithIdentity(req.Context(), "driver-1", auth.RoleDriver, "")
	return req.WithContext(ctx)
}

func TestIngestHandlerSuccess(t *testing.T) {
	handler := newIngestHandler(t, stubTripStore{active: &trips.Trip{ID: "trip-1", DriverID: "driver-1", Status: trips.StatusActive}})

	body := `{"eye_status":"closed","yawn_detected":true,"seatbelt_on":true,"ear":0.3,"mar":0.4,"latitude":52.2,"longitude":21.0}`
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, driverRequest(body))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var payload struct {
		Status  string `json:"status"`
		Message string `json:"message"`
		Data    struct {
			AlertsCreated  int             `json:"alerts_created"`
			Alerts         []fatigue.Alert `json:"alerts"`
			FatigueScore   float64         `json:"fatigue_score"`
			Recommendation string          `json:"recommendation"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Status != "success" || payload.Message != "Fatigue data logged successfully" {
		t.Fatalf("unexpected envelope %+v", payload)
	}
	// closed (0.6) + yawn (0.4) clamps at 1.0 and trips the high fatigue rule
	if payload.Data.FatigueScore != 1.0 {
		t.Fatalf("expected score 1.0, got %v", payload.Data.FatigueScore)
	}
	if payload.Data.AlertsCreated != 1 || len(payload.Data.Alerts) != 1 {
		t.Fatalf("expected one alert, got %+v", payload.Data)
	}
	if payload.Data.Recommendation == "" {
		t.Fatalf("expected a recommendation")
	}
}

func TestIngestHandlerNoActiveTrip(t *testing.T) {
	handler := newIngestHandler(t, stubTripStore{active: nil})

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, driverRequest(`{"eye_status":"open","seatbelt_on":true,"ear":0.3}`))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	var payload map[string]string
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload["status"] != "error" || payload["message"] != "No active trip found" {
		t.Fatalf("unexpected error payload %+v", payload)
	}
}

func TestIngestHandlerInvalidJSON(t *testing.T) {
	handler := newIngestHandler(t, stubTripStore{active: &trips.Trip{ID: "trip-1", Status: trips.StatusActive}})

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, driverRequest(`{not json`))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestIngestHandlerRequiresIdentity(t *testing.T) {
	handler := newIngestHandler(t, stubTripStore{active: nil})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/fatigue/logs", strings.NewReader(`{}`))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}

func TestIngestHandlerMethodNotAllowed(t *testing.T) {
	handler := newIngestHandler(t, stubTripStore{active: nil})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/fatigue/logs", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", resp.Code)
	}
}
