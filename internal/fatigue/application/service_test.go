package application

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	fatigue "safedrive/internal/fatigue/domain"
	trips "safedrive/internal/trips/domain"
)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

type stubLogRepo struct {
	inserted    []*fatigue.FatigueLog
	closedCount int
	yawnCount   int
}

func (s *stubLogRepo) Insert(_ context.Context, log *fatigue.FatigueLog) error {
	s.inserted = append(s.inserted, log)
	return nil
}

func (s *stubLogRepo) CountClosedEyes(_ context.Context, _ string, _ time.Time) (int, error) {
	return s.closedCount, nil
}

func (s *stubLogRepo) CountYawns(_ context.Context, _ string, _ time.Time) (int, error) {
	return s.yawnCount, nil
}

type stubAlertRepo struct {
	created []*fatigue.Alert
	byID    map[string]*fatigue.Alert
	acked   []string
}

func (s *stubAlertRepo) Create(_ context.Context, alert *fatigue.Alert) error {
	s.created = append(s.created, alert)
	return nil
}

func (s *stubAlertRepo) GetByID(_ context.Context, id string) (*fatigue.Alert, error) {
	if s.byID == nil {
		return nil, nil
	}
	return s.byID[id], nil
}

func (s *stubAlertRepo) List(_ context.Context, _ fatigue.AlertFilter) ([]fatigue.Alert, error) {
	out := make([]fatigue.Alert, 0, len(s.created))
	for _, alert := range s.created {
		out = append(out, *alert)
	}
	return out, nil
}

func (s *stubAlertRepo) MarkAcknowledged(_ context.Context, id string, _ time.Time) error {
	s.acked = append(s.acked, id)
	return nil
}

type stubTripStore struct {
	active   *trips.Trip
	appended []trips.RoutePoint
}

func (s *stubTripStore) FindActiveByDriver(_ context.Context, _ string) (*trips.Trip, error) {
	return s.active, nil
}

func (s *stubTripStore) AppendRoutePoint(_ context.Context, _ string, point trips.RoutePoint) error {
	s.appended = append(s.appended, point)
	return nil
}

type captureNotifier struct {
	events []AlertEvent
}

func (c *captureNotifier) Notify(_ context.Context, event AlertEvent) {
	c.events = append(c.events, event)
}

func newTestService(t *testing.T, logs *stubLogRepo, alerts *stubAlertRepo, store *stubTripStore, now time.Time, notifier AlertNotifier) *Service {
	t.Helper()
	opts := []ServiceOption{WithClock(fixedClock{now: now})}
	if notifier != nil {
		opts = append(opts, WithNotifier(notifier))
	}
	service, err := NewService(logs, alerts, store, DefaultRules(), opts...)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return service
}

func activeTrip() *trips.Trip {
	return &trips.Trip{
		ID:       "trip-1",
		DriverID: "driver-1",
		Status:   trips.StatusActive,
	}
}

func TestLogReadingNoActiveTrip(t *testing.T) {
	logs := &stubLogRepo{}
	alerts := &stubAlertRepo{}
	store := &stubTripStore{active: nil}
	service := newTestService(t, logs, alerts, store, time.Now(), nil)

	_, err := service.LogReading(context.Background(), "driver-1", fatigue.Reading{
		EyeStatus:  fatigue.EyeOpen,
		SeatbeltOn: true,
		EAR:        0.3,
	})
	if !errors.Is(err, fatigue.ErrNoActiveTrip) {
		t.Fatalf("expected ErrNoActiveTrip, got %v", err)
	}
	if len(logs.inserted) != 0 || len(alerts.created) != 0 || len(store.appended) != 0 {
		t.Fatalf("expected no side effects without an active trip")
	}
}

func TestLogReadingInvalidEyeStatus(t *testing.T) {
	service := newTestService(t, &stubLogRepo{}, &stubAlertRepo{}, &stubTripStore{active: activeTrip()}, time.Now(), nil)

	_, err := service.LogReading(context.Background(), "driver-1", fatigue.Reading{EyeStatus: "squinting"})
	if !errors.Is(err, fatigue.ErrInvalidReading) {
		t.Fatalf("expected ErrInvalidReading, got %v", err)
	}
}

func TestLogReadingCalmReading(t *testing.T) {
	logs := &stubLogRepo{}
	alerts := &stubAlertRepo{}
	store := &stubTripStore{active: activeTrip()}
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	service := newTestService(t, logs, alerts, store, now, nil)

	result, err := service.LogReading(context.Background(), "driver-1", fatigue.Reading{
		EyeStatus:  fatigue.EyeOpen,
		SeatbeltOn: true,
		EAR:        0.32,
		MAR:        0.4,
		Latitude:   52.1,
		Longitude:  21.0,
	})
	if err != nil {
		t.Fatalf("log reading: %v", err)
	}
	if result.Score != 0 {
		t.Fatalf("expected zero score, got %v", result.Score)
	}
	if len(result.Alerts) != 0 {
		t.Fatalf("expected no alerts, got %d", len(result.Alerts))
	}
	if result.Recommendation != "Drive safely. Stay alert." {
		t.Fatalf("unexpected recommendation %q", result.Recommendation)
	}
	if len(logs.inserted) != 1 {
		t.Fatalf("expected one log inserted, got %d", len(logs.inserted))
	}
	if got := logs.inserted[0]; got.TripID != "trip-1" || got.Location.Lat != 52.1 || got.Location.Lng != 21.0 {
		t.Fatalf("unexpected log %+v", got)
	}
	if len(store.appended) != 1 {
		t.Fatalf("expected one route point, got %d", len(store.appended))
	}
}

func TestLogReadingHighFatigueAlert(t *testing.T) {
	logs := &stubLogRepo{}
	alerts := &stubAlertRepo{}
	store := &stubTripStore{active: activeTrip()}
	notifier := &captureNotifier{}
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	service := newTestService(t, logs, alerts, store, now, notifier)

	// closed (0.6) + yawn (0.4) clamps to 1.0
	result, err := service.LogReading(context.Background(), "driver-1", fatigue.Reading{
		EyeStatus:    fatigue.EyeClosed,
		YawnDetected: true,
		SeatbeltOn:   true,
		EAR:          0.3,
	})
	if err != nil {
		t.Fatalf("log reading: %v", err)
	}
	if result.Score != 1.0 {
		t.Fatalf("expected score 1.0, got %v", result.Score)
	}
	if len(result.Alerts) != 1 {
		t.Fatalf("expected one alert, got %d", len(result.Alerts))
	}
	alert := result.Alerts[0]
	if alert.Type != fatigue.AlertFatigueHigh || alert.Severity != fatigue.SeverityHigh {
		t.Fatalf("unexpected alert %+v", alert)
	}
	if alert.Message != "High fatigue level detected: 100%" {
		t.Fatalf("unexpected message %q", alert.Message)
	}
	var meta fatigue.HighFatigueMetadata
	if err := json.Unmarshal(alert.Metadata, &meta); err != nil {
		t.Fatalf("unmarshal metadata: %v", err)
	}
	if meta.FatigueScore != 1.0 || meta.EyeStatus != fatigue.EyeClosed || !meta.YawnDetected {
		t.Fatalf("unexpected metadata %+v", meta)
	}
	if meta.Timestamp != now.Format(time.RFC3339) {
		t.Fatalf("unexpected metadata timestamp %q", meta.Timestamp)
	}
	if len(notifier.events) != 1 || notifier.events[0].Type != "created" {
		t.Fatalf("expected one created event, got %+v", notifier.events)
	}
	if result.Recommendation != "Immediate rest recommended. Pull over safely." {
		t.Fatalf("unexpected recommendation %q", result.Recommendation)
	}
}

func TestLogReadingHighFatigueThresholdExclusive(t *testing.T) {
	cases := []struct {
		name    string
		level   float64
		fires   bool
		message string
	}{
		{name: "at threshold", level: 0.8, fires: false},
		{name: "just above threshold", level: 0.9, fires: true, message: "High fatigue level detected: 90%"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := &stubTripStore{active: activeTrip()}
			service := newTestService(t, &stubLogRepo{}, &stubAlertRepo{}, store, time.Now(), nil)

			result, err := service.LogReading(context.Background(), "driver-1", fatigue.Reading{
				EyeStatus:    fatigue.EyeOpen,
				SeatbeltOn:   true,
				EAR:          0.3,
				FatigueLevel: &tc.level,
			})
			if err != nil {
				t.Fatalf("log reading: %v", err)
			}
			if result.Score != tc.level {
				t.Fatalf("expected score %v, got %v", tc.level, result.Score)
			}
			if !tc.fires {
				if len(result.Alerts) != 0 {
					t.Fatalf("expected no alerts at the threshold, got %+v", result.Alerts)
				}
				return
			}
			if len(result.Alerts) != 1 || result.Alerts[0].Type != fatigue.AlertFatigueHigh {
				t.Fatalf("expected a fatigue alert, got %+v", result.Alerts)
			}
			if result.Alerts[0].Message != tc.message {
				t.Fatalf("unexpected message %q", result.Alerts[0].Message)
			}
		})
	}
}

func TestLogReadingEyeClosureWindow(t *testing.T) {
	cases := []struct {
		name     string
		count    int
		fires    bool
		severity fatigue.Severity
	}{
		{name: "below threshold", count: 2, fires: false},
		{name: "at threshold", count: 3, fires: true, severity: fatigue.SeverityHigh},
		{name: "critical", count: 5, fires: true, severity: fatigue.SeverityCritical},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			logs := &stubLogRepo{closedCount: tc.count}
			alerts := &stubAlertRepo{}
			store := &stubTripStore{active: activeTrip()}
			service := newTestService(t, logs, alerts, store, time.Now(), nil)

			result, err := service.LogReading(context.Background(), "driver-1", fatigue.Reading{
				EyeStatus:  fatigue.EyeClosed,
				SeatbeltOn: true,
				EAR:        0.3,
			})
			if err != nil {
				t.Fatalf("log reading: %v", err)
			}
			var closure *fatigue.Alert
			for i := range result.Alerts {
				if result.Alerts[i].Type == fatigue.AlertEyesClosed {
					closure = &result.Alerts[i]
				}
			}
			if !tc.fires {
				if closure != nil {
					t.Fatalf("expected no closure alert, got %+v", closure)
				}
				return
			}
			if closure == nil {
				t.Fatalf("expected closure alert")
			}
			if closure.Severity != tc.severity {
				t.Fatalf("expected severity %s, got %s", tc.severity, closure.Severity)
			}
			var meta fatigue.EyeClosureMetadata
			if err := json.Unmarshal(closure.Metadata, &meta); err != nil {
				t.Fatalf("unmarshal metadata: %v", err)
			}
			if meta.ConsecutiveClosures != tc.count || meta.TimeWindow != "5 minutes" {
				t.Fatalf("unexpected metadata %+v", meta)
			}
		})
	}
}

func TestLogReadingSeatbeltAlwaysFires(t *testing.T) {
	logs := &stubLogRepo{}
	alerts := &stubAlertRepo{}
	store := &stubTripStore{active: activeTrip()}
	service := newTestService(t, logs, alerts, store, time.Now(), nil)

	result, err := service.LogReading(context.Background(), "driver-1", fatigue.Reading{
		EyeStatus:  fatigue.EyeOpen,
		SeatbeltOn: false,
		EAR:        0.3,
	})
	if err != nil {
		t.Fatalf("log reading: %v", err)
	}
	if len(result.Alerts) != 1 {
		t.Fatalf("expected one alert, got %d", len(result.Alerts))
	}
	alert := result.Alerts[0]
	if alert.Type != fatigue.AlertNoSeatbelt || alert.Severity != fatigue.SeverityMedium {
		t.Fatalf("unexpected alert %+v", alert)
	}
	if alert.Message != "Driver is not wearing seatbelt" {
		t.Fatalf("unexpected message %q", alert.Message)
	}
}

func TestLogReadingYawnWindow(t *testing.T) {
	cases := []struct {
		name    string
		count   int
		fires   bool
		message string
	}{
		{name: "below threshold", count: 4, fires: false},
		{name: "at threshold", count: 5, fires: true, message: "Frequent yawning detected (5 times in 10 minutes)"},
		{name: "above threshold", count: 6, fires: true, message: "Frequent yawning detected (6 times in 10 minutes)"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			logs := &stubLogRepo{yawnCount: tc.count}
			alerts := &stubAlertRepo{}
			store := &stubTripStore{active: activeTrip()}
			service := newTestService(t, logs, alerts, store, time.Now(), nil)

			result, err := service.LogReading(context.Background(), "driver-1", fatigue.Reading{
				EyeStatus:    fatigue.EyeOpen,
				YawnDetected: true,
				SeatbeltOn:   true,
				EAR:          0.3,
			})
			if err != nil {
				t.Fatalf("log reading: %v", err)
			}
			if !tc.fires {
				if len(result.Alerts) != 0 {
					t.Fatalf("expected no alerts below the threshold, got %+v", result.Alerts)
				}
				return
			}
			if len(result.Alerts) != 1 {
				t.Fatalf("expected one alert, got %d", len(result.Alerts))
			}
			alert := result.Alerts[0]
			if alert.Type != fatigue.AlertYawnFrequent {
				t.Fatalf("unexpected alert type %s", alert.Type)
			}
			if alert.Message != tc.message {
				t.Fatalf("unexpected message %q", alert.Message)
			}
		})
	}
}

func TestLogReadingRulesCoFire(t *testing.T) {
	logs := &stubLogRepo{closedCount: 5, yawnCount: 5}
	alerts := &stubAlertRepo{}
	store := &stubTripStore{active: activeTrip()}
	service := newTestService(t, logs, alerts, store, time.Now(), nil)

	result, err := service.LogReading(context.Background(), "driver-1", fatigue.Reading{
		EyeStatus:    fatigue.EyeClosed,
		YawnDetected: true,
		SeatbeltOn:   false,
		EAR:          0.2,
	})
	if err != nil {
		t.Fatalf("log reading: %v", err)
	}
	want := []fatigue.AlertType{
		fatigue.AlertFatigueHigh,
		fatigue.AlertEyesClosed,
		fatigue.AlertNoSeatbelt,
		fatigue.AlertYawnFrequent,
	}
	if len(result.Alerts) != len(want) {
		t.Fatalf("expected %d alerts, got %d", len(want), len(result.Alerts))
	}
	for i, alertType := range want {
		if result.Alerts[i].Type != alertType {
			t.Fatalf("expected alert %d to be %s, got %s", i, alertType, result.Alerts[i].Type)
		}
	}
}

func TestLogReadingRoutePointRawOverride(t *testing.T) {
	store := &stubTripStore{active: activeTrip()}
	service := newTestService(t, &stubLogRepo{}, &stubAlertRepo{}, store, time.Now(), nil)

	// Without an override the route point records zero even though the
	// computed score is positive.
	result, err := service.LogReading(context.Background(), "driver-1", fatigue.Reading{
		EyeStatus:  fatigue.EyePartial,
		SeatbeltOn: true,
		EAR:        0.3,
	})
	if err != nil {
		t.Fatalf("log reading: %v", err)
	}
	if result.Score != 0.3 {
		t.Fatalf("expected computed score 0.3, got %v", result.Score)
	}
	if got := store.appended[0].FatigueScore; got != 0 {
		t.Fatalf("expected raw zero on route point, got %v", got)
	}

	override := 0.42
	if _, err := service.LogReading(context.Background(), "driver-1", fatigue.Reading{
		EyeStatus:    fatigue.EyeOpen,
		SeatbeltOn:   true,
		EAR:          0.3,
		FatigueLevel: &override,
	}); err != nil {
		t.Fatalf("log reading with override: %v", err)
	}
	if got := store.appended[1].FatigueScore; got != 0.42 {
		t.Fatalf("expected override 0.42 on route point, got %v", got)
	}
}

func TestAckAlertIdempotent(t *testing.T) {
	alert := &fatigue.Alert{ID: "alert-1", DriverID: "driver-1", Type: fatigue.AlertNoSeatbelt, Severity: fatigue.SeverityMedium}
	alerts := &stubAlertRepo{byID: map[string]*fatigue.Alert{"alert-1": alert}}
	notifier := &captureNotifier{}
	service := newTestService(t, &stubLogRepo{}, alerts, &stubTripStore{active: activeTrip()}, time.Now(), notifier)

	acked, err := service.AckAlert(context.Background(), "alert-1")
	if err != nil {
		t.Fatalf("ack: %v", err)
	}
	if !acked.Acknowledged || acked.AcknowledgedAt.IsZero() {
		t.Fatalf("expected acknowledged alert, got %+v", acked)
	}
	if len(alerts.acked) != 1 {
		t.Fatalf("expected one persisted ack, got %d", len(alerts.acked))
	}
	if len(notifier.events) != 1 || notifier.events[0].Type != "acknowledged" {
		t.Fatalf("expected acknowledged event, got %+v", notifier.events)
	}

	// Second ack is a no-op.
	if _, err := service.AckAlert(context.Background(), "alert-1"); err != nil {
		t.Fatalf("second ack: %v", err)
	}
	if len(alerts.acked) != 1 {
		t.Fatalf("expected ack to be idempotent, persisted %d times", len(alerts.acked))
	}
}

func TestAckAlertNotFound(t *testing.T) {
	service := newTestService(t, &stubLogRepo{}, &stubAlertRepo{}, &stubTripStore{active: activeTrip()}, time.Now(), nil)
	if _, err := service.AckAlert(context.Background(), "nope"); !errors.Is(err, fatigue.ErrAlertNotFound) {
		t.Fatalf("expected ErrAlertNotFound, got %v", err)
	}
}
