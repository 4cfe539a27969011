package application

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	fatigue "safedrive/internal/fatigue/domain"
	"safedrive/internal/observability/metrics"
	trips "safedrive/internal/trips/domain"
)

// AlertNotifier publishes alert lifecycle events.
type AlertNotifier interface {
	Notify(ctx context.Context, event AlertEvent)
}

// AlertEvent represents a lifecycle update.
type AlertEvent struct {
	Type  string        `json:"type"`
	Alert fatigue.Alert `json:"alert"`
}

// Clock provides time.
type Clock interface {
	Now() time.Time
}

// TripStore is the slice of trip persistence the pipeline needs: the
// active-trip lookup and the route-point append.
type TripStore interface {
	FindActiveByDriver(ctx context.Context, driverID string) (*trips.Trip, error)
	AppendRoutePoint(ctx context.Context, tripID string, point trips.RoutePoint) error
}

// Service runs the fatigue ingestion pipeline and the alert rule engine.
type Service struct {
	logs     fatigue.LogRepository
	alerts   fatigue.AlertRepository
	trips    TripStore
	rules    RuleConfig
	notifier AlertNotifier
	clock    Clock

	mu          sync.Mutex
	driverLocks map[string]*sync.Mutex
}

// ServiceOption customizes the service.
type ServiceOption func(*Service)

// WithNotifier assigns a notifier.
func WithNotifier(notifier AlertNotifier) ServiceOption {
	return func(s *Service) {
		s.notifier = notifier
	}
}

// WithClock assigns a clock.
func WithClock(clock Clock) ServiceOption {
	return func(s *Service) {
		s.clock = clock
	}
}

// NewService constructs the fatigue service.
func NewService(logs fatigue.LogRepository, alerts fatigue.AlertRepository, tripStore TripStore, rules RuleConfig, opts ...ServiceOption) (*Service, error) {
	if logs == nil || alerts == nil {
		return nil, errors.New("fatigue: nil repository")
	}
	if tripStore == nil {
		return nil, errors.New("fatigue: nil trip store")
	}
	if err := rules.Validate(); err != nil {
		return nil, err
	}
	service := &Service{
		logs:        logs,
		alerts:      alerts,
		trips:       tripStore,
		rules:       rules,
		clock:       systemClock{},
		driverLocks: make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// IngestResult is the composite outcome of one reading.
type IngestResult struct {
	Log            *fatigue.FatigueLog `json:"fatigue_log"`
	Alerts         []fatigue.Alert     `json:"alerts"`
	Score          float64             `json:"fatigue_score"`
	Recommendation string              `json:"recommendation"`
}

// LogReading runs the ingestion pipeline for one reading: locate the
// driver's active trip, score, persist the log, append the route point,
// evaluate alert rules, and build a recommendation. Calls for the same
// driver are serialized so the rolling-window counts and the route append
// cannot interleave.
func (s *Service) LogReading(ctx context.Context, driverID string, reading fatigue.Reading) (*IngestResult, error) {
	if s == nil {
		return nil, errors.New("fatigue: nil service")
	}
	if driverID == "" {
		return nil, errors.New("fatigue: driver id required")
	}
	if err := reading.Validate(); err != nil {
		return nil, err
	}

	unlock := s.lockDriver(driverID)
	defer unlock()

	trip, err := s.trips.FindActiveByDriver(ctx, driverID)
	if err != nil {
		return nil, err
	}
	if trip == nil {
		return nil, fatigue.ErrNoActiveTrip
	}

	score := fatigue.EffectiveScore(reading)
	now := s.clock.Now().UTC()

	log := &fatigue.FatigueLog{
		ID:              buildLogID(driverID, trip.ID, now),
		TripID:          trip.ID,
		DriverID:        driverID,
		EAR:             reading.EAR,
		MAR:             reading.MAR,
		EyeStatus:       reading.EyeStatus,
		YawnDetected:    reading.YawnDetected,
		SeatbeltOn:      reading.SeatbeltOn,
		FatigueScore:    score,
		Accuracy:        reading.Accuracy,
		ConfidenceLevel: reading.ConfidenceLevel,
		Location:        fatigue.Location{Lat: reading.Latitude, Lng: reading.Longitude},
		DetectionData:   reading.DetectionData,
		CreatedAt:       now,
	}
	if err := s.logs.Insert(ctx, log); err != nil {
		return nil, err
	}

	// The route point records the raw caller-supplied level, zero when
	// absent, matching upstream behavior. The computed score lives on the
	// log only.
	rawLevel := 0.0
	if reading.FatigueLevel != nil {
		rawLevel = *reading.FatigueLevel
	}
	point := trips.RoutePoint{
		Lat:          reading.Latitude,
		Lng:          reading.Longitude,
		Timestamp:    now,
		FatigueScore: rawLevel,
		EyeStatus:    string(reading.EyeStatus),
	}
	if err := s.trips.AppendRoutePoint(ctx, trip.ID, point); err != nil {
		return nil, err
	}

	alerts, err := s.evaluateRules(ctx, log, reading)
	if err != nil {
		return nil, err
	}

	return &IngestResult{
		Log:            log,
		Alerts:         alerts,
		Score:          score,
		Recommendation: fatigue.Recommendation(score, reading),
	}, nil
}

// evaluateRules checks the new log against the alert rules in fixed order.
// Rules fire independently; one reading can raise several alerts.
func (s *Service) evaluateRules(ctx context.Context, log *fatigue.FatigueLog, reading fatigue.Reading) ([]fatigue.Alert, error) {
	alerts := []fatigue.Alert{}
	ts := log.CreatedAt.Format(time.RFC3339)

	if log.FatigueScore > s.rules.HighFatigueThreshold {
		alert, err := s.createAlert(ctx, log, fatigue.AlertFatigueHigh, fatigue.SeverityHigh,
			fmt.Sprintf("High fatigue level detected: %d%%", int(math.Round(log.FatigueScore*100))),
			fatigue.MarshalMetadata(fatigue.HighFatigueMetadata{
				FatigueScore: log.FatigueScore,
				EyeStatus:    log.EyeStatus,
				YawnDetected: log.YawnDetected,
				Timestamp:    ts,
			}))
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, *alert)
	}

	if reading.EyeStatus == fatigue.EyeClosed {
		window := time.Duration(s.rules.ClosureWindowMinutes) * time.Minute
		count, err := s.logs.CountClosedEyes(ctx, log.DriverID, log.CreatedAt.Add(-window))
		if err != nil {
			return nil, err
		}
		if count >= s.rules.ClosureMinCount {
			severity := fatigue.SeverityHigh
			if count >= s.rules.ClosureCriticalCount {
				severity = fatigue.SeverityCritical
			}
			windowLabel := fmt.Sprintf("%d minutes", s.rules.ClosureWindowMinutes)
			alert, err := s.createAlert(ctx, log, fatigue.AlertEyesClosed, severity,
				fmt.Sprintf("Multiple eye closures detected (%d in %s)", count, windowLabel),
				fatigue.MarshalMetadata(fatigue.EyeClosureMetadata{
					ConsecutiveClosures: count,
					TimeWindow:          windowLabel,
					Timestamp:           ts,
				}))
			if err != nil {
				return nil, err
			}
			alerts = append(alerts, *alert)
		}
	}

	if !reading.SeatbeltOn {
		alert, err := s.createAlert(ctx, log, fatigue.AlertNoSeatbelt, fatigue.SeverityMedium,
			"Driver is not wearing seatbelt",
			fatigue.MarshalMetadata(fatigue.SeatbeltMetadata{
				SeatbeltStatus: false,
				Timestamp:      ts,
			}))
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, *alert)
	}

	if reading.YawnDetected {
		window := time.Duration(s.rules.YawnWindowMinutes) * time.Minute
		count, err := s.logs.CountYawns(ctx, log.DriverID, log.CreatedAt.Add(-window))
		if err != nil {
			return nil, err
		}
		if count >= s.rules.YawnMinCount {
			windowLabel := fmt.Sprintf("%d minutes", s.rules.YawnWindowMinutes)
			alert, err := s.createAlert(ctx, log, fatigue.AlertYawnFrequent, fatigue.SeverityMedium,
				fmt.Sprintf("Frequent yawning detected (%d times in %s)", count, windowLabel),
				fatigue.MarshalMetadata(fatigue.YawnMetadata{
					YawnCount:  count,
					TimeWindow: windowLabel,
					Timestamp:  ts,
				}))
			if err != nil {
				return nil, err
			}
			alerts = append(alerts, *alert)
		}
	}

	return alerts, nil
}

func (s *Service) createAlert(ctx context.Context, log *fatigue.FatigueLog, alertType fatigue.AlertType, severity fatigue.Severity, message string, metadata []byte) (*fatigue.Alert, error) {
	alert := &fatigue.Alert{
		ID:        buildAlertID(log.DriverID, string(alertType), log.CreatedAt),
		DriverID:  log.DriverID,
		TripID:    log.TripID,
		Type:      alertType,
		Severity:  severity,
		Message:   message,
		Metadata:  metadata,
		CreatedAt: log.CreatedAt,
	}
	if err := s.alerts.Create(ctx, alert); err != nil {
		return nil, err
	}
	s.notify(ctx, "created", *alert)
	return alert, nil
}

// GetAlert fetches an alert by id.
func (s *Service) GetAlert(ctx context.Context, id string) (*fatigue.Alert, error) {
	if s == nil {
		return nil, errors.New("fatigue: nil service")
	}
	if id == "" {
		return nil, errors.New("fatigue: alert id required")
	}
	alert, err := s.alerts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if alert == nil {
		return nil, fatigue.ErrAlertNotFound
	}
	return alert, nil
}

// AckAlert acknowledges an alert.
func (s *Service) AckAlert(ctx context.Context, id string) (*fatigue.Alert, error) {
	if s == nil {
		return nil, errors.New("fatigue: nil service")
	}
	if id == "" {
		return nil, errors.New("fatigue: alert id required")
	}
	alert, err := s.alerts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if alert == nil {
		return nil, fatigue.ErrAlertNotFound
	}
	if alert.Acknowledged {
		return alert, nil
	}
	ackedAt := s.clock.Now().UTC()
	if err := s.alerts.MarkAcknowledged(ctx, alert.ID, ackedAt); err != nil {
		return nil, err
	}
	alert.Acknowledged = true
	alert.AcknowledgedAt = ackedAt
	s.notify(ctx, "acknowledged", *alert)
	return alert, nil
}

// ListAlerts returns alerts matching the filter.
func (s *Service) ListAlerts(ctx context.Context, filter fatigue.AlertFilter) ([]fatigue.Alert, error) {
	if s == nil {
		return nil, errors.New("fatigue: nil service")
	}
	if filter.DriverID == "" {
		return nil, errors.New("fatigue: driver id required")
	}
	return s.alerts.List(ctx, filter)
}

func (s *Service) notify(ctx context.Context, eventType string, alert fatigue.Alert) {
	if s == nil {
		return
	}
	metrics.IncAlertEvent(eventType, string(alert.Type), string(alert.Severity))
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(ctx, AlertEvent{Type: eventType, Alert: alert})
}

func (s *Service) lockDriver(driverID string) func() {
	s.mu.Lock()
	lock, ok := s.driverLocks[driverID]
	if !ok {
		lock = &sync.Mutex{}
		s.driverLocks[driverID] = lock
	}
	s.mu.Unlock()
	lock.Lock()
	return lock.Unlock
}

func buildLogID(driverID, tripID string, at time.Time) string {
	sum := sha1.Sum([]byte(driverID + "|" + tripID + "|" + at.Format(time.RFC3339Nano)))
	return "log-" + hex.EncodeToString(sum[:8])
}

func buildAlertID(driverID, alertType string, at time.Time) string {
	sum := sha1.Sum([]byte(driverID + "|" + alertType + "|" + at.Format(time.RFC3339Nano)))
	return "alert-" + hex.EncodeToString(sum[:8])
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }
