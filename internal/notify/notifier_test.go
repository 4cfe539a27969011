package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"safedrive/internal/fatigue/application"
	fatigue "safedrive/internal/fatigue/domain"
)

type countingChannel struct {
	mu       sync.Mutex
	contents []string
}

func (c *countingChannel) Send(_ context.Context, content string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.contents = append(c.contents, content)
	return nil
}

type fixedClock struct {
	now time.Time
}

func (c *fixedClock) Now() time.Time { return c.now }

func sampleEvent() application.AlertEvent {
	return application.AlertEvent{
		Type: "created",
		Alert: fatigue.Alert{
			ID:        "alert-1",
			DriverID:  "driver-1",
			TripID:    "trip-1",
			Type:      fatigue.AlertFatigueHigh,
			Severity:  fatigue.SeverityHigh,
			Message:   "High fatigue level detected: 92%",
			CreatedAt: time.Date(2026, 4, 2, 14, 30, 0, 0, time.UTC),
		},
	}
}

func TestWebhookNotifierPayload(t *testing.T) {
	payloadCh := make(chan webhookPayload, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		var payload webhookPayload
		if err := json.Unmarshal(body, &payload); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		payloadCh <- payload
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	channel, err := NewWebhookChannel(server.URL)
	if err != nil {
		t.Fatalf("new webhook channel: %v", err)
	}
	tpl, err := NewTemplate("")
	if err != nil {
		t.Fatalf("new template: %v", err)
	}
	notifier, err := NewNotifier(channel, tpl)
	if err != nil {
		t.Fatalf("new notifier: %v", err)
	}

	notifier.Notify(context.Background(), sampleEvent())

	select {
	case payload := <-payloadCh:
		if payload.MsgType != "text" {
			t.Fatalf("expected msgtype text, got %s", payload.MsgType)
		}
		content := payload.Text.Content
		checks := []string{
			"[Driver Alert Raised]",
			"Driver: driver-1",
			"Trip: trip-1",
			"Type: fatigue_high",
			"Severity: high",
			"Message: High fatigue level detected: 92%",
			"Raised At: 2026-04-02T14:30:00Z",
			"Recommendation: Contact the driver and arrange an immediate rest stop.",
		}
		for _, check := range checks {
			if !strings.Contains(content, check) {
				t.Fatalf("payload missing %q in:\n%s", check, content)
			}
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no webhook payload received")
	}
}

func TestNotifierCooldown(t *testing.T) {
	channel := &countingChannel{}
	tpl, err := NewTemplate("")
	if err != nil {
		t.Fatalf("new template: %v", err)
	}
	clock := &fixedClock{now: time.Date(2026, 4, 2, 14, 0, 0, 0, time.UTC)}
	notifier, err := NewNotifier(channel, tpl, WithCooldown(time.Minute), WithClock(clock))
	if err != nil {
		t.Fatalf("new notifier: %v", err)
	}

	event := sampleEvent()
	notifier.Notify(context.Background(), event)
	notifier.Notify(context.Background(), event)
	if len(channel.contents) != 1 {
		t.Fatalf("expected cooldown to suppress repeat, got %d sends", len(channel.contents))
	}

	clock.now = clock.now.Add(2 * time.Minute)
	notifier.Notify(context.Background(), event)
	if len(channel.contents) != 2 {
		t.Fatalf("expected send after cooldown, got %d sends", len(channel.contents))
	}

	// A different lifecycle event for the same alert is keyed separately.
	acked := event
	acked.Type = "acknowledged"
	notifier.Notify(context.Background(), acked)
	if len(channel.contents) != 3 {
		t.Fatalf("expected ack event to bypass cooldown key, got %d sends", len(channel.contents))
	}
}

func TestNotifierDedupeWindow(t *testing.T) {
	channel := &countingChannel{}
	tpl, err := NewTemplate("")
	if err != nil {
		t.Fatalf("new template: %v", err)
	}
	clock := &fixedClock{now: time.Date(2026, 4, 2, 14, 0, 0, 0, time.UTC)}
	notifier, err := NewNotifier(channel, tpl, WithDedupeWindow(time.Hour), WithClock(clock))
	if err != nil {
		t.Fatalf("new notifier: %v", err)
	}

	event := sampleEvent()
	notifier.Notify(context.Background(), event)
	clock.now = clock.now.Add(time.Minute)
	notifier.Notify(context.Background(), event)
	if len(channel.contents) != 1 {
		t.Fatalf("expected identical content deduped, got %d sends", len(channel.contents))
	}

	changed := event
	changed.Alert.Message = "High fatigue level detected: 95%"
	notifier.Notify(context.Background(), changed)
	if len(channel.contents) != 2 {
		t.Fatalf("expected changed content to send, got %d sends", len(channel.contents))
	}
}

func TestMultiNotifierFansOut(t *testing.T) {
	first := &captureNotifier{}
	second := &captureNotifier{}
	multi := NewMultiNotifier(first, second)

	multi.Notify(context.Background(), sampleEvent())
	if len(first.events) != 1 || len(second.events) != 1 {
		t.Fatalf("expected fan-out to both notifiers, got %d and %d", len(first.events), len(second.events))
	}
}

type captureNotifier struct {
	events []application.AlertEvent
}

func (c *captureNotifier) Notify(_ context.Context, event application.AlertEvent) {
	c.events = append(c.events, event)
}
