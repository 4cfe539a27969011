package notify

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"safedrive/internal/fatigue/application"
	fatigue "safedrive/internal/fatigue/domain"
)

// Clock provides time for throttling decisions.
type Clock interface {
	Now() time.Time
}

type sendRecord struct {
	at   time.Time
	hash string
}

// Notifier renders alert events and delivers them via a channel, with
// optional cooldown and dedupe throttling per alert/event pair.
type Notifier struct {
	channel        Channel
	template       *Template
	clock          Clock
	requestTimeout time.Duration

	mu           sync.Mutex
	sent         map[string]sendRecord
	cooldown     time.Duration
	dedupeWindow time.Duration
}

// Option configures the notifier.
type Option func(*Notifier)

// WithClock overrides the default clock.
func WithClock(clock Clock) Option {
	return func(n *Notifier) {
		if clock != nil {
			n.clock = clock
		}
	}
}

// WithRequestTimeout bounds delivery time.
func WithRequestTimeout(timeout time.Duration) Option {
	return func(n *Notifier) {
		if timeout > 0 {
			n.requestTimeout = timeout
		}
	}
}

// WithCooldown sets a minimum interval between notifications for the same
// alert and event.
func WithCooldown(interval time.Duration) Option {
	return func(n *Notifier) {
		if interval > 0 {
			n.cooldown = interval
		}
	}
}

// WithDedupeWindow suppresses identical notifications within the window.
func WithDedupeWindow(window time.Duration) Option {
	return func(n *Notifier) {
		if window > 0 {
			n.dedupeWindow = window
		}
	}
}

// NewNotifier constructs a notifier.
func NewNotifier(channel Channel, tpl *Template, opts ...Option) (*Notifier, error) {
	if channel == nil {
		return nil, errors.New("alert notifier: nil channel")
	}
	if tpl == nil {
		return nil, errors.New("alert notifier: nil template")
	}
	notifier := &Notifier{
		channel:        channel,
		template:       tpl,
		clock:          systemClock{},
		requestTimeout: 5 * time.Second,
		sent:           make(map[string]sendRecord),
	}
	for _, opt := range opts {
		opt(notifier)
	}
	return notifier, nil
}

// Notify implements application.AlertNotifier.
func (n *Notifier) Notify(ctx context.Context, event application.AlertEvent) {
	if n == nil {
		return
	}
	content, err := n.template.Render(buildTemplateData(event))
	if err != nil {
		return
	}
	if !n.shouldSend(event, content) {
		return
	}
	sendCtx, cancel := context.WithTimeout(detachValues(ctx), n.requestTimeout)
	defer cancel()
	_ = n.channel.Send(sendCtx, content)
}

func (n *Notifier) shouldSend(event application.AlertEvent, content string) bool {
	if n.cooldown <= 0 && n.dedupeWindow <= 0 {
		return true
	}
	key := event.Alert.ID + "|" + event.Type
	hash := contentHash(content)
	now := n.clock.Now()

	n.mu.Lock()
	defer n.mu.Unlock()
	record, ok := n.sent[key]
	if ok {
		if n.cooldown > 0 && now.Sub(record.at) < n.cooldown {
			return false
		}
		if n.dedupeWindow > 0 && record.hash == hash && now.Sub(record.at) < n.dedupeWindow {
			return false
		}
	}
	n.sent[key] = sendRecord{at: now, hash: hash}
	return true
}

func buildTemplateData(event application.AlertEvent) TemplateData {
	alert := event.Alert
	return TemplateData{
		Driver:     alert.DriverID,
		Trip:       alert.TripID,
		Type:       string(alert.Type),
		Severity:   string(alert.Severity),
		Message:    alert.Message,
		RaisedAt:   alert.CreatedAt.Format(time.RFC3339),
		Suggestion: suggestionFor(alert),
		Event:      event.Type,
		EventLabel: eventLabel(event.Type),
	}
}

func suggestionFor(alert fatigue.Alert) string {
	switch alert.Type {
	case fatigue.AlertFatigueHigh:
		return "Contact the driver and arrange an immediate rest stop."
	case fatigue.AlertEyesClosed:
		return "Verify the driver is responsive."
	case fatigue.AlertNoSeatbelt:
		return "Remind the driver to fasten the seatbelt."
	case fatigue.AlertYawnFrequent:
		return "Suggest a break at the next rest area."
	default:
		return "Review the alert details."
	}
}

func eventLabel(event string) string {
	switch event {
	case "created":
		return "Raised"
	case "acknowledged":
		return "Acknowledged"
	default:
		return event
	}
}

func contentHash(content string) string {
	sum := sha1.Sum([]byte(content))
	return hex.EncodeToString(sum[:])
}

// detachValues drops the parent deadline so delivery survives the request
// lifecycle, keeping only the timeout set here.
func detachValues(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return context.WithoutCancel(ctx)
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }
